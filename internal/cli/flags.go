package cli

import (
	"github.com/spf13/cobra"

	"github.com/me/mandelzoom/internal/config"
	"github.com/me/mandelzoom/internal/planner"
	"github.com/me/mandelzoom/internal/scheduler"
)

// zoomFlags override the RenderConfig fields that shape the workload. A
// flag only wins over the config file when it was set explicitly.
type zoomFlags struct {
	width         int
	height        int
	maxIterations int
	maxFrames     int
	workers       int
	planner       string
	scheduler     string
	palette       string
	db            string
}

func addZoomFlags(cmd *cobra.Command, f *zoomFlags) {
	def := config.DefaultRenderConfig()
	fs := cmd.Flags()
	fs.IntVar(&f.width, "width", def.Width, "Frame width in pixels")
	fs.IntVar(&f.height, "height", def.Height, "Frame height in pixels")
	fs.IntVar(&f.maxIterations, "max-iterations", def.MaxIterations, "Escape-time iteration bound")
	fs.IntVar(&f.maxFrames, "max-frames", def.MaxFrames, "Stop the zoom after this many frames (0 = all)")
	fs.IntVarP(&f.workers, "workers", "j", def.Workers, "Worker count (0 = number of CPUs)")
}

func addPlanFlags(cmd *cobra.Command, f *zoomFlags) {
	def := config.DefaultRenderConfig()
	cmd.Flags().StringVarP(&f.planner, "planner", "p", def.Planner.String(), "Job granularity: pixel, row, frame, monolith")
	cmd.Flags().StringVarP(&f.scheduler, "scheduler", "s", def.Scheduler.String(), "Scheduler: sequential, threads, pool, parallel, task")
}

func addPaletteFlag(cmd *cobra.Command, f *zoomFlags) {
	cmd.Flags().StringVar(&f.palette, "palette", config.DefaultRenderConfig().Palette, "Palette: grayscale, colorful or expr:<js>")
}

func addDBFlag(cmd *cobra.Command, f *zoomFlags) {
	cmd.Flags().StringVar(&f.db, "db", "", "SQLite run history (empty disables it)")
}

// apply copies every explicitly set flag into cfg.
func (f *zoomFlags) apply(cmd *cobra.Command, cfg *config.RenderConfig) error {
	fs := cmd.Flags()
	set := func(name string) bool {
		return fs.Lookup(name) != nil && fs.Changed(name)
	}
	if set("width") {
		cfg.Width = f.width
	}
	if set("height") {
		cfg.Height = f.height
	}
	if set("max-iterations") {
		cfg.MaxIterations = f.maxIterations
	}
	if set("max-frames") {
		cfg.MaxFrames = f.maxFrames
	}
	if set("workers") {
		cfg.Workers = f.workers
	}
	if set("planner") {
		g, err := planner.ParseGranularity(f.planner)
		if err != nil {
			return err
		}
		cfg.Planner = g
	}
	if set("scheduler") {
		s, err := scheduler.ParseStrategy(f.scheduler)
		if err != nil {
			return err
		}
		cfg.Scheduler = s
	}
	if set("palette") {
		cfg.Palette = f.palette
	}
	if set("db") {
		cfg.DBPath = f.db
	}
	return nil
}
