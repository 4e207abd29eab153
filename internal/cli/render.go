package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/me/mandelzoom/internal/config"
	"github.com/me/mandelzoom/internal/export"
	"github.com/me/mandelzoom/internal/render"
	"github.com/me/mandelzoom/internal/scheduler"
)

func newRenderCmd() *cobra.Command {
	var (
		zf     zoomFlags
		output string
		format string
		quiet  bool
	)

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render the whole zoom to a WIF file",
		Long: `Render every frame of the zoom and write them as a WIF stream.

The output is a local path or an s3://bucket/key URL. With --db (or
db_path in the config file) the run is recorded in the SQLite history.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := zf.apply(cmd, &cfg); err != nil {
				return err
			}
			if cmd.Flags().Changed("output") {
				cfg.Output = output
			}
			if cmd.Flags().Changed("format") {
				cfg.Format = format
			}

			ctx, stop := signalContext(cmd.Context())
			defer stop()

			opts := render.Options{Logger: logger}
			if cfg.DBPath != "" {
				st, err := openStore(ctx, cfg.DBPath)
				if err != nil {
					return err
				}
				defer st.Close()
				opts.Store = st
			}

			r, err := render.New(cfg, opts)
			if err != nil {
				return err
			}
			res, err := r.Render(ctx)
			if !quiet {
				render.PrintSummary(cmd.OutOrStdout(), res)
			}
			return err
		},
	}

	def := config.DefaultRenderConfig()
	addZoomFlags(cmd, &zf)
	addPlanFlags(cmd, &zf)
	addPaletteFlag(cmd, &zf)
	addDBFlag(cmd, &zf)
	cmd.Flags().StringVarP(&output, "output", "o", def.Output, "Output path or s3://bucket/key")
	cmd.Flags().StringVar(&format, "format", def.Format, "WIF encoding: binary or text")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Suppress the summary")

	return cmd
}

func newFrameCmd() *cobra.Command {
	var (
		zf     zoomFlags
		index  int
		output string
	)

	cmd := &cobra.Command{
		Use:   "frame",
		Short: "Render a single frame of the zoom to PNG",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := zf.apply(cmd, &cfg); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if n := cfg.FrameCount(); index < 0 || index >= n {
				return fmt.Errorf("frame %d out of range [0, %d)", index, n)
			}
			palette, err := export.ParsePalette(cfg.Palette)
			if err != nil {
				return err
			}
			sched, err := scheduler.New(cfg.Scheduler, scheduler.Options{Workers: cfg.Workers, Logger: logger})
			if err != nil {
				return err
			}

			ctx, stop := signalContext(cmd.Context())
			defer stop()

			g, err := render.Frame(cfg.FrameOptions(), index, 0, 0, sched)
			if err != nil {
				return err
			}
			w, err := export.Sinks{}.Open(ctx, output)
			if err != nil {
				return err
			}
			if err := export.EncodePNG(w, g, palette); err != nil {
				w.Close()
				return fmt.Errorf("encode frame %d: %w", index, err)
			}
			if err := w.Close(); err != nil {
				return err
			}
			logger.Info("frame written", "index", index, "output", output,
				"duration", sched.Stats().Duration)
			return nil
		},
	}

	addZoomFlags(cmd, &zf)
	cmd.Flags().StringVarP(&zf.scheduler, "scheduler", "s", config.DefaultRenderConfig().Scheduler.String(), "Scheduler: sequential, threads, pool, parallel, task")
	addPaletteFlag(cmd, &zf)
	cmd.Flags().IntVarP(&index, "index", "i", 0, "Frame index")
	cmd.Flags().StringVarP(&output, "output", "o", "frame.png", "Output path or s3://bucket/key")

	return cmd
}
