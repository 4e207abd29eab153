package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/me/mandelzoom/internal/planner"
	"github.com/me/mandelzoom/internal/render"
	"github.com/me/mandelzoom/internal/scheduler"
)

// Without a config file bench uses a smaller zoom than render.
const (
	benchWidth     = 480
	benchHeight    = 270
	benchMaxFrames = 16
)

func newBenchCmd() *cobra.Command {
	var (
		zf         zoomFlags
		planners   []string
		strategies []string
		repeat     int
		format     string
	)

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Time every planner/scheduler pair against a sequential baseline",
		Long: `Render the zoom once sequentially as a single job, then under each
planner/scheduler pair, and report timings. Every pair must produce the
same frames as the baseline; bench exits non-zero on any mismatch.

Without --config the zoom is cut to 16 frames of 480x270.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if flagConfig == "" {
				cfg.Width, cfg.Height, cfg.MaxFrames = benchWidth, benchHeight, benchMaxFrames
			}
			if err := zf.apply(cmd, &cfg); err != nil {
				return err
			}
			opts := render.MatrixOptions{
				Frames:  cfg.FrameOptions(),
				Workers: cfg.Workers,
				Repeat:  repeat,
				Logger:  logger,
			}
			for _, name := range planners {
				g, err := planner.ParseGranularity(name)
				if err != nil {
					return err
				}
				opts.Planners = append(opts.Planners, g)
			}
			for _, name := range strategies {
				s, err := scheduler.ParseStrategy(name)
				if err != nil {
					return err
				}
				opts.Strategies = append(opts.Strategies, s)
			}

			ctx, stop := signalContext(cmd.Context())
			defer stop()

			report, err := render.Matrix(ctx, opts)
			if err != nil {
				return err
			}
			if err := report.Write(cmd.OutOrStdout(), format); err != nil {
				return err
			}
			if bad := report.Mismatches(); len(bad) > 0 {
				return fmt.Errorf("%d planner/scheduler pairs differ from the sequential baseline", len(bad))
			}
			return nil
		},
	}

	addZoomFlags(cmd, &zf)
	cmd.Flags().StringSliceVar(&planners, "planners", nil, "Planners to compare (default all)")
	cmd.Flags().StringSliceVar(&strategies, "schedulers", nil, "Schedulers to compare (default all)")
	cmd.Flags().IntVarP(&repeat, "repeat", "r", 3, "Runs per pair; the best and mean are reported")
	cmd.Flags().StringVarP(&format, "format", "f", "table", "Report format: table, yaml, json")

	return cmd
}
