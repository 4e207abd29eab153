package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/me/mandelzoom/internal/config"
	"github.com/me/mandelzoom/internal/export"
	"github.com/me/mandelzoom/internal/scheduler"
	"github.com/me/mandelzoom/internal/server"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd() *cobra.Command {
	var zf zoomFlags
	srvCfg := config.DefaultServerConfig()

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve frame previews, run history and metrics over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := zf.apply(cmd, &cfg); err != nil {
				return err
			}
			if err := cfg.FrameOptions().Validate(); err != nil {
				return err
			}
			palette, err := export.ParsePalette(cfg.Palette)
			if err != nil {
				return err
			}
			srvCfg.LogLevel, srvCfg.LogFormat = flagLogLevel, flagLogFormat
			if srvCfg.DBPath == "" {
				srvCfg.DBPath = cfg.DBPath
			}

			reg := prometheus.NewRegistry()
			reg.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
			sched, err := scheduler.New(cfg.Scheduler, scheduler.Options{
				Workers: cfg.Workers,
				Logger:  logger,
				Metrics: scheduler.NewMetrics(reg),
			})
			if err != nil {
				return err
			}

			ctx, stop := signalContext(cmd.Context())
			defer stop()

			opts := []server.Option{server.WithGatherer(reg), server.WithPalette(palette)}
			if srvCfg.DBPath != "" {
				st, err := openStore(ctx, srvCfg.DBPath)
				if err != nil {
					return err
				}
				defer st.Close()
				opts = append(opts, server.WithStore(st))
			}

			srv := server.New(srvCfg, cfg.FrameOptions(), sched, logger, opts...)
			return listenAndServe(ctx, srvCfg.Addr, srv.Handler())
		},
	}

	addZoomFlags(cmd, &zf)
	cmd.Flags().StringVarP(&zf.scheduler, "scheduler", "s", config.DefaultRenderConfig().Scheduler.String(), "Scheduler: sequential, threads, pool, parallel, task")
	addPaletteFlag(cmd, &zf)
	addDBFlag(cmd, &zf)
	cmd.Flags().StringVar(&srvCfg.Addr, "addr", srvCfg.Addr, "Listen address")
	cmd.Flags().IntVar(&srvCfg.MaxConcurrentFrames, "max-concurrent-frames", srvCfg.MaxConcurrentFrames, "Concurrent preview renders")
	cmd.Flags().IntVar(&srvCfg.MaxFrameWidth, "max-frame-width", srvCfg.MaxFrameWidth, "Largest ?width= a preview may request")
	cmd.Flags().IntVar(&srvCfg.MaxFrameHeight, "max-frame-height", srvCfg.MaxFrameHeight, "Largest ?height= a preview may request")
	cmd.Flags().IntVar(&srvCfg.FrameCacheSize, "frame-cache", srvCfg.FrameCacheSize, "Encoded previews kept in memory (0 disables)")

	return cmd
}

// listenAndServe runs h on addr until ctx is cancelled, then shuts down
// gracefully.
func listenAndServe(ctx context.Context, addr string, h http.Handler) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}
