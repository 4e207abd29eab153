package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/me/mandelzoom/internal/config"
	"github.com/me/mandelzoom/internal/logging"
	"github.com/me/mandelzoom/internal/store"
)

// Version is reported by --version.
const Version = "0.1.0"

var (
	flagConfig    string
	flagDebug     bool
	flagLogLevel  string
	flagLogFormat string

	logger *slog.Logger
)

// NewRootCmd creates the root cobra command for the mandelzoom CLI.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "mandelzoom",
		Short:   "Parallel Mandelbrot zoom renderer",
		Long:    "mandelzoom renders a Mandelbrot zoom sequence, splitting the frames into jobs and running them on a chosen scheduler.",
		Version: Version,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if flagDebug {
				flagLogLevel = "debug"
			}
			logger = logging.NewLoggerWithWriter(logging.ParseLevel(flagLogLevel), flagLogFormat, cmd.ErrOrStderr())
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "YAML render config (flags override it)")
	root.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&flagLogFormat, "log-format", "text", "Log format (text, json)")

	root.AddCommand(
		newRenderCmd(),
		newFrameCmd(),
		newBenchCmd(),
		newServeCmd(),
		newRunsCmd(),
	)

	return root
}

// loadConfig returns the --config file over the defaults, or the defaults.
func loadConfig() (config.RenderConfig, error) {
	if flagConfig == "" {
		return config.DefaultRenderConfig(), nil
	}
	return config.Load(flagConfig)
}

// openStore opens and migrates the run history at path.
func openStore(ctx context.Context, path string) (*store.SQLiteStore, error) {
	st, err := store.NewSQLiteStore(path, logger)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	logger.Debug("database ready", "path", path)
	return st, nil
}

// signalContext cancels on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
