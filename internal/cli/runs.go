package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/me/mandelzoom/internal/render"
	"github.com/me/mandelzoom/pkg/model"
)

func newRunsCmd() *cobra.Command {
	var (
		zf      zoomFlags
		state   string
		limit   int
		offset  int
		asJSON  bool
		showRun string
	)

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded renders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := zf.apply(cmd, &cfg); err != nil {
				return err
			}
			if cfg.DBPath == "" {
				return errors.New("no run history: set --db or db_path in the config file")
			}

			opts := model.ListOptions{Limit: limit, Offset: offset}
			if state != "" {
				st, ok := model.ParseRunState(strings.ToUpper(state))
				if !ok {
					return fmt.Errorf("unknown state %q", state)
				}
				opts.State = st
			}
			opts.Clamp()

			ctx := cmd.Context()
			st, err := openStore(ctx, cfg.DBPath)
			if err != nil {
				return err
			}
			defer st.Close()

			out := cmd.OutOrStdout()
			if showRun != "" {
				run, err := st.GetRun(ctx, showRun)
				if err != nil {
					return err
				}
				if run == nil {
					return fmt.Errorf("run %s not found", showRun)
				}
				return writeJSON(out, run)
			}

			runs, total, err := st.ListRuns(ctx, opts)
			if err != nil {
				return fmt.Errorf("list runs: %w", err)
			}
			if asJSON {
				return writeJSON(out, runs)
			}
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs found.")
				return nil
			}
			if err := writeRuns(out, runs); err != nil {
				return err
			}
			if opts.Offset+len(runs) < total {
				fmt.Fprintf(out, "\n(%d of %d shown)\n", len(runs), total)
			}
			return nil
		},
	}

	addDBFlag(cmd, &zf)
	cmd.Flags().StringVar(&state, "state", "", "Only runs in this state (pending, running, completed, failed)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Runs to show (max 100)")
	cmd.Flags().IntVar(&offset, "offset", 0, "Runs to skip")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the runs as JSON")
	cmd.Flags().StringVar(&showRun, "id", "", "Print one run as JSON")

	return cmd
}

func writeRuns(w io.Writer, runs []*model.Run) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATE\tPLANNER\tSCHEDULER\tFRAMES\tJOBS\tDURATION\tCREATED")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.State, r.Planner, r.Scheduler,
			humanize.Comma(int64(r.Frames)), humanize.Comma(int64(r.Jobs)),
			render.FormatDuration(r.Duration), humanize.Time(r.CreatedAt))
	}
	return tw.Flush()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
