package render

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"text/tabwriter"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/me/mandelzoom/internal/logging"
	"github.com/me/mandelzoom/internal/planner"
	"github.com/me/mandelzoom/internal/scheduler"
	"github.com/me/mandelzoom/pkg/fractal"
)

// Benchmark runs newPlan() on sched repeat times and returns the wall time
// of each Scheduler.Run. A fresh plan is built per repetition so every run
// computes the same zeroed workload.
func Benchmark(sched *scheduler.Scheduler, newPlan func() (scheduler.Plan, error), repeat int) ([]time.Duration, error) {
	if repeat <= 0 {
		repeat = 1
	}
	times := make([]time.Duration, 0, repeat)
	for i := 0; i < repeat; i++ {
		plan, err := newPlan()
		if err != nil {
			return times, err
		}
		if err := sched.Run(plan); err != nil {
			return times, err
		}
		times = append(times, sched.Stats().Duration)
	}
	return times, nil
}

// MatrixOptions selects the planner/scheduler pairs to compare.
type MatrixOptions struct {
	Frames     fractal.FrameOptions
	Planners   []planner.Granularity // default: all
	Strategies []scheduler.Strategy  // default: all
	Workers    int                   // 0 = runtime.NumCPU()
	Repeat     int                   // default: 1

	Logger  *slog.Logger
	Metrics *scheduler.Metrics
}

// BenchEntry is one planner/scheduler pair of a Matrix.
type BenchEntry struct {
	Planner   planner.Granularity `json:"planner" yaml:"planner"`
	Scheduler scheduler.Strategy  `json:"scheduler" yaml:"scheduler"`
	Workers   int                 `json:"workers" yaml:"workers"`
	Jobs      int                 `json:"jobs" yaml:"jobs"`
	Best      time.Duration       `json:"best_ns" yaml:"best"`
	Mean      time.Duration       `json:"mean_ns" yaml:"mean"`
	// Match is true when the computed frames equal the sequential
	// monolithic baseline cell for cell.
	Match bool `json:"match" yaml:"match"`
}

// BenchReport is the outcome of Matrix.
type BenchReport struct {
	Frames        int           `json:"frames" yaml:"frames"`
	Width         int           `json:"width" yaml:"width"`
	Height        int           `json:"height" yaml:"height"`
	MaxIterations int           `json:"max_iterations" yaml:"max_iterations"`
	Baseline      time.Duration `json:"baseline_ns" yaml:"baseline"`
	Entries       []BenchEntry  `json:"entries" yaml:"entries"`
}

// Mismatches returns the entries whose frames differ from the baseline.
func (r *BenchReport) Mismatches() []BenchEntry {
	var out []BenchEntry
	for _, e := range r.Entries {
		if !e.Match {
			out = append(out, e)
		}
	}
	return out
}

// Matrix renders the workload once sequentially as a single job, then under
// every requested planner/scheduler pair, timing each and comparing its
// frames with the baseline.
func Matrix(ctx context.Context, opts MatrixOptions) (*BenchReport, error) {
	if err := opts.Frames.Validate(); err != nil {
		return nil, err
	}
	if len(opts.Planners) == 0 {
		opts.Planners = planner.Granularities()
	}
	if len(opts.Strategies) == 0 {
		opts.Strategies = scheduler.Strategies()
	}
	logger := logging.Component(opts.Logger, "bench")

	baseline, err := fractal.Frames(opts.Frames)
	if err != nil {
		return nil, err
	}
	report := &BenchReport{
		Frames:        len(baseline),
		Width:         opts.Frames.Width,
		Height:        opts.Frames.Height,
		MaxIterations: opts.Frames.MaxIterations,
	}

	seq, err := scheduler.New(scheduler.Sequential, scheduler.Options{Metrics: opts.Metrics})
	if err != nil {
		return nil, err
	}
	mono, err := planner.New(planner.Monolith, baseline)
	if err != nil {
		return nil, err
	}
	if err := seq.Run(mono); err != nil {
		return nil, fmt.Errorf("baseline: %w", err)
	}
	report.Baseline = seq.Stats().Duration
	logger.Debug("baseline computed", "frames", len(baseline), "duration", report.Baseline)

	for _, g := range opts.Planners {
		for _, s := range opts.Strategies {
			if err := ctx.Err(); err != nil {
				return report, err
			}
			entry, err := benchPair(g, s, baseline, opts)
			if err != nil {
				return report, fmt.Errorf("%s/%s: %w", g, s, err)
			}
			logger.Debug("pair measured", "planner", g, "scheduler", s,
				"best", entry.Best, "match", entry.Match)
			report.Entries = append(report.Entries, entry)
		}
	}
	return report, nil
}

func benchPair(g planner.Granularity, s scheduler.Strategy, baseline []*fractal.Grid, opts MatrixOptions) (BenchEntry, error) {
	sched, err := scheduler.New(s, scheduler.Options{
		Workers: opts.Workers,
		Logger:  opts.Logger,
		Metrics: opts.Metrics,
	})
	if err != nil {
		return BenchEntry{}, err
	}

	var last *planner.Planner
	times, err := Benchmark(sched, func() (scheduler.Plan, error) {
		grids, err := fractal.Frames(opts.Frames)
		if err != nil {
			return nil, err
		}
		last, err = planner.New(g, grids)
		return last, err
	}, opts.Repeat)
	if err != nil {
		return BenchEntry{}, err
	}

	entry := BenchEntry{
		Planner:   g,
		Scheduler: s,
		Workers:   sched.Stats().Workers,
		Jobs:      last.JobCount(),
		Best:      times[0],
		Match:     true,
	}
	var total time.Duration
	for _, d := range times {
		total += d
		entry.Best = min(entry.Best, d)
	}
	entry.Mean = total / time.Duration(len(times))
	for k, grid := range last.Workload() {
		if !grid.Equal(baseline[k]) {
			entry.Match = false
			break
		}
	}
	return entry, nil
}

// WriteTable prints the report as an aligned text table.
func (r *BenchReport) WriteTable(w io.Writer) error {
	fmt.Fprintf(w, "%d frames of %dx%d, %d max iterations; sequential monolith baseline %s\n\n",
		r.Frames, r.Width, r.Height, r.MaxIterations, FormatDuration(r.Baseline))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PLANNER\tSCHEDULER\tWORKERS\tJOBS\tBEST\tMEAN\tSPEEDUP\tMATCH")
	for _, e := range r.Entries {
		speedup := "-"
		if e.Best > 0 {
			speedup = fmt.Sprintf("%.2fx", float64(r.Baseline)/float64(e.Best))
		}
		match := "ok"
		if !e.Match {
			match = "MISMATCH"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\t%s\t%s\t%s\n",
			e.Planner, e.Scheduler, e.Workers, e.Jobs,
			FormatDuration(e.Best), FormatDuration(e.Mean), speedup, match)
	}
	return tw.Flush()
}

// WriteYAML encodes the report as YAML.
func (r *BenchReport) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return err
	}
	return enc.Close()
}

// WriteJSON encodes the report as indented JSON.
func (r *BenchReport) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// Write encodes the report in format: "table", "yaml" or "json".
func (r *BenchReport) Write(w io.Writer, format string) error {
	switch strings.ToLower(format) {
	case "", "table":
		return r.WriteTable(w)
	case "yaml":
		return r.WriteYAML(w)
	case "json":
		return r.WriteJSON(w)
	}
	return fmt.Errorf("unknown report format %q (want table, yaml or json)", format)
}
