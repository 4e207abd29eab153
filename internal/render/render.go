// Package render drives a whole zoom: it builds the frames, plans and
// schedules the jobs, exports the result and records the run.
package render

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/me/mandelzoom/internal/config"
	"github.com/me/mandelzoom/internal/export"
	"github.com/me/mandelzoom/internal/logging"
	"github.com/me/mandelzoom/internal/planner"
	"github.com/me/mandelzoom/internal/scheduler"
	"github.com/me/mandelzoom/internal/store"
	"github.com/me/mandelzoom/pkg/fractal"
	"github.com/me/mandelzoom/pkg/model"
)

// Options configures a Renderer. Every field is optional.
type Options struct {
	Logger  *slog.Logger
	Metrics *scheduler.Metrics
	// Store records each run. Nil disables history.
	Store store.Store
	Sinks export.Sinks
	// Now is the clock used for run timestamps. Default: time.Now.
	Now func() time.Time
}

// Renderer runs renders of a fixed configuration.
type Renderer struct {
	cfg     config.RenderConfig
	format  export.Format
	palette export.Palette

	base    *slog.Logger // passed on to the scheduler
	logger  *slog.Logger
	metrics *scheduler.Metrics
	store   store.Store
	sinks   export.Sinks
	now     func() time.Time
}

// Result describes a finished render.
type Result struct {
	Run         *model.Run
	Stats       scheduler.RunStats
	Bytes       int64
	Setup       time.Duration // building frames and the plan
	Compute     time.Duration // scheduler wall time
	Export      time.Duration // encoding and writing the output
	TotalWall   time.Duration
	Destination string
}

// New validates cfg and returns a Renderer for it.
func New(cfg config.RenderConfig, opts Options) (*Renderer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	format, err := export.ParseFormat(cfg.Format)
	if err != nil {
		return nil, err
	}
	palette, err := export.ParsePalette(cfg.Palette)
	if err != nil {
		return nil, err
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Renderer{
		cfg:     cfg,
		format:  format,
		palette: palette,
		base:    opts.Logger,
		logger:  logging.Component(opts.Logger, "render"),
		metrics: opts.Metrics,
		store:   opts.Store,
		sinks:   opts.Sinks,
		now:     now,
	}, nil
}

// Config returns the validated configuration.
func (r *Renderer) Config() config.RenderConfig { return r.cfg }

// Render computes every frame and writes them to the configured output.
// The run is recorded as PENDING, RUNNING and finally COMPLETED or FAILED.
// Cancelling ctx before the scheduler starts aborts the render; once the
// jobs are running they complete, and ctx then only affects the export.
func (r *Renderer) Render(ctx context.Context) (*Result, error) {
	start := r.now()
	run := &model.Run{
		ID:            "run_" + uuid.NewString(),
		State:         model.RunStatePending,
		Planner:       r.cfg.Planner.String(),
		Scheduler:     r.cfg.Scheduler.String(),
		Workers:       r.cfg.Workers,
		Frames:        r.cfg.FrameCount(),
		Width:         r.cfg.Width,
		Height:        r.cfg.Height,
		MaxIterations: r.cfg.MaxIterations,
		Output:        r.cfg.Output,
		Format:        r.format.String(),
		Palette:       r.cfg.Palette,
		CreatedAt:     start.UTC(),
	}
	logger := r.logger.With("run_id", run.ID)
	res := &Result{Run: run, Destination: r.cfg.Output}

	if err := r.record(ctx, run, true); err != nil {
		return nil, err
	}

	logger.Info("render started",
		"frames", run.Frames, "width", run.Width, "height", run.Height,
		"planner", run.Planner, "scheduler", run.Scheduler)

	grids, plan, sched, err := r.prepare()
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		return res, r.fail(ctx, logger, run, err)
	}
	res.Setup = r.now().Sub(start)

	run.State = model.RunStateRunning
	run.Workers = sched.Workers()
	run.Jobs = plan.JobCount()
	if err := r.record(ctx, run, false); err != nil {
		return res, err
	}

	runErr := sched.Run(plan)
	res.Stats = sched.Stats()
	res.Compute = res.Stats.Duration
	run.Executed = res.Stats.Executed
	run.Duration = res.Stats.Duration
	if runErr != nil {
		return res, r.fail(ctx, logger, run, fmt.Errorf("compute: %w", runErr))
	}
	logger.Debug("frames computed", "jobs", run.Jobs, "duration", res.Compute)

	exportStart := r.now()
	n, err := r.write(ctx, grids)
	res.Bytes = n
	res.Export = r.now().Sub(exportStart)
	if err != nil {
		return res, r.fail(ctx, logger, run, fmt.Errorf("export: %w", err))
	}

	done := r.now().UTC()
	run.State = model.RunStateCompleted
	run.CompletedAt = &done
	res.TotalWall = done.Sub(start)
	if err := r.record(ctx, run, false); err != nil {
		return res, err
	}

	logger.Info("render finished",
		"jobs", run.Jobs, "compute", res.Compute, "export", res.Export,
		"bytes", n, "output", r.cfg.Output)
	return res, nil
}

func (r *Renderer) prepare() ([]*fractal.Grid, *planner.Planner, *scheduler.Scheduler, error) {
	grids, err := fractal.Frames(r.cfg.FrameOptions())
	if err != nil {
		return nil, nil, nil, err
	}
	plan, err := planner.New(r.cfg.Planner, grids)
	if err != nil {
		return nil, nil, nil, err
	}
	sched, err := scheduler.New(r.cfg.Scheduler, scheduler.Options{
		Workers: r.cfg.Workers,
		Logger:  r.base,
		Metrics: r.metrics,
	})
	if err != nil {
		return nil, nil, nil, err
	}
	return grids, plan, sched, nil
}

func (r *Renderer) write(ctx context.Context, grids []*fractal.Grid) (int64, error) {
	w, err := r.sinks.Open(ctx, r.cfg.Output)
	if err != nil {
		return 0, err
	}
	cw := &countingWriter{w: w}
	if err := export.Write(cw, r.format, grids, r.palette); err != nil {
		w.Close()
		return cw.n, err
	}
	return cw.n, w.Close()
}

// fail marks the run FAILED and returns cause, joined with any error from
// recording the failure.
func (r *Renderer) fail(ctx context.Context, logger *slog.Logger, run *model.Run, cause error) error {
	done := r.now().UTC()
	run.State = model.RunStateFailed
	run.Error = cause.Error()
	run.CompletedAt = &done
	logger.Error("render failed", "error", cause, "executed", run.Executed, "jobs", run.Jobs)

	if err := r.record(ctx, run, false); err != nil {
		return errors.Join(cause, err)
	}
	return cause
}

// record writes run to the history. History writes ignore cancellation so
// an aborted render is still recorded as FAILED.
func (r *Renderer) record(ctx context.Context, run *model.Run, create bool) error {
	if r.store == nil {
		return nil
	}
	ctx = context.WithoutCancel(ctx)
	var err error
	if create {
		err = r.store.CreateRun(ctx, run)
	} else {
		err = r.store.UpdateRun(ctx, run)
	}
	if err != nil {
		return fmt.Errorf("record run %s: %w", run.ID, err)
	}
	return nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
