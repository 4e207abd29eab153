// Package scheduler runs every job of a plan exactly once under one of
// several concurrency strategies and blocks until all of them finished.
package scheduler

import (
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/me/mandelzoom/internal/logging"
)

// Plan is the work a scheduler drives: JobCount jobs addressed by index.
// Execute must be safe to call concurrently for distinct indices.
type Plan interface {
	JobCount() int
	Execute(index int) error
}

// Options configures a Scheduler.
type Options struct {
	// Workers bounds concurrency for every strategy but Sequential.
	// Default: runtime.NumCPU()
	Workers int

	// Logger receives run start/finish at debug level and job failures at
	// error level. Default: discard.
	Logger *slog.Logger

	// Metrics records per-run counters. May be nil.
	Metrics *Metrics
}

// DefaultOptions returns the default scheduler options.
func DefaultOptions() Options {
	return Options{Workers: runtime.NumCPU()}
}

// RunStats summarises the most recent run.
type RunStats struct {
	Strategy Strategy      `json:"strategy"`
	Jobs     int           `json:"jobs"`
	Executed int           `json:"executed"`
	Workers  int           `json:"workers"`
	Duration time.Duration `json:"duration_ns"`
	Failed   bool          `json:"failed"`
}

// Scheduler executes plans. A Scheduler may be reused; concurrent Run calls
// are allowed and share nothing but the stats slot.
type Scheduler struct {
	strategy Strategy
	workers  int
	logger   *slog.Logger
	metrics  *Metrics

	mu   sync.Mutex
	last RunStats
}

// New creates a scheduler for the given strategy.
func New(strategy Strategy, opts Options) (*Scheduler, error) {
	if _, ok := strategyNames[strategy]; !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownStrategy, int(strategy))
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	return &Scheduler{
		strategy: strategy,
		workers:  opts.Workers,
		logger:   logging.Component(opts.Logger, "scheduler").With("strategy", strategy.String()),
		metrics:  opts.Metrics,
	}, nil
}

// Strategy returns the scheduler's strategy.
func (s *Scheduler) Strategy() Strategy { return s.strategy }

// Workers returns the configured concurrency bound.
func (s *Scheduler) Workers() int { return s.workers }

// Stats returns the stats of the most recently finished run.
func (s *Scheduler) Stats() RunStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// Run executes every job of plan exactly once and returns after all of them
// have finished. On the first job failure no further jobs are started,
// jobs already running are allowed to finish, and the failure is returned
// as a *JobError. Cells written before the failure are left in place.
func (s *Scheduler) Run(plan Plan) error {
	n := plan.JobCount()
	if n < 0 {
		panic(fmt.Sprintf("scheduler: negative job count %d", n))
	}

	r := &run{plan: plan, n: n}
	workers := s.workersFor(n)

	s.logger.Debug("run started", "jobs", n, "workers", workers)
	start := time.Now()

	switch s.strategy {
	case Sequential:
		r.sequential()
	case Threads:
		r.threads(workers)
	case Pool:
		r.pool(workers)
	case Parallel:
		r.parallel(workers)
	case Task:
		r.task(workers)
	}

	stats := RunStats{
		Strategy: s.strategy,
		Jobs:     n,
		Executed: int(r.executed.Load()),
		Workers:  workers,
		Duration: time.Since(start),
		Failed:   r.err != nil,
	}
	s.mu.Lock()
	s.last = stats
	s.mu.Unlock()
	s.metrics.observe(stats)

	if r.err != nil {
		s.logger.Error("job failed", "index", r.err.Index, "error", r.err.Err,
			"executed", stats.Executed, "jobs", n)
		return r.err
	}

	s.logger.Debug("run finished", "jobs", n, "duration", stats.Duration)
	return nil
}

func (s *Scheduler) workersFor(n int) int {
	if s.strategy == Sequential {
		return 1
	}
	w := s.workers
	if w > n {
		w = n
	}
	if w < 1 {
		w = 1
	}
	return w
}
