package scheduler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsPrefix = "mandelzoom_scheduler_"

// Metrics exports scheduler counters to Prometheus. A nil *Metrics is a
// valid no-op.
type Metrics struct {
	runs        *prometheus.CounterVec
	jobs        *prometheus.CounterVec
	runDuration *prometheus.HistogramVec
	lastRunJobs *prometheus.GaugeVec
}

// NewMetrics registers the scheduler metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		runs: f.NewCounterVec(prometheus.CounterOpts{
			Name: metricsPrefix + "runs_total",
			Help: "Number of scheduler runs by strategy and outcome",
		}, []string{"strategy", "outcome"}),
		jobs: f.NewCounterVec(prometheus.CounterOpts{
			Name: metricsPrefix + "jobs_executed_total",
			Help: "Number of jobs executed by strategy",
		}, []string{"strategy"}),
		runDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    metricsPrefix + "run_duration_seconds",
			Help:    "Wall time of a scheduler run",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"strategy"}),
		lastRunJobs: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: metricsPrefix + "last_run_jobs",
			Help: "Job count of the most recent run",
		}, []string{"strategy"}),
	}
}

func (m *Metrics) observe(stats RunStats) {
	if m == nil {
		return
	}
	strategy := stats.Strategy.String()
	outcome := "success"
	if stats.Failed {
		outcome = "failed"
	}
	m.runs.WithLabelValues(strategy, outcome).Inc()
	m.jobs.WithLabelValues(strategy).Add(float64(stats.Executed))
	m.runDuration.WithLabelValues(strategy).Observe(stats.Duration.Seconds())
	m.lastRunJobs.WithLabelValues(strategy).Set(float64(stats.Jobs))
}
