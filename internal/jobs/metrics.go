// Package jobmetrics instruments background task handlers.
package jobmetrics

import (
	"errors"
	"sync"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
)

// Run outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	// OutcomeSkipped marks tasks dropped without retry, such as bad payloads.
	OutcomeSkipped = "skipped"
)

// Metrics exposes Prometheus collectors for background jobs.
type Metrics struct {
	runs     *prometheus.CounterVec
	items    *prometheus.CounterVec
	duration *prometheus.HistogramVec
	lag      *prometheus.HistogramVec
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// NewMetrics registers the job metrics against registerer. A nil registerer
// shares one set registered on the default registry.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		defaultOnce.Do(func() {
			defaultMetrics = buildMetrics(prometheus.DefaultRegisterer)
		})
		return defaultMetrics
	}
	return buildMetrics(registerer)
}

// Tracker instruments a single job run.
type Tracker struct {
	metrics *Metrics
	job     string
	start   time.Time
}

// Track starts a tracker for job.
func (m *Metrics) Track(job string) *Tracker {
	return &Tracker{metrics: m, job: job, start: time.Now()}
}

// Items counts the records a run touched: roles refreshed or sessions purged.
func (t *Tracker) Items(n int64) {
	if t == nil || t.metrics == nil || n <= 0 {
		return
	}
	t.metrics.items.WithLabelValues(t.job).Add(float64(n))
}

// Lag records how long after since the run happened, typically the time a
// staff action waited for its follow-up.
func (t *Tracker) Lag(since time.Time) {
	if t == nil || t.metrics == nil || since.IsZero() {
		return
	}
	t.metrics.lag.WithLabelValues(t.job).Observe(t.start.Sub(since).Seconds())
}

// End records the outcome and duration and returns err untouched.
func (t *Tracker) End(err error) error {
	if t == nil || t.metrics == nil || t.job == "" {
		return err
	}
	t.metrics.runs.WithLabelValues(t.job, Outcome(err)).Inc()
	t.metrics.duration.WithLabelValues(t.job).Observe(time.Since(t.start).Seconds())
	return err
}

// Outcome classifies a handler result.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, asynq.SkipRetry):
		return OutcomeSkipped
	default:
		return OutcomeFailure
	}
}

func buildMetrics(registerer prometheus.Registerer) *Metrics {
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "societyhub_jobs_total",
		Help: "Job executions by job name and outcome.",
	}, []string{"job", "outcome"})
	items := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "societyhub_job_items_total",
		Help: "Records touched by background jobs.",
	}, []string{"job"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "societyhub_job_duration_seconds",
		Help:    "Duration in seconds of background job executions.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
	lag := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "societyhub_job_lag_seconds",
		Help:    "Delay between the triggering action and the job run.",
		Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300},
	}, []string{"job"})
	registerer.MustRegister(runs, items, duration, lag)
	return &Metrics{runs: runs, items: items, duration: duration, lag: lag}
}
