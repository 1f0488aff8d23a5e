package jobmetrics

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors for background jobs.
type Metrics struct {
	runs     *prometheus.CounterVec
	failures *prometheus.CounterVec
	dead     *prometheus.CounterVec
	duration *prometheus.HistogramVec
	backlog  *prometheus.GaugeVec
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// NewMetrics registers the job metrics against the provided registerer. When the
// registerer is nil the default Prometheus registerer is used.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		defaultOnce.Do(func() {
			defaultMetrics = buildMetrics(prometheus.DefaultRegisterer)
		})
		return defaultMetrics
	}
	return buildMetrics(registerer)
}

// Tracker provides lifecycle instrumentation helpers for a single job run.
type Tracker struct {
	metrics *Metrics
	ctx     context.Context
	job     string
	start   time.Time
}

// Track starts timing one run of job. Inside an asynq handler ctx carries the
// retry state, which End uses to spot runs that will not be retried.
func (m *Metrics) Track(ctx context.Context, job string) *Tracker {
	return &Tracker{metrics: m, ctx: ctx, job: job, start: time.Now()}
}

// End finalises the tracker, recording duration, success/failure counts and
// returning the provided error untouched.
func (t *Tracker) End(err error) error {
	if t == nil || t.metrics == nil || t.job == "" {
		return err
	}
	status := "success"
	if err != nil {
		status = "failure"
		t.metrics.failures.WithLabelValues(t.job).Inc()
		if finalAttempt(t.ctx, err) {
			t.metrics.dead.WithLabelValues(t.job).Inc()
		}
	}
	t.metrics.runs.WithLabelValues(t.job, status).Inc()
	t.metrics.duration.WithLabelValues(t.job).Observe(time.Since(t.start).Seconds())
	return err
}

// finalAttempt reports whether asynq will give up on the task after err: the
// handler asked to skip retries, or the retry budget is spent.
func finalAttempt(ctx context.Context, err error) bool {
	if errors.Is(err, asynq.SkipRetry) {
		return true
	}
	if ctx == nil {
		return false
	}
	retried, ok := asynq.GetRetryCount(ctx)
	if !ok {
		return false
	}
	maxRetry, ok := asynq.GetMaxRetry(ctx)
	return ok && retried >= maxRetry
}

// SetBacklog records how many items of kind await an administrator.
func (m *Metrics) SetBacklog(kind string, count int) {
	if m == nil {
		return
	}
	m.backlog.WithLabelValues(kind).Set(float64(count))
}

func buildMetrics(registerer prometheus.Registerer) *Metrics {
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "akademi_jobs_total",
		Help: "Total job executions partitioned by job name and status.",
	}, []string{"job", "status"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "akademi_jobs_failures_total",
		Help: "Total failures observed for background jobs.",
	}, []string{"job"})
	dead := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "akademi_jobs_dead_total",
		Help: "Job runs that failed for the last time and were archived.",
	}, []string{"job"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "akademi_job_duration_seconds",
		Help:    "Duration in seconds of background job executions.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
	backlog := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "akademi_admin_backlog",
		Help: "Items waiting for an administrator, sampled by the digest job.",
	}, []string{"kind"})
	registerer.MustRegister(runs, failures, dead, duration, backlog)
	return &Metrics{runs: runs, failures: failures, dead: dead, duration: duration, backlog: backlog}
}
