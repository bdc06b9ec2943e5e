package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CronJobMetrics records outcomes of scheduled jobs.
type CronJobMetrics struct {
	duration *prometheus.HistogramVec
	runs     *prometheus.CounterVec
}

// NewCronJobMetrics registers the cron job metrics on the provided registerer.
func NewCronJobMetrics(reg prometheus.Registerer) *CronJobMetrics {
	if reg == nil {
		return &CronJobMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "job_duration_seconds",
		Help:      "Duration of cron jobs in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"job"})
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "job_runs_total",
		Help:      "Cron job executions by outcome.",
	}, []string{"job", "outcome"})
	reg.MustRegister(duration, runs)
	return &CronJobMetrics{duration: duration, runs: runs}
}

// Observe records one execution of the named job.
func (c *CronJobMetrics) Observe(job string, took time.Duration, err error) {
	if c == nil || c.duration == nil {
		return
	}
	job = normalizeLabel(job)
	c.duration.WithLabelValues(job).Observe(took.Seconds())
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	c.runs.WithLabelValues(job, outcome).Inc()
}

func normalizeLabel(job string) string {
	if job == "" {
		return "unknown"
	}
	return job
}
