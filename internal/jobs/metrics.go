package jobmetrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors for background jobs.
type Metrics struct {
	runs      *prometheus.CounterVec
	failures  *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	syncItems *prometheus.CounterVec
	lastSync  *prometheus.GaugeVec
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
	job     string
	start   time.Time
}

// Track spawns a tracker for the given job name.
func (m *Metrics) Track(job string) *Tracker {
	if m == nil {
		return &Tracker{job: job, start: time.Now()}
	}
	return &Tracker{metrics: m, job: job, start: time.Now()}
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
	}
	t.metrics.runs.WithLabelValues(t.job, status).Inc()
	t.metrics.duration.WithLabelValues(t.job).Observe(time.Since(t.start).Seconds())
	return err
}

// AddSyncItems counts repriced and failed catalog items for a sync trigger.
func (m *Metrics) AddSyncItems(trigger string, updated, failed int) {
	if m == nil {
		return
	}
	if updated > 0 {
		m.syncItems.WithLabelValues(trigger, "updated").Add(float64(updated))
	}
	if failed > 0 {
		m.syncItems.WithLabelValues(trigger, "error").Add(float64(failed))
	}
	m.lastSync.WithLabelValues(trigger).SetToCurrentTime()
}

func buildMetrics(registerer prometheus.Registerer) *Metrics {
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pricing_jobs_total",
		Help: "Total job executions partitioned by job name and status.",
	}, []string{"job", "status"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pricing_jobs_failures_total",
		Help: "Total failures observed for background jobs.",
	}, []string{"job"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pricing_job_duration_seconds",
		Help:    "Duration in seconds of background job executions.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
	syncItems := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pricing_sync_items_total",
		Help: "Catalog items processed by price syncs grouped by trigger and outcome.",
	}, []string{"trigger", "outcome"})
	lastSync := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "pricing_sync_last_completed_timestamp_seconds",
		Help: "Unix time of the last completed price sync per trigger.",
	}, []string{"trigger"})
	registerer.MustRegister(runs, failures, duration, syncItems, lastSync)
	return &Metrics{runs: runs, failures: failures, duration: duration, syncItems: syncItems, lastSync: lastSync}
}
