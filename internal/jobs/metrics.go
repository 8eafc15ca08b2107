package jobmetrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors for background jobs.
type Metrics struct {
	runs     *prometheus.CounterVec
	failures *prometheus.CounterVec
	duration *prometheus.HistogramVec
	rateGaps *prometheus.CounterVec
	closeout *prometheus.CounterVec
	pruned   prometheus.Counter
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

// AddRateGaps increments the rate gap counter of a business by the number of currencies
// found without a usable rate.
func (m *Metrics) AddRateGaps(mode string, businessID int64, count int) {
	if m == nil || count <= 0 {
		return
	}
	business := "0"
	if businessID > 0 {
		business = formatInt(businessID)
	}
	m.rateGaps.WithLabelValues(mode, business).Add(float64(count))
}

// ObserveCloseout counts a built close-out summary by whether its revenue could be computed.
func (m *Metrics) ObserveCloseout(revenueAvailable bool) {
	if m == nil {
		return
	}
	label := "available"
	if !revenueAvailable {
		label = "unavailable"
	}
	m.closeout.WithLabelValues(label).Inc()
}

// AddPrunedKeys counts idempotency keys removed by the cleanup job.
func (m *Metrics) AddPrunedKeys(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.pruned.Add(float64(n))
}

func formatInt(v int64) string {
	return strconv.FormatInt(v, 10)
}

func buildMetrics(registerer prometheus.Registerer) *Metrics {
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "backoffice_jobs_total",
		Help: "Total job executions partitioned by job name and status.",
	}, []string{"job", "status"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "backoffice_jobs_failures_total",
		Help: "Total failures observed for background jobs.",
	}, []string{"job"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "backoffice_job_duration_seconds",
		Help:    "Duration in seconds of background job executions.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
	rateGaps := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "backoffice_fx_rate_gaps_total",
		Help: "Currencies found without a usable exchange rate, by rate mode and business.",
	}, []string{"mode", "business"})
	closeout := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "backoffice_cycle_closeouts_total",
		Help: "Close-out summaries built for closed cycles, by revenue availability.",
	}, []string{"revenue"})
	pruned := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "backoffice_idempotency_keys_pruned_total",
		Help: "Idempotency keys removed after their retention window.",
	})
	registerer.MustRegister(runs, failures, duration, rateGaps, closeout, pruned)
	return &Metrics{
		runs:     runs,
		failures: failures,
		duration: duration,
		rateGaps: rateGaps,
		closeout: closeout,
		pruned:   pruned,
	}
}
