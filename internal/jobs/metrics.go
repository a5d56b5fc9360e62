package jobmetrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors for background jobs.
type Metrics struct {
	runs      *prometheus.CounterVec
	failures  *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	employees *prometheus.CounterVec
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

// Run outcomes reported in the status label of nomina_jobs_total.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
	StatusBlocked = "blocked"
)

// End finalises the tracker, recording duration, success/failure counts and
// returning the provided error untouched.
func (t *Tracker) End(err error) error {
	if err != nil {
		t.finish(StatusFailure)
		return err
	}
	t.finish(StatusSuccess)
	return nil
}

// Blocked finalises a run that a precondition stopped before any work was
// attempted. It counts neither as success nor as failure.
func (t *Tracker) Blocked() {
	t.finish(StatusBlocked)
}

func (t *Tracker) finish(status string) {
	if t == nil || t.metrics == nil || t.job == "" {
		return
	}
	if status == StatusFailure {
		t.metrics.failures.WithLabelValues(t.job).Inc()
	}
	t.metrics.runs.WithLabelValues(t.job, status).Inc()
	t.metrics.duration.WithLabelValues(t.job).Observe(time.Since(t.start).Seconds())
}

// AddEmployeeErrors counts employees excluded from a run because their
// computation failed.
func (m *Metrics) AddEmployeeErrors(operation string, companyID int64, count int) {
	if m == nil || count <= 0 {
		return
	}
	company := "0"
	if companyID > 0 {
		company = formatInt(companyID)
	}
	m.employees.WithLabelValues(operation, company).Add(float64(count))
}

func formatInt(v int64) string {
	return strconv.FormatInt(v, 10)
}

func buildMetrics(registerer prometheus.Registerer) *Metrics {
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "nomina_jobs_total",
		Help: "Total job and liquidation runs partitioned by name and status.",
	}, []string{"job", "status"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "nomina_jobs_failures_total",
		Help: "Total failures observed for background jobs.",
	}, []string{"job"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "nomina_job_duration_seconds",
		Help:    "Duration in seconds of background job executions.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
	employees := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "nomina_payroll_employee_errors_total",
		Help: "Employees skipped by liquidation runs because their computation failed.",
	}, []string{"operation", "company"})
	registerer.MustRegister(runs, failures, duration, employees)
	return &Metrics{runs: runs, failures: failures, duration: duration, employees: employees}
}
