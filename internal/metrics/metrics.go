package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	ResultSuccess  = "success"
	ResultFailure  = "failure"
	ResultNotReady = "not_ready"
)

// Recorder is what the services report to.
type Recorder interface {
	RecordLaunch(success bool)
	RecordSubmission(success bool)
	RecordGradeUpdate(result string)
	RecordOutcome(result string, duration time.Duration)
}

var _ Recorder = (*Metrics)(nil)

// Metrics holds all Prometheus metrics for the bridge
type Metrics struct {
	LaunchesTotal      *prometheus.CounterVec
	SubmissionsTotal   *prometheus.CounterVec
	GradeUpdatesTotal  *prometheus.CounterVec
	OutcomesTotal      *prometheus.CounterVec
	OutcomeDuration    prometheus.Histogram
	HTTPRequestsTotal  *prometheus.CounterVec
	HTTPRequestLatency *prometheus.HistogramVec
}

var (
	defaultMetrics *Metrics
	once           sync.Once
)

// Init returns Prometheus metrics when enabled and a no-op recorder otherwise.
// Registration happens at most once per process.
func Init(enabled bool) Recorder {
	if !enabled {
		return NewNoopMetrics()
	}
	once.Do(func() {
		defaultMetrics = initMetrics()
	})
	return defaultMetrics
}

func initMetrics() *Metrics {
	return &Metrics{
		LaunchesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gradebridge_lti_launches_total",
				Help: "Total number of LTI launches registered",
			},
			[]string{"result"},
		),
		SubmissionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gradebridge_submissions_total",
				Help: "Total number of submissions recorded",
			},
			[]string{"result"},
		),
		GradeUpdatesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gradebridge_grade_updates_total",
				Help: "Per-user grade updates by result",
			},
			[]string{"result"},
		),
		OutcomesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gradebridge_outcomes_total",
				Help: "Outcome dispatch attempts per user and assignment",
			},
			[]string{"result"},
		),
		OutcomeDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "gradebridge_outcome_duration_seconds",
				Help:    "Time taken to send outcomes for one user and assignment",
				Buckets: prometheus.DefBuckets,
			},
		),
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gradebridge_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gradebridge_http_request_duration_seconds",
				Help:    "HTTP request latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}
}

func result(success bool) string {
	if success {
		return ResultSuccess
	}
	return ResultFailure
}

func (m *Metrics) RecordLaunch(success bool) {
	m.LaunchesTotal.WithLabelValues(result(success)).Inc()
}

func (m *Metrics) RecordSubmission(success bool) {
	m.SubmissionsTotal.WithLabelValues(result(success)).Inc()
}

func (m *Metrics) RecordGradeUpdate(result string) {
	m.GradeUpdatesTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) RecordOutcome(result string, duration time.Duration) {
	m.OutcomesTotal.WithLabelValues(result).Inc()
	m.OutcomeDuration.Observe(duration.Seconds())
}
