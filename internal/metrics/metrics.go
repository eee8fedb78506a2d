package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for backlog runs.
// Every recording method is safe to call on a nil *Metrics.
type Metrics struct {
	// Schema resolution
	SchemaLookups  *prometheus.CounterVec
	SchemaDuration *prometheus.HistogramVec
	SchemaErrors   *prometheus.CounterVec

	// Issue creation
	IssuesCreated       *prometheus.CounterVec
	IssueCreateDuration *prometheus.HistogramVec
	IssueCreateErrors   *prometheus.CounterVec
	MappingErrors       *prometheus.CounterVec

	// Whole runs
	Runs        *prometheus.CounterVec
	RunDuration *prometheus.HistogramVec
	PlanNodes   *prometheus.HistogramVec

	// Tracker transport
	TrackerRequests *prometheus.CounterVec
	TrackerLatency  *prometheus.HistogramVec

	// Content generation
	GeneratorCalls   *prometheus.CounterVec
	GeneratorLatency *prometheus.HistogramVec
}

// NewMetrics creates a new Metrics instance with all metrics registered
func NewMetrics(registry prometheus.Registerer) *Metrics {
	factory := promauto.With(registry)

	return &Metrics{
		SchemaLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backlog_schema_lookups_total",
				Help: "Field schema resolutions by cache result",
			},
			[]string{"issue_type", "cache"},
		),
		SchemaDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "backlog_schema_resolve_duration_seconds",
				Help:    "Time spent resolving a field schema on a cache miss",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"issue_type"},
		),
		SchemaErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backlog_schema_errors_total",
				Help: "Field schema resolution failures",
			},
			[]string{"issue_type", "error_code"},
		),

		IssuesCreated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backlog_issues_created_total",
				Help: "Issues created in the tracker",
			},
			[]string{"kind"},
		),
		IssueCreateDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "backlog_issue_create_duration_seconds",
				Help:    "Latency of a single issue creation call",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"kind"},
		),
		IssueCreateErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backlog_issue_create_errors_total",
				Help: "Issue creation failures",
			},
			[]string{"kind", "error_code"},
		),
		MappingErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backlog_mapping_errors_total",
				Help: "Field mapping failures",
			},
			[]string{"kind", "error_code"},
		),

		Runs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backlog_runs_total",
				Help: "Plan materialization runs by outcome",
			},
			[]string{"outcome"},
		),
		RunDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "backlog_run_duration_seconds",
				Help:    "Wall time of a plan materialization run",
				Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
			},
			[]string{"outcome"},
		),
		PlanNodes: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "backlog_plan_nodes",
				Help:    "Number of nodes per plan by kind",
				Buckets: []float64{1, 2, 5, 10, 20, 50, 100, 200},
			},
			[]string{"kind"},
		),

		TrackerRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backlog_tracker_requests_total",
				Help: "HTTP requests sent to the issue tracker",
			},
			[]string{"method", "status"},
		),
		TrackerLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "backlog_tracker_latency_seconds",
				Help:    "Issue tracker request latency including retries",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"method"},
		),

		GeneratorCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backlog_generator_calls_total",
				Help: "Content generator calls",
			},
			[]string{"provider", "model", "success"},
		),
		GeneratorLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "backlog_generator_latency_seconds",
				Help:    "Content generator latency",
				Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
			},
			[]string{"provider", "model"},
		),
	}
}

// RecordSchemaLookup records a resolver call and whether the cache served it.
func (m *Metrics) RecordSchemaLookup(issueType string, hit bool) {
	if m == nil {
		return
	}
	cache := "miss"
	if hit {
		cache = "hit"
	}
	m.SchemaLookups.WithLabelValues(issueType, cache).Inc()
}

// RecordSchemaResolved records the duration of a cold resolution.
func (m *Metrics) RecordSchemaResolved(issueType string, d time.Duration) {
	if m == nil {
		return
	}
	m.SchemaDuration.WithLabelValues(issueType).Observe(d.Seconds())
}

// RecordSchemaError records a failed resolution.
func (m *Metrics) RecordSchemaError(issueType, code string) {
	if m == nil {
		return
	}
	m.SchemaErrors.WithLabelValues(issueType, code).Inc()
}

// RecordIssueCreated records a successful creation call.
func (m *Metrics) RecordIssueCreated(kind string, d time.Duration) {
	if m == nil {
		return
	}
	m.IssuesCreated.WithLabelValues(kind).Inc()
	m.IssueCreateDuration.WithLabelValues(kind).Observe(d.Seconds())
}

// RecordIssueError records a failed creation call.
func (m *Metrics) RecordIssueError(kind, code string) {
	if m == nil {
		return
	}
	m.IssueCreateErrors.WithLabelValues(kind, code).Inc()
}

// RecordMappingError records a mapper rejection.
func (m *Metrics) RecordMappingError(kind, code string) {
	if m == nil {
		return
	}
	m.MappingErrors.WithLabelValues(kind, code).Inc()
}

// RecordRun records the outcome of a whole run.
func (m *Metrics) RecordRun(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.Runs.WithLabelValues(outcome).Inc()
	m.RunDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

// RecordPlanShape records how many nodes of each kind a plan holds.
func (m *Metrics) RecordPlanShape(counts map[string]int) {
	if m == nil {
		return
	}
	for kind, n := range counts {
		m.PlanNodes.WithLabelValues(kind).Observe(float64(n))
	}
}

// RecordTrackerRequest records one HTTP exchange with the tracker.
// status is 0 when no response was received.
func (m *Metrics) RecordTrackerRequest(method string, status int, d time.Duration) {
	if m == nil {
		return
	}
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	m.TrackerRequests.WithLabelValues(method, label).Inc()
	m.TrackerLatency.WithLabelValues(method).Observe(d.Seconds())
}

// RecordGeneratorCall records one content generation call.
func (m *Metrics) RecordGeneratorCall(provider, model string, success bool, d time.Duration) {
	if m == nil {
		return
	}
	m.GeneratorCalls.WithLabelValues(provider, model, strconv.FormatBool(success)).Inc()
	m.GeneratorLatency.WithLabelValues(provider, model).Observe(d.Seconds())
}
