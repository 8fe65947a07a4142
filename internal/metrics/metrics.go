package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics holds all Prometheus metric collectors for the huddle server.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics.
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPResponseSize    *prometheus.HistogramVec

	// Workflow metrics.
	ProjectOperationsTotal *prometheus.CounterVec
	JoinTransitionsTotal   *prometheus.CounterVec
	NotificationsTotal     *prometheus.CounterVec
	EventsPublishedTotal   *prometheus.CounterVec

	// Auth metrics.
	AuthFailuresTotal  *prometheus.CounterVec
	AuthSuccessesTotal *prometheus.CounterVec

	// Background jobs.
	SessionsPurgedTotal prometheus.Counter

	// Server lifecycle.
	ServerStartTime prometheus.Gauge
}

// New creates and registers all Prometheus metrics on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,

		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "huddle_http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "path_pattern", "status_code"}),

		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "huddle_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path_pattern"}),

		HTTPResponseSize: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "huddle_http_response_size_bytes",
			Help:    "HTTP response size in bytes.",
			Buckets: prometheus.ExponentialBuckets(100, 10, 6),
		}, []string{"method", "path_pattern"}),

		ProjectOperationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "huddle_project_operations_total",
			Help: "Total number of project workflow operations by outcome.",
		}, []string{"operation", "outcome"}),

		JoinTransitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "huddle_join_request_transitions_total",
			Help: "Total number of join requests entering each status.",
		}, []string{"status"}),

		NotificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "huddle_notifications_sent_total",
			Help: "Total number of workflow notifications sent.",
		}, []string{"kind"}),

		EventsPublishedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "huddle_events_published_total",
			Help: "Total number of activity events handed to the broker.",
		}, []string{"outcome"}),

		AuthFailuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "huddle_auth_failures_total",
			Help: "Total number of authentication failures.",
		}, []string{"auth_type"}),

		AuthSuccessesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "huddle_auth_successes_total",
			Help: "Total number of successful authentications.",
		}, []string{"auth_type"}),

		SessionsPurgedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "huddle_sessions_purged_total",
			Help: "Total number of expired sessions removed by the janitor.",
		}),

		ServerStartTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "huddle_server_start_time_seconds",
			Help: "Unix timestamp when the server started.",
		}),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPResponseSize,
		m.ProjectOperationsTotal,
		m.JoinTransitionsTotal,
		m.NotificationsTotal,
		m.EventsPublishedTotal,
		m.AuthFailuresTotal,
		m.AuthSuccessesTotal,
		m.SessionsPurgedTotal,
		m.ServerStartTime,
	)

	m.ServerStartTime.Set(float64(time.Now().Unix()))

	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return m
}

// Registry returns the private Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RegisterDBPoolCollector registers a custom DB pool stats collector.
func (m *Metrics) RegisterDBPoolCollector(statFunc DBPoolStatFunc) {
	m.registry.MustRegister(NewDBPoolCollector(statFunc))
}

// ObserveHTTPRequest records one served request under its route pattern.
func (m *Metrics) ObserveHTTPRequest(method, pattern string, status int, seconds float64, bytes int) {
	m.HTTPRequestsTotal.WithLabelValues(method, pattern, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, pattern).Observe(seconds)
	m.HTTPResponseSize.WithLabelValues(method, pattern).Observe(float64(bytes))
}

// IncProjectOperation counts a workflow operation by outcome.
func (m *Metrics) IncProjectOperation(op, outcome string) {
	m.ProjectOperationsTotal.WithLabelValues(op, outcome).Inc()
}

// IncJoinTransition counts a join request entering status.
func (m *Metrics) IncJoinTransition(status string) {
	m.JoinTransitionsTotal.WithLabelValues(status).Inc()
}

// IncNotification counts a notification of the given kind.
func (m *Metrics) IncNotification(kind string) {
	m.NotificationsTotal.WithLabelValues(kind).Inc()
}

// IncEventPublished counts an activity event publish attempt.
func (m *Metrics) IncEventPublished(outcome string) {
	m.EventsPublishedTotal.WithLabelValues(outcome).Inc()
}

// IncAuthFailure increments the auth failure counter for the given auth type.
func (m *Metrics) IncAuthFailure(authType string) {
	m.AuthFailuresTotal.WithLabelValues(authType).Inc()
}

// IncAuthSuccess increments the auth success counter for the given auth type.
func (m *Metrics) IncAuthSuccess(authType string) {
	m.AuthSuccessesTotal.WithLabelValues(authType).Inc()
}

// AddSessionsPurged adds n to the purged sessions counter.
func (m *Metrics) AddSessionsPurged(n int64) {
	m.SessionsPurgedTotal.Add(float64(n))
}
