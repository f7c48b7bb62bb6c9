package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the prometheus collectors of the console. A nil *Metrics is a no-op.
type Metrics struct {
	registry         *prometheus.Registry
	requestCount     *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	errorCount       *prometheus.CounterVec
	mutations        *prometheus.CounterVec
	mutationDuration *prometheus.HistogramVec
	pushEvents       *prometheus.CounterVec
	staleWrites      *prometheus.CounterVec
	notifications    *prometheus.CounterVec
}

// NewMetrics registers all collectors on a dedicated registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requestCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "console_http_requests_total",
			Help: "HTTP requests served by the console API.",
		}, []string{"path", "method", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "console_http_request_duration_seconds",
			Help:    "Latency of console API requests.",
			Buckets: prometheus.DefBuckets,
		}, []string{"path", "method"}),
		errorCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "console_http_errors_total",
			Help: "Console API errors by domain error code.",
		}, []string{"path", "method", "code"}),
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "console_mutations_total",
			Help: "Optimistic mutations by outcome.",
		}, []string{"kind", "outcome"}),
		mutationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "console_mutation_duration_seconds",
			Help:    "Time from optimistic write to settle.",
			Buckets: prometheus.DefBuckets,
		}, []string{"kind"}),
		pushEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "console_push_events_total",
			Help: "Push events received, by disposition.",
		}, []string{"event", "disposition"}),
		staleWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "console_store_stale_writes_total",
			Help: "Store writes dropped because they carried an older version or fetch sequence.",
		}, []string{"kind", "source"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "console_notifications_total",
			Help: "User-facing notifications enqueued.",
		}, []string{"kind"}),
	}
	m.registry.MustRegister(
		m.requestCount,
		m.requestDuration,
		m.errorCount,
		m.mutations,
		m.mutationDuration,
		m.pushEvents,
		m.staleWrites,
		m.notifications,
	)
	return m
}

// Registry exposes the underlying registry, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requestCount.WithLabelValues(path, method, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(path, method).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.errorCount.WithLabelValues(path, method, code).Inc()
}

// RecordMutation counts a settled mutation.
func (m *Metrics) RecordMutation(kind, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.mutations.WithLabelValues(kind, outcome).Inc()
	m.mutationDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// RecordPushEvent counts a push event and what was done with it.
func (m *Metrics) RecordPushEvent(event, disposition string) {
	if m == nil {
		return
	}
	m.pushEvents.WithLabelValues(event, disposition).Inc()
}

// RecordStaleWrite counts a dropped store write.
func (m *Metrics) RecordStaleWrite(kind, source string) {
	if m == nil {
		return
	}
	m.staleWrites.WithLabelValues(kind, source).Inc()
}

// RecordNotification counts an enqueued notification.
func (m *Metrics) RecordNotification(kind string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(kind).Inc()
}
