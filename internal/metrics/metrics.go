// Package metrics provides Prometheus metrics collection for the ingestion
// and query pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus metrics exposed by the service.
type Metrics struct {
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge

	IngressTotal    *prometheus.CounterVec // labels: service, tracker, outcome
	IngressDuration *prometheus.HistogramVec

	QueryDuration *prometheus.HistogramVec // labels: mode (aggregate|url_filter)

	CacheHitTotal  *prometheus.CounterVec // labels: cache, result (hit|miss)
	CacheEvictions *prometheus.CounterVec // labels: cache

	DatabaseQueriesTotal    *prometheus.CounterVec
	DatabaseQueryDuration   *prometheus.HistogramVec
	DatabaseConnectionsOpen prometheus.Gauge
}

// New creates a Metrics instance registered with the default registerer.
func New(serviceName string) *Metrics {
	return NewWithRegistry(serviceName, prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a Metrics instance registered with a custom
// registry, used by tests that need isolated collectors.
func NewWithRegistry(serviceName string, registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "http_requests_total", Help: "Total number of HTTP requests"},
			[]string{"service", "method", "path", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"service", "method", "path"},
		),
		RequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{Name: "http_requests_in_flight", Help: "Current number of HTTP requests being processed"},
		),

		IngressTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "ingress_events_total", Help: "Total number of beacon events processed"},
			[]string{"service", "tracker", "outcome"},
		),
		IngressDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ingress_duration_seconds",
				Help:    "Beacon ingestion processing duration in seconds",
				Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5},
			},
			[]string{"service", "tracker"},
		),

		QueryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "analytics_query_duration_seconds",
				Help:    "Analytics query engine duration in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"mode"},
		),

		CacheHitTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "cache_requests_total", Help: "Total number of in-process cache lookups"},
			[]string{"cache", "result"},
		),
		CacheEvictions: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "cache_evictions_total", Help: "Total number of entries evicted for exceeding capacity"},
			[]string{"cache"},
		),

		DatabaseQueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "database_queries_total", Help: "Total number of database queries"},
			[]string{"operation", "status"},
		),
		DatabaseQueryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "database_query_duration_seconds",
				Help:    "Database query duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"operation"},
		),
		DatabaseConnectionsOpen: prometheus.NewGauge(
			prometheus.GaugeOpts{Name: "database_connections_open", Help: "Current number of open database connections"},
		),
	}

	if registerer != nil {
		registerer.MustRegister(
			m.RequestsTotal,
			m.RequestDuration,
			m.RequestsInFlight,
			m.IngressTotal,
			m.IngressDuration,
			m.QueryDuration,
			m.CacheHitTotal,
			m.CacheEvictions,
			m.DatabaseQueriesTotal,
			m.DatabaseQueryDuration,
			m.DatabaseConnectionsOpen,
		)
	}

	return m
}

// RecordHTTPRequest records an HTTP request's outcome and latency.
func (m *Metrics) RecordHTTPRequest(service, method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(service, method, path, status).Inc()
	m.RequestDuration.WithLabelValues(service, method, path).Observe(duration.Seconds())
}

// RecordIngress records the outcome of processing one beacon event.
// Outcome is an ingress.Outcome value: accepted, robot_ignored or ip_ignored.
func (m *Metrics) RecordIngress(service, tracker, outcome string, duration time.Duration) {
	m.IngressTotal.WithLabelValues(service, tracker, outcome).Inc()
	m.IngressDuration.WithLabelValues(service, tracker).Observe(duration.Seconds())
}

// RecordQuery records an analytics query engine invocation's latency.
func (m *Metrics) RecordQuery(mode string, duration time.Duration) {
	m.QueryDuration.WithLabelValues(mode).Observe(duration.Seconds())
}

// RecordCacheLookup records a cache hit or miss.
func (m *Metrics) RecordCacheLookup(cacheName string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheHitTotal.WithLabelValues(cacheName, result).Inc()
}

// RecordCacheEviction records entries evicted from a cache for exceeding capacity.
func (m *Metrics) RecordCacheEviction(cacheName string, count int) {
	m.CacheEvictions.WithLabelValues(cacheName).Add(float64(count))
}

// RecordDatabaseQuery records a database query's outcome and latency.
func (m *Metrics) RecordDatabaseQuery(operation, status string, duration time.Duration) {
	m.DatabaseQueriesTotal.WithLabelValues(operation, status).Inc()
	m.DatabaseQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// SetDatabaseConnections sets the number of open database connections.
func (m *Metrics) SetDatabaseConnections(count int) {
	m.DatabaseConnectionsOpen.Set(float64(count))
}

// IncrementInFlight increments the in-flight requests counter.
func (m *Metrics) IncrementInFlight() { m.RequestsInFlight.Inc() }

// DecrementInFlight decrements the in-flight requests counter.
func (m *Metrics) DecrementInFlight() { m.RequestsInFlight.Dec() }
