// Package metrics exposes Prometheus collectors for the discovery engine.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "reelhub"

// Metrics holds the collectors recorded by the engine and the HTTP layer.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	FeedRequests           *prometheus.CounterVec
	QueryDuration          *prometheus.HistogramVec
	CounterUpdates         *prometheus.CounterVec
	InteractionLogFailures prometheus.Counter
	SearchLogFailures      prometheus.Counter
	HTTPRequests           *prometheus.CounterVec
}

// New creates the collectors on a private registry together with the Go
// runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		FeedRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_requests_total",
			Help:      "Feed, search and related requests by strategy.",
		}, []string{"strategy"}),
		QueryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_duration_seconds",
			Help:      "Time spent answering a strategy query, page and count included.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"strategy"}),
		CounterUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "counter_updates_total",
			Help:      "View and like counter updates by outcome.",
		}, []string{"field", "result"}),
		InteractionLogFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "interaction_log_failures_total",
			Help:      "Interaction records that could not be written and were dropped.",
		}),
		SearchLogFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_log_failures_total",
			Help:      "Search records that could not be written and were dropped.",
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"method", "route", "status"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.FeedRequests,
		m.QueryDuration,
		m.CounterUpdates,
		m.InteractionLogFailures,
		m.SearchLogFailures,
		m.HTTPRequests,
	)

	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveQuery records one strategy query and how long it took.
func (m *Metrics) ObserveQuery(strategy string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.FeedRequests.WithLabelValues(strategy).Inc()
	m.QueryDuration.WithLabelValues(strategy).Observe(elapsed.Seconds())
}

// CounterUpdated records a counter update outcome.
func (m *Metrics) CounterUpdated(field string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.CounterUpdates.WithLabelValues(field, result).Inc()
}

// InteractionDropped records an interaction that could not be logged.
func (m *Metrics) InteractionDropped() {
	if m == nil {
		return
	}
	m.InteractionLogFailures.Inc()
}

// SearchDropped records a search that could not be logged.
func (m *Metrics) SearchDropped() {
	if m == nil {
		return
	}
	m.SearchLogFailures.Inc()
}

// RequestServed records a completed HTTP request.
func (m *Metrics) RequestServed(method, route, status string) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, status).Inc()
}
