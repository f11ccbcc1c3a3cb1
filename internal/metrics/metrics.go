// Package metrics exposes the service's prometheus collectors.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "mapnav"

// Registry holds all metrics for the application. A nil *Registry is valid
// and records nothing.
type Registry struct {
	// HTTP
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Routing
	PathQueriesTotal    *prometheus.CounterVec
	PathQueryDuration   prometheus.Histogram
	PathFinalized       prometheus.Histogram
	PathRelaxations     prometheus.Histogram
	GraphVertices       prometheus.Gauge
	GraphEdges          prometheus.Gauge
	DatasetReloads      *prometheus.CounterVec
	DatasetLoadDuration prometheus.Histogram

	// Sessions
	ActiveSessions  prometheus.Gauge
	SelectionEvents *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewRegistry creates a registry with every collector registered, plus the
// Go runtime and process collectors.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	r := &Registry{registry: reg}
	r.initHTTPMetrics()
	r.initRoutingMetrics()
	r.initSessionMetrics()
	return r
}

func (r *Registry) initHTTPMetrics() {
	r.HTTPRequestsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)
	r.HTTPRequestDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
}

func (r *Registry) initRoutingMetrics() {
	r.PathQueriesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "path_queries_total",
			Help:      "Shortest-path queries by outcome",
		},
		[]string{"outcome"},
	)
	r.PathQueryDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "path_query_duration_seconds",
			Help:      "Shortest-path query latency in seconds",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		},
	)
	r.PathFinalized = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "path_finalized_vertices",
			Help:      "Vertices finalized per shortest-path query",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		},
	)
	r.PathRelaxations = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "path_relaxations",
			Help:      "Edge relaxations per shortest-path query",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		},
	)
	r.GraphVertices = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "graph_vertices",
			Help:      "Vertices in the live graph snapshot",
		},
	)
	r.GraphEdges = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "graph_edges",
			Help:      "Distinct edges in the live graph snapshot",
		},
	)
	r.DatasetReloads = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dataset_reloads_total",
			Help:      "Dataset loads by status",
		},
		[]string{"status"},
	)
	r.DatasetLoadDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dataset_load_duration_seconds",
			Help:      "Time to fetch the dataset and build the graph",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
		},
	)
}

func (r *Registry) initSessionMetrics() {
	r.ActiveSessions = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Open selection sessions",
		},
	)
	r.SelectionEvents = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "selection_events_total",
			Help:      "Selection state machine events by kind",
		},
		[]string{"kind"},
	)
}

// Handler serves the registry in the prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Prometheus returns the underlying prometheus registry.
func (r *Registry) Prometheus() *prometheus.Registry {
	return r.registry
}

// RecordHTTPRequest records a finished HTTP request.
func (r *Registry) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	if r == nil {
		return
	}
	r.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	r.HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordPathQuery records one shortest-path query. outcome is "found",
// "no_path", "unknown_vertex" or "error".
func (r *Registry) RecordPathQuery(outcome string, duration time.Duration, finalized, relaxations int) {
	if r == nil {
		return
	}
	r.PathQueriesTotal.WithLabelValues(outcome).Inc()
	r.PathQueryDuration.Observe(duration.Seconds())
	r.PathFinalized.Observe(float64(finalized))
	r.PathRelaxations.Observe(float64(relaxations))
}

// RecordDatasetLoad records a dataset load attempt. Graph sizes are only
// updated on success.
func (r *Registry) RecordDatasetLoad(err error, duration time.Duration, vertices, edges int) {
	if r == nil {
		return
	}
	r.DatasetLoadDuration.Observe(duration.Seconds())
	if err != nil {
		r.DatasetReloads.WithLabelValues("error").Inc()
		return
	}
	r.DatasetReloads.WithLabelValues("ok").Inc()
	r.GraphVertices.Set(float64(vertices))
	r.GraphEdges.Set(float64(edges))
}

// SetActiveSessions sets the open session gauge.
func (r *Registry) SetActiveSessions(n int) {
	if r == nil {
		return
	}
	r.ActiveSessions.Set(float64(n))
}

// RecordSelectionEvent counts a selection event.
func (r *Registry) RecordSelectionEvent(kind string) {
	if r == nil {
		return
	}
	r.SelectionEvents.WithLabelValues(kind).Inc()
}
