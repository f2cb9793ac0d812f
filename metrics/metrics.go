// Package metrics exposes Prometheus collectors for views, simulations and
// the HTTP host.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds all metrics for the application
type Registry struct {
	// Simulation and rendering
	TicksTotal         prometheus.Counter
	DrawDuration       *prometheus.HistogramVec
	ActiveViews        prometheus.Gauge
	ResizesTotal       prometheus.Counter
	DragsTotal         prometheus.Counter
	RejectedEdgesTotal prometheus.Counter
	SettleTicks        prometheus.Histogram

	// HTTP
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Store
	GraphsStored prometheus.Gauge

	registry *prometheus.Registry
}

var (
	defaultRegistry *Registry
	once            sync.Once
)

// DefaultRegistry returns the process-wide registry.
func DefaultRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates a registry with every collector registered.
func NewRegistry() *Registry {
	r := &Registry{registry: prometheus.NewRegistry()}
	r.initViewMetrics()
	r.initHTTPMetrics()
	return r
}

func (r *Registry) initViewMetrics() {
	f := promauto.With(r.registry)

	r.TicksTotal = f.NewCounter(prometheus.CounterOpts{
		Name: "forcegraph_simulation_ticks_total",
		Help: "Total number of simulation ticks across all views",
	})
	r.DrawDuration = f.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "forcegraph_draw_duration_seconds",
		Help:    "Time spent in a render backend draw",
		Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1},
	}, []string{"backend"})
	r.ActiveViews = f.NewGauge(prometheus.GaugeOpts{
		Name: "forcegraph_active_views",
		Help: "Number of mounted graph views",
	})
	r.ResizesTotal = f.NewCounter(prometheus.CounterOpts{
		Name: "forcegraph_resizes_total",
		Help: "Number of applied (debounced) viewport resizes",
	})
	r.DragsTotal = f.NewCounter(prometheus.CounterOpts{
		Name: "forcegraph_drags_total",
		Help: "Number of node drags started",
	})
	r.RejectedEdgesTotal = f.NewCounter(prometheus.CounterOpts{
		Name: "forcegraph_rejected_edges_total",
		Help: "Edges skipped because an endpoint does not exist",
	})
	r.SettleTicks = f.NewHistogram(prometheus.HistogramOpts{
		Name:    "forcegraph_settle_ticks",
		Help:    "Ticks needed for a headless render to come to rest",
		Buckets: prometheus.LinearBuckets(50, 50, 10),
	})
	r.GraphsStored = f.NewGauge(prometheus.GaugeOpts{
		Name: "forcegraph_graphs_stored",
		Help: "Number of graph documents held by the server",
	})
}

func (r *Registry) initHTTPMetrics() {
	f := promauto.With(r.registry)

	r.HTTPRequestsTotal = f.NewCounterVec(prometheus.CounterOpts{
		Name: "forcegraph_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "route", "status"})
	r.HTTPRequestDuration = f.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "forcegraph_http_request_duration_seconds",
		Help:    "HTTP request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
}

// RecordDraw observes one backend draw.
func (r *Registry) RecordDraw(backend string, d time.Duration) {
	r.DrawDuration.WithLabelValues(backend).Observe(d.Seconds())
}

// RecordHTTPRequest counts and times one request.
func (r *Registry) RecordHTTPRequest(method, route, status string, d time.Duration) {
	r.HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	r.HTTPRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}
