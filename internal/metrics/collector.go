package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"canvas/internal/optimistic"
)

// Collector holds the Prometheus metrics of one process. Each collector owns
// its registry so tests can build as many as they like.
type Collector struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Sync engine metrics
	Mutations   *prometheus.CounterVec
	Retries     *prometheus.CounterVec
	CacheShapes prometheus.Gauge

	// Store metrics
	ShapesStored prometheus.Gauge
}

// NewCollector creates a collector whose metric names carry namespace.
func NewCollector(namespace string) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		Mutations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sync_mutations_total",
				Help:      "Optimistic mutations by kind and final state",
			},
			[]string{"kind", "state"},
		),
		Retries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sync_retries_total",
				Help:      "Retries scheduled after a transient not-found",
			},
			[]string{"kind"},
		),
		CacheShapes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sync_cache_shapes",
			Help:      "Shapes held in the local cache",
		}),
		ShapesStored: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "store_shapes",
			Help:      "Shapes persisted by the store at the last listing",
		}),
	}
	c.registry.MustRegister(
		c.HTTPRequests,
		c.HTTPDuration,
		c.Mutations,
		c.Retries,
		c.CacheShapes,
		c.ShapesStored,
	)
	return c
}

// Registry exposes the underlying registry.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// ── optimistic.Recorder ────────────────────────────────────

var _ optimistic.Recorder = (*Collector)(nil)

func (c *Collector) MutationSettled(kind string, state optimistic.State) {
	c.Mutations.WithLabelValues(kind, state.String()).Inc()
}

func (c *Collector) RetryScheduled(kind string) {
	c.Retries.WithLabelValues(kind).Inc()
}

func (c *Collector) CacheSize(n int) {
	c.CacheShapes.Set(float64(n))
}

// ── HTTP ───────────────────────────────────────────────────

// Middleware records request counts and latencies labelled by the chi route
// pattern, so ids in the path do not explode the label set.
func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = routeLabel(rc.RoutePattern())
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		c.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		c.HTTPDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// routeLabel drops the trailing slash a sub-router index route may carry,
// so "/api/v0/shapes" and "/api/v0/shapes/" share one series.
func routeLabel(pattern string) string {
	if len(pattern) > 1 {
		return strings.TrimSuffix(pattern, "/")
	}
	return pattern
}
