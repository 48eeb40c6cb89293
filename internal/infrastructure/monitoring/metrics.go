// Package monitoring exposes Prometheus metrics and OpenTelemetry tracing.
package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/alchemorsel/recipemod/internal/application/modification"
)

const namespace = "recipemod"

// MetricsCollector handles Prometheus metrics collection. It owns its
// registry so tests and multiple instances never collide on the global one.
type MetricsCollector struct {
	logger   *zap.Logger
	registry *prometheus.Registry

	// HTTP metrics
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Business metrics
	modificationsTotal   *prometheus.CounterVec
	modificationDuration *prometheus.HistogramVec
	cacheLookupsTotal    *prometheus.CounterVec
	cacheSweptTotal      prometheus.Counter
	quotaChecksTotal     *prometheus.CounterVec
	modelRequestsTotal   *prometheus.CounterVec
	modelRequestDuration *prometheus.HistogramVec
}

var _ modification.Recorder = (*MetricsCollector)(nil)

// NewMetricsCollector creates a new metrics collector
func NewMetricsCollector(logger *zap.Logger) *MetricsCollector {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	return &MetricsCollector{
		logger:   logger.Named("metrics"),
		registry: registry,

		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status_code"},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),

		modificationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "modifications_total",
				Help:      "Recipe modification requests by outcome",
			},
			[]string{"outcome"},
		),
		modificationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "modification_duration_seconds",
				Help:      "End-to-end recipe modification latency",
				Buckets:   []float64{0.005, 0.05, 0.25, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"outcome"},
		),
		cacheLookupsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_lookups_total",
				Help:      "Response cache lookups by result",
			},
			[]string{"result"},
		),
		cacheSweptTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_swept_entries_total",
				Help:      "Expired cache entries removed by the janitor",
			},
		),
		quotaChecksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "quota_checks_total",
				Help:      "Daily quota checks by result",
			},
			[]string{"result"},
		),
		modelRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "model_requests_total",
				Help:      "Language model requests by provider and outcome",
			},
			[]string{"provider", "outcome"},
		),
		modelRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "model_request_duration_seconds",
				Help:      "Language model request latency",
				Buckets:   []float64{0.1, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0, 60.0},
			},
			[]string{"provider"},
		),
	}
}

// Registry exposes the registry so the OpenTelemetry exporter can share it
func (m *MetricsCollector) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the Prometheus metrics HTTP handler
func (m *MetricsCollector) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// HTTPMiddleware records request counts and latency per chi route pattern
func (m *MetricsCollector) HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		m.httpRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.httpRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// CacheLookup implements modification.Recorder
func (m *MetricsCollector) CacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookupsTotal.WithLabelValues(result).Inc()
}

// CacheSwept implements modification.Recorder
func (m *MetricsCollector) CacheSwept(removed int) {
	m.cacheSweptTotal.Add(float64(removed))
}

// QuotaChecked implements modification.Recorder
func (m *MetricsCollector) QuotaChecked(allowed bool) {
	result := "denied"
	if allowed {
		result = "allowed"
	}
	m.quotaChecksTotal.WithLabelValues(result).Inc()
}

// ModelInvoked implements modification.Recorder
func (m *MetricsCollector) ModelInvoked(provider, outcome string, duration time.Duration) {
	m.modelRequestsTotal.WithLabelValues(provider, outcome).Inc()
	m.modelRequestDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

// ModificationFinished implements modification.Recorder
func (m *MetricsCollector) ModificationFinished(outcome string, duration time.Duration) {
	m.modificationsTotal.WithLabelValues(outcome).Inc()
	m.modificationDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}
