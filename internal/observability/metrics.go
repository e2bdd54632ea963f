package observability

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Histogram bucket definitions.
var (
	httpDurationBuckets    = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}
	backendDurationBuckets = []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}
)

// Backend status labels for calls that produced no HTTP response.
const (
	BackendStatusRefused = "refused"
	BackendStatusTimeout = "timeout"
	BackendStatusError   = "error"
)

// Metrics holds all Prometheus metric instruments for the server.
type Metrics struct {
	// Invocation metrics
	InvocationsTotal        *prometheus.CounterVec
	InvocationDuration      *prometheus.HistogramVec
	ValidationFailuresTotal *prometheus.CounterVec
	ErrorReportsTotal       *prometheus.CounterVec

	// Backend metrics
	BackendRequestsTotal   *prometheus.CounterVec
	BackendRequestDuration *prometheus.HistogramVec
	BackendThrottledTotal  prometheus.Counter

	// Admin HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// System metrics
	CatalogOperations prometheus.Gauge
}

// InitMetrics creates and registers all Prometheus metric instruments.
func InitMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		InvocationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "conductor_mcp_invocations_total",
			Help: "Total number of operation invocations.",
		}, []string{"operation", "outcome"}),
		InvocationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "conductor_mcp_invocation_duration_seconds",
			Help:    "Invocation duration in seconds, validation through result shaping.",
			Buckets: backendDurationBuckets,
		}, []string{"operation"}),
		ValidationFailuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "conductor_mcp_validation_failures_total",
			Help: "Total number of invocations rejected before dispatch.",
		}, []string{"operation"}),
		ErrorReportsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "conductor_mcp_error_reports_total",
			Help: "Total number of error reports by category.",
		}, []string{"category"}),

		BackendRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "conductor_mcp_backend_requests_total",
			Help: "Total number of Conductor API requests.",
		}, []string{"operation", "method", "status"}),
		BackendRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "conductor_mcp_backend_request_duration_seconds",
			Help:    "Conductor API request duration in seconds.",
			Buckets: backendDurationBuckets,
		}, []string{"operation"}),
		BackendThrottledTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "conductor_mcp_backend_throttled_total",
			Help: "Total number of requests delayed by the outbound rate limiter.",
		}),

		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "conductor_mcp_admin_http_requests_total",
			Help: "Total number of admin HTTP requests.",
		}, []string{"method", "path_pattern", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "conductor_mcp_admin_http_request_duration_seconds",
			Help:    "Admin HTTP request duration in seconds.",
			Buckets: httpDurationBuckets,
		}, []string{"method", "path_pattern"}),

		CatalogOperations: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "conductor_mcp_catalog_operations",
			Help: "Number of operations in the catalog.",
		}),
	}

	reg.MustRegister(
		m.InvocationsTotal,
		m.InvocationDuration,
		m.ValidationFailuresTotal,
		m.ErrorReportsTotal,
		m.BackendRequestsTotal,
		m.BackendRequestDuration,
		m.BackendThrottledTotal,
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.CatalogOperations,
	)

	return m
}

// --- Recording helpers ---
//
// All helpers are safe on a nil *Metrics so components can run without a
// registry in tests and one-shot CLI commands.

// RecordInvocation records an invocation outcome ("success" or an error
// category).
func (m *Metrics) RecordInvocation(operation, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.InvocationsTotal.WithLabelValues(operation, outcome).Inc()
	m.InvocationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordValidationFailure records an invocation rejected before dispatch.
func (m *Metrics) RecordValidationFailure(operation string) {
	if m == nil {
		return
	}
	m.ValidationFailuresTotal.WithLabelValues(operation).Inc()
}

// RecordErrorReport records a translated error report.
func (m *Metrics) RecordErrorReport(category string) {
	if m == nil {
		return
	}
	m.ErrorReportsTotal.WithLabelValues(category).Inc()
}

// RecordBackendRequest records a Conductor API request. Status is the HTTP
// status code or one of the BackendStatus labels.
func (m *Metrics) RecordBackendRequest(operation, method, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.BackendRequestsTotal.WithLabelValues(operation, method, status).Inc()
	m.BackendRequestDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordBackendThrottled records a request that waited on the rate limiter.
func (m *Metrics) RecordBackendThrottled() {
	if m == nil {
		return
	}
	m.BackendThrottledTotal.Inc()
}

// RecordHTTPRequest records admin HTTP request metrics.
func (m *Metrics) RecordHTTPRequest(method, pathPattern string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, pathPattern, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, pathPattern).Observe(duration.Seconds())
}

// SetCatalogOperations sets the number of catalog operations.
func (m *Metrics) SetCatalogOperations(count int) {
	if m == nil {
		return
	}
	m.CatalogOperations.Set(float64(count))
}

// --- HTTP Middleware ---

// MetricsMiddleware returns HTTP middleware that records request metrics using
// chi's route pattern (not the actual URL path) to avoid label cardinality
// explosion.
func (m *Metrics) MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &metricsResponseWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		m.RecordHTTPRequest(r.Method, routePattern(r), sw.status, time.Since(start))
	})
}

// Handler returns the Prometheus HTTP handler for the given gatherer.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// routePattern extracts chi's route pattern from the request context.
// Falls back to the raw URL path if no pattern is found.
func routePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return r.URL.Path
	}
	pattern := strings.Join(rctx.RoutePatterns, "")
	// chi route patterns have trailing /*, remove it.
	pattern = strings.TrimSuffix(pattern, "/*")
	if pattern == "" {
		return r.URL.Path
	}
	return pattern
}

// metricsResponseWriter wraps http.ResponseWriter to capture the status.
type metricsResponseWriter struct {
	http.ResponseWriter
	status  int
	written bool
}

func (w *metricsResponseWriter) WriteHeader(code int) {
	if !w.written {
		w.status = code
		w.written = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *metricsResponseWriter) Write(b []byte) (int, error) {
	if !w.written {
		w.written = true
	}
	return w.ResponseWriter.Write(b)
}
