package observability

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func newTestMetrics(t *testing.T) (*Metrics, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	return InitMetrics(reg), reg
}

func TestInitMetrics_registersAllMetrics(t *testing.T) {
	m, reg := newTestMetrics(t)

	m.RecordInvocation("list_workflows", "success", time.Millisecond)
	m.RecordValidationFailure("get_workflow_status")
	m.RecordErrorReport("VALIDATION")
	m.RecordBackendRequest("list_workflows", "GET", "200", time.Millisecond)
	m.RecordBackendThrottled()
	m.RecordHTTPRequest("GET", "/healthz", 200, time.Millisecond)
	m.SetCatalogOperations(20)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}

	for _, want := range []string{
		"conductor_mcp_invocations_total",
		"conductor_mcp_invocation_duration_seconds",
		"conductor_mcp_validation_failures_total",
		"conductor_mcp_error_reports_total",
		"conductor_mcp_backend_requests_total",
		"conductor_mcp_backend_request_duration_seconds",
		"conductor_mcp_backend_throttled_total",
		"conductor_mcp_admin_http_requests_total",
		"conductor_mcp_admin_http_request_duration_seconds",
		"conductor_mcp_catalog_operations",
	} {
		if !names[want] {
			t.Errorf("metric %s not registered", want)
		}
	}
}

func TestRecordInvocation_counts(t *testing.T) {
	m, _ := newTestMetrics(t)

	m.RecordInvocation("pause_workflow", "success", time.Millisecond)
	m.RecordInvocation("pause_workflow", "success", time.Millisecond)
	m.RecordInvocation("pause_workflow", "NOT_FOUND", time.Millisecond)

	if got := testutil.ToFloat64(m.InvocationsTotal.WithLabelValues("pause_workflow", "success")); got != 2 {
		t.Errorf("success count = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.InvocationsTotal.WithLabelValues("pause_workflow", "NOT_FOUND")); got != 1 {
		t.Errorf("NOT_FOUND count = %v, want 1", got)
	}
}

func TestRecordBackendRequest_statusLabels(t *testing.T) {
	m, _ := newTestMetrics(t)

	m.RecordBackendRequest("get_task_logs", "GET", BackendStatusRefused, time.Millisecond)
	m.RecordBackendRequest("get_task_logs", "GET", "503", time.Millisecond)

	if got := testutil.ToFloat64(m.BackendRequestsTotal.WithLabelValues("get_task_logs", "GET", "refused")); got != 1 {
		t.Errorf("refused count = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.BackendRequestsTotal.WithLabelValues("get_task_logs", "GET", "503")); got != 1 {
		t.Errorf("503 count = %v, want 1", got)
	}
}

func TestMetrics_nilSafe(t *testing.T) {
	var m *Metrics
	m.RecordInvocation("x", "success", time.Millisecond)
	m.RecordValidationFailure("x")
	m.RecordErrorReport("x")
	m.RecordBackendRequest("x", "GET", "200", time.Millisecond)
	m.RecordBackendThrottled()
	m.RecordHTTPRequest("GET", "/", 200, time.Millisecond)
	m.SetCatalogOperations(1)
}

func TestMetricsMiddleware_usesRoutePattern(t *testing.T) {
	m, _ := newTestMetrics(t)

	r := chi.NewRouter()
	r.Use(m.MetricsMiddleware)
	r.Get("/checks/{name}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/checks/backend", nil))

	if got := testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/checks/{name}", "418")); got != 1 {
		t.Errorf("route pattern count = %v, want 1", got)
	}
}

func TestHandler_exposesRegistry(t *testing.T) {
	m, reg := newTestMetrics(t)
	m.SetCatalogOperations(20)

	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET metrics: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if !strings.Contains(string(body), "conductor_mcp_catalog_operations 20") {
		t.Errorf("metrics output missing catalog gauge:\n%s", body)
	}
}
