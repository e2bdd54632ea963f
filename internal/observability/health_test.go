package observability

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type stubChecker struct{ err error }

func (s stubChecker) HealthCheck(context.Context) error { return s.err }

func TestHandleHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	HandleHealth()(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "ok" || resp.Version != Version {
		t.Errorf("response = %+v", resp)
	}
}

func TestHandleReady(t *testing.T) {
	tests := []struct {
		name       string
		checks     ReadinessChecks
		wantStatus int
		wantChecks int
	}{
		{
			name:       "catalog only",
			checks:     ReadinessChecks{CatalogLoaded: func() bool { return true }},
			wantStatus: http.StatusOK,
			wantChecks: 1,
		},
		{
			name:       "catalog missing",
			checks:     ReadinessChecks{},
			wantStatus: http.StatusServiceUnavailable,
			wantChecks: 1,
		},
		{
			name: "backend healthy",
			checks: ReadinessChecks{
				CatalogLoaded: func() bool { return true },
				Backend:       stubChecker{},
			},
			wantStatus: http.StatusOK,
			wantChecks: 2,
		},
		{
			name: "backend down",
			checks: ReadinessChecks{
				CatalogLoaded: func() bool { return true },
				Backend:       stubChecker{err: errors.New("connection refused")},
			},
			wantStatus: http.StatusServiceUnavailable,
			wantChecks: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			HandleReady(tt.checks)(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			var resp ReadinessResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if len(resp.Checks) != tt.wantChecks {
				t.Errorf("checks = %v, want %d entries", resp.Checks, tt.wantChecks)
			}
		})
	}
}
