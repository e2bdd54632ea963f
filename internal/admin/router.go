// Package admin serves the operator HTTP endpoints: liveness, readiness,
// metrics, and the catalog listing. It never carries MCP traffic.
package admin

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/pitabwire/conductor-mcp/internal/catalog"
	"github.com/pitabwire/conductor-mcp/internal/observability"
)

// Dependencies holds everything the admin router needs.
type Dependencies struct {
	Catalog     *catalog.Catalog
	Backend     observability.HealthChecker
	Metrics     *observability.Metrics
	Gatherer    prometheus.Gatherer
	MetricsPath string
	Logger      *zap.Logger
}

// NewRouter creates the admin router.
func NewRouter(deps Dependencies) chi.Router {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(Recovery(logger))
	r.Use(RequestID)
	r.Use(SecurityHeaders)
	r.Use(deps.Metrics.MetricsMiddleware)
	r.Use(RequestLogging(logger))

	r.Get("/healthz", observability.HandleHealth())
	r.Get("/readyz", observability.HandleReady(observability.ReadinessChecks{
		CatalogLoaded: func() bool { return deps.Catalog != nil && deps.Catalog.Len() > 0 },
		Backend:       deps.Backend,
	}))
	r.Get("/operations", handleOperations(deps.Catalog))

	if deps.Gatherer != nil {
		path := deps.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.Handle(path, observability.Handler(deps.Gatherer))
	}

	return r
}

type operationSummary struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Mutation    bool            `json:"mutation"`
	Routes      []catalog.Route `json:"routes"`
	Required    []string        `json:"required,omitempty"`
}

func handleOperations(cat *catalog.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		if cat == nil {
			WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "catalog not loaded"})
			return
		}
		ops := cat.Operations()
		out := make([]operationSummary, len(ops))
		for i, op := range ops {
			out[i] = operationSummary{
				Name:        op.Name(),
				Description: op.Spec.Description,
				Mutation:    op.Mutation(),
				Routes:      op.Routes(),
				Required:    op.Spec.Required(),
			}
		}
		WriteJSON(w, http.StatusOK, map[string]any{
			"checksum":   cat.Checksum(),
			"operations": out,
		})
	}
}
