package observability

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/pitabwire/conductor-mcp/internal/config"
)

// setupTestTracer creates an in-memory span exporter and configures a
// TracerProvider that always samples.
func setupTestTracer(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
	})
	return exporter
}

func TestInitTracing_disabled(t *testing.T) {
	shutdown, err := InitTracing(context.Background(), config.TracingConfig{Enabled: false}, "test-svc", "1.0.0")
	if err != nil {
		t.Fatalf("InitTracing() error = %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown() error = %v", err)
	}
}

func TestInitTracing_stdout(t *testing.T) {
	cfg := config.TracingConfig{Enabled: true, Exporter: "stdout", SamplingRate: 1.0}
	shutdown, err := InitTracing(context.Background(), cfg, "test-svc", "1.0.0")
	if err != nil {
		t.Fatalf("InitTracing() error = %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown() error = %v", err)
	}
}

func TestInitTracing_unsupportedExporter(t *testing.T) {
	cfg := config.TracingConfig{Enabled: true, Exporter: "zipkin"}
	if _, err := InitTracing(context.Background(), cfg, "test-svc", "1.0.0"); err == nil {
		t.Fatal("InitTracing() should reject unknown exporters")
	}
}

func TestStartSpan_attributes(t *testing.T) {
	exporter := setupTestTracer(t)

	_, span := StartSpan(context.Background(), "invoke", AttrOperation.String("pause_workflow"), AttrMutation.Bool(true))
	span.End()

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	attrs := make(map[string]string)
	for _, a := range spans[0].Attributes {
		attrs[string(a.Key)] = a.Value.Emit()
	}
	if attrs["conductor.operation"] != "pause_workflow" {
		t.Errorf("conductor.operation = %q", attrs["conductor.operation"])
	}
	if attrs["conductor.mutation"] != "true" {
		t.Errorf("conductor.mutation = %q", attrs["conductor.mutation"])
	}
}

func TestStartClientSpan(t *testing.T) {
	exporter := setupTestTracer(t)

	_, span := StartClientSpan(context.Background(), http.MethodGet, "/workflow/search")
	SetHTTPStatus(span, http.StatusServiceUnavailable)
	span.End()

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	if spans[0].SpanKind != trace.SpanKindClient {
		t.Errorf("SpanKind = %v, want client", spans[0].SpanKind)
	}
	if spans[0].Name != "GET /workflow/search" {
		t.Errorf("Name = %q", spans[0].Name)
	}
	if spans[0].Status.Code != codes.Error {
		t.Errorf("Status = %v, want error for 503", spans[0].Status.Code)
	}
}

func TestEndSpanWithError(t *testing.T) {
	exporter := setupTestTracer(t)

	_, span := StartSpan(context.Background(), "failing")
	EndSpanWithError(span, errors.New("boom"))
	_, ok := StartSpan(context.Background(), "fine")
	EndSpanWithError(ok, nil)

	spans := exporter.GetSpans()
	if len(spans) != 2 {
		t.Fatalf("got %d spans, want 2", len(spans))
	}
	if spans[0].Status.Code != codes.Error || spans[0].Status.Description != "boom" {
		t.Errorf("failing span status = %+v", spans[0].Status)
	}
	if spans[1].Status.Code == codes.Error {
		t.Error("nil error should not set error status")
	}
}

func TestTraceIDFromContext(t *testing.T) {
	setupTestTracer(t)

	if got := TraceIDFromContext(context.Background()); got != "" {
		t.Errorf("TraceIDFromContext(no span) = %q, want empty", got)
	}

	ctx, span := StartSpan(context.Background(), "x")
	defer span.End()
	if got := TraceIDFromContext(ctx); len(got) != 32 {
		t.Errorf("TraceIDFromContext() = %q, want 32 hex chars", got)
	}
}

func TestInjectTraceHeaders(t *testing.T) {
	setupTestTracer(t)

	ctx, span := StartSpan(context.Background(), "outbound")
	defer span.End()

	h := make(http.Header)
	InjectTraceHeaders(ctx, h)
	if h.Get("traceparent") == "" {
		t.Error("traceparent header should be injected")
	}
}

func TestNewSampler(t *testing.T) {
	if s := newSampler(config.TracingConfig{SamplingRate: 1}); s.Description() != sdktrace.ParentBased(sdktrace.AlwaysSample()).Description() {
		t.Errorf("rate 1 sampler = %s", s.Description())
	}
	if s := newSampler(config.TracingConfig{}); s.Description() != sdktrace.ParentBased(sdktrace.TraceIDRatioBased(0.1)).Description() {
		t.Errorf("default sampler = %s", s.Description())
	}
}
