// Package dispatch runs one invocation through lookup, validation, binding,
// the backend call, and result shaping. It is the only component that
// builds ResultEnvelopes.
package dispatch

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pitabwire/conductor-mcp/internal/catalog"
	"github.com/pitabwire/conductor-mcp/internal/observability"
	"github.com/pitabwire/conductor-mcp/internal/translate"
	"github.com/pitabwire/conductor-mcp/internal/validation"
	"github.com/pitabwire/conductor-mcp/model"
)

const (
	outcomeSuccess = "success"

	// unknownLabel replaces names outside the catalog in metric labels and
	// span names.
	unknownLabel = "unknown"
)

// Dispatcher executes named operations against a Gateway.
type Dispatcher struct {
	catalog *catalog.Catalog
	gateway model.Gateway
	logger  *zap.Logger
	metrics *observability.Metrics
	now     func() time.Time
}

// Option configures optional dependencies.
type Option func(*Dispatcher)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

// WithMetrics sets the metrics instruments.
func WithMetrics(m *observability.Metrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

// WithClock overrides the clock used for elapsed-time summaries.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) { d.now = now }
}

// New creates a Dispatcher.
func New(cat *catalog.Catalog, gw model.Gateway, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		catalog: cat,
		gateway: gw,
		logger:  zap.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Catalog returns the catalog the dispatcher serves.
func (d *Dispatcher) Catalog() *catalog.Catalog {
	return d.catalog
}

// Invoke runs the named operation. It never returns an error: every
// failure is translated into the envelope. Unknown names and invalid
// arguments never reach the gateway.
func (d *Dispatcher) Invoke(ctx context.Context, name string, args map[string]any) model.ResultEnvelope {
	start := time.Now()

	op, known := d.catalog.Lookup(name)
	label := unknownLabel
	if known {
		label = op.Name()
	}

	ctx, span := observability.StartSpan(ctx, "invoke "+label, observability.AttrOperation.String(label))
	ictx := &model.InvocationContext{
		InvocationID: uuid.NewString(),
		Operation:    label,
		TraceID:      observability.TraceIDFromContext(ctx),
	}
	span.SetAttributes(observability.AttrInvocationID.String(ictx.InvocationID))
	ctx = model.WithInvocationContext(ctx, ictx)
	logger := observability.InvocationLogger(ctx, d.logger)

	var env model.ResultEnvelope
	var failure model.Failure
	if known {
		env, failure = d.invoke(ctx, logger, op, args)
	} else {
		logger = logger.With(zap.String("requested_operation", name))
		failure = model.UnknownOperationFailure{Name: name, Known: d.catalog.Names()}
	}

	if failure != nil {
		report := translate.Translate(failure)
		env = model.Fail(report)
		span.SetAttributes(observability.AttrCategory.String(string(report.Category)))
		d.metrics.RecordErrorReport(string(report.Category))
		d.metrics.RecordInvocation(label, string(report.Category), time.Since(start))
		logFailure(logger, report)
	} else {
		d.metrics.RecordInvocation(label, outcomeSuccess, time.Since(start))
		logger.Info("invocation completed", zap.Duration("duration", time.Since(start)))
	}
	observability.EndSpanWithError(span, failure)
	return env
}

func (d *Dispatcher) invoke(ctx context.Context, logger *zap.Logger, op *catalog.Operation, args map[string]any) (model.ResultEnvelope, model.Failure) {
	name := op.Name()
	logger.Debug("invocation started",
		zap.Bool("mutation", op.Mutation()),
		zap.Any("arguments", observability.RedactArguments(args, nil)),
	)

	if res := validation.ValidateOperation(op, args); !res.OK() {
		d.metrics.RecordValidationFailure(name)
		return model.ResultEnvelope{}, res.Failure(name)
	}

	in := catalog.NewInput(op.Spec, args)
	call := op.Bind(in)

	payload, err := d.gateway.Send(ctx, call)
	if err != nil {
		return model.ResultEnvelope{}, model.AsFailure(err)
	}
	return op.Result(in, payload.Body, d.now()), nil
}

func logFailure(logger *zap.Logger, report model.ErrorReport) {
	fields := []zap.Field{
		zap.String("category", string(report.Category)),
		zap.String("message", report.Message),
	}
	if report.StatusCode != 0 {
		fields = append(fields, zap.Int("status", report.StatusCode))
	}
	switch report.Category {
	case model.CategoryServerError, model.CategoryUnavailable,
		model.CategoryConnectionRefused, model.CategoryTimeout, model.CategoryUnknown:
		logger.Error("invocation failed", fields...)
	default:
		logger.Warn("invocation failed", fields...)
	}
}
