package observability

import (
	"context"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/pitabwire/conductor-mcp/internal/config"
	"github.com/pitabwire/conductor-mcp/model"
)

// Context key for the logger.
type loggerKey struct{}

// NewLogger creates a zap.Logger configured for JSON output to stderr.
// Stdout carries the MCP protocol stream and must never receive log lines.
//
// Log level usage conventions:
//   - error: backend 5xx, connection refused, timeouts, startup failures
//   - warn:  backend 4xx, validation failures, unknown operations
//   - info:  invocation start/end, server lifecycle
//   - debug: bound backend calls and redacted arguments
func NewLogger(cfg config.ObservabilityConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zapcore.InfoLevel
	}

	zapCfg := zap.Config{
		Level:       zap.NewAtomicLevelAt(level),
		Development: false,
		Encoding:    "json",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "timestamp",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			MessageKey:     "msg",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.LowercaseLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.MillisDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}

	return zapCfg.Build()
}

// WithLogger stores a logger in the context.
func WithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// LoggerFrom returns the logger stored in the context, or the provided
// fallback if none is found.
func LoggerFrom(ctx context.Context, fallback *zap.Logger) *zap.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*zap.Logger); ok && l != nil {
		return l
	}
	return fallback
}

// InvocationLogger returns a logger enriched with InvocationContext fields.
// If no logger is in the context, the fallback is used.
func InvocationLogger(ctx context.Context, fallback *zap.Logger) *zap.Logger {
	logger := LoggerFrom(ctx, fallback)

	ictx := model.InvocationContextFrom(ctx)
	if ictx == nil {
		return logger
	}

	fields := []zap.Field{
		zap.String("invocation_id", ictx.InvocationID),
		zap.String("operation", ictx.Operation),
	}
	if ictx.TraceID != "" {
		fields = append(fields, zap.String("trace_id", ictx.TraceID))
	}

	return logger.With(fields...)
}

// defaultSensitiveFields is the default set of field names that should be
// redacted in debug logging output.
var defaultSensitiveFields = map[string]bool{
	"password":      true,
	"secret":        true,
	"token":         true,
	"access_token":  true,
	"refresh_token": true,
	"api_key":       true,
	"apikey":        true,
	"authorization": true,
	"credentials":   true,
	"private_key":   true,
}

// RedactArguments returns a copy of args with sensitive fields replaced by
// "[REDACTED]", descending into nested objects and arrays. Workflow inputs
// and task outputs are free-form, so this runs on everything logged at
// debug level.
func RedactArguments(args map[string]any, sensitiveFields []string) map[string]any {
	if args == nil {
		return nil
	}

	redactSet := make(map[string]bool, len(defaultSensitiveFields)+len(sensitiveFields))
	for k, v := range defaultSensitiveFields {
		redactSet[k] = v
	}
	for _, f := range sensitiveFields {
		redactSet[f] = true
	}
	return redactMap(args, redactSet)
}

func redactMap(m map[string]any, redactSet map[string]bool) map[string]any {
	result := make(map[string]any, len(m))
	for k, v := range m {
		if redactSet[k] {
			result[k] = "[REDACTED]"
			continue
		}
		result[k] = redactValue(v, redactSet)
	}
	return result
}

func redactValue(v any, redactSet map[string]bool) any {
	switch t := v.(type) {
	case map[string]any:
		return redactMap(t, redactSet)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = redactValue(e, redactSet)
		}
		return out
	}
	return v
}
