// Package gateway performs single-shot HTTP calls against the Conductor REST
// API and classifies every outcome into a model.Failure.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/pitabwire/conductor-mcp/internal/config"
	"github.com/pitabwire/conductor-mcp/internal/observability"
	"github.com/pitabwire/conductor-mcp/model"
)

const (
	defaultTimeout   = 30 * time.Second
	maxResponseBytes = 10 << 20 // 10MB
	maxMessageRunes  = 512
	acceptHeader     = "application/json, text/plain, */*"
	healthPath       = "/health"
)

// DefaultUserAgent is sent on every request unless overridden.
var DefaultUserAgent = "conductor-mcp/" + observability.Version

// Option configures a Gateway.
type Option func(*Gateway)

// WithLogger sets the logger used for request logging.
func WithLogger(l *zap.Logger) Option {
	return func(g *Gateway) { g.logger = l }
}

// WithMetrics sets the metrics instruments. A nil value disables recording.
func WithMetrics(m *observability.Metrics) Option {
	return func(g *Gateway) { g.metrics = m }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(g *Gateway) { g.client = c }
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(g *Gateway) { g.userAgent = ua }
}

// Gateway sends exactly one HTTP request per call. It never retries: a
// failed mutation must not be replayed behind the caller's back.
type Gateway struct {
	baseURL   string
	endpoint  string
	timeout   time.Duration
	client    *http.Client
	limiter   *rate.Limiter
	logger    *zap.Logger
	metrics   *observability.Metrics
	userAgent string
}

var _ model.Gateway = (*Gateway)(nil)

// New creates a Gateway for the configured Conductor server.
func New(cfg config.BackendConfig, opts ...Option) *Gateway {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	g := &Gateway{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		endpoint: cfg.Endpoint(),
		timeout:  timeout,
		client: &http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        100,
				MaxConnsPerHost:     50,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		logger:    zap.NewNop(),
		userAgent: DefaultUserAgent,
	}

	if rps := cfg.RateLimit.RequestsPerSecond; rps > 0 {
		burst := cfg.RateLimit.Burst
		if burst <= 0 {
			burst = int(math.Ceil(rps))
		}
		g.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}

	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Endpoint returns the API root every call path is appended to.
func (g *Gateway) Endpoint() string {
	return g.endpoint
}

// Timeout returns the per-call budget.
func (g *Gateway) Timeout() time.Duration {
	return g.timeout
}

// Send performs the call. Every non-nil error is a model.Failure.
func (g *Gateway) Send(ctx context.Context, call model.BackendCall) (model.RawPayload, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	ctx, span := observability.StartClientSpan(ctx, call.Method, call.Path)
	payload, err := g.send(ctx, call)
	if payload.StatusCode != 0 {
		observability.SetHTTPStatus(span, payload.StatusCode)
	} else {
		var hf model.HTTPStatusFailure
		if errors.As(err, &hf) {
			observability.SetHTTPStatus(span, hf.StatusCode)
		}
	}
	observability.EndSpanWithError(span, err)
	return payload, err
}

func (g *Gateway) send(ctx context.Context, call model.BackendCall) (model.RawPayload, error) {
	logger := observability.InvocationLogger(ctx, g.logger).With(
		zap.String("method", call.Method),
		zap.String("path", call.Path),
	)

	if err := g.wait(ctx); err != nil {
		f := g.classify(err)
		logger.Warn("rate limiter wait failed", zap.Error(f))
		return model.RawPayload{}, f
	}

	req, err := g.newRequest(ctx, call)
	if err != nil {
		return model.RawPayload{}, model.OtherFailure{Message: err.Error()}
	}

	logger.Debug("sending backend request")
	start := time.Now()
	resp, err := g.client.Do(req)
	if err != nil {
		f := g.classify(err)
		g.metrics.RecordBackendRequest(call.Operation, call.Method, statusLabel(f), time.Since(start))
		logger.Error("backend request failed", zap.Error(f))
		return model.RawPayload{}, f
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	elapsed := time.Since(start)
	g.metrics.RecordBackendRequest(call.Operation, call.Method, strconv.Itoa(resp.StatusCode), elapsed)
	if err != nil {
		f := g.classify(err)
		logger.Error("reading backend response failed", zap.Error(f))
		return model.RawPayload{}, f
	}
	oversized := len(raw) > maxResponseBytes
	if oversized {
		raw = raw[:maxResponseBytes]
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		f := statusFailure(resp.StatusCode, raw)
		if resp.StatusCode >= 500 {
			logger.Error("backend returned server error",
				zap.Int("status", resp.StatusCode),
				zap.String("message", f.Message),
			)
		} else {
			logger.Warn("backend rejected request",
				zap.Int("status", resp.StatusCode),
				zap.String("message", f.Message),
			)
		}
		return model.RawPayload{}, f
	}

	// Success payloads are never partial.
	if oversized {
		f := model.OtherFailure{Message: fmt.Sprintf("response body exceeds the %d MiB limit", maxResponseBytes>>20)}
		logger.Error("backend response too large", zap.Int("status", resp.StatusCode))
		return model.RawPayload{}, f
	}

	logger.Debug("backend request completed",
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", elapsed),
	)
	return model.RawPayload{StatusCode: resp.StatusCode, Body: decodeBody(raw)}, nil
}

// HealthCheck reports whether the Conductor server answers its health
// endpoint. Any response below 500 counts as reachable.
func (g *Gateway) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+healthPath, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", acceptHeader)
	req.Header.Set("User-Agent", g.userAgent)

	resp, err := g.client.Do(req)
	if err != nil {
		return g.classify(err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))

	if resp.StatusCode >= 500 {
		return statusFailure(resp.StatusCode, nil)
	}
	return nil
}

func (g *Gateway) wait(ctx context.Context) error {
	if g.limiter == nil {
		return nil
	}
	if g.limiter.Tokens() < 1 {
		g.metrics.RecordBackendThrottled()
	}
	err := g.limiter.Wait(ctx)
	if err == nil {
		return nil
	}
	// Wait fails early when the next token lies beyond the call deadline.
	if _, ok := ctx.Deadline(); ok {
		if cerr := ctx.Err(); cerr == nil || errors.Is(cerr, context.DeadlineExceeded) {
			return model.TimeoutFailure{Budget: g.timeout}
		}
	}
	return err
}

func (g *Gateway) newRequest(ctx context.Context, call model.BackendCall) (*http.Request, error) {
	target := g.endpoint + call.Path
	if len(call.Query) > 0 {
		target += "?" + call.Query.Encode()
	}

	var body io.Reader
	if call.Body != nil {
		data, err := json.Marshal(call.Body)
		if err != nil {
			return nil, fmt.Errorf("gateway: marshal body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, call.Method, target, body)
	if err != nil {
		return nil, fmt.Errorf("gateway: build request: %w", err)
	}
	req.Header.Set("Accept", acceptHeader)
	req.Header.Set("User-Agent", g.userAgent)
	if call.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	observability.InjectTraceHeaders(ctx, req.Header)
	return req, nil
}

// classify maps a transport error to its Failure variant.
func (g *Gateway) classify(err error) model.Failure {
	var f model.Failure
	if errors.As(err, &f) {
		return f
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return model.ConnectionRefusedFailure{Endpoint: g.endpoint}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return model.TimeoutFailure{Budget: g.timeout}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return model.TimeoutFailure{Budget: g.timeout}
	}
	if errors.Is(err, context.Canceled) {
		return model.OtherFailure{Message: "request canceled"}
	}
	return model.OtherFailure{Message: strings.TrimSpace(err.Error())}
}

func statusLabel(f model.Failure) string {
	switch f.(type) {
	case model.ConnectionRefusedFailure:
		return observability.BackendStatusRefused
	case model.TimeoutFailure:
		return observability.BackendStatusTimeout
	}
	return observability.BackendStatusError
}

// statusFailure builds the failure for a non-2xx response. The message is
// the server's "message" field when present, else the trimmed body text,
// else the status text.
func statusFailure(status int, raw []byte) model.HTTPStatusFailure {
	text := strings.TrimSpace(string(raw))
	f := model.HTTPStatusFailure{StatusCode: status, Body: text}

	var envelope struct {
		Message string `json:"message"`
	}
	switch {
	case json.Unmarshal(raw, &envelope) == nil && strings.TrimSpace(envelope.Message) != "":
		f.Message = strings.TrimSpace(envelope.Message)
	case text != "" && !strings.HasPrefix(text, "{"):
		f.Message = truncate(text, maxMessageRunes)
	default:
		f.Message = http.StatusText(status)
	}
	if f.Message == "" {
		f.Message = "HTTP " + strconv.Itoa(status)
	}
	return f
}

// decodeBody returns decoded JSON, or the trimmed text when the body is not
// JSON, or nil when it is empty.
func decodeBody(raw []byte) any {
	text := strings.TrimSpace(string(raw))
	if text == "" {
		return nil
	}
	var parsed any
	if err := json.Unmarshal([]byte(text), &parsed); err == nil {
		return parsed
	}
	return text
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
