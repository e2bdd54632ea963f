package model

import "context"

// InvocationContext carries identity and tracing information for one
// invocation. It is immutable after construction and safe for concurrent
// reads.
type InvocationContext struct {
	InvocationID string
	Operation    string
	TraceID      string
}

type contextKey struct{}

// WithInvocationContext attaches an InvocationContext to the given context.
func WithInvocationContext(ctx context.Context, ictx *InvocationContext) context.Context {
	return context.WithValue(ctx, contextKey{}, ictx)
}

// InvocationContextFrom extracts the InvocationContext from the context, or
// returns nil if not present.
func InvocationContextFrom(ctx context.Context) *InvocationContext {
	ictx, _ := ctx.Value(contextKey{}).(*InvocationContext)
	return ictx
}
