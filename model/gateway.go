package model

import (
	"context"
	"net/url"
)

// Gateway is the single-shot interface to the Conductor REST API.
type Gateway interface {
	// Send performs exactly one HTTP request for the call. A non-nil error
	// is always a Failure.
	Send(ctx context.Context, call BackendCall) (RawPayload, error)
}

// BackendCall is the HTTP request derived from an invocation.
type BackendCall struct {
	// Operation is the catalog operation that produced the call. It is used
	// for low-cardinality metric labels and log fields only.
	Operation string
	Method    string
	// Path is relative to the API root, with identifiers already escaped
	// and interpolated.
	Path  string
	Query url.Values
	Body  any
}

// RawPayload is a successful backend response. Body holds decoded JSON when
// the response parsed as JSON, the trimmed text otherwise, and nil for an
// empty body.
type RawPayload struct {
	StatusCode int
	Body       any
}
