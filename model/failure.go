package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Failure is the closed set of reasons an invocation can fail. Transport
// variants are built at the gateway boundary, local variants by the
// dispatcher before any backend call.
type Failure interface {
	error
	failure()
}

// HTTPStatusFailure is a non-2xx backend response.
type HTTPStatusFailure struct {
	StatusCode int
	// Message is the server-supplied message, or the status text when the
	// server sent none.
	Message string
	Body    string
}

func (f HTTPStatusFailure) Error() string {
	return fmt.Sprintf("backend returned %d: %s", f.StatusCode, f.Message)
}

// ConnectionRefusedFailure means the configured endpoint refused the TCP
// connection.
type ConnectionRefusedFailure struct {
	Endpoint string
}

func (f ConnectionRefusedFailure) Error() string {
	return "connection refused by " + f.Endpoint
}

// TimeoutFailure means the call exceeded its timeout budget.
type TimeoutFailure struct {
	Budget time.Duration
}

func (f TimeoutFailure) Error() string {
	return fmt.Sprintf("request exceeded the %s timeout budget", f.Budget)
}

// OtherFailure is any transport failure without a dedicated variant.
type OtherFailure struct {
	Message string
}

func (f OtherFailure) Error() string {
	return f.Message
}

// UnknownOperationFailure is raised for names absent from the catalog.
type UnknownOperationFailure struct {
	Name  string
	Known []string
}

func (f UnknownOperationFailure) Error() string {
	return fmt.Sprintf("unknown operation %q", f.Name)
}

// ValidationFailure carries argument violations found before dispatch.
type ValidationFailure struct {
	Operation  string
	Violations []FieldError
}

func (f ValidationFailure) Error() string {
	return fmt.Sprintf("invalid arguments for %s: %s", f.Operation, JoinFieldErrors(f.Violations))
}

func (HTTPStatusFailure) failure()        {}
func (ConnectionRefusedFailure) failure() {}
func (TimeoutFailure) failure()           {}
func (OtherFailure) failure()             {}
func (UnknownOperationFailure) failure()  {}
func (ValidationFailure) failure()        {}

// AsFailure returns err as a Failure, wrapping anything outside the closed
// set in OtherFailure. It returns nil for a nil error.
func AsFailure(err error) Failure {
	if err == nil {
		return nil
	}
	var f Failure
	if errors.As(err, &f) {
		return f
	}
	return OtherFailure{Message: strings.TrimSpace(err.Error())}
}
