package model

import (
	"fmt"
	"strings"
)

// Category classifies every error report returned to a caller.
type Category string

// Error categories.
const (
	CategoryUnknownOperation  Category = "UNKNOWN_OPERATION"
	CategoryValidation        Category = "VALIDATION"
	CategoryNotFound          Category = "NOT_FOUND"
	CategoryBadRequest        Category = "BAD_REQUEST"
	CategoryServerError       Category = "SERVER_ERROR"
	CategoryUnavailable       Category = "UNAVAILABLE"
	CategoryConnectionRefused Category = "CONNECTION_REFUSED"
	CategoryTimeout           Category = "TIMEOUT"
	CategoryUnknown           Category = "UNKNOWN"
)

// Categories lists every category in a stable order.
func Categories() []Category {
	return []Category{
		CategoryUnknownOperation,
		CategoryValidation,
		CategoryNotFound,
		CategoryBadRequest,
		CategoryServerError,
		CategoryUnavailable,
		CategoryConnectionRefused,
		CategoryTimeout,
		CategoryUnknown,
	}
}

// Field violation codes.
const (
	ViolationRequired          = "REQUIRED"
	ViolationInvalidType       = "INVALID_TYPE"
	ViolationInvalidEnum       = "INVALID_ENUM"
	ViolationOutOfRange        = "OUT_OF_RANGE"
	ViolationInvalidIdentifier = "INVALID_IDENTIFIER"
	ViolationBlankName         = "BLANK_NAME"
)

// ErrorReport is the diagnostic returned for every failed invocation. It is
// built by the translate package only. It implements the error interface.
type ErrorReport struct {
	Category   Category `json:"category"`
	StatusCode int      `json:"status_code,omitempty"`
	Message    string   `json:"message"`
	Suggestion string   `json:"suggestion"`
}

// Error implements the error interface.
func (e *ErrorReport) Error() string {
	return fmt.Sprintf("%s: %s", e.Category, e.Message)
}

// FieldError describes a field-level validation error.
type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// String renders the violation as "field: message".
func (f FieldError) String() string {
	return f.Field + ": " + f.Message
}

// JoinFieldErrors renders violations on a single line.
func JoinFieldErrors(errs []FieldError) string {
	parts := make([]string, len(errs))
	for i, e := range errs {
		parts[i] = e.String()
	}
	return strings.Join(parts, "; ")
}
