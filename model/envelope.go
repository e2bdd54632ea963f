package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ResultEnvelope is the only artifact returned for an invocation. Exactly
// one of the success side (Summary, Payload) and Error is populated.
type ResultEnvelope struct {
	Succeeded bool         `json:"succeeded"`
	Summary   string       `json:"summary,omitempty"`
	Payload   any          `json:"payload,omitempty"`
	Error     *ErrorReport `json:"error,omitempty"`
	// Confirmation marks a mutation result whose text rendering is the
	// summary line alone. Payload still holds the backend body.
	Confirmation bool `json:"confirmation,omitempty"`
}

// Succeed returns a succeeded envelope.
func Succeed(summary string, payload any) ResultEnvelope {
	return ResultEnvelope{Succeeded: true, Summary: summary, Payload: payload}
}

// Confirm returns a succeeded mutation envelope.
func Confirm(message string, payload any) ResultEnvelope {
	return ResultEnvelope{Succeeded: true, Summary: message, Payload: payload, Confirmation: true}
}

// Fail returns a failed envelope carrying the report.
func Fail(report ErrorReport) ResultEnvelope {
	return ResultEnvelope{Error: &report}
}

// Text renders the envelope as the caller-facing text block. Success is the
// summary followed by the pretty-printed payload; failure is a single
// "Error executing" line.
func (e ResultEnvelope) Text(operation string) string {
	if !e.Succeeded {
		msg := "unknown error"
		if e.Error != nil {
			msg = e.Error.Message
		}
		return fmt.Sprintf("Error executing %s: %s", operation, msg)
	}

	if e.Confirmation && e.Summary != "" {
		return e.Summary
	}

	var parts []string
	if e.Summary != "" {
		parts = append(parts, e.Summary)
	}
	if body := renderPayload(e.Payload); body != "" {
		parts = append(parts, body)
	}
	return strings.Join(parts, "\n\n")
}

func renderPayload(payload any) string {
	switch p := payload.(type) {
	case nil:
		return ""
	case string:
		return p
	}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", payload)
	}
	return string(data)
}
