// Package translate turns invocation failures into caller-facing error
// reports. Translation is pure: the same failure always yields the same
// report.
package translate

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/pitabwire/conductor-mcp/model"
)

// indexMarkers are substrings Conductor includes in 500 responses when its
// search index (Elasticsearch or OpenSearch) is missing or unhealthy.
var indexMarkers = []string{
	"elasticsearch",
	"opensearch",
	"indexdao",
	"search index",
	"index_not_found",
	"no such index",
}

// Suggestions are constants so tests can assert on category without
// depending on exact prose.
const (
	suggestNotFound    = "Verify the workflow/task ID or definition name is correct; list_workflows, search_workflows and list_workflow_definitions show what exists."
	suggestBadRequest  = "Check the input parameters against the operation's schema; the server rejected them."
	suggestSearchIndex = "The server's search index is unavailable. Use list_running_workflows (or get_workflow_status with a known ID), which read from the execution store directly."
	suggestServerError = "The Conductor server failed while handling the request. Check its logs; the request itself may be valid."
	suggestUnavailable = "The Conductor server is temporarily unavailable and may be restarting. Wait a moment and try again."
	suggestTimeout     = "The Conductor server is slow or unresponsive. Check its health and load, or raise CONDUCTOR_TIMEOUT."
	suggestUnknown     = "No specific guidance for this failure; the raw message is shown as received."
	suggestInvalidID   = "Execution IDs use the 8-4-4-4-12 hex form, e.g. a1b2c3d4-e5f6-7890-abcd-ef1234567890. Copy them from list_workflows or search_workflows results."
	suggestInvalidArgs = "Fix the listed arguments; the tool's input schema shows each parameter's type and allowed values."
)

const maxListedOperations = 25

// Translate maps a failure onto exactly one error category.
func Translate(f model.Failure) model.ErrorReport {
	switch v := f.(type) {
	case model.UnknownOperationFailure:
		return report(model.CategoryUnknownOperation, 0, fmt.Sprintf("unknown operation %q", v.Name), operationsSuggestion(v.Known))

	case model.ValidationFailure:
		suggestion := suggestInvalidArgs
		for _, fe := range v.Violations {
			if fe.Code == model.ViolationInvalidIdentifier {
				suggestion = suggestInvalidID
				break
			}
		}
		return report(model.CategoryValidation, 0, "invalid arguments: "+model.JoinFieldErrors(v.Violations), suggestion)

	case model.HTTPStatusFailure:
		return translateStatus(v)

	case model.ConnectionRefusedFailure:
		return report(model.CategoryConnectionRefused, 0,
			"connection refused by "+v.Endpoint,
			fmt.Sprintf("Verify the Conductor server is running and reachable at %s, or point CONDUCTOR_SERVER_URL at the right host.", v.Endpoint))

	case model.TimeoutFailure:
		return report(model.CategoryTimeout, 0, v.Error(), suggestTimeout)

	case model.OtherFailure:
		return report(model.CategoryUnknown, 0, v.Message, suggestUnknown)

	case nil:
		return report(model.CategoryUnknown, 0, "unknown error", suggestUnknown)
	}

	return report(model.CategoryUnknown, 0, f.Error(), suggestUnknown)
}

func translateStatus(f model.HTTPStatusFailure) model.ErrorReport {
	detail := f.Message
	if detail == "" {
		detail = http.StatusText(f.StatusCode)
	}

	switch f.StatusCode {
	case http.StatusNotFound:
		return report(model.CategoryNotFound, f.StatusCode, detail, suggestNotFound)
	case http.StatusBadRequest:
		return report(model.CategoryBadRequest, f.StatusCode, detail, suggestBadRequest)
	case http.StatusInternalServerError:
		if mentionsSearchIndex(f.Message) || mentionsSearchIndex(f.Body) {
			return report(model.CategoryServerError, f.StatusCode, detail, suggestSearchIndex)
		}
		return report(model.CategoryServerError, f.StatusCode, detail, suggestServerError)
	case http.StatusServiceUnavailable:
		return report(model.CategoryUnavailable, f.StatusCode, detail, suggestUnavailable)
	}
	return report(model.CategoryUnknown, f.StatusCode, detail, suggestUnknown)
}

func mentionsSearchIndex(s string) bool {
	s = strings.ToLower(s)
	for _, m := range indexMarkers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}

func operationsSuggestion(known []string) string {
	if len(known) == 0 {
		return "List the server's tools to see the available operations."
	}
	names := known
	more := ""
	if len(names) > maxListedOperations {
		more = fmt.Sprintf(" (and %d more)", len(names)-maxListedOperations)
		names = names[:maxListedOperations]
	}
	return "Call one of the available operations: " + strings.Join(names, ", ") + more + "."
}

// report builds the single-line message:
//
//	[CATEGORY] (HTTP 404) detail. Suggestion: ...
func report(c model.Category, status int, detail, suggestion string) model.ErrorReport {
	var b strings.Builder
	b.WriteString("[")
	b.WriteString(string(c))
	b.WriteString("]")
	if status != 0 {
		fmt.Fprintf(&b, " (HTTP %d)", status)
	}
	if detail = oneLine(detail); detail != "" {
		b.WriteString(" ")
		b.WriteString(strings.TrimRight(detail, "."))
		b.WriteString(".")
	}
	b.WriteString(" Suggestion: ")
	b.WriteString(suggestion)

	return model.ErrorReport{
		Category:   c,
		StatusCode: status,
		Message:    b.String(),
		Suggestion: suggestion,
	}
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
