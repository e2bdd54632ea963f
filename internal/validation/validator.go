// Package validation checks invocation arguments against an operation's
// parameter schema before anything is sent to the backend.
package validation

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/pitabwire/conductor-mcp/internal/catalog"
	"github.com/pitabwire/conductor-mcp/model"
)

// executionIDLength is the length of the canonical 8-4-4-4-12 form.
const executionIDLength = 36

// Result is the outcome of validating one argument set.
type Result struct {
	Violations []model.FieldError
}

// OK reports whether no violations were found.
func (r Result) OK() bool { return len(r.Violations) == 0 }

// Failure returns the violations as a ValidationFailure, or nil when r is OK.
func (r Result) Failure(operation string) model.Failure {
	if r.OK() {
		return nil
	}
	return model.ValidationFailure{Operation: operation, Violations: r.Violations}
}

// Validate checks args against spec. Arguments the spec does not declare are
// ignored. Null and empty-string values count as absent.
func Validate(spec model.OperationSpec, args map[string]any) Result {
	var res Result
	for _, p := range spec.Params {
		v, ok := args[p.Name]
		if !ok || model.IsAbsent(v) {
			if p.Required {
				res.add(p.Name, model.ViolationRequired, "is required")
			}
			continue
		}
		if fe, bad := checkParam(p, v); bad {
			res.Violations = append(res.Violations, fe)
		}
	}
	return res
}

// ValidateOperation runs Validate and then checks the supplied values
// against the operation's compiled input schema.
func ValidateOperation(op *catalog.Operation, args map[string]any) Result {
	res := Validate(op.Spec, args)
	if !res.OK() {
		return res
	}
	if err := op.ValidateSchema(Present(op.Spec, args)); err != nil {
		res.add("arguments", model.ViolationInvalidType, strings.TrimSpace(err.Error()))
	}
	return res
}

// Present returns the declared, non-absent arguments.
func Present(spec model.OperationSpec, args map[string]any) map[string]any {
	out := make(map[string]any, len(args))
	for _, p := range spec.Params {
		if v, ok := args[p.Name]; ok && !model.IsAbsent(v) {
			out[p.Name] = v
		}
	}
	return out
}

// IsExecutionID reports whether s is a canonical 8-4-4-4-12 hex identifier.
func IsExecutionID(s string) bool {
	if len(s) != executionIDLength {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}

func checkParam(p model.ParamSpec, v any) (model.FieldError, bool) {
	if !p.Type.Matches(v) {
		return violation(p.Name, model.ViolationInvalidType, fmt.Sprintf("must be a %s, got %s", p.Type, jsonKind(v)))
	}

	switch p.Type {
	case model.ParamString:
		s := v.(string)
		if !p.Allows(s) {
			return violation(p.Name, model.ViolationInvalidEnum, "must be one of "+strings.Join(p.AllowedValues, ", "))
		}
		switch p.Identifier {
		case model.IdentifierExecution:
			if !IsExecutionID(s) {
				return violation(p.Name, model.ViolationInvalidIdentifier,
					fmt.Sprintf("%q is not an execution ID (expected 8-4-4-4-12 hex form)", s))
			}
		case model.IdentifierName:
			if strings.TrimSpace(s) == "" {
				return violation(p.Name, model.ViolationBlankName, "must not be blank")
			}
		default:
			if p.Required && strings.TrimSpace(s) == "" {
				return violation(p.Name, model.ViolationRequired, "must not be blank")
			}
		}

	case model.ParamNumber:
		n := toFloat(v)
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return violation(p.Name, model.ViolationInvalidType, "must be a finite number")
		}
		if p.Minimum != nil && n < *p.Minimum {
			return violation(p.Name, model.ViolationOutOfRange, "must be at least "+formatNumber(*p.Minimum))
		}
		if p.Maximum != nil && n > *p.Maximum {
			return violation(p.Name, model.ViolationOutOfRange, "must be at most "+formatNumber(*p.Maximum))
		}
	}

	return model.FieldError{}, false
}

func (r *Result) add(field, code, msg string) {
	r.Violations = append(r.Violations, model.FieldError{Field: field, Code: code, Message: msg})
}

func violation(field, code, msg string) (model.FieldError, bool) {
	return model.FieldError{Field: field, Code: code, Message: msg}, true
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case json.Number:
		if f, err := n.Float64(); err == nil {
			return f
		}
	}
	return math.NaN()
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func jsonKind(v any) string {
	switch v.(type) {
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64, float32, int, int64, json.Number:
		return "number"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	}
	return fmt.Sprintf("%T", v)
}
