package catalog

import (
	"fmt"

	"github.com/pitabwire/conductor-mcp/model"
)

// VError describes a single problem in the operation document.
type VError struct {
	Path    string `json:"path"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e VError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// validateDocument checks the parsed operations structurally and against
// the compiled-in OperationID set and bindings.
func validateDocument(specs []model.OperationSpec) []VError {
	var errs []VError

	known := make(map[string]OperationID, operationCount)
	for id := OperationID(0); id < operationCount; id++ {
		known[id.String()] = id
	}

	seen := make(map[string]bool, len(specs))
	for i, spec := range specs {
		prefix := fmt.Sprintf("operations[%d]", i)

		if spec.Name == "" {
			errs = append(errs, VError{Path: prefix + ".name", Code: "REQUIRED", Message: "name is required"})
			continue
		}
		if seen[spec.Name] {
			errs = append(errs, VError{Path: prefix + ".name", Code: "DUPLICATE", Message: fmt.Sprintf("operation %q is declared twice", spec.Name)})
			continue
		}
		seen[spec.Name] = true

		id, ok := known[spec.Name]
		if !ok {
			errs = append(errs, VError{Path: prefix + ".name", Code: "UNBOUND", Message: fmt.Sprintf("operation %q has no backend binding", spec.Name)})
			continue
		}
		if spec.Description == "" {
			errs = append(errs, VError{Path: prefix + ".description", Code: "REQUIRED", Message: "description is required"})
		}
		errs = append(errs, validateParams(prefix, spec)...)
		errs = append(errs, validateRoutes(prefix, spec, bindings[id])...)
	}

	for id := OperationID(0); id < operationCount; id++ {
		if !seen[id.String()] {
			errs = append(errs, VError{Path: "operations", Code: "MISSING", Message: fmt.Sprintf("operation %q is bound but not declared", id)})
		}
	}

	return errs
}

func validateParams(prefix string, spec model.OperationSpec) []VError {
	var errs []VError
	names := make(map[string]bool, len(spec.Params))

	for j, p := range spec.Params {
		pp := fmt.Sprintf("%s.params[%d]", prefix, j)

		if p.Name == "" {
			errs = append(errs, VError{Path: pp + ".name", Code: "REQUIRED", Message: "name is required"})
			continue
		}
		if names[p.Name] {
			errs = append(errs, VError{Path: pp + ".name", Code: "DUPLICATE", Message: fmt.Sprintf("parameter %q is declared twice", p.Name)})
		}
		names[p.Name] = true

		if !p.Type.Valid() {
			errs = append(errs, VError{Path: pp + ".type", Code: "INVALID_TYPE", Message: fmt.Sprintf("unsupported type %q", p.Type)})
			continue
		}
		if p.Identifier != model.IdentifierNone {
			if p.Type != model.ParamString {
				errs = append(errs, VError{Path: pp + ".identifier", Code: "INVALID_TYPE", Message: "identifiers must be strings"})
			}
			if p.Identifier != model.IdentifierExecution && p.Identifier != model.IdentifierName {
				errs = append(errs, VError{Path: pp + ".identifier", Code: "INVALID_VALUE", Message: fmt.Sprintf("unknown identifier kind %q", p.Identifier)})
			}
		}
		if len(p.AllowedValues) > 0 && p.Type != model.ParamString {
			errs = append(errs, VError{Path: pp + ".enum", Code: "INVALID_TYPE", Message: "enums are only supported on strings"})
		}
		if (p.Minimum != nil || p.Maximum != nil) && p.Type != model.ParamNumber {
			errs = append(errs, VError{Path: pp, Code: "INVALID_TYPE", Message: "bounds are only supported on numbers"})
		}
		if p.Minimum != nil && p.Maximum != nil && *p.Minimum > *p.Maximum {
			errs = append(errs, VError{Path: pp, Code: "INVALID_RANGE", Message: "minimum exceeds maximum"})
		}
		if p.Default != nil {
			if p.Required {
				errs = append(errs, VError{Path: pp + ".default", Code: "CONFLICT", Message: "required parameters cannot have a default"})
			}
			if !p.Type.Matches(p.Default) {
				errs = append(errs, VError{Path: pp + ".default", Code: "INVALID_TYPE", Message: fmt.Sprintf("default does not match type %s", p.Type)})
			} else if s, ok := p.Default.(string); ok && !p.Allows(s) {
				errs = append(errs, VError{Path: pp + ".default", Code: "INVALID_ENUM", Message: fmt.Sprintf("default %q is not an allowed value", s)})
			}
		}
	}

	return errs
}

// validateRoutes checks that every path placeholder names a parameter that
// is either required or only used by a route variant selected on presence.
func validateRoutes(prefix string, spec model.OperationSpec, b binding) []VError {
	var errs []VError
	if len(b.routes) == 0 || b.call == nil {
		return append(errs, VError{Path: prefix, Code: "UNBOUND", Message: "operation has no route"})
	}
	for i, r := range b.routes {
		for _, name := range placeholders(r.Template) {
			p, ok := spec.Param(name)
			switch {
			case !ok:
				errs = append(errs, VError{Path: prefix, Code: "UNKNOWN_PARAM", Message: fmt.Sprintf("route %s references undeclared parameter %q", r, name)})
			case i == 0 && !p.Required:
				errs = append(errs, VError{Path: prefix, Code: "OPTIONAL_PATH_PARAM", Message: fmt.Sprintf("primary route %s uses optional parameter %q", r, name)})
			}
		}
	}
	return errs
}
