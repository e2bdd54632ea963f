package catalog

import "github.com/pitabwire/conductor-mcp/model"

// executionIDPattern matches the canonical 8-4-4-4-12 hex form.
const executionIDPattern = `^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`

// InputSchema renders an operation's parameters as a JSON Schema object.
func InputSchema(spec model.OperationSpec) map[string]any {
	props := make(map[string]any, len(spec.Params))
	for _, p := range spec.Params {
		prop := map[string]any{"type": string(p.Type)}
		if p.Description != "" {
			prop["description"] = p.Description
		}
		if len(p.AllowedValues) > 0 {
			values := make([]any, len(p.AllowedValues))
			for i, v := range p.AllowedValues {
				values[i] = v
			}
			prop["enum"] = values
		}
		if p.Default != nil {
			prop["default"] = cloneDefault(p.Default)
		}
		if p.Minimum != nil {
			prop["minimum"] = *p.Minimum
		}
		if p.Maximum != nil {
			prop["maximum"] = *p.Maximum
		}
		switch p.Identifier {
		case model.IdentifierExecution:
			prop["pattern"] = executionIDPattern
		case model.IdentifierName:
			prop["minLength"] = 1
			prop["pattern"] = `\S`
		}
		props[p.Name] = prop
	}

	schema := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if req := spec.Required(); len(req) > 0 {
		required := make([]any, len(req))
		for i, r := range req {
			required[i] = r
		}
		schema["required"] = required
	}
	return schema
}

func cloneSchema(s map[string]any) map[string]any {
	out := make(map[string]any, len(s))
	for k, v := range s {
		switch t := v.(type) {
		case map[string]any:
			out[k] = cloneSchema(t)
		case []any:
			out[k] = append([]any(nil), t...)
		default:
			out[k] = v
		}
	}
	return out
}
