package catalog

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/pitabwire/conductor-mcp/model"
)

// Input is the argument set of one invocation after defaults are applied.
// Absent optional arguments without a default are not present at all.
type Input struct {
	values map[string]any
}

// NewInput merges args with the parameter defaults declared in spec.
// Arguments not declared by spec are dropped.
func NewInput(spec model.OperationSpec, args map[string]any) Input {
	values := make(map[string]any, len(spec.Params))
	for _, p := range spec.Params {
		v, ok := args[p.Name]
		if !ok || model.IsAbsent(v) {
			if p.Default != nil {
				values[p.Name] = cloneDefault(p.Default)
			}
			continue
		}
		values[p.Name] = v
	}
	return Input{values: values}
}

// Has reports whether the parameter has a value.
func (in Input) Has(name string) bool {
	_, ok := in.values[name]
	return ok
}

// Value returns the raw value of the parameter, or nil.
func (in Input) Value(name string) any {
	return in.values[name]
}

// Bool returns the parameter as a boolean. Anything other than true is false.
func (in Input) Bool(name string) bool {
	b, _ := in.values[name].(bool)
	return b
}

// Text renders the parameter for use in a URL.
func (in Input) Text(name string) string {
	switch v := in.values[name].(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		return fmt.Sprint(v)
	}
}

// setQuery copies the parameter into q under key when it has a value.
func (in Input) setQuery(q url.Values, param, key string) {
	if in.Has(param) {
		q.Set(key, in.Text(param))
	}
}

// cloneDefault returns a fresh copy of container defaults so one
// invocation cannot mutate another's arguments.
func cloneDefault(v any) any {
	switch d := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(d))
		for k, e := range d {
			out[k] = e
		}
		return out
	case []any:
		return append([]any{}, d...)
	}
	return v
}
