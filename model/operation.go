package model

import "encoding/json"

// ParamType is the JSON type of an operation parameter.
type ParamType string

// Supported parameter types.
const (
	ParamString  ParamType = "string"
	ParamNumber  ParamType = "number"
	ParamBoolean ParamType = "boolean"
	ParamObject  ParamType = "object"
	ParamArray   ParamType = "array"
)

// Valid reports whether t is one of the supported parameter types.
func (t ParamType) Valid() bool {
	switch t {
	case ParamString, ParamNumber, ParamBoolean, ParamObject, ParamArray:
		return true
	}
	return false
}

// IdentifierKind marks string parameters that carry semantic identifier
// constraints beyond their JSON type.
type IdentifierKind string

const (
	// IdentifierNone is a plain parameter.
	IdentifierNone IdentifierKind = ""
	// IdentifierExecution is a workflow or task execution ID in the canonical
	// 8-4-4-4-12 hex form.
	IdentifierExecution IdentifierKind = "execution"
	// IdentifierName is a definition name used as a primary key. It must be
	// non-empty after trimming whitespace.
	IdentifierName IdentifierKind = "name"
)

// ParamSpec describes a single named operation parameter.
type ParamSpec struct {
	Name          string         `yaml:"name" json:"name"`
	Type          ParamType      `yaml:"type" json:"type"`
	Description   string         `yaml:"description" json:"description,omitempty"`
	Required      bool           `yaml:"required" json:"required,omitempty"`
	AllowedValues []string       `yaml:"enum" json:"enum,omitempty"`
	Identifier    IdentifierKind `yaml:"identifier" json:"identifier,omitempty"`
	Default       any            `yaml:"default" json:"default,omitempty"`
	Minimum       *float64       `yaml:"minimum" json:"minimum,omitempty"`
	Maximum       *float64       `yaml:"maximum" json:"maximum,omitempty"`
}

// Allows reports whether v is in the parameter's allowed set. A parameter
// without an allowed set accepts any value.
func (p ParamSpec) Allows(v string) bool {
	if len(p.AllowedValues) == 0 {
		return true
	}
	for _, a := range p.AllowedValues {
		if a == v {
			return true
		}
	}
	return false
}

// OperationSpec is the immutable description of one catalog operation.
type OperationSpec struct {
	Name        string      `yaml:"name" json:"name"`
	Description string      `yaml:"description" json:"description"`
	Params      []ParamSpec `yaml:"params" json:"params"`
}

// Param returns the parameter with the given name.
func (s OperationSpec) Param(name string) (ParamSpec, bool) {
	for _, p := range s.Params {
		if p.Name == name {
			return p, true
		}
	}
	return ParamSpec{}, false
}

// Required returns the names of all required parameters, in declaration order.
func (s OperationSpec) Required() []string {
	var names []string
	for _, p := range s.Params {
		if p.Required {
			names = append(names, p.Name)
		}
	}
	return names
}

// IsAbsent reports whether an argument value counts as not supplied. Null
// and the empty string are treated the same as a missing key.
func IsAbsent(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	}
	return false
}

// Matches reports whether v has the JSON shape of t as produced by
// encoding/json decoding into an interface value, with or without
// UseNumber.
func (t ParamType) Matches(v any) bool {
	switch t {
	case ParamString:
		_, ok := v.(string)
		return ok
	case ParamNumber:
		switch n := v.(type) {
		case float64, float32, int, int64:
			return true
		case json.Number:
			_, err := n.Float64()
			return err == nil
		}
		return false
	case ParamBoolean:
		_, ok := v.(bool)
		return ok
	case ParamObject:
		_, ok := v.(map[string]any)
		return ok
	case ParamArray:
		_, ok := v.([]any)
		return ok
	}
	return false
}
