// Package catalog holds the fixed set of Conductor operations exposed to
// callers: their parameter schemas, backend routes, and result shaping.
// The catalog is built once at startup and never changes afterwards.
package catalog

import (
	"bytes"
	"crypto/sha256"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"

	"github.com/pitabwire/conductor-mcp/model"
)

//go:embed operations.yaml
var operationsYAML []byte

// Operation is one catalog entry.
type Operation struct {
	ID   OperationID
	Spec model.OperationSpec

	schema   map[string]any
	compiled *jsonschema.Schema
	binding  binding
}

// Name returns the operation's public name.
func (o *Operation) Name() string { return o.Spec.Name }

// Routes returns the backend routes the operation may call. The first is
// the primary route.
func (o *Operation) Routes() []Route {
	return append([]Route(nil), o.binding.routes...)
}

// Mutation reports whether the operation changes backend state.
func (o *Operation) Mutation() bool { return o.binding.mutation() }

// InputSchema returns a copy of the JSON Schema describing the arguments.
func (o *Operation) InputSchema() map[string]any {
	return cloneSchema(o.schema)
}

// ValidateSchema checks present arguments against the compiled schema.
func (o *Operation) ValidateSchema(present map[string]any) error {
	return o.compiled.Validate(present)
}

// Bind builds the backend call for validated input.
func (o *Operation) Bind(in Input) model.BackendCall {
	call := o.binding.call(in)
	call.Operation = o.Spec.Name
	return call
}

// Result shapes a successful backend body into an envelope. Mutations get
// their confirmation line; some reads get a derived summary block.
func (o *Operation) Result(in Input, body any, now time.Time) model.ResultEnvelope {
	if o.binding.confirm != nil {
		return model.Confirm(o.binding.confirm(in, body), body)
	}
	var summary string
	if o.binding.summarize != nil {
		summary = o.binding.summarize(in, body, now)
	}
	return model.Succeed(summary, body)
}

// Catalog is the immutable operation registry.
type Catalog struct {
	ops      []*Operation
	byName   map[string]*Operation
	checksum string
}

// Load builds the catalog from the embedded operation document.
func Load() (*Catalog, error) {
	return Parse(operationsYAML)
}

// MustLoad is Load for callers that treat a broken catalog as a
// programming error.
func MustLoad() *Catalog {
	c, err := Load()
	if err != nil {
		panic(err)
	}
	return c
}

type document struct {
	Operations []model.OperationSpec `yaml:"operations"`
}

// Parse builds a catalog from an operation document. Every OperationID must
// appear exactly once and every entry must pass structural checks.
func Parse(data []byte) (*Catalog, error) {
	var doc document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("catalog: parsing operations: %w", err)
	}

	for i := range doc.Operations {
		for j := range doc.Operations[i].Params {
			p := &doc.Operations[i].Params[j]
			p.Default = normalizeDefault(p.Default)
		}
	}

	if verrs := validateDocument(doc.Operations); len(verrs) > 0 {
		msgs := make([]string, len(verrs))
		for i, e := range verrs {
			msgs[i] = e.Error()
		}
		return nil, fmt.Errorf("catalog: %d invalid entries: %s", len(verrs), strings.Join(msgs, "; "))
	}

	c := &Catalog{
		byName:   make(map[string]*Operation, len(doc.Operations)),
		checksum: fmt.Sprintf("%x", sha256.Sum256(data)),
	}
	ids := make(map[string]OperationID, operationCount)
	for id := OperationID(0); id < operationCount; id++ {
		ids[id.String()] = id
	}

	for _, spec := range doc.Operations {
		id := ids[spec.Name]
		schema := InputSchema(spec)
		compiled, err := compileSchema(spec.Name, schema)
		if err != nil {
			return nil, fmt.Errorf("catalog: %s: %w", spec.Name, err)
		}
		op := &Operation{
			ID:       id,
			Spec:     spec,
			schema:   schema,
			compiled: compiled,
			binding:  bindings[id],
		}
		c.ops = append(c.ops, op)
		c.byName[spec.Name] = op
	}

	return c, nil
}

// Lookup returns the operation with the given name.
func (c *Catalog) Lookup(name string) (*Operation, bool) {
	op, ok := c.byName[name]
	return op, ok
}

// Describe returns the operation specs in catalog order. The result is a
// copy; mutating it does not affect the catalog.
func (c *Catalog) Describe() []model.OperationSpec {
	specs := make([]model.OperationSpec, len(c.ops))
	for i, op := range c.ops {
		spec := op.Spec
		spec.Params = append([]model.ParamSpec(nil), op.Spec.Params...)
		for j := range spec.Params {
			spec.Params[j].AllowedValues = append([]string(nil), spec.Params[j].AllowedValues...)
		}
		specs[i] = spec
	}
	return specs
}

// Operations returns the operations in catalog order.
func (c *Catalog) Operations() []*Operation {
	return append([]*Operation(nil), c.ops...)
}

// Names returns the operation names in catalog order.
func (c *Catalog) Names() []string {
	names := make([]string, len(c.ops))
	for i, op := range c.ops {
		names[i] = op.Spec.Name
	}
	return names
}

// Len returns the number of operations.
func (c *Catalog) Len() int { return len(c.ops) }

// Checksum returns the SHA-256 of the operation document.
func (c *Catalog) Checksum() string { return c.checksum }

func compileSchema(name string, schema map[string]any) (*jsonschema.Schema, error) {
	raw, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("encoding input schema: %w", err)
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decoding input schema: %w", err)
	}

	url := name + ".json"
	comp := jsonschema.NewCompiler()
	if err := comp.AddResource(url, doc); err != nil {
		return nil, fmt.Errorf("adding schema resource: %w", err)
	}
	compiled, err := comp.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compiling input schema: %w", err)
	}
	return compiled, nil
}

// normalizeDefault converts YAML integers to float64 so defaults look the
// same as numbers decoded from JSON arguments.
func normalizeDefault(v any) any {
	switch d := v.(type) {
	case int:
		return float64(d)
	case int64:
		return float64(d)
	case uint64:
		return float64(d)
	case map[string]any:
		for k, e := range d {
			d[k] = normalizeDefault(e)
		}
		return d
	case []any:
		for i, e := range d {
			d[i] = normalizeDefault(e)
		}
		return d
	}
	return v
}
