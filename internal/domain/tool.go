package domain

// ParameterLocation identifies where an argument is placed on the upstream
// HTTP request.
type ParameterLocation string

const (
	LocationPath   ParameterLocation = "path"
	LocationQuery  ParameterLocation = "query"
	LocationHeader ParameterLocation = "header"
	LocationBody   ParameterLocation = "body"
)

// Parameter describes one input of a tool and how it maps onto the upstream
// request. Names are unique within a descriptor.
type Parameter struct {
	Name        string            `json:"name"`
	In          ParameterLocation `json:"in"`
	Type        string            `json:"type"`
	Required    bool              `json:"required"`
	Description string            `json:"description,omitempty"`
	Default     interface{}       `json:"default,omitempty"`
}

// ToolDescriptor is one callable unit derived from a single upstream API
// operation. The catalog owns exactly one descriptor per operation.
//
// Invariants (enforced by NewCatalog):
//   - Name is unique across the catalog.
//   - Parameter names are unique within the descriptor.
//   - Every {placeholder} in Path has a matching path-location parameter,
//     and vice versa.
//   - Tags is non-empty.
type ToolDescriptor struct {
	// Name is the stable identifier, derived from the HTTP method and path
	// (never from operationId, which churns across upstream releases).
	Name string `json:"name"`

	// Summary is a short human-readable description shown in discovery
	// results. The LLM picks tools based on this text.
	Summary string `json:"summary"`

	Method string `json:"method"`
	Path   string `json:"path"`

	Parameters []Parameter `json:"parameters,omitempty"`

	// InputSchema is the combined JSON Schema for all arguments
	// (path + query + body fields flattened into one object).
	InputSchema JSONSchemaProps `json:"input_schema"`

	// RequestBodySchema is the schema of the request body alone, when the
	// operation carries one. References are expanded at index-build time.
	RequestBodySchema *JSONSchemaProps `json:"request_body_schema,omitempty"`

	// ResponseSchema describes the shape of a successful response.
	// Optional; nil means the output is opaque.
	ResponseSchema *JSONSchemaProps `json:"response_schema,omitempty"`

	// Tags holds the category labels. At least one is always assigned.
	Tags []string `json:"tags"`

	Deprecated bool `json:"deprecated,omitempty"`
}

// PathParameters returns the parameters with path location, in declaration
// order.
func (d *ToolDescriptor) PathParameters() []Parameter {
	var out []Parameter
	for _, p := range d.Parameters {
		if p.In == LocationPath {
			out = append(out, p)
		}
	}
	return out
}

// Parameter returns the named parameter, if declared.
func (d *ToolDescriptor) Parameter(name string) (Parameter, bool) {
	for _, p := range d.Parameters {
		if p.Name == name {
			return p, true
		}
	}
	return Parameter{}, false
}

// HasTag reports whether the descriptor carries the tag, case-insensitively.
func (d *ToolDescriptor) HasTag(tag string) bool {
	norm := NormalizeTag(tag)
	for _, t := range d.Tags {
		if NormalizeTag(t) == norm {
			return true
		}
	}
	return false
}

// JSONSchemaProps is a JSON Schema fragment used for tool input and output
// definitions. Only the subset of JSON Schema the upstream documents actually
// use is modeled.
type JSONSchemaProps struct {
	Type        string                     `json:"type,omitempty"`
	Description string                     `json:"description,omitempty"`
	Properties  map[string]JSONSchemaProps `json:"properties,omitempty"`
	Required    []string                   `json:"required,omitempty"`
	Items       *JSONSchemaProps           `json:"items,omitempty"`
	Format      string                     `json:"format,omitempty"`
	Enum        []interface{}              `json:"enum,omitempty"`
	Default     interface{}                `json:"default,omitempty"`
	Nullable    bool                       `json:"nullable,omitempty"`
}

// TruncatedSchemaMarker is substituted for subtrees that exceed the reference
// expansion depth cap at index-build time. Cyclic reference graphs terminate
// here instead of erroring.
const TruncatedSchemaMarker = "schema truncated"

// TruncatedSchema returns the marker object used in place of an over-deep
// subtree.
func TruncatedSchema() *JSONSchemaProps {
	return &JSONSchemaProps{Description: TruncatedSchemaMarker}
}

// IsTruncated reports whether the fragment is a truncation marker.
func (s *JSONSchemaProps) IsTruncated() bool {
	return s != nil && s.Description == TruncatedSchemaMarker && s.Type == ""
}
