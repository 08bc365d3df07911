// Package jsonschema holds the JSON Schema document model emitted by the
// schema compiler.
package jsonschema

import (
	"encoding/json"
)

// Schema is a JSON Schema (draft 2020-12) node.
type Schema struct {
	Ref    string `json:"$ref,omitempty"`
	Type   Types  `json:"type,omitempty"`
	Format string `json:"format,omitempty"`
	Enum   []any  `json:"enum,omitempty"`

	Description string `json:"description,omitempty"`
	Default     any    `json:"default,omitempty"`

	// Object
	Properties           map[string]*Schema `json:"properties,omitempty"`
	PatternProperties    map[string]*Schema `json:"patternProperties,omitempty"`
	Required             []string           `json:"required,omitempty"`
	AdditionalProperties *bool              `json:"additionalProperties,omitempty"`

	// Array
	Items *Schema `json:"items,omitempty"`

	// Union
	AnyOf []*Schema `json:"anyOf,omitempty"`

	Defs map[string]*Schema `json:"$defs,omitempty"`

	// PropertyOrder keeps the declaration order of Properties.
	PropertyOrder []string `json:"-"`
	// Nullable marks nodes that also admit null. It is applied by
	// ForValidation only, so emitted documents stay free of null alternatives.
	Nullable bool `json:"-"`
}

// Types is the "type" keyword: a single string when it holds one entry.
type Types []string

func (t Types) MarshalJSON() ([]byte, error) {
	if len(t) == 1 {
		return json.Marshal(t[0])
	}
	return json.Marshal([]string(t))
}

func (t *Types) UnmarshalJSON(b []byte) error {
	var one string
	if err := json.Unmarshal(b, &one); err == nil {
		*t = Types{one}
		return nil
	}
	var many []string
	if err := json.Unmarshal(b, &many); err != nil {
		return err
	}
	*t = many
	return nil
}

// Has reports whether name is one of the types.
func (t Types) Has(name string) bool {
	for _, s := range t {
		if s == name {
			return true
		}
	}
	return false
}

// Bool returns a pointer to b, for AdditionalProperties.
func Bool(b bool) *bool { return &b }

// Clone deep-copies the node tree. Default and Enum values are shared.
func (s *Schema) Clone() *Schema {
	if s == nil {
		return nil
	}
	c := *s
	c.Type = append(Types(nil), s.Type...)
	c.Enum = append([]any(nil), s.Enum...)
	c.Required = append([]string(nil), s.Required...)
	c.PropertyOrder = append([]string(nil), s.PropertyOrder...)
	if s.AdditionalProperties != nil {
		c.AdditionalProperties = Bool(*s.AdditionalProperties)
	}
	c.Properties = cloneMap(s.Properties)
	c.PatternProperties = cloneMap(s.PatternProperties)
	c.Defs = cloneMap(s.Defs)
	c.Items = s.Items.Clone()
	if s.AnyOf != nil {
		c.AnyOf = make([]*Schema, len(s.AnyOf))
		for i, a := range s.AnyOf {
			c.AnyOf[i] = a.Clone()
		}
	}
	return &c
}

func cloneMap(m map[string]*Schema) map[string]*Schema {
	if m == nil {
		return nil
	}
	out := make(map[string]*Schema, len(m))
	for k, v := range m {
		out[k] = v.Clone()
	}
	return out
}

// ForValidation returns a copy in which every Nullable node also accepts null.
func (s *Schema) ForValidation() *Schema {
	c := s.Clone()
	c.walk(func(n *Schema) *Schema {
		if !n.Nullable {
			return n
		}
		n.Nullable = false
		switch {
		case n.Ref != "" || (len(n.Type) == 0 && len(n.AnyOf) == 0 && n.Enum == nil):
			if n.Ref == "" {
				return n // empty schema admits null already
			}
			return &Schema{AnyOf: []*Schema{n, {Type: Types{"null"}}}}
		case len(n.AnyOf) > 0:
			n.AnyOf = append(n.AnyOf, &Schema{Type: Types{"null"}})
		default:
			if !n.Type.Has("null") {
				n.Type = append(n.Type, "null")
			}
			if n.Enum != nil {
				n.Enum = append(n.Enum, nil)
			}
		}
		return n
	})
	return c
}

// walk rewrites descendants bottom-up; the receiver itself is not replaced.
func (s *Schema) walk(fn func(*Schema) *Schema) {
	visit := func(n *Schema) *Schema {
		if n == nil {
			return nil
		}
		n.walk(fn)
		return fn(n)
	}
	for k, v := range s.Properties {
		s.Properties[k] = visit(v)
	}
	for k, v := range s.PatternProperties {
		s.PatternProperties[k] = visit(v)
	}
	for k, v := range s.Defs {
		s.Defs[k] = visit(v)
	}
	s.Items = visit(s.Items)
	for i, a := range s.AnyOf {
		s.AnyOf[i] = visit(a)
	}
}

// Map renders the schema as plain JSON-shaped maps.
func (s *Schema) Map() (map[string]any, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}
