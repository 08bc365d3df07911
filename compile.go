package typedconf

import (
	"fmt"
	"reflect"

	"github.com/reoring/typedconf/codec"
	js "github.com/reoring/typedconf/jsonschema"
)

// Compile returns the JSON Schema document of a record type. allowAdditional,
// when non-nil, overrides every record's AllowAdditional option, nested
// records included. Results are cached per (type, override).
func (r *Registry) Compile(t reflect.Type, allowAdditional *bool) (*js.Schema, error) {
	t = deref(t)
	key := schemaKey{t: t, override: overrideKey(allowAdditional)}
	r.mu.RLock()
	s, ok := r.schemas[key]
	r.mu.RUnlock()
	if ok {
		return s, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.schemas[key]; ok {
		return s, nil
	}
	rt, err := r.introspectLocked(t)
	if err != nil {
		return nil, err
	}
	c := &compiler{
		reg:       r,
		override:  allowAdditional,
		active:    map[reflect.Type]bool{},
		recursive: map[reflect.Type]bool{},
		nodes:     map[reflect.Type]*js.Schema{},
		defs:      map[string]*js.Schema{},
	}
	root, err := c.record(rt)
	if err != nil {
		return nil, err
	}
	if len(c.defs) > 0 {
		root.Defs = c.defs
	}
	if sc, ok := r.validator.(SchemaChecker); ok {
		if err := sc.CheckSchema(root); err != nil {
			return nil, &InternalSchemaError{Type: rt.Name, Cause: err}
		}
	}
	r.schemas[key] = root
	r.logger.Debug().Str("type", rt.Name).Int("defs", len(c.defs)).Msg("schema compiled")
	return root, nil
}

// SchemaFor is the typed form of Registry.Compile.
func SchemaFor[T any](r *Registry, allowAdditional *bool) (*js.Schema, error) {
	return r.Compile(reflect.TypeFor[T](), allowAdditional)
}

func overrideKey(b *bool) int8 {
	switch {
	case b == nil:
		return 0
	case *b:
		return 1
	default:
		return -1
	}
}

type compiler struct {
	reg       *Registry
	override  *bool
	active    map[reflect.Type]bool
	recursive map[reflect.Type]bool
	nodes     map[reflect.Type]*js.Schema
	defs      map[string]*js.Schema
}

func (c *compiler) record(rt *RecordType) (*js.Schema, error) {
	t := rt.GoType
	if c.active[t] {
		c.recursive[t] = true
		return &js.Schema{Ref: "#/$defs/" + c.reg.defNameLocked(t)}, nil
	}
	if cached, ok := c.reg.schemas[schemaKey{t: t, override: overrideKey(c.override)}]; ok {
		for name, d := range cached.Defs {
			c.defs[name] = d
		}
		cp := *cached
		cp.Defs = nil
		return &cp, nil
	}

	c.active[t] = true
	defer delete(c.active, t)

	allow := rt.Options.AllowAdditional
	if c.override != nil {
		allow = *c.override
	}
	node := &js.Schema{
		Type:                 js.Types{"object"},
		Properties:           map[string]*js.Schema{},
		AdditionalProperties: js.Bool(allow),
		Description:          rt.Options.Doc,
	}
	c.nodes[t] = node
	for _, f := range rt.Fields {
		p, err := c.fieldType(rt, f, f.Type)
		if err != nil {
			return nil, err
		}
		if f.Required() {
			node.Required = append(node.Required, f.Key())
		}
		node.Properties[f.Key()] = p
		node.PropertyOrder = append(node.PropertyOrder, f.Key())
	}
	if c.recursive[t] {
		def := *node
		c.defs[c.reg.defNameLocked(t)] = &def
		return &js.Schema{Ref: "#/$defs/" + c.reg.defNameLocked(t)}, nil
	}
	return node, nil
}

func (c *compiler) fieldType(owner *RecordType, f *Field, t *FieldType) (*js.Schema, error) {
	fail := func(format string, args ...any) error {
		return &CompileError{Type: owner.Name, Field: f.Name, Reason: fmt.Sprintf(format, args...)}
	}
	switch t.Kind {
	case KindString, KindInteger, KindNumber, KindBoolean, KindNull:
		return &js.Schema{Type: js.Types{t.Kind.String()}}, nil
	case KindAny:
		return &js.Schema{}, nil
	case KindOpaque:
		oc, _ := codec.Lookup(t.GoType)
		return &js.Schema{Type: js.Types{"string"}, Format: oc.Format()}, nil
	case KindLiteral:
		types, err := literalTypes(t.Values)
		if err != nil {
			return nil, fail("%v", err)
		}
		return &js.Schema{Type: types, Enum: append([]any(nil), t.Values...)}, nil
	case KindOptional:
		inner, err := c.fieldType(owner, f, t.Elem)
		if err != nil {
			return nil, err
		}
		n := *inner
		n.Nullable = true
		return &n, nil
	case KindUnion:
		if len(t.Alternatives) == 0 {
			return nil, fail("empty union")
		}
		var alts []*js.Schema
		for _, a := range t.Alternatives {
			s, err := c.fieldType(owner, f, a)
			if err != nil {
				return nil, err
			}
			alts = append(alts, s)
		}
		if len(alts) == 1 {
			return alts[0], nil
		}
		return &js.Schema{AnyOf: alts}, nil
	case KindSequence:
		items, err := c.fieldType(owner, f, t.Elem)
		if err != nil {
			return nil, err
		}
		return &js.Schema{Type: js.Types{"array"}, Items: items}, nil
	case KindMapping:
		if t.Key.Kind() != reflect.String {
			return nil, fail("mapping keys must be strings, got %s", t.Key)
		}
		v, err := c.fieldType(owner, f, t.Elem)
		if err != nil {
			return nil, err
		}
		return &js.Schema{Type: js.Types{"object"}, PatternProperties: map[string]*js.Schema{".*": v}}, nil
	case KindRecord:
		return c.record(t.Record)
	}
	return nil, fail("unsupported kind %s", t.Kind)
}

// literalTypes infers the JSON types of a literal set.
func literalTypes(values []any) (js.Types, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("empty literal set")
	}
	var out js.Types
	add := func(name string) {
		if !out.Has(name) {
			out = append(out, name)
		}
	}
	for _, v := range values {
		switch v.(type) {
		case nil:
			add("null")
		case bool:
			add("boolean")
		case string:
			add("string")
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
			add("integer")
		case float32, float64:
			add("number")
		default:
			rv := reflect.ValueOf(v)
			switch rv.Kind() {
			case reflect.String:
				add("string")
			case reflect.Bool:
				add("boolean")
			case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
				reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
				add("integer")
			case reflect.Float32, reflect.Float64:
				add("number")
			default:
				return nil, fmt.Errorf("unsupported literal %v (%T)", v, v)
			}
		}
	}
	return out, nil
}
