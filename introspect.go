package typedconf

import (
	"fmt"
	"reflect"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/reoring/typedconf/codec"
)

var (
	defaulterType = reflect.TypeFor[Defaulter]()
	enumType      = reflect.TypeFor[Enum]()
)

// Introspect returns the descriptor of a struct type (pointers are
// dereferenced). Self-referential types terminate: a record reached again
// while it is being resolved is returned in its partially built form.
func (r *Registry) Introspect(t reflect.Type) (*RecordType, error) {
	r.mu.RLock()
	rt, ok := r.records[deref(t)]
	r.mu.RUnlock()
	if ok {
		return rt, nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.introspectLocked(t)
}

// IntrospectFor is the typed form of Registry.Introspect.
func IntrospectFor[T any](r *Registry) (*RecordType, error) {
	return r.Introspect(reflect.TypeFor[T]())
}

func deref(t reflect.Type) reflect.Type {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

func (r *Registry) introspectLocked(t reflect.Type) (*RecordType, error) {
	t = deref(t)
	if t == nil || t.Kind() != reflect.Struct {
		return nil, &IntrospectError{Type: fmt.Sprint(t), Reason: "not a record type"}
	}
	if rt, ok := r.records[t]; ok {
		return rt, nil
	}
	in := &introspector{reg: r, pending: map[reflect.Type]*RecordType{}}
	rt, err := in.record(t)
	if err != nil {
		return nil, err
	}
	// Commit only complete results.
	for k, v := range in.pending {
		r.records[k] = v
	}
	return rt, nil
}

type introspector struct {
	reg     *Registry
	pending map[reflect.Type]*RecordType
}

func (in *introspector) record(t reflect.Type) (*RecordType, error) {
	if rt, ok := in.reg.records[t]; ok {
		return rt, nil
	}
	if rt, ok := in.pending[t]; ok {
		return rt, nil
	}
	rt := &RecordType{
		Name:    t.Name(),
		GoType:  t,
		Options: in.reg.typeOptionsLocked(t),
		byName:  map[string]*Field{},
		byAlias: map[string]*Field{},
	}
	in.pending[t] = rt
	factory := reflect.PointerTo(t).Implements(defaulterType)

	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		tag := parseFieldTag(sf)
		if tag.skip {
			continue
		}
		f, err := in.field(rt, sf, tag, factory)
		if err != nil {
			return nil, err
		}
		if _, dup := rt.byName[f.Name]; dup {
			return nil, &IntrospectError{Type: rt.Name, Field: f.Name, Reason: "duplicate field name"}
		}
		if f.Alias != "" {
			if _, dup := rt.byAlias[f.Alias]; dup {
				return nil, &IntrospectError{Type: rt.Name, Field: f.Name, Reason: fmt.Sprintf("duplicate alias %q", f.Alias)}
			}
			rt.byAlias[f.Alias] = f
		}
		rt.byName[f.Name] = f
		rt.Fields = append(rt.Fields, f)
	}
	return rt, nil
}

func (in *introspector) field(owner *RecordType, sf reflect.StructField, tag fieldTag, factory bool) (*Field, error) {
	f := &Field{
		Name:        tag.name,
		Alias:       tag.alias,
		GoName:      sf.Name,
		Index:       sf.Index,
		NotRequired: tag.notRequired,
	}
	fail := func(reason string) error {
		return &IntrospectError{Type: owner.Name, Field: f.Name, Reason: reason}
	}

	ft, err := in.resolve(sf.Type)
	if err != nil {
		if ie, ok := err.(*IntrospectError); ok && ie.Field == "" {
			return nil, fail(ie.Reason)
		}
		return nil, err
	}
	if values := sf.Tag.Get(TagEnum); values != "" {
		if ft.Kind == KindOptional {
			ft = &FieldType{Kind: KindOptional, GoType: ft.GoType, Elem: enumLiteral(ft.Elem.GoType, values)}
		} else {
			ft = enumLiteral(sf.Type, values)
		}
		if len(ft.Unwrap().Values) == 0 {
			return nil, fail("empty enum tag")
		}
	}
	if tag.optional && ft.Kind != KindOptional {
		switch sf.Type.Kind() {
		case reflect.Interface, reflect.Map, reflect.Slice:
			ft = &FieldType{Kind: KindOptional, GoType: sf.Type, Elem: ft}
		default:
			return nil, fail(fmt.Sprintf("optional requires a nillable type, got %s", sf.Type))
		}
	}
	f.Type = ft

	if doc := sf.Tag.Get(TagDoc); doc != "" {
		f.Doc = strings.Split(doc, "\n")
	}
	if def, ok := sf.Tag.Lookup(TagDefault); ok {
		var probe any
		if err := yaml.Unmarshal([]byte(def), &probe); err != nil {
			return nil, fail(fmt.Sprintf("invalid default tag: %v", err))
		}
		f.DefaultTag = def
		f.HasDefault = true
	}
	switch {
	case f.HasDefault:
	case factory && !tag.required:
		f.HasDefault = true
	case ft.Kind == KindOptional, ft.IsComposite():
		f.HasDefault = !tag.required
	case ft.Kind == KindRecord:
		// A nested record defaults to its own default instance when it has one.
		f.HasDefault = !tag.required && !ft.Record.NeedsInput()
	}
	return f, nil
}

func enumLiteral(t reflect.Type, values string) *FieldType {
	raw := parseEnumTag(values)
	out := make([]any, 0, len(raw))
	for _, v := range raw {
		if t.Kind() == reflect.String {
			if _, isString := v.(string); !isString {
				v = fmt.Sprint(v)
				if v == "<nil>" {
					v = "null"
				}
			}
		}
		out = append(out, v)
	}
	return &FieldType{Kind: KindLiteral, GoType: t, Values: out}
}

func (in *introspector) resolve(t reflect.Type) (*FieldType, error) {
	if _, ok := codec.Lookup(t); ok {
		return &FieldType{Kind: KindOpaque, GoType: t}, nil
	}
	if t.Kind() != reflect.Interface && t.Implements(enumType) {
		values := reflect.Zero(t).Interface().(Enum).EnumValues()
		if len(values) == 0 {
			return nil, &IntrospectError{Type: t.String(), Reason: "enum type without values"}
		}
		return &FieldType{Kind: KindLiteral, GoType: t, Values: values}, nil
	}

	switch t.Kind() {
	case reflect.String:
		return &FieldType{Kind: KindString, GoType: t}, nil
	case reflect.Bool:
		return &FieldType{Kind: KindBoolean, GoType: t}, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return &FieldType{Kind: KindInteger, GoType: t}, nil
	case reflect.Float32, reflect.Float64:
		return &FieldType{Kind: KindNumber, GoType: t}, nil
	case reflect.Pointer:
		elem, err := in.resolve(t.Elem())
		if err != nil {
			return nil, err
		}
		return &FieldType{Kind: KindOptional, GoType: t, Elem: elem}, nil
	case reflect.Slice, reflect.Array:
		elem, err := in.resolve(t.Elem())
		if err != nil {
			return nil, err
		}
		return &FieldType{Kind: KindSequence, GoType: t, Elem: elem}, nil
	case reflect.Map:
		elem, err := in.resolve(t.Elem())
		if err != nil {
			return nil, err
		}
		return &FieldType{Kind: KindMapping, GoType: t, Key: t.Key(), Elem: elem}, nil
	case reflect.Struct:
		rt, err := in.record(t)
		if err != nil {
			return nil, err
		}
		return &FieldType{Kind: KindRecord, GoType: t, Record: rt}, nil
	case reflect.Interface:
		if alts, ok := in.reg.unions[t]; ok {
			ft := &FieldType{Kind: KindUnion, GoType: t}
			for _, a := range alts {
				at, err := in.resolve(a)
				if err != nil {
					return nil, err
				}
				ft.Alternatives = append(ft.Alternatives, at)
			}
			return ft, nil
		}
		if t.NumMethod() == 0 {
			return &FieldType{Kind: KindAny, GoType: t}, nil
		}
		return nil, &IntrospectError{Type: t.String(), Reason: fmt.Sprintf("interface %s has no registered union alternatives", t)}
	}
	return nil, &IntrospectError{Type: t.String(), Reason: fmt.Sprintf("unsupported kind %s", t.Kind())}
}
