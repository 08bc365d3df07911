package typedconf

import (
	"fmt"
	"reflect"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/reoring/typedconf/codec"
)

// Encode converts a record (struct or pointer to struct) into a map keyed by
// external names. Opaque values pass through unchanged; nil sequences and
// mappings encode as empty.
func (r *Registry) Encode(rec any) (map[string]any, error) {
	rv := reflect.ValueOf(rec)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, ErrInvalidData
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, ErrInvalidData
	}
	rt, err := r.Introspect(rv.Type())
	if err != nil {
		return nil, err
	}
	return encodeRecord(rt, rv)
}

func encodeRecord(rt *RecordType, rv reflect.Value) (map[string]any, error) {
	out := make(map[string]any, len(rt.Fields))
	for _, f := range rt.Fields {
		v, err := encodeValue(f.Type, rv.FieldByIndex(f.Index))
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", rt.Name, f.Name, err)
		}
		out[f.Key()] = v
	}
	return out, nil
}

var builtinByKind = map[reflect.Kind]reflect.Type{
	reflect.String:  reflect.TypeFor[string](),
	reflect.Bool:    reflect.TypeFor[bool](),
	reflect.Int:     reflect.TypeFor[int](),
	reflect.Int8:    reflect.TypeFor[int8](),
	reflect.Int16:   reflect.TypeFor[int16](),
	reflect.Int32:   reflect.TypeFor[int32](),
	reflect.Int64:   reflect.TypeFor[int64](),
	reflect.Uint:    reflect.TypeFor[uint](),
	reflect.Uint8:   reflect.TypeFor[uint8](),
	reflect.Uint16:  reflect.TypeFor[uint16](),
	reflect.Uint32:  reflect.TypeFor[uint32](),
	reflect.Uint64:  reflect.TypeFor[uint64](),
	reflect.Float32: reflect.TypeFor[float32](),
	reflect.Float64: reflect.TypeFor[float64](),
}

// primitive unwraps named scalar types to their builtin form.
func primitive(v reflect.Value) any {
	if b, ok := builtinByKind[v.Kind()]; ok && v.Type() != b {
		return v.Convert(b).Interface()
	}
	return v.Interface()
}

func encodeValue(t *FieldType, v reflect.Value) (any, error) {
	switch t.Kind {
	case KindOptional:
		switch v.Kind() {
		case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice:
			if v.IsNil() {
				return nil, nil
			}
		}
		if v.Kind() == reflect.Pointer && v.Type().Elem() == t.Elem.GoType {
			v = v.Elem()
		}
		return encodeValue(t.Elem, v)
	case KindUnion:
		if v.IsNil() {
			return nil, nil
		}
		concrete := v.Elem()
		for _, alt := range t.Alternatives {
			if alt.GoType == concrete.Type() {
				return encodeValue(alt, concrete)
			}
		}
		return cloneAny(concrete.Interface()), nil
	case KindRecord:
		return encodeRecord(t.Record, v)
	case KindSequence:
		out := make([]any, v.Len())
		for i := range out {
			e, err := encodeValue(t.Elem, v.Index(i))
			if err != nil {
				return nil, err
			}
			out[i] = e
		}
		return out, nil
	case KindMapping:
		out := make(map[string]any, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			e, err := encodeValue(t.Elem, iter.Value())
			if err != nil {
				return nil, err
			}
			out[iter.Key().String()] = e
		}
		return out, nil
	case KindAny:
		if v.IsNil() {
			return nil, nil
		}
		return cloneAny(v.Elem().Interface()), nil
	case KindOpaque:
		return v.Interface(), nil
	case KindLiteral:
		if v.Kind() == reflect.Interface {
			if v.IsNil() {
				return nil, nil
			}
			v = v.Elem()
		}
		return primitive(v), nil
	}
	return primitive(v), nil
}

// yamlNode renders encoded data with record keys in declaration order. Keys
// the type does not declare follow, sorted.
func yamlNode(t *FieldType, v any) (*yaml.Node, error) {
	switch x := v.(type) {
	case nil:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}, nil
	case map[string]any:
		var rt *RecordType
		var elem *FieldType
		if t != nil {
			switch u := t.Unwrap(); u.Kind {
			case KindRecord:
				rt = u.Record
			case KindMapping:
				elem = u.Elem
			}
		}
		n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		done := map[string]bool{}
		add := func(k string, ft *FieldType) error {
			val, err := yamlNode(ft, x[k])
			if err != nil {
				return err
			}
			n.Content = append(n.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k}, val)
			done[k] = true
			return nil
		}
		if rt != nil {
			for _, f := range rt.Fields {
				if _, ok := x[f.Key()]; ok {
					if err := add(f.Key(), f.Type); err != nil {
						return nil, err
					}
				}
			}
		}
		rest := make([]string, 0, len(x))
		for k := range x {
			if !done[k] {
				rest = append(rest, k)
			}
		}
		sort.Strings(rest)
		for _, k := range rest {
			if err := add(k, elem); err != nil {
				return nil, err
			}
		}
		return n, nil
	case []any:
		var elem *FieldType
		if t != nil && t.Unwrap().Kind == KindSequence {
			elem = t.Unwrap().Elem
		}
		n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, e := range x {
			en, err := yamlNode(elem, e)
			if err != nil {
				return nil, err
			}
			n.Content = append(n.Content, en)
		}
		return n, nil
	}
	if s, ok, err := codec.Wire(v); ok {
		if err != nil {
			return nil, err
		}
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}, nil
	}
	n := &yaml.Node{}
	if err := n.Encode(v); err != nil {
		return nil, err
	}
	return n, nil
}
