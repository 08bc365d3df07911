package typedconf

import (
	"errors"
	"fmt"
	"math"
	"reflect"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/reoring/typedconf/codec"
	"github.com/reoring/typedconf/i18n"
	"github.com/reoring/typedconf/textio"
)

// UnknownKey is a map key that matches no declared field.
type UnknownKey struct {
	Path  Path
	Value any
	// Owner is the record type the key was found in.
	Owner *RecordType
	// Divertible is false when the key sits below a sequence or mapping
	// element, where no overlay node can mirror it.
	Divertible bool
}

// Decode builds a record of type t from a map. Missing keys take their
// defaults; unknown keys are reported and left out of the result.
func (r *Registry) Decode(t reflect.Type, data map[string]any) (reflect.Value, []UnknownKey, error) {
	rt, err := r.Introspect(t)
	if err != nil {
		return reflect.Value{}, nil, err
	}
	d := &decoder{reg: r}
	v, err := d.record(rt, data, nil, true)
	if err != nil {
		return reflect.Value{}, nil, err
	}
	return v, d.unknown, nil
}

// DecodeInto is the typed form of Registry.Decode.
func DecodeInto[T any](r *Registry, data map[string]any) (*T, []UnknownKey, error) {
	v, unknown, err := r.Decode(reflect.TypeFor[T](), data)
	if err != nil {
		return nil, nil, err
	}
	out := v.Addr().Interface().(*T)
	return out, unknown, nil
}

type decoder struct {
	reg     *Registry
	unknown []UnknownKey
	// strict turns unknown keys into errors; union alternatives decode
	// strictly so that shape mismatches reject an alternative.
	strict bool
}

func decodeErr(path Path, code, msg string) error {
	return &DecodeError{Path: path.Dotted(), Code: code, Msg: msg}
}

// NewRecord returns the default instance of a record type: `default` tags,
// nested defaults and SetDefaults applied.
func (r *Registry) NewRecord(t reflect.Type) (reflect.Value, error) {
	rt, err := r.Introspect(t)
	if err != nil {
		return reflect.Value{}, err
	}
	d := &decoder{reg: r}
	return d.defaults(rt, nil)
}

func (d *decoder) defaults(rt *RecordType, path Path) (reflect.Value, error) {
	out := reflect.New(rt.GoType).Elem()
	for _, f := range rt.Fields {
		fv := out.FieldByIndex(f.Index)
		switch {
		case f.DefaultTag != "":
			var raw any
			if err := yaml.Unmarshal([]byte(f.DefaultTag), &raw); err != nil {
				return reflect.Value{}, &DecodeError{Path: path.Field(f.Name).Dotted(), Code: CodeParseError, Msg: "invalid default", Cause: err}
			}
			raw, err := textio.Normalize(raw)
			if err != nil {
				return reflect.Value{}, err
			}
			v, err := d.value(f.Type, raw, path.Field(f.Name), false)
			if err != nil {
				return reflect.Value{}, err
			}
			fv.Set(v)
		case f.Type.Kind == KindRecord && f.HasDefault:
			v, err := d.defaults(f.Type.Record, path.Field(f.Name))
			if err != nil {
				return reflect.Value{}, err
			}
			fv.Set(v)
		case f.Type.Kind == KindSequence && f.Type.GoType.Kind() == reflect.Slice:
			fv.Set(reflect.MakeSlice(f.Type.GoType, 0, 0))
		case f.Type.Kind == KindMapping:
			fv.Set(reflect.MakeMap(f.Type.GoType))
		}
	}
	if p, ok := out.Addr().Interface().(Defaulter); ok {
		p.SetDefaults()
	}
	return out, nil
}

func (d *decoder) record(rt *RecordType, m map[string]any, path Path, divertible bool) (reflect.Value, error) {
	out, err := d.defaults(rt, path)
	if err != nil {
		return reflect.Value{}, err
	}
	seen := map[string]bool{}
	for _, k := range sortedKeys(m) {
		f, ok := rt.Lookup(k)
		if !ok {
			if d.strict && !rt.Options.AllowAdditional {
				return reflect.Value{}, decodeErr(path.Field(k), CodeUnknownKey, i18n.T(CodeUnknownKey, nil))
			}
			d.unknown = append(d.unknown, UnknownKey{Path: path.Field(k), Value: m[k], Owner: rt, Divertible: divertible})
			continue
		}
		v, err := d.value(f.Type, m[k], path.Field(f.Name), divertible)
		if err != nil {
			return reflect.Value{}, err
		}
		out.FieldByIndex(f.Index).Set(v)
		seen[f.Name] = true
	}
	for _, f := range rt.Fields {
		if !seen[f.Name] && f.Mandatory() {
			return reflect.Value{}, decodeErr(path.Field(f.Name), CodeRequired, i18n.T(CodeRequired, nil))
		}
	}
	return out, nil
}

// value decodes in as t. Values already of the target Go type are deep-copied;
// literals are checked against their set regardless.
func (d *decoder) value(t *FieldType, in any, path Path, divertible bool) (reflect.Value, error) {
	if in != nil && t.Kind != KindAny && t.Kind != KindLiteral {
		if rv := reflect.ValueOf(in); rv.Type() == t.GoType {
			return cloneValue(rv), nil
		}
	}
	switch t.Kind {
	case KindOptional:
		if in == nil {
			return reflect.Zero(t.GoType), nil
		}
		v, err := d.value(t.Elem, in, path, divertible)
		if err != nil {
			return reflect.Value{}, err
		}
		if t.GoType.Kind() == reflect.Pointer && t.GoType.Elem() == t.Elem.GoType {
			p := reflect.New(t.Elem.GoType)
			p.Elem().Set(v)
			return p, nil
		}
		return v, nil

	case KindUnion:
		var causes []error
		for _, alt := range t.Alternatives {
			sub := &decoder{reg: d.reg, strict: true}
			v, err := sub.value(alt, in, path, divertible)
			if err != nil {
				causes = append(causes, err)
				continue
			}
			d.unknown = append(d.unknown, sub.unknown...)
			out := reflect.New(t.GoType).Elem()
			out.Set(v)
			return out, nil
		}
		return reflect.Value{}, &DecodeError{Path: path.Dotted(), Code: CodeNoAlternative, Msg: i18n.T(CodeNoAlternative, nil), Cause: errors.Join(causes...)}

	case KindRecord:
		if p := reflect.ValueOf(in); p.Kind() == reflect.Pointer && p.Type().Elem() == t.GoType && !p.IsNil() {
			return cloneValue(p.Elem()), nil
		}
		m, ok := in.(map[string]any)
		if !ok {
			return reflect.Value{}, decodeErr(path, CodeInvalidType, fmt.Sprintf("expected mapping for %s, got %T", t.Record.Name, in))
		}
		return d.record(t.Record, m, path, divertible)

	case KindSequence:
		rv := reflect.ValueOf(in)
		if in == nil || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
			return reflect.Value{}, decodeErr(path, CodeInvalidType, fmt.Sprintf("expected sequence, got %T", in))
		}
		var out reflect.Value
		if t.GoType.Kind() == reflect.Array {
			if rv.Len() != t.GoType.Len() {
				return reflect.Value{}, decodeErr(path, CodeInvalidType, fmt.Sprintf("expected %d elements, got %d", t.GoType.Len(), rv.Len()))
			}
			out = reflect.New(t.GoType).Elem()
		} else {
			out = reflect.MakeSlice(t.GoType, rv.Len(), rv.Len())
		}
		for i := 0; i < rv.Len(); i++ {
			ev, err := d.value(t.Elem, rv.Index(i).Interface(), path.Index(i), false)
			if err != nil {
				return reflect.Value{}, err
			}
			out.Index(i).Set(ev)
		}
		return out, nil

	case KindMapping:
		rv := reflect.ValueOf(in)
		if in == nil || rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
			return reflect.Value{}, decodeErr(path, CodeInvalidType, fmt.Sprintf("expected mapping, got %T", in))
		}
		out := reflect.MakeMapWithSize(t.GoType, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			k := iter.Key().String()
			ev, err := d.value(t.Elem, iter.Value().Interface(), path.Field(k), false)
			if err != nil {
				return reflect.Value{}, err
			}
			out.SetMapIndex(reflect.ValueOf(k).Convert(t.Key), ev)
		}
		return out, nil

	case KindLiteral:
		if !literalContains(t.Values, in) {
			return reflect.Value{}, decodeErr(path, CodeInvalidEnum, i18n.T(CodeInvalidEnum, nil)+fmt.Sprintf(": %v", in))
		}
		if in == nil {
			return reflect.Zero(t.GoType), nil
		}
		return d.scalar(scalarKind(t.GoType), t.GoType, in, path)

	case KindAny:
		out := reflect.New(t.GoType).Elem()
		if in != nil {
			out.Set(cloneValue(reflect.ValueOf(in)))
		}
		return out, nil

	case KindOpaque:
		oc, _ := codec.Lookup(t.GoType)
		v, err := oc.Decode(in)
		if err != nil {
			return reflect.Value{}, &DecodeError{Path: path.Dotted(), Code: CodeInvalidFormat, Msg: i18n.T(CodeInvalidFormat, nil), Cause: err}
		}
		return reflect.ValueOf(v), nil
	}
	return d.scalar(t.Kind, t.GoType, in, path)
}

func scalarKind(t reflect.Type) Kind {
	switch t.Kind() {
	case reflect.String:
		return KindString
	case reflect.Bool:
		return KindBoolean
	case reflect.Float32, reflect.Float64:
		return KindNumber
	case reflect.Interface:
		return KindAny
	}
	return KindInteger
}

// scalar converts primitive input to goType. Integers accept whole floats and
// integral json.Number values; numbers accept integers.
func (d *decoder) scalar(k Kind, goType reflect.Type, in any, path Path) (reflect.Value, error) {
	mismatch := func() (reflect.Value, error) {
		return reflect.Value{}, decodeErr(path, CodeInvalidType, fmt.Sprintf("%s: expected %s, got %T", i18n.T(CodeInvalidType, nil), k, in))
	}
	if in == nil {
		if k == KindNull || k == KindAny {
			return reflect.Zero(goType), nil
		}
		return mismatch()
	}
	rv := reflect.ValueOf(in)
	switch k {
	case KindString:
		if rv.Kind() != reflect.String {
			return mismatch()
		}
		return reflect.ValueOf(rv.String()).Convert(goType), nil
	case KindBoolean:
		if rv.Kind() != reflect.Bool {
			return mismatch()
		}
		return reflect.ValueOf(rv.Bool()).Convert(goType), nil
	case KindInteger:
		i, ok := asInteger(in)
		if !ok {
			return mismatch()
		}
		out := reflect.New(goType).Elem()
		switch goType.Kind() {
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			if i < 0 || out.OverflowUint(uint64(i)) {
				return reflect.Value{}, decodeErr(path, CodeInvalidType, fmt.Sprintf("%d overflows %s", i, goType))
			}
			out.SetUint(uint64(i))
		default:
			if out.OverflowInt(i) {
				return reflect.Value{}, decodeErr(path, CodeInvalidType, fmt.Sprintf("%d overflows %s", i, goType))
			}
			out.SetInt(i)
		}
		return out, nil
	case KindNumber:
		f, ok := asNumber(in)
		if !ok {
			return mismatch()
		}
		return reflect.ValueOf(f).Convert(goType), nil
	case KindAny:
		out := reflect.New(goType).Elem()
		out.Set(rv)
		return out, nil
	}
	return mismatch()
}

func asInteger(v any) (int64, bool) {
	if n, ok := v.(json.Number); ok {
		if i, err := n.Int64(); err == nil {
			return i, true
		}
		f, err := n.Float64()
		if err != nil || f != math.Trunc(f) {
			return 0, false
		}
		return int64(f), true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return 0, false
		}
		return int64(u), true
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if f != math.Trunc(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return int64(f), true
	}
	return 0, false
}

func asNumber(v any) (float64, bool) {
	if n, ok := v.(json.Number); ok {
		f, err := n.Float64()
		return f, err == nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}

// literalContains compares by JSON value: numbers by magnitude, strings of
// named types by content.
func literalContains(values []any, v any) bool {
	nv, err := toJSONValue(v)
	if err != nil {
		return false
	}
	for _, want := range values {
		w, err := toJSONValue(want)
		if err != nil {
			continue
		}
		if jsonScalarEqual(w, nv) {
			return true
		}
	}
	return false
}

func jsonScalarEqual(a, b any) bool {
	if fa, ok := asNumber(a); ok {
		fb, ok := asNumber(b)
		return ok && fa == fb
	}
	return a == b
}
