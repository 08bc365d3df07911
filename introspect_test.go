package typedconf_test

import (
	"errors"
	"reflect"
	"testing"

	"github.com/reoring/typedconf"
)

func TestIntrospect_NamesAndKinds(t *testing.T) {
	rt, err := typedconf.IntrospectFor[Kitchen](newRegistry())
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]typedconf.Kind{
		"title":     typedconf.KindString,
		"max_items": typedconf.KindInteger,
		"mode":      typedconf.KindLiteral,
		"level":     typedconf.KindLiteral,
		"ratio":     typedconf.KindNumber,
		"tags":      typedconf.KindSequence,
		"env":       typedconf.KindMapping,
		"when":      typedconf.KindOpaque,
		"every":     typedconf.KindOpaque,
		"anything":  typedconf.KindAny,
	}
	if len(rt.Fields) != len(want) {
		t.Fatalf("expected %d fields, got %d", len(want), len(rt.Fields))
	}
	for _, f := range rt.Fields {
		k, ok := want[f.Name]
		if !ok {
			t.Fatalf("unexpected field %q", f.Name)
		}
		if f.Type.Kind != k {
			t.Fatalf("%s: kind %s, want %s", f.Name, f.Type.Kind, k)
		}
	}
	if f, _ := rt.ByName("level"); !reflect.DeepEqual(f.Type.Values, []any{"debug", "info"}) {
		t.Fatalf("enum tag values: %v", f.Type.Values)
	}
}

func TestIntrospect_AliasLookup(t *testing.T) {
	rt, err := typedconf.IntrospectFor[Aliased](typedconf.NewRegistry())
	if err != nil {
		t.Fatal(err)
	}
	if f, ok := rt.Lookup("dict_field"); !ok || f.Name != "attr_field" {
		t.Fatalf("alias lookup failed")
	}
	if _, ok := rt.Lookup("attr_field"); !ok {
		t.Fatalf("declared name should still resolve for decoding")
	}
	if _, ok := rt.ByKey("attr_field"); ok {
		t.Fatalf("declared name is not an external key once aliased")
	}
	if rt.Fields[0].Key() != "dict_field" {
		t.Fatalf("key should be the alias")
	}
}

func TestIntrospect_SelfReferenceTerminates(t *testing.T) {
	rt, err := typedconf.IntrospectFor[Tree](typedconf.NewRegistry())
	if err != nil {
		t.Fatal(err)
	}
	nested := rt.Nested()
	if len(nested) != 1 || nested[0] != rt {
		t.Fatalf("expected exactly the type itself, got %d entries", len(nested))
	}
	children, _ := rt.ByName("children")
	if children.Type.Elem.Record != rt {
		t.Fatalf("sequence element should resolve to the same descriptor")
	}
}

func TestIntrospect_Defaults(t *testing.T) {
	r := typedconf.NewRegistry()
	rt, _ := typedconf.IntrospectFor[Inner](r)
	if !rt.NeedsInput() {
		t.Fatalf("Inner.a has no default")
	}
	nested, _ := typedconf.IntrospectFor[Nested](r)
	if nested.NeedsInput() {
		t.Fatalf("Nested is fully defaultable")
	}
	f, _ := typedconf.IntrospectFor[Factory](r)
	if !f.NeedsInput() {
		t.Fatalf("token is tagged required and has no default")
	}
	if port, _ := f.ByName("port"); !port.HasDefault {
		t.Fatalf("SetDefaults makes port defaulted")
	}
	opt, _ := typedconf.IntrospectFor[WithOptional](r)
	for _, fl := range opt.Fields {
		if !fl.Optional() || fl.Required() {
			t.Fatalf("%s should be optional and not required", fl.Name)
		}
	}
}

func TestIntrospect_UnionAlternatives(t *testing.T) {
	rt, err := typedconf.IntrospectFor[Drawing](newRegistry())
	if err != nil {
		t.Fatal(err)
	}
	shape := rt.Fields[0].Type
	if shape.Kind != typedconf.KindUnion || len(shape.Alternatives) != 2 {
		t.Fatalf("unexpected union: %+v", shape)
	}
	if shape.Alternatives[0].Record.Name != "Circle" {
		t.Fatalf("alternatives keep registration order")
	}
}

func TestIntrospect_UnregisteredInterfaceFails(t *testing.T) {
	_, err := typedconf.IntrospectFor[Drawing](typedconf.NewRegistry())
	var ie *typedconf.IntrospectError
	if !errors.As(err, &ie) || ie.Field != "shape" {
		t.Fatalf("expected IntrospectError on shape, got %v", err)
	}
}

func TestIntrospect_OptionalTagNeedsNillable(t *testing.T) {
	type bad struct {
		N int `conf:"n,optional"`
	}
	_, err := typedconf.IntrospectFor[bad](typedconf.NewRegistry())
	var ie *typedconf.IntrospectError
	if !errors.As(err, &ie) {
		t.Fatalf("expected IntrospectError, got %v", err)
	}
}

func TestIntrospect_DuplicateAlias(t *testing.T) {
	type dup struct {
		A int `conf:"a,alias=x"`
		B int `conf:"b,alias=x"`
	}
	if _, err := typedconf.IntrospectFor[dup](typedconf.NewRegistry()); err == nil {
		t.Fatalf("expected duplicate alias error")
	}
}

func TestIntrospect_NotARecord(t *testing.T) {
	if _, err := typedconf.NewRegistry().Introspect(reflect.TypeFor[int]()); err == nil {
		t.Fatalf("expected error for non-struct type")
	}
}

func TestRegisterUnion_RejectsNonImplementer(t *testing.T) {
	r := typedconf.NewRegistry()
	if err := typedconf.RegisterUnion[Shape](r, Config42{}); err == nil {
		t.Fatalf("Config42 does not implement Shape")
	}
	if err := typedconf.RegisterUnion[Shape](r); err == nil {
		t.Fatalf("empty union should fail")
	}
}
