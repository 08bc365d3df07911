package typedconf_test

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/reoring/typedconf"
)

func TestExtra_AttrAutoVivifiesItemDoesNot(t *testing.T) {
	e := typedconf.NewExtra()
	if _, err := e.Item("missing"); !errors.Is(err, typedconf.ErrKeyNotFound) {
		t.Fatalf("item on a missing key: %v", err)
	}
	e.Attr("a").Attr("b").Set("c", 1)
	if got := e.ToMap(); !reflect.DeepEqual(got, map[string]any{"a": map[string]any{"b": map[string]any{"c": 1}}}) {
		t.Fatalf("got %v", got)
	}
	e.Set("leaf", "v")
	if e.Attr("leaf") != nil {
		t.Fatalf("a leaf is not a section")
	}
	if !reflect.DeepEqual(e.Keys(), []string{"a", "leaf"}) {
		t.Fatalf("insertion order: %v", e.Keys())
	}
	if !e.Delete("leaf") || e.Delete("leaf") {
		t.Fatalf("delete reports presence")
	}
}

func TestExtra_CloneIsIndependent(t *testing.T) {
	e := typedconf.ExtraFromMap(map[string]any{"n": map[string]any{"x": []any{1}}})
	c := e.Clone()
	c.Attr("n").Set("x", "changed")
	c.Set("y", 2)
	if v, _ := e.Attr("n").Get("x"); !reflect.DeepEqual(v, []any{1}) {
		t.Fatalf("clone shares state: %v", v)
	}
	if e.Len() != 1 || e.Equal(c) {
		t.Fatalf("clone shares state: %v", e)
	}
	if !e.Equal(e.Clone()) {
		t.Fatalf("fresh clone should be equal")
	}
	if s := e.String(); !strings.HasPrefix(s, "Extra(") {
		t.Fatalf("string: %s", s)
	}
}

func TestMergeMaps(t *testing.T) {
	got, err := typedconf.MergeMaps(
		map[string]any{"a": map[string]any{"x": 1}, "same": 2},
		map[string]any{"a": map[string]any{"y": 2}, "same": 2, "b": 3},
	)
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]any{"a": map[string]any{"x": 1, "y": 2}, "same": 2, "b": 3}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v", got)
	}
	_, err = typedconf.MergeMaps(map[string]any{"a": map[string]any{"x": 1}}, map[string]any{"a": map[string]any{"x": 2}})
	var ce *typedconf.ConflictError
	if !errors.As(err, &ce) || ce.Path != "a.x" {
		t.Fatalf("expected conflict at a.x, got %v", err)
	}
}

func TestView_GetSetThroughRecord(t *testing.T) {
	c, err := typedconf.Default[Nested](opts()...)
	if err != nil {
		t.Fatal(err)
	}
	v := c.View().Attr("inner")
	if err := v.Set("int_field", 5); err != nil {
		t.Fatal(err)
	}
	if c.Data().Inner.IntField != 5 {
		t.Fatalf("set writes the live record")
	}
	if err := v.Set("int_field", "five"); err == nil {
		t.Fatalf("set decodes to the field type")
	}
	got, err := c.View().Get("inner")
	if err != nil {
		t.Fatal(err)
	}
	if p, ok := got.(*Config42); !ok || p != &c.Data().Inner {
		t.Fatalf("nested records are returned by reference: %T", got)
	}
	if v.Path().Dotted() != "inner" || v.Record() != any(&c.Data().Inner) {
		t.Fatalf("path %v record %v", v.Path(), v.Record())
	}
}

func TestView_StickyError(t *testing.T) {
	c, err := typedconf.Default[Nested](opts()...)
	if err != nil {
		t.Fatal(err)
	}
	v := c.View().Attr("label").Attr("deeper")
	if v.Err() == nil {
		t.Fatalf("a scalar field is not a section")
	}
	if _, err := v.Get("x"); err == nil {
		t.Fatalf("errors are sticky")
	}
}

func TestView_OverlaySetAndConflict(t *testing.T) {
	c, err := typedconf.Default[Config42](opts(typedconf.WithExtraFields())...)
	if err != nil {
		t.Fatal(err)
	}
	v := c.View()
	if err := v.Set("added", map[string]any{"k": "v"}); err != nil {
		t.Fatal(err)
	}
	if got, err := v.Attr("added").Get("k"); err != nil || got != "v" {
		t.Fatalf("%v, %v", got, err)
	}
	if got, err := v.Lookup("added", "k"); err != nil || got != "v" {
		t.Fatalf("lookup: %v, %v", got, err)
	}
	if err := v.Attr("added").Set("n", 1); err != nil {
		t.Fatal(err)
	}
	if got := mustMap(t, c); !reflect.DeepEqual(got["added"], map[string]any{"k": "v", "n": 1}) {
		t.Fatalf("to map: %v", got)
	}
	if err := v.Delete("added"); err != nil {
		t.Fatal(err)
	}
	if err := v.Delete("added"); !typedconf.IsNotFound(err) {
		t.Fatalf("second delete: %v", err)
	}
	if err := v.Delete("int_field"); err == nil {
		t.Fatalf("declared fields cannot be deleted")
	}
}

func TestView_DictAccessAliasHint(t *testing.T) {
	c, err := typedconf.Default[AliasedDict](opts()...)
	if err != nil {
		t.Fatal(err)
	}
	v := c.View()
	if got, err := v.Item("dict_field"); err != nil || got != 1 {
		t.Fatalf("%v, %v", got, err)
	}
	_, err = v.Item("attr_field")
	if err == nil || !strings.Contains(err.Error(), "dict_field") {
		t.Fatalf("expected alias hint, got %v", err)
	}
	if err := v.SetItem("dict_field", 3); err != nil {
		t.Fatal(err)
	}
	if got, _ := v.Item("plain"); got != "p" || c.Data().AttrField != 3 {
		t.Fatalf("unexpected state %+v", c.Data())
	}
	if err := v.SetItem("attr_field", 4); err == nil {
		t.Fatalf("declared name of an aliased field is not a key")
	}
}

func TestView_ItemWithoutDictAccessFallsBack(t *testing.T) {
	c, err := typedconf.New[Aliased](map[string]any{"dict_field": 2}, opts()...)
	if err != nil {
		t.Fatal(err)
	}
	if got, err := c.View().Item("attr_field"); err != nil || got != 2 {
		t.Fatalf("%v, %v", got, err)
	}
}

func TestView_ToMapAtPosition(t *testing.T) {
	c, err := typedconf.Default[Nested](opts(typedconf.WithExtraFields())...)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.View().Attr("other").Set("note", "n"); err != nil {
		t.Fatal(err)
	}
	m, err := c.View().Attr("other").ToMap()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(m, map[string]any{"int_field": 42, "str_field": "FortyTwo!", "note": "n"}) {
		t.Fatalf("got %v", m)
	}
}

func TestView_LookupSequences(t *testing.T) {
	c, err := typedconf.New[Tree](map[string]any{
		"name":     "root",
		"children": []any{map[string]any{"name": "leaf", "children": []any{}}},
	}, opts()...)
	if err != nil {
		t.Fatal(err)
	}
	got, err := c.View().Lookup("children", "0", "name")
	if err != nil || got != "leaf" {
		t.Fatalf("%v, %v", got, err)
	}
	if _, err := c.View().Lookup("children", "3"); !typedconf.IsNotFound(err) {
		t.Fatalf("out of range: %v", err)
	}
}

func TestClone_DeepCopy(t *testing.T) {
	in := &Kitchen{Tags: []string{"a"}, Env: map[string]string{"k": "v"}}
	out := typedconf.Clone(in)
	out.Tags[0] = "b"
	out.Env["k"] = "w"
	if in.Tags[0] != "a" || in.Env["k"] != "v" {
		t.Fatalf("clone shares state")
	}
}

func TestView_SetTypedLiteralIsChecked(t *testing.T) {
	c, err := typedconf.Default[Kitchen](opts()...)
	if err != nil {
		t.Fatal(err)
	}
	var de *typedconf.DecodeError
	if err := c.View().Set("mode", Mode("bogus")); !errors.As(err, &de) || de.Code != typedconf.CodeInvalidEnum {
		t.Fatalf("expected invalid enum, got %v", err)
	}
	if c.Data().Mode != "fast" {
		t.Fatalf("rejected set must not write: %q", c.Data().Mode)
	}
	if err := c.View().Set("mode", Mode("safe")); err != nil {
		t.Fatal(err)
	}
	if c.Data().Mode != "safe" {
		t.Fatalf("mode: %q", c.Data().Mode)
	}
}
