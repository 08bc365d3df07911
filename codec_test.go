package typedconf_test

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/reoring/typedconf"
)

func TestDecode_DefaultsFillMissingKeys(t *testing.T) {
	r := typedconf.NewRegistry()
	c, unknown, err := typedconf.DecodeInto[Config42](r, map[string]any{"int_field": 7})
	if err != nil {
		t.Fatal(err)
	}
	if len(unknown) != 0 {
		t.Fatalf("unexpected unknown keys: %v", unknown)
	}
	if c.IntField != 7 || c.StrField != "FortyTwo!" {
		t.Fatalf("got %+v", c)
	}
}

func TestDecode_MandatoryFieldMissing(t *testing.T) {
	_, _, err := typedconf.DecodeInto[Inner](typedconf.NewRegistry(), map[string]any{"b": 1})
	var de *typedconf.DecodeError
	if !errors.As(err, &de) || de.Code != typedconf.CodeRequired || de.Path != "a" {
		t.Fatalf("expected required error at a, got %v", err)
	}
}

func TestEncodeDecode_RoundTripWithAlias(t *testing.T) {
	r := typedconf.NewRegistry()
	in := Aliased{AttrField: 5}
	m, err := r.Encode(in)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(m, map[string]any{"dict_field": 5}) {
		t.Fatalf("encode should use the alias: %v", m)
	}
	out, _, err := typedconf.DecodeInto[Aliased](r, m)
	if err != nil {
		t.Fatal(err)
	}
	if *out != in {
		t.Fatalf("round trip mismatch: %+v", out)
	}
}

func TestDecode_DeclaredNameStillAccepted(t *testing.T) {
	out, _, err := typedconf.DecodeInto[Aliased](typedconf.NewRegistry(), map[string]any{"attr_field": 3})
	if err != nil {
		t.Fatal(err)
	}
	if out.AttrField != 3 {
		t.Fatalf("got %+v", out)
	}
}

func TestDecode_UnknownKeysReported(t *testing.T) {
	type holder struct {
		Items []Config42           `conf:"items"`
		Named map[string]Config42 `conf:"named"`
		One   Config42             `conf:"one"`
	}
	_, unknown, err := typedconf.DecodeInto[holder](typedconf.NewRegistry(), map[string]any{
		"top":   1,
		"items": []any{map[string]any{"x": 1}},
		"named": map[string]any{"a": map[string]any{"y": 2}},
		"one":   map[string]any{"z": 3},
	})
	if err != nil {
		t.Fatal(err)
	}
	got := map[string]bool{}
	for _, u := range unknown {
		got[u.Path.Dotted()] = u.Divertible
	}
	want := map[string]bool{"top": true, "items.0.x": false, "named.a.y": false, "one.z": true}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unknown keys: got %v, want %v", got, want)
	}
}

func TestDecode_UnionTriesAlternativesInOrder(t *testing.T) {
	r := newRegistry()
	d, _, err := typedconf.DecodeInto[Drawing](r, map[string]any{"shape": map[string]any{"side": 2.0}})
	if err != nil {
		t.Fatal(err)
	}
	if sq, ok := d.Shape.(Square); !ok || sq.Side != 2 {
		t.Fatalf("expected Square, got %#v", d.Shape)
	}
	d, _, err = typedconf.DecodeInto[Drawing](r, map[string]any{"shape": map[string]any{"radius": 1}})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := d.Shape.(Circle); !ok {
		t.Fatalf("expected Circle, got %#v", d.Shape)
	}
	m, err := r.Encode(d)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(m, map[string]any{"shape": map[string]any{"radius": 1.0}}) {
		t.Fatalf("encode union: %v", m)
	}
}

func TestDecode_UnionNoAlternative(t *testing.T) {
	_, _, err := typedconf.DecodeInto[Drawing](newRegistry(), map[string]any{"shape": map[string]any{"edges": 5}})
	var de *typedconf.DecodeError
	if !errors.As(err, &de) || de.Code != typedconf.CodeNoAlternative {
		t.Fatalf("expected no_alternative, got %v", err)
	}
}

func TestDecode_OptionalNil(t *testing.T) {
	r := typedconf.NewRegistry()
	w, _, err := typedconf.DecodeInto[WithOptional](r, map[string]any{"opt": nil})
	if err != nil {
		t.Fatal(err)
	}
	if w.Opt != nil || w.Note != nil {
		t.Fatalf("expected nil optionals, got %+v", w)
	}
	m, err := r.Encode(w)
	if err != nil {
		t.Fatal(err)
	}
	if m["opt"] != nil || m["note"] != nil {
		t.Fatalf("nil optionals encode as null: %v", m)
	}
	w, _, err = typedconf.DecodeInto[WithOptional](r, map[string]any{"opt": map[string]any{"a": 1}, "note": "n"})
	if err != nil {
		t.Fatal(err)
	}
	if w.Opt == nil || w.Opt.A != 1 || w.Opt.B != 7 || *w.Note != "n" {
		t.Fatalf("unexpected %+v", w)
	}
}

func TestDecode_NumericRules(t *testing.T) {
	r := typedconf.NewRegistry()
	cases := []struct {
		in any
		ok bool
	}{
		{int64(3), true},
		{3.0, true},
		{json.Number("4"), true},
		{json.Number("4.0"), true},
		{3.5, false},
		{"3", false},
		{true, false},
	}
	for _, tc := range cases {
		_, _, err := typedconf.DecodeInto[Config42](r, map[string]any{"int_field": tc.in})
		if (err == nil) != tc.ok {
			t.Fatalf("int_field=%#v: ok=%v, err=%v", tc.in, tc.ok, err)
		}
	}
	k, _, err := typedconf.DecodeInto[Kitchen](r, map[string]any{"ratio": 2})
	if err != nil {
		t.Fatal(err)
	}
	if k.Ratio != 2 {
		t.Fatalf("numbers accept integers: %v", k.Ratio)
	}
}

func TestDecode_LiteralMismatch(t *testing.T) {
	r := typedconf.NewRegistry()
	_, _, err := typedconf.DecodeInto[Kitchen](r, map[string]any{"mode": "slow"})
	var de *typedconf.DecodeError
	if !errors.As(err, &de) || de.Code != typedconf.CodeInvalidEnum {
		t.Fatalf("expected invalid_enum, got %v", err)
	}
	k, _, err := typedconf.DecodeInto[Kitchen](r, map[string]any{"mode": "safe", "level": "debug"})
	if err != nil {
		t.Fatal(err)
	}
	if k.Mode != "safe" || k.Level != "debug" {
		t.Fatalf("got %+v", k)
	}
}

func TestDecode_KitchenDefaults(t *testing.T) {
	k, _, err := typedconf.DecodeInto[Kitchen](typedconf.NewRegistry(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if k.Title != "t" || k.MaxItems != 3 || k.Mode != "fast" || k.Ratio != 0.5 {
		t.Fatalf("scalar defaults: %+v", k)
	}
	if !k.When.Equal(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)) || k.Every != time.Minute {
		t.Fatalf("opaque defaults: %v %v", k.When, k.Every)
	}
	if k.Tags == nil || k.Env == nil || len(k.Tags) != 0 {
		t.Fatalf("composites default to empty: %+v", k)
	}
}

func TestDecode_OpaqueValues(t *testing.T) {
	r := typedconf.NewRegistry()
	k, _, err := typedconf.DecodeInto[Kitchen](r, map[string]any{"when": "2024-06-01T10:00:00Z", "every": "90s"})
	if err != nil {
		t.Fatal(err)
	}
	if k.Every != 90*time.Second || k.When.Month() != time.June {
		t.Fatalf("got %v %v", k.When, k.Every)
	}
	m, err := r.Encode(k)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := m["when"].(time.Time); !ok {
		t.Fatalf("opaque values pass through encode: %T", m["when"])
	}
	_, _, err = typedconf.DecodeInto[Kitchen](r, map[string]any{"every": "soon"})
	var de *typedconf.DecodeError
	if !errors.As(err, &de) || de.Code != typedconf.CodeInvalidFormat {
		t.Fatalf("expected invalid_format, got %v", err)
	}
}

func TestDecode_FactoryDefaults(t *testing.T) {
	r := typedconf.NewRegistry()
	_, err := r.NewRecord(reflect.TypeFor[Factory]())
	if err != nil {
		t.Fatal(err)
	}
	f, _, err := typedconf.DecodeInto[Factory](r, map[string]any{"token": "s3cret", "port": 1})
	if err != nil {
		t.Fatal(err)
	}
	if f.Port != 1 || f.Host != "localhost" || f.Token != "s3cret" {
		t.Fatalf("got %+v", f)
	}
	if _, _, err := typedconf.DecodeInto[Factory](r, map[string]any{}); err == nil {
		t.Fatalf("token is mandatory")
	}
}

func TestEncode_NamedScalarsBecomeBuiltins(t *testing.T) {
	k, _, err := typedconf.DecodeInto[Kitchen](typedconf.NewRegistry(), nil)
	if err != nil {
		t.Fatal(err)
	}
	m, err := typedconf.NewRegistry().Encode(k)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := m["mode"].(string); !ok {
		t.Fatalf("mode should encode as string, got %T", m["mode"])
	}
	if _, ok := m["every"].(time.Duration); !ok {
		t.Fatalf("duration is opaque, got %T", m["every"])
	}
	if tags, ok := m["tags"].([]any); !ok || len(tags) != 0 {
		t.Fatalf("tags: %#v", m["tags"])
	}
}
