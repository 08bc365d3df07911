package typedconf_test

import (
	"reflect"
	"testing"

	"github.com/reoring/typedconf"
	"github.com/reoring/typedconf/textio"
)

func mustYAML(t *testing.T, doc string) map[string]any {
	t.Helper()
	m, err := textio.Unmarshal(textio.YAML, []byte(doc))
	if err != nil {
		t.Fatal(err)
	}
	return m
}

type keyed struct {
	Port  int `conf:"port,alias=listen_port"`
	Inner Config42
}

func TestKeyOf(t *testing.T) {
	if got := typedconf.KeyOf(func(k *keyed) *int { return &k.Port }); got != "listen_port" {
		t.Fatalf("got %q", got)
	}
}

func TestPathOf_Nested(t *testing.T) {
	got := typedconf.PathOf(func(k *keyed) *int { return &k.Inner.IntField })
	if !reflect.DeepEqual(got, typedconf.Path{"inner", "int_field"}) {
		t.Fatalf("got %v", got)
	}
	// Inner and Inner.IntField share an address; the type tells them apart.
	if got := typedconf.PathOf(func(k *keyed) *Config42 { return &k.Inner }); !reflect.DeepEqual(got, typedconf.Path{"inner"}) {
		t.Fatalf("got %v", got)
	}
	if got := typedconf.FieldPathOf(func(k *keyed) *int { return &k.Port }); !reflect.DeepEqual(got, typedconf.Path{"port"}) {
		t.Fatalf("got %v", got)
	}
}

func TestKeyOf_PanicsOnNested(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic")
		}
	}()
	typedconf.KeyOf(func(k *keyed) *int { return &k.Inner.IntField })
}

func TestPatch_DrivesUpdate(t *testing.T) {
	c, err := typedconf.Default[Nested](opts()...)
	if err != nil {
		t.Fatal(err)
	}
	p := typedconf.PathOf(func(n *Nested) *string { return &n.Other.StrField })
	if err := c.Update(typedconf.Patch(p, "patched")); err != nil {
		t.Fatal(err)
	}
	if c.Data().Other.StrField != "patched" || c.Data().Inner.StrField != "FortyTwo!" {
		t.Fatalf("got %+v", c.Data())
	}
}

func TestPath_Rendering(t *testing.T) {
	p := typedconf.Path{}.Field("a/b").Index(2).Field("c~d")
	if p.Dotted() != "a/b.2.c~d" {
		t.Fatalf("dotted: %s", p.Dotted())
	}
	if p.Pointer() != "/a~1b/2/c~0d" {
		t.Fatalf("pointer: %s", p.Pointer())
	}
	if back := typedconf.ParsePointer(p.Pointer()); !reflect.DeepEqual(back, p) {
		t.Fatalf("parse: %v", back)
	}
	if p.Parent().Leaf() != "2" || (typedconf.Path{}).Leaf() != "" || typedconf.ParsePointer("/") != nil {
		t.Fatalf("parent/leaf")
	}
}
