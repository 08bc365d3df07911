package codec

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

func TestDuration_Roundtrip(t *testing.T) {
	c := Duration()
	got, err := c.Decode("1m30s")
	if err != nil {
		t.Fatalf("decode err: %v", err)
	}
	if got.(time.Duration) != 90*time.Second {
		t.Fatalf("unexpected duration: %v", got)
	}
	s, err := c.Encode(got)
	if err != nil {
		t.Fatalf("encode err: %v", err)
	}
	if s != "1m30s" {
		t.Fatalf("unexpected wire form: %s", s)
	}
}

func TestDuration_Invalid(t *testing.T) {
	if _, err := Duration().Decode("soon"); !errors.Is(err, ErrFormat) {
		t.Fatalf("expected ErrFormat, got %v", err)
	}
}

func TestLookup_Builtins(t *testing.T) {
	for _, typ := range []reflect.Type{reflect.TypeFor[time.Time](), reflect.TypeFor[time.Duration]()} {
		if _, ok := Lookup(typ); !ok {
			t.Fatalf("expected codec for %v", typ)
		}
	}
	if _, ok := Lookup(reflect.TypeFor[string]()); ok {
		t.Fatalf("unexpected codec for string")
	}
}

func TestWire(t *testing.T) {
	s, ok, err := Wire(2 * time.Second)
	if err != nil || !ok || s != "2s" {
		t.Fatalf("Wire(duration) = %q, %v, %v", s, ok, err)
	}
	if _, ok, _ := Wire("plain"); ok {
		t.Fatalf("plain strings have no codec")
	}
}
