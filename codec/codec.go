// Package codec converts opaque field types between their Go value and the
// string form used in configuration maps and JSON Schema.
package codec

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
)

// ErrFormat reports a wire value that does not match the codec's format.
var ErrFormat = errors.New("codec: invalid format")

// Opaque is a bidirectional converter for one Go type. Decode accepts either
// the wire form or a value of Type() itself; Encode always yields the wire form.
type Opaque interface {
	Type() reflect.Type
	// Format is the JSON Schema "format" of the wire string.
	Format() string
	Decode(v any) (any, error)
	Encode(v any) (string, error)
}

var (
	mu       sync.RWMutex
	registry = map[reflect.Type]Opaque{}
)

func init() {
	Register(TimeRFC3339())
	Register(Duration())
}

// Register installs an opaque codec, replacing any codec for the same type.
func Register(c Opaque) {
	mu.Lock()
	registry[c.Type()] = c
	mu.Unlock()
}

// Lookup returns the codec registered for t.
func Lookup(t reflect.Type) (Opaque, bool) {
	mu.RLock()
	defer mu.RUnlock()
	c, ok := registry[t]
	return c, ok
}

// Wire returns the wire form of v when v's type has a codec.
func Wire(v any) (string, bool, error) {
	if v == nil {
		return "", false, nil
	}
	c, ok := Lookup(reflect.TypeOf(v))
	if !ok {
		return "", false, nil
	}
	s, err := c.Encode(v)
	return s, true, err
}

func formatErr(kind string, v any, cause error) error {
	if cause != nil {
		return fmt.Errorf("%w: expected %s, got %q: %v", ErrFormat, kind, v, cause)
	}
	return fmt.Errorf("%w: expected %s, got %T", ErrFormat, kind, v)
}
