package typedconf

import (
	"fmt"
	"reflect"
	"slices"

	"github.com/goccy/go-json"
)

// Extra is the overlay tree holding entries a record type does not declare.
// Each entry is either a leaf value or a child node. Keys keep insertion order.
//
// Extra is not safe for concurrent mutation.
type Extra struct {
	keys    []string
	entries map[string]*extraEntry
}

type extraEntry struct {
	node  *Extra
	value any
}

// NewExtra returns an empty overlay node.
func NewExtra() *Extra {
	return &Extra{entries: map[string]*extraEntry{}}
}

// ExtraFromMap builds an overlay tree; nested maps become child nodes.
func ExtraFromMap(m map[string]any) *Extra {
	e := NewExtra()
	for _, k := range sortedKeys(m) {
		e.Set(k, m[k])
	}
	return e
}

func (e *Extra) put(key string, ent *extraEntry) {
	if _, ok := e.entries[key]; !ok {
		e.keys = append(e.keys, key)
	}
	e.entries[key] = ent
}

// Attr returns the child node under key, creating an empty one when the key is
// absent. It returns nil when key holds a leaf value.
func (e *Extra) Attr(key string) *Extra {
	if ent, ok := e.entries[key]; ok {
		return ent.node
	}
	child := NewExtra()
	e.put(key, &extraEntry{node: child})
	return child
}

// Node returns the child node under key without creating it.
func (e *Extra) Node(key string) (*Extra, bool) {
	ent, ok := e.entries[key]
	if !ok || ent.node == nil {
		return nil, false
	}
	return ent.node, true
}

// Get returns the leaf value or child node under key.
func (e *Extra) Get(key string) (any, bool) {
	ent, ok := e.entries[key]
	if !ok {
		return nil, false
	}
	if ent.node != nil {
		return ent.node, true
	}
	return ent.value, true
}

// Item is the subscript form of Get: a missing key is an error.
func (e *Extra) Item(key string) (any, error) {
	v, ok := e.Get(key)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrKeyNotFound, key)
	}
	return v, nil
}

// Set stores v under key. Maps and *Extra values become child nodes; other
// values are deep-copied leaves.
func (e *Extra) Set(key string, v any) {
	switch x := v.(type) {
	case *Extra:
		e.put(key, &extraEntry{node: x.Clone()})
	case map[string]any:
		e.put(key, &extraEntry{node: ExtraFromMap(x)})
	default:
		e.put(key, &extraEntry{value: cloneAny(v)})
	}
}

// SetItem is the subscript form of Set.
func (e *Extra) SetItem(key string, v any) { e.Set(key, v) }

// Delete removes key and reports whether it was present.
func (e *Extra) Delete(key string) bool {
	if _, ok := e.entries[key]; !ok {
		return false
	}
	delete(e.entries, key)
	e.keys = slices.DeleteFunc(e.keys, func(k string) bool { return k == key })
	return true
}

// Keys returns the keys in insertion order.
func (e *Extra) Keys() []string {
	if e == nil {
		return nil
	}
	return append([]string(nil), e.keys...)
}

// Len counts direct entries.
func (e *Extra) Len() int {
	if e == nil {
		return 0
	}
	return len(e.keys)
}

// Empty reports whether the node holds no entries.
func (e *Extra) Empty() bool { return e.Len() == 0 }

// ToMap renders the tree as nested maps.
func (e *Extra) ToMap() map[string]any {
	out := make(map[string]any, e.Len())
	if e == nil {
		return out
	}
	for _, k := range e.keys {
		ent := e.entries[k]
		if ent.node != nil {
			out[k] = ent.node.ToMap()
			continue
		}
		out[k] = cloneAny(ent.value)
	}
	return out
}

// Clone returns an independent copy: no node is shared with e.
func (e *Extra) Clone() *Extra {
	if e == nil {
		return nil
	}
	c := &Extra{keys: append([]string(nil), e.keys...), entries: make(map[string]*extraEntry, len(e.entries))}
	for k, ent := range e.entries {
		if ent.node != nil {
			c.entries[k] = &extraEntry{node: ent.node.Clone()}
			continue
		}
		c.entries[k] = &extraEntry{value: cloneAny(ent.value)}
	}
	return c
}

// Equal compares contents, ignoring key order.
func (e *Extra) Equal(o *Extra) bool {
	return reflect.DeepEqual(e.ToMap(), o.ToMap())
}

func (e *Extra) String() string {
	b, err := json.Marshal(e.ToMap())
	if err != nil {
		return fmt.Sprintf("Extra(%v)", e.ToMap())
	}
	return "Extra(" + string(b) + ")"
}

// at walks path from e. With create, missing nodes are added; it returns nil
// when a leaf blocks the path or a node is missing.
func (e *Extra) at(path Path, create bool) *Extra {
	cur := e
	for _, k := range path {
		if cur == nil {
			return nil
		}
		if create {
			cur = cur.Attr(k)
			continue
		}
		next, ok := cur.Node(k)
		if !ok {
			return nil
		}
		cur = next
	}
	return cur
}
