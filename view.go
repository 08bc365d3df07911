package typedconf

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"

	"github.com/reoring/typedconf/i18n"
)

// View is a cursor over one position of a configuration: the record at that
// position (if any) and the overlay node mirroring it. Names are resolved
// against the record type first and the overlay second.
//
// Navigation errors are sticky: once Err is set, every further call on the
// View and its descendants returns the same error.
type View struct {
	reg  *Registry
	rec  reflect.Value // addressable struct; invalid for overlay-only positions
	rt   *RecordType
	root *Extra
	path Path
	err  error
}

// Err returns the first navigation error.
func (v *View) Err() error { return v.err }

// Path returns the position of the view.
func (v *View) Path() Path { return v.path }

func (v *View) child(name string) *View {
	return &View{reg: v.reg, root: v.root, path: v.path.Field(name)}
}

func (v *View) failed(err error) *View {
	return &View{reg: v.reg, root: v.root, path: v.path, err: err}
}

// extra returns the overlay node at this position, creating it when asked.
func (v *View) extra(create bool) *Extra { return v.root.at(v.path, create) }

// field resolves a declared field name (not an alias).
func (v *View) field(name string) (*Field, bool) {
	if v.rt == nil {
		return nil, false
	}
	return v.rt.ByName(name)
}

// itemField resolves a subscript key: aliases first, then declared names.
// With DictAccess, an aliased field is reachable through its alias only.
func (v *View) itemField(key string) (*Field, error) {
	if v.rt == nil {
		return nil, nil
	}
	if f, ok := v.rt.byAlias[key]; ok {
		return f, nil
	}
	f, ok := v.rt.byName[key]
	if !ok {
		return nil, nil
	}
	if f.Alias != "" && v.rt.Options.DictAccess {
		return nil, &DecodeError{
			Path: v.path.Field(key).Dotted(),
			Code: CodeUnknownKey,
			Msg:  i18n.T("alias_only", map[string]string{"alias": f.Alias}),
		}
	}
	return f, nil
}

// Attr descends into a nested record field or an overlay node. Missing overlay
// nodes are created; a leaf value at name is an error.
func (v *View) Attr(name string) *View {
	if v.err != nil {
		return v
	}
	if f, ok := v.field(name); ok {
		return v.descend(f)
	}
	node := v.extra(true)
	if node == nil || node.Attr(name) == nil {
		return v.failed(fmt.Errorf("typedconf: %s holds a value, not a section", v.path.Field(name).Dotted()))
	}
	return v.child(name)
}

func (v *View) descend(f *Field) *View {
	fv := v.rec.FieldByIndex(f.Index)
	switch {
	case f.Type.Kind == KindRecord:
	case f.Type.Kind == KindOptional && f.Type.Elem.Kind == KindRecord && fv.Kind() == reflect.Pointer:
		if fv.IsNil() {
			return v.failed(fmt.Errorf("%w: %s is unset", ErrKeyNotFound, v.path.Field(f.Name).Dotted()))
		}
		fv = fv.Elem()
	default:
		return v.failed(fmt.Errorf("typedconf: %s is a %s field, not a section", v.path.Field(f.Name).Dotted(), f.Type.Kind))
	}
	c := v.child(f.Name)
	c.rec = fv
	c.rt = f.Type.Unwrap().Record
	return c
}

// Get returns the value of a declared field (nested records as pointers into
// the live record) or the overlay entry under name.
func (v *View) Get(name string) (any, error) {
	if v.err != nil {
		return nil, v.err
	}
	if f, ok := v.field(name); ok {
		return v.fieldValue(f), nil
	}
	return v.overlayGet(name)
}

// Item is the subscript form of Get: keys resolve through aliases.
func (v *View) Item(key string) (any, error) {
	if v.err != nil {
		return nil, v.err
	}
	f, err := v.itemField(key)
	if err != nil {
		return nil, err
	}
	if f != nil {
		return v.fieldValue(f), nil
	}
	return v.overlayGet(key)
}

func (v *View) fieldValue(f *Field) any {
	fv := v.rec.FieldByIndex(f.Index)
	if f.Type.Kind == KindRecord {
		return fv.Addr().Interface()
	}
	return fv.Interface()
}

func (v *View) overlayGet(name string) (any, error) {
	if node := v.extra(false); node != nil {
		if val, ok := node.Get(name); ok {
			return val, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, v.path.Field(name).Dotted())
}

// Set writes a declared field (decoded to its type) or an overlay entry.
func (v *View) Set(name string, value any) error {
	if v.err != nil {
		return v.err
	}
	if f, ok := v.field(name); ok {
		return v.setField(f, value)
	}
	return v.overlaySet(name, value)
}

// SetItem is the subscript form of Set.
func (v *View) SetItem(key string, value any) error {
	if v.err != nil {
		return v.err
	}
	f, err := v.itemField(key)
	if err != nil {
		return err
	}
	if f != nil {
		return v.setField(f, value)
	}
	return v.overlaySet(key, value)
}

func (v *View) setField(f *Field, value any) error {
	d := &decoder{reg: v.reg, strict: true}
	val, err := d.value(f.Type, value, v.path.Field(f.Name), false)
	if err != nil {
		return err
	}
	v.rec.FieldByIndex(f.Index).Set(val)
	return nil
}

func (v *View) overlaySet(name string, value any) error {
	if v.rt != nil {
		if _, ok := v.rt.Lookup(name); ok {
			return &ConflictError{Path: v.path.Field(name).Dotted()}
		}
	}
	node := v.extra(true)
	if node == nil {
		return fmt.Errorf("typedconf: %s holds a value, not a section", v.path.Dotted())
	}
	node.Set(name, value)
	return nil
}

// Delete removes an overlay entry. Declared fields cannot be deleted.
func (v *View) Delete(name string) error {
	if v.err != nil {
		return v.err
	}
	if _, ok := v.field(name); ok {
		return fmt.Errorf("typedconf: cannot delete declared field %s", v.path.Field(name).Dotted())
	}
	node := v.extra(false)
	if node == nil || !node.Delete(name) {
		return fmt.Errorf("%w: %s", ErrKeyNotFound, v.path.Field(name).Dotted())
	}
	return nil
}

// ToMap merges the record encoding at this position with its overlay node.
func (v *View) ToMap() (map[string]any, error) {
	if v.err != nil {
		return nil, v.err
	}
	var enc map[string]any
	if v.rt != nil {
		var err error
		if enc, err = encodeRecord(v.rt, v.rec); err != nil {
			return nil, err
		}
	}
	return mergeMaps(enc, v.extra(false).ToMap(), v.path)
}

// Record returns a pointer to the record at this position, or nil for overlay
// positions.
func (v *View) Record() any {
	if v.err != nil || v.rt == nil {
		return nil
	}
	return v.rec.Addr().Interface()
}

// Extra returns the overlay node at this position, or nil when none exists.
func (v *View) Extra() *Extra {
	if v.err != nil {
		return nil
	}
	return v.extra(false)
}

// Lookup follows keys with subscript rules through records, overlay nodes,
// mappings and sequences (decimal indices). A missing key is ErrKeyNotFound.
func (v *View) Lookup(keys ...string) (any, error) {
	if v.err != nil {
		return nil, v.err
	}
	if len(keys) == 0 {
		if r := v.Record(); r != nil {
			return r, nil
		}
		return v.extra(false), nil
	}
	k, rest := keys[0], keys[1:]
	f, err := v.itemField(k)
	if err != nil {
		return nil, err
	}
	if f != nil {
		if len(rest) == 0 {
			return v.fieldValue(f), nil
		}
		if f.Type.Unwrap().Kind == KindRecord {
			return v.descend(f).Lookup(rest...)
		}
		return v.lookupValue(v.rec.FieldByIndex(f.Index), v.path.Field(f.Name), rest)
	}
	val, err := v.overlayGet(k)
	if err != nil || len(rest) == 0 {
		return val, err
	}
	if _, ok := val.(*Extra); ok {
		return v.child(k).Lookup(rest...)
	}
	return v.lookupValue(reflect.ValueOf(val), v.path.Field(k), rest)
}

func (v *View) lookupValue(rv reflect.Value, path Path, keys []string) (any, error) {
	notFound := func(p Path) error { return fmt.Errorf("%w: %s", ErrKeyNotFound, p.Dotted()) }
	for _, k := range keys {
		for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
			if rv.IsNil() {
				return nil, notFound(path)
			}
			rv = rv.Elem()
		}
		next := path.Field(k)
		switch rv.Kind() {
		case reflect.Map:
			if rv.Type().Key().Kind() != reflect.String {
				return nil, notFound(next)
			}
			e := rv.MapIndex(reflect.ValueOf(k).Convert(rv.Type().Key()))
			if !e.IsValid() {
				return nil, notFound(next)
			}
			rv = e
		case reflect.Slice, reflect.Array:
			i, err := strconv.Atoi(k)
			if err != nil || i < 0 || i >= rv.Len() {
				return nil, notFound(next)
			}
			rv = rv.Index(i)
		case reflect.Struct:
			rt, err := v.reg.Introspect(rv.Type())
			if err != nil {
				return nil, err
			}
			f, ok := rt.Lookup(k)
			if !ok {
				return nil, notFound(next)
			}
			rv = rv.FieldByIndex(f.Index)
		default:
			return nil, notFound(next)
		}
		path = next
	}
	return rv.Interface(), nil
}

// IsNotFound reports lookups that failed on a missing key.
func IsNotFound(err error) bool { return errors.Is(err, ErrKeyNotFound) }
