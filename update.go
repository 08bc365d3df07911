package typedconf

import (
	"reflect"
)

// Update applies a partial patch keyed by external names and validates the
// whole record afterwards. Nested records present on both sides are merged
// key by key; sequences and mappings are replaced wholesale. An optional
// nested record that is currently nil is built fresh from the patch alone.
// A field replaced wholesale drops its overlay entries.
//
// On any failure the record and the overlay are restored to their state
// before the call.
func (c *Config[T]) Update(patch map[string]any) error {
	rv := reflect.ValueOf(c.data).Elem()
	snapshot := cloneValue(rv)
	extraSnapshot := c.extra.Clone()

	err := c.merge(c.rt, rv, patch, nil, true)
	if err == nil {
		err = c.Validate()
	}
	if err != nil {
		rv.Set(snapshot)
		c.extra = extraSnapshot
		c.log.Debug().Err(err).Msg("update rolled back")
		return asIssues(err)
	}
	return nil
}

func (c *Config[T]) merge(rt *RecordType, rv reflect.Value, patch map[string]any, path Path, divertible bool) error {
	for _, k := range sortedKeys(patch) {
		val := patch[k]
		f, ok := rt.Lookup(k)
		if !ok {
			u := UnknownKey{Path: path.Field(k), Value: val, Owner: rt, Divertible: divertible}
			if err := c.onUnknown(c.extra, u); err != nil {
				return err
			}
			continue
		}
		fp := path.Field(f.Name)
		fv := rv.FieldByIndex(f.Index)
		sub, isMap := val.(map[string]any)

		switch {
		case isMap && f.Type.Kind == KindRecord:
			if err := c.merge(f.Type.Record, fv, sub, fp, divertible); err != nil {
				return err
			}
			continue
		case isMap && fv.Kind() == reflect.Pointer && !fv.IsNil() && f.Type.Unwrap().Kind == KindRecord:
			if err := c.merge(f.Type.Unwrap().Record, fv.Elem(), sub, fp, divertible); err != nil {
				return err
			}
			continue
		}

		d := &decoder{reg: c.reg}
		v, err := d.value(f.Type, val, fp, divertible)
		if err != nil {
			return err
		}
		// The old value's overlay entries go with it.
		if node := c.extra.at(fp.Parent(), false); node != nil {
			node.Delete(fp.Leaf())
		}
		for _, u := range d.unknown {
			if err := c.onUnknown(c.extra, u); err != nil {
				return err
			}
		}
		fv.Set(v)
	}
	return nil
}
