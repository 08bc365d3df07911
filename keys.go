package typedconf

import (
	"reflect"
)

// KeyOf returns the external key (alias when declared) of a top-level field of
// T selected by address:
//
//	KeyOf[Server](func(s *Server) *int { return &s.Port }) // "port"
//
// Renaming or removing the field breaks compilation of the selector.
func KeyOf[T any, F any](selector func(*T) *F) string {
	p := PathOf(selector)
	if len(p) != 1 {
		panic("typedconf.KeyOf: selector must return address of a top-level field of T")
	}
	return p[0]
}

// FieldPathOf returns the path of declared field names of a nested field of
// T, the addressing used by View and the overlay.
func FieldPathOf[T any, F any](selector func(*T) *F) Path {
	return selectPath(selector, func(t fieldTag) string { return t.name })
}

// PathOf returns the external key path of a nested field of T. Only non-pointer
// struct fields are descended.
func PathOf[T any, F any](selector func(*T) *F) Path {
	return selectPath(selector, func(t fieldTag) string {
		if t.alias != "" {
			return t.alias
		}
		return t.name
	})
}

func selectPath[T any, F any](selector func(*T) *F, key func(fieldTag) string) Path {
	if selector == nil {
		panic("typedconf.PathOf: selector must not be nil")
	}
	var zero T
	target := reflect.ValueOf(selector(&zero)).Pointer()
	keys, ok := findPathKeys(reflect.ValueOf(&zero).Elem(), target, reflect.TypeFor[F](), key, 0)
	if !ok || len(keys) == 0 {
		panic("typedconf.PathOf: selector must address a nested struct field (non-pointer)")
	}
	return keys
}

const maxPathDepth = 32

// findPathKeys matches by address and type: a struct shares its address with
// its first field.
func findPathKeys(v reflect.Value, target uintptr, want reflect.Type, key func(fieldTag) string, depth int) (Path, bool) {
	if depth > maxPathDepth {
		return nil, false
	}
	t := v.Type()
	if t.Kind() != reflect.Struct {
		return nil, false
	}
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		tag := parseFieldTag(sf)
		if tag.skip {
			continue
		}
		fv := v.Field(i)
		if fv.Addr().Pointer() == target && fv.Type() == want {
			return Path{key(tag)}, true
		}
		if fv.Kind() == reflect.Struct {
			if rest, ok := findPathKeys(fv, target, want, key, depth+1); ok {
				return append(Path{key(tag)}, rest...), true
			}
		}
	}
	return nil, false
}

// Patch builds the nested update map that sets the value at an external key
// path.
func Patch(path Path, value any) map[string]any {
	if len(path) == 0 {
		if m, ok := value.(map[string]any); ok {
			return m
		}
		return map[string]any{}
	}
	out := map[string]any{}
	cur := out
	for _, k := range path[:len(path)-1] {
		next := map[string]any{}
		cur[k] = next
		cur = next
	}
	cur[path.Leaf()] = value
	return out
}
