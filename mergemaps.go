package typedconf

import (
	"reflect"
)

// MergeMaps merges src into dst recursively. Nested maps merge key by key;
// any other value present on both sides must be equal, else the result is a
// ConflictError naming the dotted path. dst is modified and returned.
func MergeMaps(dst, src map[string]any) (map[string]any, error) {
	return mergeMaps(dst, src, nil)
}

func mergeMaps(dst, src map[string]any, path Path) (map[string]any, error) {
	if dst == nil {
		dst = map[string]any{}
	}
	for _, k := range sortedKeys(src) {
		sv := src[k]
		dv, ok := dst[k]
		if !ok {
			dst[k] = sv
			continue
		}
		dm, dIsMap := dv.(map[string]any)
		sm, sIsMap := sv.(map[string]any)
		switch {
		case dIsMap && sIsMap:
			merged, err := mergeMaps(dm, sm, path.Field(k))
			if err != nil {
				return nil, err
			}
			dst[k] = merged
		case reflect.DeepEqual(dv, sv):
		default:
			return nil, &ConflictError{Path: path.Field(k).Dotted()}
		}
	}
	return dst, nil
}
