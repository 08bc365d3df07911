package textio

import (
	"fmt"

	"github.com/goccy/go-json"
	"github.com/pelletier/go-toml/v2"
)

// Normalize converts decoded documents (which may contain map[any]any,
// json.Number or TOML local date types) into JSON-like values recursively.
func Normalize(v any) (any, error) {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, vv := range t {
			n, err := Normalize(vv)
			if err != nil {
				return nil, err
			}
			out[k] = n
		}
		return out, nil
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, vv := range t {
			ks, ok := k.(string)
			if !ok {
				return nil, fmt.Errorf("textio: mapping key %v (%T) is not a string", k, k)
			}
			n, err := Normalize(vv)
			if err != nil {
				return nil, err
			}
			out[ks] = n
		}
		return out, nil
	case []any:
		out := make([]any, len(t))
		for i, vv := range t {
			n, err := Normalize(vv)
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	case []map[string]any:
		out := make([]any, len(t))
		for i, vv := range t {
			n, err := Normalize(vv)
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i, nil
		}
		f, err := t.Float64()
		if err != nil {
			return nil, fmt.Errorf("textio: invalid number %q", t)
		}
		return f, nil
	case toml.LocalDate:
		return t.String(), nil
	case toml.LocalTime:
		return t.String(), nil
	case toml.LocalDateTime:
		return t.String(), nil
	default:
		return v, nil
	}
}
