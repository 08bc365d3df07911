// Package textio reads and writes configuration documents in YAML, JSON and
// TOML, always exchanging JSON-shaped maps with callers.
package textio

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Format names a document syntax.
type Format string

const (
	YAML Format = "yaml"
	JSON Format = "json"
	TOML Format = "toml"
)

// ErrNotMapping reports a document whose root is not a mapping.
var ErrNotMapping = errors.New("textio: document root is not a mapping")

// FormatFromPath picks a format by file extension; YAML is the fallback.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return JSON
	case ".toml":
		return TOML
	default:
		return YAML
	}
}

// Unmarshal parses a document into a JSON-shaped map. An empty document
// yields an empty map.
func Unmarshal(f Format, data []byte) (map[string]any, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return map[string]any{}, nil
	}
	var raw any
	switch f {
	case JSON:
		if err := DetectJSONDuplicateKeys(data); err != nil {
			return nil, err
		}
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("textio: parse json: %w", err)
		}
	case TOML:
		var m map[string]any
		if err := toml.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("textio: parse toml: %w", err)
		}
		raw = m
	default:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("textio: parse yaml: %w", err)
		}
		if raw == nil {
			return map[string]any{}, nil
		}
	}
	n, err := Normalize(raw)
	if err != nil {
		return nil, err
	}
	m, ok := n.(map[string]any)
	if !ok {
		return nil, ErrNotMapping
	}
	return m, nil
}

// Marshal renders v. For YAML, v may be a *yaml.Node carrying key order.
func Marshal(f Format, v any) ([]byte, error) {
	switch f {
	case JSON:
		b, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(b, '\n'), nil
	case TOML:
		return toml.Marshal(dropNulls(v))
	default:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return nil, err
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
}

// dropNulls removes nil entries, which TOML cannot represent.
func dropNulls(v any) any {
	switch x := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			if e == nil {
				continue
			}
			out[k] = dropNulls(e)
		}
		return out
	case []any:
		out := make([]any, 0, len(x))
		for _, e := range x {
			if e != nil {
				out = append(out, dropNulls(e))
			}
		}
		return out
	}
	return v
}
