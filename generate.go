package typedconf

import (
	"fmt"
	"reflect"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/reoring/typedconf/codec"
)

// docWidth is the wrap column of generated comments.
const docWidth = 80

// Line is one line of a generated defaults document.
type Line interface {
	Content() string
}

// EmptyLine separates sections.
type EmptyLine struct{}

// CommentLine is a documentation comment.
type CommentLine struct {
	Comment string
	Indent  int
}

// MapLine is a "key: value" entry.
type MapLine struct {
	Name   string
	Value  any
	Indent int
}

// SequenceLine is a "- value" entry. A nil Value opens a nested mapping.
type SequenceLine struct {
	Value  any
	Indent int
}

// SectionLine opens a nested mapping or sequence.
type SectionLine struct {
	Name   string
	Indent int
}

func pad(n int) string { return strings.Repeat("  ", n) }

func (EmptyLine) Content() string     { return "" }
func (l CommentLine) Content() string { return pad(l.Indent) + "# " + strings.TrimSpace(l.Comment) }
func (l MapLine) Content() string {
	if l.Value == nil {
		return pad(l.Indent) + l.Name + ":"
	}
	return pad(l.Indent) + l.Name + ": " + scalarText(l.Value)
}
func (l SequenceLine) Content() string {
	if l.Value == nil {
		return pad(l.Indent) + "-"
	}
	return pad(l.Indent) + "- " + scalarText(l.Value)
}
func (l SectionLine) Content() string { return pad(l.Indent) + l.Name + ":" }

// nullValue renders as an explicit null in MapLine and SequenceLine.
type nullValue struct{}

// rawValue is emitted verbatim.
type rawValue string

func scalarText(v any) string {
	switch x := v.(type) {
	case nullValue:
		return "null"
	case rawValue:
		return string(x)
	}
	if s, ok, err := codec.Wire(v); ok && err == nil {
		v = s
	}
	b, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return strings.TrimSuffix(string(b), "\n")
}

// GenerateLines renders the defaults of a record type as documented YAML
// lines. Every field that is not optional needs a default.
func (r *Registry) GenerateLines(t reflect.Type) ([]Line, error) {
	rt, err := r.Introspect(t)
	if err != nil {
		return nil, err
	}
	for _, nested := range rt.Nested() {
		for _, f := range nested.Fields {
			if f.Mandatory() {
				return nil, fmt.Errorf("%w: field %s.%s", ErrNoDefault, nested.Name, f.Name)
			}
		}
	}
	def, err := r.NewRecord(t)
	if err != nil {
		return nil, err
	}
	enc, err := encodeRecord(rt, def)
	if err != nil {
		return nil, err
	}
	return recordLines(rt, enc, 0), nil
}

// DefaultYAML renders the documented defaults of T.
func DefaultYAML[T any](r *Registry) (string, error) {
	lines, err := r.GenerateLines(reflect.TypeFor[T]())
	if err != nil {
		return "", err
	}
	return JoinLines(lines), nil
}

// JoinLines joins rendered lines with newlines.
func JoinLines(lines []Line) string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l.Content()
	}
	return strings.Join(out, "\n")
}

func recordLines(rt *RecordType, enc map[string]any, indent int) []Line {
	var lines []Line
	if rt.Options.Doc != "" {
		lines = append(lines, docLines(rt.Options.Doc, indent)...)
		lines = append(lines, EmptyLine{})
	}
	for _, f := range rt.Fields {
		lines = append(lines, fieldLines(f, enc[f.Key()], indent)...)
	}
	return lines
}

func fieldLines(f *Field, v any, indent int) []Line {
	var lines []Line
	for _, d := range f.Doc {
		lines = append(lines, docLines(d, indent)...)
	}
	key := f.Key()
	switch x := v.(type) {
	case nil:
		return append(lines, MapLine{Name: key, Value: nullValue{}, Indent: indent})
	case map[string]any:
		if t := f.Type.Unwrap(); t.Kind == KindRecord {
			lines = append(lines, SectionLine{Name: key, Indent: indent})
			lines = append(lines, recordLines(t.Record, x, indent+1)...)
			return append(lines, EmptyLine{})
		}
		if len(x) == 0 {
			return append(lines, MapLine{Name: key, Value: rawValue("{}"), Indent: indent})
		}
		lines = append(lines, SectionLine{Name: key, Indent: indent})
		elem := f.Type.Unwrap().Elem
		for _, k := range sortedKeys(x) {
			if m, ok := x[k].(map[string]any); ok && elem != nil && elem.Unwrap().Kind == KindRecord {
				lines = append(lines, MapLine{Name: k, Indent: indent + 1})
				lines = append(lines, recordLines(elem.Unwrap().Record, m, indent+2)...)
				continue
			}
			lines = append(lines, valueLines(k, x[k], indent+1)...)
		}
		return lines
	case []any:
		if len(x) == 0 {
			return append(lines, MapLine{Name: key, Value: rawValue("[]"), Indent: indent})
		}
		lines = append(lines, SectionLine{Name: key, Indent: indent})
		elem := f.Type.Unwrap().Elem
		for _, e := range x {
			if m, ok := e.(map[string]any); ok && elem != nil && elem.Unwrap().Kind == KindRecord {
				lines = append(lines, SequenceLine{Indent: indent + 1})
				lines = append(lines, recordLines(elem.Unwrap().Record, m, indent+2)...)
				continue
			}
			lines = append(lines, SequenceLine{Value: flowValue(e), Indent: indent + 1})
		}
		return lines
	}
	return append(lines, MapLine{Name: key, Value: v, Indent: indent})
}

// valueLines renders an untyped entry of a mapping field.
func valueLines(key string, v any, indent int) []Line {
	if v == nil {
		return []Line{MapLine{Name: key, Value: nullValue{}, Indent: indent}}
	}
	return []Line{MapLine{Name: key, Value: flowValue(v), Indent: indent}}
}

// flowValue renders nested composites inline.
func flowValue(v any) any {
	switch v.(type) {
	case map[string]any, []any:
		n, err := yamlNode(nil, v)
		if err != nil {
			return v
		}
		n.Style = yaml.FlowStyle
		b, err := yaml.Marshal(n)
		if err != nil {
			return v
		}
		return rawValue(strings.TrimSuffix(string(b), "\n"))
	case nil:
		return nullValue{}
	}
	return v
}

// docLines wraps a doc string on word boundaries.
func docLines(doc string, indent int) []Line {
	var out []Line
	for _, line := range strings.Split(doc, "\n") {
		for len(line) > docWidth {
			at := strings.LastIndex(line[:docWidth], " ")
			if at <= 0 {
				at = docWidth
			}
			if s := strings.TrimSpace(line[:at]); s != "" {
				out = append(out, CommentLine{Comment: s, Indent: indent})
			}
			line = strings.TrimLeft(line[at:], " ")
		}
		if s := strings.TrimSpace(line); s != "" {
			out = append(out, CommentLine{Comment: s, Indent: indent})
		}
	}
	return out
}
