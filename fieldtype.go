package typedconf

import (
	"reflect"
	"strconv"
)

// Kind is the resolved shape of a field type. It is the single type-shape
// vocabulary shared by the compiler and the codec.
type Kind int

const (
	KindInvalid Kind = iota
	KindString
	KindInteger
	KindNumber
	KindBoolean
	KindNull
	KindAny
	KindOptional // Elem | absence
	KindUnion    // ordered Alternatives
	KindLiteral  // fixed Values
	KindSequence // homogeneous Elem
	KindMapping  // string keys, Elem values
	KindRecord   // nested Record
	KindOpaque   // types passed through unchanged (time.Time, time.Duration)
)

var kindNames = [...]string{
	KindInvalid:  "invalid",
	KindString:   "string",
	KindInteger:  "integer",
	KindNumber:   "number",
	KindBoolean:  "boolean",
	KindNull:     "null",
	KindAny:      "any",
	KindOptional: "optional",
	KindUnion:    "union",
	KindLiteral:  "literal",
	KindSequence: "sequence",
	KindMapping:  "mapping",
	KindRecord:   "record",
	KindOpaque:   "opaque",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// FieldType is a resolved field type.
type FieldType struct {
	Kind   Kind
	GoType reflect.Type

	Elem         *FieldType   // optional, sequence, mapping
	Key          reflect.Type // mapping key type
	Alternatives []*FieldType // union, in declaration order
	Values       []any        // literal
	Record       *RecordType  // record
}

// IsComposite reports sequences and mappings.
func (t *FieldType) IsComposite() bool {
	return t.Kind == KindSequence || t.Kind == KindMapping
}

// Unwrap strips one optional wrapper.
func (t *FieldType) Unwrap() *FieldType {
	if t.Kind == KindOptional {
		return t.Elem
	}
	return t
}

// Field is one declared field of a record type.
type Field struct {
	Name   string // declared name
	Alias  string // external name, "" when none
	GoName string
	Index  []int
	Type   *FieldType
	Doc    []string

	// DefaultTag holds the raw `default` tag; HasDefault also covers default
	// factories and optional/composite fields.
	DefaultTag  string
	HasDefault  bool
	NotRequired bool
}

// Key is the name used in external maps: the alias when declared.
func (f *Field) Key() string {
	if f.Alias != "" {
		return f.Alias
	}
	return f.Name
}

// Optional reports whether the field accepts absence.
func (f *Field) Optional() bool { return f.Type.Kind == KindOptional }

// Required reports whether the compiled schema lists the field as required.
// Defaults do not relax this: a map validated against the schema must carry
// every field that is neither optional nor marked notrequired.
func (f *Field) Required() bool {
	return !f.Optional() && !f.NotRequired
}

// Mandatory reports whether decoding fails when the key is missing.
func (f *Field) Mandatory() bool {
	return f.Required() && !f.HasDefault
}

// TypeOptions are the type-level capabilities of a record type.
type TypeOptions struct {
	// AllowAdditional accepts entries not declared by the type.
	AllowAdditional bool
	// DictAccess restricts subscript access on aliased fields to the alias.
	DictAccess bool
	// Doc documents the type in generated defaults.
	Doc string
}

// Optioner is implemented by record types that declare TypeOptions, with a
// value or pointer receiver. The method is called on the zero value.
type Optioner interface {
	ConfOptions() TypeOptions
}

// Defaulter is implemented (on the pointer receiver) by record types acting as
// default factories. SetDefaults runs after `default` tags have been applied.
type Defaulter interface {
	SetDefaults()
}

// Enum is implemented by named types whose values form a literal set.
type Enum interface {
	EnumValues() []any
}

// RecordType describes a struct type.
type RecordType struct {
	Name    string
	GoType  reflect.Type
	Fields  []*Field
	Options TypeOptions

	byName  map[string]*Field
	byAlias map[string]*Field
}

// Lookup resolves an external key to a field. Aliases take priority over
// declared names; a declared name shadowed by an alias elsewhere still resolves
// to the aliased field.
func (r *RecordType) Lookup(key string) (*Field, bool) {
	if f, ok := r.byAlias[key]; ok {
		return f, true
	}
	f, ok := r.byName[key]
	return f, ok
}

// ByName resolves a declared field name, ignoring aliases.
func (r *RecordType) ByName(name string) (*Field, bool) {
	f, ok := r.byName[name]
	return f, ok
}

// ByKey resolves a key the way external maps are validated: the alias when a
// field declares one, otherwise the declared name.
func (r *RecordType) ByKey(key string) (*Field, bool) {
	if f, ok := r.byAlias[key]; ok {
		return f, true
	}
	if f, ok := r.byName[key]; ok && f.Alias == "" {
		return f, true
	}
	return nil, false
}

// NeedsInput reports fields that have no default, so the type cannot be
// instantiated from nothing.
func (r *RecordType) NeedsInput() bool {
	for _, f := range r.Fields {
		if f.Mandatory() {
			return true
		}
	}
	return false
}

// Nested visits every record type reachable from r, r included, exactly once.
func (r *RecordType) Nested() []*RecordType {
	seen := map[reflect.Type]bool{}
	var out []*RecordType
	var walkType func(t *FieldType)
	var walk func(rt *RecordType)
	walk = func(rt *RecordType) {
		if seen[rt.GoType] {
			return
		}
		seen[rt.GoType] = true
		out = append(out, rt)
		for _, f := range rt.Fields {
			walkType(f.Type)
		}
	}
	walkType = func(t *FieldType) {
		if t == nil {
			return
		}
		switch t.Kind {
		case KindRecord:
			walk(t.Record)
		case KindOptional, KindSequence, KindMapping:
			walkType(t.Elem)
		case KindUnion:
			for _, a := range t.Alternatives {
				walkType(a)
			}
		}
	}
	walk(r)
	return out
}

func parseLiteral(tok string) any {
	switch tok {
	case "true":
		return true
	case "false":
		return false
	case "null":
		return nil
	}
	if i, err := strconv.ParseInt(tok, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(tok, 64); err == nil {
		return f
	}
	return tok
}
