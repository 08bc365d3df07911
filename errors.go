package typedconf

import (
	"errors"
	"fmt"
	"strings"

	"github.com/reoring/typedconf/i18n"
)

// Issue codes (exported consts for IDE completion and type safety by convention)
const (
	CodeInvalidType    = "invalid_type"
	CodeRequired       = "required"
	CodeUnknownKey     = "unknown_key"
	CodeDuplicateKey   = "duplicate_key"
	CodeInvalidEnum    = "invalid_enum"
	CodeInvalidFormat  = "invalid_format"
	CodeNoAlternative  = "no_alternative"
	CodeSchemaMismatch = "schema_mismatch"
	CodeParseError     = "parse_error"
	CodeConflict       = "conflict"
)

var (
	// ErrKeyNotFound is returned by subscript-style lookups for missing keys.
	ErrKeyNotFound = errors.New("typedconf: key not found")
	// ErrNoDefault reports a record type whose required fields have no default.
	ErrNoDefault = errors.New("typedconf: required field has no default")
	// ErrInvalidData reports data that is neither a map nor a record of the schema type.
	ErrInvalidData = errors.New("typedconf: data must be a map or a record instance")
)

// Issue represents a single validation entry.
type Issue struct {
	Path    string // Dotted path from the root (for example: folders.config1.int_field).
	Code    string // One of the codes listed above.
	Message string
	Hint    string // Optional: remediation hints.
	Cause   error  // Optional: underlying error.
}

func (it Issue) String() string {
	if it.Path == "" {
		return it.Message
	}
	return fmt.Sprintf("%s in section '%s'", it.Message, it.Path)
}

// Issues is the aggregate validation error raised by construction, Update and
// Overwrite whenever the structural validator reports violations.
type Issues []Issue

// Error summarizes the first few issues.
func (iss Issues) Error() string {
	if len(iss) == 0 {
		return ""
	}
	const maxShown = 3
	b := &strings.Builder{}
	n := len(iss)
	lim := n
	if lim > maxShown {
		lim = maxShown
	}
	for i := 0; i < lim; i++ {
		if i > 0 {
			b.WriteString("; ")
		}
		it := iss[i]
		if it.Path == "" {
			fmt.Fprintf(b, "%s: %s", it.Code, it.Message)
			continue
		}
		fmt.Fprintf(b, "%s at %s: %s", it.Code, it.Path, it.Message)
	}
	if n > lim {
		fmt.Fprintf(b, "; ... (total %d)", n)
	}
	return b.String()
}

// AppendIssues appends issues to the destination, initializing the slice when
// needed.
func AppendIssues(dst Issues, more ...Issue) Issues {
	if dst == nil {
		dst = Issues{}
	}
	dst = append(dst, more...)
	return dst
}

// AsIssues extracts Issues from an error using errors.As internally.
func AsIssues(err error) (Issues, bool) {
	if err == nil {
		return nil, false
	}
	var iss Issues
	if errors.As(err, &iss) {
		return iss, true
	}
	return nil, false
}

// IntrospectError reports a struct field whose type cannot be resolved.
type IntrospectError struct {
	Type   string
	Field  string
	Reason string
}

func (e *IntrospectError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("typedconf: cannot introspect %s: %s", e.Type, e.Reason)
	}
	return fmt.Sprintf("typedconf: cannot resolve field %s.%s: %s", e.Type, e.Field, e.Reason)
}

// CompileError reports a field type the schema compiler cannot express
// (non-string mapping keys, empty unions, empty or unsupported literal sets).
type CompileError struct {
	Type   string
	Field  string
	Reason string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("typedconf: cannot compile %s.%s: %s", e.Type, e.Field, e.Reason)
}

// InternalSchemaError reports a compiled document rejected by the metaschema.
// It points at a compiler defect, never at user data.
type InternalSchemaError struct {
	Type  string
	Cause error
}

func (e *InternalSchemaError) Error() string {
	return fmt.Sprintf("typedconf: internal error: schema for %s is not well-formed: %v", e.Type, e.Cause)
}

func (e *InternalSchemaError) Unwrap() error { return e.Cause }

// UnknownFieldError reports a key absent from the schema while the active
// policy disallows additions. Path is the dotted path from the root.
type UnknownFieldError struct {
	Path string
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("typedconf: %s '%s' on configuration", i18n.T(CodeUnknownKey, nil), e.Path)
}

// DecodeError reports a value that could not be turned into the declared field
// type. It wraps the underlying cause.
type DecodeError struct {
	Path  string
	Code  string
	Msg   string
	Cause error
}

func (e *DecodeError) Error() string {
	var b strings.Builder
	b.WriteString("typedconf: decode")
	if e.Path != "" {
		b.WriteString(" ")
		b.WriteString(e.Path)
	}
	b.WriteString(": ")
	b.WriteString(e.Msg)
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *DecodeError) Unwrap() error { return e.Cause }

// ConflictError reports a key that holds two different values across the
// overlay and the schema-side data.
type ConflictError struct {
	Path string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("typedconf: %s at %s", i18n.T(CodeConflict, nil), e.Path)
}
