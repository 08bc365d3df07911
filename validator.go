package typedconf

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	js "github.com/reoring/typedconf/jsonschema"
)

// Violation is one structural validation failure.
type Violation struct {
	Message string
	Path    Path
}

// Validator checks JSON-shaped data against a compiled schema document. An
// empty result means the data is valid; an error means validation itself could
// not run.
type Validator interface {
	Validate(schema *js.Schema, data any) ([]Violation, error)
}

// SchemaChecker is implemented by validators able to check a document against
// the JSON Schema metaschema.
type SchemaChecker interface {
	CheckSchema(schema *js.Schema) error
}

// NewValidator returns the default draft 2020-12 validator.
func NewValidator() Validator {
	return &draft2020Validator{compiled: map[*js.Schema]*jsonschema.Schema{}}
}

type draft2020Validator struct {
	mu       sync.Mutex
	seq      int
	compiled map[*js.Schema]*jsonschema.Schema
}

func (v *draft2020Validator) compile(s *js.Schema) (*jsonschema.Schema, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if c, ok := v.compiled[s]; ok {
		return c, nil
	}
	b, err := json.Marshal(s.ForValidation())
	if err != nil {
		return nil, err
	}
	v.seq++
	url := fmt.Sprintf("mem://typedconf/schema-%d.json", v.seq)
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource(url, bytes.NewReader(b)); err != nil {
		return nil, err
	}
	compiled, err := c.Compile(url)
	if err != nil {
		return nil, err
	}
	v.compiled[s] = compiled
	return compiled, nil
}

func (v *draft2020Validator) CheckSchema(s *js.Schema) error {
	_, err := v.compile(s)
	return err
}

func (v *draft2020Validator) Validate(s *js.Schema, data any) ([]Violation, error) {
	compiled, err := v.compile(s)
	if err != nil {
		return nil, &InternalSchemaError{Cause: err}
	}
	norm, err := toJSONValue(data)
	if err != nil {
		return nil, err
	}
	err = compiled.Validate(norm)
	if err == nil {
		return nil, nil
	}
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return nil, err
	}
	var out []Violation
	flattenViolations(ve, &out)
	return out, nil
}

func flattenViolations(ve *jsonschema.ValidationError, out *[]Violation) {
	if len(ve.Causes) == 0 {
		*out = append(*out, Violation{Message: ve.Message, Path: ParsePointer(ve.InstanceLocation)})
		return
	}
	for _, c := range ve.Causes {
		flattenViolations(c, out)
	}
}

// violationIssues converts violations to the aggregate error.
func violationIssues(vs []Violation) Issues {
	iss := make(Issues, 0, len(vs))
	for _, v := range vs {
		iss = append(iss, Issue{Path: v.Path.Dotted(), Code: CodeSchemaMismatch, Message: v.Message})
	}
	return iss
}

// validateData runs the registry validator and returns Issues on violations.
func (r *Registry) validateData(s *js.Schema, data any) error {
	vs, err := r.validator.Validate(s, data)
	if err != nil {
		return err
	}
	if len(vs) > 0 {
		return violationIssues(vs)
	}
	return nil
}
