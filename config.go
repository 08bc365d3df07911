package typedconf

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	js "github.com/reoring/typedconf/jsonschema"
	"github.com/reoring/typedconf/textio"
)

// UnknownPolicy controls what happens to keys no record type declares.
type UnknownPolicy int

const (
	// UnknownStrict rejects unknown keys with an UnknownFieldError, except on
	// record types that allow additional entries: there the key goes to the
	// overlay.
	UnknownStrict UnknownPolicy = iota
	// UnknownOverlay compiles every record type as additive and diverts all
	// unknown keys to the overlay.
	UnknownOverlay
	// UnknownIgnore drops unknown keys after logging a warning.
	UnknownIgnore
)

func (p UnknownPolicy) String() string {
	switch p {
	case UnknownOverlay:
		return "overlay"
	case UnknownIgnore:
		return "ignore"
	default:
		return "strict"
	}
}

// Option configures a Config.
type Option func(*options)

type options struct {
	reg    *Registry
	policy UnknownPolicy
	logger zerolog.Logger
}

// WithRegistry uses r instead of DefaultRegistry.
func WithRegistry(r *Registry) Option {
	return func(o *options) {
		if r != nil {
			o.reg = r
		}
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l zerolog.Logger) Option { return func(o *options) { o.logger = l } }

// WithExtraFields selects UnknownOverlay.
func WithExtraFields() Option { return WithUnknownPolicy(UnknownOverlay) }

// WithIgnoreUnknown selects UnknownIgnore.
func WithIgnoreUnknown() Option { return WithUnknownPolicy(UnknownIgnore) }

// WithUnknownPolicy selects the unknown-key policy.
func WithUnknownPolicy(p UnknownPolicy) Option { return func(o *options) { o.policy = p } }

// Config owns one validated record of type T and its overlay of undeclared
// entries. Callers serialize their own mutations of a Config.
type Config[T any] struct {
	reg    *Registry
	rt     *RecordType
	schema *js.Schema
	policy UnknownPolicy
	log    zerolog.Logger

	data  *T
	extra *Extra
}

func newConfig[T any](opts []Option) (*Config[T], error) {
	o := options{logger: zerolog.Nop()}
	for _, fn := range opts {
		fn(&o)
	}
	if o.reg == nil {
		o.reg = DefaultRegistry()
	}
	t := reflect.TypeFor[T]()
	rt, err := o.reg.Introspect(t)
	if err != nil {
		return nil, err
	}
	var override *bool
	if o.policy != UnknownStrict {
		override = js.Bool(true)
	}
	schema, err := o.reg.Compile(t, override)
	if err != nil {
		return nil, err
	}
	return &Config[T]{
		reg:    o.reg,
		rt:     rt,
		schema: schema,
		policy: o.policy,
		log:    o.logger.With().Str("config", rt.Name).Logger(),
		extra:  NewExtra(),
	}, nil
}

// New validates data and builds a Config from it. data is a T, a *T or a
// map keyed by external names.
func New[T any](data any, opts ...Option) (*Config[T], error) {
	c, err := newConfig[T](opts)
	if err != nil {
		return nil, err
	}
	if err := c.load(data); err != nil {
		return nil, err
	}
	return c, nil
}

// Default builds a Config from the type defaults of T.
func Default[T any](opts ...Option) (*Config[T], error) {
	c, err := newConfig[T](opts)
	if err != nil {
		return nil, err
	}
	if err := c.Reset(); err != nil {
		return nil, err
	}
	return c, nil
}

// load replaces data and overlay from a map or record.
func (c *Config[T]) load(data any) error {
	switch x := data.(type) {
	case map[string]any:
		return c.loadMap(x)
	case T:
		return c.loadRecord(&x)
	case *T:
		if x == nil {
			return ErrInvalidData
		}
		return c.loadRecord(x)
	case reflect.Type:
		return fmt.Errorf("%w: got the type %s, pass a value", ErrInvalidData, x)
	}
	return fmt.Errorf("%w: got %T", ErrInvalidData, data)
}

func (c *Config[T]) loadMap(m map[string]any) error {
	if err := c.validate(m); err != nil {
		return err
	}
	v, unknown, err := c.reg.Decode(c.rt.GoType, m)
	if err != nil {
		return asIssues(err)
	}
	extra := NewExtra()
	for _, u := range unknown {
		if err := c.onUnknown(extra, u); err != nil {
			return err
		}
	}
	c.data = v.Addr().Interface().(*T)
	c.extra = extra
	return nil
}

func (c *Config[T]) loadRecord(p *T) error {
	rec := Clone(p)
	enc, err := c.reg.Encode(rec)
	if err != nil {
		return err
	}
	if err := c.validate(enc); err != nil {
		return err
	}
	c.data = rec
	c.extra = NewExtra()
	return nil
}

// onUnknown applies the policy to one unknown key, diverting into extra.
func (c *Config[T]) onUnknown(extra *Extra, u UnknownKey) error {
	additive := u.Owner != nil && u.Owner.Options.AllowAdditional
	switch {
	case c.policy == UnknownIgnore:
		c.log.Warn().Str("path", u.Path.Dotted()).Msg("ignoring unknown field")
		return nil
	case !u.Divertible && additive:
		c.log.Debug().Str("path", u.Path.Dotted()).Msg("dropping additional entry inside a collection element")
		return nil
	case !u.Divertible:
		return &UnknownFieldError{Path: u.Path.Dotted()}
	case c.policy == UnknownOverlay || additive:
		node := extra.at(u.Path.Parent(), true)
		if node == nil {
			return &ConflictError{Path: u.Path.Dotted()}
		}
		node.Set(u.Path.Leaf(), u.Value)
		return nil
	}
	return &UnknownFieldError{Path: u.Path.Dotted()}
}

// Validate checks the current record against the compiled schema.
func (c *Config[T]) Validate() error {
	enc, err := c.reg.Encode(c.data)
	if err != nil {
		return err
	}
	return c.validate(enc)
}

func (c *Config[T]) validate(data map[string]any) error {
	if e := c.log.Debug(); e.Enabled() {
		if norm, err := toJSONValue(data); err == nil {
			if b, err := json.Marshal(norm); err == nil {
				e.RawJSON("data", b).Msg("validating")
			}
		}
	}
	err := c.reg.validateData(c.schema, data)
	if iss, ok := AsIssues(err); ok {
		c.log.Error().Int("violations", len(iss)).Str("first", iss[0].String()).Msg("validation failed")
	}
	return err
}

// Overwrite replaces the record with data (map or record) after validation
// and clears the overlay. On failure nothing changes.
func (c *Config[T]) Overwrite(data any) error {
	next := *c
	if err := next.load(data); err != nil {
		return err
	}
	c.data, c.extra = next.data, next.extra
	c.log.Debug().Msg("configuration overwritten")
	return nil
}

// Reset restores the type defaults and clears the overlay.
func (c *Config[T]) Reset() error {
	if c.rt.NeedsInput() {
		return fmt.Errorf("%w: %s", ErrNoDefault, c.rt.Name)
	}
	v, err := c.reg.NewRecord(c.rt.GoType)
	if err != nil {
		return err
	}
	c.data = v.Addr().Interface().(*T)
	c.extra = NewExtra()
	return nil
}

// Data returns the live record. Changes made through it bypass validation.
func (c *Config[T]) Data() *T { return c.data }

// Extra returns the overlay root.
func (c *Config[T]) Extra() *Extra { return c.extra }

// View returns an access cursor at the root.
func (c *Config[T]) View() *View {
	return &View{reg: c.reg, rec: reflect.ValueOf(c.data).Elem(), rt: c.rt, root: c.extra}
}

// JSONSchema returns the compiled schema document.
func (c *Config[T]) JSONSchema() *js.Schema { return c.schema }

// SchemaMap returns the compiled schema as plain maps.
func (c *Config[T]) SchemaMap() (map[string]any, error) { return c.schema.Map() }

// ToMap merges the encoded record with the overlay.
func (c *Config[T]) ToMap() (map[string]any, error) {
	enc, err := c.reg.Encode(c.data)
	if err != nil {
		return nil, err
	}
	return MergeMaps(enc, c.extra.ToMap())
}

// ToJSONMap is ToMap with every value in JSON shape: opaque values in their
// wire form, integers as int64.
func (c *Config[T]) ToJSONMap() (map[string]any, error) {
	m, err := c.ToMap()
	if err != nil {
		return nil, err
	}
	norm, err := toJSONValue(m)
	if err != nil {
		return nil, err
	}
	return norm.(map[string]any), nil
}

// ToYAML renders ToMap with record keys in declaration order.
func (c *Config[T]) ToYAML() ([]byte, error) {
	m, err := c.ToMap()
	if err != nil {
		return nil, err
	}
	n, err := yamlNode(&FieldType{Kind: KindRecord, GoType: c.rt.GoType, Record: c.rt}, m)
	if err != nil {
		return nil, err
	}
	return textio.Marshal(textio.YAML, n)
}

// ToJSON renders ToMap as indented JSON.
func (c *Config[T]) ToJSON() ([]byte, error) {
	m, err := c.ToJSONMap()
	if err != nil {
		return nil, err
	}
	return textio.Marshal(textio.JSON, m)
}

func (c *Config[T]) String() string {
	m, err := c.ToJSONMap()
	if err != nil {
		return fmt.Sprintf("%s(<%v>)", c.rt.Name, err)
	}
	b, err := json.MarshalIndent(m, "", "    ")
	if err != nil {
		return fmt.Sprintf("%s(<%v>)", c.rt.Name, err)
	}
	return c.rt.Name + string(b)
}

// asIssues turns decode failures into the aggregate validation error so that
// construction and updates fail with one error type.
func asIssues(err error) error {
	var de *DecodeError
	if errors.As(err, &de) {
		return Issues{{Path: de.Path, Code: de.Code, Message: de.Msg, Cause: de.Cause}}
	}
	return err
}
