package typedconf

import (
	"fmt"
	"reflect"
	"regexp"
	"sync"

	"github.com/rs/zerolog"

	js "github.com/reoring/typedconf/jsonschema"
)

// Registry owns the descriptor and schema caches together with union
// registrations and type options. One Registry is shared process-wide
// (DefaultRegistry) but any entry point accepts an injected one so that tests
// can run with isolated caches.
//
// Caches are populated at most once per type and never evicted. Changing
// union registrations or type options of a type after it has been introspected
// or compiled is undefined behaviour: earlier results stay cached.
type Registry struct {
	mu       sync.RWMutex
	records  map[reflect.Type]*RecordType
	schemas  map[schemaKey]*js.Schema
	defNames map[reflect.Type]string
	usedDefs map[string]bool
	unions   map[reflect.Type][]reflect.Type
	options  map[reflect.Type]TypeOptions

	validator Validator
	logger    zerolog.Logger
}

type schemaKey struct {
	t        reflect.Type
	override int8 // 0: none, 1: allow, -1: deny
}

// RegistryOption customizes a Registry.
type RegistryOption func(*Registry)

// WithValidator replaces the structural validator.
func WithValidator(v Validator) RegistryOption {
	return func(r *Registry) {
		if v != nil {
			r.validator = v
		}
	}
}

// WithRegistryLogger sets the logger used for compilation diagnostics.
func WithRegistryLogger(l zerolog.Logger) RegistryOption {
	return func(r *Registry) { r.logger = l }
}

// NewRegistry returns an empty Registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		records:   map[reflect.Type]*RecordType{},
		schemas:   map[schemaKey]*js.Schema{},
		defNames:  map[reflect.Type]string{},
		usedDefs:  map[string]bool{},
		unions:    map[reflect.Type][]reflect.Type{},
		options:   map[reflect.Type]TypeOptions{},
		validator: NewValidator(),
		logger:    zerolog.Nop(),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

var (
	defaultRegistryOnce sync.Once
	defaultRegistry     *Registry
)

// DefaultRegistry returns the process-wide Registry.
func DefaultRegistry() *Registry {
	defaultRegistryOnce.Do(func() { defaultRegistry = NewRegistry() })
	return defaultRegistry
}

// Validator returns the structural validator used by this Registry.
func (r *Registry) Validator() Validator { return r.validator }

// RegisterUnion declares the ordered alternatives of an interface type. Each
// alternative must implement the interface.
func (r *Registry) RegisterUnion(iface reflect.Type, alternatives ...reflect.Type) error {
	if iface == nil || iface.Kind() != reflect.Interface {
		return fmt.Errorf("typedconf: RegisterUnion requires an interface type, got %v", iface)
	}
	if len(alternatives) == 0 {
		return &CompileError{Type: iface.String(), Field: "-", Reason: "empty union"}
	}
	for _, alt := range alternatives {
		if alt == nil || !alt.Implements(iface) {
			return fmt.Errorf("typedconf: %v does not implement %v", alt, iface)
		}
	}
	r.mu.Lock()
	r.unions[iface] = append([]reflect.Type(nil), alternatives...)
	r.mu.Unlock()
	return nil
}

// RegisterUnion is a typed helper for Registry.RegisterUnion. Alternatives are
// given as sample values, e.g. RegisterUnion[Shape](reg, Circle{}, Square{}).
func RegisterUnion[I any](r *Registry, samples ...any) error {
	alts := make([]reflect.Type, 0, len(samples))
	for _, s := range samples {
		alts = append(alts, reflect.TypeOf(s))
	}
	return r.RegisterUnion(reflect.TypeFor[I](), alts...)
}

// SetTypeOptions attaches TypeOptions to a record type, taking precedence over
// the type's own Optioner implementation.
func (r *Registry) SetTypeOptions(t reflect.Type, o TypeOptions) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	r.mu.Lock()
	r.options[t] = o
	r.mu.Unlock()
}

var optionerType = reflect.TypeFor[Optioner]()

// typeOptionsLocked resolves registered options, then the Optioner method.
func (r *Registry) typeOptionsLocked(t reflect.Type) TypeOptions {
	if o, ok := r.options[t]; ok {
		return o
	}
	switch {
	case t.Implements(optionerType):
		return reflect.Zero(t).Interface().(Optioner).ConfOptions()
	case reflect.PointerTo(t).Implements(optionerType):
		return reflect.New(t).Interface().(Optioner).ConfOptions()
	}
	return TypeOptions{}
}

var defNameSanitizer = regexp.MustCompile(`[^A-Za-z0-9_]+`)

// defNameLocked returns a stable $defs name for a record type.
func (r *Registry) defNameLocked(t reflect.Type) string {
	if n, ok := r.defNames[t]; ok {
		return n
	}
	base := defNameSanitizer.ReplaceAllString(t.Name(), "_")
	if base == "" {
		base = "Record"
	}
	name := base
	for i := 2; r.usedDefs[name]; i++ {
		name = fmt.Sprintf("%s_%d", base, i)
	}
	r.usedDefs[name] = true
	r.defNames[t] = name
	return name
}
