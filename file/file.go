// Package file binds a typed configuration to a file on disk: the file is
// generated from the type defaults when missing, validated on every load and
// optionally reloaded when it changes.
package file

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/reoring/typedconf"
	"github.com/reoring/typedconf/textio"
)

const (
	// EnvConfigFile overrides the configuration file location.
	EnvConfigFile = "TYPEDCONF_CONFIG_FILE"
	// DefaultPath is used when EnvConfigFile is unset.
	DefaultPath = "./config.yaml"
)

// Path resolves the configuration file location from the environment.
func Path() (string, error) {
	p := os.Getenv(EnvConfigFile)
	if strings.TrimSpace(p) == "" {
		p = DefaultPath
	}
	return ExpandPath(p)
}

// ExpandPath expands a leading "~" and makes p absolute.
func ExpandPath(p string) (string, error) {
	trimmed := strings.TrimSpace(p)
	if trimmed == "" {
		return "", errors.New("file: empty path")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	abs, err := filepath.Abs(trimmed)
	if err != nil {
		return "", fmt.Errorf("absolute path: %w", err)
	}
	return abs, nil
}

// Option configures a File.
type Option func(*options)

type options struct {
	path    string
	reg     *typedconf.Registry
	logger  zerolog.Logger
	cfgOpts []typedconf.Option
}

// WithPath uses p instead of the environment-derived location.
func WithPath(p string) Option { return func(o *options) { o.path = p } }

// PathFromOptions returns the path set with WithPath, or "".
func PathFromOptions(opts ...Option) string {
	var o options
	for _, fn := range opts {
		fn(&o)
	}
	return o.path
}

// WithRegistry sets the registry for both the configuration and the default
// document.
func WithRegistry(r *typedconf.Registry) Option { return func(o *options) { o.reg = r } }

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option { return func(o *options) { o.logger = l } }

// WithConfigOptions forwards options to the underlying configuration.
func WithConfigOptions(opts ...typedconf.Option) Option {
	return func(o *options) { o.cfgOpts = append(o.cfgOpts, opts...) }
}

// File is a configuration backed by a file. It is safe for concurrent use;
// Config returns the current snapshot, which callers must not mutate
// concurrently with reloads.
type File[T any] struct {
	mu       sync.RWMutex
	cfg      *typedconf.Config[T]
	path     string
	format   textio.Format
	reg      *typedconf.Registry
	cfgOpts  []typedconf.Option
	logger   zerolog.Logger
	onChange []func(*typedconf.Config[T])
}

// Open loads the configuration file, writing the default document first when
// the file does not exist.
func Open[T any](opts ...Option) (*File[T], error) {
	o := options{logger: zerolog.Nop()}
	for _, fn := range opts {
		fn(&o)
	}
	if o.reg == nil {
		o.reg = typedconf.DefaultRegistry()
	}
	var (
		path string
		err  error
	)
	if o.path != "" {
		path, err = ExpandPath(o.path)
	} else {
		path, err = Path()
	}
	if err != nil {
		return nil, err
	}
	f := &File[T]{
		path:    path,
		format:  textio.FormatFromPath(path),
		reg:     o.reg,
		cfgOpts: append([]typedconf.Option{typedconf.WithRegistry(o.reg), typedconf.WithLogger(o.logger)}, o.cfgOpts...),
		logger:  o.logger.With().Str("path", path).Logger(),
	}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := f.writeDefault(); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, fmt.Errorf("stat config: %w", err)
	}
	cfg, err := f.load()
	if err != nil {
		return nil, err
	}
	f.cfg = cfg
	return f, nil
}

// Path returns the absolute file location.
func (f *File[T]) Path() string { return f.path }

// Config returns the current configuration.
func (f *File[T]) Config() *typedconf.Config[T] {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.cfg
}

// DefaultDocument renders the default file content: documented YAML for YAML
// files, the encoded defaults otherwise.
func (f *File[T]) DefaultDocument() ([]byte, error) {
	if f.format == textio.YAML {
		s, err := typedconf.DefaultYAML[T](f.reg)
		if err != nil {
			return nil, err
		}
		return []byte(s + "\n"), nil
	}
	def, err := typedconf.Default[T](f.cfgOpts...)
	if err != nil {
		return nil, err
	}
	if f.format == textio.JSON {
		return def.ToJSON()
	}
	m, err := def.ToJSONMap()
	if err != nil {
		return nil, err
	}
	return textio.Marshal(f.format, m)
}

func (f *File[T]) writeDefault() error {
	if _, err := os.Stat(f.path); err == nil {
		f.logger.Warn().Msg("configuration file exists, overwriting with defaults")
	}
	doc, err := f.DefaultDocument()
	if err != nil {
		return fmt.Errorf("generate defaults: %w", err)
	}
	if err := f.write(doc); err != nil {
		return err
	}
	f.logger.Info().Msg("configuration file created")
	return nil
}

func (f *File[T]) write(doc []byte) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(f.path, doc, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func (f *File[T]) load() (*typedconf.Config[T], error) {
	f.logger.Info().Msg("loading config file")
	raw, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	m, err := textio.Unmarshal(f.format, raw)
	if err != nil {
		return nil, err
	}
	cfg, err := typedconf.New[T](m, f.cfgOpts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.path, err)
	}
	return cfg, nil
}

// Reload reads and validates the file again. On failure the previous
// configuration is kept.
func (f *File[T]) Reload() error {
	cfg, err := f.load()
	if err != nil {
		f.logger.Error().Err(err).Msg("config reload failed, keeping old config")
		return fmt.Errorf("reload config: %w", err)
	}
	f.swap(cfg)
	f.logger.Info().Msg("configuration reloaded successfully")
	return nil
}

// Reset rewrites the file with defaults and reloads it.
func (f *File[T]) Reset() error {
	if err := f.writeDefault(); err != nil {
		return err
	}
	return f.Reload()
}

// Save writes the current configuration, overlay included.
func (f *File[T]) Save() error {
	cfg := f.Config()
	var (
		doc []byte
		err error
	)
	switch f.format {
	case textio.YAML:
		doc, err = cfg.ToYAML()
	case textio.JSON:
		doc, err = cfg.ToJSON()
	default:
		var m map[string]any
		if m, err = cfg.ToJSONMap(); err == nil {
			doc, err = textio.Marshal(f.format, m)
		}
	}
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return f.write(doc)
}

// OnChange registers a callback run after every successful reload.
func (f *File[T]) OnChange(fn func(*typedconf.Config[T])) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onChange = append(f.onChange, fn)
}

func (f *File[T]) swap(cfg *typedconf.Config[T]) {
	f.mu.Lock()
	f.cfg = cfg
	listeners := append([]func(*typedconf.Config[T]){}, f.onChange...)
	f.mu.Unlock()
	for _, fn := range listeners {
		fn(cfg)
	}
}

// String includes the file location.
func (f *File[T]) String() string {
	return fmt.Sprintf("<config loaded from %s>:\n%s", f.path, f.Config())
}
