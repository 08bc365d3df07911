// Package typedconf derives validation schemas from Go struct types and keeps
// configuration data typed, validated and patchable.
//
// It provides:
//
// - A Type Introspector that turns struct types into RecordType descriptors
// - A Schema Compiler that projects descriptors into JSON Schema documents
// - A Record Codec converting between plain maps and typed records (alias aware)
// - Config[T]: validated construction, partial Update with rollback, Overwrite, Reset
// - An Extra overlay for keys the schema does not declare, reachable through View
//
// Design policy:
// - Keep the engine in the root package; text formats live under textio/, file
//   handling under file/, the command line under cli/ and cmd/typedconf.
// - Type-level flags are explicit TypeOptions, never mutations of the type.
// - Schema and descriptor caches live on an injectable Registry.
//
// Typical usage:
//
//	type Server struct {
//		Host string `conf:"host" default:"localhost"`
//		Port int    `conf:"port" default:"8080"`
//	}
//
//	cfg, err := typedconf.Default[Server]()
//	err = cfg.Update(map[string]any{"port": 9090})
//	m, err := cfg.ToMap()
package typedconf
