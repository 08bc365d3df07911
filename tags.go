package typedconf

import (
	"reflect"
	"strings"

	"github.com/stoewer/go-strcase"
)

// Struct tag keys understood by the introspector.
const (
	TagConf    = "conf"
	TagDefault = "default"
	TagDoc     = "doc"
	TagEnum    = "enum"
)

// fieldTag is the parsed form of a `conf:"name,alias=x,optional"` tag.
type fieldTag struct {
	skip        bool
	name        string
	alias       string
	optional    bool
	notRequired bool
	required    bool
}

// parseFieldTag applies the repository-wide rule to resolve a struct field's
// declared name and options.
// Priority: conf tag name > json tag name > snake_case of the field name; "-" disables the field.
func parseFieldTag(sf reflect.StructField) fieldTag {
	var ft fieldTag
	ct, hasConf := sf.Tag.Lookup(TagConf)
	if hasConf {
		parts := strings.Split(ct, ",")
		if strings.TrimSpace(parts[0]) == "-" && len(parts) == 1 {
			ft.skip = true
			return ft
		}
		ft.name = strings.TrimSpace(parts[0])
		for _, p := range parts[1:] {
			p = strings.TrimSpace(p)
			switch {
			case strings.HasPrefix(p, "alias="):
				ft.alias = strings.TrimPrefix(p, "alias=")
			case p == "optional":
				ft.optional = true
			case p == "notrequired":
				ft.notRequired = true
			case p == "required":
				ft.required = true
			}
		}
	}
	if ft.name == "" {
		if jt := sf.Tag.Get("json"); jt != "" {
			if jt == "-" {
				ft.skip = true
				return ft
			}
			if i := strings.IndexByte(jt, ','); i >= 0 {
				jt = jt[:i]
			}
			ft.name = jt
		}
	}
	if ft.name == "" {
		ft.name = strcase.SnakeCase(sf.Name)
	}
	return ft
}

// parseEnumTag splits an enum tag into literal values. Tokens that read as
// booleans, integers or floats become those types; everything else is a string.
func parseEnumTag(tag string) []any {
	if strings.TrimSpace(tag) == "" {
		return nil
	}
	var out []any
	for _, tok := range strings.Split(tag, ",") {
		out = append(out, parseLiteral(strings.TrimSpace(tok)))
	}
	return out
}
