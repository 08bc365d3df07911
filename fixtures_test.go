package typedconf_test

import (
	"time"

	"github.com/reoring/typedconf"
)

type Config42 struct {
	IntField int    `conf:"int_field" default:"42"`
	StrField string `conf:"str_field" default:"FortyTwo!"`
}

type Nested struct {
	Inner Config42 `conf:"inner"`
	Other Config42 `conf:"other"`
	Label string   `conf:"label" default:"x"`
}

type Aliased struct {
	AttrField int `conf:"attr_field,alias=dict_field"`
}

type AliasedDict struct {
	AttrField int    `conf:"attr_field,alias=dict_field" default:"1"`
	Plain     string `conf:"plain" default:"p"`
}

func (AliasedDict) ConfOptions() typedconf.TypeOptions {
	return typedconf.TypeOptions{DictAccess: true}
}

type Folders struct {
	Folders map[string]Config42 `conf:"folders" default:"{placeholder: {}}"`
}

type Tree struct {
	Name     string `conf:"name"`
	Children []Tree `conf:"children"`
}

type Inner struct {
	A int `conf:"a"`
	B int `conf:"b" default:"7"`
}

type WithOptional struct {
	Opt  *Inner `conf:"opt"`
	Note *string
}

type Additive struct {
	Known string `conf:"known" default:"k"`
}

func (Additive) ConfOptions() typedconf.TypeOptions {
	return typedconf.TypeOptions{AllowAdditional: true}
}

type PtrAdditive struct {
	Known string `conf:"known" default:"k"`
}

func (*PtrAdditive) ConfOptions() typedconf.TypeOptions {
	return typedconf.TypeOptions{AllowAdditional: true}
}

type Mode string

func (Mode) EnumValues() []any { return []any{"fast", "safe"} }

type Shape interface{ Area() float64 }

type Circle struct {
	Radius float64 `conf:"radius"`
}

func (c Circle) Area() float64 { return 3 * c.Radius * c.Radius }

type Square struct {
	Side float64 `conf:"side"`
}

func (s Square) Area() float64 { return s.Side * s.Side }

type Drawing struct {
	Shape Shape `conf:"shape"`
}

type Kitchen struct {
	Title    string            `json:"title" default:"t"`
	MaxItems int               `default:"3"`
	Mode     Mode              `conf:"mode" default:"fast"`
	Level    string            `conf:"level" default:"info" enum:"debug,info"`
	Ratio    float64           `conf:"ratio" default:"0.5"`
	Tags     []string          `conf:"tags"`
	Env      map[string]string `conf:"env"`
	When     time.Time         `conf:"when" default:"2025-01-01T00:00:00Z"`
	Every    time.Duration     `conf:"every" default:"1m"`
	Anything any               `conf:"anything" default:"null"`
	Skipped  string            `conf:"-"`
	hidden   int
}

type Factory struct {
	Port  int    `conf:"port"`
	Host  string `conf:"host"`
	Token string `conf:"token,required"`
}

func (f *Factory) SetDefaults() {
	f.Port = 9000
	f.Host = "localhost"
}

func newRegistry() *typedconf.Registry {
	r := typedconf.NewRegistry()
	if err := typedconf.RegisterUnion[Shape](r, Circle{}, Square{}); err != nil {
		panic(err)
	}
	return r
}
