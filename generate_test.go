package typedconf_test

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/reoring/typedconf"
)

type genBasic struct {
	IntField   int     `conf:"int_field" default:"42"`
	StrField   string  `conf:"str_field" default:"Hello, World!"`
	BoolField  bool    `conf:"bool_field" default:"true"`
	FloatField float64 `conf:"float_field" default:"3.14"`
}

type genServer struct {
	Host   string            `conf:"host" default:"localhost" doc:"Host to bind."`
	Ports  []int             `conf:"ports" default:"[80, 443]"`
	Limits Config42          `conf:"limits"`
	Labels map[string]string `conf:"labels"`
	Note   *string           `conf:"note"`
}

const longDoc = "The base directory holds every file the service writes, including caches, " +
	"temporary uploads and rotated logs; it must be writable by the service user."

type genDoc struct {
	Dir string `conf:"dir" default:"/var/lib/app" doc:"The base directory holds every file the service writes, including caches, temporary uploads and rotated logs; it must be writable by the service user."`
}

func TestGenerate_Basic(t *testing.T) {
	got, err := typedconf.DefaultYAML[genBasic](typedconf.NewRegistry())
	if err != nil {
		t.Fatal(err)
	}
	want := "int_field: 42\nstr_field: Hello, World!\nbool_field: true\nfloat_field: 3.14"
	if got != want {
		t.Fatalf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestGenerate_SectionsAndSequences(t *testing.T) {
	got, err := typedconf.DefaultYAML[genServer](typedconf.NewRegistry())
	if err != nil {
		t.Fatal(err)
	}
	want := strings.Join([]string{
		"# Host to bind.",
		"host: localhost",
		"ports:",
		"  - 80",
		"  - 443",
		"limits:",
		"  int_field: 42",
		"  str_field: FortyTwo!",
		"",
		"labels: {}",
		"note: null",
	}, "\n")
	if got != want {
		t.Fatalf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestGenerate_DocWrap(t *testing.T) {
	lines, err := typedconf.NewRegistry().GenerateLines(reflect.TypeFor[genDoc]())
	if err != nil {
		t.Fatal(err)
	}
	var words []string
	comments := 0
	for _, l := range lines {
		c, ok := l.(typedconf.CommentLine)
		if !ok {
			continue
		}
		comments++
		if len(c.Comment) > 80 {
			t.Fatalf("comment exceeds 80 columns: %q", c.Comment)
		}
		words = append(words, strings.Fields(c.Comment)...)
	}
	if comments < 2 {
		t.Fatalf("expected wrapped doc, got %d lines", comments)
	}
	if strings.Join(words, " ") != longDoc {
		t.Fatalf("wrapping lost words: %v", words)
	}
}

func TestGenerate_RequiresDefaults(t *testing.T) {
	type holder struct {
		In Inner `conf:"in"`
	}
	_, err := typedconf.NewRegistry().GenerateLines(reflect.TypeFor[holder]())
	if !errors.Is(err, typedconf.ErrNoDefault) {
		t.Fatalf("expected ErrNoDefault, got %v", err)
	}
}

func TestGenerate_OutputParsesBack(t *testing.T) {
	r := typedconf.NewRegistry()
	doc, err := typedconf.DefaultYAML[genServer](r)
	if err != nil {
		t.Fatal(err)
	}
	c, err := typedconf.New[genServer](mustYAML(t, doc), typedconf.WithRegistry(r))
	if err != nil {
		t.Fatal(err)
	}
	if c.Data().Host != "localhost" || !reflect.DeepEqual(c.Data().Ports, []int{80, 443}) {
		t.Fatalf("got %+v", c.Data())
	}
}
