package typedconf

import (
	"strconv"
	"strings"
)

// Path locates a value from the configuration root as a list of keys. Sequence
// positions are rendered as decimal indices.
type Path []string

// Field returns a new Path extended by name. The receiver is never modified.
func (p Path) Field(name string) Path {
	return append(append(Path{}, p...), name)
}

// Index returns a new Path extended by a sequence position.
func (p Path) Index(i int) Path {
	return p.Field(strconv.Itoa(i))
}

// Parent returns the path without its last element.
func (p Path) Parent() Path {
	if len(p) == 0 {
		return nil
	}
	return p[:len(p)-1]
}

// Leaf returns the last element or "" for the root.
func (p Path) Leaf() string {
	if len(p) == 0 {
		return ""
	}
	return p[len(p)-1]
}

// Dotted renders the path as a.b.c; the root renders as "".
func (p Path) Dotted() string { return strings.Join(p, ".") }

// Pointer renders the path as a JSON Pointer (RFC6901).
func (p Path) Pointer() string {
	if len(p) == 0 {
		return "/"
	}
	parts := make([]string, len(p))
	for i, s := range p {
		// escape '~' -> '~0', '/' -> '~1' per RFC6901
		parts[i] = strings.ReplaceAll(strings.ReplaceAll(s, "~", "~0"), "/", "~1")
	}
	return "/" + strings.Join(parts, "/")
}

// ParsePointer converts a JSON Pointer into a Path, unescaping RFC6901 tokens.
func ParsePointer(ptr string) Path {
	if ptr == "" || ptr == "/" {
		return nil
	}
	var out Path
	for _, s := range strings.Split(strings.TrimPrefix(ptr, "/"), "/") {
		if s == "" {
			continue
		}
		out = append(out, strings.ReplaceAll(strings.ReplaceAll(s, "~1", "/"), "~0", "~"))
	}
	return out
}

func (p Path) String() string { return p.Dotted() }
