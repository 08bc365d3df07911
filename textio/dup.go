package textio

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// DuplicateKeyError reports a JSON object key that occurs twice.
type DuplicateKeyError struct {
	Path string // JSON Pointer of the enclosing object
	Key  string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("textio: key '%s' duplicated at %s", e.Key, e.Path)
}

type containerKind int

const (
	kindObject containerKind = iota
	kindArray
)

type dupFrame struct {
	kind         containerKind
	keys         map[string]struct{}
	expectingKey bool
	path         string
	lastKey      string
	index        int
}

// DetectJSONDuplicateKeys scans a JSON document token by token and returns the
// first duplicated object key. Syntax errors are left to the real parser.
func DetectJSONDuplicateKeys(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var stack []dupFrame

	childPath := func() string {
		if len(stack) == 0 {
			return ""
		}
		top := &stack[len(stack)-1]
		if top.kind == kindObject {
			return top.path + "/" + escapePointer(top.lastKey)
		}
		return fmt.Sprintf("%s/%d", top.path, top.index)
	}
	valueDone := func() {
		if len(stack) == 0 {
			return
		}
		top := &stack[len(stack)-1]
		if top.kind == kindObject {
			top.expectingKey = true
		} else {
			top.index++
		}
	}

	for {
		tok, err := dec.Token()
		if err != nil {
			// io.EOF or a syntax error reported later by the parser.
			return nil
		}
		switch v := tok.(type) {
		case json.Delim:
			switch v {
			case '{':
				stack = append(stack, dupFrame{kind: kindObject, keys: map[string]struct{}{}, expectingKey: true, path: childPath()})
			case '[':
				stack = append(stack, dupFrame{kind: kindArray, path: childPath()})
			case '}', ']':
				if len(stack) > 0 {
					stack = stack[:len(stack)-1]
				}
				valueDone()
			}
		case string:
			if len(stack) > 0 {
				top := &stack[len(stack)-1]
				if top.kind == kindObject && top.expectingKey {
					if _, ok := top.keys[v]; ok {
						p := top.path
						if p == "" {
							p = "/"
						}
						return &DuplicateKeyError{Path: p, Key: v}
					}
					top.keys[v] = struct{}{}
					top.lastKey = v
					top.expectingKey = false
					continue
				}
			}
			valueDone()
		default:
			valueDone()
		}
	}
}

func escapePointer(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "~", "~0"), "/", "~1")
}
