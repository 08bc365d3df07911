package codec

import (
	"reflect"
	"time"
)

// TimeRFC3339 converts between RFC3339 strings and time.Time.
func TimeRFC3339() Opaque { return rfc3339Codec{} }

type rfc3339Codec struct{}

func (rfc3339Codec) Type() reflect.Type { return reflect.TypeFor[time.Time]() }
func (rfc3339Codec) Format() string     { return "date-time" }

func (rfc3339Codec) Decode(v any) (any, error) {
	switch x := v.(type) {
	case time.Time:
		return x, nil
	case *time.Time:
		if x != nil {
			return *x, nil
		}
	case string:
		t, err := parseRFC3339(x)
		if err != nil {
			return nil, formatErr("RFC3339 time", x, err)
		}
		return t, nil
	}
	return nil, formatErr("RFC3339 time", v, nil)
}

func (rfc3339Codec) Encode(v any) (string, error) {
	switch x := v.(type) {
	case time.Time:
		return formatRFC3339Canonical(x), nil
	case *time.Time:
		if x != nil {
			return formatRFC3339Canonical(*x), nil
		}
	}
	return "", formatErr("time.Time", v, nil)
}

func parseRFC3339(s string) (time.Time, error) {
	// Accept RFC3339Nano (trailing zeros optional)
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		if t2, err2 := time.Parse(time.RFC3339, s); err2 == nil {
			return t2, nil
		}
		return time.Time{}, err
	}
	return t, nil
}

func formatRFC3339Canonical(t time.Time) string {
	// Normalize to UTC and format using RFC3339Nano (Go trims trailing zeros)
	return t.UTC().Format(time.RFC3339Nano)
}
