package codec

import (
	"reflect"
	"time"
)

// Duration converts between Go duration strings ("1m30s") and time.Duration.
// Integer inputs are read as nanoseconds.
func Duration() Opaque { return durationCodec{} }

type durationCodec struct{}

func (durationCodec) Type() reflect.Type { return reflect.TypeFor[time.Duration]() }
func (durationCodec) Format() string     { return "go-duration" }

func (durationCodec) Decode(v any) (any, error) {
	switch x := v.(type) {
	case time.Duration:
		return x, nil
	case string:
		d, err := time.ParseDuration(x)
		if err != nil {
			return nil, formatErr("duration", x, err)
		}
		return d, nil
	case int:
		return time.Duration(x), nil
	case int64:
		return time.Duration(x), nil
	}
	return nil, formatErr("duration", v, nil)
}

func (durationCodec) Encode(v any) (string, error) {
	if d, ok := v.(time.Duration); ok {
		return d.String(), nil
	}
	return "", formatErr("time.Duration", v, nil)
}
