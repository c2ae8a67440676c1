// Package codec turns caller values into stored payload bytes and back.
//
// The destination type is chosen by the caller at decode time, so codecs are
// not parameterized on a value type. Use Decode[V] for typed reads; pass a
// *any destination for dynamic reads (maps, slices and scalars).
package codec

import (
	"errors"
	"fmt"
)

// ErrUnsupportedTarget is returned when a codec cannot decode into the given destination.
var ErrUnsupportedTarget = errors.New("codec: unsupported decode target")

// Codec encodes values to []byte for storage and decodes them into dst (a pointer).
type Codec interface {
	Encode(v any) ([]byte, error)
	Decode(b []byte, dst any) error
	Name() string
}

// Decode decodes b into a fresh V.
func Decode[V any](c Codec, b []byte) (V, error) {
	var v V
	err := c.Decode(b, &v)
	return v, err
}

// Dynamic decodes b without a static destination type.
func Dynamic(c Codec, b []byte) (any, error) {
	var v any
	err := c.Decode(b, &v)
	return v, err
}

// ByName returns the codec registered under name (json, msgpack, cbor, bytes, protobuf).
func ByName(name string) (Codec, error) {
	switch name {
	case "", "json":
		return JSON{}, nil
	case "msgpack":
		return Msgpack{}, nil
	case "cbor":
		c, err := NewCBOR(false)
		if err != nil {
			return nil, err
		}
		return c, nil
	case "bytes":
		return Bytes{}, nil
	case "protobuf":
		return Protobuf{}, nil
	default:
		return nil, fmt.Errorf("codec: unknown codec %q", name)
	}
}
