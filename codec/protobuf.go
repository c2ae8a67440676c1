package codec

import (
	"fmt"
	"reflect"

	"google.golang.org/protobuf/proto"
)

// Protobuf stores proto.Message values. Decode accepts a message, or a pointer
// to a message pointer (what Decode[*pb.User] passes), allocating when nil.
// Dynamic (*any) targets are not supported: the wire format is not self-describing.
type Protobuf struct{}

var _ Codec = Protobuf{}

func (Protobuf) Encode(v any) ([]byte, error) {
	m, ok := v.(proto.Message)
	if !ok {
		return nil, fmt.Errorf("protobuf: %T is not a proto.Message", v)
	}
	return proto.Marshal(m)
}

func (Protobuf) Decode(b []byte, dst any) error {
	if m, ok := dst.(proto.Message); ok {
		return proto.Unmarshal(b, m)
	}
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Pointer {
		return fmt.Errorf("%w: %T", ErrUnsupportedTarget, dst)
	}
	elem := rv.Elem()
	if elem.IsNil() {
		elem.Set(reflect.New(elem.Type().Elem()))
	}
	m, ok := elem.Interface().(proto.Message)
	if !ok {
		return fmt.Errorf("%w: %T", ErrUnsupportedTarget, dst)
	}
	return proto.Unmarshal(b, m)
}

func (Protobuf) Name() string { return "protobuf" }
