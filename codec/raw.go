package codec

import "fmt"

// Bytes is an identity codec for raw payloads. Encode accepts []byte or
// string; Decode fills *[]byte, *string or *any (as []byte). Useful when the
// caller already owns the serialization.
type Bytes struct{}

var _ Codec = Bytes{}

func (Bytes) Encode(v any) ([]byte, error) {
	switch t := v.(type) {
	case []byte:
		return t, nil
	case string:
		return []byte(t), nil
	default:
		return nil, fmt.Errorf("bytes: cannot encode %T", v)
	}
}

func (Bytes) Decode(b []byte, dst any) error {
	switch d := dst.(type) {
	case *[]byte:
		*d = append([]byte(nil), b...)
	case *string:
		*d = string(b)
	case *any:
		*d = append([]byte(nil), b...)
	default:
		return fmt.Errorf("%w: %T", ErrUnsupportedTarget, dst)
	}
	return nil
}

func (Bytes) Name() string { return "bytes" }
