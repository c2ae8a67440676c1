package codec

import (
	"fmt"

	"github.com/unkn0wn-root/mongokv/compress"
)

// Compressed chains Inner through a compressor: Encode = compress(inner(v)),
// Decode = inner(decompress(b)).
type Compressed struct {
	Inner      Codec
	Compressor compress.Compressor
}

var _ Codec = Compressed{}

func (c Compressed) Encode(v any) ([]byte, error) {
	b, err := c.Inner.Encode(v)
	if err != nil {
		return nil, err
	}
	return c.Compressor.Compress(b)
}

func (c Compressed) Decode(b []byte, dst any) error {
	raw, err := c.Compressor.Decompress(b)
	if err != nil {
		return fmt.Errorf("%s: %w", c.Compressor.Name(), err)
	}
	return c.Inner.Decode(raw, dst)
}

func (c Compressed) Name() string { return c.Inner.Name() + "+" + c.Compressor.Name() }
