package compress

import "github.com/klauspost/compress/s2"

// S2 is the block format of klauspost/compress/s2 (snappy-compatible decode).
type S2 struct{}

func (S2) Compress(src []byte) ([]byte, error)   { return s2.Encode(nil, src), nil }
func (S2) Decompress(src []byte) ([]byte, error) { return s2.Decode(nil, src) }
func (S2) Name() string                          { return "s2" }
