// Package compress provides the optional compression stage applied to stored
// payloads after encoding.
package compress

import "fmt"

// Compressor compresses and decompresses whole payloads.
// Implementations must be safe for concurrent use.
type Compressor interface {
	Compress(src []byte) ([]byte, error)
	Decompress(src []byte) ([]byte, error)
	Name() string
}

// ByName returns a compressor for name: gzip (default), zstd, s2 or lz4.
func ByName(name string) (Compressor, error) {
	switch name {
	case "", "gzip":
		return Gzip{}, nil
	case "zstd":
		return NewZstd()
	case "s2":
		return S2{}, nil
	case "lz4":
		return LZ4{}, nil
	default:
		return nil, fmt.Errorf("compress: unknown compressor %q", name)
	}
}
