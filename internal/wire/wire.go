// Package wire frames near-cache entries. A frame carries the raw stored
// payload together with the key generation and collection epoch observed when
// it was filled, so readers can reject entries that predate a write.
package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
)

const (
	version   byte = 1
	kindEntry byte = 1

	headerLen = 4 + 1 + 1 + 8 + 8 + 4
)

var (
	ErrCorrupt = errors.New("mongokv: corrupt near-cache entry")
	magic4     = [...]byte{'M', 'G', 'K', 'V'}
)

// Entry: magic(4) | ver(1) | kind(1) | gen(u64 be) | epoch(u64 be) | vlen(u32 be) | payload(vlen)
type Entry struct {
	Gen     uint64
	Epoch   uint64
	Payload []byte
}

func Encode(e Entry) []byte {
	var buf bytes.Buffer
	buf.Grow(headerLen + len(e.Payload))

	buf.Write(magic4[:])
	buf.WriteByte(version)
	buf.WriteByte(kindEntry)

	var u8 [8]byte
	var u4 [4]byte

	binary.BigEndian.PutUint64(u8[:], e.Gen)
	buf.Write(u8[:])
	binary.BigEndian.PutUint64(u8[:], e.Epoch)
	buf.Write(u8[:])

	binary.BigEndian.PutUint32(u4[:], uint32(len(e.Payload)))
	buf.Write(u4[:])

	buf.Write(e.Payload)
	return buf.Bytes()
}

// Decode parses a frame. The returned payload aliases b.
func Decode(b []byte) (Entry, error) {
	if len(b) < headerLen || !bytes.Equal(b[:4], magic4[:]) || b[4] != version || b[5] != kindEntry {
		return Entry{}, ErrCorrupt
	}
	off := 6
	gen := binary.BigEndian.Uint64(b[off : off+8])
	off += 8
	epoch := binary.BigEndian.Uint64(b[off : off+8])
	off += 8
	vlen := int(binary.BigEndian.Uint32(b[off : off+4]))
	off += 4
	// exact length: trailing bytes mean a foreign or truncated write
	if vlen < 0 || vlen != len(b)-off {
		return Entry{}, ErrCorrupt
	}
	return Entry{Gen: gen, Epoch: epoch, Payload: b[off : off+vlen]}, nil
}
