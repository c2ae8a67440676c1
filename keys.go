package mongokv

import (
	"context"
	"iter"
	"regexp"
	"time"

	"github.com/unkn0wn-root/mongokv/store"
)

// ListKeys returns every key of the collection.
func (c *Client) ListKeys(ctx context.Context) (keys []string, err error) {
	defer c.m.track(opListKeys, time.Now(), &err)
	cur, err := c.scan(ctx, opListKeys, "", true)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	keys = make([]string, 0)
	for cur.Next(ctx) {
		keys = append(keys, cur.Record().Key)
	}
	if err := cur.Err(); err != nil {
		return nil, c.readErr(opListKeys, "", err)
	}
	return keys, nil
}

// Keys streams every key of the collection without materializing them.
func (c *Client) Keys(ctx context.Context) (_ *KeyCursor, err error) {
	defer c.m.track(opKeys, time.Now(), &err)
	cur, err := c.scan(ctx, opKeys, "", true)
	if err != nil {
		return nil, err
	}
	return &KeyCursor{c: c, op: opKeys, cur: cur}, nil
}

// KeysMatching streams the keys matching the regular expression pattern.
// An invalid pattern fails with ErrInvalidPattern before any I/O.
func (c *Client) KeysMatching(ctx context.Context, pattern string) (_ *KeyCursor, err error) {
	defer c.m.track(opKeysMatching, time.Now(), &err)
	cur, err := c.scan(ctx, opKeysMatching, pattern, true)
	if err != nil {
		return nil, err
	}
	return &KeyCursor{c: c, op: opKeysMatching, cur: cur}, nil
}

// ListKeysWithSize maps every key to its stored payload size in KB
// (bytes/1024, truncated).
func (c *Client) ListKeysWithSize(ctx context.Context) (sizes map[string]int64, err error) {
	defer c.m.track(opListKeysWithSize, time.Now(), &err)
	cur, err := c.scan(ctx, opListKeysWithSize, "", false)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	sizes = make(map[string]int64)
	for cur.Next(ctx) {
		rec := cur.Record()
		sizes[rec.Key] = kb(len(rec.Payload))
	}
	if err := cur.Err(); err != nil {
		return nil, c.readErr(opListKeysWithSize, "", err)
	}
	return sizes, nil
}

// SizeKb is the stored (possibly compressed) payload size of key in KB,
// 0 when key is absent. The payload is not decoded.
func (c *Client) SizeKb(ctx context.Context, key string) (n int64, err error) {
	defer c.m.track(opSizeKb, time.Now(), &err)
	payload, _, err := c.load(ctx, opSizeKb, key)
	if err != nil {
		return 0, err
	}
	return kb(len(payload)), nil
}

// DecompressedSizeKb is the payload size of key in KB after decompression.
// Without compression it equals SizeKb.
func (c *Client) DecompressedSizeKb(ctx context.Context, key string) (n int64, err error) {
	defer c.m.track(opDecompressedSizeKb, time.Now(), &err)
	payload, ok, err := c.load(ctx, opDecompressedSizeKb, key)
	if err != nil || !ok {
		return 0, err
	}
	if c.compressor == nil {
		return kb(len(payload)), nil
	}
	raw, err := c.compressor.Decompress(payload)
	if err != nil {
		return 0, c.decodeErr(opDecompressedSizeKb, key, err)
	}
	return kb(len(raw)), nil
}

func kb(n int) int64 { return int64(n) / 1024 }

// scan validates pattern locally so a bad expression is a caller error and
// never reaches the store.
func (c *Client) scan(ctx context.Context, op, pattern string, keysOnly bool) (store.Cursor, error) {
	if pattern != "" {
		if _, err := regexp.Compile(pattern); err != nil {
			return nil, opErr(op, pattern, ErrInvalidPattern, err)
		}
	}
	h, err := c.handle(ctx, op, "", ModeAny)
	if err != nil {
		return nil, err
	}
	cur, err := h.col.Scan(ctx, store.Query{Pattern: pattern, KeysOnly: keysOnly})
	if err != nil {
		return nil, c.readErr(op, "", err)
	}
	return cur, nil
}

// KeyCursor is a finite, single-pass sequence of keys. It is not safe for
// concurrent use. Close it when not drained; All closes it for you.
type KeyCursor struct {
	c   *Client
	op  string
	cur store.Cursor
	err error
}

// Next advances to the next key.
func (k *KeyCursor) Next(ctx context.Context) bool {
	if k.err != nil {
		return false
	}
	if k.cur.Next(ctx) {
		return true
	}
	if err := k.cur.Err(); err != nil {
		k.err = k.c.readErr(k.op, "", err)
	}
	return false
}

// Key is the current key.
func (k *KeyCursor) Key() string { return k.cur.Record().Key }

func (k *KeyCursor) Err() error { return k.err }

func (k *KeyCursor) Close(ctx context.Context) error { return k.cur.Close(ctx) }

// All ranges over the remaining keys and closes the cursor at the end.
// A read failure is yielded once as the last element.
func (k *KeyCursor) All(ctx context.Context) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		defer k.Close(ctx)
		for k.Next(ctx) {
			if !yield(k.Key(), nil) {
				return
			}
		}
		if k.err != nil {
			yield("", k.err)
		}
	}
}
