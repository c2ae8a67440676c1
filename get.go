package mongokv

import (
	"context"
	"encoding/json"
	"time"

	"github.com/unkn0wn-root/mongokv/codec"
)

// Get reads key from any node (or the near cache) and decodes it as V.
// A missing key is (zero, false, nil).
func Get[V any](ctx context.Context, c *Client, key string) (v V, ok bool, err error) {
	defer c.m.track(opGet, time.Now(), &err)
	payload, ok, err := c.load(ctx, opGet, key)
	if err != nil || !ok {
		return v, false, err
	}
	if v, err = codec.Decode[V](c.codec, payload); err != nil {
		return v, false, c.decodeErr(opGet, key, err)
	}
	return v, true, nil
}

// GetForWrite reads key through the primary, so the value reflects the
// latest committed write. Use it before a read-modify-write.
func GetForWrite[V any](ctx context.Context, c *Client, key string) (v V, ok bool, err error) {
	defer c.m.track(opGetForWrite, time.Now(), &err)
	if err = checkKey(opGetForWrite, key); err != nil {
		return v, false, err
	}
	h, err := c.handle(ctx, opGetForWrite, key, ModePrimary)
	if err != nil {
		return v, false, err
	}
	rec, ok, err := h.col.Find(ctx, key)
	if err != nil {
		return v, false, c.readErr(opGetForWrite, key, err)
	}
	if !ok {
		return v, false, nil
	}
	if v, err = codec.Decode[V](c.codec, rec.Payload); err != nil {
		return v, false, c.decodeErr(opGetForWrite, key, err)
	}
	return v, true, nil
}

// GetMany fetches keys in one round trip. Every requested key is present in
// the result; keys not found map to the zero V. A decode failure fails the
// whole call.
func GetMany[V any](ctx context.Context, c *Client, keys []string) (out map[string]V, err error) {
	defer c.m.track(opGetMany, time.Now(), &err)
	for _, k := range keys {
		if err := checkKey(opGetMany, k); err != nil {
			return nil, err
		}
	}
	out = make(map[string]V, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	h, err := c.handle(ctx, opGetMany, "", ModeAny)
	if err != nil {
		return nil, err
	}
	recs, err := h.col.FindMany(ctx, keys)
	if err != nil {
		return nil, c.readErr(opGetMany, "", err)
	}
	for _, rec := range recs {
		v, err := codec.Decode[V](c.codec, rec.Payload)
		if err != nil {
			return nil, c.decodeErr(opGetMany, rec.Key, err)
		}
		out[rec.Key] = v
	}
	for _, k := range keys {
		if _, ok := out[k]; !ok {
			var zero V
			out[k] = zero
		}
	}
	return out, nil
}

// TypedKeys is a group of keys decoded as one type. Build it with KeysOf,
// or KeysAny for dynamic decoding.
type TypedKeys struct {
	keys   []string
	decode func(codec.Codec, []byte) (any, error)
}

// KeysOf groups keys whose values decode as V.
func KeysOf[V any](keys ...string) TypedKeys {
	return TypedKeys{
		keys: keys,
		decode: func(cd codec.Codec, b []byte) (any, error) {
			v, err := codec.Decode[V](cd, b)
			if err != nil {
				return nil, err
			}
			return v, nil
		},
	}
}

// KeysAny groups keys whose type is not known up front; their values decode
// dynamically, as in GetMatching.
func KeysAny(keys ...string) TypedKeys {
	return TypedKeys{keys: keys}
}

// GetManyTyped fetches the keys of all groups in one round trip and decodes
// each with its group's type. Keys not found map to nil. A key listed under
// two groups is rejected with ErrOverlappingGroups before any I/O.
func (c *Client) GetManyTyped(ctx context.Context, groups ...TypedKeys) (out map[string]any, err error) {
	defer c.m.track(opGetManyTyped, time.Now(), &err)
	owner := make(map[string]int)
	keys := make([]string, 0)
	for gi, g := range groups {
		for _, k := range g.keys {
			if err := checkKey(opGetManyTyped, k); err != nil {
				return nil, err
			}
			if prev, seen := owner[k]; seen {
				if prev != gi {
					return nil, opErr(opGetManyTyped, k, ErrOverlappingGroups, nil)
				}
				continue
			}
			owner[k] = gi
			keys = append(keys, k)
		}
	}
	out = make(map[string]any, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	h, err := c.handle(ctx, opGetManyTyped, "", ModeAny)
	if err != nil {
		return nil, err
	}
	recs, err := h.col.FindMany(ctx, keys)
	if err != nil {
		return nil, c.readErr(opGetManyTyped, "", err)
	}
	for _, rec := range recs {
		gi, ok := owner[rec.Key]
		if !ok {
			continue
		}
		decode := groups[gi].decode
		if decode == nil {
			decode = codec.Dynamic
		}
		v, err := decode(c.codec, rec.Payload)
		if err != nil {
			return nil, c.decodeErr(opGetManyTyped, rec.Key, err)
		}
		out[rec.Key] = v
	}
	for _, k := range keys {
		if _, ok := out[k]; !ok {
			out[k] = nil
		}
	}
	return out, nil
}

// GetMatching decodes, dynamically, every record whose key matches pattern.
func (c *Client) GetMatching(ctx context.Context, pattern string) (out map[string]any, err error) {
	defer c.m.track(opGetMatching, time.Now(), &err)
	cur, err := c.scan(ctx, opGetMatching, pattern, false)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out = make(map[string]any)
	for cur.Next(ctx) {
		rec := cur.Record()
		v, err := codec.Dynamic(c.codec, rec.Payload)
		if err != nil {
			return nil, c.decodeErr(opGetMatching, rec.Key, err)
		}
		out[rec.Key] = v
	}
	if err := cur.Err(); err != nil {
		return nil, c.readErr(opGetMatching, "", err)
	}
	return out, nil
}

// GetJSON decodes key dynamically and renders it as JSON, whatever codec
// stored it. Handy for tooling and debugging.
func (c *Client) GetJSON(ctx context.Context, key string) (s string, ok bool, err error) {
	defer c.m.track(opGetJSON, time.Now(), &err)
	payload, ok, err := c.load(ctx, opGetJSON, key)
	if err != nil || !ok {
		return "", false, err
	}
	v, err := codec.Dynamic(c.codec, payload)
	if err != nil {
		return "", false, c.decodeErr(opGetJSON, key, err)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", false, c.decodeErr(opGetJSON, key, err)
	}
	return string(b), true, nil
}

// load returns the stored payload of key from the Any handle, through the
// near cache when one is configured. Store errors are wrapped here, per
// caller, since a near-cache fetch may be shared with other operations.
func (c *Client) load(ctx context.Context, op, key string) ([]byte, bool, error) {
	if err := checkKey(op, key); err != nil {
		return nil, false, err
	}
	h, err := c.handle(ctx, op, key, ModeAny)
	if err != nil {
		return nil, false, err
	}
	fetch := func(ctx context.Context) ([]byte, bool, error) {
		rec, ok, err := h.col.Find(ctx, key)
		return rec.Payload, ok, err
	}
	var (
		payload []byte
		ok      bool
	)
	if c.near != nil {
		payload, ok, err = c.near.load(ctx, h.ns, key, fetch)
	} else {
		payload, ok, err = fetch(ctx)
	}
	if err != nil {
		return nil, false, c.readErr(op, key, err)
	}
	return payload, ok, nil
}
