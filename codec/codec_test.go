package codec

import (
	"errors"
	"strings"
	"testing"

	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/unkn0wn-root/mongokv/compress"
)

type user struct {
	ID   string `json:"id" msgpack:"id" cbor:"id"`
	Name string `json:"name" msgpack:"name" cbor:"name"`
}

func TestTypedRoundTrip(t *testing.T) {
	in := user{ID: "1", Name: "Ana"}
	for _, c := range []Codec{JSON{}, Msgpack{}, MustCBOR(false), MustCBOR(true)} {
		b, err := c.Encode(in)
		if err != nil {
			t.Fatalf("%s encode: %v", c.Name(), err)
		}
		out, err := Decode[user](c, b)
		if err != nil {
			t.Fatalf("%s decode: %v", c.Name(), err)
		}
		if out != in {
			t.Fatalf("%s: got %+v want %+v", c.Name(), out, in)
		}
	}
}

func TestDynamicDecodeYieldsStringKeyedMaps(t *testing.T) {
	in := map[string]any{"name": "Ana"}
	for _, c := range []Codec{JSON{}, Msgpack{}, MustCBOR(false)} {
		b, err := c.Encode(in)
		if err != nil {
			t.Fatalf("%s encode: %v", c.Name(), err)
		}
		v, err := Dynamic(c, b)
		if err != nil {
			t.Fatalf("%s dynamic: %v", c.Name(), err)
		}
		m, ok := v.(map[string]any)
		if !ok {
			t.Fatalf("%s: dynamic decode gave %T", c.Name(), v)
		}
		if m["name"] != "Ana" {
			t.Fatalf("%s: got %v", c.Name(), m)
		}
	}
}

func TestDecodeMismatchFails(t *testing.T) {
	b, _ := JSON{}.Encode("just a string")
	if _, err := Decode[user](JSON{}, b); err == nil {
		t.Fatalf("expected error decoding a string into a struct")
	}
}

func TestProtobuf(t *testing.T) {
	c := Protobuf{}
	b, err := c.Encode(wrapperspb.String("hello"))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := Decode[*wrapperspb.StringValue](c, b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.GetValue() != "hello" {
		t.Fatalf("got %q", got.GetValue())
	}
	if _, err := c.Encode(user{}); err == nil {
		t.Fatalf("expected error encoding non-proto value")
	}
	if _, err := Dynamic(c, b); !errors.Is(err, ErrUnsupportedTarget) {
		t.Fatalf("expected ErrUnsupportedTarget, got %v", err)
	}
}

func TestBytesCodec(t *testing.T) {
	c := Bytes{}
	b, err := c.Encode("raw")
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	s, err := Decode[string](c, b)
	if err != nil || s != "raw" {
		t.Fatalf("decode string: %q %v", s, err)
	}
	raw, err := Decode[[]byte](c, b)
	if err != nil || string(raw) != "raw" {
		t.Fatalf("decode bytes: %q %v", raw, err)
	}
	if _, err := Decode[int](c, b); !errors.Is(err, ErrUnsupportedTarget) {
		t.Fatalf("expected ErrUnsupportedTarget, got %v", err)
	}
}

func TestLimit(t *testing.T) {
	c := Limit{Inner: JSON{}, MaxDecode: 8}
	b, _ := c.Encode(strings.Repeat("x", 32))
	if _, err := Decode[string](c, b); err == nil {
		t.Fatalf("expected size limit error")
	}
	small, _ := c.Encode("ok")
	if s, err := Decode[string](c, small); err != nil || s != "ok" {
		t.Fatalf("small decode: %q %v", s, err)
	}
}

func TestCompressedChain(t *testing.T) {
	c := Compressed{Inner: JSON{}, Compressor: compress.Gzip{}}
	in := strings.Repeat("abc", 1000)
	b, err := c.Encode(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	plain, _ := JSON{}.Encode(in)
	if len(b) >= len(plain) {
		t.Fatalf("expected compressed payload to be smaller: %d >= %d", len(b), len(plain))
	}
	out, err := Decode[string](c, b)
	if err != nil || out != in {
		t.Fatalf("decode: %v", err)
	}
	if err := c.Decode([]byte("corrupt"), new(string)); err == nil {
		t.Fatalf("expected decompress error on corrupt payload")
	}
	if c.Name() != "json+gzip" {
		t.Fatalf("name = %q", c.Name())
	}
}

func TestByName(t *testing.T) {
	for _, n := range []string{"json", "msgpack", "cbor", "bytes", "protobuf"} {
		c, err := ByName(n)
		if err != nil || c.Name() != n {
			t.Fatalf("ByName(%q) = %v, %v", n, c, err)
		}
	}
	if _, err := ByName("xml"); err == nil {
		t.Fatalf("expected error for unknown codec")
	}
}
