package codec

import "encoding/json"

// JSON is the default codec. Dynamic decodes yield map[string]any / []any / float64.
type JSON struct{}

var _ Codec = JSON{}

func (JSON) Encode(v any) ([]byte, error)   { return json.Marshal(v) }
func (JSON) Decode(b []byte, dst any) error { return json.Unmarshal(b, dst) }
func (JSON) Name() string                   { return "json" }
