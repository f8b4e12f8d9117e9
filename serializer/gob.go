package serializer

import (
	"bytes"
	"encoding/gob"
)

// Gob encodes with encoding/gob. Values are binary, not text; settings are ignored.
var Gob Codec = gobCodec{}

type gobCodec struct{}

func (gobCodec) Name() string { return "gob" }

func (gobCodec) Marshal(v any, _ Settings) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (gobCodec) Unmarshal(data []byte, v any, _ Settings) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}
