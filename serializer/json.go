package serializer

import (
	"sync"

	jsoniter "github.com/json-iterator/go"
)

// JSON is the default codec. It produces text values.
var JSON Codec = &jsonCodec{}

type jsonCodec struct {
	apis sync.Map // Settings -> jsoniter.API
}

func (*jsonCodec) Name() string { return "json" }

func (c *jsonCodec) api(s Settings) jsoniter.API {
	if api, ok := c.apis.Load(s); ok {
		return api.(jsoniter.API)
	}
	api := jsoniter.Config{
		EscapeHTML:             s.EscapeHTML,
		SortMapKeys:            s.SortMapKeys,
		UseNumber:              s.UseNumber,
		DisallowUnknownFields:  s.DisallowUnknownFields,
		CaseSensitive:          s.CaseSensitive,
		TagKey:                 s.TagKey,
		IndentionStep:          s.Indent,
		ValidateJsonRawMessage: true,
	}.Froze()
	actual, _ := c.apis.LoadOrStore(s, api)
	return actual.(jsoniter.API)
}

func (c *jsonCodec) Marshal(v any, s Settings) ([]byte, error) {
	return c.api(s).Marshal(v)
}

func (c *jsonCodec) Unmarshal(data []byte, v any, s Settings) error {
	return c.api(s).Unmarshal(data, v)
}
