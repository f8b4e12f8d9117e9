// Package serializer turns cache values into the bytes a distributed store
// holds, and back.
package serializer

import "sync/atomic"

// Codec encodes and decodes values. Settings tune the encoding; codecs
// that have nothing to tune ignore them.
type Codec interface {
	Name() string
	Marshal(v any, s Settings) ([]byte, error)
	Unmarshal(data []byte, v any, s Settings) error
}

// Settings is the serializer option set. It is comparable so codecs can
// key per-settings state on it.
type Settings struct {
	EscapeHTML            bool   `yaml:"escape_html"`
	SortMapKeys           bool   `yaml:"sort_map_keys"`
	UseNumber             bool   `yaml:"use_number"`
	DisallowUnknownFields bool   `yaml:"disallow_unknown_fields"`
	CaseSensitive         bool   `yaml:"case_sensitive"`
	TagKey                string `yaml:"tag_key"`
	Indent                int    `yaml:"indent"`
}

// DefaultSettings matches encoding/json output with sorted map keys.
func DefaultSettings() Settings {
	return Settings{
		EscapeHTML:  true,
		SortMapKeys: true,
	}
}

var current atomic.Pointer[Settings]

func init() {
	s := DefaultSettings()
	current.Store(&s)
}

// Default returns the process-wide settings used when a call does not
// override them.
func Default() Settings {
	return *current.Load()
}

// SetDefault replaces the process-wide settings.
func SetDefault(s Settings) {
	current.Store(&s)
}

// ByName returns the codec registered under name: "json" or "gob".
func ByName(name string) (Codec, bool) {
	switch name {
	case "", JSON.Name():
		return JSON, true
	case Gob.Name():
		return Gob, true
	}
	return nil, false
}
