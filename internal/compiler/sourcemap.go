package compiler

import (
	"fmt"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/goccy/go-json"
)

// SourceMaps is the source map mode of a build.
type SourceMaps string

const (
	SourceMapsOff    SourceMaps = ""
	SourceMapsInline SourceMaps = "inline"
	SourceMapsFile   SourceMaps = "true"
)

// UnmarshalJSON accepts `true`, `false` or `"inline"`.
func (s *SourceMaps) UnmarshalJSON(data []byte) error {
	var b bool
	if json.Unmarshal(data, &b) == nil {
		if b {
			*s = SourceMapsFile
		} else {
			*s = SourceMapsOff
		}
		return nil
	}
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	switch str {
	case "inline":
		*s = SourceMapsInline
	case "true":
		*s = SourceMapsFile
	case "", "false":
		*s = SourceMapsOff
	default:
		return fmt.Errorf("invalid source map mode %q", str)
	}
	return nil
}

// MarshalJSON writes the mode back as `true`, `false` or `"inline"`.
func (s SourceMaps) MarshalJSON() ([]byte, error) {
	switch s {
	case SourceMapsInline:
		return []byte(`"inline"`), nil
	case SourceMapsFile:
		return []byte("true"), nil
	default:
		return []byte("false"), nil
	}
}

// SourceMapOptions is the compiler flag set for a source map mode. A flag
// that is off is omitted from its JSON form.
type SourceMapOptions struct {
	SourceMap       bool `json:"sourceMap,omitempty"`
	InlineSourceMap bool `json:"inlineSourceMap,omitempty"`
}

// ResolveSourceMapOptions maps a source map mode to compiler flags.
func ResolveSourceMapOptions(mode SourceMaps) SourceMapOptions {
	switch mode {
	case SourceMapsInline:
		return SourceMapOptions{InlineSourceMap: true}
	case SourceMapsFile:
		return SourceMapOptions{SourceMap: true}
	}
	return SourceMapOptions{}
}

// ESBuild returns the emitter setting for the flag set.
func (o SourceMapOptions) ESBuild() api.SourceMap {
	if o.InlineSourceMap {
		return api.SourceMapInline
	}
	if o.SourceMap {
		return api.SourceMapExternal
	}
	return api.SourceMapNone
}
