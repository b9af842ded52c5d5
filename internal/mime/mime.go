package mime

import (
	"path"
	"strings"
)

// MediaType is the kind of a module source.
type MediaType int

const (
	Unknown MediaType = iota
	JavaScript
	JSX
	TypeScript
	TSX
	Dts
	JSON
)

var mimeTypes = map[string]MediaType{
	"application/javascript":   JavaScript,
	"application/ecmascript":   JavaScript,
	"application/x-javascript": JavaScript,
	"text/javascript":          JavaScript,
	"text/ecmascript":          JavaScript,
	"text/jsx":                 JSX,
	"application/typescript":   TypeScript,
	"application/x-typescript": TypeScript,
	"text/typescript":          TypeScript,
	"text/x-typescript":        TypeScript,
	"video/vnd.dlna.mpeg-tts":  TypeScript,
	"video/mp2t":               TypeScript,
	"text/tsx":                 TSX,
	"application/json":         JSON,
	"text/json":                JSON,
}

var extTypes = map[string]MediaType{
	".js":   JavaScript,
	".mjs":  JavaScript,
	".cjs":  JavaScript,
	".jsx":  JSX,
	".ts":   TypeScript,
	".mts":  TypeScript,
	".cts":  TypeScript,
	".tsx":  TSX,
	".json": JSON,
}

// FromPath returns the media type of the file by its extension.
func FromPath(filename string) MediaType {
	if strings.HasSuffix(filename, ".d.ts") || strings.HasSuffix(filename, ".d.mts") || strings.HasSuffix(filename, ".d.cts") {
		return Dts
	}
	return extTypes[path.Ext(filename)]
}

// FromContentType returns the media type of a `Content-Type` header value.
func FromContentType(contentType string) MediaType {
	mimeType, _, _ := strings.Cut(contentType, ";")
	return mimeTypes[strings.ToLower(strings.TrimSpace(mimeType))]
}

// Resolve returns the media type of a fetched module. The path extension
// wins over the content type.
func Resolve(filename string, contentType string) MediaType {
	if t := FromPath(filename); t != Unknown {
		return t
	}
	return FromContentType(contentType)
}

// Ext returns the canonical file extension of the media type.
func (t MediaType) Ext() string {
	switch t {
	case JavaScript:
		return ".js"
	case JSX:
		return ".jsx"
	case TypeScript:
		return ".ts"
	case TSX:
		return ".tsx"
	case Dts:
		return ".d.ts"
	case JSON:
		return ".json"
	}
	return ""
}

// IsTypeScript reports whether the source carries type syntax.
func (t MediaType) IsTypeScript() bool {
	return t == TypeScript || t == TSX || t == Dts
}

func (t MediaType) String() string {
	switch t {
	case JavaScript:
		return "JavaScript"
	case JSX:
		return "JSX"
	case TypeScript:
		return "TypeScript"
	case TSX:
		return "TSX"
	case Dts:
		return "Dts"
	case JSON:
		return "Json"
	}
	return "Unknown"
}
