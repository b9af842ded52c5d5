package importmap

import (
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/esm-dev/dnt/internal/jsonc"
	"github.com/ije/gox/utils"
)

// ImportMapJson represents the import map fields of a deno.json file or a
// standalone import map file.
type ImportMapJson struct {
	Imports   map[string]string            `json:"imports,omitempty"`
	Scopes    map[string]map[string]string `json:"scopes,omitempty"`
	ImportMap string                       `json:"importMap,omitempty"`
}

// ImportMap represents an import maps that follows the import maps specification:
// https://developer.mozilla.org/en-US/docs/Web/HTML/Reference/Elements/script/type/importmap
type ImportMap struct {
	Imports map[string]string
	Scopes  map[string]map[string]string
	baseUrl *url.URL
}

// Parse parses an import map from JSONC data. Relative addresses resolve
// against baseUrl.
func Parse(baseUrl *url.URL, data []byte) (im *ImportMap, err error) {
	var raw ImportMapJson
	if err = jsonc.Unmarshal(data, &raw); err != nil {
		return
	}
	im = &ImportMap{
		Imports: raw.Imports,
		Scopes:  make(map[string]map[string]string),
		baseUrl: baseUrl,
	}
	if im.Imports == nil {
		im.Imports = map[string]string{}
	}
	for scope, imports := range raw.Scopes {
		im.Scopes[normalizeUrl(baseUrl, scope)] = imports
	}
	return
}

// ParseFile parses a deno.json file, following its "importMap" field when
// the file has no "imports".
func ParseFile(filename string) (*ImportMap, error) {
	filename, err := filepath.Abs(filename)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	baseUrl := &url.URL{Scheme: "file", Path: filepath.ToSlash(filepath.Dir(filename)) + "/"}
	var raw ImportMapJson
	if err := jsonc.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	if raw.Imports == nil && raw.Scopes == nil && raw.ImportMap != "" {
		target := raw.ImportMap
		if !filepath.IsAbs(target) {
			target = filepath.Join(filepath.Dir(filename), target)
		}
		return ParseFile(target)
	}
	return Parse(baseUrl, data)
}

// Resolve resolves a specifier to a URL.
// It returns the URL and a boolean indicating if the specifier was found.
// This function follows the import maps specification:
// https://developer.mozilla.org/en-US/docs/Web/HTML/Reference/Elements/script/type/importmap
func (im *ImportMap) Resolve(specifier string, referrer *url.URL) (string, bool) {
	if im.baseUrl == nil {
		im.baseUrl, _ = url.Parse("file:///")
	}

	var hash string
	specifier, hash = utils.SplitByFirstByte(specifier, '#')
	if hash != "" {
		hash = "#" + hash
	}

	var query string
	specifier, query = utils.SplitByFirstByte(specifier, '?')
	if query != "" {
		query = "?" + query
	}

	if referrer != nil && len(im.Scopes) > 0 {
		for _, prefix := range scopesOf(im.Scopes, referrer.String()) {
			if url, ok := resolveWith(im.baseUrl, im.Scopes[prefix], specifier); ok {
				return url + query + hash, true
			}
		}
	}

	if url, ok := resolveWith(im.baseUrl, im.Imports, specifier); ok {
		return url + query + hash, true
	}
	return specifier + query + hash, false
}

func resolveWith(baseUrl *url.URL, imports map[string]string, specifier string) (string, bool) {
	if len(imports) == 0 {
		return "", false
	}
	if url, ok := imports[specifier]; ok {
		return normalizeUrl(baseUrl, url), true
	}
	// the longest matching prefix wins
	var match string
	for k := range imports {
		if strings.HasSuffix(k, "/") && strings.HasPrefix(specifier, k) && len(k) > len(match) {
			match = k
		}
	}
	if match != "" {
		return normalizeUrl(baseUrl, imports[match]+specifier[len(match):]), true
	}
	return "", false
}

func normalizeUrl(baseUrl *url.URL, path string) string {
	if baseUrl != nil && (strings.HasPrefix(path, "./") || strings.HasPrefix(path, "../") || strings.HasPrefix(path, "/")) {
		return baseUrl.ResolveReference(&url.URL{Path: path}).String()
	}
	return path
}
