package npm

import (
	"errors"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/ije/gox/utils"
	"github.com/ije/gox/valid"
)

var (
	Naming     = valid.Validator{valid.Range{'a', 'z'}, valid.Range{'A', 'Z'}, valid.Range{'0', '9'}, valid.Eq('_'), valid.Eq('.'), valid.Eq('-'), valid.Eq('+'), valid.Eq('$'), valid.Eq('!')}
	Versioning = valid.Validator{valid.Range{'a', 'z'}, valid.Range{'A', 'Z'}, valid.Range{'0', '9'}, valid.Eq('_'), valid.Eq('.'), valid.Eq('-'), valid.Eq('+')}
)

// ValidatePackageName validates the package name.
// based on https://github.com/npm/validate-npm-package-name
func ValidatePackageName(pkgName string) bool {
	if l := len(pkgName); l == 0 || l > 214 {
		return false
	}
	if strings.HasPrefix(pkgName, ".") || strings.HasPrefix(pkgName, "_") {
		return false
	}
	if strings.HasPrefix(pkgName, "@") {
		scope, name := utils.SplitByFirstByte(pkgName, '/')
		return len(scope) > 1 && name != "" && Naming.Match(scope[1:]) && Naming.Match(name)
	}
	return Naming.Match(pkgName)
}

// ValidatePackageVersion reports whether the version is a valid semver version.
func ValidatePackageVersion(version string) bool {
	if version == "" || !Versioning.Match(version) {
		return false
	}
	_, err := semver.StrictNewVersion(version)
	return err == nil
}

// Package is a package reference with an optional sub path.
type Package struct {
	Name    string
	Version string
	SubPath string
}

// Specifier returns the bare specifier used to import the package,
// e.g. "chalk" or "chalk/source".
func (p Package) Specifier() string {
	if p.SubPath != "" {
		return p.Name + "/" + p.SubPath
	}
	return p.Name
}

func (p Package) String() string {
	s := p.Name + "@" + p.Version
	if p.SubPath != "" {
		s += "/" + p.SubPath
	}
	return s
}

// ParseNpmSpecifier parses a `npm:name@version[/subpath]` specifier. The
// version is required and must be a valid semver version or range.
func ParseNpmSpecifier(specifier string) (Package, error) {
	if !strings.HasPrefix(specifier, "npm:") {
		return Package{}, errors.New("not a npm specifier")
	}
	s := strings.TrimPrefix(specifier[4:], "/")
	var scope string
	if strings.HasPrefix(s, "@") {
		scope, s = utils.SplitByFirstByte(s, '/')
	}
	nameVersion, subPath := utils.SplitByFirstByte(s, '/')
	name, version := utils.SplitByLastByte(nameVersion, '@')
	if !strings.ContainsRune(nameVersion, '@') {
		name, version = nameVersion, ""
	}
	if scope != "" {
		name = scope + "/" + name
	}
	if !ValidatePackageName(name) {
		return Package{}, errors.New("invalid package name " + name)
	}
	if version == "" {
		return Package{}, errors.New("missing version for " + name)
	}
	if _, err := semver.NewConstraint(version); err != nil {
		return Package{}, errors.New("invalid version " + version + " for " + name)
	}
	return Package{
		Name:    name,
		Version: version,
		SubPath: strings.TrimSuffix(subPath, "/"),
	}, nil
}

// IsNodeBuiltinModule returns true if the specifier is a node builtin module,
// with or without the `node:` prefix.
func IsNodeBuiltinModule(specifier string) bool {
	if strings.HasPrefix(specifier, "node:") {
		return true
	}
	name, _ := utils.SplitByFirstByte(specifier, '/')
	return nodeBuiltinModules[name]
}

var nodeBuiltinModules = map[string]bool{
	"assert":              true,
	"async_hooks":         true,
	"buffer":              true,
	"child_process":       true,
	"cluster":             true,
	"console":             true,
	"constants":           true,
	"crypto":              true,
	"dgram":               true,
	"diagnostics_channel": true,
	"dns":                 true,
	"domain":              true,
	"events":              true,
	"fs":                  true,
	"http":                true,
	"http2":               true,
	"https":               true,
	"inspector":           true,
	"module":              true,
	"net":                 true,
	"os":                  true,
	"path":                true,
	"perf_hooks":          true,
	"process":             true,
	"punycode":            true,
	"querystring":         true,
	"readline":            true,
	"repl":                true,
	"stream":              true,
	"string_decoder":      true,
	"sys":                 true,
	"timers":              true,
	"tls":                 true,
	"trace_events":        true,
	"tty":                 true,
	"url":                 true,
	"util":                true,
	"v8":                  true,
	"vm":                  true,
	"wasi":                true,
	"worker_threads":      true,
	"zlib":                true,
}
