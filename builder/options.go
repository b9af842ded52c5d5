package builder

import (
	"bytes"
	"context"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/esm-dev/dnt/internal/compiler"
	"github.com/esm-dev/dnt/internal/importmap"
	"github.com/esm-dev/dnt/internal/npm"
	"github.com/esm-dev/dnt/internal/remote"
	"github.com/goccy/go-json"
	logx "github.com/ije/gox/log"
	"github.com/ije/gox/set"
	"github.com/spf13/afero"
)

// EntryKind is the kind of an entry point.
type EntryKind string

const (
	ModuleEntry EntryKind = "module"
	BinEntry    EntryKind = "bin"
)

// EntryPoint is a module that makes up the public surface of the package.
type EntryPoint struct {
	Kind EntryKind `json:"kind,omitempty"`
	// Name is the export subpath of a module entry ("." by default) or the
	// command name of a bin entry.
	Name string `json:"name,omitempty"`
	Path string `json:"path"`
}

// UnmarshalJSON accepts a plain path or an entry descriptor.
func (e *EntryPoint) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var p string
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		*e = EntryPoint{Path: p}
		return nil
	}
	type raw EntryPoint
	var r raw
	if err := json.Unmarshal(data, &r); err != nil {
		return err
	}
	*e = EntryPoint(r)
	return nil
}

// ModuleLoader loads remote modules.
type ModuleLoader interface {
	Load(ctx context.Context, u *url.URL) (*remote.Module, error)
}

// TypeChecker type checks a project. The roots are paths relative to cwd.
type TypeChecker interface {
	Check(ctx context.Context, cwd string, roots []string) ([]compiler.Diagnostic, error)
}

// DeclarationEmitter emits `.d.ts` files for the staged sources, keyed by
// path relative to the source root.
type DeclarationEmitter interface {
	EmitDeclarations(ctx context.Context, sources map[string][]byte, roots []string, target compiler.ScriptTarget) (map[string][]byte, error)
}

// BuildOptions configures a build.
type BuildOptions struct {
	EntryPoints []EntryPoint
	// OutDir is relative to Cwd unless absolute.
	OutDir  string
	Package *npm.JSONObject
	// TypeCheck, CJS, Declaration and Test default to true.
	TypeCheck     *bool
	CJS           *bool
	Declaration   *bool
	Test          *bool
	UseSourceMaps compiler.SourceMaps
	ScriptTarget  compiler.ScriptTarget
	// Mappings replace a specifier, or a URL prefix ending with "/", with a
	// npm package.
	Mappings  map[string]npm.Package
	ImportMap *importmap.ImportMap
	// Cwd is the absolute project directory.
	Cwd                string
	FS                 afero.Fs
	Loader             ModuleLoader
	TypeChecker        TypeChecker
	DeclarationEmitter DeclarationEmitter
	// Logger receives progress logs. Nothing is logged when it is nil.
	Logger *logx.Logger
}

// Bool returns a pointer to v.
func Bool(v bool) *bool {
	return &v
}

func enabled(v *bool) bool {
	return v == nil || *v
}

// config is the validated form of BuildOptions.
type config struct {
	entries     []EntryPoint
	outDir      string
	pkg         *npm.JSONObject
	typeCheck   bool
	cjs         bool
	declaration bool
	test        bool
	sourceMaps  compiler.SourceMapOptions
	target      compiler.ScriptTarget
	cwd         string
	fs          afero.Fs
	log         *logx.Logger
}

func (opts *BuildOptions) validate() (*config, error) {
	if len(opts.EntryPoints) == 0 {
		return nil, configError("at least one entry point is required")
	}
	if opts.Cwd == "" || !filepath.IsAbs(opts.Cwd) {
		return nil, configError("cwd must be an absolute path, got %q", opts.Cwd)
	}
	if opts.OutDir == "" {
		return nil, configError("outDir is required")
	}
	if opts.Package == nil {
		return nil, configError("package is required")
	}
	name := opts.Package.GetString("name")
	if !npm.ValidatePackageName(name) {
		return nil, configError("invalid package name %q", name)
	}
	version := opts.Package.GetString("version")
	if !npm.ValidatePackageVersion(version) {
		return nil, configError("invalid package version %q", version)
	}
	if _, err := compiler.ResolveScriptTarget(opts.ScriptTarget); err != nil {
		return nil, &BuildError{Kind: InvalidConfiguration, Message: "invalid script target", Err: err}
	}
	switch opts.UseSourceMaps {
	case compiler.SourceMapsOff, compiler.SourceMapsInline, compiler.SourceMapsFile:
	default:
		return nil, configError("invalid source map mode %q", opts.UseSourceMaps)
	}
	for specifier, pkg := range opts.Mappings {
		if !npm.ValidatePackageName(pkg.Name) || pkg.Version == "" {
			return nil, configError("invalid mapping for %s: %s", specifier, pkg)
		}
	}

	entries := make([]EntryPoint, len(opts.EntryPoints))
	moduleNames := set.New[string]()
	binNames := set.New[string]()
	for i, entry := range opts.EntryPoints {
		if entry.Kind == "" {
			entry.Kind = ModuleEntry
		}
		if entry.Path == "" {
			return nil, configError("entry point #%d has no path", i)
		}
		p, err := localPath(opts.Cwd, entry.Path)
		if err != nil {
			return nil, configError("entry point %s is outside of the project", entry.Path)
		}
		entry.Path = p
		switch entry.Kind {
		case ModuleEntry:
			if entry.Name == "" {
				entry.Name = "."
			} else if entry.Name != "." && !strings.HasPrefix(entry.Name, "./") {
				entry.Name = "./" + strings.TrimPrefix(entry.Name, "/")
			}
			if moduleNames.Has(entry.Name) {
				return nil, configError("duplicate module entry %q", entry.Name)
			}
			moduleNames.Add(entry.Name)
		case BinEntry:
			if entry.Name == "" {
				return nil, configError("bin entry %s requires a name", entry.Path)
			}
			if binNames.Has(entry.Name) {
				return nil, configError("duplicate bin entry %q", entry.Name)
			}
			binNames.Add(entry.Name)
		default:
			return nil, configError("unknown entry point kind %q", entry.Kind)
		}
		entries[i] = entry
	}

	outDir := opts.OutDir
	if !filepath.IsAbs(outDir) {
		outDir = filepath.Join(opts.Cwd, outDir)
	}
	fs := opts.FS
	if fs == nil {
		fs = afero.NewOsFs()
	}
	log := opts.Logger
	if log == nil {
		log = &logx.Logger{}
		log.SetQuite(true)
	}
	target := opts.ScriptTarget
	if target == "" {
		target = compiler.DefaultScriptTarget
	}
	return &config{
		entries:     entries,
		outDir:      filepath.Clean(outDir),
		pkg:         opts.Package,
		typeCheck:   enabled(opts.TypeCheck),
		cjs:         enabled(opts.CJS),
		declaration: enabled(opts.Declaration),
		test:        enabled(opts.Test),
		sourceMaps:  compiler.ResolveSourceMapOptions(opts.UseSourceMaps),
		target:      target,
		cwd:         filepath.Clean(opts.Cwd),
		fs:          fs,
		log:         log,
	}, nil
}

// localPath returns the slash separated path of filename relative to cwd.
func localPath(cwd string, filename string) (string, error) {
	if strings.HasPrefix(filename, "file://") {
		u, err := url.Parse(filename)
		if err != nil {
			return "", err
		}
		filename = filepath.FromSlash(u.Path)
	}
	if !filepath.IsAbs(filename) {
		filename = filepath.Join(cwd, filename)
	}
	rel, err := filepath.Rel(cwd, filename)
	if err != nil {
		return "", err
	}
	rel = filepath.ToSlash(rel)
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "", errOutsideProject
	}
	return path.Clean(rel), nil
}
