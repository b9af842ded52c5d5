package builder

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/esm-dev/dnt/internal/importmap"
	"github.com/esm-dev/dnt/internal/mime"
	"github.com/esm-dev/dnt/internal/npm"
	"github.com/esm-dev/dnt/internal/remote"
	"github.com/ije/esbuild-internal/xxhash"
	logx "github.com/ije/gox/log"
	"github.com/spf13/afero"
)

var errOutsideProject = errors.New("path is outside of the project")

// SpecifierKind is the kind of a resolved import specifier.
type SpecifierKind int

const (
	LocalSpecifier SpecifierKind = iota
	VendoredSpecifier
	ShimSpecifier
	BuiltinSpecifier
)

func (k SpecifierKind) String() string {
	switch k {
	case LocalSpecifier:
		return "local"
	case VendoredSpecifier:
		return "vendored"
	case ShimSpecifier:
		return "shim"
	case BuiltinSpecifier:
		return "builtin"
	}
	return "unknown"
}

// ResolvedSpecifier is the target of an import specifier.
type ResolvedSpecifier struct {
	Kind SpecifierKind
	// Path of a local or vendored module, relative to the source root.
	Path string
	// URL of a vendored module.
	URL string
	// Package of a shim.
	Package npm.Package
	// Specifier of a builtin module, kept as written.
	Specifier string
}

// Rewrite returns the specifier text that imports the target from a module
// at the source path importer.
func (r ResolvedSpecifier) Rewrite(importer string) string {
	switch r.Kind {
	case LocalSpecifier, VendoredSpecifier:
		return relativeSpecifier(importer, jsPath(r.Path))
	case ShimSpecifier:
		return r.Package.Specifier()
	}
	return r.Specifier
}

// Resolver resolves the import specifiers of one build. Results are cached
// for the lifetime of the resolver.
type Resolver struct {
	ctx       context.Context
	cwd       string
	fs        afero.Fs
	loader    ModuleLoader
	importMap *importmap.ImportMap
	mappings  map[string]npm.Package
	log       *logx.Logger
	cache     map[string]ResolvedSpecifier
	remotes   map[string]ResolvedSpecifier
	modules   map[string]*remote.Module
	vendored  map[string]string
}

func newResolver(ctx context.Context, cfg *config, opts *BuildOptions) *Resolver {
	return &Resolver{
		ctx:       ctx,
		cwd:       cfg.cwd,
		fs:        cfg.fs,
		loader:    opts.Loader,
		importMap: opts.ImportMap,
		mappings:  opts.Mappings,
		log:       cfg.log,
		cache:     make(map[string]ResolvedSpecifier),
		remotes:   make(map[string]ResolvedSpecifier),
		modules:   make(map[string]*remote.Module),
		vendored:  make(map[string]string),
	}
}

// Resolve resolves the specifier imported by the module at the importer URL.
func (r *Resolver) Resolve(importer *url.URL, specifier string) (ResolvedSpecifier, error) {
	s := specifier
	if r.importMap != nil {
		if resolved, ok := r.importMap.Resolve(s, importer); ok {
			s = resolved
		}
	}
	key := s
	if isRelativeSpecifier(s) {
		key = importer.String() + "\n" + s
	}
	if res, ok := r.cache[key]; ok {
		return res, nil
	}
	res, err := r.resolve(importer, s)
	if err != nil {
		var be *BuildError
		if !errors.As(err, &be) {
			be = resolutionError("could not resolve", specifier, "", err)
		}
		if be.Specifier == "" {
			be.Specifier = specifier
		}
		be.Importer = displayURL(r.cwd, importer)
		return res, be
	}
	r.cache[key] = res
	return res, nil
}

func (r *Resolver) resolve(importer *url.URL, s string) (ResolvedSpecifier, error) {
	if pkg, ok := r.mapping(s); ok {
		return ResolvedSpecifier{Kind: ShimSpecifier, Package: pkg}, nil
	}
	if strings.HasPrefix(s, "npm:") {
		pkg, err := npm.ParseNpmSpecifier(s)
		if err != nil {
			return ResolvedSpecifier{}, resolutionError("invalid npm specifier", s, "", err)
		}
		return ResolvedSpecifier{Kind: ShimSpecifier, Package: pkg}, nil
	}
	if npm.IsNodeBuiltinModule(s) {
		return ResolvedSpecifier{Kind: BuiltinSpecifier, Specifier: s}, nil
	}
	if !isRelativeSpecifier(s) && !hasScheme(s) {
		return ResolvedSpecifier{}, resolutionError("unsupported bare specifier, map it in the import map or mappings", s, "", nil)
	}
	u, err := importer.Parse(s)
	if err != nil {
		return ResolvedSpecifier{}, resolutionError("invalid specifier", s, "", err)
	}
	u.Fragment = ""
	if pkg, ok := r.mapping(u.String()); ok {
		return ResolvedSpecifier{Kind: ShimSpecifier, Package: pkg}, nil
	}
	switch u.Scheme {
	case "file":
		if importer.Scheme != "file" {
			return ResolvedSpecifier{}, resolutionError("a remote module cannot import a local file", s, "", nil)
		}
		p, err := localPath(r.cwd, filepath.FromSlash(u.Path))
		if err != nil {
			return ResolvedSpecifier{}, resolutionError("could not resolve", s, "", err)
		}
		exists, err := afero.Exists(r.fs, filepath.Join(r.cwd, filepath.FromSlash(p)))
		if err != nil {
			return ResolvedSpecifier{}, ioError("could not stat "+p, err)
		}
		if !exists {
			return ResolvedSpecifier{}, resolutionError("module not found", s, "", nil)
		}
		return ResolvedSpecifier{Kind: LocalSpecifier, Path: p}, nil
	case "http", "https":
		return r.vendor(u)
	}
	return ResolvedSpecifier{}, resolutionError("unsupported scheme "+u.Scheme, s, "", nil)
}

// mapping looks up the specifier in the caller mappings: an exact key first,
// then the longest key ending with "/" that prefixes the specifier.
func (r *Resolver) mapping(s string) (npm.Package, bool) {
	if pkg, ok := r.mappings[s]; ok {
		return pkg, true
	}
	var prefix string
	for key := range r.mappings {
		if strings.HasSuffix(key, "/") && strings.HasPrefix(s, key) && len(key) > len(prefix) {
			prefix = key
		}
	}
	if prefix == "" {
		return npm.Package{}, false
	}
	pkg := r.mappings[prefix]
	rest := strings.TrimSuffix(s[len(prefix):], "/")
	if pkg.SubPath != "" {
		pkg.SubPath += "/" + rest
	} else {
		pkg.SubPath = rest
	}
	return pkg, true
}

func (r *Resolver) vendor(u *url.URL) (ResolvedSpecifier, error) {
	href := u.String()
	if res, ok := r.remotes[href]; ok {
		return res, nil
	}
	if r.loader == nil {
		return ResolvedSpecifier{}, resolutionError("no module loader for remote imports", href, "", nil)
	}
	mod, err := r.loader.Load(r.ctx, u)
	if err != nil {
		if errors.Is(err, remote.ErrModuleNotFound) {
			return ResolvedSpecifier{}, resolutionError("module not found", href, "", err)
		}
		return ResolvedSpecifier{}, resolutionError("could not fetch", href, "", err)
	}
	p := vendorPath(u, mod.MediaType)
	for i := 2; ; i++ {
		owner, ok := r.vendored[p]
		if !ok || owner == href {
			break
		}
		ext := sourceExt(p)
		p = fmt.Sprintf("%s_%d%s", strings.TrimSuffix(p, ext), i, ext)
	}
	r.vendored[p] = href
	r.modules[href] = mod
	res := ResolvedSpecifier{Kind: VendoredSpecifier, Path: p, URL: href}
	r.remotes[href] = res
	r.log.Infof("vendor %s -> %s", href, p)
	return res, nil
}

// Vendored returns the vendored paths and their URLs, sorted by path.
func (r *Resolver) Vendored() [][2]string {
	list := make([][2]string, 0, len(r.vendored))
	for p, u := range r.vendored {
		list = append(list, [2]string{p, u})
	}
	sort.Slice(list, func(i, j int) bool { return list[i][0] < list[j][0] })
	return list
}

// vendorPath returns the source path that a remote module is vendored to:
// `deps/<host>[_<first segment>]/<rest>`.
func vendorPath(u *url.URL, mediaType mime.MediaType) string {
	dir := u.Hostname()
	if port := u.Port(); port != "" {
		dir += "_" + port
	}
	dir = sanitize(dir)
	segments := strings.Split(strings.Trim(path.Clean("/"+u.Path), "/"), "/")
	if len(segments) > 1 {
		dir += "_" + sanitize(segments[0])
		segments = segments[1:]
	}
	for i, segment := range segments {
		segments[i] = sanitizeSegment(segment)
	}
	filename := segments[len(segments)-1]
	if filename == "" {
		filename = "mod"
	}
	ext := sourceExt(filename)
	if mime.FromPath(filename) == mime.Unknown {
		ext = mediaType.Ext()
		if ext == "" {
			ext = ".js"
		}
	} else {
		filename = strings.TrimSuffix(filename, ext)
	}
	if u.RawQuery != "" {
		h := xxhash.New()
		h.Write([]byte(u.RawQuery))
		filename += "_" + base64.RawURLEncoding.EncodeToString(h.Sum(nil))
	}
	segments[len(segments)-1] = filename + ext
	return "deps/" + dir + "/" + strings.Join(segments, "/")
}

// sanitize replaces every character outside [A-Za-z0-9_-] with "_".
func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' || r == '-' {
			return r
		}
		return '_'
	}, s)
}

// sanitizeSegment keeps dots and `@` which are valid in file names.
func sanitizeSegment(s string) string {
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' || r == '-' || r == '.' || r == '@' {
			return r
		}
		return '_'
	}, s)
}

// sourceExt returns the extension of a source path, `.d.ts` included.
func sourceExt(p string) string {
	for _, ext := range []string{".d.ts", ".d.mts", ".d.cts"} {
		if strings.HasSuffix(p, ext) {
			return ext
		}
	}
	return path.Ext(p)
}

// jsPath maps a source path to the path of its emitted JavaScript.
func jsPath(p string) string {
	return strings.TrimSuffix(p, sourceExt(p)) + ".js"
}

// dtsPath maps a source path to the path of its declaration file.
func dtsPath(p string) string {
	return strings.TrimSuffix(p, sourceExt(p)) + ".d.ts"
}

// relativeSpecifier returns the `./` or `../` specifier of target as seen
// from the file at importer. Both are slash separated paths relative to the
// same root.
func relativeSpecifier(importer string, target string) string {
	from := strings.Split(path.Dir(importer), "/")
	if from[0] == "." {
		from = nil
	}
	to := strings.Split(target, "/")
	i := 0
	for i < len(from) && i < len(to)-1 && from[i] == to[i] {
		i++
	}
	var sb strings.Builder
	if i == len(from) {
		sb.WriteString("./")
	} else {
		for range from[i:] {
			sb.WriteString("../")
		}
	}
	sb.WriteString(strings.Join(to[i:], "/"))
	return sb.String()
}

func isRelativeSpecifier(s string) bool {
	return strings.HasPrefix(s, "./") || strings.HasPrefix(s, "../") || strings.HasPrefix(s, "/") || s == "." || s == ".."
}

func hasScheme(s string) bool {
	for _, scheme := range []string{"file:", "http:", "https:"} {
		if strings.HasPrefix(s, scheme) {
			return true
		}
	}
	return false
}

// fileURL returns the file URL of a local source path.
func fileURL(cwd string, p string) *url.URL {
	return &url.URL{Scheme: "file", Path: filepath.ToSlash(filepath.Join(cwd, filepath.FromSlash(p)))}
}

// displayURL renders a module URL for messages, local files relative to cwd.
func displayURL(cwd string, u *url.URL) string {
	if u == nil {
		return ""
	}
	if u.Scheme == "file" {
		if p, err := localPath(cwd, filepath.FromSlash(u.Path)); err == nil {
			return p
		}
		return u.Path
	}
	return u.String()
}
