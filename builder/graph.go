package builder

import (
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/esm-dev/dnt/internal/compiler"
	"github.com/esm-dev/dnt/internal/mime"
	"github.com/spf13/afero"
)

var (
	// type only imports and exports are dropped by the parser, so they are
	// found on the source text.
	typeOnlyImportPattern = regexp.MustCompile(`(?m)^[ \t]*(import|export)[ \t]+type\b[^;'"]*?\bfrom[ \t]*("[^"\n]*"|'[^'\n]*')`)
	testFilePattern       = regexp.MustCompile(`(?:^|[._])test\.(?:ts|tsx|mts|js|jsx|mjs)$`)
)

type resolvedImport struct {
	compiler.ImportRecord
	resolved ResolvedSpecifier
}

type moduleNode struct {
	url       *url.URL
	path      string
	mediaType mime.MediaType
	source    string
	file      *compiler.SourceFile
	imports   []resolvedImport
	deps      []*moduleNode
	usesDeno  bool
	// lib is set when the module is reachable from an entry point, test
	// when it is reachable from a test file.
	lib      bool
	test     bool
	testFile bool
}

func (n *moduleNode) remote() bool {
	return n.url.Scheme != "file"
}

// rewrite returns the module text with every import specifier replaced by
// its output specifier.
func (n *moduleNode) rewrite() string {
	if n.file == nil {
		return n.source
	}
	var sb strings.Builder
	last := 0
	for _, imp := range n.imports {
		sb.WriteString(n.source[last:imp.Start])
		sb.WriteByte(n.source[imp.Start])
		sb.WriteString(imp.resolved.Rewrite(n.path))
		sb.WriteByte(n.source[imp.End-1])
		last = imp.End
	}
	sb.WriteString(n.source[last:])
	text := stripDirectives(sb.String())
	if n.usesDeno {
		text = injectDenoShim(text)
	}
	return text
}

type moduleGraph struct {
	cwd      string
	fs       afero.Fs
	resolver *Resolver
	modules  map[string]*moduleNode
	order    []*moduleNode
	entries  []*moduleNode
	tests    []*moduleNode
}

// loadGraph loads every module reachable from the entry points and the test
// files, resolving imports on the way.
func loadGraph(cfg *config, r *Resolver, testFiles []string) (*moduleGraph, error) {
	g := &moduleGraph{
		cwd:      cfg.cwd,
		fs:       cfg.fs,
		resolver: r,
		modules:  make(map[string]*moduleNode),
	}
	for _, entry := range cfg.entries {
		n, err := g.load(ResolvedSpecifier{Kind: LocalSpecifier, Path: entry.Path})
		if err != nil {
			return nil, err
		}
		g.entries = append(g.entries, n)
	}
	for _, p := range testFiles {
		n, err := g.load(ResolvedSpecifier{Kind: LocalSpecifier, Path: p})
		if err != nil {
			return nil, err
		}
		n.testFile = true
		g.tests = append(g.tests, n)
	}
	mark(g.entries, func(n *moduleNode) *bool { return &n.lib })
	mark(g.tests, func(n *moduleNode) *bool { return &n.test })
	return g, nil
}

func (g *moduleGraph) load(target ResolvedSpecifier) (*moduleNode, error) {
	if n, ok := g.modules[target.Path]; ok {
		return n, nil
	}
	n := &moduleNode{path: target.Path}
	if target.Kind == VendoredSpecifier {
		mod := g.resolver.modules[target.URL]
		n.url = mod.URL
		n.mediaType = mime.FromPath(target.Path)
		n.source = string(mod.Content)
	} else {
		data, err := afero.ReadFile(g.fs, filepath.Join(g.cwd, filepath.FromSlash(target.Path)))
		if err != nil {
			if os.IsNotExist(err) {
				return nil, resolutionError("module not found", target.Path, "", err)
			}
			return nil, ioError("could not read "+target.Path, err)
		}
		n.url = fileURL(g.cwd, target.Path)
		n.mediaType = mime.FromPath(target.Path)
		n.source = string(data)
	}
	g.modules[n.path] = n
	g.order = append(g.order, n)

	switch n.mediaType {
	case mime.Unknown:
		return nil, resolutionError("unsupported module type", displayURL(g.cwd, n.url), "", nil)
	case mime.JSON, mime.Dts:
		return n, nil
	}

	f, err := compiler.ParseSourceFile(n.path, n.source)
	if err != nil {
		be := &BuildError{Kind: ResolutionFailure, Message: "could not parse module", File: displayURL(g.cwd, n.url), Err: err}
		var perr *compiler.ParseError
		if errors.As(err, &perr) {
			be.Diagnostics = perr.Diagnostics
			if len(perr.Diagnostics) > 0 {
				be.Position = &perr.Diagnostics[0].Position
			}
		}
		return nil, be
	}
	n.file = f
	n.usesDeno = f.UsesGlobal("Deno")

	for _, record := range mergeImports(f.Imports(), typeOnlyImports(n.path, n.source)) {
		res, err := g.resolver.Resolve(n.url, record.Specifier)
		if err != nil {
			return nil, err
		}
		n.imports = append(n.imports, resolvedImport{record, res})
		if res.Kind == LocalSpecifier || res.Kind == VendoredSpecifier {
			dep, err := g.load(res)
			if err != nil {
				return nil, err
			}
			n.deps = append(n.deps, dep)
		}
	}
	return n, nil
}

// reachable returns the modules reachable from an entry point or a test
// file, in load order.
func (g *moduleGraph) reachable() []*moduleNode {
	nodes := make([]*moduleNode, 0, len(g.order))
	for _, n := range g.order {
		if n.lib || n.test {
			nodes = append(nodes, n)
		}
	}
	return nodes
}

func mark(roots []*moduleNode, flag func(*moduleNode) *bool) {
	stack := append([]*moduleNode(nil), roots...)
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if f := flag(n); !*f {
			*f = true
			stack = append(stack, n.deps...)
		}
	}
}

func typeOnlyImports(name string, source string) []compiler.ImportRecord {
	matches := typeOnlyImportPattern.FindAllStringSubmatchIndex(source, -1)
	if len(matches) == 0 {
		return nil
	}
	// matches in comments, strings and templates are not statements
	keywords, ok := compiler.KeywordOffsets(name, source)
	var records []compiler.ImportRecord
	for _, m := range matches {
		if ok && !keywords[m[2]] {
			continue
		}
		start, end := m[4], m[5]
		records = append(records, compiler.ImportRecord{
			Specifier: source[start+1 : end-1],
			Start:     start,
			End:       end,
		})
	}
	return records
}

// mergeImports sorts the records by position and drops overlapping ones.
func mergeImports(a []compiler.ImportRecord, b []compiler.ImportRecord) []compiler.ImportRecord {
	records := append(append([]compiler.ImportRecord(nil), a...), b...)
	sort.SliceStable(records, func(i, j int) bool { return records[i].Start < records[j].Start })
	merged := records[:0]
	end := -1
	for _, r := range records {
		if r.Start < end {
			continue
		}
		merged = append(merged, r)
		end = r.End
	}
	return merged
}

// findTestFiles returns the test modules of the project, sorted.
func findTestFiles(cfg *config) ([]string, error) {
	var files []string
	err := afero.Walk(cfg.fs, cfg.cwd, func(filename string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if filename == cfg.cwd {
				return nil
			}
			name := info.Name()
			if filename == cfg.outDir || name == "node_modules" || name == "deps" || strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if testFilePattern.MatchString(info.Name()) {
			p, err := localPath(cfg.cwd, filename)
			if err != nil {
				return err
			}
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, ioError("could not search test files", err)
	}
	sort.Strings(files)
	return files, nil
}
