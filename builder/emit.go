package builder

import (
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/esm-dev/dnt/internal/compiler"
	"github.com/esm-dev/dnt/internal/mime"
	"github.com/evanw/esbuild/pkg/api"
)

const shebang = "#!/usr/bin/env node"

// OutputFormat is an emitted module format and its output directory.
type OutputFormat struct {
	Dir    string
	Format api.Format
}

var (
	ESM = OutputFormat{Dir: "esm", Format: api.FormatESModule}
	UMD = OutputFormat{Dir: "umd", Format: api.FormatCommonJS}
)

// EmissionResult is the output of one format.
type EmissionResult struct {
	Format OutputFormat
	// Files maps output relative paths to emitted text.
	Files map[string][]byte
	// Entries maps the index of each entry point to its emitted file.
	Entries    []string
	SourceMaps bool
}

type emitter struct {
	cfg     *config
	graph   *moduleGraph
	target  api.Target
	sources map[string]string
	bins    map[string]bool
}

func newEmitter(cfg *config, graph *moduleGraph, sources map[string]string) (*emitter, error) {
	target, err := compiler.ResolveScriptTarget(cfg.target)
	if err != nil {
		return nil, &BuildError{Kind: InvalidConfiguration, Message: "invalid script target", Err: err}
	}
	bins := make(map[string]bool)
	for i, entry := range cfg.entries {
		if entry.Kind == BinEntry {
			bins[graph.entries[i].path] = true
		}
	}
	return &emitter{cfg: cfg, graph: graph, target: target, sources: sources, bins: bins}, nil
}

// emitAll emits every format concurrently. Errors are returned in format
// order, nothing is returned unless all formats succeed.
func (e *emitter) emitAll(formats []OutputFormat) ([]*EmissionResult, error) {
	results := make([]*EmissionResult, len(formats))
	errs := make([]error, len(formats))
	var wg sync.WaitGroup
	for i, format := range formats {
		wg.Add(1)
		go func(i int, format OutputFormat) {
			defer wg.Done()
			results[i], errs[i] = e.emit(format)
		}(i, format)
	}
	wg.Wait()
	if err := joinEmitErrors(formats, errs); err != nil {
		return nil, err
	}
	return results, nil
}

// joinEmitErrors merges the failures of all formats into the first one,
// keeping the diagnostics in format order.
func joinEmitErrors(formats []OutputFormat, errs []error) error {
	var first *BuildError
	var failed []string
	for i, err := range errs {
		if err == nil {
			continue
		}
		be, ok := err.(*BuildError)
		if !ok {
			return err
		}
		failed = append(failed, formats[i].Dir)
		if first == nil {
			c := *be
			first = &c
			first.Diagnostics = append([]compiler.Diagnostic(nil), be.Diagnostics...)
			continue
		}
		first.Diagnostics = append(first.Diagnostics, be.Diagnostics...)
	}
	if first == nil {
		return nil
	}
	if len(failed) > 1 {
		first.Message = fmt.Sprintf("could not emit %s output", strings.Join(failed, " and "))
	}
	if len(first.Diagnostics) > 0 {
		first.Position = &first.Diagnostics[0].Position
	}
	return first
}

func (e *emitter) emit(format OutputFormat) (*EmissionResult, error) {
	sourceMap := e.cfg.sourceMaps.ESBuild()
	result := &EmissionResult{
		Format:     format,
		Files:      make(map[string][]byte),
		SourceMaps: sourceMap != api.SourceMapNone,
	}
	for _, n := range e.graph.reachable() {
		if n.mediaType == mime.Dts {
			continue
		}
		out := format.Dir + "/" + jsPath(n.path)
		opts := api.TransformOptions{
			Loader:     esbuildLoader(n.mediaType),
			Format:     format.Format,
			Target:     e.target,
			Platform:   api.PlatformNode,
			Sourcemap:  sourceMap,
			Sourcefile: relativeSpecifier(out, "src/"+n.path),
			LogLevel:   api.LogLevelSilent,
		}
		if format.Format == api.FormatESModule {
			// node runs top level await in ES modules whatever the target
			opts.Supported = map[string]bool{"top-level-await": true}
		}
		if e.bins[n.path] {
			opts.Banner = shebang
		}
		ret := api.Transform(e.sources[n.path], opts)
		if len(ret.Errors) > 0 {
			return nil, emitError(format, n, ret.Errors)
		}
		code := ret.Code
		if sourceMap == api.SourceMapExternal {
			code = append(code, fmt.Sprintf("//# sourceMappingURL=%s.map\n", path.Base(out))...)
			result.Files[out+".map"] = ret.Map
		}
		result.Files[out] = code
	}
	for _, n := range e.graph.entries {
		result.Entries = append(result.Entries, format.Dir+"/"+jsPath(n.path))
	}
	return result, nil
}

func emitError(format OutputFormat, n *moduleNode, messages []api.Message) *BuildError {
	be := &BuildError{
		Kind:    InvalidConfiguration,
		Message: fmt.Sprintf("could not emit %s output", format.Dir),
		File:    n.path,
	}
	for _, msg := range messages {
		d := compiler.Diagnostic{File: n.path, Message: msg.Text}
		if loc := msg.Location; loc != nil {
			d.Position = compiler.Position{Line: loc.Line - 1, Character: loc.Column}
		}
		be.Diagnostics = append(be.Diagnostics, d)
	}
	if len(be.Diagnostics) > 0 {
		be.Position = &be.Diagnostics[0].Position
	}
	return be
}

func esbuildLoader(mediaType mime.MediaType) api.Loader {
	switch mediaType {
	case mime.TypeScript:
		return api.LoaderTS
	case mime.TSX:
		return api.LoaderTSX
	case mime.JSX:
		return api.LoaderJSX
	case mime.JSON:
		return api.LoaderJSON
	}
	return api.LoaderJS
}

// sortedPaths returns the keys of the files map in sorted order.
func sortedPaths(files map[string][]byte) []string {
	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// stage returns the rewritten sources of the reachable modules keyed by
// their path under `src/`.
func stage(graph *moduleGraph) map[string]string {
	sources := make(map[string]string)
	for _, n := range graph.reachable() {
		sources[n.path] = n.rewrite()
	}
	return sources
}
