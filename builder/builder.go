package builder

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/esm-dev/dnt/internal/compiler"
	"github.com/esm-dev/dnt/internal/mime"
	"github.com/esm-dev/dnt/internal/npm"
	"github.com/goccy/go-json"
	logx "github.com/ije/gox/log"
	"github.com/spf13/afero"
)

// Result describes a finished build.
type Result struct {
	Manifest  *npm.JSONObject
	NpmIgnore string
	Emissions []*EmissionResult
	// TestFiles are the emitted test modules, sorted.
	TestFiles  []string
	TestRunner bool
	// Vendored lists the vendored modules as (path, url) pairs, sorted.
	Vendored [][2]string
}

type builder struct {
	opts  *BuildOptions
	cfg   *config
	log   *logx.Logger
	stage Stage
	start time.Time
}

// Build converts the module graph of the entry points into a npm package in
// the output directory. The output directory is not cleared before.
func Build(ctx context.Context, opts BuildOptions) (*Result, error) {
	cfg, err := opts.validate()
	if err != nil {
		return nil, err
	}
	if cfg.typeCheck && opts.TypeChecker == nil {
		return nil, configError("type checking is enabled but no type checker is provided")
	}
	if cfg.declaration && opts.DeclarationEmitter == nil {
		return nil, configError("declaration is enabled but no declaration emitter is provided")
	}
	b := &builder{opts: &opts, cfg: cfg, log: cfg.log, start: time.Now()}
	b.setStage(StageConfigured)
	return b.build(ctx)
}

func (b *builder) setStage(stage Stage) {
	b.stage = stage
	b.log.Debugf("build: %s (%v)", stage, time.Since(b.start))
}

func (b *builder) build(ctx context.Context) (*Result, error) {
	cfg := b.cfg

	var testFiles []string
	if cfg.test {
		files, err := findTestFiles(cfg)
		if err != nil {
			return nil, err
		}
		testFiles = files
	}

	resolver := newResolver(ctx, cfg, b.opts)
	graph, err := loadGraph(cfg, resolver, testFiles)
	if err != nil {
		return nil, err
	}
	b.log.Debugf("build: %d modules, %d test files", len(graph.order), len(testFiles))

	b.setStage(StageAnalyzing)
	if cfg.cjs {
		if err := checkTopLevelAwait(graph); err != nil {
			return nil, err
		}
	}
	if cfg.typeCheck {
		if err := b.typeCheck(ctx, graph); err != nil {
			return nil, err
		}
	}

	b.setStage(StageEmitting)
	sources := stage(graph)
	emitter, err := newEmitter(cfg, graph, sources)
	if err != nil {
		return nil, err
	}
	formats := []OutputFormat{ESM}
	if cfg.cjs {
		formats = append(formats, UMD)
	}
	emissions, err := emitter.emitAll(formats)
	if err != nil {
		return nil, err
	}
	files := make(map[string][]byte)
	for p, text := range sources {
		files["src/"+p] = []byte(text)
	}
	for _, e := range emissions {
		for p, data := range e.Files {
			files[p] = data
		}
	}
	testRunner := cfg.cjs && len(testFiles) > 0
	if testRunner {
		data, err := generateTestRunner(testFiles)
		if err != nil {
			return nil, &BuildError{Kind: IOFailure, Message: "could not generate the test runner", Err: err}
		}
		files[testRunnerFile] = data
	}
	if err := b.writeFiles(files); err != nil {
		return nil, err
	}

	if cfg.declaration {
		b.setStage(StageDeclaring)
		declarations, err := b.emitDeclarations(ctx, graph, sources)
		if err != nil {
			return nil, err
		}
		if err := b.writeFiles(declarations); err != nil {
			return nil, err
		}
	}

	b.setStage(StageSynthesizing)
	in := manifestInput{
		entries:     cfg.entries,
		esm:         emissions[0].Entries,
		declaration: cfg.declaration,
		testRunner:  testRunner,
		deps:        shimSet{},
		devDeps:     shimSet{},
	}
	if cfg.cjs {
		in.umd = emissions[1].Entries
	}
	var testOnlyDeps []string
	reachable := graph.reachable()
	for _, n := range reachable {
		if n.lib {
			in.deps.add(n.usedShims()...)
		}
	}
	for _, n := range reachable {
		if n.lib {
			continue
		}
		for _, pkg := range n.usedShims() {
			if !in.deps.has(pkg.Name) {
				in.devDeps.add(pkg)
			}
		}
		if n.remote() && n.mediaType != mime.Dts {
			testOnlyDeps = append(testOnlyDeps, n.path)
		}
	}
	sort.Strings(testOnlyDeps)

	manifest := synthesizeManifest(cfg.pkg, in)
	manifestJSON, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, &BuildError{Kind: IOFailure, Message: "could not encode package.json", Err: err}
	}
	npmIgnore := ignoreList(testFiles, testOnlyDeps, cfg.cjs, testRunner)
	err = b.writeFiles(map[string][]byte{
		"package.json": append(manifestJSON, '\n'),
		".npmignore":   []byte(npmIgnore),
	})
	if err != nil {
		return nil, err
	}

	b.setStage(StageDone)
	return &Result{
		Manifest:   manifest,
		NpmIgnore:  npmIgnore,
		Emissions:  emissions,
		TestFiles:  testFiles,
		TestRunner: testRunner,
		Vendored:   resolver.Vendored(),
	}, nil
}

// checkTopLevelAwait fails on the first module using top level await, which
// the CommonJS output can not express.
func checkTopLevelAwait(graph *moduleGraph) error {
	for _, n := range graph.reachable() {
		if n.file == nil {
			continue
		}
		if pos := compiler.TopLevelAwaitLocation(n.file); pos != nil {
			return &BuildError{
				Kind:     IncompatibleFeatureCombination,
				Message:  "top level await is not supported by the CommonJS output, set `cjs` to false to emit ESM only",
				File:     displayURL(graph.cwd, n.url),
				Position: pos,
			}
		}
	}
	return nil
}

func (b *builder) typeCheck(ctx context.Context, graph *moduleGraph) error {
	roots := make([]string, 0, len(graph.entries)+len(graph.tests))
	for _, n := range graph.entries {
		roots = append(roots, n.path)
	}
	for _, n := range graph.tests {
		roots = append(roots, n.path)
	}
	start := time.Now()
	diagnostics, err := b.opts.TypeChecker.Check(ctx, b.cfg.cwd, roots)
	if err != nil {
		return &BuildError{Kind: IOFailure, Message: "could not run the type checker", Err: err}
	}
	b.log.Debugf("build: type checked %d roots in %v", len(roots), time.Since(start))
	if len(diagnostics) > 0 {
		return &BuildError{
			Kind:        TypeCheckFailure,
			Message:     fmt.Sprintf("found %d type errors", len(diagnostics)),
			Diagnostics: diagnostics,
		}
	}
	return nil
}

// writeFiles writes the files to the output directory in path order.
func (b *builder) writeFiles(files map[string][]byte) error {
	fs := b.cfg.fs
	for _, p := range sortedPaths(files) {
		filename := filepath.Join(b.cfg.outDir, filepath.FromSlash(p))
		if err := fs.MkdirAll(filepath.Dir(filename), 0755); err != nil {
			return ioError("could not create the directory of "+p, err)
		}
		if err := afero.WriteFile(fs, filename, files[p], 0644); err != nil {
			return ioError("could not write "+p, err)
		}
	}
	b.log.Debugf("build: wrote %d files", len(files))
	return nil
}
