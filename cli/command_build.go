package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/esm-dev/dnt/builder"
	"github.com/esm-dev/dnt/internal/app_dir"
	"github.com/esm-dev/dnt/internal/compiler"
	"github.com/esm-dev/dnt/internal/deno"
	"github.com/esm-dev/dnt/internal/importmap"
	"github.com/esm-dev/dnt/internal/remote"
	"github.com/esm-dev/dnt/internal/storage"
	logx "github.com/ije/gox/log"
	"github.com/ije/gox/term"
	"github.com/spf13/afero"
)

const buildHelpMessage = "\033[30mdnt - Build npm packages from Deno modules.\033[0m" + `

Usage: dnt build [options] [...entry-points]

Arguments:
  [...entry-points]   Module entry points, replacing "entryPoints" of the config

Options:
  --config            Config file, default is "dnt.json"
  --out               Output directory, default is "npm"
  --no-cjs            Emit ES modules only
  --no-declaration    Do not emit type declarations
  --no-test           Do not build the test files
  --no-check          Do not type check
  --source-maps       Emit source maps, "true" or "inline"
  --target            Script target, default is "ES2021"
  --import-map        Deno config file with the import map, default is "deno.json"
  --keep              Do not clear the output directory before building
  --reload            Fetch remote modules again
  --log-level         Log level, default is "info"
  --help, -h          Show help message
`

type buildFlags struct {
	config        string
	out           string
	sourceMaps    string
	target        string
	importMap     string
	logLevel      string
	noCJS         bool
	noDeclaration bool
	noTest        bool
	noCheck       bool
	keep          bool
	reload        bool
	help          bool
	entryPoints   []string
}

func parseBuildFlags(args []string) (*buildFlags, error) {
	f := &buildFlags{}
	fs := flag.NewFlagSet("build", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&f.config, "config", "dnt.json", "")
	fs.StringVar(&f.out, "out", "", "")
	fs.StringVar(&f.sourceMaps, "source-maps", "", "")
	fs.StringVar(&f.target, "target", "", "")
	fs.StringVar(&f.importMap, "import-map", "", "")
	fs.StringVar(&f.logLevel, "log-level", "", "")
	fs.BoolVar(&f.noCJS, "no-cjs", false, "")
	fs.BoolVar(&f.noDeclaration, "no-declaration", false, "")
	fs.BoolVar(&f.noTest, "no-test", false, "")
	fs.BoolVar(&f.noCheck, "no-check", false, "")
	fs.BoolVar(&f.keep, "keep", false, "")
	fs.BoolVar(&f.reload, "reload", false, "")
	fs.BoolVar(&f.help, "help", false, "")
	fs.BoolVar(&f.help, "h", false, "")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	f.entryPoints = fs.Args()
	return f, nil
}

// apply overrides the config with the command line flags.
func (f *buildFlags) apply(config *Config) error {
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}
	if f.out != "" {
		config.OutDir = absPath(cwd, f.out)
	}
	if f.noCJS {
		config.CJS = builder.Bool(false)
	}
	if f.noDeclaration {
		config.Declaration = builder.Bool(false)
	}
	if f.noTest {
		config.Test = builder.Bool(false)
	}
	if f.noCheck {
		config.TypeCheck = builder.Bool(false)
	}
	switch f.sourceMaps {
	case "":
	case "true":
		config.UseSourceMaps = compiler.SourceMapsFile
	case "inline":
		config.UseSourceMaps = compiler.SourceMapsInline
	case "false":
		config.UseSourceMaps = compiler.SourceMapsOff
	default:
		return fmt.Errorf("invalid --source-maps value %q", f.sourceMaps)
	}
	if f.target != "" {
		config.ScriptTarget = compiler.ScriptTarget(f.target)
	}
	if f.importMap != "" {
		config.ImportMap = absPath(cwd, f.importMap)
	}
	if f.logLevel != "" {
		config.LogLevel = f.logLevel
	}
	if len(f.entryPoints) > 0 {
		config.EntryPoints = make([]builder.EntryPoint, len(f.entryPoints))
		for i, p := range f.entryPoints {
			config.EntryPoints[i] = builder.EntryPoint{Path: absPath(cwd, p)}
		}
	}
	return nil
}

// Build builds the npm package and returns the exit code.
func Build(args []string) int {
	flags, err := parseBuildFlags(args)
	if err != nil {
		os.Stderr.WriteString(term.Red(err.Error()) + "\n")
		return 2
	}
	if flags.help {
		fmt.Print(buildHelpMessage)
		return 0
	}

	config, err := LoadConfig(flags.config)
	if err == nil {
		err = flags.apply(config)
	}
	if err != nil {
		os.Stderr.WriteString(term.Red(err.Error()) + "\n")
		return 1
	}

	log := &logx.Logger{}
	log.SetLevelByName(config.LogLevel)
	defer log.FlushBuffer()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	opts, closeLoader, err := newBuildOptions(ctx, config, flags.reload, log)
	if err != nil {
		os.Stderr.WriteString(term.Red(err.Error()) + "\n")
		return 1
	}
	defer closeLoader()

	if !flags.keep {
		if err := os.RemoveAll(config.OutDir); err != nil {
			os.Stderr.WriteString(term.Red(err.Error()) + "\n")
			return 1
		}
	}

	start := time.Now()
	result, err := builder.Build(ctx, *opts)
	if err != nil {
		os.Stderr.WriteString(term.Red("✖ ") + err.Error() + "\n")
		return 1
	}
	printBuildResult(os.Stdout, config, result, time.Since(start))
	return 0
}

func newBuildOptions(ctx context.Context, config *Config, reload bool, log *logx.Logger) (opts *builder.BuildOptions, closeLoader func(), err error) {
	opts = &builder.BuildOptions{
		EntryPoints:   config.EntryPoints,
		OutDir:        config.OutDir,
		Package:       config.Package,
		TypeCheck:     config.TypeCheck,
		CJS:           config.CJS,
		Declaration:   config.Declaration,
		Test:          config.Test,
		UseSourceMaps: config.UseSourceMaps,
		ScriptTarget:  config.ScriptTarget,
		Mappings:      config.mappings(),
		Cwd:           config.RootDir,
		FS:            afero.NewOsFs(),
		Logger:        log,
	}
	if config.ImportMap != "" {
		opts.ImportMap, err = importmap.ParseFile(config.ImportMap)
		if err != nil {
			return nil, nil, fmt.Errorf("fail to load the import map: %w", err)
		}
	}

	store, err := storage.New(&config.Cache)
	if err != nil {
		return nil, nil, fmt.Errorf("fail to open the module cache: %w", err)
	}
	loader, err := remote.NewLoader(remote.Options{
		CacheDir:  config.CacheDir,
		Storage:   store,
		UserAgent: "dnt/" + VERSION,
		Reload:    reload,
		Logger:    log,
	})
	if err != nil {
		return nil, nil, err
	}
	opts.Loader = loader

	if isEnabled(config.TypeCheck) || isEnabled(config.Declaration) {
		denoPath := config.DenoPath
		if denoPath == "" {
			appDir, err := app_dir.GetAppDir()
			if err != nil {
				loader.Close()
				return nil, nil, err
			}
			denoPath = deno.ResolveDenoPath(appDir)
			if err := deno.CheckDenoPath(ctx, denoPath, log); err != nil {
				loader.Close()
				return nil, nil, fmt.Errorf("fail to install deno: %w", err)
			}
		}
		runner := deno.NewRunner(denoPath, log)
		opts.TypeChecker = runner
		opts.DeclarationEmitter = runner
	}
	return opts, func() { loader.Close() }, nil
}

func printBuildResult(w io.Writer, config *Config, result *builder.Result, duration time.Duration) {
	name := result.Manifest.GetString("name") + "@" + result.Manifest.GetString("version")
	outDir, err := filepath.Rel(config.RootDir, config.OutDir)
	if err != nil {
		outDir = config.OutDir
	}
	fmt.Fprintf(w, "%s Built %s in %s\n", term.Green("✔"), name, term.Dim(duration.Round(time.Millisecond).String()))
	for _, e := range result.Emissions {
		fmt.Fprintf(w, "  %s %s\n", term.Dim(filepath.Join(outDir, e.Format.Dir)+"/"), fmt.Sprintf("%d files", len(e.Files)))
	}
	if len(result.TestFiles) > 0 {
		fmt.Fprintf(w, "  %s\n", term.Dim(fmt.Sprintf("%d test files", len(result.TestFiles))))
	}
	if len(result.Vendored) > 0 {
		fmt.Fprintf(w, "  %s\n", term.Dim(fmt.Sprintf("%d vendored modules", len(result.Vendored))))
	}
}

func isEnabled(v *bool) bool {
	return v == nil || *v
}
