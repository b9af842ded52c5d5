package deno

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/esm-dev/dnt/internal/compiler"
	"github.com/goccy/go-json"
	logx "github.com/ije/gox/log"
)

// typescriptPkg runs the TypeScript compiler through deno's npm support.
const typescriptPkg = "npm:typescript@5.6.3/tsc"

var (
	regexpDiagnostic = regexp.MustCompile(`^(?:error: )?(TS\d+) \[ERROR\]: (.+)$`)
	regexpLocation   = regexp.MustCompile(`^\s+at (\S+):(\d+):(\d+)$`)
	regexpAnsi       = regexp.MustCompile("\x1b\\[[0-9;]*m")
)

// Runner runs deno sub processes for type checking and declaration emit.
type Runner struct {
	DenoPath string
	Timeout  time.Duration
	Log      *logx.Logger
}

// NewRunner creates a runner for the deno binary.
func NewRunner(denoPath string, log *logx.Logger) *Runner {
	if log == nil {
		log = &logx.Logger{}
		log.SetQuite(true)
	}
	return &Runner{DenoPath: denoPath, Timeout: 10 * time.Minute, Log: log}
}

func (r *Runner) command(ctx context.Context, dir string, args ...string) (stdout *bytes.Buffer, stderr *bytes.Buffer, err error) {
	c, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()
	cmd := exec.CommandContext(c, r.DenoPath, args...)
	stdout = bytes.NewBuffer(nil)
	stderr = bytes.NewBuffer(nil)
	cmd.Dir = dir
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.Env = append(os.Environ(), "NO_COLOR=1")
	start := time.Now()
	err = cmd.Run()
	r.Log.Debugf("deno %s in %v", strings.Join(args, " "), time.Since(start))
	return
}

// Check type checks the root modules with `deno check`. It returns the
// diagnostics of a failed check; err is set only when deno could not run.
func (r *Runner) Check(ctx context.Context, cwd string, roots []string) ([]compiler.Diagnostic, error) {
	args := append([]string{"check", "--quiet"}, roots...)
	stdout, stderr, err := r.command(ctx, cwd, args...)
	if err == nil {
		return nil, nil
	}
	if _, ok := err.(*exec.ExitError); !ok {
		return nil, err
	}
	diagnostics := ParseDiagnostics(stderr.String() + stdout.String())
	for i, d := range diagnostics {
		if rel, err := filepath.Rel(cwd, d.File); err == nil && !strings.HasPrefix(rel, "..") {
			diagnostics[i].File = filepath.ToSlash(rel)
		}
	}
	if len(diagnostics) == 0 {
		return nil, fmt.Errorf("deno check: %s", strings.TrimSpace(stderr.String()))
	}
	return diagnostics, nil
}

// ParseDiagnostics extracts the diagnostics from `deno check` output.
func ParseDiagnostics(output string) []compiler.Diagnostic {
	var diagnostics []compiler.Diagnostic
	var current *compiler.Diagnostic
	for _, line := range strings.Split(regexpAnsi.ReplaceAllString(output, ""), "\n") {
		line = strings.TrimRight(line, "\r")
		if m := regexpDiagnostic.FindStringSubmatch(line); m != nil {
			diagnostics = append(diagnostics, compiler.Diagnostic{Code: m[1], Message: m[2]})
			current = &diagnostics[len(diagnostics)-1]
			continue
		}
		if current == nil || current.File != "" {
			continue
		}
		if m := regexpLocation.FindStringSubmatch(line); m != nil {
			line, _ := strconv.Atoi(m[2])
			col, _ := strconv.Atoi(m[3])
			current.File = strings.TrimPrefix(m[1], "file://")
			current.Position = compiler.Position{Line: line - 1, Character: col - 1}
		}
	}
	return diagnostics
}

type tsconfig struct {
	CompilerOptions map[string]any `json:"compilerOptions"`
	Files           []string       `json:"files"`
}

// EmitDeclarations writes the sources to a temporary project, runs the
// TypeScript compiler with declaration only output and returns the emitted
// `.d.ts` files keyed by their path relative to the project root. Type errors
// do not stop the emit.
func (r *Runner) EmitDeclarations(ctx context.Context, sources map[string][]byte, roots []string, target compiler.ScriptTarget) (map[string][]byte, error) {
	dir, err := os.MkdirTemp("", "dnt-dts-")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	for name, content := range sources {
		filename := filepath.Join(dir, "src", filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
			return nil, err
		}
		if err := os.WriteFile(filename, content, 0644); err != nil {
			return nil, err
		}
	}

	files := make([]string, len(roots))
	for i, root := range roots {
		files[i] = "src/" + root
	}
	tsTarget := strings.ToLower(string(target))
	if target == "Latest" {
		tsTarget = "esnext"
	}
	config, err := json.Marshal(tsconfig{
		CompilerOptions: map[string]any{
			"declaration":                true,
			"emitDeclarationOnly":        true,
			"allowJs":                    true,
			"skipLibCheck":               true,
			"noEmitOnError":              false,
			"strict":                     true,
			"target":                     tsTarget,
			"module":                     "esnext",
			"moduleResolution":           "bundler",
			"allowImportingTsExtensions": true,
			"rootDir":                    "src",
			"outDir":                     "types",
			"lib":                        []string{"esnext", "dom"},
			"types":                      []string{},
		},
		Files: files,
	})
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(dir, "tsconfig.json"), config, 0644); err != nil {
		return nil, err
	}

	_, stderr, err := r.command(ctx, dir, "run", "-A", "--no-config", typescriptPkg, "-p", "tsconfig.json")
	if err != nil {
		if _, ok := err.(*exec.ExitError); !ok {
			return nil, err
		}
		// tsc exits with a non-zero code on type errors but still emits
		r.Log.Debugf("tsc: %s", stderr.String())
	}

	outputs := make(map[string][]byte)
	typesDir := filepath.Join(dir, "types")
	err = filepath.Walk(typesDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !strings.HasSuffix(path, ".d.ts") {
			return nil
		}
		rel, err := filepath.Rel(typesDir, path)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		outputs[filepath.ToSlash(rel)] = data
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("tsc emitted no declarations: %s", strings.TrimSpace(stderr.String()))
		}
		return nil, err
	}
	return outputs, nil
}
