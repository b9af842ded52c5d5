package builder

import (
	"errors"
	"strings"
	"testing"

	"github.com/esm-dev/dnt/internal/compiler"
	"github.com/goccy/go-json"
)

func TestEntryPointUnmarshalJSON(t *testing.T) {
	var entries []EntryPoint
	err := json.Unmarshal([]byte(`["mod.ts", {"kind": "bin", "name": "add", "path": "./cli.ts"}, {"name": "./sub", "path": "sub.ts"}]`), &entries)
	if err != nil {
		t.Fatal(err)
	}
	expected := []EntryPoint{
		{Path: "mod.ts"},
		{Kind: BinEntry, Name: "add", Path: "./cli.ts"},
		{Name: "./sub", Path: "sub.ts"},
	}
	if len(entries) != len(expected) {
		t.Fatalf("expected %d entries, got %d", len(expected), len(entries))
	}
	for i, entry := range entries {
		if entry != expected[i] {
			t.Fatalf("expected %+v, got %+v", expected[i], entry)
		}
	}
}

func TestValidate(t *testing.T) {
	opts := newOptions(newFS(t, nil), EntryPoint{Path: "./mod.ts"}, EntryPoint{Name: "sub", Path: "/project/lib/sub.ts"}, EntryPoint{Kind: BinEntry, Name: "tool", Path: "file:///project/cli.ts"})
	cfg, err := opts.validate()
	if err != nil {
		t.Fatal(err)
	}
	expected := []EntryPoint{
		{Kind: ModuleEntry, Name: ".", Path: "mod.ts"},
		{Kind: ModuleEntry, Name: "./sub", Path: "lib/sub.ts"},
		{Kind: BinEntry, Name: "tool", Path: "cli.ts"},
	}
	for i, entry := range cfg.entries {
		if entry != expected[i] {
			t.Fatalf("expected %+v, got %+v", expected[i], entry)
		}
	}
	if !cfg.cjs || !cfg.declaration || !cfg.test || !cfg.typeCheck {
		t.Fatal("feature toggles default to true")
	}
	if cfg.target != compiler.DefaultScriptTarget || cfg.outDir != "/project/npm" {
		t.Fatalf("unexpected defaults %s %s", cfg.target, cfg.outDir)
	}

	opts.EntryPoints = []EntryPoint{{Path: "../outside.ts"}}
	if _, err := opts.validate(); !IsKind(err, InvalidConfiguration) {
		t.Fatalf("expected InvalidConfiguration, got %v", err)
	}
	opts.EntryPoints = []EntryPoint{{Path: "a.ts"}, {Path: "b.ts"}}
	if _, err := opts.validate(); !IsKind(err, InvalidConfiguration) {
		t.Fatalf("duplicate module entries, got %v", err)
	}
	opts.EntryPoints = []EntryPoint{{Path: "a.ts"}}
	opts.ScriptTarget = "ES2077"
	_, err = opts.validate()
	var unknown *compiler.UnknownTargetError
	if !IsKind(err, InvalidConfiguration) || !errors.As(err, &unknown) {
		t.Fatalf("expected an unknown target error, got %v", err)
	}
}

func TestBuildErrorMessage(t *testing.T) {
	err := &BuildError{
		Kind:      ResolutionFailure,
		Message:   "module not found",
		Specifier: "./missing.ts",
		Importer:  "mod.ts",
	}
	if s := err.Error(); s != `ResolutionFailure: module not found "./missing.ts" imported by mod.ts` {
		t.Fatalf("unexpected message %s", s)
	}
	err = &BuildError{
		Kind:     IncompatibleFeatureCombination,
		Message:  "top level await",
		File:     "mod.ts",
		Position: &compiler.Position{Line: 2, Character: 4},
	}
	if s := err.Error(); !strings.HasSuffix(s, "(mod.ts:3:5)") {
		t.Fatalf("unexpected message %s", s)
	}
}

func TestStage(t *testing.T) {
	stages := []Stage{StageConfigured, StageAnalyzing, StageEmitting, StageDeclaring, StageSynthesizing, StageDone}
	names := make([]string, len(stages))
	for i, s := range stages {
		names[i] = s.String()
	}
	if strings.Join(names, ",") != "configured,analyzing,emitting,declaring,synthesizing,done" {
		t.Fatalf("unexpected stage names %v", names)
	}
}

func TestGenerateTestRunner(t *testing.T) {
	data, err := generateTestRunner([]string{"mod.test.ts", "lib/a_test.tsx"})
	if err != nil {
		t.Fatal(err)
	}
	text := string(data)
	if !strings.Contains(text, `const filePaths = ["mod.test.js","lib/a_test.js"];`) {
		t.Fatalf("unexpected runner:\n%s", text)
	}
	if !strings.Contains(text, `require("chalk")`) || strings.Contains(text, "{TEST_FILES}") {
		t.Fatal("unexpected runner template")
	}
}
