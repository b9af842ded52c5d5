package builder

import (
	"context"
	"strings"
	"testing"

	"github.com/esm-dev/dnt/internal/compiler"
)

func TestFindTestFiles(t *testing.T) {
	fs := newFS(t, map[string]string{
		"mod.ts":                   "",
		"mod.test.ts":              "",
		"mod_test.js":              "",
		"test.ts":                  "",
		"latest.ts":                "",
		"lib/util.test.tsx":        "",
		"lib/util_test.mjs":        "",
		"lib/test_data.json":       "",
		"lib/types.test.d.ts":      "",
		"npm/esm/mod.test.js":      "",
		"node_modules/x/a.test.js": "",
		".git/hooks/b.test.ts":     "",
		"deps/c.test.ts":           "",
	})
	opts := newOptions(fs, EntryPoint{Path: "mod.ts"})
	cfg, err := opts.validate()
	if err != nil {
		t.Fatal(err)
	}
	files, err := findTestFiles(cfg)
	if err != nil {
		t.Fatal(err)
	}
	expected := []string{"lib/util.test.tsx", "lib/util_test.mjs", "mod.test.ts", "mod_test.js", "test.ts"}
	if strings.Join(files, ",") != strings.Join(expected, ",") {
		t.Fatalf("expected %v, got %v", expected, files)
	}
}

func TestTypeOnlyImports(t *testing.T) {
	source := `import type { A } from "./a.ts";
import { b } from "./b.ts";
export type { C } from './c.ts';
import type {
  D,
  E,
} from "https://deno.land/x/types/mod.ts";
export type * from "./f.ts";
const s = "import type { X } from './x.ts'";
/*
import type { Gone } from "./gone.ts";
*/
// import type { Old } from "./old.ts";
` + "const doc = `\nimport type { T } from \"./t.ts\";\n${s}`;\n"
	records := typeOnlyImports("mod.ts", source)
	expected := []string{"./a.ts", "./c.ts", "https://deno.land/x/types/mod.ts", "./f.ts"}
	if len(records) != len(expected) {
		t.Fatalf("expected %d records, got %v", len(expected), records)
	}
	for i, r := range records {
		if r.Specifier != expected[i] {
			t.Fatalf("expected %s, got %s", expected[i], r.Specifier)
		}
		if literal := source[r.Start:r.End]; literal[1:len(literal)-1] != r.Specifier {
			t.Fatalf("range does not cover the literal: %s", literal)
		}
	}

	f, err := compiler.ParseSourceFile("mod.ts", source)
	if err != nil {
		t.Fatal(err)
	}
	merged := mergeImports(f.Imports(), records)
	var specifiers []string
	for _, r := range merged {
		specifiers = append(specifiers, r.Specifier)
	}
	if strings.Join(specifiers, ",") != "./a.ts,./b.ts,./c.ts,https://deno.land/x/types/mod.ts,./f.ts" {
		t.Fatalf("unexpected merged imports %v", specifiers)
	}
}

func TestModuleRewrite(t *testing.T) {
	fs := newFS(t, map[string]string{
		"mod.ts":   "// @deno-types=\"./lib/a.d.ts\"\nimport { a } from './lib/a.js';\nimport type { B } from \"./lib/b.ts\";\nexport const c: B = a(Deno.args);\nexport const d = import(\"./lib/b.ts\");\n",
		"lib/a.js": "export const a = (x) => x;\n",
		"lib/b.ts": "export type B = string[];\n",
	})
	opts := newOptions(fs, EntryPoint{Path: "mod.ts"})
	cfg, err := opts.validate()
	if err != nil {
		t.Fatal(err)
	}
	g, err := loadGraph(cfg, newResolver(context.Background(), cfg, &opts), nil)
	if err != nil {
		t.Fatal(err)
	}
	n := g.modules["mod.ts"]
	if n == nil || !n.lib || n.test {
		t.Fatal("expected the entry module to be a library module")
	}
	expected := "import { Deno } from \"deno.ns\";\n\nimport { a } from './lib/a.js';\nimport type { B } from \"./lib/b.js\";\nexport const c: B = a(Deno.args);\nexport const d = import(\"./lib/b.js\");\n"
	if text := n.rewrite(); text != expected {
		t.Fatalf("unexpected rewrite:\n%s", text)
	}
	if len(g.order) != 3 || !g.modules["lib/b.ts"].lib {
		t.Fatal("expected every import to be loaded")
	}
}
