package deno

import (
	"testing"

	"github.com/esm-dev/dnt/internal/compiler"
)

func TestParseDiagnostics(t *testing.T) {
	output := "Check file:///project/mod.ts\n" +
		"\x1b[0m\x1b[1mTS2322 [ERROR]: Type 'string' is not assignable to type 'number'.\x1b[0m\n" +
		"const a: number = \"\";\n" +
		"      ^\n" +
		"    at file:///project/mod.ts:1:7\n" +
		"\n" +
		"TS2304 [ERROR]: Cannot find name 'b'.\n" +
		"console.log(b);\n" +
		"            ^\n" +
		"    at file:///project/lib/util.ts:3:13\n" +
		"\n" +
		"Found 2 errors.\n" +
		"\n" +
		"error: Type checking failed.\n"

	diagnostics := ParseDiagnostics(output)
	expected := []compiler.Diagnostic{
		{File: "/project/mod.ts", Position: compiler.Position{Line: 0, Character: 6}, Code: "TS2322", Message: "Type 'string' is not assignable to type 'number'."},
		{File: "/project/lib/util.ts", Position: compiler.Position{Line: 2, Character: 12}, Code: "TS2304", Message: "Cannot find name 'b'."},
	}
	if len(diagnostics) != len(expected) {
		t.Fatalf("expected %d diagnostics, got %d: %v", len(expected), len(diagnostics), diagnostics)
	}
	for i, d := range diagnostics {
		if d != expected[i] {
			t.Fatalf("expected %+v, got %+v", expected[i], d)
		}
	}
}

func TestResolveDenoPath(t *testing.T) {
	p := ResolveDenoPath("/home/user/.dnt")
	if p != "/home/user/.dnt/bin/deno" && p != "/home/user/.dnt/bin/deno.exe" {
		t.Fatalf("unexpected deno path %s", p)
	}
}
