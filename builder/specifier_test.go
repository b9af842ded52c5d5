package builder

import (
	"context"
	"net/url"
	"strings"
	"testing"

	"github.com/esm-dev/dnt/internal/mime"
	"github.com/esm-dev/dnt/internal/npm"
)

func TestVendorPath(t *testing.T) {
	tests := []struct {
		url       string
		mediaType mime.MediaType
		expect    string
	}{
		{"https://deno.land/std@0.109.0/fmt/colors.ts", mime.TypeScript, "deps/deno_land_std_0_109_0/fmt/colors.ts"},
		{"https://deno.land/std@0.109.0/testing/_diff.ts", mime.TypeScript, "deps/deno_land_std_0_109_0/testing/_diff.ts"},
		{"https://example.com/mod.ts", mime.TypeScript, "deps/example_com/mod.ts"},
		{"http://localhost:8080/lib/a.js", mime.JavaScript, "deps/localhost_8080_lib/a.js"},
		{"https://esm.sh/preact", mime.JavaScript, "deps/esm_sh/preact.js"},
		{"https://esm.sh/v135/preact@10.0.0/hooks", mime.TypeScript, "deps/esm_sh_v135/preact@10.0.0/hooks.ts"},
		{"https://cdn.example.com/x/types.d.ts", mime.Dts, "deps/cdn_example_com_x/types.d.ts"},
		{"https://deno.land/x/oak@v10.0.0/mod.ts#frag", mime.TypeScript, "deps/deno_land_x/oak@v10.0.0/mod.ts"},
	}
	for _, tt := range tests {
		u, err := url.Parse(tt.url)
		if err != nil {
			t.Fatal(err)
		}
		if p := vendorPath(u, tt.mediaType); p != tt.expect {
			t.Fatalf("%s: expected %s, got %s", tt.url, tt.expect, p)
		}
	}

	a, _ := url.Parse("https://esm.sh/x/y.js?target=es2020")
	b, _ := url.Parse("https://esm.sh/x/y.js?target=es2022")
	pa, pb := vendorPath(a, mime.JavaScript), vendorPath(b, mime.JavaScript)
	if !strings.HasPrefix(pa, "deps/esm_sh_x/y_") || !strings.HasSuffix(pa, ".js") {
		t.Fatalf("unexpected query path %s", pa)
	}
	if pa == pb {
		t.Fatal("different queries must not share a path")
	}
	if vendorPath(a, mime.JavaScript) != pa {
		t.Fatal("vendor path must be stable")
	}
}

func TestRelativeSpecifier(t *testing.T) {
	tests := []struct {
		importer string
		target   string
		expect   string
	}{
		{"mod.ts", "lib/a.js", "./lib/a.js"},
		{"mod.ts", "mod2.js", "./mod2.js"},
		{"lib/a.ts", "lib/b.js", "./b.js"},
		{"lib/a.ts", "mod.js", "../mod.js"},
		{"lib/a.ts", "lib2/b.js", "../lib2/b.js"},
		{"deps/deno_land_std/testing/asserts.ts", "deps/deno_land_std/fmt/colors.js", "../fmt/colors.js"},
		{"esm/mod.js", "src/mod.ts", "../src/mod.ts"},
		{"a/b/c.ts", "a/b/c/d.js", "./c/d.js"},
	}
	for _, tt := range tests {
		if s := relativeSpecifier(tt.importer, tt.target); s != tt.expect {
			t.Fatalf("%s -> %s: expected %s, got %s", tt.importer, tt.target, tt.expect, s)
		}
	}
}

func TestJSPath(t *testing.T) {
	tests := map[string]string{
		"mod.ts":                   "mod.js",
		"lib/a.tsx":                "lib/a.js",
		"data.json":                "data.js",
		"deps/x/types.d.ts":        "deps/x/types.js",
		"deps/deno_land_std/a.mjs": "deps/deno_land_std/a.js",
	}
	for p, expect := range tests {
		if s := jsPath(p); s != expect {
			t.Fatalf("%s: expected %s, got %s", p, expect, s)
		}
	}
	if s := dtsPath("lib/a.ts"); s != "lib/a.d.ts" {
		t.Fatalf("unexpected declaration path %s", s)
	}
}

func newTestResolver(t *testing.T, files map[string]string, loader *fakeLoader) *Resolver {
	opts := newOptions(newFS(t, files), EntryPoint{Path: "mod.ts"})
	opts.Loader = loader
	opts.Mappings = map[string]npm.Package{
		"https://deno.land/x/preact/mod.ts": {Name: "preact", Version: "10.0.0"},
		"https://esm.sh/react-dom/":         {Name: "react-dom", Version: "18.2.0"},
	}
	cfg, err := opts.validate()
	if err != nil {
		t.Fatal(err)
	}
	return newResolver(context.Background(), cfg, &opts)
}

func TestResolverConsistency(t *testing.T) {
	loader := newFakeLoader(map[string]string{
		"https://deno.land/x/util/mod.ts": `export const a = 1;`,
	})
	r := newTestResolver(t, map[string]string{"mod.ts": "", "a.ts": "", "lib/b.ts": ""}, loader)
	const specifier = "https://deno.land/x/util/mod.ts"
	ra, err := r.Resolve(fileURL(cwd, "a.ts"), specifier)
	if err != nil {
		t.Fatal(err)
	}
	rb, err := r.Resolve(fileURL(cwd, "lib/b.ts"), specifier)
	if err != nil {
		t.Fatal(err)
	}
	if ra != rb {
		t.Fatalf("expected identical resolutions, got %+v and %+v", ra, rb)
	}
	if ra.Kind != VendoredSpecifier || ra.Path != "deps/deno_land_x/util/mod.ts" || ra.URL != specifier {
		t.Fatalf("unexpected resolution %+v", ra)
	}
	if loader.calls[specifier] != 1 {
		t.Fatalf("expected one fetch, got %d", loader.calls[specifier])
	}
	if s := ra.Rewrite("a.ts"); s != "./deps/deno_land_x/util/mod.js" {
		t.Fatalf("unexpected rewrite %s", s)
	}
	if s := rb.Rewrite("lib/b.ts"); s != "../deps/deno_land_x/util/mod.js" {
		t.Fatalf("unexpected rewrite %s", s)
	}

	// relative specifiers are cached per importer
	la, err := r.Resolve(fileURL(cwd, "mod.ts"), "./a.ts")
	if err != nil {
		t.Fatal(err)
	}
	lb, err := r.Resolve(fileURL(cwd, "lib/b.ts"), "../a.ts")
	if err != nil {
		t.Fatal(err)
	}
	if la.Kind != LocalSpecifier || la != lb || la.Path != "a.ts" {
		t.Fatalf("unexpected local resolutions %+v %+v", la, lb)
	}
	if _, err := r.Resolve(fileURL(cwd, "lib/b.ts"), "./a.ts"); !IsKind(err, ResolutionFailure) {
		t.Fatalf("expected ResolutionFailure, got %v", err)
	}
}

func TestResolverKinds(t *testing.T) {
	loader := newFakeLoader(map[string]string{
		"https://deno.land/std/path/mod.ts":   `export * from "./posix.ts";`,
		"https://deno.land/std/path/posix.ts": `export const sep = "/";`,
	})
	r := newTestResolver(t, map[string]string{"mod.ts": ""}, loader)
	importer := fileURL(cwd, "mod.ts")
	tests := []struct {
		specifier string
		kind      SpecifierKind
		rewrite   string
	}{
		{"node:fs", BuiltinSpecifier, "node:fs"},
		{"fs/promises", BuiltinSpecifier, "fs/promises"},
		{"npm:chalk@4.1.2/source", ShimSpecifier, "chalk/source"},
		{"https://deno.land/x/preact/mod.ts", ShimSpecifier, "preact"},
		{"https://esm.sh/react-dom/client", ShimSpecifier, "react-dom/client"},
		{"https://deno.land/std/path/mod.ts", VendoredSpecifier, "./deps/deno_land_std/path/mod.js"},
		{"./mod.ts", LocalSpecifier, "./mod.js"},
	}
	for _, tt := range tests {
		res, err := r.Resolve(importer, tt.specifier)
		if err != nil {
			t.Fatalf("%s: %v", tt.specifier, err)
		}
		if res.Kind != tt.kind {
			t.Fatalf("%s: expected %s, got %s", tt.specifier, tt.kind, res.Kind)
		}
		if s := res.Rewrite("mod.ts"); s != tt.rewrite {
			t.Fatalf("%s: expected %s, got %s", tt.specifier, tt.rewrite, s)
		}
	}

	// relative imports of a vendored module resolve against its URL
	remoteImporter, _ := url.Parse("https://deno.land/std/path/mod.ts")
	res, err := r.Resolve(remoteImporter, "./posix.ts")
	if err != nil {
		t.Fatal(err)
	}
	if res.Kind != VendoredSpecifier || res.Path != "deps/deno_land_std/path/posix.ts" {
		t.Fatalf("unexpected resolution %+v", res)
	}
	if _, err := r.Resolve(remoteImporter, "file:///project/mod.ts"); !IsKind(err, ResolutionFailure) {
		t.Fatalf("remote modules must not import local files, got %v", err)
	}
	for _, specifier := range []string{"lodash", "npm:chalk", "ftp://example.com/mod.ts", "../outside.ts"} {
		if _, err := r.Resolve(importer, specifier); !IsKind(err, ResolutionFailure) {
			t.Fatalf("%s: expected ResolutionFailure, got %v", specifier, err)
		}
	}
}
