package builder

import (
	"encoding/json"
	"testing"

	"github.com/esm-dev/dnt/internal/npm"
)

func TestManifestFragments(t *testing.T) {
	entries := []EntryPoint{
		{Kind: ModuleEntry, Name: ".", Path: "mod.ts"},
		{Kind: ModuleEntry, Name: "./sub", Path: "sub.ts"},
		{Kind: BinEntry, Name: "tool", Path: "cli.ts"},
	}
	tests := []struct {
		name   string
		in     manifestInput
		expect string
	}{
		{
			"all formats",
			manifestInput{
				entries:     entries,
				esm:         []string{"esm/mod.js", "esm/sub.js", "esm/cli.js"},
				umd:         []string{"umd/mod.js", "umd/sub.js", "umd/cli.js"},
				declaration: true,
				testRunner:  true,
				deps:        shimSet{"deno.ns": DenoShim},
				devDeps:     shimSet{"preact": npm.Package{Name: "preact", Version: "10.0.0"}},
			},
			`{"main":"./umd/mod.js","module":"./esm/mod.js","types":"./types/mod.d.ts","bin":{"tool":"./umd/cli.js"},"exports":{".":{"import":"./esm/mod.js","require":"./umd/mod.js","types":"./types/mod.d.ts"},"./sub":{"import":"./esm/sub.js","require":"./umd/sub.js","types":"./types/sub.d.ts"}},"scripts":{"test":"node test_runner.js"},"dependencies":{"deno.ns":"0.6.4","tslib":"2.3.1"},"devDependencies":{"@types/node":"16.11.1","chalk":"4.1.2","preact":"10.0.0"}}`,
		},
		{
			"esm only",
			manifestInput{
				entries: entries,
				esm:     []string{"esm/mod.js", "esm/sub.js", "esm/cli.js"},
			},
			`{"module":"./esm/mod.js","bin":{"tool":"./esm/cli.js"},"exports":{".":{"import":"./esm/mod.js"},"./sub":{"import":"./esm/sub.js"}},"dependencies":{"tslib":"2.3.1"},"devDependencies":{}}`,
		},
		{
			"bin only",
			manifestInput{
				entries:     entries[2:],
				esm:         []string{"esm/cli.js"},
				umd:         []string{"umd/cli.js"},
				declaration: true,
			},
			`{"bin":{"tool":"./umd/cli.js"},"exports":{},"dependencies":{"tslib":"2.3.1"},"devDependencies":{"@types/node":"16.11.1"}}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			manifest := synthesizeManifest(npm.NewJSONObject(), tt.in)
			data, err := json.Marshal(manifest)
			if err != nil {
				t.Fatal(err)
			}
			if string(data) != tt.expect {
				t.Fatalf("expected %s\ngot %s", tt.expect, data)
			}
		})
	}
}

func TestManifestMerge(t *testing.T) {
	var pkg npm.JSONObject
	err := json.Unmarshal([]byte(`{"name":"add","version":"1.0.0","module":"./old.js","scripts":{"build":"deno task build","test":"deno test"},"devDependencies":{"typescript":"5.0.0"}}`), &pkg)
	if err != nil {
		t.Fatal(err)
	}
	manifest := synthesizeManifest(&pkg, manifestInput{
		entries:    []EntryPoint{{Kind: ModuleEntry, Name: ".", Path: "mod.ts"}},
		esm:        []string{"esm/mod.js"},
		testRunner: true,
	})
	data, err := json.Marshal(manifest)
	if err != nil {
		t.Fatal(err)
	}
	expected := `{"name":"add","version":"1.0.0","module":"./esm/mod.js","scripts":{"build":"deno task build","test":"node test_runner.js"},"devDependencies":{"typescript":"5.0.0","chalk":"4.1.2"},"exports":{".":{"import":"./esm/mod.js"}},"dependencies":{"tslib":"2.3.1"}}`
	if string(data) != expected {
		t.Fatalf("expected %s\ngot %s", expected, data)
	}
	if pkg.GetString("module") != "./old.js" {
		t.Fatal("the caller package must not be modified")
	}
}

func TestIgnoreList(t *testing.T) {
	tests := []struct {
		name       string
		tests      []string
		deps       []string
		umd        bool
		testRunner bool
		expect     string
	}{
		{"nothing", nil, nil, true, false, "src/\n"},
		{"esm only", []string{"mod.test.ts"}, []string{"deps/x/a.ts"}, false, false, "src/\nesm/mod.test.js\nesm/deps/x/a.js\n"},
		{"all", []string{"a_test.ts", "mod.test.ts"}, []string{"deps/x/a.ts"}, true, true, "src/\nesm/a_test.js\numd/a_test.js\nesm/mod.test.js\numd/mod.test.js\nesm/deps/x/a.js\numd/deps/x/a.js\ntest_runner.js\n"},
	}
	for _, tt := range tests {
		if s := ignoreList(tt.tests, tt.deps, tt.umd, tt.testRunner); s != tt.expect {
			t.Fatalf("%s: expected %q, got %q", tt.name, tt.expect, s)
		}
	}
}
