package npm

import (
	"encoding/json"
	"testing"
)

func TestValidatePackageName(t *testing.T) {
	valid := []string{"dnt", "deno.ns", "@deno/shim-deno", "lodash_es", "a-b"}
	invalid := []string{"", ".hidden", "_private", "@scope", "@/name", "has space", "slash/name"}
	for _, name := range valid {
		if !ValidatePackageName(name) {
			t.Fatalf("expected %q to be valid", name)
		}
	}
	for _, name := range invalid {
		if ValidatePackageName(name) {
			t.Fatalf("expected %q to be invalid", name)
		}
	}
}

func TestValidatePackageVersion(t *testing.T) {
	for _, v := range []string{"0.1.0", "1.2.3-beta.1", "10.0.0+build.5"} {
		if !ValidatePackageVersion(v) {
			t.Fatalf("expected %q to be valid", v)
		}
	}
	for _, v := range []string{"", "1", "1.2", "^1.0.0", "latest", "v1.0.0"} {
		if ValidatePackageVersion(v) {
			t.Fatalf("expected %q to be invalid", v)
		}
	}
}

func TestParseNpmSpecifier(t *testing.T) {
	tests := []struct {
		specifier string
		expect    Package
	}{
		{"npm:chalk@4.1.2", Package{Name: "chalk", Version: "4.1.2"}},
		{"npm:chalk@^5.0.0/source", Package{Name: "chalk", Version: "^5.0.0", SubPath: "source"}},
		{"npm:@types/node@16.11.1", Package{Name: "@types/node", Version: "16.11.1"}},
		{"npm:@std/fmt@1.0.0/colors", Package{Name: "@std/fmt", Version: "1.0.0", SubPath: "colors"}},
	}
	for _, tt := range tests {
		pkg, err := ParseNpmSpecifier(tt.specifier)
		if err != nil {
			t.Fatalf("%s: %v", tt.specifier, err)
		}
		if pkg != tt.expect {
			t.Fatalf("%s: expected %+v, got %+v", tt.specifier, tt.expect, pkg)
		}
	}
	for _, specifier := range []string{"chalk@4.1.2", "npm:chalk", "npm:@types/node", "npm:chalk@not-a-version!", "npm:.bad@1.0.0"} {
		if _, err := ParseNpmSpecifier(specifier); err == nil {
			t.Fatalf("%s: expected error", specifier)
		}
	}
	if s := (Package{Name: "chalk", Version: "4.1.2", SubPath: "source"}).Specifier(); s != "chalk/source" {
		t.Fatalf("unexpected specifier %s", s)
	}
}

func TestIsNodeBuiltinModule(t *testing.T) {
	for _, s := range []string{"fs", "node:fs", "fs/promises", "node:test", "path"} {
		if !IsNodeBuiltinModule(s) {
			t.Fatalf("expected %q to be a builtin module", s)
		}
	}
	for _, s := range []string{"chalk", "./fs", "fsx"} {
		if IsNodeBuiltinModule(s) {
			t.Fatalf("expected %q not to be a builtin module", s)
		}
	}
}

func TestJSONObject(t *testing.T) {
	var obj JSONObject
	err := json.Unmarshal([]byte(`{"name":"pkg","version":"1.0.0","exports":{".":{"import":"./esm/mod.js"}},"files":["a",1]}`), &obj)
	if err != nil {
		t.Fatal(err)
	}
	keys := obj.Keys()
	if len(keys) != 4 || keys[0] != "name" || keys[3] != "files" {
		t.Fatalf("unexpected keys %v", keys)
	}
	exports, ok := obj.GetObject("exports")
	if !ok || exports.Len() != 1 {
		t.Fatal("expected nested exports object")
	}

	obj.Set("name", "renamed")
	obj.Set("main", "./umd/mod.js")
	obj.Delete("files")
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatal(err)
	}
	expected := `{"name":"renamed","version":"1.0.0","exports":{".":{"import":"./esm/mod.js"}},"main":"./umd/mod.js"}`
	if string(data) != expected {
		t.Fatalf("expected %s, got %s", expected, data)
	}

	clone := obj.Clone()
	exports.Set(".", "changed")
	cloned, _ := clone.GetObject("exports")
	if _, ok := cloned.Get("."); !ok {
		t.Fatal("clone lost nested key")
	}
	if v, _ := cloned.Get("."); v == "changed" {
		t.Fatal("clone shares nested objects")
	}
}
