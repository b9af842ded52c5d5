package jsonc

import (
	"testing"
)

func TestUnmarshal(t *testing.T) {
	input := []byte(`{
  // entry points
  "entryPoints": ["./mod.ts",],
  /* the package
     descriptor */
  "package": { "name": "pkg", "version": "1.0.0", },
  "url": "https://deno.land/x/a//b.ts"
}`)
	var v struct {
		EntryPoints []string          `json:"entryPoints"`
		Package     map[string]string `json:"package"`
		URL         string            `json:"url"`
	}
	if err := Unmarshal(input, &v); err != nil {
		t.Fatal(err)
	}
	if len(v.EntryPoints) != 1 || v.EntryPoints[0] != "./mod.ts" {
		t.Fatalf("unexpected entry points %v", v.EntryPoints)
	}
	if v.Package["name"] != "pkg" || v.Package["version"] != "1.0.0" {
		t.Fatalf("unexpected package %v", v.Package)
	}
	if v.URL != "https://deno.land/x/a//b.ts" {
		t.Fatalf("comment markers inside strings must be kept, got %s", v.URL)
	}
	if len(StripJSONC(input)) != len(input) {
		t.Fatal("stripped output should keep the input length")
	}
}
