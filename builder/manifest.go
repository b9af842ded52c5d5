package builder

import (
	"sort"

	"github.com/esm-dev/dnt/internal/npm"
)

// manifestInput is what the pipeline produced.
type manifestInput struct {
	entries     []EntryPoint
	esm         []string
	umd         []string
	declaration bool
	testRunner  bool
	deps        shimSet
	devDeps     shimSet
}

type fragment struct {
	key   string
	value any
}

// manifestFragments returns the fields derived from the build, each present
// only when its feature produced output.
func manifestFragments(in manifestInput) []fragment {
	var fragments []fragment
	main := -1
	for i, entry := range in.entries {
		if entry.Kind == ModuleEntry && entry.Name == "." {
			main = i
		}
	}
	if main >= 0 {
		if in.umd != nil {
			fragments = append(fragments, fragment{"main", "./" + in.umd[main]})
		}
		fragments = append(fragments, fragment{"module", "./" + in.esm[main]})
		if in.declaration {
			fragments = append(fragments, fragment{"types", "./" + typesPath(in.entries[main])})
		}
	}

	bin := npm.NewJSONObject()
	exports := npm.NewJSONObject()
	for i, entry := range in.entries {
		switch entry.Kind {
		case BinEntry:
			if in.umd != nil {
				bin.Set(entry.Name, "./"+in.umd[i])
			} else {
				bin.Set(entry.Name, "./"+in.esm[i])
			}
		case ModuleEntry:
			conditions := npm.NewJSONObject()
			conditions.Set("import", "./"+in.esm[i])
			if in.umd != nil {
				conditions.Set("require", "./"+in.umd[i])
			}
			if in.declaration {
				conditions.Set("types", "./"+typesPath(entry))
			}
			exports.Set(entry.Name, conditions)
		}
	}
	if bin.Len() > 0 {
		fragments = append(fragments, fragment{"bin", bin})
	}
	fragments = append(fragments, fragment{"exports", exports})

	if in.testRunner {
		scripts := npm.NewJSONObject()
		scripts.Set("test", "node "+testRunnerFile)
		fragments = append(fragments, fragment{"scripts", scripts})
	}

	deps := shimSet{}
	deps.add(TslibPackage)
	for _, pkg := range in.deps {
		deps.add(pkg)
	}
	devDeps := shimSet{}
	if in.declaration {
		devDeps.add(NodeTypesPackage)
	}
	if in.testRunner {
		devDeps.add(ChalkPackage)
	}
	for _, pkg := range in.devDeps {
		devDeps.add(pkg)
	}
	fragments = append(fragments, fragment{"dependencies", deps.object()}, fragment{"devDependencies", devDeps.object()})
	return fragments
}

// synthesizeManifest merges the build fragments over the caller package.
// Caller keys keep their position, new keys are appended in fragment order.
// The dependency maps and scripts are merged per key.
func synthesizeManifest(pkg *npm.JSONObject, in manifestInput) *npm.JSONObject {
	manifest := pkg.Clone()
	for _, f := range manifestFragments(in) {
		switch f.key {
		case "scripts", "dependencies", "devDependencies":
			if existing, ok := manifest.GetObject(f.key); ok {
				merged := existing.Clone()
				obj := f.value.(*npm.JSONObject)
				for _, key := range obj.Keys() {
					v, _ := obj.Get(key)
					merged.Set(key, v)
				}
				manifest.Set(f.key, merged)
				continue
			}
		}
		manifest.Set(f.key, f.value)
	}
	return manifest
}

func typesPath(entry EntryPoint) string {
	return "types/" + dtsPath(entry.Path)
}

// object returns the packages as a name to version map sorted by name.
func (s shimSet) object() *npm.JSONObject {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	obj := npm.NewJSONObject()
	for _, name := range names {
		obj.Set(name, s[name].Version)
	}
	return obj
}
