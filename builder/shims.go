package builder

import (
	"github.com/esm-dev/dnt/internal/npm"
)

// Packages the generated package depends on, pinned.
var (
	DenoShim         = npm.Package{Name: "deno.ns", Version: "0.6.4"}
	TslibPackage     = npm.Package{Name: "tslib", Version: "2.3.1"}
	NodeTypesPackage = npm.Package{Name: "@types/node", Version: "16.11.1"}
	ChalkPackage     = npm.Package{Name: "chalk", Version: "4.1.2"}
)

const denoShimImport = `import { Deno } from "deno.ns";` + "\n"

// injectDenoShim imports the Deno namespace shim at the top of the module.
func injectDenoShim(text string) string {
	return denoShimImport + text
}

// shimSet collects the packages used by a set of modules, keyed by name.
// Packages added later replace earlier ones of the same name.
type shimSet map[string]npm.Package

func (s shimSet) add(pkgs ...npm.Package) {
	for _, pkg := range pkgs {
		pkg.SubPath = ""
		s[pkg.Name] = pkg
	}
}

func (s shimSet) has(name string) bool {
	_, ok := s[name]
	return ok
}

// usedShims returns the shim packages imported by the module.
func (n *moduleNode) usedShims() []npm.Package {
	var pkgs []npm.Package
	if n.usesDeno {
		pkgs = append(pkgs, DenoShim)
	}
	for _, imp := range n.imports {
		if imp.resolved.Kind == ShimSpecifier {
			pkgs = append(pkgs, imp.resolved.Package)
		}
	}
	return pkgs
}
