package builder

import (
	"context"
)

// emitDeclarations emits a shared `types/` tree for the library modules.
func (b *builder) emitDeclarations(ctx context.Context, graph *moduleGraph, sources map[string]string) (map[string][]byte, error) {
	staged := make(map[string][]byte)
	for _, n := range graph.reachable() {
		if n.lib {
			staged[n.path] = []byte(sources[n.path])
		}
	}
	roots := make([]string, len(graph.entries))
	for i, n := range graph.entries {
		roots[i] = n.path
	}
	declarations, err := b.opts.DeclarationEmitter.EmitDeclarations(ctx, staged, roots, b.cfg.target)
	if err != nil {
		return nil, &BuildError{Kind: IOFailure, Message: "could not emit declarations", Err: err}
	}
	files := make(map[string][]byte, len(declarations))
	for p, data := range declarations {
		files["types/"+p] = data
	}
	return files, nil
}
