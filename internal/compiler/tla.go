package compiler

import (
	"github.com/ije/esbuild-internal/js_ast"
)

// TopLevelAwaitLocation returns the position of the first `await` expression
// or `for await` loop evaluated at module scope, or nil when there is none.
// Function bodies, class method bodies and class field initializers are not
// module scope.
func TopLevelAwaitLocation(f *SourceFile) *Position {
	w := &tlaWalker{first: -1}
	for _, part := range f.tree.Parts {
		w.stmts(part.Stmts)
	}
	if w.first < 0 {
		return nil
	}
	pos := f.PositionAt(int(w.first))
	return &pos
}

// tlaWalker records the smallest source offset of a module scope await.
type tlaWalker struct {
	first int32
}

func (w *tlaWalker) hit(offset int32) {
	if w.first < 0 || offset < w.first {
		w.first = offset
	}
}

func (w *tlaWalker) stmts(stmts []js_ast.Stmt) {
	for _, stmt := range stmts {
		w.stmt(stmt)
	}
}

func (w *tlaWalker) stmt(stmt js_ast.Stmt) {
	switch s := stmt.Data.(type) {
	case *js_ast.SExpr:
		w.expr(s.Value)
	case *js_ast.SLocal:
		if s.Kind == js_ast.LocalAwaitUsing {
			// disposal awaits when the scope exits
			w.hit(stmt.Loc.Start)
		}
		w.decls(s.Decls)
	case *js_ast.SBlock:
		w.stmts(s.Stmts)
	case *js_ast.SIf:
		w.expr(s.Test)
		w.stmt(s.Yes)
		if s.NoOrNil.Data != nil {
			w.stmt(s.NoOrNil)
		}
	case *js_ast.SFor:
		if s.InitOrNil.Data != nil {
			w.stmt(s.InitOrNil)
		}
		w.expr(s.TestOrNil)
		w.expr(s.UpdateOrNil)
		w.stmt(s.Body)
	case *js_ast.SForIn:
		w.stmt(s.Init)
		w.expr(s.Value)
		w.stmt(s.Body)
	case *js_ast.SForOf:
		if s.Await.Len > 0 {
			w.hit(stmt.Loc.Start)
		}
		w.stmt(s.Init)
		w.expr(s.Value)
		w.stmt(s.Body)
	case *js_ast.SWhile:
		w.expr(s.Test)
		w.stmt(s.Body)
	case *js_ast.SDoWhile:
		w.stmt(s.Body)
		w.expr(s.Test)
	case *js_ast.SWith:
		w.expr(s.Value)
		w.stmt(s.Body)
	case *js_ast.SSwitch:
		w.expr(s.Test)
		for _, c := range s.Cases {
			w.expr(c.ValueOrNil)
			w.stmts(c.Body)
		}
	case *js_ast.STry:
		w.stmts(s.Block.Stmts)
		if s.Catch != nil {
			if s.Catch.BindingOrNil.Data != nil {
				w.binding(s.Catch.BindingOrNil)
			}
			w.stmts(s.Catch.Block.Stmts)
		}
		if s.Finally != nil {
			w.stmts(s.Finally.Block.Stmts)
		}
	case *js_ast.SLabel:
		w.stmt(s.Stmt)
	case *js_ast.SThrow:
		w.expr(s.Value)
	case *js_ast.SReturn:
		w.expr(s.ValueOrNil)
	case *js_ast.SExportDefault:
		w.stmt(s.Value)
	case *js_ast.SExportEquals:
		w.expr(s.Value)
	case *js_ast.SClass:
		w.class(&s.Class)
	case *js_ast.SFunction:
		// not module scope
	}
}

func (w *tlaWalker) decls(decls []js_ast.Decl) {
	for _, decl := range decls {
		w.binding(decl.Binding)
		w.expr(decl.ValueOrNil)
	}
}

func (w *tlaWalker) binding(binding js_ast.Binding) {
	switch b := binding.Data.(type) {
	case *js_ast.BArray:
		for _, item := range b.Items {
			w.binding(item.Binding)
			w.expr(item.DefaultValueOrNil)
		}
	case *js_ast.BObject:
		for _, prop := range b.Properties {
			if prop.IsComputed {
				w.expr(prop.Key)
			}
			w.binding(prop.Value)
			w.expr(prop.DefaultValueOrNil)
		}
	}
}

func (w *tlaWalker) class(class *js_ast.Class) {
	for _, d := range class.Decorators {
		w.expr(d.Value)
	}
	w.expr(class.ExtendsOrNil)
	for _, prop := range class.Properties {
		if prop.Kind == js_ast.PropertyClassStaticBlock {
			continue
		}
		for _, d := range prop.Decorators {
			w.expr(d.Value)
		}
		if prop.Flags.Has(js_ast.PropertyIsComputed) {
			w.expr(prop.Key)
		}
	}
}

func (w *tlaWalker) exprs(exprs []js_ast.Expr) {
	for _, expr := range exprs {
		w.expr(expr)
	}
}

func (w *tlaWalker) expr(expr js_ast.Expr) {
	if expr.Data == nil {
		return
	}
	switch e := expr.Data.(type) {
	case *js_ast.EAwait:
		w.hit(expr.Loc.Start)
		w.expr(e.Value)
	case *js_ast.EFunction, *js_ast.EArrow:
		// not module scope
	case *js_ast.EClass:
		w.class(&e.Class)
	case *js_ast.EObject:
		for _, prop := range e.Properties {
			if prop.Flags.Has(js_ast.PropertyIsComputed) {
				w.expr(prop.Key)
			}
			w.expr(prop.ValueOrNil)
			w.expr(prop.InitializerOrNil)
		}
	case *js_ast.EArray:
		w.exprs(e.Items)
	case *js_ast.ECall:
		w.expr(e.Target)
		w.exprs(e.Args)
	case *js_ast.ENew:
		w.expr(e.Target)
		w.exprs(e.Args)
	case *js_ast.EDot:
		w.expr(e.Target)
	case *js_ast.EIndex:
		w.expr(e.Target)
		w.expr(e.Index)
	case *js_ast.EUnary:
		w.expr(e.Value)
	case *js_ast.EBinary:
		w.expr(e.Left)
		w.expr(e.Right)
	case *js_ast.EIf:
		w.expr(e.Test)
		w.expr(e.Yes)
		w.expr(e.No)
	case *js_ast.ESpread:
		w.expr(e.Value)
	case *js_ast.ETemplate:
		w.expr(e.TagOrNil)
		for _, part := range e.Parts {
			w.expr(part.Value)
		}
	case *js_ast.EYield:
		w.expr(e.ValueOrNil)
	case *js_ast.EImportCall:
		w.expr(e.Expr)
		w.expr(e.OptionsOrNil)
	case *js_ast.EJSXElement:
		w.expr(e.TagOrNil)
		for _, prop := range e.Properties {
			w.expr(prop.ValueOrNil)
		}
		w.exprs(e.NullableChildren)
	}
}
