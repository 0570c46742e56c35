package irgen

import (
	"github.com/arc-language/core-irgen/ast"
	"github.com/arc-language/core-irgen/diag"
	"github.com/arc-language/core-irgen/ir"
	"github.com/arc-language/core-irgen/typeresolve"
)

// registerPolyFunc records a polymorphic function template so call sites
// can find and instantiate it on demand (spec.md §4.8); it is never given
// an IR skeleton directly — genFunctionSkeletons only does that for
// concrete functions.
func (g *Generator) registerPolyFunc(f *ast.Func) {
	g.polyFuncs = append(g.polyFuncs, f)
}

func (g *Generator) polyCandidates(name string) []*ast.Func {
	var out []*ast.Func
	for _, f := range g.polyFuncs {
		if f.Name == name {
			out = append(out, f)
		}
	}
	return out
}

// genPolyCall implements the polymorphic branch of spec.md §4.6 "Call":
// when find_func_conforming finds no matching concrete overload, every
// same-named polymorphic template is tried in declaration order. The
// first whose parameter shapes unify against the call's actual argument
// types is instantiated (spec.md §4.8) and the call proceeds against the
// freshly generated concrete function. ok is false, with no error, when
// no template matches at all — callers fall through to their own
// tentative/undefined-function handling in that case.
func (fg *funcGen) genPolyCall(name string, args []ast.Expr, scope *ir.Scope, loc ast.Location, discard bool) (ir.IrValue, ast.Type, bool, *diag.Error) {
	templates := fg.polyCandidates(name)
	if len(templates) == 0 {
		return ir.IrValue{}, nil, false, nil
	}

	for _, tmpl := range templates {
		if len(tmpl.Args) != len(args) {
			continue
		}
		snap := fg.b.Snapshot()
		argVals := make([]ir.IrValue, len(args))
		argTypes := make([]ast.Type, len(args))
		ok := true
		for i, a := range args {
			v, t, err := fg.genExpr(a, false, scope)
			if err != nil {
				ok = false
				break
			}
			argVals[i], argTypes[i] = v, t
		}
		if !ok {
			fg.b.Restore(snap)
			continue
		}

		cat, solved := unifyPolyFunc(tmpl, argTypes, args)
		if !solved {
			fg.b.Restore(snap)
			continue
		}

		candidate, ierr := fg.instantiatePolyFunc(tmpl, cat)
		if ierr != nil {
			return ir.IrValue{}, nil, true, ierr
		}

		conformed := make([]ir.IrValue, len(argVals))
		allConform := true
		for i, v := range argVals {
			cv, ok := typeresolve.Conform(v, candidate.ArgTypes[i], typeresolve.ModeCallArgumentsLoose, fg.b, nil)
			if !ok {
				allConform = false
				break
			}
			conformed[i] = cv
		}
		if !allConform {
			fg.b.Restore(snap)
			continue
		}

		v, cerr := fg.emitCall(candidate, conformed, loc, discard)
		if cerr != nil {
			return ir.IrValue{}, nil, true, cerr
		}
		return v, returnAstType(candidate.Func), true, nil
	}
	return ir.IrValue{}, nil, false, nil
}

// unifyPolyFunc solves a polymorph catalog for tmpl against a call site's
// actual argument AST types, spec.md §4.8. argExprs is consulted only for
// pure count parameters (`$#N` used directly as a parameter type rather
// than nested in a fixed-array length), which bind from the literal value
// passed, not from its type. Returns ok=false — never an error — when the
// shapes simply don't line up, so the caller keeps searching other
// templates/overloads; an incomplete catalog after every parameter is
// walked is also just a non-match, since spec.md has no notion of
// defaulted type-parameters.
func unifyPolyFunc(tmpl *ast.Func, argTypes []ast.Type, argExprs []ast.Expr) (*typeresolve.Catalog, bool) {
	if len(tmpl.Args) != len(argExprs) || len(tmpl.Args) != len(argTypes) {
		return nil, false
	}
	cat := &typeresolve.Catalog{Types: map[string]ast.Type{}, Counts: map[string]uint64{}}
	for i, p := range tmpl.Args {
		if pc, isCount := p.Type.(*ast.PolyCountType); isCount {
			lit, ok := argExprs[i].(*ast.IntLiteralExpr)
			if !ok || lit.Value < 0 {
				return nil, false
			}
			n := uint64(lit.Value)
			if bound, ok := cat.Counts[pc.Name]; ok && bound != n {
				return nil, false
			}
			cat.Counts[pc.Name] = n
			continue
		}
		if !unifyParam(p.Type, argTypes[i], cat) {
			return nil, false
		}
	}
	for _, tp := range tmpl.PolyTypeParams {
		if _, ok := cat.Types[tp]; !ok {
			return nil, false
		}
	}
	for _, cp := range tmpl.PolyCountParams {
		if _, ok := cat.Counts[cp]; !ok {
			return nil, false
		}
	}
	return cat, true
}

// unifyParam structurally matches a declared (possibly polymorphic)
// parameter type against the type an argument actually produced,
// threading bindings into cat. A non-polymorphic leaf (BaseType,
// AnonLayoutType, an already-bound GenericType, ...) never fails
// unification on its own — genPolyCall's subsequent Conform call
// is what rejects a genuinely incompatible concrete argument.
func unifyParam(paramType, argType ast.Type, cat *typeresolve.Catalog) bool {
	switch pt := paramType.(type) {
	case *ast.PolyType:
		if bound, ok := cat.Types[pt.Name]; ok {
			return sameAstType(bound, argType)
		}
		cat.Types[pt.Name] = argType
		return true

	case *ast.PointerType:
		at, ok := argType.(*ast.PointerType)
		return ok && unifyParam(pt.Of, at.Of, cat)

	case *ast.FixedArrayType:
		at, ok := argType.(*ast.FixedArrayType)
		if !ok {
			return false
		}
		if pt.LengthParam != "" {
			if bound, ok := cat.Counts[pt.LengthParam]; ok && bound != at.Length {
				return false
			}
			cat.Counts[pt.LengthParam] = at.Length
		} else if pt.Length != at.Length {
			return false
		}
		return unifyParam(pt.Of, at.Of, cat)

	case *ast.FuncPtrType:
		at, ok := argType.(*ast.FuncPtrType)
		if !ok || len(pt.Args) != len(at.Args) {
			return false
		}
		for i := range pt.Args {
			if !unifyParam(pt.Args[i], at.Args[i], cat) {
				return false
			}
		}
		return unifyParam(pt.Return, at.Return, cat)

	case *ast.GenericType:
		at, ok := argType.(*ast.GenericType)
		if !ok || pt.Name != at.Name || len(pt.Args) != len(at.Args) {
			return false
		}
		for i := range pt.Args {
			if !unifyParam(pt.Args[i], at.Args[i], cat) {
				return false
			}
		}
		return true

	default:
		return true
	}
}

func sameAstType(a, b ast.Type) bool {
	switch av := a.(type) {
	case *ast.BaseType:
		bv, ok := b.(*ast.BaseType)
		return ok && av.Name == bv.Name
	case *ast.PointerType:
		bv, ok := b.(*ast.PointerType)
		return ok && sameAstType(av.Of, bv.Of)
	case *ast.FixedArrayType:
		bv, ok := b.(*ast.FixedArrayType)
		return ok && av.Length == bv.Length && sameAstType(av.Of, bv.Of)
	case *ast.GenericType:
		bv, ok := b.(*ast.GenericType)
		if !ok || av.Name != bv.Name || len(av.Args) != len(bv.Args) {
			return false
		}
		for i := range av.Args {
			if !sameAstType(av.Args[i], bv.Args[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// instantiatePolyFunc implements instantiate_poly_func (spec.md §4.8):
// clone tmpl, rewrite every polymorph reference in its argument types,
// return type, and body under cat, append the concrete clone to the AST
// with a fresh id, and hand it to funcHead the same way any other
// declared function is turned into an IR skeleton and job.
func (g *Generator) instantiatePolyFunc(tmpl *ast.Func, cat *typeresolve.Catalog) (FuncCandidate, *diag.Error) {
	clone := &ast.Func{
		Name:             tmpl.Name,
		Traits:           tmpl.Traits &^ ast.TraitPolymorphic,
		ReturnType:       typeresolve.ResolveTypePolymorphics(tmpl.ReturnType, cat),
		Arity:            tmpl.Arity,
		ExportAs:         tmpl.ExportAs,
		Filename:         tmpl.Filename,
		DefinitionString: tmpl.DefinitionString,
		Line:             tmpl.Line,
		Column:           tmpl.Column,
	}
	clone.Args = make([]ast.Param, len(tmpl.Args))
	for i, p := range tmpl.Args {
		clone.Args[i] = ast.Param{
			Name:    p.Name,
			Type:    typeresolve.ResolveTypePolymorphics(p.Type, cat),
			Default: cloneExpr(p.Default, cat),
			POD:     p.POD,
		}
	}
	clone.Body = cloneStmts(tmpl.Body, cat)

	clone.ID = ast.FuncID(len(g.ast.Funcs))
	g.ast.Funcs = append(g.ast.Funcs, clone)

	diag.Log.WithField("func", clone.Name).Debug("instantiating polymorphic function")
	return g.funcHead(clone)
}
