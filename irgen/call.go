package irgen

import (
	"github.com/arc-language/core-irgen/ast"
	"github.com/arc-language/core-irgen/diag"
	"github.com/arc-language/core-irgen/ir"
	"github.com/arc-language/core-irgen/typeresolve"
)

// genCall implements spec.md §4.6 "Call": resolution order is (1) a local
// variable of function-pointer type, (2) the overload set of functions
// with that name, (3) a global function-pointer variable. discard is true
// when the call is lowered as a bare statement, so its result is about to
// be thrown away — the only context TraitNoDiscard can fire in.
func (fg *funcGen) genCall(e *ast.CallExpr, scope *ir.Scope, discard bool) (ir.IrValue, ast.Type, *diag.Error) {
	if v, ok := scope.Lookup(e.Name); ok {
		if _, isFP := v.IrType.(ir.FuncPtrType); isFP {
			return fg.callFunctionValue(fg.loadVar(v), e.Args, scope, e.Tentative)
		}
	}

	if candidates, ok := fg.overloadSet(e.Name); ok {
		chosen, argVals, err := fg.findFuncConforming(candidates, e.Args, scope, typeresolve.ModeCallArgumentsLoose)
		if err == nil {
			v, cerr := fg.emitCall(chosen, argVals, e.Loc(), discard)
			if cerr != nil {
				return ir.IrValue{}, nil, cerr
			}
			return v, returnAstType(chosen.Func), nil
		}
		if v, t, matched, perr := fg.genPolyCall(e.Name, e.Args, scope, e.Loc(), discard); matched || perr != nil {
			return v, t, perr
		}
		if e.Tentative {
			return voidNoOp(), &ast.BaseType{Name: "void"}, nil
		}
		return ir.IrValue{}, nil, diag.New(e.Loc(), "no overload of %q matches the given arguments", e.Name)
	}

	if v, t, matched, perr := fg.genPolyCall(e.Name, e.Args, scope, e.Loc(), discard); matched || perr != nil {
		return v, t, perr
	}

	for i := range fg.Module.Globals {
		if fg.Module.Globals[i].Name == e.Name {
			if fp, ok := fg.Module.Globals[i].Type.(ir.FuncPtrType); ok {
				gv := ir.IrValue{Type: ir.PtrType{Of: fp}, Data: ir.ConstAnonGlobal{ID: i}}
				return fg.callFunctionValue(fg.b.BuildLoad(gv, ir.SrcLoc{}), e.Args, scope, e.Tentative)
			}
		}
	}

	if e.Tentative {
		return voidNoOp(), &ast.BaseType{Name: "void"}, nil
	}
	diagErr := diag.New(e.Loc(), "undefined function %q", e.Name)
	if near, ok := fg.TypeMap.NearestName(e.Name); ok {
		diagErr = diagErr.WithCandidates([]string{near})
	}
	return ir.IrValue{}, nil, diagErr
}

func returnAstType(f *ast.Func) ast.Type {
	if f == nil {
		return &ast.BaseType{Name: "void"}
	}
	return f.ReturnType
}

func voidNoOp() ir.IrValue {
	return ir.IrValue{Type: ir.Void}
}

// callFunctionValue lowers a call through a function-pointer value (local
// variable or global), spec.md §4.6.
func (fg *funcGen) callFunctionValue(fptr ir.IrValue, args []ast.Expr, scope *ir.Scope, tentative bool) (ir.IrValue, ast.Type, *diag.Error) {
	fpType, ok := fptr.Type.(ir.FuncPtrType)
	if !ok {
		if fp, isPtr := fptr.Type.(ir.PtrType); isPtr {
			fpType, ok = fp.Of.(ir.FuncPtrType)
		}
	}
	if !ok {
		if tentative {
			return voidNoOp(), &ast.BaseType{Name: "void"}, nil
		}
		return ir.IrValue{}, nil, diag.New(ast.NoLocation, "called value is not a function pointer")
	}
	argVals := make([]ir.IrValue, 0, len(args))
	for i, a := range args {
		v, _, err := fg.genExpr(a, false, scope)
		if err != nil {
			return ir.IrValue{}, nil, err
		}
		if i < len(fpType.Args) {
			cv, ok := typeresolve.Conform(v, fpType.Args[i], typeresolve.ModeCallArgumentsLoose, fg.b, nil)
			if !ok {
				return ir.IrValue{}, nil, diag.New(a.Loc(), "argument %d does not conform to parameter type %s", i, ir.TypeString(fpType.Args[i]))
			}
			v = cv
		}
		argVals = append(argVals, v)
	}
	result := fg.b.BuildCallAddress(fptr, fpType.Return, argVals)
	return result, irTypeAsAst(fpType.Return), nil
}

// irTypeAsAst is a lossy best-effort reconstruction used only where the
// statically-known AST type isn't otherwise available (calls through a
// function pointer have no AST Func to consult for the real return
// type). Good enough for conforming checks upstream, which compare
// against the already-resolved ir.IrType, not this placeholder.
func irTypeAsAst(_ ir.IrType) ast.Type {
	return &ast.BaseType{Name: "void"}
}

// findFuncConforming tests each candidate by conforming each argument
// under mode (spec.md §4.6); selection ties resolve to the first match in
// the sorted mapping.
func (fg *funcGen) findFuncConforming(candidates []FuncCandidate, args []ast.Expr, scope *ir.Scope, mode typeresolve.Mode) (FuncCandidate, []ir.IrValue, *diag.Error) {
	for _, c := range candidates {
		if !c.Variadic && len(args) != len(c.ArgTypes) {
			continue
		}
		if c.Variadic && len(args) < len(c.ArgTypes) {
			continue
		}
		snap := fg.b.Snapshot()
		argVals := make([]ir.IrValue, 0, len(args))
		ok := true
		for i, a := range args {
			v, _, err := fg.genExpr(a, false, scope)
			if err != nil {
				ok = false
				break
			}
			if i < len(c.ArgTypes) {
				cv, conformed := typeresolve.Conform(v, c.ArgTypes[i], mode, fg.b, nil)
				if !conformed {
					ok = false
					break
				}
				v = cv
			}
			argVals = append(argVals, v)
		}
		if !ok {
			fg.b.Restore(snap)
			continue
		}
		return c, argVals, nil
	}
	return FuncCandidate{}, nil, diag.New(ast.NoLocation, "no candidate conforms")
}

// emitCall enforces spec.md §4.6's "After a candidate is chosen:" sequence
// against a resolved FuncCandidate — DISALLOW/NO_DISCARD policy checks,
// then __pass__ on each non-POD argument value — before building the Call
// instruction itself.
func (fg *funcGen) emitCall(c FuncCandidate, args []ir.IrValue, loc ast.Location, discard bool) (ir.IrValue, *diag.Error) {
	if c.Func != nil {
		if c.Func.Traits.Has(ast.TraitDisallow) {
			return ir.IrValue{}, diag.New(loc, "call to %q is not allowed", c.Func.Name)
		}
		if discard && c.Func.Traits.Has(ast.TraitNoDiscard) {
			return ir.IrValue{}, diag.New(loc, "result of call to %q must not be discarded", c.Func.Name)
		}
	}
	args = fg.applyPass(args)
	retType := fg.Module.Func(c.IrFuncID).Return
	return fg.b.BuildCall(c.IrFuncID, retType, args), nil
}

// applyPass runs __pass__ (spec.md §4.4) on every argument whose value
// type is a non-POD struct/union passed by value, storing each result
// back into the argument slot (spec.md §4.4 "its result is stored back
// into the argument slot").
func (fg *funcGen) applyPass(args []ir.IrValue) []ir.IrValue {
	for i, v := range args {
		typeName, ok := structValueTypeName(v.Type)
		if !ok {
			continue
		}
		fp, ok := fg.resolveMgmt(typeName, ir.MgmtPass)
		if !ok {
			continue
		}
		args[i] = fg.b.BuildCall(fp.IrFuncID, v.Type, []ir.IrValue{v})
	}
	return args
}

// structValueTypeName returns the composite name of t when t is a
// struct/union held by value (not a pointer) — the only shape __pass__
// and __assign__ autogen apply to (spec.md §4.4).
func structValueTypeName(t ir.IrType) (string, bool) {
	switch v := t.(type) {
	case ir.StructureType:
		return v.Name, true
	case ir.UnionType:
		return v.Name, true
	}
	return "", false
}

// genMethodCall implements spec.md §4.6 "Method call": materialize the
// subject into a `*T` (allocating a stack slot if it's a plain value),
// resolve against the struct's method set, and — unless AllowDrop is set
// — __defer__ a temporary mutable subject after the call (spec.md §9 open
// question #1, carried through unchanged).
func (fg *funcGen) genMethodCall(e *ast.MethodCallExpr, scope *ir.Scope, discard bool) (ir.IrValue, ast.Type, *diag.Error) {
	subjectVal, _, err := fg.genExpr(e.Subject, true, scope)
	if err != nil {
		return ir.IrValue{}, nil, err
	}

	var subjectPtr ir.IrValue
	temporary := false
	if _, isPtr := subjectVal.Type.(ir.PtrType); isPtr {
		subjectPtr = subjectVal
	} else {
		slot := fg.b.BuildAlloc(subjectVal.Type)
		fg.b.BuildStore(subjectVal, slot, ir.SrcLoc{})
		subjectPtr = slot
		temporary = true
	}

	typeName := structNameOf(subjectPtr.Type)
	candidates, ok := fg.overloadSet(typeName + "." + e.Name)
	if !ok {
		return ir.IrValue{}, nil, diag.New(e.Loc(), "type %q has no method %q", typeName, e.Name)
	}
	chosen, argVals, ferr := fg.findMethodConforming(candidates, subjectPtr, e.Args, scope)
	if ferr != nil {
		return ir.IrValue{}, nil, ferr
	}
	result, cerr := fg.emitCall(chosen, argVals, e.Loc(), discard)
	if cerr != nil {
		return ir.IrValue{}, nil, cerr
	}

	if temporary && !e.AllowDrop {
		if fp, ok := fg.resolveMgmt(typeName, ir.MgmtDefer); ok {
			fg.b.BuildCall(fp.IrFuncID, ir.Void, []ir.IrValue{subjectPtr})
		}
	}
	return result, returnAstType(chosen.Func), nil
}

func (fg *funcGen) findMethodConforming(candidates []FuncCandidate, subject ir.IrValue, args []ast.Expr, scope *ir.Scope) (FuncCandidate, []ir.IrValue, *diag.Error) {
	for _, c := range candidates {
		if len(args)+1 != len(c.ArgTypes) && !c.Variadic {
			continue
		}
		snap := fg.b.Snapshot()
		argVals := []ir.IrValue{subject}
		ok := true
		for i, a := range args {
			v, _, err := fg.genExpr(a, false, scope)
			if err != nil {
				ok = false
				break
			}
			if i+1 < len(c.ArgTypes) {
				cv, conformed := typeresolve.Conform(v, c.ArgTypes[i+1], typeresolve.ModeCallArgumentsLoose, fg.b, nil)
				if !conformed {
					ok = false
					break
				}
				v = cv
			}
			argVals = append(argVals, v)
		}
		if !ok {
			fg.b.Restore(snap)
			continue
		}
		return c, argVals, nil
	}
	return FuncCandidate{}, nil, diag.New(ast.NoLocation, "no method overload conforms")
}

func structNameOf(t ir.IrType) string {
	if p, ok := t.(ir.PtrType); ok {
		switch v := p.Of.(type) {
		case ir.StructureType:
			return v.Name
		case ir.UnionType:
			return v.Name
		}
	}
	return ""
}
