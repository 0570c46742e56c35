package irgen

import (
	"fmt"
	"strings"

	"github.com/arc-language/core-irgen/ast"
	"github.com/arc-language/core-irgen/builder"
	"github.com/arc-language/core-irgen/diag"
	"github.com/arc-language/core-irgen/ir"
	"github.com/arc-language/core-irgen/typeresolve"
)

// funcGen is the per-function-body lowering state: the active builder
// cursor, the function id currently being filled in, a naming context for
// mangled/anonymous names, and the table mapping each declared variable's
// id to the stack slot BuildAlloc returned for it (Scope/BridgeVar are
// builder-agnostic, so the slot pointer lives here instead).
type funcGen struct {
	*Generator
	b        *builder.Builder
	irFuncID int
	nc       *NameContext
	allocs   map[int]ir.IrValue
}

// declareVar allocates storage for a new variable, registers it in scope,
// and remembers its slot for later loads/stores.
func (fg *funcGen) declareVar(scope *ir.Scope, name string, astType ast.Type, irType ir.IrType, traits ir.VarTraits) (int, ir.IrValue) {
	id := scope.FollowingVarID
	slot := fg.b.BuildAlloc(irType)
	scope.Declare(ir.BridgeVar{Name: name, AstType: astType, IrType: irType, StackID: id, Traits: traits})
	fg.allocs[id] = slot
	return id, slot
}

// slotOf returns the stack slot for an already-declared variable.
func (fg *funcGen) slotOf(v ir.BridgeVar) ir.IrValue {
	if v.Traits.Has(ir.VarStatic) {
		return ir.IrValue{Type: ir.PtrType{Of: v.IrType}, Data: ir.ConstAnonGlobal{ID: v.StaticID}}
	}
	slot, ok := fg.allocs[v.StackID]
	if !ok {
		diag.Internal("irgen: no stack slot recorded for variable %q", v.Name)
	}
	return slot
}

// loadVar loads a variable's current value, auto-dereferencing
// VarReference variables (each-in's `it`, by-ref parameters) one extra
// time since their own storage already holds a pointer.
func (fg *funcGen) loadVar(v ir.BridgeVar) ir.IrValue {
	slot := fg.slotOf(v)
	loaded := fg.b.BuildLoad(slot, ir.SrcLoc{})
	if v.Traits.Has(ir.VarReference) {
		return fg.b.BuildLoad(loaded, ir.SrcLoc{})
	}
	return loaded
}

// genStmts lowers a statement list under scope, returning whether control
// fell off the end in a terminated state (a Return/Break/Continue/
// Unreachable already closed the current block), mirroring
// gen_stmts_in_scope's early-exit-on-terminated contract.
func (fg *funcGen) genStmts(stmts []ast.Stmt, scope *ir.Scope) (bool, *diag.Error) {
	for _, s := range stmts {
		terminated, err := fg.genStmt(s, scope)
		if err != nil {
			return false, err
		}
		if terminated {
			return true, nil
		}
	}
	return false, nil
}

func (fg *funcGen) genStmt(s ast.Stmt, scope *ir.Scope) (bool, *diag.Error) {
	switch st := s.(type) {
	case *ast.ReturnStmt:
		return fg.genReturn(st, scope)
	case *ast.DeclareStmt:
		return false, fg.genDeclare(st, scope)
	case *ast.AssignStmt:
		return false, fg.genAssign(st, scope)
	case *ast.CompoundAssignStmt:
		return false, fg.genCompoundAssign(st, scope)
	case *ast.IfStmt:
		return fg.genIf(st, scope)
	case *ast.IfElseStmt:
		return fg.genIfElse(st, scope)
	case *ast.WhileStmt:
		return false, fg.genWhile(st, scope, false)
	case *ast.WhileContinueStmt:
		return false, fg.genWhileContinue(st, scope)
	case *ast.UntilBreakStmt:
		return false, fg.genUntilBreak(st, scope)
	case *ast.EachInStmt:
		return false, fg.genEachIn(st, scope)
	case *ast.RepeatStmt:
		return false, fg.genRepeat(st, scope)
	case *ast.SwitchStmt:
		return fg.genSwitch(st, scope)
	case *ast.BreakStmt:
		return fg.genBreak(st, scope)
	case *ast.ContinueStmt:
		return fg.genContinue(st, scope)
	case *ast.FallthroughStmt:
		return fg.genFallthrough(scope)
	case *ast.DeleteStmt:
		return false, fg.genDelete(st, scope)
	case *ast.ForStmt:
		return false, fg.genFor(st, scope)
	case *ast.VaStartStmt:
		return false, fg.genVaStart(st, scope)
	case *ast.VaEndStmt:
		return false, fg.genVaEnd(st, scope)
	case *ast.VaCopyStmt:
		return false, fg.genVaCopy(st, scope)
	case *ast.AsmStmt:
		return false, fg.genAsm(st)
	case *ast.ConditionlessBlockStmt:
		return fg.genConditionlessBlock(st, scope)
	case *ast.ExprStmt:
		// A call lowered directly as a statement discards its result, the
		// only context TraitNoDiscard can fire in (spec.md §4.6).
		switch callEx := st.Value.(type) {
		case *ast.CallExpr:
			_, _, err := fg.genCall(callEx, scope, true)
			return false, err
		case *ast.MethodCallExpr:
			_, _, err := fg.genMethodCall(callEx, scope, true)
			return false, err
		}
		_, _, err := fg.genExpr(st.Value, true, scope)
		return false, err
	default:
		diag.Internal("irgen: unhandled statement kind %T", s)
		return false, nil
	}
}

// emitScopeDefers calls __defer__ on every non-POD, non-reference variable
// scope owns, reverse-declaration order, the scope-exit sequence every
// return/break/continue/fallthrough path performs (spec.md §4.7 "Scope
// defer sequence").
func (fg *funcGen) emitScopeDefers(scope *ir.Scope) {
	for _, v := range scope.DeferTargets() {
		typeName := structNameOf(ir.PtrType{Of: v.IrType})
		if typeName == "" {
			continue
		}
		if fp, ok := fg.resolveMgmt(typeName, ir.MgmtDefer); ok {
			fg.b.BuildCall(fp.IrFuncID, ir.Void, []ir.IrValue{fg.slotOf(v)})
		}
	}
}

// emitDefersUpTo runs emitScopeDefers for every scope from `from` up to and
// including `to`, the multi-scope unwind a labeled break/continue/return
// triggers (spec.md §9 "Scopes as a tree, not a stack").
func (fg *funcGen) emitDefersUpTo(from, to *ir.Scope) {
	chain := from.AncestorChain(to)
	for _, s := range chain {
		fg.emitScopeDefers(s)
	}
}

func (fg *funcGen) genReturn(st *ast.ReturnStmt, scope *ir.Scope) (bool, *diag.Error) {
	var val ir.IrValue
	hasValue := st.Value != nil
	if hasValue {
		v, retAst, err := fg.genExpr(st.Value, false, scope)
		if err != nil {
			return false, err
		}
		retType, rerr := typeresolve.ResolveType(retAst, fg.TypeMap, fg.Generator, nil)
		if rerr == nil {
			if cv, ok := typeresolve.Conform(v, retType, typeresolve.ModeAssigning, fg.b, nil); ok {
				v = cv
			}
		}
		val = v
	}
	fg.emitDefersUpTo(scope, nil)
	if fg.Module.Func(fg.irFuncID).Name == "main" {
		fg.b.BuildDeinitSvars()
	}
	fg.b.BuildReturn(val, hasValue)
	return true, nil
}

func (fg *funcGen) genDeclare(st *ast.DeclareStmt, scope *ir.Scope) *diag.Error {
	irType, err := typeresolve.ResolveType(st.Type, fg.TypeMap, fg.Generator, nil)
	if err != nil {
		return err
	}
	_, slot := fg.declareVar(scope, st.Name, st.Type, irType, varTraitsFor(st.POD))
	switch {
	case st.Undef && !fg.Opts.Traits.NoUndef:
		// Left uninitialized deliberately (DeclareUndef).
	case st.Value != nil:
		v, _, verr := fg.genExpr(st.Value, false, scope)
		if verr != nil {
			return verr
		}
		if cv, ok := typeresolve.Conform(v, irType, typeresolve.ModeAssigning, fg.b, nil); ok {
			v = cv
		}
		fg.b.BuildStore(v, slot, ir.SrcLoc{})
	case st.CtorArgs != nil:
		typeName := structNameOf(ir.PtrType{Of: irType})
		if typeName != "" {
			if candidates, ok := fg.overloadSet(typeName + "." + typeName); ok {
				chosen, argVals, cerr := fg.findMethodConforming(candidates, slot, st.CtorArgs, scope)
				if cerr == nil {
					fg.emitCall(chosen, argVals, st.Loc(), true)
					break
				}
			}
		}
		fg.b.BuildZeroinit(slot)
	default:
		fg.b.BuildZeroinit(slot)
	}
	return nil
}

func (fg *funcGen) genAssign(st *ast.AssignStmt, scope *ir.Scope) *diag.Error {
	destPtr, destAstType, derr := fg.genExpr(st.Dest, true, scope)
	if derr != nil {
		return derr
	}
	v, _, verr := fg.genExpr(st.Value, false, scope)
	if verr != nil {
		return verr
	}
	pt, ok := destPtr.Type.(ir.PtrType)
	if !ok {
		return diag.New(st.Loc(), "assignment target is not addressable")
	}
	if cv, ok := typeresolve.Conform(v, pt.Of, typeresolve.ModeAssigning, fg.b, nil); ok {
		v = cv
	}
	if !st.POD {
		typeName := structNameOf(destPtr.Type)
		if typeName != "" {
			if fp, ok := fg.resolveMgmt(typeName, ir.MgmtAssign); ok {
				fg.b.BuildCall(fp.IrFuncID, ir.Void, []ir.IrValue{destPtr, v})
				_ = destAstType
				return nil
			}
		}
	}
	fg.b.BuildStore(v, destPtr, ir.SrcLoc{})
	return nil
}

func (fg *funcGen) genCompoundAssign(st *ast.CompoundAssignStmt, scope *ir.Scope) *diag.Error {
	destPtr, _, derr := fg.genExpr(st.Dest, true, scope)
	if derr != nil {
		return derr
	}
	pt, ok := destPtr.Type.(ir.PtrType)
	if !ok {
		return diag.New(st.Loc(), "compound assignment target is not addressable")
	}
	cur := fg.b.BuildLoad(destPtr, ir.SrcLoc{})
	rhs, _, rerr := fg.genExpr(st.Value, false, scope)
	if rerr != nil {
		return rerr
	}
	result, berr := fg.genBinaryOp(st.Op, cur, rhs, st.Loc())
	if berr != nil {
		return berr
	}
	if cv, ok := typeresolve.Conform(result, pt.Of, typeresolve.ModeAssigning, fg.b, nil); ok {
		result = cv
	}
	fg.b.BuildStore(result, destPtr, ir.SrcLoc{})
	return nil
}

// genCondBody lowers cond and branches to thenBB/elseBB.
func (fg *funcGen) genCondBody(cond ast.Expr, scope *ir.Scope, thenBB, elseBB int) *diag.Error {
	v, _, err := fg.genExpr(cond, false, scope)
	if err != nil {
		return err
	}
	fg.b.BuildCondBreak(v, thenBB, elseBB)
	return nil
}

func (fg *funcGen) genIf(st *ast.IfStmt, scope *ir.Scope) (bool, *diag.Error) {
	thenBB := fg.b.BuildBlock()
	afterBB := fg.b.BuildBlock()
	trueBB, falseBB := thenBB, afterBB
	if st.Unless {
		trueBB, falseBB = afterBB, thenBB
	}
	if err := fg.genCondBody(st.Cond, scope, trueBB, falseBB); err != nil {
		return false, err
	}
	fg.b.UseBlock(thenBB)
	bodyScope := scope.Child()
	terminated, err := fg.genStmts(st.Body, bodyScope)
	if err != nil {
		return false, err
	}
	if !terminated {
		fg.emitScopeDefers(bodyScope)
		fg.b.BuildBreak(afterBB)
	}
	fg.b.UseBlock(afterBB)
	return false, nil
}

func (fg *funcGen) genIfElse(st *ast.IfElseStmt, scope *ir.Scope) (bool, *diag.Error) {
	thenBB := fg.b.BuildBlock()
	elseBB := fg.b.BuildBlock()
	afterBB := fg.b.BuildBlock()
	trueBB, falseBB := thenBB, elseBB
	if st.Unless {
		trueBB, falseBB = elseBB, thenBB
	}
	if err := fg.genCondBody(st.Cond, scope, trueBB, falseBB); err != nil {
		return false, err
	}

	fg.b.UseBlock(thenBB)
	thenScope := scope.Child()
	thenTerm, err := fg.genStmts(st.Then, thenScope)
	if err != nil {
		return false, err
	}
	if !thenTerm {
		fg.emitScopeDefers(thenScope)
		fg.b.BuildBreak(afterBB)
	}

	fg.b.UseBlock(elseBB)
	elseScope := scope.Child()
	elseTerm, err := fg.genStmts(st.Else, elseScope)
	if err != nil {
		return false, err
	}
	if !elseTerm {
		fg.emitScopeDefers(elseScope)
		fg.b.BuildBreak(afterBB)
	}

	fg.b.UseBlock(afterBB)
	return thenTerm && elseTerm, nil
}

// genLoopBody runs body under a fresh loop context, wiring break/continue
// to headBB/afterBB (spec.md §4.7 "Loop lowering").
func (fg *funcGen) genLoopBody(label string, body []ast.Stmt, scope *ir.Scope, headBB, afterBB int) *diag.Error {
	bodyScope := scope.Child()
	fg.b.PushLoop(label, builder.LoopContext{BreakBlockID: afterBB, ContinueBlockID: headBB, Scope: bodyScope})
	defer fg.b.PopLoop()
	terminated, err := fg.genStmts(body, bodyScope)
	if err != nil {
		return err
	}
	if !terminated {
		fg.emitScopeDefers(bodyScope)
		fg.b.BuildBreak(headBB)
	}
	return nil
}

func (fg *funcGen) genWhile(st *ast.WhileStmt, scope *ir.Scope, _ bool) *diag.Error {
	headBB := fg.b.BuildBlock()
	bodyBB := fg.b.BuildBlock()
	afterBB := fg.b.BuildBlock()
	fg.b.BuildBreak(headBB)
	fg.b.UseBlock(headBB)
	trueBB, falseBB := bodyBB, afterBB
	if st.Until {
		trueBB, falseBB = afterBB, bodyBB
	}
	if err := fg.genCondBody(st.Cond, scope, trueBB, falseBB); err != nil {
		return err
	}
	fg.b.UseBlock(bodyBB)
	if err := fg.genLoopBody(st.Label, st.Body, scope, headBB, afterBB); err != nil {
		return err
	}
	fg.b.UseBlock(afterBB)
	return nil
}

// genWhileContinue is `while` whose condition defaults to "keep looping"
// the first time it cannot be evaluated eagerly — modeled identically to
// WhileStmt since both already branch on Cond every iteration including
// the first.
func (fg *funcGen) genWhileContinue(st *ast.WhileContinueStmt, scope *ir.Scope) *diag.Error {
	return fg.genWhile(&ast.WhileStmt{Cond: st.Cond, Body: st.Body, Label: st.Label}, scope, false)
}

func (fg *funcGen) genUntilBreak(st *ast.UntilBreakStmt, scope *ir.Scope) *diag.Error {
	return fg.genWhile(&ast.WhileStmt{Cond: st.Cond, Body: st.Body, Label: st.Label, Until: true}, scope, false)
}

func (fg *funcGen) genRepeat(st *ast.RepeatStmt, scope *ir.Scope) *diag.Error {
	limit, _, err := fg.genExpr(st.Limit, false, scope)
	if err != nil {
		return err
	}
	bodyScope := scope.Child()
	idxID, idxSlot := fg.declareVar(bodyScope, st.IdxName, &ast.BaseType{Name: "usize"}, fg.Module.Common.Usize, 0)
	fg.b.BuildStore(ir.IntLiteral(fg.Module.Common.Usize, 0), idxSlot, ir.SrcLoc{})
	_ = idxID

	headBB := fg.b.BuildBlock()
	bodyBB := fg.b.BuildBlock()
	afterBB := fg.b.BuildBlock()
	fg.b.BuildBreak(headBB)
	fg.b.UseBlock(headBB)
	cur := fg.b.BuildLoad(idxSlot, ir.SrcLoc{})
	cond := fg.b.BuildMath(ir.OpULt, cur, limit, ir.Bool)
	fg.b.BuildCondBreak(cond, bodyBB, afterBB)

	fg.b.UseBlock(bodyBB)
	fg.b.PushLoop(st.Label, builder.LoopContext{BreakBlockID: afterBB, ContinueBlockID: headBB, Scope: bodyScope})
	innerScope := bodyScope.Child()
	terminated, serr := fg.genStmts(st.Body, innerScope)
	if serr != nil {
		fg.b.PopLoop()
		return serr
	}
	if !terminated {
		fg.emitScopeDefers(innerScope)
		next := fg.b.BuildMath(ir.OpAdd, fg.b.BuildLoad(idxSlot, ir.SrcLoc{}), ir.IntLiteral(fg.Module.Common.Usize, 1), fg.Module.Common.Usize)
		fg.b.BuildStore(next, idxSlot, ir.SrcLoc{})
		fg.b.BuildBreak(headBB)
	}
	fg.b.PopLoop()
	fg.b.UseBlock(afterBB)
	return nil
}

// genEachIn lowers iteration over a fixed array, raw pointer+length, or an
// aggregate exposing __length__/__array__ (spec.md §4.7 "Each-in"). Unless
// --static, the list/length subexpressions are re-evaluated on every
// iteration, mirroring ir_gen_stmt_each's prep-block placement; a
// non-mutable list subject (one not reached through a plain variable,
// field, or array element) is __defer__-ed after each use and once more
// at loop exit, since the next iteration (or the caller, at exit) never
// gets another chance to see that particular temporary again.
func (fg *funcGen) genEachIn(st *ast.EachInStmt, scope *ir.Scope) *diag.Error {
	bodyScope := scope.Child()
	_, idxPtr := fg.declareVar(bodyScope, "", nil, fg.Module.Common.Usize, ir.VarPOD)
	fg.b.BuildStore(ir.IntLiteral(fg.Module.Common.Usize, 0), idxPtr, ir.SrcLoc{})
	var visibleIdxPtr ir.IrValue
	if st.IdxName != "" {
		_, visibleIdxPtr = fg.declareVar(bodyScope, st.IdxName, &ast.BaseType{Name: "usize"}, fg.Module.Common.Usize, ir.VarPOD)
		fg.b.BuildStore(ir.IntLiteral(fg.Module.Common.Usize, 0), visibleIdxPtr, ir.SrcLoc{})
	}

	listSubject := st.Length == nil
	listMutable := listSubject && isLvalueExpr(st.Subject)

	var length, base, subjectPtr ir.IrValue
	var elemType ir.IrType
	evalSubject := func() *diag.Error {
		var serr *diag.Error
		length, base, elemType, subjectPtr, serr = fg.genEachInSubject(st, scope, listSubject)
		return serr
	}

	if st.Static {
		if err := evalSubject(); err != nil {
			return err
		}
	}

	prepBB := fg.b.BuildBlock()
	fg.b.BuildBreak(prepBB)
	fg.b.UseBlock(prepBB)

	if !st.Static {
		if err := evalSubject(); err != nil {
			return err
		}
	}

	idxVal := fg.b.BuildLoad(idxPtr, ir.SrcLoc{})
	cond := fg.b.BuildMath(ir.OpULt, idxVal, length, ir.Bool)
	newBB := fg.b.BuildBlock()
	incBB := fg.b.BuildBlock()
	endBB := fg.b.BuildBlock()
	fg.b.BuildCondBreak(cond, newBB, endBB)

	fg.b.UseBlock(newBB)
	traits := ir.VarReference
	if st.Static {
		traits |= ir.VarPOD
	}
	_, itSlot := fg.declareVar(bodyScope, st.ItName, nil, ir.PtrType{Of: elemType}, traits)
	elemPtr := fg.b.BuildArrayAccess(base, fg.b.BuildLoad(idxPtr, ir.SrcLoc{}), elemType, ir.SrcLoc{})
	fg.b.BuildStore(elemPtr, itSlot, ir.SrcLoc{})
	if st.IdxName != "" {
		fg.b.BuildStore(fg.b.BuildLoad(idxPtr, ir.SrcLoc{}), visibleIdxPtr, ir.SrcLoc{})
	}

	fg.b.PushLoop(st.Label, builder.LoopContext{BreakBlockID: endBB, ContinueBlockID: incBB, Scope: bodyScope})
	innerScope := bodyScope.Child()
	terminated, terr := fg.genStmts(st.Body, innerScope)
	if terr != nil {
		fg.b.PopLoop()
		return terr
	}
	if !terminated {
		fg.emitScopeDefers(innerScope)
		fg.b.BuildBreak(incBB)
	}
	fg.b.PopLoop()

	fg.b.UseBlock(incBB)
	if listSubject && !listMutable && !st.Static {
		fg.deferListValue(subjectPtr)
	}
	next := fg.b.BuildMath(ir.OpAdd, fg.b.BuildLoad(idxPtr, ir.SrcLoc{}), ir.IntLiteral(fg.Module.Common.Usize, 1), fg.Module.Common.Usize)
	fg.b.BuildStore(next, idxPtr, ir.SrcLoc{})
	fg.b.BuildBreak(prepBB)

	fg.b.UseBlock(endBB)
	if listSubject && !listMutable {
		fg.deferListValue(subjectPtr)
	}
	return nil
}

// genEachInSubject evaluates an each-in statement's list-or-length subject,
// returning the iteration bound, the pointer elements are indexed from,
// the element's IR type, and — for the two list-based forms — the list's
// own pointer value, so genEachIn can __defer__ it. subjectPtr is the zero
// IrValue for the raw pointer+length form, which spec.md §4.7 never
// defers.
func (fg *funcGen) genEachInSubject(st *ast.EachInStmt, scope *ir.Scope, listSubject bool) (length, base ir.IrValue, elemType ir.IrType, subjectPtr ir.IrValue, err *diag.Error) {
	if !listSubject {
		v, _, serr := fg.genExpr(st.Subject, false, scope)
		if serr != nil {
			err = serr
			return
		}
		pt, ok := v.Type.(ir.PtrType)
		if !ok {
			err = diag.New(st.Subject.Loc(), "each-in pointer subject must be a pointer")
			return
		}
		base, elemType = v, pt.Of

		lengthVal, _, lerr := fg.genExpr(st.Length, false, scope)
		if lerr != nil {
			err = lerr
			return
		}
		cv, ok := typeresolve.Conform(lengthVal, fg.Module.Common.Usize, typeresolve.ModeCalculation, fg.b, nil)
		if !ok {
			err = diag.New(st.Length.Loc(), "each-in length must be usize")
			return
		}
		length = cv
		return
	}

	subjectPtr, _, err = fg.genExpr(st.Subject, true, scope)
	if err != nil {
		return
	}
	pt, ok := subjectPtr.Type.(ir.PtrType)
	if !ok {
		err = diag.New(st.Loc(), "each-in subject is not addressable")
		return
	}
	if arr, ok := pt.Of.(ir.FixedArrayType); ok {
		if !isLvalueExpr(st.Subject) {
			err = diag.New(st.Loc(), "fixed array given to each-in must be mutable")
			return
		}
		elemType = arr.Subtype
		base = fg.b.EmitCast(ir.CastBitcast, subjectPtr, ir.PtrType{Of: elemType})
		length = ir.IntLiteral(fg.Module.Common.Usize, arr.Length)
		return
	}

	typeName := structNameOf(subjectPtr.Type)
	lengthVal, lerr := fg.callZeroArgMethod(subjectPtr, typeName, "__length__", st.Loc())
	if lerr != nil {
		err = lerr
		return
	}
	arrayVal, aerr := fg.callZeroArgMethod(subjectPtr, typeName, "__array__", st.Loc())
	if aerr != nil {
		err = aerr
		return
	}
	apt, ok := arrayVal.Type.(ir.PtrType)
	if !ok {
		err = diag.New(st.Loc(), "type %q's __array__ must return a pointer", typeName)
		return
	}
	length, base, elemType = lengthVal, arrayVal, apt.Of
	return
}

// callZeroArgMethod calls typeName's zero-argument method, used for the
// each-in __length__/__array__ protocol (spec.md §4.7).
func (fg *funcGen) callZeroArgMethod(subjectPtr ir.IrValue, typeName, method string, loc ast.Location) (ir.IrValue, *diag.Error) {
	candidates, ok := fg.overloadSet(typeName + "." + method)
	if !ok {
		return ir.IrValue{}, diag.New(loc, "type %q has no %q method required by each-in", typeName, method)
	}
	chosen, argVals, ferr := fg.findMethodConforming(candidates, subjectPtr, nil, nil)
	if ferr != nil {
		return ir.IrValue{}, ferr
	}
	return fg.emitCall(chosen, argVals, loc, false)
}

// deferListValue calls __defer__ on a computed (non-mutable) each-in list
// subject, matching handle_single_deference in the original each-in
// lowering.
func (fg *funcGen) deferListValue(subjectPtr ir.IrValue) {
	typeName := structNameOf(subjectPtr.Type)
	if fp, ok := fg.resolveMgmt(typeName, ir.MgmtDefer); ok {
		fg.b.BuildCall(fp.IrFuncID, ir.Void, []ir.IrValue{subjectPtr})
	}
}

// isLvalueExpr reports whether e is a plain addressable reference (a
// variable, field, or array element) rather than a computed temporary —
// the distinction each-in's list argument needs to decide whether it owns
// (and must __defer__) the value it evaluates to.
func isLvalueExpr(e ast.Expr) bool {
	switch e.(type) {
	case *ast.VariableExpr, *ast.MemberExpr, *ast.ArrayAccessExpr:
		return true
	default:
		return false
	}
}

// maxExhaustiveEnumKinds is spec.md §4.7's "Exhaustive switch ... verify
// every kind is covered (≤512 values)" ceiling; above it, coverage
// degrades to a count-only comparison (spec.md §9 Open Questions #3).
const maxExhaustiveEnumKinds = 512

func (fg *funcGen) genSwitch(st *ast.SwitchStmt, scope *ir.Scope) (bool, *diag.Error) {
	value, valType, verr := fg.genExpr(st.Value, false, scope)
	if verr != nil {
		return false, verr
	}
	afterBB := fg.b.BuildBlock()
	defaultBB := afterBB
	if st.HasDefault {
		defaultBB = fg.b.BuildBlock()
	}

	caseBBs := make([]int, len(st.Cases))
	cases := make([]ir.SwitchCase, len(st.Cases))
	seenInts := map[uint64]bool{}
	for i, c := range st.Cases {
		caseBBs[i] = fg.b.BuildBlock()
		cv, _, cerr := fg.genExpr(c.Value, false, scope)
		if cerr != nil {
			return false, cerr
		}
		if n, ok := constIntValue(cv); ok {
			if seenInts[n] {
				return false, diag.New(c.Value.Loc(), "duplicate switch case value %d", n)
			}
			seenInts[n] = true
		} else {
			return false, diag.New(c.Value.Loc(), "switch case value must be a constant integer")
		}
		cases[i] = ir.SwitchCase{Value: cv, Block: caseBBs[i]}
	}
	if st.Exhaustive {
		if derr := fg.checkExhaustiveSwitch(st, valType, seenInts); derr != nil {
			return false, derr
		}
	}
	fg.b.BuildSwitch(value, cases, defaultBB)

	allTerminated := true
	fg.b.PushLoop("", builder.LoopContext{BreakBlockID: afterBB, HasFallthrough: true})
	for i, c := range st.Cases {
		fg.b.UseBlock(caseBBs[i])
		nextBB := afterBB
		if i+1 < len(caseBBs) {
			nextBB = caseBBs[i+1]
		} else if st.HasDefault {
			nextBB = defaultBB
		}
		lc, _ := fg.b.CurrentLoop()
		lc.FallthroughBlockID = nextBB
		fg.b.PopLoop()
		fg.b.PushLoop("", lc)

		caseScope := scope.Child()
		terminated, terr := fg.genStmts(c.Body, caseScope)
		if terr != nil {
			fg.b.PopLoop()
			return false, terr
		}
		if !terminated {
			fg.emitScopeDefers(caseScope)
			if c.Fallthrough {
				fg.b.BuildBreak(nextBB)
			} else {
				fg.b.BuildBreak(afterBB)
			}
		}
		allTerminated = allTerminated && terminated
	}
	fg.b.PopLoop()

	if st.HasDefault {
		fg.b.UseBlock(defaultBB)
		defScope := scope.Child()
		terminated, terr := fg.genStmts(st.Default, defScope)
		if terr != nil {
			return false, terr
		}
		if !terminated {
			fg.emitScopeDefers(defScope)
			fg.b.BuildBreak(afterBB)
		}
		allTerminated = allTerminated && terminated
	} else {
		allTerminated = false
	}

	fg.b.UseBlock(afterBB)
	return st.Exhaustive && allTerminated, nil
}

// constIntValue extracts the uint64 payload of a scalar integer/bool
// literal, mirroring the original's integer uniqueness value extraction
// for switch-case values (spec.md §4.7 "Switch").
func constIntValue(v ir.IrValue) (uint64, bool) {
	lit, ok := v.Data.(ir.Literal)
	if !ok {
		return 0, false
	}
	var n uint64
	for i, b := range lit.Bytes {
		if i >= 8 {
			break
		}
		n |= uint64(b) << (8 * uint(i))
	}
	return n, true
}

// checkExhaustiveSwitch verifies every enum kind of the scrutinee's type
// is covered by a case, per spec.md §4.7 "Exhaustive switches over enums
// verify every kind is covered (≤512 values)" and §8 scenario 4. Above
// maxExhaustiveEnumKinds the check degrades to a count-only comparison
// (spec.md §9 Open Questions #3).
func (fg *funcGen) checkExhaustiveSwitch(st *ast.SwitchStmt, valType ast.Type, seen map[uint64]bool) *diag.Error {
	bt, ok := valType.(*ast.BaseType)
	if !ok {
		return diag.New(st.Loc(), "exhaustive switch requires an enum scrutinee")
	}
	var en *ast.Enum
	for _, e := range fg.ast.Enums {
		if e.Name == bt.Name {
			en = e
			break
		}
	}
	if en == nil {
		return diag.New(st.Loc(), "exhaustive switch requires an enum scrutinee, got %q", bt.Name)
	}
	if len(en.Kinds) > maxExhaustiveEnumKinds {
		if len(seen) != len(en.Kinds) && !st.HasDefault {
			return diag.New(st.Loc(), "exhaustive switch over %q covers %d of %d cases", bt.Name, len(seen), len(en.Kinds))
		}
		return nil
	}
	var missing []string
	for i, k := range en.Kinds {
		if !seen[uint64(i)] {
			missing = append(missing, fmt.Sprintf("%s::%s", bt.Name, k))
		}
	}
	if len(missing) > 0 && !st.HasDefault {
		return diag.New(st.Loc(), "non-exhaustive switch over %q, missing case %s", bt.Name, strings.Join(missing, ", "))
	}
	return nil
}

func (fg *funcGen) genBreak(st *ast.BreakStmt, scope *ir.Scope) (bool, *diag.Error) {
	lc, ok := fg.loopContextFor(st.Label)
	if !ok {
		return false, diag.New(st.Loc(), "break outside a loop or switch")
	}
	if lc.Scope != nil {
		fg.emitDefersUpTo(scope, lc.Scope)
	}
	fg.b.BuildBreak(lc.BreakBlockID)
	return true, nil
}

func (fg *funcGen) genContinue(st *ast.ContinueStmt, scope *ir.Scope) (bool, *diag.Error) {
	lc, ok := fg.loopContextFor(st.Label)
	if !ok {
		return false, diag.New(st.Loc(), "continue outside a loop")
	}
	if lc.Scope != nil {
		fg.emitDefersUpTo(scope, lc.Scope)
	}
	fg.b.BuildBreak(lc.ContinueBlockID)
	return true, nil
}

func (fg *funcGen) genFallthrough(scope *ir.Scope) (bool, *diag.Error) {
	lc, ok := fg.b.CurrentLoop()
	if !ok || !lc.HasFallthrough {
		return false, diag.New(ast.NoLocation, "fallthrough outside a switch case")
	}
	fg.b.BuildBreak(lc.FallthroughBlockID)
	return true, nil
}

func (fg *funcGen) loopContextFor(label string) (builder.LoopContext, bool) {
	if label != "" {
		return fg.b.LoopByLabel(label)
	}
	return fg.b.CurrentLoop()
}

func (fg *funcGen) genDelete(st *ast.DeleteStmt, scope *ir.Scope) *diag.Error {
	v, _, err := fg.genExpr(st.Value, false, scope)
	if err != nil {
		return err
	}
	fg.b.BuildFree(v)
	return nil
}

func (fg *funcGen) genFor(st *ast.ForStmt, scope *ir.Scope) *diag.Error {
	outerScope := scope.Child()
	if _, err := fg.genStmts(st.Before, outerScope); err != nil {
		return err
	}
	headBB := fg.b.BuildBlock()
	bodyBB := fg.b.BuildBlock()
	afterBB := fg.b.BuildBlock()
	continueBB := fg.b.BuildBlock()
	fg.b.BuildBreak(headBB)
	fg.b.UseBlock(headBB)
	if st.Cond != nil {
		if err := fg.genCondBody(st.Cond, outerScope, bodyBB, afterBB); err != nil {
			return err
		}
	} else {
		fg.b.BuildBreak(bodyBB)
	}

	fg.b.UseBlock(bodyBB)
	bodyScope := outerScope.Child()
	fg.b.PushLoop(st.Label, builder.LoopContext{BreakBlockID: afterBB, ContinueBlockID: continueBB, Scope: bodyScope})
	terminated, err := fg.genStmts(st.Body, bodyScope)
	if err != nil {
		fg.b.PopLoop()
		return err
	}
	if !terminated {
		fg.emitScopeDefers(bodyScope)
		fg.b.BuildBreak(continueBB)
	}
	fg.b.PopLoop()

	fg.b.UseBlock(continueBB)
	if _, err := fg.genStmts(st.After, outerScope); err != nil {
		return err
	}
	fg.b.BuildBreak(headBB)

	fg.b.UseBlock(afterBB)
	return nil
}

func (fg *funcGen) genVaStart(st *ast.VaStartStmt, scope *ir.Scope) *diag.Error {
	v, _, err := fg.genExpr(st.VaList, true, scope)
	if err != nil {
		return err
	}
	fg.b.BuildVaStart(v)
	return nil
}

func (fg *funcGen) genVaEnd(st *ast.VaEndStmt, scope *ir.Scope) *diag.Error {
	v, _, err := fg.genExpr(st.VaList, true, scope)
	if err != nil {
		return err
	}
	fg.b.BuildVaEnd(v)
	return nil
}

func (fg *funcGen) genVaCopy(st *ast.VaCopyStmt, scope *ir.Scope) *diag.Error {
	dest, _, derr := fg.genExpr(st.Dest, true, scope)
	if derr != nil {
		return derr
	}
	src, _, serr := fg.genExpr(st.Src, true, scope)
	if serr != nil {
		return serr
	}
	fg.b.BuildVaCopy(dest, src)
	return nil
}

func (fg *funcGen) genAsm(st *ast.AsmStmt) *diag.Error {
	fg.b.Func.Block(fg.b.CurrentBlockID()).Append(ir.IrInstr{Data: ir.AsmInstr{
		Assembly:    st.Assembly,
		Constraints: st.Constraints,
		Dialect:     st.Dialect,
		SideEffect:  st.SideEffect,
		StackAlign:  st.StackAlign,
	}})
	return nil
}

func (fg *funcGen) genConditionlessBlock(st *ast.ConditionlessBlockStmt, scope *ir.Scope) (bool, *diag.Error) {
	bodyScope := scope.Child()
	terminated, err := fg.genStmts(st.Body, bodyScope)
	if err != nil {
		return false, err
	}
	if !terminated {
		fg.emitScopeDefers(bodyScope)
	}
	return terminated, nil
}
