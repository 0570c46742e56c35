package irgen

import (
	"github.com/arc-language/core-irgen/ast"
	"github.com/arc-language/core-irgen/diag"
	"github.com/arc-language/core-irgen/ir"
	"github.com/arc-language/core-irgen/typeresolve"
)

// genExpr lowers e, returning its IR value, the AST type it was resolved
// at, and any error. When leaveMutable is true and e denotes storage (a
// variable, a member, an array element, an inline declaration), the
// returned IrValue is the address of that storage rather than its loaded
// value — the contract method-call subjects, assignment destinations, and
// each-in subjects all rely on (spec.md §4.5 "leave_mutable").
func (fg *funcGen) genExpr(e ast.Expr, leaveMutable bool, scope *ir.Scope) (ir.IrValue, ast.Type, *diag.Error) {
	switch ex := e.(type) {
	case *ast.IntLiteralExpr:
		t, err := typeresolve.ResolveType(&ast.BaseType{Name: ex.TypeName}, fg.TypeMap, fg.Generator, nil)
		if err != nil {
			return ir.IrValue{}, nil, err
		}
		return ir.IntLiteral(t, uint64(ex.Value)), &ast.BaseType{Name: ex.TypeName}, nil

	case *ast.FloatLiteralExpr:
		if ex.TypeName == "float" {
			return ir.FloatLiteral32(float32(ex.Value)), &ast.BaseType{Name: "float"}, nil
		}
		return ir.FloatLiteral64(ex.Value), &ast.BaseType{Name: "double"}, nil

	case *ast.BoolLiteralExpr:
		return ir.BoolLiteral(ex.Value), &ast.BaseType{Name: "bool"}, nil

	case *ast.NullExpr:
		return ir.IrValue{Type: ir.OpaquePtr, Data: ir.NullPtr{}}, &ast.PointerType{Of: &ast.BaseType{Name: "void"}}, nil

	case *ast.CStrLiteralExpr:
		bytes := append([]byte(ex.Value), 0)
		return ir.IrValue{Type: ir.OpaquePtr, Data: ir.CStrOfLen{Bytes: bytes, Size: uint64(len(bytes))}}, &ast.PointerType{Of: &ast.BaseType{Name: "ubyte"}}, nil

	case *ast.StrLiteralExpr:
		return fg.genStringLiteral(ex)

	case *ast.VariableExpr:
		return fg.genVariable(ex, leaveMutable, scope)

	case *ast.BinaryExpr:
		return fg.genBinary(ex, scope)

	case *ast.AndExpr:
		return fg.genAndOr(ex.LHS, ex.RHS, true, scope)

	case *ast.OrExpr:
		return fg.genAndOr(ex.LHS, ex.RHS, false, scope)

	case *ast.NotExpr:
		v, _, err := fg.genExpr(ex.Operand, false, scope)
		if err != nil {
			return ir.IrValue{}, nil, err
		}
		return fg.b.BuildUnary(ir.UnaryIsZero, v, ir.Bool), &ast.BaseType{Name: "bool"}, nil

	case *ast.NegateExpr:
		v, at, err := fg.genExpr(ex.Operand, false, scope)
		if err != nil {
			return ir.IrValue{}, nil, err
		}
		op := ir.UnaryNeg
		if v.Type.Kind().Category() == ir.CategoryFP {
			op = ir.UnaryFNeg
		}
		return fg.b.BuildUnary(op, v, v.Type), at, nil

	case *ast.BitComplementExpr:
		v, at, err := fg.genExpr(ex.Operand, false, scope)
		if err != nil {
			return ir.IrValue{}, nil, err
		}
		return fg.b.BuildUnary(ir.UnaryComplement, v, v.Type), at, nil

	case *ast.MemberExpr:
		return fg.genMember(ex, leaveMutable, scope)

	case *ast.ArrayAccessExpr:
		return fg.genArrayAccess(ex, leaveMutable, scope)

	case *ast.CallExpr:
		return fg.genCall(ex, scope, false)

	case *ast.MethodCallExpr:
		return fg.genMethodCall(ex, scope, false)

	case *ast.CastExpr:
		return fg.genCast(ex, scope)

	case *ast.NewExpr:
		return fg.genNew(ex, scope)

	case *ast.NewCStringExpr:
		bytes := append([]byte(ex.Value), 0)
		amount := ir.IntLiteral(fg.Module.Common.Usize, uint64(len(bytes)))
		m := fg.b.BuildMalloc(ir.U8, amount, true, false)
		fg.b.BuildMemcpy(m, ir.IrValue{Type: ir.OpaquePtr, Data: ir.CStrOfLen{Bytes: bytes, Size: uint64(len(bytes))}}, amount, false)
		return m, &ast.PointerType{Of: &ast.BaseType{Name: "ubyte"}}, nil

	case *ast.TernaryExpr:
		return fg.genTernary(ex, scope)

	case *ast.SizeofExpr:
		t, err := typeresolve.ResolveType(ex.Type, fg.TypeMap, fg.Generator, nil)
		if err != nil {
			return ir.IrValue{}, nil, err
		}
		return fg.b.BuildConstSizeof(t), &ast.BaseType{Name: "usize"}, nil

	case *ast.SizeofValueExpr:
		snap := fg.b.Snapshot()
		v, _, err := fg.genExpr(ex.Value, false, scope)
		fg.b.Restore(snap)
		if err != nil {
			return ir.IrValue{}, nil, err
		}
		return fg.b.BuildConstSizeof(v.Type), &ast.BaseType{Name: "usize"}, nil

	case *ast.AlignofExpr:
		t, err := typeresolve.ResolveType(ex.Type, fg.TypeMap, fg.Generator, nil)
		if err != nil {
			return ir.IrValue{}, nil, err
		}
		return fg.b.BuildConstAlignof(t), &ast.BaseType{Name: "usize"}, nil

	case *ast.IncDecExpr:
		return fg.genIncDec(ex, scope)

	case *ast.ToggleExpr:
		ptr, at, err := fg.genExpr(ex.Operand, true, scope)
		if err != nil {
			return ir.IrValue{}, nil, err
		}
		cur := fg.b.BuildLoad(ptr, ir.SrcLoc{})
		toggled := fg.b.BuildUnary(ir.UnaryIsZero, cur, ir.Bool)
		fg.b.BuildStore(toggled, ptr, ir.SrcLoc{})
		return toggled, at, nil

	case *ast.InlineDeclareExpr:
		return fg.genInlineDeclare(ex, leaveMutable, scope)

	case *ast.TypeinfoExpr:
		return fg.genTypeinfo(ex)

	case *ast.TypenameofExpr:
		t, err := typeresolve.ResolveType(ex.Type, fg.TypeMap, fg.Generator, nil)
		if err != nil {
			return ir.IrValue{}, nil, err
		}
		name := ir.TypeString(t)
		bytes := append([]byte(name), 0)
		return ir.IrValue{Type: ir.OpaquePtr, Data: ir.CStrOfLen{Bytes: bytes, Size: uint64(len(bytes))}}, &ast.PointerType{Of: &ast.BaseType{Name: "ubyte"}}, nil

	case *ast.EmbedExpr:
		// File contents are supplied by the front end at parse time; by the
		// time this module sees an EmbedExpr, ex.File already names a
		// resolved anonymous global holding the embedded bytes.
		return ir.IrValue{Type: ir.OpaquePtr, Data: ir.FuncAddrByName{Name: ex.File}}, &ast.PointerType{Of: &ast.BaseType{Name: "ubyte"}}, nil

	case *ast.FuncAddrExpr:
		return fg.genFuncAddr(ex)

	case *ast.VaArgExpr:
		vaList, _, err := fg.genExpr(ex.VaList, true, scope)
		if err != nil {
			return ir.IrValue{}, nil, err
		}
		t, terr := typeresolve.ResolveType(ex.Type, fg.TypeMap, fg.Generator, nil)
		if terr != nil {
			return ir.IrValue{}, nil, terr
		}
		return fg.b.BuildVaArg(vaList, t), ex.Type, nil

	case *ast.InitializerListExpr:
		return fg.genInitializerList(ex, scope)

	case *ast.StaticArrayExpr:
		return fg.genStaticArray(ex, scope)

	case *ast.StaticStructExpr:
		return fg.genStaticStruct(ex, scope)

	default:
		diag.Internal("irgen: unhandled expression kind %T", e)
		return ir.IrValue{}, nil, nil
	}
}

func (fg *funcGen) genVariable(ex *ast.VariableExpr, leaveMutable bool, scope *ir.Scope) (ir.IrValue, ast.Type, *diag.Error) {
	v, ok := scope.Lookup(ex.Name)
	if !ok {
		e := diag.New(ex.Loc(), "undefined variable %q", ex.Name)
		if near, ok := fg.TypeMap.NearestName(ex.Name); ok {
			e = e.WithCandidates([]string{near})
		}
		return ir.IrValue{}, nil, e
	}
	if v.Traits.Has(ir.VarReference) {
		// The slot holds the referent's address; reaching it is one load.
		// A mutable use (member/array subject, assignment destination)
		// stops there, matching leaveMutable's zero-load contract for a
		// plain variable's own address. A value use goes one load further,
		// onto the referent itself (spec.md §3 "Reference variable").
		ptr := fg.b.BuildLoad(fg.slotOf(v), ir.SrcLoc{})
		if leaveMutable {
			return ptr, v.AstType, nil
		}
		return fg.b.BuildLoad(ptr, ir.SrcLoc{}), v.AstType, nil
	}
	if leaveMutable {
		return fg.slotOf(v), v.AstType, nil
	}
	return fg.loadVar(v), v.AstType, nil
}

// genBinary lowers a+b into the opcode variant matching their operand
// category after conforming both sides, falling back to the user
// `__op__` overload when builtin conforming fails (spec.md §4.5
// "Binary").
func (fg *funcGen) genBinary(ex *ast.BinaryExpr, scope *ir.Scope) (ir.IrValue, ast.Type, *diag.Error) {
	a, aAst, err := fg.genExpr(ex.LHS, false, scope)
	if err != nil {
		return ir.IrValue{}, nil, err
	}
	b, _, err := fg.genExpr(ex.RHS, false, scope)
	if err != nil {
		return ir.IrValue{}, nil, err
	}
	if cv, ok := typeresolve.Conform(b, a.Type, typeresolve.ModeCalculation, fg.b, nil); ok {
		b = cv
	} else if cv, ok := typeresolve.Conform(a, b.Type, typeresolve.ModeCalculation, fg.b, nil); ok {
		a = cv
	}
	if a.Type.Kind().Category() == ir.CategoryNA {
		return fg.genOperatorOverload(ex.Op, a, b, ex.Loc())
	}
	result, berr := fg.genBinaryOp(ex.Op, a, b, ex.Loc())
	return result, aAst, berr
}

func (fg *funcGen) genOperatorOverload(op ast.BinOp, a, b ir.IrValue, loc ast.Location) (ir.IrValue, ast.Type, *diag.Error) {
	name := op.OverloadMethodName()
	typeName := structNameOf(a.Type)
	if name == "" || typeName == "" {
		return ir.IrValue{}, nil, diag.New(loc, "operator %s is not defined for %s", op, ir.TypeString(a.Type))
	}
	candidates, ok := fg.overloadSet(typeName + "." + name)
	if !ok {
		return ir.IrValue{}, nil, diag.New(loc, "type %q has no %s overload", typeName, name)
	}
	for _, c := range candidates {
		if len(c.ArgTypes) != 2 {
			continue
		}
		result, cerr := fg.emitCall(c, []ir.IrValue{a, b}, loc, false)
		if cerr != nil {
			return ir.IrValue{}, nil, cerr
		}
		return result, returnAstType(c.Func), nil
	}
	return ir.IrValue{}, nil, diag.New(loc, "no matching %s overload on %q", name, typeName)
}

// genBinaryOp picks the SI/UI/FP opcode variant for op (spec.md §4.5
// "pick integer/float/unsigned-vs-signed variant per ir_type_category").
func (fg *funcGen) genBinaryOp(op ast.BinOp, a, b ir.IrValue, loc ast.Location) (ir.IrValue, *diag.Error) {
	cat := a.Type.Kind().Category()
	isCmp := op == ast.OpEq || op == ast.OpNEq || op == ast.OpGt || op == ast.OpGe || op == ast.OpLt || op == ast.OpLe
	retType := a.Type
	if isCmp {
		retType = ir.Bool
	}
	opc, ok := binOpcode(op, cat)
	if !ok {
		return ir.IrValue{}, diag.New(loc, "operator %s is not defined for %s", op, ir.TypeString(a.Type))
	}
	return fg.b.BuildMath(opc, a, b, retType), nil
}

func binOpcode(op ast.BinOp, cat ir.Category) (ir.Opcode, bool) {
	fp := cat == ir.CategoryFP
	si := cat == ir.CategorySI
	switch op {
	case ast.OpAdd:
		if fp {
			return ir.OpFAdd, true
		}
		return ir.OpAdd, true
	case ast.OpSub:
		if fp {
			return ir.OpFSub, true
		}
		return ir.OpSub, true
	case ast.OpMul:
		if fp {
			return ir.OpFMul, true
		}
		return ir.OpMul, true
	case ast.OpDiv:
		if fp {
			return ir.OpFDiv, true
		}
		if si {
			return ir.OpSDiv, true
		}
		return ir.OpUDiv, true
	case ast.OpMod:
		if fp {
			return ir.OpFMod, true
		}
		if si {
			return ir.OpSMod, true
		}
		return ir.OpUMod, true
	case ast.OpEq:
		if fp {
			return ir.OpFEq, true
		}
		return ir.OpEq, true
	case ast.OpNEq:
		if fp {
			return ir.OpFNEq, true
		}
		return ir.OpNEq, true
	case ast.OpGt:
		if fp {
			return ir.OpFGt, true
		}
		if si {
			return ir.OpSGt, true
		}
		return ir.OpUGt, true
	case ast.OpGe:
		if fp {
			return ir.OpFGe, true
		}
		if si {
			return ir.OpSGe, true
		}
		return ir.OpUGe, true
	case ast.OpLt:
		if fp {
			return ir.OpFLt, true
		}
		if si {
			return ir.OpSLt, true
		}
		return ir.OpULt, true
	case ast.OpLe:
		if fp {
			return ir.OpFLe, true
		}
		if si {
			return ir.OpSLe, true
		}
		return ir.OpULe, true
	case ast.OpBitAnd:
		if fp {
			return 0, false
		}
		return ir.OpAnd, true
	case ast.OpBitOr:
		if fp {
			return 0, false
		}
		return ir.OpOr, true
	case ast.OpBitXor:
		if fp {
			return 0, false
		}
		return ir.OpXor, true
	case ast.OpShl:
		if fp {
			return 0, false
		}
		return ir.OpShl, true
	case ast.OpShr:
		if fp {
			return 0, false
		}
		return ir.OpAShr, true
	case ast.OpUShr:
		if fp {
			return 0, false
		}
		return ir.OpLShr, true
	default:
		return 0, false
	}
}

// genAndOr lowers short-circuiting &&/|| via a three-block diamond merged
// with a Phi2, the IR shape the builder's two-predecessor phi is sized for
// (spec.md §4.5 "And"/"Or").
func (fg *funcGen) genAndOr(lhs, rhs ast.Expr, isAnd bool, scope *ir.Scope) (ir.IrValue, ast.Type, *diag.Error) {
	a, _, err := fg.genExpr(lhs, false, scope)
	if err != nil {
		return ir.IrValue{}, nil, err
	}
	lhsBB := fg.b.CurrentBlockID()
	rhsBB := fg.b.BuildBlock()
	afterBB := fg.b.BuildBlock()
	if isAnd {
		fg.b.BuildCondBreak(a, rhsBB, afterBB)
	} else {
		fg.b.BuildCondBreak(a, afterBB, rhsBB)
	}
	fg.b.UseBlock(rhsBB)
	b, _, err := fg.genExpr(rhs, false, scope)
	if err != nil {
		return ir.IrValue{}, nil, err
	}
	rhsEndBB := fg.b.CurrentBlockID()
	fg.b.BuildBreak(afterBB)
	fg.b.UseBlock(afterBB)
	result := fg.b.BuildPhi2(a, lhsBB, b, rhsEndBB, ir.Bool)
	return result, &ast.BaseType{Name: "bool"}, nil
}

func (fg *funcGen) genTernary(ex *ast.TernaryExpr, scope *ir.Scope) (ir.IrValue, ast.Type, *diag.Error) {
	cond, _, err := fg.genExpr(ex.Cond, false, scope)
	if err != nil {
		return ir.IrValue{}, nil, err
	}
	thenBB := fg.b.BuildBlock()
	elseBB := fg.b.BuildBlock()
	afterBB := fg.b.BuildBlock()
	fg.b.BuildCondBreak(cond, thenBB, elseBB)

	fg.b.UseBlock(thenBB)
	thenVal, thenAst, err := fg.genExpr(ex.Then, false, scope)
	if err != nil {
		return ir.IrValue{}, nil, err
	}
	thenEndBB := fg.b.CurrentBlockID()
	fg.b.BuildBreak(afterBB)

	fg.b.UseBlock(elseBB)
	elseVal, _, err := fg.genExpr(ex.Else, false, scope)
	if err != nil {
		return ir.IrValue{}, nil, err
	}
	elseEndBB := fg.b.CurrentBlockID()
	fg.b.BuildBreak(afterBB)

	fg.b.UseBlock(afterBB)
	widened, ok := typeresolve.MutualWiden(thenVal.Type, elseVal.Type)
	if !ok {
		widened = thenVal.Type
	}
	if cv, ok := typeresolve.Conform(thenVal, widened, typeresolve.ModeCalculation, fg.b, nil); ok {
		thenVal = cv
	}
	if cv, ok := typeresolve.Conform(elseVal, widened, typeresolve.ModeCalculation, fg.b, nil); ok {
		elseVal = cv
	}
	result := fg.b.BuildPhi2(thenVal, thenEndBB, elseVal, elseEndBB, widened)
	return result, thenAst, nil
}

// genMember resolves Subject.Field against the composite's layout bone
// tree via lookupField and walks the returned endpoint path's Member/
// Bitcast waypoints to the field's address (spec.md §4.5 "Member access",
// glossary "Endpoint / endpoint path"); leaveMutable callers (assignment
// destinations, method call subjects) get the address back unloaded.
func (fg *funcGen) genMember(ex *ast.MemberExpr, leaveMutable bool, scope *ir.Scope) (ir.IrValue, ast.Type, *diag.Error) {
	subjectPtr, subjectAst, err := fg.genExpr(ex.Subject, true, scope)
	if err != nil {
		return ir.IrValue{}, nil, err
	}
	subjectPtr, ok := fg.derefOneLayer(subjectPtr, subjectAst)
	if !ok {
		return ir.IrValue{}, nil, diag.New(ex.Loc(), "member access on a non-addressable value")
	}
	typeName := structNameOf(subjectPtr.Type)
	path, fieldAstType, found := fg.lookupField(typeName, ex.Field)
	if !found {
		return ir.IrValue{}, nil, diag.New(ex.Loc(), "type %q has no field %q", typeName, ex.Field)
	}
	fieldPtr := subjectPtr
	for _, step := range path {
		if step.union {
			fieldPtr = fg.b.EmitCast(ir.CastBitcast, fieldPtr, ir.PtrType{Of: step.typ})
		} else {
			fieldPtr = fg.b.BuildMember(fieldPtr, step.index, step.typ, ir.SrcLoc{})
		}
	}
	// Pointer-typed fields are stored internally as opaque `ptr` so cyclic
	// composite references can be laid out at all (spec.md §4.2, §9
	// "Cyclic struct-field references"); bitcast the field's address back
	// to its declared pointer type before handing it to the caller.
	if _, isPtrField := fieldAstType.(*ast.PointerType); isPtrField {
		trueType, terr := typeresolve.ResolveType(fieldAstType, fg.TypeMap, fg.Generator, nil)
		if terr != nil {
			return ir.IrValue{}, nil, terr
		}
		fieldPtr = fg.b.EmitCast(ir.CastBitcast, fieldPtr, ir.PtrType{Of: trueType})
	}
	if leaveMutable {
		return fieldPtr, fieldAstType, nil
	}
	return fg.b.BuildLoad(fieldPtr, ir.SrcLoc{}), fieldAstType, nil
}

// derefOneLayer implements spec.md §4.5's "auto-dereference one layer of
// *T (but not **T)": when Subject's own declared type is already a
// pointer, the address genExpr(leaveMutable=true) returned points at the
// pointer variable's own storage, one layer too deep — load it once to
// reach the pointee a `.`/`[]` access actually operates on. Subjects that
// aren't already addressable fail regardless.
func (fg *funcGen) derefOneLayer(v ir.IrValue, subjectAst ast.Type) (ir.IrValue, bool) {
	if _, ok := v.Type.(ir.PtrType); !ok {
		return v, false
	}
	if _, isPtr := subjectAst.(*ast.PointerType); isPtr {
		v = fg.b.BuildLoad(v, ir.SrcLoc{})
	}
	if _, ok := v.Type.(ir.PtrType); !ok {
		return v, false
	}
	return v, true
}

// fieldWaypoint is one step of an endpoint path (spec.md glossary
// "Endpoint / endpoint path"): a struct step drills in with Member at
// index; a union step instead bitcasts straight to the member's type,
// since every union member overlaps the same storage rather than sitting
// at its own offset.
type fieldWaypoint struct {
	union bool
	index int
	typ   ir.IrType
}

// lookupField resolves typeName.fieldName against the composite's layout
// bone tree, drilling silently through anonymous nested structs/unions
// (bones with no field name of their own) to find it, and returns the
// waypoint chain needed to reach it plus its AST type (spec.md §4.5
// "Member access", glossary "Endpoint / endpoint path").
func (fg *funcGen) lookupField(typeName, fieldName string) ([]fieldWaypoint, ast.Type, bool) {
	var comp *ast.Composite
	for _, c := range fg.ast.Composites {
		if c.Name == typeName {
			comp = c
			break
		}
	}
	if comp == nil || comp.Layout == nil {
		return nil, nil, false
	}
	irType, ok := fg.TypeMap.Lookup(typeName)
	if !ok {
		return nil, nil, false
	}
	return findFieldInBone(comp.Layout, irType, fieldName)
}

func findFieldInBone(b *ast.Bone, t ir.IrType, fieldName string) ([]fieldWaypoint, ast.Type, bool) {
	var childTypes []ir.IrType
	switch v := t.(type) {
	case ir.StructureType:
		childTypes = v.Subtypes
	case ir.UnionType:
		childTypes = v.Subtypes
	default:
		return nil, nil, false
	}
	for i := range b.Children {
		if i >= len(childTypes) {
			break
		}
		c := &b.Children[i]
		step := fieldWaypoint{index: i, typ: childTypes[i]}
		if b.Kind == ast.BoneUnion {
			step = fieldWaypoint{union: true, typ: childTypes[i]}
		}
		if c.Name == fieldName {
			if c.Kind == ast.BoneType {
				return []fieldWaypoint{step}, c.Single, true
			}
			return []fieldWaypoint{step}, &ast.AnonLayoutType{Layout: c}, true
		}
		if c.Name == "" && (c.Kind == ast.BoneStruct || c.Kind == ast.BoneUnion) {
			if path, at, ok := findFieldInBone(c, childTypes[i], fieldName); ok {
				return append([]fieldWaypoint{step}, path...), at, true
			}
		}
	}
	return nil, nil, false
}

func (fg *funcGen) genArrayAccess(ex *ast.ArrayAccessExpr, leaveMutable bool, scope *ir.Scope) (ir.IrValue, ast.Type, *diag.Error) {
	subjectPtr, subjectAst, err := fg.genExpr(ex.Subject, true, scope)
	if err != nil {
		return ir.IrValue{}, nil, err
	}
	index, _, ierr := fg.genExpr(ex.Index, false, scope)
	if ierr != nil {
		return ir.IrValue{}, nil, ierr
	}
	pt, ok := subjectPtr.Type.(ir.PtrType)
	if !ok {
		return ir.IrValue{}, nil, diag.New(ex.Loc(), "array access on a non-addressable value")
	}
	var elemType ir.IrType
	var elemAst ast.Type = subjectAst
	switch arr := pt.Of.(type) {
	case ir.FixedArrayType:
		elemType = arr.Subtype
		if fa, ok := subjectAst.(*ast.FixedArrayType); ok {
			elemAst = fa.Of
		}
	default:
		elemType = pt.Of
		if p, ok := subjectAst.(*ast.PointerType); ok {
			elemAst = p.Of
		}
	}
	elemPtr := fg.b.BuildArrayAccess(subjectPtr, index, elemType, ir.SrcLoc{})
	if leaveMutable || ex.AtForm {
		return elemPtr, elemAst, nil
	}
	return fg.b.BuildLoad(elemPtr, ir.SrcLoc{}), elemAst, nil
}

func (fg *funcGen) genCast(ex *ast.CastExpr, scope *ir.Scope) (ir.IrValue, ast.Type, *diag.Error) {
	v, _, err := fg.genExpr(ex.Value, false, scope)
	if err != nil {
		return ir.IrValue{}, nil, err
	}
	to, terr := typeresolve.ResolveType(ex.Target, fg.TypeMap, fg.Generator, nil)
	if terr != nil {
		return ir.IrValue{}, nil, terr
	}
	if cv, ok := typeresolve.Conform(v, to, typeresolve.ModeAll, fg.b, methodsAsResolver{fg}); ok {
		return cv, ex.Target, nil
	}
	return ir.IrValue{}, nil, diag.New(ex.Loc(), "cannot cast %s to %s", ir.TypeString(v.Type), ir.TypeString(to))
}

// methodsAsResolver implements typeresolve.AsResolver over a __as__
// overload named after the target type (spec.md §4.5 "Cast": "fallback
// tries a user `__as__(T) -> U` overload").
type methodsAsResolver struct{ fg *funcGen }

func (r methodsAsResolver) ResolveAs(from, to ir.IrType) (ir.FuncPair, bool) {
	typeName := structNameOf(ir.PtrType{Of: from})
	if typeName == "" {
		return ir.FuncPair{}, false
	}
	candidates, ok := r.fg.overloadSet(typeName + ".__as__")
	if !ok {
		return ir.FuncPair{}, false
	}
	for _, c := range candidates {
		if len(c.ArgTypes) == 1 && ir.TypesEqual(c.ArgTypes[0], to) {
			return ir.FuncPair{AstFuncID: int(c.AstFuncID), IrFuncID: c.IrFuncID}, true
		}
	}
	return ir.FuncPair{}, false
}

func (fg *funcGen) genNew(ex *ast.NewExpr, scope *ir.Scope) (ir.IrValue, ast.Type, *diag.Error) {
	t, err := typeresolve.ResolveType(ex.Type, fg.TypeMap, fg.Generator, nil)
	if err != nil {
		return ir.IrValue{}, nil, err
	}
	var amount ir.IrValue
	hasAmount := ex.Amount != nil
	if hasAmount {
		a, _, aerr := fg.genExpr(ex.Amount, false, scope)
		if aerr != nil {
			return ir.IrValue{}, nil, aerr
		}
		amount = a
	}
	ptr := fg.b.BuildMalloc(t, amount, hasAmount, ex.Undef || fg.Opts.Traits.UnsafeNew)
	resultAst := &ast.PointerType{Of: ex.Type}
	if !hasAmount && len(ex.CtorArgs) > 0 {
		typeName := structNameOf(ir.PtrType{Of: t})
		if candidates, ok := fg.overloadSet(typeName + "." + typeName); ok {
			if chosen, argVals, cerr := fg.findMethodConforming(candidates, ptr, ex.CtorArgs, scope); cerr == nil {
				fg.emitCall(chosen, argVals, ex.Loc(), true)
			}
		}
	}
	return ptr, resultAst, nil
}

func (fg *funcGen) genIncDec(ex *ast.IncDecExpr, scope *ir.Scope) (ir.IrValue, ast.Type, *diag.Error) {
	ptr, at, err := fg.genExpr(ex.Operand, true, scope)
	if err != nil {
		return ir.IrValue{}, nil, err
	}
	pt, ok := ptr.Type.(ir.PtrType)
	if !ok {
		return ir.IrValue{}, nil, diag.New(ex.Loc(), "++/-- target is not addressable")
	}
	cur := fg.b.BuildLoad(ptr, ir.SrcLoc{})
	one := ir.IntLiteral(pt.Of, 1)
	if pt.Of.Kind().Category() == ir.CategoryFP {
		one = ir.FloatLiteral64(1)
	}
	op := ast.OpAdd
	if ex.Dec {
		op = ast.OpSub
	}
	updated, berr := fg.genBinaryOp(op, cur, one, ex.Loc())
	if berr != nil {
		return ir.IrValue{}, nil, berr
	}
	fg.b.BuildStore(updated, ptr, ir.SrcLoc{})
	if ex.Post {
		return cur, at, nil
	}
	return updated, at, nil
}

func (fg *funcGen) genInlineDeclare(ex *ast.InlineDeclareExpr, leaveMutable bool, scope *ir.Scope) (ir.IrValue, ast.Type, *diag.Error) {
	t, err := typeresolve.ResolveType(ex.Type, fg.TypeMap, fg.Generator, nil)
	if err != nil {
		return ir.IrValue{}, nil, err
	}
	_, slot := fg.declareVar(scope, ex.Name, ex.Type, t, 0)
	undef := ex.Undef && !fg.Opts.Traits.NoUndef
	if !undef && ex.Value != nil {
		v, _, verr := fg.genExpr(ex.Value, false, scope)
		if verr != nil {
			return ir.IrValue{}, nil, verr
		}
		if cv, ok := typeresolve.Conform(v, t, typeresolve.ModeAssigning, fg.b, nil); ok {
			v = cv
		}
		fg.b.BuildStore(v, slot, ir.SrcLoc{})
	} else if undef {
		// Left uninitialized.
	} else {
		fg.b.BuildZeroinit(slot)
	}
	if leaveMutable {
		return slot, ex.Type, nil
	}
	return fg.b.BuildLoad(slot, ir.SrcLoc{}), ex.Type, nil
}

// genTypeinfo returns the rtti table entry for Type, deferring to
// Generator.rttiTable once it exists (rtti.Build runs after every function
// body is generated, so a reference recorded now is patched by the
// subsequent relocation pass — see rtti.Table.RttiFor).
func (fg *funcGen) genTypeinfo(ex *ast.TypeinfoExpr) (ir.IrValue, ast.Type, *diag.Error) {
	slotVal := ir.IrValue{Type: fg.Module.Common.Usize, Data: ir.Literal{Bytes: make([]byte, 8)}}
	slot := fg.Module.Pool.AllocValue(slotVal)
	typeName := typeTableName(ex.Type)
	fg.rttiPending = append(fg.rttiPending, pendingRtti{typeName: typeName, slot: slot})
	return *slot, &ast.BaseType{Name: "usize"}, nil
}

func typeTableName(t ast.Type) string {
	switch v := t.(type) {
	case *ast.BaseType:
		return v.Name
	case *ast.PointerType:
		return "*" + typeTableName(v.Of)
	default:
		return ir.TypeString(nil)
	}
}

func (fg *funcGen) genFuncAddr(ex *ast.FuncAddrExpr) (ir.IrValue, ast.Type, *diag.Error) {
	candidates, ok := fg.overloadSet(ex.Name)
	if !ok {
		return ir.IrValue{}, nil, diag.New(ex.Loc(), "undefined function %q", ex.Name)
	}
	argTypes := make([]ir.IrType, len(ex.ArgTypes))
	for i, a := range ex.ArgTypes {
		t, err := typeresolve.ResolveType(a, fg.TypeMap, fg.Generator, nil)
		if err != nil {
			return ir.IrValue{}, nil, err
		}
		argTypes[i] = t
	}
	for _, c := range candidates {
		if len(c.ArgTypes) != len(argTypes) {
			continue
		}
		match := true
		for i := range argTypes {
			if !ir.TypesEqual(c.ArgTypes[i], argTypes[i]) {
				match = false
				break
			}
		}
		if !match {
			continue
		}
		fpType := ir.FuncPtrType{Args: c.ArgTypes, Return: fg.Module.Func(c.IrFuncID).Return}
		v := fg.b.BuildFuncAddress(fg.Module.Func(c.IrFuncID).Name, c.IrFuncID, true, ir.PtrType{Of: fpType})
		return v, &ast.PointerType{Of: &ast.FuncPtrType{Args: ex.ArgTypes, Return: returnAstType(c.Func)}}, nil
	}
	return ir.IrValue{}, nil, diag.New(ex.Loc(), "no overload of %q matches the requested signature", ex.Name)
}

func (fg *funcGen) genInitializerList(ex *ast.InitializerListExpr, scope *ir.Scope) (ir.IrValue, ast.Type, *diag.Error) {
	values := make([]ir.IrValue, len(ex.Elements))
	allConst := true
	var elemAst ast.Type
	for i, e := range ex.Elements {
		v, at, err := fg.genExpr(e, false, scope)
		if err != nil {
			return ir.IrValue{}, nil, err
		}
		values[i] = v
		elemAst = at
		if !fg.b.IsConstant(v) {
			allConst = false
		}
	}
	var elemType ir.IrType = ir.Void
	if len(values) > 0 {
		elemType = values[0].Type
	}
	arrType := ir.FixedArrayType{Subtype: elemType, Length: uint64(len(values))}
	if allConst {
		return ir.IrValue{Type: arrType, Data: ir.ArrayLiteral{Values: values}}, &ast.FixedArrayType{Of: elemAst, Length: uint64(len(values))}, nil
	}
	slot := fg.b.BuildAlloc(arrType)
	for i, v := range values {
		idx := ir.IntLiteral(fg.Module.Common.Usize, uint64(i))
		elemPtr := fg.b.BuildArrayAccess(slot, idx, elemType, ir.SrcLoc{})
		fg.b.BuildStore(v, elemPtr, ir.SrcLoc{})
	}
	return fg.b.BuildLoad(slot, ir.SrcLoc{}), &ast.FixedArrayType{Of: elemAst, Length: uint64(len(values))}, nil
}

func (fg *funcGen) genStaticArray(ex *ast.StaticArrayExpr, scope *ir.Scope) (ir.IrValue, ast.Type, *diag.Error) {
	elemType, err := typeresolve.ResolveType(ex.ElementType, fg.TypeMap, fg.Generator, nil)
	if err != nil {
		return ir.IrValue{}, nil, err
	}
	values := make([]ir.IrValue, len(ex.Elements))
	for i, e := range ex.Elements {
		v, _, verr := fg.genExpr(e, false, scope)
		if verr != nil {
			return ir.IrValue{}, nil, verr
		}
		if cv, ok := typeresolve.Conform(v, elemType, typeresolve.ModeAssigning, fg.b, nil); ok {
			v = cv
		}
		values[i] = v
	}
	arrType := ir.FixedArrayType{Subtype: elemType, Length: uint64(len(values))}
	name := fg.nc.NextAnonName("static_array")
	idx := fg.Module.AddGlobal(ir.Global{
		Name: name, Type: arrType, IsConstant: true, HasInitial: true,
		Initial: ir.IrValue{Type: arrType, Data: ir.ArrayLiteral{Values: values}},
	})
	return ir.IrValue{Type: ir.PtrType{Of: arrType}, Data: ir.ConstAnonGlobal{ID: idx}},
		&ast.PointerType{Of: &ast.FixedArrayType{Of: ex.ElementType, Length: uint64(len(values))}}, nil
}

func (fg *funcGen) genStaticStruct(ex *ast.StaticStructExpr, scope *ir.Scope) (ir.IrValue, ast.Type, *diag.Error) {
	t, err := typeresolve.ResolveType(ex.Type, fg.TypeMap, fg.Generator, nil)
	if err != nil {
		return ir.IrValue{}, nil, err
	}
	st, ok := t.(ir.StructureType)
	if !ok {
		return ir.IrValue{}, nil, diag.New(ex.Loc(), "static struct literal target %s is not a struct", ir.TypeString(t))
	}
	values := make([]ir.IrValue, len(ex.Fields))
	for i, f := range ex.Fields {
		v, _, ferr := fg.genExpr(f, false, scope)
		if ferr != nil {
			return ir.IrValue{}, nil, ferr
		}
		if i < len(st.Subtypes) {
			if cv, ok := typeresolve.Conform(v, st.Subtypes[i], typeresolve.ModeAssigning, fg.b, nil); ok {
				v = cv
			}
		}
		values[i] = v
	}
	name := fg.nc.NextAnonName("static_struct")
	idx := fg.Module.AddGlobal(ir.Global{
		Name: name, Type: t, IsConstant: true, HasInitial: true,
		Initial: ir.IrValue{Type: t, Data: ir.StructLiteral{Values: values}},
	})
	return ir.IrValue{Type: ir.PtrType{Of: t}, Data: ir.ConstAnonGlobal{ID: idx}}, &ast.PointerType{Of: ex.Type}, nil
}

func (fg *funcGen) genStringLiteral(ex *ast.StrLiteralExpr) (ir.IrValue, ast.Type, *diag.Error) {
	bytes := []byte(ex.Value)
	strT := fg.Module.Common.StringStruct
	dataGlobal := fg.Module.AddGlobal(ir.Global{
		Name: fg.nc.NextAnonName("strdata"), Type: ir.FixedArrayType{Subtype: ir.U8, Length: uint64(len(bytes) + 1)},
		IsConstant: true, HasInitial: true,
		Initial: ir.IrValue{Data: ir.CStrOfLen{Bytes: append(bytes, 0), Size: uint64(len(bytes) + 1)}},
	})
	st, _ := strT.(ir.StructureType)
	structVal := ir.IrValue{Type: strT, Data: ir.StructLiteral{Values: []ir.IrValue{
		{Type: ir.OpaquePtr, Data: ir.ConstAnonGlobal{ID: dataGlobal}},
		ir.IntLiteral(ir.U64, uint64(len(bytes))),
		ir.IntLiteral(ir.U64, uint64(len(bytes))),
	}}}
	_ = st
	idx := fg.Module.AddGlobal(ir.Global{Name: fg.nc.NextAnonName("str"), Type: strT, IsConstant: true, HasInitial: true, Initial: structVal})
	slot := fg.b.BuildAlloc(strT)
	fg.b.BuildMemcpy(slot, ir.IrValue{Type: ir.OpaquePtr, Data: ir.ConstAnonGlobal{ID: idx}}, fg.b.BuildConstSizeof(strT), false)
	return fg.b.BuildLoad(slot, ir.SrcLoc{}), &ast.BaseType{Name: "String"}, nil
}
