package typeresolve

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arc-language/core-irgen/ir"
)

// fakeEmitter is a minimal Emitter recording which path (const vs runtime
// cast) conforming chose, without needing a real builder/pool.
type fakeEmitter struct {
	constCasts int
	runtCasts  int
}

func (f *fakeEmitter) ConstCast(op ir.CastOp, v ir.IrValue, to ir.IrType) ir.IrValue {
	f.constCasts++
	return ir.IrValue{Type: to, Data: v.Data}
}

func (f *fakeEmitter) EmitCast(op ir.CastOp, v ir.IrValue, to ir.IrType) ir.IrValue {
	f.runtCasts++
	return ir.IrValue{Type: to, Data: ir.Result{BlockID: 0, InstrID: f.runtCasts}}
}

func (f *fakeEmitter) IsConstant(v ir.IrValue) bool {
	switch v.Data.(type) {
	case ir.Literal, ir.NullPtr, ir.NullPtrOfType:
		return true
	default:
		return false
	}
}

// conform(x:T, to:T) is a no-op identity (spec.md §8 round-trip law).
func TestConformIdentityIsNoOp(t *testing.T) {
	em := &fakeEmitter{}
	v := ir.IntLiteral(ir.S32, 5)
	got, ok := Conform(v, ir.S32, ModeAll, em, nil)
	require.True(t, ok)
	require.Equal(t, v, got)
	require.Equal(t, 0, em.constCasts+em.runtCasts)
}

func TestConformNullLiteralToAnyPointerType(t *testing.T) {
	em := &fakeEmitter{}
	v := ir.IrValue{Type: ir.OpaquePtr, Data: ir.NullPtr{}}
	got, ok := Conform(v, ir.PtrType{Of: ir.S32}, ModeCallArgumentsLoose, em, nil)
	require.True(t, ok)
	require.Equal(t, ir.PtrType{Of: ir.S32}, got.Type)
	require.IsType(t, ir.NullPtrOfType{}, got.Data)
}

func TestConformPointerCalculationModeRefused(t *testing.T) {
	em := &fakeEmitter{}
	v := ir.IrValue{Type: ir.PtrType{Of: ir.S32}, Data: ir.Result{BlockID: 0, InstrID: 1}}
	_, ok := Conform(v, ir.PtrType{Of: ir.Bool}, ModeCalculation, em, nil)
	require.False(t, ok)
}

func TestConformPointerBitcastInAssigningMode(t *testing.T) {
	em := &fakeEmitter{}
	v := ir.IrValue{Type: ir.PtrType{Of: ir.S32}, Data: ir.Result{BlockID: 0, InstrID: 1}}
	got, ok := Conform(v, ir.PtrType{Of: ir.Bool}, ModeAssigning, em, nil)
	require.True(t, ok)
	require.Equal(t, ir.PtrType{Of: ir.Bool}, got.Type)
	require.Equal(t, 1, em.runtCasts)
}

func TestConformNumericWideningPermittedInCalculationMode(t *testing.T) {
	em := &fakeEmitter{}
	v := ir.IntLiteral(ir.S8, 3)
	got, ok := Conform(v, ir.S32, ModeCalculation, em, nil)
	require.True(t, ok)
	require.Equal(t, ir.S32, got.Type)
	require.Equal(t, 1, em.constCasts)
}

func TestConformNumericNarrowingRefusedOutsideAll(t *testing.T) {
	em := &fakeEmitter{}
	v := ir.IntLiteral(ir.S32, 3)
	_, ok := Conform(v, ir.S8, ModeCalculation, em, nil)
	require.False(t, ok)

	got, ok := Conform(v, ir.S8, ModeAll, em, nil)
	require.True(t, ok)
	require.Equal(t, ir.S8, got.Type)
}

func TestConformIntToFloatIsWidening(t *testing.T) {
	em := &fakeEmitter{}
	v := ir.IntLiteral(ir.S32, 3)
	got, ok := Conform(v, ir.Float, ModeCalculation, em, nil)
	require.True(t, ok)
	require.Equal(t, ir.Float, got.Type)
}

type fakeAsResolver struct {
	has bool
}

func (f fakeAsResolver) ResolveAs(from, to ir.IrType) (ir.FuncPair, bool) {
	if f.has {
		return ir.FuncPair{AstFuncID: 1, IrFuncID: 1}, true
	}
	return ir.FuncPair{}, false
}

// __as__ is only consulted as the final fallback in ModeAll (spec.md §4.5
// "Cast").
func TestConformFallsBackToUserDefinedAsInAllModeOnly(t *testing.T) {
	em := &fakeEmitter{}
	structTy := ir.StructureType{Name: "Widget"}
	v := ir.IrValue{Type: structTy, Data: ir.Result{BlockID: 0, InstrID: 1}}

	_, ok := Conform(v, ir.S32, ModeCalculation, em, fakeAsResolver{has: true})
	require.False(t, ok, "__as__ must not be consulted outside ModeAll")

	_, ok = Conform(v, ir.S32, ModeAll, em, fakeAsResolver{has: false})
	require.False(t, ok)

	_, ok = Conform(v, ir.S32, ModeAll, em, fakeAsResolver{has: true})
	require.True(t, ok)
}

func TestMutualWidenPrefersFloatOverInt(t *testing.T) {
	got, ok := MutualWiden(ir.S32, ir.Float)
	require.True(t, ok)
	require.Equal(t, ir.Float, got)
}

func TestMutualWidenPicksLargerSize(t *testing.T) {
	got, ok := MutualWiden(ir.S8, ir.S64)
	require.True(t, ok)
	require.Equal(t, ir.S64, got)
}

func TestMutualWidenRefusesNonArithmetic(t *testing.T) {
	_, ok := MutualWiden(ir.PtrType{Of: ir.S32}, ir.S32)
	require.False(t, ok)
}
