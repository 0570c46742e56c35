package ir

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// Dump is debugging/test tooling (spec.md's ir_dump.c counterpart); this
// exercises the common instruction shapes rather than asserting on the
// exact rendering, which is intentionally not format-stable.
func TestDumpRendersFunctionsBlocksAndInstrs(t *testing.T) {
	m := NewModule()
	f := IrFunc{Name: "add", Args: []IrType{S32, S32}, Return: S32}
	f.NewBlock()
	f.Blocks[0].Append(IrInstr{ResultType: S32, Data: BinaryInstr{
		Op: OpAdd,
		A:  IntLiteral(S32, 1),
		B:  IrValue{Type: S32, Data: Result{BlockID: 0, InstrID: 0}},
	}})
	f.Blocks[0].Append(IrInstr{Data: RetInstr{
		Value:    IrValue{Type: S32, Data: Result{BlockID: 0, InstrID: 0}},
		HasValue: true,
	}})
	m.AddFunc(f)

	out := m.Dump()
	require.True(t, strings.Contains(out, "func add(s32, s32) s32 {"))
	require.True(t, strings.Contains(out, "add "))
	require.True(t, strings.Contains(out, "ret "))
}

func TestDumpFallsBackToSpewForUnhandledInstrVariant(t *testing.T) {
	m := NewModule()
	f := IrFunc{Name: "weird", Return: Void}
	f.NewBlock()
	f.Blocks[0].Append(IrInstr{Data: StackSaveInstr{}})
	m.AddFunc(f)

	// StackSaveInstr has no dedicated dumpInstr case; it must not panic,
	// falling through to the spew.Sdump default instead.
	require.NotPanics(t, func() { m.Dump() })
}

func TestDumpValueVariants(t *testing.T) {
	require.Equal(t, "null", dumpValue(IrValue{Data: NullPtr{}}))
	require.Equal(t, "%2.3", dumpValue(IrValue{Data: Result{BlockID: 2, InstrID: 3}}))
}
