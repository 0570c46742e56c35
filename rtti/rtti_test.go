package rtti

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arc-language/core-irgen/ast"
	"github.com/arc-language/core-irgen/ir"
	"github.com/arc-language/core-irgen/typeresolve"
)

func primitiveMap(t *testing.T) *typeresolve.Map {
	t.Helper()
	m := typeresolve.NewMap()
	m.SeedPrimitives()
	require.Nil(t, m.Sort())
	return m
}

// Build sorts and deduplicates the raw type table, assigning final indices
// in sorted-name order (spec.md §4.9, §8 "every rtti_for(τ) reference
// equals the index of τ's entry in the sorted table").
func TestBuildSortsAndDeduplicates(t *testing.T) {
	tm := primitiveMap(t)
	tt := &ast.TypeTable{Entries: []ast.TypeTableEntry{
		{Name: "int", Type: &ast.BaseType{Name: "int"}},
		{Name: "bool", Type: &ast.BaseType{Name: "bool"}},
		{Name: "int", Type: &ast.BaseType{Name: "int"}}, // duplicate, same name
	}}

	table, err := Build(tt, tm)
	require.Nil(t, err)
	require.Len(t, table.entries, 2)
	require.Equal(t, "bool", table.entries[0].name)
	require.Equal(t, "int", table.entries[1].name)
	require.Equal(t, 0, table.entries[0].index)
	require.Equal(t, 1, table.entries[1].index)
}

func TestBuildNilTableIsEmpty(t *testing.T) {
	tm := primitiveMap(t)
	table, err := Build(nil, tm)
	require.Nil(t, err)
	require.Empty(t, table.entries)
}

// Scenario 5 (spec.md §8): a relocation recorded before a type's final
// index is known is back-patched once the table is built.
func TestRttiForThenRelocatePatchesIndex(t *testing.T) {
	tm := primitiveMap(t)
	tt := &ast.TypeTable{Entries: []ast.TypeTableEntry{
		{Name: "bool", Type: &ast.BaseType{Name: "bool"}},
		{Name: "int", Type: &ast.BaseType{Name: "int"}},
	}}
	table, err := Build(tt, tm)
	require.Nil(t, err)

	slot := &ir.IrValue{Type: ir.U64, Data: ir.Literal{Bytes: make([]byte, 8)}}
	table.RttiFor("int", slot)

	m := ir.NewModule()
	require.Nil(t, table.Relocate(m))

	lit := slot.Data.(ir.Literal)
	require.Equal(t, uint64(1), leUint64(lit.Bytes))
}

func TestRelocateMissingTypeIsFatal(t *testing.T) {
	tm := primitiveMap(t)
	table, err := Build(&ast.TypeTable{}, tm)
	require.Nil(t, err)

	slot := &ir.IrValue{Data: ir.Literal{Bytes: make([]byte, 8)}}
	table.RttiFor("never_declared", slot)

	m := ir.NewModule()
	relErr := table.Relocate(m)
	require.NotNil(t, relErr)
}

func TestEmitGlobalsProducesTypesArray(t *testing.T) {
	tm := primitiveMap(t)
	tt := &ast.TypeTable{Entries: []ast.TypeTableEntry{
		{Name: "int", Type: &ast.BaseType{Name: "int"}},
		{Name: "bool", Type: &ast.BaseType{Name: "bool"}},
	}}
	table, err := Build(tt, tm)
	require.Nil(t, err)

	m := ir.NewModule()
	idx := table.EmitGlobals(m)

	typesGlobal := m.Globals[idx]
	require.Equal(t, "__types__", typesGlobal.Name)
	arr := typesGlobal.Type.(ir.FixedArrayType)
	require.Equal(t, uint64(2), arr.Length)

	lit := typesGlobal.Initial.Data.(ir.ArrayLiteral)
	require.Len(t, lit.Values, 2)
}

func leUint64(b []byte) uint64 {
	var v uint64
	for i := 7; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v
}
