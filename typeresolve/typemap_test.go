package typeresolve

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arc-language/core-irgen/ast"
	"github.com/arc-language/core-irgen/ir"
)

func primitiveMap(t *testing.T) *Map {
	t.Helper()
	m := NewMap()
	m.SeedPrimitives()
	require.Nil(t, m.Sort())
	return m
}

func TestMapSeedPrimitivesLookup(t *testing.T) {
	m := primitiveMap(t)
	ty, ok := m.Lookup("int")
	require.True(t, ok)
	require.Equal(t, ir.S32, ty)

	ty, ok = m.Lookup("usize")
	require.True(t, ok)
	require.Equal(t, ir.U64, ty)

	_, ok = m.Lookup("nope")
	require.False(t, ok)
}

// spec.md §8 "For all TypeMap entries, names are unique (duplicate name ⇒
// compile error)".
func TestMapSortDetectsDuplicateNames(t *testing.T) {
	m := NewMap()
	m.SeedPrimitives()
	m.SeedComposite("Widget", ast.Location{Filename: "a.lang", Line: 1})
	m.SeedComposite("Widget", ast.Location{Filename: "b.lang", Line: 2})

	err := m.Sort()
	require.NotNil(t, err)
	require.Contains(t, err.Message, "Widget")
	require.Len(t, err.Candidates, 2)
}

func TestMapNearestNameSuggestsWithinEditDistance(t *testing.T) {
	m := primitiveMap(t)
	name, ok := m.NearestName("intt") // one extra char, distance 1 from "int"
	require.True(t, ok)
	require.Equal(t, "int", name)

	_, ok = m.NearestName("completely_unrelated_name")
	require.False(t, ok)
}

func TestStringStructTypeValidatesLayout(t *testing.T) {
	m := NewMap()
	m.SeedPrimitives()
	m.SeedComposite("String", ast.NoLocation)
	require.Nil(t, m.Sort())

	ownership := ir.U8 // stand-in for StringOwnership's backing kind
	m.Fill("String", ir.StructureType{Name: "String", Subtypes: []ir.IrType{
		ir.OpaquePtr, ir.U64, ir.U64, ownership,
	}})

	got, err := m.StringStructType()
	require.Nil(t, err)
	require.Equal(t, "String", got.(ir.StructureType).Name)
}

func TestStringStructTypeRejectsWrongShape(t *testing.T) {
	m := NewMap()
	m.SeedPrimitives()
	m.SeedComposite("String", ast.NoLocation)
	require.Nil(t, m.Sort())
	m.Fill("String", ir.StructureType{Name: "String", Subtypes: []ir.IrType{ir.U64}})

	_, err := m.StringStructType()
	require.NotNil(t, err)
}
