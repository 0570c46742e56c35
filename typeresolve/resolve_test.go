package typeresolve

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arc-language/core-irgen/ast"
	"github.com/arc-language/core-irgen/ir"
)

func TestResolveTypeBaseType(t *testing.T) {
	m := primitiveMap(t)
	got, err := ResolveType(&ast.BaseType{Name: "int"}, m, nil, nil)
	require.Nil(t, err)
	require.Equal(t, ir.S32, got)
}

func TestResolveTypePeelsPointerAndArrayLayers(t *testing.T) {
	m := primitiveMap(t)
	ty := &ast.PointerType{Of: &ast.FixedArrayType{Length: 4, Of: &ast.BaseType{Name: "int"}}}
	got, err := ResolveType(ty, m, nil, nil)
	require.Nil(t, err)
	require.Equal(t, ir.PtrType{Of: ir.FixedArrayType{Subtype: ir.S32, Length: 4}}, got)
}

func TestResolveTypeUndeclaredNameSuggestsNearest(t *testing.T) {
	m := primitiveMap(t)
	_, err := ResolveType(&ast.BaseType{Name: "itn"}, m, nil, nil)
	require.NotNil(t, err)
	require.Equal(t, []string{"int"}, err.Candidates)
}

func TestResolveTypeFuncPtrCarriesTraits(t *testing.T) {
	m := primitiveMap(t)
	ty := &ast.FuncPtrType{
		Args:   []ast.Type{&ast.BaseType{Name: "int"}},
		Return: &ast.BaseType{Name: "bool"},
		Vararg: true,
	}
	got, err := ResolveType(ty, m, nil, nil)
	require.Nil(t, err)
	fp := got.(ir.FuncPtrType)
	require.Equal(t, ir.FuncPtrVararg, fp.Traits)
	require.Equal(t, []ir.IrType{ir.S32}, fp.Args)
	require.Equal(t, ir.Bool, fp.Return)
}

// A fixed-array length bound to a polymorphic count parameter resolves only
// once a Catalog supplies the binding (spec.md §4.2, DESIGN.md
// "Catalog-aware ResolveType peel loop").
func TestResolveTypeFixedArrayWithCountParamRequiresCatalog(t *testing.T) {
	m := primitiveMap(t)
	ty := &ast.FixedArrayType{LengthParam: "N", Of: &ast.BaseType{Name: "int"}}

	_, err := ResolveType(ty, m, nil, nil)
	require.NotNil(t, err)

	cat := &Catalog{Counts: map[string]uint64{"N": 8}}
	got, err := ResolveType(ty, m, nil, cat)
	require.Nil(t, err)
	require.Equal(t, ir.FixedArrayType{Subtype: ir.S32, Length: 8}, got)
}

func TestResolveTypePolyTypeBoundByCatalog(t *testing.T) {
	m := primitiveMap(t)
	cat := &Catalog{Types: map[string]ast.Type{"T": &ast.BaseType{Name: "bool"}}}
	got, err := ResolveType(&ast.PolyType{Name: "T"}, m, nil, cat)
	require.Nil(t, err)
	require.Equal(t, ir.Bool, got)
}

func TestResolveTypePolyTypeUnboundIsError(t *testing.T) {
	m := primitiveMap(t)
	_, err := ResolveType(&ast.PolyType{Name: "T"}, m, nil, nil)
	require.NotNil(t, err)
}

// LowerBone's defining rule: a pointer-typed field inside a composite
// layout always lowers to the opaque `ptr`, permitting cyclic references
// (spec.md §9 "Cyclic struct-field references").
func TestLowerBoneStructWithCyclicPointerField(t *testing.T) {
	m := primitiveMap(t)
	bone := &ast.Bone{
		Kind: ast.BoneStruct,
		Name: "Node",
		Children: []ast.Bone{
			{Kind: ast.BoneType, Name: "value", Single: &ast.BaseType{Name: "int"}},
			{Kind: ast.BoneType, Name: "next", Single: &ast.PointerType{Of: &ast.BaseType{Name: "Node"}}},
		},
	}
	got, err := LowerBone(bone, m, nil, nil)
	require.Nil(t, err)
	st := got.(ir.StructureType)
	require.Equal(t, ir.S32, st.Subtypes[0])
	require.True(t, ir.IsOpaquePtr(st.Subtypes[1]))
}

func TestLowerBonePackedUnion(t *testing.T) {
	m := primitiveMap(t)
	bone := &ast.Bone{
		Kind:   ast.BoneUnion,
		Packed: true,
		Children: []ast.Bone{
			{Kind: ast.BoneType, Single: &ast.BaseType{Name: "int"}},
			{Kind: ast.BoneType, Single: &ast.BaseType{Name: "bool"}},
		},
	}
	got, err := LowerBone(bone, m, nil, nil)
	require.Nil(t, err)
	un := got.(ir.UnionType)
	require.Equal(t, ir.TraitPacked, un.Traits)
}

// fakeTemplates implements Templates for a single polymorphic composite,
// enough to exercise resolve_type's GenericType path without pulling in
// the full irgen driver.
type fakeTemplates struct {
	pc ast.PolymorphicComposite
}

func (f fakeTemplates) PolymorphicComposite(name string) (ast.PolymorphicComposite, bool) {
	if name == f.pc.Name {
		return f.pc, true
	}
	return ast.PolymorphicComposite{}, false
}

func TestResolveTypeGenericComposite(t *testing.T) {
	m := primitiveMap(t)
	pc := ast.PolymorphicComposite{
		Name:       "Pair",
		TypeParams: []string{"T"},
		Layout: &ast.Bone{
			Kind: ast.BoneStruct,
			Name: "Pair",
			Children: []ast.Bone{
				{Kind: ast.BoneType, Name: "a", Single: &ast.PolyType{Name: "T"}},
				{Kind: ast.BoneType, Name: "b", Single: &ast.PolyType{Name: "T"}},
			},
		},
	}
	tmpl := fakeTemplates{pc: pc}

	got, err := ResolveType(&ast.GenericType{Name: "Pair", Args: []ast.Type{&ast.BaseType{Name: "bool"}}}, m, tmpl, nil)
	require.Nil(t, err)
	st := got.(ir.StructureType)
	require.Equal(t, ir.Bool, st.Subtypes[0])
	require.Equal(t, ir.Bool, st.Subtypes[1])
}

func TestResolveTypeGenericCompositeArityMismatch(t *testing.T) {
	m := primitiveMap(t)
	pc := ast.PolymorphicComposite{Name: "Pair", TypeParams: []string{"T"}, Layout: &ast.Bone{Kind: ast.BoneType, Single: &ast.PolyType{Name: "T"}}}
	tmpl := fakeTemplates{pc: pc}

	_, err := ResolveType(&ast.GenericType{Name: "Pair", Args: nil}, m, tmpl, nil)
	require.NotNil(t, err)
}
