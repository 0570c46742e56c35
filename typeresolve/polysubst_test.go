package typeresolve

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arc-language/core-irgen/ast"
)

func TestResolveTypePolymorphicsSubstitutesTypeVar(t *testing.T) {
	cat := &Catalog{Types: map[string]ast.Type{"T": &ast.BaseType{Name: "bool"}}}
	got := ResolveTypePolymorphics(&ast.PointerType{Of: &ast.PolyType{Name: "T"}}, cat)
	want := &ast.PointerType{Of: &ast.BaseType{Name: "bool"}}
	require.Equal(t, want, got)
}

func TestResolveTypePolymorphicsSubstitutesCountIntoArrayLength(t *testing.T) {
	cat := &Catalog{Counts: map[string]uint64{"N": 16}}
	got := ResolveTypePolymorphics(&ast.FixedArrayType{LengthParam: "N", Of: &ast.BaseType{Name: "int"}}, cat)
	arr := got.(*ast.FixedArrayType)
	require.Equal(t, uint64(16), arr.Length)
	require.Equal(t, "", arr.LengthParam)
}

// A bound type-variable may itself need further substitution (e.g. bound
// to another generic type containing further poly references).
func TestResolveTypePolymorphicsRecursesIntoBoundGenericType(t *testing.T) {
	cat := &Catalog{Types: map[string]ast.Type{
		"T": &ast.GenericType{Name: "Box", Args: []ast.Type{&ast.PolyType{Name: "U"}}},
		"U": &ast.BaseType{Name: "int"},
	}}
	got := ResolveTypePolymorphics(&ast.PolyType{Name: "T"}, cat)
	want := &ast.GenericType{Name: "Box", Args: []ast.Type{&ast.BaseType{Name: "int"}}}
	require.Equal(t, want, got)
}

// A standalone count-parameter used directly as a type (not nested in a
// FixedArrayType length) resolves to usize once bound (DESIGN.md
// "polysubst.go / ResolveTypePolymorphics").
func TestResolveTypePolymorphicsStandaloneCountBecomesUsize(t *testing.T) {
	cat := &Catalog{Counts: map[string]uint64{"N": 4}}
	got := ResolveTypePolymorphics(&ast.PolyCountType{Name: "N"}, cat)
	require.Equal(t, &ast.BaseType{Name: "usize"}, got)
}

func TestResolveTypePolymorphicsUnboundLeftInPlace(t *testing.T) {
	cat := &Catalog{Types: map[string]ast.Type{}}
	got := ResolveTypePolymorphics(&ast.PolyType{Name: "T"}, cat)
	require.Equal(t, &ast.PolyType{Name: "T"}, got)
}

func TestResolveTypePolymorphicsStructBoneSubstitution(t *testing.T) {
	cat := &Catalog{Types: map[string]ast.Type{"T": &ast.BaseType{Name: "bool"}}}
	bone := &ast.Bone{
		Kind: ast.BoneStruct,
		Name: "Pair",
		Children: []ast.Bone{
			{Kind: ast.BoneType, Name: "a", Single: &ast.PolyType{Name: "T"}},
		},
	}
	got := ResolveTypePolymorphics(&ast.AnonLayoutType{Layout: bone}, cat)
	anon := got.(*ast.AnonLayoutType)
	require.Equal(t, &ast.BaseType{Name: "bool"}, anon.Layout.Children[0].Single)
}
