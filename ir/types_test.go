package ir

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTypesEqualScalars(t *testing.T) {
	require.True(t, TypesEqual(S32, S32))
	require.False(t, TypesEqual(S32, U32))
}

func TestTypesEqualPointer(t *testing.T) {
	a := PtrType{Of: S32}
	b := PtrType{Of: S32}
	c := PtrType{Of: S64}
	require.True(t, TypesEqual(a, b))
	require.False(t, TypesEqual(a, c))
}

// Named composites compare by name identity, not structural recursion,
// to avoid infinite loops on self-referential composites (ir/types.go
// TypesEqual doc).
func TestTypesEqualNamedCompositeByIdentity(t *testing.T) {
	a := StructureType{Name: "Node", Subtypes: []IrType{OpaquePtr}}
	b := StructureType{Name: "Node", Subtypes: []IrType{S32}} // deliberately mismatched body
	c := StructureType{Name: "Other", Subtypes: []IrType{OpaquePtr}}
	require.True(t, TypesEqual(a, b))
	require.False(t, TypesEqual(a, c))
}

func TestTypesEqualAnonymousCompositeStructural(t *testing.T) {
	a := StructureType{Subtypes: []IrType{S32, Bool}}
	b := StructureType{Subtypes: []IrType{S32, Bool}}
	c := StructureType{Subtypes: []IrType{S32, S32}}
	require.True(t, TypesEqual(a, b))
	require.False(t, TypesEqual(a, c))
}

func TestTypeKindSizeInBits(t *testing.T) {
	require.Equal(t, 1, KindBool.SizeInBits())
	require.Equal(t, 8, KindS8.SizeInBits())
	require.Equal(t, 64, KindPtr.SizeInBits())
	require.Equal(t, 0, KindStructure.SizeInBits())
}

func TestCategoryBuckets(t *testing.T) {
	require.Equal(t, CategorySI, KindS32.Category())
	require.Equal(t, CategoryUI, KindU32.Category())
	require.Equal(t, CategoryFP, KindFloat.Category())
	require.Equal(t, CategoryNA, KindPtr.Category())
}

func TestIsOpaquePtr(t *testing.T) {
	require.True(t, IsOpaquePtr(OpaquePtr))
	require.False(t, IsOpaquePtr(PtrType{Of: S32}))
	require.False(t, IsOpaquePtr(S32))
}

func TestTypeStringRendersNestedTypes(t *testing.T) {
	arr := FixedArrayType{Subtype: PtrType{Of: S32}, Length: 4}
	require.Equal(t, "[4] *s32", TypeString(arr))

	fp := FuncPtrType{Args: []IrType{S32, Bool}, Return: Void, Traits: FuncPtrVararg}
	require.Equal(t, "func(s32, bool, ...) void", TypeString(fp))
}
