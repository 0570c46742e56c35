package ast

// Type is the AST-level representation of a written type. It mirrors the
// source language's surface syntax closely enough that resolve_type (see
// the typeresolve package) can map it onto an ir.IrType without losing
// information the middle-end needs (polymorph placeholders, fixed-array
// lengths expressed as count-polymorphs, etc).
type Type interface {
	isAstType()
}

// BaseType is a plain named type: a primitive ("int", "bool", "ptr", ...),
// a composite, or an enum, looked up by name in the TypeMap.
type BaseType struct {
	Name string
}

func (*BaseType) isAstType() {}

// PointerType is `*Of`.
type PointerType struct {
	Of Type
}

func (*PointerType) isAstType() {}

// FixedArrayType is `[Length] Of`. Inside a polymorphic template the
// length may instead be a count-variable reference: LengthParam holds its
// name (`$#N` without the sigil) and Length is ignored until the catalog
// binds it, either by resolve_type_polymorphics rewriting the template's
// AST during function instantiation or by ResolveType consulting the
// active Catalog directly for a polymorphic composite's bone tree.
type FixedArrayType struct {
	Length      uint64
	LengthParam string // "" => Length is already concrete
	Of          Type
}

func (*FixedArrayType) isAstType() {}

// FuncPtrType is a function-pointer type `func(Args) Return`.
type FuncPtrType struct {
	Args    []Type
	Return  Type
	Vararg  bool
	Stdcall bool
}

func (*FuncPtrType) isAstType() {}

// GenericType is `<Args...> Name`, a reference to a polymorphic composite
// template instantiated with concrete type/count arguments.
type GenericType struct {
	Name string
	Args []Type
}

func (*GenericType) isAstType() {}

// AnonLayoutType is an anonymous struct/union written inline in a type
// position, e.g. `( a int, b bool )`.
type AnonLayoutType struct {
	Layout *Bone
}

func (*AnonLayoutType) isAstType() {}

// PolyType is `$T`, a type-variable reference inside a polymorphic
// function/composite template body.
type PolyType struct {
	Name string
}

func (*PolyType) isAstType() {}

// PolyCountType is `$#N` used directly as a type, a count-variable
// reference; ResolveTypePolymorphics replaces a bound one with usize. A
// count that sets a fixed array's length is carried in
// FixedArrayType.LengthParam instead.
type PolyCountType struct {
	Name string
}

func (*PolyCountType) isAstType() {}

// Bone is one node of a composite's layout tree (see typeresolve's
// "Layout bones → IR type" conversion rules).
type Bone struct {
	// Exactly one of Single/Children is set, discriminated by Kind.
	Kind     BoneKind
	Single   Type   // BoneType
	Children []Bone // BoneStruct / BoneUnion
	Packed   bool   // BoneStruct / BoneUnion
	Name     string // field name, when this bone is a named struct/union member
}

type BoneKind int

const (
	BoneType BoneKind = iota
	BoneStruct
	BoneUnion
)

// Primitive type names seeded into every TypeMap before composites/enums
// are appended (spec.md §4.2 "Build phase"), carried over from the
// original's UTIL/builtin_type.c table rather than re-derived.
var PrimitiveTypeNames = []string{
	"byte", "ubyte", "short", "ushort", "int", "uint",
	"long", "ulong", "half", "float", "double", "bool",
	"ptr", "usize", "successful", "void",
}
