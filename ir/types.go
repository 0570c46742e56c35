package ir

import "strings"

// TypeKind is the backend-facing tag for an IrType, sized exactly per
// spec.md §6 "Backend contract": Bool=1 bit, S8/U8=8, S16/U16=16,
// S32/U32=32, S64/U64=64, Half=16, Float=32, Double=64, Ptr/FuncPtr=64,
// Usize=64 (Usize is represented as U64 at the type level — see
// Module.Common.Usize).
type TypeKind int

const (
	KindNone TypeKind = iota
	KindPtr
	KindS8
	KindS16
	KindS32
	KindS64
	KindU8
	KindU16
	KindU32
	KindU64
	KindHalf
	KindFloat
	KindDouble
	KindBool
	KindVoid
	KindFuncPtr
	KindFixedArray
	KindStructure
	KindUnion
)

// SizeInBits reports the backend-mandated bit width of a scalar kind; it
// is meaningless (0) for FixedArray/Structure/Union, whose size depends on
// their subtypes.
func (k TypeKind) SizeInBits() int {
	switch k {
	case KindBool:
		return 1
	case KindS8, KindU8:
		return 8
	case KindS16, KindU16, KindHalf:
		return 16
	case KindS32, KindU32, KindFloat:
		return 32
	case KindS64, KindU64, KindDouble, KindPtr, KindFuncPtr:
		return 64
	default:
		return 0
	}
}

// TypeKindSizesInBits64 is the size-ordering table used by ternary-branch
// mutual widening (spec.md §4.5 "Ternary") to decide which of two
// differing arithmetic types is "wider".
var TypeKindSizesInBits64 = map[TypeKind]int{
	KindS8: 8, KindU8: 8,
	KindS16: 16, KindU16: 16, KindHalf: 16,
	KindS32: 32, KindU32: 32, KindFloat: 32,
	KindS64: 64, KindU64: 64, KindDouble: 64,
}

// Category buckets a scalar kind for arithmetic-operator selection
// (spec.md §4.5: "pick integer/float/unsigned-vs-signed variant per
// ir_type_category ∈ {SI, UI, FP, NA}").
type Category int

const (
	CategoryNA Category = iota
	CategorySI
	CategoryUI
	CategoryFP
)

func (k TypeKind) Category() Category {
	switch k {
	case KindS8, KindS16, KindS32, KindS64:
		return CategorySI
	case KindU8, KindU16, KindU32, KindU64, KindBool:
		return CategoryUI
	case KindHalf, KindFloat, KindDouble:
		return CategoryFP
	default:
		return CategoryNA
	}
}

// IrType is the IR type sum type (spec.md §3 "IR types"). Every variant
// implements Kind(); composite/pointer/array variants additionally expose
// their structure through type assertions, matching the "sum type with a
// method per variant" approach in DESIGN.md / spec.md §9.
type IrType interface {
	Kind() TypeKind
}

type scalarType struct{ kind TypeKind }

func (s scalarType) Kind() TypeKind { return s.kind }

var (
	None   IrType = scalarType{KindNone}
	S8     IrType = scalarType{KindS8}
	S16    IrType = scalarType{KindS16}
	S32    IrType = scalarType{KindS32}
	S64    IrType = scalarType{KindS64}
	U8     IrType = scalarType{KindU8}
	U16    IrType = scalarType{KindU16}
	U32    IrType = scalarType{KindU32}
	U64    IrType = scalarType{KindU64}
	Half   IrType = scalarType{KindHalf}
	Float  IrType = scalarType{KindFloat}
	Double IrType = scalarType{KindDouble}
	Bool   IrType = scalarType{KindBool}
	Void   IrType = scalarType{KindVoid}
)

// PtrType is `*Of`. Within composite layouts, Of is always S8 (the opaque
// `ptr` placeholder) to permit cyclic references; the true pointee type is
// reconstructed with a Bitcast at field-access time (spec.md §3, §9
// "Cyclic struct-field references").
type PtrType struct {
	Of IrType
}

func (PtrType) Kind() TypeKind { return KindPtr }

// OpaquePtr is the canonical `ptr` (`*S8`) used for cyclic composite
// fields and for generic byte pointers (malloc results before a real cast,
// variadic-array data pointers, etc).
var OpaquePtr = PtrType{Of: S8}

func IsOpaquePtr(t IrType) bool {
	p, ok := t.(PtrType)
	return ok && p.Of.Kind() == KindS8
}

type FuncPtrTraits uint32

const (
	FuncPtrVararg FuncPtrTraits = 1 << iota
	FuncPtrStdcall
)

type FuncPtrType struct {
	Args   []IrType
	Return IrType
	Traits FuncPtrTraits
}

func (FuncPtrType) Kind() TypeKind { return KindFuncPtr }

type FixedArrayType struct {
	Subtype IrType
	Length  uint64
}

func (FixedArrayType) Kind() TypeKind { return KindFixedArray }

type CompositeTraits uint32

const (
	TraitPacked CompositeTraits = 1 << iota
)

// StructureType and UnionType are named composites; Name is empty for
// anonymous layouts nested inline. Pointer-typed fields are always
// OpaquePtr here (see PtrType doc).
type StructureType struct {
	Name     string
	Subtypes []IrType
	Traits   CompositeTraits
}

func (StructureType) Kind() TypeKind { return KindStructure }

type UnionType struct {
	Name     string
	Subtypes []IrType
	Traits   CompositeTraits
}

func (UnionType) Kind() TypeKind { return KindUnion }

// TypesEqual performs a structural equality check used by the TypeMap
// during resolution/conforming; pointer-to-opaque-ptr and composite names
// are compared by identity (name) rather than deep structural recursion to
// avoid infinite loops on self-referential composites.
func TypesEqual(a, b IrType) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Kind() != b.Kind() {
		return false
	}
	switch av := a.(type) {
	case PtrType:
		bv := b.(PtrType)
		return TypesEqual(av.Of, bv.Of)
	case FuncPtrType:
		bv := b.(FuncPtrType)
		if av.Traits != bv.Traits || len(av.Args) != len(bv.Args) {
			return false
		}
		if !TypesEqual(av.Return, bv.Return) {
			return false
		}
		for i := range av.Args {
			if !TypesEqual(av.Args[i], bv.Args[i]) {
				return false
			}
		}
		return true
	case FixedArrayType:
		bv := b.(FixedArrayType)
		return av.Length == bv.Length && TypesEqual(av.Subtype, bv.Subtype)
	case StructureType:
		bv := b.(StructureType)
		if av.Name != "" || bv.Name != "" {
			return av.Name == bv.Name
		}
		return subtypesEqual(av.Subtypes, bv.Subtypes)
	case UnionType:
		bv := b.(UnionType)
		if av.Name != "" || bv.Name != "" {
			return av.Name == bv.Name
		}
		return subtypesEqual(av.Subtypes, bv.Subtypes)
	default:
		return true // scalar kinds already matched above
	}
}

func subtypesEqual(a, b []IrType) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !TypesEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}

// String renders a type the way ir_dump/ir_value_str would, used by
// Module.Dump and by diagnostics quoting a type back to the user.
func TypeString(t IrType) string {
	if t == nil {
		return "<nil>"
	}
	switch v := t.(type) {
	case scalarType:
		switch v.kind {
		case KindNone:
			return "none"
		case KindS8:
			return "s8"
		case KindS16:
			return "s16"
		case KindS32:
			return "s32"
		case KindS64:
			return "s64"
		case KindU8:
			return "u8"
		case KindU16:
			return "u16"
		case KindU32:
			return "u32"
		case KindU64:
			return "u64"
		case KindHalf:
			return "half"
		case KindFloat:
			return "float"
		case KindDouble:
			return "double"
		case KindBool:
			return "bool"
		case KindVoid:
			return "void"
		}
	case PtrType:
		return "*" + TypeString(v.Of)
	case FuncPtrType:
		var sb strings.Builder
		sb.WriteString("func(")
		for i, a := range v.Args {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(TypeString(a))
		}
		if v.Traits&FuncPtrVararg != 0 {
			sb.WriteString(", ...")
		}
		sb.WriteString(") ")
		sb.WriteString(TypeString(v.Return))
		return sb.String()
	case FixedArrayType:
		return "[" + itoa(v.Length) + "] " + TypeString(v.Subtype)
	case StructureType:
		if v.Name != "" {
			return v.Name
		}
		return "(struct " + joinTypes(v.Subtypes) + ")"
	case UnionType:
		if v.Name != "" {
			return v.Name
		}
		return "(union " + joinTypes(v.Subtypes) + ")"
	}
	return "?"
}

func joinTypes(ts []IrType) string {
	var sb strings.Builder
	for i, t := range ts {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(TypeString(t))
	}
	return sb.String()
}

func itoa(v uint64) string {
	if v == 0 {
		return "0"
	}
	digits := [20]byte{}
	i := len(digits)
	for v > 0 {
		i--
		digits[i] = byte('0' + v%10)
		v /= 10
	}
	return string(digits[i:])
}
