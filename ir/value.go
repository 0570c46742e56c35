package ir

import (
	"encoding/binary"
	"math"
)

// IrValue is an operand: a typed reference to either a compile-time
// constant or a previously computed instruction result (spec.md §3 "IR
// values"). The variant is itself a sum type (ValueData), so callers
// switch on concrete Go type rather than an out-of-band tag — matching
// DESIGN.md's guidance to remove "hundreds of pointer casts".
type IrValue struct {
	Type IrType
	Data ValueData
}

type ValueData interface {
	isValueData()
}

// Literal is a typed constant stored as its raw little-endian bytes,
// mirroring how the original packs scalar constants.
type Literal struct {
	Bytes []byte
}

func (Literal) isValueData() {}

// Result references a prior instruction's output by (block, instruction)
// index — the SSA-style "use" edge.
type Result struct {
	BlockID int
	InstrID int
}

func (Result) isValueData() {}

type NullPtr struct{}

func (NullPtr) isValueData() {}

// NullPtrOfType is a null pointer whose static type is a specific pointee
// (distinguished from the generic NullPtr used before a target type is
// known, e.g. during conforming).
type NullPtrOfType struct{}

func (NullPtrOfType) isValueData() {}

type ArrayLiteral struct {
	Values []IrValue
}

func (ArrayLiteral) isValueData() {}

type StructLiteral struct {
	Values []IrValue
}

func (StructLiteral) isValueData() {}

// StructConstruction is a runtime insertvalue sequence: unlike
// StructLiteral (all-constant fields), at least one field is itself a
// non-constant Result and must be assembled with a chain of Member/Store
// instructions at emission time.
type StructConstruction struct {
	Values []IrValue
}

func (StructConstruction) isValueData() {}

type AnonGlobal struct {
	ID int
}

func (AnonGlobal) isValueData() {}

type ConstAnonGlobal struct {
	ID int
}

func (ConstAnonGlobal) isValueData() {}

// CStrOfLen is a nul-terminated-or-not byte string literal of a known
// size, deduplicated by content when building String literals.
type CStrOfLen struct {
	Bytes []byte
	Size  uint64
}

func (CStrOfLen) isValueData() {}

type FuncAddr struct {
	IrFuncID int
}

func (FuncAddr) isValueData() {}

// ArgRef is the Nth incoming parameter of the function currently being
// built, read directly (no instruction produces it — the backend lowers
// it to the calling convention's Nth argument slot).
type ArgRef struct {
	Index int
}

func (ArgRef) isValueData() {}

type FuncAddrByName struct {
	Name string
}

func (FuncAddrByName) isValueData() {}

type ConstSizeof struct {
	Type IrType
}

func (ConstSizeof) isValueData() {}

type ConstAlignof struct {
	Type IrType
}

func (ConstAlignof) isValueData() {}

type Offsetof struct {
	Type  IrType
	Index int
}

func (Offsetof) isValueData() {}

type ConstAdd struct {
	A, B *IrValue
}

func (ConstAdd) isValueData() {}

// CastOp enumerates the constant-cast family folded into one variant
// (ConstCast) rather than twelve near-identical struct types — the
// distinguishing behavior lives entirely in how the backend interprets
// Op, exactly as it does for runtime Cast instructions (see instr.go).
type CastOp int

const (
	CastBitcast CastOp = iota
	CastZext
	CastSext
	CastFext
	CastTrunc
	CastFtrunc
	CastInttoptr
	CastPtrtoint
	CastFptoui
	CastFptosi
	CastUitofp
	CastSitofp
	CastReinterpret
)

type ConstCast struct {
	Op    CastOp
	Value *IrValue
}

func (ConstCast) isValueData() {}

// --- literal builders ---

func litBytes(n uint64, size int) []byte {
	b := make([]byte, size)
	switch size {
	case 1:
		b[0] = byte(n)
	case 2:
		binary.LittleEndian.PutUint16(b, uint16(n))
	case 4:
		binary.LittleEndian.PutUint32(b, uint32(n))
	case 8:
		binary.LittleEndian.PutUint64(b, n)
	}
	return b
}

// IntLiteral builds a typed integer constant. t must be a scalar integer
// IrType (S8..U64, Bool).
func IntLiteral(t IrType, v uint64) IrValue {
	size := t.Kind().SizeInBits() / 8
	if size == 0 {
		size = 1
	}
	return IrValue{Type: t, Data: Literal{Bytes: litBytes(v, size)}}
}

func FloatLiteral32(v float32) IrValue {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, math.Float32bits(v))
	return IrValue{Type: Float, Data: Literal{Bytes: b}}
}

func FloatLiteral64(v float64) IrValue {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, math.Float64bits(v))
	return IrValue{Type: Double, Data: Literal{Bytes: b}}
}

func BoolLiteral(v bool) IrValue {
	if v {
		return IntLiteral(Bool, 1)
	}
	return IntLiteral(Bool, 0)
}
