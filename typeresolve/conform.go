package typeresolve

import "github.com/arc-language/core-irgen/ir"

// Mode selects how strict conforming is, mirroring the source's several
// named conforming contexts (spec.md §4.2, §4.5, §4.6, §4.7):
//   - All: casts (`as`) — everything this package can do is permitted.
//   - Calculation: binary-operator operand conforming — widening only,
//     never narrowing, never pointer<->integer, never pointer<->pointer.
//   - Assigning: `x = y` — widening plus pointer-to-pointer bitcasts;
//     narrowing is refused.
//   - CallArgumentsLoose: function-call argument conforming — the same
//     conversions as Assigning, used by find_func_conforming's
//     per-candidate test (§4.6).
//
// In every mode a null literal conforms to any pointer type.
type Mode int

const (
	ModeAll Mode = iota
	ModeCalculation
	ModeAssigning
	ModeCallArgumentsLoose
)

// Emitter is the subset of builder operations the conforming engine needs
// to materialize a cast. Defined here (not imported from package builder)
// so builder can depend on typeresolve without typeresolve depending back
// on builder; *builder.Builder satisfies this structurally.
type Emitter interface {
	// ConstCast folds a cast over a compile-time constant without emitting
	// an instruction.
	ConstCast(op ir.CastOp, v ir.IrValue, to ir.IrType) ir.IrValue
	// EmitCast appends a runtime Cast instruction.
	EmitCast(op ir.CastOp, v ir.IrValue, to ir.IrType) ir.IrValue
	// IsConstant reports whether v's Data is a compile-time constant
	// variant (Literal, NullPtr, ConstSizeof, ...), the condition deciding
	// ConstCast vs EmitCast (spec.md §4.3 "cast builders choosing between
	// const_cast ... and instruction-emitting variants").
	IsConstant(v ir.IrValue) bool
}

// AsResolver looks up a user-defined `__as__(T) -> U` overload, the final
// fallback conforming tries before giving up in ModeAll (spec.md §4.5
// "Cast").
type AsResolver interface {
	ResolveAs(from, to ir.IrType) (ir.FuncPair, bool)
}

// Conform attempts to make v usable where a value of type `to` is
// expected, returning the (possibly cast) value and whether conforming
// succeeded. conform(x:T, to:T) is always a no-op identity (spec.md §8
// round-trip law), checked first regardless of mode.
func Conform(v ir.IrValue, to ir.IrType, mode Mode, em Emitter, as AsResolver) (ir.IrValue, bool) {
	if ir.TypesEqual(v.Type, to) {
		return v, true
	}

	if r, ok := conformPointer(v, to, mode, em); ok {
		return r, true
	}
	if r, ok := conformNumeric(v, to, mode, em); ok {
		return r, true
	}
	if mode == ModeAll && as != nil {
		if _, ok := as.ResolveAs(v.Type, to); ok {
			// Actual call emission is irgen's job (it owns argument
			// passing/__pass__ sequencing); conforming only reports that an
			// __as__ path exists so the caller can drive the call.
			return v, true
		}
	}
	return v, false
}

func conformPointer(v ir.IrValue, to ir.IrType, mode Mode, em Emitter) (ir.IrValue, bool) {
	toPtr, toIsPtr := to.(ir.PtrType)
	if !toIsPtr {
		return v, false
	}
	switch v.Data.(type) {
	case ir.NullPtr, ir.NullPtrOfType:
		// A bare null literal conforms to any pointer type in every mode
		// (spec.md §4.2 "pointer<->pointer"); CallArgumentsLoose depends on
		// exactly this to let `nil` satisfy any pointer parameter.
		return ir.IrValue{Type: to, Data: ir.NullPtrOfType{}}, true
	}
	fromPtr, fromIsPtr := v.Type.(ir.PtrType)
	if !fromIsPtr {
		return v, false
	}
	if mode == ModeCalculation {
		// Binary operators never implicitly reinterpret pointer types.
		return v, false
	}
	_ = fromPtr
	if em == nil {
		return v, false
	}
	if em.IsConstant(v) {
		return em.ConstCast(ir.CastBitcast, v, toPtr), true
	}
	return em.EmitCast(ir.CastBitcast, v, toPtr), true
}

// conformNumeric implements int<->float widening/narrowing (spec.md
// §4.2, §4.5 "pick integer/float/unsigned-vs-signed variant"). Widening
// (same Category, larger SizeInBits, or SI/UI -> FP) is permitted in every
// mode; narrowing and cross-category reinterpretation require ModeAll.
func conformNumeric(v ir.IrValue, to ir.IrType, mode Mode, em Emitter) (ir.IrValue, bool) {
	fromCat := v.Type.Kind().Category()
	toCat := to.Kind().Category()
	if fromCat == ir.CategoryNA || toCat == ir.CategoryNA {
		return v, false
	}
	fromBits := ir.TypeKindSizesInBits64[v.Type.Kind()]
	toBits := ir.TypeKindSizesInBits64[to.Kind()]

	widening := (fromCat == toCat && toBits >= fromBits) ||
		(fromCat != ir.CategoryFP && toCat == ir.CategoryFP)

	if !widening && mode != ModeAll {
		return v, false
	}

	op := numericCastOp(fromCat, toCat, widening)
	if em == nil {
		return v, false
	}
	if em.IsConstant(v) {
		return em.ConstCast(op, v, to), true
	}
	return em.EmitCast(op, v, to), true
}

func numericCastOp(from, to ir.Category, widening bool) ir.CastOp {
	switch {
	case from != ir.CategoryFP && to == ir.CategoryFP:
		if from == ir.CategorySI {
			return ir.CastSitofp
		}
		return ir.CastUitofp
	case from == ir.CategoryFP && to != ir.CategoryFP:
		if to == ir.CategorySI {
			return ir.CastFptosi
		}
		return ir.CastFptoui
	case from == ir.CategoryFP && to == ir.CategoryFP:
		if widening {
			return ir.CastFext
		}
		return ir.CastFtrunc
	default: // both integer categories
		if widening {
			if from == ir.CategorySI {
				return ir.CastSext
			}
			return ir.CastZext
		}
		return ir.CastTrunc
	}
}

// MutualWiden picks the wider of two arithmetic types for a ternary whose
// branches disagree (spec.md §4.5 "Ternary": "mutual widening ... using
// the size ordering from type_kind_sizes_in_bits_64").
func MutualWiden(a, b ir.IrType) (ir.IrType, bool) {
	ac, bc := a.Kind().Category(), b.Kind().Category()
	if ac == ir.CategoryNA || bc == ir.CategoryNA {
		return nil, false
	}
	if ac == ir.CategoryFP && bc != ir.CategoryFP {
		return a, true
	}
	if bc == ir.CategoryFP && ac != ir.CategoryFP {
		return b, true
	}
	if ir.TypeKindSizesInBits64[a.Kind()] >= ir.TypeKindSizesInBits64[b.Kind()] {
		return a, true
	}
	return b, true
}
