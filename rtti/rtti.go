// Package rtti builds the `__types__` runtime-type-information table and
// resolves the relocation pass that back-patches table-index references
// recorded during generation (spec.md §3 "Type table (TypeTable) and
// RTTI", §4.9).
package rtti

import (
	"sort"

	"github.com/arc-language/core-irgen/ast"
	"github.com/arc-language/core-irgen/diag"
	"github.com/arc-language/core-irgen/ir"
	"github.com/arc-language/core-irgen/typeresolve"
)

// entry is one row of the reduced, sorted type table: a unique type name,
// its resolved IrType, and the final index assigned once sorted.
type entry struct {
	name  string
	typ   ir.IrType
	index int
}

// Reloc is one pending back-patch: a pool-owned literal whose bytes must
// be overwritten with typeName's final table index once the table is
// sorted (spec.md §3 "rtti_for(ast_type) returns an IrValue whose integer
// payload is later back-patched ... via the relocation list").
type Reloc struct {
	typeName string
	slot     *ir.IrValue
}

// Table is the reduced, deduplicated AST type table plus its outstanding
// relocations.
type Table struct {
	entries []entry
	byName  map[string]int
	relocs  []Reloc
}

// Build performs type_table_reduce: sort by name, deduplicate, assign
// final indices (spec.md §4.9, §8 "every rtti_for(τ) reference equals the
// index of τ's entry in the sorted table").
func Build(tt *ast.TypeTable, tm *typeresolve.Map) (*Table, *diag.Error) {
	t := &Table{byName: map[string]int{}}
	if tt == nil {
		return t, nil
	}
	names := make([]string, 0, len(tt.Entries))
	seen := map[string]ast.Type{}
	for _, e := range tt.Entries {
		if _, ok := seen[e.Name]; !ok {
			seen[e.Name] = e.Type
			names = append(names, e.Name)
		}
	}
	sort.Strings(names)
	for i, name := range names {
		irT, err := typeresolve.ResolveType(seen[name], tm, nil, nil)
		if err != nil {
			return nil, err
		}
		t.entries = append(t.entries, entry{name: name, typ: irT, index: i})
		t.byName[name] = i
	}
	return t, nil
}

// RttiFor records a relocation for typeName against slot; Relocate later
// patches slot with the type's final sorted index. slot must be a
// pool-owned pointer holding an 8-byte Literal: Relocate writes the index
// into that Literal's Bytes in place, so every IrValue already copied from
// *slot shares the same backing array and sees the patched index.
func (t *Table) RttiFor(typeName string, slot *ir.IrValue) {
	t.relocs = append(t.relocs, Reloc{typeName: typeName, slot: slot})
}

// EmitGlobals builds one anonymous global per table entry (a stand-in
// `*AnyType`-shaped descriptor — this module does not replicate the
// original's full AnyType/AnyCompositeType/AnyPtrType/AnyFuncPtrType/
// AnyFixedArrayType variant layouts byte-for-byte, since their exact field
// order is a backend-contract detail; see DESIGN.md) plus the top-level
// `__types__` constant array of pointers to them, and returns its global
// index.
func (t *Table) EmitGlobals(m *ir.Module) int {
	descType := ir.StructureType{Name: "AnyType", Subtypes: []ir.IrType{ir.U8, ir.U64}} // {kind, size}
	ptrs := make([]ir.IrValue, len(t.entries))
	for i, e := range t.entries {
		kind := uint64(e.typ.Kind())
		g := ir.Global{
			Name:       namesGlobal(e.name),
			Type:       descType,
			IsConstant: true,
			HasInitial: true,
			Initial: ir.IrValue{Type: descType, Data: ir.StructLiteral{Values: []ir.IrValue{
				ir.IntLiteral(ir.U8, kind),
				ir.IntLiteral(ir.U64, uint64(ir.TypeKindSizesInBits64[e.typ.Kind()])),
			}}},
		}
		idx := m.AddGlobal(g)
		ptrs[i] = ir.IrValue{Type: ir.OpaquePtr, Data: ir.ConstAnonGlobal{ID: idx}}
	}
	arrType := ir.FixedArrayType{Subtype: ir.OpaquePtr, Length: uint64(len(ptrs))}
	arrGlobal := ir.Global{
		Name:       "__types__",
		Type:       arrType,
		IsConstant: true,
		HasInitial: true,
		Initial:    ir.IrValue{Type: arrType, Data: ir.ArrayLiteral{Values: ptrs}},
	}
	return m.AddGlobal(arrGlobal)
}

func namesGlobal(typeName string) string {
	return "__type_desc__." + typeName
}

// Relocate back-patches every deferred rtti_for slot with its type's
// final sorted index (spec.md §4.9 "missing types are fatal").
func (t *Table) Relocate(m *ir.Module) *diag.Error {
	for _, r := range t.relocs {
		idx, ok := t.byName[r.typeName]
		if !ok {
			return diag.New(ast.NoLocation, "rtti relocation: type %q never entered the type table", r.typeName)
		}
		patched := leBytes(uint64(idx))
		if lit, ok := r.slot.Data.(ir.Literal); ok && len(lit.Bytes) == len(patched) {
			copy(lit.Bytes, patched)
			continue
		}
		r.slot.Data = ir.Literal{Bytes: patched}
	}
	return nil
}

func leBytes(v uint64) []byte {
	b := make([]byte, 8)
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
	return b
}
