// Package typeresolve builds the AST→IR type mapping table and implements
// resolve_type and the multi-mode conforming/coercion engine (spec.md
// §4.2).
package typeresolve

import (
	"fmt"
	"sort"

	"github.com/agnivade/levenshtein"
	"golang.org/x/exp/slices"

	"github.com/arc-language/core-irgen/ast"
	"github.com/arc-language/core-irgen/diag"
	"github.com/arc-language/core-irgen/ir"
)

// Entry is one row of the type mapping table: a name and the IrType it
// resolves to, plus every source location that named it (used only for
// the duplicate-name diagnostic).
type Entry struct {
	Name      string
	Type      ir.IrType
	Locations []ast.Location
}

// Map is the built, sorted type mapping table (spec.md §3 "Type table",
// §4.2 "Build phase"). Composite entries start as skeletons (Type left
// nil) appended during the seed pass, then filled in by Fill once every
// name is known — composite layouts can reference each other and even
// themselves via pointer fields. Enum entries are seeded with their final
// type.
type Map struct {
	entries []Entry
	sorted  bool
}

func NewMap() *Map {
	return &Map{}
}

// seedName appends (or, if name already exists, records an additional
// location for) an entry. Used both for primitives and for the
// composite/enum skeleton pass; duplicate detection happens in Sort, once
// every name has been seen.
func (m *Map) seedName(name string, t ir.IrType, loc ast.Location) {
	m.entries = append(m.entries, Entry{Name: name, Type: t, Locations: []ast.Location{loc}})
	m.sorted = false
}

// SeedPrimitives appends the 16 canonical primitives in ast.PrimitiveTypeNames
// order (spec.md §4.2 "Build phase"; names and order taken from the
// original's builtin_type.c, see SPEC_FULL.md §5).
func (m *Map) SeedPrimitives() {
	table := map[string]ir.IrType{
		"byte": ir.S8, "ubyte": ir.U8,
		"short": ir.S16, "ushort": ir.U16,
		"int": ir.S32, "uint": ir.U32,
		"long": ir.S64, "ulong": ir.U64,
		"half": ir.Half, "float": ir.Float, "double": ir.Double,
		"bool": ir.Bool,
		"ptr":  ir.OpaquePtr,
		// usize's concrete backing kind is 64-bit per the backend contract
		// (spec.md §6); "successful" is the source language's boolean-ish
		// result alias and shares Bool's representation.
		"usize":      ir.U64,
		"successful": ir.Bool,
		"void":       ir.Void,
	}
	for _, name := range ast.PrimitiveTypeNames {
		t, ok := table[name]
		if !ok {
			diag.Internal("typeresolve: no IR mapping registered for primitive %q", name)
		}
		m.seedName(name, t, ast.NoLocation)
	}
}

// SeedComposite appends a skeleton entry (Type nil) for a later-filled
// composite or enum. Enums are seeded fully formed (kind U64) since they
// never participate in cyclic layouts.
func (m *Map) SeedComposite(name string, loc ast.Location) {
	m.seedName(name, nil, loc)
}

func (m *Map) SeedEnum(name string, loc ast.Location) {
	m.seedName(name, ir.U64, loc)
}

// Fill sets the resolved IrType for an already-seeded composite skeleton.
func (m *Map) Fill(name string, t ir.IrType) {
	for i := range m.entries {
		if m.entries[i].Name == name {
			m.entries[i].Type = t
			return
		}
	}
	diag.Internal("typeresolve: Fill on unseeded name %q", name)
}

// Sort enforces name uniqueness (spec.md §8 "For all TypeMap entries,
// names are unique") and sorts the table for binary-search lookup
// (spec.md §5 "mapping tables are sorted immediately after bulk
// emission"). Collisions are merged into one Entry carrying every
// colliding location, and Sort returns a diag.Error naming all of them.
func (m *Map) Sort() *diag.Error {
	sort.SliceStable(m.entries, func(i, j int) bool { return m.entries[i].Name < m.entries[j].Name })

	merged := m.entries[:0:0]
	var dup *diag.Error
	for i := 0; i < len(m.entries); {
		j := i + 1
		for j < len(m.entries) && m.entries[j].Name == m.entries[i].Name {
			j++
		}
		if j-i > 1 {
			var locs []ast.Location
			for k := i; k < j; k++ {
				locs = append(locs, m.entries[k].Locations...)
			}
			m.entries[i].Locations = locs
			e := diag.New(locs[0], "type name %q declared %d times", m.entries[i].Name, j-i)
			var candidateStrs []string
			for _, l := range locs {
				candidateStrs = append(candidateStrs, l.String())
			}
			e = e.WithCandidates(candidateStrs)
			if dup == nil {
				dup = e
			}
		}
		merged = append(merged, m.entries[i])
		i = j
	}
	m.entries = merged
	m.sorted = true
	if dup != nil {
		return dup
	}
	return nil
}

// Lookup binary-searches the sorted table by name.
func (m *Map) Lookup(name string) (ir.IrType, bool) {
	if !m.sorted {
		diag.Internal("typeresolve: Lookup before Sort")
	}
	i, ok := slices.BinarySearchFunc(m.entries, name, func(e Entry, name string) int {
		switch {
		case e.Name < name:
			return -1
		case e.Name > name:
			return 1
		default:
			return 0
		}
	})
	if !ok {
		return nil, false
	}
	return m.entries[i].Type, true
}

// NearestName finds the closest-spelled existing name within edit
// distance <= 3 (spec.md §4.5 "Variable" — undefined-name diagnostics
// suggest the nearest name found this way).
func (m *Map) NearestName(name string) (string, bool) {
	best := ""
	bestDist := 4
	for _, e := range m.entries {
		d := levenshtein.ComputeDistance(name, e.Name)
		if d < bestDist {
			bestDist = d
			best = e.Name
		}
	}
	if bestDist > 3 {
		return "", false
	}
	return best, true
}

// StringStructType validates that the seeded `String` composite matches
// the required layout `{*ubyte, usize, usize, StringOwnership}` (spec.md
// §4.2) and returns it for caching into Module.Common.StringStruct. It
// checks the field count and the first three field types; the fourth
// field's type is not checked.
func (m *Map) StringStructType() (ir.IrType, *diag.Error) {
	t, ok := m.Lookup("String")
	if !ok {
		return nil, diag.New(ast.NoLocation, "prerequisite composite %q is not declared", "String")
	}
	st, ok := t.(ir.StructureType)
	if !ok || len(st.Subtypes) != 4 {
		return nil, diag.New(ast.NoLocation, "%q must be a 4-field struct matching {*ubyte, usize, usize, StringOwnership}", "String")
	}
	if !ir.TypesEqual(st.Subtypes[0], ir.OpaquePtr) {
		return nil, diag.New(ast.NoLocation, "%q field 0 must be *ubyte", "String")
	}
	if !ir.TypesEqual(st.Subtypes[1], ir.U64) || !ir.TypesEqual(st.Subtypes[2], ir.U64) {
		return nil, diag.New(ast.NoLocation, "%q fields 1 and 2 must be usize", "String")
	}
	return t, nil
}

func (e Entry) String() string {
	return fmt.Sprintf("%s -> %s", e.Name, ir.TypeString(e.Type))
}
