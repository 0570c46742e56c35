// Package mgmt resolves and auto-generates the four lifetime-management
// methods — __defer__, __pass__, __assign__, __access__ — a type may
// define (spec.md §4.4).
package mgmt

import (
	"fmt"
	"sort"

	"golang.org/x/exp/slices"

	"github.com/arc-language/core-irgen/ast"
	"github.com/arc-language/core-irgen/ir"
)

// entry is one row of the sorted method-lookup table: a (type name,
// management method) pair to its resolved (ast, ir) function ids (spec.md
// §5 "methods (sorted)").
type entry struct {
	typeName string
	method   ir.ManagementMethod
	pair     ir.FuncPair
}

// Registry is the module-wide management-method lookup table plus its
// tri-state cache (spec.md §4.4 "Auto-generation cache (sf_cache)",
// §5 "methods (sorted)"). Methods register themselves here as irgen
// produces each function's skeleton; Resolve never mutates the sorted
// slice mid-search — new registrations append then re-sort, matching
// "re-sorted iff preserve_sortedness is set during incremental insertion"
// (spec.md §5).
type Registry struct {
	entries []entry
	sorted  bool
	Cache   *ir.SfCache
}

func NewRegistry() *Registry {
	return &Registry{Cache: ir.NewSfCache()}
}

// Register records a user-defined or autogenerated implementation of
// method for typeName.
func (r *Registry) Register(typeName string, method ir.ManagementMethod, pair ir.FuncPair) {
	r.entries = append(r.entries, entry{typeName, method, pair})
	r.sorted = false
	r.Cache.SetPresent(typeName, method, pair)
}

// MarkAbsent caches a definitive negative result (no user definition, no
// aggregate field needs it) so repeated lookups for the same (type,
// method) never re-walk the AST.
func (r *Registry) MarkAbsent(typeName string, method ir.ManagementMethod) {
	r.Cache.SetAbsent(typeName, method)
}

func (r *Registry) ensureSorted() {
	if r.sorted {
		return
	}
	sort.SliceStable(r.entries, func(i, j int) bool {
		if r.entries[i].typeName != r.entries[j].typeName {
			return r.entries[i].typeName < r.entries[j].typeName
		}
		return r.entries[i].method < r.entries[j].method
	})
	r.sorted = true
}

// Resolve looks up an already-registered implementation: it consults
// Cache first, then re-derives the FuncPair from the sorted table. It does
// not attempt autogeneration (see Autogen).
func (r *Registry) Resolve(typeName string, method ir.ManagementMethod) (ir.FuncPair, bool) {
	if fp, ok := r.Cache.Lookup(typeName, method); ok {
		return fp, true
	}
	r.ensureSorted()
	key := entry{typeName: typeName, method: method}
	i, ok := slices.BinarySearchFunc(r.entries, key, func(e, k entry) int {
		if e.typeName != k.typeName {
			if e.typeName < k.typeName {
				return -1
			}
			return 1
		}
		if e.method != k.method {
			if e.method < k.method {
				return -1
			}
			return 1
		}
		return 0
	})
	if !ok {
		return ir.FuncPair{}, false
	}
	return r.entries[i].pair, true
}

// FieldProbe answers "does this field's type have method", recursing
// through nested aggregates. irgen supplies it, since only irgen knows how
// to walk from an ir.IrType/ast.Composite back to that type's own
// Registry entry (composite field types are already resolved IrTypes by
// the time autogen runs; named composites' AST definitions live in
// irgen's NameContext).
type FieldProbe func(fieldType ir.IrType, method ir.ManagementMethod) (ir.FuncPair, bool)

// AutogenResult is a synthesized management-method function, ready to be
// appended to the AST function list and pushed onto the job list like any
// other function (spec.md §4.8 "the generated AST function is inserted and
// its body is produced during its body-generation job").
type AutogenResult struct {
	Func        *ast.Func
	NeedsMethod bool // false => no field needs it; caller should MarkAbsent instead
}

// Autogen builds the synthetic function for composite/method, or reports
// that none is needed. The synthesized body is plain AST: one
// MethodCallExpr per field that needs the method, in declaration order
// for __defer__/__pass__/__assign__ (reverse order is only a __defer__
// *scope-exit* concern, not a field-construction-order concern — fields
// destruct in the same order they were declared, per the source's
// generated-function shape).
func Autogen(composite *ast.Composite, fieldTypes []ir.IrType, fieldNames []string, method ir.ManagementMethod, probe FieldProbe) AutogenResult {
	var calls []ast.Stmt
	anyField := false
	for i, ft := range fieldTypes {
		if _, ok := probe(ft, method); ok {
			anyField = true
			calls = append(calls, fieldMethodCallStmt(fieldNames[i], method))
		}
	}
	if !anyField {
		return AutogenResult{NeedsMethod: false}
	}

	selfParam := ast.Param{Name: "self", Type: &ast.PointerType{Of: &ast.BaseType{Name: composite.Name}}}
	f := &ast.Func{
		Name:       method.String(),
		ReturnType: &ast.BaseType{Name: "void"},
		Args:       []ast.Param{selfParam},
		Arity:      1,
		Body:       calls,
		DefinitionString: fmt.Sprintf("autogenerated %s for %s", method.String(), composite.Name),
	}
	return AutogenResult{Func: f, NeedsMethod: true}
}

// fieldMethodCallStmt builds `self.field.__method__()` as a bare
// expression statement — the shape every autogenerated management method
// body reduces to, one statement per field needing the call.
func fieldMethodCallStmt(fieldName string, method ir.ManagementMethod) ast.Stmt {
	subject := &ast.MemberExpr{Subject: &ast.VariableExpr{Name: "self"}, Field: fieldName}
	call := &ast.MethodCallExpr{Subject: subject, Name: method.String()}
	return &ast.ExprStmt{Value: call}
}
