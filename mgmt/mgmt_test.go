package mgmt

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arc-language/core-irgen/ast"
	"github.com/arc-language/core-irgen/ir"
)

func TestRegistryResolveAfterRegister(t *testing.T) {
	r := NewRegistry()
	r.Register("String", ir.MgmtDefer, ir.FuncPair{AstFuncID: 3, IrFuncID: 4})

	fp, ok := r.Resolve("String", ir.MgmtDefer)
	require.True(t, ok)
	require.Equal(t, ir.FuncPair{AstFuncID: 3, IrFuncID: 4}, fp)
}

func TestRegistryResolveMissingIsFalse(t *testing.T) {
	r := NewRegistry()
	_, ok := r.Resolve("Widget", ir.MgmtAssign)
	require.False(t, ok)
}

// Registrations out of sorted order must still resolve correctly once the
// table is (re-)sorted on demand (spec.md §5 "sorted ... re-sorted iff
// preserve_sortedness is set during incremental insertion").
func TestRegistrySortsAcrossMultipleTypes(t *testing.T) {
	r := NewRegistry()
	r.Register("Zebra", ir.MgmtDefer, ir.FuncPair{AstFuncID: 1, IrFuncID: 1})
	r.Register("Apple", ir.MgmtDefer, ir.FuncPair{AstFuncID: 2, IrFuncID: 2})
	r.Register("Apple", ir.MgmtAssign, ir.FuncPair{AstFuncID: 3, IrFuncID: 3})

	fp, ok := r.Resolve("Apple", ir.MgmtAssign)
	require.True(t, ok)
	require.Equal(t, 3, fp.AstFuncID)

	fp, ok = r.Resolve("Zebra", ir.MgmtDefer)
	require.True(t, ok)
	require.Equal(t, 1, fp.AstFuncID)
}

func TestMarkAbsentCachesNegativeResult(t *testing.T) {
	r := NewRegistry()
	r.MarkAbsent("Plain", ir.MgmtDefer)
	require.Equal(t, ir.SfAbsent, r.Cache.Get("Plain", ir.MgmtDefer))
	_, ok := r.Resolve("Plain", ir.MgmtDefer)
	require.False(t, ok)
}

// Autogen declines when no field needs the method, and the caller is
// expected to cache that as a definitive negative (spec.md §4.4 "if no
// field needs destruction, cache 'no-op' ... and skip").
func TestAutogenNoFieldsNeedMethod(t *testing.T) {
	composite := &ast.Composite{Name: "Point"}
	probe := func(ir.IrType, ir.ManagementMethod) (ir.FuncPair, bool) { return ir.FuncPair{}, false }

	res := Autogen(composite, []ir.IrType{ir.S32, ir.S32}, []string{"x", "y"}, ir.MgmtDefer, probe)
	require.False(t, res.NeedsMethod)
	require.Nil(t, res.Func)
}

// One field method call per field needing the method, in declaration order
// (spec.md §4.4 autogen policy; end-to-end scenario 6).
func TestAutogenGeneratesOneCallPerNeedyField(t *testing.T) {
	composite := &ast.Composite{Name: "Pair"}
	needy := map[string]bool{"a": true, "b": true}
	probe := func(ft ir.IrType, m ir.ManagementMethod) (ir.FuncPair, bool) {
		st, ok := ft.(ir.StructureType)
		if ok && needy[st.Name] {
			return ir.FuncPair{AstFuncID: 1, IrFuncID: 1}, true
		}
		return ir.FuncPair{}, false
	}

	fieldTypes := []ir.IrType{
		ir.StructureType{Name: "a"},
		ir.StructureType{Name: "b"},
	}
	res := Autogen(composite, fieldTypes, []string{"a", "b"}, ir.MgmtDefer, probe)
	require.True(t, res.NeedsMethod)
	require.NotNil(t, res.Func)
	require.Equal(t, "__defer__", res.Func.Name)
	require.Len(t, res.Func.Body, 2)

	for i, name := range []string{"a", "b"} {
		stmt := res.Func.Body[i].(*ast.ExprStmt)
		call := stmt.Value.(*ast.MethodCallExpr)
		require.Equal(t, "__defer__", call.Name)
		member := call.Subject.(*ast.MemberExpr)
		require.Equal(t, name, member.Field)
	}
}

func TestAutogenSkipsFieldsThatDontNeedMethod(t *testing.T) {
	composite := &ast.Composite{Name: "Mixed"}
	probe := func(ft ir.IrType, m ir.ManagementMethod) (ir.FuncPair, bool) {
		if ft.Kind() == ir.KindStructure {
			return ir.FuncPair{AstFuncID: 1, IrFuncID: 1}, true
		}
		return ir.FuncPair{}, false
	}
	fieldTypes := []ir.IrType{ir.S32, ir.StructureType{Name: "Needy"}}
	res := Autogen(composite, fieldTypes, []string{"n", "s"}, ir.MgmtPass, probe)
	require.True(t, res.NeedsMethod)
	require.Len(t, res.Func.Body, 1)
	stmt := res.Func.Body[0].(*ast.ExprStmt)
	call := stmt.Value.(*ast.MethodCallExpr)
	member := call.Subject.(*ast.MemberExpr)
	require.Equal(t, "s", member.Field)
}
