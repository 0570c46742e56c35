package irgen

import (
	"github.com/arc-language/core-irgen/ast"
	"github.com/arc-language/core-irgen/diag"
	"github.com/arc-language/core-irgen/ir"
	"github.com/arc-language/core-irgen/mgmt"
	"github.com/arc-language/core-irgen/typeresolve"
)

// resolveMgmt resolves typeName's implementation of method, auto-generating
// it from field types the first time it is needed (spec.md §4.4 "Auto-
// generation cache", §4.8 testable property #6) instead of treating "not
// registered yet" as "doesn't exist" the way a bare Registry.Resolve would.
// Every scope-exit/assign/method-call site that dispatches a management
// method goes through here.
func (fg *funcGen) resolveMgmt(typeName string, method ir.ManagementMethod) (ir.FuncPair, bool) {
	if fp, ok := fg.Methods.Resolve(typeName, method); ok {
		return fp, true
	}
	if fg.Methods.Cache.Get(typeName, method) == ir.SfAbsent {
		return ir.FuncPair{}, false
	}

	composite, ok := fg.compositeByName(typeName)
	if !ok {
		fg.Methods.MarkAbsent(typeName, method)
		return ir.FuncPair{}, false
	}
	fieldTypes, fieldNames, ferr := fg.compositeFields(composite)
	if ferr != nil {
		fg.Methods.MarkAbsent(typeName, method)
		return ir.FuncPair{}, false
	}

	result := mgmt.Autogen(composite, fieldTypes, fieldNames, method, func(ft ir.IrType, m ir.ManagementMethod) (ir.FuncPair, bool) {
		fieldTypeName := structNameOf(ir.PtrType{Of: ft})
		if fieldTypeName == "" {
			return ir.FuncPair{}, false
		}
		return fg.resolveMgmt(fieldTypeName, m)
	})
	if !result.NeedsMethod {
		fg.Methods.MarkAbsent(typeName, method)
		return ir.FuncPair{}, false
	}

	result.Func.ID = ast.FuncID(len(fg.ast.Funcs))
	fg.ast.Funcs = append(fg.ast.Funcs, result.Func)
	diag.Log.WithField("type", typeName).WithField("method", method.String()).Debug("autogenerating management method")

	candidate, herr := fg.funcHead(result.Func)
	if herr != nil {
		fg.Methods.MarkAbsent(typeName, method)
		return ir.FuncPair{}, false
	}
	pair := ir.FuncPair{AstFuncID: int(candidate.AstFuncID), IrFuncID: candidate.IrFuncID}
	fg.Methods.Register(typeName, method, pair)
	return pair, true
}

func (fg *funcGen) compositeByName(name string) (*ast.Composite, bool) {
	for _, c := range fg.ast.Composites {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// compositeFields resolves a declared composite's direct field types and
// names, the input mgmt.Autogen needs to decide which fields need the
// method (spec.md §4.4).
func (fg *funcGen) compositeFields(c *ast.Composite) ([]ir.IrType, []string, *diag.Error) {
	if c.Layout == nil || (c.Layout.Kind != ast.BoneStruct && c.Layout.Kind != ast.BoneUnion) {
		return nil, nil, diag.New(ast.NoLocation, "composite %q has no field layout", c.Name)
	}
	types := make([]ir.IrType, len(c.Layout.Children))
	names := make([]string, len(c.Layout.Children))
	for i := range c.Layout.Children {
		child := &c.Layout.Children[i]
		t, err := typeresolve.LowerBone(child, fg.TypeMap, fg.Generator, nil)
		if err != nil {
			return nil, nil, err
		}
		types[i] = t
		names[i] = child.Name
	}
	return types, names, nil
}
