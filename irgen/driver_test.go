package irgen

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arc-language/core-irgen/ast"
	"github.com/arc-language/core-irgen/ir"
	"github.com/arc-language/core-irgen/options"
)

// stringComposite builds the `String` composite every generation run
// requires (typeresolve.Map.StringStructType), matching the layout spec.md
// §4.2 validates: {*ubyte, usize, usize, StringOwnership}.
func stringComposite() *ast.Composite {
	return &ast.Composite{
		Name: "String",
		Layout: &ast.Bone{
			Kind: ast.BoneStruct,
			Name: "String",
			Children: []ast.Bone{
				{Kind: ast.BoneType, Name: "data", Single: &ast.PointerType{Of: &ast.BaseType{Name: "ubyte"}}},
				{Kind: ast.BoneType, Name: "length", Single: &ast.BaseType{Name: "usize"}},
				{Kind: ast.BoneType, Name: "capacity", Single: &ast.BaseType{Name: "usize"}},
				{Kind: ast.BoneType, Name: "ownership", Single: &ast.BaseType{Name: "bool"}},
			},
		},
	}
}

func minimalOpts() options.Options {
	o := options.Default()
	o.Traits.NoTypeinfo = true // keep these tests focused on statement lowering, not RTTI
	return o
}

// Scenario 1 (spec.md §8 "Zero-init declaration"): `x int` lowers to one
// Alloc, one Zeroinit, variable x registered at id 0, scope
// first_var_id=0, following_var_id=1.
func TestGenerateZeroInitDeclaration(t *testing.T) {
	a := &ast.Ast{
		Composites: []*ast.Composite{stringComposite()},
		Funcs: []*ast.Func{
			{
				Name:       "main",
				Traits:     ast.TraitMain,
				ReturnType: &ast.BaseType{Name: "void"},
				Body: []ast.Stmt{
					&ast.DeclareStmt{Name: "x", Type: &ast.BaseType{Name: "int"}},
				},
			},
		},
	}

	mod, err := Generate(&ast.Object{AST: a}, minimalOpts())
	require.Nil(t, err)
	require.True(t, mod.Common.HasMain)

	f := mod.Func(mod.Common.IrMainID)
	require.Len(t, f.Blocks, 1)
	instrs := f.Blocks[0].Instrs
	require.Len(t, instrs, 4) // Alloc, Zeroinit, DeinitSvars (main's implicit return), Ret
	require.IsType(t, ir.AllocInstr{}, instrs[0].Data)
	require.IsType(t, ir.ZeroinitInstr{}, instrs[1].Data)
	require.IsType(t, ir.DeinitSvarsInstr{}, instrs[2].Data)
	require.IsType(t, ir.RetInstr{}, instrs[3].Data)
}

// Scenario 3 (spec.md §8 "Method dispatch with __pass__") has no test in
// this file or in mgmt_test.go; here we check the simpler, very common return-without-value-in-void-main path used by
// every other end-to-end scenario in this file.
func TestGenerateBareReturnInVoidMain(t *testing.T) {
	a := &ast.Ast{
		Composites: []*ast.Composite{stringComposite()},
		Funcs: []*ast.Func{
			{
				Name:       "main",
				Traits:     ast.TraitMain,
				ReturnType: &ast.BaseType{Name: "void"},
				Body:       []ast.Stmt{&ast.ReturnStmt{}},
			},
		},
	}
	mod, err := Generate(&ast.Object{AST: a}, minimalOpts())
	require.Nil(t, err)
	f := mod.Func(mod.Common.IrMainID)
	last := f.Blocks[0].Instrs[len(f.Blocks[0].Instrs)-1]
	require.IsType(t, ir.RetInstr{}, last.Data)
}

// A function that falls off the end without returning a value on a
// non-void signature is a hard error (spec.md §7 "user errors").
func TestGenerateMissingReturnIsError(t *testing.T) {
	a := &ast.Ast{
		Composites: []*ast.Composite{stringComposite()},
		Funcs: []*ast.Func{
			{
				Name:       "f",
				ReturnType: &ast.BaseType{Name: "int"},
			},
		},
	}
	_, err := Generate(&ast.Object{AST: a}, minimalOpts())
	require.NotNil(t, err)
}

// Scenario 4 (spec.md §8 "Exhaustive switch over enum E { A, B, C }"):
// a case list covering only A, B must fail with a diagnostic naming the
// missing `case E::C`.
func TestGenerateNonExhaustiveSwitchIsError(t *testing.T) {
	a := &ast.Ast{
		Composites: []*ast.Composite{stringComposite()},
		Enums:      []*ast.Enum{{Name: "E", Kinds: []string{"A", "B", "C"}}},
		Funcs: []*ast.Func{
			{
				Name:       "main",
				Traits:     ast.TraitMain,
				ReturnType: &ast.BaseType{Name: "void"},
				Body: []ast.Stmt{
					&ast.DeclareStmt{Name: "e", Type: &ast.BaseType{Name: "E"}},
					&ast.SwitchStmt{
						Value:      &ast.VariableExpr{Name: "e"},
						Exhaustive: true,
						Cases: []ast.SwitchCase{
							{Value: &ast.IntLiteralExpr{Value: 0, TypeName: "ulong"}},
							{Value: &ast.IntLiteralExpr{Value: 1, TypeName: "ulong"}},
						},
					},
				},
			},
		},
	}
	_, err := Generate(&ast.Object{AST: a}, minimalOpts())
	require.NotNil(t, err)
	require.Contains(t, err.Error(), "E::C")
}

// An exhaustive switch covering every enum kind succeeds.
func TestGenerateExhaustiveSwitchOK(t *testing.T) {
	a := &ast.Ast{
		Composites: []*ast.Composite{stringComposite()},
		Enums:      []*ast.Enum{{Name: "E", Kinds: []string{"A", "B", "C"}}},
		Funcs: []*ast.Func{
			{
				Name:       "main",
				Traits:     ast.TraitMain,
				ReturnType: &ast.BaseType{Name: "void"},
				Body: []ast.Stmt{
					&ast.DeclareStmt{Name: "e", Type: &ast.BaseType{Name: "E"}},
					&ast.SwitchStmt{
						Value:      &ast.VariableExpr{Name: "e"},
						Exhaustive: true,
						Cases: []ast.SwitchCase{
							{Value: &ast.IntLiteralExpr{Value: 0, TypeName: "ulong"}},
							{Value: &ast.IntLiteralExpr{Value: 1, TypeName: "ulong"}},
							{Value: &ast.IntLiteralExpr{Value: 2, TypeName: "ulong"}},
						},
					},
					&ast.ReturnStmt{},
				},
			},
		},
	}
	_, err := Generate(&ast.Object{AST: a}, minimalOpts())
	require.Nil(t, err)
}

// Duplicate case values are a hard compile error (spec.md §4.7 "Switch"
// — "case values must be constants and unique").
func TestGenerateDuplicateSwitchCaseIsError(t *testing.T) {
	a := &ast.Ast{
		Composites: []*ast.Composite{stringComposite()},
		Funcs: []*ast.Func{
			{
				Name:       "main",
				Traits:     ast.TraitMain,
				ReturnType: &ast.BaseType{Name: "void"},
				Body: []ast.Stmt{
					&ast.DeclareStmt{Name: "x", Type: &ast.BaseType{Name: "int"}},
					&ast.SwitchStmt{
						Value:      &ast.VariableExpr{Name: "x"},
						HasDefault: true,
						Default:    []ast.Stmt{&ast.ReturnStmt{}},
						Cases: []ast.SwitchCase{
							{Value: &ast.IntLiteralExpr{Value: 1, TypeName: "int"}, Body: []ast.Stmt{&ast.ReturnStmt{}}},
							{Value: &ast.IntLiteralExpr{Value: 1, TypeName: "int"}, Body: []ast.Stmt{&ast.ReturnStmt{}}},
						},
					},
				},
			},
		},
	}
	_, err := Generate(&ast.Object{AST: a}, minimalOpts())
	require.NotNil(t, err)
}

// A call to a TraitNoDiscard function lowered as a bare statement is a
// hard error (spec.md §4.6 "enforce DISALLOW/NO_DISCARD policies").
func TestGenerateNoDiscardCallAsStatementIsError(t *testing.T) {
	a := &ast.Ast{
		Composites: []*ast.Composite{stringComposite()},
		Funcs: []*ast.Func{
			{Name: "must_use", Traits: ast.TraitNoDiscard, ReturnType: &ast.BaseType{Name: "int"}, Arity: 0,
				Body: []ast.Stmt{&ast.ReturnStmt{Value: &ast.IntLiteralExpr{Value: 0, TypeName: "int"}}}},
			{
				Name: "main", Traits: ast.TraitMain, ReturnType: &ast.BaseType{Name: "void"},
				Body: []ast.Stmt{&ast.ExprStmt{Value: &ast.CallExpr{Name: "must_use"}}},
			},
		},
	}
	_, err := Generate(&ast.Object{AST: a}, minimalOpts())
	require.NotNil(t, err)
}

// The same call used for its value (not discarded) succeeds.
func TestGenerateNoDiscardCallAsValueOK(t *testing.T) {
	a := &ast.Ast{
		Composites: []*ast.Composite{stringComposite()},
		Funcs: []*ast.Func{
			{Name: "must_use", Traits: ast.TraitNoDiscard, ReturnType: &ast.BaseType{Name: "int"}, Arity: 0,
				Body: []ast.Stmt{&ast.ReturnStmt{Value: &ast.IntLiteralExpr{Value: 0, TypeName: "int"}}}},
			{
				Name: "main", Traits: ast.TraitMain, ReturnType: &ast.BaseType{Name: "void"},
				Body: []ast.Stmt{
					&ast.DeclareStmt{Name: "x", Type: &ast.BaseType{Name: "int"}, Value: &ast.CallExpr{Name: "must_use"}},
				},
			},
		},
	}
	_, err := Generate(&ast.Object{AST: a}, minimalOpts())
	require.Nil(t, err)
}

// A TraitDisallow function can never be called, regardless of whether its
// result is discarded (spec.md §4.6).
func TestGenerateDisallowedCallIsError(t *testing.T) {
	a := &ast.Ast{
		Composites: []*ast.Composite{stringComposite()},
		Funcs: []*ast.Func{
			{Name: "forbidden", Traits: ast.TraitDisallow, ReturnType: &ast.BaseType{Name: "void"}, Arity: 0},
			{
				Name: "main", Traits: ast.TraitMain, ReturnType: &ast.BaseType{Name: "void"},
				Body: []ast.Stmt{&ast.ExprStmt{Value: &ast.CallExpr{Name: "forbidden"}}},
			},
		},
	}
	_, err := Generate(&ast.Object{AST: a}, minimalOpts())
	require.NotNil(t, err)
}

// Duplicate type names are a hard compile error surfaced all the way
// through Generate (spec.md §8 "For all TypeMap entries, names are
// unique").
func TestGenerateDuplicateCompositeNameIsError(t *testing.T) {
	a := &ast.Ast{
		Composites: []*ast.Composite{
			stringComposite(),
			{Name: "Widget", Layout: &ast.Bone{Kind: ast.BoneStruct, Name: "Widget"}},
			{Name: "Widget", Layout: &ast.Bone{Kind: ast.BoneStruct, Name: "Widget"}},
		},
	}
	_, err := Generate(&ast.Object{AST: a}, minimalOpts())
	require.NotNil(t, err)
}
