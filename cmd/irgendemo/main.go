// Command irgendemo assembles a small ast.Ast by hand and drives it
// through irgen.Generate, mirroring the teacher's examples/main.go (which
// built IR directly with core-builder's builder API and fed it to
// core-codegen). Here the input is one level further back — a hand-built
// AST — since this module's job is the AST-to-IR step itself.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/arc-language/core-irgen/ast"
	"github.com/arc-language/core-irgen/backend/llvmlower"
	"github.com/arc-language/core-irgen/diag"
	"github.com/arc-language/core-irgen/irgen"
	"github.com/arc-language/core-irgen/options"
)

func main() {
	verbose := flag.Bool("v", false, "enable debug tracing of job-list draining and instantiation")
	flag.Parse()
	diag.SetVerbose(*verbose)

	obj := &ast.Object{AST: buildFibonacciAst(), Filename: "fibonacci.demo"}
	module, genErr := irgen.Generate(obj, options.Default())
	if genErr != nil {
		fmt.Fprintln(os.Stderr, genErr.Error())
		os.Exit(1)
	}

	fmt.Println(module.Dump())

	llvmModule, err := llvmlower.Lower(module)
	if err != nil {
		fmt.Fprintf(os.Stderr, "backend-contract demo lowering failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(llvmModule.String())
}

// buildFibonacciAst builds: recursive `fibonacci(n int) int` plus a
// `main` that calls it, the same demonstration program as the teacher's
// exampleFibonacci, expressed as AST input instead of built IR.
func buildFibonacciAst() *ast.Ast {
	intType := &ast.BaseType{Name: "int"}

	nVar := &ast.VariableExpr{Name: "n"}
	cond := &ast.BinaryExpr{Op: ast.OpLe, LHS: nVar, RHS: &ast.IntLiteralExpr{Value: 1, TypeName: "int"}}

	recurse := &ast.BinaryExpr{
		Op: ast.OpAdd,
		LHS: &ast.CallExpr{Name: "fibonacci", Args: []ast.Expr{
			&ast.BinaryExpr{Op: ast.OpSub, LHS: nVar, RHS: &ast.IntLiteralExpr{Value: 1, TypeName: "int"}},
		}},
		RHS: &ast.CallExpr{Name: "fibonacci", Args: []ast.Expr{
			&ast.BinaryExpr{Op: ast.OpSub, LHS: nVar, RHS: &ast.IntLiteralExpr{Value: 2, TypeName: "int"}},
		}},
	}

	fib := &ast.Func{
		ID:         0,
		Name:       "fibonacci",
		ReturnType: intType,
		Args:       []ast.Param{{Name: "n", Type: intType}},
		Arity:      1,
		Body: []ast.Stmt{
			&ast.IfElseStmt{
				Cond: cond,
				Then: []ast.Stmt{&ast.ReturnStmt{Value: nVar}},
				Else: []ast.Stmt{&ast.ReturnStmt{Value: recurse}},
			},
		},
	}

	main := &ast.Func{
		ID:         1,
		Name:       "main",
		Traits:     ast.TraitMain,
		ReturnType: intType,
		Body: []ast.Stmt{
			&ast.ReturnStmt{Value: &ast.CallExpr{Name: "fibonacci", Args: []ast.Expr{
				&ast.IntLiteralExpr{Value: 10, TypeName: "int"},
			}}},
		},
	}

	return &ast.Ast{
		Funcs: []*ast.Func{fib, main},
		Common: ast.AstCommon{
			UsizeType: &ast.BaseType{Name: "usize"},
			IntType:   intType,
			MainID:    1,
			HasMain:   true,
		},
		TypeTable: &ast.TypeTable{},
	}
}
