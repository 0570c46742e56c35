package irgen

import (
	"github.com/arc-language/core-irgen/ast"
	"github.com/arc-language/core-irgen/typeresolve"
)

// cloneStmts/cloneStmt/cloneExprs/cloneExpr implement the
// statement/expression half of resolve_type_polymorphics (spec.md §4.8):
// "walks every expression variant that contains types". Every node is
// rebuilt rather than mutated in place since a polymorphic template's AST
// is shared across however many instantiations a program ends up needing;
// nodes with no Type field of their own still need a fresh copy so their
// children can be independently substituted.

func cloneStmts(stmts []ast.Stmt, cat *typeresolve.Catalog) []ast.Stmt {
	if stmts == nil {
		return nil
	}
	out := make([]ast.Stmt, len(stmts))
	for i, s := range stmts {
		out[i] = cloneStmt(s, cat)
	}
	return out
}

func cloneExprs(exprs []ast.Expr, cat *typeresolve.Catalog) []ast.Expr {
	if exprs == nil {
		return nil
	}
	out := make([]ast.Expr, len(exprs))
	for i, e := range exprs {
		out[i] = cloneExpr(e, cat)
	}
	return out
}

func subst(t ast.Type, cat *typeresolve.Catalog) ast.Type {
	return typeresolve.ResolveTypePolymorphics(t, cat)
}

func cloneStmt(s ast.Stmt, cat *typeresolve.Catalog) ast.Stmt {
	if s == nil {
		return nil
	}
	var out ast.Stmt
	switch v := s.(type) {
	case *ast.ReturnStmt:
		out = &ast.ReturnStmt{Value: cloneExpr(v.Value, cat)}
	case *ast.DeclareStmt:
		out = &ast.DeclareStmt{
			Name: v.Name, Type: subst(v.Type, cat), Value: cloneExpr(v.Value, cat),
			CtorArgs: cloneExprs(v.CtorArgs, cat), Undef: v.Undef, POD: v.POD,
		}
	case *ast.AssignStmt:
		out = &ast.AssignStmt{Dest: cloneExpr(v.Dest, cat), Value: cloneExpr(v.Value, cat), POD: v.POD}
	case *ast.CompoundAssignStmt:
		out = &ast.CompoundAssignStmt{Op: v.Op, Dest: cloneExpr(v.Dest, cat), Value: cloneExpr(v.Value, cat)}
	case *ast.IfStmt:
		out = &ast.IfStmt{Cond: cloneExpr(v.Cond, cat), Body: cloneStmts(v.Body, cat), Unless: v.Unless}
	case *ast.IfElseStmt:
		out = &ast.IfElseStmt{
			Cond: cloneExpr(v.Cond, cat), Then: cloneStmts(v.Then, cat), Else: cloneStmts(v.Else, cat), Unless: v.Unless,
		}
	case *ast.WhileStmt:
		out = &ast.WhileStmt{Cond: cloneExpr(v.Cond, cat), Body: cloneStmts(v.Body, cat), Label: v.Label, Until: v.Until}
	case *ast.WhileContinueStmt:
		out = &ast.WhileContinueStmt{Cond: cloneExpr(v.Cond, cat), Body: cloneStmts(v.Body, cat), Label: v.Label}
	case *ast.UntilBreakStmt:
		out = &ast.UntilBreakStmt{Cond: cloneExpr(v.Cond, cat), Body: cloneStmts(v.Body, cat), Label: v.Label}
	case *ast.EachInStmt:
		out = &ast.EachInStmt{
			ItName: v.ItName, IdxName: v.IdxName, Subject: cloneExpr(v.Subject, cat),
			Length: cloneExpr(v.Length, cat),
			Body:   cloneStmts(v.Body, cat), Static: v.Static, Label: v.Label,
		}
	case *ast.RepeatStmt:
		out = &ast.RepeatStmt{IdxName: v.IdxName, Limit: cloneExpr(v.Limit, cat), Body: cloneStmts(v.Body, cat), Label: v.Label}
	case *ast.SwitchStmt:
		cases := make([]ast.SwitchCase, len(v.Cases))
		for i, c := range v.Cases {
			cases[i] = ast.SwitchCase{Value: cloneExpr(c.Value, cat), Body: cloneStmts(c.Body, cat), Fallthrough: c.Fallthrough}
		}
		out = &ast.SwitchStmt{
			Value: cloneExpr(v.Value, cat), Cases: cases, Default: cloneStmts(v.Default, cat),
			HasDefault: v.HasDefault, Exhaustive: v.Exhaustive,
		}
	case *ast.BreakStmt:
		out = &ast.BreakStmt{Label: v.Label}
	case *ast.ContinueStmt:
		out = &ast.ContinueStmt{Label: v.Label}
	case *ast.FallthroughStmt:
		out = &ast.FallthroughStmt{}
	case *ast.DeleteStmt:
		out = &ast.DeleteStmt{Value: cloneExpr(v.Value, cat)}
	case *ast.ForStmt:
		out = &ast.ForStmt{
			Before: cloneStmts(v.Before, cat), Cond: cloneExpr(v.Cond, cat),
			After: cloneStmts(v.After, cat), Body: cloneStmts(v.Body, cat), Label: v.Label,
		}
	case *ast.VaStartStmt:
		out = &ast.VaStartStmt{VaList: cloneExpr(v.VaList, cat)}
	case *ast.VaEndStmt:
		out = &ast.VaEndStmt{VaList: cloneExpr(v.VaList, cat)}
	case *ast.VaCopyStmt:
		out = &ast.VaCopyStmt{Dest: cloneExpr(v.Dest, cat), Src: cloneExpr(v.Src, cat)}
	case *ast.AsmStmt:
		out = &ast.AsmStmt{
			Assembly: v.Assembly, Constraints: v.Constraints, Dialect: v.Dialect,
			SideEffect: v.SideEffect, StackAlign: v.StackAlign,
		}
	case *ast.ConditionlessBlockStmt:
		out = &ast.ConditionlessBlockStmt{Body: cloneStmts(v.Body, cat)}
	case *ast.ExprStmt:
		out = &ast.ExprStmt{Value: cloneExpr(v.Value, cat)}
	default:
		return s // unknown node: nothing safe to do but pass it through unchanged
	}
	return out
}

func cloneExpr(e ast.Expr, cat *typeresolve.Catalog) ast.Expr {
	if e == nil {
		return nil
	}
	switch v := e.(type) {
	case *ast.IntLiteralExpr:
		return &ast.IntLiteralExpr{Value: v.Value, TypeName: v.TypeName}
	case *ast.FloatLiteralExpr:
		return &ast.FloatLiteralExpr{Value: v.Value, TypeName: v.TypeName}
	case *ast.BoolLiteralExpr:
		return &ast.BoolLiteralExpr{Value: v.Value}
	case *ast.NullExpr:
		return &ast.NullExpr{}
	case *ast.CStrLiteralExpr:
		return &ast.CStrLiteralExpr{Value: v.Value}
	case *ast.StrLiteralExpr:
		return &ast.StrLiteralExpr{Value: v.Value}
	case *ast.VariableExpr:
		return &ast.VariableExpr{Name: v.Name}
	case *ast.BinaryExpr:
		return &ast.BinaryExpr{Op: v.Op, LHS: cloneExpr(v.LHS, cat), RHS: cloneExpr(v.RHS, cat)}
	case *ast.AndExpr:
		return &ast.AndExpr{LHS: cloneExpr(v.LHS, cat), RHS: cloneExpr(v.RHS, cat)}
	case *ast.OrExpr:
		return &ast.OrExpr{LHS: cloneExpr(v.LHS, cat), RHS: cloneExpr(v.RHS, cat)}
	case *ast.NotExpr:
		return &ast.NotExpr{Operand: cloneExpr(v.Operand, cat)}
	case *ast.NegateExpr:
		return &ast.NegateExpr{Operand: cloneExpr(v.Operand, cat)}
	case *ast.BitComplementExpr:
		return &ast.BitComplementExpr{Operand: cloneExpr(v.Operand, cat)}
	case *ast.MemberExpr:
		return &ast.MemberExpr{Subject: cloneExpr(v.Subject, cat), Field: v.Field}
	case *ast.ArrayAccessExpr:
		return &ast.ArrayAccessExpr{Subject: cloneExpr(v.Subject, cat), Index: cloneExpr(v.Index, cat), AtForm: v.AtForm}
	case *ast.CallExpr:
		return &ast.CallExpr{Name: v.Name, Args: cloneExprs(v.Args, cat), Tentative: v.Tentative}
	case *ast.MethodCallExpr:
		return &ast.MethodCallExpr{
			Subject: cloneExpr(v.Subject, cat), Name: v.Name, Args: cloneExprs(v.Args, cat), AllowDrop: v.AllowDrop,
		}
	case *ast.CastExpr:
		return &ast.CastExpr{Value: cloneExpr(v.Value, cat), Target: subst(v.Target, cat)}
	case *ast.NewExpr:
		return &ast.NewExpr{
			Type: subst(v.Type, cat), Amount: cloneExpr(v.Amount, cat), Undef: v.Undef, CtorArgs: cloneExprs(v.CtorArgs, cat),
		}
	case *ast.NewCStringExpr:
		return &ast.NewCStringExpr{Value: v.Value}
	case *ast.TernaryExpr:
		return &ast.TernaryExpr{Cond: cloneExpr(v.Cond, cat), Then: cloneExpr(v.Then, cat), Else: cloneExpr(v.Else, cat)}
	case *ast.SizeofExpr:
		return &ast.SizeofExpr{Type: subst(v.Type, cat)}
	case *ast.SizeofValueExpr:
		return &ast.SizeofValueExpr{Value: cloneExpr(v.Value, cat)}
	case *ast.AlignofExpr:
		return &ast.AlignofExpr{Type: subst(v.Type, cat)}
	case *ast.IncDecExpr:
		return &ast.IncDecExpr{Operand: cloneExpr(v.Operand, cat), Post: v.Post, Dec: v.Dec}
	case *ast.ToggleExpr:
		return &ast.ToggleExpr{Operand: cloneExpr(v.Operand, cat)}
	case *ast.InlineDeclareExpr:
		return &ast.InlineDeclareExpr{
			Name: v.Name, Type: subst(v.Type, cat), Value: cloneExpr(v.Value, cat), Undef: v.Undef,
		}
	case *ast.TypeinfoExpr:
		return &ast.TypeinfoExpr{Type: subst(v.Type, cat)}
	case *ast.TypenameofExpr:
		return &ast.TypenameofExpr{Type: subst(v.Type, cat)}
	case *ast.EmbedExpr:
		return &ast.EmbedExpr{File: v.File}
	case *ast.FuncAddrExpr:
		argTypes := make([]ast.Type, len(v.ArgTypes))
		for i, t := range v.ArgTypes {
			argTypes[i] = subst(t, cat)
		}
		return &ast.FuncAddrExpr{Name: v.Name, ArgTypes: argTypes}
	case *ast.VaArgExpr:
		return &ast.VaArgExpr{VaList: cloneExpr(v.VaList, cat), Type: subst(v.Type, cat)}
	case *ast.InitializerListExpr:
		return &ast.InitializerListExpr{Elements: cloneExprs(v.Elements, cat)}
	case *ast.StaticArrayExpr:
		return &ast.StaticArrayExpr{ElementType: subst(v.ElementType, cat), Elements: cloneExprs(v.Elements, cat)}
	case *ast.StaticStructExpr:
		return &ast.StaticStructExpr{Type: subst(v.Type, cat), Fields: cloneExprs(v.Fields, cat)}
	default:
		return e
	}
}
