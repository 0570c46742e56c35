package ast

// Stmt is the AST statement sum type.
type Stmt interface {
	Loc() Location
}

type stmtBase struct{ Location Location }

func (s stmtBase) Loc() Location { return s.Location }

type ReturnStmt struct {
	stmtBase
	Value Expr // nil => bare `return`
}

// DeclareStmt is `name Type` / `name Type = value` / `name Type(ctorArgs)`.
// Exactly one of Value/CtorArgs/Undef applies; see spec.md §4.7.
type DeclareStmt struct {
	stmtBase
	Name     string
	Type     Type
	Value    Expr
	CtorArgs []Expr
	Undef    bool
	POD      bool
}

type AssignStmt struct {
	stmtBase
	Dest  Expr
	Value Expr
	POD   bool
}

type CompoundAssignStmt struct {
	stmtBase
	Op    BinOp
	Dest  Expr
	Value Expr
}

type IfStmt struct {
	stmtBase
	Cond   Expr
	Body   []Stmt
	Unless bool
}

type IfElseStmt struct {
	stmtBase
	Cond       Expr
	Then, Else []Stmt
	Unless     bool
}

// WhileStmt covers `while`/`until`; WhileContinue/UntilBreak pick the
// "continue" vs "break" default when the condition is not met up front
// (spec.md §4.7).
type WhileStmt struct {
	stmtBase
	Cond  Expr
	Body  []Stmt
	Label string
	Until bool
}

type WhileContinueStmt struct {
	stmtBase
	Cond  Expr
	Body  []Stmt
	Label string
}

type UntilBreakStmt struct {
	stmtBase
	Cond  Expr
	Body  []Stmt
	Label string
}

// EachInStmt binds `it`/`idx` iterating a fixed array, raw pointer+length,
// or a struct with __length__/__array__. Length is nil for the fixed-array
// and struct-method forms, which read Subject's resolved type to tell them
// apart; when Length is non-nil, Subject is the raw element pointer and
// Length is the separately-given element count (spec.md §4.7 "Each-in").
type EachInStmt struct {
	stmtBase
	ItName  string
	IdxName string
	Subject Expr
	Length  Expr
	Body    []Stmt
	Static  bool
	Label   string
}

type RepeatStmt struct {
	stmtBase
	IdxName string
	Limit   Expr
	Body    []Stmt
	Label   string
}

type SwitchCase struct {
	Value       Expr // must be a constant integer/enum-kind expression
	Body        []Stmt
	Fallthrough bool // explicit `fallthrough` present at the end of Body
}

type SwitchStmt struct {
	stmtBase
	Value      Expr
	Cases      []SwitchCase
	Default    []Stmt
	HasDefault bool
	Exhaustive bool
}

type BreakStmt struct {
	stmtBase
	Label string // "" => nearest enclosing loop/switch
}

type ContinueStmt struct {
	stmtBase
	Label string
}

type FallthroughStmt struct{ stmtBase }

type DeleteStmt struct {
	stmtBase
	Value Expr
}

type ForStmt struct {
	stmtBase
	Before []Stmt
	Cond   Expr
	After  []Stmt
	Body   []Stmt
	Label  string
}

type VaStartStmt struct {
	stmtBase
	VaList Expr
}

type VaEndStmt struct {
	stmtBase
	VaList Expr
}

type VaCopyStmt struct {
	stmtBase
	Dest, Src Expr
}

type AsmStmt struct {
	stmtBase
	Assembly    string
	Constraints string
	Dialect     string
	SideEffect  bool
	StackAlign  bool
}

type ConditionlessBlockStmt struct {
	stmtBase
	Body []Stmt
}

// ExprStmt lowers an expression purely for its side effect (++/--/toggle
// as statements, tentative calls), discarding any result without loading
// it.
type ExprStmt struct {
	stmtBase
	Value Expr
}
