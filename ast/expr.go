package ast

// BinOp enumerates the binary operators the expression lowerer recognizes.
// Comparison/arithmetic/bitwise variants are resolved against operand type
// category (SI/UI/FP) during IR generation, not here.
type BinOp int

const (
	OpAdd BinOp = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpEq
	OpNEq
	OpGt
	OpGe
	OpLt
	OpLe
	OpBitAnd
	OpBitOr
	OpBitXor
	OpShl
	OpShr // arithmetic shift right; UShr below for logical
	OpUShr
)

func (op BinOp) String() string {
	names := [...]string{
		"+", "-", "*", "/", "%", "==", "!=", ">", ">=", "<", "<=",
		"&", "|", "^", "<<", ">>", ">>>",
	}
	if int(op) < len(names) {
		return names[op]
	}
	return "?"
}

// OverloadMethodName returns the user-overloadable method name for a
// binary operator (e.g. `__add__` for OpAdd), used when builtin arithmetic
// lowering fails to conform both operands.
func (op BinOp) OverloadMethodName() string {
	switch op {
	case OpAdd:
		return "__add__"
	case OpSub:
		return "__subtract__"
	case OpMul:
		return "__multiply__"
	case OpDiv:
		return "__divide__"
	case OpMod:
		return "__modulus__"
	case OpEq:
		return "__equals__"
	case OpNEq:
		return "__notequals__"
	case OpGt:
		return "__greaterthan__"
	case OpGe:
		return "__greaterthanoreq__"
	case OpLt:
		return "__lessthan__"
	case OpLe:
		return "__lessthanoreq__"
	case OpBitAnd:
		return "__bitwise_and__"
	case OpBitOr:
		return "__bitwise_or__"
	case OpBitXor:
		return "__bitwise_xor__"
	default:
		return ""
	}
}

// Expr is the AST expression sum type. Every lowerable expression kind is
// its own struct so irgen can dispatch on concrete type without a
// hand-rolled tag field (see DESIGN.md "Implement as sum types").
type Expr interface {
	Loc() Location
}

type exprBase struct{ Location Location }

func (e exprBase) Loc() Location { return e.Location }

type IntLiteralExpr struct {
	exprBase
	Value    int64
	TypeName string // e.g. "int", "byte", "long" — picks the IR integer width
}

type FloatLiteralExpr struct {
	exprBase
	Value    float64
	TypeName string // "float" or "double"
}

type BoolLiteralExpr struct {
	exprBase
	Value bool
}

type NullExpr struct{ exprBase }

type CStrLiteralExpr struct {
	exprBase
	Value string
}

type StrLiteralExpr struct {
	exprBase
	Value string
}

type VariableExpr struct {
	exprBase
	Name string
}

type BinaryExpr struct {
	exprBase
	Op          BinOp
	LHS, RHS    Expr
}

type AndExpr struct {
	exprBase
	LHS, RHS Expr
}

type OrExpr struct {
	exprBase
	LHS, RHS Expr
}

type NotExpr struct {
	exprBase
	Operand Expr
}

type NegateExpr struct {
	exprBase
	Operand Expr
}

type BitComplementExpr struct {
	exprBase
	Operand Expr
}

type MemberExpr struct {
	exprBase
	Subject Expr
	Field   string
}

// ArrayAccessExpr is `Subject[Index]` (loads) or `Subject at Index` (leaves
// the element as an l-value) per spec.md §4.5.
type ArrayAccessExpr struct {
	exprBase
	Subject Expr
	Index   Expr
	AtForm  bool
}

type CallExpr struct {
	exprBase
	Name      string
	Args      []Expr
	Tentative bool
}

// MethodCallExpr is `Subject.Name(Args...)`. AllowDrop carries the parser's
// decision about whether a temporary subject's post-call __defer__ should
// be suppressed — spec.md §9 flags this as an open question whose criteria
// live entirely in the parser; this module treats it as opaque input.
type MethodCallExpr struct {
	exprBase
	Subject   Expr
	Name      string
	Args      []Expr
	AllowDrop bool
}

type CastExpr struct {
	exprBase
	Value  Expr
	Target Type
}

// NewExpr is `new T` / `new T * Amount`, optionally with constructor
// arguments `new T(args...)`.
type NewExpr struct {
	exprBase
	Type     Type
	Amount   Expr // nil => single allocation
	Undef    bool
	CtorArgs []Expr
}

type NewCStringExpr struct {
	exprBase
	Value string
}

type TernaryExpr struct {
	exprBase
	Cond, Then, Else Expr
}

type SizeofExpr struct {
	exprBase
	Type Type
}

// SizeofValueExpr is `sizeof (value)`: the value is only ever generated for
// type inference, never emitted (builder state is snapshotted and rolled
// back around it).
type SizeofValueExpr struct {
	exprBase
	Value Expr
}

type AlignofExpr struct {
	exprBase
	Type Type
}

type IncDecExpr struct {
	exprBase
	Operand Expr
	Post    bool
	Dec     bool
}

type ToggleExpr struct {
	exprBase
	Operand Expr
}

// InlineDeclareExpr is `name Type = expr` used in an expression position
// (e.g. `if (tmp int = f())`).
type InlineDeclareExpr struct {
	exprBase
	Name  string
	Type  Type
	Value Expr // nil when undef
	Undef bool
}

type TypeinfoExpr struct {
	exprBase
	Type Type
}

type TypenameofExpr struct {
	exprBase
	Type Type
}

type EmbedExpr struct {
	exprBase
	File string
}

// FuncAddrExpr is `func &name(ArgTypes)`.
type FuncAddrExpr struct {
	exprBase
	Name     string
	ArgTypes []Type
}

type VaArgExpr struct {
	exprBase
	VaList Expr
	Type   Type
}

// InitializerListExpr packs `{e1, e2, ...}` via `__initializer_list__`.
type InitializerListExpr struct {
	exprBase
	Elements []Expr
}

type StaticArrayExpr struct {
	exprBase
	ElementType Type
	Elements    []Expr
}

type StaticStructExpr struct {
	exprBase
	Type   Type
	Fields []Expr
}
