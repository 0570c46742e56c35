package ir

// Global is a module-level variable: either a real storage slot or an
// anonymous constant/non-constant blob backing a literal (string data,
// struct-construction scratch space, the variadic-argument array, ...).
type Global struct {
	Name         string
	Type         IrType
	Initial      IrValue
	HasInitial   bool
	ThreadLocal  bool
	External     bool
	IsConstant   bool
}

// Common bundles the handful of well-known types/ids every generated
// module carries regardless of source content (spec.md §3 "IrModule"):
// the concrete backing type chosen for `usize`/`successful`, the
// synthesized variadic-argument-array struct type, and whether/where a
// `main` was found.
type Common struct {
	Usize           IrType
	Bool            IrType
	VariadicArray   IrType
	StringStruct    IrType
	HasMain         bool
	AstMainID       int
	IrMainID        int
	RttiArrayIndex  int
	HasRttiArray    bool
}

// Module is the finished translation unit: every function, every global,
// and the handful of common-type/entry-point facts the backend needs
// without re-deriving them (spec.md §3, §6).
type Module struct {
	Funcs   []IrFunc
	Globals []Global
	Common  Common
	Pool    *Pool
}

func NewModule() *Module {
	return &Module{Pool: NewPool()}
}

// AddFunc appends f and returns its ir_func_id, the id CallInstr and
// FuncAddr reference.
func (m *Module) AddFunc(f IrFunc) int {
	m.Funcs = append(m.Funcs, f)
	return len(m.Funcs) - 1
}

func (m *Module) Func(id int) *IrFunc {
	return &m.Funcs[id]
}

// AddGlobal appends g and returns its index, the id AnonGlobal/
// ConstAnonGlobal values reference.
func (m *Module) AddGlobal(g Global) int {
	m.Globals = append(m.Globals, g)
	return len(m.Globals) - 1
}
