// Package builder implements the IR construction API (spec.md §4.3): a
// stateful cursor over one function's basic blocks, appending instructions
// and returning the Result values later expressions reference.
package builder

import (
	"github.com/arc-language/core-irgen/diag"
	"github.com/arc-language/core-irgen/ir"
)

// LoopContext is the break/continue/fallthrough target bundle active
// inside a loop or switch body, saved and restored around nested
// loops/switches (spec.md §4.3 builder state).
type LoopContext struct {
	BreakBlockID       int
	ContinueBlockID    int
	FallthroughBlockID int
	HasFallthrough     bool
	Scope              *ir.Scope
}

// Builder is the per-function construction cursor (spec.md §4.3 "IR
// builder" state). One Builder is created per job-list entry (one
// function body) and discarded once that function is finished.
type Builder struct {
	Pool    *ir.Pool
	Func    *ir.IrFunc
	Scope   *ir.Scope

	currentBlockID int

	loopStack []labeledLoop

	nextVarID int
}

type labeledLoop struct {
	label string
	ctx   LoopContext
}

// New creates a builder positioned at f's entry block (block 0, created
// if f has none yet).
func New(pool *ir.Pool, f *ir.IrFunc, root *ir.Scope) *Builder {
	b := &Builder{Pool: pool, Func: f, Scope: root}
	if len(f.Blocks) == 0 {
		b.currentBlockID = f.NewBlock()
	}
	return b
}

// NextVarID hands out the next stack-slot id for a newly declared
// variable (builder state `next_var_id`, spec.md §4.3).
func (b *Builder) NextVarID() int {
	id := b.nextVarID
	b.nextVarID++
	return id
}

// CurrentBlockID is the block new instructions are appended to.
func (b *Builder) CurrentBlockID() int { return b.currentBlockID }

// UseBlock repositions the cursor (build_using_basicblock, spec.md §4.3).
func (b *Builder) UseBlock(id int) { b.currentBlockID = id }

// BuildBlock creates and returns a new, empty block's id without
// switching to it (build_basicblock, spec.md §4.3).
func (b *Builder) BuildBlock() int { return b.Func.NewBlock() }

// result appends instr to the current block and returns a Result operand
// referencing it, typed resultType (nil for statement-only instructions).
func (b *Builder) result(instr ir.InstrData, resultType ir.IrType) ir.IrValue {
	idx := b.Func.Block(b.currentBlockID).Append(ir.IrInstr{ResultType: resultType, Data: instr})
	if resultType == nil {
		return ir.IrValue{}
	}
	return ir.IrValue{Type: resultType, Data: ir.Result{BlockID: b.currentBlockID, InstrID: idx}}
}

// --- memory ---

func (b *Builder) BuildAlloc(t ir.IrType) ir.IrValue {
	return b.result(ir.AllocInstr{Type: t, Align: 0}, ir.PtrType{Of: t})
}

func (b *Builder) BuildAllocArray(t ir.IrType, count ir.IrValue) ir.IrValue {
	return b.result(ir.AllocInstr{Type: t, Count: count, Align: 0}, ir.PtrType{Of: ir.FixedArrayType{Subtype: t}})
}

func (b *Builder) BuildLoad(ptr ir.IrValue, loc ir.SrcLoc) ir.IrValue {
	pt, ok := ptr.Type.(ir.PtrType)
	if !ok {
		diag.Internal("builder: Load on non-pointer operand %s", ir.TypeString(ptr.Type))
	}
	return b.result(ir.LoadInstr{Ptr: ptr, Loc: loc}, pt.Of)
}

func (b *Builder) BuildStore(val, dest ir.IrValue, loc ir.SrcLoc) {
	b.result(ir.StoreInstr{Value: val, Dest: dest, Loc: loc}, nil)
}

// BuildMember computes a field pointer, the subject already `*Structure`
// or `*Union` with fieldType the already-resolved (possibly opaque-ptr,
// see ir/types.go) field type.
func (b *Builder) BuildMember(subject ir.IrValue, index int, fieldType ir.IrType, loc ir.SrcLoc) ir.IrValue {
	return b.result(ir.MemberInstr{Subject: subject, Index: index, Loc: loc}, ir.PtrType{Of: fieldType})
}

func (b *Builder) BuildArrayAccess(subject, index ir.IrValue, elemType ir.IrType, loc ir.SrcLoc) ir.IrValue {
	return b.result(ir.ArrayAccessInstr{Subject: subject, Index: index, Loc: loc}, ir.PtrType{Of: elemType})
}

// --- control ---

func (b *Builder) BuildBreak(target int) {
	b.result(ir.BrInstr{Target: target}, nil)
}

func (b *Builder) BuildCondBreak(cond ir.IrValue, trueBB, falseBB int) {
	b.result(ir.CondBrInstr{Cond: cond, TrueBlock: trueBB, FalseBlock: falseBB}, nil)
}

func (b *Builder) BuildSwitch(value ir.IrValue, cases []ir.SwitchCase, defaultBB int) {
	b.result(ir.SwitchInstr{Value: value, Cases: cases, Default: defaultBB}, nil)
}

// BuildPhi2 merges two predecessor blocks' values (spec.md §3 "Phi2 ...
// two predecessor block ids; on cross-function relocation these are
// patched after block creation completes" — within a single function's
// straight-line construction no relocation is needed, so both ids are
// already final here).
func (b *Builder) BuildPhi2(valueA ir.IrValue, blockA int, valueB ir.IrValue, blockB int, resultType ir.IrType) ir.IrValue {
	return b.result(ir.Phi2Instr{ValueA: valueA, BlockA: blockA, ValueB: valueB, BlockB: blockB}, resultType)
}

func (b *Builder) BuildReturn(value ir.IrValue, hasValue bool) {
	b.result(ir.RetInstr{Value: value, HasValue: hasValue}, nil)
}

func (b *Builder) BuildUnreachable() {
	b.result(ir.UnreachableInstr{}, nil)
}

// --- calls ---

func (b *Builder) BuildCall(funcID int, retType ir.IrType, args []ir.IrValue) ir.IrValue {
	return b.result(ir.CallInstr{IrFuncID: funcID, Args: args}, retType)
}

func (b *Builder) BuildCallAddress(fptr ir.IrValue, retType ir.IrType, args []ir.IrValue) ir.IrValue {
	return b.result(ir.CallAddressInstr{Func: fptr, Args: args}, retType)
}

// --- heap ---

func (b *Builder) BuildMalloc(t ir.IrType, amount ir.IrValue, hasAmount, undef bool) ir.IrValue {
	return b.result(ir.MallocInstr{Type: t, Amount: amount, HasAmount: hasAmount, Undef: undef}, ir.OpaquePtr)
}

func (b *Builder) BuildFree(v ir.IrValue) {
	b.result(ir.FreeInstr{Value: v}, nil)
}

// --- math ---

// BuildMath emits a binary arithmetic/comparison/bitwise instruction,
// mirroring build_math's opcode-selection contract (spec.md §4.3):
// callers have already picked the operator variant for the operand
// category (SI/UI/FP).
func (b *Builder) BuildMath(op ir.Opcode, a, bVal ir.IrValue, retType ir.IrType) ir.IrValue {
	return b.result(ir.BinaryInstr{Op: op, A: a, B: bVal}, retType)
}

func (b *Builder) BuildUnary(op ir.UnaryOp, operand ir.IrValue, retType ir.IrType) ir.IrValue {
	return b.result(ir.UnaryInstr{Op: op, Operand: operand}, retType)
}

// --- casts ---

// IsConstant reports whether v is foldable at compile time, the test
// cast builders use to choose ConstCast vs EmitCast (spec.md §4.3).
// Implements typeresolve.Emitter.
func (b *Builder) IsConstant(v ir.IrValue) bool {
	switch v.Data.(type) {
	case ir.Literal, ir.NullPtr, ir.NullPtrOfType, ir.ConstSizeof, ir.ConstAlignof, ir.ConstAdd, ir.ConstCast, ir.Offsetof:
		return true
	default:
		return false
	}
}

func (b *Builder) ConstCast(op ir.CastOp, v ir.IrValue, to ir.IrType) ir.IrValue {
	stored := b.Pool.AllocValue(v)
	return ir.IrValue{Type: to, Data: ir.ConstCast{Op: op, Value: stored}}
}

func (b *Builder) EmitCast(op ir.CastOp, v ir.IrValue, to ir.IrType) ir.IrValue {
	return b.result(ir.CastInstr{Op: op, Value: v}, to)
}

// --- stack ---

func (b *Builder) BuildStackSave() ir.IrValue {
	return b.result(ir.StackSaveInstr{}, ir.OpaquePtr)
}

func (b *Builder) BuildStackRestore(v ir.IrValue) {
	b.result(ir.StackRestoreInstr{Value: v}, nil)
}

// --- misc ---

func (b *Builder) BuildZeroinit(ptr ir.IrValue) {
	b.result(ir.ZeroinitInstr{Ptr: ptr}, nil)
}

func (b *Builder) BuildMemcpy(dest, src, bytes ir.IrValue, volatile bool) {
	b.result(ir.MemcpyInstr{Dest: dest, Src: src, Bytes: bytes, Volatile: volatile}, nil)
}

func (b *Builder) BuildOffsetof(t ir.IrType, index int) ir.IrValue {
	return ir.IrValue{Type: ir.U64, Data: ir.Offsetof{Type: t, Index: index}}
}

func (b *Builder) BuildConstSizeof(t ir.IrType) ir.IrValue {
	return ir.IrValue{Type: ir.U64, Data: ir.ConstSizeof{Type: t}}
}

func (b *Builder) BuildConstAlignof(t ir.IrType) ir.IrValue {
	return ir.IrValue{Type: ir.U64, Data: ir.ConstAlignof{Type: t}}
}

func (b *Builder) BuildDeinitSvars() {
	b.result(ir.DeinitSvarsInstr{}, nil)
}

func (b *Builder) BuildFuncAddress(name string, id int, hasID bool, t ir.IrType) ir.IrValue {
	return b.result(ir.FuncAddressInstr{Name: name, IrFuncID: id, HasFuncID: hasID}, t)
}

func (b *Builder) BuildSelect(cond, t, f ir.IrValue, retType ir.IrType) ir.IrValue {
	return b.result(ir.SelectInstr{Cond: cond, True: t, False: f}, retType)
}

func (b *Builder) BuildVaStart(vaList ir.IrValue) { b.result(ir.VaStartInstr{VaList: vaList}, nil) }
func (b *Builder) BuildVaEnd(vaList ir.IrValue)   { b.result(ir.VaEndInstr{VaList: vaList}, nil) }
func (b *Builder) BuildVaCopy(dest, src ir.IrValue) {
	b.result(ir.VaCopyInstr{Dest: dest, Src: src}, nil)
}
func (b *Builder) BuildVaArg(vaList ir.IrValue, t ir.IrType) ir.IrValue {
	return b.result(ir.VaArgInstr{VaList: vaList, Type: t}, t)
}

// --- loop/label context ---

// PushLoop enters a loop/switch body, optionally under a label (spec.md
// §4.7 "optional label pushed on label stack for break L/continue L").
func (b *Builder) PushLoop(label string, ctx LoopContext) {
	b.loopStack = append(b.loopStack, labeledLoop{label: label, ctx: ctx})
}

func (b *Builder) PopLoop() {
	b.loopStack = b.loopStack[:len(b.loopStack)-1]
}

func (b *Builder) CurrentLoop() (LoopContext, bool) {
	if len(b.loopStack) == 0 {
		return LoopContext{}, false
	}
	return b.loopStack[len(b.loopStack)-1].ctx, true
}

// LoopByLabel finds the loop context pushed under label l, searching the
// stack innermost-out — break L/continue L resolution (spec.md §4.7
// "Labels are resolved by linear search through the label stack").
func (b *Builder) LoopByLabel(l string) (LoopContext, bool) {
	for i := len(b.loopStack) - 1; i >= 0; i-- {
		if b.loopStack[i].label == l {
			return b.loopStack[i].ctx, true
		}
	}
	return LoopContext{}, false
}

// --- snapshots ---

// Snapshot is the builder-state rollback point (spec.md §4.3 "Snapshots
// of builder state capture {current_block_id, current_block.instr_count,
// basicblocks.length} and restore them atomically").
type Snapshot struct {
	currentBlockID   int
	currentInstrLen  int
	blockCount       int
	poolSnapshot     ir.Snapshot
}

// Snapshot captures both the builder cursor and the pool allocation
// frontier, the two snapshots spec.md §4.3/§9 require be taken together
// before any speculative construction.
func (b *Builder) Snapshot() Snapshot {
	return Snapshot{
		currentBlockID:  b.currentBlockID,
		currentInstrLen: len(b.Func.Block(b.currentBlockID).Instrs),
		blockCount:      len(b.Func.Blocks),
		poolSnapshot:    b.Pool.Snapshot(),
	}
}

// Restore rewinds both the builder cursor and the pool to s, discarding
// every block, instruction, and pool allocation made since.
func (b *Builder) Restore(s Snapshot) {
	b.Func.Blocks = b.Func.Blocks[:s.blockCount]
	if s.currentBlockID < len(b.Func.Blocks) {
		blk := b.Func.Block(s.currentBlockID)
		blk.Instrs = blk.Instrs[:s.currentInstrLen]
	}
	b.currentBlockID = s.currentBlockID
	b.Pool.Restore(s.poolSnapshot)
}
