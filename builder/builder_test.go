package builder

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arc-language/core-irgen/ir"
)

func newTestBuilder() (*Builder, *ir.IrFunc) {
	f := &ir.IrFunc{Name: "f"}
	pool := ir.NewPool()
	b := New(pool, f, ir.NewRootScope())
	return b, f
}

func TestNewPositionsAtFreshEntryBlock(t *testing.T) {
	b, f := newTestBuilder()
	require.Equal(t, 0, b.CurrentBlockID())
	require.Len(t, f.Blocks, 1)
}

func TestBuildAllocReturnsPointerToType(t *testing.T) {
	b, _ := newTestBuilder()
	v := b.BuildAlloc(ir.S32)
	require.Equal(t, ir.PtrType{Of: ir.S32}, v.Type)
	require.IsType(t, ir.Result{}, v.Data)
}

func TestBuildStoreThenLoadChainsThroughResults(t *testing.T) {
	b, f := newTestBuilder()
	slot := b.BuildAlloc(ir.S32)
	b.BuildStore(ir.IntLiteral(ir.S32, 5), slot, ir.SrcLoc{})
	loaded := b.BuildLoad(slot, ir.SrcLoc{})

	require.Equal(t, ir.S32, loaded.Type)
	require.Len(t, f.Blocks[0].Instrs, 3) // Alloc, Store, Load
}

// Snapshot/restore rewinds both the block list and the current block's
// instruction list atomically (spec.md §4.3 "Snapshots").
func TestBuilderSnapshotRestoreDiscardsSpeculativeWork(t *testing.T) {
	b, f := newTestBuilder()
	b.BuildAlloc(ir.S32)

	snap := b.Snapshot()
	other := b.BuildBlock()
	b.UseBlock(other)
	b.BuildAlloc(ir.Bool)
	require.Len(t, f.Blocks, 2)

	b.Restore(snap)
	require.Len(t, f.Blocks, 1)
	require.Len(t, f.Blocks[0].Instrs, 1)
	require.Equal(t, 0, b.CurrentBlockID())
}

func TestIsConstantRecognizesFoldableVariants(t *testing.T) {
	b, _ := newTestBuilder()
	require.True(t, b.IsConstant(ir.IntLiteral(ir.S32, 1)))
	require.True(t, b.IsConstant(ir.IrValue{Data: ir.NullPtr{}}))
	require.False(t, b.IsConstant(ir.IrValue{Data: ir.Result{BlockID: 0, InstrID: 0}}))
}

func TestLoopStackResolvesInnermostLabelFirst(t *testing.T) {
	b, _ := newTestBuilder()
	b.PushLoop("outer", LoopContext{BreakBlockID: 1})
	b.PushLoop("", LoopContext{BreakBlockID: 2})
	b.PushLoop("inner", LoopContext{BreakBlockID: 3})

	cur, ok := b.CurrentLoop()
	require.True(t, ok)
	require.Equal(t, 3, cur.BreakBlockID)

	found, ok := b.LoopByLabel("outer")
	require.True(t, ok)
	require.Equal(t, 1, found.BreakBlockID)

	b.PopLoop()
	b.PopLoop()
	b.PopLoop()
	_, ok = b.CurrentLoop()
	require.False(t, ok)
}
