package ir

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// Pool snapshot/restore round-trip law (spec.md §8): alloc bracketed by
// capture; A; restore must make the next alloc return the same slot index
// it would have gotten immediately after capture.
func TestPoolSnapshotRestoreRoundTrip(t *testing.T) {
	p := NewPool()
	p.AllocType(S32)
	p.AllocType(S64)

	snap := p.Snapshot()
	require.Equal(t, 2, p.TypeCount())

	p.AllocType(Bool)
	p.AllocType(Float)
	require.Equal(t, 4, p.TypeCount())

	p.Restore(snap)
	require.Equal(t, 2, p.TypeCount())

	// The next allocation after restore lands at the same frontier restore
	// rewound to.
	next := p.AllocType(Double)
	require.Equal(t, 3, p.TypeCount())
	require.Equal(t, KindDouble, (*next).Kind())
}

func TestPoolRestoreNeverMovesPriorMemory(t *testing.T) {
	p := NewPool()
	first := p.AllocType(S8)
	snap := p.Snapshot()
	p.AllocType(U8)
	p.Restore(snap)

	// The pointer captured before the snapshot still observes its original
	// value; restoring never mutates memory that existed at capture time.
	require.Equal(t, KindS8, (*first).Kind())
}

func TestPoolValuesIndependentFromTypes(t *testing.T) {
	p := NewPool()
	p.AllocValue(IntLiteral(S32, 7))
	snap := p.Snapshot()
	p.AllocValue(IntLiteral(S32, 8))
	require.Equal(t, 2, p.ValueCount())
	p.Restore(snap)
	require.Equal(t, 1, p.ValueCount())
	require.Equal(t, 0, p.TypeCount())
}
