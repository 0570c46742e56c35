package ir

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScopeDeclareIDRanges(t *testing.T) {
	root := NewRootScope()
	id0 := root.Declare(BridgeVar{Name: "x", IrType: S32})
	id1 := root.Declare(BridgeVar{Name: "y", IrType: S32})
	require.Equal(t, 0, id0)
	require.Equal(t, 1, id1)
	require.Equal(t, 0, root.FirstVarID)
	require.Equal(t, 2, root.FollowingVarID)
}

func TestScopeChildStartsAtParentFrontier(t *testing.T) {
	root := NewRootScope()
	root.Declare(BridgeVar{Name: "x", IrType: S32})

	child := root.Child()
	require.Equal(t, 1, child.FirstVarID)
	require.Equal(t, 1, child.FollowingVarID)

	child.Declare(BridgeVar{Name: "y", IrType: S32})
	require.Equal(t, 2, child.FollowingVarID)
	// Declaring into the child never perturbs the parent's own range.
	require.Equal(t, 1, root.FollowingVarID)
}

// Inner shadows outer (spec.md §3 invariant).
func TestScopeLookupInnerShadowsOuter(t *testing.T) {
	root := NewRootScope()
	root.Declare(BridgeVar{Name: "x", IrType: S32})

	child := root.Child()
	child.Declare(BridgeVar{Name: "x", IrType: Bool})

	v, ok := child.Lookup("x")
	require.True(t, ok)
	require.Equal(t, Bool, v.IrType)

	v, ok = root.Lookup("x")
	require.True(t, ok)
	require.Equal(t, S32, v.IrType)
}

func TestScopeLookupMissing(t *testing.T) {
	root := NewRootScope()
	_, ok := root.Lookup("nope")
	require.False(t, ok)
}

// DeferTargets excludes POD and Reference variables and returns the rest in
// reverse-declaration order (spec.md §3 "closing a scope invokes __defer__
// ... in LIFO-friendly order").
func TestScopeDeferTargetsExcludesPodAndReference(t *testing.T) {
	s := NewRootScope()
	s.Declare(BridgeVar{Name: "a", IrType: S32})
	s.Declare(BridgeVar{Name: "pod", IrType: S32, Traits: VarPOD})
	s.Declare(BridgeVar{Name: "ref", IrType: S32, Traits: VarReference})
	s.Declare(BridgeVar{Name: "b", IrType: S32})

	targets := s.DeferTargets()
	var names []string
	for _, v := range targets {
		names = append(names, v.Name)
	}
	require.Equal(t, []string{"b", "a"}, names)
}

func TestScopeAncestorChain(t *testing.T) {
	root := NewRootScope()
	mid := root.Child()
	leaf := mid.Child()

	chain := leaf.AncestorChain(root)
	require.Equal(t, []*Scope{leaf, mid, root}, chain)

	other := NewRootScope()
	require.Nil(t, leaf.AncestorChain(other))
}

func TestSfCacheTriState(t *testing.T) {
	c := NewSfCache()
	require.Equal(t, SfUnknown, c.Get("Pair", MgmtDefer))

	c.SetAbsent("Pair", MgmtDefer)
	require.Equal(t, SfAbsent, c.Get("Pair", MgmtDefer))

	c.SetPresent("Pair", MgmtAssign, FuncPair{AstFuncID: 1, IrFuncID: 2})
	require.Equal(t, SfPresent, c.Get("Pair", MgmtAssign))
	fp, ok := c.Lookup("Pair", MgmtAssign)
	require.True(t, ok)
	require.Equal(t, FuncPair{AstFuncID: 1, IrFuncID: 2}, fp)
}
