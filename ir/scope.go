package ir

import "github.com/arc-language/core-irgen/ast"

// ManagementMethod is one of the lifetime-management hooks a type can
// define (spec.md §4.4): __defer__ runs on scope exit, __pass__ on
// by-value argument passing, __assign__ on `=`, __access__ wraps struct
// index access.
type ManagementMethod int

const (
	MgmtDefer ManagementMethod = iota
	MgmtPass
	MgmtAssign
	MgmtAccess
)

func (m ManagementMethod) String() string {
	switch m {
	case MgmtDefer:
		return "__defer__"
	case MgmtPass:
		return "__pass__"
	case MgmtAssign:
		return "__assign__"
	case MgmtAccess:
		return "__access__"
	default:
		return "?"
	}
}

// SfState is the tri-state result of "does this type implement this
// management method" (spec.md §4.4 "Auto-generation cache (sf_cache)").
// Unknown means not yet probed; Present/Absent are memoized per (type,
// method) pair so autogeneration never re-enters the same question while
// walking a recursive aggregate.
type SfState int

const (
	SfUnknown SfState = iota
	SfPresent
	SfAbsent
)

type sfCacheKey struct {
	typeName string
	method   ManagementMethod
}

// SfCache is the module-wide sf_cache: one entry per (named type,
// management method) pair, shared by every scope's exit-time dispatch and
// by polymorphic autogeneration.
type SfCache struct {
	entries map[sfCacheKey]SfState
	// FuncIDs records the resolved (ast, ir) function pair once a method
	// is found, so dispatch after the first lookup is a map hit plus a
	// Call, not another catalog search.
	funcIDs map[sfCacheKey]FuncPair
}

// FuncPair is a resolved management-method implementation (spec.md
// glossary "Funcpair").
type FuncPair struct {
	AstFuncID int
	IrFuncID  int
}

func NewSfCache() *SfCache {
	return &SfCache{
		entries: make(map[sfCacheKey]SfState),
		funcIDs: make(map[sfCacheKey]FuncPair),
	}
}

func (c *SfCache) Get(typeName string, m ManagementMethod) SfState {
	return c.entries[sfCacheKey{typeName, m}]
}

func (c *SfCache) SetAbsent(typeName string, m ManagementMethod) {
	c.entries[sfCacheKey{typeName, m}] = SfAbsent
}

func (c *SfCache) SetPresent(typeName string, m ManagementMethod, fp FuncPair) {
	key := sfCacheKey{typeName, m}
	c.entries[key] = SfPresent
	c.funcIDs[key] = fp
}

func (c *SfCache) Lookup(typeName string, m ManagementMethod) (FuncPair, bool) {
	fp, ok := c.funcIDs[sfCacheKey{typeName, m}]
	return fp, ok
}

// VarTraits flags a scope variable's special handling, mirroring
// BridgeVar.traits in spec.md §3 "Variable scopes".
type VarTraits uint32

const (
	// VarUndef marks a declaration left uninitialized (DeclareUndef).
	VarUndef VarTraits = 1 << iota
	// VarReference marks a variable whose storage already holds a pointer
	// (each-in's `it`, by-ref parameters); member/array loads auto-deref it
	// and it is skipped by __defer__.
	VarReference
	// VarPOD skips __pass__/__defer__/__assign__ dispatch entirely.
	VarPOD
	// VarStatic marks a module-lifetime variable (StaticID valid instead
	// of StackID), deinitialized by the generated static-deinitializer
	// routine rather than by its declaring scope.
	VarStatic
)

func (t VarTraits) Has(f VarTraits) bool { return t&f != 0 }

// BridgeVar is one variable entry owned by a Scope (spec.md §3 "Variable
// scopes", glossary "Bridge scope"/"Reference variable"/"Static
// variable").
type BridgeVar struct {
	Name     string
	AstType  ast.Type
	IrType   IrType
	StackID  int // valid unless Traits.Has(VarStatic)
	StaticID int // valid iff Traits.Has(VarStatic)
	Traits   VarTraits
}

// Scope is one node of the lexical scope tree (spec.md §3 "Variable
// scopes", §9 "Scopes as a tree, not a stack" — defer generation for a
// labeled break/continue walks from the current scope up to a named
// ancestor, which a flat stack cannot express once scopes are entered
// non-linearly during speculative generation).
//
// FirstVarID/FollowingVarID record the half-open range of variable ids
// this scope owns within the enclosing function's id space, letting a
// defer pass targeting an ancestor scope know exactly which ids along the
// way belong to it without re-walking Variables.
type Scope struct {
	Parent         *Scope
	Children       []*Scope
	Variables      []BridgeVar
	FirstVarID     int
	FollowingVarID int
}

func NewRootScope() *Scope {
	return &Scope{}
}

// Child opens a new child scope starting its id range where the parent's
// current range ends.
func (s *Scope) Child() *Scope {
	c := &Scope{Parent: s, FirstVarID: s.FollowingVarID, FollowingVarID: s.FollowingVarID}
	s.Children = append(s.Children, c)
	return c
}

// Declare records v and advances the scope's id range by one, returning
// the id assigned.
func (s *Scope) Declare(v BridgeVar) int {
	id := s.FollowingVarID
	s.Variables = append(s.Variables, v)
	s.FollowingVarID++
	return id
}

// Lookup searches this scope and its ancestors, innermost first, matching
// inner-shadows-outer (spec.md §3 invariant).
func (s *Scope) Lookup(name string) (BridgeVar, bool) {
	for cur := s; cur != nil; cur = cur.Parent {
		for i := len(cur.Variables) - 1; i >= 0; i-- {
			if cur.Variables[i].Name == name {
				return cur.Variables[i], true
			}
		}
	}
	return BridgeVar{}, false
}

// DeferTargets returns this scope's own variables needing a __defer__
// call on exit — every variable except those flagged POD or Reference
// (spec.md §3 "closing a scope invokes __defer__ ... on every non-POD
// non-Reference variable"), in reverse-declaration order.
func (s *Scope) DeferTargets() []BridgeVar {
	out := make([]BridgeVar, 0, len(s.Variables))
	for i := len(s.Variables) - 1; i >= 0; i-- {
		v := s.Variables[i]
		if v.Traits.Has(VarPOD) || v.Traits.Has(VarReference) {
			continue
		}
		out = append(out, v)
	}
	return out
}

// AncestorChain walks from s up to (and including) target, the path a
// labeled break/continue's defer pass covers (spec.md §9). It returns nil
// if target is not an ancestor of s.
func (s *Scope) AncestorChain(target *Scope) []*Scope {
	var chain []*Scope
	for cur := s; cur != nil; cur = cur.Parent {
		chain = append(chain, cur)
		if cur == target {
			return chain
		}
	}
	return nil
}
