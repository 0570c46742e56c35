package irgen

import "fmt"

// NameContext threads "what are we currently generating inside" through
// lowering (SPEC_FULL.md §5, grounded on the original's DRVR/name_ctx.c):
// the enclosing function's name, which NextAnonName folds into the
// anonymous names it hands out.
type NameContext struct {
	FuncName      string
	CompositeName string // not set by this package; always ""
	nextAnonID    int
}

// MangledName produces the deterministic internal symbol name for a
// non-exported, non-foreign, non-main function: a single-letter tag
// followed by the function's declared name and an ordinal disambiguating
// overloads (spec.md §6 "internal -> deterministic mangled name prefixed
// by a single-letter tag").
func (c *NameContext) MangledName(declaredName string, overloadOrdinal int) string {
	if overloadOrdinal == 0 {
		return "f_" + declaredName
	}
	return fmt.Sprintf("f_%s_%d", declaredName, overloadOrdinal)
}

// NextAnonName allocates a fresh name for an anonymous global or
// synthetic helper created while generating inside FuncName (e.g. a
// variadic-array backing global, an initializer-list temporary).
func (c *NameContext) NextAnonName(prefix string) string {
	id := c.nextAnonID
	c.nextAnonID++
	return fmt.Sprintf("%s.%s.%d", prefix, c.FuncName, id)
}
