// Package diag provides located diagnostics and the three-valued result
// code every generation routine in this module returns (spec.md §7, §9).
package diag

import (
	"fmt"

	"github.com/arc-language/core-irgen/ast"
)

// Result is the outcome of a generation routine. A plain error is not
// enough: callers must distinguish a tentative lookup that should
// synthesize a no-op from a genuine compile error that must abort
// (spec.md §9 "Three-valued error codes").
type Result int

const (
	// Success: generation completed and produced usable IR.
	Success Result = iota
	// Failure: a diagnostic has already been recorded; abandon the module.
	Failure
	// AltFailure: a tentative/speculative attempt failed; the caller
	// decides whether that is itself fatal or should fall back.
	AltFailure
)

func (r Result) String() string {
	switch r {
	case Success:
		return "success"
	case Failure:
		return "failure"
	case AltFailure:
		return "alt_failure"
	default:
		return "unknown"
	}
}

func (r Result) OK() bool { return r == Success }

// Error is a located, user-facing diagnostic.
type Error struct {
	Loc     ast.Location
	Message string
	// Candidates holds nearest-name suggestions (edit distance <= 3),
	// most similar first.
	Candidates []string
}

func (e *Error) Error() string {
	if len(e.Candidates) == 0 {
		return fmt.Sprintf("%s: %s", e.Loc, e.Message)
	}
	return fmt.Sprintf("%s: %s (did you mean %q?)", e.Loc, e.Message, e.Candidates[0])
}

// New builds a located error with no suggestions.
func New(loc ast.Location, format string, args ...interface{}) *Error {
	return &Error{Loc: loc, Message: fmt.Sprintf(format, args...)}
}

// WithCandidates attaches nearest-name suggestions to an existing error.
func (e *Error) WithCandidates(candidates []string) *Error {
	e.Candidates = candidates
	return e
}

// Internal panics to signal an internal assertion failure (pool misuse,
// malformed layout, missing prerequisite String/AnyType composite) —
// these abort compilation rather than producing a located diagnostic,
// per spec.md §7 "Internal assertion failures".
func Internal(format string, args ...interface{}) {
	panic(fmt.Sprintf("core-irgen: internal error: %s", fmt.Sprintf(format, args...)))
}
