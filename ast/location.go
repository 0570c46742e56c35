// Package ast defines the input contract this module consumes: a fully
// parsed and type-inferred Abstract Syntax Tree. Everything in this package
// is produced by an external front-end (lexer/parser/type-checker) — this
// module only reads it.
package ast

import "fmt"

// Location is a source position tuple carried alongside AST nodes so that
// downstream diagnostics can point back at the original source.
type Location struct {
	Filename string
	Line     int
	Column   int
}

func (l Location) String() string {
	if l.Filename == "" {
		return "<unknown>"
	}
	return fmt.Sprintf("%s:%d:%d", l.Filename, l.Line, l.Column)
}

// NoLocation is used by synthesized AST nodes (e.g. autogenerated
// __defer__/__pass__/__assign__ bodies) that have no source position.
var NoLocation = Location{}
