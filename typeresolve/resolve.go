package typeresolve

import (
	"github.com/arc-language/core-irgen/ast"
	"github.com/arc-language/core-irgen/diag"
	"github.com/arc-language/core-irgen/ir"
)

// Catalog is a polymorph substitution environment: type-variables bound to
// concrete AST types, count-variables bound to concrete lengths (spec.md
// §4.2 "populate a polymorph catalog {type-vars -> types, count-vars ->
// lengths}"). A nil Catalog means "no polymorphic context" — encountering
// a PolyType/PolyCountType with a nil Catalog is always an error.
type Catalog struct {
	Types  map[string]ast.Type
	Counts map[string]uint64
}

// Templates resolves a polymorphic composite's template by name, the step
// resolve_type takes for a GenericType base before lowering its bone tree
// under a freshly populated Catalog. It is supplied by the caller (irgen
// owns the AST and its polymorphic-composite list) rather than looked up
// here, keeping typeresolve ignorant of AST traversal beyond types.
type Templates interface {
	PolymorphicComposite(name string) (ast.PolymorphicComposite, bool)
}

// peelLayer is one pointer/array wrapper peeled off the front of an
// ast.Type before resolving its terminal element (spec.md §4.2
// "resolve_type... peels leading */fixed-array layers into a stack").
type peelLayer struct {
	isArray bool
	length  uint64
}

// ResolveType implements resolve_type (spec.md §4.2). tmpl may be nil when
// the AST has no polymorphic composites (generic-base types then always
// error, as documented). cat is the active polymorph catalog, or nil
// outside of polymorphic instantiation.
func ResolveType(t ast.Type, m *Map, tmpl Templates, cat *Catalog) (ir.IrType, *diag.Error) {
	var layers []peelLayer
	cur := t
peel:
	for {
		switch v := cur.(type) {
		case *ast.PointerType:
			layers = append(layers, peelLayer{})
			cur = v.Of
		case *ast.FixedArrayType:
			length := v.Length
			if v.LengthParam != "" {
				if cat == nil {
					return nil, diag.New(ast.NoLocation, "unresolved polymorphic count parameter $#%s outside of a polymorphic instantiation", v.LengthParam)
				}
				n, ok := cat.Counts[v.LengthParam]
				if !ok {
					return nil, diag.New(ast.NoLocation, "count parameter $#%s not bound in polymorph catalog", v.LengthParam)
				}
				length = n
			}
			layers = append(layers, peelLayer{isArray: true, length: length})
			cur = v.Of
		default:
			break peel
		}
	}

	terminal, err := resolveTerminal(cur, m, tmpl, cat)
	if err != nil {
		return nil, err
	}

	// Re-apply peeled layers outermost-last: the last-peeled layer was the
	// outermost wrapper, so rebuild from the innermost (last appended) out.
	// resolve_type always reports the genuine pointee type here — the
	// opaque-`*S8` storage trick is purely a composite-field-layout concern
	// applied by LowerBone, not by general type resolution (see
	// ir/types.go PtrType doc).
	result := terminal
	for i := len(layers) - 1; i >= 0; i-- {
		if layers[i].isArray {
			result = ir.FixedArrayType{Subtype: result, Length: layers[i].length}
		} else {
			result = ir.PtrType{Of: result}
		}
	}
	return result, nil
}

func resolveTerminal(t ast.Type, m *Map, tmpl Templates, cat *Catalog) (ir.IrType, *diag.Error) {
	switch v := t.(type) {
	case *ast.BaseType:
		if cat != nil {
			if bound, ok := cat.Types[v.Name]; ok {
				return ResolveType(bound, m, tmpl, nil)
			}
		}
		found, ok := m.Lookup(v.Name)
		if !ok {
			e := diag.New(ast.NoLocation, "undeclared type %q", v.Name)
			if near, ok := m.NearestName(v.Name); ok {
				e = e.WithCandidates([]string{near})
			}
			return nil, e
		}
		return found, nil

	case *ast.FuncPtrType:
		args := make([]ir.IrType, len(v.Args))
		for i, a := range v.Args {
			rt, err := ResolveType(a, m, tmpl, cat)
			if err != nil {
				return nil, err
			}
			args[i] = rt
		}
		ret, err := ResolveType(v.Return, m, tmpl, cat)
		if err != nil {
			return nil, err
		}
		var traits ir.FuncPtrTraits
		if v.Vararg {
			traits |= ir.FuncPtrVararg
		}
		if v.Stdcall {
			traits |= ir.FuncPtrStdcall
		}
		return ir.FuncPtrType{Args: args, Return: ret, Traits: traits}, nil

	case *ast.GenericType:
		if tmpl == nil {
			return nil, diag.New(ast.NoLocation, "generic type %q used with no polymorphic composites declared", v.Name)
		}
		pc, ok := tmpl.PolymorphicComposite(v.Name)
		if !ok {
			return nil, diag.New(ast.NoLocation, "undeclared polymorphic composite %q", v.Name)
		}
		if len(v.Args) != len(pc.TypeParams)+len(pc.CountParams) {
			return nil, diag.New(ast.NoLocation, "%q expects %d type/count arguments, got %d", v.Name, len(pc.TypeParams)+len(pc.CountParams), len(v.Args))
		}
		sub := &Catalog{Types: map[string]ast.Type{}, Counts: map[string]uint64{}}
		i := 0
		for _, tp := range pc.TypeParams {
			sub.Types[tp] = v.Args[i]
			i++
		}
		for _, cp := range pc.CountParams {
			lit, ok := v.Args[i].(*ast.BaseType)
			if !ok {
				return nil, diag.New(ast.NoLocation, "count argument for %q must be a literal count", cp)
			}
			n, convErr := parseCount(lit.Name)
			if convErr != nil {
				return nil, diag.New(ast.NoLocation, "count argument for %q is not numeric: %v", cp, convErr)
			}
			sub.Counts[cp] = n
			i++
		}
		return LowerBone(pc.Layout, m, tmpl, sub)

	case *ast.AnonLayoutType:
		return LowerBone(v.Layout, m, tmpl, cat)

	case *ast.PolyType:
		if cat != nil {
			if bound, ok := cat.Types[v.Name]; ok {
				return ResolveType(bound, m, tmpl, nil)
			}
		}
		return nil, diag.New(ast.NoLocation, "unresolved polymorphic type parameter $%s", v.Name)

	case *ast.PolyCountType:
		return nil, diag.New(ast.NoLocation, "unresolved polymorphic count parameter $#%s outside of a fixed-array length position", v.Name)

	default:
		diag.Internal("typeresolve: unhandled ast.Type %T", t)
		return nil, nil
	}
}

// LowerBone converts a layout bone tree into an IrType (spec.md §4.2
// "Layout bones -> IR type"). A Type bone whose AST type is any pointer
// returns the opaque `ptr` unconditionally, permitting cyclic composite
// references; everything else resolves normally.
func LowerBone(b *ast.Bone, m *Map, tmpl Templates, cat *Catalog) (ir.IrType, *diag.Error) {
	switch b.Kind {
	case ast.BoneType:
		if isPointerAstType(b.Single) {
			return ir.OpaquePtr, nil
		}
		return ResolveType(b.Single, m, tmpl, cat)

	case ast.BoneStruct, ast.BoneUnion:
		subtypes := make([]ir.IrType, len(b.Children))
		for i := range b.Children {
			t, err := LowerBone(&b.Children[i], m, tmpl, cat)
			if err != nil {
				return nil, err
			}
			subtypes[i] = t
		}
		var traits ir.CompositeTraits
		if b.Packed {
			traits |= ir.TraitPacked
		}
		if b.Kind == ast.BoneStruct {
			return ir.StructureType{Name: b.Name, Subtypes: subtypes, Traits: traits}, nil
		}
		return ir.UnionType{Name: b.Name, Subtypes: subtypes, Traits: traits}, nil

	default:
		diag.Internal("typeresolve: unhandled ast.BoneKind %v", b.Kind)
		return nil, nil
	}
}

func isPointerAstType(t ast.Type) bool {
	_, ok := t.(*ast.PointerType)
	return ok
}

// parseCount converts a count-argument literal's textual form (e.g. the
// base-type name slot reused to carry a numeral in a generic argument
// position) to a uint64. This mirrors how the original's parser already
// hands resolve_type a numeric AST node reusing the same slot as a type
// name; here it is a plain string-to-number parse.
func parseCount(s string) (uint64, error) {
	var n uint64
	if s == "" {
		return 0, errEmptyCount
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, errEmptyCount
		}
		n = n*10 + uint64(c-'0')
	}
	return n, nil
}

var errEmptyCount = diagErrEmptyCount{}

type diagErrEmptyCount struct{}

func (diagErrEmptyCount) Error() string { return "not a numeric count literal" }
