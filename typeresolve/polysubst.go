package typeresolve

import "github.com/arc-language/core-irgen/ast"

// ResolveTypePolymorphics implements resolve_type_polymorphics (spec.md
// §4.8): walks an AST type cloning every node, substituting `$T`
// references inline from cat.Types (the bound type may itself need
// recursive substitution, e.g. a type-var bound to another generic type)
// and `$#N` references into a FixedArrayType's length. Used by
// instantiate_poly_func to rewrite a polymorphic function template's
// argument types, return type, and body before it is treated as an
// ordinary concrete function.
//
// An unbound PolyType/PolyCountType is left in place rather than erroring
// here — unifyPolyFunc already verified every declared poly-parameter has
// a binding before instantiation is attempted, so reaching this function
// with a gap would be an internal inconsistency, not a user-facing one;
// the subsequent ResolveType call reports it if it ever happens.
func ResolveTypePolymorphics(t ast.Type, cat *Catalog) ast.Type {
	if t == nil {
		return nil
	}
	switch v := t.(type) {
	case *ast.BaseType:
		return v

	case *ast.PointerType:
		return &ast.PointerType{Of: ResolveTypePolymorphics(v.Of, cat)}

	case *ast.FixedArrayType:
		length := v.Length
		lengthParam := v.LengthParam
		if lengthParam != "" && cat != nil {
			if n, ok := cat.Counts[lengthParam]; ok {
				length, lengthParam = n, ""
			}
		}
		return &ast.FixedArrayType{Length: length, LengthParam: lengthParam, Of: ResolveTypePolymorphics(v.Of, cat)}

	case *ast.FuncPtrType:
		args := make([]ast.Type, len(v.Args))
		for i, a := range v.Args {
			args[i] = ResolveTypePolymorphics(a, cat)
		}
		return &ast.FuncPtrType{Args: args, Return: ResolveTypePolymorphics(v.Return, cat), Vararg: v.Vararg, Stdcall: v.Stdcall}

	case *ast.GenericType:
		args := make([]ast.Type, len(v.Args))
		for i, a := range v.Args {
			args[i] = ResolveTypePolymorphics(a, cat)
		}
		return &ast.GenericType{Name: v.Name, Args: args}

	case *ast.AnonLayoutType:
		return &ast.AnonLayoutType{Layout: substBone(v.Layout, cat)}

	case *ast.PolyType:
		if cat != nil {
			if bound, ok := cat.Types[v.Name]; ok {
				return ResolveTypePolymorphics(bound, cat)
			}
		}
		return v

	case *ast.PolyCountType:
		if cat != nil {
			if _, ok := cat.Counts[v.Name]; ok {
				// A count parameter used as a standalone type (rather than
				// nested in a FixedArrayType length) names a runtime value
				// carrying that count; usize is the concrete representation
				// the rest of the middle-end expects such a value in.
				return &ast.BaseType{Name: "usize"}
			}
		}
		return v

	default:
		return v
	}
}

func substBone(b *ast.Bone, cat *Catalog) *ast.Bone {
	if b == nil {
		return nil
	}
	out := &ast.Bone{Kind: b.Kind, Packed: b.Packed, Name: b.Name}
	switch b.Kind {
	case ast.BoneType:
		out.Single = ResolveTypePolymorphics(b.Single, cat)
	case ast.BoneStruct, ast.BoneUnion:
		out.Children = make([]ast.Bone, len(b.Children))
		for i := range b.Children {
			out.Children[i] = *substBone(&b.Children[i], cat)
		}
	}
	return out
}
