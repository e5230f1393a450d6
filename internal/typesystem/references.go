package typesystem

import "github.com/mago-lang/mago/internal/interner"

// ResolveReferences rewrites reference placeholders into named objects
// wherever known reports the symbol as an indexed class-like. References
// to symbols that stay unknown are kept as references; their type
// arguments still resolve.
func ResolveReferences(u *Union, known func(interner.StringId) bool) *Union {
	if u == nil {
		return nil
	}
	out := make([]Atomic, len(u.Atomics))
	for i, a := range u.Atomics {
		out[i] = resolveReferenceAtomic(a, known)
	}
	return u.CloneFlags(out)
}

func resolveReferenceAtomic(a Atomic, known func(interner.StringId) bool) Atomic {
	switch t := a.(type) {
	case TReference:
		params := resolveReferenceUnions(t.TypeParams, known)
		if known(t.Name) {
			return TNamedObject{Name: t.Name, TypeParams: params}
		}
		t.TypeParams = params
		return t
	case TNamedObject:
		t.TypeParams = resolveReferenceUnions(t.TypeParams, known)
		t.Intersections = resolveReferenceAtomics(t.Intersections, known)
		return t
	case TArray:
		t.Key = ResolveReferences(t.Key, known)
		t.Value = ResolveReferences(t.Value, known)
		if t.Shape != nil {
			shape := make([]ShapeEntry, len(t.Shape))
			for i, e := range t.Shape {
				e.Type = ResolveReferences(e.Type, known)
				shape[i] = e
			}
			t.Shape = shape
		}
		return t
	case TIterable:
		t.Key = ResolveReferences(t.Key, known)
		t.Value = ResolveReferences(t.Value, known)
		return t
	case TCallable:
		if t.Params != nil {
			params := make([]CallableParam, len(t.Params))
			for i, p := range t.Params {
				p.Type = ResolveReferences(p.Type, known)
				params[i] = p
			}
			t.Params = params
		}
		t.Return = ResolveReferences(t.Return, known)
		return t
	case TGenericParam:
		t.Bound = ResolveReferences(t.Bound, known)
		t.Intersections = resolveReferenceAtomics(t.Intersections, known)
		return t
	case TValueOf:
		t.Of = ResolveReferences(t.Of, known)
		return t
	case TKeyOf:
		t.Of = ResolveReferences(t.Of, known)
		return t
	case TPropertiesOf:
		t.Of = ResolveReferences(t.Of, known)
		return t
	case TConditional:
		t.Subject = resolveReferenceAtomic(t.Subject, known)
		t.If = ResolveReferences(t.If, known)
		t.Then = ResolveReferences(t.Then, known)
		t.Else = ResolveReferences(t.Else, known)
		return t
	default:
		return a
	}
}

func resolveReferenceAtomics(atomics []Atomic, known func(interner.StringId) bool) []Atomic {
	if atomics == nil {
		return nil
	}
	out := make([]Atomic, len(atomics))
	for i, a := range atomics {
		out[i] = resolveReferenceAtomic(a, known)
	}
	return out
}

func resolveReferenceUnions(us []*Union, known func(interner.StringId) bool) []*Union {
	if us == nil {
		return nil
	}
	out := make([]*Union, len(us))
	for i, u := range us {
		out[i] = ResolveReferences(u, known)
	}
	return out
}
