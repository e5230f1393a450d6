package typesystem

import (
	"github.com/mago-lang/mago/internal/interner"
)

// Intersect computes the greatest lower bound of a and b, or nil when the
// two are disjoint. Object-to-object intersections that cannot be ordered
// by inheritance produce an intersection type (`A&B`), which is valid for
// object-like atomics only.
func Intersect(ir *interner.Interner, res Resolver, a, b *Union) *Union {
	if res == nil {
		res = NopResolver()
	}
	if a.IsMixed() {
		return b.Clone()
	}
	if b.IsMixed() {
		return a.Clone()
	}

	var out []Atomic
	for _, ia := range a.Atomics {
		for _, ba := range b.Atomics {
			if g := intersectAtomics(ir, res, ia, ba); g != nil {
				out = append(out, g)
			}
		}
	}
	if len(out) == 0 {
		return nil
	}
	result := NewUnion(CombineAtomics(ir, res, out, 0)...)
	result.HadTemplate = a.HadTemplate || b.HadTemplate
	return result
}

func intersectAtomics(ir *interner.Interner, res Resolver, x, y Atomic) Atomic {
	r := &ComparisonResult{}
	if atomicContainedBy(ir, res, x, y, r) {
		return x
	}
	if atomicContainedBy(ir, res, y, x, r) {
		return y
	}

	xo, xIsObj := x.(TNamedObject)
	yo, yIsObj := y.(TNamedObject)
	if xIsObj && yIsObj {
		// Unrelated class-likes can still meet when at least one side is
		// an interface (a future subclass may implement it).
		if res.IsInterface(xo.Name) || res.IsInterface(yo.Name) {
			merged := xo
			merged.Intersections = append(append([]Atomic{}, xo.Intersections...), yo)
			return merged
		}
		return nil
	}

	if xg, ok := x.(TGenericParam); ok {
		if narrowed := intersectGenericParam(ir, res, xg, y); narrowed != nil {
			return narrowed
		}
	}
	if yg, ok := y.(TGenericParam); ok {
		if narrowed := intersectGenericParam(ir, res, yg, x); narrowed != nil {
			return narrowed
		}
	}
	return nil
}

// intersectGenericParam narrows a template parameter by an extra
// constraint, keeping the parameter identity and recording the constraint
// in the intersection tail.
func intersectGenericParam(ir *interner.Interner, res Resolver, g TGenericParam, other Atomic) Atomic {
	if g.Bound != nil {
		if bound := Intersect(ir, res, g.Bound, NewUnion(other)); bound == nil {
			return nil
		}
	}
	g.Intersections = append(append([]Atomic{}, g.Intersections...), other)
	return g
}
