// Package template holds the generic-inference state of one invocation:
// declared template parameters, inferred lower/upper bounds, and the
// replacement passes that substitute parameters back into types.
package template

import (
	"github.com/mago-lang/mago/internal/interner"
	"github.com/mago-lang/mago/internal/typesystem"
)

// Param is one declared template parameter of the callee.
type Param struct {
	Name     interner.StringId
	Entity   interner.StringId // defining class-like or function
	Bound    *typesystem.Union // declared upper bound, nil means mixed
	Variance typesystem.Variance
}

// Bound is one piece of inference evidence. Depth is the structural depth
// at which the evidence appeared; shallower evidence wins.
type Bound struct {
	Type  *typesystem.Union
	Depth int
}

type paramKey struct {
	param  interner.StringId
	entity interner.StringId
}

// Result accumulates bounds during argument/parameter pairing.
type Result struct {
	Templates []Param
	Readonly  bool

	lower map[paramKey]Bound
	upper map[paramKey]Bound
}

// NewResult starts inference for a callee with the given declared
// templates.
func NewResult(templates []Param) *Result {
	return &Result{
		Templates: templates,
		lower:     make(map[paramKey]Bound),
		upper:     make(map[paramKey]Bound),
	}
}

// AddLowerBound records covariant evidence. Shallower evidence replaces
// deeper; evidence at the same depth combines.
func (r *Result) AddLowerBound(ir *interner.Interner, res typesystem.Resolver, param, entity interner.StringId, t *typesystem.Union, depth int) {
	if r.Readonly {
		return
	}
	key := paramKey{param, entity}
	prev, ok := r.lower[key]
	switch {
	case !ok || depth < prev.Depth:
		r.lower[key] = Bound{Type: t, Depth: depth}
	case depth == prev.Depth:
		r.lower[key] = Bound{Type: typesystem.Combine(ir, res, prev.Type, t, 0), Depth: depth}
	}
}

// AddUpperBound records contravariant evidence. Shallower evidence
// replaces deeper; evidence at the same depth intersects.
func (r *Result) AddUpperBound(ir *interner.Interner, res typesystem.Resolver, param, entity interner.StringId, t *typesystem.Union, depth int) {
	if r.Readonly {
		return
	}
	key := paramKey{param, entity}
	prev, ok := r.upper[key]
	switch {
	case !ok || depth < prev.Depth:
		r.upper[key] = Bound{Type: t, Depth: depth}
	case depth == prev.Depth:
		if merged := typesystem.Intersect(ir, res, prev.Type, t); merged != nil {
			r.upper[key] = Bound{Type: merged, Depth: depth}
		}
	}
}

// HasLowerBound reports whether covariant evidence exists for param.
func (r *Result) HasLowerBound(param, entity interner.StringId) bool {
	_, ok := r.lower[paramKey{param, entity}]
	return ok
}

// LowerBound returns the inferred lower bound, if any.
func (r *Result) LowerBound(param, entity interner.StringId) (*typesystem.Union, bool) {
	b, ok := r.lower[paramKey{param, entity}]
	if !ok {
		return nil, false
	}
	return b.Type, true
}

// UpperBound returns the inferred upper bound, if any.
func (r *Result) UpperBound(param, entity interner.StringId) (*typesystem.Union, bool) {
	b, ok := r.upper[paramKey{param, entity}]
	if !ok {
		return nil, false
	}
	return b.Type, true
}

// LowerBoundsForClassLike returns every inferred lower bound whose
// defining entity is the given class-like, keyed by parameter name.
func (r *Result) LowerBoundsForClassLike(entity interner.StringId) (map[interner.StringId]*typesystem.Union, bool) {
	var out map[interner.StringId]*typesystem.Union
	for key, b := range r.lower {
		if key.entity != entity {
			continue
		}
		if out == nil {
			out = make(map[interner.StringId]*typesystem.Union)
		}
		out[key.param] = b.Type
	}
	return out, out != nil
}

// declaredBound returns the declared upper bound of param, mixed when the
// declaration is unbounded or unknown.
func (r *Result) declaredBound(param, entity interner.StringId) *typesystem.Union {
	for _, t := range r.Templates {
		if t.Name == param && t.Entity == entity {
			if t.Bound != nil {
				return t.Bound
			}
			break
		}
	}
	return typesystem.Mixed()
}

// StandinReplace substitutes template parameters mid-inference: inferred
// lower bound first, then inferred upper bound, then the declared bound.
// Used when checking argument compatibility before inference completes.
func StandinReplace(ir *interner.Interner, res typesystem.Resolver, u *typesystem.Union, r *Result) *typesystem.Union {
	return Replace(ir, u, func(g typesystem.TGenericParam) (*typesystem.Union, bool) {
		if b, ok := r.LowerBound(g.Name, g.DefiningEntity); ok {
			return b, true
		}
		if b, ok := r.UpperBound(g.Name, g.DefiningEntity); ok {
			return b, true
		}
		if g.Bound != nil {
			return g.Bound, true
		}
		return r.declaredBound(g.Name, g.DefiningEntity), true
	})
}

// InferredReplace fixes template parameters after inference: lower bound
// when evidence exists, declared bound otherwise. Used on the return type.
func InferredReplace(ir *interner.Interner, res typesystem.Resolver, u *typesystem.Union, r *Result) *typesystem.Union {
	return Replace(ir, u, func(g typesystem.TGenericParam) (*typesystem.Union, bool) {
		if b, ok := r.LowerBound(g.Name, g.DefiningEntity); ok {
			return b, true
		}
		if g.Bound != nil {
			return g.Bound, true
		}
		return r.declaredBound(g.Name, g.DefiningEntity), true
	})
}

// Replace walks a union and substitutes every generic-parameter
// occurrence the callback resolves. Substitution recurses through type
// arguments, array values, callables and derived types.
func Replace(ir *interner.Interner, u *typesystem.Union, fn func(typesystem.TGenericParam) (*typesystem.Union, bool)) *typesystem.Union {
	if u == nil {
		return nil
	}
	out := make([]typesystem.Atomic, 0, len(u.Atomics))
	for _, a := range u.Atomics {
		if g, ok := a.(typesystem.TGenericParam); ok {
			if sub, ok := fn(g); ok && sub != nil {
				out = append(out, sub.Atomics...)
				continue
			}
		}
		out = append(out, replaceAtomic(ir, a, fn))
	}
	return u.CloneFlags(out)
}

func replaceAtomic(ir *interner.Interner, a typesystem.Atomic, fn func(typesystem.TGenericParam) (*typesystem.Union, bool)) typesystem.Atomic {
	switch t := a.(type) {
	case typesystem.TNamedObject:
		t.TypeParams = replaceUnions(ir, t.TypeParams, fn)
		return t
	case typesystem.TReference:
		t.TypeParams = replaceUnions(ir, t.TypeParams, fn)
		return t
	case typesystem.TArray:
		if t.Key != nil {
			t.Key = Replace(ir, t.Key, fn)
		}
		if t.Value != nil {
			t.Value = Replace(ir, t.Value, fn)
		}
		if t.Shape != nil {
			shape := make([]typesystem.ShapeEntry, len(t.Shape))
			for i, e := range t.Shape {
				e.Type = Replace(ir, e.Type, fn)
				shape[i] = e
			}
			t.Shape = shape
		}
		return t
	case typesystem.TIterable:
		if t.Key != nil {
			t.Key = Replace(ir, t.Key, fn)
		}
		if t.Value != nil {
			t.Value = Replace(ir, t.Value, fn)
		}
		return t
	case typesystem.TCallable:
		params := make([]typesystem.CallableParam, len(t.Params))
		for i, p := range t.Params {
			p.Type = Replace(ir, p.Type, fn)
			params[i] = p
		}
		t.Params = params
		if t.Return != nil {
			t.Return = Replace(ir, t.Return, fn)
		}
		return t
	case typesystem.TValueOf:
		t.Of = Replace(ir, t.Of, fn)
		return t
	case typesystem.TKeyOf:
		t.Of = Replace(ir, t.Of, fn)
		return t
	case typesystem.TPropertiesOf:
		t.Of = Replace(ir, t.Of, fn)
		return t
	case typesystem.TConditional:
		t.Subject = replaceAtomic(ir, t.Subject, fn)
		t.If = Replace(ir, t.If, fn)
		t.Then = Replace(ir, t.Then, fn)
		t.Else = Replace(ir, t.Else, fn)
		return t
	default:
		return a
	}
}

func replaceUnions(ir *interner.Interner, us []*typesystem.Union, fn func(typesystem.TGenericParam) (*typesystem.Union, bool)) []*typesystem.Union {
	if us == nil {
		return nil
	}
	out := make([]*typesystem.Union, len(us))
	for i, u := range us {
		out[i] = Replace(ir, u, fn)
	}
	return out
}
