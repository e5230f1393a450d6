package typesystem

import (
	"github.com/mago-lang/mago/internal/interner"
)

// ComparisonResult carries side information out of IsContainedBy. Callers
// use the flags to distinguish hard mismatches from coercions, and the
// replacement type to narrow the input after a successful check.
type ComparisonResult struct {
	TypeCoerced                bool
	TypeCoercedFromNestedMixed bool
	TypeCoercedToLiteral       bool
	ToStringCast               bool
	UpcastedAwaitable          bool
	Replacement                *Union
}

// IsContainedBy reports whether every value of input is a value of
// container. Pure, total and deterministic: mixed contains everything,
// never is contained by everything, and unresolved-vs-unresolved
// comparisons succeed defensively. res may be nil for a codebase-free
// comparison.
func IsContainedBy(ir *interner.Interner, res Resolver, input, container *Union, out *ComparisonResult) bool {
	if res == nil {
		res = NopResolver()
	}
	if out == nil {
		out = &ComparisonResult{}
	}

	if container.IsMixed() {
		return true
	}
	if input.IsNever() {
		return true
	}

	contained := true
	for _, ia := range input.Atomics {
		if _, ok := ia.(TNever); ok {
			continue
		}
		matched := false
		for _, ca := range container.Atomics {
			if atomicContainedBy(ir, res, ia, ca, out) {
				matched = true
				break
			}
		}
		if !matched {
			// A second pass records coercions: mixed input coerces into
			// any container, literals widen, etc.
			for _, ca := range container.Atomics {
				if atomicCoercesTo(ir, res, ia, ca, out) {
					break
				}
			}
			contained = false
		}
	}
	return contained
}

// UnionsMatch reports mutual containment (same set of values).
func UnionsMatch(ir *interner.Interner, res Resolver, a, b *Union) bool {
	return IsContainedBy(ir, res, a, b, nil) && IsContainedBy(ir, res, b, a, nil)
}

func atomicContainedBy(ir *interner.Interner, res Resolver, input, container Atomic, out *ComparisonResult) bool {
	switch ca := container.(type) {
	case TMixed:
		switch ca.Flag {
		case MixedNonNull:
			_, isNull := input.(TNull)
			return !isNull
		case MixedTruthy:
			return atomicAlwaysTruthy(input)
		case MixedFalsy:
			return atomicAlwaysFalsy(input)
		default:
			return true
		}
	case TNever:
		_, ok := input.(TNever)
		return ok
	}

	switch ia := input.(type) {
	case TNever:
		return true
	case TMixed:
		return false
	case TInt:
		switch ca := container.(type) {
		case TInt:
			if ca.Literal == nil {
				return true
			}
			return ia.Literal != nil && *ia.Literal == *ca.Literal
		case TFloat:
			// Implicit int -> float widening, as the runtime does.
			if ca.Literal == nil {
				return true
			}
			return ia.Literal != nil && float64(*ia.Literal) == *ca.Literal
		case TValueOf, TKeyOf:
			return derivedContains(ir, res, container, input)
		}
		return false
	case TFloat:
		ca, ok := container.(TFloat)
		if !ok {
			return false
		}
		if ca.Literal == nil {
			return true
		}
		return ia.Literal != nil && *ia.Literal == *ca.Literal
	case TString:
		switch ca := container.(type) {
		case TString:
			if ca.Literal != nil {
				return ia.Literal != nil && *ia.Literal == *ca.Literal
			}
			if ca.NonEmpty {
				if ia.Literal != nil {
					return *ia.Literal != ""
				}
				return ia.NonEmpty
			}
			return true
		case TValueOf, TKeyOf:
			return derivedContains(ir, res, container, input)
		}
		return false
	case TBool:
		ca, ok := container.(TBool)
		if !ok {
			return false
		}
		if ca.Literal == nil {
			return true
		}
		return ia.Literal != nil && *ia.Literal == *ca.Literal
	case TNull:
		_, ok := container.(TNull)
		return ok
	case TVoid:
		switch container.(type) {
		case TVoid, TNull:
			return true
		}
		return false
	case TArray:
		switch ca := container.(type) {
		case TArray:
			return arrayContainedBy(ir, res, ia, ca, out)
		case TIterable:
			k, v := arrayKeyValue(ir, res, ia, 0)
			return IsContainedBy(ir, res, k, ca.Key, out) && IsContainedBy(ir, res, v, ca.Value, out)
		}
		return false
	case TNamedObject:
		return namedObjectContainedBy(ir, res, ia, container, out)
	case TAnonObject:
		_, ok := container.(TAnonObject)
		return ok
	case TEnumCase:
		switch ca := container.(type) {
		case TEnumCase:
			return ia.Enum == ca.Enum && ia.Case == ca.Case
		case TNamedObject:
			return res.IsInstanceOf(ia.Enum, ca.Name)
		case TAnonObject:
			return true
		}
		return false
	case TCallable:
		ca, ok := container.(TCallable)
		if !ok {
			return false
		}
		if ca.IsClosure && !ia.IsClosure {
			return false
		}
		return callableContainedBy(ir, res, ia, ca, out)
	case TIterable:
		ca, ok := container.(TIterable)
		if !ok {
			return false
		}
		return IsContainedBy(ir, res, ia.Key, ca.Key, out) && IsContainedBy(ir, res, ia.Value, ca.Value, out)
	case TGenericParam:
		return genericParamContainedBy(ir, res, ia, container, out)
	case TValueOf, TKeyOf, TPropertiesOf:
		if input.Id(ir) == container.Id(ir) {
			return true
		}
		if resolved := ResolveDerived(ir, res, input); resolved != nil {
			return IsContainedBy(ir, res, resolved, NewUnion(container), out)
		}
		return false
	case TConditional:
		return IsContainedBy(ir, res, ia.Then, NewUnion(container), out) &&
			IsContainedBy(ir, res, ia.Else, NewUnion(container), out)
	case TReference:
		switch ca := container.(type) {
		case TReference:
			// Neither side is resolvable; the unknown symbol was already
			// reported, so treat the pair as compatible.
			return true
		case TNamedObject:
			return res.IsInstanceOf(ia.Name, ca.Name)
		default:
			return false
		}
	}
	return false
}

func namedObjectContainedBy(ir *interner.Interner, res Resolver, ia TNamedObject, container Atomic, out *ComparisonResult) bool {
	switch ca := container.(type) {
	case TAnonObject:
		return true
	case TReference:
		return res.IsInstanceOf(ia.Name, ca.Name)
	case TIterable:
		// Only Traversable implementors are iterable objects.
		traversable := ir.Intern("Traversable")
		if !res.IsInstanceOf(ia.Name, traversable) {
			return false
		}
		if len(ia.TypeParams) == 2 {
			return IsContainedBy(ir, res, ia.TypeParams[0], ca.Key, out) &&
				IsContainedBy(ir, res, ia.TypeParams[1], ca.Value, out)
		}
		return true
	case TCallable:
		// Closures are objects with a structural signature.
		closure := ir.Intern("Closure")
		return ia.Name == closure
	case TNamedObject:
		if ia.Name != ca.Name && !res.IsInstanceOf(ia.Name, ca.Name) {
			return false
		}
		// The container's intersection tail must hold too.
		for _, extra := range ca.Intersections {
			if !atomicContainedBy(ir, res, ia, extra, out) {
				intersectionMatched := false
				for _, own := range ia.Intersections {
					if atomicContainedBy(ir, res, own, extra, out) {
						intersectionMatched = true
						break
					}
				}
				if !intersectionMatched {
					return false
				}
			}
		}
		if len(ca.TypeParams) == 0 {
			return true
		}
		params := ia.TypeParams
		if ia.Name != ca.Name {
			// Walk the template-extends chain to see the input through
			// the container's declaration.
			params = nil
		}
		if len(params) != len(ca.TypeParams) {
			// Unknown argument bindings: accept and flag the coercion.
			out.TypeCoerced = true
			return true
		}
		variances := res.TemplateVariances(ca.Name)
		for i := range params {
			variance := Invariant
			if i < len(variances) {
				variance = variances[i]
			}
			switch variance {
			case Covariant:
				if !IsContainedBy(ir, res, params[i], ca.TypeParams[i], out) {
					return false
				}
			case Contravariant:
				if !IsContainedBy(ir, res, ca.TypeParams[i], params[i], out) {
					return false
				}
			default:
				if !UnionsMatch(ir, res, params[i], ca.TypeParams[i]) {
					return false
				}
			}
		}
		return true
	}
	return false
}

func genericParamContainedBy(ir *interner.Interner, res Resolver, ia TGenericParam, container Atomic, out *ComparisonResult) bool {
	if ca, ok := container.(TGenericParam); ok {
		// Parameter-to-parameter containment needs identity of
		// (name, defining entity), or reachability through the child's
		// template-extends bindings.
		if ia.Name == ca.Name && ia.DefiningEntity == ca.DefiningEntity {
			return true
		}
		if extended, ok := res.TemplateExtendedType(ia.DefiningEntity, ca.DefiningEntity, ca.Name); ok {
			for _, ea := range extended.Atomics {
				if ep, ok := ea.(TGenericParam); ok && ep.Name == ia.Name && ep.DefiningEntity == ia.DefiningEntity {
					return true
				}
			}
		}
		return false
	}
	// Standalone: a parameter is contained wherever its bound is.
	if ia.Bound == nil {
		return atomicContainedBy(ir, res, TMixed{}, container, out)
	}
	return IsContainedBy(ir, res, ia.Bound, NewUnion(container), out)
}

func arrayContainedBy(ir *interner.Interner, res Resolver, ia, ca TArray, out *ComparisonResult) bool {
	iaEmpty := ia.Key == nil && ia.Value == nil && len(ia.Shape) == 0
	if iaEmpty {
		return !ca.NonEmpty || len(requiredKeys(ca)) == 0
	}
	if ca.NonEmpty && !ia.NonEmpty && len(requiredKeys(ia)) == 0 {
		return false
	}
	if ca.IsList && !ia.IsList && len(ia.Shape) == 0 {
		return false
	}

	if len(ca.Shape) > 0 {
		if len(ia.Shape) == 0 {
			return false
		}
		iByKey := make(map[string]ShapeEntry, len(ia.Shape))
		for _, e := range ia.Shape {
			iByKey[e.Key.String()+shapeKeyKind(e.Key)] = e
		}
		for _, ce := range ca.Shape {
			ie, ok := iByKey[ce.Key.String()+shapeKeyKind(ce.Key)]
			if !ok {
				if !ce.Optional {
					return false
				}
				continue
			}
			if ie.Optional && !ce.Optional {
				return false
			}
			if !IsContainedBy(ir, res, ie.Type, ce.Type, out) {
				return false
			}
		}
		if ca.Sealed {
			cKeys := make(map[string]bool, len(ca.Shape))
			for _, ce := range ca.Shape {
				cKeys[ce.Key.String()+shapeKeyKind(ce.Key)] = true
			}
			for _, ie := range ia.Shape {
				if !cKeys[ie.Key.String()+shapeKeyKind(ie.Key)] {
					return false
				}
			}
		}
		return true
	}

	ik, iv := arrayKeyValue(ir, res, ia, 0)
	ck, cv := arrayKeyValue(ir, res, ca, 0)
	return IsContainedBy(ir, res, ik, ck, out) && IsContainedBy(ir, res, iv, cv, out)
}

func requiredKeys(a TArray) []ShapeEntry {
	var out []ShapeEntry
	for _, e := range a.Shape {
		if !e.Optional {
			out = append(out, e)
		}
	}
	return out
}

func callableContainedBy(ir *interner.Interner, res Resolver, ia, ca TCallable, out *ComparisonResult) bool {
	// Parameters are contravariant: the input must accept at least what
	// the container promises to pass.
	if len(ia.Params) > len(ca.Params) {
		for _, p := range ia.Params[len(ca.Params):] {
			if !p.Optional && !p.Variadic {
				return false
			}
		}
	}
	for i, cp := range ca.Params {
		if i >= len(ia.Params) {
			break
		}
		ip := ia.Params[i]
		if ip.Type != nil && cp.Type != nil {
			if !IsContainedBy(ir, res, cp.Type, ip.Type, out) {
				return false
			}
		}
	}
	// Returns are covariant.
	if ia.Return != nil && ca.Return != nil {
		if ca.Return.IsVoid() {
			return true
		}
		return IsContainedBy(ir, res, ia.Return, ca.Return, out)
	}
	return true
}

// atomicCoercesTo records why a failed containment was close: literal
// widening, nested mixed, or __toString-style casts. It reports whether a
// coercion was identified.
func atomicCoercesTo(ir *interner.Interner, res Resolver, input, container Atomic, out *ComparisonResult) bool {
	switch ia := input.(type) {
	case TMixed:
		out.TypeCoerced = true
		out.TypeCoercedFromNestedMixed = true
		return true
	case TInt:
		if ca, ok := container.(TInt); ok && ca.Literal != nil && ia.Literal == nil {
			out.TypeCoerced = true
			out.TypeCoercedToLiteral = true
			return true
		}
	case TString:
		if ca, ok := container.(TString); ok && ca.Literal != nil && ia.Literal == nil {
			out.TypeCoerced = true
			out.TypeCoercedToLiteral = true
			return true
		}
	case TNamedObject:
		if _, ok := container.(TString); ok {
			// An object may still satisfy a string slot via __toString.
			toString := ir.Intern("Stringable")
			if res.IsInstanceOf(ia.Name, toString) {
				out.ToStringCast = true
				return true
			}
		}
	}
	return false
}

// ResolveDerived evaluates value-of / key-of / properties-of against a
// concrete subject; nil when the subject is not concrete enough.
func ResolveDerived(ir *interner.Interner, res Resolver, a Atomic) *Union {
	switch at := a.(type) {
	case TValueOf:
		return derivedOfArrays(ir, res, at.Of, false)
	case TKeyOf:
		return derivedOfArrays(ir, res, at.Of, true)
	case TPropertiesOf:
		// Property maps need codebase metadata; the analyzer resolves
		// these through the codebase before comparison.
		return nil
	}
	return nil
}

func derivedOfArrays(ir *interner.Interner, res Resolver, of *Union, wantKeys bool) *Union {
	var parts []*Union
	for _, a := range of.Atomics {
		arr, ok := a.(TArray)
		if !ok {
			return nil
		}
		k, v := arrayKeyValue(ir, res, arr, 0)
		if wantKeys {
			parts = append(parts, k)
		} else {
			parts = append(parts, v)
		}
	}
	if len(parts) == 0 {
		return nil
	}
	return CombineUnions(ir, res, parts, 0)
}

func derivedContains(ir *interner.Interner, res Resolver, container, input Atomic) bool {
	resolved := ResolveDerived(ir, res, container)
	if resolved == nil {
		return false
	}
	return IsContainedBy(ir, res, NewUnion(input), resolved, nil)
}
