package typesystem

import (
	"github.com/mago-lang/mago/internal/interner"
)

// Subtract removes from a every atomic that is contained in b. For
// literal-bearing scalars, matching literals are removed from the
// literal set: subtracting false from bool leaves true, subtracting a
// literal from its general type leaves the general type untouched.
func Subtract(ir *interner.Interner, res Resolver, a, b *Union) *Union {
	if res == nil {
		res = NopResolver()
	}
	var out []Atomic
	for _, ia := range a.Atomics {
		out = append(out, subtractAtomic(ir, res, ia, b)...)
	}
	return a.CloneFlags(out)
}

func subtractAtomic(ir *interner.Interner, res Resolver, ia Atomic, b *Union) []Atomic {
	for _, ba := range b.Atomics {
		if atomicContainedBy(ir, res, ia, ba, &ComparisonResult{}) {
			return nil
		}
	}

	// Splittable atomics lose the subtracted half even when not wholly
	// contained.
	switch at := ia.(type) {
	case TBool:
		if at.Literal == nil {
			for _, ba := range b.Atomics {
				if bb, ok := ba.(TBool); ok && bb.Literal != nil {
					keep := !*bb.Literal
					return []Atomic{TBool{Literal: &keep}}
				}
			}
		}
	case TString:
		if at.Literal == nil && !at.NonEmpty {
			for _, ba := range b.Atomics {
				if bs, ok := ba.(TString); ok && bs.Literal != nil && *bs.Literal == "" {
					return []Atomic{TString{NonEmpty: true}}
				}
				if bs, ok := ba.(TString); ok && bs.Literal == nil && bs.NonEmpty {
					empty := ""
					return []Atomic{TString{Literal: &empty}}
				}
			}
		}
	case TMixed:
		for _, ba := range b.Atomics {
			if _, ok := ba.(TNull); ok && at.Flag == MixedAny {
				return []Atomic{TMixed{Flag: MixedNonNull}}
			}
		}
	case TArray:
		// array minus empty-array refines to non-empty.
		for _, ba := range b.Atomics {
			if bar, ok := ba.(TArray); ok && bar.Key == nil && bar.Value == nil && len(bar.Shape) == 0 {
				if at.Key != nil || at.Value != nil || len(at.Shape) > 0 {
					at.NonEmpty = true
					return []Atomic{at}
				}
			}
		}
	}
	return []Atomic{ia}
}
