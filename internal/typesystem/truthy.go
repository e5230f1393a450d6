package typesystem

// ToTruthy restricts u to the subset of values that evaluate truthy under
// the target language's rules: empty string, "0", 0, 0.0, null, false and
// the empty array are falsy; everything else is truthy.
func ToTruthy(u *Union) *Union {
	var out []Atomic
	for _, a := range u.Atomics {
		if t := atomicToTruthy(a); t != nil {
			out = append(out, t)
		}
	}
	res := u.CloneFlags(out)
	res.PossiblyUndefined = false
	res.PossiblyUndefinedFromTry = false
	return res
}

// ToFalsy restricts u to the falsy subset of each atomic.
func ToFalsy(u *Union) *Union {
	var out []Atomic
	for _, a := range u.Atomics {
		out = append(out, atomicToFalsySet(a)...)
	}
	return u.CloneFlags(out)
}

func atomicToFalsySet(a Atomic) []Atomic {
	if at, ok := a.(TString); ok && at.Literal == nil && !at.NonEmpty {
		// The falsy face of string is exactly "" | "0".
		empty, zero := "", "0"
		return []Atomic{TString{Literal: &empty}, TString{Literal: &zero}}
	}
	if f := atomicToFalsy(a); f != nil {
		return []Atomic{f}
	}
	return nil
}

func atomicToTruthy(a Atomic) Atomic {
	switch at := a.(type) {
	case TNull, TVoid, TNever:
		return nil
	case TBool:
		if at.Literal != nil {
			if *at.Literal {
				return at
			}
			return nil
		}
		t := true
		return TBool{Literal: &t}
	case TInt:
		if at.Literal != nil {
			if *at.Literal != 0 {
				return at
			}
			return nil
		}
		// No refinement that excludes zero alone; int stays int.
		return at
	case TFloat:
		if at.Literal != nil {
			if *at.Literal != 0 {
				return at
			}
			return nil
		}
		return at
	case TString:
		if at.Literal != nil {
			if *at.Literal == "" || *at.Literal == "0" {
				return nil
			}
			return at
		}
		return TString{NonEmpty: true}
	case TArray:
		if at.Key == nil && at.Value == nil && len(at.Shape) == 0 {
			return nil
		}
		at.NonEmpty = true
		return at
	case TMixed:
		if at.Flag == MixedFalsy {
			return nil
		}
		return TMixed{Flag: MixedTruthy}
	default:
		// Objects, callables, enum cases, generics: always truthy (or
		// unknowable, in which case we keep them).
		return a
	}
}

func atomicToFalsy(a Atomic) Atomic {
	switch at := a.(type) {
	case TNull, TVoid:
		return at
	case TBool:
		if at.Literal != nil {
			if !*at.Literal {
				return at
			}
			return nil
		}
		f := false
		return TBool{Literal: &f}
	case TInt:
		if at.Literal != nil {
			if *at.Literal == 0 {
				return at
			}
			return nil
		}
		zero := int64(0)
		return TInt{Literal: &zero}
	case TFloat:
		if at.Literal != nil {
			if *at.Literal == 0 {
				return at
			}
			return nil
		}
		zero := 0.0
		return TFloat{Literal: &zero}
	case TString:
		if at.Literal != nil {
			if *at.Literal == "" || *at.Literal == "0" {
				return at
			}
			return nil
		}
		if at.NonEmpty {
			z := "0"
			return TString{Literal: &z}
		}
		return at // expanded to "" | "0" in atomicToFalsySet
	case TArray:
		if at.NonEmpty || len(requiredKeys(at)) > 0 {
			return nil
		}
		return TArray{}
	case TMixed:
		if at.Flag == MixedTruthy {
			return nil
		}
		return TMixed{Flag: MixedFalsy}
	case TNamedObject, TAnonObject, TEnumCase, TCallable:
		return nil
	default:
		return a
	}
}
