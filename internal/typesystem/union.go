package typesystem

import (
	"sort"
	"strings"

	"github.com/mago-lang/mago/internal/interner"
)

// Union is a non-empty disjunction of atomics. The empty union is
// forbidden; never is the singleton TNever.
type Union struct {
	Atomics []Atomic

	PossiblyUndefined        bool
	PossiblyUndefinedFromTry bool
	IgnoreFalsableIssues     bool
	HadTemplate              bool
	ReferenceFree            bool
}

// NewUnion builds a union from atomics. Passing none yields never.
func NewUnion(atomics ...Atomic) *Union {
	if len(atomics) == 0 {
		return &Union{Atomics: []Atomic{TNever{}}}
	}
	return &Union{Atomics: atomics}
}

// Shorthand constructors used all over the analyzer.

func Mixed() *Union        { return NewUnion(TMixed{}) }
func NonNullMixed() *Union { return NewUnion(TMixed{Flag: MixedNonNull}) }
func Int() *Union          { return NewUnion(TInt{}) }
func Float() *Union        { return NewUnion(TFloat{}) }
func String() *Union       { return NewUnion(TString{}) }
func Bool() *Union         { return NewUnion(TBool{}) }
func Null() *Union         { return NewUnion(TNull{}) }
func Void() *Union         { return NewUnion(TVoid{}) }
func Never() *Union        { return NewUnion(TNever{}) }

func IntLiteral(v int64) *Union       { return NewUnion(TInt{Literal: &v}) }
func FloatLiteral(v float64) *Union   { return NewUnion(TFloat{Literal: &v}) }
func StringLiteral(v string) *Union   { return NewUnion(TString{Literal: &v}) }
func NonEmptyString() *Union          { return NewUnion(TString{NonEmpty: true}) }
func BoolLiteral(v bool) *Union       { return NewUnion(TBool{Literal: &v}) }
func True() *Union                    { return BoolLiteral(true) }
func False() *Union                   { return BoolLiteral(false) }
func NamedObject(name interner.StringId) *Union {
	return NewUnion(TNamedObject{Name: name})
}
func EmptyArray() *Union { return NewUnion(TArray{}) }

// Nullable returns u | null.
func Nullable(u *Union) *Union {
	for _, a := range u.Atomics {
		if _, ok := a.(TNull); ok {
			return u
		}
	}
	out := u.CloneFlags(append(append([]Atomic{}, u.Atomics...), TNull{}))
	return out
}

// CloneFlags builds a new union with the given atomics, carrying u's flags.
func (u *Union) CloneFlags(atomics []Atomic) *Union {
	if len(atomics) == 0 {
		atomics = []Atomic{TNever{}}
	}
	return &Union{
		Atomics:                  atomics,
		PossiblyUndefined:        u.PossiblyUndefined,
		PossiblyUndefinedFromTry: u.PossiblyUndefinedFromTry,
		IgnoreFalsableIssues:     u.IgnoreFalsableIssues,
		HadTemplate:              u.HadTemplate,
		ReferenceFree:            u.ReferenceFree,
	}
}

// Clone copies the union shallowly; atomics are shared (immutable).
func (u *Union) Clone() *Union {
	return u.CloneFlags(append([]Atomic{}, u.Atomics...))
}

// Id is the canonical textual representation: sorted atomic ids joined
// with |. Used for hashing, deduplication and diagnostics.
func (u *Union) Id(ir *interner.Interner) string {
	ids := make([]string, len(u.Atomics))
	for i, a := range u.Atomics {
		ids[i] = a.Id(ir)
	}
	sort.Strings(ids)
	s := strings.Join(ids, "|")
	if u.PossiblyUndefined || u.PossiblyUndefinedFromTry {
		s += "=?"
	}
	return s
}

func (u *Union) IsMixed() bool {
	if len(u.Atomics) != 1 {
		return false
	}
	_, ok := u.Atomics[0].(TMixed)
	return ok
}

func (u *Union) IsNever() bool {
	if len(u.Atomics) != 1 {
		return false
	}
	_, ok := u.Atomics[0].(TNever)
	return ok
}

func (u *Union) IsVoid() bool {
	if len(u.Atomics) != 1 {
		return false
	}
	_, ok := u.Atomics[0].(TVoid)
	return ok
}

func (u *Union) IsNull() bool {
	if len(u.Atomics) != 1 {
		return false
	}
	_, ok := u.Atomics[0].(TNull)
	return ok
}

func (u *Union) IsNullable() bool {
	for _, a := range u.Atomics {
		switch at := a.(type) {
		case TNull:
			return true
		case TMixed:
			if at.Flag != MixedNonNull && at.Flag != MixedTruthy {
				return true
			}
		}
	}
	return false
}

func (u *Union) IsSingle() bool { return len(u.Atomics) == 1 }

// HasObjectType reports whether any atomic is object-like.
func (u *Union) HasObjectType() bool {
	for _, a := range u.Atomics {
		switch a.(type) {
		case TNamedObject, TAnonObject, TEnumCase:
			return true
		}
	}
	return false
}

// IsAlwaysTruthy reports whether no atomic of u can evaluate falsy.
func (u *Union) IsAlwaysTruthy() bool {
	if u.PossiblyUndefined || u.PossiblyUndefinedFromTry {
		return false
	}
	for _, a := range u.Atomics {
		if !atomicAlwaysTruthy(a) {
			return false
		}
	}
	return true
}

// IsAlwaysFalsy reports whether every atomic of u evaluates falsy.
func (u *Union) IsAlwaysFalsy() bool {
	for _, a := range u.Atomics {
		if !atomicAlwaysFalsy(a) {
			return false
		}
	}
	return true
}

func atomicAlwaysTruthy(a Atomic) bool {
	switch at := a.(type) {
	case TInt:
		return at.Literal != nil && *at.Literal != 0
	case TFloat:
		return at.Literal != nil && *at.Literal != 0
	case TString:
		if at.Literal != nil {
			return *at.Literal != "" && *at.Literal != "0"
		}
		return false
	case TBool:
		return at.Literal != nil && *at.Literal
	case TNamedObject, TAnonObject, TEnumCase, TCallable:
		return true
	case TArray:
		return at.NonEmpty || requiredShapeKeys(at) > 0
	case TMixed:
		return at.Flag == MixedTruthy
	default:
		return false
	}
}

func atomicAlwaysFalsy(a Atomic) bool {
	switch at := a.(type) {
	case TNull, TVoid:
		return true
	case TInt:
		return at.Literal != nil && *at.Literal == 0
	case TFloat:
		return at.Literal != nil && *at.Literal == 0
	case TString:
		return at.Literal != nil && (*at.Literal == "" || *at.Literal == "0")
	case TBool:
		return at.Literal != nil && !*at.Literal
	case TArray:
		return at.Key == nil && at.Value == nil && len(at.Shape) == 0
	case TMixed:
		return at.Flag == MixedFalsy
	default:
		return false
	}
}

func requiredShapeKeys(a TArray) int {
	n := 0
	for _, e := range a.Shape {
		if !e.Optional {
			n++
		}
	}
	return n
}
