// Package assertion defines typed predicates about one variable or
// expression fingerprint, and the CNF algebra the analyzer reasons with.
package assertion

import (
	"fmt"

	"github.com/mago-lang/mago/internal/interner"
	"github.com/mago-lang/mago/internal/typesystem"
)

// Kind discriminates assertions.
type Kind int

const (
	// Any carries no information; it negates to itself.
	Any Kind = iota
	IsType
	IsNotType
	IsIdentical
	IsNotIdentical
	Truthy
	Falsy
	IsCount
	IsNotCount
	IsGreaterThan
	IsGreaterThanOrEqual
	IsLessThan
	IsLessThanOrEqual
	IsEqualIsset
	NotIsset
	NonEmptyCountable
	EmptyCountable
)

// Assertion is one literal of the propositional layer. Type is set for
// the type kinds, Count for the arithmetic kinds.
type Assertion struct {
	Kind  Kind
	Type  *typesystem.Union
	Count int64
}

func OfType(u *typesystem.Union) Assertion     { return Assertion{Kind: IsType, Type: u} }
func NotOfType(u *typesystem.Union) Assertion  { return Assertion{Kind: IsNotType, Type: u} }
func Identical(u *typesystem.Union) Assertion  { return Assertion{Kind: IsIdentical, Type: u} }
func TruthyAssertion() Assertion               { return Assertion{Kind: Truthy} }
func FalsyAssertion() Assertion                { return Assertion{Kind: Falsy} }
func IssetAssertion() Assertion                { return Assertion{Kind: IsEqualIsset} }
func CountOf(n int64) Assertion                { return Assertion{Kind: IsCount, Count: n} }

// Key is the stable identity used for clause hashing and deduplication.
func (a Assertion) Key(ir *interner.Interner) string {
	switch a.Kind {
	case Any:
		return "any"
	case IsType:
		return "is:" + a.Type.Id(ir)
	case IsNotType:
		return "!is:" + a.Type.Id(ir)
	case IsIdentical:
		return "=:" + a.Type.Id(ir)
	case IsNotIdentical:
		return "!=:" + a.Type.Id(ir)
	case Truthy:
		return "truthy"
	case Falsy:
		return "falsy"
	case IsCount:
		return fmt.Sprintf("count=%d", a.Count)
	case IsNotCount:
		return fmt.Sprintf("count!=%d", a.Count)
	case IsGreaterThan:
		return fmt.Sprintf(">%d", a.Count)
	case IsGreaterThanOrEqual:
		return fmt.Sprintf(">=%d", a.Count)
	case IsLessThan:
		return fmt.Sprintf("<%d", a.Count)
	case IsLessThanOrEqual:
		return fmt.Sprintf("<=%d", a.Count)
	case IsEqualIsset:
		return "isset"
	case NotIsset:
		return "!isset"
	case NonEmptyCountable:
		return "non-empty-countable"
	case EmptyCountable:
		return "empty-countable"
	}
	return "any"
}

// negations pairs each kind with its complement. Any maps to itself.
var negations = map[Kind]Kind{
	Any:                  Any,
	IsType:               IsNotType,
	IsNotType:            IsType,
	IsIdentical:          IsNotIdentical,
	IsNotIdentical:       IsIdentical,
	Truthy:               Falsy,
	Falsy:                Truthy,
	IsCount:              IsNotCount,
	IsNotCount:           IsCount,
	IsGreaterThan:        IsLessThanOrEqual,
	IsLessThanOrEqual:    IsGreaterThan,
	IsLessThan:           IsGreaterThanOrEqual,
	IsGreaterThanOrEqual: IsLessThan,
	IsEqualIsset:         NotIsset,
	NotIsset:             IsEqualIsset,
	NonEmptyCountable:    EmptyCountable,
	EmptyCountable:       NonEmptyCountable,
}

// Negate returns the logical complement. Negation is an involution:
// a.Negate().Negate() == a.
func (a Assertion) Negate() Assertion {
	a.Kind = negations[a.Kind]
	return a
}
