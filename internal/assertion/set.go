package assertion

import "github.com/mago-lang/mago/internal/interner"

// Literal is one CNF literal: an assertion bound to the subject it
// speaks about.
type Literal struct {
	Subject interner.StringId
	Assertion
}

// On binds an assertion to its subject.
func On(subject interner.StringId, a Assertion) Literal {
	return Literal{Subject: subject, Assertion: a}
}

// Negate negates the assertion, keeping the subject.
func (l Literal) Negate() Literal {
	return Literal{Subject: l.Subject, Assertion: l.Assertion.Negate()}
}

// Key is the literal's fingerprint: the subject joined to the
// assertion key.
func (l Literal) Key(ir *interner.Interner) string {
	return ir.Lookup(l.Subject) + "\x00" + l.Assertion.Key(ir)
}

// Set is a CNF formula: an AND of OR-clauses. The empty set is true; a
// set containing an empty clause is false.
type Set [][]Literal

// IsFalse reports whether the formula contains an empty clause.
func (f Set) IsFalse() bool {
	for _, clause := range f {
		if len(clause) == 0 {
			return true
		}
	}
	return false
}

// AddAnd conjoins a single literal as a new singleton clause.
func AddAnd(f Set, l Literal) Set {
	return append(f, []Literal{l})
}

// AddAndClause conjoins a whole clause. An empty clause collapses the
// formula to false.
func AddAndClause(f Set, clause []Literal) Set {
	if len(clause) == 0 {
		return Set{nil}
	}
	return append(f, clause)
}

// AddOr disjoins a literal into every clause. Disjoining into the
// empty formula (true) yields just the literal.
func AddOr(f Set, l Literal) Set {
	if len(f) == 0 {
		return Set{{l}}
	}
	out := make(Set, len(f))
	for i, clause := range f {
		out[i] = append(append([]Literal{}, clause...), l)
	}
	return out
}

// Negate applies De Morgan: the negation of an AND of ORs is an OR of
// ANDs of negated literals, redistributed back to CNF by taking one
// negated literal from each original clause per output clause. The
// empty formula (true) negates to false. Output size is the product of
// the clause lengths; a positive limit caps it, and an exceeded limit
// returns ok=false with no formula.
func Negate(ir *interner.Interner, f Set, limit int) (Set, bool) {
	if len(f) == 0 {
		return Set{nil}, true
	}
	for _, clause := range f {
		if len(clause) == 0 {
			// not(false) = true
			return nil, true
		}
	}

	out := Set{nil}
	for _, clause := range f {
		next := make(Set, 0, len(out)*len(clause))
		for _, partial := range out {
			for _, lit := range clause {
				grown := append(append([]Literal{}, partial...), lit.Negate())
				next = append(next, DedupClause(ir, grown))
			}
		}
		out = next
		if limit > 0 && len(out) > limit {
			return nil, false
		}
	}
	return out, true
}

// DedupClause drops repeated literals, keeping first-seen order.
func DedupClause(ir *interner.Interner, clause []Literal) []Literal {
	if len(clause) < 2 {
		return clause
	}
	seen := make(map[string]bool, len(clause))
	out := clause[:0]
	for _, l := range clause {
		key := l.Key(ir)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, l)
	}
	return out
}
