package clause

import (
	"github.com/mago-lang/mago/internal/assertion"
	"github.com/mago-lang/mago/internal/interner"
	"github.com/mago-lang/mago/internal/typesystem"
)

// mergePasses bounds the single-variable merge loop; clause sets seen in
// practice converge in one or two passes.
const mergePasses = 4

// Simplify removes clauses subsumed by stronger ones and merges clause
// pairs that differ in exactly one variable's possibilities.
func Simplify(ir *interner.Interner, clauses []*Clause) []*Clause {
	out := subsume(clauses)
	for pass := 0; pass < mergePasses; pass++ {
		merged, changed := mergeOnce(ir, out)
		out = merged
		if !changed {
			break
		}
	}
	return subsume(out)
}

// subsume keeps only clauses not contained in a strictly stronger one. A
// clause with fewer possibilities is the stronger statement; when clause
// A's possibilities all appear in clause B, B is implied by A and drops.
func subsume(clauses []*Clause) []*Clause {
	out := make([]*Clause, 0, len(clauses))
	for i, c := range clauses {
		redundant := false
		for j, other := range clauses {
			if i == j || c.Wedge || other.Wedge {
				continue
			}
			if c.Contains(other) && (!other.Contains(c) || j < i) {
				redundant = true
				break
			}
		}
		if !redundant {
			out = append(out, c)
		}
	}
	return out
}

// mergeOnce merges the first pair of clauses sharing every variable and
// differing in exactly one variable's possibility set.
func mergeOnce(ir *interner.Interner, clauses []*Clause) ([]*Clause, bool) {
	for i := 0; i < len(clauses); i++ {
		for j := i + 1; j < len(clauses); j++ {
			a, b := clauses[i], clauses[j]
			if a.Wedge || b.Wedge || !a.Reconcilable || !b.Reconcilable {
				continue
			}
			v, ok := mergeableOn(a, b)
			if !ok {
				continue
			}
			merged := a.clone()
			for key, as := range b.Possibilities[v] {
				merged.Possibilities[v][key] = as
			}
			merged.Generated = true
			merged.Hash = merged.hash(ir)

			out := make([]*Clause, 0, len(clauses)-1)
			for k, c := range clauses {
				if k == i || k == j {
					continue
				}
				out = append(out, c)
			}
			return append(out, merged), true
		}
	}
	return clauses, false
}

// mergeableOn reports the single variable on which a and b differ, when
// they share the same variable set and agree everywhere else.
func mergeableOn(a, b *Clause) (interner.StringId, bool) {
	if len(a.Possibilities) != len(b.Possibilities) {
		return 0, false
	}
	var diff interner.StringId
	found := false
	for v, am := range a.Possibilities {
		bm, ok := b.Possibilities[v]
		if !ok {
			return 0, false
		}
		if samePossibilities(am, bm) {
			continue
		}
		if found {
			return 0, false
		}
		diff, found = v, true
	}
	return diff, found
}

func samePossibilities(a, b map[string]assertion.Assertion) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}

// GroupImpossibilities collects, per variable, the union of types the
// clause set proves the variable cannot be. Only single-variable,
// single-assertion clauses yield definite facts.
func GroupImpossibilities(ir *interner.Interner, res typesystem.Resolver, clauses []*Clause) map[interner.StringId]*typesystem.Union {
	var out map[interner.StringId]*typesystem.Union
	for _, c := range clauses {
		if c.Wedge || !c.Reconcilable || len(c.Possibilities) != 1 {
			continue
		}
		for v, poss := range c.Possibilities {
			if len(poss) != 1 {
				continue
			}
			for _, a := range poss {
				if a.Kind != assertion.IsNotType && a.Kind != assertion.IsNotIdentical {
					continue
				}
				if out == nil {
					out = make(map[interner.StringId]*typesystem.Union)
				}
				if prev, ok := out[v]; ok {
					out[v] = typesystem.Combine(ir, res, prev, a.Type, 0)
				} else {
					out[v] = a.Type
				}
			}
		}
	}
	return out
}

// FilterClauses partitions the set into clauses mentioning v and clauses
// untouched by it; narrowing v consults only the first group so knowledge
// about other variables survives.
func FilterClauses(clauses []*Clause, v interner.StringId) (mentioning, rest []*Clause) {
	for _, c := range clauses {
		if _, ok := c.Possibilities[v]; ok {
			mentioning = append(mentioning, c)
		} else {
			rest = append(rest, c)
		}
	}
	return mentioning, rest
}
