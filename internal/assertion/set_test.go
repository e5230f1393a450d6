package assertion

import (
	"math/rand"
	"testing"

	"github.com/mago-lang/mago/internal/interner"
	"github.com/mago-lang/mago/internal/typesystem"
)

func TestNegateInvolution(t *testing.T) {
	atoms := []Assertion{
		TruthyAssertion(),
		FalsyAssertion(),
		OfType(typesystem.Int()),
		NotOfType(typesystem.Null()),
		Identical(typesystem.True()),
		IssetAssertion(),
		CountOf(3),
		{Kind: IsGreaterThan, Count: 5},
		{Kind: IsLessThan, Count: 5},
		{Kind: NonEmptyCountable},
		{Kind: Any},
	}
	for _, a := range atoms {
		if got := a.Negate().Negate(); got != a {
			t.Errorf("negate is not an involution for %+v: got %+v", a, got)
		}
	}
}

func TestLiteralKeyCarriesSubject(t *testing.T) {
	ir := interner.New()
	x := ir.Intern("x")
	y := ir.Intern("y")

	lx := On(x, TruthyAssertion())
	ly := On(y, TruthyAssertion())
	if lx.Key(ir) == ly.Key(ir) {
		t.Error("literals about different subjects must have different keys")
	}
	if lx.Negate().Subject != x {
		t.Error("negation must keep the subject")
	}
}

func TestAddAndAddOr(t *testing.T) {
	ir := interner.New()
	x := ir.Intern("x")

	var f Set
	f = AddAnd(f, On(x, TruthyAssertion()))
	f = AddAnd(f, On(x, OfType(typesystem.Int())))
	if len(f) != 2 || len(f[0]) != 1 || len(f[1]) != 1 {
		t.Fatalf("formula shape = %v", f)
	}

	isset := On(x, IssetAssertion())
	f = AddOr(f, isset)
	for _, clause := range f {
		if clause[len(clause)-1].Key(ir) != isset.Key(ir) {
			t.Errorf("or-literal missing from clause %v", clause)
		}
	}

	// Disjoining into true yields the lone literal.
	g := AddOr(nil, On(x, FalsyAssertion()))
	if len(g) != 1 || len(g[0]) != 1 || g[0][0].Kind != Falsy {
		t.Errorf("AddOr on empty formula = %v", g)
	}
}

func TestAddAndClauseEmptyIsFalse(t *testing.T) {
	ir := interner.New()
	x := ir.Intern("x")
	f := Set{{On(x, TruthyAssertion())}}
	f = AddAndClause(f, nil)
	if !f.IsFalse() {
		t.Error("conjoining an empty clause must make the formula false")
	}
}

func TestNegateEdgeCases(t *testing.T) {
	ir := interner.New()

	// not(true) = false
	neg, ok := Negate(ir, nil, 0)
	if !ok || !neg.IsFalse() {
		t.Error("negation of the empty formula must be false")
	}

	// not(false) = true
	neg, ok = Negate(ir, Set{nil}, 0)
	if !ok || len(neg) != 0 {
		t.Errorf("negation of false must be the empty formula, got %v", neg)
	}
}

func TestNegateSingleClause(t *testing.T) {
	ir := interner.New()
	x := ir.Intern("x")

	// not(a or b) = not-a and not-b
	f := Set{{On(x, TruthyAssertion()), On(x, IssetAssertion())}}
	neg, ok := Negate(ir, f, 0)
	if !ok || len(neg) != 2 {
		t.Fatalf("expected 2 clauses, got %v", neg)
	}
	if neg[0][0].Kind != Falsy || neg[1][0].Kind != NotIsset {
		t.Errorf("negated literals wrong: %v", neg)
	}
}

func TestNegateDistributes(t *testing.T) {
	ir := interner.New()
	x := ir.Intern("x")
	y := ir.Intern("y")

	// not((a) and (b or c)) = (not-a or not-b) and (not-a or not-c)
	a := On(x, TruthyAssertion())
	b := On(y, OfType(typesystem.Int()))
	c := On(y, IssetAssertion())
	f := Set{{a}, {b, c}}
	neg, ok := Negate(ir, f, 0)
	if !ok || len(neg) != 2 || len(neg[0]) != 2 || len(neg[1]) != 2 {
		t.Fatalf("distribution shape wrong: %v", neg)
	}
}

func TestNegateRespectsLimit(t *testing.T) {
	ir := interner.New()
	subjects := []interner.StringId{ir.Intern("a"), ir.Intern("b"), ir.Intern("c")}

	// Three 3-wide clauses over distinct subjects redistribute to 27.
	var f Set
	for _, s := range subjects {
		f = AddAndClause(f, []Literal{
			On(s, TruthyAssertion()),
			On(s, OfType(typesystem.Int())),
			On(s, IssetAssertion()),
		})
	}

	if _, ok := Negate(ir, f, 10); ok {
		t.Error("negation must report overflow past the clause limit")
	}
	if out, ok := Negate(ir, f, 0); !ok || len(out) != 27 {
		t.Errorf("unbounded negation = %d clauses, want 27", len(out))
	}
}

// evaluate interprets a formula under an assignment keyed by canonical
// literal; a literal holds when its canonical form's value matches its
// polarity.
func evaluate(ir *interner.Interner, f Set, assign map[string]bool) bool {
	for _, clause := range f {
		sat := false
		for _, lit := range clause {
			key, negated := canonical(ir, lit)
			if assign[key] != negated {
				sat = true
				break
			}
		}
		if !sat {
			return false
		}
	}
	return true
}

func canonical(ir *interner.Interner, l Literal) (string, bool) {
	key := l.Key(ir)
	negKey := l.Negate().Key(ir)
	if negKey < key {
		return negKey, true
	}
	return key, false
}

// Double negation preserves the satisfying assignments of any formula.
func TestDoubleNegationEquivalence(t *testing.T) {
	ir := interner.New()
	x := ir.Intern("x")
	y := ir.Intern("y")
	atoms := []Literal{
		On(x, TruthyAssertion()),
		On(x, OfType(typesystem.Int())),
		On(y, IssetAssertion()),
		On(y, CountOf(2)),
	}

	rng := rand.New(rand.NewSource(42))
	for trial := 0; trial < 200; trial++ {
		var f Set
		clauses := 1 + rng.Intn(2)
		for i := 0; i < clauses; i++ {
			var clause []Literal
			width := 1 + rng.Intn(2)
			for j := 0; j < width; j++ {
				l := atoms[rng.Intn(len(atoms))]
				if rng.Intn(2) == 0 {
					l = l.Negate()
				}
				clause = append(clause, l)
			}
			f = AddAndClause(f, DedupClause(ir, clause))
		}

		once, ok := Negate(ir, f, 0)
		if !ok {
			t.Fatalf("trial %d: unbounded negation overflowed", trial)
		}
		ff, ok := Negate(ir, once, 0)
		if !ok {
			t.Fatalf("trial %d: unbounded negation overflowed", trial)
		}

		keys := make([]string, 0, len(atoms))
		for _, l := range atoms {
			key, _ := canonical(ir, l)
			keys = append(keys, key)
		}
		for mask := 0; mask < 1<<len(keys); mask++ {
			assign := make(map[string]bool, len(keys))
			for i, key := range keys {
				assign[key] = mask&(1<<i) != 0
			}
			if evaluate(ir, f, assign) != evaluate(ir, ff, assign) {
				t.Fatalf("trial %d: double negation changed satisfying assignments\nf = %v\nff = %v\nassign = %v",
					trial, f, ff, assign)
			}
		}
	}
}

// Conjoining an always-true clause preserves assignments; conjoining an
// always-false clause makes the formula unsatisfiable.
func TestAndIdentity(t *testing.T) {
	ir := interner.New()
	x := ir.Intern("x")
	f := Set{{On(x, TruthyAssertion()), On(x, IssetAssertion())}}

	// A tautological clause (a or not-a) changes nothing.
	withTaut := AddAndClause(f, []Literal{On(x, OfType(typesystem.Int())), On(x, NotOfType(typesystem.Int()))})
	atoms := []Literal{On(x, TruthyAssertion()), On(x, IssetAssertion()), On(x, OfType(typesystem.Int()))}
	keys := make([]string, len(atoms))
	for i, l := range atoms {
		keys[i], _ = canonical(ir, l)
	}
	for mask := 0; mask < 1<<len(keys); mask++ {
		assign := make(map[string]bool, len(keys))
		for i, key := range keys {
			assign[key] = mask&(1<<i) != 0
		}
		if evaluate(ir, f, assign) != evaluate(ir, withTaut, assign) {
			t.Fatalf("tautological clause changed satisfiability under %v", assign)
		}
	}

	if !AddAndClause(f, nil).IsFalse() {
		t.Error("false clause must make the formula unsatisfiable")
	}
}
