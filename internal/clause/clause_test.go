package clause

import (
	"testing"

	"github.com/mago-lang/mago/internal/assertion"
	"github.com/mago-lang/mago/internal/interner"
	"github.com/mago-lang/mago/internal/token"
	"github.com/mago-lang/mago/internal/typesystem"
)

func poss(ir *interner.Interner, v string, as ...assertion.Assertion) map[interner.StringId]map[string]assertion.Assertion {
	inner := make(map[string]assertion.Assertion, len(as))
	for _, a := range as {
		inner[a.Key(ir)] = a
	}
	return map[interner.StringId]map[string]assertion.Assertion{
		ir.Intern(v): inner,
	}
}

func span(start, end uint32) token.Span {
	return token.Span{File: 1, Start: start, End: end}
}

func TestContentHashIgnoresSpan(t *testing.T) {
	ir := interner.New()
	a := New(ir, poss(ir, "x", assertion.OfType(typesystem.Int())), span(10, 20), false, true, false)
	b := New(ir, poss(ir, "x", assertion.OfType(typesystem.Int())), span(90, 99), false, true, false)
	if !a.Equals(b) {
		t.Error("identical content at different sites must hash equal")
	}

	c := New(ir, poss(ir, "x", assertion.OfType(typesystem.String())), span(10, 20), false, true, false)
	if a.Equals(c) {
		t.Error("different content must hash differently")
	}
}

func TestWedgeHashIsSpanOnly(t *testing.T) {
	ir := interner.New()
	content := poss(ir, "x", assertion.TruthyAssertion())

	w1 := New(ir, content, span(10, 20), true, true, false)
	w2 := New(ir, content, span(30, 40), true, true, false)
	if w1.Equals(w2) {
		t.Error("wedges at different sites must stay distinct")
	}

	w3 := New(ir, poss(ir, "y", assertion.FalsyAssertion()), span(10, 20), true, true, false)
	if !w1.Equals(w3) {
		t.Error("wedge hash must depend on the span only")
	}

	nr1 := New(ir, content, span(10, 20), false, false, false)
	nr2 := New(ir, content, span(30, 40), false, false, false)
	if nr1.Equals(nr2) {
		t.Error("non-reconcilable clauses at different sites must stay distinct")
	}
}

func TestContains(t *testing.T) {
	ir := interner.New()
	narrow := New(ir, poss(ir, "x", assertion.OfType(typesystem.Int())), span(0, 1), false, true, false)
	wide := New(ir, poss(ir, "x",
		assertion.OfType(typesystem.Int()),
		assertion.OfType(typesystem.String()),
	), span(0, 1), false, true, false)

	if !wide.Contains(narrow) {
		t.Error("superset clause must contain the subset clause")
	}
	if narrow.Contains(wide) {
		t.Error("subset clause must not contain the superset clause")
	}

	other := New(ir, poss(ir, "y", assertion.OfType(typesystem.Int())), span(0, 1), false, true, false)
	if wide.Contains(other) {
		t.Error("clause must not contain a clause over a different variable")
	}
}

func TestSimplifySubsumption(t *testing.T) {
	ir := interner.New()
	narrow := New(ir, poss(ir, "x", assertion.OfType(typesystem.Int())), span(0, 1), false, true, false)
	wide := New(ir, poss(ir, "x",
		assertion.OfType(typesystem.Int()),
		assertion.OfType(typesystem.String()),
	), span(2, 3), false, true, false)

	out := Simplify(ir, []*Clause{wide, narrow})
	if len(out) != 1 || !out[0].Equals(narrow) {
		t.Fatalf("expected the stronger clause to survive, got %d clauses", len(out))
	}
}

func TestSimplifyMergesSingleVariableDifference(t *testing.T) {
	ir := interner.New()
	x := ir.Intern("x")

	// (x is int) and (x is string) over the same second variable merge
	// into (x is int or string).
	a := New(ir, map[interner.StringId]map[string]assertion.Assertion{
		x: {
			assertion.OfType(typesystem.Int()).Key(ir): assertion.OfType(typesystem.Int()),
		},
		ir.Intern("y"): {
			assertion.TruthyAssertion().Key(ir): assertion.TruthyAssertion(),
		},
	}, span(0, 1), false, true, false)
	b := New(ir, map[interner.StringId]map[string]assertion.Assertion{
		x: {
			assertion.OfType(typesystem.String()).Key(ir): assertion.OfType(typesystem.String()),
		},
		ir.Intern("y"): {
			assertion.TruthyAssertion().Key(ir): assertion.TruthyAssertion(),
		},
	}, span(2, 3), false, true, false)

	out := Simplify(ir, []*Clause{a, b})
	if len(out) != 1 {
		t.Fatalf("expected 1 merged clause, got %d", len(out))
	}
	if len(out[0].Possibilities[x]) != 2 {
		t.Errorf("merged possibilities = %v", out[0].Possibilities[x])
	}
	if !out[0].Generated {
		t.Error("merged clause must be marked generated")
	}
}

func TestSimplifyLeavesWedgesAlone(t *testing.T) {
	ir := interner.New()
	content := poss(ir, "x", assertion.TruthyAssertion())
	w := New(ir, content, span(0, 1), true, true, false)
	c := New(ir, content, span(2, 3), false, true, false)

	out := Simplify(ir, []*Clause{w, c})
	if len(out) != 2 {
		t.Fatalf("wedge must not merge or subsume, got %d clauses", len(out))
	}
}

func TestGroupImpossibilities(t *testing.T) {
	ir := interner.New()
	res := typesystem.NopResolver()
	x := ir.Intern("x")

	c1 := New(ir, poss(ir, "x", assertion.NotOfType(typesystem.Null())), span(0, 1), false, true, false)
	c2 := New(ir, poss(ir, "x", assertion.NotOfType(typesystem.False())), span(2, 3), false, true, false)
	// Disjunctive clause contributes nothing definite.
	c3 := New(ir, poss(ir, "x",
		assertion.NotOfType(typesystem.Int()),
		assertion.TruthyAssertion(),
	), span(4, 5), false, true, false)

	imp := GroupImpossibilities(ir, res, []*Clause{c1, c2, c3})
	u, ok := imp[x]
	if !ok {
		t.Fatal("no impossibilities for x")
	}
	if u.Id(ir) != "false|null" {
		t.Errorf("impossible union = %s", u.Id(ir))
	}
}

func TestFilterClauses(t *testing.T) {
	ir := interner.New()
	x := ir.Intern("x")
	cx := New(ir, poss(ir, "x", assertion.TruthyAssertion()), span(0, 1), false, true, false)
	cy := New(ir, poss(ir, "y", assertion.TruthyAssertion()), span(2, 3), false, true, false)

	mentioning, rest := FilterClauses([]*Clause{cx, cy}, x)
	if len(mentioning) != 1 || !mentioning[0].Equals(cx) {
		t.Errorf("mentioning = %v", mentioning)
	}
	if len(rest) != 1 || !rest[0].Equals(cy) {
		t.Errorf("rest = %v", rest)
	}
}
