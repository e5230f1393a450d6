package typesystem

import (
	"fmt"
	"testing"

	"github.com/mago-lang/mago/internal/interner"
)

func testUnions(ir *interner.Interner) map[string]*Union {
	foo := ir.Intern("Foo")
	bar := ir.Intern("Bar")
	return map[string]*Union{
		"int":        Int(),
		"int5":       IntLiteral(5),
		"string":     String(),
		"nes":        NonEmptyString(),
		"strFoo":     StringLiteral("foo"),
		"bool":       Bool(),
		"true":       True(),
		"false":      False(),
		"null":       Null(),
		"mixed":      Mixed(),
		"never":      Never(),
		"float":      Float(),
		"objFoo":     NamedObject(foo),
		"objBar":     NamedObject(bar),
		"nullable":   Nullable(String()),
		"int|string": NewUnion(TInt{}, TString{}),
	}
}

func TestCombineIdempotent(t *testing.T) {
	ir := interner.New()
	for name, u := range testUnions(ir) {
		t.Run(name, func(t *testing.T) {
			got := Combine(ir, nil, u, u, 0)
			if got.Id(ir) != u.Id(ir) {
				t.Errorf("combine(%s, %s) = %s, want unchanged", u.Id(ir), u.Id(ir), got.Id(ir))
			}
		})
	}
}

func TestCombineCommutative(t *testing.T) {
	ir := interner.New()
	us := testUnions(ir)
	for na, a := range us {
		for nb, b := range us {
			ab := Combine(ir, nil, a, b, 0)
			ba := Combine(ir, nil, b, a, 0)
			if ab.Id(ir) != ba.Id(ir) {
				t.Errorf("combine(%s, %s) = %s but combine(%s, %s) = %s", na, nb, ab.Id(ir), nb, na, ba.Id(ir))
			}
		}
	}
}

func TestCombineAssociative(t *testing.T) {
	ir := interner.New()
	us := testUnions(ir)
	names := make([]string, 0, len(us))
	for n := range us {
		names = append(names, n)
	}
	// A fixed panel rather than the full cube keeps the test fast.
	panel := [][3]string{
		{"int", "string", "null"},
		{"int5", "int", "mixed"},
		{"true", "false", "bool"},
		{"objFoo", "objBar", "null"},
		{"nes", "strFoo", "string"},
		{"never", "int", "float"},
	}
	for _, tri := range panel {
		a, b, c := us[tri[0]], us[tri[1]], us[tri[2]]
		left := Combine(ir, nil, Combine(ir, nil, a, b, 0), c, 0)
		right := Combine(ir, nil, a, Combine(ir, nil, b, c, 0), 0)
		if left.Id(ir) != right.Id(ir) {
			t.Errorf("associativity broken for %v: %s vs %s", tri, left.Id(ir), right.Id(ir))
		}
	}
	_ = names
}

func TestCombineLiteralCollapse(t *testing.T) {
	ir := interner.New()
	u := IntLiteral(0)
	for i := int64(1); i <= 9; i++ {
		u = Combine(ir, nil, u, IntLiteral(i), 8)
	}
	if u.Id(ir) != "int" {
		t.Errorf("10 int literals should collapse to int, got %s", u.Id(ir))
	}

	// Below the cutoff literals survive.
	u = IntLiteral(0)
	for i := int64(1); i < 8; i++ {
		u = Combine(ir, nil, u, IntLiteral(i), 8)
	}
	if len(u.Atomics) != 8 {
		t.Errorf("8 distinct literals should survive at limit 8, got %s", u.Id(ir))
	}
}

func TestCombineMixedSwallows(t *testing.T) {
	ir := interner.New()
	got := Combine(ir, nil, Mixed(), Int(), 0)
	if got.Id(ir) != "mixed" {
		t.Errorf("mixed | int = %s, want mixed", got.Id(ir))
	}
}

func TestCombineBoolFromLiterals(t *testing.T) {
	ir := interner.New()
	got := Combine(ir, nil, True(), False(), 0)
	if got.Id(ir) != "bool" {
		t.Errorf("true | false = %s, want bool", got.Id(ir))
	}
}

func TestCombineNeverIsIdentity(t *testing.T) {
	ir := interner.New()
	for name, u := range testUnions(ir) {
		if name == "never" {
			continue
		}
		got := Combine(ir, nil, u, Never(), 0)
		if got.Id(ir) != u.Id(ir) {
			t.Errorf("combine(%s, never) = %s, want %s", name, got.Id(ir), u.Id(ir))
		}
	}
}

func TestCombineNamedObjectTemplateArgs(t *testing.T) {
	ir := interner.New()
	coll := ir.Intern("Collection")
	a := NewUnion(TNamedObject{Name: coll, TypeParams: []*Union{Int()}})
	b := NewUnion(TNamedObject{Name: coll, TypeParams: []*Union{String()}})
	got := Combine(ir, nil, a, b, 0)
	want := fmt.Sprintf("%s<int|string>", "Collection")
	if got.Id(ir) != want {
		t.Errorf("combine of generic objects = %s, want %s", got.Id(ir), want)
	}
}
