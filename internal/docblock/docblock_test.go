package docblock

import (
	"testing"

	"github.com/mago-lang/mago/internal/typesystem"
)

func TestParseFunctionDocblock(t *testing.T) {
	raw := `/**
 * Finds a user by id.
 *
 * @param int $id
 * @param array{active: bool, limit?: int} $options
 * @return User|null
 * @throws InvalidArgumentException
 */`
	d := Parse(raw)
	if d == nil {
		t.Fatal("expected a docblock")
	}
	if d.Summary != "Finds a user by id." {
		t.Errorf("summary = %q", d.Summary)
	}
	if got := d.Params["id"]; got != "int" {
		t.Errorf("param id = %q", got)
	}
	if got := d.Params["options"]; got != "array{active: bool, limit?: int}" {
		t.Errorf("param options = %q", got)
	}
	if d.Return != "User|null" {
		t.Errorf("return = %q", d.Return)
	}
	if len(d.Throws) != 1 || d.Throws[0] != "InvalidArgumentException" {
		t.Errorf("throws = %v", d.Throws)
	}
}

func TestParseTemplates(t *testing.T) {
	raw := `/**
 * @template T of object
 * @template-covariant V
 * @template-contravariant K as array-key
 * @extends Collection<T>
 * @implements ArrayAccess<int, V>
 */`
	d := Parse(raw)
	if d == nil {
		t.Fatal("expected a docblock")
	}
	want := []Template{
		{Name: "T", Bound: "object", Variance: typesystem.Invariant},
		{Name: "V", Variance: typesystem.Covariant},
		{Name: "K", Bound: "array-key", Variance: typesystem.Contravariant},
	}
	if len(d.Templates) != len(want) {
		t.Fatalf("templates = %v", d.Templates)
	}
	for i, w := range want {
		if d.Templates[i] != w {
			t.Errorf("template %d = %+v, want %+v", i, d.Templates[i], w)
		}
	}
	if len(d.Extends) != 1 || d.Extends[0] != "Collection<T>" {
		t.Errorf("extends = %v", d.Extends)
	}
	if len(d.Implements) != 1 || d.Implements[0] != "ArrayAccess<int, V>" {
		t.Errorf("implements = %v", d.Implements)
	}
}

func TestParseAsserts(t *testing.T) {
	raw := `/**
 * @psalm-assert string $value
 * @assert-if-true !null $maybe
 * @psalm-assert-if-false array $input
 * @pure
 */`
	d := Parse(raw)
	if d == nil {
		t.Fatal("expected a docblock")
	}
	if !d.IsPure {
		t.Error("pure flag not set")
	}
	want := []Assert{
		{Var: "value", Type: "string"},
		{Var: "maybe", Type: "null", Negated: true, IfTrue: true},
		{Var: "input", Type: "array", IfFalse: true},
	}
	if len(d.Asserts) != len(want) {
		t.Fatalf("asserts = %v", d.Asserts)
	}
	for i, w := range want {
		if d.Asserts[i] != w {
			t.Errorf("assert %d = %+v, want %+v", i, d.Asserts[i], w)
		}
	}
}

func TestParseVarAndVariadic(t *testing.T) {
	d := Parse(`/** @var non-empty-list<string> $names */`)
	if d == nil || d.Var != "non-empty-list<string>" || d.VarName != "names" {
		t.Fatalf("var = %+v", d)
	}

	d = Parse(`/** @param int ...$ids */`)
	if d == nil || d.Params["ids"] != "int" {
		t.Fatalf("variadic param = %+v", d)
	}
}

func TestParseEmptyDocblock(t *testing.T) {
	if d := Parse(`/** */`); d != nil {
		t.Errorf("expected nil, got %+v", d)
	}
	if d := Parse(""); d != nil {
		t.Errorf("expected nil for empty input, got %+v", d)
	}
}
