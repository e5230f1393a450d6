package typesystem

import (
	"testing"

	"github.com/mago-lang/mago/internal/interner"
)

func TestParseString(t *testing.T) {
	ir := interner.New()
	tests := []struct {
		src  string
		want string
	}{
		{"int", "int"},
		{"integer", "int"},
		{"double", "float"},
		{"string", "string"},
		{"non-empty-string", "non-empty-string"},
		{"bool", "bool"},
		{"true", "true"},
		{"false", "false"},
		{"null", "null"},
		{"void", "void"},
		{"never", "never"},
		{"no-return", "never"},
		{"mixed", "mixed"},
		{"nonnull", "nonnull"},
		{"scalar", "bool|float|int|string"},
		{"numeric", "float|int"},
		{"object", "object"},
		{"int|string", "int|string"},
		{"?int", "int|null"},
		{"?string|int", "int|null|string"},
		{"(int|string)", "int|string"},
		{"42", "int(42)"},
		{"-3", "int(-3)"},
		{"3.14", "float(3.14)"},
		{"'foo'", `string("foo")`},
		{`"bar"`, `string("bar")`},
		{"array", "array<int|string, mixed>"},
		{"array<string, int>", "array<string, int>"},
		{"array<int>", "array<int|string, int>"},
		{"non-empty-array<string, int>", "non-empty-array<string, int>"},
		{"list<string>", "list<string>"},
		{"non-empty-list<int>", "non-empty-list<int>"},
		{"array{name: string, age: int}", "array{age: int, name: string}"},
		{"array{name: string, ...}", "array{name: string, ...}"},
		{"array{0: int, 1: string}", "array{0: int, 1: string}"},
		{"array{email?: string}", "array{email?: string}"},
		{"iterable", "iterable<mixed, mixed>"},
		{"iterable<int, string>", "iterable<int, string>"},
		{"callable", "callable(): mixed"},
		{"callable(int, string): bool", "callable(int, string): bool"},
		{"callable(int=): void", "callable(int=): void"},
		{"callable(...string): int", "callable(...string): int"},
		{"Closure(int): string", "Closure(int): string"},
		{"key-of<array<string, int>>", "key-of<array<string, int>>"},
		{"value-of<array<string, int>>", "value-of<array<string, int>>"},
		{"Foo", "unresolved(Foo)"},
		{"Foo<int>", "unresolved(Foo)<int>"},
		{"Foo<int, string>", "unresolved(Foo)<int, string>"},
		{"Countable&Traversable", "Countable&unresolved(Traversable)"},
		{"true|false", "bool"},
		{"int|int", "int"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			got, err := ParseString(ir, tt.src, nil)
			if err != nil {
				t.Fatalf("ParseString(%q): %v", tt.src, err)
			}
			if got.Id(ir) != tt.want {
				t.Errorf("ParseString(%q) = %s, want %s", tt.src, got.Id(ir), tt.want)
			}
		})
	}
}

func TestParseStringErrors(t *testing.T) {
	ir := interner.New()
	bad := []string{
		"",
		"int|",
		"?",
		"(int",
		"array{name string}",
		"array{name: string",
		"Foo<int",
		"int&string",
		"'unterminated",
		"key-of",
		"callable(int",
	}
	for _, src := range bad {
		t.Run(src, func(t *testing.T) {
			if _, err := ParseString(ir, src, nil); err == nil {
				t.Errorf("ParseString(%q) should fail", src)
			}
		})
	}
}

func TestParseStringTemplateScope(t *testing.T) {
	ir := interner.New()
	fn := ir.Intern("map-fn")
	scope := &ParseScope{
		Templates: map[string]TGenericParam{
			"T": {Name: ir.Intern("T"), DefiningEntity: fn, Bound: Mixed()},
		},
	}
	got, err := ParseString(ir, "T|null", scope)
	if err != nil {
		t.Fatal(err)
	}
	if got.Id(ir) != "T:map-fn|null" {
		t.Errorf("got %s, want T:map-fn|null", got.Id(ir))
	}
}

func TestParseStringNameResolution(t *testing.T) {
	ir := interner.New()
	scope := &ParseScope{
		ResolveName: func(name string) string { return `App\` + name },
	}
	got, err := ParseString(ir, "Request", scope)
	if err != nil {
		t.Fatal(err)
	}
	if got.Id(ir) != `unresolved(App\Request)` {
		t.Errorf("got %s", got.Id(ir))
	}
}
