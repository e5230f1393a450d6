package codebase

import (
	"testing"

	"github.com/mago-lang/mago/internal/diagnostics"
	"github.com/mago-lang/mago/internal/interner"
	"github.com/mago-lang/mago/internal/names"
	"github.com/mago-lang/mago/internal/parser"
	"github.com/mago-lang/mago/internal/token"
)

func buildSources(t *testing.T, srcs ...string) (*interner.Interner, *Codebase, *diagnostics.Collector) {
	t.Helper()
	ir := interner.New()
	diags := diagnostics.NewCollector()
	b := NewBuilder(ir, diags)
	for i, src := range srcs {
		parseDiags := diagnostics.NewCollector()
		program := parser.New(token.FileId(i+1), src, parseDiags).ParseProgram()
		if parseDiags.Len() != 0 {
			for _, d := range parseDiags.Finish() {
				t.Errorf("parser diagnostic: %s: %s", d.Code, d.Message)
			}
			t.Fatalf("fixture %d did not parse cleanly", i)
		}
		b.AddFile(program, names.Resolve(ir, program))
	}
	return ir, b.Build(), diags
}

func hasCode(diags *diagnostics.Collector, code diagnostics.Code) bool {
	for _, d := range diags.Finish() {
		if d.Code == code {
			return true
		}
	}
	return false
}

func TestInheritanceChain(t *testing.T) {
	ir, cb, diags := buildSources(t, `<?php
interface Walker {}
interface Runner extends Walker {}

class Animal {
    public function name(): string { return 'x'; }
    private function secret(): void {}
}

class Dog extends Animal implements Runner {
    public function bark(): void {}
}
`)
	if diags.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags.Finish())
	}

	dog := ir.Intern("Dog")
	animal := ir.Intern("Animal")
	walker := ir.Intern("Walker")
	runner := ir.Intern("Runner")

	for _, parent := range []interner.StringId{dog, animal, runner, walker} {
		if !cb.IsInstanceOf(dog, parent) {
			t.Errorf("Dog should be instance of %s", ir.Lookup(parent))
		}
	}
	if cb.IsInstanceOf(animal, dog) {
		t.Error("Animal must not be instance of Dog")
	}
	if !cb.IsInterface(walker) || cb.IsInterface(animal) {
		t.Error("interface kind queries wrong")
	}

	// Inherited method is a single lookup and keeps its origin.
	m, ok := cb.Method(dog, ir.Intern("name"))
	if !ok {
		t.Fatal("inherited method not found")
	}
	if m.DefinedIn != animal {
		t.Errorf("origin = %s, want Animal", ir.Lookup(m.DefinedIn))
	}
	if m.Return == nil || m.Return.Id(ir) != "string" {
		t.Errorf("return = %v", m.Return)
	}

	// Private members do not travel down the extends edge.
	if _, ok := cb.Method(dog, ir.Intern("secret")); ok {
		t.Error("private method leaked to subclass")
	}
}

func TestTraitMembers(t *testing.T) {
	ir, cb, diags := buildSources(t, `<?php
trait Greets {
    public function greet(): string { return 'hi'; }
}

class Host {
    use Greets;
}
`)
	if diags.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags.Finish())
	}
	host := ir.Intern("Host")
	if _, ok := cb.Method(host, ir.Intern("greet")); !ok {
		t.Error("trait method not inherited")
	}
	if !cb.IsInstanceOf(host, ir.Intern("Greets")) {
		t.Error("trait missing from ancestor set")
	}
}

func TestDuplicateClassLike(t *testing.T) {
	_, _, diags := buildSources(t,
		`<?php class Config {}`,
		`<?php class Config {}`,
	)
	if !hasCode(diags, diagnostics.DuplicateClassLike) {
		t.Error("expected duplicate-class-like diagnostic")
	}
}

func TestCircularInheritance(t *testing.T) {
	ir, cb, diags := buildSources(t, `<?php
class A extends B {}
class B extends A {}
`)
	if !hasCode(diags, diagnostics.CircularInheritance) {
		t.Fatal("expected circular-inheritance diagnostic")
	}
	// The cycle is broken, not looped: queries still answer.
	a := ir.Intern("A")
	if !cb.IsInstanceOf(a, a) {
		t.Error("reflexivity lost after cycle break")
	}
}

func TestPromotedConstructorProperty(t *testing.T) {
	ir, cb, _ := buildSources(t, `<?php
class Point {
    public function __construct(private readonly int $x, public string $label = '') {}
}
`)
	point := ir.Intern("Point")
	p, ok := cb.Property(point, ir.Intern("x"))
	if !ok {
		t.Fatal("promoted property not declared")
	}
	if !p.IsReadonly || p.Type == nil || p.Type.Id(ir) != "int" {
		t.Errorf("promoted property = %+v", p)
	}
	label, ok := cb.Property(point, ir.Intern("label"))
	if !ok || !label.HasDefault {
		t.Error("second promoted property wrong")
	}
}

func TestDocblockOverridesHint(t *testing.T) {
	ir, cb, diags := buildSources(t, `<?php
class Repo {
    /**
     * @param non-empty-string $id
     * @return list<int>
     */
    public function find(string $id): array { return []; }
}
`)
	if diags.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags.Finish())
	}
	m, ok := cb.Method(ir.Intern("Repo"), ir.Intern("find"))
	if !ok {
		t.Fatal("method not found")
	}
	if m.Params[0].Type.Id(ir) != "non-empty-string" {
		t.Errorf("param = %s", m.Params[0].Type.Id(ir))
	}
	if m.Return.Id(ir) != "list<int>" {
		t.Errorf("return = %s", m.Return.Id(ir))
	}
}

func TestTemplateExtendedPropagation(t *testing.T) {
	ir, cb, diags := buildSources(t, `<?php
/**
 * @template T
 */
class Collection {
    /** @return T */
    public function first() {}
}

/**
 * @extends Collection<int>
 */
class IntCollection extends Collection {}

class CountedInts extends IntCollection {}
`)
	if diags.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags.Finish())
	}
	coll := ir.Intern("Collection")
	tid := ir.Intern("T")

	u, ok := cb.TemplateExtendedType(ir.Intern("IntCollection"), coll, tid)
	if !ok || u.Id(ir) != "int" {
		t.Fatalf("direct binding = %v, %v", u, ok)
	}
}

func TestTemplateExtendedTransitive(t *testing.T) {
	ir, cb, diags := buildSources(t, `<?php
/**
 * @template T
 */
class Base {}

/**
 * @template U
 * @extends Base<U>
 */
class Middle extends Base {}

/**
 * @extends Middle<string>
 */
class Leaf extends Middle {}
`)
	if diags.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags.Finish())
	}
	// Leaf binds Middle's U to string; Middle binds Base's T to U; so
	// Leaf binds Base's T to string.
	u, ok := cb.TemplateExtendedType(ir.Intern("Leaf"), ir.Intern("Base"), ir.Intern("T"))
	if !ok || u.Id(ir) != "string" {
		t.Fatalf("transitive binding = %v, %v", u, ok)
	}
}

func TestEnumMetadata(t *testing.T) {
	ir, cb, _ := buildSources(t, `<?php
enum Suit: string {
    case Hearts = 'H';
    case Spades = 'S';
}
`)
	suit := ir.Intern("Suit")
	if !cb.IsEnum(suit) {
		t.Fatal("enum kind not recorded")
	}
	c, ok := cb.EnumCase(suit, ir.Intern("Hearts"))
	if !ok {
		t.Fatal("enum case missing")
	}
	if c.Backing == nil || c.Backing.Id(ir) != `string("H")` {
		t.Errorf("backing = %v", c.Backing)
	}
	meta, _ := cb.ClassLike(suit)
	if meta.BackingType == nil || meta.BackingType.Id(ir) != "string" {
		t.Errorf("backing type = %v", meta.BackingType)
	}
}

func TestBuildResolvesHintReferences(t *testing.T) {
	ir, cb, diags := buildSources(t, `<?php
class Widget {
    public ?Widget $next = null;
}

function pick(Widget $w, Missing $m): Widget { return $w; }
`)
	if diags.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags.Finish())
	}

	f, ok := cb.Function(ir.Intern("pick"))
	if !ok {
		t.Fatal("function not indexed")
	}
	// Hints naming an indexed class resolve to named objects at Build.
	if got := f.Params[0].Type.Id(ir); got != "Widget" {
		t.Errorf("param type = %s, want Widget", got)
	}
	if got := f.Return.Id(ir); got != "Widget" {
		t.Errorf("return type = %s, want Widget", got)
	}
	// A hint the index has never seen stays a reference.
	if got := f.Params[1].Type.Id(ir); got != "unresolved(Missing)" {
		t.Errorf("unknown hint = %s, want unresolved(Missing)", got)
	}

	p, ok := cb.Property(ir.Intern("Widget"), ir.Intern("next"))
	if !ok {
		t.Fatal("property not declared")
	}
	if got := p.Type.Id(ir); got != "Widget|null" {
		t.Errorf("property type = %s, want Widget|null", got)
	}
}

func TestFreeFunctionAndConstant(t *testing.T) {
	ir, cb, _ := buildSources(t, `<?php
namespace App;

const VERSION = '1.2.0';

/**
 * @pure
 */
function clamp(int $v, int $lo, int $hi): int { return $v; }
`)
	f, ok := cb.Function(ir.Intern(`App\clamp`))
	if !ok {
		t.Fatal("function not indexed")
	}
	if !f.IsPure || len(f.Params) != 3 || f.Return.Id(ir) != "int" {
		t.Errorf("function metadata = %+v", f)
	}
	c, ok := cb.Constant(ir.Intern(`App\VERSION`))
	if !ok || c.Type.Id(ir) != `string("1.2.0")` {
		t.Errorf("constant = %+v", c)
	}
}
