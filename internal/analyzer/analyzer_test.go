package analyzer

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/mago-lang/mago/internal/ast"
	"github.com/mago-lang/mago/internal/codebase"
	"github.com/mago-lang/mago/internal/diagnostics"
	"github.com/mago-lang/mago/internal/interner"
	"github.com/mago-lang/mago/internal/names"
	"github.com/mago-lang/mago/internal/parser"
	"github.com/mago-lang/mago/internal/template"
	"github.com/mago-lang/mago/internal/typesystem"
)

type analysisResult struct {
	ir      *interner.Interner
	cb      *codebase.Codebase
	program *ast.Program
	arts    *Artifacts
	diags   []*diagnostics.Diagnostic
}

func analyzeSource(t *testing.T, src string) analysisResult {
	t.Helper()
	return analyzeSourceWith(t, src, DefaultOptions())
}

func analyzeSourceWith(t *testing.T, src string, opts Options) analysisResult {
	t.Helper()
	ir := interner.New()
	parseDiags := diagnostics.NewCollector()
	program := parser.New(1, src, parseDiags).ParseProgram()
	if parseDiags.Len() != 0 {
		for _, d := range parseDiags.Finish() {
			t.Errorf("parser diagnostic: %s: %s", d.Code, d.Message)
		}
		t.Fatal("fixture did not parse cleanly")
	}
	table := names.Resolve(ir, program)

	diags := diagnostics.NewCollector()
	b := codebase.NewBuilder(ir, diags)
	b.AddFile(program, table)
	cb := b.Build()

	arts := New(context.Background(), ir, cb, table, diags, opts).Analyze(program)
	return analysisResult{ir: ir, cb: cb, program: program, arts: arts, diags: diags.Finish()}
}

func codeCount(diags []*diagnostics.Diagnostic, code diagnostics.Code) int {
	n := 0
	for _, d := range diags {
		if d.Code == code {
			n++
		}
	}
	return n
}

func funcDecl(t *testing.T, program *ast.Program, name string) *ast.FunctionDeclaration {
	t.Helper()
	for _, stmt := range program.Statements {
		if d, ok := stmt.(*ast.FunctionDeclaration); ok && d.Name.Value == name {
			return d
		}
	}
	t.Fatalf("function %s not found in fixture", name)
	return nil
}

func TestUnionReceiverMethodCall(t *testing.T) {
	res := analyzeSource(t, `<?php
class Left {
    public function speak(): string { return 'word'; }
}
class Right {}

function talk(Left|Right $p): string {
    return $p->speak();
}
`)
	if n := codeCount(res.diags, diagnostics.PossiblyInvalidMethodCall); n != 1 {
		t.Fatalf("want exactly one possibly-invalid-method-call, got %d: %v", n, res.diags)
	}
	if codeCount(res.diags, diagnostics.InvalidMethodCall) != 0 {
		t.Error("the call is valid on one arm, must not be a hard error")
	}

	for _, d := range res.diags {
		if d.Code == diagnostics.PossiblyInvalidMethodCall {
			if len(d.Secondary) == 0 {
				t.Error("diagnostic should annotate the receiver with its union type")
			}
		}
	}

	// The call types as the found arm's return joined with mixed for the
	// arm that lacks the method.
	body := funcDecl(t, res.program, "talk").Body
	ret := body.Statements[0].(*ast.ReturnStatement)
	got, ok := res.arts.TypeOf(ret.Value.Span())
	if !ok {
		t.Fatal("call expression has no recorded type")
	}
	if got.IsNever() {
		t.Errorf("call should not type to never, got %s", got.Id(res.ir))
	}
}

func TestAlwaysFalsyConditionMutesDeadBranch(t *testing.T) {
	res := analyzeSource(t, `<?php
function f(): void {
    $x = 0;
    if ($x) {
        $dead = $neverAssigned;
    } else {
        $alive = 1;
    }
}
`)
	if n := codeCount(res.diags, diagnostics.RedundantCondition); n != 1 {
		t.Fatalf("want one redundant-condition, got %d: %v", n, res.diags)
	}
	if codeCount(res.diags, diagnostics.UndefinedVariable) != 0 {
		t.Error("unreachable branch must not surface typing diagnostics")
	}
}

func TestElvisOnString(t *testing.T) {
	res := analyzeSource(t, `<?php
function f(string $s): string {
    return $s ?: 'fallback';
}
`)
	if len(res.diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", res.diags)
	}
	ret := funcDecl(t, res.program, "f").Body.Statements[0].(*ast.ReturnStatement)
	got, ok := res.arts.TypeOf(ret.Value.Span())
	if !ok {
		t.Fatal("elvis expression has no recorded type")
	}
	id := got.Id(res.ir)
	if !strings.Contains(id, "non-empty-string") {
		t.Errorf("truthy string narrows to non-empty-string, got %s", id)
	}
}

func TestElvisOnEmptyStringIsRedundant(t *testing.T) {
	res := analyzeSource(t, `<?php
function f(): string {
    $e = '';
    return $e ?: 'fallback';
}
`)
	if n := codeCount(res.diags, diagnostics.RedundantElvis); n != 1 {
		t.Fatalf("want one redundant-elvis, got %d: %v", n, res.diags)
	}
	ret := funcDecl(t, res.program, "f").Body.Statements[1].(*ast.ReturnStatement)
	got, _ := res.arts.TypeOf(ret.Value.Span())
	if got == nil || got.Id(res.ir) != `string("fallback")` {
		t.Errorf("always-falsy elvis takes the fallback type, got %v", got)
	}
}

func TestThrowNonThrowable(t *testing.T) {
	res := analyzeSource(t, `<?php
interface Throwable {}
class StdClass {}

function f(): void {
    throw new StdClass();
    $after = 1;
}
`)
	if n := codeCount(res.diags, diagnostics.InvalidThrow); n != 1 {
		t.Fatalf("want one invalid-throw, got %d: %v", n, res.diags)
	}

	stmt := funcDecl(t, res.program, "f").Body.Statements[0].(*ast.ExpressionStatement)
	got, ok := res.arts.TypeOf(stmt.Expr.Span())
	if !ok || !got.IsNever() {
		t.Errorf("throw expression must type to never, got %v", got)
	}
}

func TestGenericIdentityPreservesLiteral(t *testing.T) {
	res := analyzeSource(t, `<?php
/**
 * @template T
 * @param T $x
 * @return T
 */
function identity($x) { return $x; }

function f(): void {
    $r = identity(5);
}
`)
	if len(res.diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", res.diags)
	}
	stmt := funcDecl(t, res.program, "f").Body.Statements[0].(*ast.ExpressionStatement)
	assign := stmt.Expr.(*ast.AssignExpression)
	got, ok := res.arts.TypeOf(assign.Value.Span())
	if !ok {
		t.Fatal("call has no recorded type")
	}
	if got.Id(res.ir) != "int(5)" {
		t.Errorf("identity must preserve the literal, got %s", got.Id(res.ir))
	}
}

func TestInstanceofIntersectionNarrowing(t *testing.T) {
	res := analyzeSource(t, `<?php
class A {}
interface B {}
class C {}

function f(A|C $a): void {
    if ($a instanceof A && $a instanceof B) {
        $inside = $a;
    }
    $after = $a;
}
`)
	if codeCount(res.diags, diagnostics.ImpossibleCondition) != 0 {
		t.Fatalf("narrowing to an interface intersection is possible: %v", res.diags)
	}

	body := funcDecl(t, res.program, "f").Body
	ifStmt := body.Statements[0].(*ast.IfStatement)
	insideAssign := ifStmt.Then.Statements[0].(*ast.ExpressionStatement).Expr.(*ast.AssignExpression)
	inside, ok := res.arts.TypeOf(insideAssign.Value.Span())
	if !ok {
		t.Fatal("no type recorded inside the branch")
	}
	if inside.Id(res.ir) != "A&B" {
		t.Errorf("inside the branch $a is A&B, got %s", inside.Id(res.ir))
	}

	afterAssign := body.Statements[1].(*ast.ExpressionStatement).Expr.(*ast.AssignExpression)
	after, ok := res.arts.TypeOf(afterAssign.Value.Span())
	if !ok {
		t.Fatal("no type recorded after the branch")
	}
	a := res.ir.Intern("A")
	c := res.ir.Intern("C")
	declared := typesystem.NewUnion(
		typesystem.TNamedObject{Name: a},
		typesystem.TNamedObject{Name: c},
	)
	if !typesystem.IsContainedBy(res.ir, res.cb, after, declared, nil) {
		t.Errorf("after the branch $a widens back within A|C, got %s", after.Id(res.ir))
	}
	if !typesystem.IsContainedBy(res.ir, res.cb, typesystem.NamedObject(c), after, nil) {
		t.Errorf("the C arm must survive the join, got %s", after.Id(res.ir))
	}
}

func TestJoinMarksOneSidedAssignment(t *testing.T) {
	res := analyzeSource(t, `<?php
function f(bool $cond): void {
    if ($cond) {
        $maybe = 1;
    }
    $use = $maybe;
}
`)
	if n := codeCount(res.diags, diagnostics.PossiblyUndefinedVariable); n != 1 {
		t.Fatalf("want one possibly-undefined-variable, got %d: %v", n, res.diags)
	}
}

func TestCatchVariableTyping(t *testing.T) {
	res := analyzeSource(t, `<?php
interface Throwable {}
class RuntimeError implements Throwable {}

function f(): void {
    try {
        $inTry = 1;
    } catch (RuntimeError $e) {
        $err = $e;
    }
}
`)
	if len(res.diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", res.diags)
	}
	body := funcDecl(t, res.program, "f").Body
	tryStmt := body.Statements[0].(*ast.TryStatement)
	assign := tryStmt.Catches[0].Body.Statements[0].(*ast.ExpressionStatement).Expr.(*ast.AssignExpression)
	got, ok := res.arts.TypeOf(assign.Value.Span())
	if !ok || got.Id(res.ir) != "RuntimeError" {
		t.Errorf("catch variable carries the caught type, got %v", got)
	}
}

func TestRedundantNullCoalesce(t *testing.T) {
	res := analyzeSource(t, `<?php
function f(string $s): string {
    return $s ?? 'other';
}
`)
	if n := codeCount(res.diags, diagnostics.RedundantNullCoalesce); n != 1 {
		t.Fatalf("want one redundant-null-coalesce, got %d: %v", n, res.diags)
	}
}

func TestLoopWidensModifiedVariables(t *testing.T) {
	res := analyzeSource(t, `<?php
function f(bool $go): void {
    $i = 0;
    while ($go) {
        $i = $i + 1;
    }
    $done = $i;
}
`)
	if codeCount(res.diags, diagnostics.UndefinedVariable) != 0 {
		t.Fatalf("loop variable stays defined: %v", res.diags)
	}
	body := funcDecl(t, res.program, "f").Body
	assign := body.Statements[2].(*ast.ExpressionStatement).Expr.(*ast.AssignExpression)
	got, ok := res.arts.TypeOf(assign.Value.Span())
	if !ok {
		t.Fatal("no type recorded after the loop")
	}
	if !typesystem.IsContainedBy(res.ir, res.cb, got, typesystem.Int(), nil) {
		t.Errorf("counter stays int after widening, got %s", got.Id(res.ir))
	}
}

func TestLoopSecondPassSeesPreviousPassTypes(t *testing.T) {
	res := analyzeSource(t, `<?php
function f(bool $go): void {
    $i = 0;
    while ($go) {
        $j = $i;
        $i = 'x';
    }
}
`)
	if codeCount(res.diags, diagnostics.UndefinedVariable) != 0 {
		t.Fatalf("loop variables stay defined: %v", res.diags)
	}
	body := funcDecl(t, res.program, "f").Body
	loop := body.Statements[1].(*ast.WhileStatement)
	read := loop.Body.Statements[0].(*ast.ExpressionStatement).Expr.(*ast.AssignExpression)
	got, ok := res.arts.TypeOf(read.Value.Span())
	if !ok {
		t.Fatal("no type recorded for the loop-body read")
	}
	id := got.Id(res.ir)
	// The second pass re-enters the body with $i widened to the join of
	// its pre-loop int and the string the first pass left it with.
	if !strings.Contains(id, "int") || !strings.Contains(id, "string") {
		t.Errorf("widened read = %s, want a union of int and string", id)
	}
}

func TestNegatedConditionTooComplex(t *testing.T) {
	res := analyzeSource(t, `<?php
function f(bool $a, bool $b, bool $c, bool $d, bool $e, bool $f, bool $g, bool $h, bool $i, bool $j, bool $k, bool $l, bool $m, bool $n, bool $o): void {
    if (($a || $b || $c) && ($d || $e || $f) && ($g || $h || $i) && ($j || $k || $l) && ($m || $n || $o)) {
        $hit = 1;
    }
    $after = 1;
}
`)
	// Five 3-wide clauses redistribute to 243 on negation, past the
	// default threshold; the negated path must say so, not narrow
	// silently.
	if codeCount(res.diags, diagnostics.ConditionTooComplex) == 0 {
		t.Fatalf("want a condition-too-complex diagnostic, got %v", res.diags)
	}
}

func TestMemoizedPropertyReadKeepsAssignedType(t *testing.T) {
	src := `<?php
class Box {
    public int $v = 0;
}

function f(Box $b): int {
    $b->v = 5;
    return $b->v;
}
`
	opts := DefaultOptions()
	opts.MemoizeProperties = true
	res := analyzeSourceWith(t, src, opts)
	if len(res.diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", res.diags)
	}
	ret := funcDecl(t, res.program, "f").Body.Statements[1].(*ast.ReturnStatement)
	got, ok := res.arts.TypeOf(ret.Value.Span())
	if !ok || got.Id(res.ir) != "int(5)" {
		t.Errorf("memoized read = %v, want int(5)", got)
	}

	// Without memoization the read falls back to the declared type.
	plain := analyzeSource(t, src)
	ret = funcDecl(t, plain.program, "f").Body.Statements[1].(*ast.ReturnStatement)
	got, ok = plain.arts.TypeOf(ret.Value.Span())
	if !ok || got.Id(plain.ir) != "int" {
		t.Errorf("plain read = %v, want int", got)
	}
}

func TestUnionReceiverChecksArgumentsPerArm(t *testing.T) {
	res := analyzeSource(t, `<?php
class A {}
class B {}
class TakesA {
    public function accept(A $x): void {}
}
class TakesB {
    public function accept(B $x): void {}
}

function f(TakesA|TakesB $t, A $a): void {
    $t->accept($a);
}
`)
	if n := codeCount(res.diags, diagnostics.InvalidArgument); n != 1 {
		t.Fatalf("want one invalid-argument from the arm that takes B, got %d: %v", n, res.diags)
	}
	if codeCount(res.diags, diagnostics.PossiblyInvalidMethodCall) != 0 {
		t.Error("both arms declare the method, the call itself is fine")
	}
}

func TestIssetNarrowsAwayNull(t *testing.T) {
	res := analyzeSource(t, `<?php
function f(?string $s): string {
    if (isset($s)) {
        return $s;
    }
    return 'default';
}
`)
	if len(res.diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", res.diags)
	}
}

func TestNullComparisonNarrowing(t *testing.T) {
	res := analyzeSource(t, `<?php
function f(?string $s): string {
    if ($s === null) {
        return 'default';
    }
    return $s;
}
`)
	if len(res.diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", res.diags)
	}
}

func TestAnalysisIsDeterministic(t *testing.T) {
	src := `<?php
class Left {
    public function speak(): string { return 'word'; }
}
class Right {}

function talk(Left|Right $p): string {
    return $p->speak();
}

function f(?string $s, bool $cond): void {
    if ($cond) {
        $maybe = 1;
    }
    $use = $maybe;
    $out = $s ?? 'x';
}
`
	render := func() string {
		res := analyzeSource(t, src)
		out := ""
		for _, d := range res.diags {
			out += fmt.Sprintf("%s %d-%d %s\n", d.Code, d.Primary.Span.Start, d.Primary.Span.End, d.Message)
		}
		return out
	}
	first := render()
	for i := 0; i < 5; i++ {
		if got := render(); got != first {
			t.Fatalf("run %d differs:\n%s\nvs\n%s", i+1, got, first)
		}
	}
}

func TestCallableParameterInfersUpperBound(t *testing.T) {
	ir := interner.New()
	parseDiags := diagnostics.NewCollector()
	program := parser.New(1, `<?php`, parseDiags).ParseProgram()
	table := names.Resolve(ir, program)
	diags := diagnostics.NewCollector()
	cb := codebase.NewBuilder(ir, diags).Build()
	a := New(context.Background(), ir, cb, table, diags, DefaultOptions())

	tid := ir.Intern("T")
	fid := ir.Intern("each")
	tr := template.NewResult([]template.Param{{Name: tid, Entity: fid}})

	// Declared callable(T): void against callable(int): void. The
	// template occurs in parameter position, so the evidence is an
	// upper bound, never a lower one.
	generic := typesystem.NewUnion(typesystem.TGenericParam{Name: tid, DefiningEntity: fid})
	param := typesystem.NewUnion(typesystem.TCallable{
		Params: []typesystem.CallableParam{{Type: generic}},
		Return: typesystem.Void(),
	})
	arg := typesystem.NewUnion(typesystem.TCallable{
		Params: []typesystem.CallableParam{{Type: typesystem.Int()}},
		Return: typesystem.Void(),
	})
	a.inferBounds(param, arg, 0, tr, false)

	upper, ok := tr.UpperBound(tid, fid)
	if !ok || upper.Id(ir) != "int" {
		t.Errorf("upper bound = %v, want int", upper)
	}
	if tr.HasLowerBound(tid, fid) {
		t.Error("parameter-position evidence must not record a lower bound")
	}
}

func TestCancellationStopsAnalysis(t *testing.T) {
	ir := interner.New()
	parseDiags := diagnostics.NewCollector()
	program := parser.New(1, `<?php
function f(): void {
    $a = 1;
    $b = 2;
}
`, parseDiags).ParseProgram()
	if parseDiags.Len() != 0 {
		t.Fatal("fixture did not parse cleanly")
	}
	table := names.Resolve(ir, program)
	diags := diagnostics.NewCollector()
	b := codebase.NewBuilder(ir, diags)
	b.AddFile(program, table)
	cb := b.Build()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	arts := New(ctx, ir, cb, table, diags, DefaultOptions()).Analyze(program)
	if arts == nil {
		t.Fatal("cancelled analysis still returns artifacts")
	}
}
