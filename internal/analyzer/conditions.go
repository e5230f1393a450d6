package analyzer

import (
	"sort"

	"github.com/mago-lang/mago/internal/assertion"
	"github.com/mago-lang/mago/internal/ast"
	"github.com/mago-lang/mago/internal/clause"
	"github.com/mago-lang/mago/internal/codebase"
	"github.com/mago-lang/mago/internal/diagnostics"
	"github.com/mago-lang/mago/internal/interner"
	"github.com/mago-lang/mago/internal/token"
	"github.com/mago-lang/mago/internal/typesystem"
)

// scrapeCondition extracts what holds when the expression is truthy, as
// a CNF set over variable literals. Unrecognized shapes yield nil, which
// narrows nothing.
func (a *Analyzer) scrapeCondition(e ast.Expression, ctx *BlockContext) assertion.Set {
	switch ex := e.(type) {
	case *ast.VariableExpression:
		return assertion.AddAnd(nil, assertion.On(a.ir.Intern(ex.Name), assertion.TruthyAssertion()))
	case *ast.UnaryExpression:
		if ex.Operator == token.BANG {
			return a.negateFormula(a.scrapeCondition(ex.Operand, ctx), ex.Span())
		}
	case *ast.BinaryExpression:
		switch ex.Operator {
		case token.AND:
			left := a.scrapeCondition(ex.Left, ctx)
			right := a.scrapeCondition(ex.Right, ctx)
			return append(append(assertion.Set{}, left...), right...)
		case token.OR:
			return a.disjoinFormulas(a.scrapeCondition(ex.Left, ctx), a.scrapeCondition(ex.Right, ctx))
		case token.IDENTICAL, token.EQ:
			return a.comparisonFormula(ex, ctx, false)
		case token.NOT_IDENTICAL, token.NOT_EQ:
			return a.comparisonFormula(ex, ctx, true)
		}
	case *ast.InstanceofExpression:
		if v, ok := ex.Value.(*ast.VariableExpression); ok {
			class := a.resolveClassInScope(ex.Class, ctx)
			return assertion.AddAnd(nil, assertion.On(a.ir.Intern(v.Name),
				assertion.OfType(typesystem.NamedObject(class))))
		}
	case *ast.IssetExpression:
		var f assertion.Set
		for _, target := range ex.Vars {
			if v, ok := target.(*ast.VariableExpression); ok {
				f = assertion.AddAnd(f, assertion.On(a.ir.Intern(v.Name), assertion.IssetAssertion()))
			}
		}
		return f
	case *ast.EmptyExpression:
		if v, ok := ex.Value.(*ast.VariableExpression); ok {
			return assertion.AddAnd(nil, assertion.On(a.ir.Intern(v.Name), assertion.FalsyAssertion()))
		}
	case *ast.CallExpression:
		return a.assertFormula(ex, ctx)
	case *ast.BoolLiteral:
		if ex.Value {
			return assertion.Set{}
		}
		return assertion.AddAndClause(nil, nil)
	}
	return nil
}

// comparisonFormula handles `$x === lit` and its negation. Only literal
// and null comparands produce assertions.
func (a *Analyzer) comparisonFormula(ex *ast.BinaryExpression, ctx *BlockContext, negated bool) assertion.Set {
	v, lit := comparandPair(ex.Left, ex.Right)
	if v == nil || lit == nil {
		return nil
	}
	litType, ok := a.arts.TypeOf(lit.Span())
	if !ok {
		litType = a.exprType(lit, ctx)
	}
	if !isLiteralUnion(litType) {
		return nil
	}
	as := assertion.Identical(litType)
	if negated {
		as = as.Negate()
	}
	return assertion.AddAnd(nil, assertion.On(a.ir.Intern(v.Name), as))
}

func comparandPair(left, right ast.Expression) (*ast.VariableExpression, ast.Expression) {
	if v, ok := left.(*ast.VariableExpression); ok {
		return v, right
	}
	if v, ok := right.(*ast.VariableExpression); ok {
		return v, left
	}
	return nil, nil
}

func isLiteralUnion(u *typesystem.Union) bool {
	if len(u.Atomics) != 1 {
		return false
	}
	switch t := u.Atomics[0].(type) {
	case typesystem.TInt:
		return t.Literal != nil
	case typesystem.TFloat:
		return t.Literal != nil
	case typesystem.TString:
		return t.Literal != nil
	case typesystem.TBool:
		return t.Literal != nil
	case typesystem.TNull, typesystem.TEnumCase:
		return true
	}
	return false
}

// assertFormula turns declared function assertions into narrowing facts
// for variable arguments. Assertions marked if-false only apply on the
// negated path and are not scraped here.
func (a *Analyzer) assertFormula(ex *ast.CallExpression, ctx *BlockContext) assertion.Set {
	callee, ok := ex.Callee.(*ast.ConstFetchExpression)
	if !ok {
		return nil
	}
	meta, found := a.cb.Function(a.resolvedName(callee.Name))
	if !found || len(meta.Asserts) == 0 {
		return nil
	}

	var f assertion.Set
	for _, as := range meta.Asserts {
		if as.IfFalse {
			continue
		}
		arg := argumentForParam(meta, ex.Args, as.Param)
		if arg == nil {
			continue
		}
		v, isVar := arg.Value.(*ast.VariableExpression)
		if !isVar || as.Type == nil {
			continue
		}
		built := assertion.OfType(as.Type)
		if as.Negated {
			built = assertion.NotOfType(as.Type)
		}
		f = assertion.AddAnd(f, assertion.On(a.ir.Intern(v.Name), built))
	}
	return f
}

func argumentForParam(meta *codebase.FunctionLikeMetadata, args []*ast.Argument, param string) *ast.Argument {
	for _, arg := range args {
		if arg.Name == param {
			return arg
		}
	}
	for i, p := range meta.Params {
		if p.Name == param && i < len(args) && args[i].Name == "" {
			return args[i]
		}
	}
	return nil
}

// disjoinFormulas builds the CNF of (A or B) as the cross product of
// their clauses.
func (a *Analyzer) disjoinFormulas(left, right assertion.Set) assertion.Set {
	if left == nil || right == nil {
		return nil
	}
	if len(left) == 0 {
		return assertion.Set{}
	}
	if len(right) == 0 {
		return assertion.Set{}
	}
	var out assertion.Set
	for _, cl := range left {
		for _, cr := range right {
			merged := append(append([]assertion.Literal{}, cl...), cr...)
			out = assertion.AddAndClause(out, assertion.DedupClause(a.ir, merged))
		}
	}
	return out
}

// negateFormula negates a scraped formula. When the redistribution
// exceeds the clause threshold the negated path keeps its types and the
// condition is reported too complex.
func (a *Analyzer) negateFormula(f assertion.Set, sp token.Span) assertion.Set {
	if f == nil {
		return nil
	}
	out, ok := assertion.Negate(a.ir, f, a.opts.MaxClauses)
	if !ok {
		a.diags.Report(diagnostics.New(diagnostics.ConditionTooComplex, sp,
			"negated condition produced too many clauses; narrowing skipped"))
		return nil
	}
	return out
}

// conditionVerdict classifies a condition type as statically decided.
func (a *Analyzer) conditionVerdict(t *typesystem.Union) (always, never bool) {
	return t.IsAlwaysTruthy(), t.IsAlwaysFalsy()
}

// applyFormula conjoins the formula onto the path's clauses and refines
// variable types from the result.
func (a *Analyzer) applyFormula(f assertion.Set, ctx *BlockContext, sp token.Span) {
	if f == nil {
		return
	}
	for _, cl := range f {
		poss := make(map[interner.StringId]map[string]assertion.Assertion)
		for _, lit := range cl {
			m, ok := poss[lit.Subject]
			if !ok {
				m = make(map[string]assertion.Assertion)
				poss[lit.Subject] = m
			}
			m[lit.Assertion.Key(a.ir)] = lit.Assertion
		}
		if len(poss) == 0 {
			// An empty clause makes the path unsatisfiable.
			ctx.HasReturned = true
			return
		}
		ctx.Clauses = append(ctx.Clauses, clause.New(a.ir, poss, sp, false, true, false))
	}

	ctx.Clauses = clause.Simplify(a.ir, ctx.Clauses)
	if len(ctx.Clauses) > a.opts.MaxClauses {
		a.diags.Report(diagnostics.New(diagnostics.ConditionTooComplex, sp,
			"condition produced too many clauses; narrowing skipped"))
		ctx.Clauses = nil
		return
	}
	a.reconcile(ctx, sp)
}

func (a *Analyzer) applyNegatedFormula(f assertion.Set, ctx *BlockContext, sp token.Span) {
	a.applyFormula(a.negateFormula(f, sp), ctx, sp)
}

// reconcile refines variable types from the path's clauses: grouped
// negative facts subtract, single-variable clauses intersect across
// their disjuncts.
func (a *Analyzer) reconcile(ctx *BlockContext, sp token.Span) {
	impossible := clause.GroupImpossibilities(a.ir, a.cb, ctx.Clauses)
	vars := make([]interner.StringId, 0, len(impossible))
	for v := range impossible {
		vars = append(vars, v)
	}
	sort.Slice(vars, func(i, j int) bool { return vars[i] < vars[j] })
	for _, v := range vars {
		name := a.ir.Lookup(v)
		cur, ok := ctx.Local(name)
		if !ok {
			continue
		}
		refined := typesystem.Subtract(a.ir, a.cb, cur, impossible[v])
		if refined.IsNever() {
			a.diags.Report(diagnostics.New(diagnostics.ImpossibleCondition, sp,
				"$%s can never satisfy this condition", name))
		}
		ctx.SetLocal(name, refined)
	}

	for _, c := range ctx.Clauses {
		if c.Wedge || !c.Reconcilable {
			continue
		}
		cvars := c.Variables()
		if len(cvars) != 1 {
			continue
		}
		v := cvars[0]
		asserts := c.Possibilities[v]
		if len(asserts) == 1 && isGroupedNegation(asserts) {
			continue
		}

		name := a.ir.Lookup(v)
		cur, ok := ctx.Local(name)
		if !ok {
			if !hasIssetAssertion(asserts) {
				continue
			}
			cur = typesystem.Mixed()
		}

		keys := make([]string, 0, len(asserts))
		for k := range asserts {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		var refined *typesystem.Union
		for _, k := range keys {
			refined = a.combineOrFirst(refined, a.applyAssertion(cur, asserts[k]))
		}
		if refined == nil {
			continue
		}
		if refined.IsNever() {
			a.diags.Report(diagnostics.New(diagnostics.ImpossibleCondition, sp,
				"$%s can never satisfy this condition", name))
		}
		ctx.SetLocal(name, refined)
	}
}

func isGroupedNegation(asserts map[string]assertion.Assertion) bool {
	for _, as := range asserts {
		return as.Kind == assertion.IsNotType || as.Kind == assertion.IsNotIdentical
	}
	return false
}

func hasIssetAssertion(asserts map[string]assertion.Assertion) bool {
	for _, as := range asserts {
		if as.Kind == assertion.IsEqualIsset {
			return true
		}
	}
	return false
}

// applyAssertion refines one variable type under one assertion.
func (a *Analyzer) applyAssertion(cur *typesystem.Union, as assertion.Assertion) *typesystem.Union {
	switch as.Kind {
	case assertion.IsType, assertion.IsIdentical:
		if got := typesystem.Intersect(a.ir, a.cb, cur, as.Type); got != nil {
			return got
		}
		return typesystem.Never()
	case assertion.IsNotType, assertion.IsNotIdentical:
		return typesystem.Subtract(a.ir, a.cb, cur, as.Type)
	case assertion.Truthy:
		return typesystem.ToTruthy(cur)
	case assertion.Falsy:
		return typesystem.ToFalsy(cur)
	case assertion.IsEqualIsset:
		refined := typesystem.Subtract(a.ir, a.cb, cur, typesystem.Null()).Clone()
		refined.PossiblyUndefined = false
		refined.PossiblyUndefinedFromTry = false
		return refined
	case assertion.NotIsset:
		u := typesystem.Null()
		u.PossiblyUndefined = true
		return u
	case assertion.IsCount, assertion.NonEmptyCountable:
		if as.Kind == assertion.IsCount && as.Count == 0 {
			return emptyArrays(cur)
		}
		return nonEmptyArrays(cur)
	case assertion.EmptyCountable:
		return emptyArrays(cur)
	case assertion.IsGreaterThan, assertion.IsGreaterThanOrEqual,
		assertion.IsLessThan, assertion.IsLessThanOrEqual, assertion.IsNotCount:
		return cur
	}
	return cur
}

func nonEmptyArrays(u *typesystem.Union) *typesystem.Union {
	var out []typesystem.Atomic
	for _, at := range u.Atomics {
		if arr, ok := at.(typesystem.TArray); ok {
			arr.NonEmpty = true
			out = append(out, arr)
			continue
		}
		out = append(out, at)
	}
	return u.CloneFlags(out)
}

func emptyArrays(u *typesystem.Union) *typesystem.Union {
	var out []typesystem.Atomic
	for _, at := range u.Atomics {
		if _, ok := at.(typesystem.TArray); ok {
			out = append(out, typesystem.TArray{})
			continue
		}
		out = append(out, at)
	}
	return u.CloneFlags(out)
}
