package analyzer

import (
	"github.com/mago-lang/mago/internal/ast"
	"github.com/mago-lang/mago/internal/codebase"
	"github.com/mago-lang/mago/internal/diagnostics"
	"github.com/mago-lang/mago/internal/token"
	"github.com/mago-lang/mago/internal/typesystem"
)

// statement analyzes one statement and reports how control left it.
func (a *Analyzer) statement(s ast.Statement, ctx *BlockContext) Flow {
	if a.checkCancelled() {
		return FlowOk
	}
	if ctx.HasReturned {
		return FlowOk
	}

	switch st := s.(type) {
	case *ast.ExpressionStatement:
		a.exprType(st.Expr, ctx)
		if t, ok := a.arts.TypeOf(st.Expr.Span()); ok && t.IsNever() {
			ctx.HasReturned = true
			return FlowThrow
		}
		return FlowOk
	case *ast.EchoStatement:
		for _, v := range st.Values {
			a.exprType(v, ctx)
		}
		return FlowOk
	case *ast.BlockStatement:
		return a.block(st, ctx)
	case *ast.IfStatement:
		return a.ifStatement(st, ctx)
	case *ast.WhileStatement:
		return a.whileStatement(st, ctx)
	case *ast.DoWhileStatement:
		return a.doWhileStatement(st, ctx)
	case *ast.ForStatement:
		return a.forStatement(st, ctx)
	case *ast.ForeachStatement:
		return a.foreachStatement(st, ctx)
	case *ast.SwitchStatement:
		return a.switchStatement(st, ctx)
	case *ast.ReturnStatement:
		if st.Value != nil {
			got := a.exprType(st.Value, ctx)
			a.checkReturn(got, st.Value.Span(), ctx)
		}
		ctx.HasReturned = true
		return FlowReturn
	case *ast.BreakStatement:
		if n := len(ctx.loops); n > 0 {
			ctx.loops[n-1].breaks = append(ctx.loops[n-1].breaks, ctx.Branch())
		}
		ctx.HasReturned = true
		return FlowBreak
	case *ast.ContinueStatement:
		ctx.HasReturned = true
		return FlowContinue
	case *ast.TryStatement:
		return a.tryStatement(st, ctx)
	case *ast.GlobalStatement:
		for _, v := range st.Vars {
			ctx.SetLocal(v.Name, typesystem.Mixed())
		}
		return FlowOk
	case *ast.UnsetStatement:
		for _, v := range st.Vars {
			if variable, ok := v.(*ast.VariableExpression); ok {
				ctx.Unset(variable.Name)
			} else {
				a.exprType(v, ctx)
			}
		}
		return FlowOk
	case *ast.MissingStatement, *ast.UseStatement:
		return FlowOk
	case *ast.FunctionDeclaration:
		a.functionBody(st)
		return FlowOk
	case *ast.ClassLikeDeclaration:
		a.classBodies(st)
		return FlowOk
	case *ast.ConstDeclaration:
		a.exprType(st.Value, ctx)
		return FlowOk
	}
	return FlowOk
}

// block analyzes statements in order; once a statement exits, the rest
// is unreachable and skipped.
func (a *Analyzer) block(b *ast.BlockStatement, ctx *BlockContext) Flow {
	for _, stmt := range b.Statements {
		if ctx.HasReturned {
			break
		}
		if f := a.statement(stmt, ctx); f.exits() {
			return f
		}
	}
	return FlowOk
}

func (a *Analyzer) ifStatement(st *ast.IfStatement, ctx *BlockContext) Flow {
	// Flatten elseifs into a chain of (condition, body) arms.
	type arm struct {
		cond ast.Expression
		body *ast.BlockStatement
	}
	arms := []arm{{st.Condition, st.Then}}
	for _, ei := range st.ElseIfs {
		arms = append(arms, arm{ei.Condition, ei.Body})
	}

	branches := make([]*BlockContext, 0, len(arms)+1)
	elseCtx := ctx.Branch()
	elseCtx.InsideConditional = true

	for _, arm := range arms {
		condType := a.exprType(arm.cond, elseCtx)
		formula := a.scrapeCondition(arm.cond, elseCtx)

		always, never := a.conditionVerdict(condType)
		if never {
			a.diags.Report(diagnostics.New(diagnostics.RedundantCondition, arm.cond.Span(),
				"condition is always false"))
			// Unreachable arm: walk the body only for structural issues.
			dead := elseCtx.Branch()
			restore := a.diags.Mute()
			a.block(arm.body, dead)
			restore()
			continue
		}
		if always {
			a.diags.Report(diagnostics.New(diagnostics.RedundantCondition, arm.cond.Span(),
				"condition is always true"))
		}

		thenCtx := elseCtx.Branch()
		a.applyFormula(formula, thenCtx, arm.cond.Span())
		a.block(arm.body, thenCtx)
		branches = append(branches, thenCtx)

		if always {
			// The remaining arms and the else-path are unreachable.
			a.joinBranches(ctx, branches)
			return FlowOk
		}
		a.applyNegatedFormula(formula, elseCtx, arm.cond.Span())
	}

	if st.Else != nil {
		a.block(st.Else, elseCtx)
	}
	branches = append(branches, elseCtx)

	a.joinBranches(ctx, branches)
	return FlowOk
}

func (a *Analyzer) switchStatement(st *ast.SwitchStatement, ctx *BlockContext) Flow {
	a.exprType(st.Subject, ctx)

	var branches []*BlockContext
	hasDefault := false
	for _, c := range st.Cases {
		caseCtx := ctx.Branch()
		caseCtx.InsideConditional = true
		if c.Condition == nil {
			hasDefault = true
		} else {
			a.exprType(c.Condition, caseCtx)
		}
		loop := &loopScope{modified: make(map[string]bool)}
		caseCtx.loops = append(caseCtx.loops, loop)
		for _, inner := range c.Body {
			if caseCtx.HasReturned {
				break
			}
			a.statement(inner, caseCtx)
		}
		branches = append(branches, caseCtx)
		branches = append(branches, loop.breaks...)
	}
	if !hasDefault {
		// Fall-through path when no case matches.
		branches = append(branches, ctx.Branch())
	}
	a.joinBranches(ctx, branches)
	return FlowOk
}

func (a *Analyzer) whileStatement(st *ast.WhileStatement, ctx *BlockContext) Flow {
	a.loopBody(ctx, st.Condition, nil, func(bodyCtx *BlockContext) {
		a.block(st.Body, bodyCtx)
	})
	return FlowOk
}

func (a *Analyzer) doWhileStatement(st *ast.DoWhileStatement, ctx *BlockContext) Flow {
	// The body runs at least once before the condition is seen.
	a.loopBody(ctx, nil, st.Condition, func(bodyCtx *BlockContext) {
		a.block(st.Body, bodyCtx)
	})
	return FlowOk
}

func (a *Analyzer) forStatement(st *ast.ForStatement, ctx *BlockContext) Flow {
	for _, e := range st.Init {
		a.exprType(e, ctx)
	}
	var cond ast.Expression
	if len(st.Condition) > 0 {
		cond = st.Condition[len(st.Condition)-1]
	}
	a.loopBody(ctx, cond, nil, func(bodyCtx *BlockContext) {
		a.block(st.Body, bodyCtx)
		for _, e := range st.Update {
			a.exprType(e, bodyCtx)
		}
	})
	return FlowOk
}

func (a *Analyzer) foreachStatement(st *ast.ForeachStatement, ctx *BlockContext) Flow {
	iterType := a.exprType(st.Iterable, ctx)
	keyType, valueType := a.iterationTypes(iterType)

	a.loopBody(ctx, nil, nil, func(bodyCtx *BlockContext) {
		if st.KeyVar != nil {
			bodyCtx.SetLocal(st.KeyVar.Name, keyType)
		}
		bodyCtx.SetLocal(st.ValueVar.Name, valueType)
		a.block(st.Body, bodyCtx)
	})

	// Loop variables survive the loop, possibly unset when the iterable
	// was empty.
	if st.KeyVar != nil {
		k := keyType.Clone()
		k.PossiblyUndefined = true
		ctx.SetLocal(st.KeyVar.Name, k)
	}
	v := valueType.Clone()
	v.PossiblyUndefined = true
	ctx.SetLocal(st.ValueVar.Name, v)
	return FlowOk
}

// loopBody runs the bounded two-pass fixpoint: the first pass records
// which variables the body modifies, the second re-analyzes with those
// variables widened to the join of their pre- and post-loop types.
func (a *Analyzer) loopBody(ctx *BlockContext, cond, postCond ast.Expression, body func(*BlockContext)) {
	pre := make(map[string]*typesystem.Union, len(ctx.locals))
	for name, h := range ctx.locals {
		pre[name] = h.t
	}

	loop := &loopScope{modified: make(map[string]bool)}

	var last *BlockContext
	passes := a.opts.LoopPasses
	for pass := 0; pass < passes; pass++ {
		bodyCtx := ctx.Branch()
		bodyCtx.InsideLoop = true
		bodyCtx.loops = append(bodyCtx.loops, loop)

		if pass > 0 && last != nil {
			// Widen what the previous pass modified: each such variable
			// re-enters the body as the join of its pre-loop type and the
			// type the previous pass left it with.
			for name := range loop.modified {
				postType, ok := last.Local(name)
				if !ok {
					continue
				}
				if preType, found := pre[name]; found {
					bodyCtx.locals[name] = &holder{t: a.combine(preType, postType)}
				} else {
					u := postType.Clone()
					u.PossiblyUndefined = true
					bodyCtx.locals[name] = &holder{t: u}
				}
			}
		}

		if cond != nil {
			condType := a.exprType(cond, bodyCtx)
			formula := a.scrapeCondition(cond, bodyCtx)
			a.applyFormula(formula, bodyCtx, cond.Span())
			if _, never := a.conditionVerdict(condType); never && pass == 0 {
				a.diags.Report(diagnostics.New(diagnostics.RedundantCondition, cond.Span(),
					"loop condition is always false"))
			}
		}

		body(bodyCtx)

		if postCond != nil {
			a.exprType(postCond, bodyCtx)
		}

		for name, h := range bodyCtx.locals {
			if preH, ok := pre[name]; !ok || preH != h.t {
				loop.modified[name] = true
			}
		}
		last = bodyCtx
	}

	// Loop exit: the body may have run zero times (while/for) or broken
	// out early, so join the pre-loop state with the final body state
	// and every break context.
	exits := []*BlockContext{ctx.Branch()}
	if last != nil && !last.HasReturned {
		exits = append(exits, last)
	}
	exits = append(exits, loop.breaks...)
	a.joinBranches(ctx, exits)
}

func (a *Analyzer) iterationTypes(iter *typesystem.Union) (*typesystem.Union, *typesystem.Union) {
	var keys, values *typesystem.Union
	for _, at := range iter.Atomics {
		var k, v *typesystem.Union
		switch t := at.(type) {
		case typesystem.TArray:
			k, v = t.Key, t.Value
			for _, entry := range t.Shape {
				v = a.combineOrFirst(v, entry.Type)
			}
		case typesystem.TIterable:
			k, v = t.Key, t.Value
		default:
			return typesystem.Mixed(), typesystem.Mixed()
		}
		if k == nil {
			k = typesystem.NewUnion(typesystem.TInt{}, typesystem.TString{})
		}
		if v == nil {
			v = typesystem.Mixed()
		}
		keys = a.combineOrFirst(keys, k)
		values = a.combineOrFirst(values, v)
	}
	if keys == nil {
		keys = typesystem.Mixed()
	}
	if values == nil {
		values = typesystem.Mixed()
	}
	return keys, values
}

func (a *Analyzer) combineOrFirst(acc, next *typesystem.Union) *typesystem.Union {
	if next == nil {
		return acc
	}
	if acc == nil {
		return next
	}
	return a.combine(acc, next)
}

// checkReturn compares a returned value against the enclosing
// function's declared return type. Template-typed returns are checked
// at call sites, not here.
func (a *Analyzer) checkReturn(got *typesystem.Union, sp token.Span, ctx *BlockContext) {
	if ctx.Function == 0 {
		return
	}
	var meta *codebase.FunctionLikeMetadata
	var ok bool
	if ctx.Class != 0 {
		meta, ok = a.cb.Method(ctx.Class, ctx.Function)
	} else {
		meta, ok = a.cb.Function(ctx.Function)
	}
	if !ok || meta.Return == nil || meta.Return.IsMixed() {
		return
	}
	if containsGenericParam(meta.Return) {
		return
	}
	var cmp typesystem.ComparisonResult
	if !typesystem.IsContainedBy(a.ir, a.cb, got, meta.Return, &cmp) &&
		!cmp.TypeCoerced && !cmp.TypeCoercedFromNestedMixed {
		a.diags.Report(diagnostics.New(diagnostics.InvalidReturn, sp,
			"cannot return %s from a function declared to return %s",
			got.Id(a.ir), meta.Return.Id(a.ir)))
	}
}

func containsGenericParam(u *typesystem.Union) bool {
	for _, at := range u.Atomics {
		if _, ok := at.(typesystem.TGenericParam); ok {
			return true
		}
	}
	return false
}

func (a *Analyzer) tryStatement(st *ast.TryStatement, ctx *BlockContext) Flow {
	tryCtx := ctx.Branch()
	tryCtx.finally = &finallyScope{locals: make(map[string]*typesystem.Union)}

	a.block(st.Body, tryCtx)

	branches := []*BlockContext{tryCtx}

	for _, c := range st.Catches {
		catchCtx := ctx.Branch()
		// Anything the try body may have assigned before throwing is
		// only possibly defined here.
		for name := range tryCtx.PossiblyAssignedVariables {
			if _, definedBefore := ctx.Local(name); definedBefore {
				continue
			}
			if t, ok := tryCtx.Local(name); ok {
				u := t.Clone()
				u.PossiblyUndefined = true
				catchCtx.locals[name] = &holder{t: u}
			}
		}

		var caught *typesystem.Union
		for _, typeName := range c.Types {
			id := a.resolvedName(typeName)
			one := typesystem.NamedObject(id)
			caught = a.combineOrFirst(caught, one)
			if _, known := a.cb.ClassLike(id); !known {
				a.diags.Report(diagnostics.New(diagnostics.UnknownClass, typeName.Span(),
					"unknown class %s in catch", a.ir.Lookup(id)))
			}
		}
		if c.Var != nil && caught != nil {
			catchCtx.SetLocal(c.Var.Name, caught)
		}
		a.block(c.Body, catchCtx)
		branches = append(branches, catchCtx)
	}

	a.joinBranches(ctx, branches)

	if st.Finally != nil {
		// The finally block sees try-body writes as possibly undefined.
		for name, t := range tryCtx.finally.locals {
			if _, defined := ctx.Local(name); !defined {
				ctx.locals[name] = &holder{t: t}
			}
		}
		a.block(st.Finally, ctx)
	}
	return FlowOk
}
