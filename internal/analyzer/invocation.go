package analyzer

import (
	"github.com/mago-lang/mago/internal/ast"
	"github.com/mago-lang/mago/internal/codebase"
	"github.com/mago-lang/mago/internal/diagnostics"
	"github.com/mago-lang/mago/internal/interner"
	"github.com/mago-lang/mago/internal/template"
	"github.com/mago-lang/mago/internal/token"
	"github.com/mago-lang/mago/internal/typesystem"
)

func (a *Analyzer) callExpr(ex *ast.CallExpression, ctx *BlockContext) *typesystem.Union {
	if callee, ok := ex.Callee.(*ast.ConstFetchExpression); ok {
		name := a.resolvedName(callee.Name)
		meta, found := a.cb.Function(name)
		if !found {
			a.diags.Report(diagnostics.New(diagnostics.UnknownFunction, callee.Span(),
				"unknown function %s", a.ir.Lookup(name)))
			a.evaluateArgs(ex.Args, ctx)
			return typesystem.Mixed()
		}
		a.arts.AddRef(name, callee.Span())
		result := a.checkArguments(meta, ex.Args, ex.Span(), ctx, nil)
		return a.inferredReturn(meta, result)
	}

	// Call through an arbitrary callee expression.
	calleeType := a.exprType(ex.Callee, ctx)
	a.evaluateArgs(ex.Args, ctx)
	var ret *typesystem.Union
	for _, at := range calleeType.Atomics {
		if c, ok := at.(typesystem.TCallable); ok && c.Return != nil {
			ret = a.combineOrFirst(ret, c.Return)
			continue
		}
		ret = a.combineOrFirst(ret, typesystem.Mixed())
	}
	if ret == nil {
		return typesystem.Mixed()
	}
	return ret
}

// methodCallExpr dispatches a method call across every arm of the
// receiver union. Arms that lack the method degrade independently: the
// call is invalid only when no arm has it.
func (a *Analyzer) methodCallExpr(ex *ast.MethodCallExpression, ctx *BlockContext) *typesystem.Union {
	receiver := a.exprType(ex.Receiver, ctx)
	method := a.ir.Intern(ex.Method.Value)

	var (
		result      *typesystem.Union
		foundArms   int
		missingArms int
		objectArms  int
		sawNull     bool
		impure      bool
		evaluated   []evaluatedArg
	)

	for _, at := range receiver.Atomics {
		switch t := at.(type) {
		case typesystem.TNull:
			sawNull = true
		case typesystem.TMixed:
			result = a.combineOrFirst(result, typesystem.Mixed())
		case typesystem.TReference:
			a.diags.Report(diagnostics.New(diagnostics.UnknownClass, ex.Receiver.Span(),
				"unknown class %s", a.ir.Lookup(t.Name)))
			result = a.combineOrFirst(result, typesystem.Mixed())
		case typesystem.TNamedObject:
			objectArms++
			meta, ok := a.cb.Method(t.Name, method)
			if !ok {
				if a.cb.ClassLikeExists(t.Name) {
					missingArms++
					// Arms without the method contribute mixed so the
					// joined type never understates.
					result = a.combineOrFirst(result, typesystem.Mixed())
				} else {
					a.diags.Report(diagnostics.New(diagnostics.UnknownClass, ex.Receiver.Span(),
						"unknown class %s", a.ir.Lookup(t.Name)))
					result = a.combineOrFirst(result, typesystem.Mixed())
				}
				continue
			}
			foundArms++
			a.arts.AddRef(t.Name, ex.Method.Span())
			if !meta.IsPure {
				impure = true
			}

			// Arguments evaluate once, but every arm checks them against
			// its own signature; the collector dedups identical reports.
			if evaluated == nil {
				evaluated = a.evaluateArguments(ex.Args, ctx)
			}
			tr := a.checkEvaluatedArguments(meta, evaluated, ex.Span(), a.invocationTemplates(t, meta))
			a.bindReceiverTemplates(t, meta, tr)
			ret := a.inferredReturn(meta, tr)
			ret = a.replaceThis(ret, t)
			result = a.combineOrFirst(result, ret)
		default:
			a.diags.Report(diagnostics.New(diagnostics.InvalidMethodCall, ex.Span(),
				"cannot call method on %s", at.Id(a.ir)))
		}
	}

	if objectArms > 0 && foundArms == 0 && missingArms == objectArms {
		a.diags.Report(diagnostics.New(diagnostics.InvalidMethodCall, ex.Method.Span(),
			"method %s does not exist on the receiver", ex.Method.Value))
	} else if missingArms > 0 && foundArms > 0 {
		a.diags.Report(diagnostics.New(diagnostics.PossiblyInvalidMethodCall, ex.Method.Span(),
			"method %s may not exist on every arm of the receiver", ex.Method.Value).
			WithAnnotation(ex.Receiver.Span(), "receiver is %s", receiver.Id(a.ir)))
	}

	if sawNull {
		if ex.NullSafe {
			result = a.combineOrFirst(result, typesystem.Null())
		} else if receiver.IsNull() {
			a.diags.Report(diagnostics.New(diagnostics.NullDereference, ex.Receiver.Span(),
				"method call on null"))
		} else {
			a.diags.Report(diagnostics.New(diagnostics.PossiblyNullDereference, ex.Receiver.Span(),
				"method call on possibly null value"))
		}
	}

	// An impure method may rewrite the receiver's state.
	if impure {
		if v, ok := ex.Receiver.(*ast.VariableExpression); ok {
			ctx.ClearProperties(v.Name)
		}
	}

	if evaluated == nil {
		a.evaluateArgs(ex.Args, ctx)
	}
	if result == nil {
		return typesystem.Mixed()
	}
	return result
}

func (a *Analyzer) staticCallExpr(ex *ast.StaticCallExpression, ctx *BlockContext) *typesystem.Union {
	class := a.resolveClassInScope(ex.Class, ctx)
	method := a.ir.Intern(ex.Method.Value)

	if !a.cb.ClassLikeExists(class) {
		a.diags.Report(diagnostics.New(diagnostics.UnknownClass, ex.Class.Span(),
			"unknown class %s", a.ir.Lookup(class)))
		a.evaluateArgs(ex.Args, ctx)
		return typesystem.Mixed()
	}
	meta, ok := a.cb.Method(class, method)
	if !ok {
		a.diags.Report(diagnostics.New(diagnostics.UnknownMethod, ex.Method.Span(),
			"unknown method %s::%s", a.ir.Lookup(class), ex.Method.Value))
		a.evaluateArgs(ex.Args, ctx)
		return typesystem.Mixed()
	}
	a.arts.AddRef(class, ex.Class.Span())

	// A non-static method is callable through :: only via parent::/self::
	// forwarding inside an instance scope of the same hierarchy.
	if !meta.IsStatic {
		insideHierarchy := ctx.Class != 0 &&
			(a.cb.IsInstanceOf(ctx.Class, class) || a.cb.IsInstanceOf(class, ctx.Class))
		if !insideHierarchy {
			a.diags.Report(diagnostics.New(diagnostics.InvalidStaticMethodCall, ex.Span(),
				"%s::%s is not static", a.ir.Lookup(class), ex.Method.Value))
		}
	}

	tr := a.checkArguments(meta, ex.Args, ex.Span(), ctx, a.functionTemplates(meta))
	ret := a.inferredReturn(meta, tr)
	if ctx.Class != 0 {
		ret = a.replaceThis(ret, typesystem.TNamedObject{Name: ctx.Class, IsThis: true})
	}
	return ret
}

func (a *Analyzer) newExpr(ex *ast.NewExpression, ctx *BlockContext) *typesystem.Union {
	class := a.resolveClassInScope(ex.Class, ctx)
	meta, ok := a.cb.ClassLike(class)
	if !ok {
		a.diags.Report(diagnostics.New(diagnostics.UnknownClass, ex.Class.Span(),
			"unknown class %s", a.ir.Lookup(class)))
		a.evaluateArgs(ex.Args, ctx)
		return typesystem.Mixed()
	}
	a.arts.AddRef(class, ex.Class.Span())

	obj := typesystem.TNamedObject{Name: class}

	ctor, hasCtor := a.cb.Method(class, a.ir.Intern("__construct"))
	if hasCtor {
		tr := a.checkArguments(ctor, ex.Args, ex.Span(), ctx, a.classTemplates(meta, ctor))
		// Constructor arguments pin the class's own template parameters.
		if bounds, ok := tr.LowerBoundsForClassLike(class); ok {
			params := make([]*typesystem.Union, len(meta.Templates))
			for i, tp := range meta.Templates {
				if b, found := bounds[tp.Name]; found {
					params[i] = b
				} else if tp.Bound != nil {
					params[i] = tp.Bound
				} else {
					params[i] = typesystem.Mixed()
				}
			}
			obj.TypeParams = params
		}
	} else {
		a.evaluateArgs(ex.Args, ctx)
		if len(ex.Args) > 0 {
			a.diags.Report(diagnostics.New(diagnostics.TooManyArguments, ex.Span(),
				"%s has no constructor", a.ir.Lookup(class)))
		}
	}
	return typesystem.NewUnion(obj)
}

func (a *Analyzer) evaluateArgs(args []*ast.Argument, ctx *BlockContext) {
	for _, arg := range args {
		a.exprType(arg.Value, ctx)
	}
}

// functionTemplates converts a callee's declared templates.
func (a *Analyzer) functionTemplates(meta *codebase.FunctionLikeMetadata) []template.Param {
	out := make([]template.Param, 0, len(meta.Templates))
	for _, tp := range meta.Templates {
		out = append(out, template.Param{Name: tp.Name, Entity: tp.Entity, Bound: tp.Bound, Variance: tp.Variance})
	}
	return out
}

// invocationTemplates is the template scope of a method call: the
// method's own templates plus those of the receiver's class and of the
// class that declared the method.
func (a *Analyzer) invocationTemplates(obj typesystem.TNamedObject, meta *codebase.FunctionLikeMetadata) []template.Param {
	out := a.functionTemplates(meta)
	if m, ok := a.cb.ClassLike(obj.Name); ok {
		out = a.appendClassTemplates(out, m)
	}
	if meta.DefinedIn != 0 && meta.DefinedIn != obj.Name {
		if dm, ok := a.cb.ClassLike(meta.DefinedIn); ok {
			out = a.appendClassTemplates(out, dm)
		}
	}
	return out
}

func (a *Analyzer) classTemplates(m *codebase.ClassLikeMetadata, ctor *codebase.FunctionLikeMetadata) []template.Param {
	return a.appendClassTemplates(a.functionTemplates(ctor), m)
}

func (a *Analyzer) appendClassTemplates(out []template.Param, m *codebase.ClassLikeMetadata) []template.Param {
	for _, tp := range m.Templates {
		out = append(out, template.Param{Name: tp.Name, Entity: tp.Entity, Bound: tp.Bound, Variance: tp.Variance})
	}
	return out
}

// bindReceiverTemplates pins class-level template parameters from the
// receiver's type arguments, walking the extended-template map when the
// method lives in an ancestor.
func (a *Analyzer) bindReceiverTemplates(obj typesystem.TNamedObject, meta *codebase.FunctionLikeMetadata, tr *template.Result) {
	m, ok := a.cb.ClassLike(obj.Name)
	if !ok {
		return
	}
	for i, tp := range m.Templates {
		if i < len(obj.TypeParams) {
			tr.AddLowerBound(a.ir, a.cb, tp.Name, obj.Name, obj.TypeParams[i], 0)
		}
	}
	if meta.DefinedIn == 0 || meta.DefinedIn == obj.Name {
		return
	}
	dm, ok := a.cb.ClassLike(meta.DefinedIn)
	if !ok {
		return
	}
	for _, tp := range dm.Templates {
		bound, found := a.cb.TemplateExtendedType(obj.Name, meta.DefinedIn, tp.Name)
		if !found {
			continue
		}
		resolved := a.substituteOwnParams(obj, m, bound)
		tr.AddLowerBound(a.ir, a.cb, tp.Name, meta.DefinedIn, resolved, 0)
	}
}

// substituteOwnParams replaces the class's own template parameters in u
// with the receiver's concrete type arguments.
func (a *Analyzer) substituteOwnParams(obj typesystem.TNamedObject, m *codebase.ClassLikeMetadata, u *typesystem.Union) *typesystem.Union {
	if len(obj.TypeParams) == 0 {
		return u
	}
	byName := make(map[interner.StringId]*typesystem.Union, len(m.Templates))
	for i, tp := range m.Templates {
		if i < len(obj.TypeParams) {
			byName[tp.Name] = obj.TypeParams[i]
		}
	}
	return template.Replace(a.ir, u, func(g typesystem.TGenericParam) (*typesystem.Union, bool) {
		if g.DefiningEntity != obj.Name {
			return nil, false
		}
		bound, ok := byName[g.Name]
		return bound, ok
	})
}

// replaceThis rewrites $this returns to the concrete receiver.
func (a *Analyzer) replaceThis(u *typesystem.Union, receiver typesystem.TNamedObject) *typesystem.Union {
	var out []typesystem.Atomic
	changed := false
	for _, at := range u.Atomics {
		if obj, ok := at.(typesystem.TNamedObject); ok && obj.IsThis {
			r := receiver
			r.IsThis = false
			out = append(out, r)
			changed = true
			continue
		}
		out = append(out, at)
	}
	if !changed {
		return u
	}
	return u.CloneFlags(out)
}

// evaluatedArg pairs an argument with its already inferred type, so a
// union receiver can check one evaluation against several signatures.
type evaluatedArg struct {
	arg *ast.Argument
	t   *typesystem.Union
}

func (a *Analyzer) evaluateArguments(args []*ast.Argument, ctx *BlockContext) []evaluatedArg {
	out := make([]evaluatedArg, len(args))
	for i, arg := range args {
		out[i] = evaluatedArg{arg: arg, t: a.exprType(arg.Value, ctx)}
	}
	return out
}

// checkArguments pairs arguments to parameters, reports arity and type
// mismatches, and accumulates template inference evidence.
func (a *Analyzer) checkArguments(meta *codebase.FunctionLikeMetadata, args []*ast.Argument, sp token.Span, ctx *BlockContext, templates []template.Param) *template.Result {
	return a.checkEvaluatedArguments(meta, a.evaluateArguments(args, ctx), sp, templates)
}

func (a *Analyzer) checkEvaluatedArguments(meta *codebase.FunctionLikeMetadata, args []evaluatedArg, sp token.Span, templates []template.Param) *template.Result {
	if templates == nil {
		templates = a.functionTemplates(meta)
	}
	tr := template.NewResult(templates)

	type paired struct {
		param *codebase.ParameterMetadata
		t     *typesystem.Union
		sp    token.Span
	}
	var pairs []paired

	variadic := len(meta.Params) > 0 && meta.Params[len(meta.Params)-1].Variadic
	positional := 0
	covered := make(map[string]bool, len(args))
	sawSpread := false

	for _, ev := range args {
		arg, at := ev.arg, ev.t
		if arg.Spread {
			sawSpread = true
			_, elem := a.iterationTypes(at)
			if variadic {
				pairs = append(pairs, paired{meta.Params[len(meta.Params)-1], elem, arg.Span()})
			}
			continue
		}
		if arg.Name != "" {
			p := paramByName(meta, arg.Name)
			if p == nil {
				a.diags.Report(diagnostics.New(diagnostics.NamedArgumentMismatch, arg.Span(),
					"no parameter named $%s", arg.Name))
				continue
			}
			if covered[arg.Name] {
				a.diags.Report(diagnostics.New(diagnostics.NamedArgumentMismatch, arg.Span(),
					"$%s passed more than once", arg.Name))
				continue
			}
			covered[arg.Name] = true
			pairs = append(pairs, paired{p, at, arg.Span()})
			continue
		}

		if positional >= len(meta.Params) {
			if !variadic && !sawSpread {
				a.diags.Report(diagnostics.New(diagnostics.TooManyArguments, arg.Span(),
					"too many arguments, expected at most %d", len(meta.Params)))
			}
			positional++
			continue
		}
		p := meta.Params[positional]
		covered[p.Name] = true
		pairs = append(pairs, paired{p, at, arg.Span()})
		if !p.Variadic {
			positional++
		}
	}

	if !sawSpread {
		for _, p := range meta.Params {
			if p.HasDefault || p.Variadic || covered[p.Name] {
				continue
			}
			a.diags.Report(diagnostics.New(diagnostics.TooFewArguments, sp,
				"missing required argument $%s", p.Name))
		}
	}

	// Gather evidence from every pair first, so standin replacement sees
	// all bounds when a parameter appears in several positions.
	for _, pair := range pairs {
		if pair.param.Type != nil {
			a.inferBounds(pair.param.Type, pair.t, 0, tr, false)
		}
	}
	for _, pair := range pairs {
		if pair.param.Type == nil {
			continue
		}
		want := pair.param.Type
		if len(templates) > 0 {
			want = template.StandinReplace(a.ir, a.cb, want, tr)
		}
		var cmp typesystem.ComparisonResult
		if !typesystem.IsContainedBy(a.ir, a.cb, pair.t, want, &cmp) && !cmp.TypeCoerced {
			a.diags.Report(diagnostics.New(diagnostics.InvalidArgument, pair.sp,
				"expected %s, got %s", want.Id(a.ir), pair.t.Id(a.ir)))
		}
	}
	return tr
}

func paramByName(meta *codebase.FunctionLikeMetadata, name string) *codebase.ParameterMetadata {
	for _, p := range meta.Params {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// inferBounds walks a declared parameter type against the argument type,
// recording evidence at each template parameter occurrence. Occurrences
// in covariant position yield lower bounds; contra flips at every
// callable parameter position, where occurrences yield upper bounds.
func (a *Analyzer) inferBounds(param, arg *typesystem.Union, depth int, tr *template.Result, contra bool) {
	for _, pat := range param.Atomics {
		switch p := pat.(type) {
		case typesystem.TGenericParam:
			if contra {
				tr.AddUpperBound(a.ir, a.cb, p.Name, p.DefiningEntity, arg, depth)
			} else {
				tr.AddLowerBound(a.ir, a.cb, p.Name, p.DefiningEntity, arg, depth)
			}
		case typesystem.TArray:
			for _, aat := range arg.Atomics {
				if arr, ok := aat.(typesystem.TArray); ok {
					if p.Key != nil && arr.Key != nil {
						a.inferBounds(p.Key, arr.Key, depth+1, tr, contra)
					}
					if p.Value != nil && arr.Value != nil {
						a.inferBounds(p.Value, arr.Value, depth+1, tr, contra)
					}
					if p.Value != nil && len(arr.Shape) > 0 {
						var shaped *typesystem.Union
						for _, e := range arr.Shape {
							shaped = a.combineOrFirst(shaped, e.Type)
						}
						if shaped != nil {
							a.inferBounds(p.Value, shaped, depth+1, tr, contra)
						}
					}
				}
			}
		case typesystem.TIterable:
			for _, aat := range arg.Atomics {
				switch arr := aat.(type) {
				case typesystem.TArray:
					if p.Key != nil && arr.Key != nil {
						a.inferBounds(p.Key, arr.Key, depth+1, tr, contra)
					}
					if p.Value != nil && arr.Value != nil {
						a.inferBounds(p.Value, arr.Value, depth+1, tr, contra)
					}
				case typesystem.TIterable:
					if p.Key != nil && arr.Key != nil {
						a.inferBounds(p.Key, arr.Key, depth+1, tr, contra)
					}
					if p.Value != nil && arr.Value != nil {
						a.inferBounds(p.Value, arr.Value, depth+1, tr, contra)
					}
				}
			}
		case typesystem.TNamedObject:
			if len(p.TypeParams) == 0 {
				continue
			}
			for _, aat := range arg.Atomics {
				obj, ok := aat.(typesystem.TNamedObject)
				if !ok || obj.Name != p.Name {
					continue
				}
				for i, pp := range p.TypeParams {
					if i < len(obj.TypeParams) {
						a.inferBounds(pp, obj.TypeParams[i], depth+1, tr, contra)
					}
				}
			}
		case typesystem.TCallable:
			for _, aat := range arg.Atomics {
				c, ok := aat.(typesystem.TCallable)
				if !ok {
					continue
				}
				for i, pp := range p.Params {
					if pp.Type == nil || i >= len(c.Params) || c.Params[i].Type == nil {
						continue
					}
					a.inferBounds(pp.Type, c.Params[i].Type, depth+1, tr, !contra)
				}
				if p.Return != nil && c.Return != nil {
					a.inferBounds(p.Return, c.Return, depth+1, tr, contra)
				}
			}
		}
	}
}

// inferredReturn substitutes inferred template bounds into the declared
// return type.
func (a *Analyzer) inferredReturn(meta *codebase.FunctionLikeMetadata, tr *template.Result) *typesystem.Union {
	if meta.Return == nil {
		return typesystem.Mixed()
	}
	if tr == nil || len(tr.Templates) == 0 {
		return meta.Return
	}
	return template.InferredReplace(a.ir, a.cb, meta.Return, tr)
}
