package analyzer

import (
	"github.com/mago-lang/mago/internal/ast"
	"github.com/mago-lang/mago/internal/diagnostics"
	"github.com/mago-lang/mago/internal/interner"
	"github.com/mago-lang/mago/internal/token"
	"github.com/mago-lang/mago/internal/typesystem"
)

// exprType infers the expression's type, records it in the artifacts and
// returns it. Every expression gets a type; failures degrade to mixed.
func (a *Analyzer) exprType(e ast.Expression, ctx *BlockContext) *typesystem.Union {
	t := a.exprTypeInner(e, ctx)
	if t == nil {
		t = typesystem.Mixed()
	}
	a.arts.SetType(e.Span(), t)
	return t
}

func (a *Analyzer) exprTypeInner(e ast.Expression, ctx *BlockContext) *typesystem.Union {
	switch ex := e.(type) {
	case *ast.IntLiteral:
		return typesystem.IntLiteral(ex.Value)
	case *ast.FloatLiteral:
		return typesystem.FloatLiteral(ex.Value)
	case *ast.StringLiteral:
		return typesystem.StringLiteral(ex.Value)
	case *ast.BoolLiteral:
		return typesystem.BoolLiteral(ex.Value)
	case *ast.NullLiteral:
		return typesystem.Null()
	case *ast.VariableExpression:
		return a.variableExpr(ex, ctx)
	case *ast.ArrayLiteral:
		return a.arrayLiteral(ex, ctx)
	case *ast.BinaryExpression:
		return a.binaryExpr(ex, ctx)
	case *ast.UnaryExpression:
		return a.unaryExpr(ex, ctx)
	case *ast.AssignExpression:
		return a.assignExpr(ex, ctx)
	case *ast.TernaryExpression:
		return a.ternaryExpr(ex, ctx)
	case *ast.CallExpression:
		return a.callExpr(ex, ctx)
	case *ast.MethodCallExpression:
		return a.methodCallExpr(ex, ctx)
	case *ast.StaticCallExpression:
		return a.staticCallExpr(ex, ctx)
	case *ast.NewExpression:
		return a.newExpr(ex, ctx)
	case *ast.PropertyAccessExpression:
		return a.propertyAccess(ex, ctx)
	case *ast.StaticPropertyAccessExpression:
		return a.staticPropertyAccess(ex)
	case *ast.ClassConstAccessExpression:
		return a.classConstAccess(ex, ctx)
	case *ast.ConstFetchExpression:
		return a.constFetch(ex)
	case *ast.InstanceofExpression:
		a.exprType(ex.Value, ctx)
		a.checkClassRef(ex.Class)
		return typesystem.Bool()
	case *ast.IssetExpression:
		for _, v := range ex.Vars {
			if variable, ok := v.(*ast.VariableExpression); ok {
				ctx.Reference(variable.Name)
			} else {
				a.exprType(v, ctx)
			}
		}
		return typesystem.Bool()
	case *ast.EmptyExpression:
		if variable, ok := ex.Value.(*ast.VariableExpression); ok {
			ctx.Reference(variable.Name)
		} else {
			a.exprType(ex.Value, ctx)
		}
		return typesystem.Bool()
	case *ast.ArrayAccessExpression:
		return a.arrayAccess(ex, ctx)
	case *ast.ThrowExpression:
		return a.throwExpr(ex, ctx)
	case *ast.ClosureExpression:
		return a.closureExpr(ex, ctx)
	case *ast.ArrowFunctionExpression:
		return a.arrowFunctionExpr(ex, ctx)
	case *ast.CastExpression:
		return a.castExpr(ex, ctx)
	case *ast.CloneExpression:
		return a.exprType(ex.Operand, ctx)
	case *ast.MatchExpression:
		return a.matchExpr(ex, ctx)
	case *ast.MissingExpression:
		return typesystem.Mixed()
	}
	return typesystem.Mixed()
}

func (a *Analyzer) variableExpr(ex *ast.VariableExpression, ctx *BlockContext) *typesystem.Union {
	ctx.Reference(ex.Name)
	t, ok := ctx.Local(ex.Name)
	if !ok {
		if !ctx.InsideAssignment {
			a.diags.Report(diagnostics.New(diagnostics.UndefinedVariable, ex.Span(),
				"undefined variable $%s", ex.Name))
		}
		return typesystem.Mixed()
	}
	if t.PossiblyUndefined || t.PossiblyUndefinedFromTry {
		a.diags.Report(diagnostics.New(diagnostics.PossiblyUndefinedVariable, ex.Span(),
			"$%s may be undefined here", ex.Name))
	}
	return t
}

func (a *Analyzer) arrayLiteral(ex *ast.ArrayLiteral, ctx *BlockContext) *typesystem.Union {
	if len(ex.Items) == 0 {
		return typesystem.EmptyArray()
	}

	// Keep a shape while every key is a literal (or implied list index);
	// any computed key or spread falls back to a generic array.
	var shape []typesystem.ShapeEntry
	shapeable := true
	nextIndex := int64(0)

	var keys, values *typesystem.Union
	isList := true
	for _, item := range ex.Items {
		if item.Spread {
			spread := a.exprType(item.Value, ctx)
			_, sv := a.iterationTypes(spread)
			values = a.combineOrFirst(values, sv)
			keys = a.combineOrFirst(keys, typesystem.Int())
			shapeable = false
			continue
		}
		vt := a.exprType(item.Value, ctx)
		values = a.combineOrFirst(values, vt)

		if item.Key == nil {
			keys = a.combineOrFirst(keys, typesystem.IntLiteral(nextIndex))
			if shapeable {
				shape = append(shape, typesystem.ShapeEntry{Key: typesystem.IntKey(nextIndex), Type: vt})
			}
			nextIndex++
			continue
		}

		kt := a.exprType(item.Key, ctx)
		keys = a.combineOrFirst(keys, kt)
		isList = false
		switch k := item.Key.(type) {
		case *ast.IntLiteral:
			if shapeable {
				shape = append(shape, typesystem.ShapeEntry{Key: typesystem.IntKey(k.Value), Type: vt})
			}
			if k.Value >= nextIndex {
				nextIndex = k.Value + 1
			}
		case *ast.StringLiteral:
			if shapeable {
				shape = append(shape, typesystem.ShapeEntry{Key: typesystem.StrKey(k.Value), Type: vt})
			}
		default:
			shapeable = false
		}
	}

	if shapeable && len(shape) <= a.opts.LiteralLimit {
		return typesystem.NewUnion(typesystem.TArray{Shape: shape, Sealed: true, IsList: isList, NonEmpty: true})
	}
	if keys == nil {
		keys = typesystem.Int()
	}
	if values == nil {
		values = typesystem.Mixed()
	}
	return typesystem.NewUnion(typesystem.TArray{Key: keys, Value: values, IsList: isList, NonEmpty: true})
}

func (a *Analyzer) binaryExpr(ex *ast.BinaryExpression, ctx *BlockContext) *typesystem.Union {
	switch ex.Operator {
	case token.AND:
		// The right operand only evaluates when the left was truthy.
		left := a.exprType(ex.Left, ctx)
		formula := a.scrapeCondition(ex.Left, ctx)
		rightCtx := ctx.Branch()
		a.applyFormula(formula, rightCtx, ex.Left.Span())
		a.exprType(ex.Right, rightCtx)
		if left.IsAlwaysFalsy() {
			return typesystem.False()
		}
		return typesystem.Bool()
	case token.OR:
		left := a.exprType(ex.Left, ctx)
		formula := a.scrapeCondition(ex.Left, ctx)
		rightCtx := ctx.Branch()
		a.applyNegatedFormula(formula, rightCtx, ex.Left.Span())
		a.exprType(ex.Right, rightCtx)
		if left.IsAlwaysTruthy() {
			return typesystem.True()
		}
		return typesystem.Bool()
	case token.COALESCE:
		return a.coalesceExpr(ex, ctx)
	}

	left := a.exprType(ex.Left, ctx)
	right := a.exprType(ex.Right, ctx)

	switch ex.Operator {
	case token.PLUS, token.MINUS, token.STAR, token.PERCENT:
		return arithmeticType(left, right)
	case token.SLASH:
		return typesystem.NewUnion(typesystem.TInt{}, typesystem.TFloat{})
	case token.DOT:
		return typesystem.String()
	case token.EQ, token.NOT_EQ, token.IDENTICAL, token.NOT_IDENTICAL,
		token.LT, token.GT, token.LT_EQ, token.GT_EQ:
		return typesystem.Bool()
	case token.SPACESHIP:
		return typesystem.Int()
	case token.AMPERSAND, token.PIPE:
		return typesystem.Int()
	}
	return typesystem.Mixed()
}

// coalesceExpr types `a ?? b`. When the left side can never be null or
// undefined, the fallback is dead and the whole expression is the left
// side.
func (a *Analyzer) coalesceExpr(ex *ast.BinaryExpression, ctx *BlockContext) *typesystem.Union {
	left := a.exprTypeOfCoalesceSubject(ex.Left, ctx)

	if !left.IsNullable() && !left.PossiblyUndefined && !left.PossiblyUndefinedFromTry && !left.IsMixed() {
		a.diags.Report(diagnostics.New(diagnostics.RedundantNullCoalesce, ex.Span(),
			"left side of ?? is never null"))
		a.exprType(ex.Right, ctx)
		return left
	}

	right := a.exprType(ex.Right, ctx)
	narrowed := typesystem.Subtract(a.ir, a.cb, left, typesystem.Null())
	narrowed = narrowed.Clone()
	narrowed.PossiblyUndefined = false
	narrowed.PossiblyUndefinedFromTry = false
	if narrowed.IsNever() {
		return right
	}
	return a.combine(narrowed, right)
}

// exprTypeOfCoalesceSubject evaluates the left side of ?? without
// reporting undefined-variable issues, matching its isset-like behavior.
func (a *Analyzer) exprTypeOfCoalesceSubject(e ast.Expression, ctx *BlockContext) *typesystem.Union {
	if variable, ok := e.(*ast.VariableExpression); ok {
		ctx.Reference(variable.Name)
		t, defined := ctx.Local(variable.Name)
		if !defined {
			u := typesystem.Null()
			u.PossiblyUndefined = true
			a.arts.SetType(e.Span(), u)
			return u
		}
		a.arts.SetType(e.Span(), t)
		return t
	}
	return a.exprType(e, ctx)
}

func arithmeticType(left, right *typesystem.Union) *typesystem.Union {
	if isFloatOnly(left) || isFloatOnly(right) {
		return typesystem.Float()
	}
	if isIntOnly(left) && isIntOnly(right) {
		return typesystem.Int()
	}
	return typesystem.NewUnion(typesystem.TInt{}, typesystem.TFloat{})
}

func isIntOnly(u *typesystem.Union) bool {
	for _, at := range u.Atomics {
		if _, ok := at.(typesystem.TInt); !ok {
			return false
		}
	}
	return len(u.Atomics) > 0
}

func isFloatOnly(u *typesystem.Union) bool {
	for _, at := range u.Atomics {
		if _, ok := at.(typesystem.TFloat); !ok {
			return false
		}
	}
	return len(u.Atomics) > 0
}

func (a *Analyzer) unaryExpr(ex *ast.UnaryExpression, ctx *BlockContext) *typesystem.Union {
	operand := a.exprType(ex.Operand, ctx)
	switch ex.Operator {
	case token.BANG:
		if operand.IsAlwaysTruthy() {
			return typesystem.False()
		}
		if operand.IsAlwaysFalsy() {
			return typesystem.True()
		}
		return typesystem.Bool()
	case token.MINUS, token.PLUS:
		if isFloatOnly(operand) {
			return typesystem.Float()
		}
		if isIntOnly(operand) {
			if len(operand.Atomics) == 1 {
				if ti, ok := operand.Atomics[0].(typesystem.TInt); ok && ti.Literal != nil && ex.Operator == token.MINUS {
					return typesystem.IntLiteral(-*ti.Literal)
				}
			}
			return typesystem.Int()
		}
		return typesystem.NewUnion(typesystem.TInt{}, typesystem.TFloat{})
	}
	return typesystem.Mixed()
}

func (a *Analyzer) assignExpr(ex *ast.AssignExpression, ctx *BlockContext) *typesystem.Union {
	switch ex.Operator {
	case token.ASSIGN:
		value := a.exprType(ex.Value, ctx)
		a.assignTo(ex.Target, value, ctx)
		a.arts.AddEdge(ex.Value.Span(), ex.Target.Span())
		return value
	case token.COALESCE_EQ:
		// Assigns only when the target is null or unset.
		current := a.exprTypeOfCoalesceSubject(ex.Target, ctx)
		value := a.exprType(ex.Value, ctx)
		if !current.IsNullable() && !current.PossiblyUndefined && !current.PossiblyUndefinedFromTry && !current.IsMixed() {
			a.diags.Report(diagnostics.New(diagnostics.RedundantNullCoalesce, ex.Span(),
				"??= target is never null"))
			return current
		}
		kept := typesystem.Subtract(a.ir, a.cb, current, typesystem.Null())
		result := a.combine(kept, value)
		result = result.Clone()
		result.PossiblyUndefined = false
		result.PossiblyUndefinedFromTry = false
		a.assignTo(ex.Target, result, ctx)
		return result
	default:
		// Compound operators read then write.
		inAssign := ctx.InsideAssignment
		ctx.InsideAssignment = false
		current := a.exprType(ex.Target, ctx)
		ctx.InsideAssignment = inAssign
		value := a.exprType(ex.Value, ctx)
		var result *typesystem.Union
		switch ex.Operator {
		case token.DOT_EQ:
			result = typesystem.String()
		case token.PLUS_EQ, token.MINUS_EQ:
			result = arithmeticType(current, value)
		default:
			result = typesystem.Mixed()
		}
		a.assignTo(ex.Target, result, ctx)
		return result
	}
}

func (a *Analyzer) assignTo(target ast.Expression, value *typesystem.Union, ctx *BlockContext) {
	switch t := target.(type) {
	case *ast.VariableExpression:
		ctx.SetLocal(t.Name, value)
		a.arts.SetType(t.Span(), value)
	case *ast.ArrayAccessExpression:
		// Writing through an index widens the base array.
		inAssign := ctx.InsideAssignment
		ctx.InsideAssignment = true
		base := a.exprType(t.Array, ctx)
		ctx.InsideAssignment = inAssign
		if t.Index != nil {
			a.exprType(t.Index, ctx)
		}
		if variable, ok := t.Array.(*ast.VariableExpression); ok {
			ctx.SetLocal(variable.Name, widenArrayWrite(a, base, value))
		}
	case *ast.PropertyAccessExpression:
		a.exprType(t.Receiver, ctx)
		// The write makes the value the next read would see.
		if a.opts.MemoizeProperties && !t.NullSafe {
			if v, ok := t.Receiver.(*ast.VariableExpression); ok {
				ctx.SetProperty(v.Name+"->"+t.Property.Value, value)
			}
		}
	case *ast.ArrayLiteral:
		// Destructuring `[$a, $b] = ...`.
		_, vt := a.iterationTypes(value)
		for _, item := range t.Items {
			if item.Value != nil {
				a.assignTo(item.Value, vt, ctx)
			}
		}
	default:
		a.exprType(target, ctx)
	}
}

func widenArrayWrite(a *Analyzer, base, value *typesystem.Union) *typesystem.Union {
	var out []typesystem.Atomic
	touched := false
	for _, at := range base.Atomics {
		arr, ok := at.(typesystem.TArray)
		if !ok {
			out = append(out, at)
			continue
		}
		touched = true
		key := arr.Key
		if key == nil {
			key = typesystem.Int()
		}
		val := arr.Value
		if val == nil {
			val = value
		} else {
			val = a.combine(val, value)
		}
		out = append(out, typesystem.TArray{Key: key, Value: val, IsList: arr.IsList, NonEmpty: true})
	}
	if !touched {
		return typesystem.NewUnion(typesystem.TArray{Key: typesystem.Int(), Value: value, IsList: true, NonEmpty: true})
	}
	return base.CloneFlags(out)
}

func (a *Analyzer) ternaryExpr(ex *ast.TernaryExpression, ctx *BlockContext) *typesystem.Union {
	cond := a.exprType(ex.Condition, ctx)
	formula := a.scrapeCondition(ex.Condition, ctx)

	if ex.Then == nil {
		// Elvis: `c ?: b` is c when truthy, b otherwise.
		elseType := a.exprType(ex.Else, ctx)
		if cond.IsAlwaysTruthy() {
			a.diags.Report(diagnostics.New(diagnostics.RedundantElvis, ex.Span(),
				"left side of ?: is always truthy"))
			return cond
		}
		if cond.IsAlwaysFalsy() {
			a.diags.Report(diagnostics.New(diagnostics.RedundantElvis, ex.Span(),
				"left side of ?: is always falsy"))
			return elseType
		}
		truthy := typesystem.ToTruthy(cond)
		if truthy.IsNever() {
			return elseType
		}
		return a.combine(truthy, elseType)
	}

	thenCtx := ctx.Branch()
	a.applyFormula(formula, thenCtx, ex.Condition.Span())
	thenType := a.exprType(ex.Then, thenCtx)

	elseCtx := ctx.Branch()
	a.applyNegatedFormula(formula, elseCtx, ex.Condition.Span())
	elseType := a.exprType(ex.Else, elseCtx)

	if cond.IsAlwaysTruthy() {
		a.diags.Report(diagnostics.New(diagnostics.RedundantCondition, ex.Condition.Span(),
			"condition is always true"))
		return thenType
	}
	if cond.IsAlwaysFalsy() {
		a.diags.Report(diagnostics.New(diagnostics.RedundantCondition, ex.Condition.Span(),
			"condition is always false"))
		return elseType
	}
	return a.combine(thenType, elseType)
}

func (a *Analyzer) propertyAccess(ex *ast.PropertyAccessExpression, ctx *BlockContext) *typesystem.Union {
	var memoKey string
	if a.opts.MemoizeProperties && !ex.NullSafe {
		if v, ok := ex.Receiver.(*ast.VariableExpression); ok {
			memoKey = v.Name + "->" + ex.Property.Value
		}
	}

	receiver := a.exprType(ex.Receiver, ctx)
	prop := a.ir.Intern(ex.Property.Value)

	if memoKey != "" {
		if t, ok := ctx.Property(memoKey); ok {
			return t
		}
	}

	var result *typesystem.Union
	sawNull := false
	for _, at := range receiver.Atomics {
		switch t := at.(type) {
		case typesystem.TNull:
			sawNull = true
		case typesystem.TNamedObject:
			if meta, ok := a.cb.Property(t.Name, prop); ok {
				pt := meta.Type
				if pt == nil {
					pt = typesystem.Mixed()
				}
				a.arts.AddRef(t.Name, ex.Property.Span())
				result = a.combineOrFirst(result, pt)
			} else if a.cb.ClassLikeExists(t.Name) {
				a.diags.Report(diagnostics.New(diagnostics.UnknownProperty, ex.Property.Span(),
					"unknown property $%s on %s", ex.Property.Value, a.ir.Lookup(t.Name)))
				result = a.combineOrFirst(result, typesystem.Mixed())
			} else {
				result = a.combineOrFirst(result, typesystem.Mixed())
			}
		default:
			result = a.combineOrFirst(result, typesystem.Mixed())
		}
	}

	if sawNull && !ex.NullSafe {
		if receiver.IsNull() {
			a.diags.Report(diagnostics.New(diagnostics.NullDereference, ex.Receiver.Span(),
				"property access on null"))
		} else {
			a.diags.Report(diagnostics.New(diagnostics.PossiblyNullDereference, ex.Receiver.Span(),
				"property access on possibly null value"))
		}
	}
	if sawNull && ex.NullSafe {
		result = a.combineOrFirst(result, typesystem.Null())
	}
	if result == nil {
		return typesystem.Mixed()
	}
	if memoKey != "" && !sawNull {
		ctx.SetProperty(memoKey, result)
	}
	return result
}

func (a *Analyzer) staticPropertyAccess(ex *ast.StaticPropertyAccessExpression) *typesystem.Union {
	class := a.resolvedName(ex.Class)
	prop := a.ir.Intern(ex.Property)
	if meta, ok := a.cb.Property(class, prop); ok {
		a.arts.AddRef(class, ex.Class.Span())
		if meta.Type != nil {
			return meta.Type
		}
		return typesystem.Mixed()
	}
	if a.cb.ClassLikeExists(class) {
		a.diags.Report(diagnostics.New(diagnostics.UnknownProperty, ex.Span(),
			"unknown static property $%s on %s", ex.Property, a.ir.Lookup(class)))
	} else {
		a.checkClassRef(ex.Class)
	}
	return typesystem.Mixed()
}

func (a *Analyzer) classConstAccess(ex *ast.ClassConstAccessExpression, ctx *BlockContext) *typesystem.Union {
	class := a.resolveClassInScope(ex.Class, ctx)
	name := a.ir.Intern(ex.Const.Value)

	if ec, ok := a.cb.EnumCase(class, name); ok {
		a.arts.AddRef(class, ex.Class.Span())
		return typesystem.NewUnion(typesystem.TEnumCase{Enum: ec.Enum, Case: ec.Name})
	}
	if c, ok := a.cb.ClassConstant(class, name); ok {
		a.arts.AddRef(class, ex.Class.Span())
		if c.Type != nil {
			return c.Type
		}
		return typesystem.Mixed()
	}
	if ex.Const.Value == "class" {
		return typesystem.StringLiteral(a.ir.Lookup(class))
	}
	if a.cb.ClassLikeExists(class) {
		a.diags.Report(diagnostics.New(diagnostics.UnknownConstant, ex.Const.Span(),
			"unknown constant %s::%s", a.ir.Lookup(class), ex.Const.Value))
	} else {
		a.checkClassRef(ex.Class)
	}
	return typesystem.Mixed()
}

func (a *Analyzer) constFetch(ex *ast.ConstFetchExpression) *typesystem.Union {
	name := a.resolvedName(ex.Name)
	if c, ok := a.cb.Constant(name); ok {
		a.arts.AddRef(name, ex.Span())
		if c.Type != nil {
			return c.Type
		}
		return typesystem.Mixed()
	}
	a.diags.Report(diagnostics.New(diagnostics.UnknownConstant, ex.Span(),
		"unknown constant %s", a.ir.Lookup(name)))
	return typesystem.Mixed()
}

func (a *Analyzer) arrayAccess(ex *ast.ArrayAccessExpression, ctx *BlockContext) *typesystem.Union {
	base := a.exprType(ex.Array, ctx)
	if ex.Index == nil {
		return typesystem.Mixed()
	}
	index := a.exprType(ex.Index, ctx)

	var result *typesystem.Union
	for _, at := range base.Atomics {
		switch t := at.(type) {
		case typesystem.TArray:
			if len(t.Shape) > 0 {
				if entry, found := shapeLookup(t, index); found {
					if entry.Optional {
						code := diagnostics.PossiblyUndefinedArrayKey
						if !a.opts.AllowPossiblyUndefinedArrayKeys {
							a.diags.Report(diagnostics.New(code, ex.Index.Span(),
								"key %s may be absent", entry.Key))
						}
					}
					result = a.combineOrFirst(result, entry.Type)
					continue
				}
				if t.Sealed {
					a.diags.Report(diagnostics.New(diagnostics.MissingArrayKey, ex.Index.Span(),
						"key is not present in the array shape"))
					result = a.combineOrFirst(result, typesystem.Mixed())
					continue
				}
			}
			if t.Value != nil {
				result = a.combineOrFirst(result, t.Value)
			} else {
				result = a.combineOrFirst(result, typesystem.Mixed())
			}
		case typesystem.TString:
			result = a.combineOrFirst(result, typesystem.String())
		case typesystem.TMixed:
			result = a.combineOrFirst(result, typesystem.Mixed())
		case typesystem.TNull:
			a.diags.Report(diagnostics.New(diagnostics.InvalidArrayAccess, ex.Array.Span(),
				"array access on null"))
		default:
			a.diags.Report(diagnostics.New(diagnostics.InvalidArrayAccess, ex.Array.Span(),
				"array access on %s", at.Id(a.ir)))
		}
	}
	if result == nil {
		return typesystem.Mixed()
	}
	return result
}

func shapeLookup(arr typesystem.TArray, index *typesystem.Union) (typesystem.ShapeEntry, bool) {
	if len(index.Atomics) != 1 {
		return typesystem.ShapeEntry{}, false
	}
	var want typesystem.ArrayKey
	switch k := index.Atomics[0].(type) {
	case typesystem.TInt:
		if k.Literal == nil {
			return typesystem.ShapeEntry{}, false
		}
		want = typesystem.IntKey(*k.Literal)
	case typesystem.TString:
		if k.Literal == nil {
			return typesystem.ShapeEntry{}, false
		}
		want = typesystem.StrKey(*k.Literal)
	default:
		return typesystem.ShapeEntry{}, false
	}
	for _, e := range arr.Shape {
		if e.Key == want {
			return e, true
		}
	}
	return typesystem.ShapeEntry{}, false
}

func (a *Analyzer) throwExpr(ex *ast.ThrowExpression, ctx *BlockContext) *typesystem.Union {
	wasInThrow := ctx.InsideThrow
	ctx.InsideThrow = true
	thrown := a.exprType(ex.Value, ctx)
	ctx.InsideThrow = wasInThrow

	for _, at := range thrown.Atomics {
		obj, ok := at.(typesystem.TNamedObject)
		if !ok {
			if _, mixed := at.(typesystem.TMixed); mixed {
				continue
			}
			a.diags.Report(diagnostics.New(diagnostics.InvalidThrow, ex.Value.Span(),
				"cannot throw %s", at.Id(a.ir)))
			continue
		}
		if a.cb.ClassLikeExists(a.throwable) && !a.cb.IsInstanceOf(obj.Name, a.throwable) {
			a.diags.Report(diagnostics.New(diagnostics.InvalidThrow, ex.Value.Span(),
				"%s does not implement Throwable", a.ir.Lookup(obj.Name)))
		}
	}
	return typesystem.Never()
}

func (a *Analyzer) closureExpr(ex *ast.ClosureExpression, ctx *BlockContext) *typesystem.Union {
	inner := NewBlockContext()
	inner.Class = ctx.Class
	inner.Function = ctx.Function
	if !ex.IsStatic {
		if this, ok := ctx.Local("this"); ok {
			inner.SetLocal("this", this)
		}
	}
	for _, use := range ex.Uses {
		if t, ok := ctx.Local(use.Var.Name); ok {
			inner.SetLocal(use.Var.Name, t)
		} else if !use.ByRef {
			a.diags.Report(diagnostics.New(diagnostics.UndefinedVariable, use.Var.Span(),
				"undefined variable $%s captured by closure", use.Var.Name))
		}
		ctx.Reference(use.Var.Name)
	}

	params := a.closureParams(ex.Params, inner)
	a.block(ex.Body, inner)

	ret := typesystem.Mixed()
	if ex.ReturnHint != nil {
		ret = a.hintedType(ex.ReturnHint)
	}
	return typesystem.NewUnion(typesystem.TCallable{Params: params, Return: ret, IsClosure: true})
}

func (a *Analyzer) arrowFunctionExpr(ex *ast.ArrowFunctionExpression, ctx *BlockContext) *typesystem.Union {
	// Arrow functions capture the whole enclosing scope by value.
	inner := ctx.Branch()
	inner.HasReturned = false
	params := a.closureParams(ex.Params, inner)
	ret := a.exprType(ex.Body, inner)
	if ex.ReturnHint != nil {
		ret = a.hintedType(ex.ReturnHint)
	}
	return typesystem.NewUnion(typesystem.TCallable{Params: params, Return: ret, IsClosure: true})
}

func (a *Analyzer) closureParams(params []*ast.Parameter, inner *BlockContext) []typesystem.CallableParam {
	out := make([]typesystem.CallableParam, 0, len(params))
	for _, p := range params {
		t := typesystem.Mixed()
		if p.Hint != nil {
			t = a.hintedType(p.Hint)
		}
		local := t
		if p.Variadic {
			local = typesystem.NewUnion(typesystem.TArray{Key: typesystem.Int(), Value: t, IsList: true})
		}
		inner.SetLocal(p.Var.Name, local)
		out = append(out, typesystem.CallableParam{Type: t, Variadic: p.Variadic, Optional: p.Default != nil})
	}
	return out
}

// hintedType converts an inline type hint on a closure parameter or
// return, resolving names through the file's table.
func (a *Analyzer) hintedType(h *ast.TypeHint) *typesystem.Union {
	var atomics []typesystem.Atomic
	collect := func(h *ast.TypeHint) {
		atomics = append(atomics, a.hintAtomic(h))
	}
	collect(h)
	for _, u := range h.Union {
		collect(u)
	}
	out := typesystem.NewUnion(atomics...)
	if h.Nullable {
		out = typesystem.Nullable(out)
	}
	return out
}

func (a *Analyzer) hintAtomic(h *ast.TypeHint) typesystem.Atomic {
	switch h.Name {
	case "int":
		return typesystem.TInt{}
	case "float":
		return typesystem.TFloat{}
	case "string":
		return typesystem.TString{}
	case "bool":
		return typesystem.TBool{}
	case "null":
		return typesystem.TNull{}
	case "void":
		return typesystem.TVoid{}
	case "never":
		return typesystem.TNever{}
	case "mixed":
		return typesystem.TMixed{}
	case "array":
		return typesystem.TArray{Key: typesystem.NewUnion(typesystem.TInt{}, typesystem.TString{}), Value: typesystem.Mixed()}
	case "iterable":
		return typesystem.TIterable{Key: typesystem.Mixed(), Value: typesystem.Mixed()}
	case "callable":
		return typesystem.TCallable{Return: typesystem.Mixed()}
	case "object":
		return typesystem.TAnonObject{}
	default:
		return typesystem.TNamedObject{Name: a.ir.Intern(a.names.Qualify(h.Name))}
	}
}

func (a *Analyzer) castExpr(ex *ast.CastExpression, ctx *BlockContext) *typesystem.Union {
	operand := a.exprType(ex.Operand, ctx)

	var target *typesystem.Union
	var redundant bool
	switch ex.Kind {
	case "int":
		target, redundant = typesystem.Int(), isIntOnly(operand)
	case "float":
		target, redundant = typesystem.Float(), isFloatOnly(operand)
	case "string":
		target, redundant = typesystem.String(), isOnly[typesystem.TString](operand)
	case "bool":
		target, redundant = typesystem.Bool(), isOnly[typesystem.TBool](operand)
	case "array":
		target = typesystem.NewUnion(typesystem.TArray{
			Key:   typesystem.NewUnion(typesystem.TInt{}, typesystem.TString{}),
			Value: typesystem.Mixed(),
		})
		redundant = isOnly[typesystem.TArray](operand)
	case "object":
		target, redundant = typesystem.NewUnion(typesystem.TAnonObject{}), false
	default:
		target = typesystem.Mixed()
	}
	if redundant && !operand.PossiblyUndefined && !operand.PossiblyUndefinedFromTry {
		a.diags.Report(diagnostics.New(diagnostics.RedundantCast, ex.Span(),
			"value is already %s", ex.Kind))
		return operand
	}
	return target
}

func isOnly[T typesystem.Atomic](u *typesystem.Union) bool {
	for _, at := range u.Atomics {
		if _, ok := at.(T); !ok {
			return false
		}
	}
	return len(u.Atomics) > 0
}

func (a *Analyzer) matchExpr(ex *ast.MatchExpression, ctx *BlockContext) *typesystem.Union {
	a.exprType(ex.Subject, ctx)

	var result *typesystem.Union
	for _, arm := range ex.Arms {
		armCtx := ctx.Branch()
		for _, cond := range arm.Conditions {
			condType := a.exprType(cond, armCtx)
			// `match` compares with ===, so a single-variable subject
			// narrows to the arm's condition type.
			if subject, ok := ex.Subject.(*ast.VariableExpression); ok {
				if current, defined := armCtx.Local(subject.Name); defined {
					if narrowed := typesystem.Intersect(a.ir, a.cb, current, condType); narrowed != nil {
						armCtx.SetLocal(subject.Name, narrowed)
					}
				}
			}
		}
		bodyType := a.exprType(arm.Body, armCtx)
		result = a.combineOrFirst(result, bodyType)
	}
	if result == nil {
		return typesystem.Never()
	}
	return result
}

// checkClassRef reports a reference to a class-like the codebase has
// never seen.
func (a *Analyzer) checkClassRef(n *ast.Name) {
	switch n.Value {
	case "self", "static", "parent":
		return
	}
	id := a.resolvedName(n)
	if !a.cb.ClassLikeExists(id) {
		a.diags.Report(diagnostics.New(diagnostics.UnknownClass, n.Span(),
			"unknown class %s", a.ir.Lookup(id)))
		return
	}
	a.arts.AddRef(id, n.Span())
}

// resolveClassInScope resolves self/static/parent against the enclosing
// class before consulting the name table.
func (a *Analyzer) resolveClassInScope(n *ast.Name, ctx *BlockContext) interner.StringId {
	switch n.Value {
	case "self", "static":
		if ctx.Class != 0 {
			return ctx.Class
		}
	case "parent":
		if ctx.Class != 0 {
			if m, ok := a.cb.ClassLike(ctx.Class); ok && m.Parent != 0 {
				return m.Parent
			}
		}
	}
	return a.resolvedName(n)
}
