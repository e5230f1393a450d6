package ast

import "github.com/mago-lang/mago/internal/token"

// ---- Expressions ----

type VariableExpression struct {
	Sp   token.Span
	Name string // without the $ sigil
}

type IntLiteral struct {
	Sp    token.Span
	Value int64
}

type FloatLiteral struct {
	Sp    token.Span
	Value float64
}

type StringLiteral struct {
	Sp    token.Span
	Value string
}

type BoolLiteral struct {
	Sp    token.Span
	Value bool
}

type NullLiteral struct {
	Sp token.Span
}

// ArrayLiteral is `[...]` or `array(...)`.
type ArrayLiteral struct {
	Sp    token.Span
	Items []*ArrayItem
}

type ArrayItem struct {
	Sp     token.Span
	Key    Expression // nil for list items
	Value  Expression
	ByRef  bool
	Spread bool
}

// BinaryExpression covers arithmetic, comparison, logical and string
// operators. Short-circuit operators get special flow handling in the
// analyzer but share this node.
type BinaryExpression struct {
	Sp       token.Span
	Operator token.Type
	Left     Expression
	Right    Expression
}

type UnaryExpression struct {
	Sp       token.Span
	Operator token.Type
	Operand  Expression
}

// AssignExpression is `$x = v` and compound forms (`+=`, `.=`, `??=`).
type AssignExpression struct {
	Sp       token.Span
	Operator token.Type // token.ASSIGN for plain assignment
	Target   Expression
	Value    Expression
}

// TernaryExpression is `c ? a : b`. Then is nil for the Elvis short form
// `c ?: b`, whose semantics the analyzer treats separately.
type TernaryExpression struct {
	Sp        token.Span
	Condition Expression
	Then      Expression // nil for `?:`
	Else      Expression
}

// Argument is one call argument, possibly named or spread.
type Argument struct {
	Sp     token.Span
	Name   string // empty for positional
	Value  Expression
	Spread bool
}

// CallExpression is a plain function call `foo(...)` or a call through an
// arbitrary callee expression `$fn(...)`.
type CallExpression struct {
	Sp     token.Span
	Callee Expression
	Args   []*Argument
}

// MethodCallExpression is `$obj->m(...)` (or `?->` when NullSafe).
type MethodCallExpression struct {
	Sp       token.Span
	Receiver Expression
	Method   *Name
	Args     []*Argument
	NullSafe bool
}

// StaticCallExpression is `Cls::m(...)`, including `parent::`/`self::`/
// `static::` which resolve through the name table.
type StaticCallExpression struct {
	Sp     token.Span
	Class  *Name
	Method *Name
	Args   []*Argument
}

type PropertyAccessExpression struct {
	Sp       token.Span
	Receiver Expression
	Property *Name
	NullSafe bool
}

type StaticPropertyAccessExpression struct {
	Sp       token.Span
	Class    *Name
	Property string // without the $ sigil
}

type ClassConstAccessExpression struct {
	Sp    token.Span
	Class *Name
	Const *Name
}

type ConstFetchExpression struct {
	Sp   token.Span
	Name *Name
}

type NewExpression struct {
	Sp    token.Span
	Class *Name
	Args  []*Argument
}

type InstanceofExpression struct {
	Sp    token.Span
	Value Expression
	Class *Name
}

type IssetExpression struct {
	Sp   token.Span
	Vars []Expression
}

type EmptyExpression struct {
	Sp    token.Span
	Value Expression
}

type ArrayAccessExpression struct {
	Sp    token.Span
	Array Expression
	Index Expression // nil for push syntax `$a[] = v`
}

// ThrowExpression: `throw` is an expression in the analyzed dialect; its
// own type is never.
type ThrowExpression struct {
	Sp    token.Span
	Value Expression
}

// ClosureExpression is `function (...) use (...) { ... }`.
type ClosureExpression struct {
	Sp         token.Span
	Params     []*Parameter
	Uses       []*ClosureUse
	ReturnHint *TypeHint
	Body       *BlockStatement
	IsStatic   bool
	Docblock   string
}

type ClosureUse struct {
	Sp    token.Span
	Var   *VariableExpression
	ByRef bool
}

// ArrowFunctionExpression is `fn (...) => expr`; captures by value
// implicitly.
type ArrowFunctionExpression struct {
	Sp         token.Span
	Params     []*Parameter
	ReturnHint *TypeHint
	Body       Expression
	IsStatic   bool
	Docblock   string
}

type CastExpression struct {
	Sp      token.Span
	Kind    string // int, float, string, bool, array, object
	Operand Expression
}

type CloneExpression struct {
	Sp      token.Span
	Operand Expression
}

// MatchExpression is `match ($subject) { conds => expr, ... }`.
type MatchExpression struct {
	Sp      token.Span
	Subject Expression
	Arms    []*MatchArm
}

type MatchArm struct {
	Sp         token.Span
	Conditions []Expression // nil for default arm
	Body       Expression
}

// MissingExpression stands in for an unparsable expression; typed mixed.
type MissingExpression struct {
	Sp token.Span
}

func (e *VariableExpression) Span() token.Span             { return e.Sp }
func (e *IntLiteral) Span() token.Span                     { return e.Sp }
func (e *FloatLiteral) Span() token.Span                   { return e.Sp }
func (e *StringLiteral) Span() token.Span                  { return e.Sp }
func (e *BoolLiteral) Span() token.Span                    { return e.Sp }
func (e *NullLiteral) Span() token.Span                    { return e.Sp }
func (e *ArrayLiteral) Span() token.Span                   { return e.Sp }
func (e *ArrayItem) Span() token.Span                      { return e.Sp }
func (e *BinaryExpression) Span() token.Span               { return e.Sp }
func (e *UnaryExpression) Span() token.Span                { return e.Sp }
func (e *AssignExpression) Span() token.Span               { return e.Sp }
func (e *TernaryExpression) Span() token.Span              { return e.Sp }
func (e *Argument) Span() token.Span                       { return e.Sp }
func (e *CallExpression) Span() token.Span                 { return e.Sp }
func (e *MethodCallExpression) Span() token.Span           { return e.Sp }
func (e *StaticCallExpression) Span() token.Span           { return e.Sp }
func (e *PropertyAccessExpression) Span() token.Span       { return e.Sp }
func (e *StaticPropertyAccessExpression) Span() token.Span { return e.Sp }
func (e *ClassConstAccessExpression) Span() token.Span     { return e.Sp }
func (e *ConstFetchExpression) Span() token.Span           { return e.Sp }
func (e *NewExpression) Span() token.Span                  { return e.Sp }
func (e *InstanceofExpression) Span() token.Span           { return e.Sp }
func (e *IssetExpression) Span() token.Span                { return e.Sp }
func (e *EmptyExpression) Span() token.Span                { return e.Sp }
func (e *ArrayAccessExpression) Span() token.Span          { return e.Sp }
func (e *ThrowExpression) Span() token.Span                { return e.Sp }
func (e *ClosureExpression) Span() token.Span              { return e.Sp }
func (e *ClosureUse) Span() token.Span                     { return e.Sp }
func (e *ArrowFunctionExpression) Span() token.Span        { return e.Sp }
func (e *CastExpression) Span() token.Span                 { return e.Sp }
func (e *CloneExpression) Span() token.Span                { return e.Sp }
func (e *MatchExpression) Span() token.Span                { return e.Sp }
func (e *MatchArm) Span() token.Span                       { return e.Sp }
func (e *MissingExpression) Span() token.Span              { return e.Sp }

func (*VariableExpression) expressionNode()             {}
func (*IntLiteral) expressionNode()                     {}
func (*FloatLiteral) expressionNode()                   {}
func (*StringLiteral) expressionNode()                  {}
func (*BoolLiteral) expressionNode()                    {}
func (*NullLiteral) expressionNode()                    {}
func (*ArrayLiteral) expressionNode()                   {}
func (*BinaryExpression) expressionNode()               {}
func (*UnaryExpression) expressionNode()                {}
func (*AssignExpression) expressionNode()               {}
func (*TernaryExpression) expressionNode()              {}
func (*CallExpression) expressionNode()                 {}
func (*MethodCallExpression) expressionNode()           {}
func (*StaticCallExpression) expressionNode()           {}
func (*PropertyAccessExpression) expressionNode()       {}
func (*StaticPropertyAccessExpression) expressionNode() {}
func (*ClassConstAccessExpression) expressionNode()     {}
func (*ConstFetchExpression) expressionNode()           {}
func (*NewExpression) expressionNode()                  {}
func (*InstanceofExpression) expressionNode()           {}
func (*IssetExpression) expressionNode()                {}
func (*EmptyExpression) expressionNode()                {}
func (*ArrayAccessExpression) expressionNode()          {}
func (*ThrowExpression) expressionNode()                {}
func (*ClosureExpression) expressionNode()              {}
func (*ArrowFunctionExpression) expressionNode()        {}
func (*CastExpression) expressionNode()                 {}
func (*CloneExpression) expressionNode()                {}
func (*MatchExpression) expressionNode()                {}
func (*MissingExpression) expressionNode()              {}
