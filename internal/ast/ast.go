// Package ast defines the lossless syntax model for the analyzed language.
//
// Nodes are immutable after parsing. Every node carries a span; missing or
// ill-formed sub-nodes are represented by explicit Missing variants so the
// analyzer can keep going and type them as mixed without extra diagnostics.
// Traversal is by exhaustive type switch in each consumer; there is no
// visitor object, so control-flow semantics stay visible at the use site.
package ast

import (
	"github.com/mago-lang/mago/internal/token"
)

// Node is implemented by every syntax node.
type Node interface {
	Span() token.Span
}

// Statement marks statement nodes.
type Statement interface {
	Node
	statementNode()
}

// Expression marks expression nodes.
type Expression interface {
	Node
	expressionNode()
}

// Program is one parsed source file.
type Program struct {
	File       token.FileId
	Namespace  string
	Statements []Statement
}

func (p *Program) Span() token.Span {
	if len(p.Statements) == 0 {
		return token.Span{File: p.File}
	}
	return p.Statements[0].Span().Join(p.Statements[len(p.Statements)-1].Span())
}

// Name is a possibly-qualified identifier occurrence. Resolution to a fully
// qualified name lives in the name table, keyed by the span.
type Name struct {
	Sp    token.Span
	Value string
}

func (n *Name) Span() token.Span { return n.Sp }

// ---- Statements ----

type ExpressionStatement struct {
	Sp   token.Span
	Expr Expression
}

type EchoStatement struct {
	Sp     token.Span
	Values []Expression
}

type BlockStatement struct {
	Sp         token.Span
	Statements []Statement
}

type IfStatement struct {
	Sp        token.Span
	Condition Expression
	Then      *BlockStatement
	ElseIfs   []*ElseIfClause
	Else      *BlockStatement
}

type ElseIfClause struct {
	Sp        token.Span
	Condition Expression
	Body      *BlockStatement
}

type WhileStatement struct {
	Sp        token.Span
	Condition Expression
	Body      *BlockStatement
}

type DoWhileStatement struct {
	Sp        token.Span
	Body      *BlockStatement
	Condition Expression
}

type ForStatement struct {
	Sp         token.Span
	Init       []Expression
	Condition  []Expression
	Update     []Expression
	Body       *BlockStatement
}

type ForeachStatement struct {
	Sp       token.Span
	Iterable Expression
	KeyVar   *VariableExpression // nil when no key
	ValueVar *VariableExpression
	ByRef    bool
	Body     *BlockStatement
}

type SwitchStatement struct {
	Sp      token.Span
	Subject Expression
	Cases   []*SwitchCase
}

type SwitchCase struct {
	Sp        token.Span
	Condition Expression // nil for default
	Body      []Statement
}

type ReturnStatement struct {
	Sp    token.Span
	Value Expression // nil for bare return
}

type BreakStatement struct {
	Sp token.Span
}

type ContinueStatement struct {
	Sp token.Span
}

type TryStatement struct {
	Sp      token.Span
	Body    *BlockStatement
	Catches []*CatchClause
	Finally *BlockStatement
}

type CatchClause struct {
	Sp    token.Span
	Types []*Name
	Var   *VariableExpression // nil for catch (Type)
	Body  *BlockStatement
}

type GlobalStatement struct {
	Sp   token.Span
	Vars []*VariableExpression
}

type UnsetStatement struct {
	Sp   token.Span
	Vars []Expression
}

// UseStatement imports a name into the current namespace.
type UseStatement struct {
	Sp    token.Span
	Path  string
	Alias string // empty when unaliased
}

// MissingStatement stands in for an unparsable statement. The analyzer
// skips it without reporting; the parser already did.
type MissingStatement struct {
	Sp token.Span
}

func (s *ExpressionStatement) Span() token.Span { return s.Sp }
func (s *EchoStatement) Span() token.Span       { return s.Sp }
func (s *BlockStatement) Span() token.Span      { return s.Sp }
func (s *IfStatement) Span() token.Span         { return s.Sp }
func (s *ElseIfClause) Span() token.Span        { return s.Sp }
func (s *WhileStatement) Span() token.Span      { return s.Sp }
func (s *DoWhileStatement) Span() token.Span    { return s.Sp }
func (s *ForStatement) Span() token.Span        { return s.Sp }
func (s *ForeachStatement) Span() token.Span    { return s.Sp }
func (s *SwitchStatement) Span() token.Span     { return s.Sp }
func (s *SwitchCase) Span() token.Span          { return s.Sp }
func (s *ReturnStatement) Span() token.Span     { return s.Sp }
func (s *BreakStatement) Span() token.Span      { return s.Sp }
func (s *ContinueStatement) Span() token.Span   { return s.Sp }
func (s *TryStatement) Span() token.Span        { return s.Sp }
func (s *CatchClause) Span() token.Span         { return s.Sp }
func (s *GlobalStatement) Span() token.Span     { return s.Sp }
func (s *UnsetStatement) Span() token.Span      { return s.Sp }
func (s *UseStatement) Span() token.Span        { return s.Sp }
func (s *MissingStatement) Span() token.Span    { return s.Sp }

func (*ExpressionStatement) statementNode() {}
func (*EchoStatement) statementNode()       {}
func (*BlockStatement) statementNode()      {}
func (*IfStatement) statementNode()         {}
func (*WhileStatement) statementNode()      {}
func (*DoWhileStatement) statementNode()    {}
func (*ForStatement) statementNode()        {}
func (*ForeachStatement) statementNode()    {}
func (*SwitchStatement) statementNode()     {}
func (*ReturnStatement) statementNode()     {}
func (*BreakStatement) statementNode()      {}
func (*ContinueStatement) statementNode()   {}
func (*TryStatement) statementNode()        {}
func (*GlobalStatement) statementNode()     {}
func (*UnsetStatement) statementNode()      {}
func (*UseStatement) statementNode()        {}
func (*MissingStatement) statementNode()    {}
