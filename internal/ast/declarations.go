package ast

import "github.com/mago-lang/mago/internal/token"

// ClassLikeKind distinguishes class-like declarations.
type ClassLikeKind int

const (
	KindClass ClassLikeKind = iota
	KindInterface
	KindTrait
	KindEnum
)

func (k ClassLikeKind) String() string {
	switch k {
	case KindInterface:
		return "interface"
	case KindTrait:
		return "trait"
	case KindEnum:
		return "enum"
	default:
		return "class"
	}
}

// Visibility of a member declaration.
type Visibility int

const (
	Public Visibility = iota
	Protected
	Private
)

// FunctionDeclaration is a top-level (or namespaced) function.
type FunctionDeclaration struct {
	Sp         token.Span
	Name       *Name
	Params     []*Parameter
	ReturnHint *TypeHint // nil when omitted
	Body       *BlockStatement
	ByRef      bool
	Docblock   string // raw docblock text, empty when absent
}

// Parameter covers positional, by-ref, variadic and promoted parameters.
type Parameter struct {
	Sp         token.Span
	Var        *VariableExpression
	Hint       *TypeHint // nil when omitted
	Default    Expression
	ByRef      bool
	Variadic   bool
	Promoted   bool
	Visibility Visibility // meaningful only when Promoted
	Readonly   bool
}

// ClassLikeDeclaration covers classes, interfaces, traits and enums.
type ClassLikeDeclaration struct {
	Sp         token.Span
	Kind       ClassLikeKind
	Name       *Name
	IsAbstract bool
	IsFinal    bool
	IsReadonly bool
	Parent     *Name   // at most one
	Interfaces []*Name // implements (class/enum) or extends (interface)
	Uses       []*Name // traits
	BackingHint *TypeHint // enum backing type, nil otherwise
	Consts     []*ClassConstDeclaration
	Properties []*PropertyDeclaration
	Methods    []*MethodDeclaration
	Cases      []*EnumCaseDeclaration
	Docblock   string
}

type ClassConstDeclaration struct {
	Sp         token.Span
	Name       *Name
	Value      Expression
	Visibility Visibility
	IsFinal    bool
}

type PropertyDeclaration struct {
	Sp         token.Span
	Var        *VariableExpression
	Hint       *TypeHint
	Default    Expression
	Visibility Visibility
	IsStatic   bool
	IsReadonly bool
	Docblock   string
}

type MethodDeclaration struct {
	Sp         token.Span
	Name       *Name
	Params     []*Parameter
	ReturnHint *TypeHint
	Body       *BlockStatement // nil for abstract / interface methods
	Visibility Visibility
	IsStatic   bool
	IsAbstract bool
	IsFinal    bool
	ByRef      bool
	Docblock   string
}

type EnumCaseDeclaration struct {
	Sp      token.Span
	Name    *Name
	Backing Expression // nil for pure enums
}

// ConstDeclaration is a namespaced `const NAME = value;`.
type ConstDeclaration struct {
	Sp    token.Span
	Name  *Name
	Value Expression
}

func (d *FunctionDeclaration) Span() token.Span   { return d.Sp }
func (d *Parameter) Span() token.Span             { return d.Sp }
func (d *ClassLikeDeclaration) Span() token.Span  { return d.Sp }
func (d *ClassConstDeclaration) Span() token.Span { return d.Sp }
func (d *PropertyDeclaration) Span() token.Span   { return d.Sp }
func (d *MethodDeclaration) Span() token.Span     { return d.Sp }
func (d *EnumCaseDeclaration) Span() token.Span   { return d.Sp }
func (d *ConstDeclaration) Span() token.Span      { return d.Sp }

func (*FunctionDeclaration) statementNode()  {}
func (*ClassLikeDeclaration) statementNode() {}
func (*ConstDeclaration) statementNode()     {}

// TypeHint is a native type annotation as written in source: a name,
// nullable prefix, or a union/intersection of hints. Generic arguments
// only appear in docblocks and go through the type-string parser instead.
type TypeHint struct {
	Sp           token.Span
	Name         string      // simple or qualified name; "" for compound hints
	Nullable     bool        // ?T
	Union        []*TypeHint // A|B
	Intersection []*TypeHint // A&B
}

func (h *TypeHint) Span() token.Span { return h.Sp }
