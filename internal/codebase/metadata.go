package codebase

import (
	"github.com/mago-lang/mago/internal/ast"
	"github.com/mago-lang/mago/internal/interner"
	"github.com/mago-lang/mago/internal/token"
	"github.com/mago-lang/mago/internal/typesystem"
)

// TemplateParam is one declared template parameter of a class-like or
// function-like.
type TemplateParam struct {
	Name     interner.StringId
	Entity   interner.StringId // defining class-like or function
	Bound    *typesystem.Union // nil means mixed
	Variance typesystem.Variance
}

// ParameterMetadata describes one declared parameter.
type ParameterMetadata struct {
	Name       string // without the $ sigil
	Type       *typesystem.Union // nil means mixed
	ByRef      bool
	Variadic   bool
	HasDefault bool
	Promoted   bool
	Readonly   bool
	Visibility ast.Visibility
}

// AssertMetadata is a typed assertion a call to the function proves about
// one of its parameters.
type AssertMetadata struct {
	Param   string
	Type    *typesystem.Union
	Negated bool
	IfTrue  bool
	IfFalse bool
}

// FunctionLikeMetadata describes a function, method or closure signature.
// Inherited method entries share the declaring class's metadata value;
// DefinedIn tells the origin apart from the inheritor.
type FunctionLikeMetadata struct {
	Name       interner.StringId
	Span       token.Span
	Params     []*ParameterMetadata
	Return     *typesystem.Union // nil means mixed
	Templates  []TemplateParam
	Throws     []interner.StringId
	Asserts    []AssertMetadata
	Visibility ast.Visibility
	IsStatic   bool
	IsAbstract bool
	IsFinal    bool
	ByRef      bool
	IsPure     bool
	Deprecated bool
	DefinedIn  interner.StringId // 0 for free functions
}

// PropertyMetadata describes a declared property.
type PropertyMetadata struct {
	Name       interner.StringId
	Span       token.Span
	Type       *typesystem.Union // nil means mixed
	HasDefault bool
	Visibility ast.Visibility
	IsStatic   bool
	IsReadonly bool
	DefinedIn  interner.StringId
}

// ConstantMetadata describes a class constant or a namespaced constant.
type ConstantMetadata struct {
	Name       interner.StringId
	Span       token.Span
	Type       *typesystem.Union
	Visibility ast.Visibility
	DefinedIn  interner.StringId // 0 for namespaced constants
}

// EnumCaseMetadata describes one enum case.
type EnumCaseMetadata struct {
	Name    interner.StringId
	Span    token.Span
	Enum    interner.StringId
	Backing *typesystem.Union // nil for pure enums
}

// ClassLikeMetadata is the baked description of a class, interface, trait
// or enum. After Build it is immutable: member maps include everything
// inherited, and Ancestors holds the full transitive closure, so every
// analyzer query is a single map lookup.
type ClassLikeMetadata struct {
	Name       interner.StringId
	Span       token.Span
	Kind       ast.ClassLikeKind
	IsAbstract bool
	IsFinal    bool
	IsReadonly bool
	Deprecated bool

	Parent     interner.StringId // 0 when none
	Interfaces []interner.StringId
	Traits     []interner.StringId

	Templates []TemplateParam

	// TemplateExtended maps an ancestor entity to the bound each of its
	// template parameters receives along this class's extends chain.
	TemplateExtended map[interner.StringId]map[interner.StringId]*typesystem.Union

	Constants  map[interner.StringId]*ConstantMetadata
	Properties map[interner.StringId]*PropertyMetadata
	Methods    map[interner.StringId]*FunctionLikeMetadata
	Cases      map[interner.StringId]*EnumCaseMetadata

	BackingType *typesystem.Union // enum backing, nil otherwise

	// Ancestors is the transitive closure over parent, interfaces and
	// traits, excluding the class itself.
	Ancestors map[interner.StringId]bool

	// pendingTemplated holds @extends/@implements/@use generic arguments,
	// parsed at scan time (while the file's name table is in scope) and
	// composed transitively at Build.
	pendingTemplated []templatedInheritance
	baked            bool
	baking           bool
}

// templatedInheritance is one `@extends Base<...>` style binding before
// parameter names are matched up.
type templatedInheritance struct {
	entity interner.StringId
	args   []*typesystem.Union
}

func newClassLikeMetadata(name interner.StringId) *ClassLikeMetadata {
	return &ClassLikeMetadata{
		Name:             name,
		TemplateExtended: make(map[interner.StringId]map[interner.StringId]*typesystem.Union),
		Constants:        make(map[interner.StringId]*ConstantMetadata),
		Properties:       make(map[interner.StringId]*PropertyMetadata),
		Methods:          make(map[interner.StringId]*FunctionLikeMetadata),
		Cases:            make(map[interner.StringId]*EnumCaseMetadata),
		Ancestors:        make(map[interner.StringId]bool),
	}
}
