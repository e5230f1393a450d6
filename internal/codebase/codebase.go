// Package codebase builds and serves the project-wide metadata index:
// class-likes with eagerly resolved inheritance, function signatures and
// constants. The index is immutable after Build and safe for concurrent
// readers.
package codebase

import (
	"github.com/mago-lang/mago/internal/ast"
	"github.com/mago-lang/mago/internal/interner"
	"github.com/mago-lang/mago/internal/typesystem"
)

// Codebase is the baked index. It implements typesystem.Resolver.
type Codebase struct {
	ir         *interner.Interner
	classLikes map[interner.StringId]*ClassLikeMetadata
	functions  map[interner.StringId]*FunctionLikeMetadata
	constants  map[interner.StringId]*ConstantMetadata
}

// ClassLike returns the metadata for a fully qualified class-like name.
func (cb *Codebase) ClassLike(name interner.StringId) (*ClassLikeMetadata, bool) {
	m, ok := cb.classLikes[name]
	return m, ok
}

// Function returns the metadata for a fully qualified function name.
func (cb *Codebase) Function(name interner.StringId) (*FunctionLikeMetadata, bool) {
	f, ok := cb.functions[name]
	return f, ok
}

// Method returns a declared or inherited method of class.
func (cb *Codebase) Method(class, method interner.StringId) (*FunctionLikeMetadata, bool) {
	m, ok := cb.classLikes[class]
	if !ok {
		return nil, false
	}
	f, ok := m.Methods[method]
	return f, ok
}

// Property returns a declared or inherited property of class.
func (cb *Codebase) Property(class, prop interner.StringId) (*PropertyMetadata, bool) {
	m, ok := cb.classLikes[class]
	if !ok {
		return nil, false
	}
	p, ok := m.Properties[prop]
	return p, ok
}

// ClassConstant returns a declared or inherited constant of class.
func (cb *Codebase) ClassConstant(class, name interner.StringId) (*ConstantMetadata, bool) {
	m, ok := cb.classLikes[class]
	if !ok {
		return nil, false
	}
	c, ok := m.Constants[name]
	return c, ok
}

// EnumCase returns one case of an enum.
func (cb *Codebase) EnumCase(enum, name interner.StringId) (*EnumCaseMetadata, bool) {
	m, ok := cb.classLikes[enum]
	if !ok {
		return nil, false
	}
	c, ok := m.Cases[name]
	return c, ok
}

// Constant returns a namespaced constant.
func (cb *Codebase) Constant(name interner.StringId) (*ConstantMetadata, bool) {
	c, ok := cb.constants[name]
	return c, ok
}

// Interner returns the interner the index was built with.
func (cb *Codebase) Interner() *interner.Interner { return cb.ir }

// ---- typesystem.Resolver ----

func (cb *Codebase) ClassLikeExists(name interner.StringId) bool {
	_, ok := cb.classLikes[name]
	return ok
}

func (cb *Codebase) IsInstanceOf(child, parent interner.StringId) bool {
	if child == parent {
		return true
	}
	m, ok := cb.classLikes[child]
	if !ok {
		return false
	}
	return m.Ancestors[parent]
}

func (cb *Codebase) IsInterface(name interner.StringId) bool {
	m, ok := cb.classLikes[name]
	return ok && m.Kind == ast.KindInterface
}

func (cb *Codebase) IsEnum(name interner.StringId) bool {
	m, ok := cb.classLikes[name]
	return ok && m.Kind == ast.KindEnum
}

func (cb *Codebase) TemplateVariances(name interner.StringId) []typesystem.Variance {
	m, ok := cb.classLikes[name]
	if !ok || len(m.Templates) == 0 {
		return nil
	}
	out := make([]typesystem.Variance, len(m.Templates))
	for i, t := range m.Templates {
		out[i] = t.Variance
	}
	return out
}

func (cb *Codebase) TemplateExtendedType(child, definingEntity, param interner.StringId) (*typesystem.Union, bool) {
	m, ok := cb.classLikes[child]
	if !ok {
		return nil, false
	}
	bounds, ok := m.TemplateExtended[definingEntity]
	if !ok {
		return nil, false
	}
	u, ok := bounds[param]
	return u, ok
}
