package typesystem

import "github.com/mago-lang/mago/internal/interner"

// Variance of a declared template parameter.
type Variance int

const (
	Invariant Variance = iota
	Covariant
	Contravariant
)

// Resolver is the slice of codebase metadata the lattice operations need.
// Implemented by codebase.Codebase; kept as an interface here so the
// lattice has no dependency on the index representation.
type Resolver interface {
	// ClassLikeExists reports whether the name resolves to a class-like.
	ClassLikeExists(name interner.StringId) bool

	// IsInstanceOf reports whether child is a subtype of parent through
	// extends/implements/enum-interface edges. Reflexive.
	IsInstanceOf(child, parent interner.StringId) bool

	// IsInterface reports whether name is an interface.
	IsInterface(name interner.StringId) bool

	// IsEnum reports whether name is an enum.
	IsEnum(name interner.StringId) bool

	// TemplateVariances returns the declared variance of each template
	// parameter of a class-like, in declaration order.
	TemplateVariances(name interner.StringId) []Variance

	// TemplateExtendedType resolves what `child` binds for the template
	// parameter `param` declared on `definingEntity`, following the
	// template-extends chain. ok is false when child does not extend the
	// defining entity or leaves the parameter unbound.
	TemplateExtendedType(child, definingEntity, param interner.StringId) (*Union, bool)
}

// nopResolver answers every query negatively; used when no codebase is
// available (pure lattice tests, docblock parsing).
type nopResolver struct{}

func (nopResolver) ClassLikeExists(interner.StringId) bool      { return false }
func (nopResolver) IsInstanceOf(c, p interner.StringId) bool    { return c == p }
func (nopResolver) IsInterface(interner.StringId) bool          { return false }
func (nopResolver) IsEnum(interner.StringId) bool               { return false }
func (nopResolver) TemplateVariances(interner.StringId) []Variance { return nil }
func (nopResolver) TemplateExtendedType(c, d, p interner.StringId) (*Union, bool) {
	return nil, false
}

// NopResolver returns a resolver with no codebase knowledge.
func NopResolver() Resolver { return nopResolver{} }
