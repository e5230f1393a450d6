// Package typesystem implements the type lattice: atomic types, unions,
// and the pure operations the analyzer refines types with (containment,
// combination, intersection, subtraction, truthiness restriction).
//
// Strings never appear inside types; every name is an interner id. Types
// are treated as immutable values: operations return fresh unions and
// share atomics freely.
package typesystem

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/mago-lang/mago/internal/interner"
)

// Atomic is a single non-decomposable element of the lattice.
type Atomic interface {
	// Id returns the canonical textual representation, used for hashing,
	// deduplication and diagnostics.
	Id(ir *interner.Interner) string
	atomic()
}

// MixedFlag refines mixed without leaving the mixed family.
type MixedFlag int

const (
	MixedAny MixedFlag = iota
	MixedVanilla
	MixedTruthy
	MixedFalsy
	MixedNonNull
)

// TInt is int, optionally refined to a single literal.
type TInt struct {
	Literal *int64
}

// TFloat is float, optionally refined to a single literal.
type TFloat struct {
	Literal *float64
}

// TString is string. NonEmpty marks non-empty-string; a literal implies
// its own emptiness.
type TString struct {
	Literal  *string
	NonEmpty bool
}

// TBool is bool, optionally refined to true or false.
type TBool struct {
	Literal *bool
}

type TNull struct{}
type TVoid struct{}
type TNever struct{}

type TMixed struct {
	Flag MixedFlag
}

// ArrayKey is a shape key: either an int or a string.
type ArrayKey struct {
	IsInt bool
	Int   int64
	Str   string
}

func IntKey(i int64) ArrayKey  { return ArrayKey{IsInt: true, Int: i} }
func StrKey(s string) ArrayKey { return ArrayKey{Str: s} }

func (k ArrayKey) String() string {
	if k.IsInt {
		return strconv.FormatInt(k.Int, 10)
	}
	return k.Str
}

// ShapeEntry is one known key of an array shape.
type ShapeEntry struct {
	Key      ArrayKey
	Type     *Union
	Optional bool
}

// TArray covers generic arrays, lists and shapes. A nil Key/Value pair
// means the empty array. Sealed shapes admit no unknown keys.
type TArray struct {
	Key      *Union
	Value    *Union
	Shape    []ShapeEntry
	IsList   bool
	Sealed   bool
	NonEmpty bool
}

// TNamedObject is an instance of a class-like, optionally carrying
// template arguments and an intersection tail (`A&B`).
type TNamedObject struct {
	Name          interner.StringId
	TypeParams    []*Union
	Intersections []Atomic
	IsThis        bool
}

// TAnonObject is the anonymous `object` type.
type TAnonObject struct{}

// TEnumCase is an enum refined to one case.
type TEnumCase struct {
	Enum interner.StringId
	Case interner.StringId
}

// CallableParam is one parameter of a callable signature.
type CallableParam struct {
	Type     *Union
	Variadic bool
	Optional bool
}

// TCallable is a callable signature; IsClosure restricts it to Closure
// instances.
type TCallable struct {
	Params    []CallableParam
	Return    *Union
	IsClosure bool
}

// TIterable is iterable<K, V>.
type TIterable struct {
	Key   *Union
	Value *Union
}

// TGenericParam is a declared template parameter occurrence. The defining
// entity is referenced by id, never by pointer, so type graphs stay
// acyclic at construction.
type TGenericParam struct {
	Name           interner.StringId
	DefiningEntity interner.StringId
	Bound          *Union
	Intersections  []Atomic
}

// Derived types.
type TValueOf struct{ Of *Union }
type TKeyOf struct{ Of *Union }
type TPropertiesOf struct{ Of *Union }

// TConditional is `Subject is If ? Then : Else`.
type TConditional struct {
	Subject Atomic
	If      *Union
	Then    *Union
	Else    *Union
}

// TReference is a symbol the codebase has not resolved yet (or cannot).
type TReference struct {
	Name       interner.StringId
	TypeParams []*Union
}

func (TInt) atomic()          {}
func (TFloat) atomic()        {}
func (TString) atomic()       {}
func (TBool) atomic()         {}
func (TNull) atomic()         {}
func (TVoid) atomic()         {}
func (TNever) atomic()        {}
func (TMixed) atomic()        {}
func (TArray) atomic()        {}
func (TNamedObject) atomic()  {}
func (TAnonObject) atomic()   {}
func (TEnumCase) atomic()     {}
func (TCallable) atomic()     {}
func (TIterable) atomic()     {}
func (TGenericParam) atomic() {}
func (TValueOf) atomic()      {}
func (TKeyOf) atomic()        {}
func (TPropertiesOf) atomic() {}
func (TConditional) atomic()  {}
func (TReference) atomic()    {}

func (t TInt) Id(_ *interner.Interner) string {
	if t.Literal != nil {
		return fmt.Sprintf("int(%d)", *t.Literal)
	}
	return "int"
}

func (t TFloat) Id(_ *interner.Interner) string {
	if t.Literal != nil {
		return fmt.Sprintf("float(%v)", *t.Literal)
	}
	return "float"
}

func (t TString) Id(_ *interner.Interner) string {
	if t.Literal != nil {
		return fmt.Sprintf("string(%q)", *t.Literal)
	}
	if t.NonEmpty {
		return "non-empty-string"
	}
	return "string"
}

func (t TBool) Id(_ *interner.Interner) string {
	if t.Literal != nil {
		if *t.Literal {
			return "true"
		}
		return "false"
	}
	return "bool"
}

func (TNull) Id(_ *interner.Interner) string  { return "null" }
func (TVoid) Id(_ *interner.Interner) string  { return "void" }
func (TNever) Id(_ *interner.Interner) string { return "never" }

func (t TMixed) Id(_ *interner.Interner) string {
	switch t.Flag {
	case MixedTruthy:
		return "truthy-mixed"
	case MixedFalsy:
		return "falsy-mixed"
	case MixedNonNull:
		return "nonnull"
	case MixedVanilla:
		return "vanilla-mixed"
	default:
		return "mixed"
	}
}

func (t TArray) Id(ir *interner.Interner) string {
	if len(t.Shape) > 0 {
		parts := make([]string, 0, len(t.Shape))
		for _, e := range t.Shape {
			opt := ""
			if e.Optional {
				opt = "?"
			}
			parts = append(parts, fmt.Sprintf("%s%s: %s", e.Key, opt, e.Type.Id(ir)))
		}
		open := ""
		if !t.Sealed {
			open = ", ..."
		}
		return fmt.Sprintf("array{%s%s}", strings.Join(parts, ", "), open)
	}
	if t.Key == nil || t.Value == nil {
		return "array{}"
	}
	prefix := "array"
	if t.IsList {
		prefix = "list"
		if t.NonEmpty {
			prefix = "non-empty-list"
		}
		return fmt.Sprintf("%s<%s>", prefix, t.Value.Id(ir))
	}
	if t.NonEmpty {
		prefix = "non-empty-array"
	}
	return fmt.Sprintf("%s<%s, %s>", prefix, t.Key.Id(ir), t.Value.Id(ir))
}

func (t TNamedObject) Id(ir *interner.Interner) string {
	name := ir.Lookup(t.Name)
	if t.IsThis {
		name = "$this:" + name
	}
	if len(t.TypeParams) > 0 {
		args := make([]string, len(t.TypeParams))
		for i, p := range t.TypeParams {
			args[i] = p.Id(ir)
		}
		name += "<" + strings.Join(args, ", ") + ">"
	}
	for _, extra := range t.Intersections {
		name += "&" + extra.Id(ir)
	}
	return name
}

func (TAnonObject) Id(_ *interner.Interner) string { return "object" }

func (t TEnumCase) Id(ir *interner.Interner) string {
	return ir.Lookup(t.Enum) + "::" + ir.Lookup(t.Case)
}

func (t TCallable) Id(ir *interner.Interner) string {
	kind := "callable"
	if t.IsClosure {
		kind = "Closure"
	}
	params := make([]string, len(t.Params))
	for i, p := range t.Params {
		s := p.Type.Id(ir)
		if p.Variadic {
			s = "..." + s
		} else if p.Optional {
			s += "="
		}
		params[i] = s
	}
	ret := "mixed"
	if t.Return != nil {
		ret = t.Return.Id(ir)
	}
	return fmt.Sprintf("%s(%s): %s", kind, strings.Join(params, ", "), ret)
}

func (t TIterable) Id(ir *interner.Interner) string {
	return fmt.Sprintf("iterable<%s, %s>", t.Key.Id(ir), t.Value.Id(ir))
}

func (t TGenericParam) Id(ir *interner.Interner) string {
	id := ir.Lookup(t.Name) + ":" + ir.Lookup(t.DefiningEntity)
	for _, extra := range t.Intersections {
		id += "&" + extra.Id(ir)
	}
	return id
}

func (t TValueOf) Id(ir *interner.Interner) string {
	return "value-of<" + t.Of.Id(ir) + ">"
}

func (t TKeyOf) Id(ir *interner.Interner) string {
	return "key-of<" + t.Of.Id(ir) + ">"
}

func (t TPropertiesOf) Id(ir *interner.Interner) string {
	return "properties-of<" + t.Of.Id(ir) + ">"
}

func (t TConditional) Id(ir *interner.Interner) string {
	return fmt.Sprintf("(%s is %s ? %s : %s)", t.Subject.Id(ir), t.If.Id(ir), t.Then.Id(ir), t.Else.Id(ir))
}

func (t TReference) Id(ir *interner.Interner) string {
	name := "unresolved(" + ir.Lookup(t.Name) + ")"
	if len(t.TypeParams) > 0 {
		args := make([]string, len(t.TypeParams))
		for i, p := range t.TypeParams {
			args[i] = p.Id(ir)
		}
		name += "<" + strings.Join(args, ", ") + ">"
	}
	return name
}

// sortShape orders shape entries canonically (int keys first, then by
// value) so shape ids are deterministic.
func sortShape(entries []ShapeEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i].Key, entries[j].Key
		if a.IsInt != b.IsInt {
			return a.IsInt
		}
		if a.IsInt {
			return a.Int < b.Int
		}
		return a.Str < b.Str
	})
}
