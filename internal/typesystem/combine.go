package typesystem

import (
	"github.com/mago-lang/mago/internal/interner"
)

// DefaultLiteralLimit is the cutoff past which literal unions collapse to
// their general type.
const DefaultLiteralLimit = 8

// Combine returns the least upper bound of a and b. It distributes over
// unions, merges equal atomics, and collapses literal families larger
// than literalLimit (0 means DefaultLiteralLimit) into their general
// type. Union flags are OR-ed.
func Combine(ir *interner.Interner, res Resolver, a, b *Union, literalLimit int) *Union {
	atomics := make([]Atomic, 0, len(a.Atomics)+len(b.Atomics))
	atomics = append(atomics, a.Atomics...)
	atomics = append(atomics, b.Atomics...)

	out := NewUnion(CombineAtomics(ir, res, atomics, literalLimit)...)
	out.PossiblyUndefined = a.PossiblyUndefined || b.PossiblyUndefined
	out.PossiblyUndefinedFromTry = a.PossiblyUndefinedFromTry || b.PossiblyUndefinedFromTry
	out.IgnoreFalsableIssues = a.IgnoreFalsableIssues || b.IgnoreFalsableIssues
	out.HadTemplate = a.HadTemplate || b.HadTemplate
	out.ReferenceFree = a.ReferenceFree && b.ReferenceFree
	return out
}

// CombineUnions folds Combine over several unions.
func CombineUnions(ir *interner.Interner, res Resolver, unions []*Union, literalLimit int) *Union {
	if len(unions) == 0 {
		return Never()
	}
	acc := unions[0]
	for _, u := range unions[1:] {
		acc = Combine(ir, res, acc, u, literalLimit)
	}
	return acc
}

type combiner struct {
	ir    *interner.Interner
	res   Resolver
	limit int

	mixedSeen bool
	mixedFlag MixedFlag

	hasInt    bool
	intLits   []TInt
	hasFloat  bool
	floatLits []TFloat

	hasString      bool
	hasNonEmptyStr bool
	stringLits     []TString

	hasBool  bool
	hasTrue  bool
	hasFalse bool

	hasNull bool
	hasVoid bool

	arrays        []TArray
	objects       []TNamedObject
	enumCases     []TEnumCase
	hasAnonObject bool

	iterables []TIterable

	// Everything merged only by canonical id.
	byId    map[string]Atomic
	idOrder []string
}

// CombineAtomics normalizes a flat list of atomics into canonical union
// members.
func CombineAtomics(ir *interner.Interner, res Resolver, atomics []Atomic, literalLimit int) []Atomic {
	if literalLimit <= 0 {
		literalLimit = DefaultLiteralLimit
	}
	c := &combiner{ir: ir, res: res, limit: literalLimit, byId: make(map[string]Atomic)}
	for _, a := range atomics {
		c.add(a)
	}
	return c.finish()
}

func (c *combiner) add(a Atomic) {
	switch at := a.(type) {
	case TNever:
		// identity for combine
	case TMixed:
		if !c.mixedSeen {
			c.mixedSeen = true
			c.mixedFlag = at.Flag
		} else if c.mixedFlag != at.Flag {
			c.mixedFlag = MixedAny
		}
	case TInt:
		if at.Literal == nil {
			c.hasInt = true
		} else {
			c.intLits = append(c.intLits, at)
		}
	case TFloat:
		if at.Literal == nil {
			c.hasFloat = true
		} else {
			c.floatLits = append(c.floatLits, at)
		}
	case TString:
		if at.Literal != nil {
			c.stringLits = append(c.stringLits, at)
		} else if at.NonEmpty {
			c.hasNonEmptyStr = true
		} else {
			c.hasString = true
		}
	case TBool:
		if at.Literal == nil {
			c.hasBool = true
		} else if *at.Literal {
			c.hasTrue = true
		} else {
			c.hasFalse = true
		}
	case TNull:
		c.hasNull = true
	case TVoid:
		c.hasVoid = true
	case TArray:
		c.arrays = append(c.arrays, at)
	case TNamedObject:
		c.objects = append(c.objects, at)
	case TEnumCase:
		c.enumCases = append(c.enumCases, at)
	case TAnonObject:
		c.hasAnonObject = true
	case TIterable:
		c.iterables = append(c.iterables, at)
	default:
		id := a.Id(c.ir)
		if _, ok := c.byId[id]; !ok {
			c.byId[id] = a
			c.idOrder = append(c.idOrder, id)
		}
	}
}

func (c *combiner) finish() []Atomic {
	if c.mixedSeen && c.mixedFlag == MixedAny {
		return []Atomic{TMixed{}}
	}

	var out []Atomic
	if c.mixedSeen {
		out = append(out, TMixed{Flag: c.mixedFlag})
	}

	// Ints: a general int subsumes literals; too many literals collapse.
	intLits := dedupAtomics(c.ir, c.intLits)
	if c.hasInt || len(intLits) > c.limit {
		out = append(out, TInt{})
	} else {
		out = append(out, intLits...)
	}

	floatLits := dedupAtomics(c.ir, c.floatLits)
	if c.hasFloat || len(floatLits) > c.limit {
		out = append(out, TFloat{})
	} else {
		out = append(out, floatLits...)
	}

	// Strings: general string subsumes both non-empty-string and literals.
	// non-empty-string does not subsume literals; refinements coexist.
	stringLits := dedupAtomics(c.ir, c.stringLits)
	switch {
	case c.hasString, len(stringLits) > c.limit:
		out = append(out, TString{})
	default:
		if c.hasNonEmptyStr {
			out = append(out, TString{NonEmpty: true})
		}
		out = append(out, stringLits...)
	}

	switch {
	case c.hasBool, c.hasTrue && c.hasFalse:
		out = append(out, TBool{})
	case c.hasTrue:
		t := true
		out = append(out, TBool{Literal: &t})
	case c.hasFalse:
		f := false
		out = append(out, TBool{Literal: &f})
	}

	if c.hasNull {
		out = append(out, TNull{})
	}
	if c.hasVoid {
		out = append(out, TVoid{})
	}

	if len(c.arrays) > 0 {
		out = append(out, c.combineArrays())
	}

	out = append(out, c.combineObjects()...)

	if c.hasAnonObject {
		out = append(out, TAnonObject{})
	}

	if len(c.iterables) > 0 {
		out = append(out, c.combineIterables())
	}

	for _, id := range c.idOrder {
		out = append(out, c.byId[id])
	}
	return out
}

// combineArrays folds every array atomic into one.
func (c *combiner) combineArrays() Atomic {
	acc := c.arrays[0]
	for _, next := range c.arrays[1:] {
		acc = mergeArrays(c.ir, c.res, acc, next, c.limit)
	}
	return acc
}

func mergeArrays(ir *interner.Interner, res Resolver, a, b TArray, limit int) TArray {
	aEmpty := a.Key == nil && a.Value == nil && len(a.Shape) == 0
	bEmpty := b.Key == nil && b.Value == nil && len(b.Shape) == 0
	if aEmpty {
		b.NonEmpty = false
		return b
	}
	if bEmpty {
		a.NonEmpty = false
		return a
	}

	// Two shapes merge key-wise; keys on one side only become optional.
	if len(a.Shape) > 0 && len(b.Shape) > 0 {
		merged := make([]ShapeEntry, 0, len(a.Shape)+len(b.Shape))
		bByKey := make(map[string]ShapeEntry, len(b.Shape))
		for _, e := range b.Shape {
			bByKey[e.Key.String()+shapeKeyKind(e.Key)] = e
		}
		seen := make(map[string]bool)
		for _, ea := range a.Shape {
			k := ea.Key.String() + shapeKeyKind(ea.Key)
			seen[k] = true
			if eb, ok := bByKey[k]; ok {
				merged = append(merged, ShapeEntry{
					Key:      ea.Key,
					Type:     Combine(ir, res, ea.Type, eb.Type, limit),
					Optional: ea.Optional || eb.Optional,
				})
			} else {
				ea.Optional = true
				merged = append(merged, ea)
			}
		}
		for _, eb := range b.Shape {
			k := eb.Key.String() + shapeKeyKind(eb.Key)
			if !seen[k] {
				eb.Optional = true
				merged = append(merged, eb)
			}
		}
		sortShape(merged)
		return TArray{
			Shape:    merged,
			Sealed:   a.Sealed && b.Sealed,
			NonEmpty: a.NonEmpty && b.NonEmpty,
			IsList:   a.IsList && b.IsList,
			Key:      combineOptional(ir, res, a.Key, b.Key, limit),
			Value:    combineOptional(ir, res, a.Value, b.Value, limit),
		}
	}

	// A shape merged with a generic array degrades to the generic form.
	ka, va := arrayKeyValue(ir, res, a, limit)
	kb, vb := arrayKeyValue(ir, res, b, limit)
	return TArray{
		Key:      Combine(ir, res, ka, kb, limit),
		Value:    Combine(ir, res, va, vb, limit),
		IsList:   a.IsList && b.IsList,
		NonEmpty: a.NonEmpty && b.NonEmpty,
	}
}

func shapeKeyKind(k ArrayKey) string {
	if k.IsInt {
		return "#i"
	}
	return "#s"
}

func combineOptional(ir *interner.Interner, res Resolver, a, b *Union, limit int) *Union {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return Combine(ir, res, a, b, limit)
}

// arrayKeyValue flattens an array atomic into its key and value unions,
// expanding shapes.
func arrayKeyValue(ir *interner.Interner, res Resolver, a TArray, limit int) (*Union, *Union) {
	if len(a.Shape) > 0 {
		keys := make([]*Union, 0, len(a.Shape))
		values := make([]*Union, 0, len(a.Shape))
		for _, e := range a.Shape {
			if e.Key.IsInt {
				keys = append(keys, IntLiteral(e.Key.Int))
			} else {
				keys = append(keys, StringLiteral(e.Key.Str))
			}
			values = append(values, e.Type)
		}
		k := CombineUnions(ir, res, keys, limit)
		v := CombineUnions(ir, res, values, limit)
		if a.Key != nil {
			k = Combine(ir, res, k, a.Key, limit)
		}
		if a.Value != nil {
			v = Combine(ir, res, v, a.Value, limit)
		}
		return k, v
	}
	if a.Key == nil || a.Value == nil {
		return Never(), Never()
	}
	return a.Key, a.Value
}

// combineObjects merges named objects by name (combining template
// arguments element-wise) and drops enum cases subsumed by their enum.
func (c *combiner) combineObjects() []Atomic {
	var out []Atomic
	byName := make(map[interner.StringId]int)
	for _, obj := range c.objects {
		// Objects with an intersection tail never merge.
		if len(obj.Intersections) > 0 {
			out = append(out, obj)
			continue
		}
		if idx, ok := byName[obj.Name]; ok {
			prev := out[idx].(TNamedObject)
			out[idx] = mergeNamedObjects(c.ir, c.res, prev, obj, c.limit)
			continue
		}
		byName[obj.Name] = len(out)
		out = append(out, obj)
	}
	seenCase := make(map[string]bool)
	for _, ec := range c.enumCases {
		if _, subsumed := byName[ec.Enum]; subsumed {
			continue
		}
		id := ec.Id(c.ir)
		if !seenCase[id] {
			seenCase[id] = true
			out = append(out, ec)
		}
	}
	return out
}

func mergeNamedObjects(ir *interner.Interner, res Resolver, a, b TNamedObject, limit int) TNamedObject {
	if len(a.TypeParams) != len(b.TypeParams) {
		a.TypeParams = nil
		return a
	}
	if len(a.TypeParams) == 0 {
		a.IsThis = a.IsThis && b.IsThis
		return a
	}
	params := make([]*Union, len(a.TypeParams))
	for i := range a.TypeParams {
		params[i] = Combine(ir, res, a.TypeParams[i], b.TypeParams[i], limit)
	}
	return TNamedObject{Name: a.Name, TypeParams: params, IsThis: a.IsThis && b.IsThis}
}

func (c *combiner) combineIterables() Atomic {
	acc := c.iterables[0]
	for _, next := range c.iterables[1:] {
		acc = TIterable{
			Key:   Combine(c.ir, c.res, acc.Key, next.Key, c.limit),
			Value: Combine(c.ir, c.res, acc.Value, next.Value, c.limit),
		}
	}
	return acc
}

// dedupAtomics removes atomics with duplicate canonical ids, preserving
// first-seen order.
func dedupAtomics[T Atomic](ir *interner.Interner, atomics []T) []Atomic {
	seen := make(map[string]bool, len(atomics))
	out := make([]Atomic, 0, len(atomics))
	for _, a := range atomics {
		id := a.Id(ir)
		if !seen[id] {
			seen[id] = true
			out = append(out, a)
		}
	}
	return out
}
