package typesystem

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/mago-lang/mago/internal/interner"
)

// ParseScope provides context for type-string parsing: the template
// parameters in scope and a hook to qualify class names against the
// current namespace and imports.
type ParseScope struct {
	Templates   map[string]TGenericParam
	ResolveName func(string) string
}

func (s *ParseScope) resolve(name string) string {
	if s != nil && s.ResolveName != nil {
		return s.ResolveName(name)
	}
	return name
}

// ParseString parses a docblock type string into a union. The grammar
// covers unions, intersections, nullable prefixes, generic arguments,
// array shapes, literals and the derived type constructors. Errors are
// positioned relative to the string; the caller rebases them onto the
// docblock span.
func ParseString(ir *interner.Interner, s string, scope *ParseScope) (*Union, error) {
	p := &typeParser{ir: ir, src: s, scope: scope}
	u, err := p.parseUnion()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos < len(p.src) {
		return nil, fmt.Errorf("unexpected %q at offset %d in type string", p.src[p.pos:], p.pos)
	}
	return u, nil
}

type typeParser struct {
	ir    *interner.Interner
	src   string
	pos   int
	scope *ParseScope
}

func (p *typeParser) skipSpace() {
	for p.pos < len(p.src) && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t') {
		p.pos++
	}
}

func (p *typeParser) peek() byte {
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

func (p *typeParser) eat(c byte) bool {
	p.skipSpace()
	if p.peek() == c {
		p.pos++
		return true
	}
	return false
}

func (p *typeParser) parseUnion() (*Union, error) {
	var atomics []Atomic
	for {
		part, err := p.parseIntersection()
		if err != nil {
			return nil, err
		}
		atomics = append(atomics, part...)
		if !p.eat('|') {
			break
		}
	}
	return NewUnion(CombineAtomics(p.ir, NopResolver(), atomics, 0)...), nil
}

func (p *typeParser) parseIntersection() ([]Atomic, error) {
	first, err := p.parsePrefix()
	if err != nil {
		return nil, err
	}
	if !p.eat('&') {
		return first, nil
	}
	if len(first) != 1 {
		return nil, fmt.Errorf("intersection over a union at offset %d", p.pos)
	}
	head := first[0]
	var tail []Atomic
	for {
		next, err := p.parsePrefix()
		if err != nil {
			return nil, err
		}
		if len(next) != 1 {
			return nil, fmt.Errorf("intersection over a union at offset %d", p.pos)
		}
		tail = append(tail, next[0])
		if !p.eat('&') {
			break
		}
	}
	switch h := head.(type) {
	case TNamedObject:
		h.Intersections = append(h.Intersections, tail...)
		return []Atomic{h}, nil
	case TGenericParam:
		h.Intersections = append(h.Intersections, tail...)
		return []Atomic{h}, nil
	case TReference:
		obj := TNamedObject{Name: h.Name, TypeParams: h.TypeParams, Intersections: tail}
		return []Atomic{obj}, nil
	default:
		return nil, fmt.Errorf("intersection is only valid for object-like types, got %s", head.Id(p.ir))
	}
}

func (p *typeParser) parsePrefix() ([]Atomic, error) {
	p.skipSpace()
	if p.eat('?') {
		inner, err := p.parsePrefix()
		if err != nil {
			return nil, err
		}
		return append(inner, TNull{}), nil
	}
	if p.eat('(') {
		u, err := p.parseUnion()
		if err != nil {
			return nil, err
		}
		if !p.eat(')') {
			return nil, fmt.Errorf("missing ) at offset %d", p.pos)
		}
		return u.Atomics, nil
	}
	return p.parseAtom()
}

func (p *typeParser) parseAtom() ([]Atomic, error) {
	p.skipSpace()
	if p.pos >= len(p.src) {
		return nil, fmt.Errorf("unexpected end of type string")
	}

	c := p.src[p.pos]
	if c == '\'' || c == '"' {
		lit, err := p.parseQuoted(c)
		if err != nil {
			return nil, err
		}
		return []Atomic{TString{Literal: &lit}}, nil
	}
	if c == '-' || unicode.IsDigit(rune(c)) {
		return p.parseNumber()
	}

	name := p.parseName()
	if name == "" {
		return nil, fmt.Errorf("expected type name at offset %d", p.pos)
	}

	switch strings.ToLower(name) {
	case "int", "integer":
		return []Atomic{TInt{}}, nil
	case "float", "double":
		return []Atomic{TFloat{}}, nil
	case "string":
		return []Atomic{TString{}}, nil
	case "non-empty-string":
		return []Atomic{TString{NonEmpty: true}}, nil
	case "bool", "boolean":
		return []Atomic{TBool{}}, nil
	case "true":
		t := true
		return []Atomic{TBool{Literal: &t}}, nil
	case "false":
		f := false
		return []Atomic{TBool{Literal: &f}}, nil
	case "null":
		return []Atomic{TNull{}}, nil
	case "void":
		return []Atomic{TVoid{}}, nil
	case "never", "no-return":
		return []Atomic{TNever{}}, nil
	case "mixed":
		return []Atomic{TMixed{}}, nil
	case "nonnull":
		return []Atomic{TMixed{Flag: MixedNonNull}}, nil
	case "scalar":
		return []Atomic{TInt{}, TFloat{}, TString{}, TBool{}}, nil
	case "numeric":
		return []Atomic{TInt{}, TFloat{}}, nil
	case "object":
		return []Atomic{TAnonObject{}}, nil
	case "callable":
		return p.parseCallable(false)
	case "array", "non-empty-array":
		return p.parseArray(name == "non-empty-array", false)
	case "list", "non-empty-list":
		return p.parseArray(name == "non-empty-list", true)
	case "iterable":
		k, v, _, err := p.parseKeyValueArgs()
		if err != nil {
			return nil, err
		}
		if k == nil {
			k, v = Mixed(), Mixed()
		}
		return []Atomic{TIterable{Key: k, Value: v}}, nil
	case "key-of", "value-of", "properties-of":
		if !p.eat('<') {
			return nil, fmt.Errorf("%s needs a type argument", name)
		}
		of, err := p.parseUnion()
		if err != nil {
			return nil, err
		}
		if !p.eat('>') {
			return nil, fmt.Errorf("missing > at offset %d", p.pos)
		}
		switch strings.ToLower(name) {
		case "key-of":
			return []Atomic{TKeyOf{Of: of}}, nil
		case "value-of":
			return []Atomic{TValueOf{Of: of}}, nil
		default:
			return []Atomic{TPropertiesOf{Of: of}}, nil
		}
	}

	if name == "Closure" && p.peek() == '(' {
		return p.parseCallable(true)
	}

	// Template parameter in scope?
	if p.scope != nil && p.scope.Templates != nil {
		if tp, ok := p.scope.Templates[name]; ok {
			return []Atomic{tp}, nil
		}
	}

	// Class-like reference; resolution happens against the codebase later.
	resolved := p.scope.resolve(name)
	ref := TReference{Name: p.ir.Intern(resolved)}
	if p.eat('<') {
		for {
			arg, err := p.parseUnion()
			if err != nil {
				return nil, err
			}
			ref.TypeParams = append(ref.TypeParams, arg)
			if !p.eat(',') {
				break
			}
		}
		if !p.eat('>') {
			return nil, fmt.Errorf("missing > at offset %d", p.pos)
		}
	}
	return []Atomic{ref}, nil
}

func (p *typeParser) parseName() string {
	start := p.pos
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if unicode.IsLetter(rune(c)) || unicode.IsDigit(rune(c)) || c == '_' || c == '\\' ||
			(c == '-' && p.pos > start && p.pos+1 < len(p.src) && unicode.IsLetter(rune(p.src[p.pos+1]))) {
			p.pos++
			continue
		}
		break
	}
	return p.src[start:p.pos]
}

func (p *typeParser) parseQuoted(quote byte) (string, error) {
	p.pos++ // opening quote
	start := p.pos
	for p.pos < len(p.src) && p.src[p.pos] != quote {
		p.pos++
	}
	if p.pos >= len(p.src) {
		return "", fmt.Errorf("unterminated string literal in type")
	}
	lit := p.src[start:p.pos]
	p.pos++ // closing quote
	return lit, nil
}

func (p *typeParser) parseNumber() ([]Atomic, error) {
	start := p.pos
	if p.peek() == '-' {
		p.pos++
	}
	isFloat := false
	for p.pos < len(p.src) && (unicode.IsDigit(rune(p.src[p.pos])) || p.src[p.pos] == '.') {
		if p.src[p.pos] == '.' {
			isFloat = true
		}
		p.pos++
	}
	text := p.src[start:p.pos]
	if isFloat {
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, fmt.Errorf("bad float literal %q in type", text)
		}
		return []Atomic{TFloat{Literal: &f}}, nil
	}
	i, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("bad int literal %q in type", text)
	}
	return []Atomic{TInt{Literal: &i}}, nil
}

func (p *typeParser) parseKeyValueArgs() (*Union, *Union, int, error) {
	if !p.eat('<') {
		return nil, nil, 0, nil
	}
	first, err := p.parseUnion()
	if err != nil {
		return nil, nil, 0, err
	}
	if p.eat(',') {
		second, err := p.parseUnion()
		if err != nil {
			return nil, nil, 0, err
		}
		if !p.eat('>') {
			return nil, nil, 0, fmt.Errorf("missing > at offset %d", p.pos)
		}
		return first, second, 2, nil
	}
	if !p.eat('>') {
		return nil, nil, 0, fmt.Errorf("missing > at offset %d", p.pos)
	}
	return Mixed(), first, 1, nil
}

func (p *typeParser) parseArray(nonEmpty, isList bool) ([]Atomic, error) {
	p.skipSpace()
	if p.peek() == '{' {
		return p.parseShape(nonEmpty)
	}
	k, v, n, err := p.parseKeyValueArgs()
	if err != nil {
		return nil, err
	}
	switch n {
	case 0:
		k, v = arrayKeyUnion(), Mixed()
	case 1:
		// array<V> leaves the key unconstrained (any valid array key).
		k = arrayKeyUnion()
	}
	if isList {
		k = Int()
	}
	return []Atomic{TArray{Key: k, Value: v, IsList: isList, NonEmpty: nonEmpty}}, nil
}

func arrayKeyUnion() *Union {
	return NewUnion(TInt{}, TString{})
}

func (p *typeParser) parseShape(nonEmpty bool) ([]Atomic, error) {
	p.eat('{')
	var entries []ShapeEntry
	sealed := true
	for {
		p.skipSpace()
		if p.peek() == '}' {
			break
		}
		if strings.HasPrefix(p.src[p.pos:], "...") {
			p.pos += 3
			sealed = false
			break
		}
		key, optional, err := p.parseShapeKey()
		if err != nil {
			return nil, err
		}
		if !p.eat(':') {
			return nil, fmt.Errorf("missing : after shape key at offset %d", p.pos)
		}
		val, err := p.parseUnion()
		if err != nil {
			return nil, err
		}
		entries = append(entries, ShapeEntry{Key: key, Type: val, Optional: optional})
		if !p.eat(',') {
			break
		}
	}
	if !p.eat('}') {
		return nil, fmt.Errorf("missing } at offset %d", p.pos)
	}
	sortShape(entries)
	return []Atomic{TArray{Shape: entries, Sealed: sealed, NonEmpty: nonEmpty}}, nil
}

func (p *typeParser) parseShapeKey() (ArrayKey, bool, error) {
	p.skipSpace()
	c := p.peek()
	if c == '\'' || c == '"' {
		lit, err := p.parseQuoted(c)
		if err != nil {
			return ArrayKey{}, false, err
		}
		opt := p.eat('?')
		return StrKey(lit), opt, nil
	}
	if unicode.IsDigit(rune(c)) || c == '-' {
		atoms, err := p.parseNumber()
		if err != nil {
			return ArrayKey{}, false, err
		}
		n, ok := atoms[0].(TInt)
		if !ok || n.Literal == nil {
			return ArrayKey{}, false, fmt.Errorf("shape keys must be ints or strings")
		}
		opt := p.eat('?')
		return IntKey(*n.Literal), opt, nil
	}
	name := p.parseName()
	if name == "" {
		return ArrayKey{}, false, fmt.Errorf("expected shape key at offset %d", p.pos)
	}
	opt := p.eat('?')
	return StrKey(name), opt, nil
}

func (p *typeParser) parseCallable(isClosure bool) ([]Atomic, error) {
	c := TCallable{IsClosure: isClosure}
	p.skipSpace()
	if p.peek() != '(' {
		c.Return = Mixed()
		return []Atomic{c}, nil
	}
	p.eat('(')
	for {
		p.skipSpace()
		if p.peek() == ')' {
			break
		}
		variadic := false
		if strings.HasPrefix(p.src[p.pos:], "...") {
			p.pos += 3
			variadic = true
		}
		pt, err := p.parseUnion()
		if err != nil {
			return nil, err
		}
		optional := p.eat('=')
		c.Params = append(c.Params, CallableParam{Type: pt, Variadic: variadic, Optional: optional})
		if !p.eat(',') {
			break
		}
	}
	if !p.eat(')') {
		return nil, fmt.Errorf("missing ) in callable at offset %d", p.pos)
	}
	if p.eat(':') {
		ret, err := p.parseUnion()
		if err != nil {
			return nil, err
		}
		c.Return = ret
	} else {
		c.Return = Mixed()
	}
	return []Atomic{c}, nil
}
