package codebase

import (
	"strings"

	"github.com/mago-lang/mago/internal/ast"
	"github.com/mago-lang/mago/internal/diagnostics"
	"github.com/mago-lang/mago/internal/docblock"
	"github.com/mago-lang/mago/internal/interner"
	"github.com/mago-lang/mago/internal/names"
	"github.com/mago-lang/mago/internal/token"
	"github.com/mago-lang/mago/internal/typesystem"
)

// Builder accumulates per-file declarations and bakes the index.
type Builder struct {
	ir         *interner.Interner
	classLikes map[interner.StringId]*ClassLikeMetadata
	functions  map[interner.StringId]*FunctionLikeMetadata
	constants  map[interner.StringId]*ConstantMetadata
	diags      *diagnostics.Collector
}

// NewBuilder starts an empty index build.
func NewBuilder(ir *interner.Interner, diags *diagnostics.Collector) *Builder {
	return &Builder{
		ir:         ir,
		classLikes: make(map[interner.StringId]*ClassLikeMetadata),
		functions:  make(map[interner.StringId]*FunctionLikeMetadata),
		constants:  make(map[interner.StringId]*ConstantMetadata),
		diags:      diags,
	}
}

// AddFile scans one parsed file. Files may be added in any order; nothing
// cross-file resolves until Build.
func (b *Builder) AddFile(program *ast.Program, table *names.Table) {
	s := &scanner{b: b, table: table}
	for _, stmt := range program.Statements {
		switch d := stmt.(type) {
		case *ast.FunctionDeclaration:
			s.function(d)
		case *ast.ClassLikeDeclaration:
			s.classLike(d)
		case *ast.ConstDeclaration:
			s.constant(d)
		}
	}
}

// Build bakes inheritance and returns the immutable index. Circular
// extends chains report CircularInheritance and the offending edge is
// dropped.
func (b *Builder) Build() *Codebase {
	for _, m := range b.classLikes {
		b.bake(m)
	}
	b.resolveReferences()
	return &Codebase{
		ir:         b.ir,
		classLikes: b.classLikes,
		functions:  b.functions,
		constants:  b.constants,
	}
}

// resolveReferences rewrites hint references against the finished index,
// turning references to indexed class-likes into named objects. It runs
// after baking; inherited members share metadata values, so each value
// resolves exactly once.
func (b *Builder) resolveReferences() {
	known := func(name interner.StringId) bool {
		_, ok := b.classLikes[name]
		return ok
	}
	resolve := func(u *typesystem.Union) *typesystem.Union {
		return typesystem.ResolveReferences(u, known)
	}

	seenFns := make(map[*FunctionLikeMetadata]bool)
	resolveFn := func(fn *FunctionLikeMetadata) {
		if seenFns[fn] {
			return
		}
		seenFns[fn] = true
		for _, p := range fn.Params {
			p.Type = resolve(p.Type)
		}
		fn.Return = resolve(fn.Return)
		for i := range fn.Asserts {
			fn.Asserts[i].Type = resolve(fn.Asserts[i].Type)
		}
		for i := range fn.Templates {
			fn.Templates[i].Bound = resolve(fn.Templates[i].Bound)
		}
	}

	for _, fn := range b.functions {
		resolveFn(fn)
	}
	for _, c := range b.constants {
		c.Type = resolve(c.Type)
	}

	seenProps := make(map[*PropertyMetadata]bool)
	seenConsts := make(map[*ConstantMetadata]bool)
	for _, m := range b.classLikes {
		for _, fn := range m.Methods {
			resolveFn(fn)
		}
		for _, p := range m.Properties {
			if seenProps[p] {
				continue
			}
			seenProps[p] = true
			p.Type = resolve(p.Type)
		}
		for _, c := range m.Constants {
			if seenConsts[c] {
				continue
			}
			seenConsts[c] = true
			c.Type = resolve(c.Type)
		}
		m.BackingType = resolve(m.BackingType)
		for i := range m.Templates {
			m.Templates[i].Bound = resolve(m.Templates[i].Bound)
		}
		for _, bounds := range m.TemplateExtended {
			for name, u := range bounds {
				bounds[name] = resolve(u)
			}
		}
	}
}

// bake resolves one class-like: ancestors first (recursively), then
// inherited members, then template-extends propagation.
func (b *Builder) bake(m *ClassLikeMetadata) {
	if m.baked {
		return
	}
	if m.baking {
		b.diags.Report(diagnostics.New(diagnostics.CircularInheritance, m.Span,
			"%s participates in a circular inheritance chain", b.ir.Lookup(m.Name)))
		m.baked = true
		return
	}
	m.baking = true
	defer func() { m.baking = false; m.baked = true }()

	// Trait members first: the class's own declarations shadow them, and
	// they in turn shadow the parent's.
	for _, trait := range m.Traits {
		if tm, ok := b.classLikes[trait]; ok {
			b.bake(tm)
			b.inheritFrom(m, tm, true)
			m.Ancestors[trait] = true
			for a := range tm.Ancestors {
				m.Ancestors[a] = true
			}
		}
	}

	if m.Parent != 0 {
		if pm, ok := b.classLikes[m.Parent]; ok {
			b.bake(pm)
			if pm.baking {
				// The recursive call hit the cycle guard; drop the edge.
				m.Parent = 0
			} else {
				b.inheritFrom(m, pm, false)
				m.Ancestors[m.Parent] = true
				for a := range pm.Ancestors {
					m.Ancestors[a] = true
				}
			}
		} else {
			m.Ancestors[m.Parent] = true
		}
	}

	for _, iface := range m.Interfaces {
		m.Ancestors[iface] = true
		if im, ok := b.classLikes[iface]; ok {
			b.bake(im)
			b.inheritFrom(m, im, false)
			for a := range im.Ancestors {
				m.Ancestors[a] = true
			}
		}
	}

	b.propagateTemplates(m)
}

// inheritFrom copies members absent from m. Inherited entries share the
// origin's metadata; DefinedIn distinguishes them.
func (b *Builder) inheritFrom(m, from *ClassLikeMetadata, viaTrait bool) {
	for name, f := range from.Methods {
		if existing, ok := m.Methods[name]; ok {
			if viaTrait && existing.DefinedIn != m.Name && existing.DefinedIn != f.DefinedIn {
				// Two traits supply the same method and the class does not
				// override it.
				if tm, declared := b.classLikes[existing.DefinedIn]; declared && tm.Kind == ast.KindTrait {
					b.diags.Report(diagnostics.New(diagnostics.TraitConflict, m.Span,
						"method %s is provided by multiple traits of %s",
						b.ir.Lookup(name), b.ir.Lookup(m.Name)))
				}
			}
			continue
		}
		if f.Visibility == ast.Private && !viaTrait {
			continue
		}
		m.Methods[name] = f
	}
	for name, p := range from.Properties {
		if _, ok := m.Properties[name]; ok {
			continue
		}
		if p.Visibility == ast.Private && !viaTrait {
			continue
		}
		m.Properties[name] = p
	}
	for name, c := range from.Constants {
		if _, ok := m.Constants[name]; !ok {
			m.Constants[name] = c
		}
	}
}

// propagateTemplates turns the scan-time @extends/@implements/@use
// bindings into TemplateExtended and composes the ancestors' own entries
// through this class's bindings.
func (b *Builder) propagateTemplates(m *ClassLikeMetadata) {
	for _, pending := range m.pendingTemplated {
		em, ok := b.classLikes[pending.entity]
		if !ok || len(em.Templates) == 0 {
			continue
		}
		bound := make(map[interner.StringId]*typesystem.Union)
		for i, tp := range em.Templates {
			switch {
			case i < len(pending.args):
				bound[tp.Name] = pending.args[i]
			case tp.Bound != nil:
				bound[tp.Name] = tp.Bound
			default:
				bound[tp.Name] = typesystem.Mixed()
			}
		}
		m.TemplateExtended[pending.entity] = bound

		// What the ancestor bound for its own ancestors, seen through
		// this class's bindings.
		for grand, grandBounds := range em.TemplateExtended {
			composed := make(map[interner.StringId]*typesystem.Union, len(grandBounds))
			for param, u := range grandBounds {
				composed[param] = b.substituteParams(u, pending.entity, bound)
			}
			m.TemplateExtended[grand] = composed
		}
	}
}

// substituteParams replaces entity's template parameters inside u with
// their bound unions.
func (b *Builder) substituteParams(u *typesystem.Union, entity interner.StringId, bound map[interner.StringId]*typesystem.Union) *typesystem.Union {
	if u == nil {
		return nil
	}
	out := make([]typesystem.Atomic, 0, len(u.Atomics))
	for _, a := range u.Atomics {
		if g, ok := a.(typesystem.TGenericParam); ok && g.DefiningEntity == entity {
			if sub, ok := bound[g.Name]; ok {
				out = append(out, sub.Atomics...)
				continue
			}
		}
		out = append(out, a)
	}
	return u.CloneFlags(out)
}

func (b *Builder) templateScope(groups ...[]TemplateParam) map[string]typesystem.TGenericParam {
	var scope map[string]typesystem.TGenericParam
	for _, group := range groups {
		for _, tp := range group {
			if scope == nil {
				scope = make(map[string]typesystem.TGenericParam)
			}
			scope[b.ir.Lookup(tp.Name)] = typesystem.TGenericParam{
				Name:           tp.Name,
				DefiningEntity: tp.Entity,
				Bound:          tp.Bound,
			}
		}
	}
	return scope
}

// ---- per-file scanning ----

type scanner struct {
	b     *Builder
	table *names.Table
}

func (s *scanner) qualified(n *ast.Name) interner.StringId {
	if id, ok := s.table.Get(n.Span()); ok {
		return id
	}
	return s.b.ir.Intern(s.table.Qualify(n.Value))
}

func (s *scanner) function(d *ast.FunctionDeclaration) {
	name := s.qualified(d.Name)
	if _, exists := s.b.functions[name]; exists {
		return
	}
	doc := docblock.Parse(d.Docblock)
	f := s.functionLike(name, 0, d.Sp, doc, d.Params, d.ReturnHint, nil)
	f.ByRef = d.ByRef
	s.b.functions[name] = f
}

func (s *scanner) constant(d *ast.ConstDeclaration) {
	name := s.qualified(d.Name)
	if _, exists := s.b.constants[name]; exists {
		return
	}
	s.b.constants[name] = &ConstantMetadata{
		Name: name,
		Span: d.Sp,
		Type: literalType(d.Value),
	}
}

func (s *scanner) classLike(d *ast.ClassLikeDeclaration) {
	name := s.qualified(d.Name)
	if prev, exists := s.b.classLikes[name]; exists {
		s.b.diags.Report(diagnostics.New(diagnostics.DuplicateClassLike, d.Sp,
			"%s %s is already declared", d.Kind, s.b.ir.Lookup(name)).
			WithAnnotation(prev.Span, "first declared here"))
		return
	}

	m := newClassLikeMetadata(name)
	m.Span = d.Sp
	m.Kind = d.Kind
	m.IsAbstract = d.IsAbstract
	m.IsFinal = d.IsFinal
	m.IsReadonly = d.IsReadonly

	doc := docblock.Parse(d.Docblock)
	if doc != nil {
		m.Deprecated = doc.Deprecated
		m.Templates = s.templates(doc.Templates, name, nil)
		raw := make([]string, 0, len(doc.Extends)+len(doc.Implements)+len(doc.Uses))
		raw = append(raw, doc.Extends...)
		raw = append(raw, doc.Implements...)
		raw = append(raw, doc.Uses...)
		for _, typeStr := range raw {
			if ti, ok := s.templatedInheritance(m, typeStr, d.Sp); ok {
				m.pendingTemplated = append(m.pendingTemplated, ti)
			}
		}
	}

	if d.Parent != nil {
		m.Parent = s.qualified(d.Parent)
	}
	for _, iface := range d.Interfaces {
		m.Interfaces = append(m.Interfaces, s.qualified(iface))
	}
	for _, tr := range d.Uses {
		m.Traits = append(m.Traits, s.qualified(tr))
	}
	if d.BackingHint != nil {
		m.BackingType = s.hintType(d.BackingHint, m)
	}

	for _, c := range d.Consts {
		cname := s.b.ir.Intern(c.Name.Value)
		if _, dup := m.Constants[cname]; dup {
			s.b.diags.Report(diagnostics.New(diagnostics.DuplicateMember, c.Sp,
				"constant %s is already declared on %s", c.Name.Value, s.b.ir.Lookup(name)))
			continue
		}
		m.Constants[cname] = &ConstantMetadata{
			Name:       cname,
			Span:       c.Sp,
			Type:       literalType(c.Value),
			Visibility: c.Visibility,
			DefinedIn:  name,
		}
	}

	for _, p := range d.Properties {
		s.property(m, p)
	}
	for _, meth := range d.Methods {
		s.method(m, meth)
	}
	for _, cs := range d.Cases {
		cname := s.b.ir.Intern(cs.Name.Value)
		m.Cases[cname] = &EnumCaseMetadata{
			Name:    cname,
			Span:    cs.Sp,
			Enum:    name,
			Backing: literalType(cs.Backing),
		}
	}

	// Constructor promotion declares properties.
	ctor := s.b.ir.Intern("__construct")
	if f, ok := m.Methods[ctor]; ok {
		for _, p := range f.Params {
			if !p.Promoted {
				continue
			}
			pname := s.b.ir.Intern(p.Name)
			if _, dup := m.Properties[pname]; dup {
				continue
			}
			m.Properties[pname] = &PropertyMetadata{
				Name:       pname,
				Span:       f.Span,
				Type:       p.Type,
				HasDefault: p.HasDefault,
				Visibility: p.Visibility,
				IsReadonly: p.Readonly,
				DefinedIn:  name,
			}
		}
	}

	s.b.classLikes[name] = m
}

// templatedInheritance parses one `Base<int, T>` docblock string in the
// scope of m's own templates and the file's imports.
func (s *scanner) templatedInheritance(m *ClassLikeMetadata, typeStr string, at token.Span) (templatedInheritance, bool) {
	u, ok := s.docType(typeStr, m, nil, at)
	if !ok || len(u.Atomics) != 1 {
		return templatedInheritance{}, false
	}
	switch a := u.Atomics[0].(type) {
	case typesystem.TReference:
		return templatedInheritance{entity: a.Name, args: a.TypeParams}, true
	case typesystem.TNamedObject:
		return templatedInheritance{entity: a.Name, args: a.TypeParams}, true
	}
	return templatedInheritance{}, false
}

func (s *scanner) property(m *ClassLikeMetadata, p *ast.PropertyDeclaration) {
	pname := s.b.ir.Intern(p.Var.Name)
	if _, dup := m.Properties[pname]; dup {
		s.b.diags.Report(diagnostics.New(diagnostics.DuplicateMember, p.Sp,
			"property $%s is already declared on %s", p.Var.Name, s.b.ir.Lookup(m.Name)))
		return
	}
	typ := s.hintType(p.Hint, m)
	if doc := docblock.Parse(p.Docblock); doc != nil && doc.Var != "" {
		if parsed, ok := s.docType(doc.Var, m, nil, p.Sp); ok {
			typ = parsed
		}
	}
	m.Properties[pname] = &PropertyMetadata{
		Name:       pname,
		Span:       p.Sp,
		Type:       typ,
		HasDefault: p.Default != nil,
		Visibility: p.Visibility,
		IsStatic:   p.IsStatic,
		IsReadonly: p.IsReadonly,
		DefinedIn:  m.Name,
	}
}

func (s *scanner) method(m *ClassLikeMetadata, d *ast.MethodDeclaration) {
	mname := s.b.ir.Intern(d.Name.Value)
	if _, dup := m.Methods[mname]; dup {
		s.b.diags.Report(diagnostics.New(diagnostics.DuplicateMember, d.Sp,
			"method %s is already declared on %s", d.Name.Value, s.b.ir.Lookup(m.Name)))
		return
	}
	doc := docblock.Parse(d.Docblock)
	f := s.functionLike(mname, m.Name, d.Sp, doc, d.Params, d.ReturnHint, m)
	f.Visibility = d.Visibility
	f.IsStatic = d.IsStatic
	f.IsAbstract = d.IsAbstract || m.Kind == ast.KindInterface
	f.IsFinal = d.IsFinal
	f.ByRef = d.ByRef
	m.Methods[mname] = f
}

// functionLike builds signature metadata shared by functions and methods.
// owner is nil for free functions.
func (s *scanner) functionLike(name, definedIn interner.StringId, sp token.Span, doc *docblock.Docblock, params []*ast.Parameter, returnHint *ast.TypeHint, owner *ClassLikeMetadata) *FunctionLikeMetadata {
	f := &FunctionLikeMetadata{Name: name, Span: sp, DefinedIn: definedIn}

	if doc != nil {
		f.Templates = s.templates(doc.Templates, name, owner)
		f.IsPure = doc.IsPure
		f.Deprecated = doc.Deprecated
	}

	for _, p := range params {
		pm := &ParameterMetadata{
			Name:       p.Var.Name,
			Type:       s.hintTypeScoped(p.Hint, owner, f.Templates),
			ByRef:      p.ByRef,
			Variadic:   p.Variadic,
			HasDefault: p.Default != nil,
			Promoted:   p.Promoted,
			Readonly:   p.Readonly,
			Visibility: p.Visibility,
		}
		if doc != nil {
			if raw, ok := doc.Params[p.Var.Name]; ok {
				if parsed, ok := s.docType(raw, owner, f.Templates, p.Sp); ok {
					pm.Type = parsed
				}
			}
		}
		f.Params = append(f.Params, pm)
	}

	f.Return = s.hintTypeScoped(returnHint, owner, f.Templates)
	if doc != nil {
		if doc.Return != "" {
			if parsed, ok := s.docType(doc.Return, owner, f.Templates, f.Span); ok {
				f.Return = parsed
			}
		}
		for _, raw := range doc.Throws {
			f.Throws = append(f.Throws, s.b.ir.Intern(s.table.Qualify(raw)))
		}
		for _, a := range doc.Asserts {
			parsed, ok := s.docType(a.Type, owner, f.Templates, f.Span)
			if !ok {
				continue
			}
			f.Asserts = append(f.Asserts, AssertMetadata{
				Param:   a.Var,
				Type:    parsed,
				Negated: a.Negated,
				IfTrue:  a.IfTrue,
				IfFalse: a.IfFalse,
			})
		}
	}
	return f
}

func (s *scanner) templates(decls []docblock.Template, entity interner.StringId, owner *ClassLikeMetadata) []TemplateParam {
	out := make([]TemplateParam, 0, len(decls))
	for _, t := range decls {
		tp := TemplateParam{
			Name:     s.b.ir.Intern(t.Name),
			Entity:   entity,
			Variance: t.Variance,
		}
		if t.Bound != "" {
			var ownerTemplates []TemplateParam
			if owner != nil {
				ownerTemplates = owner.Templates
			}
			if parsed, ok := s.docType(t.Bound, nil, ownerTemplates, token.Span{}); ok {
				tp.Bound = parsed
			}
		}
		out = append(out, tp)
	}
	return out
}

// docType parses a docblock type string in the given class/function scope.
func (s *scanner) docType(raw string, owner *ClassLikeMetadata, fnTemplates []TemplateParam, at token.Span) (*typesystem.Union, bool) {
	var groups [][]TemplateParam
	if owner != nil {
		groups = append(groups, owner.Templates)
	}
	groups = append(groups, fnTemplates)
	scope := &typesystem.ParseScope{
		Templates:   s.b.templateScope(groups...),
		ResolveName: s.table.Qualify,
	}
	u, err := typesystem.ParseString(s.b.ir, raw, scope)
	if err != nil {
		s.b.diags.Report(diagnostics.New(diagnostics.InvalidDocblockType, at,
			"cannot parse docblock type %q: %v", raw, err))
		return nil, false
	}
	return u, true
}

// hintType resolves a native hint in class scope.
func (s *scanner) hintType(h *ast.TypeHint, owner *ClassLikeMetadata) *typesystem.Union {
	return s.hintTypeScoped(h, owner, nil)
}

func (s *scanner) hintTypeScoped(h *ast.TypeHint, owner *ClassLikeMetadata, fnTemplates []TemplateParam) *typesystem.Union {
	if h == nil {
		return nil
	}
	u := s.hintUnion(h, owner, fnTemplates)
	if h.Nullable && u != nil {
		u = typesystem.Nullable(u)
	}
	return u
}

func (s *scanner) hintUnion(h *ast.TypeHint, owner *ClassLikeMetadata, fnTemplates []TemplateParam) *typesystem.Union {
	switch {
	case len(h.Union) > 0:
		atomics := make([]typesystem.Atomic, 0, len(h.Union))
		for _, part := range h.Union {
			if pu := s.hintTypeScoped(part, owner, fnTemplates); pu != nil {
				atomics = append(atomics, pu.Atomics...)
			}
		}
		return typesystem.NewUnion(atomics...)
	case len(h.Intersection) > 0:
		first := s.hintTypeScoped(h.Intersection[0], owner, fnTemplates)
		if first == nil || len(first.Atomics) != 1 {
			return first
		}
		base, ok := first.Atomics[0].(typesystem.TNamedObject)
		if !ok {
			return first
		}
		for _, part := range h.Intersection[1:] {
			pu := s.hintTypeScoped(part, owner, fnTemplates)
			if pu != nil && len(pu.Atomics) == 1 {
				base.Intersections = append(base.Intersections, pu.Atomics[0])
			}
		}
		return typesystem.NewUnion(base)
	}
	return s.hintName(h.Name, owner, fnTemplates)
}

func (s *scanner) hintName(name string, owner *ClassLikeMetadata, fnTemplates []TemplateParam) *typesystem.Union {
	switch strings.ToLower(name) {
	case "int":
		return typesystem.Int()
	case "float":
		return typesystem.Float()
	case "string":
		return typesystem.String()
	case "bool":
		return typesystem.Bool()
	case "null":
		return typesystem.Null()
	case "void":
		return typesystem.Void()
	case "never":
		return typesystem.Never()
	case "mixed":
		return typesystem.Mixed()
	case "array":
		return typesystem.NewUnion(typesystem.TArray{Key: arrayKey(), Value: typesystem.Mixed()})
	case "iterable":
		return typesystem.NewUnion(typesystem.TIterable{Key: typesystem.Mixed(), Value: typesystem.Mixed()})
	case "object":
		return typesystem.NewUnion(typesystem.TAnonObject{})
	case "callable":
		return typesystem.NewUnion(typesystem.TCallable{Return: typesystem.Mixed()})
	case "self":
		if owner != nil {
			return typesystem.NamedObject(owner.Name)
		}
	case "static":
		if owner != nil {
			return typesystem.NewUnion(typesystem.TNamedObject{Name: owner.Name, IsThis: true})
		}
	case "parent":
		if owner != nil && owner.Parent != 0 {
			return typesystem.NamedObject(owner.Parent)
		}
	}

	// A bare template parameter name in a native hint position is not
	// legal syntax, but docblock-declared templates leak into hints in
	// the wild; honor them.
	for _, tp := range fnTemplates {
		if s.b.ir.Lookup(tp.Name) == name {
			return typesystem.NewUnion(typesystem.TGenericParam{Name: tp.Name, DefiningEntity: tp.Entity, Bound: tp.Bound})
		}
	}
	if owner != nil {
		for _, tp := range owner.Templates {
			if s.b.ir.Lookup(tp.Name) == name {
				return typesystem.NewUnion(typesystem.TGenericParam{Name: tp.Name, DefiningEntity: tp.Entity, Bound: tp.Bound})
			}
		}
	}

	return typesystem.NewUnion(typesystem.TReference{Name: s.b.ir.Intern(s.table.Qualify(name))})
}

func arrayKey() *typesystem.Union {
	return typesystem.NewUnion(typesystem.TInt{}, typesystem.TString{})
}

// literalType infers a type from a constant initializer expression.
// Anything beyond simple literals stays mixed.
func literalType(e ast.Expression) *typesystem.Union {
	switch v := e.(type) {
	case *ast.IntLiteral:
		return typesystem.IntLiteral(v.Value)
	case *ast.FloatLiteral:
		return typesystem.FloatLiteral(v.Value)
	case *ast.StringLiteral:
		return typesystem.StringLiteral(v.Value)
	case *ast.BoolLiteral:
		return typesystem.BoolLiteral(v.Value)
	case *ast.NullLiteral:
		return typesystem.Null()
	case *ast.UnaryExpression:
		if inner, ok := v.Operand.(*ast.IntLiteral); ok && v.Operator == token.MINUS {
			return typesystem.IntLiteral(-inner.Value)
		}
	case *ast.ArrayLiteral:
		if len(v.Items) == 0 {
			return typesystem.EmptyArray()
		}
		return typesystem.NewUnion(typesystem.TArray{Key: arrayKey(), Value: typesystem.Mixed(), NonEmpty: true})
	case nil:
		return nil
	}
	return typesystem.Mixed()
}
