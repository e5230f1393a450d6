package parser

import (
	"github.com/mago-lang/mago/internal/ast"
	"github.com/mago-lang/mago/internal/token"
)

func (p *Parser) parseFunctionDeclaration() ast.Statement {
	start := p.curToken.Span
	doc := p.takeDoc()

	decl := &ast.FunctionDeclaration{Docblock: doc}
	if p.peekTokenIs(token.AMPERSAND) {
		p.nextToken()
		decl.ByRef = true
	}
	if !p.expectPeek(token.IDENT) {
		p.skipToStatementBoundary()
		return &ast.MissingStatement{Sp: p.spanFrom(start)}
	}
	decl.Name = &ast.Name{Sp: p.curToken.Span, Value: p.curToken.Literal}

	if !p.expectPeek(token.LPAREN) {
		p.skipToStatementBoundary()
		return &ast.MissingStatement{Sp: p.spanFrom(start)}
	}
	decl.Params = p.parseParameterList()

	if p.peekTokenIs(token.COLON) {
		p.nextToken()
		decl.ReturnHint = p.parseTypeHint()
	}
	if !p.expectPeek(token.LBRACE) {
		p.skipToStatementBoundary()
		return &ast.MissingStatement{Sp: p.spanFrom(start)}
	}
	decl.Body = p.parseBlockStatement()
	decl.Sp = p.spanFrom(start)
	return decl
}

// parseParameterList parses `(...)` with the current token on `(`.
func (p *Parser) parseParameterList() []*ast.Parameter {
	var params []*ast.Parameter
	for !p.peekTokenIs(token.RPAREN) && !p.peekTokenIs(token.EOF) {
		p.nextToken()
		param := &ast.Parameter{Sp: p.curToken.Span}

		// Promoted constructor property: visibility (and optional
		// readonly) before the parameter.
		for {
			switch p.curToken.Type {
			case token.PUBLIC:
				param.Promoted, param.Visibility = true, ast.Public
			case token.PROTECTED:
				param.Promoted, param.Visibility = true, ast.Protected
			case token.PRIVATE:
				param.Promoted, param.Visibility = true, ast.Private
			case token.READONLY:
				param.Readonly = true
			default:
				goto hint
			}
			p.nextToken()
		}
	hint:
		if hintStart(p.curToken.Type) {
			param.Hint = p.parseTypeHintAtCur()
			p.nextToken()
		}
		if p.curTokenIs(token.AMPERSAND) {
			param.ByRef = true
			p.nextToken()
		}
		if p.curTokenIs(token.ELLIPSIS) {
			param.Variadic = true
			p.nextToken()
		}
		if !p.curTokenIs(token.VARIABLE) {
			p.errorAt(p.curToken.Span, "expected parameter variable, found %q", p.curToken.Literal)
			p.skipToStatementBoundary()
			return params
		}
		param.Var = &ast.VariableExpression{Sp: p.curToken.Span, Name: p.curToken.Literal[1:]}

		if p.peekTokenIs(token.ASSIGN) {
			p.nextToken()
			p.nextToken()
			param.Default = p.parseExpression(LOWEST)
		}
		param.Sp = param.Sp.Join(p.curToken.Span)
		params = append(params, param)
		if p.peekTokenIs(token.COMMA) {
			p.nextToken()
		}
	}
	p.expectPeek(token.RPAREN)
	return params
}

// hintStart reports whether a token can begin a native type hint.
func hintStart(t token.Type) bool {
	switch t {
	case token.IDENT, token.QUESTION, token.BACKSLASH, token.ARRAY,
		token.STATIC, token.NULL, token.LPAREN:
		return true
	}
	return false
}

// parseTypeHint advances to the hint and parses it; the caller sits on
// the token before the hint.
func (p *Parser) parseTypeHint() *ast.TypeHint {
	p.nextToken()
	return p.parseTypeHintAtCur()
}

// parseTypeHintAtCur parses a native hint starting at the current token:
// `?T`, `A|B`, `A&B`, simple and qualified names. The current token ends
// on the last token of the hint.
func (p *Parser) parseTypeHintAtCur() *ast.TypeHint {
	start := p.curToken.Span
	nullable := false
	if p.curTokenIs(token.QUESTION) {
		nullable = true
		p.nextToken()
	}

	first := p.parseTypeHintAtom()
	if first == nil {
		return &ast.TypeHint{Sp: p.spanFrom(start), Nullable: nullable}
	}

	switch {
	case p.peekTokenIs(token.PIPE):
		hint := &ast.TypeHint{Nullable: nullable, Union: []*ast.TypeHint{first}}
		for p.peekTokenIs(token.PIPE) {
			p.nextToken()
			p.nextToken()
			next := p.parseTypeHintAtom()
			if next == nil {
				break
			}
			hint.Union = append(hint.Union, next)
		}
		hint.Sp = p.spanFrom(start)
		return hint
	case p.peekTokenIs(token.AMPERSAND) && p.lookAhead(1).Type == token.IDENT:
		hint := &ast.TypeHint{Nullable: nullable, Intersection: []*ast.TypeHint{first}}
		for p.peekTokenIs(token.AMPERSAND) && p.lookAhead(1).Type == token.IDENT {
			p.nextToken()
			p.nextToken()
			next := p.parseTypeHintAtom()
			if next == nil {
				break
			}
			hint.Intersection = append(hint.Intersection, next)
		}
		hint.Sp = p.spanFrom(start)
		return hint
	default:
		first.Nullable = nullable
		first.Sp = start.Join(first.Sp)
		return first
	}
}

func (p *Parser) parseTypeHintAtom() *ast.TypeHint {
	switch p.curToken.Type {
	case token.IDENT, token.ARRAY, token.STATIC, token.NULL:
		name := p.parseQualifiedName()
		return &ast.TypeHint{Sp: name.Sp, Name: name.Value}
	case token.BACKSLASH:
		name := p.parseQualifiedName()
		return &ast.TypeHint{Sp: name.Sp, Name: name.Value}
	case token.LPAREN:
		// DNF hint `(A&B)|C`
		p.nextToken()
		inner := p.parseTypeHintAtCur()
		p.expectPeek(token.RPAREN)
		return inner
	default:
		p.errorAt(p.curToken.Span, "expected type, found %q", p.curToken.Literal)
		return nil
	}
}

func (p *Parser) parseConstDeclaration() ast.Statement {
	start := p.curToken.Span
	if !p.expectPeek(token.IDENT) {
		p.skipToStatementBoundary()
		return &ast.MissingStatement{Sp: p.spanFrom(start)}
	}
	decl := &ast.ConstDeclaration{Name: &ast.Name{Sp: p.curToken.Span, Value: p.curToken.Literal}}
	if !p.expectPeek(token.ASSIGN) {
		p.skipToStatementBoundary()
		return &ast.MissingStatement{Sp: p.spanFrom(start)}
	}
	p.nextToken()
	decl.Value = p.parseExpression(LOWEST)
	if decl.Value == nil {
		p.skipToStatementBoundary()
		return &ast.MissingStatement{Sp: p.spanFrom(start)}
	}
	if p.peekTokenIs(token.SEMICOLON) {
		p.nextToken()
	}
	decl.Sp = p.spanFrom(start)
	return decl
}

func (p *Parser) parseClassLikeDeclaration() ast.Statement {
	start := p.curToken.Span
	doc := p.takeDoc()

	decl := &ast.ClassLikeDeclaration{Docblock: doc}
	for {
		switch p.curToken.Type {
		case token.ABSTRACT:
			decl.IsAbstract = true
		case token.FINAL:
			decl.IsFinal = true
		case token.READONLY:
			decl.IsReadonly = true
		case token.CLASS:
			decl.Kind = ast.KindClass
			goto name
		case token.INTERFACE:
			decl.Kind = ast.KindInterface
			goto name
		case token.TRAIT:
			decl.Kind = ast.KindTrait
			goto name
		case token.ENUM:
			decl.Kind = ast.KindEnum
			goto name
		default:
			p.errorAt(p.curToken.Span, "expected class-like keyword, found %q", p.curToken.Literal)
			p.skipToStatementBoundary()
			return &ast.MissingStatement{Sp: p.spanFrom(start)}
		}
		p.nextToken()
	}

name:
	if !p.expectPeek(token.IDENT) {
		p.skipToStatementBoundary()
		return &ast.MissingStatement{Sp: p.spanFrom(start)}
	}
	decl.Name = &ast.Name{Sp: p.curToken.Span, Value: p.curToken.Literal}

	// enum Foo: string
	if decl.Kind == ast.KindEnum && p.peekTokenIs(token.COLON) {
		p.nextToken()
		decl.BackingHint = p.parseTypeHint()
	}

	if p.peekTokenIs(token.EXTENDS) {
		p.nextToken()
		p.nextToken()
		first := p.parseQualifiedName()
		if decl.Kind == ast.KindInterface {
			// interfaces may extend several bases
			decl.Interfaces = append(decl.Interfaces, first)
			for p.peekTokenIs(token.COMMA) {
				p.nextToken()
				p.nextToken()
				decl.Interfaces = append(decl.Interfaces, p.parseQualifiedName())
			}
		} else {
			decl.Parent = first
		}
	}

	if p.peekTokenIs(token.IMPLEMENTS) {
		p.nextToken()
		for {
			p.nextToken()
			decl.Interfaces = append(decl.Interfaces, p.parseQualifiedName())
			if !p.peekTokenIs(token.COMMA) {
				break
			}
			p.nextToken()
		}
	}

	if !p.expectPeek(token.LBRACE) {
		p.skipToStatementBoundary()
		return &ast.MissingStatement{Sp: p.spanFrom(start)}
	}

	p.nextToken()
	for !p.curTokenIs(token.RBRACE) && !p.curTokenIs(token.EOF) {
		p.parseClassMember(decl)
		p.nextToken()
	}
	if p.curTokenIs(token.EOF) {
		p.errorAt(p.curToken.Span, "unterminated %s body", decl.Kind)
	}
	decl.Sp = p.spanFrom(start)
	return decl
}

// parseClassMember parses one member into decl, with the current token on
// the first token of the member.
func (p *Parser) parseClassMember(decl *ast.ClassLikeDeclaration) {
	start := p.curToken.Span
	doc := p.takeDoc()

	if p.curTokenIs(token.SEMICOLON) {
		return
	}

	// `use TraitA, TraitB;`
	if p.curTokenIs(token.USE) {
		for {
			p.nextToken()
			decl.Uses = append(decl.Uses, p.parseQualifiedName())
			if !p.peekTokenIs(token.COMMA) {
				break
			}
			p.nextToken()
		}
		// conflict-resolution blocks are consumed without modeling
		if p.peekTokenIs(token.LBRACE) {
			p.nextToken()
			depth := 1
			for depth > 0 && !p.curTokenIs(token.EOF) {
				p.nextToken()
				switch p.curToken.Type {
				case token.LBRACE:
					depth++
				case token.RBRACE:
					depth--
				}
			}
		} else if p.peekTokenIs(token.SEMICOLON) {
			p.nextToken()
		}
		return
	}

	// `case Foo;` / `case Foo = 'f';` inside enums
	if p.curTokenIs(token.CASE) && decl.Kind == ast.KindEnum {
		if !p.expectPeek(token.IDENT) {
			p.skipToStatementBoundary()
			return
		}
		c := &ast.EnumCaseDeclaration{Name: &ast.Name{Sp: p.curToken.Span, Value: p.curToken.Literal}}
		if p.peekTokenIs(token.ASSIGN) {
			p.nextToken()
			p.nextToken()
			c.Backing = p.parseExpression(LOWEST)
		}
		if p.peekTokenIs(token.SEMICOLON) {
			p.nextToken()
		}
		c.Sp = start.Join(p.curToken.Span)
		decl.Cases = append(decl.Cases, c)
		return
	}

	visibility := ast.Public
	isStatic, isAbstract, isFinal, isReadonly := false, false, false, false
	seenModifier := false
mods:
	for {
		switch p.curToken.Type {
		case token.PUBLIC:
			visibility = ast.Public
		case token.PROTECTED:
			visibility = ast.Protected
		case token.PRIVATE:
			visibility = ast.Private
		case token.STATIC:
			isStatic = true
		case token.ABSTRACT:
			isAbstract = true
		case token.FINAL:
			isFinal = true
		case token.READONLY:
			isReadonly = true
		default:
			break mods
		}
		seenModifier = true
		p.nextToken()
	}

	switch {
	case p.curTokenIs(token.CONST):
		if !p.expectPeek(token.IDENT) {
			p.skipToStatementBoundary()
			return
		}
		c := &ast.ClassConstDeclaration{
			Name:       &ast.Name{Sp: p.curToken.Span, Value: p.curToken.Literal},
			Visibility: visibility,
			IsFinal:    isFinal,
		}
		if !p.expectPeek(token.ASSIGN) {
			p.skipToStatementBoundary()
			return
		}
		p.nextToken()
		c.Value = p.parseExpression(LOWEST)
		if p.peekTokenIs(token.SEMICOLON) {
			p.nextToken()
		}
		c.Sp = start.Join(p.curToken.Span)
		decl.Consts = append(decl.Consts, c)

	case p.curTokenIs(token.FUNCTION):
		m := &ast.MethodDeclaration{
			Visibility: visibility,
			IsStatic:   isStatic,
			IsAbstract: isAbstract,
			IsFinal:    isFinal,
			Docblock:   doc,
		}
		if p.peekTokenIs(token.AMPERSAND) {
			p.nextToken()
			m.ByRef = true
		}
		p.nextToken()
		if !p.curTokenIs(token.IDENT) && !memberKeyword(p.curToken.Type) {
			p.errorAt(p.curToken.Span, "expected method name, found %q", p.curToken.Literal)
			p.skipToStatementBoundary()
			return
		}
		m.Name = &ast.Name{Sp: p.curToken.Span, Value: p.curToken.Literal}
		if !p.expectPeek(token.LPAREN) {
			p.skipToStatementBoundary()
			return
		}
		m.Params = p.parseParameterList()
		if p.peekTokenIs(token.COLON) {
			p.nextToken()
			m.ReturnHint = p.parseTypeHint()
		}
		if p.peekTokenIs(token.LBRACE) {
			p.nextToken()
			m.Body = p.parseBlockStatement()
		} else if p.peekTokenIs(token.SEMICOLON) {
			// abstract or interface method
			p.nextToken()
		}
		m.Sp = start.Join(p.curToken.Span)
		decl.Methods = append(decl.Methods, m)

	case p.curTokenIs(token.VARIABLE) || hintStart(p.curToken.Type):
		prop := &ast.PropertyDeclaration{
			Visibility: visibility,
			IsStatic:   isStatic,
			IsReadonly: isReadonly,
			Docblock:   doc,
		}
		if !p.curTokenIs(token.VARIABLE) {
			prop.Hint = p.parseTypeHintAtCur()
			p.nextToken()
		}
		if !p.curTokenIs(token.VARIABLE) {
			p.errorAt(p.curToken.Span, "expected property variable, found %q", p.curToken.Literal)
			p.skipToStatementBoundary()
			return
		}
		prop.Var = &ast.VariableExpression{Sp: p.curToken.Span, Name: p.curToken.Literal[1:]}
		if p.peekTokenIs(token.ASSIGN) {
			p.nextToken()
			p.nextToken()
			prop.Default = p.parseExpression(LOWEST)
		}
		if p.peekTokenIs(token.SEMICOLON) {
			p.nextToken()
		}
		prop.Sp = start.Join(p.curToken.Span)
		decl.Properties = append(decl.Properties, prop)

	default:
		if seenModifier {
			p.errorAt(p.curToken.Span, "expected member after modifiers, found %q", p.curToken.Literal)
		} else {
			p.errorAt(p.curToken.Span, "unexpected %q in %s body", p.curToken.Literal, decl.Kind)
		}
		p.skipToStatementBoundary()
	}
}
