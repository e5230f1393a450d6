package parser

import (
	"github.com/mago-lang/mago/internal/ast"
	"github.com/mago-lang/mago/internal/token"
)

// parseCallExpression turns `callee(` into a call. A call on a bare name
// stays a CallExpression over a ConstFetch callee; the resolver decides
// later whether it is a known function.
func (p *Parser) parseCallExpression(callee ast.Expression) ast.Expression {
	args := p.parseArguments()
	return &ast.CallExpression{
		Sp:     callee.Span().Join(p.curToken.Span),
		Callee: callee,
		Args:   args,
	}
}

// parseArguments parses `(...)` with the current token on `(`. Supports
// named arguments (`f(width: 10)`) and spreads (`f(...$args)`).
func (p *Parser) parseArguments() []*ast.Argument {
	var args []*ast.Argument
	for !p.peekTokenIs(token.RPAREN) && !p.peekTokenIs(token.EOF) {
		p.nextToken()
		arg := &ast.Argument{Sp: p.curToken.Span}
		if p.curTokenIs(token.ELLIPSIS) {
			arg.Spread = true
			p.nextToken()
		} else if p.curTokenIs(token.IDENT) && p.peekTokenIs(token.COLON) && p.lookAhead(1).Type != token.COLON {
			arg.Name = p.curToken.Literal
			p.nextToken() // :
			p.nextToken()
		}
		arg.Value = p.parseExpression(LOWEST)
		if arg.Value == nil {
			break
		}
		arg.Sp = arg.Sp.Join(arg.Value.Span())
		args = append(args, arg)
		if p.peekTokenIs(token.COMMA) {
			p.nextToken()
		}
	}
	p.expectPeek(token.RPAREN)
	return args
}

func (p *Parser) parseArrayAccess(array ast.Expression) ast.Expression {
	expr := &ast.ArrayAccessExpression{Array: array}
	if p.peekTokenIs(token.RBRACKET) {
		// push syntax `$a[] = v`
		p.nextToken()
		expr.Sp = array.Span().Join(p.curToken.Span)
		return expr
	}
	p.nextToken()
	expr.Index = p.parseExpression(LOWEST)
	if expr.Index == nil {
		return nil
	}
	if !p.expectPeek(token.RBRACKET) {
		return nil
	}
	expr.Sp = array.Span().Join(p.curToken.Span)
	return expr
}

// parseMemberAccess handles `->` and `?->`: a method call when the member
// name is followed by `(`, a property access otherwise.
func (p *Parser) parseMemberAccess(receiver ast.Expression) ast.Expression {
	nullSafe := p.curTokenIs(token.NULLSAFE_ARROW)
	p.nextToken()
	if !p.curTokenIs(token.IDENT) && !memberKeyword(p.curToken.Type) {
		if p.curTokenIs(token.VARIABLE) {
			// Dynamic member `$obj->$name`: keep the receiver typed, the
			// member unresolved.
			return &ast.PropertyAccessExpression{
				Sp:       receiver.Span().Join(p.curToken.Span),
				Receiver: receiver,
				Property: &ast.Name{Sp: p.curToken.Span, Value: ""},
				NullSafe: nullSafe,
			}
		}
		p.errorAt(p.curToken.Span, "expected member name, found %q", p.curToken.Literal)
		return nil
	}
	name := &ast.Name{Sp: p.curToken.Span, Value: p.curToken.Literal}

	if p.peekTokenIs(token.LPAREN) {
		p.nextToken()
		args := p.parseArguments()
		return &ast.MethodCallExpression{
			Sp:       receiver.Span().Join(p.curToken.Span),
			Receiver: receiver,
			Method:   name,
			Args:     args,
			NullSafe: nullSafe,
		}
	}
	return &ast.PropertyAccessExpression{
		Sp:       receiver.Span().Join(name.Sp),
		Receiver: receiver,
		Property: name,
		NullSafe: nullSafe,
	}
}

// memberKeyword allows keywords as member names (`$obj->list()`).
func memberKeyword(t token.Type) bool {
	switch t {
	case token.LIST, token.ARRAY, token.MATCH, token.DEFAULT, token.CLASS,
		token.STATIC, token.USE, token.UNSET, token.EMPTY, token.ISSET:
		return true
	}
	return false
}

// parseStaticAccess handles `Cls::member`: static calls, class constant
// fetches, `Cls::class` and static properties.
func (p *Parser) parseStaticAccess(class ast.Expression) ast.Expression {
	cf, ok := class.(*ast.ConstFetchExpression)
	if !ok {
		p.errorAt(class.Span(), "dynamic class references are not supported before ::")
		return nil
	}
	className := cf.Name

	p.nextToken()
	switch {
	case p.curTokenIs(token.CLASS):
		return &ast.ClassConstAccessExpression{
			Sp:    class.Span().Join(p.curToken.Span),
			Class: className,
			Const: &ast.Name{Sp: p.curToken.Span, Value: "class"},
		}
	case p.curTokenIs(token.VARIABLE):
		return &ast.StaticPropertyAccessExpression{
			Sp:       class.Span().Join(p.curToken.Span),
			Class:    className,
			Property: p.curToken.Literal[1:],
		}
	case p.curTokenIs(token.IDENT) || memberKeyword(p.curToken.Type):
		name := &ast.Name{Sp: p.curToken.Span, Value: p.curToken.Literal}
		if p.peekTokenIs(token.LPAREN) {
			p.nextToken()
			args := p.parseArguments()
			return &ast.StaticCallExpression{
				Sp:     class.Span().Join(p.curToken.Span),
				Class:  className,
				Method: name,
				Args:   args,
			}
		}
		return &ast.ClassConstAccessExpression{
			Sp:    class.Span().Join(name.Sp),
			Class: className,
			Const: name,
		}
	default:
		p.errorAt(p.curToken.Span, "expected member after ::, found %q", p.curToken.Literal)
		return nil
	}
}

// parseClosureExpression parses `function (...) use (...) { ... }` with
// the current token on `function`.
func (p *Parser) parseClosureExpression() ast.Expression {
	start := p.curToken.Span
	doc := p.takeDoc()
	if p.peekTokenIs(token.AMPERSAND) {
		p.nextToken()
	}
	if !p.expectPeek(token.LPAREN) {
		return nil
	}
	closure := &ast.ClosureExpression{Docblock: doc}
	closure.Params = p.parseParameterList()

	if p.peekTokenIs(token.USE) {
		p.nextToken()
		if !p.expectPeek(token.LPAREN) {
			return nil
		}
		for !p.peekTokenIs(token.RPAREN) && !p.peekTokenIs(token.EOF) {
			p.nextToken()
			use := &ast.ClosureUse{Sp: p.curToken.Span}
			if p.curTokenIs(token.AMPERSAND) {
				use.ByRef = true
				p.nextToken()
			}
			if !p.curTokenIs(token.VARIABLE) {
				p.errorAt(p.curToken.Span, "expected variable in use clause")
				return nil
			}
			use.Var = &ast.VariableExpression{Sp: p.curToken.Span, Name: p.curToken.Literal[1:]}
			use.Sp = use.Sp.Join(p.curToken.Span)
			closure.Uses = append(closure.Uses, use)
			if p.peekTokenIs(token.COMMA) {
				p.nextToken()
			}
		}
		if !p.expectPeek(token.RPAREN) {
			return nil
		}
	}

	if p.peekTokenIs(token.COLON) {
		p.nextToken()
		closure.ReturnHint = p.parseTypeHint()
	}
	if !p.expectPeek(token.LBRACE) {
		return nil
	}
	closure.Body = p.parseBlockStatement()
	closure.Sp = p.spanFrom(start)
	return closure
}

// parseArrowFunction parses `fn (...) => expr` with the current token on
// `fn`.
func (p *Parser) parseArrowFunction() ast.Expression {
	start := p.curToken.Span
	doc := p.takeDoc()
	if p.peekTokenIs(token.AMPERSAND) {
		p.nextToken()
	}
	if !p.expectPeek(token.LPAREN) {
		return nil
	}
	fn := &ast.ArrowFunctionExpression{Docblock: doc}
	fn.Params = p.parseParameterList()

	if p.peekTokenIs(token.COLON) {
		p.nextToken()
		fn.ReturnHint = p.parseTypeHint()
	}
	if !p.expectPeek(token.DOUBLE_ARROW) {
		return nil
	}
	p.nextToken()
	fn.Body = p.parseExpression(LOWEST)
	if fn.Body == nil {
		return nil
	}
	fn.Sp = start.Join(fn.Body.Span())
	return fn
}
