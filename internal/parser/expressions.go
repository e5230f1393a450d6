package parser

import (
	"strconv"
	"strings"

	"github.com/mago-lang/mago/internal/ast"
	"github.com/mago-lang/mago/internal/diagnostics"
	"github.com/mago-lang/mago/internal/token"
)

func (p *Parser) parseExpression(precedence int) ast.Expression {
	p.depth++
	defer func() { p.depth-- }()

	if p.depth > MaxRecursionDepth {
		if !p.inRecursionRecovery {
			p.diags.Report(diagnostics.New(
				diagnostics.ExpressionTooDeep,
				p.curToken.Span,
				"expression too complex: recursion depth limit exceeded",
			))
			p.inRecursionRecovery = true
		}
		p.skipToStatementBoundary()
		p.inRecursionRecovery = false
		return nil
	}

	prefix := p.prefixParseFns[p.curToken.Type]
	if prefix == nil {
		p.noPrefixParseFnError()
		return nil
	}
	leftExp := prefix()

	for leftExp != nil && precedence < p.peekPrecedence() {
		infix := p.infixParseFns[p.peekToken.Type]
		if infix == nil {
			return leftExp
		}
		p.nextToken()
		leftExp = infix(leftExp)
	}

	return leftExp
}

func (p *Parser) noPrefixParseFnError() {
	if p.curTokenIs(token.EOF) {
		p.errorAt(p.curToken.Span, "unexpected end of file")
		return
	}
	p.errorAt(p.curToken.Span, "unexpected %q", p.curToken.Literal)
}

// ---- prefix ----

func (p *Parser) parseVariable() ast.Expression {
	return &ast.VariableExpression{Sp: p.curToken.Span, Name: p.curToken.Literal[1:]}
}

func (p *Parser) parseIntLiteral() ast.Expression {
	lit := strings.ReplaceAll(p.curToken.Literal, "_", "")
	v, err := strconv.ParseInt(lit, 0, 64)
	if err != nil {
		p.errorAt(p.curToken.Span, "could not parse %q as integer", p.curToken.Literal)
		return &ast.MissingExpression{Sp: p.curToken.Span}
	}
	return &ast.IntLiteral{Sp: p.curToken.Span, Value: v}
}

func (p *Parser) parseFloatLiteral() ast.Expression {
	lit := strings.ReplaceAll(p.curToken.Literal, "_", "")
	v, err := strconv.ParseFloat(lit, 64)
	if err != nil {
		p.errorAt(p.curToken.Span, "could not parse %q as float", p.curToken.Literal)
		return &ast.MissingExpression{Sp: p.curToken.Span}
	}
	return &ast.FloatLiteral{Sp: p.curToken.Span, Value: v}
}

func (p *Parser) parseStringLiteral() ast.Expression {
	return &ast.StringLiteral{Sp: p.curToken.Span, Value: p.curToken.Literal}
}

// parseInterpStringLiteral keeps the raw text; the analyzer types
// interpolated strings as general string.
func (p *Parser) parseInterpStringLiteral() ast.Expression {
	return &ast.StringLiteral{Sp: p.curToken.Span, Value: p.curToken.Literal}
}

func (p *Parser) parseBoolLiteral() ast.Expression {
	return &ast.BoolLiteral{Sp: p.curToken.Span, Value: p.curTokenIs(token.TRUE)}
}

func (p *Parser) parseNullLiteral() ast.Expression {
	return &ast.NullLiteral{Sp: p.curToken.Span}
}

// parseQualifiedName reads `Foo`, `Foo\Bar` or `\Foo\Bar` starting at the
// current token.
func (p *Parser) parseQualifiedName() *ast.Name {
	start := p.curToken.Span
	var sb strings.Builder
	sb.WriteString(p.curToken.Literal)
	if p.curTokenIs(token.BACKSLASH) {
		if !p.expectPeek(token.IDENT) {
			return &ast.Name{Sp: p.spanFrom(start), Value: sb.String()}
		}
		sb.WriteString(p.curToken.Literal)
	}
	for p.peekTokenIs(token.BACKSLASH) {
		p.nextToken()
		sb.WriteString(p.curToken.Literal)
		if !p.expectPeek(token.IDENT) {
			break
		}
		sb.WriteString(p.curToken.Literal)
	}
	return &ast.Name{Sp: p.spanFrom(start), Value: sb.String()}
}

// parseNameExpression is the prefix handler for a bare name: a constant
// fetch until an infix handler turns it into a call or static access.
func (p *Parser) parseNameExpression() ast.Expression {
	name := p.parseQualifiedName()
	return &ast.ConstFetchExpression{Sp: name.Sp, Name: name}
}

// parseStaticPrefix handles `static` in expression position: either a
// static closure (`static function`/`static fn`) or the `static` class
// reference before `::`.
func (p *Parser) parseStaticPrefix() ast.Expression {
	if p.peekTokenIs(token.FUNCTION) {
		p.nextToken()
		c := p.parseClosureExpression()
		if cl, ok := c.(*ast.ClosureExpression); ok {
			cl.IsStatic = true
		}
		return c
	}
	if p.peekTokenIs(token.FN) {
		p.nextToken()
		c := p.parseArrowFunction()
		if af, ok := c.(*ast.ArrowFunctionExpression); ok {
			af.IsStatic = true
		}
		return c
	}
	name := &ast.Name{Sp: p.curToken.Span, Value: "static"}
	return &ast.ConstFetchExpression{Sp: name.Sp, Name: name}
}

func (p *Parser) parsePrefixExpression() ast.Expression {
	start := p.curToken.Span
	op := p.curToken.Type
	p.nextToken()
	operand := p.parseExpression(PREFIX)
	if operand == nil {
		return nil
	}
	return &ast.UnaryExpression{Sp: start.Join(operand.Span()), Operator: op, Operand: operand}
}

var castKinds = map[string]string{
	"int": "int", "integer": "int",
	"float": "float", "double": "float",
	"string": "string",
	"bool":   "bool", "boolean": "bool",
	"array":  "array",
	"object": "object",
}

// parseGroupedOrCast disambiguates `(expr)` from `(int) expr`.
func (p *Parser) parseGroupedOrCast() ast.Expression {
	start := p.curToken.Span
	if kind, ok := castAhead(p); ok {
		p.nextToken() // cast word
		p.nextToken() // )
		p.nextToken() // start of operand
		operand := p.parseExpression(PREFIX)
		if operand == nil {
			return nil
		}
		return &ast.CastExpression{Sp: start.Join(operand.Span()), Kind: kind, Operand: operand}
	}

	p.nextToken()
	exp := p.parseExpression(LOWEST)
	if exp == nil {
		return nil
	}
	if !p.expectPeek(token.RPAREN) {
		return nil
	}
	return exp
}

func castAhead(p *Parser) (string, bool) {
	if p.peekToken.Type != token.IDENT && p.peekToken.Type != token.ARRAY {
		return "", false
	}
	kind, ok := castKinds[strings.ToLower(p.peekToken.Literal)]
	if !ok {
		return "", false
	}
	// Needs lookahead past peek for the `)`. The lexer window is two
	// tokens, so clone-free lookahead is done on the raw input.
	return kind, p.closeParenAfterPeek()
}

func (p *Parser) parseArrayLiteral() ast.Expression {
	start := p.curToken.Span
	arr := &ast.ArrayLiteral{}
	arr.Items = p.parseArrayItems(token.RBRACKET)
	arr.Sp = p.spanFrom(start)
	return arr
}

// parseLegacyArrayLiteral handles `array(...)` and `list(...)`.
func (p *Parser) parseLegacyArrayLiteral() ast.Expression {
	start := p.curToken.Span
	if !p.expectPeek(token.LPAREN) {
		return nil
	}
	arr := &ast.ArrayLiteral{}
	arr.Items = p.parseArrayItems(token.RPAREN)
	arr.Sp = p.spanFrom(start)
	return arr
}

func (p *Parser) parseArrayItems(end token.Type) []*ast.ArrayItem {
	var items []*ast.ArrayItem
	for !p.peekTokenIs(end) && !p.peekTokenIs(token.EOF) {
		p.nextToken()
		item := &ast.ArrayItem{Sp: p.curToken.Span}
		if p.curTokenIs(token.ELLIPSIS) {
			item.Spread = true
			p.nextToken()
		}
		if p.curTokenIs(token.AMPERSAND) {
			item.ByRef = true
			p.nextToken()
		}
		first := p.parseExpression(LOWEST)
		if first == nil {
			break
		}
		if p.peekTokenIs(token.DOUBLE_ARROW) && !item.Spread {
			p.nextToken()
			item.Key = first
			if p.peekTokenIs(token.AMPERSAND) {
				p.nextToken()
				item.ByRef = true
			}
			p.nextToken()
			item.Value = p.parseExpression(LOWEST)
			if item.Value == nil {
				break
			}
		} else {
			item.Value = first
		}
		item.Sp = item.Sp.Join(item.Value.Span())
		items = append(items, item)
		if p.peekTokenIs(token.COMMA) {
			p.nextToken()
		}
	}
	if !p.expectPeek(end) {
		return items
	}
	return items
}

func (p *Parser) parseNewExpression() ast.Expression {
	start := p.curToken.Span
	p.nextToken()
	if !p.curTokenIs(token.IDENT) && !p.curTokenIs(token.BACKSLASH) && !p.curTokenIs(token.STATIC) {
		p.errorAt(p.curToken.Span, "expected class name after new, found %q", p.curToken.Literal)
		return &ast.MissingExpression{Sp: p.spanFrom(start)}
	}
	name := p.parseQualifiedName()
	expr := &ast.NewExpression{Class: name}
	if p.peekTokenIs(token.LPAREN) {
		p.nextToken()
		expr.Args = p.parseArguments()
	}
	expr.Sp = p.spanFrom(start)
	return expr
}

func (p *Parser) parseCloneExpression() ast.Expression {
	start := p.curToken.Span
	p.nextToken()
	operand := p.parseExpression(PREFIX)
	if operand == nil {
		return nil
	}
	return &ast.CloneExpression{Sp: start.Join(operand.Span()), Operand: operand}
}

func (p *Parser) parseThrowExpression() ast.Expression {
	start := p.curToken.Span
	p.nextToken()
	value := p.parseExpression(LOWEST)
	if value == nil {
		return nil
	}
	return &ast.ThrowExpression{Sp: start.Join(value.Span()), Value: value}
}

func (p *Parser) parseIssetExpression() ast.Expression {
	start := p.curToken.Span
	if !p.expectPeek(token.LPAREN) {
		return nil
	}
	vars := p.parseExprListUntil(token.RPAREN)
	if len(vars) == 0 {
		p.errorAt(p.spanFrom(start), "isset needs at least one argument")
	}
	return &ast.IssetExpression{Sp: p.spanFrom(start), Vars: vars}
}

func (p *Parser) parseEmptyExpression() ast.Expression {
	start := p.curToken.Span
	if !p.expectPeek(token.LPAREN) {
		return nil
	}
	p.nextToken()
	value := p.parseExpression(LOWEST)
	if value == nil || !p.expectPeek(token.RPAREN) {
		return nil
	}
	return &ast.EmptyExpression{Sp: p.spanFrom(start), Value: value}
}

func (p *Parser) parseMatchExpression() ast.Expression {
	start := p.curToken.Span
	if !p.expectPeek(token.LPAREN) {
		return nil
	}
	p.nextToken()
	subject := p.parseExpression(LOWEST)
	if subject == nil || !p.expectPeek(token.RPAREN) || !p.expectPeek(token.LBRACE) {
		return nil
	}

	expr := &ast.MatchExpression{Subject: subject}
	for !p.peekTokenIs(token.RBRACE) && !p.peekTokenIs(token.EOF) {
		p.nextToken()
		arm := &ast.MatchArm{Sp: p.curToken.Span}
		if p.curTokenIs(token.DEFAULT) {
			if !p.expectPeek(token.DOUBLE_ARROW) {
				return nil
			}
		} else {
			for {
				c := p.parseExpression(LOWEST)
				if c == nil {
					return nil
				}
				arm.Conditions = append(arm.Conditions, c)
				if p.peekTokenIs(token.COMMA) {
					p.nextToken()
					if p.peekTokenIs(token.DOUBLE_ARROW) {
						break
					}
					p.nextToken()
					continue
				}
				break
			}
			if !p.expectPeek(token.DOUBLE_ARROW) {
				return nil
			}
		}
		p.nextToken()
		arm.Body = p.parseExpression(LOWEST)
		if arm.Body == nil {
			return nil
		}
		arm.Sp = arm.Sp.Join(arm.Body.Span())
		expr.Arms = append(expr.Arms, arm)
		if p.peekTokenIs(token.COMMA) {
			p.nextToken()
		}
	}
	if !p.expectPeek(token.RBRACE) {
		return nil
	}
	expr.Sp = p.spanFrom(start)
	return expr
}

// ---- infix ----

func (p *Parser) parseInfixExpression(left ast.Expression) ast.Expression {
	op := p.curToken.Type
	precedence := p.curPrecedence()
	p.nextToken()
	right := p.parseExpression(precedence)
	if right == nil {
		return nil
	}
	return &ast.BinaryExpression{
		Sp:       left.Span().Join(right.Span()),
		Operator: op,
		Left:     left,
		Right:    right,
	}
}

// parseCoalesceExpression: `??` is right-associative.
func (p *Parser) parseCoalesceExpression(left ast.Expression) ast.Expression {
	op := p.curToken.Type
	precedence := p.curPrecedence()
	p.nextToken()
	right := p.parseExpression(precedence - 1)
	if right == nil {
		return nil
	}
	return &ast.BinaryExpression{
		Sp:       left.Span().Join(right.Span()),
		Operator: op,
		Left:     left,
		Right:    right,
	}
}

func (p *Parser) parseAssignExpression(left ast.Expression) ast.Expression {
	switch left.(type) {
	case *ast.VariableExpression, *ast.ArrayAccessExpression,
		*ast.PropertyAccessExpression, *ast.StaticPropertyAccessExpression,
		*ast.ArrayLiteral:
	default:
		p.errorAt(left.Span(), "invalid assignment target")
	}
	op := p.curToken.Type
	precedence := p.curPrecedence()
	p.nextToken()
	// Right-associative: $a = $b = 1 assigns $b first.
	value := p.parseExpression(precedence - 1)
	if value == nil {
		return nil
	}
	return &ast.AssignExpression{
		Sp:       left.Span().Join(value.Span()),
		Operator: op,
		Target:   left,
		Value:    value,
	}
}

func (p *Parser) parseTernaryExpression(cond ast.Expression) ast.Expression {
	p.nextToken()
	then := p.parseExpression(TERNARY)
	if then == nil {
		return nil
	}
	if !p.expectPeek(token.COLON) {
		return nil
	}
	p.nextToken()
	els := p.parseExpression(TERNARY - 1)
	if els == nil {
		return nil
	}
	return &ast.TernaryExpression{
		Sp:        cond.Span().Join(els.Span()),
		Condition: cond,
		Then:      then,
		Else:      els,
	}
}

func (p *Parser) parseElvisExpression(cond ast.Expression) ast.Expression {
	p.nextToken()
	els := p.parseExpression(TERNARY - 1)
	if els == nil {
		return nil
	}
	return &ast.TernaryExpression{
		Sp:        cond.Span().Join(els.Span()),
		Condition: cond,
		Then:      nil,
		Else:      els,
	}
}

func (p *Parser) parseInstanceofExpression(left ast.Expression) ast.Expression {
	p.nextToken()
	if !p.curTokenIs(token.IDENT) && !p.curTokenIs(token.BACKSLASH) && !p.curTokenIs(token.STATIC) {
		p.errorAt(p.curToken.Span, "expected class name after instanceof")
		return nil
	}
	name := p.parseQualifiedName()
	return &ast.InstanceofExpression{
		Sp:    left.Span().Join(name.Sp),
		Value: left,
		Class: name,
	}
}
