package parser

import (
	"github.com/mago-lang/mago/internal/ast"
	"github.com/mago-lang/mago/internal/token"
)

func (p *Parser) parseStatement() ast.Statement {
	switch p.curToken.Type {
	case token.SEMICOLON:
		return nil
	case token.NAMESPACE:
		return p.parseNamespaceStatement()
	case token.USE:
		return p.parseUseStatement()
	case token.CONST:
		return p.parseConstDeclaration()
	case token.FUNCTION:
		// `function` at statement level is a declaration only when a name
		// follows; otherwise it is a closure expression.
		if p.peekTokenIs(token.IDENT) ||
			(p.peekTokenIs(token.AMPERSAND) && p.lookAhead(1).Type == token.IDENT) {
			return p.parseFunctionDeclaration()
		}
		return p.parseExpressionStatement()
	case token.ABSTRACT, token.FINAL, token.READONLY, token.CLASS,
		token.INTERFACE, token.TRAIT, token.ENUM:
		return p.parseClassLikeDeclaration()
	case token.IF:
		return p.parseIfStatement()
	case token.WHILE:
		return p.parseWhileStatement()
	case token.DO:
		return p.parseDoWhileStatement()
	case token.FOR:
		return p.parseForStatement()
	case token.FOREACH:
		return p.parseForeachStatement()
	case token.SWITCH:
		return p.parseSwitchStatement()
	case token.RETURN:
		return p.parseReturnStatement()
	case token.BREAK:
		return p.parseBreakStatement()
	case token.CONTINUE:
		return p.parseContinueStatement()
	case token.TRY:
		return p.parseTryStatement()
	case token.GLOBAL:
		return p.parseGlobalStatement()
	case token.UNSET:
		return p.parseUnsetStatement()
	case token.ECHO:
		return p.parseEchoStatement()
	case token.LBRACE:
		return p.parseBlockStatement()
	case token.ILLEGAL:
		p.errorAt(p.curToken.Span, "unexpected character %q", p.curToken.Literal)
		return &ast.MissingStatement{Sp: p.curToken.Span}
	default:
		return p.parseExpressionStatement()
	}
}

func (p *Parser) parseNamespaceStatement() ast.Statement {
	start := p.curToken.Span
	name := ""
	for p.peekTokenIs(token.IDENT) || p.peekTokenIs(token.BACKSLASH) {
		p.nextToken()
		name += p.curToken.Literal
	}
	p.namespace = name
	if p.peekTokenIs(token.SEMICOLON) {
		p.nextToken()
	}
	return &ast.MissingStatement{Sp: p.spanFrom(start)}
}

func (p *Parser) parseUseStatement() ast.Statement {
	start := p.curToken.Span
	path := ""
	for p.peekTokenIs(token.IDENT) || p.peekTokenIs(token.BACKSLASH) ||
		p.peekTokenIs(token.FUNCTION) || p.peekTokenIs(token.CONST) {
		p.nextToken()
		path += p.curToken.Literal
	}
	alias := ""
	if p.peekTokenIs(token.AS) {
		p.nextToken()
		if !p.expectPeek(token.IDENT) {
			return &ast.MissingStatement{Sp: p.spanFrom(start)}
		}
		alias = p.curToken.Literal
	}
	if p.peekTokenIs(token.SEMICOLON) {
		p.nextToken()
	}
	return &ast.UseStatement{Sp: p.spanFrom(start), Path: path, Alias: alias}
}

func (p *Parser) parseExpressionStatement() ast.Statement {
	start := p.curToken.Span
	expr := p.parseExpression(LOWEST)
	if expr == nil {
		p.skipToStatementBoundary()
		return &ast.MissingStatement{Sp: p.spanFrom(start)}
	}
	if p.peekTokenIs(token.SEMICOLON) {
		p.nextToken()
	}
	return &ast.ExpressionStatement{Sp: p.spanFrom(start), Expr: expr}
}

func (p *Parser) parseEchoStatement() ast.Statement {
	start := p.curToken.Span
	stmt := &ast.EchoStatement{}
	for {
		p.nextToken()
		v := p.parseExpression(LOWEST)
		if v == nil {
			p.skipToStatementBoundary()
			break
		}
		stmt.Values = append(stmt.Values, v)
		if !p.peekTokenIs(token.COMMA) {
			break
		}
		p.nextToken()
	}
	if p.peekTokenIs(token.SEMICOLON) {
		p.nextToken()
	}
	stmt.Sp = p.spanFrom(start)
	return stmt
}

func (p *Parser) parseBlockStatement() *ast.BlockStatement {
	start := p.curToken.Span
	block := &ast.BlockStatement{}
	p.nextToken()
	for !p.curTokenIs(token.RBRACE) && !p.curTokenIs(token.EOF) {
		if stmt := p.parseStatement(); stmt != nil {
			block.Statements = append(block.Statements, stmt)
		}
		p.nextToken()
	}
	if p.curTokenIs(token.EOF) {
		p.errorAt(p.curToken.Span, "unterminated block")
	}
	block.Sp = p.spanFrom(start)
	return block
}

// parseCondBlock parses `(cond) { ... }`, the common shape of if/while.
func (p *Parser) parseCondBlock() (ast.Expression, *ast.BlockStatement, bool) {
	if !p.expectPeek(token.LPAREN) {
		return nil, nil, false
	}
	p.nextToken()
	cond := p.parseExpression(LOWEST)
	if cond == nil {
		cond = &ast.MissingExpression{Sp: p.curToken.Span}
	}
	if !p.expectPeek(token.RPAREN) {
		return nil, nil, false
	}
	if !p.expectPeek(token.LBRACE) {
		return nil, nil, false
	}
	return cond, p.parseBlockStatement(), true
}

func (p *Parser) parseIfStatement() ast.Statement {
	start := p.curToken.Span
	cond, then, ok := p.parseCondBlock()
	if !ok {
		p.skipToStatementBoundary()
		return &ast.MissingStatement{Sp: p.spanFrom(start)}
	}
	stmt := &ast.IfStatement{Condition: cond, Then: then}

	for {
		if p.peekTokenIs(token.ELSEIF) {
			p.nextToken()
			branchStart := p.curToken.Span
			c, body, ok := p.parseCondBlock()
			if !ok {
				p.skipToStatementBoundary()
				return &ast.MissingStatement{Sp: p.spanFrom(start)}
			}
			stmt.ElseIfs = append(stmt.ElseIfs, &ast.ElseIfClause{
				Sp:        branchStart.Join(body.Span()),
				Condition: c,
				Body:      body,
			})
			continue
		}
		if p.peekTokenIs(token.ELSE) {
			p.nextToken()
			branchStart := p.curToken.Span
			if p.peekTokenIs(token.IF) {
				// spaced `else if`
				p.nextToken()
				c, body, ok := p.parseCondBlock()
				if !ok {
					p.skipToStatementBoundary()
					return &ast.MissingStatement{Sp: p.spanFrom(start)}
				}
				stmt.ElseIfs = append(stmt.ElseIfs, &ast.ElseIfClause{
					Sp:        branchStart.Join(body.Span()),
					Condition: c,
					Body:      body,
				})
				continue
			}
			if !p.expectPeek(token.LBRACE) {
				p.skipToStatementBoundary()
				return &ast.MissingStatement{Sp: p.spanFrom(start)}
			}
			stmt.Else = p.parseBlockStatement()
		}
		break
	}
	stmt.Sp = p.spanFrom(start)
	return stmt
}

func (p *Parser) parseWhileStatement() ast.Statement {
	start := p.curToken.Span
	cond, body, ok := p.parseCondBlock()
	if !ok {
		p.skipToStatementBoundary()
		return &ast.MissingStatement{Sp: p.spanFrom(start)}
	}
	return &ast.WhileStatement{Sp: p.spanFrom(start), Condition: cond, Body: body}
}

func (p *Parser) parseDoWhileStatement() ast.Statement {
	start := p.curToken.Span
	if !p.expectPeek(token.LBRACE) {
		p.skipToStatementBoundary()
		return &ast.MissingStatement{Sp: p.spanFrom(start)}
	}
	body := p.parseBlockStatement()
	if !p.expectPeek(token.WHILE) || !p.expectPeek(token.LPAREN) {
		p.skipToStatementBoundary()
		return &ast.MissingStatement{Sp: p.spanFrom(start)}
	}
	p.nextToken()
	cond := p.parseExpression(LOWEST)
	if cond == nil {
		cond = &ast.MissingExpression{Sp: p.curToken.Span}
	}
	if !p.expectPeek(token.RPAREN) {
		p.skipToStatementBoundary()
		return &ast.MissingStatement{Sp: p.spanFrom(start)}
	}
	if p.peekTokenIs(token.SEMICOLON) {
		p.nextToken()
	}
	return &ast.DoWhileStatement{Sp: p.spanFrom(start), Body: body, Condition: cond}
}

func (p *Parser) parseForStatement() ast.Statement {
	start := p.curToken.Span
	if !p.expectPeek(token.LPAREN) {
		p.skipToStatementBoundary()
		return &ast.MissingStatement{Sp: p.spanFrom(start)}
	}
	stmt := &ast.ForStatement{}
	stmt.Init = p.parseExprListUntil(token.SEMICOLON)
	stmt.Condition = p.parseExprListUntil(token.SEMICOLON)
	stmt.Update = p.parseExprListUntil(token.RPAREN)
	if !p.expectPeek(token.LBRACE) {
		p.skipToStatementBoundary()
		return &ast.MissingStatement{Sp: p.spanFrom(start)}
	}
	stmt.Body = p.parseBlockStatement()
	stmt.Sp = p.spanFrom(start)
	return stmt
}

// parseExprListUntil parses a comma-separated expression list ending at
// the given terminator, consuming the terminator.
func (p *Parser) parseExprListUntil(end token.Type) []ast.Expression {
	var list []ast.Expression
	for !p.peekTokenIs(end) && !p.peekTokenIs(token.EOF) {
		p.nextToken()
		e := p.parseExpression(LOWEST)
		if e == nil {
			break
		}
		list = append(list, e)
		if p.peekTokenIs(token.COMMA) {
			p.nextToken()
		}
	}
	if p.peekTokenIs(end) {
		p.nextToken()
	}
	return list
}

func (p *Parser) parseForeachStatement() ast.Statement {
	start := p.curToken.Span
	if !p.expectPeek(token.LPAREN) {
		p.skipToStatementBoundary()
		return &ast.MissingStatement{Sp: p.spanFrom(start)}
	}
	p.nextToken()
	iterable := p.parseExpression(TERNARY)
	if iterable == nil {
		p.skipToStatementBoundary()
		return &ast.MissingStatement{Sp: p.spanFrom(start)}
	}
	if !p.expectPeek(token.AS) {
		p.skipToStatementBoundary()
		return &ast.MissingStatement{Sp: p.spanFrom(start)}
	}

	stmt := &ast.ForeachStatement{Iterable: iterable}
	if p.peekTokenIs(token.AMPERSAND) {
		p.nextToken()
		stmt.ByRef = true
	}
	if !p.expectPeek(token.VARIABLE) {
		p.skipToStatementBoundary()
		return &ast.MissingStatement{Sp: p.spanFrom(start)}
	}
	first := &ast.VariableExpression{Sp: p.curToken.Span, Name: p.curToken.Literal[1:]}

	if p.peekTokenIs(token.DOUBLE_ARROW) {
		p.nextToken()
		stmt.KeyVar = first
		if p.peekTokenIs(token.AMPERSAND) {
			p.nextToken()
			stmt.ByRef = true
		}
		if !p.expectPeek(token.VARIABLE) {
			p.skipToStatementBoundary()
			return &ast.MissingStatement{Sp: p.spanFrom(start)}
		}
		stmt.ValueVar = &ast.VariableExpression{Sp: p.curToken.Span, Name: p.curToken.Literal[1:]}
	} else {
		stmt.ValueVar = first
	}

	if !p.expectPeek(token.RPAREN) || !p.expectPeek(token.LBRACE) {
		p.skipToStatementBoundary()
		return &ast.MissingStatement{Sp: p.spanFrom(start)}
	}
	stmt.Body = p.parseBlockStatement()
	stmt.Sp = p.spanFrom(start)
	return stmt
}

func (p *Parser) parseSwitchStatement() ast.Statement {
	start := p.curToken.Span
	if !p.expectPeek(token.LPAREN) {
		p.skipToStatementBoundary()
		return &ast.MissingStatement{Sp: p.spanFrom(start)}
	}
	p.nextToken()
	subject := p.parseExpression(LOWEST)
	if subject == nil || !p.expectPeek(token.RPAREN) || !p.expectPeek(token.LBRACE) {
		p.skipToStatementBoundary()
		return &ast.MissingStatement{Sp: p.spanFrom(start)}
	}

	stmt := &ast.SwitchStatement{Subject: subject}
	p.nextToken()
	for !p.curTokenIs(token.RBRACE) && !p.curTokenIs(token.EOF) {
		caseStart := p.curToken.Span
		c := &ast.SwitchCase{}
		switch p.curToken.Type {
		case token.CASE:
			p.nextToken()
			c.Condition = p.parseExpression(LOWEST)
			if !p.expectPeek(token.COLON) {
				p.skipToStatementBoundary()
			}
		case token.DEFAULT:
			if !p.expectPeek(token.COLON) {
				p.skipToStatementBoundary()
			}
		default:
			p.errorAt(p.curToken.Span, "expected case or default, found %q", p.curToken.Literal)
			p.skipToStatementBoundary()
			p.nextToken()
			continue
		}
		p.nextToken()
		for !p.curTokenIs(token.CASE) && !p.curTokenIs(token.DEFAULT) &&
			!p.curTokenIs(token.RBRACE) && !p.curTokenIs(token.EOF) {
			if s := p.parseStatement(); s != nil {
				c.Body = append(c.Body, s)
			}
			p.nextToken()
		}
		c.Sp = caseStart.Join(p.curToken.Span)
		stmt.Cases = append(stmt.Cases, c)
	}
	stmt.Sp = p.spanFrom(start)
	return stmt
}

func (p *Parser) parseReturnStatement() ast.Statement {
	start := p.curToken.Span
	stmt := &ast.ReturnStatement{}
	if !p.peekTokenIs(token.SEMICOLON) && !p.peekTokenIs(token.RBRACE) && !p.peekTokenIs(token.EOF) {
		p.nextToken()
		stmt.Value = p.parseExpression(LOWEST)
	}
	if p.peekTokenIs(token.SEMICOLON) {
		p.nextToken()
	}
	stmt.Sp = p.spanFrom(start)
	return stmt
}

func (p *Parser) parseBreakStatement() ast.Statement {
	start := p.curToken.Span
	if p.peekTokenIs(token.SEMICOLON) {
		p.nextToken()
	}
	return &ast.BreakStatement{Sp: p.spanFrom(start)}
}

func (p *Parser) parseContinueStatement() ast.Statement {
	start := p.curToken.Span
	if p.peekTokenIs(token.SEMICOLON) {
		p.nextToken()
	}
	return &ast.ContinueStatement{Sp: p.spanFrom(start)}
}

func (p *Parser) parseTryStatement() ast.Statement {
	start := p.curToken.Span
	if !p.expectPeek(token.LBRACE) {
		p.skipToStatementBoundary()
		return &ast.MissingStatement{Sp: p.spanFrom(start)}
	}
	stmt := &ast.TryStatement{Body: p.parseBlockStatement()}

	for p.peekTokenIs(token.CATCH) {
		p.nextToken()
		catchStart := p.curToken.Span
		if !p.expectPeek(token.LPAREN) {
			p.skipToStatementBoundary()
			return &ast.MissingStatement{Sp: p.spanFrom(start)}
		}
		clause := &ast.CatchClause{}
		for {
			p.nextToken()
			if !p.curTokenIs(token.IDENT) && !p.curTokenIs(token.BACKSLASH) {
				p.errorAt(p.curToken.Span, "expected exception type, found %q", p.curToken.Literal)
				p.skipToStatementBoundary()
				return &ast.MissingStatement{Sp: p.spanFrom(start)}
			}
			clause.Types = append(clause.Types, p.parseQualifiedName())
			if !p.peekTokenIs(token.PIPE) {
				break
			}
			p.nextToken()
		}
		if p.peekTokenIs(token.VARIABLE) {
			p.nextToken()
			clause.Var = &ast.VariableExpression{Sp: p.curToken.Span, Name: p.curToken.Literal[1:]}
		}
		if !p.expectPeek(token.RPAREN) || !p.expectPeek(token.LBRACE) {
			p.skipToStatementBoundary()
			return &ast.MissingStatement{Sp: p.spanFrom(start)}
		}
		clause.Body = p.parseBlockStatement()
		clause.Sp = catchStart.Join(p.curToken.Span)
		stmt.Catches = append(stmt.Catches, clause)
	}

	if p.peekTokenIs(token.FINALLY) {
		p.nextToken()
		if !p.expectPeek(token.LBRACE) {
			p.skipToStatementBoundary()
			return &ast.MissingStatement{Sp: p.spanFrom(start)}
		}
		stmt.Finally = p.parseBlockStatement()
	}

	if len(stmt.Catches) == 0 && stmt.Finally == nil {
		p.errorAt(start, "try needs at least one catch or finally")
	}
	stmt.Sp = p.spanFrom(start)
	return stmt
}

func (p *Parser) parseGlobalStatement() ast.Statement {
	start := p.curToken.Span
	stmt := &ast.GlobalStatement{}
	for {
		if !p.expectPeek(token.VARIABLE) {
			break
		}
		stmt.Vars = append(stmt.Vars, &ast.VariableExpression{Sp: p.curToken.Span, Name: p.curToken.Literal[1:]})
		if !p.peekTokenIs(token.COMMA) {
			break
		}
		p.nextToken()
	}
	if p.peekTokenIs(token.SEMICOLON) {
		p.nextToken()
	}
	stmt.Sp = p.spanFrom(start)
	return stmt
}

func (p *Parser) parseUnsetStatement() ast.Statement {
	start := p.curToken.Span
	if !p.expectPeek(token.LPAREN) {
		p.skipToStatementBoundary()
		return &ast.MissingStatement{Sp: p.spanFrom(start)}
	}
	stmt := &ast.UnsetStatement{Vars: p.parseExprListUntil(token.RPAREN)}
	if p.peekTokenIs(token.SEMICOLON) {
		p.nextToken()
	}
	stmt.Sp = p.spanFrom(start)
	return stmt
}
