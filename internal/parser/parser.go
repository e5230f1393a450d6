package parser

import (
	"github.com/mago-lang/mago/internal/ast"
	"github.com/mago-lang/mago/internal/diagnostics"
	"github.com/mago-lang/mago/internal/lexer"
	"github.com/mago-lang/mago/internal/token"
)

// MaxRecursionDepth bounds expression nesting. Beyond it the parser
// reports once and skips to a statement boundary.
const MaxRecursionDepth = 256

const (
	_ int = iota
	LOWEST
	ASSIGNMENT // = += -= .= ??=
	TERNARY    // ? : and ?:
	COALESCE   // ??
	LOGIC_OR   // ||
	LOGIC_AND  // &&
	EQUALITY   // == != === !==
	COMPARISON // < > <= >= <=>
	SUM        // + - .
	PRODUCT    // * / %
	INSTANCEOF // instanceof
	PREFIX     // ! - (cast)
	CALL       // () -> ?-> :: []
)

var precedences = map[token.Type]int{
	token.ASSIGN:         ASSIGNMENT,
	token.PLUS_EQ:        ASSIGNMENT,
	token.MINUS_EQ:       ASSIGNMENT,
	token.DOT_EQ:         ASSIGNMENT,
	token.COALESCE_EQ:    ASSIGNMENT,
	token.QUESTION:       TERNARY,
	token.ELVIS:          TERNARY,
	token.COALESCE:       COALESCE,
	token.OR:             LOGIC_OR,
	token.AND:            LOGIC_AND,
	token.EQ:             EQUALITY,
	token.NOT_EQ:         EQUALITY,
	token.IDENTICAL:      EQUALITY,
	token.NOT_IDENTICAL:  EQUALITY,
	token.LT:             COMPARISON,
	token.GT:             COMPARISON,
	token.LT_EQ:          COMPARISON,
	token.GT_EQ:          COMPARISON,
	token.SPACESHIP:      COMPARISON,
	token.PLUS:           SUM,
	token.MINUS:          SUM,
	token.DOT:            SUM,
	token.STAR:           PRODUCT,
	token.SLASH:          PRODUCT,
	token.PERCENT:        PRODUCT,
	token.INSTANCEOF:     INSTANCEOF,
	token.LPAREN:         CALL,
	token.LBRACKET:       CALL,
	token.ARROW:          CALL,
	token.NULLSAFE_ARROW: CALL,
	token.DOUBLE_COLON:   CALL,
}

type (
	prefixParseFn func() ast.Expression
	infixParseFn  func(ast.Expression) ast.Expression
)

type Parser struct {
	tokens []token.Token
	pos    int // index of the next token to feed into peekToken
	file   token.FileId
	diags  *diagnostics.Collector

	curToken  token.Token
	peekToken token.Token

	// latest docblock seen before the current construct
	pendingDoc string

	prefixParseFns map[token.Type]prefixParseFn
	infixParseFns  map[token.Type]infixParseFn

	namespace string

	depth               int
	inRecursionRecovery bool
}

func New(file token.FileId, input string, diags *diagnostics.Collector) *Parser {
	p := &Parser{
		tokens: lexer.Tokenize(file, input),
		file:   file,
		diags:  diags,
	}

	p.prefixParseFns = map[token.Type]prefixParseFn{
		token.VARIABLE:      p.parseVariable,
		token.INT:           p.parseIntLiteral,
		token.FLOAT:         p.parseFloatLiteral,
		token.STRING:        p.parseStringLiteral,
		token.INTERP_STRING: p.parseInterpStringLiteral,
		token.TRUE:          p.parseBoolLiteral,
		token.FALSE:         p.parseBoolLiteral,
		token.NULL:          p.parseNullLiteral,
		token.IDENT:         p.parseNameExpression,
		token.BACKSLASH:     p.parseNameExpression,
		token.STATIC:        p.parseStaticPrefix,
		token.BANG:          p.parsePrefixExpression,
		token.MINUS:         p.parsePrefixExpression,
		token.PLUS:          p.parsePrefixExpression,
		token.LPAREN:        p.parseGroupedOrCast,
		token.LBRACKET:      p.parseArrayLiteral,
		token.ARRAY:         p.parseLegacyArrayLiteral,
		token.LIST:          p.parseLegacyArrayLiteral,
		token.NEW:           p.parseNewExpression,
		token.CLONE:         p.parseCloneExpression,
		token.THROW:         p.parseThrowExpression,
		token.ISSET:         p.parseIssetExpression,
		token.EMPTY:         p.parseEmptyExpression,
		token.FUNCTION:      p.parseClosureExpression,
		token.FN:            p.parseArrowFunction,
		token.MATCH:         p.parseMatchExpression,
	}

	p.infixParseFns = map[token.Type]infixParseFn{
		token.PLUS:           p.parseInfixExpression,
		token.MINUS:          p.parseInfixExpression,
		token.STAR:           p.parseInfixExpression,
		token.SLASH:          p.parseInfixExpression,
		token.PERCENT:        p.parseInfixExpression,
		token.DOT:            p.parseInfixExpression,
		token.EQ:             p.parseInfixExpression,
		token.NOT_EQ:         p.parseInfixExpression,
		token.IDENTICAL:      p.parseInfixExpression,
		token.NOT_IDENTICAL:  p.parseInfixExpression,
		token.LT:             p.parseInfixExpression,
		token.GT:             p.parseInfixExpression,
		token.LT_EQ:          p.parseInfixExpression,
		token.GT_EQ:          p.parseInfixExpression,
		token.SPACESHIP:      p.parseInfixExpression,
		token.AND:            p.parseInfixExpression,
		token.OR:             p.parseInfixExpression,
		token.COALESCE:       p.parseCoalesceExpression,
		token.ASSIGN:         p.parseAssignExpression,
		token.PLUS_EQ:        p.parseAssignExpression,
		token.MINUS_EQ:       p.parseAssignExpression,
		token.DOT_EQ:         p.parseAssignExpression,
		token.COALESCE_EQ:    p.parseAssignExpression,
		token.QUESTION:       p.parseTernaryExpression,
		token.ELVIS:          p.parseElvisExpression,
		token.INSTANCEOF:     p.parseInstanceofExpression,
		token.LPAREN:         p.parseCallExpression,
		token.LBRACKET:       p.parseArrayAccess,
		token.ARROW:          p.parseMemberAccess,
		token.NULLSAFE_ARROW: p.parseMemberAccess,
		token.DOUBLE_COLON:   p.parseStaticAccess,
	}

	// Prime curToken and peekToken.
	p.nextToken()
	p.nextToken()
	return p
}

// nextToken advances the token window. Docblocks are not part of the
// grammar; the latest one is stashed and attached to the declaration
// that follows it.
func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	for p.pos < len(p.tokens) {
		t := p.tokens[p.pos]
		p.pos++
		if t.Type == token.DOC_COMMENT {
			p.pendingDoc = t.Literal
			continue
		}
		p.peekToken = t
		return
	}
	// Tokenize always ends the stream with EOF; keep returning it.
	p.peekToken = p.tokens[len(p.tokens)-1]
}

// lookAhead returns the nth token after peekToken (n=1 is the token
// right after it), skipping docblocks without stashing them.
func (p *Parser) lookAhead(n int) token.Token {
	i := p.pos
	for ; i < len(p.tokens); i++ {
		if p.tokens[i].Type == token.DOC_COMMENT {
			continue
		}
		n--
		if n == 0 {
			return p.tokens[i]
		}
	}
	return p.tokens[len(p.tokens)-1]
}

// closeParenAfterPeek reports whether the token after peek is `)`.
func (p *Parser) closeParenAfterPeek() bool {
	return p.lookAhead(1).Type == token.RPAREN
}

// takeDoc consumes the stashed docblock, if any.
func (p *Parser) takeDoc() string {
	doc := p.pendingDoc
	p.pendingDoc = ""
	return doc
}

func (p *Parser) curTokenIs(t token.Type) bool  { return p.curToken.Type == t }
func (p *Parser) peekTokenIs(t token.Type) bool { return p.peekToken.Type == t }

func (p *Parser) expectPeek(t token.Type) bool {
	if p.peekTokenIs(t) {
		p.nextToken()
		return true
	}
	p.peekError(t)
	return false
}

func (p *Parser) peekError(t token.Type) {
	p.diags.Report(diagnostics.New(
		diagnostics.ParseError,
		p.peekToken.Span,
		"expected %s, found %q", string(t), p.peekToken.Literal,
	))
}

func (p *Parser) errorAt(sp token.Span, format string, args ...any) {
	p.diags.Report(diagnostics.New(diagnostics.ParseError, sp, format, args...))
}

func (p *Parser) peekPrecedence() int {
	if pr, ok := precedences[p.peekToken.Type]; ok {
		return pr
	}
	return LOWEST
}

func (p *Parser) curPrecedence() int {
	if pr, ok := precedences[p.curToken.Type]; ok {
		return pr
	}
	return LOWEST
}

// ParseProgram consumes the whole file and always returns a program;
// syntax errors land in the collector and the affected nodes become
// Missing variants.
func (p *Parser) ParseProgram() *ast.Program {
	program := &ast.Program{File: p.file}
	for !p.curTokenIs(token.EOF) {
		if stmt := p.parseStatement(); stmt != nil {
			program.Statements = append(program.Statements, stmt)
		}
		p.nextToken()
	}
	program.Namespace = p.namespace
	return program
}

// skipToStatementBoundary drops tokens until a likely resync point.
func (p *Parser) skipToStatementBoundary() {
	for !p.curTokenIs(token.SEMICOLON) &&
		!p.curTokenIs(token.RBRACE) &&
		!p.curTokenIs(token.EOF) {
		p.nextToken()
	}
}

// spanFrom joins a start span with the end of the current token.
func (p *Parser) spanFrom(start token.Span) token.Span {
	return start.Join(p.curToken.Span)
}
