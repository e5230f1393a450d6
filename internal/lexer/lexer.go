package lexer

import (
	"unicode"
	"unicode/utf8"

	"github.com/mago-lang/mago/internal/token"
)

type Lexer struct {
	input        string
	file         token.FileId
	position     int  // current position in input (points to current char)
	readPosition int  // current reading position in input (after current char)
	ch           rune // current char under examination
	line         int  // current line number
	inPHP        bool // past the opening tag
}

func New(file token.FileId, input string) *Lexer {
	l := &Lexer{input: input, file: file, line: 1}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
	}

	if l.readPosition >= len(l.input) {
		l.ch = 0
		l.position = l.readPosition
		return
	}
	r, w := utf8.DecodeRuneInString(l.input[l.readPosition:])
	l.ch = r
	l.position = l.readPosition
	l.readPosition += w
}

func (l *Lexer) peekChar() rune {
	if l.readPosition >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPosition:])
	return r
}

func (l *Lexer) peekChar2() rune {
	if l.readPosition >= len(l.input) {
		return 0
	}
	_, w := utf8.DecodeRuneInString(l.input[l.readPosition:])
	if l.readPosition+w >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPosition+w:])
	return r
}

func (l *Lexer) NextToken() token.Token {
	if !l.inPHP {
		l.skipToOpenTag()
	}
	l.skipTrivia()

	if l.ch == '/' && l.peekChar() == '*' {
		// Only docblocks survive skipTrivia.
		return l.readDocComment()
	}

	start, startLine := l.position, l.line

	switch l.ch {
	case 0:
		return l.tok(token.EOF, start, startLine)
	case '=':
		if l.peekChar() == '=' {
			l.readChar()
			if l.peekChar() == '=' {
				l.readChar()
				return l.single(token.IDENTICAL, start, startLine)
			}
			return l.single(token.EQ, start, startLine)
		}
		if l.peekChar() == '>' {
			l.readChar()
			return l.single(token.DOUBLE_ARROW, start, startLine)
		}
		return l.single(token.ASSIGN, start, startLine)
	case '+':
		if l.peekChar() == '=' {
			l.readChar()
			return l.single(token.PLUS_EQ, start, startLine)
		}
		return l.single(token.PLUS, start, startLine)
	case '-':
		if l.peekChar() == '>' {
			l.readChar()
			return l.single(token.ARROW, start, startLine)
		}
		if l.peekChar() == '=' {
			l.readChar()
			return l.single(token.MINUS_EQ, start, startLine)
		}
		return l.single(token.MINUS, start, startLine)
	case '*':
		return l.single(token.STAR, start, startLine)
	case '/':
		return l.single(token.SLASH, start, startLine)
	case '%':
		return l.single(token.PERCENT, start, startLine)
	case '.':
		if l.peekChar() == '.' && l.peekChar2() == '.' {
			l.readChar()
			l.readChar()
			return l.single(token.ELLIPSIS, start, startLine)
		}
		if l.peekChar() == '=' {
			l.readChar()
			return l.single(token.DOT_EQ, start, startLine)
		}
		return l.single(token.DOT, start, startLine)
	case '!':
		if l.peekChar() == '=' {
			l.readChar()
			if l.peekChar() == '=' {
				l.readChar()
				return l.single(token.NOT_IDENTICAL, start, startLine)
			}
			return l.single(token.NOT_EQ, start, startLine)
		}
		return l.single(token.BANG, start, startLine)
	case '?':
		if l.peekChar() == '?' {
			l.readChar()
			if l.peekChar() == '=' {
				l.readChar()
				return l.single(token.COALESCE_EQ, start, startLine)
			}
			return l.single(token.COALESCE, start, startLine)
		}
		if l.peekChar() == ':' {
			l.readChar()
			return l.single(token.ELVIS, start, startLine)
		}
		if l.peekChar() == '-' && l.peekChar2() == '>' {
			l.readChar()
			l.readChar()
			return l.single(token.NULLSAFE_ARROW, start, startLine)
		}
		return l.single(token.QUESTION, start, startLine)
	case ':':
		if l.peekChar() == ':' {
			l.readChar()
			return l.single(token.DOUBLE_COLON, start, startLine)
		}
		return l.single(token.COLON, start, startLine)
	case '<':
		if l.peekChar() == '=' {
			l.readChar()
			if l.peekChar() == '>' {
				l.readChar()
				return l.single(token.SPACESHIP, start, startLine)
			}
			return l.single(token.LT_EQ, start, startLine)
		}
		return l.single(token.LT, start, startLine)
	case '>':
		if l.peekChar() == '=' {
			l.readChar()
			return l.single(token.GT_EQ, start, startLine)
		}
		return l.single(token.GT, start, startLine)
	case '&':
		if l.peekChar() == '&' {
			l.readChar()
			return l.single(token.AND, start, startLine)
		}
		return l.single(token.AMPERSAND, start, startLine)
	case '|':
		if l.peekChar() == '|' {
			l.readChar()
			return l.single(token.OR, start, startLine)
		}
		return l.single(token.PIPE, start, startLine)
	case '#':
		if l.peekChar() == '[' {
			l.readChar()
			return l.single(token.ATTRIBUTE, start, startLine)
		}
		l.skipLineComment()
		return l.NextToken()
	case '$':
		return l.readVariable()
	case '"', '\'':
		return l.readString(l.ch)
	case ',':
		return l.single(token.COMMA, start, startLine)
	case ';':
		return l.single(token.SEMICOLON, start, startLine)
	case '(':
		return l.single(token.LPAREN, start, startLine)
	case ')':
		return l.single(token.RPAREN, start, startLine)
	case '{':
		return l.single(token.LBRACE, start, startLine)
	case '}':
		return l.single(token.RBRACE, start, startLine)
	case '[':
		return l.single(token.LBRACKET, start, startLine)
	case ']':
		return l.single(token.RBRACKET, start, startLine)
	case '\\':
		return l.single(token.BACKSLASH, start, startLine)
	}

	if isIdentStart(l.ch) {
		return l.readIdentifier()
	}
	if unicode.IsDigit(l.ch) {
		return l.readNumber()
	}

	return l.single(token.ILLEGAL, start, startLine)
}

// single consumes the current char and emits a token covering everything
// read since start.
func (l *Lexer) single(typ token.Type, start, startLine int) token.Token {
	l.readChar()
	return l.tok(typ, start, startLine)
}

func (l *Lexer) tok(typ token.Type, start, startLine int) token.Token {
	return token.Token{
		Type:    typ,
		Literal: l.input[start:l.position],
		Span: token.Span{
			File:      l.file,
			Start:     uint32(start),
			End:       uint32(l.position),
			StartLine: uint32(startLine),
		},
	}
}

// skipToOpenTag scans past everything before the `<?php` opening tag.
// Files without a tag are treated as all-code; the analyzer is fed
// pre-extracted sources in tests.
func (l *Lexer) skipToOpenTag() {
	l.inPHP = true
	if l.ch != '<' || l.peekChar() != '?' {
		return
	}
	for l.ch != 0 && !unicode.IsSpace(l.ch) {
		l.readChar()
	}
}

// skipTrivia consumes whitespace and plain comments. Doc comments are
// not trivia; they surface as DOC_COMMENT tokens.
func (l *Lexer) skipTrivia() {
	for {
		for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
			l.readChar()
		}
		if l.ch == '/' && l.peekChar() == '/' {
			l.skipLineComment()
			continue
		}
		if l.ch == '#' && l.peekChar() != '[' {
			l.skipLineComment()
			continue
		}
		if l.ch == '/' && l.peekChar() == '*' {
			// `/**/` is an empty plain comment, not a docblock.
			if l.peekChar2() != '*' || hasPrefixAt(l.input, l.position, "/**/") {
				l.skipBlockComment()
				continue
			}
		}
		return
	}
}

func hasPrefixAt(s string, at int, prefix string) bool {
	return at+len(prefix) <= len(s) && s[at:at+len(prefix)] == prefix
}

func (l *Lexer) skipLineComment() {
	for l.ch != '\n' && l.ch != 0 {
		l.readChar()
	}
}

func (l *Lexer) skipBlockComment() {
	l.readChar() // /
	l.readChar() // *
	for l.ch != 0 {
		if l.ch == '*' && l.peekChar() == '/' {
			l.readChar()
			l.readChar()
			return
		}
		l.readChar()
	}
}

func (l *Lexer) readDocComment() token.Token {
	start, startLine := l.position, l.line
	l.readChar() // /
	l.readChar() // *
	l.readChar() // *
	for l.ch != 0 {
		if l.ch == '*' && l.peekChar() == '/' {
			l.readChar()
			l.readChar()
			break
		}
		l.readChar()
	}
	return l.tok(token.DOC_COMMENT, start, startLine)
}

func (l *Lexer) readVariable() token.Token {
	start, startLine := l.position, l.line
	l.readChar() // $
	for isIdentPart(l.ch) {
		l.readChar()
	}
	return l.tok(token.VARIABLE, start, startLine)
}

func (l *Lexer) readIdentifier() token.Token {
	start, startLine := l.position, l.line
	for isIdentPart(l.ch) {
		l.readChar()
	}
	t := l.tok(token.IDENT, start, startLine)
	t.Type = token.LookupIdent(t.Literal)
	return t
}

func (l *Lexer) readNumber() token.Token {
	start, startLine := l.position, l.line
	typ := token.Type(token.INT)

	if l.ch == '0' && isBasePrefix(l.peekChar()) {
		l.readChar()
		l.readChar()
		for isHexDigit(l.ch) || l.ch == '_' {
			l.readChar()
		}
		return l.tok(token.INT, start, startLine)
	}

	for unicode.IsDigit(l.ch) || l.ch == '_' {
		l.readChar()
	}
	if l.ch == '.' && unicode.IsDigit(l.peekChar()) {
		typ = token.FLOAT
		l.readChar()
		for unicode.IsDigit(l.ch) || l.ch == '_' {
			l.readChar()
		}
	}
	if l.ch == 'e' || l.ch == 'E' {
		next := l.peekChar()
		if unicode.IsDigit(next) || ((next == '+' || next == '-') && unicode.IsDigit(l.peekChar2())) {
			typ = token.FLOAT
			l.readChar()
			if l.ch == '+' || l.ch == '-' {
				l.readChar()
			}
			for unicode.IsDigit(l.ch) {
				l.readChar()
			}
		}
	}
	return l.tok(typ, start, startLine)
}

// readString lexes a quoted string. The literal carries the decoded
// content; the span still covers the quotes. Single-quoted strings only
// honor \' and \\, double-quoted strings the usual escapes. Interpolation
// is not expanded; a double-quoted string containing `$name` is emitted
// as INTERP_STRING and the analyzer types it as a general string.
func (l *Lexer) readString(quote rune) token.Token {
	start, startLine := l.position, l.line
	l.readChar() // opening quote
	var out []rune
	interpolated := false
	for l.ch != quote && l.ch != 0 {
		if l.ch == '\\' {
			if quote == '\'' {
				if esc := l.peekChar(); esc == '\'' || esc == '\\' {
					l.readChar()
					out = append(out, l.ch)
				} else {
					out = append(out, l.ch)
				}
				l.readChar()
				continue
			}
			l.readChar()
			switch l.ch {
			case 'n':
				out = append(out, '\n')
			case 't':
				out = append(out, '\t')
			case 'r':
				out = append(out, '\r')
			case '"', '\\', '$':
				out = append(out, l.ch)
			case '0':
				out = append(out, 0)
			default:
				out = append(out, '\\', l.ch)
			}
			l.readChar()
			continue
		}
		if quote == '"' && l.ch == '$' && isIdentStart(l.peekChar()) {
			interpolated = true
		}
		out = append(out, l.ch)
		l.readChar()
	}
	typ := token.Type(token.STRING)
	if l.ch == 0 {
		typ = token.ILLEGAL
	} else {
		l.readChar() // closing quote
		if interpolated {
			typ = token.INTERP_STRING
		}
	}
	t := l.tok(typ, start, startLine)
	t.Literal = string(out)
	return t
}

// Tokenize runs the lexer to EOF, docblocks included in stream order.
func Tokenize(file token.FileId, input string) []token.Token {
	l := New(file, input)
	var toks []token.Token
	for {
		tok := l.NextToken()
		toks = append(toks, tok)
		if tok.Type == token.EOF {
			return toks
		}
	}
}

func isIdentStart(ch rune) bool {
	return unicode.IsLetter(ch) || ch == '_' || ch >= 0x80
}

func isIdentPart(ch rune) bool {
	return isIdentStart(ch) || unicode.IsDigit(ch)
}

func isBasePrefix(ch rune) bool {
	switch ch {
	case 'x', 'X', 'b', 'B', 'o', 'O':
		return true
	}
	return false
}

func isHexDigit(ch rune) bool {
	return unicode.IsDigit(ch) || (ch >= 'a' && ch <= 'f') || (ch >= 'A' && ch <= 'F')
}
