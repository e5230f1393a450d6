package lexer

import (
	"testing"

	"github.com/mago-lang/mago/internal/token"
)

func TestNextToken(t *testing.T) {
	input := `<?php
$five = 5;
$pi = 3.14;

function add($x, $y) {
	return $x + $y;
}

if ($five <= 10 && $five !== null) {
	echo "ok";
}

$obj?->method();
$a ?? $b ?: $c;
Foo::BAR;
$arr = [1 => 'one'];
`

	tests := []struct {
		expectedType    token.Type
		expectedLiteral string
	}{
		{token.VARIABLE, "$five"},
		{token.ASSIGN, "="},
		{token.INT, "5"},
		{token.SEMICOLON, ";"},
		{token.VARIABLE, "$pi"},
		{token.ASSIGN, "="},
		{token.FLOAT, "3.14"},
		{token.SEMICOLON, ";"},
		{token.FUNCTION, "function"},
		{token.IDENT, "add"},
		{token.LPAREN, "("},
		{token.VARIABLE, "$x"},
		{token.COMMA, ","},
		{token.VARIABLE, "$y"},
		{token.RPAREN, ")"},
		{token.LBRACE, "{"},
		{token.RETURN, "return"},
		{token.VARIABLE, "$x"},
		{token.PLUS, "+"},
		{token.VARIABLE, "$y"},
		{token.SEMICOLON, ";"},
		{token.RBRACE, "}"},
		{token.IF, "if"},
		{token.LPAREN, "("},
		{token.VARIABLE, "$five"},
		{token.LT_EQ, "<="},
		{token.INT, "10"},
		{token.AND, "&&"},
		{token.VARIABLE, "$five"},
		{token.NOT_IDENTICAL, "!=="},
		{token.NULL, "null"},
		{token.RPAREN, ")"},
		{token.LBRACE, "{"},
		{token.ECHO, "echo"},
		{token.STRING, "ok"},
		{token.SEMICOLON, ";"},
		{token.RBRACE, "}"},
		{token.VARIABLE, "$obj"},
		{token.NULLSAFE_ARROW, "?->"},
		{token.IDENT, "method"},
		{token.LPAREN, "("},
		{token.RPAREN, ")"},
		{token.SEMICOLON, ";"},
		{token.VARIABLE, "$a"},
		{token.COALESCE, "??"},
		{token.VARIABLE, "$b"},
		{token.ELVIS, "?:"},
		{token.VARIABLE, "$c"},
		{token.SEMICOLON, ";"},
		{token.IDENT, "Foo"},
		{token.DOUBLE_COLON, "::"},
		{token.IDENT, "BAR"},
		{token.SEMICOLON, ";"},
		{token.VARIABLE, "$arr"},
		{token.ASSIGN, "="},
		{token.LBRACKET, "["},
		{token.INT, "1"},
		{token.DOUBLE_ARROW, "=>"},
		{token.STRING, "one"},
		{token.RBRACKET, "]"},
		{token.SEMICOLON, ";"},
		{token.EOF, ""},
	}

	l := New(1, input)
	for i, tt := range tests {
		tok := l.NextToken()
		if tok.Type != tt.expectedType {
			t.Fatalf("tests[%d] - wrong type. expected=%q, got=%q (%q)", i, tt.expectedType, tok.Type, tok.Literal)
		}
		if tok.Literal != tt.expectedLiteral {
			t.Fatalf("tests[%d] - wrong literal. expected=%q, got=%q", i, tt.expectedLiteral, tok.Literal)
		}
	}
}

func TestDocCommentToken(t *testing.T) {
	input := `<?php
/** @param int $x */
function f($x) {}
`
	l := New(1, input)
	tok := l.NextToken()
	if tok.Type != token.DOC_COMMENT {
		t.Fatalf("expected DOC_COMMENT, got %q (%q)", tok.Type, tok.Literal)
	}
	if tok.Literal != "/** @param int $x */" {
		t.Errorf("docblock literal = %q", tok.Literal)
	}
	if next := l.NextToken(); next.Type != token.FUNCTION {
		t.Errorf("expected function after docblock, got %q", next.Type)
	}
}

func TestCommentsAreTrivia(t *testing.T) {
	input := `<?php
// line comment
# hash comment
/* block
   comment */
/**/
$x = 1;
`
	l := New(1, input)
	tok := l.NextToken()
	if tok.Type != token.VARIABLE || tok.Literal != "$x" {
		t.Fatalf("comments should be skipped, got %q (%q)", tok.Type, tok.Literal)
	}
}

func TestStringEscapes(t *testing.T) {
	tests := []struct {
		src     string
		typ     token.Type
		literal string
	}{
		{`'it\'s'`, token.STRING, "it's"},
		{`'no \n escape'`, token.STRING, `no \n escape`},
		{`"tab\there"`, token.STRING, "tab\there"},
		{`"dollar \$x"`, token.STRING, "dollar $x"},
		{`"hello $name"`, token.INTERP_STRING, "hello $name"},
		{`"unterminated`, token.ILLEGAL, "unterminated"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			l := New(1, "<?php "+tt.src)
			tok := l.NextToken()
			if tok.Type != tt.typ {
				t.Errorf("type = %q, want %q", tok.Type, tt.typ)
			}
			if tok.Literal != tt.literal {
				t.Errorf("literal = %q, want %q", tok.Literal, tt.literal)
			}
		})
	}
}

func TestNumberForms(t *testing.T) {
	tests := []struct {
		src string
		typ token.Type
	}{
		{"42", token.INT},
		{"1_000_000", token.INT},
		{"0xFF", token.INT},
		{"0b1010", token.INT},
		{"3.14", token.FLOAT},
		{"1e10", token.FLOAT},
		{"2.5e-3", token.FLOAT},
	}
	for _, tt := range tests {
		l := New(1, "<?php "+tt.src+";")
		tok := l.NextToken()
		if tok.Type != tt.typ {
			t.Errorf("%s: type = %q, want %q", tt.src, tok.Type, tt.typ)
		}
		if tok.Literal != tt.src {
			t.Errorf("%s: literal = %q", tt.src, tok.Literal)
		}
	}
}

func TestSpans(t *testing.T) {
	input := "<?php\n$x = 1;"
	l := New(7, input)
	tok := l.NextToken()
	if tok.Span.File != 7 {
		t.Errorf("span file = %d", tok.Span.File)
	}
	if tok.Span.Start != 6 || tok.Span.End != 8 {
		t.Errorf("$x span = [%d, %d), want [6, 8)", tok.Span.Start, tok.Span.End)
	}
	if tok.Span.StartLine != 2 {
		t.Errorf("$x line = %d, want 2", tok.Span.StartLine)
	}
}
