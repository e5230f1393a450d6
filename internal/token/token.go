package token

// Type identifies the lexical class of a token.
type Type string

// Token is a single lexical unit with its position in the source file.
type Token struct {
	Type    Type
	Literal string
	Span    Span
}

const (
	ILLEGAL = "ILLEGAL"
	EOF     = "EOF"

	// Identifiers and literals
	IDENT      = "IDENT"      // foo, Foo, strlen
	VARIABLE   = "VARIABLE"   // $foo
	INT        = "INT"        // 42
	FLOAT      = "FLOAT"      // 3.14
	STRING        = "STRING"        // "foo", 'foo'
	INTERP_STRING = "INTERP_STRING" // "hello $name"
	DOC_COMMENT   = "DOC_COMMENT"   // /** ... */

	// Operators
	ASSIGN       = "="
	PLUS         = "+"
	MINUS        = "-"
	STAR         = "*"
	SLASH        = "/"
	PERCENT      = "%"
	DOT          = "."
	BANG         = "!"
	QUESTION     = "?"
	COLON        = ":"
	ELVIS        = "?:"
	COALESCE     = "??"
	COALESCE_EQ  = "??="
	EQ           = "=="
	IDENTICAL    = "==="
	NOT_EQ       = "!="
	NOT_IDENTICAL = "!=="
	LT           = "<"
	GT           = ">"
	LT_EQ        = "<="
	GT_EQ        = ">="
	SPACESHIP    = "<=>"
	AND          = "&&"
	OR           = "||"
	AMPERSAND    = "&"
	PIPE         = "|"
	ARROW        = "->"
	NULLSAFE_ARROW = "?->"
	DOUBLE_ARROW = "=>"
	DOUBLE_COLON = "::"
	ELLIPSIS     = "..."
	PLUS_EQ      = "+="
	MINUS_EQ     = "-="
	DOT_EQ       = ".="
	ATTRIBUTE    = "#["

	// Delimiters
	COMMA     = ","
	SEMICOLON = ";"
	LPAREN    = "("
	RPAREN    = ")"
	LBRACE    = "{"
	RBRACE    = "}"
	LBRACKET  = "["
	RBRACKET  = "]"
	BACKSLASH = "\\"

	// Keywords
	FUNCTION   = "FUNCTION"
	FN         = "FN"
	RETURN     = "RETURN"
	IF         = "IF"
	ELSEIF     = "ELSEIF"
	ELSE       = "ELSE"
	WHILE      = "WHILE"
	DO         = "DO"
	FOR        = "FOR"
	FOREACH    = "FOREACH"
	AS         = "AS"
	SWITCH     = "SWITCH"
	CASE       = "CASE"
	DEFAULT    = "DEFAULT"
	MATCH      = "MATCH"
	BREAK      = "BREAK"
	CONTINUE   = "CONTINUE"
	THROW      = "THROW"
	TRY        = "TRY"
	CATCH      = "CATCH"
	FINALLY    = "FINALLY"
	NEW        = "NEW"
	CLONE      = "CLONE"
	INSTANCEOF = "INSTANCEOF"
	CLASS      = "CLASS"
	INTERFACE  = "INTERFACE"
	TRAIT      = "TRAIT"
	ENUM       = "ENUM"
	EXTENDS    = "EXTENDS"
	IMPLEMENTS = "IMPLEMENTS"
	USE        = "USE"
	NAMESPACE  = "NAMESPACE"
	CONST      = "CONST"
	PUBLIC     = "PUBLIC"
	PROTECTED  = "PROTECTED"
	PRIVATE    = "PRIVATE"
	STATIC     = "STATIC"
	ABSTRACT   = "ABSTRACT"
	FINAL      = "FINAL"
	READONLY   = "READONLY"
	GLOBAL     = "GLOBAL"
	ECHO       = "ECHO"
	TRUE       = "TRUE"
	FALSE      = "FALSE"
	NULL       = "NULL"
	ISSET      = "ISSET"
	UNSET      = "UNSET"
	EMPTY      = "EMPTY"
	LIST       = "LIST"
	ARRAY      = "ARRAY"
)

var keywords = map[string]Type{
	"function":   FUNCTION,
	"fn":         FN,
	"return":     RETURN,
	"if":         IF,
	"elseif":     ELSEIF,
	"else":       ELSE,
	"while":      WHILE,
	"do":         DO,
	"for":        FOR,
	"foreach":    FOREACH,
	"as":         AS,
	"switch":     SWITCH,
	"case":       CASE,
	"default":    DEFAULT,
	"match":      MATCH,
	"break":      BREAK,
	"continue":   CONTINUE,
	"throw":      THROW,
	"try":        TRY,
	"catch":      CATCH,
	"finally":    FINALLY,
	"new":        NEW,
	"clone":      CLONE,
	"instanceof": INSTANCEOF,
	"class":      CLASS,
	"interface":  INTERFACE,
	"trait":      TRAIT,
	"enum":       ENUM,
	"extends":    EXTENDS,
	"implements": IMPLEMENTS,
	"use":        USE,
	"namespace":  NAMESPACE,
	"const":      CONST,
	"public":     PUBLIC,
	"protected":  PROTECTED,
	"private":    PRIVATE,
	"static":     STATIC,
	"abstract":   ABSTRACT,
	"final":      FINAL,
	"readonly":   READONLY,
	"global":     GLOBAL,
	"echo":       ECHO,
	"true":       TRUE,
	"false":      FALSE,
	"null":       NULL,
	"isset":      ISSET,
	"unset":      UNSET,
	"empty":      EMPTY,
	"list":       LIST,
	"array":      ARRAY,
}

// LookupIdent maps an identifier to its keyword type, or IDENT.
// Keywords are case-insensitive in the analyzed language only for the
// canonical lowercase spelling; mixed-case keywords stay identifiers here
// because the upstream resolver canonicalizes them before we see them.
func LookupIdent(ident string) Type {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return IDENT
}
