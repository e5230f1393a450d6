// Package docblock extracts the analyzer-relevant tags from raw docblock
// text. Type strings stay raw here; callers feed them through the
// typesystem parser with the right scope.
package docblock

import (
	"strings"

	"github.com/mago-lang/mago/internal/typesystem"
)

// Template is one declared template parameter.
type Template struct {
	Name     string
	Bound    string // raw type string, "" when unbounded
	Variance typesystem.Variance
}

// Assert is an @assert family tag: calling the function proves (or
// refutes) a type for one of its parameters.
type Assert struct {
	Var     string // without the $ sigil
	Type    string // raw type string
	Negated bool   // !Type form
	IfTrue  bool   // @assert-if-true
	IfFalse bool   // @assert-if-false
}

// Docblock is the parsed tag set of one docblock.
type Docblock struct {
	Summary    string
	Params     map[string]string // $name (sans sigil) -> raw type string
	Return     string
	Var        string // @var type
	VarName    string // optional $name after @var
	Templates  []Template
	Extends    []string // raw @extends/@template-extends type strings
	Implements []string
	Uses       []string
	Throws     []string
	Asserts    []Assert
	IsPure     bool
	Deprecated bool
}

// Parse extracts tags from raw docblock text (including the comment
// delimiters). A nil result means the text held nothing of interest.
func Parse(raw string) *Docblock {
	lines := normalize(raw)
	if len(lines) == 0 {
		return nil
	}

	d := &Docblock{Params: make(map[string]string)}
	seen := false
	var summary []string

	for _, line := range lines {
		if !strings.HasPrefix(line, "@") {
			if line != "" && len(summary) < 3 {
				summary = append(summary, line)
			}
			continue
		}
		tag, rest := splitTag(line)
		switch tag {
		case "@param", "@psalm-param", "@phpstan-param":
			typ, rest := splitType(rest)
			name := paramName(rest)
			if typ != "" && name != "" {
				d.Params[name] = typ
				seen = true
			}
		case "@return", "@psalm-return", "@phpstan-return":
			if typ, _ := splitType(rest); typ != "" {
				d.Return = typ
				seen = true
			}
		case "@var", "@psalm-var", "@phpstan-var":
			typ, rest := splitType(rest)
			if typ != "" {
				d.Var = typ
				d.VarName = paramName(rest)
				seen = true
			}
		case "@template", "@psalm-template", "@phpstan-template":
			d.addTemplate(rest, typesystem.Invariant)
			seen = true
		case "@template-covariant":
			d.addTemplate(rest, typesystem.Covariant)
			seen = true
		case "@template-contravariant":
			d.addTemplate(rest, typesystem.Contravariant)
			seen = true
		case "@extends", "@template-extends":
			if typ, _ := splitType(rest); typ != "" {
				d.Extends = append(d.Extends, typ)
				seen = true
			}
		case "@implements", "@template-implements":
			if typ, _ := splitType(rest); typ != "" {
				d.Implements = append(d.Implements, typ)
				seen = true
			}
		case "@use", "@template-use":
			if typ, _ := splitType(rest); typ != "" {
				d.Uses = append(d.Uses, typ)
				seen = true
			}
		case "@throws", "@psalm-throws":
			if typ, _ := splitType(rest); typ != "" {
				d.Throws = append(d.Throws, typ)
				seen = true
			}
		case "@assert", "@psalm-assert":
			d.addAssert(rest, false, false)
			seen = true
		case "@assert-if-true", "@psalm-assert-if-true":
			d.addAssert(rest, true, false)
			seen = true
		case "@assert-if-false", "@psalm-assert-if-false":
			d.addAssert(rest, false, true)
			seen = true
		case "@pure", "@psalm-pure":
			d.IsPure = true
			seen = true
		case "@deprecated":
			d.Deprecated = true
			seen = true
		}
	}

	d.Summary = strings.Join(summary, " ")
	if !seen && d.Summary == "" {
		return nil
	}
	return d
}

func (d *Docblock) addTemplate(rest string, v typesystem.Variance) {
	name, rest := splitWord(rest)
	if name == "" {
		return
	}
	t := Template{Name: name, Variance: v}
	if kw, after := splitWord(rest); kw == "of" || kw == "as" {
		t.Bound, _ = splitType(after)
	}
	d.Templates = append(d.Templates, t)
}

func (d *Docblock) addAssert(rest string, ifTrue, ifFalse bool) {
	typ, rest := splitType(rest)
	name := paramName(rest)
	if typ == "" || name == "" {
		return
	}
	a := Assert{Var: name, Type: typ, IfTrue: ifTrue, IfFalse: ifFalse}
	if strings.HasPrefix(a.Type, "!") {
		a.Negated = true
		a.Type = a.Type[1:]
	}
	d.Asserts = append(d.Asserts, a)
}

// normalize strips the comment delimiters and the leading asterisk gutter,
// returning trimmed logical lines.
func normalize(raw string) []string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "/**")
	raw = strings.TrimSuffix(raw, "*/")
	var lines []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimPrefix(line, "*")
		line = strings.TrimSpace(line)
		lines = append(lines, line)
	}
	return lines
}

func splitTag(line string) (string, string) {
	if i := strings.IndexAny(line, " \t"); i >= 0 {
		return line[:i], strings.TrimSpace(line[i+1:])
	}
	return line, ""
}

func splitWord(s string) (string, string) {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, " \t"); i >= 0 {
		return s[:i], strings.TrimSpace(s[i+1:])
	}
	return s, ""
}

// splitType takes the leading type string, keeping bracketed regions
// (`array{a: int}`, `Map<K, V>`, callable signatures) intact even though
// they contain spaces.
func splitType(s string) (string, string) {
	s = strings.TrimSpace(s)
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '<', '{', '(', '[':
			depth++
		case '>', '}', ')', ']':
			depth--
		case ' ', '\t':
			if depth == 0 {
				return s[:i], strings.TrimSpace(s[i+1:])
			}
		}
	}
	return s, ""
}

// paramName extracts a $name from the front of rest, dropping the sigil.
func paramName(rest string) string {
	word, _ := splitWord(rest)
	if strings.HasPrefix(word, "...$") {
		return word[4:]
	}
	if strings.HasPrefix(word, "$") {
		return word[1:]
	}
	return ""
}
