// Package diagnostics defines the typed issues the analyzer emits and the
// per-file collector that deduplicates and orders them.
package diagnostics

import (
	"fmt"

	"github.com/mago-lang/mago/internal/token"
)

// Level is the severity of a diagnostic.
type Level int

const (
	LevelNote Level = iota
	LevelHelp
	LevelWarning
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelError:
		return "error"
	case LevelWarning:
		return "warning"
	case LevelHelp:
		return "help"
	default:
		return "note"
	}
}

// Safety classifies a fix plan for consumers that apply edits automatically.
type Safety int

const (
	SafetySafe Safety = iota
	SafetyPotentiallyUnsafe
)

// Edit is a single span-keyed text replacement.
type Edit struct {
	Span token.Span
	Text string
}

// FixPlan is an ordered list of edits that resolves the diagnostic.
type FixPlan struct {
	Safety Safety
	Edits  []Edit
}

// Annotation attaches a message to a span. The primary annotation carries
// the diagnostic's location; secondary annotations add context.
type Annotation struct {
	Span    token.Span
	Message string
}

// Diagnostic is one reported issue. Code is a stable string (see codes.go);
// consumers key suppression and documentation links on it.
type Diagnostic struct {
	Level     Level
	Code      Code
	Message   string
	Primary   Annotation
	Secondary []Annotation
	Notes     []string
	Help      string
	Link      string
	Fix       *FixPlan
}

// New builds a diagnostic with its primary annotation. The level comes from
// the code's registration.
func New(code Code, span token.Span, format string, args ...interface{}) *Diagnostic {
	msg := fmt.Sprintf(format, args...)
	return &Diagnostic{
		Level:   code.Level(),
		Code:    code,
		Message: msg,
		Primary: Annotation{Span: span, Message: msg},
	}
}

// WithAnnotation appends a secondary annotation and returns the diagnostic
// for chaining.
func (d *Diagnostic) WithAnnotation(span token.Span, format string, args ...interface{}) *Diagnostic {
	d.Secondary = append(d.Secondary, Annotation{Span: span, Message: fmt.Sprintf(format, args...)})
	return d
}

// WithNote appends a free-form note.
func (d *Diagnostic) WithNote(format string, args ...interface{}) *Diagnostic {
	d.Notes = append(d.Notes, fmt.Sprintf(format, args...))
	return d
}

// WithHelp sets the help text.
func (d *Diagnostic) WithHelp(help string) *Diagnostic {
	d.Help = help
	return d
}

// WithFix attaches a fix plan.
func (d *Diagnostic) WithFix(safety Safety, edits ...Edit) *Diagnostic {
	d.Fix = &FixPlan{Safety: safety, Edits: edits}
	return d
}
