package analyzer

import (
	"strings"

	"github.com/mago-lang/mago/internal/clause"
	"github.com/mago-lang/mago/internal/interner"
	"github.com/mago-lang/mago/internal/typesystem"
)

// holder is a shared, immutable variable slot. Assignments install a
// fresh holder, so snapshotting a context for branch exploration is a
// shallow map copy.
type holder struct {
	t *typesystem.Union
}

// loopScope tracks one enclosing loop: the variables its body modifies
// and the contexts captured at break statements, joined at loop exit.
type loopScope struct {
	modified map[string]bool
	breaks   []*BlockContext
}

// finallyScope mirrors try-body writes so the finally block sees every
// variable that may or may not have been assigned when control arrives.
type finallyScope struct {
	locals map[string]*typesystem.Union
}

// BlockContext is the mutable per-scope analysis state.
type BlockContext struct {
	locals map[string]*holder

	// properties memoizes property reads through a variable receiver,
	// keyed "var->prop". Entries drop on reassignment of the receiver
	// and on impure method calls through it.
	properties map[string]*typesystem.Union

	// Clauses known to hold on this path.
	Clauses []*clause.Clause

	AssignedVariables         map[string]bool
	PossiblyAssignedVariables map[string]bool
	ReferencedVariables       map[string]bool

	loops   []*loopScope
	finally *finallyScope

	InsideLoop        bool
	InsideConditional bool
	InsideThrow       bool
	InsideAssignment  bool
	HasReturned       bool

	// Enclosing scope, for self/static resolution and static-call rules.
	Class    interner.StringId // 0 outside class-likes
	Function interner.StringId // 0 at top level
}

// NewBlockContext returns an empty context for a fresh scope.
func NewBlockContext() *BlockContext {
	return &BlockContext{
		locals:                    make(map[string]*holder),
		AssignedVariables:         make(map[string]bool),
		PossiblyAssignedVariables: make(map[string]bool),
		ReferencedVariables:       make(map[string]bool),
	}
}

// Local returns the current type of a variable.
func (c *BlockContext) Local(name string) (*typesystem.Union, bool) {
	h, ok := c.locals[name]
	if !ok {
		return nil, false
	}
	return h.t, true
}

// SetLocal installs a new holder for name. The old holder stays valid in
// any snapshot that shares it.
func (c *BlockContext) SetLocal(name string, t *typesystem.Union) {
	c.locals[name] = &holder{t: t}
	c.AssignedVariables[name] = true
	c.PossiblyAssignedVariables[name] = true
	c.ClearProperties(name)
	if c.finally != nil {
		mirrored := t.Clone()
		mirrored.PossiblyUndefinedFromTry = true
		c.finally.locals[name] = mirrored
	}
}

// Property returns a memoized property read.
func (c *BlockContext) Property(key string) (*typesystem.Union, bool) {
	t, ok := c.properties[key]
	return t, ok
}

// SetProperty memoizes one property read.
func (c *BlockContext) SetProperty(key string, t *typesystem.Union) {
	if c.properties == nil {
		c.properties = make(map[string]*typesystem.Union)
	}
	c.properties[key] = t
}

// ClearProperties drops every memoized read through the given receiver
// variable.
func (c *BlockContext) ClearProperties(receiver string) {
	prefix := receiver + "->"
	for key := range c.properties {
		if strings.HasPrefix(key, prefix) {
			delete(c.properties, key)
		}
	}
}

// Reference marks a variable as read.
func (c *BlockContext) Reference(name string) {
	c.ReferencedVariables[name] = true
}

// Unset removes a variable.
func (c *BlockContext) Unset(name string) {
	delete(c.locals, name)
}

// LocalNames returns every defined variable name.
func (c *BlockContext) LocalNames() []string {
	out := make([]string, 0, len(c.locals))
	for name := range c.locals {
		out = append(out, name)
	}
	return out
}

// Branch clones the context for exploring one branch. Holders are
// shared; the flag and tracking sets are copied.
func (c *BlockContext) Branch() *BlockContext {
	out := &BlockContext{
		locals:                    make(map[string]*holder, len(c.locals)),
		Clauses:                   append([]*clause.Clause{}, c.Clauses...),
		AssignedVariables:         copySet(c.AssignedVariables),
		PossiblyAssignedVariables: copySet(c.PossiblyAssignedVariables),
		ReferencedVariables:       c.ReferencedVariables,
		loops:                     c.loops,
		finally:                   c.finally,
		InsideLoop:                c.InsideLoop,
		InsideConditional:         c.InsideConditional,
		InsideThrow:               c.InsideThrow,
		InsideAssignment:          c.InsideAssignment,
		HasReturned:               c.HasReturned,
		Class:                     c.Class,
		Function:                  c.Function,
	}
	for name, h := range c.locals {
		out.locals[name] = h
	}
	if len(c.properties) > 0 {
		out.properties = make(map[string]*typesystem.Union, len(c.properties))
		for key, t := range c.properties {
			out.properties[key] = t
		}
	}
	return out
}

func copySet(s map[string]bool) map[string]bool {
	out := make(map[string]bool, len(s))
	for k := range s {
		out[k] = true
	}
	return out
}
