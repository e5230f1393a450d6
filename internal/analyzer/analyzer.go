// Package analyzer walks one parsed file with the codebase index and
// produces diagnostics plus span-keyed analysis artifacts. Statement
// handling is an exhaustive switch; control flow is threaded as an
// explicit Flow result, never as panics.
package analyzer

import (
	"context"

	"github.com/mago-lang/mago/internal/ast"
	"github.com/mago-lang/mago/internal/codebase"
	"github.com/mago-lang/mago/internal/diagnostics"
	"github.com/mago-lang/mago/internal/interner"
	"github.com/mago-lang/mago/internal/names"
	"github.com/mago-lang/mago/internal/typesystem"
)

// Options are the analyzer thresholds and switches.
type Options struct {
	// MaxClauses aborts clause reconciliation past this count; the
	// analyzer falls back to the unrefined union with a note.
	MaxClauses int

	// LiteralLimit collapses literal unions past this cardinality.
	LiteralLimit int

	// LoopPasses bounds the loop fixpoint iteration.
	LoopPasses int

	// AllowPossiblyUndefinedArrayKeys demotes those errors to warnings.
	AllowPossiblyUndefinedArrayKeys bool

	// MemoizeProperties caches property reads through a variable
	// receiver until the receiver is reassigned or an impure method
	// runs on it.
	MemoizeProperties bool
}

// DefaultOptions mirror the shipped configuration defaults.
func DefaultOptions() Options {
	return Options{
		MaxClauses:   100,
		LiteralLimit: typesystem.DefaultLiteralLimit,
		LoopPasses:   2,
	}
}

func (o Options) normalized() Options {
	if o.MaxClauses <= 0 {
		o.MaxClauses = 100
	}
	if o.LiteralLimit <= 0 {
		o.LiteralLimit = typesystem.DefaultLiteralLimit
	}
	if o.LoopPasses <= 0 {
		o.LoopPasses = 2
	}
	return o
}

// Analyzer analyzes one file. It is not safe for concurrent use; the
// pipeline creates one per file.
type Analyzer struct {
	ctx   context.Context
	ir    *interner.Interner
	cb    *codebase.Codebase
	names *names.Table
	diags *diagnostics.Collector
	arts  *Artifacts
	opts  Options

	throwable interner.StringId
	cancelled bool
}

// New builds an analyzer for one file.
func New(ctx context.Context, ir *interner.Interner, cb *codebase.Codebase, table *names.Table, diags *diagnostics.Collector, opts Options) *Analyzer {
	return &Analyzer{
		ctx:       ctx,
		ir:        ir,
		cb:        cb,
		names:     table,
		diags:     diags,
		arts:      NewArtifacts(),
		opts:      opts.normalized(),
		throwable: ir.Intern("Throwable"),
	}
}

// Analyze walks the whole file: top-level statements in a synthetic main
// scope, then every function and method body.
func (a *Analyzer) Analyze(program *ast.Program) *Artifacts {
	main := NewBlockContext()
	for _, stmt := range program.Statements {
		if a.checkCancelled() {
			return a.arts
		}
		switch stmt.(type) {
		case *ast.FunctionDeclaration, *ast.ClassLikeDeclaration:
			// Bodies get their own scopes below.
		default:
			if a.statement(stmt, main).exitsFunction() {
				main.HasReturned = true
			}
		}
	}

	for _, stmt := range program.Statements {
		if a.checkCancelled() {
			return a.arts
		}
		switch d := stmt.(type) {
		case *ast.FunctionDeclaration:
			a.functionBody(d)
		case *ast.ClassLikeDeclaration:
			a.classBodies(d)
		}
	}
	return a.arts
}

// checkCancelled polls the run's cancellation; it is called at the top
// of every statement handler.
func (a *Analyzer) checkCancelled() bool {
	if a.cancelled {
		return true
	}
	select {
	case <-a.ctx.Done():
		a.cancelled = true
		return true
	default:
		return false
	}
}

func (a *Analyzer) functionBody(d *ast.FunctionDeclaration) {
	if d.Body == nil {
		return
	}
	name := a.resolvedName(d.Name)
	meta, _ := a.cb.Function(name)
	ctx := a.functionContext(0, name, meta, d.Params)
	a.block(d.Body, ctx)
}

func (a *Analyzer) classBodies(d *ast.ClassLikeDeclaration) {
	class := a.resolvedName(d.Name)
	for _, m := range d.Methods {
		if a.checkCancelled() {
			return
		}
		if m.Body == nil {
			continue
		}
		mname := a.ir.Intern(m.Name.Value)
		meta, _ := a.cb.Method(class, mname)
		ctx := a.functionContext(class, mname, meta, m.Params)
		if !m.IsStatic {
			ctx.SetLocal("this", typesystem.NewUnion(typesystem.TNamedObject{Name: class, IsThis: true}))
		}
		a.block(m.Body, ctx)
	}
}

// functionContext seeds a fresh scope with the declared parameter types.
func (a *Analyzer) functionContext(class, fn interner.StringId, meta *codebase.FunctionLikeMetadata, params []*ast.Parameter) *BlockContext {
	ctx := NewBlockContext()
	ctx.Class = class
	ctx.Function = fn
	for i, p := range params {
		t := typesystem.Mixed()
		if meta != nil && i < len(meta.Params) && meta.Params[i].Type != nil {
			t = meta.Params[i].Type
		}
		if p.Variadic {
			t = typesystem.NewUnion(typesystem.TArray{
				Key:    typesystem.Int(),
				Value:  t,
				IsList: true,
			})
		}
		ctx.SetLocal(p.Var.Name, t)
	}
	return ctx
}

// resolvedName returns the name table's resolution for an occurrence,
// falling back to qualifying the raw text.
func (a *Analyzer) resolvedName(n *ast.Name) interner.StringId {
	if id, ok := a.names.Get(n.Span()); ok {
		return id
	}
	return a.ir.Intern(a.names.Qualify(n.Value))
}

// combine is Combine with this run's literal limit.
func (a *Analyzer) combine(x, y *typesystem.Union) *typesystem.Union {
	return typesystem.Combine(a.ir, a.cb, x, y, a.opts.LiteralLimit)
}

// joinBranches merges branch contexts back into base. Variables defined
// in every live branch combine; variables defined in only some acquire
// possibly_undefined.
func (a *Analyzer) joinBranches(base *BlockContext, branches []*BlockContext) {
	live := make([]*BlockContext, 0, len(branches))
	for _, br := range branches {
		if !br.HasReturned {
			live = append(live, br)
		}
	}
	if len(live) == 0 {
		base.HasReturned = true
		return
	}

	// Branches may have written through receivers base never saw.
	base.properties = nil

	seen := make(map[string]bool)
	for _, br := range live {
		for name := range br.locals {
			seen[name] = true
		}
	}

	for name := range seen {
		var joined *typesystem.Union
		definedEverywhere := true
		for _, br := range live {
			t, ok := br.Local(name)
			if !ok {
				definedEverywhere = false
				continue
			}
			if joined == nil {
				joined = t
			} else {
				joined = a.combine(joined, t)
			}
		}
		if joined == nil {
			continue
		}
		if !definedEverywhere {
			joined = joined.Clone()
			joined.PossiblyUndefined = true
		}
		base.locals[name] = &holder{t: joined}
	}

	for _, br := range live {
		for name := range br.PossiblyAssignedVariables {
			base.PossiblyAssignedVariables[name] = true
		}
	}
}
