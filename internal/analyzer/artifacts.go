package analyzer

import (
	"github.com/mago-lang/mago/internal/interner"
	"github.com/mago-lang/mago/internal/token"
	"github.com/mago-lang/mago/internal/typesystem"
)

// DataFlowEdge records that the value at From contributes to the value
// at To.
type DataFlowEdge struct {
	From token.Span
	To   token.Span
}

// SymbolRef records a resolved use of a named symbol, for reference
// queries and cache invalidation.
type SymbolRef struct {
	Symbol interner.StringId
	Span   token.Span
}

// Artifacts accumulates the per-file analysis byproducts: expression
// types keyed by span, data-flow edges and symbol references.
type Artifacts struct {
	exprTypes map[token.Key]*typesystem.Union
	Edges     []DataFlowEdge
	Refs      []SymbolRef
}

func NewArtifacts() *Artifacts {
	return &Artifacts{exprTypes: make(map[token.Key]*typesystem.Union)}
}

// SetType records the type of the expression at sp.
func (a *Artifacts) SetType(sp token.Span, u *typesystem.Union) {
	if u != nil {
		a.exprTypes[sp.Key()] = u
	}
}

// TypeOf returns the recorded type of the expression at sp.
func (a *Artifacts) TypeOf(sp token.Span) (*typesystem.Union, bool) {
	u, ok := a.exprTypes[sp.Key()]
	return u, ok
}

// AddEdge records a data-flow edge.
func (a *Artifacts) AddEdge(from, to token.Span) {
	a.Edges = append(a.Edges, DataFlowEdge{From: from, To: to})
}

// AddRef records a symbol reference.
func (a *Artifacts) AddRef(symbol interner.StringId, sp token.Span) {
	a.Refs = append(a.Refs, SymbolRef{Symbol: symbol, Span: sp})
}
