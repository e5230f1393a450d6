// Package clause implements the propositional layer the analyzer stores
// per branch: clauses mapping variable fingerprints to disjunctions of
// assertions, plus the store operations used at condition sites and
// control-flow joins.
package clause

import (
	"hash/fnv"
	"sort"

	"github.com/mago-lang/mago/internal/assertion"
	"github.com/mago-lang/mago/internal/interner"
	"github.com/mago-lang/mago/internal/token"
)

// Clause is a disjunction per variable, intersected across variables:
// it holds when, for every variable present, at least one of its
// assertions holds.
type Clause struct {
	// Possibilities maps a variable fingerprint to its assertions, keyed
	// by assertion key.
	Possibilities map[interner.StringId]map[string]assertion.Assertion

	// Span of the condition that generated the clause.
	Span token.Span

	Hash uint64

	// Wedge marks structural clauses (e.g. ternary branch markers) that
	// must never merge with clauses from other sites.
	Wedge bool

	// Reconcilable is false for clauses whose truth cannot refine types
	// (conditions over expressions the analyzer cannot fingerprint).
	Reconcilable bool

	// Generated marks clauses synthesized by the analyzer rather than
	// scraped from a written condition.
	Generated bool
}

// New builds a clause and precomputes its hash. Wedge and
// non-reconcilable clauses hash by span only, so structurally identical
// conditions at different sites stay distinct; everything else hashes
// its sorted content.
func New(ir *interner.Interner, poss map[interner.StringId]map[string]assertion.Assertion, span token.Span, wedge, reconcilable, generated bool) *Clause {
	c := &Clause{
		Possibilities: poss,
		Span:          span,
		Wedge:         wedge,
		Reconcilable:  reconcilable,
		Generated:     generated,
	}
	c.Hash = c.hash(ir)
	return c
}

func (c *Clause) hash(ir *interner.Interner) uint64 {
	h := fnv.New64a()
	if c.Wedge || !c.Reconcilable {
		writeUint(h, uint64(c.Span.File))
		writeUint(h, uint64(c.Span.Start))
		writeUint(h, uint64(c.Span.End))
		if c.Wedge {
			h.Write([]byte{'w'})
		}
		return h.Sum64()
	}

	vars := make([]interner.StringId, 0, len(c.Possibilities))
	for v := range c.Possibilities {
		vars = append(vars, v)
	}
	sort.Slice(vars, func(i, j int) bool { return vars[i] < vars[j] })
	for _, v := range vars {
		writeUint(h, uint64(v))
		keys := make([]string, 0, len(c.Possibilities[v]))
		for k := range c.Possibilities[v] {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			h.Write([]byte(k))
			h.Write([]byte{0})
		}
		h.Write([]byte{1})
	}
	return h.Sum64()
}

func writeUint(h interface{ Write([]byte) (int, error) }, v uint64) {
	var buf [8]byte
	for i := 0; i < 8; i++ {
		buf[i] = byte(v >> (8 * i))
	}
	h.Write(buf[:])
}

// Equals is hash equality.
func (c *Clause) Equals(other *Clause) bool {
	return c.Hash == other.Hash
}

// Contains reports whether every variable of other appears in c with its
// possibility set a subset of c's.
func (c *Clause) Contains(other *Clause) bool {
	for v, theirs := range other.Possibilities {
		ours, ok := c.Possibilities[v]
		if !ok {
			return false
		}
		for key := range theirs {
			if _, ok := ours[key]; !ok {
				return false
			}
		}
	}
	return true
}

// Variables returns the fingerprints the clause mentions, sorted.
func (c *Clause) Variables() []interner.StringId {
	out := make([]interner.StringId, 0, len(c.Possibilities))
	for v := range c.Possibilities {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// clone copies the clause deeply enough to mutate possibilities.
func (c *Clause) clone() *Clause {
	poss := make(map[interner.StringId]map[string]assertion.Assertion, len(c.Possibilities))
	for v, m := range c.Possibilities {
		inner := make(map[string]assertion.Assertion, len(m))
		for k, a := range m {
			inner[k] = a
		}
		poss[v] = inner
	}
	out := *c
	out.Possibilities = poss
	return &out
}
