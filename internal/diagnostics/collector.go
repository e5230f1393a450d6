package diagnostics

import (
	"fmt"
	"sort"
)

// Collector buffers diagnostics for a single file. Emission is atomic at
// file completion; nothing escapes early, so worker output cannot
// interleave. Deduplication keys on (code, primary span).
type Collector struct {
	set   map[string]*Diagnostic
	order []string
	muted bool
}

func NewCollector() *Collector {
	return &Collector{set: make(map[string]*Diagnostic)}
}

// Report adds a diagnostic. Duplicates by (code, primary span) are dropped;
// the first report wins so the most direct explanation survives.
func (c *Collector) Report(d *Diagnostic) {
	if c.muted || d == nil {
		return
	}
	key := fmt.Sprintf("%s:%d:%d", d.Code, d.Primary.Span.Start, d.Primary.Span.End)
	if _, ok := c.set[key]; ok {
		return
	}
	c.set[key] = d
	c.order = append(c.order, key)
}

// Mute suppresses reporting while analyzing a subtree whose diagnostics
// would be cascade noise (e.g. the body of a provably dead branch).
// It returns a restore function.
func (c *Collector) Mute() func() {
	prev := c.muted
	c.muted = true
	return func() { c.muted = prev }
}

// Len returns the number of unique diagnostics collected so far.
func (c *Collector) Len() int { return len(c.set) }

// Finish returns the collected diagnostics sorted by (start offset, code).
func (c *Collector) Finish() []*Diagnostic {
	out := make([]*Diagnostic, 0, len(c.set))
	for _, key := range c.order {
		out = append(out, c.set[key])
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Primary.Span.Start != out[j].Primary.Span.Start {
			return out[i].Primary.Span.Start < out[j].Primary.Span.Start
		}
		return out[i].Code < out[j].Code
	})
	return out
}

// MaxLevel returns the highest level among ds, or LevelNote when empty.
func MaxLevel(ds []*Diagnostic) Level {
	max := LevelNote
	for _, d := range ds {
		if d.Level > max {
			max = d.Level
		}
	}
	return max
}

// ExitCode implements the process exit policy: errors fail the run, and
// warnings fail it only in strict mode.
func ExitCode(ds []*Diagnostic, strict bool) int {
	switch MaxLevel(ds) {
	case LevelError:
		return 1
	case LevelWarning:
		if strict {
			return 1
		}
	}
	return 0
}
