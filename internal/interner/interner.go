// Package interner maps arbitrary strings to dense stable identifiers.
//
// The analyzer never stores raw strings inside the type lattice; every name
// (class, function, variable, literal) is interned once and compared by id.
// Reads vastly outnumber writes after the index-build phase, so lookups go
// through a sync.Map that is only appended to.
package interner

import (
	"sync"
)

// StringId is a dense identifier for an interned string. Id 0 is always the
// empty string.
type StringId uint32

// Interner is safe for concurrent use. Intern is idempotent: equal strings
// always produce equal ids within one Interner.
type Interner struct {
	ids sync.Map // string -> StringId, lock-free read path

	mu      sync.RWMutex
	strings []string
}

func New() *Interner {
	in := &Interner{strings: make([]string, 1, 256)}
	in.strings[0] = ""
	in.ids.Store("", StringId(0))
	return in
}

// Intern returns the id for s, allocating one if s has not been seen.
func (in *Interner) Intern(s string) StringId {
	if id, ok := in.ids.Load(s); ok {
		return id.(StringId)
	}

	in.mu.Lock()
	// Re-check under the lock: another writer may have won the race.
	if id, ok := in.ids.Load(s); ok {
		in.mu.Unlock()
		return id.(StringId)
	}
	id := StringId(len(in.strings))
	in.strings = append(in.strings, s)
	in.ids.Store(s, id)
	in.mu.Unlock()
	return id
}

// Lookup reverses Intern. Looking up an id that was never handed out
// returns the empty string.
func (in *Interner) Lookup(id StringId) string {
	in.mu.RLock()
	defer in.mu.RUnlock()
	if int(id) >= len(in.strings) {
		return ""
	}
	return in.strings[id]
}

// Len returns the number of interned strings, including the empty string.
func (in *Interner) Len() int {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return len(in.strings)
}
