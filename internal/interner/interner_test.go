package interner

import (
	"fmt"
	"sync"
	"testing"
)

func TestEmptyStringIsZero(t *testing.T) {
	in := New()
	if got := in.Intern(""); got != 0 {
		t.Errorf("Intern(\"\") = %d, want 0", got)
	}
	if got := in.Lookup(0); got != "" {
		t.Errorf("Lookup(0) = %q, want \"\"", got)
	}
}

func TestInternStable(t *testing.T) {
	in := New()
	a := in.Intern("Foo\\Bar")
	b := in.Intern("Foo\\Bar")
	if a != b {
		t.Errorf("Intern not stable: %d vs %d", a, b)
	}
	if got := in.Lookup(a); got != "Foo\\Bar" {
		t.Errorf("Lookup(%d) = %q, want %q", a, got, "Foo\\Bar")
	}
}

func TestDistinctStringsDistinctIds(t *testing.T) {
	in := New()
	seen := make(map[StringId]string)
	for i := 0; i < 1000; i++ {
		s := fmt.Sprintf("sym%d", i)
		id := in.Intern(s)
		if prev, ok := seen[id]; ok {
			t.Fatalf("id %d reused for %q and %q", id, prev, s)
		}
		seen[id] = s
	}
}

func TestConcurrentIntern(t *testing.T) {
	in := New()
	var wg sync.WaitGroup
	const workers = 8
	ids := make([][]StringId, workers)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			ids[w] = make([]StringId, 100)
			for i := 0; i < 100; i++ {
				ids[w][i] = in.Intern(fmt.Sprintf("shared%d", i))
			}
		}(w)
	}
	wg.Wait()

	for w := 1; w < workers; w++ {
		for i := 0; i < 100; i++ {
			if ids[w][i] != ids[0][i] {
				t.Fatalf("worker %d got id %d for shared%d, worker 0 got %d", w, ids[w][i], i, ids[0][i])
			}
		}
	}
}
