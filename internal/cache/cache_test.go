package cache

import (
	"context"
	"path/filepath"
	"testing"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRememberAndUnchanged(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	hash := Fingerprint([]byte("<?php class A {}"))
	ok, err := s.Unchanged(ctx, "src/a.php", hash)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("unknown file must not report unchanged")
	}

	if err := s.Remember(ctx, "src/a.php", hash); err != nil {
		t.Fatal(err)
	}
	ok, err = s.Unchanged(ctx, "src/a.php", hash)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("stored fingerprint must report unchanged")
	}

	edited := Fingerprint([]byte("<?php class A { public int $x; }"))
	ok, err = s.Unchanged(ctx, "src/a.php", edited)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("edited content must invalidate the entry")
	}
}

func TestSweepDropsUntouchedRows(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	if err := s.Remember(ctx, "src/kept.php", Fingerprint([]byte("kept"))); err != nil {
		t.Fatal(err)
	}

	// Simulate a previous run's leftover row.
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO files (path, hash, run_id) VALUES (?, ?, ?)`,
		"src/deleted.php", "stale", "old-run"); err != nil {
		t.Fatal(err)
	}

	n, err := s.Sweep(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("sweep removed %d rows, want 1", n)
	}

	ok, err := s.Unchanged(ctx, "src/kept.php", Fingerprint([]byte("kept")))
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("rows touched this run must survive the sweep")
	}
}

func TestFingerprintIsStable(t *testing.T) {
	a := Fingerprint([]byte("same"))
	b := Fingerprint([]byte("same"))
	c := Fingerprint([]byte("different"))
	if a != b {
		t.Error("identical content must fingerprint identically")
	}
	if a == c {
		t.Error("different content must fingerprint differently")
	}
}

func TestRunIDsAreUnique(t *testing.T) {
	s1 := openStore(t)
	s2 := openStore(t)
	if s1.RunID() == s2.RunID() {
		t.Error("each run gets its own id")
	}
	if s1.RunID() == "" {
		t.Error("run id must not be empty")
	}
}
