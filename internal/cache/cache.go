// Package cache persists per-file scan fingerprints between runs so
// unchanged files can skip re-indexing. The store is a single sqlite
// database; every run gets a fresh id and touches the rows it saw, so
// stale entries can be swept afterwards.
package cache

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS files (
	path    TEXT PRIMARY KEY,
	hash    TEXT NOT NULL,
	run_id  TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	started_at TEXT NOT NULL DEFAULT (datetime('now'))
);
`

// Store is an on-disk fingerprint cache.
type Store struct {
	db    *sql.DB
	runID string
}

// Open opens (creating if needed) the cache database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init cache schema: %w", err)
	}
	s := &Store{db: db, runID: uuid.NewString()}
	if _, err := db.ExecContext(ctx, `INSERT INTO runs (id) VALUES (?)`, s.runID); err != nil {
		db.Close()
		return nil, fmt.Errorf("record run: %w", err)
	}
	return s, nil
}

// RunID identifies this run in reports and sweep bookkeeping.
func (s *Store) RunID() string { return s.runID }

// Fingerprint hashes file content into the stable cache key.
func Fingerprint(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// Unchanged reports whether the file's stored fingerprint matches. A
// match also marks the row as seen by this run.
func (s *Store) Unchanged(ctx context.Context, path, hash string) (bool, error) {
	var stored string
	err := s.db.QueryRowContext(ctx, `SELECT hash FROM files WHERE path = ?`, path).Scan(&stored)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query cache: %w", err)
	}
	if stored != hash {
		return false, nil
	}
	if _, err := s.db.ExecContext(ctx, `UPDATE files SET run_id = ? WHERE path = ?`, s.runID, path); err != nil {
		return false, fmt.Errorf("touch cache row: %w", err)
	}
	return true, nil
}

// Remember stores the file's fingerprint for the next run.
func (s *Store) Remember(ctx context.Context, path, hash string) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO files (path, hash, run_id) VALUES (?, ?, ?)
ON CONFLICT(path) DO UPDATE SET hash = excluded.hash, run_id = excluded.run_id`,
		path, hash, s.runID)
	if err != nil {
		return fmt.Errorf("store cache row: %w", err)
	}
	return nil
}

// Sweep deletes rows this run never touched: files that were removed
// from the project since the cache was written.
func (s *Store) Sweep(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM files WHERE run_id != ?`, s.runID)
	if err != nil {
		return 0, fmt.Errorf("sweep cache: %w", err)
	}
	return res.RowsAffected()
}

// Close releases the underlying database.
func (s *Store) Close() error { return s.db.Close() }
