package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates the fingerprint database at dbPath.
// Use ":memory:" for an in-memory database.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("create state directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// :memory: databases are per connection.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS fingerprints (
		pipeline TEXT NOT NULL,
		path TEXT NOT NULL,
		hash TEXT NOT NULL,
		size INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		PRIMARY KEY (pipeline, path)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Get returns the fingerprint for path, if one was recorded.
func (s *SQLiteStore) Get(ctx context.Context, pipeline, path string) (Fingerprint, bool, error) {
	fp := Fingerprint{Pipeline: pipeline, Path: path}
	var updated int64
	err := s.db.QueryRowContext(ctx,
		"SELECT hash, size, updated_at FROM fingerprints WHERE pipeline = ? AND path = ?",
		pipeline, path,
	).Scan(&fp.Hash, &fp.Size, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return Fingerprint{}, false, nil
	}
	if err != nil {
		return Fingerprint{}, false, fmt.Errorf("query fingerprint: %w", err)
	}
	fp.UpdatedAt = time.Unix(0, updated)
	return fp, true, nil
}

// Put records fp, replacing any earlier entry for the same path.
func (s *SQLiteStore) Put(ctx context.Context, fp Fingerprint) error {
	if fp.UpdatedAt.IsZero() {
		fp.UpdatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO fingerprints (pipeline, path, hash, size, updated_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(pipeline, path) DO UPDATE SET hash = excluded.hash, size = excluded.size, updated_at = excluded.updated_at`,
		fp.Pipeline, fp.Path, fp.Hash, fp.Size, fp.UpdatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("upsert fingerprint: %w", err)
	}
	return nil
}

// Reset forgets every fingerprint of pipeline.
func (s *SQLiteStore) Reset(ctx context.Context, pipeline string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM fingerprints WHERE pipeline = ?", pipeline); err != nil {
		return fmt.Errorf("delete fingerprints: %w", err)
	}
	return nil
}

// Count returns the number of fingerprints recorded for pipeline.
func (s *SQLiteStore) Count(ctx context.Context, pipeline string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM fingerprints WHERE pipeline = ?", pipeline).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count fingerprints: %w", err)
	}
	return n, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
