package modelstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite" // pure-Go SQLite driver (no CGO required)
)

// SQLiteStore persists artifacts in a single-table SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the artifact database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS model_artifacts (
        name       TEXT PRIMARY KEY,
        payload    BLOB NOT NULL,
        updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
    )`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create model_artifacts: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Save stores or replaces the named artifact.
func (s *SQLiteStore) Save(ctx context.Context, name string, artifact []byte) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO model_artifacts (name, payload, updated_at)
        VALUES (?, ?, CURRENT_TIMESTAMP)
        ON CONFLICT(name) DO UPDATE SET payload = excluded.payload, updated_at = CURRENT_TIMESTAMP`,
		name, artifact)
	if err != nil {
		return fmt.Errorf("save artifact %q: %w", name, err)
	}
	return nil
}

// Load returns the named artifact; ok is false when absent.
func (s *SQLiteStore) Load(ctx context.Context, name string) ([]byte, bool, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM model_artifacts WHERE name = ?`, name).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load artifact %q: %w", name, err)
	}
	return payload, true, nil
}
