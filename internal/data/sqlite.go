package data

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/tecpap/tecpap-ai/internal/models"
	_ "modernc.org/sqlite" // pure-Go SQLite driver (no CGO required)
)

// migrations define the telemetry store schema. Applied versions are tracked
// in schema_versions.
var migrations = []struct {
	version int
	sql     string
}{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_versions (
    version     INTEGER PRIMARY KEY,
    applied_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS telemetry (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    timestamp     DATETIME NOT NULL,
    line_id       TEXT NOT NULL,
    product_type  TEXT NOT NULL DEFAULT '',
    machine_speed INTEGER NOT NULL DEFAULT 0,
    oee           REAL NOT NULL,
    availability  REAL NOT NULL DEFAULT 0,
    performance   REAL NOT NULL DEFAULT 0,
    quality       REAL NOT NULL DEFAULT 0,
    good_pieces   INTEGER NOT NULL DEFAULT 0,
    total_pieces  INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_telemetry_timestamp ON telemetry(timestamp);
CREATE INDEX IF NOT EXISTS idx_telemetry_line ON telemetry(line_id, timestamp);

CREATE TABLE IF NOT EXISTS anomalies (
    id                      INTEGER PRIMARY KEY,
    timestamp               DATETIME NOT NULL,
    line_id                 TEXT NOT NULL,
    machine_id              TEXT NOT NULL DEFAULT '',
    symptom                 TEXT NOT NULL DEFAULT '',
    root_cause              TEXT NOT NULL DEFAULT '',
    solution                TEXT NOT NULL DEFAULT '',
    resolution_time_minutes INTEGER NOT NULL DEFAULT 0,
    impact_oee              REAL NOT NULL DEFAULT 0,
    priority                TEXT NOT NULL DEFAULT 'Medium',
    status                  TEXT NOT NULL DEFAULT 'Resolved'
);
CREATE INDEX IF NOT EXISTS idx_anomalies_timestamp ON anomalies(timestamp DESC);
CREATE INDEX IF NOT EXISTS idx_anomalies_line ON anomalies(line_id);
`,
	},
}

// SQLiteStore is the SQLite-backed Source + Writer.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the telemetry database at path and
// applies pending migrations.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// modernc sqlite serializes writes; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_versions (
        version INTEGER PRIMARY KEY,
        applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP)`); err != nil {
		return fmt.Errorf("create schema_versions: %w", err)
	}

	var current int
	if err := s.db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_versions`).Scan(&current); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("apply migration %d: %w", m.version, err)
		}
		if _, err := s.db.Exec(`INSERT INTO schema_versions (version) VALUES (?)`, m.version); err != nil {
			return fmt.Errorf("record migration %d: %w", m.version, err)
		}
	}
	return nil
}

func (s *SQLiteStore) InsertTelemetry(ctx context.Context, records []models.TelemetryRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO telemetry
        (timestamp, line_id, product_type, machine_speed, oee, availability, performance, quality, good_pieces, total_pieces)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx, r.Timestamp.UTC(), r.LineID, r.ProductType, r.MachineSpeed,
			r.OEE, r.Availability, r.Performance, r.Quality, r.GoodPieces, r.TotalPieces); err != nil {
			return fmt.Errorf("insert telemetry: %w", err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) InsertAnomalies(ctx context.Context, records []models.AnomalyRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO anomalies
        (id, timestamp, line_id, machine_id, symptom, root_cause, solution, resolution_time_minutes, impact_oee, priority, status)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx, r.ID, r.Timestamp.UTC(), r.LineID, r.MachineID, r.Symptom,
			r.RootCause, r.Solution, r.ResolutionTime, r.ImpactOEE, r.Priority, r.Status); err != nil {
			return fmt.Errorf("insert anomaly: %w", err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) RecentTelemetry(ctx context.Context, windowDays int) ([]models.TelemetryRecord, error) {
	var newest sql.NullTime
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(timestamp) FROM telemetry`).Scan(&newest); err != nil {
		return nil, fmt.Errorf("newest timestamp: %w", err)
	}
	if !newest.Valid {
		return nil, nil
	}

	cutoff := newest.Time.Add(-time.Duration(windowDays) * 24 * time.Hour)
	return s.queryTelemetry(ctx, `SELECT timestamp, line_id, product_type, machine_speed, oee, availability,
        performance, quality, good_pieces, total_pieces
        FROM telemetry WHERE timestamp >= ? ORDER BY timestamp ASC`, cutoff)
}

func (s *SQLiteStore) AllTelemetry(ctx context.Context) ([]models.TelemetryRecord, error) {
	return s.queryTelemetry(ctx, `SELECT timestamp, line_id, product_type, machine_speed, oee, availability,
        performance, quality, good_pieces, total_pieces
        FROM telemetry ORDER BY timestamp ASC`)
}

func (s *SQLiteStore) queryTelemetry(ctx context.Context, query string, args ...interface{}) ([]models.TelemetryRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query telemetry: %w", err)
	}
	defer rows.Close()

	var out []models.TelemetryRecord
	for rows.Next() {
		var r models.TelemetryRecord
		if err := rows.Scan(&r.Timestamp, &r.LineID, &r.ProductType, &r.MachineSpeed, &r.OEE,
			&r.Availability, &r.Performance, &r.Quality, &r.GoodPieces, &r.TotalPieces); err != nil {
			return nil, fmt.Errorf("scan telemetry: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) AnomalyRecords(ctx context.Context) ([]models.AnomalyRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, timestamp, line_id, machine_id, symptom, root_cause,
        solution, resolution_time_minutes, impact_oee, priority, status
        FROM anomalies ORDER BY timestamp ASC`)
	if err != nil {
		return nil, fmt.Errorf("query anomalies: %w", err)
	}
	defer rows.Close()

	var out []models.AnomalyRecord
	for rows.Next() {
		var r models.AnomalyRecord
		if err := rows.Scan(&r.ID, &r.Timestamp, &r.LineID, &r.MachineID, &r.Symptom, &r.RootCause,
			&r.Solution, &r.ResolutionTime, &r.ImpactOEE, &r.Priority, &r.Status); err != nil {
			return nil, fmt.Errorf("scan anomaly: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
