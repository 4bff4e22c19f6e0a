package data

// Package data provides access to historical plant telemetry and the anomaly
// knowledge base.
//
// Responsibilities:
//   - Expose read access for the decision engines (recent/all telemetry,
//     anomaly records)
//   - Persist ingested readings in SQLite (pure-Go driver, no CGO)
//   - Offer an in-memory implementation for tests and embedded use
//
// Time windows are relative to the newest stored record, not the wall clock,
// so engines behave identically over live feeds and historical replays.
// A window with zero matching records is a normal outcome, never an error.

import (
	"context"

	"github.com/tecpap/tecpap-ai/internal/models"
)

// Source is the read boundary between the decision engines and storage.
type Source interface {
	// RecentTelemetry returns records within windowDays of the newest
	// stored record, in chronological order.
	RecentTelemetry(ctx context.Context, windowDays int) ([]models.TelemetryRecord, error)

	// AllTelemetry returns every stored record in chronological order.
	AllTelemetry(ctx context.Context) ([]models.TelemetryRecord, error)

	// AnomalyRecords returns the full anomaly knowledge base.
	AnomalyRecords(ctx context.Context) ([]models.AnomalyRecord, error)
}

// Writer is the ingest side, implemented by stores that persist data.
type Writer interface {
	InsertTelemetry(ctx context.Context, records []models.TelemetryRecord) error
	InsertAnomalies(ctx context.Context, records []models.AnomalyRecord) error
}

// Store combines read and ingest access.
type Store interface {
	Source
	Writer
}
