package expert

import (
	"context"

	"github.com/tecpap/tecpap-ai/internal/models"
)

// Package expert answers "have we seen this before" over the plant's anomaly
// history and watches live telemetry for alert conditions.
//
// Responsibilities:
//   - Index historical anomalies with a capped TF-IDF vocabulary
//   - Retrieve the most similar past incidents for a free-text description
//   - Recompute active alerts wholesale from the last 24h of telemetry
//
// Alerts are ephemeral. Each knowledge-base load discards the previous set
// and derives the current one from scratch, so a recovered line clears its
// alert without any explicit acknowledgement flow.

// Expert is the anomaly knowledge engine.
type Expert interface {
	// LoadKnowledgeBase (re)builds the similarity index from stored anomaly
	// records and recomputes active alerts from recent telemetry.
	LoadKnowledgeBase(ctx context.Context) error

	// FindSimilar returns past incidents matching the description, sorted by
	// similarity descending. At most the configured number of matches, all
	// above the noise threshold. An unloaded index yields an empty list.
	FindSimilar(ctx context.Context, description string) ([]models.AnomalyMatch, error)

	// ActiveAlerts returns the alerts computed at the last knowledge-base
	// load, newest condition first.
	ActiveAlerts(ctx context.Context) ([]models.Alert, error)

	// RecentAnomalies returns stored anomaly records from the trailing
	// window, newest first.
	RecentAnomalies(ctx context.Context, days int) ([]models.AnomalyRecord, error)
}
