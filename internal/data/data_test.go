package data

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/tecpap/tecpap-ai/internal/models"
)

// stores returns both implementations so every behavior is tested against
// each backend.
func stores(t *testing.T) map[string]Store {
	t.Helper()
	sq, err := OpenSQLite(filepath.Join(t.TempDir(), "telemetry.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { sq.Close() })
	return map[string]Store{
		"memory": NewMemorySource(),
		"sqlite": sq,
	}
}

func TestRecentTelemetryWindowAnchoredOnNewest(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	records := []models.TelemetryRecord{
		{Timestamp: base, LineID: "L1", OEE: 70},
		{Timestamp: base.AddDate(0, 0, 5), LineID: "L1", OEE: 72},
		{Timestamp: base.AddDate(0, 0, 10), LineID: "L2", OEE: 74},
	}

	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if err := store.InsertTelemetry(ctx, records); err != nil {
				t.Fatalf("insert: %v", err)
			}

			// Window counts back from the newest stored record, not from
			// the wall clock; historical datasets stay queryable.
			got, err := store.RecentTelemetry(ctx, 7)
			if err != nil {
				t.Fatalf("recent: %v", err)
			}
			if len(got) != 2 {
				t.Fatalf("got %d records, want 2", len(got))
			}
			if got[0].OEE != 72 || got[1].OEE != 74 {
				t.Errorf("unexpected window contents: %+v", got)
			}
		})
	}
}

func TestRecentTelemetryEmptyStore(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			got, err := store.RecentTelemetry(context.Background(), 7)
			if err != nil {
				t.Fatalf("recent on empty store: %v", err)
			}
			if len(got) != 0 {
				t.Errorf("expected no records, got %d", len(got))
			}
		})
	}
}

func TestAllTelemetrySortedAscending(t *testing.T) {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	// Inserted out of order on purpose.
	records := []models.TelemetryRecord{
		{Timestamp: base.Add(2 * time.Hour), LineID: "L1", OEE: 72},
		{Timestamp: base, LineID: "L1", OEE: 70},
		{Timestamp: base.Add(1 * time.Hour), LineID: "L1", OEE: 71},
	}

	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if err := store.InsertTelemetry(ctx, records); err != nil {
				t.Fatal(err)
			}
			got, err := store.AllTelemetry(ctx)
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != 3 {
				t.Fatalf("got %d records, want 3", len(got))
			}
			for i := 1; i < len(got); i++ {
				if got[i].Timestamp.Before(got[i-1].Timestamp) {
					t.Errorf("records not sorted ascending at %d", i)
				}
			}
		})
	}
}

func TestAnomalyRoundTrip(t *testing.T) {
	record := models.AnomalyRecord{
		ID:             7,
		Timestamp:      time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC),
		LineID:         "L2",
		MachineID:      "M3",
		Symptom:        "glue application uneven",
		RootCause:      "clogged nozzle",
		Solution:       "clean and recalibrate",
		ResolutionTime: 30,
		ImpactOEE:      -4.5,
		Priority:       "Medium",
		Status:         "Resolved",
	}

	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if err := store.InsertAnomalies(ctx, []models.AnomalyRecord{record}); err != nil {
				t.Fatal(err)
			}
			got, err := store.AnomalyRecords(ctx)
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != 1 {
				t.Fatalf("got %d records, want 1", len(got))
			}
			r := got[0]
			if r.ID != record.ID || r.Symptom != record.Symptom ||
				r.Solution != record.Solution || r.ImpactOEE != record.ImpactOEE {
				t.Errorf("round trip mismatch: %+v", r)
			}
			if !r.Timestamp.Equal(record.Timestamp) {
				t.Errorf("timestamp = %v, want %v", r.Timestamp, record.Timestamp)
			}
		})
	}
}
