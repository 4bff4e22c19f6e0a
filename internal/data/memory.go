package data

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/tecpap/tecpap-ai/internal/models"
)

// memorySource is an in-memory Source + Writer used by tests and embedded
// callers. Records are kept sorted by timestamp.
type memorySource struct {
	mu        sync.RWMutex
	telemetry []models.TelemetryRecord
	anomalies []models.AnomalyRecord
}

// NewMemorySource creates an empty in-memory data source.
func NewMemorySource() Store {
	return &memorySource{}
}

func (m *memorySource) InsertTelemetry(ctx context.Context, records []models.TelemetryRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.telemetry = append(m.telemetry, records...)
	sort.SliceStable(m.telemetry, func(i, j int) bool {
		return m.telemetry[i].Timestamp.Before(m.telemetry[j].Timestamp)
	})
	return nil
}

func (m *memorySource) InsertAnomalies(ctx context.Context, records []models.AnomalyRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.anomalies = append(m.anomalies, records...)
	return nil
}

func (m *memorySource) RecentTelemetry(ctx context.Context, windowDays int) ([]models.TelemetryRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.telemetry) == 0 {
		return nil, nil
	}
	newest := m.telemetry[len(m.telemetry)-1].Timestamp
	cutoff := newest.Add(-time.Duration(windowDays) * 24 * time.Hour)

	var out []models.TelemetryRecord
	for _, r := range m.telemetry {
		if !r.Timestamp.Before(cutoff) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memorySource) AllTelemetry(ctx context.Context) ([]models.TelemetryRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.TelemetryRecord, len(m.telemetry))
	copy(out, m.telemetry)
	return out, nil
}

func (m *memorySource) AnomalyRecords(ctx context.Context) ([]models.AnomalyRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.AnomalyRecord, len(m.anomalies))
	copy(out, m.anomalies)
	return out, nil
}
