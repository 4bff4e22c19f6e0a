package expert

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tecpap/tecpap-ai/internal/config"
	"github.com/tecpap/tecpap-ai/internal/data"
	"github.com/tecpap/tecpap-ai/internal/metrics"
	"github.com/tecpap/tecpap-ai/internal/models"
	"github.com/tecpap/tecpap-ai/internal/plant"
)

// alertWindowDays is the telemetry window alert conditions are derived from.
const alertWindowDays = 1

type anomalyExpert struct {
	cfg    *config.Config
	source data.Source
	logger *zap.Logger

	mu      sync.RWMutex
	index   *vectorizer
	records []models.AnomalyRecord
	alerts  []models.Alert
}

// New creates the anomaly expert. The knowledge base starts empty; call
// LoadKnowledgeBase before expecting matches or alerts.
func New(cfg *config.Config, source data.Source, logger *zap.Logger) Expert {
	return &anomalyExpert{
		cfg:    cfg,
		source: source,
		logger: logger.Named("expert"),
	}
}

func (e *anomalyExpert) LoadKnowledgeBase(ctx context.Context) error {
	records, err := e.source.AnomalyRecords(ctx)
	if err != nil {
		return fmt.Errorf("load anomaly records: %w", err)
	}

	documents := make([]string, len(records))
	for i, r := range records {
		documents[i] = r.Symptom + " " + r.RootCause
	}
	var index *vectorizer
	if len(documents) > 0 {
		index = newVectorizer(documents, e.cfg.Similarity.MaxTerms)
	}

	alerts, err := e.computeAlerts(ctx)
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.index = index
	e.records = records
	e.alerts = alerts
	e.mu.Unlock()

	counts := map[string]int{"Critical": 0, "High": 0}
	for _, a := range alerts {
		counts[a.Severity]++
	}
	for severity, n := range counts {
		metrics.ActiveAlerts.WithLabelValues(severity).Set(float64(n))
	}

	e.logger.Info("knowledge base loaded",
		zap.Int("anomalies", len(records)),
		zap.Int("alerts", len(alerts)))
	return nil
}

func (e *anomalyExpert) FindSimilar(ctx context.Context, description string) ([]models.AnomalyMatch, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	// An unloaded or empty index degrades to no matches.
	if e.index == nil {
		return []models.AnomalyMatch{}, nil
	}

	sims := e.index.similarities(description)
	matches := make([]models.AnomalyMatch, 0, e.cfg.Similarity.MaxMatches)
	type scored struct {
		sim float64
		idx int
	}
	var candidates []scored
	for i, sim := range sims {
		if sim > e.cfg.Similarity.Threshold {
			candidates = append(candidates, scored{sim: sim, idx: i})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].sim > candidates[j].sim
	})
	if len(candidates) > e.cfg.Similarity.MaxMatches {
		candidates = candidates[:e.cfg.Similarity.MaxMatches]
	}

	for _, c := range candidates {
		r := e.records[c.idx]
		matches = append(matches, models.AnomalyMatch{
			Similarity: math.Round(c.sim*1000) / 10,
			LineID:     r.LineID,
			MachineID:  r.MachineID,
			Symptom:    r.Symptom,
			RootCause:  r.RootCause,
			Solution:   r.Solution,
		})
	}
	return matches, nil
}

func (e *anomalyExpert) ActiveAlerts(ctx context.Context) ([]models.Alert, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]models.Alert, len(e.alerts))
	copy(out, e.alerts)
	return out, nil
}

func (e *anomalyExpert) RecentAnomalies(ctx context.Context, days int) ([]models.AnomalyRecord, error) {
	records, err := e.source.AnomalyRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("load anomaly records: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	// Window is anchored on the newest record, matching the telemetry layer.
	newest := records[len(records)-1].Timestamp
	cutoff := newest.Add(-time.Duration(days) * 24 * time.Hour)

	var out []models.AnomalyRecord
	for _, r := range records {
		if !r.Timestamp.Before(cutoff) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out, nil
}

// computeAlerts derives the ephemeral alert set from the last 24h of
// telemetry. Per line the Critical drop condition wins over the absolute
// floor; a line raises at most one alert.
func (e *anomalyExpert) computeAlerts(ctx context.Context) ([]models.Alert, error) {
	records, err := e.source.RecentTelemetry(ctx, alertWindowDays)
	if err != nil {
		return nil, fmt.Errorf("load recent telemetry: %w", err)
	}

	byLine := make(map[string][]models.TelemetryRecord)
	for _, r := range records {
		byLine[r.LineID] = append(byLine[r.LineID], r)
	}

	var alerts []models.Alert
	for _, line := range plant.Lines {
		obs := byLine[line]
		if len(obs) == 0 {
			continue
		}
		latest := obs[len(obs)-1]
		sum := 0.0
		for _, o := range obs {
			sum += o.OEE
		}
		trailingMean := sum / float64(len(obs))

		switch {
		case latest.OEE < trailingMean-e.cfg.Alerts.DropThreshold:
			alerts = append(alerts, models.Alert{
				ID:       uuid.NewString(),
				LineID:   line,
				Severity: "Critical",
				Type:     "Performance_Drop",
				Message: fmt.Sprintf("%s OEE dropped to %.1f%%, %.1f points below its 24h average of %.1f%%",
					line, latest.OEE, trailingMean-latest.OEE, trailingMean),
				Current:   latest.OEE,
				Expected:  math.Round(trailingMean*10) / 10,
				Timestamp: latest.Timestamp,
			})
		case latest.OEE < e.cfg.Alerts.LowOEEThreshold:
			alerts = append(alerts, models.Alert{
				ID:       uuid.NewString(),
				LineID:   line,
				Severity: "High",
				Type:     "Low_OEE",
				Message: fmt.Sprintf("%s OEE at %.1f%%, below the %.0f%% floor",
					line, latest.OEE, e.cfg.Alerts.LowOEEThreshold),
				Current:   latest.OEE,
				Expected:  e.cfg.Alerts.LowOEEThreshold,
				Timestamp: latest.Timestamp,
			})
		}
	}
	return alerts, nil
}
