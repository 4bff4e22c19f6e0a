package recommender

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/tecpap/tecpap-ai/internal/config"
	"github.com/tecpap/tecpap-ai/internal/data"
	"github.com/tecpap/tecpap-ai/internal/models"
	"github.com/tecpap/tecpap-ai/internal/plant"
)

// stubForecaster returns a fixed per-line OEE prediction.
type stubForecaster struct {
	values map[string]float64
	err    error
}

func (s *stubForecaster) Predict(ctx context.Context, ts time.Time, lineID string) (float64, error) {
	if s.err != nil {
		return 0, s.err
	}
	return s.values[lineID], nil
}

func (s *stubForecaster) Ready(ctx context.Context) bool { return s.err == nil }

func seedLine(t *testing.T, store data.Store, line string, oees []float64, avail, qual, perf float64) {
	t.Helper()
	base := time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)
	var records []models.TelemetryRecord
	for i, oee := range oees {
		records = append(records, models.TelemetryRecord{
			Timestamp:    base.Add(time.Duration(i) * time.Hour),
			LineID:       line,
			OEE:          oee,
			Availability: avail,
			Quality:      qual,
			Performance:  perf,
		})
	}
	if err := store.InsertTelemetry(context.Background(), records); err != nil {
		t.Fatalf("seed %s: %v", line, err)
	}
}

func TestBestLinePrefersSteadyHighPerformer(t *testing.T) {
	store := data.NewMemorySource()
	// L1: high and steady. L2: same mean OEE but erratic. L3: low.
	seedLine(t, store, "L1", []float64{80, 81, 80, 79, 80}, 90, 96, 85)
	seedLine(t, store, "L2", []float64{95, 65, 95, 65, 80}, 90, 96, 85)
	seedLine(t, store, "L3", []float64{60, 61, 60, 59, 60}, 80, 90, 70)

	r := New(config.Default(), store, nil, zap.NewNop())
	result, err := r.BestLine(context.Background())
	if err != nil {
		t.Fatalf("best line: %v", err)
	}

	if result.RecommendedLine != "L1" {
		t.Errorf("recommended %s, want L1 (stability should break the OEE tie)", result.RecommendedLine)
	}
	if len(result.AllScores) != 3 {
		t.Fatalf("scores for %d lines, want 3", len(result.AllScores))
	}
	for i := 1; i < len(result.AllScores); i++ {
		if result.AllScores[i].TotalScore > result.AllScores[i-1].TotalScore {
			t.Errorf("scores not sorted descending at %d", i)
		}
	}
	if result.Reason == "" {
		t.Error("reason must not be empty")
	}
}

func TestBestLineStabilityScore(t *testing.T) {
	store := data.NewMemorySource()
	// Sample stdev of {70, 80} is ~7.07, stability = 100 - 2*7.07.
	seedLine(t, store, "L1", []float64{70, 80}, 90, 95, 85)

	r := New(config.Default(), store, nil, zap.NewNop())
	result, err := r.BestLine(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	want := 100 - 2*math.Sqrt(50)
	if math.Abs(result.Details.Stability-want) > 0.01 {
		t.Errorf("stability = %v, want %v", result.Details.Stability, want)
	}
}

func TestBestLineSkipsEmptyLines(t *testing.T) {
	store := data.NewMemorySource()
	seedLine(t, store, "L2", []float64{75, 76, 75}, 88, 94, 84)

	r := New(config.Default(), store, nil, zap.NewNop())
	result, err := r.BestLine(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if result.RecommendedLine != "L2" {
		t.Errorf("recommended %s, want L2", result.RecommendedLine)
	}
	if len(result.AllScores) != 1 {
		t.Errorf("lines without observations must be skipped, got %d scores", len(result.AllScores))
	}
}

func TestBestLineIdempotent(t *testing.T) {
	store := data.NewMemorySource()
	seedLine(t, store, "L1", []float64{78, 79, 77, 80}, 90, 96, 85)
	seedLine(t, store, "L2", []float64{72, 71, 73, 72}, 88, 93, 82)

	r := New(config.Default(), store, nil, zap.NewNop())
	first, err := r.BestLine(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	second, err := r.BestLine(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	// No hidden random state: identical inputs, identical ranking.
	if first.RecommendedLine != second.RecommendedLine || first.Score != second.Score {
		t.Errorf("repeated call diverged: (%s, %v) vs (%s, %v)",
			first.RecommendedLine, first.Score, second.RecommendedLine, second.Score)
	}
	for i := range first.AllScores {
		if first.AllScores[i] != second.AllScores[i] {
			t.Errorf("score %d diverged: %+v vs %+v", i, first.AllScores[i], second.AllScores[i])
		}
	}
}

func TestBestLineNoData(t *testing.T) {
	r := New(config.Default(), data.NewMemorySource(), nil, zap.NewNop())
	if _, err := r.BestLine(context.Background()); err == nil {
		t.Fatal("expected error with no telemetry at all")
	}
}

func TestRecommendTotalOrdering(t *testing.T) {
	forecast := &stubForecaster{values: map[string]float64{"L1": 82, "L2": 75, "L3": 68}}
	r := New(config.Default(), data.NewMemorySource(), forecast, zap.NewNop())

	rec, err := r.Recommend(context.Background(), "Fond_Plat", 5000)
	if err != nil {
		t.Fatalf("recommend: %v", err)
	}
	if len(rec.Alternatives) != len(plant.Lines)-1 {
		t.Fatalf("alternatives = %d, want %d", len(rec.Alternatives), len(plant.Lines)-1)
	}
	for i := 1; i < len(rec.Alternatives); i++ {
		if rec.Alternatives[i].Score > rec.Alternatives[i-1].Score {
			t.Errorf("alternatives not sorted descending at %d", i)
		}
	}
	for _, opt := range rec.Alternatives {
		if opt.LineID == rec.RecommendedLine {
			t.Errorf("recommended line %s must not appear in alternatives", rec.RecommendedLine)
		}
		if opt.Score > rec.Score {
			t.Errorf("alternative %s outscores the recommendation: %v > %v", opt.LineID, opt.Score, rec.Score)
		}
	}
}

func TestRecommendPlanningFigures(t *testing.T) {
	forecast := &stubForecaster{values: map[string]float64{"L1": 75, "L2": 75, "L3": 75}}
	r := New(config.Default(), data.NewMemorySource(), forecast, zap.NewNop())

	rec, err := r.Recommend(context.Background(), "Fond_Plat", 2000)
	if err != nil {
		t.Fatal(err)
	}
	for _, opt := range append([]models.LineOption{rec.Details}, rec.Alternatives...) {
		ch := plant.Characteristics[opt.LineID]
		want := math.Round(2000.0/float64(ch.Speed)*10) / 10
		if opt.ProductionTimeHours != want {
			t.Errorf("%s: production time %v, want %v", opt.LineID, opt.ProductionTimeHours, want)
		}
		if opt.LineID == "L1" && opt.ProductionTimeHours != 2.0 {
			t.Errorf("L1 at 1000 pcs/h for 2000 pieces: %v hours, want 2.0", opt.ProductionTimeHours)
		}
		if opt.OperatorsNeeded != ch.OperatorsNeeded {
			t.Errorf("%s: operators %d, want %d", opt.LineID, opt.OperatorsNeeded, ch.OperatorsNeeded)
		}
	}
}

func TestRecommendFallsBackToNeutralOEE(t *testing.T) {
	cfg := config.Default()
	r := New(cfg, data.NewMemorySource(), &stubForecaster{err: fmt.Errorf("model unavailable")}, zap.NewNop())

	rec, err := r.Recommend(context.Background(), "Fond_Plat", 1000)
	if err != nil {
		t.Fatal(err)
	}
	for _, opt := range append([]models.LineOption{rec.Details}, rec.Alternatives...) {
		if opt.PredictedOEE != cfg.Scoring.NeutralOEE {
			t.Errorf("%s: predicted OEE %v, want neutral %v", opt.LineID, opt.PredictedOEE, cfg.Scoring.NeutralOEE)
		}
	}
}

func TestRecommendConfidenceThreshold(t *testing.T) {
	high := &stubForecaster{values: map[string]float64{"L1": 95, "L2": 95, "L3": 95}}
	r := New(config.Default(), data.NewMemorySource(), high, zap.NewNop())
	rec, err := r.Recommend(context.Background(), "Fond_Plat", 1000)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Confidence != "High" {
		t.Errorf("confidence = %s, want High for score %v", rec.Confidence, rec.Score)
	}

	low := &stubForecaster{values: map[string]float64{"L1": 40, "L2": 40, "L3": 40}}
	r = New(config.Default(), data.NewMemorySource(), low, zap.NewNop())
	rec, err = r.Recommend(context.Background(), "Fond_Plat", 1000)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Confidence != "Medium" {
		t.Errorf("confidence = %s, want Medium for score %v", rec.Confidence, rec.Score)
	}
}

func TestRecommendRejectsNonPositiveQuantity(t *testing.T) {
	r := New(config.Default(), data.NewMemorySource(), nil, zap.NewNop())
	if _, err := r.Recommend(context.Background(), "Fond_Plat", 0); err == nil {
		t.Fatal("expected error for zero quantity")
	}
}
