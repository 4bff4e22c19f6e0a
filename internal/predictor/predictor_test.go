package predictor

import (
	"context"
	"math"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/tecpap/tecpap-ai/internal/config"
	"github.com/tecpap/tecpap-ai/internal/data"
	"github.com/tecpap/tecpap-ai/internal/modelstore"
	"github.com/tecpap/tecpap-ai/internal/models"
	"github.com/tecpap/tecpap-ai/internal/plant"
)

func testConfig() *config.Config {
	cfg := config.Default()
	// Small ensembles keep the tests fast.
	cfg.Training.ForestTrees = 5
	cfg.Training.BoostTrees = 5
	return cfg
}

func seedTelemetry(t *testing.T, store data.Store, days int) {
	t.Helper()
	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	var records []models.TelemetryRecord
	for d := 0; d < days; d++ {
		for h := 8; h <= 20; h++ {
			for i, line := range plant.Lines {
				oee := 60 + float64(i)*8 + 3*math.Sin(float64(h)/3)
				records = append(records, models.TelemetryRecord{
					Timestamp:   base.AddDate(0, 0, d).Add(time.Duration(h) * time.Hour),
					LineID:      line,
					ProductType: "Fond_Plat",
					OEE:         oee,
					Quality:     95,
				})
			}
		}
	}
	if err := store.InsertTelemetry(context.Background(), records); err != nil {
		t.Fatalf("seed telemetry: %v", err)
	}
}

func TestTrainAndPredictWithinRange(t *testing.T) {
	store := data.NewMemorySource()
	seedTelemetry(t, store, 14)

	cfg := testConfig()
	p := New(cfg, store, modelstore.NewMemoryStore(), zap.NewNop())

	report, err := p.Train(context.Background())
	if err != nil {
		t.Fatalf("train: %v", err)
	}
	if report.Samples != 14*13*len(plant.Lines) {
		t.Errorf("samples = %d, want %d", report.Samples, 14*13*len(plant.Lines))
	}

	for _, line := range plant.Lines {
		got, err := p.Predict(context.Background(), time.Date(2026, 5, 20, 10, 0, 0, 0, time.UTC), line)
		if err != nil {
			t.Fatalf("predict %s: %v", line, err)
		}
		if got < cfg.Forecast.ClampMin || got > cfg.Forecast.ClampMax {
			t.Errorf("prediction %v for %s outside [%v, %v]", got, line, cfg.Forecast.ClampMin, cfg.Forecast.ClampMax)
		}
	}
}

func TestPredictClampExtremes(t *testing.T) {
	store := data.NewMemorySource()
	// Constant extreme target forces the ensembles outside the plausible band.
	base := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	var records []models.TelemetryRecord
	for i := 0; i < 60; i++ {
		records = append(records, models.TelemetryRecord{
			Timestamp: base.Add(time.Duration(i) * time.Hour),
			LineID:    "L1",
			OEE:       5,
		})
	}
	if err := store.InsertTelemetry(context.Background(), records); err != nil {
		t.Fatal(err)
	}

	p := New(testConfig(), store, modelstore.NewMemoryStore(), zap.NewNop())
	if _, err := p.Train(context.Background()); err != nil {
		t.Fatalf("train: %v", err)
	}
	got, err := p.Predict(context.Background(), base.Add(100*time.Hour), "L1")
	if err != nil {
		t.Fatal(err)
	}
	if got != 40 {
		t.Errorf("prediction = %v, want clamp floor 40", got)
	}
}

func TestPredictWithoutModel(t *testing.T) {
	cfg := testConfig()
	p := New(cfg, data.NewMemorySource(), modelstore.NewMemoryStore(), zap.NewNop())

	got, err := p.Predict(context.Background(), time.Date(2026, 5, 20, 10, 0, 0, 0, time.UTC), "L1")
	if err != nil {
		t.Fatalf("predict without model must degrade, not fail: %v", err)
	}
	if got != cfg.Scoring.NeutralOEE {
		t.Errorf("prediction = %v, want neutral %v", got, cfg.Scoring.NeutralOEE)
	}
}

func TestPredictNextDaysWithoutModel(t *testing.T) {
	p := New(testConfig(), data.NewMemorySource(), modelstore.NewMemoryStore(), zap.NewNop())

	out, err := p.PredictNextDays(context.Background(), 7)
	if err != nil {
		t.Fatalf("predict next days: %v", err)
	}
	if len(out) != 0 {
		t.Errorf("expected empty forecast without a model, got %d lines", len(out))
	}
}

func TestPredictNextDaysShape(t *testing.T) {
	store := data.NewMemorySource()
	seedTelemetry(t, store, 10)

	p := New(testConfig(), store, modelstore.NewMemoryStore(), zap.NewNop())
	p.(*oeePredictor).now = func() time.Time {
		return time.Date(2026, 5, 11, 12, 0, 0, 0, time.UTC)
	}
	if _, err := p.Train(context.Background()); err != nil {
		t.Fatalf("train: %v", err)
	}

	out, err := p.PredictNextDays(context.Background(), 3)
	if err != nil {
		t.Fatalf("predict next days: %v", err)
	}
	if len(out) != len(plant.Lines) {
		t.Fatalf("lines = %d, want %d", len(out), len(plant.Lines))
	}
	for line, forecasts := range out {
		if len(forecasts) != 3 {
			t.Fatalf("%s: days = %d, want 3", line, len(forecasts))
		}
		if forecasts[0].Date != "2026-05-12" {
			t.Errorf("%s: first date = %s, want 2026-05-12", line, forecasts[0].Date)
		}
		for _, f := range forecasts {
			if f.OEEPredicted < 40 || f.OEEPredicted > 95 {
				t.Errorf("%s %s: predicted %v outside range", line, f.Date, f.OEEPredicted)
			}
			switch f.Trend {
			case "increasing", "decreasing", "stable":
			default:
				t.Errorf("%s %s: unexpected trend %q", line, f.Date, f.Trend)
			}
		}
	}
}

func TestModelPersistsAcrossInstances(t *testing.T) {
	store := data.NewMemorySource()
	seedTelemetry(t, store, 10)
	artifacts := modelstore.NewMemoryStore()
	cfg := testConfig()

	first := New(cfg, store, artifacts, zap.NewNop())
	if _, err := first.Train(context.Background()); err != nil {
		t.Fatalf("train: %v", err)
	}
	ts := time.Date(2026, 5, 15, 14, 0, 0, 0, time.UTC)
	want, err := first.Predict(context.Background(), ts, "L2")
	if err != nil {
		t.Fatal(err)
	}

	// A fresh instance lazily loads the persisted artifact.
	second := New(cfg, store, artifacts, zap.NewNop())
	if !second.Ready(context.Background()) {
		t.Fatal("second instance should find the persisted model")
	}
	got, err := second.Predict(context.Background(), ts, "L2")
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("reloaded prediction %v differs from original %v", got, want)
	}
}

func TestTrendLabel(t *testing.T) {
	cases := []struct {
		name string
		vals []float64
		want string
	}{
		{"rising", []float64{60, 62, 64, 66, 68}, "increasing"},
		{"falling", []float64{68, 66, 64, 62, 60}, "decreasing"},
		{"flat", []float64{64, 64.1, 63.9, 64, 64}, "stable"},
		{"single", []float64{64}, "stable"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := trendLabel(tc.vals, 0.5); got != tc.want {
				t.Errorf("trendLabel(%v) = %q, want %q", tc.vals, got, tc.want)
			}
		})
	}
}
