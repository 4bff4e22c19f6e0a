package predictor

import (
	"context"
	"time"

	"github.com/tecpap/tecpap-ai/internal/models"
)

// Package predictor forecasts OEE for the plant's production lines.
//
// Responsibilities:
//   - Train a bagging + boosting ensemble on historical telemetry
//   - Predict OEE for a (timestamp, line) pair by blending both ensembles
//   - Produce multi-day per-line forecasts with a trend label per day
//   - Persist the fitted ensemble and reload it lazily on demand
//
// Predictions blend the two ensembles and are clamped to the plant's
// plausible OEE range so a thin training set can never yield a forecast
// operators would dismiss outright.

// TrainingReport summarizes a completed training run.
type TrainingReport struct {
	Samples   int           `json:"samples"`
	Features  int           `json:"features"`
	TrainedAt time.Time     `json:"trained_at"`
	Duration  time.Duration `json:"-"`
}

// Predictor is the OEE forecasting engine.
type Predictor interface {
	// Train fits the ensemble on all stored telemetry and persists it.
	Train(ctx context.Context) (*TrainingReport, error)

	// Predict returns the blended OEE estimate for a line at a moment in
	// time, clamped to the configured range. Without a trained model it
	// returns the neutral OEE estimate.
	Predict(ctx context.Context, ts time.Time, lineID string) (float64, error)

	// PredictNextDays forecasts the next `days` days for every known line.
	// Each day's value is the mean over the operating hours; the trend label
	// reflects the within-day slope. Returns an empty map when no model has
	// been trained yet.
	PredictNextDays(ctx context.Context, days int) (map[string][]models.DailyForecast, error)

	// Ready reports whether a trained model is available (in memory or in
	// the store).
	Ready(ctx context.Context) bool
}
