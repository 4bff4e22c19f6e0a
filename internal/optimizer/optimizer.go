package optimizer

import (
	"context"
	"time"

	"github.com/tecpap/tecpap-ai/internal/models"
)

// Package optimizer searches for the machine speed that maximizes effective
// output for a line/product pairing.
//
// Two boosting ensembles are trained on historical telemetry: one predicts
// raw piece output, the other the quality rate at that speed. The optimizer
// sweeps the line's feasible speed range and picks the speed with the highest
// quality-adjusted output. Faster is not better past the point where scrap
// outgrows throughput; the sweep makes that trade-off explicit in the
// returned curve.

// TrainingReport summarizes a completed training run.
type TrainingReport struct {
	Samples   int           `json:"samples"`
	TrainedAt time.Time     `json:"trained_at"`
	Duration  time.Duration `json:"-"`
}

// Optimizer is the speed recommendation engine.
type Optimizer interface {
	// Train fits the output and quality ensembles and persists them.
	Train(ctx context.Context) (*TrainingReport, error)

	// FindOptimalSpeed sweeps the line's speed range for the given product
	// and returns the best speed with the full evaluated curve. Ties go to
	// the lowest speed.
	FindOptimalSpeed(ctx context.Context, lineID, productType string) (*models.SpeedRecommendation, error)

	// Ready reports whether trained models are available.
	Ready(ctx context.Context) bool
}
