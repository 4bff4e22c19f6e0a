package predictor

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tecpap/tecpap-ai/internal/config"
	"github.com/tecpap/tecpap-ai/internal/data"
	"github.com/tecpap/tecpap-ai/internal/features"
	"github.com/tecpap/tecpap-ai/internal/metrics"
	"github.com/tecpap/tecpap-ai/internal/ml"
	"github.com/tecpap/tecpap-ai/internal/modelstore"
	"github.com/tecpap/tecpap-ai/internal/models"
	"github.com/tecpap/tecpap-ai/internal/plant"
)

// artifactName keys the persisted ensemble in the model store.
const artifactName = "oee_predictor"

// artifact is the JSON-serialized trained model.
type artifact struct {
	SchemaVersion int         `json:"schema_version"`
	Columns       []string    `json:"columns"`
	Scaler        *ml.Scaler  `json:"scaler"`
	Forest        *ml.Forest  `json:"forest"`
	Booster       *ml.Booster `json:"booster"`
	TrainedAt     time.Time   `json:"trained_at"`
	Samples       int         `json:"samples"`
}

type oeePredictor struct {
	cfg     *config.Config
	source  data.Source
	store   modelstore.Store
	builder *features.Builder
	logger  *zap.Logger
	now     func() time.Time

	mu    sync.RWMutex
	model *artifact
}

// New creates the OEE predictor.
func New(cfg *config.Config, source data.Source, store modelstore.Store, logger *zap.Logger) Predictor {
	return &oeePredictor{
		cfg:     cfg,
		source:  source,
		store:   store,
		builder: features.NewBuilder(),
		logger:  logger.Named("predictor"),
		now:     time.Now,
	}
}

func (p *oeePredictor) Train(ctx context.Context) (*TrainingReport, error) {
	start := time.Now()

	records, err := p.source.AllTelemetry(ctx)
	if err != nil {
		return nil, fmt.Errorf("load telemetry: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("no telemetry to train on")
	}

	columns := p.builder.TimeLineColumns()
	X := p.builder.Build(features.FromTelemetry(records), columns)
	y := make([]float64, len(records))
	for i, r := range records {
		y[i] = r.OEE
	}

	scaler := ml.NewScaler()
	scaled := scaler.FitTransform(X)

	tr := p.cfg.Training
	forest := ml.NewForest(tr.ForestTrees, tr.ForestDepth, tr.MinLeaf, tr.Seed)
	forest.Fit(scaled, y)
	booster := ml.NewBooster(tr.BoostTrees, tr.BoostDepth, tr.MinLeaf, tr.LearningRate)
	booster.Fit(scaled, y)

	model := &artifact{
		SchemaVersion: features.SchemaVersion,
		Columns:       columns,
		Scaler:        scaler,
		Forest:        forest,
		Booster:       booster,
		TrainedAt:     p.now().UTC(),
		Samples:       len(records),
	}

	payload, err := json.Marshal(model)
	if err != nil {
		return nil, fmt.Errorf("serialize model: %w", err)
	}
	if err := p.store.Save(ctx, artifactName, payload); err != nil {
		return nil, fmt.Errorf("persist model: %w", err)
	}

	p.mu.Lock()
	p.model = model
	p.mu.Unlock()

	elapsed := time.Since(start)
	metrics.TrainingDuration.WithLabelValues("predictor").Observe(elapsed.Seconds())
	p.logger.Info("trained OEE ensemble",
		zap.Int("samples", len(records)),
		zap.Int("features", len(columns)),
		zap.Duration("duration", elapsed))

	return &TrainingReport{
		Samples:   len(records),
		Features:  len(columns),
		TrainedAt: model.TrainedAt,
		Duration:  elapsed,
	}, nil
}

func (p *oeePredictor) Predict(ctx context.Context, ts time.Time, lineID string) (float64, error) {
	model, err := p.ensureModel(ctx)
	if err != nil {
		return 0, err
	}
	if model == nil {
		// Never trained: fall back to the neutral estimate, not a crash.
		return p.cfg.Scoring.NeutralOEE, nil
	}
	return p.predictWith(model, ts, lineID), nil
}

func (p *oeePredictor) PredictNextDays(ctx context.Context, days int) (map[string][]models.DailyForecast, error) {
	model, err := p.ensureModel(ctx)
	if err != nil {
		return nil, err
	}
	if model == nil {
		// Never trained: an empty forecast, not an error.
		return map[string][]models.DailyForecast{}, nil
	}
	if days <= 0 {
		days = p.cfg.Forecast.Days
	}

	fc := p.cfg.Forecast
	base := p.now()
	out := make(map[string][]models.DailyForecast, len(plant.Lines))

	for _, line := range plant.Lines {
		forecasts := make([]models.DailyForecast, 0, days)
		for d := 1; d <= days; d++ {
			day := base.AddDate(0, 0, d)
			hourly := make([]float64, 0, fc.HourEnd-fc.HourStart+1)
			for h := fc.HourStart; h <= fc.HourEnd; h++ {
				ts := time.Date(day.Year(), day.Month(), day.Day(), h, 0, 0, 0, day.Location())
				hourly = append(hourly, p.predictWith(model, ts, line))
			}
			forecasts = append(forecasts, models.DailyForecast{
				Date:         day.Format("2006-01-02"),
				OEEPredicted: round1(mean(hourly)),
				Trend:        trendLabel(hourly, fc.TrendSlope),
			})
			metrics.ForecastsServed.Inc()
		}
		out[line] = forecasts
	}
	return out, nil
}

func (p *oeePredictor) Ready(ctx context.Context) bool {
	model, err := p.ensureModel(ctx)
	return err == nil && model != nil
}

// predictWith blends both ensembles and clamps to the configured range.
func (p *oeePredictor) predictWith(model *artifact, ts time.Time, lineID string) float64 {
	row := p.builder.BuildRow(features.Input{Timestamp: ts, LineID: lineID}, model.Columns)
	scaled := model.Scaler.TransformRow(row)

	fc := p.cfg.Forecast
	pred := fc.BlendBagging*model.Forest.Predict(scaled) + fc.BlendBoosting*model.Booster.Predict(scaled)
	return clamp(pred, fc.ClampMin, fc.ClampMax)
}

// ensureModel returns the in-memory model, loading it from the store on first
// use. A missing artifact yields (nil, nil): callers decide whether absence
// is an error.
func (p *oeePredictor) ensureModel(ctx context.Context) (*artifact, error) {
	p.mu.RLock()
	model := p.model
	p.mu.RUnlock()
	if model != nil {
		return model, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.model != nil {
		return p.model, nil
	}

	payload, ok, err := p.store.Load(ctx, artifactName)
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	if !ok {
		return nil, nil
	}

	var loaded artifact
	if err := json.Unmarshal(payload, &loaded); err != nil {
		return nil, fmt.Errorf("decode model: %w", err)
	}
	if loaded.SchemaVersion != features.SchemaVersion {
		p.logger.Warn("stored model has stale feature schema, retrain required",
			zap.Int("stored", loaded.SchemaVersion),
			zap.Int("current", features.SchemaVersion))
		return nil, nil
	}
	p.model = &loaded
	p.logger.Info("loaded persisted OEE ensemble", zap.Time("trained_at", loaded.TrainedAt))
	return p.model, nil
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// trendLabel fits a least-squares slope through the hourly values and maps it
// to a direction label.
func trendLabel(vals []float64, threshold float64) string {
	slope := slopeOf(vals)
	switch {
	case slope > threshold:
		return "increasing"
	case slope < -threshold:
		return "decreasing"
	default:
		return "stable"
	}
}

func slopeOf(vals []float64) float64 {
	n := float64(len(vals))
	if n < 2 {
		return 0
	}
	var sumX, sumY, sumXY, sumXX float64
	for i, v := range vals {
		x := float64(i)
		sumX += x
		sumY += v
		sumXY += x * v
		sumXX += x * x
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0
	}
	return (n*sumXY - sumX*sumY) / denom
}
