package optimizer

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

const artifactName = "speed_optimizer"

// artifact is the JSON-serialized pair of fitted ensembles.
type artifact struct {
	SchemaVersion int         `json:"schema_version"`
	Columns       []string    `json:"columns"`
	Scaler        *ml.Scaler  `json:"scaler"`
	Production    *ml.Booster `json:"production"`
	Quality       *ml.Booster `json:"quality"`
	TrainedAt     time.Time   `json:"trained_at"`
	Samples       int         `json:"samples"`
}

type speedOptimizer struct {
	cfg     *config.Config
	source  data.Source
	store   modelstore.Store
	builder *features.Builder
	logger  *zap.Logger

	mu    sync.RWMutex
	model *artifact
}

// New creates the speed optimizer.
func New(cfg *config.Config, source data.Source, store modelstore.Store, logger *zap.Logger) Optimizer {
	return &speedOptimizer{
		cfg:     cfg,
		source:  source,
		store:   store,
		builder: features.NewBuilder(),
		logger:  logger.Named("optimizer"),
	}
}

func (o *speedOptimizer) Train(ctx context.Context) (*TrainingReport, error) {
	start := time.Now()

	records, err := o.source.AllTelemetry(ctx)
	if err != nil {
		return nil, fmt.Errorf("load telemetry: %w", err)
	}

	// Only rows with a recorded machine speed define the speed_ratio feature.
	var inputs []features.Input
	var production, quality []float64
	for _, r := range records {
		if r.MachineSpeed <= 0 {
			continue
		}
		inputs = append(inputs, features.Input{
			Timestamp:    r.Timestamp,
			LineID:       r.LineID,
			ProductType:  r.ProductType,
			MachineSpeed: r.MachineSpeed,
		})
		production = append(production, float64(r.TotalPieces))
		if r.TotalPieces > 0 {
			quality = append(quality, float64(r.GoodPieces)/float64(r.TotalPieces)*100)
		} else {
			quality = append(quality, r.Quality)
		}
	}
	if len(inputs) == 0 {
		return nil, fmt.Errorf("no telemetry with machine speed to train on")
	}

	columns := o.builder.SpeedColumns()
	X := o.builder.Build(inputs, columns)

	scaler := ml.NewScaler()
	scaled := scaler.FitTransform(X)

	tr := o.cfg.Training
	prodModel := ml.NewBooster(tr.BoostTrees, tr.BoostDepth, tr.MinLeaf, tr.LearningRate)
	prodModel.Fit(scaled, production)
	qualModel := ml.NewBooster(tr.BoostTrees, tr.BoostDepth, tr.MinLeaf, tr.LearningRate)
	qualModel.Fit(scaled, quality)

	model := &artifact{
		SchemaVersion: features.SchemaVersion,
		Columns:       columns,
		Scaler:        scaler,
		Production:    prodModel,
		Quality:       qualModel,
		TrainedAt:     time.Now().UTC(),
		Samples:       len(inputs),
	}

	payload, err := json.Marshal(model)
	if err != nil {
		return nil, fmt.Errorf("serialize model: %w", err)
	}
	if err := o.store.Save(ctx, artifactName, payload); err != nil {
		return nil, fmt.Errorf("persist model: %w", err)
	}

	o.mu.Lock()
	o.model = model
	o.mu.Unlock()

	elapsed := time.Since(start)
	metrics.TrainingDuration.WithLabelValues("optimizer").Observe(elapsed.Seconds())
	o.logger.Info("trained speed ensembles",
		zap.Int("samples", len(inputs)),
		zap.Duration("duration", elapsed))

	return &TrainingReport{Samples: len(inputs), TrainedAt: model.TrainedAt, Duration: elapsed}, nil
}

func (o *speedOptimizer) FindOptimalSpeed(ctx context.Context, lineID, productType string) (*models.SpeedRecommendation, error) {
	rng, ok := plant.SpeedRanges[lineID]
	if !ok {
		return nil, fmt.Errorf("unknown line %q", lineID)
	}

	model, err := o.ensureModel(ctx)
	if err != nil {
		return nil, err
	}
	if model == nil {
		return nil, fmt.Errorf("speed model not trained")
	}

	step := o.cfg.Optimizer.SpeedStep
	curve := make([]models.SpeedCurvePoint, 0, (rng.Max-rng.Min)/step+1)

	bestSpeed := rng.Min
	bestOutput := math.Inf(-1)
	for speed := rng.Min; speed <= rng.Max; speed += step {
		row := o.builder.BuildRow(features.Input{
			LineID:       lineID,
			ProductType:  productType,
			MachineSpeed: speed,
		}, model.Columns)
		scaled := model.Scaler.TransformRow(row)

		production := model.Production.Predict(scaled)
		quality := model.Quality.Predict(scaled)
		output := production * quality / 100

		curve = append(curve, models.SpeedCurvePoint{
			Speed:   speed,
			Output:  round1(output),
			Quality: round1(quality),
		})
		// Strict comparison keeps the lowest speed on ties.
		if output > bestOutput {
			bestOutput = output
			bestSpeed = speed
		}
	}

	return &models.SpeedRecommendation{
		OptimalSpeed: bestSpeed,
		MaxOutput:    round1(bestOutput),
		CurrentSpeed: plant.Characteristics[lineID].Speed,
		Curve:        curve,
	}, nil
}

func (o *speedOptimizer) Ready(ctx context.Context) bool {
	model, err := o.ensureModel(ctx)
	return err == nil && model != nil
}

// ensureModel mirrors the predictor's lazy single-load pattern.
func (o *speedOptimizer) ensureModel(ctx context.Context) (*artifact, error) {
	o.mu.RLock()
	model := o.model
	o.mu.RUnlock()
	if model != nil {
		return model, nil
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.model != nil {
		return o.model, nil
	}

	payload, ok, err := o.store.Load(ctx, artifactName)
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
		o.logger.Warn("stored speed model has stale feature schema, retrain required",
			zap.Int("stored", loaded.SchemaVersion),
			zap.Int("current", features.SchemaVersion))
		return nil, nil
	}
	o.model = &loaded
	o.logger.Info("loaded persisted speed ensembles", zap.Time("trained_at", loaded.TrainedAt))
	return o.model, nil
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
