package config

import (
	"fmt"
	"math"
)

// validate checks the configuration for values the engines cannot work with.
func validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("configuration not loaded")
	}

	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in [1, 65535], got %d", cfg.Server.Port)
	}
	if cfg.Database.TelemetryPath == "" {
		return fmt.Errorf("database.telemetrypath is required")
	}
	if cfg.Database.ModelsPath == "" {
		return fmt.Errorf("database.modelspath is required")
	}

	if cfg.Training.ForestTrees < 1 || cfg.Training.BoostTrees < 1 {
		return fmt.Errorf("training tree counts must be positive")
	}
	if cfg.Training.ForestDepth < 1 || cfg.Training.BoostDepth < 1 {
		return fmt.Errorf("training depths must be positive")
	}
	if cfg.Training.LearningRate <= 0 || cfg.Training.LearningRate > 1 {
		return fmt.Errorf("training.learningrate must be in (0, 1], got %g", cfg.Training.LearningRate)
	}

	if cfg.Forecast.Days < 1 {
		return fmt.Errorf("forecast.days must be positive, got %d", cfg.Forecast.Days)
	}
	if cfg.Forecast.HourStart < 0 || cfg.Forecast.HourEnd > 23 || cfg.Forecast.HourStart > cfg.Forecast.HourEnd {
		return fmt.Errorf("forecast operating hours [%d, %d] invalid", cfg.Forecast.HourStart, cfg.Forecast.HourEnd)
	}
	if cfg.Forecast.ClampMin >= cfg.Forecast.ClampMax {
		return fmt.Errorf("forecast clamp range [%g, %g] invalid", cfg.Forecast.ClampMin, cfg.Forecast.ClampMax)
	}
	blend := cfg.Forecast.BlendBagging + cfg.Forecast.BlendBoosting
	if math.Abs(blend-1) > 1e-9 {
		return fmt.Errorf("forecast blend weights must sum to 1, got %g", blend)
	}

	bl := cfg.Scoring.BestLine
	rw := cfg.Scoring.Recommend
	for name, w := range map[string]float64{
		"scoring.bestline.oee":           bl.OEE,
		"scoring.bestline.availability":  bl.Availability,
		"scoring.bestline.quality":       bl.Quality,
		"scoring.bestline.performance":   bl.Performance,
		"scoring.bestline.stability":     bl.Stability,
		"scoring.recommend.predictedoee": rw.PredictedOEE,
		"scoring.recommend.qualityrate":  rw.QualityRate,
		"scoring.recommend.speedscore":   rw.SpeedScore,
		"scoring.recommend.flexibility":  rw.Flexibility,
	} {
		if w < 0 {
			return fmt.Errorf("%s must not be negative, got %g", name, w)
		}
	}
	if cfg.Scoring.ReferenceSpeed <= 0 {
		return fmt.Errorf("scoring.referencespeed must be positive, got %g", cfg.Scoring.ReferenceSpeed)
	}

	if cfg.Alerts.DropThreshold <= 0 {
		return fmt.Errorf("alerts.dropthreshold must be positive, got %g", cfg.Alerts.DropThreshold)
	}

	if cfg.Similarity.Threshold < 0 || cfg.Similarity.Threshold > 1 {
		return fmt.Errorf("similarity.threshold must be in [0, 1], got %g", cfg.Similarity.Threshold)
	}
	if cfg.Similarity.MaxMatches < 1 || cfg.Similarity.MaxTerms < 1 {
		return fmt.Errorf("similarity limits must be positive")
	}

	if cfg.Optimizer.SpeedStep < 1 {
		return fmt.Errorf("optimizer.speedstep must be positive, got %d", cfg.Optimizer.SpeedStep)
	}

	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug|info|warn|error, got %q", cfg.Logging.Level)
	}
	switch cfg.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format must be json or console, got %q", cfg.Logging.Format)
	}

	return nil
}
