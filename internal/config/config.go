package config

import "context"

// Package config provides configuration management for tecpap-ai.
//
// Responsibilities:
//   - Load configuration from a YAML file, environment variables and defaults
//   - Validate configuration on startup
//   - Expose the hand-tuned scoring and blend weights as parameters rather
//     than burying them as constants in the engines
//   - Support file-watch reloading for tunable settings
//
// Configuration sources (priority order, high to low):
//   1. Environment variables (TECPAP_* prefix)
//   2. YAML config file (default: /etc/tecpap/config.yaml)
//   3. Built-in defaults
//
// The ensemble blend (0.6/0.4) and the scoring weights are hand-tuned
// operational constants with no documented derivation; they are configurable
// so the plant can adjust them without a rebuild, but the defaults are the
// values the models were validated with.

// Config contains all configuration fields.
type Config struct {
	// Server configuration for the thin HTTP layer.
	Server struct {
		Host string
		Port int
		// AllowedOrigins is the list of origins permitted to open WebSocket
		// connections to the alert stream. Use ["*"] for development only.
		AllowedOrigins []string
	}

	// Database paths. Both default next to each other under the data dir.
	Database struct {
		TelemetryPath string
		ModelsPath    string
	}

	// Training hyperparameters for the regression ensembles.
	Training struct {
		ForestTrees  int
		ForestDepth  int
		BoostTrees   int
		BoostDepth   int
		MinLeaf      int
		LearningRate float64
		Seed         int64
	}

	// Forecast controls the OEE predictor.
	Forecast struct {
		Days          int     // default horizon
		HourStart     int     // first operating hour sampled (inclusive)
		HourEnd       int     // last operating hour sampled (inclusive)
		BlendBagging  float64 // weight of the bagging ensemble
		BlendBoosting float64 // weight of the boosting ensemble
		ClampMin      float64 // physical OEE floor
		ClampMax      float64 // physical OEE ceiling
		TrendSlope    float64 // |slope| above which a day is not "stable"
	}

	// Scoring weights for the line recommender.
	Scoring struct {
		BestLine struct {
			OEE          float64
			Availability float64
			Quality      float64
			Performance  float64
			Stability    float64
		}
		Recommend struct {
			PredictedOEE float64
			QualityRate  float64
			SpeedScore   float64
			Flexibility  float64
		}
		ReferenceSpeed      float64 // speed_score = speed / reference * 100
		HighConfidenceScore float64 // winning score above which confidence is "High"
		NeutralOEE          float64 // predicted-OEE fallback without a model
	}

	// Alerts controls the anomaly expert's live alerting.
	Alerts struct {
		DropThreshold   float64 // points below trailing mean => Critical
		LowOEEThreshold float64 // absolute floor => High
	}

	// Similarity controls the anomaly knowledge-base search.
	Similarity struct {
		Threshold  float64 // cosine similarity below which a match is noise
		MaxMatches int
		MaxTerms   int // vocabulary cap
	}

	// Optimizer controls the speed sweep.
	Optimizer struct {
		SpeedStep int
	}

	// Logging configuration.
	Logging struct {
		Level      string // "debug" | "info" | "warn" | "error"
		Format     string // "json" | "console"
		Path       string // empty => stderr only
		MaxSizeMB  int
		MaxBackups int
		MaxAgeDays int
	}
}

// Manager defines the interface for configuration access.
type Manager interface {
	// Load loads configuration from all sources.
	Load(ctx context.Context) error

	// Get returns the current configuration.
	Get(ctx context.Context) *Config

	// Validate validates configuration is correct and complete.
	Validate(ctx context.Context) error

	// Watch watches for configuration file changes and reloads.
	Watch(ctx context.Context) <-chan Config
}

// NewManager creates a configuration manager reading from configPath.
func NewManager(configPath string) Manager {
	return &viperManager{
		configPath: configPath,
		config:     Default(),
		watchChan:  make(chan Config, 1),
	}
}
