package config

// Default returns the built-in configuration. The numeric values are the
// hand-tuned constants the engines were validated with.
func Default() *Config {
	cfg := &Config{}

	cfg.Server.Host = "0.0.0.0"
	cfg.Server.Port = 5000
	cfg.Server.AllowedOrigins = []string{"*"}

	cfg.Database.TelemetryPath = "./data/telemetry.db"
	cfg.Database.ModelsPath = "./data/models.db"

	cfg.Training.ForestTrees = 50
	cfg.Training.ForestDepth = 8
	cfg.Training.BoostTrees = 50
	cfg.Training.BoostDepth = 4
	cfg.Training.MinLeaf = 2
	cfg.Training.LearningRate = 0.1
	cfg.Training.Seed = 42

	cfg.Forecast.Days = 7
	cfg.Forecast.HourStart = 8
	cfg.Forecast.HourEnd = 20
	cfg.Forecast.BlendBagging = 0.6
	cfg.Forecast.BlendBoosting = 0.4
	cfg.Forecast.ClampMin = 40
	cfg.Forecast.ClampMax = 95
	cfg.Forecast.TrendSlope = 0.5

	cfg.Scoring.BestLine.OEE = 0.4
	cfg.Scoring.BestLine.Availability = 0.2
	cfg.Scoring.BestLine.Quality = 0.2
	cfg.Scoring.BestLine.Performance = 0.1
	cfg.Scoring.BestLine.Stability = 0.1
	cfg.Scoring.Recommend.PredictedOEE = 0.35
	cfg.Scoring.Recommend.QualityRate = 0.25
	cfg.Scoring.Recommend.SpeedScore = 0.25
	cfg.Scoring.Recommend.Flexibility = 0.15
	cfg.Scoring.ReferenceSpeed = 1100
	cfg.Scoring.HighConfidenceScore = 80
	cfg.Scoring.NeutralOEE = 70

	cfg.Alerts.DropThreshold = 10
	cfg.Alerts.LowOEEThreshold = 70

	cfg.Similarity.Threshold = 0.1
	cfg.Similarity.MaxMatches = 5
	cfg.Similarity.MaxTerms = 100

	cfg.Optimizer.SpeedStep = 25

	cfg.Logging.Level = "info"
	cfg.Logging.Format = "json"
	cfg.Logging.Path = ""
	cfg.Logging.MaxSizeMB = 100
	cfg.Logging.MaxBackups = 5
	cfg.Logging.MaxAgeDays = 30

	return cfg
}
