package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// viperManager implements Manager using viper with a fsnotify file watcher.
type viperManager struct {
	configPath string

	mu     sync.RWMutex
	config *Config

	watchOnce sync.Once
	watchChan chan Config
}

// Load loads configuration from defaults, the config file and environment.
func (m *viperManager) Load(ctx context.Context) error {
	v := viper.New()
	m.setDefaults(v)

	v.SetEnvPrefix("TECPAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if m.configPath != "" {
		v.SetConfigFile(m.configPath)
		if err := v.ReadInConfig(); err != nil {
			// A missing file is fine, defaults and env apply.
			_, notFound := err.(viper.ConfigFileNotFoundError)
			if !notFound && !os.IsNotExist(errors.Unwrap(err)) && !os.IsNotExist(err) {
				return fmt.Errorf("read config %s: %w", m.configPath, err)
			}
		}
	}

	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}

	m.mu.Lock()
	m.config = cfg
	m.mu.Unlock()
	return nil
}

// Get returns the current configuration.
func (m *viperManager) Get(ctx context.Context) *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// Validate validates the current configuration.
func (m *viperManager) Validate(ctx context.Context) error {
	return validate(m.Get(ctx))
}

// Watch watches the config file and emits the new configuration on each
// valid change. Invalid reloads are dropped and the previous config stays
// in effect.
func (m *viperManager) Watch(ctx context.Context) <-chan Config {
	m.watchOnce.Do(func() {
		if m.configPath == "" {
			return
		}
		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			return
		}
		// Watch the directory: editors often replace the file atomically.
		dir := filepath.Dir(m.configPath)
		if err := watcher.Add(dir); err != nil {
			watcher.Close()
			return
		}

		go func() {
			defer watcher.Close()
			for {
				select {
				case <-ctx.Done():
					return
				case event, ok := <-watcher.Events:
					if !ok {
						return
					}
					if filepath.Clean(event.Name) != filepath.Clean(m.configPath) {
						continue
					}
					if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
						continue
					}
					if err := m.Load(ctx); err != nil {
						continue
					}
					if err := m.Validate(ctx); err != nil {
						continue
					}
					select {
					case m.watchChan <- *m.Get(ctx):
					default:
					}
				case _, ok := <-watcher.Errors:
					if !ok {
						return
					}
				}
			}
		}()
	})
	return m.watchChan
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

func (m *viperManager) setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.allowedorigins", d.Server.AllowedOrigins)

	v.SetDefault("database.telemetrypath", d.Database.TelemetryPath)
	v.SetDefault("database.modelspath", d.Database.ModelsPath)

	v.SetDefault("training.foresttrees", d.Training.ForestTrees)
	v.SetDefault("training.forestdepth", d.Training.ForestDepth)
	v.SetDefault("training.boosttrees", d.Training.BoostTrees)
	v.SetDefault("training.boostdepth", d.Training.BoostDepth)
	v.SetDefault("training.minleaf", d.Training.MinLeaf)
	v.SetDefault("training.learningrate", d.Training.LearningRate)
	v.SetDefault("training.seed", d.Training.Seed)

	v.SetDefault("forecast.days", d.Forecast.Days)
	v.SetDefault("forecast.hourstart", d.Forecast.HourStart)
	v.SetDefault("forecast.hourend", d.Forecast.HourEnd)
	v.SetDefault("forecast.blendbagging", d.Forecast.BlendBagging)
	v.SetDefault("forecast.blendboosting", d.Forecast.BlendBoosting)
	v.SetDefault("forecast.clampmin", d.Forecast.ClampMin)
	v.SetDefault("forecast.clampmax", d.Forecast.ClampMax)
	v.SetDefault("forecast.trendslope", d.Forecast.TrendSlope)

	v.SetDefault("scoring.bestline.oee", d.Scoring.BestLine.OEE)
	v.SetDefault("scoring.bestline.availability", d.Scoring.BestLine.Availability)
	v.SetDefault("scoring.bestline.quality", d.Scoring.BestLine.Quality)
	v.SetDefault("scoring.bestline.performance", d.Scoring.BestLine.Performance)
	v.SetDefault("scoring.bestline.stability", d.Scoring.BestLine.Stability)
	v.SetDefault("scoring.recommend.predictedoee", d.Scoring.Recommend.PredictedOEE)
	v.SetDefault("scoring.recommend.qualityrate", d.Scoring.Recommend.QualityRate)
	v.SetDefault("scoring.recommend.speedscore", d.Scoring.Recommend.SpeedScore)
	v.SetDefault("scoring.recommend.flexibility", d.Scoring.Recommend.Flexibility)
	v.SetDefault("scoring.referencespeed", d.Scoring.ReferenceSpeed)
	v.SetDefault("scoring.highconfidencescore", d.Scoring.HighConfidenceScore)
	v.SetDefault("scoring.neutraloee", d.Scoring.NeutralOEE)

	v.SetDefault("alerts.dropthreshold", d.Alerts.DropThreshold)
	v.SetDefault("alerts.lowoeethreshold", d.Alerts.LowOEEThreshold)

	v.SetDefault("similarity.threshold", d.Similarity.Threshold)
	v.SetDefault("similarity.maxmatches", d.Similarity.MaxMatches)
	v.SetDefault("similarity.maxterms", d.Similarity.MaxTerms)

	v.SetDefault("optimizer.speedstep", d.Optimizer.SpeedStep)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.path", d.Logging.Path)
	v.SetDefault("logging.maxsizemb", d.Logging.MaxSizeMB)
	v.SetDefault("logging.maxbackups", d.Logging.MaxBackups)
	v.SetDefault("logging.maxagedays", d.Logging.MaxAgeDays)
}
