package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/tecpap/tecpap-ai/internal/agent"
	"github.com/tecpap/tecpap-ai/internal/config"
	"github.com/tecpap/tecpap-ai/internal/data"
	"github.com/tecpap/tecpap-ai/internal/expert"
	"github.com/tecpap/tecpap-ai/internal/logging"
	"github.com/tecpap/tecpap-ai/internal/modelstore"
	"github.com/tecpap/tecpap-ai/internal/optimizer"
	"github.com/tecpap/tecpap-ai/internal/predictor"
	"github.com/tecpap/tecpap-ai/internal/recommender"
	"github.com/tecpap/tecpap-ai/internal/server"
)

func main() {
	configPath := flag.String("config", "/etc/tecpap/config.yaml", "path to config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "tecpap-ai: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	manager := config.NewManager(configPath)
	if err := manager.Load(ctx); err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := manager.Validate(ctx); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}
	cfg := manager.Get(ctx)

	logger, err := logging.New(logging.Options{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Path:       cfg.Logging.Path,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	})
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer logger.Sync()

	logger.Info("starting tecpap-ai",
		zap.String("config", configPath),
		zap.Int("port", cfg.Server.Port))

	store, err := data.OpenSQLite(cfg.Database.TelemetryPath)
	if err != nil {
		return fmt.Errorf("open telemetry store: %w", err)
	}
	defer store.Close()

	artifacts, err := modelstore.OpenSQLite(cfg.Database.ModelsPath)
	if err != nil {
		return fmt.Errorf("open model store: %w", err)
	}
	defer artifacts.Close()

	p := predictor.New(cfg, store, artifacts, logger)
	o := optimizer.New(cfg, store, artifacts, logger)
	r := recommender.New(cfg, store, p, logger)
	e := expert.New(cfg, store, logger)
	router := agent.New(cfg, p, r, o, e, store, logger)

	// First run trains from whatever telemetry is present; later runs reuse
	// the persisted artifacts.
	if !p.Ready(ctx) {
		if _, err := p.Train(ctx); err != nil {
			logger.Warn("OEE predictor not trained", zap.Error(err))
		}
	}
	if !o.Ready(ctx) {
		if _, err := o.Train(ctx); err != nil {
			logger.Warn("speed optimizer not trained", zap.Error(err))
		}
	}
	if err := e.LoadKnowledgeBase(ctx); err != nil {
		logger.Warn("knowledge base not loaded", zap.Error(err))
	}

	srv := server.New(cfg, server.Engines{
		Predictor:   p,
		Recommender: r,
		Optimizer:   o,
		Expert:      e,
		Router:      router,
		Source:      store,
	}, logger)
	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("start server: %w", err)
	}

	// Reload tunables on config file changes.
	go func() {
		for range manager.Watch(ctx) {
			logger.Info("configuration reloaded")
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Stop(shutdownCtx)
}
