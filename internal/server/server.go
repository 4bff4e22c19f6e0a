package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/tecpap/tecpap-ai/internal/agent"
	"github.com/tecpap/tecpap-ai/internal/config"
	"github.com/tecpap/tecpap-ai/internal/data"
	"github.com/tecpap/tecpap-ai/internal/expert"
	"github.com/tecpap/tecpap-ai/internal/metrics"
	"github.com/tecpap/tecpap-ai/internal/optimizer"
	"github.com/tecpap/tecpap-ai/internal/predictor"
	"github.com/tecpap/tecpap-ai/internal/recommender"
)

// Package server exposes the decision engines over HTTP.
//
// Responsibilities:
//   - REST endpoints for dashboard, recommendation, anomaly search, speed
//     optimization, the product catalog and the chat router
//   - A WebSocket stream pushing active alerts to connected dashboards
//   - Prometheus metrics and a liveness endpoint
//
// The layer is deliberately thin: request decoding, one engine call,
// response encoding. All decision logic lives in the engines.

// Engines bundles the decision components the server fronts.
type Engines struct {
	Predictor   predictor.Predictor
	Recommender recommender.Recommender
	Optimizer   optimizer.Optimizer
	Expert      expert.Expert
	Router      agent.Router
	Source      data.Source
}

// Server is the HTTP front of tecpap-ai.
type Server struct {
	cfg     *config.Config
	engines Engines
	logger  *zap.Logger

	httpServer *http.Server
	wg         sync.WaitGroup
	cancel     context.CancelFunc
}

// New creates the server. Call Start to begin serving.
func New(cfg *config.Config, engines Engines, logger *zap.Logger) *Server {
	return &Server{
		cfg:     cfg,
		engines: engines,
		logger:  logger.Named("server"),
	}
}

// Start begins serving in a background goroutine.
func (s *Server) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	mux := http.NewServeMux()
	s.registerRoutes(ctx, mux)

	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.logger.Info("http server listening", zap.String("addr", addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("http server failed", zap.Error(err))
		}
	}()
	return nil
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}
	var err error
	if s.httpServer != nil {
		err = s.httpServer.Shutdown(ctx)
	}
	s.wg.Wait()
	s.logger.Info("http server stopped")
	return err
}

func (s *Server) registerRoutes(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/health", s.instrument("/health", s.handleHealth))
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/api/v1/dashboard", s.instrument("/api/v1/dashboard", s.handleDashboard))
	mux.HandleFunc("/api/v1/recommend", s.instrument("/api/v1/recommend", s.handleRecommend))
	mux.HandleFunc("/api/v1/anomalies", s.instrument("/api/v1/anomalies", s.handleAnomalies))
	mux.HandleFunc("/api/v1/anomalies/similar", s.instrument("/api/v1/anomalies/similar", s.handleSimilar))
	mux.HandleFunc("/api/v1/speed/optimize", s.instrument("/api/v1/speed/optimize", s.handleOptimizeSpeed))
	mux.HandleFunc("/api/v1/products", s.instrument("/api/v1/products", s.handleProducts))
	mux.HandleFunc("/api/v1/chat", s.instrument("/api/v1/chat", s.handleChat))
	mux.HandleFunc("/api/v1/alerts/stream", s.handleAlertStream(ctx))
}

// instrument wraps a handler with request metrics and access logging.
func (s *Server) instrument(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)

		elapsed := time.Since(start)
		metrics.HTTPRequests.WithLabelValues(route, fmt.Sprintf("%d", rec.status)).Inc()
		metrics.HTTPDuration.WithLabelValues(route).Observe(elapsed.Seconds())
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("route", route),
			zap.Int("status", rec.status),
			zap.Duration("duration", elapsed))
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
