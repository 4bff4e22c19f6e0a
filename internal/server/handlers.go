package server

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/tecpap/tecpap-ai/internal/plant"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// handleDashboard aggregates the landing-page payload: current per-line
// metrics, the 7-day forecast, the best-line ranking and active alerts.
// Engine failures degrade to nulls so a cold start still renders.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "GET required")
		return
	}
	ctx := r.Context()

	payload := map[string]any{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	payload["current"] = s.currentMetrics(ctx)

	if predictions, err := s.engines.Predictor.PredictNextDays(ctx, s.cfg.Forecast.Days); err == nil {
		payload["predictions"] = predictions
	} else {
		s.logger.Warn("dashboard forecast failed", zap.Error(err))
		payload["predictions"] = nil
	}
	if best, err := s.engines.Recommender.BestLine(ctx); err == nil {
		payload["recommendation"] = best
	} else {
		payload["recommendation"] = nil
	}
	if alerts, err := s.engines.Expert.ActiveAlerts(ctx); err == nil {
		payload["alerts"] = alerts
	} else {
		payload["alerts"] = nil
	}

	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "GET required")
		return
	}

	productType := r.URL.Query().Get("product_type")
	if productType == "" {
		productType = "Fond_Plat"
	}
	quantity := 1000
	if q := r.URL.Query().Get("quantity"); q != "" {
		parsed, err := strconv.Atoi(q)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "quantity must be a positive integer")
			return
		}
		quantity = parsed
	}

	rec, err := s.engines.Recommender.Recommend(r.Context(), productType, quantity)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleAnomalies(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "GET required")
		return
	}

	period := 30
	if p := r.URL.Query().Get("period"); p != "" {
		parsed, err := strconv.Atoi(p)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "period must be a positive integer")
			return
		}
		period = parsed
	}

	anomalies, err := s.engines.Expert.RecentAnomalies(r.Context(), period)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"anomalies": anomalies})
}

func (s *Server) handleSimilar(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}

	var body struct {
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	matches, err := s.engines.Expert.FindSimilar(r.Context(), body.Description)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"similar_cases": matches})
}

func (s *Server) handleOptimizeSpeed(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}

	body := struct {
		LineID      string `json:"line_id"`
		ProductType string `json:"product_type"`
	}{LineID: "L1", ProductType: "Fond_Plat"}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	rec, err := s.engines.Optimizer.FindOptimalSpeed(r.Context(), body.LineID, body.ProductType)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleProducts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"products": plant.Catalog})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}

	var body struct {
		Query string `json:"query"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if body.Query == "" {
		writeError(w, http.StatusBadRequest, "no query provided")
		return
	}

	writeJSON(w, http.StatusOK, s.engines.Router.Process(r.Context(), body.Query))
}

// currentMetrics summarizes the trailing 24h per line for the dashboard.
func (s *Server) currentMetrics(ctx context.Context) map[string]any {
	records, err := s.engines.Source.RecentTelemetry(ctx, 1)
	if err != nil || len(records) == 0 {
		return map[string]any{}
	}

	type acc struct {
		oee, avail, perf, qual float64
		n                      int
	}
	byLine := make(map[string]*acc)
	for _, rec := range records {
		a := byLine[rec.LineID]
		if a == nil {
			a = &acc{}
			byLine[rec.LineID] = a
		}
		a.oee += rec.OEE
		a.avail += rec.Availability
		a.perf += rec.Performance
		a.qual += rec.Quality
		a.n++
	}

	out := make(map[string]any, len(byLine))
	for _, line := range plant.Lines {
		a := byLine[line]
		if a == nil {
			continue
		}
		n := float64(a.n)
		out[line] = map[string]float64{
			"oee":          round1(a.oee / n),
			"availability": round1(a.avail / n),
			"performance":  round1(a.perf / n),
			"quality":      round1(a.qual / n),
		}
	}
	return out
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
