package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/tecpap/tecpap-ai/internal/agent"
	"github.com/tecpap/tecpap-ai/internal/config"
	"github.com/tecpap/tecpap-ai/internal/data"
	"github.com/tecpap/tecpap-ai/internal/expert"
	"github.com/tecpap/tecpap-ai/internal/modelstore"
	"github.com/tecpap/tecpap-ai/internal/models"
	"github.com/tecpap/tecpap-ai/internal/optimizer"
	"github.com/tecpap/tecpap-ai/internal/predictor"
	"github.com/tecpap/tecpap-ai/internal/recommender"
)

// newTestServer wires real engines over in-memory stores. Models start
// untrained so handlers exercise their degraded paths unless a test seeds
// and trains explicitly.
func newTestServer(t *testing.T, seed func(store data.Store)) (*httptest.Server, data.Store) {
	t.Helper()
	cfg := config.Default()
	cfg.Training.ForestTrees = 5
	cfg.Training.BoostTrees = 5

	store := data.NewMemorySource()
	if seed != nil {
		seed(store)
	}
	artifacts := modelstore.NewMemoryStore()
	logger := zap.NewNop()

	p := predictor.New(cfg, store, artifacts, logger)
	o := optimizer.New(cfg, store, artifacts, logger)
	r := recommender.New(cfg, store, p, logger)
	e := expert.New(cfg, store, logger)
	if err := e.LoadKnowledgeBase(context.Background()); err != nil {
		t.Fatalf("load knowledge base: %v", err)
	}
	router := agent.New(cfg, p, r, o, e, store, logger)

	srv := New(cfg, Engines{
		Predictor:   p,
		Recommender: r,
		Optimizer:   o,
		Expert:      e,
		Router:      router,
		Source:      store,
	}, logger)

	mux := http.NewServeMux()
	srv.registerRoutes(context.Background(), mux)
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts, store
}

func getJSON(t *testing.T, url string, into any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if into != nil {
		if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func postJSON(t *testing.T, url string, body any, into any) int {
	t.Helper()
	payload, _ := json.Marshal(body)
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	defer resp.Body.Close()
	if into != nil {
		if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func TestHealth(t *testing.T) {
	ts, _ := newTestServer(t, nil)
	var body map[string]any
	if code := getJSON(t, ts.URL+"/health", &body); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %v", body["status"])
	}
}

func TestProducts(t *testing.T) {
	ts, _ := newTestServer(t, nil)
	var body struct {
		Products []map[string]any `json:"products"`
	}
	if code := getJSON(t, ts.URL+"/api/v1/products", &body); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if len(body.Products) != 4 {
		t.Errorf("products = %d, want 4", len(body.Products))
	}
}

func TestDashboardColdStart(t *testing.T) {
	ts, _ := newTestServer(t, nil)
	var body map[string]any
	if code := getJSON(t, ts.URL+"/api/v1/dashboard", &body); code != http.StatusOK {
		t.Fatalf("cold dashboard must still render, status = %d", code)
	}
	if _, ok := body["timestamp"]; !ok {
		t.Error("dashboard payload missing timestamp")
	}
}

func TestRecommendEndpoint(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	var rec models.Recommendation
	code := getJSON(t, ts.URL+"/api/v1/recommend?product_type=Fond_Plat&quantity=5000", &rec)
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if rec.RecommendedLine == "" || len(rec.Alternatives) != 2 {
		t.Errorf("unexpected recommendation %+v", rec)
	}

	if code := getJSON(t, ts.URL+"/api/v1/recommend?quantity=abc", nil); code != http.StatusBadRequest {
		t.Errorf("bad quantity: status = %d, want 400", code)
	}
}

func TestSimilarEndpoint(t *testing.T) {
	ts, _ := newTestServer(t, func(store data.Store) {
		_ = store.InsertAnomalies(context.Background(), []models.AnomalyRecord{
			{ID: 1, Timestamp: time.Now(), LineID: "L1", Symptom: "paper feed jam at roller",
				RootCause: "worn belt", Solution: "replace belt"},
			{ID: 2, Timestamp: time.Now(), LineID: "L2", Symptom: "glue nozzle clogged",
				RootCause: "dried glue", Solution: "clean nozzle"},
		})
	})

	var body struct {
		SimilarCases []models.AnomalyMatch `json:"similar_cases"`
	}
	code := postJSON(t, ts.URL+"/api/v1/anomalies/similar",
		map[string]string{"description": "paper feed jam"}, &body)
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	for _, m := range body.SimilarCases {
		if m.Similarity <= 10 {
			t.Errorf("match below threshold leaked: %+v", m)
		}
	}
}

func TestOptimizeSpeedWithoutModel(t *testing.T) {
	ts, _ := newTestServer(t, nil)
	code := postJSON(t, ts.URL+"/api/v1/speed/optimize",
		map[string]string{"line_id": "L1", "product_type": "Fond_Plat"}, nil)
	if code != http.StatusBadRequest {
		t.Errorf("untrained optimizer: status = %d, want 400", code)
	}
}

func TestChatEndpoint(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	if code := postJSON(t, ts.URL+"/api/v1/chat", map[string]string{"query": ""}, nil); code != http.StatusBadRequest {
		t.Errorf("empty query: status = %d, want 400", code)
	}

	var resp agent.Response
	code := postJSON(t, ts.URL+"/api/v1/chat", map[string]string{"query": "bonjour"}, &resp)
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if len(resp.Actions) != 1 || resp.Actions[0].Tool != agent.ToolStatus {
		t.Errorf("expected status fallback, got %+v", resp.Actions)
	}
}

func TestAlertStream(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/alerts/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var payload struct {
		Alerts    []models.Alert `json:"alerts"`
		Timestamp string         `json:"timestamp"`
	}
	if err := conn.ReadJSON(&payload); err != nil {
		t.Fatalf("read push: %v", err)
	}
	if payload.Timestamp == "" {
		t.Error("push payload missing timestamp")
	}
}
