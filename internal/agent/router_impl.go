package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tecpap/tecpap-ai/internal/config"
	"github.com/tecpap/tecpap-ai/internal/data"
	"github.com/tecpap/tecpap-ai/internal/expert"
	"github.com/tecpap/tecpap-ai/internal/metrics"
	"github.com/tecpap/tecpap-ai/internal/optimizer"
	"github.com/tecpap/tecpap-ai/internal/plant"
	"github.com/tecpap/tecpap-ai/internal/predictor"
	"github.com/tecpap/tecpap-ai/internal/recommender"
)

// Default resolution targets when a query names no line or product.
const (
	defaultLine     = "L1"
	defaultProduct  = "Fond_Plat"
	defaultQuantity = 1000
)

type keywordRouter struct {
	cfg         *config.Config
	predictor   predictor.Predictor
	recommender recommender.Recommender
	optimizer   optimizer.Optimizer
	expert      expert.Expert
	source      data.Source
	logger      *zap.Logger
}

// New creates the keyword dispatcher over the four engines.
func New(cfg *config.Config, p predictor.Predictor, r recommender.Recommender,
	o optimizer.Optimizer, e expert.Expert, source data.Source, logger *zap.Logger) Router {
	return &keywordRouter{
		cfg:         cfg,
		predictor:   p,
		recommender: r,
		optimizer:   o,
		expert:      e,
		source:      source,
		logger:      logger.Named("agent"),
	}
}

func (r *keywordRouter) Process(ctx context.Context, query string) *Response {
	q := normalize(query)
	call, thought := r.route(q)

	observation := r.execute(ctx, call)

	resp := &Response{
		Thought:      thought,
		Actions:      []Action{call.action()},
		Observations: []string{observation},
		Response:     fmt.Sprintf("Based on the production analysis: %s", observation),
	}
	r.logger.Debug("routed query",
		zap.String("tool", call.action().Tool),
		zap.String("query", query))
	return resp
}

// route picks exactly one tool call. Rules are evaluated in priority order
// and the first match wins.
func (r *keywordRouter) route(q string) (toolCall, string) {
	switch {
	case containsAny(q, "prevoir", "prediction", "predict", "forecast", "futur", "oee", "semaine", "week"):
		line := resolveLine(q)
		return &forecastCall{Line: line, Days: r.cfg.Forecast.Days},
			fmt.Sprintf("The user is asking about future performance. I will consult the forecast model for %s.", line)

	case containsAny(q, "recommander", "recommend", "choisir", "choose", "quelle ligne", "which line", "meilleure", "best"):
		product := resolveProduct(q)
		return &recommendCall{Product: product, Quantity: defaultQuantity},
			fmt.Sprintf("A production decision is required. I will evaluate the best line for %s.", product)

	case containsAny(q, "probleme", "problem", "panne", "breakdown", "erreur", "error", "anomalie", "anomaly", "solution", "issue"):
		return &anomalyCall{Description: anomalyDescription(q)},
			"An industrial anomaly is reported. I will search the knowledge base for similar cases."

	case containsAny(q, "vitesse", "speed", "optimiser", "optimize", "sweet spot", "rapide", "faster"):
		line := resolveLine(q)
		return &speedCall{Line: line, Product: resolveProduct(q)},
			fmt.Sprintf("A productivity optimization is requested. I will sweep for the speed sweet spot on %s.", line)

	default:
		return &statusCall{},
			"General request received. I will provide an overview of the system state."
	}
}

// execute runs the call with panic and error containment: whatever happens
// inside an engine comes back as a plain observation string.
func (r *keywordRouter) execute(ctx context.Context, call toolCall) (observation string) {
	tool := call.action().Tool
	start := time.Now()
	status := "ok"

	defer func() {
		if rec := recover(); rec != nil {
			status = "panic"
			observation = fmt.Sprintf("Error while using tool %s: %v", tool, rec)
			r.logger.Error("tool panicked", zap.String("tool", tool), zap.Any("panic", rec))
		}
		metrics.ToolCalls.WithLabelValues(tool, status).Inc()
		metrics.ToolDuration.WithLabelValues(tool).Observe(time.Since(start).Seconds())
	}()

	obs, err := call.run(ctx, r)
	if err != nil {
		status = "error"
		r.logger.Warn("tool failed", zap.String("tool", tool), zap.Error(err))
		return fmt.Sprintf("Error while using tool %s: %v", tool, err)
	}
	return obs
}

// ─── Tool calls ──────────────────────────────────────────────────────────────

// toolCall is the closed set of dispatchable engine invocations.
type toolCall interface {
	action() Action
	run(ctx context.Context, r *keywordRouter) (string, error)
}

type forecastCall struct {
	Line string
	Days int
}

func (c *forecastCall) action() Action {
	return Action{Tool: ToolForecast, Params: map[string]any{"line": c.Line, "days": c.Days}}
}

func (c *forecastCall) run(ctx context.Context, r *keywordRouter) (string, error) {
	forecasts, err := r.predictor.PredictNextDays(ctx, c.Days)
	if err != nil {
		return "", err
	}
	days, ok := forecasts[c.Line]
	if !ok || len(days) == 0 {
		return "No trained forecast model is available yet.", nil
	}
	sum := 0.0
	for _, d := range days {
		sum += d.OEEPredicted
	}
	return fmt.Sprintf("OEE forecast for %s: %.1f%% on average over the next %d days.",
		c.Line, sum/float64(len(days)), len(days)), nil
}

type recommendCall struct {
	Product  string
	Quantity int
}

func (c *recommendCall) action() Action {
	return Action{Tool: ToolRecommend, Params: map[string]any{"product": c.Product, "qty": c.Quantity}}
}

func (c *recommendCall) run(ctx context.Context, r *keywordRouter) (string, error) {
	rec, err := r.recommender.Recommend(ctx, c.Product, c.Quantity)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Recommendation: %s (score %.1f) with a predicted OEE of %.1f%%.",
		rec.RecommendedLine, rec.Score, rec.Details.PredictedOEE), nil
}

type anomalyCall struct {
	Description string
}

func (c *anomalyCall) action() Action {
	return Action{Tool: ToolAnomaly, Params: map[string]any{"description": c.Description}}
}

func (c *anomalyCall) run(ctx context.Context, r *keywordRouter) (string, error) {
	matches, err := r.expert.FindSimilar(ctx, c.Description)
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "No similar case found in the knowledge base.", nil
	}
	m := matches[0]
	return fmt.Sprintf("Found a similar case (similarity %.1f%%). Cause: %s. Solution: %s.",
		m.Similarity, m.RootCause, m.Solution), nil
}

type speedCall struct {
	Line    string
	Product string
}

func (c *speedCall) action() Action {
	return Action{Tool: ToolSpeed, Params: map[string]any{"line": c.Line, "product": c.Product}}
}

func (c *speedCall) run(ctx context.Context, r *keywordRouter) (string, error) {
	rec, err := r.optimizer.FindOptimalSpeed(ctx, c.Line, c.Product)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Optimal speed for %s: %d pcs/h for a maximum effective output of %.1f.",
		c.Line, rec.OptimalSpeed, rec.MaxOutput), nil
}

type statusCall struct{}

func (c *statusCall) action() Action {
	return Action{Tool: ToolStatus, Params: map[string]any{}}
}

func (c *statusCall) run(ctx context.Context, r *keywordRouter) (string, error) {
	records, err := r.source.RecentTelemetry(ctx, 1)
	if err != nil {
		return "", err
	}
	if len(records) == 0 {
		return "No telemetry available for the last 24 hours.", nil
	}

	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, rec := range records {
		sums[rec.LineID] += rec.OEE
		counts[rec.LineID]++
	}
	parts := make([]string, 0, len(plant.Lines))
	for _, line := range plant.Lines {
		if counts[line] == 0 {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %.1f%%", line, sums[line]/float64(counts[line])))
	}
	return fmt.Sprintf("All lines operational. Average OEE over the last 24h - %s.", strings.Join(parts, ", ")), nil
}

// ─── Query parsing ───────────────────────────────────────────────────────────

// normalize lower-cases the query and folds French accents so "carré" and
// "carre" match the same keyword.
func normalize(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case 'à', 'â', 'ä':
			return 'a'
		case 'é', 'è', 'ê', 'ë':
			return 'e'
		case 'î', 'ï':
			return 'i'
		case 'ô', 'ö':
			return 'o'
		case 'ù', 'û', 'ü':
			return 'u'
		case 'ç':
			return 'c'
		}
		return r
	}, strings.ToLower(s))
}

func containsAny(q string, keywords ...string) bool {
	for _, kw := range keywords {
		if strings.Contains(q, kw) {
			return true
		}
	}
	return false
}

// resolveLine finds an explicit line mention, defaulting to L1.
func resolveLine(q string) string {
	for _, line := range plant.Lines {
		if line == defaultLine {
			continue
		}
		if strings.Contains(q, strings.ToLower(line)) {
			return line
		}
	}
	return defaultLine
}

// resolveProduct maps product mentions to catalog types, most specific
// first, defaulting to the flat-bottom bag.
func resolveProduct(q string) string {
	if strings.Contains(q, "carre") {
		switch {
		case strings.Contains(q, "torsad"):
			return "Fond_Carre_Poignees_Torsadees"
		case strings.Contains(q, "plates"):
			return "Fond_Carre_Poignees_Plates"
		default:
			return "Fond_Carre_Sans_Poignees"
		}
	}
	return defaultProduct
}

// anomalyDescription strips the trigger words so the similarity search sees
// the symptom text, not the routing vocabulary.
func anomalyDescription(q string) string {
	for _, w := range []string{"probleme", "problem", "anomalie", "anomaly"} {
		q = strings.ReplaceAll(q, w, "")
	}
	q = strings.TrimSpace(strings.Join(strings.Fields(q), " "))
	if q == "" {
		return "general problem"
	}
	return q
}
