package recommender

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tecpap/tecpap-ai/internal/config"
	"github.com/tecpap/tecpap-ai/internal/data"
	"github.com/tecpap/tecpap-ai/internal/models"
	"github.com/tecpap/tecpap-ai/internal/plant"
)

// bestLineWindowDays is the trailing observation window for BestLine.
const bestLineWindowDays = 7

// Forecaster is the slice of the OEE predictor the recommender needs. A nil
// or not-ready forecaster degrades to the neutral OEE constant.
type Forecaster interface {
	Predict(ctx context.Context, ts time.Time, lineID string) (float64, error)
	Ready(ctx context.Context) bool
}

type lineRecommender struct {
	cfg      *config.Config
	source   data.Source
	forecast Forecaster
	logger   *zap.Logger
	now      func() time.Time
}

// New creates the line recommender. forecast may be nil.
func New(cfg *config.Config, source data.Source, forecast Forecaster, logger *zap.Logger) Recommender {
	return &lineRecommender{
		cfg:      cfg,
		source:   source,
		forecast: forecast,
		logger:   logger.Named("recommender"),
		now:      time.Now,
	}
}

func (r *lineRecommender) BestLine(ctx context.Context) (*models.BestLineResult, error) {
	records, err := r.source.RecentTelemetry(ctx, bestLineWindowDays)
	if err != nil {
		return nil, fmt.Errorf("load telemetry: %w", err)
	}

	byLine := make(map[string][]models.TelemetryRecord)
	for _, rec := range records {
		byLine[rec.LineID] = append(byLine[rec.LineID], rec)
	}

	w := r.cfg.Scoring.BestLine
	var scores []models.LineScore
	for _, line := range plant.Lines {
		obs := byLine[line]
		if len(obs) == 0 {
			// No recent observations, skip rather than rank on nothing.
			continue
		}

		var oee, avail, qual, perf []float64
		for _, o := range obs {
			oee = append(oee, o.OEE)
			avail = append(avail, o.Availability)
			qual = append(qual, o.Quality)
			perf = append(perf, o.Performance)
		}
		stability := 100 - 2*sampleStdev(oee)

		s := models.LineScore{
			LineID:       line,
			OEE:          round2(mean(oee)),
			Availability: round2(mean(avail)),
			Quality:      round2(mean(qual)),
			Performance:  round2(mean(perf)),
			Stability:    round2(stability),
		}
		s.TotalScore = round2(w.OEE*mean(oee) + w.Availability*mean(avail) +
			w.Quality*mean(qual) + w.Performance*mean(perf) + w.Stability*stability)
		scores = append(scores, s)
	}
	if len(scores) == 0 {
		return nil, fmt.Errorf("no recent telemetry for any line")
	}

	// Stable sort keeps the canonical line order on equal scores.
	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].TotalScore > scores[j].TotalScore
	})
	best := scores[0]

	return &models.BestLineResult{
		RecommendedLine: best.LineID,
		Score:           best.TotalScore,
		Details:         best,
		AllScores:       scores,
		Reason:          bestLineReason(best),
	}, nil
}

func (r *lineRecommender) Recommend(ctx context.Context, productType string, quantity int) (*models.Recommendation, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("quantity must be positive, got %d", quantity)
	}

	w := r.cfg.Scoring.Recommend
	var options []models.LineOption
	for _, line := range plant.Lines {
		ch := plant.Characteristics[line]
		predOEE := r.predictedOEE(ctx, line)
		speedScore := float64(ch.Speed) / r.cfg.Scoring.ReferenceSpeed * 100

		score := w.PredictedOEE*predOEE +
			w.QualityRate*(ch.QualityRate*100) +
			w.SpeedScore*speedScore +
			w.Flexibility*(ch.Flexibility*100)

		options = append(options, models.LineOption{
			LineID:              line,
			Score:               round2(score),
			PredictedOEE:        round1(predOEE),
			ProductionTimeHours: round1(float64(quantity) / float64(ch.Speed)),
			Speed:               ch.Speed,
			OperatorsNeeded:     ch.OperatorsNeeded,
			Status:              ch.MaintenanceLevel,
		})
	}

	sort.SliceStable(options, func(i, j int) bool {
		return options[i].Score > options[j].Score
	})
	best := options[0]

	confidence := "Medium"
	if best.Score > r.cfg.Scoring.HighConfidenceScore {
		confidence = "High"
	}

	r.logger.Debug("line recommendation",
		zap.String("product", productType),
		zap.Int("quantity", quantity),
		zap.String("line", best.LineID),
		zap.Float64("score", best.Score))

	return &models.Recommendation{
		RecommendedLine: best.LineID,
		Score:           best.Score,
		Details:         best,
		Alternatives:    options[1:],
		Confidence:      confidence,
	}, nil
}

// predictedOEE asks the forecaster for tomorrow noon; any failure degrades to
// the neutral constant.
func (r *lineRecommender) predictedOEE(ctx context.Context, line string) float64 {
	if r.forecast == nil || !r.forecast.Ready(ctx) {
		return r.cfg.Scoring.NeutralOEE
	}
	tomorrow := r.now().AddDate(0, 0, 1)
	ts := time.Date(tomorrow.Year(), tomorrow.Month(), tomorrow.Day(), 12, 0, 0, 0, tomorrow.Location())
	pred, err := r.forecast.Predict(ctx, ts, line)
	if err != nil {
		return r.cfg.Scoring.NeutralOEE
	}
	return pred
}

// bestLineReason explains a winning score through fixed threshold rules.
func bestLineReason(s models.LineScore) string {
	var parts []string
	if s.OEE > 75 {
		parts = append(parts, fmt.Sprintf("high average OEE (%.1f%%)", s.OEE))
	}
	if s.Quality > 95 {
		parts = append(parts, fmt.Sprintf("excellent quality rate (%.1f%%)", s.Quality))
	}
	if s.Stability > 90 {
		parts = append(parts, fmt.Sprintf("very stable performance (%.1f)", s.Stability))
	}
	if len(parts) == 0 {
		return fmt.Sprintf("%s offers the best balance of performance, quality and stability over the last %d days", s.LineID, bestLineWindowDays)
	}
	return fmt.Sprintf("%s recommended for %s", s.LineID, strings.Join(parts, ", "))
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

// sampleStdev is the n-1 standard deviation; a single observation has no
// spread and counts as perfectly stable.
func sampleStdev(vals []float64) float64 {
	if len(vals) < 2 {
		return 0
	}
	m := mean(vals)
	sum := 0.0
	for _, v := range vals {
		d := v - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(vals)-1))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
