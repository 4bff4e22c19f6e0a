package models

import "time"

// Package models defines core data types used throughout tecpap-ai.
//
// These types are shared between the data layer, the decision engines
// (predictor, optimizer, recommender, anomaly expert) and the agent router.

// TelemetryRecord is one hourly equipment-effectiveness reading for a line.
// All percentage fields are in [40,100] and GoodPieces <= TotalPieces.
type TelemetryRecord struct {
	Timestamp    time.Time `json:"timestamp"`
	LineID       string    `json:"line_id"`
	ProductType  string    `json:"product_type"`
	MachineSpeed int       `json:"machine_speed"` // pieces/hour
	OEE          float64   `json:"oee"`
	Availability float64   `json:"availability"`
	Performance  float64   `json:"performance"`
	Quality      float64   `json:"quality"`
	GoodPieces   int       `json:"good_pieces"`
	TotalPieces  int       `json:"total_pieces"`
}

// AnomalyRecord is a historical anomaly and its resolution. Records are
// immutable once stored and queried read-only by the anomaly expert.
type AnomalyRecord struct {
	ID             int       `json:"id"`
	Timestamp      time.Time `json:"timestamp"`
	LineID         string    `json:"line_id"`
	MachineID      string    `json:"machine_id"`
	Symptom        string    `json:"symptom"`
	RootCause      string    `json:"root_cause"`
	Solution       string    `json:"solution"`
	ResolutionTime int       `json:"resolution_time_minutes"`
	ImpactOEE      float64   `json:"impact_oee"` // negative
	Priority       string    `json:"priority"`   // Low, Medium, High, Critical
	Status         string    `json:"status"`
}

// DailyForecast is one predicted day of OEE for a line.
type DailyForecast struct {
	Date         string  `json:"date"`
	OEEPredicted float64 `json:"oee_predicted"`
	Trend        string  `json:"trend"` // "increasing", "decreasing", "stable"
}

// LineScore holds the observed trailing-window metrics behind a best-line
// ranking. Stability penalizes OEE variance: 100 - 2*stdev(OEE).
type LineScore struct {
	LineID       string  `json:"line_id"`
	TotalScore   float64 `json:"total_score"`
	OEE          float64 `json:"oee"`
	Availability float64 `json:"availability"`
	Quality      float64 `json:"quality"`
	Performance  float64 `json:"performance"`
	Stability    float64 `json:"stability"`
}

// BestLineResult ranks lines on observed metrics with an explanation.
type BestLineResult struct {
	RecommendedLine string      `json:"recommended_line"`
	Score           float64     `json:"score"`
	Details         LineScore   `json:"details"`
	AllScores       []LineScore `json:"all_scores"`
	Reason          string      `json:"reason"`
}

// LineOption is one candidate line for a production request.
type LineOption struct {
	LineID              string  `json:"line_id"`
	Score               float64 `json:"score"`
	PredictedOEE        float64 `json:"predicted_oee"`
	ProductionTimeHours float64 `json:"production_time_hours"`
	Speed               int     `json:"speed"`
	OperatorsNeeded     int     `json:"operators_needed"`
	Status              string  `json:"status"`
}

// Recommendation is the forward-looking answer to "which line should run
// this product and quantity". Alternatives exclude the recommended line and
// are sorted by score descending.
type Recommendation struct {
	RecommendedLine string       `json:"recommended_line"`
	Score           float64      `json:"score"`
	Details         LineOption   `json:"details"`
	Alternatives    []LineOption `json:"alternatives"`
	Confidence      string       `json:"confidence"` // "High" or "Medium"
}

// SpeedCurvePoint is one swept candidate speed with its predicted outcome.
// Output is the quality-adjusted throughput: production * quality / 100.
type SpeedCurvePoint struct {
	Speed   int     `json:"speed"`
	Output  float64 `json:"output"`
	Quality float64 `json:"quality"`
}

// SpeedRecommendation is the sweet-spot answer plus the full swept curve so
// callers can visualize the production/quality trade-off.
type SpeedRecommendation struct {
	OptimalSpeed int               `json:"optimal_speed"`
	MaxOutput    float64           `json:"max_output"`
	CurrentSpeed int               `json:"current_speed"`
	Curve        []SpeedCurvePoint `json:"curve"`
}

// AnomalyMatch is one knowledge-base hit from a similarity search.
// Similarity is a percentage in (10,100].
type AnomalyMatch struct {
	Similarity float64 `json:"similarity"`
	LineID     string  `json:"line"`
	MachineID  string  `json:"machine"`
	Symptom    string  `json:"symptom"`
	RootCause  string  `json:"cause"`
	Solution   string  `json:"solution"`
}

// Alert is an ephemeral condition derived from the last 24h of telemetry.
// Alerts are recomputed wholesale on each knowledge-base load.
type Alert struct {
	ID        string    `json:"id"`
	LineID    string    `json:"line_id"`
	Severity  string    `json:"severity"` // "Critical" or "High"
	Type      string    `json:"type"`     // "Performance_Drop" or "Low_OEE"
	Message   string    `json:"message"`
	Current   float64   `json:"current"`
	Expected  float64   `json:"expected,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
