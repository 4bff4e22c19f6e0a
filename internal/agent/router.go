package agent

import (
	"context"
)

// Package agent routes free-text operator queries to exactly one decision
// engine.
//
// This is a deterministic keyword dispatcher, not a learned model: queries
// are normalized (lower-cased, French accents folded) and matched against an
// ordered list of intent rules. The first matching rule wins and later rules
// are never evaluated. Line and product mentions are resolved from the query
// text, defaulting to L1 and Fond_Plat when unspecified. Engine failures of
// any kind are converted to observation strings naming the failing tool so a
// chat query can never crash the host.

// Tool names in dispatch priority order.
const (
	ToolForecast  = "oee_forecast"
	ToolRecommend = "line_recommendation"
	ToolAnomaly   = "solve_anomaly"
	ToolSpeed     = "optimize_speed"
	ToolStatus    = "system_status"
)

// Action is one engine invocation the router decided on, in the wire shape
// consumed by the UI and audit logging.
type Action struct {
	Tool   string         `json:"tool"`
	Params map[string]any `json:"params"`
}

// Response is the structured answer to a routed query.
type Response struct {
	Thought      string   `json:"thought"`
	Actions      []Action `json:"actions"`
	Observations []string `json:"observations"`
	Response     string   `json:"response"`
}

// Router dispatches free-text queries to the decision engines.
type Router interface {
	// Process routes one query. Always returns a well-formed response;
	// engine failures surface inside Observations.
	Process(ctx context.Context, query string) *Response
}
