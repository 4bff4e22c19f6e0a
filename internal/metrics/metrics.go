package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Package metrics defines the Prometheus instrumentation for tecpap-ai.
// All metrics are registered on the default registry and served on /metrics.

var (
	// ToolCalls counts routed engine invocations by tool name and outcome.
	ToolCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tecpap_ai_tool_calls_total",
			Help: "Engine tool invocations by tool and status.",
		},
		[]string{"tool", "status"},
	)

	// ToolDuration observes engine invocation latency.
	ToolDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tecpap_ai_tool_duration_seconds",
			Help:    "Engine tool invocation duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"tool"},
	)

	// TrainingDuration observes model training time per engine.
	TrainingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tecpap_ai_training_duration_seconds",
			Help:    "Model training duration in seconds per engine.",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"engine"},
	)

	// ForecastsServed counts forecast days produced across all requests.
	ForecastsServed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tecpap_ai_forecast_days_total",
			Help: "Total forecast days served.",
		},
	)

	// ActiveAlerts tracks the number of currently firing alerts by severity.
	ActiveAlerts = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tecpap_ai_active_alerts",
			Help: "Currently active alerts by severity.",
		},
		[]string{"severity"},
	)

	// HTTPRequests counts API requests by route and status code.
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tecpap_ai_http_requests_total",
			Help: "HTTP requests by route and status code.",
		},
		[]string{"route", "code"},
	)

	// HTTPDuration observes API request latency by route.
	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tecpap_ai_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds by route.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	// StreamClients tracks connected alert-stream WebSocket clients.
	StreamClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tecpap_ai_stream_clients",
			Help: "Connected alert-stream WebSocket clients.",
		},
	)
)
