// Package observability holds the Prometheus collectors and the OpenTelemetry
// tracer shared across the service.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "snapgram_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// WebSocketRoomJoins counts join_chat requests by outcome.
	WebSocketRoomJoins = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snapgram_websocket_room_joins_total",
		Help: "Room join attempts by outcome",
	}, []string{"outcome"})

	// WebSocketEventsTotal counts WebSocket events by type.
	WebSocketEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snapgram_websocket_events_total",
		Help: "Total WebSocket events by type",
	}, []string{"event_type"})

	// WebSocketBackpressureDrops counts frames dropped because a client's send buffer was full.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snapgram_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"hub", "reason"})

	// MessagesPublished counts real-time publishes by event type and transport.
	MessagesPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snapgram_messages_published_total",
		Help: "Real-time events published by type and transport",
	}, []string{"event_type", "transport"})

	// AICalls counts text-generation calls by kind (chat, recommend) and outcome.
	AICalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snapgram_ai_calls_total",
		Help: "Text-generation calls by kind and outcome",
	}, []string{"kind", "outcome"})

	// AILatency records text-generation call latency by kind.
	AILatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "snapgram_ai_call_latency_seconds",
		Help:    "Text-generation call latency in seconds",
		Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40},
	}, []string{"kind"})

	// AIBreakerState is 0 closed, 1 half-open, 2 open.
	AIBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "snapgram_ai_breaker_state",
		Help: "Circuit breaker state for text-generation calls (0 closed, 1 half-open, 2 open)",
	}, []string{"breaker"})

	// RecommendationPaths counts which branch produced a recommendation result.
	RecommendationPaths = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snapgram_recommendation_paths_total",
		Help: "Recommendation results by path (fallback, model, top_category)",
	}, []string{"path"})
)

// ObserveQuery records the latency of a database query.
func ObserveQuery(operation, table string, start time.Time) {
	DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
}

// ObserveAICall records one text-generation call.
func ObserveAICall(kind, outcome string, start time.Time) {
	AICalls.WithLabelValues(kind, outcome).Inc()
	AILatency.WithLabelValues(kind).Observe(time.Since(start).Seconds())
}
