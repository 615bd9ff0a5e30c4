// Package metrics exposes CodeBot's Prometheus metrics. Everything registers
// on the default registry and is served by the health server at /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Relay metrics
	MessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codebot_messages_total",
			Help: "Inbound messages by relay outcome",
		},
		[]string{"outcome"}, // stale | ignored | command | answered | failed | aborted
	)

	EngagementsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codebot_engagements_total",
			Help: "Engaged messages by trigger reason",
		},
		[]string{"reason"},
	)

	ModeDetections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codebot_mode_detections_total",
			Help: "Requests by locally detected intent mode",
		},
		[]string{"mode"},
	)

	InFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "codebot_inflight_messages",
			Help: "Messages currently being handled",
		},
	)

	BusDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "codebot_bus_dropped_total",
			Help: "Inbound messages dropped because the queue stayed full",
		},
	)

	// Completion metrics
	CompletionAttempts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "codebot_completion_attempts_total",
			Help: "Upstream completion calls, retries included",
		},
	)

	CompletionResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codebot_completion_results_total",
			Help: "Final completion results by kind",
		},
		[]string{"result"}, // ok | rate_limited | upstream_error | exhausted
	)

	CompletionLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "codebot_completion_latency_seconds",
			Help:    "Latency of a single upstream completion call",
			Buckets: []float64{.25, .5, 1, 2, 4, 8, 16, 32, 64},
		},
	)

	RetryWaits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "codebot_retry_waits_total",
			Help: "Backoff waits taken after a rate-limited attempt",
		},
	)

	// Delivery metrics
	Deliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codebot_deliveries_total",
			Help: "Status message edits by formatting and result",
		},
		[]string{"format", "result"}, // rich|plain x ok|error
	)
)

// ObserveCompletion records one upstream call that started at start.
func ObserveCompletion(start time.Time) {
	CompletionAttempts.Inc()
	CompletionLatency.Observe(time.Since(start).Seconds())
}
