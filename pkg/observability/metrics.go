// Package observability provides Prometheus metrics and HTTP middleware
// for monitoring the skillbridge gateway.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Kenerlee/skillbridge/pkg/api"
)

// SessionBuckets defines histogram buckets suited for skill sessions,
// which run code in the upstream container: 500ms to 10 minutes.
var SessionBuckets = []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600}

var (
	// RequestsTotal counts all HTTP requests by method, route, and status class.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skillbridge_requests_total",
			Help: "Total requests",
		},
		[]string{"method", "path", "status"},
	)

	// RequestDuration records HTTP request duration in seconds by method and route.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "skillbridge_request_duration_seconds",
			Help:    "Request duration",
			Buckets: SessionBuckets,
		},
		[]string{"method", "path"},
	)

	// SessionsActive tracks streaming sessions whose producer is running.
	SessionsActive = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "skillbridge_sessions_active",
			Help: "Active streaming sessions",
		},
		[]string{"dialect"},
	)

	// SessionsTotal counts finished sessions by dialect and outcome.
	SessionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skillbridge_sessions_total",
			Help: "Finished sessions",
		},
		[]string{"dialect", "outcome"},
	)

	// SessionDuration records how long sessions ran, from upstream open
	// to the terminal event.
	SessionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "skillbridge_session_duration_seconds",
			Help:    "Session duration",
			Buckets: SessionBuckets,
		},
		[]string{"dialect"},
	)

	// StreamEventsTotal counts normalized events written to clients.
	StreamEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skillbridge_stream_events_total",
			Help: "Stream events written",
		},
		[]string{"dialect", "type"},
	)

	// HeartbeatsTotal counts keepalive comments written to clients.
	HeartbeatsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skillbridge_heartbeats_total",
			Help: "Keepalive comments written",
		},
		[]string{"dialect"},
	)

	// StepsTotal counts tool invocation steps across all sessions.
	StepsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "skillbridge_steps_total",
			Help: "Tool invocation steps",
		},
	)

	// ArtifactsTotal counts distinct file ids reported to clients.
	ArtifactsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "skillbridge_artifacts_total",
			Help: "Artifact file ids reported",
		},
	)

	// UpstreamRequestsTotal counts Messages API calls by model and status.
	UpstreamRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skillbridge_upstream_requests_total",
			Help: "Upstream requests",
		},
		[]string{"model", "status"},
	)

	// UpstreamLatency records non-streaming upstream call latency.
	UpstreamLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "skillbridge_upstream_latency_seconds",
			Help:    "Upstream latency",
			Buckets: SessionBuckets,
		},
		[]string{"model"},
	)

	// UpstreamTokensTotal counts tokens by direction (input/output).
	UpstreamTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skillbridge_upstream_tokens_total",
			Help: "Token count",
		},
		[]string{"model", "direction"},
	)

	// RateLimitRejectedTotal counts requests rejected by the rate limiter.
	RateLimitRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skillbridge_ratelimit_rejected_total",
			Help: "Rate limit rejections",
		},
		[]string{"tier"},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		SessionsActive,
		SessionsTotal,
		SessionDuration,
		StreamEventsTotal,
		HeartbeatsTotal,
		StepsTotal,
		ArtifactsTotal,
		UpstreamRequestsTotal,
		UpstreamLatency,
		UpstreamTokensTotal,
		RateLimitRejectedTotal,
	)
}

// RecordSession records the metrics of one finished session.
func RecordSession(s *api.SessionSummary, duration time.Duration) {
	SessionsTotal.WithLabelValues(s.Dialect, string(s.Status)).Inc()
	SessionDuration.WithLabelValues(s.Dialect).Observe(duration.Seconds())
	StepsTotal.Add(float64(s.Steps))
	ArtifactsTotal.Add(float64(len(s.FileIDs)))
	RecordUsage(s.Model, s.Usage)
}

// RecordUsage adds upstream token counts for model.
func RecordUsage(model string, u api.Usage) {
	if u.InputTokens > 0 {
		UpstreamTokensTotal.WithLabelValues(model, "input").Add(float64(u.InputTokens))
	}
	if u.OutputTokens > 0 {
		UpstreamTokensTotal.WithLabelValues(model, "output").Add(float64(u.OutputTokens))
	}
}

// RecordStream adds the events and heartbeats a bridge wrote.
func RecordStream(dialect string, byType map[api.EventType]int, heartbeats int) {
	for typ, n := range byType {
		StreamEventsTotal.WithLabelValues(dialect, string(typ)).Add(float64(n))
	}
	if heartbeats > 0 {
		HeartbeatsTotal.WithLabelValues(dialect).Add(float64(heartbeats))
	}
}
