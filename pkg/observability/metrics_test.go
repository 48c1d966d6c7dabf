package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/Kenerlee/skillbridge/pkg/api"
)

// TestMetricsRegistered verifies that all metrics are registered in the
// default registry.
func TestMetricsRegistered(t *testing.T) {
	// Counters and histograms only appear after their first observation.
	RequestsTotal.WithLabelValues("GET", "/skills", "2xx").Inc()
	RequestDuration.WithLabelValues("GET", "/skills").Observe(0.1)
	SessionsActive.WithLabelValues("native").Set(0)
	RecordSession(&api.SessionSummary{
		Dialect: "native", Model: "m", Status: api.SessionCompleted,
		Steps: 1, FileIDs: []string{"file_1"}, Usage: api.Usage{InputTokens: 1, OutputTokens: 1},
	}, time.Second)
	RecordStream("native", map[api.EventType]int{api.EventDone: 1}, 1)
	UpstreamRequestsTotal.WithLabelValues("m", "success").Inc()
	UpstreamLatency.WithLabelValues("m").Observe(0.1)
	RateLimitRejectedTotal.WithLabelValues("default").Inc()

	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("unexpected gather error: %v", err)
	}

	expected := map[string]bool{
		"skillbridge_requests_total":            false,
		"skillbridge_request_duration_seconds":  false,
		"skillbridge_sessions_active":           false,
		"skillbridge_sessions_total":            false,
		"skillbridge_session_duration_seconds":  false,
		"skillbridge_stream_events_total":       false,
		"skillbridge_heartbeats_total":          false,
		"skillbridge_steps_total":               false,
		"skillbridge_artifacts_total":           false,
		"skillbridge_upstream_requests_total":   false,
		"skillbridge_upstream_latency_seconds":  false,
		"skillbridge_upstream_tokens_total":     false,
		"skillbridge_ratelimit_rejected_total":  false,
	}
	for _, mf := range families {
		if _, ok := expected[mf.GetName()]; ok {
			expected[mf.GetName()] = true
		}
	}
	for name, found := range expected {
		if !found {
			t.Errorf("metric %q not found in default registry", name)
		}
	}
}

func TestRecordSession(t *testing.T) {
	beforeSessions := counterValue(t, SessionsTotal, "openai", "failed")
	beforeSteps := plainCounterValue(t, StepsTotal)
	beforeArtifacts := plainCounterValue(t, ArtifactsTotal)
	beforeIn := counterValue(t, UpstreamTokensTotal, "claude-test", "input")

	RecordSession(&api.SessionSummary{
		Dialect: "openai",
		Model:   "claude-test",
		Status:  api.SessionFailed,
		Steps:   3,
		FileIDs: []string{"file_a", "file_b"},
		Usage:   api.Usage{InputTokens: 40, OutputTokens: 0},
	}, 2*time.Second)

	if d := counterValue(t, SessionsTotal, "openai", "failed") - beforeSessions; d != 1 {
		t.Errorf("sessions delta = %v, want 1", d)
	}
	if d := plainCounterValue(t, StepsTotal) - beforeSteps; d != 3 {
		t.Errorf("steps delta = %v, want 3", d)
	}
	if d := plainCounterValue(t, ArtifactsTotal) - beforeArtifacts; d != 2 {
		t.Errorf("artifacts delta = %v, want 2", d)
	}
	if d := counterValue(t, UpstreamTokensTotal, "claude-test", "input") - beforeIn; d != 40 {
		t.Errorf("input tokens delta = %v, want 40", d)
	}
}

func TestRecordStream(t *testing.T) {
	before := counterValue(t, StreamEventsTotal, "native", "text_delta")
	beforeHB := counterValue(t, HeartbeatsTotal, "native")

	RecordStream("native", map[api.EventType]int{api.EventTextDelta: 4}, 2)

	if d := counterValue(t, StreamEventsTotal, "native", "text_delta") - before; d != 4 {
		t.Errorf("text_delta delta = %v, want 4", d)
	}
	if d := counterValue(t, HeartbeatsTotal, "native") - beforeHB; d != 2 {
		t.Errorf("heartbeats delta = %v, want 2", d)
	}
}

func TestMiddlewareRecordsRequestCount(t *testing.T) {
	route := func(*http.Request) string { return "GET /files/{file_id}/metadata" }
	before := counterValue(t, RequestsTotal, "GET", "/files/{file_id}/metadata", "2xx")

	handler := MetricsMiddleware(route)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/files/file_123/metadata", nil))

	after := counterValue(t, RequestsTotal, "GET", "/files/{file_id}/metadata", "2xx")
	if after-before != 1 {
		t.Errorf("expected request count to increase by 1, got delta=%f", after-before)
	}
}

func TestMiddlewareRecordsDuration(t *testing.T) {
	before := histogramCount(t, RequestDuration, "POST", "unmatched")

	handler := MetricsMiddleware(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(5 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("POST", "/nowhere", nil))

	after := histogramCount(t, RequestDuration, "POST", "unmatched")
	if after-before != 1 {
		t.Errorf("expected histogram sample count to increase by 1, got delta=%d", after-before)
	}
}

func TestMiddlewareCapturesStatusCode(t *testing.T) {
	route := func(*http.Request) string { return "POST /invoke" }
	before := counterValue(t, RequestsTotal, "POST", "/invoke", "4xx")

	handler := MetricsMiddleware(route)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("POST", "/invoke", nil))

	after := counterValue(t, RequestsTotal, "POST", "/invoke", "4xx")
	if after-before != 1 {
		t.Errorf("expected 4xx count to increase by 1, got delta=%f", after-before)
	}
}

func TestStatusWriterFlush(t *testing.T) {
	rec := httptest.NewRecorder()
	sw := &statusWriter{ResponseWriter: rec, status: http.StatusOK}

	sw.Flush()

	if !rec.Flushed {
		t.Error("expected underlying writer to be flushed")
	}
}

// counterValue reads the current value of a CounterVec for the given labels.
func counterValue(t *testing.T, cv *prometheus.CounterVec, labels ...string) float64 {
	t.Helper()
	c, err := cv.GetMetricWithLabelValues(labels...)
	if err != nil {
		t.Fatalf("getting counter metric: %v", err)
	}
	return plainCounterValue(t, c)
}

func plainCounterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	m := &dto.Metric{}
	if err := c.Write(m); err != nil {
		t.Fatalf("writing counter metric: %v", err)
	}
	return m.GetCounter().GetValue()
}

// histogramCount reads the observation count from a HistogramVec.
func histogramCount(t *testing.T, hv *prometheus.HistogramVec, labels ...string) uint64 {
	t.Helper()
	m := &dto.Metric{}
	obs, err := hv.GetMetricWithLabelValues(labels...)
	if err != nil {
		t.Fatalf("getting histogram metric: %v", err)
	}
	if err := obs.(prometheus.Metric).Write(m); err != nil {
		t.Fatalf("writing histogram metric: %v", err)
	}
	return m.GetHistogram().GetSampleCount()
}
