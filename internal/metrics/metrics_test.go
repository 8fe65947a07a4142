package metrics

import (
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	dto "github.com/prometheus/client_model/go"
	"google.golang.org/protobuf/proto"
)

func TestSummarizeCountsWorkflow(t *testing.T) {
	m := New()
	m.IncProjectOperation("create", "ok")
	m.IncProjectOperation("create", "invalid")
	m.IncProjectOperation("join_accept", "ok")
	m.IncJoinTransition("PENDING")
	m.IncJoinTransition("ACCEPTED")
	m.IncNotification("join_requested")
	m.IncEventPublished("ok")
	m.IncEventPublished("error")
	m.IncAuthFailure("session")
	m.IncAuthSuccess("password")
	m.AddSessionsPurged(3)

	s, err := m.Summarize()
	if err != nil {
		t.Fatal(err)
	}

	if s.Workflow.Operations["create"] != 2 || s.Workflow.Operations["join_accept"] != 1 {
		t.Errorf("unexpected operations %v", s.Workflow.Operations)
	}
	if s.Workflow.FailedOps != 1 {
		t.Errorf("expected 1 failed operation, got %v", s.Workflow.FailedOps)
	}
	if s.Workflow.JoinTransitions["PENDING"] != 1 || s.Workflow.JoinTransitions["ACCEPTED"] != 1 {
		t.Errorf("unexpected transitions %v", s.Workflow.JoinTransitions)
	}
	if s.Workflow.Notifications["join_requested"] != 1 {
		t.Errorf("unexpected notifications %v", s.Workflow.Notifications)
	}
	if s.Workflow.EventsPublished != 2 || s.Workflow.EventErrors != 1 {
		t.Errorf("events: got %v published, %v errors", s.Workflow.EventsPublished, s.Workflow.EventErrors)
	}
	if s.Auth.Failures != 1 || s.Auth.Successes != 1 || s.Auth.SessionsPurged != 3 {
		t.Errorf("unexpected auth summary %+v", s.Auth)
	}
	if s.Server.StartTime == 0 {
		t.Error("expected start time to be set")
	}
}

func TestSummarizeHTTP(t *testing.T) {
	m := New()
	m.ObserveHTTPRequest("GET", "/api/v1/projects", 200, 0.01, 512)
	m.ObserveHTTPRequest("GET", "/api/v1/projects", 200, 0.02, 512)
	m.ObserveHTTPRequest("POST", "/api/v1/projects/create", 422, 0.03, 128)
	m.ObserveHTTPRequest("GET", "/api/v1/projects/{id}", 404, 0.01, 64)

	s, err := m.Summarize()
	if err != nil {
		t.Fatal(err)
	}
	if s.HTTP.TotalRequests != 4 {
		t.Errorf("expected 4 requests, got %v", s.HTTP.TotalRequests)
	}
	if s.HTTP.ErrorRate != 0.5 {
		t.Errorf("expected error rate 0.5, got %v", s.HTTP.ErrorRate)
	}
	if s.HTTP.P50Latency <= 0 || s.HTTP.P50Latency > s.HTTP.P99Latency {
		t.Errorf("implausible latencies p50=%v p99=%v", s.HTTP.P50Latency, s.HTTP.P99Latency)
	}
}

func TestDBPoolCollector(t *testing.T) {
	m := New()
	m.RegisterDBPoolCollector(func() PoolStat {
		return PoolStat{Total: 5, Idle: 3, Acquired: 2, Max: 10}
	})

	s, err := m.Summarize()
	if err != nil {
		t.Fatal(err)
	}
	want := dbInfo{TotalConns: 5, IdleConns: 3, AcquiredConns: 2, MaxConns: 10}
	if s.DB != want {
		t.Errorf("got %+v, want %+v", s.DB, want)
	}
}

func TestHandlerServesJSON(t *testing.T) {
	m := New()
	m.IncProjectOperation("delete", "ok")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/metrics/summary", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if cc := rec.Header().Get("Cache-Control"); cc != "no-cache, no-store" {
		t.Errorf("unexpected Cache-Control %q", cc)
	}
	var s Summary
	if err := json.NewDecoder(rec.Body).Decode(&s); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if s.Workflow.Operations["delete"] != 1 {
		t.Errorf("expected delete operation in summary, got %v", s.Workflow.Operations)
	}
}

func histogram(counts map[float64]uint64, total uint64) *dto.MetricFamily {
	h := &dto.Histogram{SampleCount: proto.Uint64(total)}
	for _, ub := range []float64{0.1, 0.5, 1, math.Inf(1)} {
		h.Bucket = append(h.Bucket, &dto.Bucket{UpperBound: proto.Float64(ub), CumulativeCount: proto.Uint64(counts[ub])})
	}
	return &dto.MetricFamily{Metric: []*dto.Metric{{Histogram: h}}}
}

func TestHistogramPercentile(t *testing.T) {
	f := histogram(map[float64]uint64{0.1: 50, 0.5: 90, 1: 100, math.Inf(1): 100}, 100)

	tests := []struct {
		q    float64
		want float64
	}{
		{0.25, 0.05},
		{0.50, 0.1},
		{0.70, 0.3},
		{0.95, 0.75},
	}
	for _, tt := range tests {
		got := histogramPercentile(f, tt.q)
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("q=%v: got %v, want %v", tt.q, got, tt.want)
		}
	}

	if got := histogramPercentile(nil, 0.5); got != 0 {
		t.Errorf("nil family: got %v, want 0", got)
	}
	if got := histogramPercentile(histogram(nil, 0), 0.5); got != 0 {
		t.Errorf("empty histogram: got %v, want 0", got)
	}
}
