package metrics

import (
	"encoding/json"
	"math"
	"net/http"
	"sort"
	"time"

	dto "github.com/prometheus/client_model/go"
)

// Summary is the JSON response for the metrics summary endpoint.
type Summary struct {
	HTTP     httpSummary     `json:"http"`
	Workflow workflowSummary `json:"workflow"`
	Auth     authInfo        `json:"auth"`
	DB       dbInfo          `json:"db"`
	Server   serverInfo      `json:"server"`
}

type httpSummary struct {
	TotalRequests float64 `json:"totalRequests"`
	ErrorRate     float64 `json:"errorRate"`
	P50Latency    float64 `json:"p50Latency"`
	P95Latency    float64 `json:"p95Latency"`
	P99Latency    float64 `json:"p99Latency"`
}

type workflowSummary struct {
	Operations      map[string]float64 `json:"operations"`
	FailedOps       float64            `json:"failedOperations"`
	JoinTransitions map[string]float64 `json:"joinTransitions"`
	Notifications   map[string]float64 `json:"notifications"`
	EventsPublished float64            `json:"eventsPublished"`
	EventErrors     float64            `json:"eventErrors"`
}

type authInfo struct {
	Failures       float64 `json:"failures"`
	Successes      float64 `json:"successes"`
	SessionsPurged float64 `json:"sessionsPurged"`
}

type dbInfo struct {
	TotalConns    float64 `json:"totalConns"`
	IdleConns     float64 `json:"idleConns"`
	AcquiredConns float64 `json:"acquiredConns"`
	MaxConns      float64 `json:"maxConns"`
}

type serverInfo struct {
	StartTime     float64 `json:"startTime"`
	UptimeSeconds float64 `json:"uptimeSeconds"`
}

// Handler returns an http.HandlerFunc that serves a JSON digest of the
// registry.
func (m *Metrics) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := m.Summarize()
		if err != nil {
			http.Error(w, "failed to gather metrics", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-cache, no-store")
		_ = json.NewEncoder(w).Encode(s)
	}
}

// Summarize gathers the registry into a Summary.
func (m *Metrics) Summarize() (*Summary, error) {
	families, err := m.registry.Gather()
	if err != nil {
		return nil, err
	}

	fam := make(map[string]*dto.MetricFamily, len(families))
	for _, f := range families {
		fam[f.GetName()] = f
	}

	ops := fam["huddle_project_operations_total"]
	started := gaugeValue(fam["huddle_server_start_time_seconds"])
	return &Summary{
		HTTP: httpSummary{
			TotalRequests: sumCounter(fam["huddle_http_requests_total"], nil),
			ErrorRate:     errorRate(fam["huddle_http_requests_total"]),
			P50Latency:    histogramPercentile(fam["huddle_http_request_duration_seconds"], 0.50),
			P95Latency:    histogramPercentile(fam["huddle_http_request_duration_seconds"], 0.95),
			P99Latency:    histogramPercentile(fam["huddle_http_request_duration_seconds"], 0.99),
		},
		Workflow: workflowSummary{
			Operations: countersBy(ops, "operation"),
			FailedOps: sumCounter(ops, func(m *dto.Metric) bool {
				return !hasLabel(m, "outcome", "ok")
			}),
			JoinTransitions: countersBy(fam["huddle_join_request_transitions_total"], "status"),
			Notifications:   countersBy(fam["huddle_notifications_sent_total"], "kind"),
			EventsPublished: sumCounter(fam["huddle_events_published_total"], nil),
			EventErrors: sumCounter(fam["huddle_events_published_total"], func(m *dto.Metric) bool {
				return hasLabel(m, "outcome", "error")
			}),
		},
		Auth: authInfo{
			Failures:       sumCounter(fam["huddle_auth_failures_total"], nil),
			Successes:      sumCounter(fam["huddle_auth_successes_total"], nil),
			SessionsPurged: sumCounter(fam["huddle_sessions_purged_total"], nil),
		},
		DB: dbInfo{
			TotalConns:    gaugeValue(fam["huddle_db_pool_total_conns"]),
			IdleConns:     gaugeValue(fam["huddle_db_pool_idle_conns"]),
			AcquiredConns: gaugeValue(fam["huddle_db_pool_acquired_conns"]),
			MaxConns:      gaugeValue(fam["huddle_db_pool_max_conns"]),
		},
		Server: serverInfo{
			StartTime:     started,
			UptimeSeconds: float64(time.Now().Unix()) - started,
		},
	}, nil
}

// --- Prometheus metric helpers ---

func hasLabel(m *dto.Metric, name, value string) bool {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name && lp.GetValue() == value {
			return true
		}
	}
	return false
}

func labelValue(m *dto.Metric, name string) string {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}

// sumCounter adds every counter in f accepted by keep; a nil keep accepts all.
func sumCounter(f *dto.MetricFamily, keep func(*dto.Metric) bool) float64 {
	var total float64
	for _, m := range f.GetMetric() {
		if m.GetCounter() == nil || (keep != nil && !keep(m)) {
			continue
		}
		total += m.GetCounter().GetValue()
	}
	return total
}

// countersBy totals the counters in f grouped by one label.
func countersBy(f *dto.MetricFamily, label string) map[string]float64 {
	out := map[string]float64{}
	for _, m := range f.GetMetric() {
		if m.GetCounter() == nil {
			continue
		}
		out[labelValue(m, label)] += m.GetCounter().GetValue()
	}
	return out
}

func gaugeValue(f *dto.MetricFamily) float64 {
	ms := f.GetMetric()
	if len(ms) == 0 || ms[0].GetGauge() == nil {
		return 0
	}
	return ms[0].GetGauge().GetValue()
}

// errorRate is the share of requests answered with a 4xx or 5xx status.
func errorRate(f *dto.MetricFamily) float64 {
	total := sumCounter(f, nil)
	if total == 0 {
		return 0
	}
	failed := sumCounter(f, func(m *dto.Metric) bool {
		code := labelValue(m, "status_code")
		return code != "" && code[0] >= '4'
	})
	return failed / total
}

// histogramPercentile computes a percentile from aggregated histogram buckets
// using linear interpolation.
func histogramPercentile(f *dto.MetricFamily, q float64) float64 {
	var total uint64
	cumulative := make(map[float64]uint64)
	for _, m := range f.GetMetric() {
		h := m.GetHistogram()
		if h == nil {
			continue
		}
		total += h.GetSampleCount()
		for _, b := range h.GetBucket() {
			cumulative[b.GetUpperBound()] += b.GetCumulativeCount()
		}
	}
	if total == 0 {
		return 0
	}

	bounds := make([]float64, 0, len(cumulative))
	for ub := range cumulative {
		if !math.IsInf(ub, 1) {
			bounds = append(bounds, ub)
		}
	}
	if len(bounds) == 0 {
		return 0
	}
	sort.Float64s(bounds)

	rank := q * float64(total)
	var prevBound float64
	var prevCount uint64
	for _, ub := range bounds {
		count := cumulative[ub]
		if float64(count) >= rank {
			inBucket := count - prevCount
			if inBucket == 0 {
				return ub
			}
			return prevBound + (rank-float64(prevCount))/float64(inBucket)*(ub-prevBound)
		}
		prevBound, prevCount = ub, count
	}
	return bounds[len(bounds)-1]
}
