package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func findMetric(t *testing.T, reg *prometheus.Registry, name string) *dto.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() == name {
			return mf
		}
	}
	t.Fatalf("%s metric not found", name)
	return nil
}

func labelValue(m *dto.Metric, name string) string {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}

func TestRecordAnalysis_CountsBySource(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordAnalysis("real")
	c.RecordAnalysis("simulated")
	c.RecordAnalysis("simulated")

	mf := findMetric(t, reg, "profilescope_analyses_total")
	got := map[string]float64{}
	for _, m := range mf.GetMetric() {
		got[labelValue(m, "source")] = m.GetCounter().GetValue()
	}
	if got["real"] != 1 || got["simulated"] != 2 {
		t.Errorf("analyses_total = %v, want real=1 simulated=2", got)
	}
}

func TestRecordFetchFailure_CountsByReason(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordFetchFailure("transport")

	mf := findMetric(t, reg, "profilescope_profile_fetch_fail_total")
	if len(mf.GetMetric()) != 1 {
		t.Fatalf("expected 1 metric, got %d", len(mf.GetMetric()))
	}
	if v := labelValue(mf.GetMetric()[0], "reason"); v != "transport" {
		t.Errorf("reason = %q, want transport", v)
	}
}

func TestRecordHTTPStatus_LabelsByCode(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordHTTPStatus(429)

	mf := findMetric(t, reg, "profilescope_profile_http_status_total")
	if v := labelValue(mf.GetMetric()[0], "status_code"); v != "429" {
		t.Errorf("status_code = %q, want 429", v)
	}
}

func TestRecordFetchLatency_Observes(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordFetchLatency(150 * time.Millisecond)

	mf := findMetric(t, reg, "profilescope_profile_fetch_latency_seconds")
	if n := mf.GetMetric()[0].GetHistogram().GetSampleCount(); n != 1 {
		t.Errorf("sample count = %d, want 1", n)
	}
}

func TestHandler_ServesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordLinkLookup("suspicious")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	Handler(reg).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	body, _ := io.ReadAll(w.Body)
	if !strings.Contains(string(body), `profilescope_link_lookups_total{result="suspicious"} 1`) {
		t.Errorf("metrics body does not contain link lookup counter:\n%s", body)
	}
}
