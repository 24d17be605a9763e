package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func withTestRegistry(t *testing.T) *prometheus.Registry {
	t.Helper()
	origReg := prometheus.DefaultRegisterer
	origGather := prometheus.DefaultGatherer
	reg := prometheus.NewRegistry()
	prometheus.DefaultRegisterer = reg
	prometheus.DefaultGatherer = reg
	t.Cleanup(func() {
		prometheus.DefaultRegisterer = origReg
		prometheus.DefaultGatherer = origGather
	})
	return reg
}

func TestNoopMetrics(t *testing.T) {
	var m Noop
	m.IncPackEvent("cats", "loaded")
	m.SetPacksLoaded(2)
	m.IncCommand("list", "ok")
	m.ObserveCommandDuration("list", 0.1)
}

func TestPromMetrics(t *testing.T) {
	reg := withTestRegistry(t)
	m := NewProm("memestickers")
	m.IncPackEvent("cats", "loaded")
	m.SetPacksLoaded(3)
	m.IncCommand("install", "error")
	m.ObserveCommandDuration("install", 0.25)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if !hasMetric(families, "memestickers_pack_events_total", map[string]string{"pack": "cats", "state": "loaded"}) {
		t.Fatalf("expected pack_events metric")
	}
	if !hasMetric(families, "memestickers_packs_loaded", nil) {
		t.Fatalf("expected packs_loaded metric")
	}
	if !hasMetric(families, "memestickers_commands_total", map[string]string{"command": "install", "outcome": "error"}) {
		t.Fatalf("expected commands metric")
	}
	if !hasMetric(families, "memestickers_command_duration_seconds", map[string]string{"command": "install"}) {
		t.Fatalf("expected command_duration metric")
	}
	for _, fam := range families {
		if fam.GetName() == "memestickers_packs_loaded" {
			if got := fam.GetMetric()[0].GetGauge().GetValue(); got != 3 {
				t.Fatalf("expected gauge 3, got %v", got)
			}
		}
	}
}

func TestHandler(t *testing.T) {
	withTestRegistry(t)
	m := NewProm("memestickers")
	m.IncCommand("list", "ok")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if rec.Body.Len() == 0 {
		t.Fatalf("expected metrics output")
	}
}

func hasMetric(families []*dto.MetricFamily, name string, labels map[string]string) bool {
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		for _, metric := range fam.GetMetric() {
			if matchLabels(metric.GetLabel(), labels) {
				return true
			}
		}
	}
	return false
}

func matchLabels(pairs []*dto.LabelPair, labels map[string]string) bool {
	if len(labels) == 0 {
		return true
	}
	found := 0
	for _, pair := range pairs {
		if val, ok := labels[pair.GetName()]; ok && pair.GetValue() == val {
			found++
		}
	}
	return found == len(labels)
}
