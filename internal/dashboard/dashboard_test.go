package dashboard

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hybridops/hybrid-ops/internal/alerts"
	"github.com/hybridops/hybrid-ops/internal/heuristics"
	"github.com/hybridops/hybrid-ops/internal/metrics"
)

func TestDefaultConfig_ThresholdsMatchAlertSystem(t *testing.T) {
	want := alerts.DefaultConfig().Thresholds
	if got := DefaultConfig().Thresholds; got != want {
		t.Errorf("dashboard thresholds = %+v, want the alert system's %+v", got, want)
	}
	// A zero-value Thresholds in the supplied config falls back the same way.
	d := New(metrics.NewCollector(nil), &Config{})
	if d.cfg.Thresholds != want {
		t.Errorf("fallback thresholds = %+v, want %+v", d.cfg.Thresholds, want)
	}
}

func newTestDashboard(collector *metrics.Collector) (*Dashboard, *bytes.Buffer) {
	out := &bytes.Buffer{}
	cfg := DefaultConfig()
	cfg.Out = out
	return New(collector, cfg), out
}

func TestRender_Sections(t *testing.T) {
	collector := metrics.NewCollector(nil)
	collector.RecordCacheHit(nil)
	collector.RecordFallback("heuristic_veto", nil)

	d, out := newTestDashboard(collector)
	d.Render()

	rendered := out.String()
	for _, section := range []string{
		"Monitoring Dashboard",
		"Mind Loading:",
		"Validation:",
		"Cache:",
		"Fallbacks (last hour):",
		"Heuristic Execution:",
		"Recommendations:",
	} {
		if !strings.Contains(rendered, section) {
			t.Errorf("render missing section %q", section)
		}
	}
	if !strings.Contains(rendered, "heuristic_veto") {
		t.Error("render missing per-reason fallback breakdown")
	}
}

func TestRender_EmptyCollector(t *testing.T) {
	d, out := newTestDashboard(metrics.NewCollector(nil))
	d.Render()

	rendered := out.String()
	if !strings.Contains(rendered, "No loads recorded") {
		t.Error("empty mind-loading section not reported")
	}
	if !strings.Contains(rendered, "All clear") {
		t.Error("empty collector should yield no recommendations")
	}
}

func TestRender_CompilerStats(t *testing.T) {
	collector := metrics.NewCollector(nil)
	compiler := heuristics.NewCompiler()
	compiler.Compile("coherence", nil)

	d, out := newTestDashboard(collector)
	d.WithCompiler(compiler)
	d.Render()

	if !strings.Contains(out.String(), "Compiler: 1 compiled") {
		t.Errorf("compiler stats missing from cache section:\n%s", out.String())
	}
}

func TestRecommendations(t *testing.T) {
	d, _ := newTestDashboard(metrics.NewCollector(nil))

	tests := []struct {
		name         string
		summary      metrics.Summary
		wantCount    int
		wantSeverity string
	}{
		{
			name:      "zero baseline yields nothing",
			summary:   metrics.Summary{},
			wantCount: 0,
		},
		{
			name: "low hit rate is critical",
			summary: metrics.Summary{
				Cache: metrics.CacheSummary{Hits: 2, Misses: 8, HitRate: 20},
			},
			wantCount:    1,
			wantSeverity: "critical",
		},
		{
			name: "middling hit rate is a warning",
			summary: metrics.Summary{
				Cache: metrics.CacheSummary{Hits: 6, Misses: 4, HitRate: 60},
			},
			wantCount:    1,
			wantSeverity: "warning",
		},
		{
			name: "fallback storm is critical",
			summary: metrics.Summary{
				Fallbacks: metrics.FallbackRate{Total: 60, ByReason: map[string]int{"x": 60}},
			},
			wantCount:    1,
			wantSeverity: "critical",
		},
		{
			name: "slow validation p99",
			summary: metrics.Summary{
				Validation: metrics.ValidationSummary{Count: 5, P99Ms: 250},
			},
			wantCount:    1,
			wantSeverity: "warning",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recs := d.Recommendations(tt.summary)
			if len(recs) != tt.wantCount {
				t.Fatalf("recommendations = %d, want %d: %+v", len(recs), tt.wantCount, recs)
			}
			if tt.wantCount > 0 && recs[0].Severity != tt.wantSeverity {
				t.Errorf("severity = %s, want %s", recs[0].Severity, tt.wantSeverity)
			}
		})
	}
}

func TestRecommendations_ConfigValidationFailure(t *testing.T) {
	d, _ := newTestDashboard(metrics.NewCollector(nil))

	s := metrics.Summary{
		Fallbacks: metrics.FallbackRate{
			Total:    2,
			ByReason: map[string]int{"config_validation_failed": 2},
		},
	}
	recs := d.Recommendations(s)
	found := false
	for _, rec := range recs {
		if strings.Contains(rec.Message, "config validate") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected config-validation recommendation, got %+v", recs)
	}
}

func TestExport(t *testing.T) {
	collector := metrics.NewCollector(nil)
	collector.RecordCacheHit(nil)
	d, _ := newTestDashboard(collector)

	// Intermediate directories must be created.
	path := filepath.Join(t.TempDir(), "nested", "deeper", "metrics.json")
	if err := d.Export(path); err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading export: %v", err)
	}

	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		t.Fatalf("export is not valid JSON: %v", err)
	}
	for _, key := range []string{"exported_at", "summary", "raw_metrics"} {
		if _, ok := payload[key]; !ok {
			t.Errorf("export missing top-level %q", key)
		}
	}
}

func TestWatch_StartStopIdempotent(t *testing.T) {
	collector := metrics.NewCollector(nil)
	out := &bytes.Buffer{}
	cfg := DefaultConfig()
	cfg.Out = out
	cfg.RefreshInterval = 10 * time.Millisecond
	d := New(collector, cfg)

	d.StopWatch() // before start: no-op

	d.StartWatch()
	if !d.Watching() {
		t.Fatal("watch should be active after StartWatch")
	}
	d.StartWatch() // already watching: no-op

	d.StopWatch()
	if d.Watching() {
		t.Error("watch should be inactive after StopWatch")
	}
	d.StopWatch() // twice: no-op

	if !strings.Contains(out.String(), "Monitoring Dashboard") {
		t.Error("watch mode never rendered")
	}
}
