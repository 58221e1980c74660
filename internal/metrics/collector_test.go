package metrics

import (
	"fmt"
	"math"
	"testing"
	"time"
)

// fakeClock lets tests drive the collector's notion of "now".
type fakeClock struct {
	t time.Time
}

func (f *fakeClock) now() time.Time { return f.t }

func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func withClock(c *Collector, fc *fakeClock) *Collector {
	c.now = fc.now
	return c
}

func TestNewCollector_Defaults(t *testing.T) {
	tests := []struct {
		name          string
		cfg           *Config
		wantMax       int
		wantRetention float64
	}{
		{"nil config", nil, 1000, 24},
		{"zero max uses default", &Config{Enabled: true, MaxMetrics: 0, RetentionHours: 24}, 1000, 24},
		{"negative retention uses default", &Config{Enabled: true, MaxMetrics: 10, RetentionHours: -1}, 10, 24},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCollector(tt.cfg)
			if c.cfg.MaxMetrics != tt.wantMax {
				t.Errorf("MaxMetrics = %d, want %d", c.cfg.MaxMetrics, tt.wantMax)
			}
			if c.cfg.RetentionHours != tt.wantRetention {
				t.Errorf("RetentionHours = %v, want %v", c.cfg.RetentionHours, tt.wantRetention)
			}
		})
	}
}

func TestTimerPair(t *testing.T) {
	fc := newFakeClock()
	c := withClock(NewCollector(nil), fc)

	c.StartTimer("op-1", KindValidation, map[string]string{"source": "loader"})
	fc.advance(5 * time.Millisecond)
	got := c.EndTimer("op-1", nil)

	if got != 5 {
		t.Errorf("EndTimer duration = %v, want 5", got)
	}

	s := c.GetSummary()
	if s.Validation.Count != 1 {
		t.Errorf("validation count = %d, want 1", s.Validation.Count)
	}
	if s.Validation.AvgMs != 5 {
		t.Errorf("validation avg = %v, want 5", s.Validation.AvgMs)
	}
}

func TestEndTimer_UnknownIDReturnsZero(t *testing.T) {
	c := NewCollector(nil)
	if got := c.EndTimer("never-started", nil); got != 0 {
		t.Errorf("EndTimer on unknown id = %v, want 0", got)
	}
	if got := c.EndTimer("", nil); got != 0 {
		t.Errorf("EndTimer on empty id = %v, want 0", got)
	}
}

func TestEndTimer_CachedTag(t *testing.T) {
	fc := newFakeClock()
	c := withClock(NewCollector(nil), fc)

	c.StartTimer("cached-load", KindMindLoad, map[string]string{"cached": "true"})
	fc.advance(2 * time.Millisecond)
	c.EndTimer("cached-load", nil)

	c.StartTimer("cold-load", KindMindLoad, nil)
	fc.advance(10 * time.Millisecond)
	c.EndTimer("cold-load", map[string]string{"cached": "false"})

	if got := c.AvgMindLoadTime(true); got != 2 {
		t.Errorf("cached avg = %v, want 2", got)
	}
	if got := c.AvgMindLoadTime(false); got != 10 {
		t.Errorf("uncached avg = %v, want 10", got)
	}
}

func TestCacheHitRate(t *testing.T) {
	c := NewCollector(nil)

	if got := c.CacheHitRate(); got != 0 {
		t.Errorf("hit rate with no events = %v, want 0", got)
	}

	for i := 0; i < 50; i++ {
		c.RecordCacheHit(nil)
	}
	for i := 0; i < 10; i++ {
		c.RecordCacheMiss(nil)
	}

	got := c.CacheHitRate()
	if math.Abs(got-83.33) > 0.1 {
		t.Errorf("hit rate = %v, want 83.33 ±0.1", got)
	}
}

func TestFallbackRate_WindowFilter(t *testing.T) {
	fc := newFakeClock()
	c := withClock(NewCollector(nil), fc)

	c.RecordFallback("config_validation_failed", nil)
	fc.advance(2 * time.Hour)
	c.RecordFallback("heuristic_veto", nil)
	fc.advance(30 * time.Minute)
	c.RecordFallback("heuristic_veto", map[string]string{"heuristic": "coherence"})

	rate := c.GetFallbackRate(1)
	if rate.Total != 2 {
		t.Errorf("total in 1h window = %d, want 2", rate.Total)
	}
	if rate.ByReason["heuristic_veto"] != 2 {
		t.Errorf("heuristic_veto count = %d, want 2", rate.ByReason["heuristic_veto"])
	}
	if rate.ByReason["config_validation_failed"] != 0 {
		t.Errorf("config_validation_failed leaked into window: %d", rate.ByReason["config_validation_failed"])
	}
	if rate.WindowHours != 1 {
		t.Errorf("window hours = %v, want 1", rate.WindowHours)
	}
}

func TestRecordFallback_EmptyReasonDropped(t *testing.T) {
	c := NewCollector(nil)
	c.RecordFallback("", nil)
	if got := c.GetFallbackRate(1).Total; got != 0 {
		t.Errorf("empty reason recorded, total = %d, want 0", got)
	}
}

func TestBoundedMemory_FIFOEviction(t *testing.T) {
	fc := newFakeClock()
	c := withClock(NewCollector(&Config{Enabled: true, MaxMetrics: 5, RetentionHours: 24}), fc)

	for i := 0; i < 8; i++ {
		id := fmt.Sprintf("op-%d", i)
		c.StartTimer(id, KindValidation, nil)
		fc.advance(time.Millisecond)
		c.EndTimer(id, nil)
	}

	items := c.samples[KindValidation].items
	if len(items) != 5 {
		t.Fatalf("retained = %d, want exactly 5", len(items))
	}
	// Oldest 3 evicted; first retained sample is op-3.
	if items[0].OperationID != "op-3" {
		t.Errorf("oldest retained = %s, want op-3", items[0].OperationID)
	}
	if items[4].OperationID != "op-7" {
		t.Errorf("newest retained = %s, want op-7", items[4].OperationID)
	}
}

func TestRetentionSweep(t *testing.T) {
	fc := newFakeClock()
	c := withClock(NewCollector(&Config{Enabled: true, MaxMetrics: 100, RetentionHours: 24}), fc)

	c.StartTimer("stale", KindValidation, nil)
	fc.advance(time.Millisecond)
	c.EndTimer("stale", nil)

	fc.advance(25 * time.Hour)
	c.CleanupOldMetrics()

	s := c.GetSummary()
	if s.Validation.Count != 0 {
		t.Errorf("stale sample survived retention sweep: count = %d", s.Validation.Count)
	}

	// Idempotent: second sweep changes nothing.
	c.CleanupOldMetrics()
	if got := c.GetSummary().Validation.Count; got != 0 {
		t.Errorf("count after second sweep = %d, want 0", got)
	}
}

func TestRetentionSweep_OnInsert(t *testing.T) {
	fc := newFakeClock()
	c := withClock(NewCollector(&Config{Enabled: true, MaxMetrics: 100, RetentionHours: 1}), fc)

	c.RecordFallback("old_reason", nil)
	fc.advance(2 * time.Hour)
	c.RecordFallback("new_reason", nil)

	if got := c.fallback.len(); got != 1 {
		t.Errorf("fallback buffer len = %d, want 1 (old entry pruned on insert)", got)
	}
}

func TestRetentionSweep_OverlappingTimers(t *testing.T) {
	fc := newFakeClock()
	c := withClock(NewCollector(&Config{Enabled: true, MaxMetrics: 100, RetentionHours: 1}), fc)

	// A long-running timer ends after a fresh one, so its sample lands
	// behind the newer entry despite carrying the older start time.
	c.StartTimer("long", KindValidation, nil)
	fc.advance(2 * time.Hour)
	c.StartTimer("fresh", KindValidation, nil)
	fc.advance(time.Millisecond)
	c.EndTimer("fresh", nil)
	c.EndTimer("long", nil)

	c.CleanupOldMetrics()

	s := c.GetSummary()
	if s.Validation.Count != 1 {
		t.Errorf("validation count after sweep = %d, want 1 (the 2h-old sample must be gone)", s.Validation.Count)
	}
	items := c.samples[KindValidation].items
	if len(items) != 1 || items[0].OperationID != "fresh" {
		t.Errorf("retained samples = %+v, want only the fresh one", items)
	}
}

func TestPercentiles(t *testing.T) {
	fc := newFakeClock()
	c := withClock(NewCollector(nil), fc)

	// Ten validation samples with durations 1..10ms.
	for i := 1; i <= 10; i++ {
		id := fmt.Sprintf("v-%d", i)
		c.StartTimer(id, KindValidation, nil)
		fc.advance(time.Duration(i) * time.Millisecond)
		c.EndTimer(id, nil)
	}

	p95 := c.P95ValidationOverhead()
	p99 := c.P99ValidationOverhead()
	if p95 < 9 {
		t.Errorf("P95 = %v, want >= 9", p95)
	}
	if p99 < 9 {
		t.Errorf("P99 = %v, want >= 9", p99)
	}
	if p99 < p95 {
		t.Errorf("P99 (%v) < P95 (%v)", p99, p95)
	}
}

func TestPercentiles_DegradeGracefully(t *testing.T) {
	fc := newFakeClock()
	c := withClock(NewCollector(nil), fc)

	if got := c.P95ValidationOverhead(); got != 0 {
		t.Errorf("P95 with no samples = %v, want 0", got)
	}

	c.StartTimer("only", KindValidation, nil)
	fc.advance(7 * time.Millisecond)
	c.EndTimer("only", nil)

	if got := c.P95ValidationOverhead(); got != 7 {
		t.Errorf("P95 with one sample = %v, want 7", got)
	}
	if got := c.P99ValidationOverhead(); got != 7 {
		t.Errorf("P99 with one sample = %v, want 7", got)
	}
}

func TestDisabledMode_ZeroBaseline(t *testing.T) {
	c := NewCollector(&Config{Enabled: false})
	baseline := c.GetSummary()

	// Heavy call volume: everything must stay a no-op.
	for i := 0; i < 500; i++ {
		id := fmt.Sprintf("op-%d", i)
		c.StartTimer(id, KindMindLoad, nil)
		c.EndTimer(id, nil)
		c.RecordCacheHit(nil)
		c.RecordCacheMiss(nil)
		c.RecordFallback("reason", nil)
	}

	after := c.GetSummary()
	if after.MindLoading.Count != 0 || after.Cache.Hits != 0 || after.Fallbacks.Total != 0 {
		t.Errorf("disabled collector recorded data: %+v", after)
	}
	if after.Cache.HitRate != baseline.Cache.HitRate {
		t.Errorf("disabled hit rate drifted: %v", after.Cache.HitRate)
	}
	if got := c.CacheHitRate(); got != 0 {
		t.Errorf("disabled CacheHitRate = %v, want 0", got)
	}
	if got := c.EndTimer("op-1", nil); got != 0 {
		t.Errorf("disabled EndTimer = %v, want 0", got)
	}
}

func TestReset(t *testing.T) {
	fc := newFakeClock()
	c := withClock(NewCollector(nil), fc)

	c.StartTimer("op", KindValidation, nil)
	fc.advance(time.Millisecond)
	c.EndTimer("op", nil)
	c.RecordCacheHit(nil)
	c.RecordFallback("reason", nil)
	c.StartTimer("pending", KindMindLoad, nil)

	c.Reset()

	s := c.GetSummary()
	if s.Validation.Count != 0 || s.Cache.Hits != 0 || s.Fallbacks.Total != 0 {
		t.Errorf("summary after reset not zero: %+v", s)
	}
	if got := c.EndTimer("pending", nil); got != 0 {
		t.Errorf("pending timer survived reset: %v", got)
	}
}

func TestSummary_HeuristicExecution(t *testing.T) {
	fc := newFakeClock()
	c := withClock(NewCollector(nil), fc)

	for i := 0; i < 3; i++ {
		id := fmt.Sprintf("exec-%d", i)
		c.StartTimer(id, KindHeuristicExec, map[string]string{"heuristic": "coherence"})
		fc.advance(4 * time.Millisecond)
		c.EndTimer(id, nil)
	}

	s := c.GetSummary()
	if s.HeuristicExecution.Count != 3 {
		t.Errorf("exec count = %d, want 3", s.HeuristicExecution.Count)
	}
	if s.HeuristicExecution.AvgMs != 4 {
		t.Errorf("exec avg = %v, want 4", s.HeuristicExecution.AvgMs)
	}
	if s.HeuristicExecution.ByHeuristic["coherence"] != 3 {
		t.Errorf("by-heuristic count = %d, want 3", s.HeuristicExecution.ByHeuristic["coherence"])
	}
}

func TestExportJSON_Shape(t *testing.T) {
	fc := newFakeClock()
	c := withClock(NewCollector(nil), fc)

	c.StartTimer("op", KindValidation, nil)
	fc.advance(3 * time.Millisecond)
	c.EndTimer("op", nil)

	export := c.Snapshot()
	if export.ExportedAt == "" {
		t.Error("exported_at is empty")
	}
	if _, err := time.Parse(time.RFC3339, export.ExportedAt); err != nil {
		t.Errorf("exported_at not ISO-8601: %v", err)
	}
	if len(export.RawMetrics.Validation) != 1 {
		t.Errorf("raw validation samples = %d, want 1", len(export.RawMetrics.Validation))
	}

	data, err := c.ExportJSON()
	if err != nil {
		t.Fatalf("ExportJSON failed: %v", err)
	}
	if len(data) == 0 {
		t.Error("ExportJSON returned empty payload")
	}
}
