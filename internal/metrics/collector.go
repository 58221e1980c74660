// Package metrics implements the bounded-memory metrics collector at the
// heart of the hybrid-ops self-monitoring runtime. Collaborators record
// timed operations, cache probes, and fallback events; the dashboard and the
// fallback alert system read aggregate summaries.
//
// Recording calls are fire-and-forget: they never return errors and degrade
// to documented defaults on misuse (EndTimer on an unknown id returns 0).
// Memory is bounded two ways: a fixed-capacity FIFO ring per sample kind,
// plus a time-based retention sweep run opportunistically on insert.
package metrics

import (
	"math"
	"sort"
	"sync"
	"time"
)

// Config holds collector construction options.
type Config struct {
	// Enabled controls whether anything is recorded at all. When false,
	// every recording call is a no-op and every query returns the zero
	// baseline. Default: true
	Enabled bool

	// MaxMetrics is the per-kind ring buffer capacity. Default: 1000
	MaxMetrics int

	// RetentionHours is how long samples are retained regardless of
	// buffer occupancy. Default: 24
	RetentionHours float64
}

// DefaultConfig returns the default collector configuration.
func DefaultConfig() *Config {
	return &Config{
		Enabled:        true,
		MaxMetrics:     1000,
		RetentionHours: 24,
	}
}

// pendingTimer tracks a StartTimer call awaiting its EndTimer.
type pendingTimer struct {
	kind      Kind
	startedAt time.Time
	tags      map[string]string
}

// Collector records and aggregates the runtime's self-monitoring data.
// All methods are safe for concurrent use. Internal buffers are mutated only
// through the public methods; nothing external reaches into buffer state.
type Collector struct {
	mu  sync.RWMutex
	cfg Config

	samples  map[Kind]*ring[TimedSample]
	cacheLog *ring[CacheEvent]
	fallback *ring[FallbackEvent]
	pending  map[string]pendingTimer

	cacheHits   int64
	cacheMisses int64

	// now is swappable for tests.
	now func() time.Time
}

// NewCollector creates a collector. A nil config uses DefaultConfig.
func NewCollector(cfg *Config) *Collector {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.MaxMetrics <= 0 {
		cfg.MaxMetrics = 1000
	}
	if cfg.RetentionHours <= 0 {
		cfg.RetentionHours = 24
	}

	c := &Collector{
		cfg:     *cfg,
		pending: make(map[string]pendingTimer),
		now:     time.Now,
	}
	c.initBuffers()
	return c
}

func (c *Collector) initBuffers() {
	sampleAt := func(s TimedSample) time.Time { return s.StartedAt }
	c.samples = make(map[Kind]*ring[TimedSample], len(kinds))
	for _, k := range kinds {
		c.samples[k] = newRing(c.cfg.MaxMetrics, sampleAt)
	}
	c.cacheLog = newRing(c.cfg.MaxMetrics, func(e CacheEvent) time.Time { return e.Timestamp })
	c.fallback = newRing(c.cfg.MaxMetrics, func(e FallbackEvent) time.Time { return e.Timestamp })
}

// Enabled reports whether the collector records anything.
func (c *Collector) Enabled() bool { return c.cfg.Enabled }

// StartTimer begins timing an operation. The id pairs it with a later
// EndTimer call. Starting an id that is already pending replaces it.
func (c *Collector) StartTimer(id string, kind Kind, tags map[string]string) {
	if !c.cfg.Enabled || id == "" {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending[id] = pendingTimer{
		kind:      kind,
		startedAt: c.now(),
		tags:      copyTags(tags),
	}
}

// EndTimer finalizes a timed operation and returns its duration in
// milliseconds. An unknown id returns 0; mismatched collaborator calls are a
// degraded default, never a panic. End tags are merged over start tags, and
// a "cached" tag of "true" marks the sample as cache-served.
func (c *Collector) EndTimer(id string, tags map[string]string) float64 {
	if !c.cfg.Enabled || id == "" {
		return 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.pending[id]
	if !ok {
		return 0
	}
	delete(c.pending, id)

	now := c.now()
	merged := p.tags
	if len(tags) > 0 {
		if merged == nil {
			merged = make(map[string]string, len(tags))
		}
		for k, v := range tags {
			merged[k] = v
		}
	}

	sample := TimedSample{
		OperationID: id,
		Kind:        p.kind,
		StartedAt:   p.startedAt,
		DurationMs:  float64(now.Sub(p.startedAt)) / float64(time.Millisecond),
		Tags:        merged,
		Cached:      merged["cached"] == "true",
	}

	buf, ok := c.samples[p.kind]
	if !ok {
		// Unknown kind still gets retained under its own buffer so the
		// sample is not silently lost.
		buf = newRing(c.cfg.MaxMetrics, func(s TimedSample) time.Time { return s.StartedAt })
		c.samples[p.kind] = buf
	}
	buf.append(sample)
	c.cleanupLocked(now)

	return sample.DurationMs
}

// RecordCacheHit records a successful cache probe.
func (c *Collector) RecordCacheHit(tags map[string]string) {
	c.recordCacheEvent(true, tags)
}

// RecordCacheMiss records a failed cache probe.
func (c *Collector) RecordCacheMiss(tags map[string]string) {
	c.recordCacheEvent(false, tags)
}

func (c *Collector) recordCacheEvent(hit bool, tags map[string]string) {
	if !c.cfg.Enabled {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.cacheLog.append(CacheEvent{Timestamp: now, Hit: hit, Tags: copyTags(tags)})
	if hit {
		c.cacheHits++
	} else {
		c.cacheMisses++
	}
	c.cleanupLocked(now)
}

// RecordFallback records a collaborator taking a degraded/default path.
// An empty reason is dropped at the boundary.
func (c *Collector) RecordFallback(reason string, tags map[string]string) {
	if !c.cfg.Enabled || reason == "" {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.fallback.append(FallbackEvent{Timestamp: now, Reason: reason, Tags: copyTags(tags)})
	c.cleanupLocked(now)
}

// CacheHitRate returns the hit percentage over all recorded probes,
// 0 when none have been recorded.
func (c *Collector) CacheHitRate() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cacheHitRateLocked()
}

func (c *Collector) cacheHitRateLocked() float64 {
	total := c.cacheHits + c.cacheMisses
	if total == 0 {
		return 0
	}
	return float64(c.cacheHits) / float64(total) * 100
}

// GetFallbackRate counts fallback events inside the trailing window,
// filtering strictly by elapsed time from now.
func (c *Collector) GetFallbackRate(windowHours float64) FallbackRate {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.fallbackRateLocked(windowHours)
}

func (c *Collector) fallbackRateLocked(windowHours float64) FallbackRate {
	rate := FallbackRate{
		ByReason:    make(map[string]int),
		WindowHours: windowHours,
	}
	if !c.cfg.Enabled {
		return rate
	}

	cutoff := c.now().Add(-time.Duration(windowHours * float64(time.Hour)))
	for _, e := range c.fallback.items {
		if e.Timestamp.After(cutoff) {
			rate.Total++
			rate.ByReason[e.Reason]++
		}
	}
	return rate
}

// AvgMindLoadTime returns the mean mind-load duration in milliseconds for
// cache-served or uncached loads respectively, 0 when no samples match.
func (c *Collector) AvgMindLoadTime(cached bool) float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var sum float64
	var n int
	for _, s := range c.samples[KindMindLoad].items {
		if s.Cached == cached {
			sum += s.DurationMs
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// AvgValidationOverhead returns the mean validation duration in milliseconds.
func (c *Collector) AvgValidationOverhead() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return mean(c.validationDurationsLocked())
}

// P95ValidationOverhead returns the 95th percentile validation duration.
func (c *Collector) P95ValidationOverhead() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return percentile(c.validationDurationsLocked(), 0.95)
}

// P99ValidationOverhead returns the 99th percentile validation duration.
func (c *Collector) P99ValidationOverhead() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return percentile(c.validationDurationsLocked(), 0.99)
}

func (c *Collector) validationDurationsLocked() []float64 {
	items := c.samples[KindValidation].items
	out := make([]float64, len(items))
	for i, s := range items {
		out[i] = s.DurationMs
	}
	return out
}

// CleanupOldMetrics sweeps every buffer, dropping entries older than the
// retention period. Runs opportunistically on insert as well; idempotent.
func (c *Collector) CleanupOldMetrics() {
	if !c.cfg.Enabled {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cleanupLocked(c.now())
}

func (c *Collector) cleanupLocked(now time.Time) {
	cutoff := now.Add(-time.Duration(c.cfg.RetentionHours * float64(time.Hour)))
	for _, buf := range c.samples {
		buf.pruneBefore(cutoff)
	}
	c.cacheLog.pruneBefore(cutoff)
	c.fallback.pruneBefore(cutoff)
}

// GetSummary returns a single consistent snapshot of every aggregate.
// A disabled collector always returns the zero baseline.
func (c *Collector) GetSummary() Summary {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Summary{
		Fallbacks:          FallbackRate{ByReason: make(map[string]int), WindowHours: 1},
		HeuristicExecution: HeuristicExecSummary{ByHeuristic: make(map[string]int)},
	}
	if !c.cfg.Enabled {
		return s
	}

	// Mind loading
	var cachedSum, uncachedSum float64
	ml := &s.MindLoading
	for _, sample := range c.samples[KindMindLoad].items {
		ml.Count++
		if sample.Cached {
			ml.CachedCount++
			cachedSum += sample.DurationMs
		} else {
			ml.UncachedCount++
			uncachedSum += sample.DurationMs
		}
	}
	if ml.CachedCount > 0 {
		ml.AvgCachedMs = cachedSum / float64(ml.CachedCount)
	}
	if ml.UncachedCount > 0 {
		ml.AvgUncachedMs = uncachedSum / float64(ml.UncachedCount)
	}

	// Validation
	durations := c.validationDurationsLocked()
	s.Validation = ValidationSummary{
		Count: len(durations),
		AvgMs: mean(durations),
		P95Ms: percentile(durations, 0.95),
		P99Ms: percentile(durations, 0.99),
	}

	// Cache
	s.Cache = CacheSummary{
		Hits:    c.cacheHits,
		Misses:  c.cacheMisses,
		HitRate: c.cacheHitRateLocked(),
	}

	// Fallbacks, trailing hour
	s.Fallbacks = c.fallbackRateLocked(1)

	// Heuristic execution
	var execSum float64
	he := &s.HeuristicExecution
	for _, sample := range c.samples[KindHeuristicExec].items {
		he.Count++
		execSum += sample.DurationMs
		if id := sample.Tags["heuristic"]; id != "" {
			he.ByHeuristic[id]++
		}
	}
	if he.Count > 0 {
		he.AvgMs = execSum / float64(he.Count)
	}

	return s
}

// Reset clears all buffers, pending timers, and counters.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, buf := range c.samples {
		buf.clear()
	}
	c.cacheLog.clear()
	c.fallback.clear()
	c.pending = make(map[string]pendingTimer)
	c.cacheHits = 0
	c.cacheMisses = 0
}

// mean returns the arithmetic mean, 0 for an empty slice.
func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// percentile sorts a copy of the values and indexes at ceil(p*n)-1.
// Zero samples yield 0; a single sample yields that value. Never NaN.
func percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	idx := int(math.Ceil(p*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func copyTags(tags map[string]string) map[string]string {
	if len(tags) == 0 {
		return nil
	}
	out := make(map[string]string, len(tags))
	for k, v := range tags {
		out[k] = v
	}
	return out
}
