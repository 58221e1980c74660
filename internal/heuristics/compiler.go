package heuristics

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/hybridops/hybrid-ops/internal/config"
	"github.com/hybridops/hybrid-ops/internal/metrics"
)

// CompiledHeuristic is a cache entry: the executable function plus the
// fingerprint of the configuration it was synthesized from. Entries live
// until an explicit ClearCache or process exit; there is no partial eviction.
type CompiledHeuristic struct {
	ID               string
	Fn               ScoringFunc
	CompiledAt       time.Time
	SourceConfigHash string
}

// Stats exposes compiler counters for the dashboard and tests.
type Stats struct {
	// CompiledCount is the lifetime number of compilations; it survives
	// ClearCache so operators can see churn across clears.
	CompiledCount int64 `json:"compiled_count"`
	// CacheHits and CacheMisses reset to zero on ClearCache.
	CacheHits   int64 `json:"cache_hits"`
	CacheMisses int64 `json:"cache_misses"`
}

// CacheClear records the most recent explicit cache invalidation.
type CacheClear struct {
	Reason string    `json:"reason"`
	At     time.Time `json:"at"`
}

// Compiler synthesizes and caches scoring functions keyed by heuristic id.
// The cache map is private; it is mutated only via Compile and ClearCache.
// All methods are safe for concurrent use, and concurrent first compiles of
// the same id+config are deduplicated.
type Compiler struct {
	mu    sync.RWMutex
	cache map[string]*CompiledHeuristic
	stats Stats
	last  *CacheClear

	group singleflight.Group

	// collector, when set, receives cache hit/miss events for compile
	// probes and per-execution timings tagged with the heuristic id.
	collector *metrics.Collector

	now func() time.Time
}

// NewCompiler creates an empty compiler.
func NewCompiler() *Compiler {
	return &Compiler{
		cache: make(map[string]*CompiledHeuristic),
		now:   time.Now,
	}
}

// WithMetrics attaches a metrics collector and returns the compiler.
func (c *Compiler) WithMetrics(m *metrics.Collector) *Compiler {
	c.collector = m
	return c
}

// Compile returns the scoring function for a heuristic id under the given
// configuration. A nil or empty config falls back to built-in defaults, so
// callers can probe cheaply without any config loaded.
//
// Referential stability: calling Compile twice with the same id and an
// unchanged configuration returns the identical function instance, and the
// hit counter increments exactly once per repeat call. A changed
// configuration recompiles and replaces the cached entry.
func (c *Compiler) Compile(id string, cfg *config.HeuristicConfig) ScoringFunc {
	eff := effectiveConfig(id, cfg)
	hash := fingerprint(id, eff)

	c.mu.RLock()
	entry, ok := c.cache[id]
	c.mu.RUnlock()

	if ok && entry.SourceConfigHash == hash {
		c.mu.Lock()
		c.stats.CacheHits++
		c.mu.Unlock()
		if c.collector != nil {
			c.collector.RecordCacheHit(map[string]string{"heuristic": id})
		}
		return entry.Fn
	}

	// Deduplicate concurrent first compiles of the same id+config.
	v, _, _ := c.group.Do(id+"\x00"+hash, func() (any, error) {
		c.mu.Lock()
		if entry, ok := c.cache[id]; ok && entry.SourceConfigHash == hash {
			c.stats.CacheHits++
			c.mu.Unlock()
			if c.collector != nil {
				c.collector.RecordCacheHit(map[string]string{"heuristic": id})
			}
			return entry.Fn, nil
		}
		c.mu.Unlock()

		fn := c.synthesize(id, eff)

		c.mu.Lock()
		c.cache[id] = &CompiledHeuristic{
			ID:               id,
			Fn:               fn,
			CompiledAt:       c.now(),
			SourceConfigHash: hash,
		}
		c.stats.CompiledCount++
		c.stats.CacheMisses++
		c.mu.Unlock()

		if c.collector != nil {
			c.collector.RecordCacheMiss(map[string]string{"heuristic": id})
		}
		return fn, nil
	})
	return v.(ScoringFunc)
}

// synthesize builds the executable scoring function: weighted sum of
// normalized inputs, classified by the id-specific threshold rule. When a
// collector is attached, each invocation records a heuristic_exec timing.
func (c *Compiler) synthesize(id string, eff config.HeuristicConfig) ScoringFunc {
	classify, ok := classifiers[id]
	if !ok {
		classify = classifyGeneric
	}

	weights := eff.Weights
	thresholds := eff.Thresholds
	collector := c.collector

	return func(inputs map[string]float64) Result {
		if collector == nil {
			return classify(id, thresholds, weightedScore(weights, inputs))
		}
		opID := "heuristic-" + uuid.NewString()
		collector.StartTimer(opID, metrics.KindHeuristicExec, map[string]string{"heuristic": id})
		result := classify(id, thresholds, weightedScore(weights, inputs))
		collector.EndTimer(opID, nil)
		return result
	}
}

// ClearCache drops every compiled entry and resets the hit/miss counters to
// zero, recording the reason for observability. CompiledCount is lifetime
// and is not reset.
func (c *Compiler) ClearCache(reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cache = make(map[string]*CompiledHeuristic)
	c.stats.CacheHits = 0
	c.stats.CacheMisses = 0
	c.last = &CacheClear{Reason: reason, At: c.now()}
}

// Stats returns the current counters.
func (c *Compiler) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stats
}

// LastClear returns the most recent cache invalidation, or nil if the cache
// has never been cleared.
func (c *Compiler) LastClear() *CacheClear {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.last == nil {
		return nil
	}
	cc := *c.last
	return &cc
}

// CachedIDs returns the heuristic ids currently cached, sorted.
func (c *Compiler) CachedIDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ids := make([]string, 0, len(c.cache))
	for id := range c.cache {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// fingerprint hashes a heuristic's effective configuration in canonical
// (sorted) order so logically equal configs always collide.
func fingerprint(id string, cfg config.HeuristicConfig) string {
	var b strings.Builder
	b.WriteString(id)
	b.WriteString("|w:")
	writeSorted(&b, cfg.Weights)
	b.WriteString("|t:")
	writeSorted(&b, cfg.Thresholds)

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

func writeSorted(b *strings.Builder, m map[string]float64) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(b, "%s=%g;", k, m[k])
	}
}
