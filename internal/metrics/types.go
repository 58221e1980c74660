package metrics

import "time"

// Kind identifies the category of a timed operation.
type Kind string

const (
	// KindMindLoad covers agent mind/context load operations.
	KindMindLoad Kind = "mind_load"
	// KindValidation covers config/data validation passes.
	KindValidation Kind = "validation"
	// KindHeuristicExec covers compiled heuristic executions.
	KindHeuristicExec Kind = "heuristic_exec"
)

// kinds lists every sample category in deterministic order.
var kinds = []Kind{KindMindLoad, KindValidation, KindHeuristicExec}

// TimedSample is one completed timed operation. Samples are created by
// StartTimer, finalized by EndTimer, and immutable afterwards. They are owned
// exclusively by the collector's per-kind buffer.
type TimedSample struct {
	// OperationID is the caller-supplied pairing key for Start/EndTimer.
	OperationID string `json:"operation_id"`
	// Kind is the operation category.
	Kind Kind `json:"kind"`
	// StartedAt is when StartTimer was called.
	StartedAt time.Time `json:"started_at"`
	// DurationMs is the elapsed time in milliseconds.
	DurationMs float64 `json:"duration_ms"`
	// Tags carries caller-supplied context (merged from start and end).
	Tags map[string]string `json:"tags,omitempty"`
	// Cached marks operations served from a cache ("cached" tag = "true").
	Cached bool `json:"cached"`
}

// CacheEvent records a single cache probe. Append-only, never mutated.
type CacheEvent struct {
	Timestamp time.Time         `json:"timestamp"`
	Hit       bool              `json:"hit"`
	Tags      map[string]string `json:"tags,omitempty"`
}

// FallbackEvent records a collaborator taking a degraded/default path.
// Reason is an open string keyspace: new fallback causes need no schema
// change. Append-only, never mutated.
type FallbackEvent struct {
	Timestamp time.Time         `json:"timestamp"`
	Reason    string            `json:"reason"`
	Tags      map[string]string `json:"tags,omitempty"`
}

// FallbackRate summarizes fallback events inside a trailing time window.
type FallbackRate struct {
	// Total is the number of fallback events in the window.
	Total int `json:"total"`
	// ByReason breaks the total down per reason string.
	ByReason map[string]int `json:"by_reason"`
	// WindowHours is the window the counts were computed over.
	WindowHours float64 `json:"window_hours"`
}

// MindLoadingSummary aggregates mind/context load samples.
type MindLoadingSummary struct {
	Count         int     `json:"count"`
	CachedCount   int     `json:"cached_count"`
	UncachedCount int     `json:"uncached_count"`
	AvgCachedMs   float64 `json:"avg_cached_ms"`
	AvgUncachedMs float64 `json:"avg_uncached_ms"`
}

// ValidationSummary aggregates validation-pass samples.
type ValidationSummary struct {
	Count int     `json:"count"`
	AvgMs float64 `json:"avg_ms"`
	P95Ms float64 `json:"p95_ms"`
	P99Ms float64 `json:"p99_ms"`
}

// CacheSummary aggregates cache probe events.
type CacheSummary struct {
	Hits   int64   `json:"hits"`
	Misses int64   `json:"misses"`
	// HitRate is a percentage in [0,100]; 0 when no probes were recorded.
	HitRate float64 `json:"hit_rate"`
}

// HeuristicExecSummary aggregates compiled-heuristic executions.
type HeuristicExecSummary struct {
	Count int     `json:"count"`
	AvgMs float64 `json:"avg_ms"`
	// ByHeuristic counts executions per heuristic id (from the "heuristic"
	// tag) when collaborators supply it.
	ByHeuristic map[string]int `json:"by_heuristic,omitempty"`
}

// Summary is the collector's single read-only snapshot. It is the sole input
// to the dashboard and the fallback alert system, which makes its shape the
// effective public contract of the collector.
type Summary struct {
	MindLoading        MindLoadingSummary   `json:"mind_loading"`
	Validation         ValidationSummary    `json:"validation"`
	Cache              CacheSummary         `json:"cache"`
	Fallbacks          FallbackRate         `json:"fallbacks"`
	HeuristicExecution HeuristicExecSummary `json:"heuristic_execution"`
}
