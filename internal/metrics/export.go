package metrics

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Export is the serialized form of a collector snapshot.
type Export struct {
	// ExportID uniquely identifies this export.
	ExportID string `json:"export_id"`
	// ExportedAt is the export time in ISO-8601.
	ExportedAt string `json:"exported_at"`
	// Summary is the aggregate snapshot.
	Summary Summary `json:"summary"`
	// RawMetrics holds the retained raw samples and events.
	RawMetrics RawMetrics `json:"raw_metrics"`
}

// RawMetrics groups the retained raw data by category.
type RawMetrics struct {
	MindLoad       []TimedSample   `json:"mind_load"`
	Validation     []TimedSample   `json:"validation"`
	HeuristicExec  []TimedSample   `json:"heuristic_exec"`
	CacheEvents    []CacheEvent    `json:"cache_events"`
	FallbackEvents []FallbackEvent `json:"fallback_events"`
}

// Snapshot captures the export structure without serializing it.
func (c *Collector) Snapshot() Export {
	summary := c.GetSummary()

	c.mu.RLock()
	raw := RawMetrics{
		MindLoad:       c.samples[KindMindLoad].snapshot(),
		Validation:     c.samples[KindValidation].snapshot(),
		HeuristicExec:  c.samples[KindHeuristicExec].snapshot(),
		CacheEvents:    c.cacheLog.snapshot(),
		FallbackEvents: c.fallback.snapshot(),
	}
	now := c.now()
	c.mu.RUnlock()

	return Export{
		ExportID:   uuid.NewString(),
		ExportedAt: now.UTC().Format(time.RFC3339),
		Summary:    summary,
		RawMetrics: raw,
	}
}

// ExportJSON serializes the current snapshot as indented JSON with top-level
// exported_at, summary, and raw_metrics fields.
func (c *Collector) ExportJSON() ([]byte, error) {
	return json.MarshalIndent(c.Snapshot(), "", "  ")
}
