package dashboard

import (
	"fmt"

	"github.com/hybridops/hybrid-ops/internal/metrics"
)

// Recommendation is a derived improvement suggestion.
type Recommendation struct {
	Message  string `json:"message"`
	Severity string `json:"severity"` // "info", "warning", or "critical"
}

// Recommendations derives zero or more suggestions from a summary. Pure
// function of its input: no I/O, independently testable from rendering.
func (d *Dashboard) Recommendations(s metrics.Summary) []Recommendation {
	var recs []Recommendation

	// Cache bands mirror the render colors.
	probes := s.Cache.Hits + s.Cache.Misses
	switch {
	case probes > 0 && s.Cache.HitRate < 50:
		recs = append(recs, Recommendation{
			Message:  fmt.Sprintf("cache hit rate is %.1f%%: heuristic configs are changing too often or the cache is being cleared in a loop", s.Cache.HitRate),
			Severity: "critical",
		})
	case probes > 0 && s.Cache.HitRate < 80:
		recs = append(recs, Recommendation{
			Message:  fmt.Sprintf("cache hit rate is %.1f%%: warm the compiler cache at startup to push it above 80%%", s.Cache.HitRate),
			Severity: "warning",
		})
	}

	// Uncached mind loads an order of magnitude slower than cached ones
	// suggest the cache is underused.
	ml := s.MindLoading
	if ml.UncachedCount > ml.CachedCount && ml.UncachedCount >= 10 {
		recs = append(recs, Recommendation{
			Message:  fmt.Sprintf("%d of %d mind loads bypassed the cache: enable caching for frequently loaded minds", ml.UncachedCount, ml.Count),
			Severity: "warning",
		})
	}

	if s.Validation.Count > 0 && s.Validation.P99Ms > 100 {
		recs = append(recs, Recommendation{
			Message:  fmt.Sprintf("validation p99 is %.1fms: profile the validator's rule table", s.Validation.P99Ms),
			Severity: "warning",
		})
	}

	fb := s.Fallbacks
	switch {
	case fb.Total > d.cfg.Thresholds.Critical:
		recs = append(recs, Recommendation{
			Message:  fmt.Sprintf("%d fallbacks in the last hour: collaborators are running degraded; treat as an incident", fb.Total),
			Severity: "critical",
		})
	case fb.Total > d.cfg.Thresholds.Info:
		recs = append(recs, Recommendation{
			Message:  fmt.Sprintf("%d fallbacks in the last hour: review the per-reason breakdown", fb.Total),
			Severity: "warning",
		})
	case fb.Total > 0:
		recs = append(recs, Recommendation{
			Message:  fmt.Sprintf("%d fallback(s) in the last hour: check the first occurrence in the logs", fb.Total),
			Severity: "info",
		})
	}

	if n := fb.ByReason["config_validation_failed"]; n > 0 {
		recs = append(recs, Recommendation{
			Message:  "config validation is failing: run `hybrid-ops config validate` and fix the reported errors",
			Severity: "warning",
		})
	}

	return recs
}
