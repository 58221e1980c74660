package alerts

import "fmt"

// Recommendation supplies reason-specific guidance for an alert. Unknown
// reasons get a generic investigation prompt; the system never fails to
// produce actionable text.
func (s *System) Recommendation(reason string, count int) string {
	systematic := count > s.cfg.Thresholds.Warning

	switch reason {
	case "config_validation_failed":
		if systematic {
			return fmt.Sprintf("systematic issue: %d validation failures in an hour: the heuristics config on disk is likely broken; run `hybrid-ops config validate` and fix every reported error", count)
		}
		return "run `hybrid-ops config validate` against the active heuristics file and fix the reported errors"
	case "config_not_loaded":
		return "no heuristics config is installed; built-in defaults are active: check the config path and file permissions"
	case "heuristic_veto":
		if systematic {
			return fmt.Sprintf("systematic issue: %d vetoes in an hour: review the coherence thresholds and the upstream data quality rather than individual operations", count)
		}
		return "inspect the vetoed operations' inputs; a veto means the coherence score fell below the blocking threshold"
	case "heuristic_compile_failed":
		return "the compiler fell back to built-in defaults; diff the supplied heuristic config against the expected shape"
	case "mind_load_failed":
		return "an agent mind/context failed to load and a default persona was used; check the mind source and its parser"
	case "cache_unavailable":
		return "cache probes are failing open; verify the compiled-heuristic cache was not cleared in a loop"
	default:
		if systematic {
			return fmt.Sprintf("systematic issue: %d occurrences in an hour: investigate the root cause, check the logs, and consider adding a dedicated runbook for %q", count, reason)
		}
		return "investigate the root cause and check the logs for the first occurrence"
	}
}
