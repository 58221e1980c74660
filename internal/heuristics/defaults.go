package heuristics

import "github.com/hybridops/hybrid-ops/internal/config"

// builtinDefaults supplies per-heuristic fallback configurations so callers
// can probe cheaply without any loaded config. An empty or partially missing
// supplied config falls back here rather than failing.
var builtinDefaults = map[string]config.HeuristicConfig{
	"coherence": {
		Weights: map[string]float64{
			"structural": 0.4,
			"temporal":   0.35,
			"semantic":   0.25,
		},
		Thresholds: map[string]float64{
			"veto":    0.3,
			"review":  0.6,
			"approve": 0.8,
		},
	},
	"automation_readiness": {
		Weights: map[string]float64{
			"volume":      0.3,
			"stability":   0.4,
			"error_rate":  0.2,
			"human_hours": 0.1,
		},
		Thresholds: map[string]float64{
			"review":        0.5,
			"tipping_point": 0.75,
		},
	},
	"backcast_confidence": {
		Weights: map[string]float64{
			"horizon":   0.3,
			"precedent": 0.4,
			"signal":    0.3,
		},
		Thresholds: map[string]float64{
			"plausible": 0.5,
			"confident": 0.75,
		},
	},
}

// genericDefault backs unknown heuristic ids: a single equal-weight input
// with a midpoint review threshold.
var genericDefault = config.HeuristicConfig{
	Weights:    map[string]float64{"signal": 1.0},
	Thresholds: map[string]float64{"review": 0.5},
}

// effectiveConfig merges the supplied config over the built-in defaults for
// the given id. Nil or empty sections fall back wholesale to defaults.
func effectiveConfig(id string, cfg *config.HeuristicConfig) config.HeuristicConfig {
	base, ok := builtinDefaults[id]
	if !ok {
		base = genericDefault
	}

	out := config.HeuristicConfig{Weights: base.Weights, Thresholds: base.Thresholds}
	if cfg != nil && len(cfg.Weights) > 0 {
		out.Weights = cfg.Weights
	}
	if cfg != nil && len(cfg.Thresholds) > 0 {
		out.Thresholds = cfg.Thresholds
	}
	return out
}
