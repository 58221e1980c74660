package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// ValidationResult reports every problem found in a candidate config.
// Violations are collected, not short-circuited, so a single validation pass
// surfaces all of them at once.
type ValidationResult struct {
	// Valid is true only when Errors is empty.
	Valid bool `json:"valid"`

	// Errors lists every violation found, in deterministic order.
	Errors []string `json:"errors"`

	// Config holds the parsed configuration when Valid is true, nil otherwise.
	// A rejected config is never partially accepted.
	Config *HeuristicsConfig `json:"-"`
}

// rawConfig mirrors the YAML shape with weights/thresholds left untyped so
// type violations can be reported per-field instead of failing the decode.
type rawConfig struct {
	Version    *string                 `yaml:"version"`
	Heuristics map[string]rawHeuristic `yaml:"heuristics"`
}

type rawHeuristic struct {
	Weights    map[string]any `yaml:"weights"`
	Thresholds map[string]any `yaml:"thresholds"`
}

// ValidateConfig checks a raw YAML document against the default rule table.
func ValidateConfig(raw []byte) *ValidationResult {
	return ValidateConfigWith(raw, DefaultRules())
}

// ValidateConfigWith checks a raw YAML document against the given rules.
// Checks run in order: structural (required fields), type (numeric weights
// and thresholds), range (non-negative weights), partition sum, threshold
// ordering. All violations are accumulated.
func ValidateConfigWith(raw []byte, rules *Rules) *ValidationResult {
	if rules == nil {
		rules = DefaultRules()
	}

	var rc rawConfig
	if err := yaml.Unmarshal(raw, &rc); err != nil {
		return &ValidationResult{
			Valid:  false,
			Errors: []string{fmt.Sprintf("invalid YAML: %v", err)},
		}
	}

	var errs []string

	if rc.Version == nil || *rc.Version == "" {
		errs = append(errs, "missing required field: version")
	}

	cfg := &HeuristicsConfig{
		Heuristics: make(map[string]HeuristicConfig, len(rc.Heuristics)),
	}
	if rc.Version != nil {
		cfg.Version = *rc.Version
	}

	for _, id := range sortedKeys(rc.Heuristics) {
		rh := rc.Heuristics[id]
		hc := HeuristicConfig{
			Weights:    make(map[string]float64, len(rh.Weights)),
			Thresholds: make(map[string]float64, len(rh.Thresholds)),
		}

		if rh.Weights == nil {
			errs = append(errs, fmt.Sprintf("heuristic %q: missing weights", id))
		}
		if rh.Thresholds == nil {
			errs = append(errs, fmt.Sprintf("heuristic %q: missing thresholds", id))
		}

		for _, name := range sortedKeys(rh.Weights) {
			val, ok := toFloat(rh.Weights[name])
			if !ok {
				errs = append(errs, fmt.Sprintf("heuristic %q: weight %q must be numeric, got %T", id, name, rh.Weights[name]))
				continue
			}
			if val < 0 {
				errs = append(errs, fmt.Sprintf("heuristic %q: weight %q must not be negative (got %v)", id, name, val))
				continue
			}
			hc.Weights[name] = val
		}

		for _, name := range sortedKeys(rh.Thresholds) {
			val, ok := toFloat(rh.Thresholds[name])
			if !ok {
				errs = append(errs, fmt.Sprintf("heuristic %q: threshold %q must be numeric, got %T", id, name, rh.Thresholds[name]))
				continue
			}
			hc.Thresholds[name] = val
		}

		cfg.Heuristics[id] = hc
	}

	errs = append(errs, checkInvariants(cfg, rules)...)

	if len(errs) > 0 {
		return &ValidationResult{Valid: false, Errors: errs}
	}
	return &ValidationResult{Valid: true, Config: cfg}
}

// checkInvariants runs the rule-table checks (partition sums, threshold
// ordering) against an already-typed config. Also used to re-validate after
// environment overrides are applied.
func checkInvariants(cfg *HeuristicsConfig, rules *Rules) []string {
	tolerance := rules.SumTolerance
	if tolerance <= 0 {
		tolerance = 0.001
	}

	var errs []string
	for _, id := range sortedKeys(cfg.Heuristics) {
		hc := cfg.Heuristics[id]

		for _, name := range sortedKeys(hc.Weights) {
			if hc.Weights[name] < 0 {
				errs = append(errs, fmt.Sprintf("heuristic %q: weight %q must not be negative (got %v)", id, name, hc.Weights[name]))
			}
		}

		if rules.WeightSumOne[id] && len(hc.Weights) > 0 {
			sum := weightSum(hc.Weights)
			if sum < 1.0-tolerance || sum > 1.0+tolerance {
				errs = append(errs, formatSumError(id, sum))
			}
		}

		order, ok := rules.ThresholdOrder[id]
		if !ok {
			continue
		}
		// Compare consecutive present thresholds; missing names fall back
		// to compiler defaults and are not structural errors.
		present := make([]string, 0, len(order))
		for _, name := range order {
			if _, ok := hc.Thresholds[name]; ok {
				present = append(present, name)
			}
		}
		for i := 1; i < len(present); i++ {
			lo, hi := present[i-1], present[i]
			if hc.Thresholds[lo] >= hc.Thresholds[hi] {
				errs = append(errs, fmt.Sprintf("heuristic %q: threshold %q (%v) must be less than %q (%v)",
					id, lo, hc.Thresholds[lo], hi, hc.Thresholds[hi]))
			}
		}
	}
	return errs
}

// toFloat accepts the numeric types the YAML decoder can produce.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}
