// Package config loads, validates, and hot-reloads the declarative
// heuristics configuration that drives the hybrid-ops decision runtime.
//
// The configuration is a YAML file of per-heuristic weights and thresholds.
// A Loader owns the active snapshot and replaces it atomically on reload, so
// concurrent readers never observe a partially-updated config. Individual
// leaf values can be overridden through environment variables of the form
// HEURISTIC_<ID>_WEIGHT_<NAME> and HEURISTIC_<ID>_THRESHOLD_<NAME>.
package config

import (
	"fmt"
	"sort"
)

// HeuristicConfig holds the tunable parameters for a single heuristic.
type HeuristicConfig struct {
	// Weights maps input names to their contribution to the weighted sum.
	// All weights must be numeric and non-negative.
	Weights map[string]float64 `yaml:"weights"`

	// Thresholds maps named decision boundaries to score values.
	// Some heuristics declare an ordering over their threshold names
	// (e.g. veto < review < approve for coherence).
	Thresholds map[string]float64 `yaml:"thresholds"`
}

// HeuristicsConfig is the full validated configuration snapshot.
// Instances are immutable once installed; reload replaces the whole snapshot.
type HeuristicsConfig struct {
	// Version identifies the config schema revision. Required.
	Version string `yaml:"version"`

	// Heuristics maps heuristic ids to their configurations.
	Heuristics map[string]HeuristicConfig `yaml:"heuristics"`
}

// Heuristic returns the configuration for the given id, or nil when the
// snapshot carries no entry for it. A nil receiver is safe and returns nil,
// so callers holding an unloaded snapshot can probe without guarding.
func (c *HeuristicsConfig) Heuristic(id string) *HeuristicConfig {
	if c == nil {
		return nil
	}
	h, ok := c.Heuristics[id]
	if !ok {
		return nil
	}
	return &h
}

// Clone returns a deep copy. Used before applying env overrides so the
// validated base snapshot is never mutated in place.
func (c *HeuristicsConfig) Clone() *HeuristicsConfig {
	if c == nil {
		return nil
	}
	out := &HeuristicsConfig{
		Version:    c.Version,
		Heuristics: make(map[string]HeuristicConfig, len(c.Heuristics)),
	}
	for id, h := range c.Heuristics {
		ch := HeuristicConfig{
			Weights:    make(map[string]float64, len(h.Weights)),
			Thresholds: make(map[string]float64, len(h.Thresholds)),
		}
		for k, v := range h.Weights {
			ch.Weights[k] = v
		}
		for k, v := range h.Thresholds {
			ch.Thresholds[k] = v
		}
		out.Heuristics[id] = ch
	}
	return out
}

// Rules declares the per-heuristic invariants the validator enforces beyond
// structural and type checks. The weight-sum partition rule is configurable
// per heuristic rather than global: only heuristics listed in WeightSumOne
// must have their primary weight set total 1.0.
type Rules struct {
	// WeightSumOne lists heuristic ids whose weight set forms a partition
	// and must sum to 1.0 within SumTolerance.
	WeightSumOne map[string]bool

	// ThresholdOrder maps heuristic ids to threshold names ordered from
	// lowest to highest. Only names present in the config are compared.
	ThresholdOrder map[string][]string

	// SumTolerance is the permitted deviation from 1.0 for partition sums.
	// Default: 0.001
	SumTolerance float64
}

// DefaultRules returns the invariant rule table for the built-in heuristics.
func DefaultRules() *Rules {
	return &Rules{
		WeightSumOne: map[string]bool{
			"coherence": true,
		},
		ThresholdOrder: map[string][]string{
			"coherence":            {"veto", "review", "approve"},
			"automation_readiness": {"review", "tipping_point"},
		},
		SumTolerance: 0.001,
	}
}

// sortedKeys returns map keys in deterministic order, used for stable error
// reporting and config fingerprinting.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// weightSum totals a heuristic's weight map.
func weightSum(weights map[string]float64) float64 {
	var sum float64
	for _, w := range weights {
		sum += w
	}
	return sum
}

func formatSumError(id string, sum float64) string {
	return fmt.Sprintf("heuristic %q: weights sum to %.2f. Sum should equal 1.0", id, sum)
}
