// Package heuristics compiles declarative weighted-scoring configurations
// into executable decision functions and caches them by configuration
// fingerprint.
//
// A compiled heuristic follows the generic pattern: weighted sum of
// normalized inputs produces a score in [0,1], the score is compared against
// the heuristic's ordered thresholds, and the comparison yields a
// classification (and heuristic-specific boolean outcomes such as veto or
// tipping point). Compiling the same id with an unchanged configuration
// returns the identical function instance, so callers may rely on identity
// for memoization.
package heuristics

import (
	"fmt"
	"sort"
)

// Result is the output of a compiled scoring function. The exact shape is
// heuristic-specific but Score is always present and numeric.
type Result struct {
	// Score is the weighted sum of normalized inputs, in [0,1].
	Score float64 `json:"score"`
	// Classification is the threshold band the score landed in.
	Classification string `json:"classification"`
	// Veto signals "must block", independent of the numeric score band.
	Veto bool `json:"veto"`
	// TippingPoint signals "ready to automate".
	TippingPoint bool `json:"tipping_point"`
	// Recommendation is short actionable guidance for the caller.
	Recommendation string `json:"recommendation,omitempty"`
}

// ScoringFunc evaluates a heuristic against named numeric inputs.
// Inputs are expected in [0,1]; out-of-range values are clamped.
type ScoringFunc func(inputs map[string]float64) Result

// weightedScore computes the weight-normalized sum of clamped inputs.
// Missing inputs contribute zero. A zero total weight yields score 0.
func weightedScore(weights map[string]float64, inputs map[string]float64) float64 {
	var total, sum float64
	for name, w := range weights {
		if w <= 0 {
			total += w
			continue
		}
		total += w
		sum += w * clamp01(inputs[name])
	}
	if total <= 0 {
		return 0
	}
	return sum / total
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// threshold returns the configured value for name, falling back to the
// built-in default for this heuristic id.
func threshold(id, name string, thresholds map[string]float64) float64 {
	if v, ok := thresholds[name]; ok {
		return v
	}
	if def, ok := builtinDefaults[id]; ok {
		if v, ok := def.Thresholds[name]; ok {
			return v
		}
	}
	return 0.5
}

// classifier builds the id-specific portion of a scoring function: the
// mapping from score to classification and boolean outcomes.
type classifier func(id string, thresholds map[string]float64, score float64) Result

// classifiers maps heuristic ids to their decision shapes. Unlisted ids use
// the generic band classifier.
var classifiers = map[string]classifier{
	"coherence":            classifyCoherence,
	"automation_readiness": classifyAutomation,
	"backcast_confidence":  classifyBackcast,
}

// classifyCoherence: veto < review < approve. Below veto blocks outright.
func classifyCoherence(id string, thresholds map[string]float64, score float64) Result {
	veto := threshold(id, "veto", thresholds)
	approve := threshold(id, "approve", thresholds)

	switch {
	case score < veto:
		return Result{
			Score:          score,
			Classification: "veto",
			Veto:           true,
			Recommendation: "block the operation and audit the incoherent inputs",
		}
	case score >= approve:
		return Result{
			Score:          score,
			Classification: "approve",
			Recommendation: "coherent enough to proceed without review",
		}
	default:
		return Result{
			Score:          score,
			Classification: "review",
			Recommendation: "route to manual review before acting",
		}
	}
}

// classifyAutomation: review < tipping_point. At or above the tipping point
// the operation is ready to automate.
func classifyAutomation(id string, thresholds map[string]float64, score float64) Result {
	review := threshold(id, "review", thresholds)
	tipping := threshold(id, "tipping_point", thresholds)

	switch {
	case score >= tipping:
		return Result{
			Score:          score,
			Classification: "ready",
			TippingPoint:   true,
			Recommendation: "ready to automate this operation",
		}
	case score >= review:
		return Result{
			Score:          score,
			Classification: "review",
			Recommendation: "close to automatable; keep a human in the loop",
		}
	default:
		return Result{
			Score:          score,
			Classification: "manual",
			Recommendation: "keep this operation fully manual",
		}
	}
}

// classifyBackcast: plausible < confident.
func classifyBackcast(id string, thresholds map[string]float64, score float64) Result {
	plausible := threshold(id, "plausible", thresholds)
	confident := threshold(id, "confident", thresholds)

	switch {
	case score >= confident:
		return Result{Score: score, Classification: "confident",
			Recommendation: "projection is well supported by current signals"}
	case score >= plausible:
		return Result{Score: score, Classification: "plausible",
			Recommendation: "projection is plausible; gather more signal before committing"}
	default:
		return Result{Score: score, Classification: "speculative",
			Recommendation: "treat the projection as speculative"}
	}
}

// classifyGeneric buckets the score by the highest configured threshold it
// clears; the band below the lowest threshold is named "below_<lowest>".
func classifyGeneric(id string, thresholds map[string]float64, score float64) Result {
	if len(thresholds) == 0 {
		return Result{
			Score:          score,
			Classification: "unclassified",
			Recommendation: "configure thresholds for this heuristic",
		}
	}

	names := make([]string, 0, len(thresholds))
	for name := range thresholds {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return thresholds[names[i]] < thresholds[names[j]] })

	cls := fmt.Sprintf("below_%s", names[0])
	for _, name := range names {
		if score >= thresholds[name] {
			cls = name
		}
	}
	return Result{
		Score:          score,
		Classification: cls,
		Recommendation: fmt.Sprintf("score %.2f classified as %s", score, cls),
	}
}
