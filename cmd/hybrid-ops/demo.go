package main

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/hybridops/hybrid-ops/internal/metrics"
)

// seedDemoTraffic populates the collector with synthetic load so the
// dashboard and alert tools are exercisable without live collaborators.
func seedDemoTraffic(c *metrics.Collector) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	minds := []string{"billing", "auditor", "reconciliation", "cashflow"}
	for i := 0; i < 40; i++ {
		id := "mind-" + uuid.NewString()
		cached := i%3 != 0
		tags := map[string]string{"mind": minds[i%len(minds)]}
		if cached {
			tags["cached"] = "true"
		}
		c.StartTimer(id, metrics.KindMindLoad, tags)
		c.EndTimer(id, nil)
	}

	for i := 0; i < 25; i++ {
		id := "validation-" + uuid.NewString()
		c.StartTimer(id, metrics.KindValidation, nil)
		c.EndTimer(id, nil)
	}

	heuristicIDs := []string{"coherence", "automation_readiness", "backcast_confidence"}
	for _, hid := range heuristicIDs {
		fn := compiler.Compile(hid, loader.Active().Heuristic(hid))
		for i := 0; i < 10; i++ {
			fn(map[string]float64{
				"structural": rng.Float64(),
				"temporal":   rng.Float64(),
				"semantic":   rng.Float64(),
				"volume":     rng.Float64(),
				"stability":  rng.Float64(),
				"horizon":    rng.Float64(),
				"precedent":  rng.Float64(),
				"signal":     rng.Float64(),
			})
		}
		// Repeat compiles register as cache hits.
		compiler.Compile(hid, loader.Active().Heuristic(hid))
	}

	reasons := []string{"heuristic_veto", "config_validation_failed", "mind_load_failed"}
	for i := 0; i < 12; i++ {
		c.RecordFallback(reasons[i%len(reasons)], nil)
	}

	fmt.Println("Seeded demo traffic: 40 mind loads, 25 validations, 30 heuristic executions, 12 fallbacks")
}
