// hybrid-ops is the monitoring and adaptive-decision CLI for the hybrid-ops
// runtime: a textual dashboard over the metrics collector, a fallback alert
// runner, config validation, and a heuristic compile/evaluate tool.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hybridops/hybrid-ops/internal/config"
	"github.com/hybridops/hybrid-ops/internal/heuristics"
	"github.com/hybridops/hybrid-ops/internal/metrics"
)

// Version is set at build time via -ldflags.
var Version = "dev"

// Exit codes. Validation failures get a reserved code so scripting layers
// can branch on them reliably.
const (
	exitOK         = 0
	exitError      = 1
	exitValidation = 2
)

// Composition root: one process-wide collector and compiler, injected into
// every subcommand rather than looked up implicitly.
var (
	configPath string

	collector *metrics.Collector
	compiler  *heuristics.Compiler
	loader    *config.Loader
)

var rootCmd = &cobra.Command{
	Use:     "hybrid-ops",
	Short:   "Self-monitoring runtime for the hybrid-ops component",
	Version: Version,
	Long: `hybrid-ops monitors the adaptive-decision runtime: heuristic
compilation and caching, operation timings, cache performance, and fallback
events reported by collaborators.

The dashboard, alert runner, and export commands are pure readers of the
in-process metrics collector. Nothing here blocks or vetoes business
operations; the subsystem measures and reports them.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		collector = metrics.NewCollector(metrics.DefaultConfig())
		compiler = heuristics.NewCompiler().WithMetrics(collector)
		loader = config.NewLoader(configPath, nil)
		if _, err := loader.Load(); err != nil {
			// A broken config is an alertable condition, not a crash.
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
			collector.RecordFallback("config_validation_failed", nil)
		}
		if !loader.IsLoaded() {
			collector.RecordFallback("config_not_loaded", nil)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultConfigPath,
		"path to the heuristics config file")
}

// errorPayload builds the machine-readable {error, message} object.
func errorPayload(kind string, err error) string {
	payload, _ := json.Marshal(map[string]string{
		"error":   kind,
		"message": err.Error(),
	})
	return string(payload)
}

// cliError prints a machine-readable {error, message} object and exits.
func cliError(code int, kind string, err error) {
	fmt.Println(errorPayload(kind, err))
	os.Exit(code)
}

// printJSON renders a value as indented JSON on stdout.
func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		cliError(exitError, "encoding_failed", err)
	}
	fmt.Println(string(data))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(exitError)
	}
}
