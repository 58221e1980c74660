package main

import (
	"github.com/spf13/cobra"

	"github.com/hybridops/hybrid-ops/internal/alerts"
	"github.com/hybridops/hybrid-ops/internal/config"
	"github.com/hybridops/hybrid-ops/internal/dashboard"
	"github.com/hybridops/hybrid-ops/internal/repl"
)

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Interactive monitoring shell",
	Long: `Start an interactive shell over the live metrics collector,
heuristic compiler, and alert system. The config file is watched for
changes and hot-reloaded while the shell runs.`,
	Run: func(cmd *cobra.Command, args []string) {
		demo, _ := cmd.Flags().GetBool("demo")
		if demo {
			seedDemoTraffic(collector)
		}

		system, err := alerts.NewSystem(collector, nil)
		if err != nil {
			cliError(exitError, "invalid_alert_config", err)
		}
		d := dashboard.New(collector, nil).WithCompiler(compiler)

		// Hot-reload the heuristics config while the shell runs; a
		// changed config invalidates the compiled cache.
		watcher := config.NewWatcher(loader, 0)
		watcher.OnReload = func(_ *config.HeuristicsConfig, err error) {
			if err == nil {
				compiler.ClearCache("config file changed")
			} else {
				collector.RecordFallback("config_validation_failed", nil)
			}
		}
		if err := watcher.Start(); err == nil {
			defer watcher.Stop()
		}

		shell, err := repl.New(&repl.Config{
			Collector: collector,
			Compiler:  compiler,
			System:    system,
			Dashboard: d,
			Loader:    loader,
		})
		if err != nil {
			cliError(exitError, "repl_init_failed", err)
		}
		if err := shell.Run(); err != nil {
			cliError(exitError, "repl_failed", err)
		}
	},
}

func init() {
	replCmd.Flags().Bool("demo", false, "Seed synthetic traffic before starting")
	rootCmd.AddCommand(replCmd)
}
