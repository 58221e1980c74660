package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hybridops/hybrid-ops/internal/alerts"
)

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "Run the fallback alert loop",
	Long: `Poll the metrics collector for fallback activity and emit
threshold-classified, cooldown-deduplicated alerts.

Examples:
  # Single check tick
  hybrid-ops alerts --once

  # Continuous polling (Ctrl+C to stop)
  hybrid-ops alerts --interval 30s

  # Exercise the alert bands against synthetic traffic
  hybrid-ops alerts --once --demo`,
	Run: func(cmd *cobra.Command, args []string) {
		once, _ := cmd.Flags().GetBool("once")
		interval, _ := cmd.Flags().GetDuration("interval")
		cooldown, _ := cmd.Flags().GetDuration("cooldown")
		demo, _ := cmd.Flags().GetBool("demo")

		if demo {
			seedDemoTraffic(collector)
		}

		cfg := alerts.DefaultConfig()
		cfg.CheckInterval = interval
		cfg.AlertCooldown = cooldown
		system, err := alerts.NewSystem(collector, cfg)
		if err != nil {
			cliError(exitError, "invalid_alert_config", err)
		}

		if once {
			emitted := system.CheckFallbackRates()
			fmt.Printf("Check complete: %d alert(s) emitted\n", emitted)
			return
		}

		system.Start()
		defer system.Stop()
		fmt.Printf("Alert system polling every %v (Ctrl+C to stop)\n", interval)

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
	},
}

func init() {
	alertsCmd.Flags().Bool("once", false, "Run a single check tick and exit")
	alertsCmd.Flags().Duration("interval", 60*time.Second, "Polling interval")
	alertsCmd.Flags().Duration("cooldown", 30*time.Minute, "Minimum time between identical alerts")
	alertsCmd.Flags().Bool("demo", false, "Seed synthetic traffic before checking")
	rootCmd.AddCommand(alertsCmd)
}
