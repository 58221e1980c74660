package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hybridops/hybrid-ops/internal/dashboard"
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Render the monitoring dashboard",
	Long: `Render a color-coded snapshot of the metrics collector's summary:
mind-loading performance, validation overhead, cache performance, fallback
analysis, and improvement recommendations.

Examples:
  # One-shot render
  hybrid-ops dashboard

  # Continuous refresh every 5 seconds (Ctrl+C to stop)
  hybrid-ops dashboard --watch

  # Seed synthetic traffic first (no live collaborators needed)
  hybrid-ops dashboard --demo`,
	Run: func(cmd *cobra.Command, args []string) {
		watch, _ := cmd.Flags().GetBool("watch")
		interval, _ := cmd.Flags().GetDuration("interval")
		demo, _ := cmd.Flags().GetBool("demo")

		if demo {
			seedDemoTraffic(collector)
		}

		cfg := dashboard.DefaultConfig()
		cfg.RefreshInterval = interval
		d := dashboard.New(collector, cfg).WithCompiler(compiler)

		if !watch {
			d.Render()
			return
		}

		d.StartWatch()
		defer d.StopWatch()

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
	},
}

func init() {
	dashboardCmd.Flags().Bool("watch", false, "Continuously refresh the dashboard")
	dashboardCmd.Flags().Duration("interval", 5*time.Second, "Watch refresh interval")
	dashboardCmd.Flags().Bool("demo", false, "Seed synthetic traffic before rendering")
	rootCmd.AddCommand(dashboardCmd)
}
