package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hybridops/hybrid-ops/internal/dashboard"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the metrics snapshot to a JSON file",
	Long: `Serialize the collector's current state as JSON with top-level
exported_at, summary, and raw_metrics fields. Intermediate directories are
created as needed.`,
	Run: func(cmd *cobra.Command, args []string) {
		output, _ := cmd.Flags().GetString("output")
		demo, _ := cmd.Flags().GetBool("demo")

		if demo {
			seedDemoTraffic(collector)
		}

		d := dashboard.New(collector, nil).WithCompiler(compiler)
		if err := d.Export(output); err != nil {
			cliError(exitError, "export_failed", err)
		}
		fmt.Printf("Exported metrics to %s\n", output)
	},
}

func init() {
	exportCmd.Flags().StringP("output", "o", "metrics-export.json", "Output file path")
	exportCmd.Flags().Bool("demo", false, "Seed synthetic traffic before exporting")
	rootCmd.AddCommand(exportCmd)
}
