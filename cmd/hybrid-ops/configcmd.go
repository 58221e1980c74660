package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hybridops/hybrid-ops/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Heuristics configuration commands",
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a heuristics config file",
	Long: `Validate a heuristics configuration and print the result as JSON.
All violations are collected and reported in one pass.

Exit codes: 0 valid, 2 validation failed, 1 operational error.

Examples:
  hybrid-ops config validate
  hybrid-ops config validate --file ./heuristics.yaml
  hybrid-ops config validate --json 'version: "1.0"'`,
	Run: func(cmd *cobra.Command, args []string) {
		file, _ := cmd.Flags().GetString("file")
		inline, _ := cmd.Flags().GetString("json")

		var raw []byte
		switch {
		case inline != "":
			raw = []byte(inline)
		default:
			if file == "" {
				file = configPath
			}
			var err error
			raw, err = os.ReadFile(file)
			if err != nil {
				cliError(exitError, "read_failed", err)
			}
		}

		result, code := runConfigValidate(raw)
		printJSON(result)
		if code != exitOK {
			os.Exit(code)
		}
	},
}

// runConfigValidate validates a raw document and maps the outcome to an
// exit code: 0 for a valid config, the reserved validation code otherwise.
func runConfigValidate(raw []byte) (*config.ValidationResult, int) {
	result := config.ValidateConfig(raw)
	if !result.Valid {
		return result, exitValidation
	}
	return result, exitOK
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the active configuration snapshot",
	Run: func(cmd *cobra.Command, args []string) {
		if !loader.IsLoaded() {
			fmt.Println("No config loaded; built-in defaults are active")
			return
		}
		printJSON(loader.Active())
	},
}

func init() {
	configValidateCmd.Flags().String("file", "", "Config file to validate (defaults to --config)")
	configValidateCmd.Flags().String("json", "", "Inline YAML/JSON document to validate")
	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}
