package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var compileCmd = &cobra.Command{
	Use:   "compile",
	Short: "Compile a heuristic and score a set of inputs",
	Long: `Compile the named heuristic (from the active config, or built-in
defaults when none is loaded) and evaluate it against the supplied inputs.
The result is printed as a single JSON object with a numeric score.

Inputs are a JSON object of name → value in [0,1], from a file or inline.

Examples:
  hybrid-ops compile --heuristic coherence --json '{"structural":0.9,"temporal":0.8,"semantic":0.7}'
  hybrid-ops compile --heuristic automation_readiness --input ./inputs.json`,
	Run: func(cmd *cobra.Command, args []string) {
		heuristicID, _ := cmd.Flags().GetString("heuristic")
		inputFile, _ := cmd.Flags().GetString("input")
		inline, _ := cmd.Flags().GetString("json")

		if heuristicID == "" {
			cliError(exitError, "missing_heuristic", fmt.Errorf("--heuristic is required"))
		}

		var raw []byte
		switch {
		case inline != "":
			raw = []byte(inline)
		case inputFile != "":
			var err error
			raw, err = os.ReadFile(inputFile)
			if err != nil {
				cliError(exitError, "read_failed", err)
			}
		default:
			raw = []byte("{}")
		}

		var inputs map[string]float64
		if err := json.Unmarshal(raw, &inputs); err != nil {
			cliError(exitValidation, "invalid_inputs", err)
		}

		fn := compiler.Compile(heuristicID, loader.Active().Heuristic(heuristicID))
		printJSON(fn(inputs))
	},
}

func init() {
	compileCmd.Flags().String("heuristic", "", "Heuristic id to compile")
	compileCmd.Flags().String("input", "", "JSON file of scoring inputs")
	compileCmd.Flags().String("json", "", "Inline JSON object of scoring inputs")
	rootCmd.AddCommand(compileCmd)
}
