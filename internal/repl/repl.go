// Package repl implements the interactive monitoring shell: a readline
// loop over the live metrics collector, heuristic compiler, and alert
// system. Every command is a read or an explicitly requested reset; the
// shell never mutates collaborator state on its own.
package repl

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/fatih/color"

	"github.com/hybridops/hybrid-ops/internal/alerts"
	"github.com/hybridops/hybrid-ops/internal/config"
	"github.com/hybridops/hybrid-ops/internal/dashboard"
	"github.com/hybridops/hybrid-ops/internal/heuristics"
	"github.com/hybridops/hybrid-ops/internal/metrics"
)

// REPL is the interactive monitoring shell.
type REPL struct {
	collector *metrics.Collector
	compiler  *heuristics.Compiler
	system    *alerts.System
	dash      *dashboard.Dashboard
	loader    *config.Loader

	rl       *readline.Instance
	commands map[string]CommandHandler
}

// CommandHandler handles a specific command.
type CommandHandler func(args []string) error

// Config holds REPL dependencies.
type Config struct {
	Collector *metrics.Collector
	Compiler  *heuristics.Compiler
	System    *alerts.System
	Dashboard *dashboard.Dashboard
	// Loader, when set, supplies the active heuristic configs to the
	// compile command; otherwise built-in defaults are used.
	Loader *config.Loader
}

// New creates a REPL bound to the given monitoring components.
func New(cfg *Config) (*REPL, error) {
	if cfg.Collector == nil {
		return nil, fmt.Errorf("metrics collector is required")
	}
	if cfg.Compiler == nil {
		return nil, fmt.Errorf("heuristic compiler is required")
	}

	r := &REPL{
		collector: cfg.Collector,
		compiler:  cfg.Compiler,
		system:    cfg.System,
		dash:      cfg.Dashboard,
		loader:    cfg.Loader,
		commands:  make(map[string]CommandHandler),
	}
	r.registerCommands()
	return r, nil
}

// Run starts the shell loop and blocks until exit.
func (r *REPL) Run() error {
	cyan := color.New(color.FgCyan).SprintFunc()

	rl, err := readline.NewEx(&readline.Config{
		Prompt:            cyan("hybrid-ops> "),
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		return fmt.Errorf("failed to create readline: %w", err)
	}
	defer rl.Close()
	r.rl = rl

	r.printWelcome()

	for {
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			if err == io.EOF {
				fmt.Println("\nGoodbye!")
				return nil
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if err := r.dispatch(line); err != nil {
			if err == io.EOF {
				return nil
			}
			red := color.New(color.FgRed).SprintFunc()
			fmt.Printf("%s %v\n", red("Error:"), err)
		}
	}
}

func (r *REPL) dispatch(line string) error {
	parts := strings.Fields(line)
	command := parts[0]
	args := parts[1:]

	if handler, ok := r.commands[command]; ok {
		return handler(args)
	}

	yellow := color.New(color.FgYellow).SprintFunc()
	fmt.Printf("%s Unknown command %q. Use 'help' for available commands.\n", yellow("Note:"), command)
	return nil
}

func (r *REPL) registerCommands() {
	r.commands["help"] = r.cmdHelp
	r.commands["?"] = r.cmdHelp
	r.commands["exit"] = r.cmdExit
	r.commands["quit"] = r.cmdExit
	r.commands["summary"] = r.cmdSummary
	r.commands["fallbacks"] = r.cmdFallbacks
	r.commands["alerts"] = r.cmdAlerts
	r.commands["stats"] = r.cmdStats
	r.commands["compile"] = r.cmdCompile
	r.commands["clear-cache"] = r.cmdClearCache
	r.commands["reset"] = r.cmdReset
	r.commands["export"] = r.cmdExport
}

func (r *REPL) printWelcome() {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	fmt.Printf("\n%s\n", cyan("hybrid-ops monitoring shell"))
	fmt.Println("Live view over the metrics collector, heuristic compiler, and alert system")
	fmt.Println()
	fmt.Println("Type 'help' for available commands, 'exit' to quit")
	fmt.Println()
}

func (r *REPL) cmdHelp(args []string) error {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	fmt.Printf("\n%s\n\n", cyan("Available Commands:"))

	commands := []struct {
		name string
		desc string
	}{
		{"summary", "Render the full monitoring dashboard"},
		{"fallbacks [hours]", "Show the fallback rate for a trailing window (default 1h)"},
		{"alerts", "Run one alert check tick and show cooldown records"},
		{"stats", "Show heuristic compiler counters"},
		{"compile <id> [k=v ...]", "Compile a heuristic and score the given inputs"},
		{"clear-cache [reason]", "Drop all compiled heuristics"},
		{"reset", "Reset the metrics collector and alert records"},
		{"export <path>", "Write the metrics snapshot to a JSON file"},
		{"help, ?", "Show this help message"},
		{"exit, quit", "Exit the shell"},
	}
	for _, cmd := range commands {
		fmt.Printf("  %-24s %s\n", green(cmd.name), cmd.desc)
	}
	fmt.Println()
	return nil
}

func (r *REPL) cmdExit(args []string) error {
	green := color.New(color.FgGreen).SprintFunc()
	fmt.Printf("\n%s Goodbye!\n", green("✓"))
	r.rl.Close()
	return io.EOF
}

func (r *REPL) cmdSummary(args []string) error {
	if r.dash == nil {
		return fmt.Errorf("no dashboard attached")
	}
	r.dash.Render()
	return nil
}

func (r *REPL) cmdFallbacks(args []string) error {
	hours := 1.0
	if len(args) > 0 {
		parsed, err := strconv.ParseFloat(args[0], 64)
		if err != nil || parsed <= 0 {
			return fmt.Errorf("invalid window %q: want a positive number of hours", args[0])
		}
		hours = parsed
	}

	fmt.Print(formatFallbacks(r.collector.GetFallbackRate(hours)))
	return nil
}

// formatFallbacks renders a fallback rate with reasons in sorted order,
// matching the dashboard and alert surfaces.
func formatFallbacks(rate metrics.FallbackRate) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Fallbacks in the last %gh: %d\n", rate.WindowHours, rate.Total)
	reasons := make([]string, 0, len(rate.ByReason))
	for reason := range rate.ByReason {
		reasons = append(reasons, reason)
	}
	sort.Strings(reasons)
	for _, reason := range reasons {
		fmt.Fprintf(&b, "  %-32s %d\n", reason, rate.ByReason[reason])
	}
	return b.String()
}

func (r *REPL) cmdAlerts(args []string) error {
	if r.system == nil {
		return fmt.Errorf("no alert system attached")
	}

	emitted := r.system.CheckFallbackRates()
	fmt.Printf("Check complete: %d alert(s) emitted\n", emitted)

	records := r.system.Records()
	if len(records) == 0 {
		fmt.Println("No cooldown records")
		return nil
	}
	for _, rec := range records {
		fmt.Printf("  %-32s %-8s last sent %s\n",
			rec.Reason, rec.Level, rec.LastSentAt.Format("15:04:05"))
	}
	return nil
}

func (r *REPL) cmdStats(args []string) error {
	stats := r.compiler.Stats()
	fmt.Printf("Compiled: %d, cache hits: %d, cache misses: %d\n",
		stats.CompiledCount, stats.CacheHits, stats.CacheMisses)
	if ids := r.compiler.CachedIDs(); len(ids) > 0 {
		fmt.Printf("Cached heuristics: %s\n", strings.Join(ids, ", "))
	}
	if last := r.compiler.LastClear(); last != nil {
		fmt.Printf("Last cache clear: %s (%s)\n", last.At.Format("15:04:05"), last.Reason)
	}
	return nil
}

// cmdCompile parses "compile <id> k=v ..." and prints the scoring result.
func (r *REPL) cmdCompile(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: compile <heuristic-id> [input=value ...]")
	}

	id := args[0]
	inputs := make(map[string]float64)
	for _, pair := range args[1:] {
		name, raw, ok := strings.Cut(pair, "=")
		if !ok {
			return fmt.Errorf("invalid input %q: want name=value", pair)
		}
		val, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("invalid input %q: %w", pair, err)
		}
		inputs[name] = val
	}

	var hc *config.HeuristicConfig
	if r.loader != nil {
		hc = r.loader.Active().Heuristic(id)
	}
	fn := r.compiler.Compile(id, hc)
	result := fn(inputs)
	fmt.Printf("score=%.3f classification=%s veto=%t tipping_point=%t\n",
		result.Score, result.Classification, result.Veto, result.TippingPoint)
	if result.Recommendation != "" {
		fmt.Printf("  → %s\n", result.Recommendation)
	}
	return nil
}

func (r *REPL) cmdClearCache(args []string) error {
	reason := "operator request"
	if len(args) > 0 {
		reason = strings.Join(args, " ")
	}
	r.compiler.ClearCache(reason)
	fmt.Printf("Cache cleared (%s)\n", reason)
	return nil
}

func (r *REPL) cmdReset(args []string) error {
	r.collector.Reset()
	if r.system != nil {
		r.system.ResetAlerts()
	}
	fmt.Println("Metrics collector and alert records reset")
	return nil
}

func (r *REPL) cmdExport(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: export <path>")
	}
	if r.dash == nil {
		return fmt.Errorf("no dashboard attached")
	}
	if err := r.dash.Export(args[0]); err != nil {
		return err
	}
	fmt.Printf("Exported metrics to %s\n", args[0])
	return nil
}
