// Package dashboard renders a human-readable, color-coded snapshot of the
// metrics collector's summary: load times, validation overhead, cache
// performance, fallback analysis, and derived improvement recommendations.
//
// The dashboard is a pure reader of collector state. Render produces one
// snapshot; watch mode repaints on a refresh ticker. Color bands are
// consistent with the alert system's thresholds.
package dashboard

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fatih/color"

	"github.com/hybridops/hybrid-ops/internal/alerts"
	"github.com/hybridops/hybrid-ops/internal/heuristics"
	"github.com/hybridops/hybrid-ops/internal/metrics"
)

// Config holds dashboard construction options.
type Config struct {
	// RefreshInterval is the watch-mode repaint period. Default: 5s
	RefreshInterval time.Duration

	// Thresholds align the fallback color bands with the alert system.
	// Default: the alert system's defaults.
	Thresholds alerts.Thresholds

	// Out receives rendered output. Default: os.Stdout
	Out io.Writer
}

// DefaultConfig returns the default dashboard configuration.
func DefaultConfig() *Config {
	return &Config{
		RefreshInterval: 5 * time.Second,
		Thresholds:      alerts.DefaultConfig().Thresholds,
		Out:             os.Stdout,
	}
}

// Dashboard renders collector summaries. Callers must supply a non-nil
// collector.
type Dashboard struct {
	metrics *metrics.Collector
	cfg     Config

	// compiler, when attached, contributes compile/cache counters to the
	// cache performance section.
	compiler *heuristics.Compiler

	mu       sync.Mutex
	watching bool
	done     chan struct{}
	wg       sync.WaitGroup
}

// New creates a dashboard over the given collector.
// A nil config uses DefaultConfig.
func New(collector *metrics.Collector, cfg *Config) *Dashboard {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = 5 * time.Second
	}
	if cfg.Out == nil {
		cfg.Out = os.Stdout
	}
	if cfg.Thresholds == (alerts.Thresholds{}) {
		cfg.Thresholds = alerts.DefaultConfig().Thresholds
	}
	return &Dashboard{metrics: collector, cfg: *cfg}
}

// WithCompiler attaches a heuristic compiler and returns the dashboard.
func (d *Dashboard) WithCompiler(c *heuristics.Compiler) *Dashboard {
	d.compiler = c
	return d
}

var (
	headerColor = color.New(color.FgCyan, color.Bold)
	labelColor  = color.New(color.FgYellow)
	dimColor    = color.New(color.FgHiBlack)
	greenText   = color.New(color.FgGreen).SprintFunc()
	yellowText  = color.New(color.FgYellow).SprintFunc()
	redText     = color.New(color.FgRed).SprintFunc()
)

// Render prints one structured snapshot of the collector's summary.
// It never schedules refreshes; watch mode wraps it in a ticker.
func (d *Dashboard) Render() {
	s := d.metrics.GetSummary()
	w := d.cfg.Out

	fmt.Fprintf(w, "\n%s\n", headerColor.Sprint("=== hybrid-ops Monitoring Dashboard ==="))
	fmt.Fprintf(w, "%s\n\n", dimColor.Sprintf("rendered %s", time.Now().Format("2006-01-02 15:04:05")))

	// Mind-loading performance
	fmt.Fprintf(w, "%s\n", labelColor.Sprint("Mind Loading:"))
	ml := s.MindLoading
	if ml.Count == 0 {
		fmt.Fprintf(w, "  %s\n", dimColor.Sprint("No loads recorded"))
	} else {
		fmt.Fprintf(w, "  Loads:    %d (%d cached, %d uncached)\n", ml.Count, ml.CachedCount, ml.UncachedCount)
		fmt.Fprintf(w, "  Avg time: %s cached, %s uncached\n",
			formatMs(ml.AvgCachedMs), formatMs(ml.AvgUncachedMs))
	}
	fmt.Fprintln(w)

	// Validation performance
	fmt.Fprintf(w, "%s\n", labelColor.Sprint("Validation:"))
	v := s.Validation
	if v.Count == 0 {
		fmt.Fprintf(w, "  %s\n", dimColor.Sprint("No validation passes recorded"))
	} else {
		fmt.Fprintf(w, "  Passes: %d\n", v.Count)
		fmt.Fprintf(w, "  Overhead: avg %s, p95 %s, p99 %s\n",
			formatMs(v.AvgMs), formatMs(v.P95Ms), formatMs(v.P99Ms))
	}
	fmt.Fprintln(w)

	// Cache performance
	fmt.Fprintf(w, "%s\n", labelColor.Sprint("Cache:"))
	c := s.Cache
	if c.Hits+c.Misses == 0 {
		fmt.Fprintf(w, "  %s\n", dimColor.Sprint("No cache probes recorded"))
	} else {
		fmt.Fprintf(w, "  Probes:   %d hits, %d misses\n", c.Hits, c.Misses)
		fmt.Fprintf(w, "  Hit rate: %s\n", d.colorHitRate(c.HitRate))
	}
	if d.compiler != nil {
		cs := d.compiler.Stats()
		fmt.Fprintf(w, "  Compiler: %d compiled, %d hits, %d misses\n",
			cs.CompiledCount, cs.CacheHits, cs.CacheMisses)
		if last := d.compiler.LastClear(); last != nil {
			fmt.Fprintf(w, "  %s\n", dimColor.Sprintf("last cache clear: %s (%s)",
				last.At.Format("15:04:05"), last.Reason))
		}
	}
	fmt.Fprintln(w)

	// Fallback analysis
	fmt.Fprintf(w, "%s\n", labelColor.Sprint("Fallbacks (last hour):"))
	fb := s.Fallbacks
	fmt.Fprintf(w, "  Total: %s\n", d.colorFallbackCount(fb.Total))
	for _, reason := range sortedReasons(fb.ByReason) {
		fmt.Fprintf(w, "    %-32s %s\n", reason, d.colorFallbackCount(fb.ByReason[reason]))
	}
	fmt.Fprintln(w)

	// Heuristic execution
	fmt.Fprintf(w, "%s\n", labelColor.Sprint("Heuristic Execution:"))
	he := s.HeuristicExecution
	if he.Count == 0 {
		fmt.Fprintf(w, "  %s\n", dimColor.Sprint("No executions recorded"))
	} else {
		fmt.Fprintf(w, "  Executions: %d, avg %s\n", he.Count, formatMs(he.AvgMs))
		for _, id := range sortedReasons(he.ByHeuristic) {
			fmt.Fprintf(w, "    %-32s %d\n", id, he.ByHeuristic[id])
		}
	}
	fmt.Fprintln(w)

	// Recommendations
	recs := d.Recommendations(s)
	fmt.Fprintf(w, "%s\n", labelColor.Sprint("Recommendations:"))
	if len(recs) == 0 {
		fmt.Fprintf(w, "  %s All clear\n", greenText("✓"))
	} else {
		for _, rec := range recs {
			fmt.Fprintf(w, "  %s %s\n", severityIcon(rec.Severity), rec.Message)
		}
	}
	fmt.Fprintln(w)
}

// colorHitRate applies the hit-rate bands: >=80% green, 50-80% yellow,
// <50% red.
func (d *Dashboard) colorHitRate(rate float64) string {
	text := fmt.Sprintf("%.2f%%", rate)
	switch {
	case rate >= 80:
		return greenText(text)
	case rate >= 50:
		return yellowText(text)
	default:
		return redText(text)
	}
}

// colorFallbackCount applies the fallback bands: 0 green, up to the
// critical threshold yellow, beyond it red.
func (d *Dashboard) colorFallbackCount(count int) string {
	text := fmt.Sprintf("%d", count)
	switch {
	case count == 0:
		return greenText(text)
	case count <= d.cfg.Thresholds.Critical:
		return yellowText(text)
	default:
		return redText(text)
	}
}

func severityIcon(severity string) string {
	switch severity {
	case "critical":
		return redText("✗")
	case "warning":
		return yellowText("⚠")
	default:
		return greenText("→")
	}
}

func formatMs(ms float64) string {
	return fmt.Sprintf("%.1fms", ms)
}

func sortedReasons(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Export writes the collector's {exported_at, summary, raw_metrics} snapshot
// to a JSON file, creating intermediate directories as needed.
func (d *Dashboard) Export(path string) error {
	data, err := d.metrics.ExportJSON()
	if err != nil {
		return fmt.Errorf("serializing metrics: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating export directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing export file: %w", err)
	}
	return nil
}

// StartWatch repaints the dashboard at the refresh interval until StopWatch.
// No-op when already watching.
func (d *Dashboard) StartWatch() {
	d.mu.Lock()
	if d.watching {
		d.mu.Unlock()
		return
	}
	d.watching = true
	d.done = make(chan struct{})
	done := d.done
	d.mu.Unlock()

	d.Render()

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ticker := time.NewTicker(d.cfg.RefreshInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				// Repaint from the top of the screen.
				fmt.Fprint(d.cfg.Out, "\033[2J\033[H")
				d.Render()
			}
		}
	}()
}

// StopWatch cancels watch mode. Safe to call repeatedly or before StartWatch.
func (d *Dashboard) StopWatch() {
	d.mu.Lock()
	if !d.watching {
		d.mu.Unlock()
		return
	}
	close(d.done)
	d.watching = false
	d.mu.Unlock()

	d.wg.Wait()
}

// Watching reports whether watch mode is active.
func (d *Dashboard) Watching() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.watching
}
