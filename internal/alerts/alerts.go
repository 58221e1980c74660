// Package alerts polls the metrics collector for fallback activity,
// classifies per-reason fallback rates into alert levels, and emits
// formatted, actionable alerts with cooldown-based deduplication.
//
// The system is advisory: it only reads collector state and prints. Repeat
// notifications for the same (reason, level) pair are suppressed until the
// cooldown elapses; the same reason can be cooling down at one level while
// eligible to alert again at a higher one.
package alerts

import (
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/fatih/color"
	"golang.org/x/time/rate"

	"github.com/hybridops/hybrid-ops/internal/metrics"
)

// Level classifies a fallback rate.
type Level int

const (
	// LevelNone means no alert is warranted (zero fallbacks).
	LevelNone Level = iota
	// LevelInfo covers low fallback counts worth a heads-up.
	LevelInfo
	// LevelWarning covers elevated counts that need attention.
	LevelWarning
	// LevelCritical covers counts beyond the critical threshold.
	LevelCritical
)

// String returns the level's display name.
func (l Level) String() string {
	switch l {
	case LevelNone:
		return "none"
	case LevelInfo:
		return "info"
	case LevelWarning:
		return "warning"
	case LevelCritical:
		return "critical"
	default:
		return fmt.Sprintf("unknown(%d)", int(l))
	}
}

// Thresholds are the ordered fallback-count boundaries for level
// classification. Info <= Warning <= Critical must hold.
type Thresholds struct {
	// Info is the highest count still classified as info.
	Info int
	// Warning gates recommendation escalation: counts beyond it get
	// "systematic issue" wording.
	Warning int
	// Critical is the highest count still classified as warning; anything
	// beyond it is critical.
	Critical int
}

// Config holds alert system construction options.
type Config struct {
	// Enabled controls whether Start does anything at all. A disabled
	// system never transitions out of "not running". Default: true
	Enabled bool

	// CheckInterval is the polling period. Default: 60s
	CheckInterval time.Duration

	// AlertCooldown is the minimum time before an identical (reason,
	// level) alert may be re-emitted. Default: 30m
	AlertCooldown time.Duration

	// Thresholds are the classification boundaries. Default: 5, 15, 50
	Thresholds Thresholds

	// EmitRate and EmitBurst bound overall alert output as a safety valve
	// on top of the cooldown (alert storms across many distinct reasons).
	// Default: 1/s with burst 10.
	EmitRate  rate.Limit
	EmitBurst int

	// Out receives formatted alerts. Default: os.Stdout
	Out io.Writer
}

// DefaultConfig returns the default alert system configuration.
func DefaultConfig() *Config {
	return &Config{
		Enabled:       true,
		CheckInterval: 60 * time.Second,
		AlertCooldown: 30 * time.Minute,
		Thresholds:    Thresholds{Info: 5, Warning: 15, Critical: 50},
		EmitRate:      1,
		EmitBurst:     10,
		Out:           os.Stdout,
	}
}

// Validate checks threshold ordering and intervals.
func (c *Config) Validate() error {
	t := c.Thresholds
	if t.Info <= 0 || t.Warning < t.Info || t.Critical < t.Warning {
		return fmt.Errorf("thresholds must satisfy 0 < info <= warning <= critical, got %d/%d/%d",
			t.Info, t.Warning, t.Critical)
	}
	if c.CheckInterval <= 0 {
		return fmt.Errorf("check interval must be positive, got %v", c.CheckInterval)
	}
	if c.AlertCooldown <= 0 {
		return fmt.Errorf("alert cooldown must be positive, got %v", c.AlertCooldown)
	}
	return nil
}

// alertKey is the cooldown composite key.
type alertKey struct {
	reason string
	level  Level
}

// AlertRecord tracks the last emission for one (reason, level) pair.
// Repeat alerts update the record in place; records are never duplicated.
type AlertRecord struct {
	Reason     string
	Level      Level
	LastSentAt time.Time
}

// System is the fallback alert orchestrator.
type System struct {
	mu        sync.Mutex
	cfg       Config
	collector *metrics.Collector
	records   map[alertKey]*AlertRecord
	limiter   *rate.Limiter

	running bool
	done    chan struct{}
	wg      sync.WaitGroup

	now func() time.Time
}

// NewSystem creates an alert system reading from the given collector.
// A nil config uses DefaultConfig.
func NewSystem(collector *metrics.Collector, cfg *Config) (*System, error) {
	if collector == nil {
		return nil, fmt.Errorf("metrics collector is required")
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.Out == nil {
		cfg.Out = os.Stdout
	}
	if cfg.EmitRate <= 0 {
		cfg.EmitRate = 1
	}
	if cfg.EmitBurst <= 0 {
		cfg.EmitBurst = 10
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid alert config: %w", err)
	}

	return &System{
		cfg:       *cfg,
		collector: collector,
		records:   make(map[alertKey]*AlertRecord),
		limiter:   rate.NewLimiter(cfg.EmitRate, cfg.EmitBurst),
		now:       time.Now,
	}, nil
}

// DetermineLevel maps a fallback count in the check window to an alert
// level. Zero is never an alert. The mapping is monotone non-decreasing:
// counts up to the info threshold are info, counts up to the critical
// threshold are warning, and anything beyond the critical threshold is
// critical. The warning threshold does not shift the band; it gates
// recommendation escalation instead.
func (s *System) DetermineLevel(count int) Level {
	t := s.cfg.Thresholds
	switch {
	case count <= 0:
		return LevelNone
	case count <= t.Info:
		return LevelInfo
	case count <= t.Critical:
		return LevelWarning
	default:
		return LevelCritical
	}
}

// ShouldSend reports whether the cooldown gate is open for the pair: true
// exactly when no record exists or the last emission is older than the
// cooldown.
func (s *System) ShouldSend(reason string, level Level) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shouldSendLocked(reason, level)
}

func (s *System) shouldSendLocked(reason string, level Level) bool {
	rec, ok := s.records[alertKey{reason, level}]
	if !ok {
		return true
	}
	return s.now().Sub(rec.LastSentAt) >= s.cfg.AlertCooldown
}

// RecordAlert stamps (or creates) the cooldown record for the pair.
func (s *System) RecordAlert(reason string, level Level) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recordAlertLocked(reason, level)
}

func (s *System) recordAlertLocked(reason string, level Level) {
	key := alertKey{reason, level}
	if rec, ok := s.records[key]; ok {
		rec.LastSentAt = s.now()
		return
	}
	s.records[key] = &AlertRecord{Reason: reason, Level: level, LastSentAt: s.now()}
}

// ResetAlerts clears every cooldown record, re-opening the gate for all
// reason/level pairs.
func (s *System) ResetAlerts() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make(map[alertKey]*AlertRecord)
}

// Records returns a copy of the current cooldown records, sorted by reason
// then level.
func (s *System) Records() []AlertRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]AlertRecord, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Reason != out[j].Reason {
			return out[i].Reason < out[j].Reason
		}
		return out[i].Level < out[j].Level
	})
	return out
}

// CheckFallbackRates runs one orchestration tick: read the trailing-hour
// fallback rate, classify each reason, and emit whatever clears the
// cooldown gate and the rate limiter. Returns the number of alerts emitted.
func (s *System) CheckFallbackRates() int {
	fallbacks := s.collector.GetFallbackRate(1)

	reasons := make([]string, 0, len(fallbacks.ByReason))
	for reason := range fallbacks.ByReason {
		reasons = append(reasons, reason)
	}
	sort.Strings(reasons)

	s.mu.Lock()
	defer s.mu.Unlock()

	emitted := 0
	for _, reason := range reasons {
		count := fallbacks.ByReason[reason]
		level := s.DetermineLevel(count)
		if level == LevelNone {
			continue
		}
		if !s.shouldSendLocked(reason, level) {
			continue
		}
		if !s.limiter.Allow() {
			continue
		}
		fmt.Fprintln(s.cfg.Out, s.FormatMessage(reason, count, level))
		s.recordAlertLocked(reason, level)
		emitted++
	}
	return emitted
}

// Start performs one immediate check and then polls at CheckInterval.
// No-op when already running or when the system is disabled.
func (s *System) Start() {
	s.mu.Lock()
	if !s.cfg.Enabled || s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.done = make(chan struct{})
	done := s.done
	s.mu.Unlock()

	s.CheckFallbackRates()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.cfg.CheckInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				s.CheckFallbackRates()
			}
		}
	}()
}

// Stop cancels the polling loop. Safe to call repeatedly or before Start.
func (s *System) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	close(s.done)
	s.running = false
	s.mu.Unlock()

	s.wg.Wait()
}

// Running reports whether the polling loop is active.
func (s *System) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// FormatMessage renders a single actionable alert line set.
func (s *System) FormatMessage(reason string, count int, level Level) string {
	var tag string
	switch level {
	case LevelCritical:
		tag = color.New(color.FgRed, color.Bold).Sprintf("[CRITICAL]")
	case LevelWarning:
		tag = color.New(color.FgYellow, color.Bold).Sprintf("[WARNING]")
	default:
		tag = color.New(color.FgCyan).Sprintf("[INFO]")
	}
	return fmt.Sprintf("%s fallback %q: %d occurrence(s) in the last hour\n  → %s",
		tag, reason, count, s.Recommendation(reason, count))
}
