package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
)

// DefaultConfigPath is where the loader looks for the heuristics config
// when no explicit path is given.
const DefaultConfigPath = "heuristics.yaml"

// envPrefix is the namespace for leaf-value overrides. Supported forms:
//
//	HEURISTIC_<ID>_WEIGHT_<NAME>=<float>
//	HEURISTIC_<ID>_THRESHOLD_<NAME>=<float>
//
// <ID> and <NAME> are uppercased versions of the config keys; ids containing
// underscores (e.g. AUTOMATION_READINESS) are supported because the WEIGHT/
// THRESHOLD marker delimits the id. Overrides apply after file load and are
// re-validated before the snapshot is accepted.
const envPrefix = "HEURISTIC_"

// Loader owns the active configuration snapshot. Load and Reload install a
// new immutable snapshot atomically; readers call Active and never observe a
// partial update. A failed reload keeps the last-known-good snapshot.
type Loader struct {
	path  string
	rules *Rules

	mu     sync.Mutex // serializes Load/Reload
	active atomic.Pointer[HeuristicsConfig]
}

// NewLoader creates a loader for the given config file path.
// An empty path uses DefaultConfigPath. No file I/O happens until Load.
func NewLoader(path string, rules *Rules) *Loader {
	if path == "" {
		path = DefaultConfigPath
	}
	if rules == nil {
		rules = DefaultRules()
	}
	return &Loader{path: path, rules: rules}
}

// Path returns the config file path this loader reads.
func (l *Loader) Path() string { return l.path }

// Active returns the current snapshot, or nil when nothing has been loaded.
func (l *Loader) Active() *HeuristicsConfig {
	return l.active.Load()
}

// IsLoaded reports whether a validated config is currently installed.
func (l *Loader) IsLoaded() bool {
	return l.active.Load() != nil
}

// Load reads, validates, and installs the config file. A missing file is a
// no-op fallback, not an error: the loader stays unloaded and downstream
// consumers use built-in defaults. A present-but-invalid file returns the
// collected validation errors without installing anything.
func (l *Loader) Load() (*HeuristicsConfig, error) {
	return l.load()
}

// Reload re-reads the config file. Non-destructive on failure: if the new
// content fails validation, the previously installed snapshot stays active
// and the validation errors are returned.
func (l *Loader) Reload() (*HeuristicsConfig, error) {
	return l.load()
}

func (l *Loader) load() (*HeuristicsConfig, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	raw, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	result := ValidateConfigWith(raw, l.rules)
	if !result.Valid {
		return nil, fmt.Errorf("config validation failed: %s", strings.Join(result.Errors, "; "))
	}

	cfg := applyEnvOverrides(result.Config)
	if errs := checkInvariants(cfg, l.rules); len(errs) > 0 {
		return nil, fmt.Errorf("config invalid after env overrides: %s", strings.Join(errs, "; "))
	}

	l.active.Store(cfg)
	return cfg, nil
}

// applyEnvOverrides returns a copy of cfg with any HEURISTIC_* environment
// overrides applied. The base snapshot is never mutated. Overrides that
// reference unknown heuristics or fail to parse as floats are ignored.
func applyEnvOverrides(cfg *HeuristicsConfig) *HeuristicsConfig {
	out := cfg.Clone()
	for _, entry := range os.Environ() {
		key, value, ok := strings.Cut(entry, "=")
		if !ok || !strings.HasPrefix(key, envPrefix) {
			continue
		}
		id, field, name, ok := parseOverrideKey(key)
		if !ok {
			continue
		}
		val, err := strconv.ParseFloat(value, 64)
		if err != nil {
			continue
		}
		hc, ok := out.Heuristics[id]
		if !ok {
			continue
		}
		switch field {
		case "WEIGHT":
			hc.Weights[name] = val
		case "THRESHOLD":
			hc.Thresholds[name] = val
		}
		out.Heuristics[id] = hc
	}
	return out
}

// parseOverrideKey splits HEURISTIC_<ID>_WEIGHT_<NAME> (or _THRESHOLD_) into
// its lowercase id, the field kind, and the lowercase leaf name.
func parseOverrideKey(key string) (id, field, name string, ok bool) {
	rest := strings.TrimPrefix(key, envPrefix)
	for _, marker := range []string{"_WEIGHT_", "_THRESHOLD_"} {
		idx := strings.Index(rest, marker)
		if idx <= 0 || idx+len(marker) >= len(rest) {
			continue
		}
		id = strings.ToLower(rest[:idx])
		field = strings.Trim(marker, "_")
		name = strings.ToLower(rest[idx+len(marker):])
		return id, field, name, true
	}
	return "", "", "", false
}
