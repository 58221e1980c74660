package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "heuristics.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoader_MissingFileIsNoop(t *testing.T) {
	l := NewLoader(filepath.Join(t.TempDir(), "absent.yaml"), nil)

	cfg, err := l.Load()
	require.NoError(t, err, "missing file must not be an error")
	assert.Nil(t, cfg)
	assert.False(t, l.IsLoaded())
	assert.Nil(t, l.Active())
}

func TestLoader_LoadInstallsSnapshot(t *testing.T) {
	path := writeConfig(t, t.TempDir(), validYAML)
	l := NewLoader(path, nil)

	cfg, err := l.Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.True(t, l.IsLoaded())
	assert.Same(t, cfg, l.Active())
}

func TestLoader_ReloadFailureKeepsPrevious(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, validYAML)
	l := NewLoader(path, nil)

	first, err := l.Load()
	require.NoError(t, err)

	// Break the file: coherence weights no longer sum to 1.0.
	writeConfig(t, dir, `
version: "1.0"
heuristics:
  coherence:
    weights: {structural: 0.6}
    thresholds: {veto: 0.3, review: 0.6, approve: 0.8}
`)

	cfg, err := l.Reload()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Sum should equal 1.0")
	assert.Nil(t, cfg)
	assert.Same(t, first, l.Active(), "failed reload must keep last-known-good snapshot")
}

func TestLoader_ReloadReplacesSnapshot(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, validYAML)
	l := NewLoader(path, nil)

	first, err := l.Load()
	require.NoError(t, err)

	writeConfig(t, dir, `
version: "2.0"
heuristics:
  coherence:
    weights: {structural: 0.5, temporal: 0.5}
    thresholds: {veto: 0.2, review: 0.5, approve: 0.9}
`)

	second, err := l.Reload()
	require.NoError(t, err)
	assert.NotSame(t, first, second)
	assert.Equal(t, "2.0", l.Active().Version)
}

func TestLoader_EnvOverrides(t *testing.T) {
	t.Setenv("HEURISTIC_COHERENCE_THRESHOLD_VETO", "0.25")
	t.Setenv("HEURISTIC_AUTOMATION_READINESS_WEIGHT_VOLUME", "3.5")
	t.Setenv("HEURISTIC_COHERENCE_WEIGHT_STRUCTURAL", "not-a-number") // ignored
	t.Setenv("HEURISTIC_UNKNOWN_WEIGHT_X", "1.0")                     // unknown id ignored

	path := writeConfig(t, t.TempDir(), validYAML)
	l := NewLoader(path, nil)

	cfg, err := l.Load()
	require.NoError(t, err)
	assert.InDelta(t, 0.25, cfg.Heuristics["coherence"].Thresholds["veto"], 1e-9)
	assert.InDelta(t, 3.5, cfg.Heuristics["automation_readiness"].Weights["volume"], 1e-9)
	assert.InDelta(t, 0.4, cfg.Heuristics["coherence"].Weights["structural"], 1e-9)
}

func TestLoader_EnvOverrideRevalidated(t *testing.T) {
	// Override that breaks the coherence partition sum must reject the load
	// and leave the loader unloaded.
	t.Setenv("HEURISTIC_COHERENCE_WEIGHT_STRUCTURAL", "0.9")

	path := writeConfig(t, t.TempDir(), validYAML)
	l := NewLoader(path, nil)

	_, err := l.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after env overrides")
	assert.False(t, l.IsLoaded())
}

func TestParseOverrideKey(t *testing.T) {
	tests := []struct {
		key    string
		wantID string
		field  string
		name   string
		ok     bool
	}{
		{"HEURISTIC_COHERENCE_WEIGHT_STRUCTURAL", "coherence", "WEIGHT", "structural", true},
		{"HEURISTIC_AUTOMATION_READINESS_THRESHOLD_TIPPING_POINT", "automation_readiness", "THRESHOLD", "tipping_point", true},
		{"HEURISTIC_WEIGHT_", "", "", "", false},
		{"HEURISTIC_COHERENCE_SOMETHING_X", "", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			id, field, name, ok := parseOverrideKey(tt.key)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.wantID, id)
				assert.Equal(t, tt.field, field)
				assert.Equal(t, tt.name, name)
			}
		})
	}
}

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, validYAML)
	l := NewLoader(path, nil)
	_, err := l.Load()
	require.NoError(t, err)

	w := NewWatcher(l, 50*time.Millisecond)
	reloaded := make(chan *HeuristicsConfig, 1)
	w.OnReload = func(cfg *HeuristicsConfig, err error) {
		select {
		case reloaded <- cfg:
		default:
		}
	}
	require.NoError(t, w.Start())
	defer w.Stop()

	writeConfig(t, dir, `
version: "3.0"
heuristics:
  coherence:
    weights: {structural: 1.0}
    thresholds: {veto: 0.2, review: 0.5, approve: 0.9}
`)

	select {
	case cfg := <-reloaded:
		require.NotNil(t, cfg)
		assert.Equal(t, "3.0", cfg.Version)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not reload within timeout")
	}
}

func TestWatcher_StartStopIdempotent(t *testing.T) {
	l := NewLoader(filepath.Join(t.TempDir(), "heuristics.yaml"), nil)
	w := NewWatcher(l, 0)

	w.Stop() // before Start: no-op
	require.NoError(t, w.Start())
	require.NoError(t, w.Start()) // already running: no-op
	w.Stop()
	w.Stop() // twice: no-op
}
