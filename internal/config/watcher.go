package config

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher hot-reloads a Loader when its backing file changes on disk.
// It watches the file's parent directory rather than the file itself, since
// editors typically replace files via rename. Events are debounced so a
// burst of writes triggers a single reload.
type Watcher struct {
	loader   *Loader
	debounce time.Duration

	// OnReload, when set, is invoked after every reload attempt with the
	// installed snapshot (nil when the file disappeared) and any error.
	OnReload func(cfg *HeuristicsConfig, err error)

	mu      sync.Mutex
	fw      *fsnotify.Watcher
	done    chan struct{}
	running bool
}

// NewWatcher creates a watcher for the loader's config path.
// Debounce defaults to 250ms when non-positive.
func NewWatcher(loader *Loader, debounce time.Duration) *Watcher {
	if debounce <= 0 {
		debounce = 250 * time.Millisecond
	}
	return &Watcher{loader: loader, debounce: debounce}
}

// Start begins watching. Calling Start on a running watcher is a no-op.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating fsnotify watcher: %w", err)
	}

	dir := filepath.Dir(w.loader.Path())
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return fmt.Errorf("watching %s: %w", dir, err)
	}

	w.fw = fw
	w.done = make(chan struct{})
	w.running = true

	go w.loop(fw, w.done)
	return nil
}

// Stop cancels watching. Safe to call multiple times or before Start.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return
	}
	close(w.done)
	w.fw.Close()
	w.fw = nil
	w.running = false
}

func (w *Watcher) loop(fw *fsnotify.Watcher, done chan struct{}) {
	target := filepath.Clean(w.loader.Path())

	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-done:
			if timer != nil {
				timer.Stop()
			}
			return
		case event, ok := <-fw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				timer.Reset(w.debounce)
			}
		case <-timerC:
			timer = nil
			timerC = nil
			cfg, err := w.loader.Reload()
			if err != nil {
				fmt.Printf("Warning: config reload failed, keeping previous config: %v\n", err)
			}
			if w.OnReload != nil {
				w.OnReload(cfg, err)
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			fmt.Printf("Warning: config watcher error: %v\n", err)
		}
	}
}
