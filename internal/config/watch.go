package config

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads the config file on change and hands the parsed result to a
// callback. Pattern state flips and custom rule additions take effect
// without a restart; the callback applies them through the registry's atomic
// snapshot swap.
type Watcher struct {
	watcher *fsnotify.Watcher
	path    string
	apply   func(*Config) error
}

// NewWatcher watches path. apply is called with each successfully parsed
// config.
func NewWatcher(path string, apply func(*Config) error) (*Watcher, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("cannot watch %q: %w", path, err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := w.Add(path); err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to watch %q: %w", path, err)
	}
	return &Watcher{watcher: w, path: path, apply: apply}, nil
}

// Run blocks until ctx is cancelled, applying reloads as the file changes.
// Writes are debounced so editors that truncate-then-write trigger a single
// reload.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	var debounce *time.Timer

	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(500*time.Millisecond, w.reload)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "config watcher error: %v\n", err)
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := LoadFile(w.path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config reload failed: %v\n", err)
		return
	}
	if err := w.apply(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "config reload rejected: %v\n", err)
	}
}
