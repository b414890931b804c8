package config

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"
)

// DefaultWatchInterval is how often a [Watcher] polls its file.
const DefaultWatchInterval = 5 * time.Second

// Reload describes one accepted edit of the config file.
type Reload struct {
	Old, New *Config
	Diff     ConfigDiff
}

// Watcher polls a config file and reports edits that change settings. Each
// edit goes through the same environment overlay and validation as [Load];
// an invalid edit is logged and the previous config stays current.
type Watcher struct {
	path     string
	interval time.Duration
	onReload func(Reload)

	mu      sync.Mutex
	current *Config
	sum     [sha256.Size]byte
}

// WatcherOption configures a [Watcher].
type WatcherOption func(*Watcher)

// WithInterval overrides [DefaultWatchInterval]. Non-positive values are
// ignored.
func WithInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// NewWatcher loads path and returns a watcher for it. Polling starts with
// [Watcher.Run]. onReload may be nil.
func NewWatcher(path string, onReload func(Reload), opts ...WatcherOption) (*Watcher, error) {
	w := &Watcher{path: path, interval: DefaultWatchInterval, onReload: onReload}
	for _, opt := range opts {
		opt(w)
	}
	cfg, sum, err := w.read()
	if err != nil {
		return nil, fmt.Errorf("config: watch %s: %w", path, err)
	}
	w.current, w.sum = cfg, sum
	return w, nil
}

// Current returns the most recently accepted config.
func (w *Watcher) Current() *Config {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// Run polls until ctx is done. It always returns nil.
func (w *Watcher) Run(ctx context.Context) error {
	t := time.NewTicker(w.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			if _, err := w.Reload(); err != nil {
				slog.Warn("config reload rejected, keeping previous settings", "path", w.path, "err", err)
			}
		}
	}
}

// Reload re-reads the file once. It reports whether any setting changed and
// invokes the callback when one did. Rewrites with identical content, or
// content that parses to the same settings, are not reported.
func (w *Watcher) Reload() (bool, error) {
	cfg, sum, err := w.read()
	if err != nil {
		return false, err
	}

	w.mu.Lock()
	if sum == w.sum {
		w.mu.Unlock()
		return false, nil
	}
	old := w.current
	w.current, w.sum = cfg, sum
	w.mu.Unlock()

	d := Diff(old, cfg)
	if !d.Changed() {
		return false, nil
	}
	slog.Info("config reloaded", "path", w.path,
		"log_level_changed", d.LogLevelChanged,
		"min_duration_changed", d.MinDurationChanged,
		"restart_required", d.RestartRequired,
	)
	if w.onReload != nil {
		w.onReload(Reload{Old: old, New: cfg, Diff: d})
	}
	return true, nil
}

func (w *Watcher) read() (*Config, [sha256.Size]byte, error) {
	data, err := os.ReadFile(w.path)
	if err != nil {
		return nil, [sha256.Size]byte{}, err
	}
	cfg, err := parse(data, os.LookupEnv)
	if err != nil {
		return nil, [sha256.Size]byte{}, err
	}
	return cfg, sha256.Sum256(data), nil
}
