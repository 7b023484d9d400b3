package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/platinummonkey/noticias/pkg/observability"
)

// DefaultReloadDelay coalesces the bursts of events editors produce on save
const DefaultReloadDelay = 250 * time.Millisecond

// Watcher reloads the config file when it changes on disk. Only settings
// that are safe to change at runtime should be read from reloaded configs;
// listeners and connections keep the values they started with.
type Watcher struct {
	path     string
	delay    time.Duration
	logger   *observability.Logger
	onChange func(*Config)
	watcher  *fsnotify.Watcher
}

// NewWatcher watches the directory holding path so that files replaced by
// rename are still picked up
func NewWatcher(path string, logger *observability.Logger, onChange func(*Config)) (*Watcher, error) {
	if path == "" {
		return nil, fmt.Errorf("config file path is required")
	}
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", path, err)
	}

	return &Watcher{
		path:     filepath.Clean(path),
		delay:    DefaultReloadDelay,
		logger:   logger.WithField("config_file", path),
		onChange: onChange,
		watcher:  fw,
	}, nil
}

// Run processes file events until ctx is cancelled
func (w *Watcher) Run(ctx context.Context) {
	defer w.watcher.Close()

	var (
		timer   *time.Timer
		trigger <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.delay)
			} else {
				timer.Reset(w.delay)
			}
			trigger = timer.C
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.WithError(err).Warn("Config watcher error")
		case <-trigger:
			trigger = nil
			w.reload()
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		w.logger.WithError(err).Warn("Ignoring invalid config file change")
		return
	}
	w.logger.Info("Config file reloaded")
	if w.onChange != nil {
		w.onChange(cfg)
	}
}
