// Package watcher reloads the map dataset when its backing file changes.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 250 * time.Millisecond

// Reloader rebuilds the live dataset snapshot.
type Reloader interface {
	Reload(ctx context.Context) error
}

// ReloaderFunc adapts a function to Reloader.
type ReloaderFunc func(ctx context.Context) error

// Reload calls f.
func (f ReloaderFunc) Reload(ctx context.Context) error {
	return f(ctx)
}

// DatasetWatcher watches a single dataset file and triggers a reload once
// writes to it have settled for the debounce window.
type DatasetWatcher struct {
	path     string
	debounce time.Duration
	reloader Reloader
	logger   *slog.Logger
}

// New returns a watcher for path. A non-positive debounce uses the default.
func New(path string, debounce time.Duration, reloader Reloader, logger *slog.Logger) *DatasetWatcher {
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DatasetWatcher{
		path:     filepath.Clean(path),
		debounce: debounce,
		reloader: reloader,
		logger:   logger.With("component", "watcher", "path", path),
	}
}

// Run blocks until ctx is cancelled. The parent directory is watched rather
// than the file so atomic rename-over saves are seen too.
func (w *DatasetWatcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fsw.Close()

	if err := fsw.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(w.path), err)
	}
	w.logger.Info("watching dataset file", "debounce", w.debounce)

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			w.logger.Debug("dataset file changed", "op", event.Op.String())
			timer.Reset(w.debounce)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", "error", err)
		case <-timer.C:
			if err := w.reloader.Reload(ctx); err != nil {
				w.logger.Error("dataset reload failed, keeping previous snapshot", "error", err)
				continue
			}
			w.logger.Info("dataset reloaded after file change")
		}
	}
}

func (w *DatasetWatcher) relevant(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != w.path {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename)
}
