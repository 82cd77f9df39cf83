package config

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"dsclients/pkg/logging"
)

// DefaultDebounce is how long the watcher waits for further writes before signalling a change.
const DefaultDebounce = 500 * time.Millisecond

// FileWatcher signals when a parameter file changes.
//
// It watches the parent directory rather than the file itself so editors that
// save by renaming a temporary file are still picked up.
type FileWatcher struct {
	path     string
	debounce time.Duration
}

// NewFileWatcher creates a watcher for path.
func NewFileWatcher(path string, debounce time.Duration) *FileWatcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &FileWatcher{path: filepath.Clean(path), debounce: debounce}
}

// Watch sends on changes each time the file was written, created or renamed
// into place, after the debounce interval. It blocks until ctx is done and
// returns nil, or returns the error that stopped the watcher.
func (w *FileWatcher) Watch(ctx context.Context, changes chan<- struct{}) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	dir := filepath.Dir(w.path)
	if err := watcher.Add(dir); err != nil {
		return err
	}
	logging.Info("ConfigWatcher", "Watching %s for changes", w.path)

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			logging.Debug("ConfigWatcher", "Event %s on %s", event.Op, event.Name)
			timer.Reset(w.debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logging.Warn("ConfigWatcher", "Watcher error: %v", err)

		case <-timer.C:
			select {
			case changes <- struct{}{}:
			case <-ctx.Done():
				return nil
			}
		}
	}
}
