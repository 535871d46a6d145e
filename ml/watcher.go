package ml

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// WatchModel invokes onChange whenever the artifact at path is rewritten.
// The watch is placed on the parent directory because trainers replace the
// file via rename rather than writing it in place.
func WatchModel(ctx context.Context, path string, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return err
	}

	go func() {
		defer watcher.Close()
		target := filepath.Clean(path)
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				onChange()

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				zap.S().Warnf("Model watcher error: %v", err)

			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}
