package store

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watch invalidates the cache whenever the dataset file is created, written, renamed or removed by
// another process.  The directory is watched rather than the file so atomic replacements are seen.
// Watch blocks until ctx is done.  ready, if not nil, is closed once the watch is established.
func (s *Store) Watch(ctx context.Context, ready chan<- struct{}) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(s.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch directory %s: %w", dir, err)
	}
	if ready != nil {
		close(ready)
	}
	filename := filepath.Base(s.path)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != filename {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove) {
				s.log.Info("dataset file changed, invalidating cache", zap.String("path", s.path), zap.String("op", event.Op.String()))
				s.Invalidate()
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.log.Warn("dataset watcher error", zap.String("path", s.path), zap.Error(err))
		}
	}
}
