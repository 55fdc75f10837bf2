package engine

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchDebounce coalesces the event bursts editors produce on save.
const watchDebounce = 250 * time.Millisecond

// Watch invalidates the caches whenever one of the given source
// directories changes, until ctx is cancelled. Directories that do not
// exist yet are skipped; if none can be watched an error is returned.
func (e *Engine) Watch(ctx context.Context, dirs ...string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	watched := 0
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			continue
		}
		if err := watcher.Add(dir); err != nil {
			e.log.Warn("watch failed", "dir", dir, "error", err)
			continue
		}
		watched++
	}
	if watched == 0 {
		watcher.Close()
		return errors.New("no watchable source directories")
	}

	go func() {
		defer watcher.Close()

		var debounce *time.Timer
		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(watchDebounce, func() {
					e.log.Debug("source changed, dropping caches", "path", event.Name)
					e.Invalidate()
				})

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				e.log.Warn("watch error", "error", err)
			}
		}
	}()
	return nil
}
