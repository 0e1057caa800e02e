package daemon

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/untoldecay/devlog/internal/paths"
)

// registryWatcher watches the pending-project registry so hook-side
// registrations are discovered without waiting for the next poll tick.
// The 5s poll remains the fallback when fsnotify is unavailable.
type registryWatcher struct {
	watcher   *fsnotify.Watcher
	debouncer *Debouncer
	target    string
}

// newRegistryWatcher watches the registry file's parent directory (catches
// creates and atomic renames) and debounces bursts into one onChange call.
func newRegistryWatcher(onChange func()) (*registryWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	target := paths.PendingProjectsFile()
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		_ = watcher.Close()
		return nil, err
	}

	return &registryWatcher{
		watcher:   watcher,
		debouncer: NewDebouncer(250*time.Millisecond, onChange),
		target:    target,
	}, nil
}

// start consumes events until ctx is canceled.
func (w *registryWatcher) start(ctx context.Context, logf func(string, ...interface{})) {
	go func() {
		for {
			select {
			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				if event.Name == w.target && event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
					w.debouncer.Trigger()
				}

			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				logf("Registry watcher error: %v", err)

			case <-ctx.Done():
				return
			}
		}
	}()
}

func (w *registryWatcher) close() {
	w.debouncer.Cancel()
	_ = w.watcher.Close()
}
