package server

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/hyperdeck/bridge/internal/safety"
)

// Reloader watches the safety policy file and hot-reloads the filter
// when it changes.
type Reloader struct {
	watcher *fsnotify.Watcher
	filter  *safety.Filter
	path    string
}

// NewReloader creates a file watcher for the policy file. A missing
// file is an error: hot reload only makes sense for a real file.
func NewReloader(filter *safety.Filter, path string) (*Reloader, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("policy file not watchable: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch %q: %w", path, err)
	}

	return &Reloader{
		watcher: watcher,
		filter:  filter,
		path:    path,
	}, nil
}

// Run watches for file changes and reloads the policy. Blocks until
// ctx is cancelled.
func (r *Reloader) Run(ctx context.Context) error {
	defer r.watcher.Close()

	// Debounce: wait 500ms after the last write before reloading
	var debounce *time.Timer

	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			return nil

		case event, ok := <-r.watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(500*time.Millisecond, r.reload)
			}

		case err, ok := <-r.watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("[reload] watcher error: %v", err)
		}
	}
}

func (r *Reloader) reload() {
	policy, err := safety.LoadPolicy(r.path)
	if err != nil {
		log.Printf("[reload] policy reload failed: %v", err)
		return
	}
	if err := r.filter.Reload(policy); err != nil {
		log.Printf("[reload] policy rejected: %v", err)
		return
	}
	log.Printf("[reload] safety policy reloaded from %s", r.path)
}
