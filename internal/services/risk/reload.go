package risk

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"orus-risk/internal/logging"

	"github.com/fsnotify/fsnotify"
)

const reloadDebounce = 500 * time.Millisecond

// PolicyReloader swaps the active policy when its file changes on disk.
// An invalid file is logged and the previous policy stays active.
type PolicyReloader struct {
	watcher  *fsnotify.Watcher
	holder   *PolicyHolder
	path     string
	debounce time.Duration
	reloaded chan struct{}
}

// NewPolicyReloader watches the directory holding path so editors that
// replace the file by rename are picked up too.
func NewPolicyReloader(holder *PolicyHolder, path string) (*PolicyReloader, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		watcher.Close()
		return nil, fmt.Errorf("resolve policy path: %w", err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch %q: %w", abs, err)
	}
	return &PolicyReloader{
		watcher:  watcher,
		holder:   holder,
		path:     abs,
		debounce: reloadDebounce,
		reloaded: make(chan struct{}, 1),
	}, nil
}

// Reloaded fires after each reload attempt, successful or not.
func (r *PolicyReloader) Reloaded() <-chan struct{} {
	return r.reloaded
}

// Reload reads the file and swaps it in.
func (r *PolicyReloader) Reload() error {
	p, err := LoadPolicyFile(r.path)
	if err != nil {
		return err
	}
	return r.holder.Swap(p)
}

// Run blocks until ctx is cancelled.
func (r *PolicyReloader) Run(ctx context.Context) error {
	defer r.watcher.Close()
	log := logging.L(ctx).With("component", "policy_reloader", "path", r.path)

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
			if filepath.Clean(event.Name) != r.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(r.debounce, func() {
				if err := r.Reload(); err != nil {
					log.Error("policy reload failed", "error", err)
				} else {
					log.Info("policy reloaded")
				}
				select {
				case r.reloaded <- struct{}{}:
				default:
				}
			})

		case err, ok := <-r.watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn("file watcher error", "error", err)
		}
	}
}
