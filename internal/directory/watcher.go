package directory

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher invalidates the store cache when the directory file changes on
// disk, so a file refreshed by another process is picked up before the TTL
// expires. It watches the parent directory because wholesale replacement
// arrives as a rename onto the path, not a write to the open file.
type Watcher struct {
	mu          sync.Mutex
	watcher     *fsnotify.Watcher
	store       *Store
	log         *zap.Logger
	debounceMap map[string]time.Time
	debounceDur time.Duration
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool
}

// NewWatcher creates a watcher bound to the store's file.
func NewWatcher(store *Store, log *zap.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		watcher:     fsw,
		store:       store,
		log:         log,
		debounceMap: make(map[string]time.Time),
		debounceDur: 500 * time.Millisecond, // batch rapid replaces
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// Start begins watching. Non-blocking; the event loop runs until Stop or
// ctx cancellation. A failed watch registration is logged and the loop
// still starts, leaving TTL expiry as the only refresh path.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	dir := filepath.Dir(w.store.Path())
	if err := os.MkdirAll(dir, 0755); err != nil {
		w.log.Warn("failed to create watch directory", zap.String("dir", dir), zap.Error(err))
	}
	if err := w.watcher.Add(dir); err != nil {
		w.log.Warn("watch registration failed, cache refreshes on TTL only",
			zap.String("dir", dir), zap.Error(err))
	} else {
		w.log.Debug("watching directory file", zap.String("path", w.store.Path()))
	}

	go w.run(ctx)
	return nil
}

// Stop stops the watcher and waits for the event loop to drain. The
// fsnotify handle is closed whether or not Start ever ran.
func (w *Watcher) Stop() {
	w.mu.Lock()
	running := w.running
	w.running = false
	w.mu.Unlock()

	if running {
		close(w.stopCh)
		<-w.doneCh
	}

	if err := w.watcher.Close(); err != nil {
		w.log.Warn("error closing watcher", zap.Error(err))
	}
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("directory watch error", zap.Error(err))

		case <-ticker.C:
			w.flushSettled()
		}
	}
}

// handleEvent records an event against the store file for debounced
// processing. Events for sibling files (staging temps included) are
// ignored.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != filepath.Clean(w.store.Path()) {
		return
	}
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) == 0 {
		return
	}

	w.mu.Lock()
	w.debounceMap[event.Name] = time.Now()
	w.mu.Unlock()
}

// flushSettled invalidates the cache once events have settled past the
// debounce window.
func (w *Watcher) flushSettled() {
	w.mu.Lock()
	now := time.Now()
	settled := 0
	for path, at := range w.debounceMap {
		if now.Sub(at) >= w.debounceDur {
			delete(w.debounceMap, path)
			settled++
		}
	}
	w.mu.Unlock()

	if settled > 0 {
		w.store.Invalidate()
		w.log.Debug("directory file changed on disk, cache invalidated")
	}
}
