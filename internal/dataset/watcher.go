package dataset

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"breathplat/internal/logging"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// ListFiles returns the names of the parseable files directly inside dir,
// sorted.
func ListFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !Supported(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Watcher watches the data directory and publishes the current file listing
// whenever parseable files appear, change or disappear. Bursts of events are
// collapsed into one update.
type Watcher struct {
	mu          sync.Mutex
	watcher     *fsnotify.Watcher
	dir         string
	debounceDur time.Duration
	pending     bool
	lastEvent   time.Time
	updates     chan []string
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool
}

// NewWatcher creates a watcher for dir. Call Start to begin watching.
func NewWatcher(dir string) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		watcher:     w,
		dir:         dir,
		debounceDur: 200 * time.Millisecond,
		updates:     make(chan []string, 1),
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// Updates delivers file listings. Only the latest listing is kept if the
// consumer falls behind.
func (w *Watcher) Updates() <-chan []string {
	return w.updates
}

// Start adds the directory to the watch list and runs the event loop in a
// goroutine.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := w.watcher.Add(w.dir); err != nil {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		return fmt.Errorf("failed to watch %s: %w", w.dir, err)
	}
	logging.Get(logging.CategoryDataset).Info("watching data directory", zap.String("dir", w.dir))

	go w.run(ctx)
	return nil
}

// Stop stops the event loop and waits for it to exit.
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
		logging.Get(logging.CategoryDataset).Warn("failed to close watcher", zap.Error(err))
	}
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.debounceDur / 2)
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
			logging.Get(logging.CategoryDataset).Warn("watcher error", zap.Error(err))
		case <-ticker.C:
			w.flush()
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}
	if !Supported(filepath.Base(event.Name)) {
		return
	}
	logging.Get(logging.CategoryDataset).Debug("data file event",
		zap.String("path", event.Name), zap.String("op", event.Op.String()))
	w.pending = true
	w.lastEvent = time.Now()
}

// flush publishes a listing once events have been quiet for the debounce
// window.
func (w *Watcher) flush() {
	if !w.pending || time.Since(w.lastEvent) < w.debounceDur {
		return
	}
	w.pending = false

	names, err := ListFiles(w.dir)
	if err != nil {
		logging.Get(logging.CategoryDataset).Warn("failed to list data directory", zap.Error(err))
		return
	}
	// drop a stale listing the consumer has not read yet
	select {
	case <-w.updates:
	default:
	}
	w.updates <- names
}
