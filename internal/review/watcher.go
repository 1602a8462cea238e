package review

import (
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"replydesk/internal/logging"
)

// Watcher monitors the inbox directory and reports when a new .xlsx export
// lands, so the interface can offer a reload. Rapid duplicate events from
// editors writing in chunks are debounced.
type Watcher struct {
	mu          sync.Mutex
	watcher     *fsnotify.Watcher
	dir         string
	debounceMap map[string]time.Time
	debounceDur time.Duration
	events      chan string
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool
}

// NewWatcher creates a watcher for the given inbox directory.
func NewWatcher(dir string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		watcher:     fsw,
		dir:         dir,
		debounceMap: make(map[string]time.Time),
		debounceDur: time.Second,
		events:      make(chan string, 8),
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// Events delivers the paths of newly written exports.
func (w *Watcher) Events() <-chan string {
	return w.events
}

// Start begins watching. Non-blocking.
func (w *Watcher) Start() error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.mu.Unlock()

	if err := w.watcher.Add(w.dir); err != nil {
		return err
	}

	// Only mark running once the loop goroutine is real; Stop waits on it.
	w.mu.Lock()
	w.running = true
	w.mu.Unlock()

	go w.loop()
	logging.Inbox("watching %s for new exports", w.dir)
	return nil
}

func (w *Watcher) loop() {
	defer close(w.doneCh)
	for {
		select {
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			name := filepath.Base(event.Name)
			if !strings.EqualFold(filepath.Ext(name), ".xlsx") || strings.HasPrefix(name, "~$") {
				continue
			}
			if !w.allow(event.Name) {
				continue
			}
			logging.Inbox("new export detected: %s", event.Name)
			select {
			case w.events <- event.Name:
			default:
				// Interface has not drained yet; one pending reload is enough.
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.InboxError("watch error: %v", err)
		}
	}
}

func (w *Watcher) allow(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	now := time.Now()
	if last, ok := w.debounceMap[path]; ok && now.Sub(last) < w.debounceDur {
		return false
	}
	w.debounceMap[path] = now
	return true
}

// Stop halts watching and releases the underlying watcher. Safe on a
// watcher that never started or whose Start failed.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		_ = w.watcher.Close()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	_ = w.watcher.Close()
	<-w.doneCh
	close(w.events)
}
