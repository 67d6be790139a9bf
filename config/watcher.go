package config

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 500 * time.Millisecond

// Watcher reloads a description when its file changes. Reloads are
// debounced; a file that fails to load is logged and skipped.
type Watcher struct {
	path     string
	debounce time.Duration
	log      *slog.Logger
	watcher  *fsnotify.Watcher
	changes  chan *File
	done     chan struct{}

	mu            sync.Mutex
	debounceTimer *time.Timer
	closed        bool
}

// WatcherOption configures a [Watcher].
type WatcherOption func(*Watcher)

// WithDebounce sets the quiet period after the last write before a reload.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.debounce = d
	}
}

// WithWatcherLogger sets the logger of the watcher.
func WithWatcherLogger(logger *slog.Logger) WatcherOption {
	return func(w *Watcher) {
		w.log = logger
	}
}

// NewWatcher starts watching the description at path.
//
// The directory is watched rather than the file, so that editors replacing
// the file on save are followed.
func NewWatcher(path string, opts ...WatcherOption) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path: %w", err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	w := &Watcher{
		path:     abs,
		debounce: defaultDebounce,
		log:      slog.New(slog.DiscardHandler),
		watcher:  fw,
		changes:  make(chan *File, 1),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to watch config directory: %w", err)
	}

	go w.watchLoop()

	return w, nil
}

// Changes delivers each successfully reloaded description. Only the latest
// pending description is kept.
func (w *Watcher) Changes() <-chan *File {
	return w.changes
}

func (w *Watcher) watchLoop() {
	defer close(w.done)

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			if filepath.Clean(event.Name) != w.path {
				continue
			}

			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				w.schedule()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Error("config watcher error", "error", err)
		}
	}
}

// schedule restarts the debounce timer.
func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}

	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}

	w.debounceTimer = time.AfterFunc(w.debounce, w.reload)
}

func (w *Watcher) reload() {
	f, err := Load(w.path)
	if err != nil {
		w.log.Error("failed to reload config", "path", w.path, "error", err)
		return
	}

	w.log.Info("config reloaded", "path", w.path, "items", len(f.Menu))

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}

	select {
	case <-w.changes:
	default:
	}
	w.changes <- f
}

// Close stops watching. Pending reloads are cancelled.
func (w *Watcher) Close() error {
	w.mu.Lock()
	w.closed = true
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.mu.Unlock()

	err := w.watcher.Close()
	<-w.done

	return err
}
