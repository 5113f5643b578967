package manifest

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// ReloadCallback is invoked after the manifest file changes, re-parses, and
// re-validates. Callback errors are logged; they do not undo the reload.
type ReloadCallback func(*Manifest) error

// ErrWatcherClosed is returned when a closed watcher is closed again.
var ErrWatcherClosed = errors.New("manifest: watcher already closed")

// Watcher monitors the manifest file and triggers reload callbacks. Rapid
// editor events are debounced, and the parent directory is watched so
// atomic writes (temp file + rename) are detected.
type Watcher struct {
	ctx           context.Context
	cancel        context.CancelFunc
	fsWatcher     *fsnotify.Watcher
	path          string
	debounceDelay time.Duration

	mu        sync.Mutex
	callbacks []ReloadCallback
	timer     *time.Timer
	closed    bool
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounceDelay overrides the 100ms default debounce window.
func WithDebounceDelay(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.debounceDelay = d
	}
}

// NewWatcher creates a watcher for the manifest at path.
func NewWatcher(path string, opts ...WatcherOption) (*Watcher, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		ctx:           ctx,
		cancel:        cancel,
		fsWatcher:     fsWatcher,
		path:          absPath,
		debounceDelay: 100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(w)
	}

	if err := fsWatcher.Add(filepath.Dir(absPath)); err != nil {
		cancel()
		if closeErr := fsWatcher.Close(); closeErr != nil {
			log.Error().Err(closeErr).Msg("failed to close watcher after add failure")
		}
		return nil, err
	}

	return w, nil
}

// Path returns the absolute path being watched.
func (w *Watcher) Path() string {
	return w.path
}

// OnReload registers a callback. Callbacks run in registration order.
func (w *Watcher) OnReload(cb ReloadCallback) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, cb)
}

// Watch blocks processing file events until the context is canceled.
// Only Write and Create events for the manifest file trigger a reload;
// Chmod noise from indexers is ignored.
func (w *Watcher) Watch(ctx context.Context) error {
	target := filepath.Base(w.path)

	for {
		select {
		case <-ctx.Done():
			w.stopTimer()
			return nil

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != target {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				w.scheduleReload()
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return nil
			}
			log.Error().Err(err).Msg("manifest watcher error")
		}
	}
}

// scheduleReload arms (or re-arms) the debounce timer.
func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounceDelay, func() {
		select {
		case <-w.ctx.Done():
			return // Closed while the timer was pending.
		default:
		}
		w.reload()
	})
}

func (w *Watcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
}

// reload re-parses and re-validates the manifest, then invokes callbacks.
// A manifest that fails to parse or validate is rejected; the previous one
// stays in effect.
func (w *Watcher) reload() {
	m, err := Load(w.path)
	if err != nil {
		log.Error().Err(err).Str("path", w.path).Msg("manifest reload failed")
		return
	}
	if err := m.Validate(); err != nil {
		log.Error().Err(err).Str("path", w.path).Msg("reloaded manifest is invalid, keeping previous")
		return
	}

	log.Info().Str("path", w.path).Msg("manifest reloaded")

	w.mu.Lock()
	callbacks := make([]ReloadCallback, len(w.callbacks))
	copy(callbacks, w.callbacks)
	w.mu.Unlock()

	for _, cb := range callbacks {
		if err := cb(m); err != nil {
			log.Error().Err(err).Msg("manifest reload callback error")
		}
	}
}

// Close stops watching. Returns ErrWatcherClosed if already closed.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrWatcherClosed
	}
	w.closed = true
	w.cancel()
	return w.fsWatcher.Close()
}
