package di

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/samber/do/v2"

	"github.com/devrig/devrig/internal/journal"
	"github.com/devrig/devrig/internal/manifest"
)

// ManifestService wraps the loaded manifest with hot-reload support.
// Commands read through the Runtime's atomic pointer, so a reload swaps
// the manifest without interrupting anything in flight.
type ManifestService struct {
	Runtime *manifest.Runtime
	path    string

	mu      sync.Mutex
	watcher *manifest.Watcher
}

// Get returns the current manifest via atomic load.
func (s *ManifestService) Get() *manifest.Manifest {
	return s.Runtime.Get()
}

// Path returns the manifest file path the service was loaded from.
func (s *ManifestService) Path() string {
	return s.path
}

// StartWatching creates the file watcher and begins watching the manifest.
// Each successful reload swaps the runtime pointer and lands a reload
// event in the journal, then runs any extra callbacks. Only long-running
// commands call this; one-shot commands never open a watcher. The context
// controls the watcher lifecycle. Calling StartWatching twice is a no-op.
func (s *ManifestService) StartWatching(ctx context.Context, j *journal.Journal, extra ...manifest.ReloadCallback) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.watcher != nil {
		return nil
	}

	watcher, err := manifest.NewWatcher(s.path)
	if err != nil {
		return fmt.Errorf("failed to watch manifest at %s: %w", s.path, err)
	}

	watcher.OnReload(func(m *manifest.Manifest) error {
		if err := m.Validate(); err != nil {
			return err
		}
		s.Runtime.Store(m)
		if j != nil {
			j.Publish(journal.Event{Kind: journal.KindReload, Message: "manifest reloaded"})
		}
		log.Info().Str("path", s.path).Msg("manifest hot-reloaded")
		return nil
	})
	for _, cb := range extra {
		watcher.OnReload(cb)
	}

	s.watcher = watcher
	go func() {
		if err := watcher.Watch(ctx); err != nil {
			log.Error().Err(err).Msg("manifest watcher error")
		}
	}()
	return nil
}

// Shutdown implements do.Shutdowner for graceful watcher cleanup.
func (s *ManifestService) Shutdown() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.watcher != nil {
		return s.watcher.Close()
	}
	return nil
}

// NewManifest loads and validates the manifest from the configured path.
// No watcher is opened here; StartWatching wires hot reload on demand.
func NewManifest(i do.Injector) (*ManifestService, error) {
	path := do.MustInvokeNamed[string](i, ManifestPathKey)

	m, err := manifest.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load manifest from %s: %w", path, err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}

	return &ManifestService{
		Runtime: manifest.NewRuntime(m),
		path:    path,
	}, nil
}
