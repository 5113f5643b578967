package manifest

import "sync/atomic"

// Runtime provides atomic access to the manifest for hot reload. Readers
// call Get per operation; the watcher calls Store after a successful
// re-parse. A reader holding the old pointer keeps a consistent view while
// new operations see the updated manifest.
type Runtime struct {
	ptr atomic.Pointer[Manifest]
}

// NewRuntime creates a Runtime holding the given initial manifest.
func NewRuntime(initial *Manifest) *Runtime {
	r := &Runtime{}
	r.ptr.Store(initial)
	return r
}

// Get returns the current manifest. Lock-free; safe for concurrent use.
func (r *Runtime) Get() *Manifest {
	return r.ptr.Load()
}

// Store atomically swaps in a new manifest.
func (r *Runtime) Store(m *Manifest) {
	r.ptr.Store(m)
}

var _ RuntimeManifest = (*Runtime)(nil)
