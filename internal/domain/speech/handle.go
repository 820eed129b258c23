package speech

import (
	"sync"

	"github.com/google/uuid"
)

// Handle is a revocable reference to one synthesized audio payload. The
// bytes stay reachable through the registry until Release, which is
// idempotent; the server-side registry plays the role of an object URL.
type Handle struct {
	id       string
	mime     string
	data     []byte
	registry *Registry
	release  sync.Once
}

func (h *Handle) ID() string {
	return h.id
}

func (h *Handle) MIME() string {
	return h.mime
}

func (h *Handle) Bytes() []byte {
	return h.data
}

// URL is the path the transport serves this handle under.
func (h *Handle) URL() string {
	return "/api/audio/" + h.id
}

// Release revokes the handle. Safe to call more than once; only the first
// call unregisters.
func (h *Handle) Release() {
	h.release.Do(func() {
		if h.registry != nil {
			h.registry.remove(h.id)
		}
	})
}

// Registry tracks live audio handles for the HTTP transport to serve.
type Registry struct {
	mu      sync.RWMutex
	handles map[string]*Handle
}

func NewRegistry() *Registry {
	return &Registry{
		handles: make(map[string]*Handle),
	}
}

// Register wraps the payload in a fresh handle owned by the caller.
func (r *Registry) Register(data []byte, mime string) *Handle {
	handle := &Handle{
		id:       uuid.NewString(),
		mime:     mime,
		data:     data,
		registry: r,
	}
	r.mu.Lock()
	r.handles[handle.id] = handle
	r.mu.Unlock()
	return handle
}

// Lookup resolves a live handle by id.
func (r *Registry) Lookup(id string) (*Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	handle, ok := r.handles[id]
	return handle, ok
}

func (r *Registry) remove(id string) {
	r.mu.Lock()
	delete(r.handles, id)
	r.mu.Unlock()
}

// Close releases every live handle; used on teardown.
func (r *Registry) Close() {
	r.mu.Lock()
	handles := make([]*Handle, 0, len(r.handles))
	for _, h := range r.handles {
		handles = append(handles, h)
	}
	r.handles = make(map[string]*Handle)
	r.mu.Unlock()

	for _, h := range handles {
		h.release.Do(func() {})
	}
}
