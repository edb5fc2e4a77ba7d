package fit

import (
	"sync"

	"github.com/Faultbox/elastic-fit/pkg/mesh"
)

// Registry tracks which garments have a session in preview. At most one
// session may preview a given garment at a time.
type Registry struct {
	mu     sync.Mutex
	active map[*mesh.Mesh]*Session
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{active: make(map[*mesh.Mesh]*Session)}
}

// DefaultRegistry is used by sessions created without an explicit registry.
var DefaultRegistry = NewRegistry()

func (r *Registry) acquire(m *mesh.Mesh, s *Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if owner, ok := r.active[m]; ok && owner != s {
		return false
	}
	r.active[m] = s
	return true
}

func (r *Registry) release(m *mesh.Mesh, s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active[m] == s {
		delete(r.active, m)
	}
}

// Locked reports whether m is being previewed by a session.
func (r *Registry) Locked(m *mesh.Mesh) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.active[m]
	return ok
}
