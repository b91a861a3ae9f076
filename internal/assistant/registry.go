package assistant

import (
	"sync"

	"github.com/google/uuid"

	"foxshelf/pkg/ai"
)

// Registry keeps assistant sessions in memory, keyed by session ID.
// Sessions live for the process lifetime.
type Registry struct {
	gen     ai.StreamGenerator
	catalog CatalogReader
	author  string

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry builds an empty session registry.
func NewRegistry(gen ai.StreamGenerator, catalog CatalogReader, author string) *Registry {
	return &Registry{
		gen:      gen,
		catalog:  catalog,
		author:   author,
		sessions: make(map[string]*Session),
	}
}

// Acquire returns the session for id, creating one when id is empty or
// unknown.
func (r *Registry) Acquire(id string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id != "" {
		if s, ok := r.sessions[id]; ok {
			return s
		}
	}
	if id == "" {
		id = uuid.NewString()
	}
	s := NewSession(id, r.gen, r.catalog, r.author)
	r.sessions[id] = s
	return s
}

// Get returns the session for id when it exists.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	return s, ok
}
