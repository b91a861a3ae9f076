package session

import (
	"sync"
	"time"

	"foxshelf/internal/util"
	"foxshelf/pkg/domain"
)

// Store issues and resolves opaque session tokens for the signed-in author.
// Only one identity is ever authorized, but tokens are still per-session so
// sign-out and expiry behave normally.
type Store interface {
	NewSession(id domain.Identity) (string, error)
	GetIdentity(token string) (domain.Identity, bool, error)
	DeleteSession(token string) error
}

// MemoryStore keeps sessions in process memory with TTL.
type MemoryStore struct {
	ttl time.Duration

	mu   sync.Mutex
	sess map[string]memorySession
}

type memorySession struct {
	identity  domain.Identity
	expiresAt time.Time
}

// NewMemoryStore builds an in-process session store.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &MemoryStore{ttl: ttl, sess: make(map[string]memorySession)}
}

// NewSession creates a token bound to the identity.
func (m *MemoryStore) NewSession(id domain.Identity) (string, error) {
	token := util.NewID()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sess[token] = memorySession{identity: id, expiresAt: time.Now().Add(m.ttl)}
	return token, nil
}

// GetIdentity resolves a token to the held identity.
func (m *MemoryStore) GetIdentity(token string) (domain.Identity, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sess[token]
	if !ok {
		return domain.Identity{}, false, nil
	}
	if time.Now().After(s.expiresAt) {
		delete(m.sess, token)
		return domain.Identity{}, false, nil
	}
	return s.identity, true, nil
}

// DeleteSession removes a token.
func (m *MemoryStore) DeleteSession(token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sess, token)
	return nil
}
