package tokenstore

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory token store used by tests and by runs that
// are started without a state database.
type MemoryStore struct {
	mu     sync.RWMutex
	tokens map[string]Token
	now    func() time.Time
}

// NewMemoryStore creates a new in-memory token store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tokens: make(map[string]Token),
		now:    time.Now,
	}
}

func (m *MemoryStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[key] = Token{
		Key:       key,
		Value:     value,
		ExpiresAt: ExpiryFor(m.now(), ttl),
	}
	return nil
}

func (m *MemoryStore) Get(_ context.Context, key string) (*Token, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tok, ok := m.tokens[key]
	if !ok {
		return nil, ErrTokenNotFound
	}
	if tok.expiredAt(m.now()) {
		return nil, ErrTokenExpired
	}
	return &tok, nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tokens, key)
	return nil
}

func (m *MemoryStore) Cleanup(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	count := 0
	for k, tok := range m.tokens {
		if tok.expiredAt(now) {
			delete(m.tokens, k)
			count++
		}
	}
	return count, nil
}
