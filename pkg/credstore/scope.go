package credstore

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrNotFound is returned by Scope.Get for keys that are not set.
	ErrNotFound = errors.New("credstore: not found")

	// ErrEmptyToken is returned when SetTokens is given no access token.
	ErrEmptyToken = errors.New("credstore: empty access token")
)

// Scope is a string key-value storage area with its own lifetime: the
// long-lived scope survives restarts, the session scope lives as long as the
// user's session. Implementations must be safe for concurrent use, and
// Delete must succeed for keys that do not exist.
type Scope interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// MemoryScope is an in-process Scope. The zero value is not usable; call
// NewMemoryScope.
type MemoryScope struct {
	mu   sync.RWMutex
	data map[string]string
}

func NewMemoryScope() *MemoryScope {
	return &MemoryScope{data: make(map[string]string)}
}

func (m *MemoryScope) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.data[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (m *MemoryScope) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data[key] = value
	return nil
}

func (m *MemoryScope) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.data, key)
	return nil
}

// Len reports the number of stored keys.
func (m *MemoryScope) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}
