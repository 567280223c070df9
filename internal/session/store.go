package session

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrNotFound is returned by a Store when a session is missing or expired.
var ErrNotFound = errors.New("session not found")

// Identity is the authenticated caller attached to a session.
type Identity struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

// Store keeps server-side session state keyed by session id.
type Store interface {
	Save(ctx context.Context, sid string, id Identity, ttl time.Duration) error
	Load(ctx context.Context, sid string) (Identity, error)
	Delete(ctx context.Context, sid string) error
}

type memEntry struct {
	id      Identity
	expires time.Time
}

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memEntry
	now     func() time.Time
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memEntry), now: time.Now}
}

func (m *MemoryStore) Save(_ context.Context, sid string, id Identity, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[sid] = memEntry{id: id, expires: m.now().Add(ttl)}
	return nil
}

func (m *MemoryStore) Load(_ context.Context, sid string) (Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[sid]
	if !ok {
		return Identity{}, ErrNotFound
	}
	if !m.now().Before(e.expires) {
		delete(m.entries, sid)
		return Identity{}, ErrNotFound
	}
	return e.id, nil
}

func (m *MemoryStore) Delete(_ context.Context, sid string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, sid)
	return nil
}
