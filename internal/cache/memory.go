package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

// memEntry is a stored value with its expiry deadline.
type memEntry struct {
	data      []byte
	expiresAt time.Time
}

func (e memEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// memoryStore is the in-process fallback backend. Expired entries are
// reaped lazily on access rather than by a janitor goroutine; the store
// only ever holds the working set of a single process, so unreaped entries
// are bounded by what callers actually write.
type memoryStore struct {
	mu      sync.RWMutex
	entries map[string]memEntry
}

func newMemoryStore() *memoryStore {
	return &memoryStore{entries: make(map[string]memEntry)}
}

func (m *memoryStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok {
		return nil, ErrMiss
	}
	if e.expired(time.Now()) {
		m.mu.Lock()
		// Re-check under the write lock: a concurrent Set may have
		// replaced the entry since the read.
		if cur, ok := m.entries[key]; ok && cur.expired(time.Now()) {
			delete(m.entries, key)
		}
		m.mu.Unlock()
		return nil, ErrMiss
	}
	return e.data, nil
}

func (m *memoryStore) Set(_ context.Context, key string, data []byte, ttl time.Duration) error {
	e := memEntry{data: data}
	if ttl > 0 {
		e.expiresAt = time.Now().Add(ttl)
	}

	m.mu.Lock()
	m.entries[key] = e
	m.mu.Unlock()
	return nil
}

func (m *memoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
	return nil
}

func (m *memoryStore) Exists(ctx context.Context, key string) (bool, error) {
	_, err := m.Get(ctx, key)
	if err != nil {
		return false, nil
	}
	return true, nil
}

func (m *memoryStore) Clear(_ context.Context, prefix string) error {
	m.mu.Lock()
	for k := range m.entries {
		if strings.HasPrefix(k, prefix) {
			delete(m.entries, k)
		}
	}
	m.mu.Unlock()
	return nil
}
