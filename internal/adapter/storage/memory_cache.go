package storage

import (
	"context"
	"sync"
	"time"

	"github.com/rl1809/visio/internal/port"
)

var _ port.CacheRepository = (*MemoryCache)(nil)

// MemoryCache is the in-process CacheRepository used when no Redis is configured.
// Claims are only visible to the current process.
type MemoryCache struct {
	mu   sync.Mutex
	keys map[string]time.Time
	now  func() time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{keys: make(map[string]time.Time), now: time.Now}
}

func (m *MemoryCache) SetIdempotency(_ context.Context, key string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if expires, ok := m.keys[key]; ok && now.Before(expires) {
		return false, nil
	}
	m.keys[key] = now.Add(ttl)

	if len(m.keys) > 1024 {
		m.evictLocked(now)
	}
	return true, nil
}

func (m *MemoryCache) ReleaseIdempotency(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.keys, key)
	m.mu.Unlock()
	return nil
}

func (m *MemoryCache) evictLocked(now time.Time) {
	for key, expires := range m.keys {
		if !now.Before(expires) {
			delete(m.keys, key)
		}
	}
}
