package storage

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	object  Object
	expires time.Time
}

// Memory keeps images in process memory. Entries expire after ttl; a zero
// ttl keeps them for the life of the process.
type Memory struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

func NewMemory(ttl time.Duration) *Memory {
	return &Memory{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (m *Memory) Put(ctx context.Context, roomID string, data []byte, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	key := newKey(roomID, contentType)
	entry := memoryEntry{object: Object{Data: append([]byte(nil), data...), ContentType: contentType}}
	if m.ttl > 0 {
		entry.expires = m.now().Add(m.ttl)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweepLocked()
	m.entries[key] = entry
	return PathPrefix + key, nil
}

func (m *Memory) Get(_ context.Context, key string) (Object, error) {
	if !validKey(key) {
		return Object{}, ErrNotFound
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[key]
	if !ok || m.expired(entry) {
		delete(m.entries, key)
		return Object{}, ErrNotFound
	}
	return entry.object, nil
}

func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *Memory) sweepLocked() {
	for key, entry := range m.entries {
		if m.expired(entry) {
			delete(m.entries, key)
		}
	}
}

func (m *Memory) expired(entry memoryEntry) bool {
	return !entry.expires.IsZero() && !m.now().Before(entry.expires)
}
