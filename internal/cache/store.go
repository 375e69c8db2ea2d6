package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Store is the key/value table underneath the cache. Implementations must
// be safe for concurrent use.
type Store interface {
	// Get returns the live value for key. An entry that exists but has
	// expired is a miss.
	Get(ctx context.Context, key string) (any, bool)
	// Set inserts or replaces the entry for key with an expiry of now+ttl.
	// A zero or negative ttl stores an entry that is already expired at the
	// next lookup.
	Set(ctx context.Context, key string, value any, ttl time.Duration)
	// SetIndefinite inserts or replaces the entry for key with no expiry.
	SetIndefinite(ctx context.Context, key string, value any)
	// Delete removes the entry for key if present.
	Delete(ctx context.Context, key string)
	// DeleteByPrefix removes every entry whose key starts with prefix.
	DeleteByPrefix(ctx context.Context, prefix string)
	// Clear removes all entries.
	Clear(ctx context.Context)
	// Len returns the number of entries in the table, including expired
	// entries that have not been swept.
	Len() int
}

// Entry is a stored value with its expiry deadline.
type Entry struct {
	Value     any
	ExpiresAt time.Time // zero means the entry never expires
}

// Live reports whether the entry is usable at now. An entry is live while
// its deadline is unset or strictly in the future.
func (e Entry) Live(now time.Time) bool {
	return e.ExpiresAt.IsZero() || now.Before(e.ExpiresAt)
}

// MemoryStore implements Store with a mutex-guarded map. Expiry is lazy:
// entries are checked at lookup time, never swept in the background. Sweep
// is available for explicit reclamation.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]Entry

	now func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items: make(map[string]Entry),
		now:   time.Now,
	}
}

// Get retrieves the live value for key.
func (m *MemoryStore) Get(ctx context.Context, key string) (any, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, ok := m.items[key]
	if !ok || !entry.Live(m.now()) {
		return nil, false
	}
	return entry.Value, true
}

// Set stores value under key, expiring ttl from now.
func (m *MemoryStore) Set(ctx context.Context, key string, value any, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.items[key] = Entry{
		Value:     value,
		ExpiresAt: m.now().Add(ttl),
	}
}

// SetIndefinite stores value under key with no expiry.
func (m *MemoryStore) SetIndefinite(ctx context.Context, key string, value any) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.items[key] = Entry{Value: value}
}

// Delete removes the entry for key.
func (m *MemoryStore) Delete(ctx context.Context, key string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.items, key)
}

// DeleteByPrefix removes every entry whose key starts with prefix.
func (m *MemoryStore) DeleteByPrefix(ctx context.Context, prefix string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for key := range m.items {
		if strings.HasPrefix(key, prefix) {
			delete(m.items, key)
		}
	}
}

// Clear removes all entries.
func (m *MemoryStore) Clear(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.items = make(map[string]Entry)
}

// Len returns table occupancy. Expired entries count until swept; liveness
// is a lookup-time concern.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.items)
}

// Sweep removes expired entries. It is purely a memory-reclamation aid and
// never changes what Get observes.
func (m *MemoryStore) Sweep() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for key, entry := range m.items {
		if !entry.Live(now) {
			delete(m.items, key)
		}
	}
}

// Ensure MemoryStore implements Store interface
var _ Store = (*MemoryStore)(nil)
