package cache

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"
)

// FetchFunc produces the value for a key on a cache miss. It may block for
// as long as it likes; the cache places no timeout on it.
type FetchFunc func(ctx context.Context) (any, error)

// FetchOption tunes a single GetOrFetch call.
type FetchOption func(*fetchOptions)

type fetchOptions struct {
	ttl    time.Duration
	hasTTL bool
}

// WithTTL bounds the lifetime of the fetched entry. Without it the entry
// never expires. A zero or negative ttl is legal and means "always
// refetch": the entry is written but already expired at the next lookup.
func WithTTL(ttl time.Duration) FetchOption {
	return func(o *fetchOptions) {
		o.ttl = ttl
		o.hasTTL = true
	}
}

// Cache is a hierarchical TTL cache with single-flight fetch deduplication
// and prefix-scoped invalidation. The zero value is not usable; construct
// with New.
type Cache struct {
	store  Store
	flight singleflight.Group
}

// Option configures a Cache.
type Option func(*Cache)

// WithStore replaces the default in-memory store.
func WithStore(s Store) Option {
	return func(c *Cache) { c.store = s }
}

// New creates a Cache backed by a MemoryStore unless overridden.
func New(opts ...Option) *Cache {
	c := &Cache{}
	for _, opt := range opts {
		opt(c)
	}
	if c.store == nil {
		c.store = NewMemoryStore()
	}
	return c
}

// GetOrFetch returns the cached value for key, or runs fetch to produce it.
//
// For any key, across any number of concurrent callers observing the same
// miss or expiry window, fetch executes at most once; every caller sees
// that single outcome. A successful fetch is stored before anyone observes
// it; a failed fetch stores nothing, so the next call retries from scratch.
//
// The owning fetch runs to completion even if ctx is canceled. A caller
// that merely joined an in-flight fetch may abandon its wait via ctx
// without affecting the owner or the other waiters.
func (c *Cache) GetOrFetch(ctx context.Context, key string, fetch FetchFunc, opts ...FetchOption) (any, error) {
	if value, ok := c.store.Get(ctx, key); ok {
		return value, nil
	}

	var fo fetchOptions
	for _, opt := range opts {
		opt(&fo)
	}

	ch := c.flight.DoChan(key, func() (any, error) {
		// A caller can race past the lookup above while another flight for
		// the same key settles; re-checking under the flight keeps the
		// producer from running against a freshly populated entry.
		if value, ok := c.store.Get(ctx, key); ok {
			return value, nil
		}

		value, err := fetch(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}

		if fo.hasTTL {
			c.store.Set(ctx, key, value, fo.ttl)
		} else {
			c.store.SetIndefinite(ctx, key, value)
		}
		return value, nil
	})

	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Invalidate removes the single entry for key. A fetch already in flight
// for that key is not canceled; its result still lands in the cache once it
// completes, so a logically invalidated value can briefly reappear. That
// staleness window is accepted behavior.
func (c *Cache) Invalidate(ctx context.Context, key string) {
	c.store.Delete(ctx, key)
}

// InvalidateConnection removes every entry under the given connection,
// however deep its key hierarchy goes. The key for the connection alone
// carries no trailing separator, so the prefix sweep cannot see it; it is
// deleted explicitly.
func (c *Cache) InvalidateConnection(ctx context.Context, connectionID string) {
	c.store.Delete(ctx, BuildKey(connectionID, "", "", ""))
	c.store.DeleteByPrefix(ctx, ConnectionPrefix(connectionID))
}

// Clear removes all entries.
func (c *Cache) Clear(ctx context.Context) {
	c.store.Clear(ctx)
}

// Stats reports cache occupancy for diagnostics and tests.
type Stats struct {
	// Size counts stored entries, including expired ones that have not been
	// swept. It reports table occupancy, not logical liveness.
	Size int
}

// Stats returns current cache statistics. Not used for cache decisions.
func (c *Cache) Stats() Stats {
	return Stats{Size: c.store.Len()}
}
