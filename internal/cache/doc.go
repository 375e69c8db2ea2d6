// Package cache provides the hierarchical TTL cache that shields live
// catalog introspection.
//
// The cache maps colon-delimited hierarchical keys (connection, database,
// schema, catalog object) to opaque values with per-entry expiry. Lookups
// that miss are funneled through a single-flight fetch so a concurrent
// flurry of requests for the same key runs the expensive producer exactly
// once. Entire key families can be evicted by prefix, which is how a
// reconnect or an out-of-band schema change invalidates everything known
// about one connection.
//
// Usage:
//
//	c := cache.New()
//	key := cache.BuildKey(connID, "app", "public", "")
//	v, err := c.GetOrFetch(ctx, key, fetchSchema, cache.WithTTL(5*time.Minute))
//	...
//	c.InvalidateConnection(ctx, connID) // user reconnected
package cache
