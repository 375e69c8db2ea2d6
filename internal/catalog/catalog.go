// Package catalog ties configured connections, dialect introspectors, and
// the hierarchical cache into the metadata service the CLI consumes.
//
// Every Describe call is served from the cache when possible; misses funnel
// into a single introspection per key. Refresh drops everything known about
// one connection, which is the recovery path for reconnects and
// out-of-band schema changes.
package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/electwix/metacat/internal/cache"
	"github.com/electwix/metacat/internal/config"
	"github.com/electwix/metacat/internal/introspect"
	"github.com/electwix/metacat/internal/logging"
	"github.com/electwix/metacat/internal/metadata"
)

// connection pairs a resolved config entry with its live introspector.
type connection struct {
	plan config.Connection
	insp introspect.Introspector
}

// fetchOptions translates the connection's TTL policy for the cache.
func (c *connection) fetchOptions() []cache.FetchOption {
	if c.plan.TTL.Forever {
		return nil
	}
	return []cache.FetchOption{cache.WithTTL(c.plan.TTL.Duration)}
}

// Catalog serves cached metadata for a set of configured connections.
type Catalog struct {
	cache  *cache.Cache
	conns  map[string]*connection
	byName map[string]string
	logger logging.Logger
}

// New connects every configured connection and builds the catalog.
// Connections opened before a failure are closed again.
func New(ctx context.Context, plan config.Plan, logger logging.Logger) (*Catalog, error) {
	if logger == nil {
		logger = logging.Nop()
	}

	c := &Catalog{
		cache:  cache.New(),
		conns:  make(map[string]*connection, len(plan.Connections)),
		byName: make(map[string]string, len(plan.Connections)),
		logger: logger,
	}

	for _, cp := range plan.Connections {
		insp, err := introspect.New(ctx, string(cp.Dialect), introspect.Options{
			DSN:    cp.DSN,
			Logger: logger.With("connection", cp.Name),
		})
		if err != nil {
			_ = c.Close(ctx)
			return nil, fmt.Errorf("connection %q: %w", cp.Name, err)
		}
		c.conns[cp.ID] = &connection{plan: cp, insp: insp}
		c.byName[cp.Name] = cp.ID
		logger.Debug("connection ready", "connection", cp.Name, "dialect", cp.Dialect, "id", cp.ID)
	}

	return c, nil
}

// ErrUnknownConnection reports a connection id or name the catalog does not
// manage.
var ErrUnknownConnection = errors.New("unknown connection")

// ResolveConnection maps a configured connection name to its id. The id
// itself is also accepted.
func (c *Catalog) ResolveConnection(nameOrID string) (string, error) {
	if id, ok := c.byName[nameOrID]; ok {
		return id, nil
	}
	if _, ok := c.conns[nameOrID]; ok {
		return nameOrID, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownConnection, nameOrID)
}

// ConnectionIDs returns the ids of all managed connections.
func (c *Catalog) ConnectionIDs() []string {
	ids := make([]string, 0, len(c.conns))
	for id := range c.conns {
		ids = append(ids, id)
	}
	return ids
}

// DescribeDatabase returns the cached description of one database,
// introspecting it on a miss.
func (c *Catalog) DescribeDatabase(ctx context.Context, connID, database string) (*metadata.Database, error) {
	conn, err := c.connection(connID)
	if err != nil {
		return nil, err
	}

	key := cache.BuildKey(connID, database, "", "")
	v, err := c.cache.GetOrFetch(ctx, key, func(ctx context.Context) (any, error) {
		c.logger.Debug("introspecting database", "connection", conn.plan.Name, "database", database)
		return conn.insp.DescribeDatabase(ctx, database)
	}, conn.fetchOptions()...)
	if err != nil {
		return nil, err
	}
	return v.(*metadata.Database), nil
}

// DescribeSchema returns the cached description of one schema.
func (c *Catalog) DescribeSchema(ctx context.Context, connID, database, schema string) (*metadata.Schema, error) {
	conn, err := c.connection(connID)
	if err != nil {
		return nil, err
	}

	key := cache.BuildKey(connID, database, schema, "")
	v, err := c.cache.GetOrFetch(ctx, key, func(ctx context.Context) (any, error) {
		c.logger.Debug("introspecting schema", "connection", conn.plan.Name, "database", database, "schema", schema)
		return conn.insp.DescribeSchema(ctx, database, schema)
	}, conn.fetchOptions()...)
	if err != nil {
		return nil, err
	}
	return v.(*metadata.Schema), nil
}

// DescribeObject returns the cached description of one catalog object.
func (c *Catalog) DescribeObject(ctx context.Context, connID, database, schema, object string) (*metadata.Object, error) {
	conn, err := c.connection(connID)
	if err != nil {
		return nil, err
	}

	key := cache.BuildKey(connID, database, schema, object)
	v, err := c.cache.GetOrFetch(ctx, key, func(ctx context.Context) (any, error) {
		c.logger.Debug("introspecting object", "connection", conn.plan.Name, "object", object)
		return conn.insp.DescribeObject(ctx, database, schema, object)
	}, conn.fetchOptions()...)
	if err != nil {
		return nil, err
	}
	return v.(*metadata.Object), nil
}

// Refresh drops every cached entry under one connection. The next Describe
// call re-introspects. An introspection already in flight is not canceled
// and will still land afterward; that brief staleness window is accepted.
func (c *Catalog) Refresh(ctx context.Context, connID string) error {
	conn, err := c.connection(connID)
	if err != nil {
		return err
	}
	c.logger.Info("invalidating connection cache", "connection", conn.plan.Name)
	c.cache.InvalidateConnection(ctx, connID)
	return nil
}

// Evict drops one cached entry by its exact key.
func (c *Catalog) Evict(ctx context.Context, key string) {
	c.cache.Invalidate(ctx, key)
}

// Clear drops every cached entry for every connection.
func (c *Catalog) Clear(ctx context.Context) {
	c.cache.Clear(ctx)
}

// Stats reports current cache occupancy.
func (c *Catalog) Stats() cache.Stats {
	return c.cache.Stats()
}

// Close releases every connection. The first error wins; the rest are
// still closed.
func (c *Catalog) Close(ctx context.Context) error {
	var firstErr error
	for _, conn := range c.conns {
		if err := conn.insp.Close(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (c *Catalog) connection(connID string) (*connection, error) {
	conn, ok := c.conns[connID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownConnection, connID)
	}
	return conn, nil
}
