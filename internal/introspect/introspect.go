// Package introspect defines the dialect abstraction for reading live
// catalog metadata out of a database connection.
//
// Each supported dialect (postgres, sqlite) implements the Introspector
// interface and registers a Factory. Introspection is deliberately the
// slow, thorough path; callers are expected to sit it behind the cache.
//
// Usage:
//
//	insp, err := introspect.New(ctx, "sqlite", introspect.Options{DSN: path})
//	if err != nil {
//	    return err
//	}
//	db, err := insp.DescribeDatabase(ctx, "main")
package introspect

import (
	"context"

	"github.com/electwix/metacat/internal/logging"
	"github.com/electwix/metacat/internal/metadata"
)

// Options carries dialect-independent construction parameters.
type Options struct {
	// DSN is the dialect-specific connection string.
	DSN string
	// Logger receives introspection progress at debug level; defaults to a
	// no-op logger when nil.
	Logger logging.Logger
}

// Introspector reads catalog metadata from one live connection.
// Implementations must be safe for concurrent use; every method may issue
// queries and should be treated as expensive.
type Introspector interface {
	// Name returns the dialect identifier (e.g. "postgres", "sqlite").
	Name() string

	// DescribeDatabase returns the full description of a database,
	// including all schemas and their objects.
	DescribeDatabase(ctx context.Context, database string) (*metadata.Database, error)

	// DescribeSchema returns one schema with its objects.
	DescribeSchema(ctx context.Context, database, schema string) (*metadata.Schema, error)

	// DescribeObject returns one catalog object with its columns.
	DescribeObject(ctx context.Context, database, schema, object string) (*metadata.Object, error)

	// Close releases the underlying connection.
	Close(ctx context.Context) error
}
