// Package builtin registers all built-in dialect introspectors.
//
// Import this package to register the PostgreSQL and SQLite introspectors:
//
//	import _ "github.com/electwix/metacat/internal/introspect/builtin"
//
// This will make the dialects available via introspect.New().
package builtin

import (
	"github.com/electwix/metacat/internal/introspect"
	"github.com/electwix/metacat/internal/introspect/postgres"
	"github.com/electwix/metacat/internal/introspect/sqlite"
)

//nolint:gochecknoinits // Package registration via init is idiomatic for this use case
func init() {
	RegisterAll()
}

// RegisterAll registers all built-in dialect introspectors.
// This is called automatically on package import, but can also be called
// manually for testing or custom initialization.
func RegisterAll() {
	introspect.Register("sqlite", sqlite.New)
	introspect.Register("postgresql", postgres.New)
	introspect.Register("postgres", postgres.New) // Alias
}
