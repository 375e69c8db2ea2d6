// Package metadata defines the domain model produced by live database
// introspection: databases, schemas, catalog objects, and columns.
package metadata

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// NewConnectionID mints an opaque identifier for a configured connection
// that does not declare one. IDs are treated as plain strings everywhere
// downstream, most importantly inside cache keys.
func NewConnectionID() string {
	return uuid.NewString()
}

// Database describes one database on a connection.
type Database struct {
	Name     string
	Owner    string
	Encoding string
	Schemas  []Schema
}

// Schema describes one namespace within a database.
type Schema struct {
	Name    string
	Owner   string
	Objects []Object
}

// ObjectKind categorizes a catalog object.
type ObjectKind string

const (
	KindTable            ObjectKind = "table"
	KindView             ObjectKind = "view"
	KindMaterializedView ObjectKind = "materialized view"
	KindUnknown          ObjectKind = "unknown"
)

// Object describes one catalog object (table, view, ...) in a schema.
type Object struct {
	Name          string
	Kind          ObjectKind
	EstimatedRows int64
	Comment       string
	Columns       []Column
}

// Column describes one column of a catalog object.
type Column struct {
	Name     string
	DataType string
	Nullable bool
	Position int
	Default  *Default
}

// Default carries a column default expression. Numeric literals are parsed
// into an exact decimal so callers comparing defaults never see float
// drift; everything else stays raw.
type Default struct {
	Raw       string
	Numeric   decimal.Decimal
	IsNumeric bool
}

// ParseDefault interprets a raw default expression. It returns nil for an
// absent default. Postgres-style type suffixes like "0.05::numeric" are
// stripped before the numeric parse.
func ParseDefault(raw string) *Default {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	d := &Default{Raw: raw}

	literal := raw
	if i := strings.Index(literal, "::"); i >= 0 {
		literal = literal[:i]
	}
	literal = strings.Trim(literal, "()'")

	if num, err := decimal.NewFromString(literal); err == nil {
		d.Numeric = num
		d.IsNumeric = true
	}
	return d
}

// String renders the default for display: exact decimal form for numeric
// defaults, the raw expression otherwise.
func (d *Default) String() string {
	if d == nil {
		return ""
	}
	if d.IsNumeric {
		return d.Numeric.String()
	}
	return d.Raw
}
