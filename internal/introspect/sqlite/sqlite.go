// Package sqlite provides the SQLite dialect introspector.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "modernc.org/sqlite" // registers the "sqlite" database/sql driver

	"github.com/electwix/metacat/internal/introspect"
	"github.com/electwix/metacat/internal/logging"
	"github.com/electwix/metacat/internal/metadata"
)

// mainDatabase is the implicit database of an SQLite connection. SQLite has
// no server-side catalog of databases; the one attached file is "main".
const mainDatabase = "main"

// Introspector reads catalog metadata from an SQLite database file.
type Introspector struct {
	db     *sql.DB
	logger logging.Logger
}

// New opens the SQLite database named by opts.DSN (a file path or
// ":memory:") and returns its introspector.
func New(ctx context.Context, opts introspect.Options) (introspect.Introspector, error) {
	db, err := sql.Open("sqlite", opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", opts.DSN, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite %s: %w", opts.DSN, err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}

	return &Introspector{db: db, logger: logger}, nil
}

// Name returns the dialect identifier.
func (i *Introspector) Name() string {
	return "sqlite"
}

// DescribeDatabase describes the single "main" database. Any other name is
// an error since an SQLite connection is bound to one file.
func (i *Introspector) DescribeDatabase(ctx context.Context, database string) (*metadata.Database, error) {
	if database != "" && database != mainDatabase {
		return nil, fmt.Errorf("sqlite connection has no database %q (only %q)", database, mainDatabase)
	}

	schema, err := i.DescribeSchema(ctx, mainDatabase, mainDatabase)
	if err != nil {
		return nil, err
	}

	var encoding string
	if err := i.db.QueryRowContext(ctx, "PRAGMA encoding").Scan(&encoding); err != nil {
		return nil, fmt.Errorf("read sqlite encoding: %w", err)
	}

	return &metadata.Database{
		Name:     mainDatabase,
		Encoding: encoding,
		Schemas:  []metadata.Schema{*schema},
	}, nil
}

// DescribeSchema describes the single "main" schema with all its objects.
func (i *Introspector) DescribeSchema(ctx context.Context, database, schema string) (*metadata.Schema, error) {
	if err := i.checkScope(database, schema); err != nil {
		return nil, err
	}

	rows, err := i.db.QueryContext(ctx,
		`SELECT name, type FROM sqlite_master WHERE type IN ('table', 'view') AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list sqlite objects: %w", err)
	}
	defer rows.Close()

	type stub struct{ name, typ string }
	var stubs []stub
	for rows.Next() {
		var s stub
		if err := rows.Scan(&s.name, &s.typ); err != nil {
			return nil, fmt.Errorf("scan sqlite object: %w", err)
		}
		stubs = append(stubs, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list sqlite objects: %w", err)
	}

	result := &metadata.Schema{Name: mainDatabase}
	for _, s := range stubs {
		obj, err := i.describeObject(ctx, s.name, s.typ)
		if err != nil {
			return nil, err
		}
		result.Objects = append(result.Objects, *obj)
	}

	i.logger.Debug("described sqlite schema", "objects", len(result.Objects))
	return result, nil
}

// DescribeObject describes one table or view with its columns.
func (i *Introspector) DescribeObject(ctx context.Context, database, schema, object string) (*metadata.Object, error) {
	if err := i.checkScope(database, schema); err != nil {
		return nil, err
	}

	var typ string
	err := i.db.QueryRowContext(ctx,
		`SELECT type FROM sqlite_master WHERE name = ? AND type IN ('table', 'view')`, object).Scan(&typ)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("sqlite object %q not found", object)
	}
	if err != nil {
		return nil, fmt.Errorf("look up sqlite object %q: %w", object, err)
	}

	return i.describeObject(ctx, object, typ)
}

func (i *Introspector) describeObject(ctx context.Context, name, typ string) (*metadata.Object, error) {
	obj := &metadata.Object{
		Name: name,
		Kind: objectKind(typ),
	}

	rows, err := i.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", quoteIdent(name)))
	if err != nil {
		return nil, fmt.Errorf("read columns of %q: %w", name, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid     int
			colName string
			colType string
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &colName, &colType, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("scan column of %q: %w", name, err)
		}
		obj.Columns = append(obj.Columns, metadata.Column{
			Name:     colName,
			DataType: colType,
			Nullable: notNull == 0,
			Position: cid + 1,
			Default:  metadata.ParseDefault(dflt.String),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read columns of %q: %w", name, err)
	}

	if obj.Kind == metadata.KindTable {
		query := fmt.Sprintf("SELECT COUNT(*) FROM %s", quoteIdent(name))
		if err := i.db.QueryRowContext(ctx, query).Scan(&obj.EstimatedRows); err != nil {
			return nil, fmt.Errorf("count rows of %q: %w", name, err)
		}
	}

	return obj, nil
}

// Close releases the underlying connection.
func (i *Introspector) Close(ctx context.Context) error {
	return i.db.Close()
}

func (i *Introspector) checkScope(database, schema string) error {
	if database != "" && database != mainDatabase {
		return fmt.Errorf("sqlite connection has no database %q (only %q)", database, mainDatabase)
	}
	if schema != "" && schema != mainDatabase {
		return fmt.Errorf("sqlite database has no schema %q (only %q)", schema, mainDatabase)
	}
	return nil
}

func objectKind(typ string) metadata.ObjectKind {
	switch typ {
	case "table":
		return metadata.KindTable
	case "view":
		return metadata.KindView
	default:
		return metadata.KindUnknown
	}
}

// quoteIdent quotes an identifier for interpolation into PRAGMA and COUNT
// statements, which cannot take bound parameters in the identifier
// position.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// Ensure Introspector implements introspect.Introspector interface
var _ introspect.Introspector = (*Introspector)(nil)
