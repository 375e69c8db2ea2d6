// Package postgres provides the PostgreSQL dialect introspector.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/electwix/metacat/internal/introspect"
	"github.com/electwix/metacat/internal/logging"
	"github.com/electwix/metacat/internal/metadata"
)

// Introspector reads catalog metadata from a live PostgreSQL server. It
// holds a connection pool so overlapping lookups never contend for one
// connection. The pool is bound to one database; asking for another
// database by name is an error rather than a silent cross-database query.
type Introspector struct {
	pool     *pgxpool.Pool
	database string
	logger   logging.Logger
}

// New connects to PostgreSQL with opts.DSN and returns its introspector.
func New(ctx context.Context, opts introspect.Options) (introspect.Introspector, error) {
	pool, err := pgxpool.New(ctx, opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	var database string
	if err := pool.QueryRow(ctx, "SELECT current_database()").Scan(&database); err != nil {
		pool.Close()
		return nil, fmt.Errorf("resolve current database: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}

	return &Introspector{pool: pool, database: database, logger: logger}, nil
}

// Name returns the dialect identifier.
func (i *Introspector) Name() string {
	return "postgres"
}

// DescribeDatabase describes the connection's database with every
// user-visible schema and its objects.
func (i *Introspector) DescribeDatabase(ctx context.Context, database string) (*metadata.Database, error) {
	if err := i.checkDatabase(database); err != nil {
		return nil, err
	}

	db := &metadata.Database{Name: i.database}
	err := i.pool.QueryRow(ctx,
		`SELECT pg_catalog.pg_get_userbyid(d.datdba), pg_catalog.pg_encoding_to_char(d.encoding)
		 FROM pg_catalog.pg_database d
		 WHERE d.datname = $1`, i.database).Scan(&db.Owner, &db.Encoding)
	if err != nil {
		return nil, fmt.Errorf("describe database %q: %w", i.database, err)
	}

	names, err := i.schemaNames(ctx)
	if err != nil {
		return nil, err
	}
	for _, name := range names {
		schema, err := i.DescribeSchema(ctx, i.database, name)
		if err != nil {
			return nil, err
		}
		db.Schemas = append(db.Schemas, *schema)
	}

	i.logger.Debug("described postgres database", "database", i.database, "schemas", len(db.Schemas))
	return db, nil
}

// DescribeSchema describes one schema with its tables and views.
func (i *Introspector) DescribeSchema(ctx context.Context, database, schema string) (*metadata.Schema, error) {
	if err := i.checkDatabase(database); err != nil {
		return nil, err
	}

	result := &metadata.Schema{Name: schema}
	err := i.pool.QueryRow(ctx,
		`SELECT pg_catalog.pg_get_userbyid(n.nspowner)
		 FROM pg_catalog.pg_namespace n
		 WHERE n.nspname = $1`, schema).Scan(&result.Owner)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("schema %q not found in database %q", schema, i.database)
	}
	if err != nil {
		return nil, fmt.Errorf("describe schema %q: %w", schema, err)
	}

	rows, err := i.pool.Query(ctx,
		`SELECT c.relname, c.relkind::text, GREATEST(c.reltuples, 0)::bigint,
		        COALESCE(obj_description(c.oid, 'pg_class'), '')
		 FROM pg_catalog.pg_class c
		 JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
		 WHERE n.nspname = $1 AND c.relkind IN ('r', 'p', 'v', 'm')
		 ORDER BY c.relname`, schema)
	if err != nil {
		return nil, fmt.Errorf("list objects of %q: %w", schema, err)
	}

	type stub struct {
		name, kind string
		rows       int64
		comment    string
	}
	var stubs []stub
	for rows.Next() {
		var s stub
		if err := rows.Scan(&s.name, &s.kind, &s.rows, &s.comment); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan object of %q: %w", schema, err)
		}
		stubs = append(stubs, s)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list objects of %q: %w", schema, err)
	}

	for _, s := range stubs {
		obj := metadata.Object{
			Name:          s.name,
			Kind:          relKind(s.kind),
			EstimatedRows: s.rows,
			Comment:       s.comment,
		}
		if err := i.loadColumns(ctx, schema, &obj); err != nil {
			return nil, err
		}
		result.Objects = append(result.Objects, obj)
	}

	return result, nil
}

// DescribeObject describes one table or view with its columns.
func (i *Introspector) DescribeObject(ctx context.Context, database, schema, object string) (*metadata.Object, error) {
	if err := i.checkDatabase(database); err != nil {
		return nil, err
	}

	obj := &metadata.Object{Name: object}
	var kind string
	err := i.pool.QueryRow(ctx,
		`SELECT c.relkind::text, GREATEST(c.reltuples, 0)::bigint,
		        COALESCE(obj_description(c.oid, 'pg_class'), '')
		 FROM pg_catalog.pg_class c
		 JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
		 WHERE n.nspname = $1 AND c.relname = $2 AND c.relkind IN ('r', 'p', 'v', 'm')`,
		schema, object).Scan(&kind, &obj.EstimatedRows, &obj.Comment)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("object %q not found in schema %q", object, schema)
	}
	if err != nil {
		return nil, fmt.Errorf("describe object %q.%q: %w", schema, object, err)
	}
	obj.Kind = relKind(kind)

	if err := i.loadColumns(ctx, schema, obj); err != nil {
		return nil, err
	}
	return obj, nil
}

func (i *Introspector) loadColumns(ctx context.Context, schema string, obj *metadata.Object) error {
	rows, err := i.pool.Query(ctx,
		`SELECT column_name, data_type, is_nullable, ordinal_position, COALESCE(column_default, '')
		 FROM information_schema.columns
		 WHERE table_schema = $1 AND table_name = $2
		 ORDER BY ordinal_position`, schema, obj.Name)
	if err != nil {
		return fmt.Errorf("read columns of %q.%q: %w", schema, obj.Name, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			col      metadata.Column
			nullable string
			dflt     string
		)
		if err := rows.Scan(&col.Name, &col.DataType, &nullable, &col.Position, &dflt); err != nil {
			return fmt.Errorf("scan column of %q.%q: %w", schema, obj.Name, err)
		}
		col.Nullable = nullable == "YES"
		col.Default = metadata.ParseDefault(dflt)
		obj.Columns = append(obj.Columns, col)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("read columns of %q.%q: %w", schema, obj.Name, err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (i *Introspector) Close(ctx context.Context) error {
	i.pool.Close()
	return nil
}

func (i *Introspector) checkDatabase(database string) error {
	if database != "" && database != i.database {
		return fmt.Errorf("connection is bound to database %q, cannot describe %q", i.database, database)
	}
	return nil
}

// schemaNames lists user-visible schemas, skipping the server-internal
// pg_catalog hierarchy.
func (i *Introspector) schemaNames(ctx context.Context) ([]string, error) {
	rows, err := i.pool.Query(ctx,
		`SELECT n.nspname
		 FROM pg_catalog.pg_namespace n
		 WHERE n.nspname NOT LIKE 'pg\_%' AND n.nspname <> 'information_schema'
		 ORDER BY n.nspname`)
	if err != nil {
		return nil, fmt.Errorf("list schemas: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan schema name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list schemas: %w", err)
	}
	return names, nil
}

func relKind(kind string) metadata.ObjectKind {
	switch kind {
	case "r", "p":
		return metadata.KindTable
	case "v":
		return metadata.KindView
	case "m":
		return metadata.KindMaterializedView
	default:
		return metadata.KindUnknown
	}
}

// Ensure Introspector implements introspect.Introspector interface
var _ introspect.Introspector = (*Introspector)(nil)
