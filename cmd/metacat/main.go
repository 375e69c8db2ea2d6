// Package main implements the metacat CLI.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/electwix/metacat/internal/catalog"
	"github.com/electwix/metacat/internal/cli"
	"github.com/electwix/metacat/internal/config"
	"github.com/electwix/metacat/internal/filter"
	_ "github.com/electwix/metacat/internal/introspect/builtin"
	"github.com/electwix/metacat/internal/logging"
	"github.com/electwix/metacat/internal/metadata"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, err := cli.Parse(args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			_, _ = fmt.Fprintln(stdout, err.Error())
			return 0
		}
		_, _ = fmt.Fprintln(stderr, err.Error())
		return 1
	}

	logger := logging.New(logging.Options{
		Verbose: opts.Verbose,
		JSON:    opts.JSONLog,
		Writer:  stderr,
	})

	res, err := config.Load(opts.ConfigPath, config.LoadOptions{Strict: opts.Strict})
	if err != nil {
		logger.Error("configuration failed", "error", err)
		return 1
	}
	for _, warning := range res.Warnings {
		logger.Warn(warning)
	}

	var objFilter *filter.Filter
	if opts.Filter != "" {
		objFilter, err = filter.Parse(opts.Filter)
		if err != nil {
			logger.Error("bad filter", "error", err)
			return 1
		}
	}

	cat, err := catalog.New(ctx, res.Plan, logger)
	if err != nil {
		logger.Error("connecting failed", "error", err)
		return 1
	}
	defer func() {
		if err := cat.Close(context.Background()); err != nil {
			logger.Warn("close failed", "error", err)
		}
	}()

	connID, err := cat.ResolveConnection(opts.Connection)
	if err != nil {
		logger.Error("unknown connection", "connection", opts.Connection)
		return 1
	}

	describe := func() error {
		return describeScope(ctx, cat, connID, opts, objFilter, stdout)
	}

	if err := describe(); err != nil {
		logger.Error("describe failed", "error", err)
		return 1
	}
	logger.Debug("cache stats", "size", cat.Stats().Size)

	if opts.Watch <= 0 {
		return 0
	}

	ticker := time.NewTicker(opts.Watch)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return 0
		case <-ticker.C:
			if err := describe(); err != nil {
				logger.Error("describe failed", "error", err)
				return 1
			}
			logger.Debug("cache stats", "size", cat.Stats().Size)
		}
	}
}

func describeScope(ctx context.Context, cat *catalog.Catalog, connID string, opts cli.Options, objFilter *filter.Filter, stdout io.Writer) error {
	switch {
	case opts.Object != "":
		obj, err := cat.DescribeObject(ctx, connID, opts.Database, opts.Schema, opts.Object)
		if err != nil {
			return err
		}
		printObject(stdout, *obj, "")
	case opts.Schema != "":
		schema, err := cat.DescribeSchema(ctx, connID, opts.Database, opts.Schema)
		if err != nil {
			return err
		}
		printSchema(stdout, *schema, objFilter)
	default:
		db, err := cat.DescribeDatabase(ctx, connID, opts.Database)
		if err != nil {
			return err
		}
		printDatabase(stdout, *db, objFilter)
	}
	return nil
}

func printDatabase(w io.Writer, db metadata.Database, f *filter.Filter) {
	fmt.Fprintf(w, "database %s", db.Name)
	if db.Owner != "" {
		fmt.Fprintf(w, " (owner %s)", db.Owner)
	}
	if db.Encoding != "" {
		fmt.Fprintf(w, " encoding %s", db.Encoding)
	}
	fmt.Fprintln(w)

	for _, schema := range db.Schemas {
		printSchema(w, schema, f)
	}
}

func printSchema(w io.Writer, schema metadata.Schema, f *filter.Filter) {
	fmt.Fprintf(w, "  schema %s\n", schema.Name)
	for _, obj := range schema.Objects {
		if f != nil && !f.Match(obj) {
			continue
		}
		printObject(w, obj, "    ")
	}
}

func printObject(w io.Writer, obj metadata.Object, indent string) {
	fmt.Fprintf(w, "%s%s %s", indent, obj.Kind, obj.Name)
	if obj.Kind == metadata.KindTable {
		fmt.Fprintf(w, " (~%d rows)", obj.EstimatedRows)
	}
	if obj.Comment != "" {
		fmt.Fprintf(w, " -- %s", obj.Comment)
	}
	fmt.Fprintln(w)

	for _, col := range obj.Columns {
		fmt.Fprintf(w, "%s  %-3d %s %s", indent, col.Position, col.Name, col.DataType)
		if !col.Nullable {
			fmt.Fprint(w, " NOT NULL")
		}
		if col.Default != nil {
			fmt.Fprintf(w, " DEFAULT %s", col.Default)
		}
		fmt.Fprintln(w)
	}
}
