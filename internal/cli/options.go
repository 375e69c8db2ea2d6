// Package cli parses metacat command-line options.
package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"
)

// Options carries the parsed command line.
type Options struct {
	ConfigPath string
	Connection string
	Database   string
	Schema     string
	Object     string
	Filter     string
	Watch      time.Duration
	Strict     bool
	Verbose    bool
	JSONLog    bool
	Args       []string
}

// Parse interprets args into Options.
func Parse(args []string) (Options, error) {
	const defaultConfig = "metacat.toml"

	opts := Options{
		ConfigPath: defaultConfig,
	}

	fs := flag.NewFlagSet("metacat", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&opts.ConfigPath, "config", opts.ConfigPath, "Path to configuration file (TOML or YAML)")
	fs.StringVar(&opts.ConfigPath, "c", opts.ConfigPath, "Path to configuration file (TOML or YAML)")
	fs.StringVar(&opts.Connection, "conn", "", "Connection name or id to describe")
	fs.StringVar(&opts.Database, "database", "", "Database to describe")
	fs.StringVar(&opts.Schema, "schema", "", "Schema to describe; requires -database")
	fs.StringVar(&opts.Object, "object", "", "Table or view to describe; requires -schema")
	fs.StringVar(&opts.Filter, "filter", "", `Object filter expression, e.g. 'kind = view and name ~ "pg_%"'`)
	fs.DurationVar(&opts.Watch, "watch", 0, "Re-describe on this interval until interrupted")
	fs.BoolVar(&opts.Strict, "strict-config", false, "Treat configuration warnings as errors")
	fs.BoolVar(&opts.Verbose, "verbose", false, "Enable verbose logging")
	fs.BoolVar(&opts.Verbose, "v", false, "Enable verbose logging")
	fs.BoolVar(&opts.JSONLog, "log-json", false, "Emit logs as JSON")

	if err := fs.Parse(args); err != nil {
		usage := Usage(fs)
		if errors.Is(err, flag.ErrHelp) {
			return Options{}, fmt.Errorf("%w\n\n%s", err, usage)
		}
		return Options{}, fmt.Errorf("%w\n\n%s", err, usage)
	}

	if opts.Connection == "" {
		return Options{}, fmt.Errorf("-conn is required\n\n%s", Usage(fs))
	}
	if opts.Schema != "" && opts.Database == "" {
		return Options{}, fmt.Errorf("-schema requires -database\n\n%s", Usage(fs))
	}
	if opts.Object != "" && opts.Schema == "" {
		return Options{}, fmt.Errorf("-object requires -schema\n\n%s", Usage(fs))
	}
	if opts.Watch < 0 {
		return Options{}, fmt.Errorf("-watch must be positive\n\n%s", Usage(fs))
	}

	opts.Args = fs.Args()
	return opts, nil
}

// Usage renders the flag set's help text.
func Usage(fs *flag.FlagSet) string {
	if fs == nil {
		return ""
	}
	var buf strings.Builder
	fmt.Fprintf(&buf, "Usage of %s:\n", fs.Name())
	out := fs.Output()
	fs.SetOutput(&buf)
	fs.PrintDefaults()
	fs.SetOutput(out)
	return buf.String()
}
