// Package config loads and validates the metacat configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	yaml "gopkg.in/yaml.v3"

	"github.com/electwix/metacat/internal/introspect"
	"github.com/electwix/metacat/internal/metadata"
)

// Dialect identifies a supported database dialect.
type Dialect string

const (
	// DialectPostgres targets PostgreSQL via jackc/pgx.
	DialectPostgres Dialect = "postgres"
	// DialectSQLite targets SQLite via modernc.org/sqlite.
	DialectSQLite Dialect = "sqlite"
)

// TTL is a resolved cache lifetime. Forever means entries never expire; a
// zero Duration with Forever unset means "always refetch".
type TTL struct {
	Duration time.Duration
	Forever  bool
}

// CacheConfig captures cache-wide settings.
type CacheConfig struct {
	// DefaultTTL applies to connections without their own ttl. Accepts a
	// Go duration string or "never".
	DefaultTTL string `toml:"default_ttl" yaml:"default_ttl"`
}

// ConnectionConfig mirrors one [[connection]] block.
type ConnectionConfig struct {
	ID      string `toml:"id" yaml:"id"`
	Name    string `toml:"name" yaml:"name"`
	Dialect string `toml:"dialect" yaml:"dialect"`
	DSN     string `toml:"dsn" yaml:"dsn"`
	TTL     string `toml:"ttl" yaml:"ttl"`
}

// Config mirrors the expected metacat configuration schema. The same shape
// is accepted as TOML (metacat.toml) or YAML (metacat.yaml).
type Config struct {
	Cache       CacheConfig        `toml:"cache" yaml:"cache"`
	Connections []ConnectionConfig `toml:"connection" yaml:"connection"`
}

// Connection is a fully-resolved connection entry.
type Connection struct {
	ID      string
	Name    string
	Dialect Dialect
	DSN     string
	TTL     TTL
}

// Plan is the fully-resolved configuration used by the catalog service.
type Plan struct {
	DefaultTTL  TTL
	Connections []Connection
}

// LoadOptions tunes config loading behavior.
type LoadOptions struct {
	// Strict treats configuration warnings (unknown keys) as errors.
	Strict bool
}

// Result wraps a loaded plan alongside any non-fatal warnings.
type Result struct {
	Plan     Plan
	Warnings []string
}

// defaultTTL applies when the config names none: long enough to absorb
// request bursts, short enough that out-of-band schema changes surface
// without manual invalidation.
const defaultTTL = 5 * time.Minute

// Load reads, validates, and resolves a metacat configuration file. YAML is
// accepted for `.yaml`/`.yml` paths; everything else parses as TOML.
func Load(path string, opts LoadOptions) (Result, error) {
	var res Result

	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return res, fmt.Errorf("read %s: %w", path, err)
	}

	var (
		cfg Config
		raw map[string]any
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return res, fmt.Errorf("%s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return res, fmt.Errorf("%s: %w", path, err)
		}
	default:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return res, fmt.Errorf("%s: %w", path, err)
		}
		if err := toml.Unmarshal(data, &raw); err != nil {
			return res, fmt.Errorf("%s: %w", path, err)
		}
	}

	if unknown := collectUnknownKeys(raw); len(unknown) > 0 {
		slices.Sort(unknown)
		message := fmt.Sprintf("%s: unknown configuration keys: %s", path, strings.Join(unknown, ", "))
		if opts.Strict {
			return res, errors.New(message)
		}
		res.Warnings = append(res.Warnings, message)
	}

	plan, err := resolve(path, cfg)
	if err != nil {
		return res, err
	}

	res.Plan = plan
	return res, nil
}

func resolve(path string, cfg Config) (Plan, error) {
	var plan Plan

	fallback := TTL{Duration: defaultTTL}
	def, err := parseTTL(cfg.Cache.DefaultTTL, fallback)
	if err != nil {
		return plan, fmt.Errorf("%s: cache.default_ttl: %w", path, err)
	}
	plan.DefaultTTL = def

	if len(cfg.Connections) == 0 {
		return plan, fmt.Errorf("%s: at least one [[connection]] is required", path)
	}

	seen := make(map[string]struct{}, len(cfg.Connections))
	for idx, cc := range cfg.Connections {
		if cc.Name == "" {
			return plan, fmt.Errorf("%s: connection[%d]: name is required", path, idx)
		}
		if _, dup := seen[cc.Name]; dup {
			return plan, fmt.Errorf("%s: duplicate connection name %q", path, cc.Name)
		}
		seen[cc.Name] = struct{}{}

		if !introspect.IsDialectSupported(cc.Dialect) {
			registered := introspect.ListRegistered()
			slices.Sort(registered)
			return plan, fmt.Errorf("%s: connection %q: unsupported dialect %q (registered: %s)",
				path, cc.Name, cc.Dialect, strings.Join(registered, ", "))
		}
		if cc.DSN == "" {
			return plan, fmt.Errorf("%s: connection %q: dsn is required", path, cc.Name)
		}

		ttl, err := parseTTL(cc.TTL, plan.DefaultTTL)
		if err != nil {
			return plan, fmt.Errorf("%s: connection %q: ttl: %w", path, cc.Name, err)
		}

		id := cc.ID
		if id == "" {
			id = metadata.NewConnectionID()
		}

		plan.Connections = append(plan.Connections, Connection{
			ID:      id,
			Name:    cc.Name,
			Dialect: Dialect(cc.Dialect),
			DSN:     cc.DSN,
			TTL:     ttl,
		})
	}

	return plan, nil
}

// parseTTL resolves a ttl string: empty means fallback, "never" disables
// expiry, anything else must be a Go duration ("0" is legal and means
// always refetch).
func parseTTL(s string, fallback TTL) (TTL, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "":
		return fallback, nil
	case "never":
		return TTL{Forever: true}, nil
	case "0":
		return TTL{}, nil
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return TTL{}, fmt.Errorf("invalid duration %q (or use \"never\")", s)
	}
	return TTL{Duration: d}, nil
}

var (
	knownTopKeys        = map[string]struct{}{"cache": {}, "connection": {}}
	knownCacheKeys      = map[string]struct{}{"default_ttl": {}}
	knownConnectionKeys = map[string]struct{}{"id": {}, "name": {}, "dialect": {}, "dsn": {}, "ttl": {}}
)

// connectionSections normalizes the decoded [[connection]] value: go-toml
// yields []map[string]any while yaml.v3 yields []any.
func connectionSections(value any) []map[string]any {
	switch entries := value.(type) {
	case []map[string]any:
		return entries
	case []any:
		sections := make([]map[string]any, 0, len(entries))
		for _, entry := range entries {
			if section, ok := entry.(map[string]any); ok {
				sections = append(sections, section)
			}
		}
		return sections
	default:
		return nil
	}
}

func collectUnknownKeys(raw map[string]any) []string {
	var unknown []string

	for key, value := range raw {
		if _, ok := knownTopKeys[key]; !ok {
			unknown = append(unknown, key)
			continue
		}

		switch key {
		case "cache":
			if section, ok := value.(map[string]any); ok {
				for sub := range section {
					if _, ok := knownCacheKeys[sub]; !ok {
						unknown = append(unknown, "cache."+sub)
					}
				}
			}
		case "connection":
			for idx, section := range connectionSections(value) {
				for sub := range section {
					if _, ok := knownConnectionKeys[sub]; !ok {
						unknown = append(unknown, fmt.Sprintf("connection[%d].%s", idx, sub))
					}
				}
			}
		}
	}

	return unknown
}
