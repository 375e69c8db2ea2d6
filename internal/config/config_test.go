package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/electwix/metacat/internal/introspect"
	_ "github.com/electwix/metacat/internal/introspect/builtin"
)

func init() {
	// Dialect validation consults the registry, so a dialect registered by
	// any package is accepted without touching this one.
	introspect.Register("memdb", func(ctx context.Context, opts introspect.Options) (introspect.Introspector, error) {
		return nil, errors.New("memdb is validate-only")
	})
}

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_TOML(t *testing.T) {
	path := writeConfig(t, "metacat.toml", `
[cache]
default_ttl = "1m"

[[connection]]
id = "conn1"
name = "main"
dialect = "sqlite"
dsn = "app.db"

[[connection]]
name = "analytics"
dialect = "postgres"
dsn = "postgres://localhost/analytics"
ttl = "30s"
`)

	res, err := Load(path, LoadOptions{})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(res.Warnings) != 0 {
		t.Errorf("Warnings = %v, want none", res.Warnings)
	}

	want := Plan{
		DefaultTTL: TTL{Duration: time.Minute},
		Connections: []Connection{
			{ID: "conn1", Name: "main", Dialect: DialectSQLite, DSN: "app.db", TTL: TTL{Duration: time.Minute}},
			{Name: "analytics", Dialect: DialectPostgres, DSN: "postgres://localhost/analytics", TTL: TTL{Duration: 30 * time.Second}},
		},
	}
	ignoreMintedIDs := cmpopts.IgnoreFields(Connection{}, "ID")
	if diff := cmp.Diff(want.Connections[1:], res.Plan.Connections[1:], ignoreMintedIDs); diff != "" {
		t.Errorf("connections mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want.Connections[0], res.Plan.Connections[0]); diff != "" {
		t.Errorf("explicit-id connection mismatch (-want +got):\n%s", diff)
	}
	if res.Plan.DefaultTTL != want.DefaultTTL {
		t.Errorf("DefaultTTL = %+v, want %+v", res.Plan.DefaultTTL, want.DefaultTTL)
	}

	// Connections without an explicit id get a generated one.
	if res.Plan.Connections[1].ID == "" {
		t.Error("expected a minted connection id")
	}
}

func TestLoad_YAML(t *testing.T) {
	path := writeConfig(t, "metacat.yaml", `
cache:
  default_ttl: never
connection:
  - name: main
    dialect: sqlite
    dsn: app.db
`)

	res, err := Load(path, LoadOptions{})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if !res.Plan.DefaultTTL.Forever {
		t.Errorf("DefaultTTL = %+v, want Forever", res.Plan.DefaultTTL)
	}
	if got := len(res.Plan.Connections); got != 1 {
		t.Fatalf("len(Connections) = %d, want 1", got)
	}
	if !res.Plan.Connections[0].TTL.Forever {
		t.Errorf("TTL = %+v, want inherited Forever", res.Plan.Connections[0].TTL)
	}
}

func TestLoad_UnknownKeys(t *testing.T) {
	content := `
[cache]
default_ttl = "1m"
sweep = "10m"

[[connection]]
name = "main"
dialect = "sqlite"
dsn = "app.db"
driver = "modernc"
`

	t.Run("warns by default", func(t *testing.T) {
		path := writeConfig(t, "metacat.toml", content)

		res, err := Load(path, LoadOptions{})
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if len(res.Warnings) != 1 {
			t.Fatalf("Warnings = %v, want exactly one", res.Warnings)
		}
		for _, key := range []string{"cache.sweep", "connection[0].driver"} {
			if !strings.Contains(res.Warnings[0], key) {
				t.Errorf("warning %q missing key %q", res.Warnings[0], key)
			}
		}
	})

	t.Run("strict fails", func(t *testing.T) {
		path := writeConfig(t, "metacat.toml", content)

		if _, err := Load(path, LoadOptions{Strict: true}); err == nil {
			t.Error("expected error under Strict")
		}
	})
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "no connections",
			content: "[cache]\ndefault_ttl = \"1m\"\n",
			wantErr: "at least one",
		},
		{
			name: "missing name",
			content: `[[connection]]
dialect = "sqlite"
dsn = "app.db"
`,
			wantErr: "name is required",
		},
		{
			name: "duplicate names",
			content: `[[connection]]
name = "main"
dialect = "sqlite"
dsn = "a.db"

[[connection]]
name = "main"
dialect = "sqlite"
dsn = "b.db"
`,
			wantErr: "duplicate connection name",
		},
		{
			name: "unsupported dialect",
			content: `[[connection]]
name = "main"
dialect = "oracle"
dsn = "x"
`,
			wantErr: "unsupported dialect",
		},
		{
			name: "missing dsn",
			content: `[[connection]]
name = "main"
dialect = "sqlite"
`,
			wantErr: "dsn is required",
		},
		{
			name: "bad ttl",
			content: `[[connection]]
name = "main"
dialect = "sqlite"
dsn = "app.db"
ttl = "sometimes"
`,
			wantErr: "invalid duration",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, "metacat.toml", tt.content)

			_, err := Load(path, LoadOptions{})
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_RegisteredDialect(t *testing.T) {
	path := writeConfig(t, "metacat.toml", `
[[connection]]
name = "scratch"
dialect = "memdb"
dsn = "mem://"
`)

	res, err := Load(path, LoadOptions{})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := res.Plan.Connections[0].Dialect; got != "memdb" {
		t.Errorf("Dialect = %q, want %q", got, "memdb")
	}
}

func TestParseTTL(t *testing.T) {
	fallback := TTL{Duration: time.Minute}

	tests := []struct {
		in      string
		want    TTL
		wantErr bool
	}{
		{in: "", want: fallback},
		{in: "never", want: TTL{Forever: true}},
		{in: "NEVER", want: TTL{Forever: true}},
		{in: "0", want: TTL{}},
		{in: "45s", want: TTL{Duration: 45 * time.Second}},
		{in: "1h30m", want: TTL{Duration: 90 * time.Minute}},
		{in: "often", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseTTL(tt.in, fallback)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("parseTTL(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("parseTTL(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.toml"), LoadOptions{}); err == nil {
		t.Error("expected error for missing file")
	}
}
