package main

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	dbPath := filepath.Join(dir, "app.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("open fixture db: %v", err)
	}
	defer db.Close()
	if _, err := db.Exec(`
CREATE TABLE users (id INTEGER PRIMARY KEY, email TEXT NOT NULL);
CREATE VIEW emails AS SELECT email FROM users;
`); err != nil {
		t.Fatalf("create fixture schema: %v", err)
	}

	cfgPath := filepath.Join(dir, "metacat.toml")
	cfg := `
[[connection]]
name = "main"
dialect = "sqlite"
dsn = "` + dbPath + `"
`
	if err := os.WriteFile(cfgPath, []byte(cfg), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return cfgPath
}

func TestRun_DescribeDatabase(t *testing.T) {
	cfgPath := writeFixture(t)

	var stdout, stderr strings.Builder
	code := run(context.Background(), []string{"-config", cfgPath, "-conn", "main"}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("run() = %d, stderr: %s", code, stderr.String())
	}

	out := stdout.String()
	for _, want := range []string{"database main", "table users", "view emails", "NOT NULL"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRun_FilterViews(t *testing.T) {
	cfgPath := writeFixture(t)

	var stdout, stderr strings.Builder
	code := run(context.Background(),
		[]string{"-config", cfgPath, "-conn", "main", "-filter", "kind = view"}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("run() = %d, stderr: %s", code, stderr.String())
	}

	out := stdout.String()
	if strings.Contains(out, "table users") {
		t.Errorf("filtered output still contains tables:\n%s", out)
	}
	if !strings.Contains(out, "view emails") {
		t.Errorf("filtered output missing view:\n%s", out)
	}
}

func TestRun_DescribeObject(t *testing.T) {
	cfgPath := writeFixture(t)

	var stdout, stderr strings.Builder
	code := run(context.Background(),
		[]string{"-config", cfgPath, "-conn", "main", "-database", "main", "-schema", "main", "-object", "users"},
		&stdout, &stderr)
	if code != 0 {
		t.Fatalf("run() = %d, stderr: %s", code, stderr.String())
	}
	if !strings.Contains(stdout.String(), "table users") {
		t.Errorf("output missing object:\n%s", stdout.String())
	}
}

func TestRun_UnknownConnection(t *testing.T) {
	cfgPath := writeFixture(t)

	var stdout, stderr strings.Builder
	if code := run(context.Background(), []string{"-config", cfgPath, "-conn", "ghost"}, &stdout, &stderr); code != 1 {
		t.Errorf("run() = %d, want 1", code)
	}
}

func TestRun_BadFlags(t *testing.T) {
	var stdout, stderr strings.Builder
	if code := run(context.Background(), []string{"-schema", "public"}, &stdout, &stderr); code != 1 {
		t.Errorf("run() = %d, want 1", code)
	}
}

func TestRun_Help(t *testing.T) {
	var stdout, stderr strings.Builder
	if code := run(context.Background(), []string{"-h"}, &stdout, &stderr); code != 0 {
		t.Errorf("run() = %d, want 0", code)
	}
	if !strings.Contains(stdout.String(), "Usage of metacat") {
		t.Errorf("help output missing usage:\n%s", stdout.String())
	}
}

func TestRun_MissingConfig(t *testing.T) {
	var stdout, stderr strings.Builder
	if code := run(context.Background(), []string{"-config", "absent.toml", "-conn", "main"}, &stdout, &stderr); code != 1 {
		t.Errorf("run() = %d, want 1", code)
	}
}
