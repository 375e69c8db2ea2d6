package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNew_DefaultLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Options{Writer: &buf})

	logger.Debug("debug suppressed")
	if got := buf.Len(); got != 0 {
		t.Fatalf("expected debug output to be suppressed, got %d bytes", got)
	}

	logger.Info("visible message")
	if out := buf.String(); !strings.Contains(out, "visible message") {
		t.Fatalf("expected info log to contain message, got %q", out)
	}
}

func TestNew_VerboseEnablesDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Options{Verbose: true, Writer: &buf})

	logger.Debug("debug visible")
	if out := buf.String(); !strings.Contains(out, "debug visible") {
		t.Fatalf("expected debug output when verbose, got %q", out)
	}
}

func TestNew_JSONHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Options{JSON: true, Writer: &buf})

	logger.Info("structured", "key", "value")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("expected JSON output, got %q: %v", buf.String(), err)
	}
	if record["msg"] != "structured" {
		t.Errorf("msg = %v, want %q", record["msg"], "structured")
	}
	if record["key"] != "value" {
		t.Errorf("key = %v, want %q", record["key"], "value")
	}
}

func TestWith_AttachesAttributes(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Options{Writer: &buf}).With("connection", "main")

	logger.Info("described")
	if out := buf.String(); !strings.Contains(out, "connection=main") {
		t.Fatalf("expected attached attribute in output, got %q", out)
	}
}

func TestNop_DiscardsEverything(t *testing.T) {
	logger := Nop()

	// Must not panic and must return a usable child logger.
	logger.Debug("a")
	logger.Info("b")
	logger.Warn("c")
	logger.Error("d")
	logger.With("k", "v").Info("e")
}
