package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestParseOverridesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
workspace: /srv/papers
positions:
  backend: sqlite
session:
  handshake_timeout: 3s
  settle_delay: 0s
highlight:
  max_attempts: 5
documents:
  patterns: ["**/*.pdf"]
remote:
  ttl: 1h
`), "test-valid")
	if err != nil {
		t.Fatalf("parse valid config: %v", err)
	}
	if cfg.Workspace != "/srv/papers" {
		t.Fatalf("unexpected workspace: %q", cfg.Workspace)
	}
	if cfg.Session.HandshakeTimeout != 3*time.Second || cfg.Session.SettleDelay != 0 {
		t.Fatalf("unexpected session timings: %+v", cfg.Session)
	}
	if cfg.Highlight.RetryInterval != 300*time.Millisecond || cfg.Highlight.MaxAttempts != 5 {
		t.Fatalf("unexpected highlight settings: %+v", cfg.Highlight)
	}
	if !reflect.DeepEqual(cfg.Documents.Patterns, []string{"**/*.pdf"}) {
		t.Fatalf("unexpected patterns: %v", cfg.Documents.Patterns)
	}
	if !strings.HasSuffix(cfg.Positions.Path, "positions.db") {
		t.Fatalf("sqlite backend should default to a .db file, got %q", cfg.Positions.Path)
	}
	if cfg.Remote.TTL != time.Hour {
		t.Fatalf("unexpected ttl: %s", cfg.Remote.TTL)
	}
}

func TestLoadEmptyPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load defaults: %v", err)
	}
	if cfg.Session.HandshakeTimeout != 15*time.Second || cfg.Session.SettleDelay != 50*time.Millisecond {
		t.Fatalf("unexpected default timings: %+v", cfg.Session)
	}
	if cfg.Highlight.MaxAttempts != 20 || cfg.Positions.Backend != BackendJSON {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if !strings.HasSuffix(cfg.Positions.Path, "positions.json") {
		t.Fatalf("unexpected positions path: %q", cfg.Positions.Path)
	}
}

func TestLoadReadsFileAndExpandsHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	path := filepath.Join(t.TempDir(), "docview.yaml")
	if err := os.WriteFile(path, []byte("positions:\n  path: ~/state/pos.json\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if want := filepath.Join(home, "state", "pos.json"); cfg.Positions.Path != want {
		t.Fatalf("positions path = %q, want %q", cfg.Positions.Path, want)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil || !strings.Contains(err.Error(), "read config file") {
		t.Fatalf("expected read error, got: %v", err)
	}
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	_, err := Parse([]byte("colour: blue\n"), "test-unknown")
	if err == nil || !strings.Contains(err.Error(), "parse YAML") {
		t.Fatalf("expected parse YAML error, got: %v", err)
	}
}

func TestParseRejectsInvalidValues(t *testing.T) {
	_, err := Parse([]byte(`
positions:
  backend: redis
highlight:
  max_attempts: 0
`), "test-invalid")
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"positions.backend", "highlight.max_attempts"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error %q should mention %s", err, want)
		}
	}
}
