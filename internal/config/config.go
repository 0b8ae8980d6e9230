package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// File is the on-disk configuration. Keys left out keep their Defaults value.
type File struct {
	Workspace string    `yaml:"workspace"`
	Positions Positions `yaml:"positions"`
	Session   Session   `yaml:"session"`
	Highlight Highlight `yaml:"highlight"`
	Documents Documents `yaml:"documents"`
	Remote    Remote    `yaml:"remote"`
}

type Positions struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
}

type Session struct {
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
	SettleDelay      time.Duration `yaml:"settle_delay"`
}

type Highlight struct {
	RetryInterval time.Duration `yaml:"retry_interval"`
	MaxAttempts   int           `yaml:"max_attempts"`
}

type Documents struct {
	Patterns []string `yaml:"patterns"`
}

type Remote struct {
	Disabled bool          `yaml:"disabled"`
	CacheDir string        `yaml:"cache_dir"`
	TTL      time.Duration `yaml:"ttl"`
}

const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

// Defaults returns the built-in settings. Paths left empty are resolved by
// Parse.
func Defaults() File {
	return File{
		Workspace: ".",
		Positions: Positions{Backend: BackendJSON},
		Session:   Session{HandshakeTimeout: 15 * time.Second, SettleDelay: 50 * time.Millisecond},
		Highlight: Highlight{RetryInterval: 300 * time.Millisecond, MaxAttempts: 20},
		Documents: Documents{Patterns: []string{"**/*.pdf", "**/*.djvu"}},
		Remote:    Remote{TTL: 24 * time.Hour},
	}
}

// Load reads path and merges it over Defaults. An empty path yields the
// defaults.
func Load(path string) (File, error) {
	if path == "" {
		return Parse(nil, "defaults")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("read config file %q: %w", path, err)
	}
	return Parse(data, path)
}

// Parse decodes YAML over Defaults. Unknown keys are rejected.
func Parse(data []byte, source string) (File, error) {
	cfg := Defaults()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("parse YAML in %q: %w", source, err)
	}
	if cfg.Positions.Path == "" {
		cfg.Positions.Path = defaultPositionsPath(cfg.Positions.Backend)
	}
	cfg.Positions.Path = expandHome(cfg.Positions.Path)
	cfg.Remote.CacheDir = expandHome(cfg.Remote.CacheDir)
	cfg.Workspace = expandHome(cfg.Workspace)

	if errs := cfg.Validate(); len(errs) > 0 {
		return cfg, fmt.Errorf("invalid config in %q: %s", source, strings.Join(errs, "; "))
	}
	return cfg, nil
}

// Validate lists every problem with cfg.
func (cfg File) Validate() []string {
	var errs []string
	switch cfg.Positions.Backend {
	case BackendJSON, BackendSQLite:
	default:
		errs = append(errs, fmt.Sprintf("positions.backend must be %q or %q, got %q", BackendJSON, BackendSQLite, cfg.Positions.Backend))
	}
	if cfg.Session.HandshakeTimeout <= 0 {
		errs = append(errs, "session.handshake_timeout must be positive")
	}
	if cfg.Session.SettleDelay < 0 {
		errs = append(errs, "session.settle_delay must not be negative")
	}
	if cfg.Highlight.RetryInterval <= 0 {
		errs = append(errs, "highlight.retry_interval must be positive")
	}
	if cfg.Highlight.MaxAttempts < 1 {
		errs = append(errs, "highlight.max_attempts must be at least 1")
	}
	if len(cfg.Documents.Patterns) == 0 {
		errs = append(errs, "documents.patterns must not be empty")
	}
	if cfg.Remote.TTL < 0 {
		errs = append(errs, "remote.ttl must not be negative")
	}
	return errs
}

func defaultPositionsPath(backend string) string {
	name := "positions.json"
	if backend == BackendSQLite {
		name = "positions.db"
	}
	base, err := os.UserCacheDir()
	if err != nil || base == "" {
		return filepath.Join(".docview", name)
	}
	return filepath.Join(base, "docview", name)
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
