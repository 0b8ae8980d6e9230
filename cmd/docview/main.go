package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/csheth/docview/internal/config"
	"github.com/csheth/docview/internal/library"
	"github.com/csheth/docview/internal/positions"
	"github.com/csheth/docview/internal/renderer"
	"github.com/csheth/docview/internal/session"
	"github.com/csheth/docview/internal/surface"
	"github.com/csheth/docview/internal/textmatch"
	"github.com/csheth/docview/internal/tui"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (default: <user config dir>/docview/config.yaml when present)")
	link := flag.String("link", "", "open a [[doc#page=N&q=…]] link instead of a document")
	workspace := flag.String("workspace", "", "override the workspace root documents are resolved against")
	noAltScreen := flag.Bool("no-alt-screen", false, "disable the alternate screen buffer")
	logPath := flag.String("log", "", "write structured logs to this file")
	logLevel := flag.String("log-level", "info", "log level (debug, info, warn, error)")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] [document]\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	flag.Parse()

	if err := run(*configPath, *link, *workspace, *logPath, *logLevel, !*noAltScreen, flag.Arg(0)); err != nil {
		fmt.Fprintln(os.Stderr, "docview:", err)
		os.Exit(1)
	}
}

func run(configPath, link, workspace, logPath, logLevel string, altScreen bool, document string) error {
	cfg, err := config.Load(resolveConfigPath(configPath))
	if err != nil {
		return err
	}
	if workspace != "" {
		cfg.Workspace = workspace
	}

	logger, closeLog, err := newLogger(logPath, logLevel)
	if err != nil {
		return err
	}
	defer closeLog()

	backend, closeBackend, err := openBackend(cfg.Positions)
	if err != nil {
		return err
	}
	defer closeBackend()
	store := positions.New(backend, logger)
	if err := store.Load(context.Background()); err != nil {
		logger.Warn("starting without saved positions", "error", err)
	}

	local := library.Workspace{Root: cfg.Workspace, Patterns: cfg.Documents.Patterns}
	source := library.Router{Local: local}
	if !cfg.Remote.Disabled {
		remote, err := library.NewRemote(library.RemoteOptions{
			Dir:      cfg.Remote.CacheDir,
			TTL:      cfg.Remote.TTL,
			Patterns: cfg.Documents.Patterns,
		})
		if err != nil {
			logger.Warn("remote documents disabled", "error", err)
		} else {
			source.Remote = remote
		}
	}

	highlighter := textmatch.Highlighter{
		Interval:    cfg.Highlight.RetryInterval,
		MaxAttempts: cfg.Highlight.MaxAttempts,
		Logger:      logger,
	}
	if document != "" && !library.IsRemote(document) {
		document = local.Identity(document)
	}

	model := tui.New(tui.Config{
		Session: session.Config{
			Source:    source,
			Positions: store,
			NewSurface: func() (surface.Surface, error) {
				return renderer.Launch(renderer.Options{
					Engine:      renderer.PDFEngine{},
					Highlighter: highlighter,
					Logger:      logger,
				}), nil
			},
			HandshakeTimeout: cfg.Session.HandshakeTimeout,
			SettleDelay:      cfg.Session.SettleDelay,
			Logger:           logger,
		},
		Document: document,
		Link:     link,
	})

	opts := []tea.ProgramOption{tea.WithMouseCellMotion()}
	if altScreen {
		opts = append(opts, tea.WithAltScreen())
	}
	if _, err := tea.NewProgram(model, opts...).Run(); err != nil {
		return fmt.Errorf("program error: %w", err)
	}
	return nil
}

func resolveConfigPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	candidate := filepath.Join(dir, "docview", "config.yaml")
	if _, err := os.Stat(candidate); err != nil {
		return ""
	}
	return candidate
}

func newLogger(path, level string) (*slog.Logger, func(), error) {
	if path == "" {
		return slog.New(slog.NewTextHandler(io.Discard, nil)), func() {}, nil
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, nil, fmt.Errorf("invalid -log-level %q: %w", level, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log dir: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	logger := slog.New(slog.NewTextHandler(file, &slog.HandlerOptions{Level: lvl}))
	return logger, func() { _ = file.Close() }, nil
}

func openBackend(cfg config.Positions) (positions.Backend, func(), error) {
	switch cfg.Backend {
	case config.BackendSQLite:
		db, err := positions.OpenSQLite(cfg.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("open positions database: %w", err)
		}
		return db, func() { _ = db.Close() }, nil
	case config.BackendJSON, "":
		return positions.NewJSONFile(cfg.Path), func() {}, nil
	default:
		return nil, nil, errors.New("unknown positions backend " + cfg.Backend)
	}
}
