package library

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

var (
	// ErrUnsupported marks identities that are not viewable document types.
	ErrUnsupported = errors.New("unsupported document type")
	// ErrNotFound marks identities with no backing file.
	ErrNotFound = errors.New("document not found")
)

// DefaultPatterns are the document types opened when none are configured.
var DefaultPatterns = []string{"**/*.pdf", "**/*.djvu"}

// Source reads document bytes by identity.
type Source interface {
	ReadFile(ctx context.Context, id string) ([]byte, error)
}

// Supported reports whether id matches one of the doublestar patterns.
// Matching is case-insensitive on the file name.
func Supported(patterns []string, id string) bool {
	if len(patterns) == 0 {
		patterns = DefaultPatterns
	}
	name := strings.ToLower(filepath.ToSlash(id))
	for _, pattern := range patterns {
		ok, err := doublestar.Match(strings.ToLower(pattern), name)
		if err == nil && ok {
			return true
		}
	}
	return false
}

// Workspace serves identities relative to a root directory.
type Workspace struct {
	Root     string
	Patterns []string
}

// ReadFile returns the bytes of root/id.
func (w Workspace) ReadFile(ctx context.Context, id string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := w.resolve(id)
	if err != nil {
		return nil, err
	}
	if !Supported(w.Patterns, id) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, id)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, err
	}
	return data, nil
}

func (w Workspace) resolve(id string) (string, error) {
	root := w.Root
	if root == "" {
		root = "."
	}
	if filepath.IsAbs(id) {
		return filepath.Clean(id), nil
	}
	path := filepath.Join(root, filepath.FromSlash(id))
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s escapes workspace", ErrNotFound, id)
	}
	return path, nil
}

// Identity converts a path into the identity used for positions and links:
// slash-separated and relative to root when it lies inside it.
func (w Workspace) Identity(path string) string {
	root := w.Root
	if root == "" {
		root = "."
	}
	absRoot, errRoot := filepath.Abs(root)
	absPath, errPath := filepath.Abs(path)
	if errRoot == nil && errPath == nil {
		if rel, err := filepath.Rel(absRoot, absPath); err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return filepath.ToSlash(rel)
		}
		return filepath.ToSlash(absPath)
	}
	return filepath.ToSlash(path)
}

// Router sends http(s) identities to Remote and everything else to Local.
type Router struct {
	Local  Source
	Remote Source
}

// ReadFile dispatches on the identity scheme.
func (r Router) ReadFile(ctx context.Context, id string) ([]byte, error) {
	if IsRemote(id) {
		if r.Remote == nil {
			return nil, fmt.Errorf("%w: remote documents disabled", ErrUnsupported)
		}
		return r.Remote.ReadFile(ctx, id)
	}
	if r.Local == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return r.Local.ReadFile(ctx, id)
}

// IsRemote reports whether id is an http(s) URL.
func IsRemote(id string) bool {
	lower := strings.ToLower(id)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
