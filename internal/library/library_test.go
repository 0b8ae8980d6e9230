package library

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestSupported(t *testing.T) {
	t.Parallel()

	cases := []struct {
		id   string
		want bool
	}{
		{"doc.pdf", true},
		{"nested/deep/Scan.DJVU", true},
		{"notes.md", false},
		{"archive.pdf.zip", false},
	}
	for _, tc := range cases {
		if got := Supported(nil, tc.id); got != tc.want {
			t.Fatalf("Supported(%q) = %v, want %v", tc.id, got, tc.want)
		}
	}
	if !Supported([]string{"books/**/*.epub"}, "books/a/b.epub") {
		t.Fatal("custom pattern should match")
	}
}

func TestWorkspaceReadFile(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "papers"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "papers", "a.pdf"), []byte("bytes"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	ws := Workspace{Root: root}
	ctx := context.Background()

	data, err := ws.ReadFile(ctx, "papers/a.pdf")
	if err != nil || string(data) != "bytes" {
		t.Fatalf("ReadFile() = %q, %v", data, err)
	}
	if _, err := ws.ReadFile(ctx, "papers/missing.pdf"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing err = %v", err)
	}
	if _, err := ws.ReadFile(ctx, "papers/a.txt"); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("unsupported err = %v", err)
	}
	if _, err := ws.ReadFile(ctx, "../outside.pdf"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("escape err = %v", err)
	}
}

func TestWorkspaceIdentity(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	ws := Workspace{Root: root}
	if got := ws.Identity(filepath.Join(root, "dir", "x.pdf")); got != "dir/x.pdf" {
		t.Fatalf("Identity() = %q", got)
	}
	outside := filepath.Join(filepath.Dir(root), "elsewhere.pdf")
	if got := ws.Identity(outside); got != filepath.ToSlash(outside) {
		t.Fatalf("Identity(outside) = %q", got)
	}
}

type stubSource struct{ name string }

func (s stubSource) ReadFile(ctx context.Context, id string) ([]byte, error) {
	return []byte(s.name), nil
}

func TestRouterDispatchesByScheme(t *testing.T) {
	t.Parallel()

	r := Router{Local: stubSource{"local"}, Remote: stubSource{"remote"}}
	ctx := context.Background()
	if data, _ := r.ReadFile(ctx, "HTTPS://example.com/a.pdf"); string(data) != "remote" {
		t.Fatalf("remote routed to %q", data)
	}
	if data, _ := r.ReadFile(ctx, "a.pdf"); string(data) != "local" {
		t.Fatalf("local routed to %q", data)
	}
	if _, err := (Router{Local: stubSource{"local"}}).ReadFile(ctx, "http://x/a.pdf"); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("disabled remote err = %v", err)
	}
}
