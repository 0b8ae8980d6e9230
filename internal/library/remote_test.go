package library

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"
)

func TestRemoteReusesFreshFile(t *testing.T) {
	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Header().Set("Etag", `"v1"`)
		_, _ = w.Write([]byte("%PDF-1.4\nHello"))
	}))
	t.Cleanup(server.Close)

	remote, err := NewRemote(RemoteOptions{Dir: t.TempDir(), Client: server.Client()})
	if err != nil {
		t.Fatalf("NewRemote: %v", err)
	}
	ctx := context.Background()

	data, err := remote.ReadFile(ctx, server.URL+"/papers/doc.pdf")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "%PDF-1.4\nHello" {
		t.Fatalf("unexpected payload %q", data)
	}
	if _, err := remote.ReadFile(ctx, server.URL+"/papers/doc.pdf"); err != nil {
		t.Fatalf("second read: %v", err)
	}
	if hits != 1 {
		t.Fatalf("cache miss triggered download, total hits %d", hits)
	}
}

func TestRemoteUsesEnvCacheDir(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(CacheEnvVar, dir)

	remote, err := NewRemote(RemoteOptions{})
	if err != nil {
		t.Fatalf("NewRemote: %v", err)
	}
	if remote.dir != dir {
		t.Fatalf("cache dir = %q, want %q", remote.dir, dir)
	}
}

func TestRemoteRevalidatesStaleCopy(t *testing.T) {
	var conditional bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("If-None-Match") == `"v2"` {
			conditional = true
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("Etag", `"v2"`)
		_, _ = w.Write([]byte("%PDF-1.4\nUpdated"))
	}))
	t.Cleanup(server.Close)

	remote, err := NewRemote(RemoteOptions{Dir: t.TempDir(), Client: server.Client()})
	if err != nil {
		t.Fatalf("NewRemote: %v", err)
	}
	ctx := context.Background()
	docURL := server.URL + "/doc.pdf"

	docPath, err := remote.Fetch(ctx, docURL)
	if err != nil {
		t.Fatalf("initial fetch: %v", err)
	}
	old := time.Now().Add(-(DefaultCacheTTL + time.Hour))
	if err := os.Chtimes(docPath, old, old); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	if _, err := remote.Fetch(ctx, docURL); err != nil {
		t.Fatalf("conditional fetch: %v", err)
	}
	if !conditional {
		t.Fatal("expected conditional request for stale cache")
	}
}

func TestRemoteResumesPartialDownload(t *testing.T) {
	var rangeHeader string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rangeHeader = r.Header.Get("Range")
		w.Header().Set("Etag", `"resume"`)
		w.WriteHeader(http.StatusPartialContent)
		_, _ = w.Write([]byte("world"))
	}))
	t.Cleanup(server.Close)

	remote, err := NewRemote(RemoteOptions{Dir: t.TempDir(), Client: server.Client()})
	if err != nil {
		t.Fatalf("NewRemote: %v", err)
	}
	docURL := server.URL + "/scan.djvu"
	docPath, metaPath, partPath := remote.pathsFor(cacheKey(docURL))
	if err := os.WriteFile(partPath, []byte("hello "), 0o644); err != nil {
		t.Fatalf("write partial: %v", err)
	}
	if err := writeMeta(metaPath, remoteMeta{ETag: `"resume"`}); err != nil {
		t.Fatalf("write meta: %v", err)
	}

	got, err := remote.Fetch(context.Background(), docURL)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if got != docPath {
		t.Fatalf("unexpected path: %s", got)
	}
	data, err := os.ReadFile(got)
	if err != nil {
		t.Fatalf("read cached doc: %v", err)
	}
	if string(data) != "hello world" {
		t.Fatalf("resume failed, got %q", data)
	}
	if rangeHeader != fmt.Sprintf("bytes=%d-", len("hello ")) {
		t.Fatalf("expected range header, got %q", rangeHeader)
	}
	if _, err := os.Stat(partPath); !os.IsNotExist(err) {
		t.Fatalf("partial file should be gone, err=%v", err)
	}
}

func TestRemoteServesStaleCopyWhenOffline(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("cached"))
	}))
	remote, err := NewRemote(RemoteOptions{Dir: t.TempDir(), Client: server.Client(), TTL: time.Nanosecond})
	if err != nil {
		t.Fatalf("NewRemote: %v", err)
	}
	docURL := server.URL + "/doc.pdf"
	if _, err := remote.Fetch(context.Background(), docURL); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	server.Close()

	data, err := remote.ReadFile(context.Background(), docURL)
	if err != nil {
		t.Fatalf("offline read: %v", err)
	}
	if string(data) != "cached" {
		t.Fatalf("payload = %q", data)
	}
}

func TestRemoteRejectsUnsupportedAndMissing(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(server.Close)

	remote, err := NewRemote(RemoteOptions{Dir: t.TempDir(), Client: server.Client()})
	if err != nil {
		t.Fatalf("NewRemote: %v", err)
	}
	if _, err := remote.ReadFile(context.Background(), server.URL+"/page.html"); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("html err = %v", err)
	}
	if _, err := remote.ReadFile(context.Background(), server.URL+"/missing.pdf"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing err = %v", err)
	}
}

func TestCacheKeyKeepsExtension(t *testing.T) {
	t.Parallel()
	key := cacheKey("https://example.com/some/path/Book.PDF?x=1")
	if !strings.HasSuffix(key, ".pdf") {
		t.Fatalf("cache key should keep extension, got %q", key)
	}
	if strings.Contains(key, "/") {
		t.Fatalf("cache key should be flat, got %q", key)
	}
}
