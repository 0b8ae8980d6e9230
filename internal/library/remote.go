package library

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

const (
	CacheEnvVar        = "DOCVIEW_CACHE_DIR"
	cacheSubdir        = "docview/documents"
	DefaultCacheTTL    = 24 * time.Hour
	partialSuffix      = ".part"
	metaSuffix         = ".meta"
	defaultHTTPTimeout = 90 * time.Second
)

// Remote fetches documents identified by URL into a local cache. Fresh copies
// are served from disk; stale ones are revalidated with ETag/Last-Modified and
// interrupted downloads resume with a Range request.
type Remote struct {
	dir      string
	client   *http.Client
	ttl      time.Duration
	patterns []string
}

type remoteMeta struct {
	URL          string    `json:"url"`
	ETag         string    `json:"etag"`
	LastModified string    `json:"lastModified"`
	CachedAt     time.Time `json:"cachedAt"`
	Size         int64     `json:"size"`
}

// RemoteOptions configures NewRemote. Zero values pick defaults.
type RemoteOptions struct {
	Dir      string
	Client   *http.Client
	TTL      time.Duration
	Patterns []string
}

// NewRemote prepares the cache directory.
func NewRemote(opts RemoteOptions) (*Remote, error) {
	dir := opts.Dir
	if dir == "" {
		dir = os.Getenv(CacheEnvVar)
	}
	if dir == "" {
		base, err := os.UserCacheDir()
		if err != nil {
			base = filepath.Join(os.TempDir(), "docview-cache")
		}
		dir = filepath.Join(base, cacheSubdir)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Remote{dir: dir, client: client, ttl: ttl, patterns: opts.Patterns}, nil
}

// ReadFile returns the cached bytes for the document at rawURL.
func (c *Remote) ReadFile(ctx context.Context, rawURL string) ([]byte, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	if !Supported(c.patterns, path.Base(parsed.Path)) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, rawURL)
	}
	docPath, err := c.Fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(docPath)
}

// Fetch makes sure a usable copy of rawURL is on disk and returns its path.
func (c *Remote) Fetch(ctx context.Context, rawURL string) (string, error) {
	key := cacheKey(rawURL)
	docPath, metaPath, partialPath := c.pathsFor(key)

	if info, err := os.Stat(docPath); err == nil && time.Since(info.ModTime()) < c.ttl && info.Size() > 0 {
		return docPath, nil
	}

	meta, _ := readMeta(metaPath)
	info, _ := os.Stat(docPath)
	result, err := c.download(ctx, rawURL, docPath, metaPath, partialPath, meta, info)
	if err == nil {
		return result, nil
	}
	if info != nil && info.Size() > 0 {
		return docPath, nil
	}
	return "", err
}

func (c *Remote) download(ctx context.Context, rawURL, docPath, metaPath, partialPath string, meta remoteMeta, current os.FileInfo) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", err
	}
	if current != nil && current.Size() > 0 {
		if meta.ETag != "" {
			req.Header.Set("If-None-Match", meta.ETag)
		}
		if meta.LastModified != "" {
			req.Header.Set("If-Modified-Since", meta.LastModified)
		}
	}

	var partialSize int64
	if info, err := os.Stat(partialPath); err == nil && info.Size() > 0 {
		partialSize = info.Size()
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", partialSize))
		if meta.ETag != "" {
			req.Header.Set("If-Range", meta.ETag)
		} else if meta.LastModified != "" {
			req.Header.Set("If-Range", meta.LastModified)
		}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNotModified:
		if current != nil && current.Size() > 0 {
			meta.CachedAt = time.Now().UTC()
			_ = writeMeta(metaPath, meta)
			now := time.Now()
			_ = os.Chtimes(docPath, now, now)
			return docPath, nil
		}
		return c.download(ctx, rawURL, docPath, metaPath, partialPath, remoteMeta{}, nil)
	case http.StatusOK:
		return c.saveBody(resp, docPath, metaPath, partialPath, false)
	case http.StatusPartialContent:
		return c.saveBody(resp, docPath, metaPath, partialPath, partialSize > 0)
	case http.StatusNotFound, http.StatusGone:
		return "", fmt.Errorf("%w: %s", ErrNotFound, rawURL)
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("document download failed: %s (%s)", resp.Status, string(body))
	}
}

func (c *Remote) saveBody(resp *http.Response, docPath, metaPath, partialPath string, appendExisting bool) (string, error) {
	flags := os.O_CREATE | os.O_WRONLY
	if appendExisting {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	file, err := os.OpenFile(partialPath, flags, 0o644)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(file, resp.Body); err != nil {
		file.Close()
		return "", err
	}
	if err := file.Close(); err != nil {
		return "", err
	}
	if err := os.Rename(partialPath, docPath); err != nil {
		return "", err
	}

	meta := remoteMeta{
		URL:          resp.Request.URL.String(),
		ETag:         resp.Header.Get("Etag"),
		LastModified: resp.Header.Get("Last-Modified"),
		CachedAt:     time.Now().UTC(),
	}
	if info, err := os.Stat(docPath); err == nil {
		meta.Size = info.Size()
	}
	if err := writeMeta(metaPath, meta); err != nil {
		return "", err
	}
	return docPath, nil
}

func (c *Remote) pathsFor(key string) (string, string, string) {
	return filepath.Join(c.dir, key), filepath.Join(c.dir, key+metaSuffix), filepath.Join(c.dir, key+partialSuffix)
}

// cacheKey hashes the URL and keeps the document extension for readability.
func cacheKey(rawURL string) string {
	sum := sha1.Sum([]byte(rawURL))
	key := hex.EncodeToString(sum[:])
	if parsed, err := url.Parse(rawURL); err == nil {
		if ext := strings.ToLower(path.Ext(parsed.Path)); ext != "" && len(ext) <= 6 {
			key += ext
		}
	}
	return key
}

func readMeta(path string) (remoteMeta, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return remoteMeta{}, err
	}
	var meta remoteMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return remoteMeta{}, err
	}
	return meta, nil
}

func writeMeta(path string, meta remoteMeta) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
