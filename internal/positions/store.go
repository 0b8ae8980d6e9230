package positions

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Backend persists page positions. Save is called once per mutation.
type Backend interface {
	Load(ctx context.Context) (map[string]int, error)
	Save(ctx context.Context, id string, page int) error
}

// Store is the process-wide map from document identity to last viewed page.
// The map is updated synchronously; persistence is write-through and never
// reports failure to the caller.
type Store struct {
	backend Backend
	logger  *slog.Logger

	mu    sync.RWMutex
	pages map[string]int

	// serializes backend writes so the newest in-memory value lands last
	writeMu sync.Mutex
}

// New returns an empty store. Call Load to seed it from the backend.
func New(backend Backend, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		backend: backend,
		logger:  logger.With("component", "positions"),
		pages:   map[string]int{},
	}
}

// Load replaces the in-memory map with the backend contents.
func (s *Store) Load(ctx context.Context) error {
	if s.backend == nil {
		return nil
	}
	loaded, err := s.backend.Load(ctx)
	if err != nil {
		return fmt.Errorf("load positions: %w", err)
	}
	pages := make(map[string]int, len(loaded))
	for id, page := range loaded {
		if id == "" || page < 1 {
			continue
		}
		pages[id] = page
	}
	s.mu.Lock()
	s.pages = pages
	s.mu.Unlock()
	s.logger.Debug("positions loaded", "count", len(pages))
	return nil
}

// Get returns the stored page for id.
func (s *Store) Get(id string) (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	page, ok := s.pages[id]
	return page, ok
}

// Set records page for id and persists it before returning. Persistence
// errors are logged and swallowed.
func (s *Store) Set(ctx context.Context, id string, page int) {
	if !s.Remember(id, page) {
		return
	}
	s.Flush(ctx, id)
}

// Remember updates the in-memory map only. It reports false for invalid input.
func (s *Store) Remember(id string, page int) bool {
	if id == "" || page < 1 {
		s.logger.Debug("ignoring invalid position", "id", id, "page", page)
		return false
	}
	s.mu.Lock()
	s.pages[id] = page
	s.mu.Unlock()
	return true
}

// Flush writes the current in-memory page for id to the backend.
func (s *Store) Flush(ctx context.Context, id string) {
	if s.backend == nil {
		return
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	page, ok := s.Get(id)
	if !ok {
		return
	}
	if err := s.backend.Save(ctx, id, page); err != nil {
		s.logger.Warn("position write failed", "id", id, "page", page, "error", err)
	}
}

// Snapshot returns a copy of the map.
func (s *Store) Snapshot() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]int, len(s.pages))
	for id, page := range s.pages {
		out[id] = page
	}
	return out
}
