package textmatch

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const (
	DefaultRetryInterval = 300 * time.Millisecond
	DefaultMaxAttempts   = 20
)

// Layer is a text layer that can be searched and marked.
type Layer interface {
	Fragments() []Fragment
	Mark(indices []int)
	ScrollTo(index int)
	ClearMarks()
}

// Highlighter marks the first fuzzy match of a query in a Layer, waiting for
// the layer to be populated when it is still empty.
type Highlighter struct {
	Interval    time.Duration
	MaxAttempts int
	Logger      *slog.Logger
}

// Highlight runs the bounded retry loop. A false result is not an error: the
// query was not found, the layer never filled, or ctx ended.
func (h Highlighter) Highlight(ctx context.Context, layer Layer, query string) (Match, bool) {
	interval := h.Interval
	if interval <= 0 {
		interval = DefaultRetryInterval
	}
	attempts := h.MaxAttempts
	if attempts <= 0 {
		attempts = DefaultMaxAttempts
	}
	logger := h.Logger
	if logger == nil {
		logger = slog.Default()
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		fragments := layer.Fragments()
		if len(fragments) > 0 {
			match, ok := Locate(fragments, query)
			if !ok {
				logger.Debug("highlight target not found", "attempt", attempt, "fragments", len(fragments))
				return Match{}, false
			}
			layer.Mark(match.Indices)
			layer.ScrollTo(match.Indices[0])
			return match, true
		}
		if attempt == attempts {
			break
		}
		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return Match{}, false
		case <-timer.C:
		}
	}
	logger.Debug("text layer still empty, giving up", "attempts", attempts)
	return Match{}, false
}

// ClearAll removes every highlight mark from layer.
func (h Highlighter) ClearAll(layer Layer) {
	layer.ClearMarks()
}

// MemoryLayer is a concurrency-safe Layer held in memory.
type MemoryLayer struct {
	mu        sync.Mutex
	fragments []Fragment
	marked    map[int]bool
	scrolled  int
}

// NewMemoryLayer returns a layer holding fragments.
func NewMemoryLayer(fragments []Fragment) *MemoryLayer {
	return &MemoryLayer{fragments: fragments, marked: map[int]bool{}, scrolled: -1}
}

// Replace swaps the fragments and drops existing marks.
func (l *MemoryLayer) Replace(fragments []Fragment) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fragments = fragments
	l.marked = map[int]bool{}
	l.scrolled = -1
}

func (l *MemoryLayer) Fragments() []Fragment {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Fragment(nil), l.fragments...)
}

func (l *MemoryLayer) Mark(indices []int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, idx := range indices {
		if idx >= 0 && idx < len(l.fragments) {
			l.marked[idx] = true
		}
	}
}

func (l *MemoryLayer) ScrollTo(index int) {
	l.mu.Lock()
	l.scrolled = index
	l.mu.Unlock()
}

func (l *MemoryLayer) ClearMarks() {
	l.mu.Lock()
	l.marked = map[int]bool{}
	l.scrolled = -1
	l.mu.Unlock()
}

// Marked returns the marked fragment indices in ascending order.
func (l *MemoryLayer) Marked() []int {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]int, 0, len(l.marked))
	for i := range l.fragments {
		if l.marked[i] {
			out = append(out, i)
		}
	}
	return out
}

// Scrolled returns the fragment last scrolled into view, or -1.
func (l *MemoryLayer) Scrolled() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.scrolled
}
