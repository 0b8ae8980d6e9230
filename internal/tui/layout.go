package tui

import (
	"strings"

	"github.com/muesli/reflow/wordwrap"

	"github.com/csheth/docview/internal/session"
)

type pageLayout struct {
	windowWidth    int
	windowHeight   int
	viewportWidth  int
	viewportHeight int
}

func newPageLayout() pageLayout {
	return pageLayout{
		viewportWidth:  80,
		viewportHeight: 20,
	}
}

func (l *pageLayout) Update(width, height int) {
	l.windowWidth = width
	l.windowHeight = height
	innerWidth := width - viewportHorizontalPadding
	if innerWidth < minViewportWidth {
		innerWidth = minViewportWidth
	}
	l.viewportWidth = innerWidth
	// hero, status bar, notice, key legend and the blank lines between them
	const chrome = 10
	contentHeight := height - chrome
	if contentHeight < 5 {
		contentHeight = 5
	}
	l.viewportHeight = contentHeight
}

type contentBuilder struct {
	builder strings.Builder
	lines   int
}

func (cb *contentBuilder) WriteString(s string) {
	cb.builder.WriteString(s)
	cb.lines += strings.Count(s, "\n")
}

func (cb *contentBuilder) WriteRune(r rune) {
	cb.builder.WriteRune(r)
	if r == '\n' {
		cb.lines++
	}
}

func (cb *contentBuilder) String() string {
	return cb.builder.String()
}

func (cb *contentBuilder) Line() int {
	return cb.lines
}

type pageContent struct {
	content string
	// first wrapped line of each text layer row
	rowLines  []int
	firstMark int
}

// buildPageContent wraps each text layer row to width and paints highlighted
// rows. firstMark is the wrapped line of the first highlighted row, or -1.
func buildPageContent(view session.View, width int) pageContent {
	cb := &contentBuilder{}
	marked := make(map[int]bool, len(view.Matched))
	for _, idx := range view.Matched {
		marked[idx] = true
	}
	out := pageContent{rowLines: make([]int, len(view.Lines)), firstMark: -1}
	if len(view.Lines) == 0 {
		cb.WriteString(helperStyle.Render("This page has no extractable text."))
		out.content = cb.String()
		return out
	}
	for i, row := range view.Lines {
		out.rowLines[i] = cb.Line()
		wrapped := wordwrap.String(row, width)
		if marked[i] {
			if out.firstMark < 0 {
				out.firstMark = cb.Line()
			}
			parts := strings.Split(wrapped, "\n")
			for j, part := range parts {
				parts[j] = highlightStyle.Render(part)
			}
			wrapped = strings.Join(parts, "\n")
		}
		cb.WriteString(wrapped)
		if i < len(view.Lines)-1 {
			cb.WriteRune('\n')
		}
	}
	out.content = cb.String()
	return out
}

// rowContaining returns the first row whose text contains needle, ignoring
// case, or -1.
func rowContaining(lines []string, needle string) int {
	needle = strings.ToLower(strings.TrimSpace(needle))
	if needle == "" {
		return -1
	}
	for i, line := range lines {
		if strings.Contains(strings.ToLower(line), needle) {
			return i
		}
	}
	return -1
}

func truncate(value string, limit int) string {
	value = strings.Join(strings.Fields(value), " ")
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return strings.TrimSpace(string(runes[:limit-1])) + "…"
}
