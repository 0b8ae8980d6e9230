package tui

import (
	"strings"
	"testing"

	"github.com/csheth/docview/internal/session"
)

func TestPageLayoutUpdate(t *testing.T) {
	cases := []struct {
		name           string
		width          int
		height         int
		viewportWidth  int
		viewportHeight int
	}{
		{name: "narrow", width: 30, height: 12, viewportWidth: 40, viewportHeight: 5},
		{name: "standard", width: 80, height: 24, viewportWidth: 76, viewportHeight: 14},
		{name: "wide", width: 200, height: 40, viewportWidth: 196, viewportHeight: 30},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			layout := newPageLayout()
			layout.Update(tc.width, tc.height)
			if layout.viewportWidth != tc.viewportWidth {
				t.Fatalf("viewport width mismatch: got %d want %d", layout.viewportWidth, tc.viewportWidth)
			}
			if layout.viewportHeight != tc.viewportHeight {
				t.Fatalf("viewport height mismatch: got %d want %d", layout.viewportHeight, tc.viewportHeight)
			}
		})
	}
}

func TestBuildPageContentMarksHighlightedRows(t *testing.T) {
	view := session.View{
		Lines:   []string{"first row", "a second row that is long enough to wrap", "third"},
		Matched: []int{2},
	}
	content := buildPageContent(view, 20)
	if content.firstMark != content.rowLines[2] {
		t.Fatalf("first mark = %d, row lines = %v", content.firstMark, content.rowLines)
	}
	if content.rowLines[2] <= 2 {
		t.Fatalf("wrapped row should push later rows down, got %v", content.rowLines)
	}
	for _, want := range []string{"first row", "third"} {
		if !strings.Contains(content.content, want) {
			t.Fatalf("content missing %q:\n%s", want, content.content)
		}
	}

	empty := buildPageContent(session.View{}, 20)
	if empty.firstMark != -1 || !strings.Contains(empty.content, "no extractable text") {
		t.Fatalf("empty page content = %+v", empty)
	}
}

func TestRowContainingAndTruncate(t *testing.T) {
	lines := []string{"Alpha", "Beta Gamma"}
	if got := rowContaining(lines, "gamma"); got != 1 {
		t.Fatalf("rowContaining = %d", got)
	}
	if got := rowContaining(lines, " "); got != -1 {
		t.Fatalf("blank needle = %d", got)
	}
	if got := truncate("one   two\nthree", 60); got != "one two three" {
		t.Fatalf("truncate = %q", got)
	}
	if got := truncate("abcdefghij", 5); got != "abcd…" {
		t.Fatalf("truncate = %q", got)
	}
}
