package textmatch

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Fragment is one positioned run of text reported by a renderer's text layer.
type Fragment struct {
	Text  string
	Start int
}

// Match describes where a query landed in a text layer. Start and End are
// rune offsets into the concatenated fragment texts.
type Match struct {
	Indices []int
	Start   int
	End     int
}

// Locate finds the leftmost occurrence of query in fragments, ignoring
// whitespace and case, and returns every fragment overlapping the match.
func Locate(fragments []Fragment, query string) (Match, bool) {
	if len(fragments) == 0 {
		return Match{}, false
	}
	needle, _ := normalize(query)
	if needle == "" {
		return Match{}, false
	}

	var buffer strings.Builder
	spans := make([][2]int, len(fragments))
	offset := 0
	for i, fragment := range fragments {
		n := utf8.RuneCountInString(fragment.Text)
		spans[i] = [2]int{offset, offset + n}
		offset += n
		buffer.WriteString(fragment.Text)
	}

	haystack, origin := normalize(buffer.String())
	idx := strings.Index(haystack, needle)
	if idx < 0 {
		return Match{}, false
	}
	normStart := utf8.RuneCountInString(haystack[:idx])
	normEnd := normStart + utf8.RuneCountInString(needle)
	startChar := origin[normStart]
	endChar := origin[normEnd-1] + 1

	match := Match{Start: startChar, End: endChar}
	for i, span := range spans {
		if span[0] < endChar && span[1] > startChar {
			match.Indices = append(match.Indices, i)
		}
	}
	return match, len(match.Indices) > 0
}

// normalize strips whitespace and lower-cases s. The second result maps each
// rune of the normalized string to its rune offset in s.
func normalize(s string) (string, []int) {
	var b strings.Builder
	b.Grow(len(s))
	origin := make([]int, 0, len(s))
	pos := 0
	for _, r := range s {
		if !unicode.IsSpace(r) {
			b.WriteRune(unicode.ToLower(r))
			origin = append(origin, pos)
		}
		pos++
	}
	return b.String(), origin
}
