package citation

import (
	"regexp"
	"strings"

	"github.com/csheth/docview/internal/locator"
)

// Citation holds the copyable forms of a selection.
type Citation struct {
	Plain      string
	QuoteBlock string
	Link       string
}

var lineBreaks = regexp.MustCompile(`\r\n|\r|\n`)

// Build derives the plain text, a quote block with backlink, and a bare link
// for a selection on page of the document id. It reports false when the
// selection is blank.
func Build(selected string, page int, id string) (Citation, bool) {
	if strings.TrimSpace(selected) == "" {
		return Citation{}, false
	}
	link := locator.FormatLink(id, locator.Locator{Page: page, Quote: selected})

	lines := lineBreaks.Split(selected, -1)
	var b strings.Builder
	for _, line := range lines {
		b.WriteString(strings.TrimRight("> "+line, " \t"))
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	b.WriteString(link)

	return Citation{
		Plain:      selected,
		QuoteBlock: b.String(),
		Link:       link,
	}, true
}
