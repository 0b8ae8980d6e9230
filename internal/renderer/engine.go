package renderer

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/ledongthuc/pdf"

	"github.com/csheth/docview/internal/textmatch"
)

// Document is an opened, renderable document.
type Document interface {
	NumPages() int
	TextLayer(page int) []textmatch.Fragment
}

// Engine decodes document bytes.
type Engine interface {
	Open(buffer []byte) (Document, error)
}

var errEmptyDocument = errors.New("document is empty")

// PDFEngine renders PDF documents with github.com/ledongthuc/pdf.
type PDFEngine struct{}

// Open parses buffer as a PDF.
func (PDFEngine) Open(buffer []byte) (doc Document, err error) {
	if len(buffer) == 0 {
		return nil, errEmptyDocument
	}
	defer func() {
		if r := recover(); r != nil {
			doc, err = nil, fmt.Errorf("malformed pdf: %v", r)
		}
	}()
	reader, err := pdf.NewReader(bytes.NewReader(buffer), int64(len(buffer)))
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf: %w", err)
	}
	if reader.NumPage() == 0 {
		return nil, errors.New("pdf has no pages")
	}
	return &pdfDocument{reader: reader}, nil
}

type pdfDocument struct {
	mu     sync.Mutex
	reader *pdf.Reader
}

func (d *pdfDocument) NumPages() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.reader.NumPage()
}

// TextLayer returns one fragment per text row, or per text run when rows are
// unavailable. Pages that cannot be decoded yield an empty layer.
func (d *pdfDocument) TextLayer(page int) (fragments []textmatch.Fragment) {
	d.mu.Lock()
	defer d.mu.Unlock()
	defer func() {
		if r := recover(); r != nil {
			fragments = nil
		}
	}()
	p := d.reader.Page(page)
	if p.V.IsNull() {
		return nil
	}

	var texts []string
	if rows, err := p.GetTextByRow(); err == nil && len(rows) > 0 {
		for _, row := range rows {
			var b strings.Builder
			for _, run := range row.Content {
				b.WriteString(run.S)
			}
			texts = append(texts, b.String())
		}
	} else {
		for _, run := range p.Content().Text {
			texts = append(texts, run.S)
		}
	}
	return toFragments(texts)
}

func toFragments(texts []string) []textmatch.Fragment {
	fragments := make([]textmatch.Fragment, 0, len(texts))
	offset := 0
	for _, text := range texts {
		if text == "" {
			continue
		}
		fragments = append(fragments, textmatch.Fragment{Text: text, Start: offset})
		offset += len([]rune(text))
	}
	return fragments
}
