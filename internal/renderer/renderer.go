package renderer

import (
	"context"
	"log/slog"

	"github.com/csheth/docview/internal/surface"
	"github.com/csheth/docview/internal/textmatch"
)

// Options configures a rendering surface.
type Options struct {
	Engine      Engine
	Highlighter textmatch.Highlighter
	Logger      *slog.Logger
}

// Launch starts a rendering surface in its own goroutine and returns the
// core-side port. The surface announces itself with READY.
func Launch(opts Options) surface.Surface {
	if opts.Engine == nil {
		opts.Engine = PDFEngine{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Highlighter.Logger == nil {
		opts.Highlighter.Logger = opts.Logger
	}
	core, end := surface.NewPipe(opts.Logger)
	r := &renderer{
		end:        end,
		engine:     opts.Engine,
		highlight:  opts.Highlighter,
		logger:     opts.Logger.With("component", "renderer"),
		layer:      textmatch.NewMemoryLayer(nil),
		highlights: make(chan int, 1),
	}
	go r.run()
	return core
}

type renderer struct {
	end       *surface.Endpoint
	engine    Engine
	highlight textmatch.Highlighter
	logger    *slog.Logger

	doc   Document
	name  string
	page  int
	pages int
	layer *textmatch.MemoryLayer

	highlightGen    int
	cancelHighlight context.CancelFunc
	highlights      chan int
}

func (r *renderer) run() {
	defer r.stopHighlight()
	if err := r.end.Emit(surface.Message{Type: surface.TypeReady}); err != nil {
		return
	}
	for {
		select {
		case <-r.end.Done():
			return
		case gen := <-r.highlights:
			if gen == r.highlightGen {
				if err := r.emitRendered(); err != nil {
					return
				}
			}
		case msg, ok := <-r.end.Commands():
			if !ok {
				return
			}
			if err := r.handle(msg); err != nil {
				r.logger.Debug("surface stopped", "error", err)
				return
			}
		}
	}
}

func (r *renderer) handle(msg surface.Message) error {
	switch msg.Type {
	case surface.TypeLoad:
		return r.load(msg)
	case surface.TypeGoto:
		return r.gotoPage(msg.Page, msg.Highlight)
	case surface.TypeSelect:
		if r.doc == nil {
			return nil
		}
		return r.end.Emit(surface.Message{
			Type: surface.TypeContextMenu,
			Text: msg.Text,
			Page: r.page,
			X:    msg.X,
			Y:    msg.Y,
		})
	case surface.TypePointer:
		r.stopHighlight()
		r.highlight.ClearAll(r.layer)
		if err := r.end.Emit(surface.Message{Type: surface.TypeClick}); err != nil {
			return err
		}
		return r.emitRendered()
	case surface.TypeClear:
		r.stopHighlight()
		r.highlight.ClearAll(r.layer)
		return r.emitRendered()
	default:
		r.logger.Debug("ignoring command", "type", msg.Type)
		return nil
	}
}

func (r *renderer) load(msg surface.Message) error {
	r.stopHighlight()
	doc, err := r.engine.Open(msg.Buffer)
	if err != nil {
		r.logger.Warn("load failed", "name", msg.Name, "error", err)
		return r.end.Emit(surface.Message{Type: surface.TypeError, Message: err.Error()})
	}
	r.doc = doc
	r.name = msg.Name
	r.pages = doc.NumPages()
	r.page = r.clamp(msg.Page)
	r.layer.Replace(doc.TextLayer(r.page))
	if err := r.end.Emit(surface.Message{Type: surface.TypeLoaded, Page: r.page, Pages: r.pages}); err != nil {
		return err
	}
	if err := r.emitRendered(); err != nil {
		return err
	}
	if msg.Highlight != "" {
		r.startHighlight(msg.Highlight)
	}
	return nil
}

// gotoPage shows page (the current one when page is 0) and optionally
// highlights a passage on it.
func (r *renderer) gotoPage(page int, highlight string) error {
	if r.doc == nil {
		return nil
	}
	target := r.page
	if page != 0 {
		target = r.clamp(page)
	}
	if target != r.page {
		r.stopHighlight()
		r.page = target
		r.layer.Replace(r.doc.TextLayer(target))
		if err := r.end.Emit(surface.Message{Type: surface.TypePageChanged, Page: target}); err != nil {
			return err
		}
	}
	if highlight != "" {
		r.stopHighlight()
		r.highlight.ClearAll(r.layer)
	}
	if err := r.emitRendered(); err != nil {
		return err
	}
	if highlight != "" {
		r.startHighlight(highlight)
	}
	return nil
}

func (r *renderer) clamp(page int) int {
	if page < 1 {
		return 1
	}
	if r.pages > 0 && page > r.pages {
		return r.pages
	}
	return page
}

func (r *renderer) startHighlight(query string) {
	r.highlightGen++
	gen := r.highlightGen
	ctx, cancel := context.WithCancel(context.Background())
	r.cancelHighlight = cancel
	layer := &pageLayer{MemoryLayer: r.layer, doc: r.doc, page: r.page, ctx: ctx}
	go func() {
		if _, ok := r.highlight.Highlight(ctx, layer, query); !ok {
			r.logger.Debug("highlight not applied", "page", layer.page)
		}
		select {
		case r.highlights <- gen:
		case <-ctx.Done():
		}
	}()
}

func (r *renderer) stopHighlight() {
	r.highlightGen++
	if r.cancelHighlight != nil {
		r.cancelHighlight()
		r.cancelHighlight = nil
	}
}

func (r *renderer) emitRendered() error {
	fragments := r.layer.Fragments()
	lines := make([]string, len(fragments))
	for i, fragment := range fragments {
		lines[i] = fragment.Text
	}
	return r.end.Emit(surface.Message{
		Type:    surface.TypeRendered,
		Name:    r.name,
		Page:    r.page,
		Pages:   r.pages,
		Lines:   lines,
		Matched: r.layer.Marked(),
	})
}

// pageLayer refills an empty text layer from the document so the highlight
// retry loop sees text that arrives late.
type pageLayer struct {
	*textmatch.MemoryLayer
	doc  Document
	page int
	ctx  context.Context
}

// Mark drops marks from a highlight that was superseded mid-flight.
func (l *pageLayer) Mark(indices []int) {
	if l.ctx.Err() != nil {
		return
	}
	l.MemoryLayer.Mark(indices)
}

func (l *pageLayer) Fragments() []textmatch.Fragment {
	fragments := l.MemoryLayer.Fragments()
	if len(fragments) > 0 {
		return fragments
	}
	fragments = l.doc.TextLayer(l.page)
	if len(fragments) > 0 {
		l.MemoryLayer.Replace(fragments)
	}
	return fragments
}
