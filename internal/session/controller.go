package session

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/csheth/docview/internal/citation"
	"github.com/csheth/docview/internal/library"
	"github.com/csheth/docview/internal/locator"
	"github.com/csheth/docview/internal/surface"
)

const (
	DefaultHandshakeTimeout = 15 * time.Second
	DefaultSettleDelay      = 50 * time.Millisecond
)

// Menu action labels, in display order.
const (
	ActionCopyText  = "Copy text"
	ActionCopyQuote = "Copy as quote"
	ActionCopyLink  = "Copy link"
)

// Config wires the controller to its collaborators.
type Config struct {
	Source     library.Source
	Positions  PositionStore
	NewSurface SurfaceFactory
	Notifier   Notifier
	Menu       Menu
	Clipboard  Clipboard

	HandshakeTimeout time.Duration
	SettleDelay      time.Duration
	Logger           *slog.Logger
}

type navIntent struct {
	id  string
	loc locator.Locator
}

type handler func(c *Controller, msg surface.Message) tea.Cmd

// Controller drives one rendering session at a time. All of its methods must
// be called from the same goroutine, normally a bubbletea Update loop; the
// commands it returns do the blocking work elsewhere and report back as
// messages tagged with the sequence that issued them.
type Controller struct {
	cfg      Config
	logger   *slog.Logger
	jobs     *jobBus
	handlers map[surface.Type]handler

	state   State
	seq     int
	id      string
	surface surface.Surface
	err     error

	ready       bool
	payload     []byte
	havePayload bool
	intent      *navIntent

	page  int
	pages int
	view  View
}

// New returns an idle controller.
func New(cfg Config) *Controller {
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if cfg.SettleDelay < 0 {
		cfg.SettleDelay = 0
	}
	if cfg.Notifier == nil {
		cfg.Notifier = nopNotifier{}
	}
	if cfg.Menu == nil {
		cfg.Menu = nopMenu{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	logger = logger.With("component", "session")
	return &Controller{
		cfg:    cfg,
		logger: logger,
		jobs:   newJobBus(logger),
		handlers: map[surface.Type]handler{
			surface.TypeReady:       (*Controller).onReady,
			surface.TypeLoaded:      (*Controller).onLoaded,
			surface.TypeError:       (*Controller).onError,
			surface.TypePageChanged: (*Controller).onPageChanged,
			surface.TypeContextMenu: (*Controller).onContextMenu,
			surface.TypeClick:       (*Controller).onClick,
			surface.TypeRendered:    (*Controller).onRendered,
		},
	}
}

// Update applies one message and returns follow-up work.
func (c *Controller) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case OpenMsg:
		return c.open(msg.ID)
	case NavigateMsg:
		return c.navigate(msg.ID, msg.Locator)
	case CloseMsg:
		c.Close()
		return nil
	case GotoPageMsg:
		if msg.Page < 1 {
			return nil
		}
		return c.relay(surface.Message{Type: surface.TypeGoto, Page: msg.Page})
	case SelectMsg:
		return c.relay(surface.Message{Type: surface.TypeSelect, Text: msg.Text, X: msg.X, Y: msg.Y})
	case PointerMsg:
		return c.relay(surface.Message{Type: surface.TypePointer})
	case surfaceMsg:
		if !c.current(msg.seq) {
			c.logger.Debug("dropping stale surface message", "type", msg.msg.Type, "seq", msg.seq, "current", c.seq)
			return nil
		}
		cmd := c.dispatch(msg.msg)
		if c.current(msg.seq) {
			return tea.Batch(cmd, c.listen())
		}
		return cmd
	case surfaceClosedMsg:
		if !c.current(msg.seq) {
			return nil
		}
		return c.fail(errors.New("rendering surface closed"))
	case payloadMsg:
		if !c.current(msg.seq) {
			c.logger.Debug("dropping stale payload", "seq", msg.seq, "current", c.seq)
			return nil
		}
		if msg.err != nil {
			return c.fail(fmt.Errorf("read %s: %w", c.id, msg.err))
		}
		c.payload = msg.data
		c.havePayload = true
		return c.maybeLoad()
	case handshakeTimeoutMsg:
		if !c.current(msg.seq) || c.ready {
			return nil
		}
		return c.fail(ErrHandshakeTimeout)
	case settledMsg:
		if !c.current(msg.seq) || c.state != StateLoading {
			return nil
		}
		return c.sendLoad()
	}
	return nil
}

func (c *Controller) current(seq int) bool {
	return seq == c.seq && c.surface != nil
}

func (c *Controller) dispatch(msg surface.Message) tea.Cmd {
	h, ok := c.handlers[msg.Type]
	if !ok {
		c.logger.Debug("ignoring unknown surface message", "type", msg.Type)
		return nil
	}
	return h(c, msg)
}

func (c *Controller) open(id string) tea.Cmd {
	c.teardown()
	c.seq++
	if c.intent != nil && c.intent.id != id {
		c.intent = nil
	}
	c.id = id
	c.err = nil
	c.page, c.pages = 0, 0
	c.state = StateInitializing
	c.logger.Info("opening document", "id", id, "seq", c.seq)

	s, err := c.cfg.NewSurface()
	if err != nil {
		return c.fail(fmt.Errorf("create rendering surface: %w", err))
	}
	c.surface = s
	c.state = StateAwaitingHandshake

	seq := c.seq
	timeout := tea.Tick(c.cfg.HandshakeTimeout, func(time.Time) tea.Msg {
		return handshakeTimeoutMsg{seq: seq}
	})
	return tea.Batch(c.listen(), c.jobs.Start(jobKindRead, readPayloadJob(c.cfg.Source, seq, id)), timeout)
}

func (c *Controller) navigate(id string, loc locator.Locator) tea.Cmd {
	if id == c.id && c.surface != nil {
		switch c.state {
		case StateInteractive:
			if !loc.HasPage() && !loc.HasQuote() {
				return nil
			}
			return c.relay(surface.Message{Type: surface.TypeGoto, Page: loc.Page, Highlight: loc.Quote})
		case StateInitializing, StateAwaitingHandshake, StateLoading:
			c.intent = &navIntent{id: id, loc: loc}
			return nil
		}
	}
	c.intent = &navIntent{id: id, loc: loc}
	return c.open(id)
}

// Close releases the current surface. Calling it again is a no-op.
func (c *Controller) Close() {
	if c.state == StateIdle || c.state == StateClosed {
		return
	}
	c.teardown()
	c.seq++
	c.intent = nil
	c.state = StateClosed
	c.logger.Info("closed document", "id", c.id)
}

func (c *Controller) teardown() {
	if c.surface != nil {
		if err := c.surface.Close(); err != nil {
			c.logger.Warn("closing surface", "error", err)
		}
		c.cfg.Menu.Dismiss()
	}
	c.surface = nil
	c.ready = false
	c.payload = nil
	c.havePayload = false
	c.view = View{}
}

func (c *Controller) fail(err error) tea.Cmd {
	c.logger.Warn("session failed", "id", c.id, "seq", c.seq, "error", err)
	c.teardown()
	c.seq++
	c.err = err
	c.state = StateFailed
	c.cfg.Notifier.Notify(fmt.Sprintf("Could not open %s: %v", locator.DisplayName(c.id), err))
	return nil
}

func (c *Controller) listen() tea.Cmd {
	s, seq := c.surface, c.seq
	if s == nil {
		return nil
	}
	return func() tea.Msg {
		msg, ok := <-s.Inbox()
		if !ok {
			return surfaceClosedMsg{seq: seq}
		}
		return surfaceMsg{seq: seq, msg: msg}
	}
}

func (c *Controller) relay(msg surface.Message) tea.Cmd {
	if c.state != StateInteractive || c.surface == nil {
		return nil
	}
	if err := c.surface.Send(msg); err != nil {
		c.logger.Warn("relay to surface", "type", msg.Type, "error", err)
	}
	return nil
}

// maybeLoad starts the settle window once both the handshake and the payload
// are in.
func (c *Controller) maybeLoad() tea.Cmd {
	if !c.ready || !c.havePayload || c.state != StateAwaitingHandshake {
		return nil
	}
	c.state = StateLoading
	seq := c.seq
	if c.cfg.SettleDelay == 0 {
		return func() tea.Msg { return settledMsg{seq: seq} }
	}
	return tea.Tick(c.cfg.SettleDelay, func(time.Time) tea.Msg {
		return settledMsg{seq: seq}
	})
}

func (c *Controller) sendLoad() tea.Cmd {
	page := 1
	if c.cfg.Positions != nil {
		if stored, ok := c.cfg.Positions.Get(c.id); ok && stored > 0 {
			page = stored
		}
	}
	var quote string
	if c.intent != nil && c.intent.id == c.id {
		if c.intent.loc.HasPage() {
			page = c.intent.loc.Page
		}
		quote = c.intent.loc.Quote
	}
	c.intent = nil
	c.page = page

	msg := surface.Load(c.payload, path.Base(c.id), page, quote)
	c.payload = nil
	if err := c.surface.Send(msg); err != nil {
		return c.fail(fmt.Errorf("send load: %w", err))
	}
	c.logger.Debug("load sent", "id", c.id, "page", page, "highlight", quote != "")
	return nil
}

func (c *Controller) onReady(surface.Message) tea.Cmd {
	if c.state != StateAwaitingHandshake || c.ready {
		return nil
	}
	c.ready = true
	return c.maybeLoad()
}

func (c *Controller) onLoaded(msg surface.Message) tea.Cmd {
	if c.state != StateLoading {
		return nil
	}
	c.state = StateInteractive
	if msg.Page > 0 {
		c.page = msg.Page
	}
	c.pages = msg.Pages
	c.logger.Info("document loaded", "id", c.id, "page", c.page, "pages", c.pages)
	// Intent that arrived after LOAD went out.
	if intent := c.intent; intent != nil && intent.id == c.id {
		c.intent = nil
		return c.relay(surface.Message{Type: surface.TypeGoto, Page: intent.loc.Page, Highlight: intent.loc.Quote})
	}
	return nil
}

func (c *Controller) onError(msg surface.Message) tea.Cmd {
	text := msg.Message
	if text == "" {
		text = "rendering failed"
	}
	if c.state != StateInteractive {
		return c.fail(errors.New(text))
	}
	c.logger.Warn("surface error", "id", c.id, "message", text)
	c.cfg.Notifier.Notify(text)
	return nil
}

func (c *Controller) onPageChanged(msg surface.Message) tea.Cmd {
	if c.state != StateInteractive || msg.Page < 1 {
		return nil
	}
	c.page = msg.Page
	if c.cfg.Positions == nil || !c.cfg.Positions.Remember(c.id, msg.Page) {
		return nil
	}
	return c.jobs.Start(jobKindFlush, flushJob(c.cfg.Positions, c.id))
}

func (c *Controller) onContextMenu(msg surface.Message) tea.Cmd {
	if c.state != StateInteractive {
		return nil
	}
	page := msg.Page
	if page < 1 {
		page = c.page
	}
	cite, ok := citation.Build(msg.Text, page, c.id)
	if !ok {
		return nil
	}
	c.cfg.Menu.Show(msg.X, msg.Y, []MenuItem{
		{Label: ActionCopyText, Action: c.copyAction(cite.Plain, "Copied text")},
		{Label: ActionCopyQuote, Action: c.copyAction(cite.QuoteBlock, "Copied quote")},
		{Label: ActionCopyLink, Action: c.copyAction(cite.Link, "Copied link")},
	})
	return nil
}

func (c *Controller) copyAction(text, done string) func() {
	clip, notifier, logger := c.cfg.Clipboard, c.cfg.Notifier, c.logger
	return func() {
		if clip == nil {
			notifier.Notify("Clipboard unavailable")
			return
		}
		if err := clip.WriteText(text); err != nil {
			logger.Warn("clipboard write", "error", err)
			notifier.Notify(fmt.Sprintf("Clipboard unavailable: %v", err))
			return
		}
		notifier.Notify(done)
	}
}

func (c *Controller) onClick(surface.Message) tea.Cmd {
	c.cfg.Menu.Dismiss()
	if len(c.view.Matched) > 0 && c.surface != nil {
		if err := c.surface.Send(surface.Message{Type: surface.TypeClear}); err != nil {
			c.logger.Warn("clear highlights", "error", err)
		}
	}
	return nil
}

func (c *Controller) onRendered(msg surface.Message) tea.Cmd {
	c.view = View{
		Name:    msg.Name,
		Page:    msg.Page,
		Pages:   msg.Pages,
		Lines:   msg.Lines,
		Matched: msg.Matched,
	}
	if msg.Page > 0 {
		c.page = msg.Page
	}
	if msg.Pages > 0 {
		c.pages = msg.Pages
	}
	return nil
}

// State reports the lifecycle stage.
func (c *Controller) State() State { return c.state }

// Seq reports the current session sequence.
func (c *Controller) Seq() int { return c.seq }

// Err is the failure that moved the session to StateFailed.
func (c *Controller) Err() error { return c.err }

// View returns the last rendered page.
func (c *Controller) View() View { return c.view }

// Current summarizes the session.
func (c *Controller) Current() Info {
	return Info{ID: c.id, Seq: c.seq, State: c.state, Page: c.page, Pages: c.pages}
}

type nopNotifier struct{}

func (nopNotifier) Notify(string) {}

type nopMenu struct{}

func (nopMenu) Show(int, int, []MenuItem) {}
func (nopMenu) Dismiss()                  {}
