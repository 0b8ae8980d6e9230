package tui

import (
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/csheth/docview/internal/locator"
	"github.com/csheth/docview/internal/session"
)

const noticeTTL = 4 * time.Second

// Config wires runtime options into the TUI program. Notifier and Menu in
// Session are supplied by the TUI itself; a nil Clipboard uses the system
// clipboard.
type Config struct {
	Session  session.Config
	Document string
	Link     string
	Now      func() time.Time
}

type noticeExpiredMsg struct{}

type model struct {
	config  Config
	session *session.Controller
	logger  *slog.Logger
	stage   stage
	layout  pageLayout

	gotoInput   textinput.Model
	linkInput   textinput.Model
	selectInput textinput.Model
	spinner     spinner.Model
	viewport    viewport.Model

	menu    contextMenu
	notices noticeBoard

	content       pageContent
	renderedKey   string
	renderedPage  int
	viewportDirty bool
	noticeSeen    time.Time
	helpVisible   bool
	lastSelection string
}

// New returns a tea.Model ready to be mounted into a Program.
func New(config Config) tea.Model {
	gotoInput := textinput.New()
	gotoInput.Placeholder = "Page number"
	gotoInput.CharLimit = 8
	gotoInput.Width = 12

	linkInput := textinput.New()
	linkInput.Placeholder = "[[doc.pdf#page=3&q=…|doc (page 3)]] or #page=3"
	linkInput.CharLimit = 2048
	linkInput.Width = 70

	selectInput := textinput.New()
	selectInput.Placeholder = "Text to select on this page…"
	selectInput.CharLimit = 500
	selectInput.Width = 70

	spin := spinner.New()
	spin.Spinner = spinner.Dot

	vp := viewport.New(80, 20)
	vp.MouseWheelEnabled = true

	now := config.Now
	if now == nil {
		now = time.Now
	}
	logger := config.Session.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	m := &model{
		config:        config,
		logger:        logger.With("component", "tui"),
		stage:         stageDisplay,
		layout:        newPageLayout(),
		gotoInput:     gotoInput,
		linkInput:     linkInput,
		selectInput:   selectInput,
		spinner:       spin,
		viewport:      vp,
		notices:       noticeBoard{now: now},
		viewportDirty: true,
	}
	sc := config.Session
	sc.Notifier = &m.notices
	sc.Menu = &m.menu
	if sc.Clipboard == nil {
		sc.Clipboard = systemClipboard{}
	}
	m.session = session.New(sc)
	return m
}

func (m *model) Init() tea.Cmd {
	return m.openInitialCmd()
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		if m.loading() {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil
	case noticeExpiredMsg:
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, m.quit()
		}
		return m.handleKey(msg)
	case tea.MouseMsg:
		if m.session.State() == session.StateInteractive {
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
		return m, nil
	case tea.WindowSizeMsg:
		m.layout.Update(msg.Width, msg.Height)
		m.viewport.Width = m.layout.viewportWidth
		m.viewport.Height = m.layout.viewportHeight
		m.viewportDirty = true
		m.refreshViewport()
		return m, nil
	}
	if input := m.promptInput(); input != nil {
		var blink tea.Cmd
		*input, blink = input.Update(msg)
		return m, tea.Batch(blink, m.forward(msg))
	}
	return m, m.forward(msg)
}

// forward hands msg to the session controller and picks up whatever it
// changed: the page view, the spinner and new notices.
func (m *model) forward(msg tea.Msg) tea.Cmd {
	wasLoading := m.loading()
	cmd := m.session.Update(msg)
	return tea.Batch(cmd, m.afterSession(wasLoading))
}

func (m *model) afterSession(wasLoading bool) tea.Cmd {
	m.refreshViewport()
	var cmds []tea.Cmd
	if !wasLoading && m.loading() {
		cmds = append(cmds, m.spinner.Tick)
	}
	if at := m.notices.current.at; !at.IsZero() && !at.Equal(m.noticeSeen) {
		m.noticeSeen = at
		cmds = append(cmds, tea.Tick(noticeTTL, func(time.Time) tea.Msg { return noticeExpiredMsg{} }))
	}
	return tea.Batch(cmds...)
}

func (m *model) loading() bool {
	switch m.session.State() {
	case session.StateInitializing, session.StateAwaitingHandshake, session.StateLoading:
		return true
	default:
		return false
	}
}

func (m *model) quit() tea.Cmd {
	m.logger.Info("quitting", "id", m.session.Current().ID, "state", m.session.State().String())
	m.session.Update(session.CloseMsg{})
	return tea.Quit
}

func (m *model) refreshViewport() {
	view := m.session.View()
	key := fmt.Sprintf("%s|%d|%v|%d|%d", view.Name, view.Page, view.Matched, len(view.Lines), m.viewport.Width)
	if key == m.renderedKey && !m.viewportDirty {
		return
	}
	m.renderedKey = key
	m.viewportDirty = false
	m.content = buildPageContent(view, m.viewport.Width)
	m.viewport.SetContent(m.content.content)
	switch {
	case m.content.firstMark >= 0:
		m.viewport.SetYOffset(m.content.firstMark)
	case view.Page != m.renderedPage:
		m.viewport.GotoTop()
	}
	m.renderedPage = view.Page
}

func (m *model) handleKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.menu.visible {
		return m, m.handleMenuKey(key)
	}
	switch m.stage {
	case stageGoto, stageLink, stageSelect:
		return m, m.handlePromptKey(key)
	}
	return m, m.handleDisplayKey(key)
}

func (m *model) handleDisplayKey(key tea.KeyMsg) tea.Cmd {
	info := m.session.Current()
	interactive := info.State == session.StateInteractive
	switch key.String() {
	case "q":
		return m.quit()
	case "n", "right", "l":
		if interactive && (info.Pages == 0 || info.Page < info.Pages) {
			return m.forward(session.GotoPageMsg{Page: info.Page + 1})
		}
		return nil
	case "p", "left", "h":
		if interactive && info.Page > 1 {
			return m.forward(session.GotoPageMsg{Page: info.Page - 1})
		}
		return nil
	case "g":
		if interactive {
			return m.startPrompt(stageGoto)
		}
		return nil
	case "o":
		return m.startPrompt(stageLink)
	case "/":
		if interactive {
			return m.startPrompt(stageSelect)
		}
		return nil
	case "esc":
		return m.forward(session.PointerMsg{})
	case "r":
		if info.ID != "" && !m.loading() {
			return m.forward(session.OpenMsg{ID: info.ID})
		}
		return nil
	case "?":
		m.helpVisible = !m.helpVisible
		return nil
	}
	if interactive {
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(key)
		return cmd
	}
	return nil
}

func (m *model) handleMenuKey(key tea.KeyMsg) tea.Cmd {
	switch key.String() {
	case "1", "2", "3", "4", "5", "6", "7", "8", "9":
		index, _ := strconv.Atoi(key.String())
		if m.menu.choose(index - 1) {
			return m.afterSession(m.loading())
		}
		return nil
	case "enter":
		m.menu.choose(m.menu.cursor)
		return m.afterSession(m.loading())
	case "up", "k":
		m.menu.move(-1)
	case "down", "j", "tab":
		m.menu.move(1)
	case "esc":
		m.menu.Dismiss()
		return m.forward(session.PointerMsg{})
	case "q":
		return m.quit()
	}
	return nil
}

func (m *model) startPrompt(target stage) tea.Cmd {
	m.stage = target
	input := m.promptInput()
	input.SetValue("")
	return input.Focus()
}

func (m *model) promptInput() *textinput.Model {
	switch m.stage {
	case stageGoto:
		return &m.gotoInput
	case stageLink:
		return &m.linkInput
	case stageSelect:
		return &m.selectInput
	default:
		return nil
	}
}

func (m *model) closePrompt() {
	if input := m.promptInput(); input != nil {
		input.Blur()
		input.SetValue("")
	}
	m.stage = stageDisplay
}

func (m *model) handlePromptKey(key tea.KeyMsg) tea.Cmd {
	input := m.promptInput()
	switch key.Type {
	case tea.KeyEsc:
		m.closePrompt()
		return nil
	case tea.KeyEnter:
		value := strings.TrimSpace(input.Value())
		target := m.stage
		m.closePrompt()
		return m.submitPrompt(target, value)
	}
	var cmd tea.Cmd
	*input, cmd = input.Update(key)
	return cmd
}

func (m *model) submitPrompt(target stage, value string) tea.Cmd {
	info := m.session.Current()
	switch target {
	case stageGoto:
		page, err := strconv.Atoi(value)
		if err != nil || page < 1 || (info.Pages > 0 && page > info.Pages) {
			m.notices.Notify(fmt.Sprintf("Enter a page number between 1 and %d.", max(info.Pages, 1)))
			return m.afterSession(m.loading())
		}
		return m.forward(session.GotoPageMsg{Page: page})
	case stageLink:
		id, loc, ok := m.parseLinkInput(value, info.ID)
		if !ok {
			m.notices.Notify("Not a document link.")
			return m.afterSession(m.loading())
		}
		return m.forward(session.NavigateMsg{ID: id, Locator: loc})
	case stageSelect:
		if value == "" {
			return nil
		}
		m.lastSelection = value
		x, y := 2, 0
		if row := rowContaining(m.session.View().Lines, value); row >= 0 && row < len(m.content.rowLines) {
			y = m.content.rowLines[row] - m.viewport.YOffset
		}
		return m.forward(session.SelectMsg{Text: value, X: x, Y: y})
	}
	return nil
}

// parseLinkInput accepts full links, bare fragments ("#page=3" or
// "page=3&q=…") for the open document, and plain identities.
func (m *model) parseLinkInput(value, current string) (string, locator.Locator, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", locator.Locator{}, false
	}
	if strings.HasPrefix(value, "#") || strings.HasPrefix(value, "page=") || strings.HasPrefix(value, "q=") {
		if current == "" {
			return "", locator.Locator{}, false
		}
		return current, locator.Decode(value), true
	}
	return locator.ParseLink(value)
}
