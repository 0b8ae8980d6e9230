package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/csheth/docview/internal/locator"
	"github.com/csheth/docview/internal/session"
)

// openInitialCmd opens the document named on the command line. A deep link
// wins over the plain document and may omit the identity when a document is
// also given.
func (m *model) openInitialCmd() tea.Cmd {
	doc := strings.TrimSpace(m.config.Document)
	if link := strings.TrimSpace(m.config.Link); link != "" {
		if id, loc, ok := m.parseLinkInput(link, doc); ok {
			return navigateCmd(id, loc)
		}
		m.logger.Warn("ignoring malformed link", "link", link)
		m.notices.Notify("Ignoring malformed link.")
	}
	if doc == "" {
		return nil
	}
	return openCmd(doc)
}

func openCmd(id string) tea.Cmd {
	return func() tea.Msg {
		return session.OpenMsg{ID: id}
	}
}

func navigateCmd(id string, loc locator.Locator) tea.Cmd {
	return func() tea.Msg {
		return session.NavigateMsg{ID: id, Locator: loc}
	}
}
