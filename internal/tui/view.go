package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/csheth/docview/internal/locator"
	"github.com/csheth/docview/internal/session"
)

func (m *model) View() string {
	m.refreshViewport()
	parts := []string{m.heroView(), m.bodyView()}
	if m.menu.visible {
		parts = append(parts, m.menuView())
	}
	if prompt := m.promptView(); prompt != "" {
		parts = append(parts, prompt)
	}
	parts = append(parts, m.statusView())
	if text := m.notices.text(noticeTTL); text != "" {
		parts = append(parts, helperStyle.Render(text))
	}
	parts = append(parts, m.keyLegendView())
	if m.helpVisible {
		parts = append(parts, m.helpView())
	}
	return joinNonEmpty(parts)
}

func (m *model) heroView() string {
	info := m.session.Current()
	title := titleStyle.Render("docview")
	if info.ID != "" {
		title = lipgloss.JoinHorizontal(lipgloss.Top, title, helperStyle.Render("  "+info.ID))
	}
	return lipgloss.JoinVertical(lipgloss.Left, title, taglineStyle.Render(heroTagline))
}

func (m *model) bodyView() string {
	info := m.session.Current()
	name := locator.DisplayName(info.ID)
	switch info.State {
	case session.StateIdle:
		return helperStyle.Render("Pass a document on the command line, or press o to open a link.")
	case session.StateInitializing, session.StateAwaitingHandshake, session.StateLoading:
		return fmt.Sprintf("%s Opening %s…", m.spinner.View(), name)
	case session.StateFailed:
		return m.errorPanel(name)
	case session.StateClosed:
		return helperStyle.Render("Document closed.")
	default:
		return m.viewport.View()
	}
}

func (m *model) errorPanel(name string) string {
	reason := "unknown error"
	if err := m.session.Err(); err != nil {
		reason = err.Error()
	}
	width := m.layout.viewportWidth - 6
	if width < 20 {
		width = 20
	}
	lines := []string{
		errorStyle.Render("Could not open " + name),
		wordwrap.String(reason, width),
		helperStyle.Render("Press r to retry or o to open another link."),
	}
	return errorPanelStyle.Render(strings.Join(lines, "\n"))
}

func (m *model) menuView() string {
	header := "Selection"
	if m.lastSelection != "" {
		header = fmt.Sprintf("Selection: %q", truncate(m.lastSelection, selectionPreviewLimit))
	}
	rows := []string{sectionHeaderStyle.Render(header)}
	for idx, item := range m.menu.items {
		label := fmt.Sprintf("%d  %s", idx+1, item.Label)
		if idx == m.menu.cursor {
			label = currentLineStyle.Render("▸ " + label)
		} else {
			label = "  " + label
		}
		rows = append(rows, label)
	}
	margin := m.menu.x
	if limit := m.layout.viewportWidth / 2; margin > limit {
		margin = limit
	}
	if margin < 0 {
		margin = 0
	}
	return menuBoxStyle.MarginLeft(margin).Render(strings.Join(rows, "\n"))
}

func (m *model) promptView() string {
	var title, hint string
	switch m.stage {
	case stageGoto:
		title, hint = "Go to page", "Enter to jump, Esc to cancel."
	case stageLink:
		title, hint = "Open link", "Paste a [[doc#page=N&q=…]] link. Enter to open, Esc to cancel."
	case stageSelect:
		title, hint = "Select text", "Type a passage from this page. Enter to select, Esc to cancel."
	default:
		return ""
	}
	input := m.promptInput()
	return joinLines(sectionHeaderStyle.Render(title), input.View(), helperStyle.Render(hint))
}

func (m *model) statusView() string {
	info := m.session.Current()
	stats := []string{}
	if info.ID != "" {
		stats = append(stats, locator.DisplayName(info.ID))
	}
	if info.Pages > 0 {
		stats = append(stats, fmt.Sprintf("page %d/%d", info.Page, info.Pages))
	}
	stats = append(stats, info.State.String())
	if matched := len(m.session.View().Matched); matched > 0 {
		stats = append(stats, fmt.Sprintf("%d highlighted", matched))
	}
	return statusBarStyle.Render(strings.Join(stats, "  •  "))
}

type keyHint struct {
	Key         string
	Description string
}

func (m *model) keyLegendView() string {
	hints := []keyHint{
		{"n/p", "Next/prev page"},
		{"g", "Go to page"},
		{"/", "Select text"},
		{"o", "Open link"},
		{"esc", "Clear"},
		{"q", "Quit"},
	}
	if m.menu.visible {
		hints = []keyHint{
			{"1-3", "Choose"},
			{"↑/↓", "Move"},
			{"enter", "Run"},
			{"esc", "Dismiss"},
		}
	}
	cells := make([]string, 0, len(hints))
	for _, hint := range hints {
		cells = append(cells, lipgloss.JoinHorizontal(lipgloss.Top, keyStyle.Render(hint.Key), keyDescStyle.Render(" "+hint.Description+"  ")))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cells...)
}

func (m *model) helpView() string {
	lines := []string{
		sectionHeaderStyle.Render("Help"),
		helperStyle.Render("• pages you read are remembered and reopened where you left off."),
		helperStyle.Render("• / selects a passage and offers to copy it as text, as a quote block or as a link back to this page."),
		helperStyle.Render("• o opens a copied link; the quoted passage is highlighted once the page text is ready."),
		helperStyle.Render("• r reopens the document after an error, ? hides this help."),
	}
	return strings.Join(lines, "\n")
}

func joinNonEmpty(parts []string) string {
	filtered := make([]string, 0, len(parts))
	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			continue
		}
		filtered = append(filtered, part)
	}
	return strings.Join(filtered, "\n\n")
}

func joinLines(parts ...string) string {
	return strings.Join(parts, "\n")
}
