package tui

import (
	"time"

	"github.com/atotto/clipboard"

	"github.com/csheth/docview/internal/session"
)

// contextMenu is the positioned citation menu. The session controller shows
// and dismisses it; the model draws it and runs the chosen action.
type contextMenu struct {
	visible bool
	x, y    int
	items   []session.MenuItem
	cursor  int
}

func (c *contextMenu) Show(x, y int, items []session.MenuItem) {
	c.visible = len(items) > 0
	c.x, c.y = x, y
	c.items = items
	c.cursor = 0
}

func (c *contextMenu) Dismiss() {
	c.visible = false
	c.items = nil
	c.cursor = 0
}

func (c *contextMenu) move(delta int) {
	if len(c.items) == 0 {
		return
	}
	c.cursor = (c.cursor + delta + len(c.items)) % len(c.items)
}

// choose runs the item at index and closes the menu.
func (c *contextMenu) choose(index int) bool {
	if !c.visible || index < 0 || index >= len(c.items) {
		return false
	}
	action := c.items[index].Action
	c.Dismiss()
	if action != nil {
		action()
	}
	return true
}

// notice is a transient status line message.
type notice struct {
	text string
	at   time.Time
}

type noticeBoard struct {
	current notice
	now     func() time.Time
}

func (n *noticeBoard) Notify(message string) {
	n.current = notice{text: message, at: n.now()}
}

func (n *noticeBoard) text(ttl time.Duration) string {
	if n.current.text == "" || n.now().Sub(n.current.at) > ttl {
		return ""
	}
	return n.current.text
}

// systemClipboard writes through the OS clipboard.
type systemClipboard struct{}

func (systemClipboard) WriteText(text string) error {
	return clipboard.WriteAll(text)
}
