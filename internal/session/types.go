package session

import (
	"context"
	"errors"

	"github.com/csheth/docview/internal/locator"
	"github.com/csheth/docview/internal/surface"
)

// State is the lifecycle stage of the current rendering session.
type State int

const (
	StateIdle State = iota
	StateInitializing
	StateAwaitingHandshake
	StateLoading
	StateInteractive
	StateClosed
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateInitializing:
		return "initializing"
	case StateAwaitingHandshake:
		return "awaiting-handshake"
	case StateLoading:
		return "loading"
	case StateInteractive:
		return "interactive"
	case StateClosed:
		return "closed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ErrHandshakeTimeout is reported when a surface never signals READY.
var ErrHandshakeTimeout = errors.New("rendering surface did not become ready")

// Notifier shows a transient message to the user.
type Notifier interface {
	Notify(message string)
}

// MenuItem is one labeled action of a context menu.
type MenuItem struct {
	Label  string
	Action func()
}

// Menu shows a positioned context menu.
type Menu interface {
	Show(x, y int, items []MenuItem)
	Dismiss()
}

// Clipboard receives copied text.
type Clipboard interface {
	WriteText(text string) error
}

// PositionStore is the page memory the controller reads and writes through.
type PositionStore interface {
	Get(id string) (int, bool)
	Remember(id string, page int) bool
	Flush(ctx context.Context, id string)
}

// SurfaceFactory creates a fresh rendering surface.
type SurfaceFactory func() (surface.Surface, error)

// Host lifecycle callbacks, delivered to Controller.Update.
type (
	// OpenMsg opens a document using stored position memory.
	OpenMsg struct{ ID string }
	// NavigateMsg opens (or moves within) a document at a locator.
	NavigateMsg struct {
		ID      string
		Locator locator.Locator
	}
	// CloseMsg closes the current document.
	CloseMsg struct{}
)

// Input relayed into the surface while interactive.
type (
	GotoPageMsg struct{ Page int }
	SelectMsg   struct {
		Text string
		X, Y int
	}
	PointerMsg struct{}
)

// Results of asynchronous work, tagged with the session sequence that
// started them.
type (
	surfaceMsg struct {
		seq int
		msg surface.Message
	}
	surfaceClosedMsg   struct{ seq int }
	payloadMsg         struct {
		seq  int
		data []byte
		err  error
	}
	handshakeTimeoutMsg struct{ seq int }
	settledMsg          struct{ seq int }
)

// View is the last page the surface rendered.
type View struct {
	Name    string
	Page    int
	Pages   int
	Lines   []string
	Matched []int
}

// Info summarizes the current session.
type Info struct {
	ID    string
	Seq   int
	State State
	Page  int
	Pages int
}
