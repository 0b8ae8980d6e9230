package surface

import (
	"errors"
	"log/slog"
	"sync"
)

// ErrClosed is returned when sending on a closed surface.
var ErrClosed = errors.New("surface: closed")

// Surface is the core-side port of an isolated rendering surface. Inbox is
// closed once the surface is closed.
type Surface interface {
	Send(Message) error
	Inbox() <-chan Message
	Close() error
}

const pipeBuffer = 16

// Pipe connects the core to a surface running elsewhere in the process.
// Messages cross only as encoded bytes, so neither side shares memory with
// the other.
type Pipe struct {
	toSurface chan []byte
	toCore    chan []byte
	inbox     chan Message
	commands  chan Message
	done      chan struct{}
	once      sync.Once
	logger    *slog.Logger
}

// Endpoint is the surface side of a Pipe.
type Endpoint struct {
	pipe *Pipe
}

// NewPipe returns the core-side Surface and the surface-side Endpoint.
func NewPipe(logger *slog.Logger) (*Pipe, *Endpoint) {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Pipe{
		toSurface: make(chan []byte, pipeBuffer),
		toCore:    make(chan []byte, pipeBuffer),
		inbox:     make(chan Message, pipeBuffer),
		commands:  make(chan Message, pipeBuffer),
		done:      make(chan struct{}),
		logger:    logger.With("component", "surface"),
	}
	go p.pump(p.toCore, p.inbox)
	go p.pump(p.toSurface, p.commands)
	return p, &Endpoint{pipe: p}
}

func (p *Pipe) pump(in <-chan []byte, out chan<- Message) {
	defer close(out)
	for {
		select {
		case <-p.done:
			return
		case data := <-in:
			msg, err := Decode(data)
			if err != nil {
				p.logger.Warn("dropping malformed message", "error", err)
				continue
			}
			select {
			case out <- msg:
			case <-p.done:
				return
			}
		}
	}
}

func (p *Pipe) send(ch chan<- []byte, m Message) error {
	data, err := Encode(m)
	if err != nil {
		return err
	}
	select {
	case <-p.done:
		return ErrClosed
	default:
	}
	select {
	case ch <- data:
		return nil
	case <-p.done:
		return ErrClosed
	}
}

// Send delivers a command to the surface.
func (p *Pipe) Send(m Message) error { return p.send(p.toSurface, m) }

// Inbox yields messages emitted by the surface.
func (p *Pipe) Inbox() <-chan Message { return p.inbox }

// Close tears the pipe down. It is safe to call more than once.
func (p *Pipe) Close() error {
	p.once.Do(func() { close(p.done) })
	return nil
}

// Commands yields messages sent by the core.
func (e *Endpoint) Commands() <-chan Message { return e.pipe.commands }

// Emit delivers a message to the core.
func (e *Endpoint) Emit(m Message) error { return e.pipe.send(e.pipe.toCore, m) }

// Done is closed when the core disposes the surface.
func (e *Endpoint) Done() <-chan struct{} { return e.pipe.done }
