package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/csheth/docview/internal/library"
)

type jobKind string

const (
	jobKindRead  jobKind = "read"
	jobKindFlush jobKind = "flush"
)

type jobRunner func(context.Context) (tea.Msg, error)

// jobBus runs blocking collaborator calls off the control thread and logs
// how long each took.
type jobBus struct {
	counter int64
	logger  *slog.Logger
}

func newJobBus(logger *slog.Logger) *jobBus {
	return &jobBus{logger: logger}
}

func (b *jobBus) nextID(kind jobKind) string {
	idx := atomic.AddInt64(&b.counter, 1)
	return fmt.Sprintf("%s-%d", kind, idx)
}

func (b *jobBus) Start(kind jobKind, runner jobRunner) tea.Cmd {
	id := b.nextID(kind)
	return func() tea.Msg {
		started := time.Now()
		payload, err := runner(context.Background())
		status := "succeeded"
		if err != nil {
			status = "failed"
		}
		b.logger.Debug("job finished", "job", id, "status", status, "duration", time.Since(started), "error", err)
		return payload
	}
}

func readPayloadJob(source library.Source, seq int, id string) jobRunner {
	return func(ctx context.Context) (tea.Msg, error) {
		data, err := source.ReadFile(ctx, id)
		return payloadMsg{seq: seq, data: data, err: err}, err
	}
}

func flushJob(store PositionStore, id string) jobRunner {
	return func(ctx context.Context) (tea.Msg, error) {
		store.Flush(ctx, id)
		return nil, nil
	}
}
