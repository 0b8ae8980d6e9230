package surface

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

func TestDecodeRejectsUntypedMessages(t *testing.T) {
	t.Parallel()

	if _, err := Decode([]byte(`{"page":3}`)); err == nil {
		t.Fatal("expected error for missing type")
	}
	if _, err := Decode([]byte(`not json`)); err == nil {
		t.Fatal("expected error for malformed payload")
	}
	if _, err := Encode(Message{}); err == nil {
		t.Fatal("expected error encoding untyped message")
	}
}

func TestLoadMessageSurvivesWire(t *testing.T) {
	t.Parallel()

	in := Load([]byte{0x25, 0x50, 0x44, 0x46, 0x00, 0xff}, "doc.pdf", 4, "quote ü")
	data, err := Encode(in)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	out, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if !reflect.DeepEqual(in, out) {
		t.Fatalf("wire round trip = %+v, want %+v", out, in)
	}
}

func receive(t *testing.T, ch <-chan Message) Message {
	t.Helper()
	select {
	case msg, ok := <-ch:
		if !ok {
			t.Fatal("channel closed")
		}
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
	}
	return Message{}
}

func TestPipeDeliversBothDirections(t *testing.T) {
	t.Parallel()

	core, end := NewPipe(nil)
	t.Cleanup(func() { _ = core.Close() })

	if err := end.Emit(Message{Type: TypeReady}); err != nil {
		t.Fatalf("Emit() error = %v", err)
	}
	if got := receive(t, core.Inbox()); got.Type != TypeReady {
		t.Fatalf("core got %s", got.Type)
	}

	if err := core.Send(Message{Type: TypeGoto, Page: 6}); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if got := receive(t, end.Commands()); got.Type != TypeGoto || got.Page != 6 {
		t.Fatalf("surface got %+v", got)
	}
}

func TestPipeCloseIsIdempotent(t *testing.T) {
	t.Parallel()

	core, end := NewPipe(nil)
	if err := core.Close(); err != nil {
		t.Fatalf("first Close() error = %v", err)
	}
	if err := core.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
	if err := core.Send(Message{Type: TypeClear}); !errors.Is(err, ErrClosed) {
		t.Fatalf("Send() after close = %v", err)
	}
	if err := end.Emit(Message{Type: TypeClick}); !errors.Is(err, ErrClosed) {
		t.Fatalf("Emit() after close = %v", err)
	}
	select {
	case _, ok := <-core.Inbox():
		if ok {
			t.Fatal("inbox should be closed")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("inbox not closed after Close")
	}
}
