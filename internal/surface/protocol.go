package surface

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Type tags a protocol message.
type Type string

// Surface to core.
const (
	TypeReady       Type = "READY"
	TypeLoaded      Type = "LOADED"
	TypeError       Type = "ERROR"
	TypePageChanged Type = "PAGE_CHANGED"
	TypeContextMenu Type = "CONTEXT_MENU"
	TypeClick       Type = "CLICK"
	TypeRendered    Type = "RENDERED"
)

// Core to surface.
const (
	TypeLoad    Type = "LOAD"
	TypeGoto    Type = "GOTO"
	TypeSelect  Type = "SELECT"
	TypePointer Type = "POINTER"
	TypeClear   Type = "CLEAR"
)

// Message is the tagged union exchanged with a rendering surface. Which fields
// are meaningful depends on Type.
type Message struct {
	Type      Type     `json:"type"`
	Buffer    []byte   `json:"buffer,omitempty"`
	Name      string   `json:"name,omitempty"`
	Page      int      `json:"page,omitempty"`
	Highlight string   `json:"highlight,omitempty"`
	Message   string   `json:"message,omitempty"`
	Text      string   `json:"text,omitempty"`
	X         int      `json:"x,omitempty"`
	Y         int      `json:"y,omitempty"`
	Pages     int      `json:"pages,omitempty"`
	Lines     []string `json:"lines,omitempty"`
	Matched   []int    `json:"matched,omitempty"`
}

var errMissingType = errors.New("surface: message without type")

// Encode serializes m for the wire.
func Encode(m Message) ([]byte, error) {
	if m.Type == "" {
		return nil, errMissingType
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", m.Type, err)
	}
	return data, nil
}

// Decode parses a wire message.
func Decode(data []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return Message{}, fmt.Errorf("decode surface message: %w", err)
	}
	if m.Type == "" {
		return Message{}, errMissingType
	}
	return m, nil
}

// Load builds the LOAD command. page and highlight are optional.
func Load(buffer []byte, name string, page int, highlight string) Message {
	return Message{Type: TypeLoad, Buffer: buffer, Name: name, Page: page, Highlight: highlight}
}
