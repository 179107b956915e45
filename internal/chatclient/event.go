// Package chatclient is a Go client for the chat hub's WebSocket and HTTP
// APIs, plus the render rules a front end applies before showing anything.
package chatclient

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lalith-99/chathub/internal/chat"
)

// Message is a chat message as a client sees it, from a live event or from
// history. RecipientID is nil when the payload had no recipientId key.
type Message struct {
	ID            int64      `json:"id"`
	SenderID      uuid.UUID  `json:"senderId"`
	SenderName    string     `json:"senderName"`
	RecipientID   *uuid.UUID `json:"recipientId,omitempty"`
	RecipientName string     `json:"recipientName,omitempty"`
	Body          string     `json:"body"`
	CreatedAt     time.Time  `json:"createdAt"`
	IsPrivate     bool       `json:"isPrivate"`
}

// Event is one decoded frame from the hub. Exactly one of Message, Reason
// and DisplayName is meaningful, depending on Type.
type Event struct {
	Type        chat.EventType
	Message     *Message
	Reason      string
	DisplayName string
}

type envelope struct {
	Type chat.EventType  `json:"type"`
	Data json.RawMessage `json:"data"`
}

// DecodeEvent parses one frame. Unknown event types decode without error
// and are left for the caller (and View.Admits) to ignore.
func DecodeEvent(raw []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}

	ev := Event{Type: env.Type}
	switch env.Type {
	case chat.EventMessageGlobal, chat.EventMessagePrivate:
		var m Message
		if err := json.Unmarshal(env.Data, &m); err != nil {
			return Event{}, fmt.Errorf("decode %s: %w", env.Type, err)
		}
		ev.Message = &m
	case chat.EventSendError:
		var p chat.SendError
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return Event{}, fmt.Errorf("decode %s: %w", env.Type, err)
		}
		ev.Reason = p.Reason
	case chat.EventUserJoined, chat.EventUserLeft:
		var p chat.PresenceChange
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return Event{}, fmt.Errorf("decode %s: %w", env.Type, err)
		}
		ev.DisplayName = p.DisplayName
	}
	return ev, nil
}

// HistoryEvent wraps a message loaded over HTTP so it goes through the same
// View.Admits check as a live one. The type is taken from the recipient
// field, not from isPrivate, so a row that disagrees with itself is caught
// by Admits.
func HistoryEvent(m Message) Event {
	t := chat.EventMessageGlobal
	if m.RecipientID != nil {
		t = chat.EventMessagePrivate
	}
	return Event{Type: t, Message: &m}
}
