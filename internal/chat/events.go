package chat

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/chathub/internal/models"
)

// EventType names an outbound event. These strings are the wire contract
// with every client; renaming one breaks them.
type EventType string

const (
	EventMessageGlobal  EventType = "messageGlobal"
	EventMessagePrivate EventType = "messagePrivate"
	EventSendError      EventType = "sendError"
	EventUserJoined     EventType = "userJoined"
	EventUserLeft       EventType = "userLeft"
)

// Event is the envelope for everything the hub sends to a connection.
type Event struct {
	Type EventType `json:"type"`
	Data any       `json:"data"`
}

// GlobalMessage is the payload of messageGlobal.
//
// There is no RecipientID field at all, not even an omitempty one: a global
// payload cannot carry a recipient key, so a client never has to decide
// whether "", null or a missing key means "nobody".
type GlobalMessage struct {
	ID         int64     `json:"id"`
	SenderID   uuid.UUID `json:"senderId"`
	SenderName string    `json:"senderName"`
	Body       string    `json:"body"`
	CreatedAt  time.Time `json:"createdAt"`
	IsPrivate  bool      `json:"isPrivate"`
}

// PrivateMessage is the payload of messagePrivate.
type PrivateMessage struct {
	ID            int64     `json:"id"`
	SenderID      uuid.UUID `json:"senderId"`
	SenderName    string    `json:"senderName"`
	RecipientID   uuid.UUID `json:"recipientId"`
	RecipientName string    `json:"recipientName"`
	Body          string    `json:"body"`
	CreatedAt     time.Time `json:"createdAt"`
	IsPrivate     bool      `json:"isPrivate"`
}

// SendError is the payload of sendError. Only the originating connection
// ever receives one.
type SendError struct {
	Reason string `json:"reason"`
}

// PresenceChange is the payload of userJoined and userLeft.
type PresenceChange struct {
	DisplayName string `json:"displayName"`
}

// messageEvent renders a stored message. The event type and isPrivate both
// come from msg.Recipient, so they cannot disagree with what was stored.
func messageEvent(msg *models.Message, senderName, recipientName string) Event {
	to, private := msg.Recipient.UserID()
	if !private {
		return Event{Type: EventMessageGlobal, Data: GlobalMessage{
			ID:         msg.ID,
			SenderID:   msg.SenderID,
			SenderName: senderName,
			Body:       msg.Body,
			CreatedAt:  msg.CreatedAt,
			IsPrivate:  msg.IsPrivate(),
		}}
	}
	return Event{Type: EventMessagePrivate, Data: PrivateMessage{
		ID:            msg.ID,
		SenderID:      msg.SenderID,
		SenderName:    senderName,
		RecipientID:   to,
		RecipientName: recipientName,
		Body:          msg.Body,
		CreatedAt:     msg.CreatedAt,
		IsPrivate:     msg.IsPrivate(),
	}}
}

func sendErrorEvent(err error) Event {
	return Event{Type: EventSendError, Data: SendError{Reason: ReasonOf(err)}}
}

// CommandType names an inbound command.
type CommandType string

const (
	CommandSendGlobal  CommandType = "sendGlobal"
	CommandSendPrivate CommandType = "sendPrivate"
)

// Command is one inbound frame from a client.
//
// RecipientID is a pointer so DecodeCommand can tell "no recipientId key"
// from "recipientId: \"\"". sendGlobal must not carry the key at all and
// sendPrivate must.
type Command struct {
	Type        CommandType `json:"type"`
	RecipientID *string     `json:"recipientId,omitempty"`
	Body        string      `json:"body"`
}

var (
	ErrUnknownCommand     = errors.New("unknown command type")
	ErrGlobalWithTarget   = errors.New("sendGlobal does not take a recipientId")
	ErrPrivateWithoutPeer = errors.New("sendPrivate requires a recipientId")
)

// DecodeCommand parses and shape-checks a raw frame. It does not validate
// the body or resolve the recipient; the router does that.
func DecodeCommand(raw []byte) (Command, error) {
	var cmd Command
	if err := json.Unmarshal(raw, &cmd); err != nil {
		return Command{}, fmt.Errorf("decode command: %w", err)
	}
	switch cmd.Type {
	case CommandSendGlobal:
		if cmd.RecipientID != nil {
			return Command{}, ErrGlobalWithTarget
		}
	case CommandSendPrivate:
		if cmd.RecipientID == nil {
			return Command{}, ErrPrivateWithoutPeer
		}
	default:
		return Command{}, fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Type)
	}
	return cmd, nil
}
