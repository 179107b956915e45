package chatclient

import (
	"github.com/google/uuid"

	"github.com/lalith-99/chathub/internal/chat"
)

// View is what a front end is currently showing: the global room, or a
// private conversation with one peer.
type View struct {
	peer    uuid.UUID
	private bool
}

func GlobalView() View { return View{} }

func ConversationWith(peer uuid.UUID) View {
	return View{peer: peer, private: true}
}

func (v View) IsGlobal() bool { return !v.private }

// Peer returns the other side of a conversation view.
func (v View) Peer() (uuid.UUID, bool) { return v.peer, v.private }

// Admits reports whether ev may be rendered in v.
//
// The server already routes by recipient, so this is a second check: every
// field that says "global" or "private" has to agree before a message is
// shown, and a private message is never rendered outside the conversation
// it belongs to.
func (v View) Admits(ev Event) bool {
	switch ev.Type {
	case chat.EventSendError:
		return true
	case chat.EventUserJoined, chat.EventUserLeft:
		return !v.private
	case chat.EventMessageGlobal:
		m := ev.Message
		return !v.private && m != nil && !m.IsPrivate && m.RecipientID == nil
	case chat.EventMessagePrivate:
		m := ev.Message
		if !v.private || m == nil || !m.IsPrivate || m.RecipientID == nil {
			return false
		}
		return m.SenderID == v.peer || *m.RecipientID == v.peer
	default:
		return false
	}
}
