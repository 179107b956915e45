package models

import (
	"time"

	"github.com/google/uuid"
)

// MaxBodyLength is the longest message body we accept, counted in runes
// after trimming surrounding whitespace.
const MaxBodyLength = 1000

// User is a registered account.
//
// Why FirstName/LastName and not a single DisplayName column?
//   - Profiles edit the two fields separately.
//   - The name shown in chat is derived (see DisplayName), so there is no
//     second copy that can go stale when a profile changes.
//
// PasswordHash is tagged json:"-" so a handler that returns a User can
// never leak it, even by accident.
type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// DisplayName is the name stamped into chat payloads and presence events.
// "First Last" when both are set, else the email, else "Unknown User".
func (u *User) DisplayName() string {
	if u == nil {
		return UnknownUserName
	}
	if u.FirstName != "" && u.LastName != "" {
		return u.FirstName + " " + u.LastName
	}
	if u.Email != "" {
		return u.Email
	}
	return UnknownUserName
}

// UnknownUserName is shown when a user id no longer resolves.
const UnknownUserName = "Unknown User"

// Recipient says who a message is addressed to: everyone, or exactly one user.
//
// Why a struct with unexported fields instead of a *uuid.UUID or a string?
//   - A string recipient has three spellings of "nobody" ("", "null", absent).
//     A pointer has two (nil, &uuid.Nil). Both shapes let a global message
//     look private to one layer and global to another.
//   - With unexported fields the only constructors are Global and DirectTo,
//     and the only reader is UserID. There is no way to build an ambiguous
//     value from outside this package.
//
// The zero value is Global.
type Recipient struct {
	user   uuid.UUID
	direct bool
}

// Global addresses a message to the single implicit global room.
var Global = Recipient{}

// DirectTo addresses a message privately to one user.
func DirectTo(userID uuid.UUID) Recipient {
	return Recipient{user: userID, direct: true}
}

// UserID returns the addressed user and true for a private recipient, or
// uuid.Nil and false for Global.
func (r Recipient) UserID() (uuid.UUID, bool) {
	return r.user, r.direct
}

// IsPrivate reports whether the recipient is a single user.
func (r Recipient) IsPrivate() bool {
	return r.direct
}

func (r Recipient) String() string {
	if !r.direct {
		return "global"
	}
	return "direct:" + r.user.String()
}

// NullUUID maps the recipient onto a nullable uuid column: Global becomes
// SQL NULL.
func (r Recipient) NullUUID() uuid.NullUUID {
	return uuid.NullUUID{UUID: r.user, Valid: r.direct}
}

// RecipientFromNull is the inverse of NullUUID. A NULL column is Global.
func RecipientFromNull(n uuid.NullUUID) Recipient {
	if !n.Valid {
		return Global
	}
	return DirectTo(n.UUID)
}

// Message is a single persisted chat message, global or private.
//
// Why int64 for ID?
//   - bigserial in Postgres. Higher ID = newer message, which is what the
//     history queries sort on.
//
// There is deliberately no IsPrivate field. Privacy is derived from
// Recipient so the two can never disagree.
type Message struct {
	ID        int64
	SenderID  uuid.UUID
	Recipient Recipient
	Body      string
	CreatedAt time.Time
}

// IsPrivate reports whether the message is addressed to one user.
func (m *Message) IsPrivate() bool {
	return m.Recipient.IsPrivate()
}

// InConversation reports whether m is a private message exchanged between
// a and b, in either direction.
func (m *Message) InConversation(a, b uuid.UUID) bool {
	to, ok := m.Recipient.UserID()
	if !ok {
		return false
	}
	return (m.SenderID == a && to == b) || (m.SenderID == b && to == a)
}
