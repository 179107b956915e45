package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/lalith-99/chathub/internal/models"
)

// Why context.Context as the first parameter on every method?
//
//   - It's idiomatic Go for anything that does I/O (DB, Redis, HTTP).
//   - It carries deadlines: if a WebSocket closes while its send is being
//     persisted, the insert is cancelled with it.
//   - Rule of thumb in Go: if a function touches the network, it takes ctx.

// MessageRepository is the append-only chat log.
//
// Once Append returns successfully the message must be visible to every
// subsequent query (read-your-writes). The router relies on that: it
// dispatches right after Append, and a recipient that reloads history
// must see what it was just sent.
type MessageRepository interface {
	// Append persists a message and returns it with ID and CreatedAt
	// populated by the store.
	Append(ctx context.Context, senderID uuid.UUID, recipient models.Recipient, body string) (*models.Message, error)

	// QueryGlobal returns the newest limit global messages, newest first.
	// Rows with a recipient must never be returned.
	QueryGlobal(ctx context.Context, limit int) ([]models.Message, error)

	// QueryConversation returns the newest limit private messages between
	// a and b (either direction), newest first. Global rows must never be
	// returned.
	QueryConversation(ctx context.Context, a, b uuid.UUID, limit int) ([]models.Message, error)
}

// UserRepository handles user data.
type UserRepository interface {
	// Create inserts a new user. Postgres generates ID and CreatedAt.
	Create(ctx context.Context, email, firstName, lastName, passwordHash string) (*models.User, error)

	// GetByID returns a user by ID. Returns nil, nil if not found.
	GetByID(ctx context.Context, userID uuid.UUID) (*models.User, error)

	// GetByEmail returns a user by email. Returns nil, nil if not found.
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	// ListExcept returns every user other than userID, oldest account first.
	// Returns empty slice (not nil) so JSON serializes to [] not null.
	ListExcept(ctx context.Context, userID uuid.UUID) ([]models.User, error)
}
