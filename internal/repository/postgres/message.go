package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lalith-99/chathub/internal/models"
)

type MessageStore struct {
	acquire acquireFunc
}

func NewMessageStore(pool *pgxpool.Pool) *MessageStore {
	return &MessageStore{acquire: poolAcquirer(pool)}
}

func (s *MessageStore) Append(ctx context.Context, senderID uuid.UUID, recipient models.Recipient, body string) (*models.Message, error) {
	conn, release, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	// Messages use bigserial (auto-increment), so we don't pass an ID.
	// Postgres generates it. RETURNING gives it back.
	//
	// recipient.NullUUID() is the only way a recipient reaches SQL: Global
	// becomes NULL, never '' (a uuid column would reject '' anyway).
	query := `
		INSERT INTO messages (sender_id, recipient_id, body, created_at)
		VALUES ($1, $2, $3, now())
		RETURNING id, sender_id, recipient_id, body, created_at`

	msg, err := scanMessage(conn.QueryRow(ctx, query, senderID, recipient.NullUUID(), body))
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}
	return msg, nil
}

func (s *MessageStore) QueryGlobal(ctx context.Context, limit int) ([]models.Message, error) {
	query := `
		SELECT id, sender_id, recipient_id, body, created_at
		FROM messages
		WHERE recipient_id IS NULL
		ORDER BY id DESC
		LIMIT $1`

	return s.list(ctx, "global", query, limit)
}

func (s *MessageStore) QueryConversation(ctx context.Context, a, b uuid.UUID, limit int) ([]models.Message, error) {
	// Both directions of the pair, and never a NULL recipient. The
	// IS NOT NULL is redundant with the equality checks today; it stays so
	// the query keeps its meaning if the pair predicate is ever loosened.
	query := `
		SELECT id, sender_id, recipient_id, body, created_at
		FROM messages
		WHERE recipient_id IS NOT NULL
		  AND ((sender_id = $1 AND recipient_id = $2)
		    OR (sender_id = $2 AND recipient_id = $1))
		ORDER BY id DESC
		LIMIT $3`

	return s.list(ctx, "conversation", query, a, b, limit)
}

// Why ORDER BY id DESC instead of created_at DESC?
//   - id (bigserial) is monotonically increasing, same order as time,
//     and two inserts in the same microsecond still sort deterministically.
//   - The router reverses to oldest-first for display.
func (s *MessageStore) list(ctx context.Context, what, query string, args ...any) ([]models.Message, error) {
	conn, release, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list %s messages: %w", what, err)
	}
	defer rows.Close()

	messages := make([]models.Message, 0)
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, *msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}

	return messages, nil
}

// scanMessage reads one messages row. pgx.Rows satisfies pgx.Row, so the
// same code serves QueryRow and Query.
func scanMessage(row pgx.Row) (*models.Message, error) {
	var (
		msg       models.Message
		recipient uuid.NullUUID
	)
	if err := row.Scan(
		&msg.ID,
		&msg.SenderID,
		&recipient,
		&msg.Body,
		&msg.CreatedAt,
	); err != nil {
		return nil, err
	}
	msg.Recipient = models.RecipientFromNull(recipient)
	return &msg, nil
}
