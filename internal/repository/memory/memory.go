// Package memory holds process-local implementations of the repository
// interfaces. They back STORE=memory for running the hub without Postgres
// and are what the other packages' tests run against.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/chathub/internal/models"
	"github.com/lalith-99/chathub/internal/repository"
)

// MessageStore is an append-only slice guarded by a mutex. IDs start at 1
// and increase by one per Append.
type MessageStore struct {
	mu       sync.RWMutex
	messages []models.Message
	now      func() time.Time
}

func NewMessageStore() *MessageStore {
	return &MessageStore{now: time.Now}
}

func (s *MessageStore) Append(ctx context.Context, senderID uuid.UUID, recipient models.Recipient, body string) (*models.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	msg := models.Message{
		ID:        int64(len(s.messages)) + 1,
		SenderID:  senderID,
		Recipient: recipient,
		Body:      body,
		CreatedAt: s.now().UTC(),
	}
	s.messages = append(s.messages, msg)
	return &msg, nil
}

func (s *MessageStore) QueryGlobal(ctx context.Context, limit int) ([]models.Message, error) {
	return s.newest(ctx, limit, func(m *models.Message) bool { return !m.IsPrivate() })
}

func (s *MessageStore) QueryConversation(ctx context.Context, a, b uuid.UUID, limit int) ([]models.Message, error) {
	return s.newest(ctx, limit, func(m *models.Message) bool { return m.InConversation(a, b) })
}

// Len returns how many messages have been appended.
func (s *MessageStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

func (s *MessageStore) newest(ctx context.Context, limit int, keep func(*models.Message) bool) ([]models.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Message, 0)
	for i := len(s.messages) - 1; i >= 0 && len(out) < limit; i-- {
		if keep(&s.messages[i]) {
			out = append(out, s.messages[i])
		}
	}
	return out, nil
}

// UserStore keeps users in two maps, by id and by lower-cased email.
type UserStore struct {
	mu      sync.RWMutex
	byID    map[uuid.UUID]*models.User
	byEmail map[string]*models.User
	order   []uuid.UUID
}

func NewUserStore() *UserStore {
	return &UserStore{
		byID:    make(map[uuid.UUID]*models.User),
		byEmail: make(map[string]*models.User),
	}
}

// Create returns repository.ErrDuplicateEmail when the email is already registered,
// mirroring the users_email_key unique constraint.
func (s *UserStore) Create(_ context.Context, email, firstName, lastName, passwordHash string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(email)
	if _, exists := s.byEmail[key]; exists {
		return nil, repository.ErrDuplicateEmail
	}

	u := &models.User{
		ID:           uuid.New(),
		Email:        email,
		FirstName:    firstName,
		LastName:     lastName,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	s.byID[u.ID] = u
	s.byEmail[key] = u
	s.order = append(s.order, u.ID)

	cp := *u
	return &cp, nil
}

func (s *UserStore) GetByID(_ context.Context, userID uuid.UUID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.byID[userID]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (s *UserStore) GetByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (s *UserStore) ListExcept(_ context.Context, userID uuid.UUID) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]models.User, 0, len(s.order))
	for _, id := range s.order {
		if id == userID {
			continue
		}
		users = append(users, *s.byID[id])
	}
	return users, nil
}
