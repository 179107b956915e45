package chat

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/lalith-99/chathub/internal/models"
)

// inbox is a Conn that records every event it is handed.
type inbox struct {
	name string

	mu     sync.Mutex
	events []Event
	closed bool
	onSend func()
}

func newInbox(name string) *inbox { return &inbox{name: name} }

func (c *inbox) Send(ev Event) bool {
	if c.onSend != nil {
		c.onSend()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	c.events = append(c.events, ev)
	return true
}

func (c *inbox) String() string { return c.name }

func (c *inbox) close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

func (c *inbox) received() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Event, len(c.events))
	copy(out, c.events)
	return out
}

func (c *inbox) ofType(t EventType) []Event {
	var out []Event
	for _, ev := range c.received() {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

// people is an Identity backed by a map.
type people struct {
	names map[uuid.UUID]string
	err   error
}

func newPeople() *people { return &people{names: make(map[uuid.UUID]string)} }

func (p *people) add(name string) uuid.UUID {
	id := uuid.New()
	p.names[id] = name
	return id
}

func (p *people) ResolveUser(_ context.Context, id uuid.UUID) (string, bool, error) {
	if p.err != nil {
		return "", false, p.err
	}
	name, ok := p.names[id]
	return name, ok, nil
}

// failingStore fails every Append and counts attempts.
type failingStore struct {
	err     error
	appends int
}

func (s *failingStore) Append(context.Context, uuid.UUID, models.Recipient, string) (*models.Message, error) {
	s.appends++
	return nil, s.err
}

func (s *failingStore) QueryGlobal(context.Context, int) ([]models.Message, error) {
	return nil, s.err
}

func (s *failingStore) QueryConversation(context.Context, uuid.UUID, uuid.UUID, int) ([]models.Message, error) {
	return nil, s.err
}

// cannedStore returns fixed rows regardless of the query, standing in for
// a store whose SQL filter is broken.
type cannedStore struct {
	rows []models.Message
}

func (s *cannedStore) Append(context.Context, uuid.UUID, models.Recipient, string) (*models.Message, error) {
	panic("not used")
}

func (s *cannedStore) QueryGlobal(context.Context, int) ([]models.Message, error) {
	return append([]models.Message(nil), s.rows...), nil
}

func (s *cannedStore) QueryConversation(context.Context, uuid.UUID, uuid.UUID, int) ([]models.Message, error) {
	return append([]models.Message(nil), s.rows...), nil
}
