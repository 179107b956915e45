package chat

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestPresence_JoinedSkipsSubject(t *testing.T) {
	reg := NewRegistry()
	ppl := newPeople()
	p := NewPresence(reg, ppl, zap.NewNop())

	alice := ppl.add("Alice Smith")
	bob := ppl.add("Bob Jones")
	a, b1, b2 := newInbox("alice"), newInbox("bob-1"), newInbox("bob-2")
	reg.Register(bob, b1)
	reg.Register(bob, b2)
	reg.Register(alice, a)

	p.Joined(context.Background(), a)

	require.Empty(t, a.received())
	for _, c := range []*inbox{b1, b2} {
		got := c.received()
		require.Len(t, got, 1)
		require.Equal(t, EventUserJoined, got[0].Type)
		require.Equal(t, PresenceChange{DisplayName: "Alice Smith"}, got[0].Data)
	}
}

func TestPresence_LeftBeforeUnregister(t *testing.T) {
	reg := NewRegistry()
	ppl := newPeople()
	p := NewPresence(reg, ppl, zap.NewNop())

	alice := ppl.add("Alice Smith")
	bob := ppl.add("Bob Jones")
	a, b := newInbox("alice"), newInbox("bob")
	reg.Register(alice, a)
	reg.Register(bob, b)

	p.Left(context.Background(), a)
	reg.Unregister(a)

	got := b.ofType(EventUserLeft)
	require.Len(t, got, 1)
	require.Equal(t, PresenceChange{DisplayName: "Alice Smith"}, got[0].Data)
	require.Empty(t, a.received())
}

func TestPresence_FailuresAreSwallowed(t *testing.T) {
	reg := NewRegistry()
	ppl := newPeople()
	p := NewPresence(reg, ppl, zap.NewNop())

	bob := ppl.add("Bob Jones")
	b := newInbox("bob")
	reg.Register(bob, b)

	// Unknown user: nothing is announced.
	ghost := newInbox("ghost")
	reg.Register(uuid.New(), ghost)
	p.Joined(context.Background(), ghost)

	// Lookup failure: nothing is announced, nothing panics.
	ppl.err = errors.New("lookup failed")
	p.Joined(context.Background(), ghost)

	// Never registered.
	p.Left(context.Background(), newInbox("stranger"))

	require.Empty(t, b.received())
}

func TestPresence_ClosedPeerDoesNotStopOthers(t *testing.T) {
	reg := NewRegistry()
	ppl := newPeople()
	p := NewPresence(reg, ppl, zap.NewNop())

	alice := ppl.add("Alice")
	a, dead, live := newInbox("alice"), newInbox("dead"), newInbox("live")
	reg.Register(alice, a)
	reg.Register(ppl.add("Dead"), dead)
	reg.Register(ppl.add("Live"), live)
	dead.close()

	p.Joined(context.Background(), a)
	require.Len(t, live.received(), 1)
}
