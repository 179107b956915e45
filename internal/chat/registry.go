// Package chat is the message-routing core: the connection registry, the
// router that validates, persists and dispatches sends, and the presence
// notifier.
package chat

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/lalith-99/chathub/internal/observ"
)

// Conn is a live client session as the router sees it.
//
// Send must not block. It returns false when the event could not be queued
// (connection closed, buffer full), and the caller treats that as a dropped
// delivery, never as a send failure.
type Conn interface {
	Send(ev Event) bool
}

// Registry maps user ids to their live connections. A user may hold any
// number of connections at once (several tabs or devices).
//
// Every read returns a freshly allocated slice. Callers iterate the
// snapshot without holding the lock, so a connection that unregisters
// mid-broadcast costs at most one dropped Send.
type Registry struct {
	mu     sync.RWMutex
	byUser map[uuid.UUID]map[Conn]struct{}
	byConn map[Conn]uuid.UUID
}

func NewRegistry() *Registry {
	return &Registry{
		byUser: make(map[uuid.UUID]map[Conn]struct{}),
		byConn: make(map[Conn]uuid.UUID),
	}
}

// Register adds conn under userID. Registering a connection that is already
// present moves it to userID.
func (r *Registry) Register(userID uuid.UUID, conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.byConn[conn]; ok {
		r.removeLocked(prev, conn)
	}

	set := r.byUser[userID]
	if set == nil {
		set = make(map[Conn]struct{})
		r.byUser[userID] = set
	}
	set[conn] = struct{}{}
	r.byConn[conn] = userID
	observ.ActiveConnections.Set(float64(len(r.byConn)))
}

// Unregister removes conn. It reports whether conn was registered; removing
// an absent connection is a no-op.
func (r *Registry) Unregister(conn Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	userID, ok := r.byConn[conn]
	if !ok {
		return false
	}
	r.removeLocked(userID, conn)
	observ.ActiveConnections.Set(float64(len(r.byConn)))
	return true
}

func (r *Registry) removeLocked(userID uuid.UUID, conn Conn) {
	if set := r.byUser[userID]; set != nil {
		delete(set, conn)
		if len(set) == 0 {
			delete(r.byUser, userID)
		}
	}
	delete(r.byConn, conn)
}

// UserOf returns the user conn is registered under.
func (r *Registry) UserOf(conn Conn) (uuid.UUID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byConn[conn]
	return id, ok
}

// ConnectionsFor returns a snapshot of userID's connections, possibly empty.
func (r *Registry) ConnectionsFor(userID uuid.UUID) []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := r.byUser[userID]
	out := make([]Conn, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	return out
}

// AllConnections returns a snapshot of every live connection.
func (r *Registry) AllConnections() []Conn {
	return r.AllExcept(nil)
}

// AllExcept returns a snapshot of every live connection other than skip.
func (r *Registry) AllExcept(skip Conn) []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Conn, 0, len(r.byConn))
	for c := range r.byConn {
		if skip != nil && c == skip {
			continue
		}
		out = append(out, c)
	}
	return out
}

// Len returns the number of live connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byConn)
}

// connLabel names a connection in logs. Transports that implement
// fmt.Stringer get their own label.
func connLabel(c Conn) string {
	if s, ok := c.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%T", c)
}
