package chat

import (
	"context"

	"github.com/lalith-99/chathub/internal/observ"
	"go.uber.org/zap"
)

// Presence tells everyone else when a connection comes or goes.
//
// Notifications are best effort. Joined and Left return nothing: a failed
// name lookup is logged and the lifecycle transition carries on.
type Presence struct {
	registry *Registry
	identity Identity
	logger   *zap.Logger
}

func NewPresence(registry *Registry, identity Identity, logger *zap.Logger) *Presence {
	return &Presence{registry: registry, identity: identity, logger: logger}
}

// Joined announces conn's user to every other connection. Call it after
// conn is registered.
func (p *Presence) Joined(ctx context.Context, conn Conn) {
	p.announce(ctx, conn, EventUserJoined, "joined")
}

// Left announces that conn's user disconnected. Call it before conn is
// unregistered, while its user can still be looked up.
func (p *Presence) Left(ctx context.Context, conn Conn) {
	p.announce(ctx, conn, EventUserLeft, "left")
}

func (p *Presence) announce(ctx context.Context, conn Conn, kind EventType, label string) {
	userID, ok := p.registry.UserOf(conn)
	if !ok {
		p.logger.Debug("presence for unregistered connection skipped", zap.String("event", string(kind)))
		return
	}

	name, ok, err := p.identity.ResolveUser(ctx, userID)
	if err != nil {
		p.logger.Warn("presence lookup failed",
			zap.String("event", string(kind)),
			zap.Stringer("user_id", userID),
			zap.Error(err),
		)
		return
	}
	if !ok {
		p.logger.Debug("presence for unknown user skipped", zap.Stringer("user_id", userID))
		return
	}

	ev := Event{Type: kind, Data: PresenceChange{DisplayName: name}}
	for _, c := range p.registry.AllExcept(conn) {
		if !c.Send(ev) {
			observ.DispatchDropped.Inc()
		}
	}
	observ.PresenceEvents.WithLabelValues(label).Inc()
}
