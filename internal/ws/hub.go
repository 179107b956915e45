// Package ws is the WebSocket transport for the chat hub. It authenticates
// the upgrade, binds each socket to one user in the chat.Registry, and turns
// inbound frames into Router calls.
package ws

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/lalith-99/chathub/internal/chat"
	"github.com/lalith-99/chathub/internal/middleware"
	"github.com/lalith-99/chathub/internal/observ"
)

// commandTimeout bounds the store and identity calls one command makes.
const commandTimeout = 5 * time.Second

// Limiter caps how often one user may send. Both ratelimit.Redis and
// ratelimit.Local satisfy it.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

type Options struct {
	AllowedOrigins []string
	// Limiter may be nil, in which case sends are not throttled.
	Limiter Limiter
}

// Hub owns every live socket. It does no routing itself: fan-out is the
// Router's job, and the Hub only tracks sockets so it can close them all on
// shutdown.
type Hub struct {
	registry *chat.Registry
	router   *chat.Router
	presence *chat.Presence
	limiter  Limiter
	upgrader websocket.Upgrader
	logger   *zap.Logger

	mu      sync.Mutex
	conns   map[*Conn]struct{}
	closing bool
	wg      sync.WaitGroup
}

func NewHub(registry *chat.Registry, router *chat.Router, presence *chat.Presence, opts Options, logger *zap.Logger) *Hub {
	origins, invalid := newOriginPolicy(opts.AllowedOrigins)
	for _, o := range invalid {
		logger.Warn("ignoring invalid allowed origin", zap.String("origin", o))
	}

	h := &Hub{
		registry: registry,
		router:   router,
		presence: presence,
		limiter:  opts.Limiter,
		logger:   logger,
		conns:    make(map[*Conn]struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if origins.check(r) {
				return true
			}
			logger.Warn("blocked websocket from disallowed origin", zap.String("origin", r.Header.Get("Origin")))
			return false
		},
	}
	return h
}

// Handle upgrades GET /v1/ws. It must sit behind middleware.AuthMiddleware:
// the socket is bound to the token's user for its whole life.
func (h *Hub) Handle(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	h.mu.Lock()
	closing := h.closing
	h.mu.Unlock()
	if closing {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "server shutting down"})
		return
	}

	socket, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		h.logger.Info("websocket upgrade failed", zap.Error(err))
		return
	}

	conn := newConn(socket, userID, c.ClientIP(), h.logger)
	if !h.track(conn) {
		_ = socket.Close()
		return
	}

	h.registry.Register(userID, conn)
	h.logger.Info("client connected",
		zap.Stringer("user_id", userID),
		zap.String("addr", conn.addr),
		zap.Int("connections", h.registry.Len()),
	)
	h.announce(conn, h.presence.Joined)

	go func() {
		defer h.wg.Done()
		conn.writePump()
	}()
	go func() {
		defer h.wg.Done()
		conn.readPump(func(raw []byte) { h.handleFrame(conn, raw) })
		h.disconnect(conn)
	}()
}

// track records conn and accounts for its two pump goroutines. The
// WaitGroup is bumped under mu so Shutdown never waits on a group that is
// still growing.
func (h *Hub) track(conn *Conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closing {
		return false
	}
	h.conns[conn] = struct{}{}
	h.wg.Add(2)
	return true
}

// disconnect runs once per socket, after its read side has failed. Presence
// goes out while the registry can still name the user.
func (h *Hub) disconnect(conn *Conn) {
	h.announce(conn, h.presence.Left)
	h.registry.Unregister(conn)
	conn.close()

	h.mu.Lock()
	delete(h.conns, conn)
	h.mu.Unlock()

	h.logger.Info("client disconnected",
		zap.Stringer("user_id", conn.userID),
		zap.String("addr", conn.addr),
		zap.Int("connections", h.registry.Len()),
	)
}

// announce runs a presence notification with the same bound as a command,
// so a stalled identity lookup cannot pin the upgrade or read goroutine.
func (h *Hub) announce(conn *Conn, notify func(context.Context, chat.Conn)) {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	notify(ctx, conn)
}

func (h *Hub) handleFrame(conn *Conn, raw []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	cmd, err := chat.DecodeCommand(raw)
	if err != nil {
		h.logger.Debug("rejected command", zap.Stringer("conn", conn), zap.Error(err))
		h.router.ReportError(conn, chat.InvalidCommand(err))
		return
	}
	if !h.allow(ctx, conn) {
		h.router.ReportError(conn, chat.RateLimited())
		return
	}

	switch cmd.Type {
	case chat.CommandSendGlobal:
		_, err = h.router.SendGlobal(ctx, conn, cmd.Body)
	case chat.CommandSendPrivate:
		_, err = h.router.SendPrivate(ctx, conn, *cmd.RecipientID, cmd.Body)
	}
	if err != nil {
		h.router.ReportError(conn, err)
	}
}

// allow fails open: if the limiter's backend is down, chat keeps working.
func (h *Hub) allow(ctx context.Context, conn *Conn) bool {
	if h.limiter == nil {
		return true
	}
	ok, err := h.limiter.Allow(ctx, conn.userID.String())
	if err != nil {
		h.logger.Warn("rate limiter unavailable", zap.Error(err))
		return true
	}
	if !ok {
		observ.RateLimitHits.Inc()
		h.logger.Debug("rate limited", zap.Stringer("conn", conn))
	}
	return ok
}

// Shutdown stops accepting sockets, closes every open one and waits for
// their goroutines to finish or ctx to expire.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	h.closing = true
	open := make([]*Conn, 0, len(h.conns))
	for c := range h.conns {
		open = append(open, c)
	}
	h.mu.Unlock()

	h.logger.Info("closing websocket connections", zap.Int("count", len(open)))
	for _, c := range open {
		c.close()
	}

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
