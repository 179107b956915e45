package ws

import (
	"encoding/json"
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/lalith-99/chathub/internal/chat"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// JSON may escape an astral rune as a surrogate pair ("\ud83d\ude00",
	// 12 bytes), so a 1000-rune body can take 12000 bytes on the wire.
	// Anything past this closes the socket instead of getting a sendError.
	maxFrameBytes = 16 << 10

	sendBuffer = 256
)

// Conn is one authenticated WebSocket connection. It implements chat.Conn.
//
// Outbound events go through a buffered channel drained by writePump, so
// Send never blocks on the network. A connection whose buffer fills up is
// closed; the client reconnects and reloads history.
type Conn struct {
	ws     *websocket.Conn
	send   chan []byte
	userID uuid.UUID
	addr   string
	logger *zap.Logger

	mu     sync.Mutex
	closed bool
}

func newConn(ws *websocket.Conn, userID uuid.UUID, addr string, logger *zap.Logger) *Conn {
	return &Conn{
		ws:     ws,
		send:   make(chan []byte, sendBuffer),
		userID: userID,
		addr:   addr,
		logger: logger,
	}
}

// Send queues ev for delivery and reports whether it was queued.
func (c *Conn) Send(ev chat.Event) bool {
	payload, err := json.Marshal(ev)
	if err != nil {
		c.logger.Error("failed to encode event", zap.String("event", string(ev.Type)), zap.Error(err))
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- payload:
		return true
	default:
		c.logger.Warn("send buffer full, closing slow connection", zap.Stringer("conn", c))
		c.closeLocked()
		return false
	}
}

func (c *Conn) String() string {
	return c.userID.String() + "@" + c.addr
}

// close stops accepting events. writePump drains what is queued, sends a
// close frame and closes the socket. Safe to call more than once.
func (c *Conn) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
}

func (c *Conn) closeLocked() {
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// readPump feeds inbound frames to handle, one at a time, until the socket
// fails. Frames from one connection are therefore handled in the order the
// client sent them.
func (c *Conn) readPump(handle func([]byte)) {
	c.ws.SetReadLimit(maxFrameBytes)
	if err := c.ws.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Debug("set read deadline", zap.Error(err))
	}
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		msgType, raw, err := c.ws.ReadMessage()
		if err != nil {
			c.logReadError(err)
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		handle(raw)
	}
}

func (c *Conn) logReadError(err error) {
	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		c.logger.Warn("frame too large", zap.Stringer("conn", c), zap.Int("limit", maxFrameBytes))
	case websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway),
		errors.Is(err, io.EOF), errors.Is(err, net.ErrClosed):
		c.logger.Debug("connection closed", zap.Stringer("conn", c))
	default:
		c.logger.Info("read failed", zap.Stringer("conn", c), zap.Error(err))
	}
}

// writePump writes queued events and keepalive pings. It owns the socket's
// write side and closes the socket when it returns.
func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.ws.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, payload); err != nil {
				c.logger.Debug("write failed", zap.Stringer("conn", c), zap.Error(err))
				c.close()
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		}
	}
}
