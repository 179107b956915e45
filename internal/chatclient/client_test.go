package chatclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lalith-99/chathub/internal/api"
	"github.com/lalith-99/chathub/internal/cache"
	"github.com/lalith-99/chathub/internal/chat"
	"github.com/lalith-99/chathub/internal/repository/memory"
	"github.com/lalith-99/chathub/internal/ws"
)

const testSecret = "client-test-secret"

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()

	users := memory.NewUserStore()
	names := cache.NewNameCache(nil, users, time.Minute, logger)
	registry := chat.NewRegistry()
	router := chat.NewRouter(registry, memory.NewMessageStore(), names, logger)
	hub := ws.NewHub(registry, router, chat.NewPresence(registry, names, logger), ws.Options{}, logger)

	engine := api.NewRouter(api.Handlers{
		Auth:      api.NewAuthHandler(users, testSecret, time.Hour, logger),
		Users:     api.NewUserHandler(users, logger),
		Messages:  api.NewMessageHandler(router, users, logger),
		WebSocket: hub.Handle,
	}, testSecret, logger)

	srv := httptest.NewServer(engine)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = hub.Shutdown(ctx)
		srv.Close()
	})
	return srv
}

func connect(t *testing.T, baseURL, email, first, last string) (*Client, uuid.UUID) {
	t.Helper()
	ctx := context.Background()
	token, err := Signup(ctx, baseURL, email, "password123", first, last)
	require.NoError(t, err)

	c, err := New(baseURL, token)
	require.NoError(t, err)
	me, err := c.Me(ctx)
	require.NoError(t, err)
	require.NoError(t, c.Connect(ctx))
	t.Cleanup(func() { _ = c.Close() })
	return c, me.ID
}

// nextIn returns the next event v admits, skipping the rest.
func nextIn(t *testing.T, c *Client, v View) Event {
	t.Helper()
	timer := time.AfterFunc(3*time.Second, func() { _ = c.conn.Close() })
	defer timer.Stop()

	for {
		ev, err := c.Next()
		require.NoError(t, err)
		if v.Admits(ev) {
			return ev
		}
	}
}

func TestClient_EndToEnd(t *testing.T) {
	srv := newServer(t)
	ctx := context.Background()

	ada, adaID := connect(t, srv.URL, "ada@example.com", "Ada", "Lovelace")
	bob, bobID := connect(t, srv.URL, "bob@example.com", "Bob", "Builder")

	joined := nextIn(t, ada, GlobalView())
	require.Equal(t, chat.EventUserJoined, joined.Type)
	require.Equal(t, "Bob Builder", joined.DisplayName)

	require.NoError(t, bob.SendPrivate(adaID, "hi ada"))
	require.NoError(t, bob.SendGlobal("hi all"))

	// Ada's conversation view with Bob sees the private message; her
	// global view sees only the global one.
	ev := nextIn(t, ada, ConversationWith(bobID))
	require.Equal(t, "hi ada", ev.Message.Body)
	require.Equal(t, "Ada Lovelace", ev.Message.RecipientName)

	ev = nextIn(t, ada, GlobalView())
	require.Equal(t, chat.EventMessageGlobal, ev.Type)
	require.Equal(t, "hi all", ev.Message.Body)
	require.Nil(t, ev.Message.RecipientID)

	// A view of a conversation nobody is having admits only errors.
	require.NoError(t, bob.SendPrivate(bobID, "talking to myself"))
	ev = nextIn(t, bob, ConversationWith(uuid.New()))
	require.Equal(t, chat.EventSendError, ev.Type)
	require.Equal(t, "You cannot send a message to yourself.", ev.Reason)

	global, err := ada.GlobalHistory(ctx, 0)
	require.NoError(t, err)
	require.Len(t, global, 1)
	require.True(t, GlobalView().Admits(HistoryEvent(global[0])))

	conv, err := ada.Conversation(ctx, bobID, 10)
	require.NoError(t, err)
	require.Len(t, conv, 1)
	require.True(t, ConversationWith(bobID).Admits(HistoryEvent(conv[0])))
	require.False(t, GlobalView().Admits(HistoryEvent(conv[0])))

	users, err := ada.Users(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	require.Equal(t, bobID, users[0].ID)
}

func TestClient_LoginErrors(t *testing.T) {
	srv := newServer(t)
	ctx := context.Background()

	_, err := Signup(ctx, srv.URL, "ada@example.com", "password123", "Ada", "Lovelace")
	require.NoError(t, err)

	tok, err := Login(ctx, srv.URL, "ada@example.com", "password123")
	require.NoError(t, err)
	require.NotEmpty(t, tok)

	_, err = Login(ctx, srv.URL, "ada@example.com", "wrong-password")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusUnauthorized, apiErr.Status)

	_, err = Signup(ctx, srv.URL, "ada@example.com", "password123", "Ada", "Again")
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusConflict, apiErr.Status)
}

func TestClient_NotConnected(t *testing.T) {
	c, err := New("http://localhost:1", "tok")
	require.NoError(t, err)
	require.ErrorIs(t, c.SendGlobal("hi"), ErrNotConnected)
	_, err = c.Next()
	require.ErrorIs(t, err, ErrNotConnected)
	require.NoError(t, c.Close())

	_, err = New("ftp://example.com", "tok")
	require.Error(t, err)
}

func TestClient_ConnectRejectedToken(t *testing.T) {
	srv := newServer(t)
	c, err := New(srv.URL, "garbage")
	require.NoError(t, err)
	require.Error(t, c.Connect(context.Background()))
}
