package chatclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/lalith-99/chathub/internal/chat"
	"github.com/lalith-99/chathub/internal/models"
)

// ErrNotConnected is returned by socket operations before Connect.
var ErrNotConnected = errors.New("chatclient: not connected")

// APIError is a non-2xx answer from the HTTP API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("chathub api: %d %s", e.Status, e.Message)
}

// Client talks to one hub as one user.
type Client struct {
	baseURL *url.URL
	token   string
	http    *http.Client

	conn    *websocket.Conn
	writeMu sync.Mutex
}

// New returns a client for the hub at baseURL ("http://host:port") that
// authenticates with token.
func New(baseURL, token string) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("server url must be http or https, got %q", baseURL)
	}
	return &Client{
		baseURL: u,
		token:   token,
		http:    &http.Client{Timeout: 10 * time.Second},
	}, nil
}

type credentials struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

// Login exchanges an email and password for a session token.
func Login(ctx context.Context, baseURL, email, password string) (string, error) {
	c, err := New(baseURL, "")
	if err != nil {
		return "", err
	}
	var out tokenResponse
	if err := c.do(ctx, http.MethodPost, "/v1/auth/login", nil, credentials{Email: email, Password: password}, &out); err != nil {
		return "", err
	}
	return out.Token, nil
}

// Signup creates an account and returns its session token.
func Signup(ctx context.Context, baseURL, email, password, firstName, lastName string) (string, error) {
	c, err := New(baseURL, "")
	if err != nil {
		return "", err
	}
	body := credentials{Email: email, Password: password, FirstName: firstName, LastName: lastName}
	var out tokenResponse
	if err := c.do(ctx, http.MethodPost, "/v1/auth/signup", nil, body, &out); err != nil {
		return "", err
	}
	return out.Token, nil
}

func (c *Client) Me(ctx context.Context) (*models.User, error) {
	var u models.User
	if err := c.do(ctx, http.MethodGet, "/v1/users/me", nil, nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Users lists everyone except the caller.
func (c *Client) Users(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := c.do(ctx, http.MethodGet, "/v1/users", nil, nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// GlobalHistory returns recent global messages, oldest first. limit <= 0
// uses the server default.
func (c *Client) GlobalHistory(ctx context.Context, limit int) ([]Message, error) {
	var msgs []Message
	if err := c.do(ctx, http.MethodGet, "/v1/messages/global", limitQuery(limit), nil, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// Conversation returns recent private messages with peer, oldest first.
func (c *Client) Conversation(ctx context.Context, peer uuid.UUID, limit int) ([]Message, error) {
	var msgs []Message
	if err := c.do(ctx, http.MethodGet, "/v1/messages/private/"+peer.String(), limitQuery(limit), nil, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

func limitQuery(limit int) url.Values {
	if limit <= 0 {
		return nil
	}
	return url.Values{"limit": []string{strconv.Itoa(limit)}}
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	u := *c.baseURL
	u.Path = path
	u.RawQuery = query.Encode()

	var body *bytes.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		return &APIError{Status: resp.StatusCode, Message: e.Error}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

// Connect opens the WebSocket. The token goes in the query string since a
// handshake can't always carry an Authorization header.
func (c *Client) Connect(ctx context.Context) error {
	u := *c.baseURL
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	u.Path = "/v1/ws"
	u.RawQuery = url.Values{"access_token": []string{c.token}}.Encode()

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("connect: %w (status %d)", err, resp.StatusCode)
		}
		return fmt.Errorf("connect: %w", err)
	}
	c.conn = conn
	return nil
}

func (c *Client) SendGlobal(body string) error {
	return c.write(chat.Command{Type: chat.CommandSendGlobal, Body: body})
}

func (c *Client) SendPrivate(to uuid.UUID, body string) error {
	id := to.String()
	return c.write(chat.Command{Type: chat.CommandSendPrivate, RecipientID: &id, Body: body})
}

func (c *Client) write(cmd chat.Command) error {
	if c.conn == nil {
		return ErrNotConnected
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.WriteJSON(cmd); err != nil {
		return fmt.Errorf("send %s: %w", cmd.Type, err)
	}
	return nil
}

// Next blocks for the next event. It must be called from one goroutine.
func (c *Client) Next() (Event, error) {
	if c.conn == nil {
		return Event{}, ErrNotConnected
	}
	_, raw, err := c.conn.ReadMessage()
	if err != nil {
		return Event{}, err
	}
	return DecodeEvent(raw)
}

func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	c.writeMu.Lock()
	_ = c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.writeMu.Unlock()
	return c.conn.Close()
}
