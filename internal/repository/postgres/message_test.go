package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/lalith-99/chathub/internal/models"
)

type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) != len(r.values) {
		return fmt.Errorf("scan: want %d dest, got %d", len(r.values), len(dest))
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *int64:
			*p = r.values[i].(int64)
		case *string:
			*p = r.values[i].(string)
		case *uuid.UUID:
			*p = r.values[i].(uuid.UUID)
		case *uuid.NullUUID:
			*p = r.values[i].(uuid.NullUUID)
		case *time.Time:
			*p = r.values[i].(time.Time)
		default:
			return fmt.Errorf("scan: unsupported dest %T", d)
		}
	}
	return nil
}

type fakeRows struct {
	rows   []fakeRow
	idx    int
	closed bool
}

func (r *fakeRows) Close()                                       { r.closed = true }
func (r *fakeRows) Err() error                                   { return nil }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) Values() ([]any, error)                       { return r.rows[r.idx-1].values, nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

func (r *fakeRows) Next() bool {
	if r.idx >= len(r.rows) {
		return false
	}
	r.idx++
	return true
}

func (r *fakeRows) Scan(dest ...any) error {
	return r.rows[r.idx-1].Scan(dest...)
}

type fakeConn struct {
	row      fakeRow
	rows     *fakeRows
	queryErr error

	lastSQL  string
	lastArgs []any
}

func (c *fakeConn) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	c.lastSQL, c.lastArgs = sql, args
	return c.row
}

func (c *fakeConn) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	c.lastSQL, c.lastArgs = sql, args
	if c.queryErr != nil {
		return nil, c.queryErr
	}
	return c.rows, nil
}

func (c *fakeConn) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	c.lastSQL, c.lastArgs = sql, args
	return pgconn.CommandTag{}, nil
}

// newTestStore returns a store whose every call gets conn, and a counter of
// outstanding acquisitions.
func newTestStore(conn *fakeConn) (*MessageStore, *int) {
	outstanding := 0
	return &MessageStore{acquire: func(context.Context) (querier, func(), error) {
		outstanding++
		return conn, func() { outstanding-- }, nil
	}}, &outstanding
}

func messageRow(id int64, sender uuid.UUID, recipient uuid.NullUUID, body string, at time.Time) fakeRow {
	return fakeRow{values: []any{id, sender, recipient, body, at}}
}

func TestAppend_GlobalWritesNullRecipient(t *testing.T) {
	sender := uuid.New()
	now := time.Now().UTC()
	conn := &fakeConn{row: messageRow(7, sender, uuid.NullUUID{}, "hello", now)}
	s, outstanding := newTestStore(conn)

	msg, err := s.Append(context.Background(), sender, models.Global, "hello")
	require.NoError(t, err)
	require.Equal(t, 0, *outstanding)

	require.Len(t, conn.lastArgs, 3)
	require.Equal(t, uuid.NullUUID{}, conn.lastArgs[1])

	require.Equal(t, int64(7), msg.ID)
	require.False(t, msg.IsPrivate())
	require.Equal(t, now, msg.CreatedAt)
}

func TestAppend_PrivateWritesRecipient(t *testing.T) {
	sender, to := uuid.New(), uuid.New()
	conn := &fakeConn{row: messageRow(8, sender, uuid.NullUUID{UUID: to, Valid: true}, "hi", time.Now())}
	s, _ := newTestStore(conn)

	msg, err := s.Append(context.Background(), sender, models.DirectTo(to), "hi")
	require.NoError(t, err)
	require.Equal(t, uuid.NullUUID{UUID: to, Valid: true}, conn.lastArgs[1])

	got, ok := msg.Recipient.UserID()
	require.True(t, ok)
	require.Equal(t, to, got)
}

func TestAppend_ScanErrorIsWrapped(t *testing.T) {
	boom := errors.New("connection reset")
	conn := &fakeConn{row: fakeRow{err: boom}}
	s, outstanding := newTestStore(conn)

	_, err := s.Append(context.Background(), uuid.New(), models.Global, "x")
	require.ErrorIs(t, err, boom)
	require.Contains(t, err.Error(), "insert message")
	require.Equal(t, 0, *outstanding)
}

func TestAppend_AcquireError(t *testing.T) {
	boom := errors.New("pool closed")
	s := &MessageStore{acquire: func(context.Context) (querier, func(), error) {
		return nil, nil, boom
	}}
	_, err := s.Append(context.Background(), uuid.New(), models.Global, "x")
	require.ErrorIs(t, err, boom)
}

func TestQueryGlobal_FiltersOnNullRecipient(t *testing.T) {
	sender := uuid.New()
	conn := &fakeConn{rows: &fakeRows{rows: []fakeRow{
		messageRow(3, sender, uuid.NullUUID{}, "c", time.Now()),
		messageRow(1, sender, uuid.NullUUID{}, "a", time.Now()),
	}}}
	s, outstanding := newTestStore(conn)

	msgs, err := s.QueryGlobal(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	require.Equal(t, int64(3), msgs[0].ID)
	require.Contains(t, conn.lastSQL, "recipient_id IS NULL")
	require.Equal(t, []any{10}, conn.lastArgs)
	require.True(t, conn.rows.closed)
	require.Equal(t, 0, *outstanding)
}

func TestQueryConversation_PassesPairAndLimit(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	conn := &fakeConn{rows: &fakeRows{rows: []fakeRow{
		messageRow(2, b, uuid.NullUUID{UUID: a, Valid: true}, "yo", time.Now()),
	}}}
	s, _ := newTestStore(conn)

	msgs, err := s.QueryConversation(context.Background(), a, b, 5)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.True(t, msgs[0].InConversation(a, b))
	require.Contains(t, conn.lastSQL, "recipient_id IS NOT NULL")
	require.Equal(t, []any{a, b, 5}, conn.lastArgs)
}

func TestQueryGlobal_EmptyIsNotNil(t *testing.T) {
	conn := &fakeConn{rows: &fakeRows{}}
	s, _ := newTestStore(conn)

	msgs, err := s.QueryGlobal(context.Background(), 10)
	require.NoError(t, err)
	require.NotNil(t, msgs)
	require.Empty(t, msgs)
}

func TestQueryGlobal_QueryError(t *testing.T) {
	boom := errors.New("syntax error")
	conn := &fakeConn{queryErr: boom}
	s, outstanding := newTestStore(conn)

	_, err := s.QueryGlobal(context.Background(), 10)
	require.ErrorIs(t, err, boom)
	require.Contains(t, err.Error(), "list global messages")
	require.Equal(t, 0, *outstanding)
}
