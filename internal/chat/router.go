package chat

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/lalith-99/chathub/internal/models"
	"github.com/lalith-99/chathub/internal/observ"
	"github.com/lalith-99/chathub/internal/repository"
	"go.uber.org/zap"
)

const maxBodyLength = models.MaxBodyLength

// History limits. A limit <= 0 means the default; anything above
// MaxHistoryLimit is capped.
const (
	DefaultGlobalHistory       = 50
	DefaultConversationHistory = 100
	MaxHistoryLimit            = 100
)

// Identity resolves user ids to display names. ok is false when the id
// names no user; err is reserved for lookup failures.
type Identity interface {
	ResolveUser(ctx context.Context, id uuid.UUID) (displayName string, ok bool, err error)
}

// Router is the only component that touches both the registry and the
// message store. Every send goes validate -> Append -> dispatch, in that
// order; nothing is dispatched for a message that was not stored.
type Router struct {
	registry *Registry
	messages repository.MessageRepository
	identity Identity
	logger   *zap.Logger
}

func NewRouter(registry *Registry, messages repository.MessageRepository, identity Identity, logger *zap.Logger) *Router {
	return &Router{
		registry: registry,
		messages: messages,
		identity: identity,
		logger:   logger,
	}
}

// SendGlobal stores body as a global message from sender's user and
// broadcasts it to every registered connection.
func (r *Router) SendGlobal(ctx context.Context, sender Conn, body string) (*models.Message, error) {
	senderID, err := r.authenticate(sender)
	if err != nil {
		return nil, r.reject(err)
	}
	body, err = normalizeBody(body)
	if err != nil {
		return nil, r.reject(err)
	}
	senderName, err := r.resolveSender(ctx, senderID)
	if err != nil {
		return nil, r.reject(err)
	}

	msg, err := r.messages.Append(ctx, senderID, models.Global, body)
	if err != nil {
		r.logger.Error("failed to store global message",
			zap.Stringer("sender_id", senderID),
			zap.Error(err),
		)
		return nil, r.reject(newError(ErrorStorage, reasonStorage, err))
	}
	observ.MessagesSent.WithLabelValues(observ.ClassGlobal).Inc()

	r.dispatch(messageEvent(msg, senderName, ""), r.registry.AllConnections())
	return msg, nil
}

// SendPrivate stores body as a private message from sender's user to
// recipientID and delivers it to the sender's connections and the
// recipient's connections. An offline recipient is not an error: the
// message is stored and shows up in their conversation history.
func (r *Router) SendPrivate(ctx context.Context, sender Conn, recipientID string, body string) (*models.Message, error) {
	senderID, err := r.authenticate(sender)
	if err != nil {
		return nil, r.reject(err)
	}
	body, err = normalizeBody(body)
	if err != nil {
		return nil, r.reject(err)
	}

	// An id that doesn't parse can't name a user. Same outcome as an id
	// that parses but isn't in the user table.
	to, err := uuid.Parse(recipientID)
	if err != nil || to == uuid.Nil {
		return nil, r.reject(newError(ErrorRecipientNotFound, reasonUserNotFound, nil))
	}
	if to == senderID {
		return nil, r.reject(newError(ErrorSelfMessage, reasonSelfMessage, nil))
	}

	senderName, err := r.resolveSender(ctx, senderID)
	if err != nil {
		return nil, r.reject(err)
	}
	recipientName, ok, err := r.identity.ResolveUser(ctx, to)
	if err != nil {
		r.logger.Error("failed to resolve recipient",
			zap.Stringer("recipient_id", to),
			zap.Error(err),
		)
		return nil, r.reject(newError(ErrorStorage, reasonStorage, err))
	}
	if !ok {
		return nil, r.reject(newError(ErrorRecipientNotFound, reasonUserNotFound, nil))
	}

	msg, err := r.messages.Append(ctx, senderID, models.DirectTo(to), body)
	if err != nil {
		r.logger.Error("failed to store private message",
			zap.Stringer("sender_id", senderID),
			zap.Stringer("recipient_id", to),
			zap.Error(err),
		)
		return nil, r.reject(newError(ErrorStorage, reasonStorage, err))
	}
	observ.MessagesSent.WithLabelValues(observ.ClassPrivate).Inc()

	targets := r.registry.ConnectionsFor(senderID)
	targets = append(targets, r.registry.ConnectionsFor(to)...)
	r.dispatch(messageEvent(msg, senderName, recipientName), targets)
	return msg, nil
}

// ReportError sends err's reason to conn alone, as a sendError event.
func (r *Router) ReportError(conn Conn, err error) {
	if !conn.Send(sendErrorEvent(err)) {
		r.dropped(conn, EventSendError)
	}
}

// LoadGlobalHistory returns up to limit of the newest global messages,
// oldest first.
func (r *Router) LoadGlobalHistory(ctx context.Context, limit int) ([]models.Message, error) {
	limit = clampLimit(limit, DefaultGlobalHistory)
	rows, err := r.messages.QueryGlobal(ctx, limit)
	if err != nil {
		return nil, newError(ErrorStorage, reasonStorage, err)
	}
	return r.forDisplay(rows, limit, "global", func(m *models.Message) bool {
		return !m.IsPrivate()
	}), nil
}

// LoadConversation returns up to limit of the newest private messages
// between a and b, oldest first. Argument order does not matter.
func (r *Router) LoadConversation(ctx context.Context, a, b uuid.UUID, limit int) ([]models.Message, error) {
	limit = clampLimit(limit, DefaultConversationHistory)
	rows, err := r.messages.QueryConversation(ctx, a, b, limit)
	if err != nil {
		return nil, newError(ErrorStorage, reasonStorage, err)
	}
	return r.forDisplay(rows, limit, "conversation", func(m *models.Message) bool {
		return m.InConversation(a, b)
	}), nil
}

// Payloads renders stored messages into the same shapes dispatch uses.
// Each distinct user is resolved once; an unresolvable user is shown as
// models.UnknownUserName.
func (r *Router) Payloads(ctx context.Context, msgs []models.Message) []any {
	names := make(map[uuid.UUID]string)
	name := func(id uuid.UUID) string {
		if n, ok := names[id]; ok {
			return n
		}
		n, ok, err := r.identity.ResolveUser(ctx, id)
		if err != nil {
			r.logger.Warn("failed to resolve user for history", zap.Stringer("user_id", id), zap.Error(err))
		}
		if err != nil || !ok {
			n = models.UnknownUserName
		}
		names[id] = n
		return n
	}

	out := make([]any, 0, len(msgs))
	for i := range msgs {
		msg := &msgs[i]
		var recipientName string
		if to, ok := msg.Recipient.UserID(); ok {
			recipientName = name(to)
		}
		out = append(out, messageEvent(msg, name(msg.SenderID), recipientName).Data)
	}
	return out
}

// forDisplay drops any row that does not belong to the queried class, trims
// to limit, and flips newest-first store order to oldest-first.
//
// The store already filters in SQL. This second pass is what keeps a
// private message out of the global room if a future write path or a
// hand-edited row ever gets that wrong.
func (r *Router) forDisplay(rows []models.Message, limit int, what string, keep func(*models.Message) bool) []models.Message {
	out := make([]models.Message, 0, len(rows))
	for i := range rows {
		if !keep(&rows[i]) {
			r.logger.Warn("dropping misclassified message from history",
				zap.String("history", what),
				zap.Int64("message_id", rows[i].ID),
				zap.Stringer("recipient", rows[i].Recipient),
			)
			continue
		}
		out = append(out, rows[i])
		if len(out) == limit {
			break
		}
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// authenticate returns the user sender is registered under. A connection
// that was never registered, or has since unregistered, is not a sender.
func (r *Router) authenticate(sender Conn) (uuid.UUID, error) {
	if sender == nil {
		return uuid.Nil, newError(ErrorUnauthenticatedSender, reasonNotLoggedIn, nil)
	}
	id, ok := r.registry.UserOf(sender)
	if !ok || id == uuid.Nil {
		return uuid.Nil, newError(ErrorUnauthenticatedSender, reasonNotLoggedIn, nil)
	}
	return id, nil
}

func (r *Router) resolveSender(ctx context.Context, senderID uuid.UUID) (string, error) {
	name, ok, err := r.identity.ResolveUser(ctx, senderID)
	if err != nil {
		r.logger.Error("failed to resolve sender",
			zap.Stringer("sender_id", senderID),
			zap.Error(err),
		)
		return "", newError(ErrorStorage, reasonStorage, err)
	}
	if !ok {
		// A valid token for a user that has since been deleted.
		return "", newError(ErrorUnauthenticatedSender, reasonUserNotFound, nil)
	}
	return name, nil
}

// dispatch hands ev to every target. Send never blocks, so one slow or
// vanished connection cannot hold up the rest.
func (r *Router) dispatch(ev Event, targets []Conn) {
	for _, c := range targets {
		if !c.Send(ev) {
			r.dropped(c, ev.Type)
		}
	}
}

func (r *Router) dropped(c Conn, what EventType) {
	observ.DispatchDropped.Inc()
	r.logger.Debug("event not delivered",
		zap.String("code", string(ErrorDispatchUnreachable)),
		zap.String("event", string(what)),
		zap.String("conn", connLabel(c)),
	)
}

func (r *Router) reject(err error) error {
	observ.SendsRejected.WithLabelValues(string(CodeOf(err))).Inc()
	return err
}

func normalizeBody(body string) (string, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return "", newError(ErrorBodyInvalid, reasonEmptyBody, nil)
	}
	if utf8.RuneCountInString(body) > maxBodyLength {
		return "", newError(ErrorBodyInvalid, reasonBodyTooLong, nil)
	}
	return body, nil
}

func clampLimit(limit, def int) int {
	if limit <= 0 {
		return def
	}
	if limit > MaxHistoryLimit {
		return MaxHistoryLimit
	}
	return limit
}
