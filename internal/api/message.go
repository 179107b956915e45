package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lalith-99/chathub/internal/chat"
	"github.com/lalith-99/chathub/internal/middleware"
	"github.com/lalith-99/chathub/internal/repository"
)

// MessageHandler serves chat history. Sending happens over the WebSocket
// only, so there is no POST here.
type MessageHandler struct {
	router *chat.Router
	users  repository.UserRepository
	logger *zap.Logger
}

func NewMessageHandler(router *chat.Router, users repository.UserRepository, logger *zap.Logger) *MessageHandler {
	return &MessageHandler{router: router, users: users, logger: logger}
}

// parseLimit reads ?limit=. Missing means the server default; values above
// chat.MaxHistoryLimit are capped by the router.
func parseLimit(c *gin.Context) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return 0, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid 'limit' parameter"})
		return 0, false
	}
	return limit, true
}

// Global handles GET /v1/messages/global?limit=50
func (h *MessageHandler) Global(c *gin.Context) {
	limit, ok := parseLimit(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	msgs, err := h.router.LoadGlobalHistory(ctx, limit)
	if err != nil {
		h.logger.Error("failed to load global history", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}
	c.JSON(http.StatusOK, h.router.Payloads(ctx, msgs))
}

// Conversation handles GET /v1/messages/private/:userId?limit=100
func (h *MessageHandler) Conversation(c *gin.Context) {
	peer, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}
	limit, ok := parseLimit(c)
	if !ok {
		return
	}
	me := middleware.GetUserID(c)
	if peer == me {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot open a conversation with yourself"})
		return
	}

	ctx := c.Request.Context()
	other, err := h.users.GetByID(ctx, peer)
	if err != nil {
		h.logger.Error("failed to get conversation peer", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}
	if other == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	msgs, err := h.router.LoadConversation(ctx, me, peer, limit)
	if err != nil {
		h.logger.Error("failed to load conversation", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}
	c.JSON(http.StatusOK, h.router.Payloads(ctx, msgs))
}
