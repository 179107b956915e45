package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/lalith-99/chathub/internal/middleware"
)

// Pinger is anything the health check can probe. *db.DB is one.
type Pinger interface {
	Health(ctx context.Context) error
}

// Handlers is everything NewRouter mounts.
type Handlers struct {
	Auth     *AuthHandler
	Users    *UserHandler
	Messages *MessageHandler
	// WebSocket upgrades GET /v1/ws behind the auth middleware.
	WebSocket gin.HandlerFunc
	// Database may be nil when running on the in-memory store.
	Database Pinger
}

// NewRouter builds the gin engine:
//
//	GET  /v1/health                    public
//	GET  /metrics                      public, prometheus
//	POST /v1/auth/signup               public
//	POST /v1/auth/login                public
//	GET  /v1/users/me                  token
//	GET  /v1/users                     token
//	GET  /v1/messages/global           token
//	GET  /v1/messages/private/:userId  token
//	GET  /v1/ws                        token (header or ?access_token=)
func NewRouter(h Handlers, jwtSecret string, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestLogger(logger), gin.Recovery())

	r.GET("/v1/health", health(h.Database))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	public := r.Group("/v1/auth")
	public.POST("/signup", h.Auth.Signup)
	public.POST("/login", h.Auth.Login)

	v1 := r.Group("/v1")
	v1.Use(middleware.AuthMiddleware(jwtSecret))
	v1.GET("/users/me", h.Users.GetMe)
	v1.GET("/users", h.Users.List)
	v1.GET("/messages/global", h.Messages.Global)
	v1.GET("/messages/private/:userId", h.Messages.Conversation)
	if h.WebSocket != nil {
		v1.GET("/ws", h.WebSocket)
	}

	return r
}

func health(db Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if db != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := db.Health(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": "database unreachable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
