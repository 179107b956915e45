package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/lalith-99/chathub/internal/api"
	"github.com/lalith-99/chathub/internal/cache"
	"github.com/lalith-99/chathub/internal/chat"
	"github.com/lalith-99/chathub/internal/config"
	"github.com/lalith-99/chathub/internal/db"
	"github.com/lalith-99/chathub/internal/observ"
	"github.com/lalith-99/chathub/internal/ratelimit"
	"github.com/lalith-99/chathub/internal/repository"
	"github.com/lalith-99/chathub/internal/repository/memory"
	"github.com/lalith-99/chathub/internal/repository/postgres"
	"github.com/lalith-99/chathub/internal/ws"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---------------------------------------------------------------
	// 1. Load config
	// ---------------------------------------------------------------
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// ---------------------------------------------------------------
	// 2. Create logger
	// ---------------------------------------------------------------
	logger, err := observ.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync()

	// ---------------------------------------------------------------
	// 3. Stores
	//
	// STORE=memory keeps everything in process and skips Postgres;
	// messages are gone on restart.
	// ---------------------------------------------------------------
	var (
		messageRepo repository.MessageRepository
		userRepo    repository.UserRepository
		database    api.Pinger
	)
	switch cfg.Store {
	case config.StoreMemory:
		logger.Warn("using in-memory store, nothing survives a restart")
		messageRepo = memory.NewMessageStore()
		userRepo = memory.NewUserStore()
	default:
		pg, err := db.New(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		defer pg.Close()
		if err := pg.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate database: %w", err)
		}
		messageRepo = postgres.NewMessageStore(pg.Pool())
		userRepo = postgres.NewUserStore(pg.Pool())
		database = pg
	}

	// ---------------------------------------------------------------
	// 4. Redis (optional)
	//
	// Names and rate limits work without it; they just stop being
	// shared across instances.
	// ---------------------------------------------------------------
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		redisClient, err = cache.NewRedisClient(redisCtx, cfg.RedisURL)
		cancel()
		if err != nil {
			logger.Warn("redis unavailable, continuing without it", zap.Error(err))
			redisClient = nil
		} else {
			defer redisClient.Close()
			logger.Info("redis connection established")
		}
	}

	names := cache.NewNameCache(redisClient, userRepo, cfg.NameCacheTTL, logger)

	var limiter ws.Limiter
	if redisClient != nil {
		limiter = ratelimit.NewRedis(redisClient, cfg.SendRateLimit, cfg.SendRateWindow)
	} else {
		limiter = ratelimit.NewLocal(cfg.SendRateLimit, cfg.SendRateWindow)
	}

	// ---------------------------------------------------------------
	// 5. Chat core and WebSocket transport
	// ---------------------------------------------------------------
	registry := chat.NewRegistry()
	router := chat.NewRouter(registry, messageRepo, names, logger)
	presence := chat.NewPresence(registry, names, logger)
	hub := ws.NewHub(registry, router, presence, ws.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		Limiter:        limiter,
	}, logger)

	// ---------------------------------------------------------------
	// 6. HTTP server
	// ---------------------------------------------------------------
	engine := api.NewRouter(api.Handlers{
		Auth:      api.NewAuthHandler(userRepo, cfg.JWTSecret, cfg.TokenTTL, logger),
		Users:     api.NewUserHandler(userRepo, logger),
		Messages:  api.NewMessageHandler(router, userRepo, logger),
		WebSocket: hub.Handle,
		Database:  database,
	}, cfg.JWTSecret, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("starting chathub",
			zap.String("port", cfg.Port),
			zap.String("env", cfg.Env),
			zap.String("store", cfg.Store),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	// ---------------------------------------------------------------
	// 7. Graceful shutdown
	//
	// Stop taking new requests first, then close the sockets; the
	// hijacked WebSocket connections are not covered by srv.Shutdown.
	// ---------------------------------------------------------------
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", zap.Error(err))
	}
	if err := hub.Shutdown(shutdownCtx); err != nil {
		logger.Error("websocket shutdown", zap.Error(err))
	}
	logger.Info("chathub stopped")
	return nil
}
