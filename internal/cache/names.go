// Package cache puts Redis in front of the user table for the one lookup
// the chat hub does on every send and every connect: id -> display name.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/chathub/internal/repository"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// NameCache resolves user ids to display names, reading through Redis.
//
// Redis is an accelerator, not a dependency: any Redis error falls back to
// the user repository. Only positive results are cached, so a user created
// a moment ago is never stuck behind a cached miss.
type NameCache struct {
	client *redis.Client
	users  repository.UserRepository
	ttl    time.Duration
	logger *zap.Logger
}

func NewNameCache(client *redis.Client, users repository.UserRepository, ttl time.Duration, logger *zap.Logger) *NameCache {
	return &NameCache{client: client, users: users, ttl: ttl, logger: logger}
}

// nameKey returns the key holding a user's display name.
func nameKey(id uuid.UUID) string {
	return fmt.Sprintf("user:%s:name", id)
}

// ResolveUser implements chat.Identity.
func (c *NameCache) ResolveUser(ctx context.Context, id uuid.UUID) (string, bool, error) {
	if c.client != nil {
		name, err := c.client.Get(ctx, nameKey(id)).Result()
		switch {
		case err == nil:
			return name, true, nil
		case errors.Is(err, redis.Nil):
		default:
			c.logger.Warn("name cache read failed, using database", zap.Error(err))
		}
	}

	u, err := c.users.GetByID(ctx, id)
	if err != nil {
		return "", false, fmt.Errorf("resolve user: %w", err)
	}
	if u == nil {
		return "", false, nil
	}

	name := u.DisplayName()
	if c.client != nil {
		if err := c.client.Set(ctx, nameKey(id), name, c.ttl).Err(); err != nil {
			c.logger.Warn("name cache write failed", zap.Error(err))
		}
	}
	return name, true, nil
}
