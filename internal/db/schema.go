package db

import (
	"context"
	"fmt"
)

// schema creates the tables the hub needs. Every statement is idempotent so
// Migrate can run on each boot.
//
// recipient_id NULL marks a global message. A non-null value is the one
// user a private message was sent to; there is no sentinel id.
var schema = []string{
	`CREATE EXTENSION IF NOT EXISTS pgcrypto`,
	`CREATE TABLE IF NOT EXISTS users (
		id            UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		email         TEXT NOT NULL UNIQUE,
		first_name    TEXT NOT NULL,
		last_name     TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS messages (
		id           BIGSERIAL PRIMARY KEY,
		sender_id    UUID NOT NULL REFERENCES users(id),
		recipient_id UUID NULL REFERENCES users(id),
		body         VARCHAR(1000) NOT NULL,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
		CHECK (recipient_id IS NULL OR recipient_id <> sender_id)
	)`,
	`CREATE INDEX IF NOT EXISTS messages_global_idx
		ON messages (id DESC) WHERE recipient_id IS NULL`,
	`CREATE INDEX IF NOT EXISTS messages_pair_idx
		ON messages (sender_id, recipient_id, id DESC) WHERE recipient_id IS NOT NULL`,
}

// Migrate applies the schema.
func (db *DB) Migrate(ctx context.Context) error {
	for i, stmt := range schema {
		if _, err := db.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate step %d: %w", i+1, err)
		}
	}
	db.logger.Info("schema up to date")
	return nil
}
