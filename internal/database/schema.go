package database

import (
	"context"
	"fmt"
)

// schema is the DDL applied at startup. Statements are idempotent so a
// restart against an existing database is a no-op.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		user_id UUID PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		invitation_code TEXT NOT NULL,
		refresh_token TEXT,
		refresh_expires_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS invitation_codes (
		code TEXT PRIMARY KEY,
		used_by UUID REFERENCES users(user_id),
		used_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS chats (
		chat_id UUID PRIMARY KEY,
		chat_type TEXT NOT NULL,
		name TEXT NOT NULL,
		created_by UUID NOT NULL REFERENCES users(user_id),
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS chat_participants (
		chat_id UUID NOT NULL REFERENCES chats(chat_id) ON DELETE CASCADE,
		user_id UUID NOT NULL REFERENCES users(user_id) ON DELETE CASCADE,
		joined_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		last_read_at TIMESTAMPTZ,
		PRIMARY KEY (chat_id, user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS messages (
		message_id UUID PRIMARY KEY,
		chat_id UUID NOT NULL REFERENCES chats(chat_id) ON DELETE CASCADE,
		sender_id UUID NOT NULL REFERENCES users(user_id),
		content TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_messages_chat_created
		ON messages (chat_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS calls (
		call_id UUID PRIMARY KEY,
		caller_id UUID NOT NULL REFERENCES users(user_id),
		receiver_id UUID NOT NULL REFERENCES users(user_id),
		kind TEXT NOT NULL,
		status TEXT NOT NULL,
		started_at TIMESTAMPTZ,
		ended_at TIMESTAMPTZ,
		duration INT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		CHECK (caller_id <> receiver_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_calls_caller_created
		ON calls (caller_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_calls_receiver_created
		ON calls (receiver_id, created_at DESC)`,
}

// Migrate applies the schema to the connected database
func (db *Postgres) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := db.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
