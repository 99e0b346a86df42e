package db

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Options controls the connection pool.
type Options struct {
	DSN          string
	MaxOpenConns int
}

// Connect opens the Postgres pool and verifies it is reachable.
func Connect(ctx context.Context, opts Options) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}
	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
		db.SetMaxIdleConns(opts.MaxOpenConns / 2)
	}
	db.SetConnMaxIdleTime(5 * time.Minute)
	return db, nil
}

// Schema is the table layout the chat store expects. Deployment tooling
// owns it; ApplySchema exists for local setups and integration tests.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
            id SERIAL PRIMARY KEY,
            username TEXT NOT NULL UNIQUE,
            avatar_url TEXT,
            last_active TIMESTAMPTZ
        );`,
	`CREATE TABLE IF NOT EXISTS conversations (
            id SERIAL PRIMARY KEY,
            kind TEXT NOT NULL CHECK (kind IN ('dm', 'group', 'public')),
            name TEXT,
            dm_key TEXT UNIQUE,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            CHECK ((kind = 'dm') = (dm_key IS NOT NULL)),
            CHECK (kind = 'dm' OR name IS NOT NULL)
        );`,
	`CREATE UNIQUE INDEX IF NOT EXISTS conversations_public_singleton
            ON conversations (kind) WHERE kind = 'public';`,
	`CREATE TABLE IF NOT EXISTS conversation_members (
            conversation_id INT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
            user_id INT NOT NULL,
            joined_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            PRIMARY KEY (conversation_id, user_id)
        );`,
	`CREATE INDEX IF NOT EXISTS conversation_members_user_idx ON conversation_members (user_id);`,
	`CREATE TABLE IF NOT EXISTS messages (
            id BIGSERIAL PRIMARY KEY,
            conversation_id INT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
            sender_id INT NOT NULL,
            body TEXT NOT NULL CHECK (body <> ''),
            is_read BOOLEAN NOT NULL DEFAULT FALSE,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );`,
	`CREATE INDEX IF NOT EXISTS messages_conversation_idx ON messages (conversation_id, created_at, id);`,
	`CREATE TABLE IF NOT EXISTS message_reactions (
            message_id BIGINT NOT NULL REFERENCES messages(id) ON DELETE CASCADE,
            user_id INT NOT NULL,
            reaction TEXT NOT NULL,
            updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            PRIMARY KEY (message_id, user_id)
        );`,
}

// ApplySchema creates missing tables and indexes. It never alters existing ones.
func ApplySchema(ctx context.Context, db *sqlx.DB, log *slog.Logger) error {
	for _, stmt := range Schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	log.Info("database schema applied", "statements", len(Schema))
	return nil
}
