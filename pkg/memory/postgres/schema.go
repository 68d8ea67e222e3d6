// Package postgres provides a PostgreSQL-backed implementation of the memory
// interfaces: the interaction log, therapist assignments and the keyword
// embedding cache.
//
// All three share a single [pgxpool.Pool]. The pgvector extension must be
// available in the target database; [Migrate] installs it via CREATE
// EXTENSION IF NOT EXISTS.
//
// Usage:
//
//	store, err := postgres.NewStore(ctx, dsn)
//	if err != nil { … }
//	defer store.Close()
//
//	_ = store.Append(ctx, interaction)
//	summary, _ := store.Summary(ctx, "student1")
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ─────────────────────────────────────────────────────────────────────────────
// Interaction log
// ─────────────────────────────────────────────────────────────────────────────

const ddlInteractions = `
CREATE TABLE IF NOT EXISTS interactions (
    id          UUID         PRIMARY KEY,
    username    TEXT         NOT NULL,
    sentence    TEXT         NOT NULL DEFAULT '',
    words       JSONB        NOT NULL DEFAULT '[]',
    categories  TEXT[]       NOT NULL DEFAULT '{}',
    intent      TEXT         NOT NULL DEFAULT '',
    emotion     TEXT         NOT NULL DEFAULT '',
    reply       TEXT         NOT NULL DEFAULT '',
    timestamp   TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_interactions_user_timestamp
    ON interactions (username, timestamp);
`

// ─────────────────────────────────────────────────────────────────────────────
// Assignments
// ─────────────────────────────────────────────────────────────────────────────

const ddlAssignments = `
CREATE TABLE IF NOT EXISTS assignments (
    id            TEXT         PRIMARY KEY,
    username      TEXT         NOT NULL,
    type          TEXT         NOT NULL,
    title         TEXT         NOT NULL DEFAULT '',
    task          TEXT         NOT NULL DEFAULT '',
    target_words  TEXT[]       NOT NULL DEFAULT '{}',
    created_at    TIMESTAMPTZ  NOT NULL DEFAULT now(),
    completed     BOOLEAN      NOT NULL DEFAULT false
);

CREATE INDEX IF NOT EXISTS idx_assignments_active
    ON assignments (username) WHERE NOT completed;
`

// ─────────────────────────────────────────────────────────────────────────────
// Keyword embeddings
// ─────────────────────────────────────────────────────────────────────────────

// The vector column carries no fixed dimension so several embedding models
// can share the table.
const ddlEmbeddings = `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS symbol_embeddings (
    model       TEXT         NOT NULL,
    keyword     TEXT         NOT NULL,
    embedding   vector       NOT NULL,
    updated_at  TIMESTAMPTZ  NOT NULL DEFAULT now(),
    PRIMARY KEY (model, keyword)
);
`

// Migrate creates all required tables and extensions. It is idempotent and
// safe to call on every application start.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range []string{ddlEmbeddings, ddlInteractions, ddlAssignments} {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres migrate: %w", err)
		}
	}
	return nil
}
