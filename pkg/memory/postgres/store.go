package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"github.com/MrWong99/pictalk/pkg/memory"
)

var (
	_ memory.InteractionLog  = (*Store)(nil)
	_ memory.AssignmentStore = (*Store)(nil)
	_ memory.EmbeddingCache  = (*Store)(nil)
)

// Store is the PostgreSQL-backed memory store. All operations are safe for
// concurrent use.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore connects to the database at dsn, runs [Migrate] and returns a
// Store whose pool registers pgvector types on every connection.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres store: parse dsn: %w", err)
	}

	// The vector type only exists after migration, so migrate over a plain
	// pool before opening the one that registers pgvector types.
	bootstrap, err := pgxpool.NewWithConfig(ctx, cfg.Copy())
	if err != nil {
		return nil, fmt.Errorf("postgres store: create pool: %w", err)
	}
	if err := bootstrap.Ping(ctx); err != nil {
		bootstrap.Close()
		return nil, fmt.Errorf("postgres store: ping: %w", err)
	}
	err = Migrate(ctx, bootstrap)
	bootstrap.Close()
	if err != nil {
		return nil, fmt.Errorf("postgres store: migrate: %w", err)
	}

	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres store: create pool: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases all connections held by the underlying connection pool.
func (s *Store) Close() {
	s.pool.Close()
}
