package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	pgvector "github.com/pgvector/pgvector-go"
)

// GetEmbeddings implements [memory.EmbeddingCache].
func (s *Store) GetEmbeddings(ctx context.Context, model string, keys []string) (map[string][]float32, error) {
	out := make(map[string][]float32, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	const q = `
		SELECT keyword, embedding
		FROM   symbol_embeddings
		WHERE  model = $1 AND keyword = ANY($2)`

	rows, err := s.pool.Query(ctx, q, model, keys)
	if err != nil {
		return nil, fmt.Errorf("embedding cache: get: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			keyword string
			vec     pgvector.Vector
		)
		if err := rows.Scan(&keyword, &vec); err != nil {
			return nil, fmt.Errorf("embedding cache: scan: %w", err)
		}
		out[keyword] = vec.Slice()
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("embedding cache: get: %w", err)
	}
	return out, nil
}

// PutEmbeddings implements [memory.EmbeddingCache]. All vectors are upserted
// in one batch.
func (s *Store) PutEmbeddings(ctx context.Context, model string, vectors map[string][]float32) error {
	if len(vectors) == 0 {
		return nil
	}
	const q = `
		INSERT INTO symbol_embeddings (model, keyword, embedding, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (model, keyword) DO UPDATE SET
		    embedding  = EXCLUDED.embedding,
		    updated_at = EXCLUDED.updated_at`

	batch := &pgx.Batch{}
	for keyword, vec := range vectors {
		batch.Queue(q, model, keyword, pgvector.NewVector(vec))
	}
	if err := s.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("embedding cache: put: %w", err)
	}
	return nil
}
