package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/MrWong99/pictalk/pkg/memory"
)

// SaveAssignment implements [memory.AssignmentStore]. Any other open
// assignment of the same user is completed in the same transaction.
func (s *Store) SaveAssignment(ctx context.Context, a memory.Assignment) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	if a.TargetWords == nil {
		a.TargetWords = []string{}
	}

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if !a.Completed {
			const supersede = `
				UPDATE assignments SET completed = true
				WHERE  username = $1 AND id <> $2 AND NOT completed`
			if _, err := tx.Exec(ctx, supersede, a.Username, a.ID); err != nil {
				return err
			}
		}
		const upsert = `
			INSERT INTO assignments
			    (id, username, type, title, task, target_words, created_at, completed)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (id) DO UPDATE SET
			    username     = EXCLUDED.username,
			    type         = EXCLUDED.type,
			    title        = EXCLUDED.title,
			    task         = EXCLUDED.task,
			    target_words = EXCLUDED.target_words,
			    completed    = EXCLUDED.completed`
		_, err := tx.Exec(ctx, upsert,
			a.ID,
			a.Username,
			string(a.Type),
			a.Title,
			a.Task,
			a.TargetWords,
			a.CreatedAt,
			a.Completed,
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("assignments: save: %w", err)
	}
	return nil
}

// ActiveAssignment implements [memory.AssignmentStore].
func (s *Store) ActiveAssignment(ctx context.Context, username string) (memory.Assignment, bool, error) {
	const q = `
		SELECT id, username, type, title, task, target_words, created_at, completed
		FROM   assignments
		WHERE  username = $1 AND NOT completed
		ORDER  BY created_at DESC
		LIMIT  1`

	var (
		a   memory.Assignment
		typ string
	)
	err := s.pool.QueryRow(ctx, q, username).Scan(
		&a.ID,
		&a.Username,
		&typ,
		&a.Title,
		&a.Task,
		&a.TargetWords,
		&a.CreatedAt,
		&a.Completed,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return memory.Assignment{}, false, nil
	}
	if err != nil {
		return memory.Assignment{}, false, fmt.Errorf("assignments: active: %w", err)
	}
	a.Type = memory.AssignmentType(typ)
	return a, true, nil
}

// CompleteAssignment implements [memory.AssignmentStore].
func (s *Store) CompleteAssignment(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE assignments SET completed = true WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("assignments: complete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return memory.ErrNotFound
	}
	return nil
}
