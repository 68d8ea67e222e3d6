package postgres

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/MrWong99/pictalk/pkg/memory"
	"github.com/MrWong99/pictalk/pkg/symbol"
)

const interactionColumns = "id, username, sentence, words, categories, intent, emotion, reply, timestamp"

// Append implements [memory.InteractionLog].
func (s *Store) Append(ctx context.Context, in memory.Interaction) error {
	if in.ID == uuid.Nil {
		in.ID = uuid.New()
	}
	if in.Timestamp.IsZero() {
		in.Timestamp = time.Now()
	}
	if in.Words == nil {
		in.Words = []symbol.WordSymbol{}
	}
	if in.Categories == nil {
		in.Categories = []string{}
	}

	const q = `
		INSERT INTO interactions (` + interactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := s.pool.Exec(ctx, q,
		in.ID,
		in.Username,
		in.Sentence,
		in.Words,
		in.Categories,
		in.Intent,
		in.Emotion,
		in.Reply,
		in.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("interaction log: append: %w", err)
	}
	return nil
}

// Recent implements [memory.InteractionLog].
func (s *Store) Recent(ctx context.Context, username string, limit int) ([]memory.Interaction, error) {
	if limit <= 0 {
		return nil, nil
	}
	const q = `
		SELECT ` + interactionColumns + `
		FROM   interactions
		WHERE  username = $1
		ORDER  BY timestamp DESC
		LIMIT  $2`

	rows, err := s.pool.Query(ctx, q, username, limit)
	if err != nil {
		return nil, fmt.Errorf("interaction log: recent: %w", err)
	}
	out, err := collectInteractions(rows)
	if err != nil {
		return nil, fmt.Errorf("interaction log: recent: %w", err)
	}
	slices.Reverse(out)
	return out, nil
}

// Summary implements [memory.InteractionLog]. Totals and word counts are
// aggregated in the database.
func (s *Store) Summary(ctx context.Context, username string) (memory.ProgressSummary, error) {
	var (
		summary memory.ProgressSummary
		last    *time.Time
	)
	const totals = `
		SELECT count(*), max(timestamp)
		FROM   interactions
		WHERE  username = $1`
	if err := s.pool.QueryRow(ctx, totals, username).Scan(&summary.TotalInteractions, &last); err != nil {
		return memory.ProgressSummary{}, fmt.Errorf("interaction log: summary: %w", err)
	}
	if last != nil {
		summary.LastInteraction = *last
	}

	const words = `
		SELECT lower(trim(w->>'word')) AS word, count(*)::int AS n
		FROM   interactions, jsonb_array_elements(words) AS w
		WHERE  username = $1
		  AND  trim(coalesce(w->>'word', '')) <> ''
		GROUP  BY 1
		ORDER  BY n DESC, word ASC
		LIMIT  $2`
	rows, err := s.pool.Query(ctx, words, username, memory.TopWords)
	if err != nil {
		return memory.ProgressSummary{}, fmt.Errorf("interaction log: summary words: %w", err)
	}
	summary.MostCommonWords, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (memory.WordCount, error) {
		var wc memory.WordCount
		err := row.Scan(&wc.Word, &wc.Count)
		return wc, err
	})
	if err != nil {
		return memory.ProgressSummary{}, fmt.Errorf("interaction log: summary words: %w", err)
	}
	return summary, nil
}

// Analytics implements [memory.InteractionLog].
func (s *Store) Analytics(ctx context.Context, username string) (memory.Analytics, error) {
	const q = `
		SELECT ` + interactionColumns + `
		FROM   interactions
		WHERE  username = $1`

	rows, err := s.pool.Query(ctx, q, username)
	if err != nil {
		return memory.Analytics{}, fmt.Errorf("interaction log: analytics: %w", err)
	}
	all, err := collectInteractions(rows)
	if err != nil {
		return memory.Analytics{}, fmt.Errorf("interaction log: analytics: %w", err)
	}
	return memory.Analyze(all), nil
}

func collectInteractions(rows pgx.Rows) ([]memory.Interaction, error) {
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (memory.Interaction, error) {
		var in memory.Interaction
		err := row.Scan(
			&in.ID,
			&in.Username,
			&in.Sentence,
			&in.Words,
			&in.Categories,
			&in.Intent,
			&in.Emotion,
			&in.Reply,
			&in.Timestamp,
		)
		return in, err
	})
}
