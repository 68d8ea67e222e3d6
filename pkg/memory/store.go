// Package memory defines the persistence collaborators of the dialogue engine.
//
// Three concerns are covered, each behind its own interface:
//
//   - [InteractionLog]: the append-only log of user turns, read back as recent
//     history, a progress summary and progress analytics.
//   - [AssignmentStore]: tasks a therapist assigns to a user; the active one
//     feeds scripted replies and prompt context.
//   - [EmbeddingCache]: keyword embeddings keyed by model, so the symbol index
//     does not re-embed the whole catalog on every start.
//
// The dialogue router only reads from these stores. Writing the interaction
// log is the caller's job once a turn has been answered.
//
// Every implementation must be safe for concurrent use.
package memory

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("memory: not found")

// InteractionLog records user turns and derives progress views from them.
type InteractionLog interface {
	// Append stores one interaction. A zero ID is replaced with a fresh one and
	// a zero Timestamp with the current time.
	Append(ctx context.Context, in Interaction) error

	// Recent returns up to limit of the user's most recent interactions, oldest
	// first. A non-positive limit returns nothing.
	Recent(ctx context.Context, username string, limit int) ([]Interaction, error)

	// Summary returns the user's progress summary. A user without interactions
	// yields a zero summary, not an error.
	Summary(ctx context.Context, username string) (ProgressSummary, error)

	// Analytics returns aggregate progress statistics for the user.
	Analytics(ctx context.Context, username string) (Analytics, error)
}

// AssignmentStore holds therapist assignments. At most one assignment per user
// is active at a time; saving a new one completes the previous one.
type AssignmentStore interface {
	// SaveAssignment stores a and makes it the user's active assignment.
	SaveAssignment(ctx context.Context, a Assignment) error

	// ActiveAssignment returns the user's active assignment. ok is false when
	// the user has none.
	ActiveAssignment(ctx context.Context, username string) (a Assignment, ok bool, err error)

	// CompleteAssignment marks the assignment with the given ID as done.
	// Returns [ErrNotFound] for unknown IDs.
	CompleteAssignment(ctx context.Context, id string) error
}

// EmbeddingCache persists keyword embeddings per embedding model.
type EmbeddingCache interface {
	// GetEmbeddings returns the cached vectors for the given keys under model.
	// Keys without a cached vector are absent from the result.
	GetEmbeddings(ctx context.Context, model string, keys []string) (map[string][]float32, error)

	// PutEmbeddings stores vectors under model, replacing existing entries.
	PutEmbeddings(ctx context.Context, model string, vectors map[string][]float32) error
}
