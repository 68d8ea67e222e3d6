// Package promptctx assembles the per-user context injected into every
// generation prompt of the dialogue router: the user's progress summary, the
// most recent interactions and the active therapist assignment.
//
// The three parts are fetched concurrently. Use [FormatSystemPrompt] to turn a
// [Context] into a system prompt.
package promptctx

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/pictalk/pkg/memory"
)

// ─────────────────────────────────────────────────────────────────────────────
// Public types
// ─────────────────────────────────────────────────────────────────────────────

// Context is the assembled per-user prompt context. All fields are optional.
type Context struct {
	Summary memory.ProgressSummary

	// Recent holds the last interactions, oldest first.
	Recent []memory.Interaction

	// Assignment is the user's active assignment, or nil.
	Assignment *memory.Assignment

	// AssemblyDuration records how long [Assembler.Assemble] took.
	AssemblyDuration time.Duration
}

// ─────────────────────────────────────────────────────────────────────────────
// Assembler
// ─────────────────────────────────────────────────────────────────────────────

// Assembler fetches the parts of a [Context] concurrently.
type Assembler struct {
	log         memory.InteractionLog
	assignments memory.AssignmentStore
	maxEntries  int
}

// Option is a functional option for [NewAssembler].
type Option func(*Assembler)

// WithAssignments enables the active assignment lookup.
func WithAssignments(s memory.AssignmentStore) Option {
	return func(a *Assembler) { a.assignments = s }
}

// WithMaxEntries caps the number of recent interactions. Defaults to 5.
func WithMaxEntries(n int) Option {
	return func(a *Assembler) {
		if n > 0 {
			a.maxEntries = n
		}
	}
}

// NewAssembler creates an [Assembler] reading from log.
func NewAssembler(log memory.InteractionLog, opts ...Option) *Assembler {
	a := &Assembler{log: log, maxEntries: 5}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Assemble fetches the summary, the recent interactions and the active
// assignment of user in parallel. The first error aborts assembly and is
// returned with a "prompt context: " prefix.
func (a *Assembler) Assemble(ctx context.Context, user string) (*Context, error) {
	start := time.Now()
	out := &Context{}

	eg, egCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		s, err := a.log.Summary(egCtx, user)
		if err != nil {
			return fmt.Errorf("prompt context: summary for %q: %w", user, err)
		}
		out.Summary = s
		return nil
	})

	eg.Go(func() error {
		recent, err := a.log.Recent(egCtx, user, a.maxEntries)
		if err != nil {
			return fmt.Errorf("prompt context: recent interactions for %q: %w", user, err)
		}
		if len(recent) > a.maxEntries {
			recent = recent[len(recent)-a.maxEntries:]
		}
		out.Recent = recent
		return nil
	})

	if a.assignments != nil {
		eg.Go(func() error {
			as, ok, err := a.assignments.ActiveAssignment(egCtx, user)
			if err != nil {
				return fmt.Errorf("prompt context: active assignment for %q: %w", user, err)
			}
			if ok {
				out.Assignment = &as
			}
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	out.AssemblyDuration = time.Since(start)
	return out, nil
}
