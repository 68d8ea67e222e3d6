package promptctx

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/MrWong99/pictalk/pkg/memory"
)

// Guard wraps a [memory.InteractionLog] and makes all operations non-fatal.
// If the underlying log fails, operations return empty values and log
// warnings instead of propagating errors, so a database outage costs prompt
// context, never a conversation turn.
//
// All methods are safe for concurrent use.
type Guard struct {
	log      memory.InteractionLog
	degraded atomic.Bool
}

// NewGuard creates a new [Guard] wrapping log.
func NewGuard(log memory.InteractionLog) *Guard {
	return &Guard{log: log}
}

func (g *Guard) observe(op, user string, err error) {
	if err != nil {
		g.degraded.Store(true)
		slog.Warn("history guard: operation failed, swallowing error", "op", op, "user", user, "err", err)
		return
	}
	g.degraded.Store(false)
}

// Append writes in to the underlying log. Failures are logged and swallowed.
func (g *Guard) Append(ctx context.Context, in memory.Interaction) error {
	g.observe("append", in.Username, g.log.Append(ctx, in))
	return nil
}

// Recent returns no interactions when the underlying log fails.
func (g *Guard) Recent(ctx context.Context, username string, limit int) ([]memory.Interaction, error) {
	out, err := g.log.Recent(ctx, username, limit)
	g.observe("recent", username, err)
	if err != nil {
		return []memory.Interaction{}, nil
	}
	return out, nil
}

// Summary returns an empty summary when the underlying log fails.
func (g *Guard) Summary(ctx context.Context, username string) (memory.ProgressSummary, error) {
	out, err := g.log.Summary(ctx, username)
	g.observe("summary", username, err)
	if err != nil {
		return memory.ProgressSummary{}, nil
	}
	return out, nil
}

// Analytics returns empty analytics when the underlying log fails.
func (g *Guard) Analytics(ctx context.Context, username string) (memory.Analytics, error) {
	out, err := g.log.Analytics(ctx, username)
	g.observe("analytics", username, err)
	if err != nil {
		return memory.Analytics{}, nil
	}
	return out, nil
}

// IsDegraded reports whether the most recent operation on the underlying log
// failed.
func (g *Guard) IsDegraded() bool {
	return g.degraded.Load()
}

var _ memory.InteractionLog = (*Guard)(nil)
