// Package mock provides test doubles for the memory interfaces.
//
// Each mock records every method call for assertion in tests and exposes
// exported fields that control what the mock returns. All mocks are safe for
// concurrent use via an internal [sync.Mutex].
//
// Typical usage:
//
//	log := &mock.InteractionLog{}
//	log.SummaryResult = memory.ProgressSummary{TotalInteractions: 3}
//
//	// inject log into the system under test …
//
//	if got := log.CallCount("Summary"); got != 1 {
//	    t.Errorf("expected 1 Summary call, got %d", got)
//	}
package mock

import (
	"context"
	"slices"
	"sync"

	"github.com/MrWong99/pictalk/pkg/memory"
)

// Call records the name and arguments of a single method invocation.
type Call struct {
	// Method is the name of the interface method that was called.
	Method string

	// Args holds the non-context arguments passed to the method, in order.
	Args []any
}

type recorder struct {
	mu    sync.Mutex
	calls []Call
}

func (r *recorder) record(method string, args ...any) {
	r.calls = append(r.calls, Call{Method: method, Args: args})
}

// Calls returns a copy of all recorded method invocations.
func (r *recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.calls)
}

// CallCount returns how many times the named method was invoked.
func (r *recorder) CallCount(method string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

// Reset clears all recorded calls without altering response configuration.
func (r *recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}

// ── InteractionLog ──────────────────────────────────────────────────────────

// InteractionLog is a configurable test double for [memory.InteractionLog].
type InteractionLog struct {
	recorder

	// AppendErr is returned by [InteractionLog.Append] when non-nil.
	AppendErr error

	// RecentResult is returned by [InteractionLog.Recent], truncated to limit.
	RecentResult []memory.Interaction
	RecentErr    error

	SummaryResult memory.ProgressSummary
	SummaryErr    error

	AnalyticsResult memory.Analytics
	AnalyticsErr    error
}

var _ memory.InteractionLog = (*InteractionLog)(nil)

// Append implements [memory.InteractionLog].
func (m *InteractionLog) Append(_ context.Context, in memory.Interaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("Append", in)
	return m.AppendErr
}

// Recent implements [memory.InteractionLog].
func (m *InteractionLog) Recent(_ context.Context, username string, limit int) ([]memory.Interaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("Recent", username, limit)
	out := slices.Clone(m.RecentResult)
	if limit >= 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, m.RecentErr
}

// Summary implements [memory.InteractionLog].
func (m *InteractionLog) Summary(_ context.Context, username string) (memory.ProgressSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("Summary", username)
	return m.SummaryResult, m.SummaryErr
}

// Analytics implements [memory.InteractionLog].
func (m *InteractionLog) Analytics(_ context.Context, username string) (memory.Analytics, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("Analytics", username)
	return m.AnalyticsResult, m.AnalyticsErr
}

// ── AssignmentStore ─────────────────────────────────────────────────────────

// AssignmentStore is a configurable test double for [memory.AssignmentStore].
type AssignmentStore struct {
	recorder

	SaveErr error

	// Active is returned by [AssignmentStore.ActiveAssignment] when non-nil.
	Active    *memory.Assignment
	ActiveErr error

	CompleteErr error
}

var _ memory.AssignmentStore = (*AssignmentStore)(nil)

// SaveAssignment implements [memory.AssignmentStore].
func (m *AssignmentStore) SaveAssignment(_ context.Context, a memory.Assignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("SaveAssignment", a)
	return m.SaveErr
}

// ActiveAssignment implements [memory.AssignmentStore].
func (m *AssignmentStore) ActiveAssignment(_ context.Context, username string) (memory.Assignment, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("ActiveAssignment", username)
	if m.Active == nil {
		return memory.Assignment{}, false, m.ActiveErr
	}
	return *m.Active, true, m.ActiveErr
}

// CompleteAssignment implements [memory.AssignmentStore].
func (m *AssignmentStore) CompleteAssignment(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("CompleteAssignment", id)
	return m.CompleteErr
}
