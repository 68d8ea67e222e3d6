package session

import (
	"context"
	"slices"
	"sync"

	"github.com/MrWong99/pictalk/internal/observe"
)

// Option configures a [Registry].
type Option func(*Registry)

// WithMetrics tracks the number of live sessions on m.
func WithMetrics(m *observe.Metrics) Option {
	return func(r *Registry) { r.metrics = m }
}

type entry struct {
	mu    sync.Mutex
	state State
}

// Registry owns the state of every active user. Calls for the same user are
// serialized; calls for different users never block each other beyond a map
// lookup. All methods are safe for concurrent use.
type Registry struct {
	mu      sync.Mutex
	users   map[string]*entry
	metrics *observe.Metrics
}

// NewRegistry returns an empty Registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{users: make(map[string]*entry)}
	for _, o := range opts {
		o(r)
	}
	return r
}

func (r *Registry) entry(user string) *entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.users[user]
	if !ok {
		e = &entry{}
		r.users[user] = e
		if r.metrics != nil {
			r.metrics.ActiveSessions.Add(context.Background(), 1)
		}
	}
	return e
}

// Do runs fn with exclusive access to user's state, creating it if needed.
// fn must not retain the pointer after it returns.
func (r *Registry) Do(user string, fn func(*State)) {
	e := r.entry(user)
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(&e.state)
}

// Get returns a copy of user's state. ok is false when the user has none.
func (r *Registry) Get(user string) (State, bool) {
	r.mu.Lock()
	e, ok := r.users[user]
	r.mu.Unlock()
	if !ok {
		return State{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Clone(), true
}

// Clear drops user's state. It waits for an in-flight [Registry.Do] for the
// same user to finish.
func (r *Registry) Clear(user string) {
	r.mu.Lock()
	e, ok := r.users[user]
	if ok {
		delete(r.users, user)
		if r.metrics != nil {
			r.metrics.ActiveSessions.Add(context.Background(), -1)
		}
	}
	r.mu.Unlock()
	if !ok {
		return
	}
	e.mu.Lock()
	e.state.Reset()
	e.mu.Unlock()
}

// Len returns the number of users with state.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.users)
}

// Users returns the sorted usernames with state.
func (r *Registry) Users() []string {
	r.mu.Lock()
	out := make([]string, 0, len(r.users))
	for u := range r.users {
		out = append(out, u)
	}
	r.mu.Unlock()
	slices.Sort(out)
	return out
}
