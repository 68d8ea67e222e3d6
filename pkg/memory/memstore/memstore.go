// Package memstore is an in-memory implementation of the memory interfaces,
// used when no database is configured and in tests.
package memstore

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MrWong99/pictalk/pkg/memory"
)

var (
	_ memory.InteractionLog  = (*Store)(nil)
	_ memory.AssignmentStore = (*Store)(nil)
	_ memory.EmbeddingCache  = (*Store)(nil)
)

// Store keeps interactions, assignments and embeddings in maps guarded by a
// single RWMutex. The zero value is ready to use.
type Store struct {
	mu           sync.RWMutex
	interactions map[string][]memory.Interaction
	assignments  map[string]memory.Assignment
	active       map[string]string
	embeddings   map[string]map[string][]float32

	now func() time.Time
}

// New returns an empty Store.
func New() *Store {
	return &Store{}
}

func (s *Store) init() {
	if s.interactions == nil {
		s.interactions = make(map[string][]memory.Interaction)
		s.assignments = make(map[string]memory.Assignment)
		s.active = make(map[string]string)
		s.embeddings = make(map[string]map[string][]float32)
	}
}

func (s *Store) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}

// Append implements [memory.InteractionLog].
func (s *Store) Append(_ context.Context, in memory.Interaction) error {
	if in.ID == uuid.Nil {
		in.ID = uuid.New()
	}
	if in.Timestamp.IsZero() {
		in.Timestamp = s.clock()
	}
	in.Words = slices.Clone(in.Words)
	in.Categories = slices.Clone(in.Categories)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.init()
	s.interactions[in.Username] = append(s.interactions[in.Username], in)
	return nil
}

// Recent implements [memory.InteractionLog].
func (s *Store) Recent(_ context.Context, username string, limit int) ([]memory.Interaction, error) {
	if limit <= 0 {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.interactions[username]
	if len(all) > limit {
		all = all[len(all)-limit:]
	}
	return slices.Clone(all), nil
}

// Summary implements [memory.InteractionLog].
func (s *Store) Summary(_ context.Context, username string) (memory.ProgressSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return memory.Summarize(s.interactions[username]), nil
}

// Analytics implements [memory.InteractionLog].
func (s *Store) Analytics(_ context.Context, username string) (memory.Analytics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return memory.Analyze(s.interactions[username]), nil
}

// SaveAssignment implements [memory.AssignmentStore].
func (s *Store) SaveAssignment(_ context.Context, a memory.Assignment) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = s.clock()
	}
	a.TargetWords = slices.Clone(a.TargetWords)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.init()
	if prev, ok := s.active[a.Username]; ok && prev != a.ID && !a.Completed {
		old := s.assignments[prev]
		old.Completed = true
		s.assignments[prev] = old
	}
	s.assignments[a.ID] = a
	if !a.Completed {
		s.active[a.Username] = a.ID
	}
	return nil
}

// ActiveAssignment implements [memory.AssignmentStore].
func (s *Store) ActiveAssignment(_ context.Context, username string) (memory.Assignment, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.active[username]
	if !ok {
		return memory.Assignment{}, false, nil
	}
	a := s.assignments[id]
	a.TargetWords = slices.Clone(a.TargetWords)
	return a, true, nil
}

// CompleteAssignment implements [memory.AssignmentStore].
func (s *Store) CompleteAssignment(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.assignments[id]
	if !ok {
		return memory.ErrNotFound
	}
	a.Completed = true
	s.assignments[id] = a
	if s.active[a.Username] == id {
		delete(s.active, a.Username)
	}
	return nil
}

// GetEmbeddings implements [memory.EmbeddingCache].
func (s *Store) GetEmbeddings(_ context.Context, model string, keys []string) (map[string][]float32, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string][]float32, len(keys))
	cached := s.embeddings[model]
	for _, k := range keys {
		if v, ok := cached[k]; ok {
			out[k] = slices.Clone(v)
		}
	}
	return out, nil
}

// PutEmbeddings implements [memory.EmbeddingCache].
func (s *Store) PutEmbeddings(_ context.Context, model string, vectors map[string][]float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.init()

	cached := s.embeddings[model]
	if cached == nil {
		cached = make(map[string][]float32, len(vectors))
		s.embeddings[model] = cached
	}
	for k, v := range vectors {
		cached[k] = slices.Clone(v)
	}
	return nil
}
