package content

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/MrWong99/pictalk/internal/config"
)

// Store holds the active pack and swaps it atomically. It is safe for
// concurrent use.
type Store struct {
	pack atomic.Pointer[Pack]
	stop context.CancelFunc
}

// NewStore returns a Store serving p, or the built-in pack if p is nil.
func NewStore(p *Pack) *Store {
	s := &Store{}
	if p == nil {
		p = defaultPack
	}
	s.pack.Store(p)
	return s
}

// Open loads the pack at path. When watch is true the file is polled every
// interval and a changed, valid file replaces the active pack; a malformed
// file keeps the previous one.
func Open(path string, watch bool, interval time.Duration) (*Store, error) {
	if !watch {
		p, err := Load(path)
		if err != nil {
			return nil, err
		}
		return NewStore(p), nil
	}

	s := &Store{}
	w, err := config.NewFileWatcher(path, parse, func(_, p *Pack) {
		s.Swap(p)
		slog.Info("content: pack reloaded", "path", path, "title", p.Title)
	}, config.WithInterval(interval))
	if err != nil {
		return nil, fmt.Errorf("content: %w", err)
	}
	s.pack.Store(w.Current())
	ctx, cancel := context.WithCancel(context.Background())
	s.stop = cancel
	go func() { _ = w.Run(ctx) }()
	return s, nil
}

func parse(b []byte) (*Pack, error) { return LoadFromReader(bytes.NewReader(b)) }

// Current returns the active pack.
func (s *Store) Current() *Pack { return s.pack.Load() }

// Swap replaces the active pack. A nil pack is ignored.
func (s *Store) Swap(p *Pack) {
	if p != nil {
		s.pack.Store(p)
	}
}

// Close stops the file watcher, if any.
func (s *Store) Close() {
	if s.stop != nil {
		s.stop()
	}
}
