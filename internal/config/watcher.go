package config

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"
)

// DefaultPollInterval is how often a [FileWatcher] looks at its file unless
// [WithInterval] says otherwise.
const DefaultPollInterval = 5 * time.Second

// FileWatcher keeps the parsed form of a file current. [FileWatcher.Run]
// polls the file's mtime and, when it moved, re-reads and re-parses the
// content. A file that fails to parse keeps the last good value.
type FileWatcher[T any] struct {
	path     string
	interval time.Duration
	parse    func([]byte) (T, error)
	onChange func(old, new T)

	mu      sync.Mutex
	current T
	mtime   time.Time
	sum     [sha256.Size]byte
}

// WatcherOption configures a [FileWatcher].
type WatcherOption func(*time.Duration)

// WithInterval sets the polling interval. Non-positive values are ignored.
func WithInterval(d time.Duration) WatcherOption {
	return func(iv *time.Duration) {
		if d > 0 {
			*iv = d
		}
	}
}

// NewFileWatcher parses path once and returns a watcher serving the result.
// Polling starts with [FileWatcher.Run].
func NewFileWatcher[T any](path string, parse func([]byte) (T, error), onChange func(old, new T), opts ...WatcherOption) (*FileWatcher[T], error) {
	w := &FileWatcher[T]{path: path, interval: DefaultPollInterval, parse: parse, onChange: onChange}
	for _, o := range opts {
		o(&w.interval)
	}
	snap, err := w.read()
	if err != nil {
		return nil, fmt.Errorf("config: watch %q: %w", path, err)
	}
	w.current, w.mtime, w.sum = snap.value, snap.mtime, snap.sum
	return w, nil
}

// Current returns the last successfully parsed value.
func (w *FileWatcher[T]) Current() T {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// Run polls until ctx is done and returns ctx.Err().
func (w *FileWatcher[T]) Run(ctx context.Context) error {
	t := time.NewTicker(w.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			if _, err := w.Poll(); err != nil {
				slog.Warn("config: watched file not reloaded", "path", w.path, "err", err)
			}
		}
	}
}

// Poll checks the file once. It reports whether the value changed; onChange
// has already run by the time it returns true. A touch that leaves the
// content unchanged is not a change.
func (w *FileWatcher[T]) Poll() (bool, error) {
	info, err := os.Stat(w.path)
	if err != nil {
		return false, err
	}
	w.mu.Lock()
	same := info.ModTime().Equal(w.mtime)
	w.mu.Unlock()
	if same {
		return false, nil
	}

	snap, err := w.read()
	if err != nil {
		return false, err
	}

	w.mu.Lock()
	w.mtime = snap.mtime
	if snap.sum == w.sum {
		w.mu.Unlock()
		return false, nil
	}
	old := w.current
	w.current, w.sum = snap.value, snap.sum
	w.mu.Unlock()

	slog.Info("config: watched file reloaded", "path", w.path)
	if w.onChange != nil {
		w.onChange(old, snap.value)
	}
	return true, nil
}

type snapshot[T any] struct {
	value T
	mtime time.Time
	sum   [sha256.Size]byte
}

func (w *FileWatcher[T]) read() (snapshot[T], error) {
	var s snapshot[T]
	info, err := os.Stat(w.path)
	if err != nil {
		return s, err
	}
	data, err := os.ReadFile(w.path)
	if err != nil {
		return s, err
	}
	if s.value, err = w.parse(data); err != nil {
		return s, err
	}
	s.mtime, s.sum = info.ModTime(), sha256.Sum256(data)
	return s, nil
}

// Watcher follows the service configuration file.
type Watcher = FileWatcher[*Config]

// NewWatcher loads the config at path and returns a watcher for it whose
// onChange receives both the previous and the new configuration.
func NewWatcher(path string, onChange func(old, new *Config), opts ...WatcherOption) (*Watcher, error) {
	return NewFileWatcher(path, func(b []byte) (*Config, error) {
		return LoadFromReader(bytes.NewReader(b))
	}, onChange, opts...)
}
