// Package mock provides a test double for the stt.Transcriber interface.
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/pictalk/pkg/provider/stt"
)

var _ stt.Transcriber = (*Transcriber)(nil)

// Transcriber returns Text (or Err) for every call and records the audio it
// received.
type Transcriber struct {
	mu sync.Mutex

	Text string
	Err  error

	Calls []stt.Audio
}

// Transcribe records audio and returns Text, Err.
func (m *Transcriber) Transcribe(_ context.Context, audio stt.Audio) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, audio)
	return m.Text, m.Err
}
