package resilience

import (
	"context"

	"github.com/MrWong99/pictalk/pkg/provider/stt"
)

// TranscriberFallback implements [stt.Transcriber] over an ordered list of
// transcription backends.
type TranscriberFallback struct {
	group *FallbackGroup[stt.Transcriber]
}

var _ stt.Transcriber = (*TranscriberFallback)(nil)

// NewTranscriberFallback creates a [TranscriberFallback] preferring primary.
func NewTranscriberFallback(primary stt.Transcriber, primaryName string, cfg FallbackConfig) *TranscriberFallback {
	if cfg.Kind == "" {
		cfg.Kind = "transcription"
	}
	return &TranscriberFallback{group: NewFallbackGroup(primary, primaryName, cfg)}
}

// AddFallback registers another transcription backend.
func (f *TranscriberFallback) AddFallback(name string, t stt.Transcriber) {
	f.group.AddFallback(name, t)
}

// Transcribe returns the text of the first backend that succeeds.
func (f *TranscriberFallback) Transcribe(ctx context.Context, audio stt.Audio) (string, error) {
	return ExecuteWithResult(ctx, f.group, func(t stt.Transcriber) (string, error) {
		return t.Transcribe(ctx, audio)
	})
}

// Group exposes the underlying group.
func (f *TranscriberFallback) Group() *FallbackGroup[stt.Transcriber] { return f.group }
