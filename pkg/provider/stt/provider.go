// Package stt defines the Transcriber port used to turn a recorded utterance
// into text before it reaches the dialogue router.
//
// Transcription is batch only: the caller has a complete recording (an
// uploaded voice note, a file given to the CLI) and waits for its text.
package stt

import (
	"context"
	"path/filepath"
	"strings"
)

// Audio formats accepted by [Transcriber.Transcribe].
const (
	// FormatWAV is a complete RIFF/WAV file.
	FormatWAV = "wav"
	// FormatPCM16 is raw 16-bit signed little-endian PCM.
	FormatPCM16 = "pcm16"
)

// Raw PCM recordings carry no header. These are assumed when nothing else
// describes them.
const (
	DefaultSampleRate = 16000
	DefaultChannels   = 1
)

// FormatForFile returns the format implied by the extension of name, or ""
// when it is not a supported recording.
func FormatForFile(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".wav", ".wave":
		return FormatWAV
	case ".pcm", ".raw":
		return FormatPCM16
	default:
		return ""
	}
}

// Audio is a complete recording.
type Audio struct {
	// Data holds the encoded audio.
	Data []byte

	// Format is FormatWAV or FormatPCM16.
	Format string

	// SampleRate and Channels describe FormatPCM16 data. They are ignored for WAV.
	SampleRate int
	Channels   int
}

// Transcriber converts a recording to text. Implementations must be safe for
// concurrent use.
type Transcriber interface {
	Transcribe(ctx context.Context, audio Audio) (string, error)
}
