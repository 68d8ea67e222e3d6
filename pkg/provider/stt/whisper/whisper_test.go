package whisper_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MrWong99/pictalk/pkg/audio"
	"github.com/MrWong99/pictalk/pkg/provider/stt"
	"github.com/MrWong99/pictalk/pkg/provider/stt/whisper"
)

// inferenceServer answers POST /inference with text and records the uploaded
// file and language field.
type inferenceServer struct {
	*httptest.Server
	gotFile     []byte
	gotLanguage string
}

func newInferenceServer(t *testing.T, text string, status int) *inferenceServer {
	t.Helper()
	s := &inferenceServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/inference" {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		if status != http.StatusOK {
			http.Error(w, "fail", status)
			return
		}
		f, _, err := r.FormFile("file")
		if err != nil {
			t.Errorf("FormFile: %v", err)
			return
		}
		s.gotFile, _ = io.ReadAll(f)
		s.gotLanguage = r.FormValue("language")
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"text": text})
	}))
	t.Cleanup(s.Close)
	return s
}

func TestNew_EmptyServerURL(t *testing.T) {
	if _, err := whisper.New(""); err == nil {
		t.Fatal("expected error for empty server URL")
	}
}

func TestTranscribe_WAV(t *testing.T) {
	srv := newInferenceServer(t, "  quiero agua \n", http.StatusOK)
	c, err := whisper.New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	wav := []byte("RIFF....WAVEfake")
	got, err := c.Transcribe(context.Background(), stt.Audio{Data: wav, Format: stt.FormatWAV})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if got != "quiero agua" {
		t.Errorf("Transcribe = %q, want %q", got, "quiero agua")
	}
	if !bytes.Equal(srv.gotFile, wav) {
		t.Error("uploaded file differs from input WAV")
	}
	if srv.gotLanguage != "es" {
		t.Errorf("language = %q, want es", srv.gotLanguage)
	}
}

func TestTranscribe_PCMIsWrappedInWAV(t *testing.T) {
	srv := newInferenceServer(t, "hola", http.StatusOK)
	c, err := whisper.New(srv.URL, whisper.WithLanguage("ca"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	pcm := make([]byte, 320)
	if _, err := c.Transcribe(context.Background(), stt.Audio{Data: pcm, Format: stt.FormatPCM16, SampleRate: 16000, Channels: 1}); err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if len(srv.gotFile) != 44+len(pcm) {
		t.Fatalf("uploaded %d bytes, want %d", len(srv.gotFile), 44+len(pcm))
	}
	if string(srv.gotFile[0:4]) != "RIFF" || string(srv.gotFile[8:12]) != "WAVE" {
		t.Error("uploaded file is missing the RIFF/WAVE header")
	}
	if srv.gotLanguage != "ca" {
		t.Errorf("language = %q, want ca", srv.gotLanguage)
	}
}

func TestTranscribe_ConvertsToSpeechFormat(t *testing.T) {
	srv := newInferenceServer(t, "hola", http.StatusOK)
	c, err := whisper.New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()

	// 240 stereo frames at 48 kHz are 80 mono samples at 16 kHz.
	stereo := make([]byte, 240*4)
	inputs := map[string]stt.Audio{
		"pcm": {Data: stereo, Format: stt.FormatPCM16, SampleRate: 48000, Channels: 2},
		"wav": {Data: audio.EncodeWAV(stereo, 48000, 2), Format: stt.FormatWAV},
	}
	for name, in := range inputs {
		if _, err := c.Transcribe(ctx, in); err != nil {
			t.Fatalf("%s: Transcribe: %v", name, err)
		}
		pcm, rate, channels, err := audio.DecodeWAV(srv.gotFile)
		if err != nil {
			t.Fatalf("%s: uploaded file: %v", name, err)
		}
		if rate != audio.SpeechRate || channels != 1 || len(pcm) != 160 {
			t.Errorf("%s: uploaded %d Hz, %d channels, %d bytes; want 16000 Hz mono, 160 bytes", name, rate, channels, len(pcm))
		}
	}
}

func TestTranscribe_Errors(t *testing.T) {
	srv := newInferenceServer(t, "", http.StatusInternalServerError)
	c, err := whisper.New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx := context.Background()
	if _, err := c.Transcribe(ctx, stt.Audio{Data: []byte("x"), Format: stt.FormatWAV}); err == nil {
		t.Error("expected error for HTTP 500")
	}
	if _, err := c.Transcribe(ctx, stt.Audio{Data: []byte("x"), Format: "ogg"}); err == nil {
		t.Error("expected error for unsupported format")
	}
	if _, err := c.Transcribe(ctx, stt.Audio{Format: stt.FormatWAV}); err == nil {
		t.Error("expected error for empty audio")
	}
	if _, err := c.Transcribe(ctx, stt.Audio{Format: stt.FormatPCM16, SampleRate: 16000}); err == nil {
		t.Error("expected error for empty PCM")
	}
}
