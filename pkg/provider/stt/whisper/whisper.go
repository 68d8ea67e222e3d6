// Package whisper provides an [stt.Transcriber] backed by a running
// whisper.cpp server (the whisper-server binary), which exposes
// POST /inference taking a multipart WAV upload.
//
//	t, err := whisper.New("http://localhost:8081", whisper.WithLanguage("es"))
//	text, err := t.Transcribe(ctx, stt.Audio{Data: wav, Format: stt.FormatWAV})
package whisper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	pcmaudio "github.com/MrWong99/pictalk/pkg/audio"
	"github.com/MrWong99/pictalk/pkg/provider/stt"
)

const defaultLanguage = "es"

var _ stt.Transcriber = (*Client)(nil)

// Option configures a [Client].
type Option func(*Client)

// WithLanguage sets the BCP-47 language hint. Default: "es".
func WithLanguage(lang string) Option {
	return func(c *Client) { c.language = lang }
}

// WithModel sets the model name forwarded to the server.
func WithModel(model string) Option {
	return func(c *Client) { c.model = model }
}

// WithTimeout sets the HTTP timeout per request. Default: 30s.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// Client is a whisper-server HTTP client. It is safe for concurrent use.
type Client struct {
	serverURL  string
	language   string
	model      string
	httpClient *http.Client
}

// New returns a Client for the server at serverURL.
func New(serverURL string, opts ...Option) (*Client, error) {
	if serverURL == "" {
		return nil, fmt.Errorf("whisper: serverURL must not be empty")
	}
	c := &Client{
		serverURL:  strings.TrimRight(serverURL, "/"),
		language:   defaultLanguage,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Transcribe implements stt.Transcriber.
func (c *Client) Transcribe(ctx context.Context, audio stt.Audio) (string, error) {
	var wav []byte
	switch audio.Format {
	case stt.FormatWAV, "":
		wav = audio.Data
		// Re-encode 16-bit PCM WAV that is not already 16 kHz mono. Anything
		// else is passed through for the server to handle.
		if pcm, rate, ch, err := pcmaudio.DecodeWAV(audio.Data); err == nil && (rate != pcmaudio.SpeechRate || ch != 1) {
			wav = pcmaudio.EncodeWAV(pcmaudio.ForSpeech(pcm, rate, ch), pcmaudio.SpeechRate, 1)
		}
	case stt.FormatPCM16:
		if len(audio.Data) > 0 {
			pcm := pcmaudio.ForSpeech(audio.Data, audio.SampleRate, audio.Channels)
			wav = pcmaudio.EncodeWAV(pcm, pcmaudio.SpeechRate, 1)
		}
	default:
		return "", fmt.Errorf("whisper: unsupported audio format %q", audio.Format)
	}
	if len(wav) == 0 {
		return "", fmt.Errorf("whisper: empty audio")
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "audio.wav")
	if err != nil {
		return "", fmt.Errorf("whisper: create form file: %w", err)
	}
	if _, err := fw.Write(wav); err != nil {
		return "", fmt.Errorf("whisper: write wav data: %w", err)
	}
	if c.language != "" {
		if err := mw.WriteField("language", c.language); err != nil {
			return "", fmt.Errorf("whisper: write language field: %w", err)
		}
	}
	if c.model != "" {
		if err := mw.WriteField("model", c.model); err != nil {
			return "", fmt.Errorf("whisper: write model field: %w", err)
		}
	}
	if err := mw.WriteField("response_format", "json"); err != nil {
		return "", fmt.Errorf("whisper: write response_format field: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("whisper: close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.serverURL+"/inference", &body)
	if err != nil {
		return "", fmt.Errorf("whisper: create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("whisper: http request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("whisper: server returned HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("whisper: read response body: %w", err)
	}
	var result struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return "", fmt.Errorf("whisper: parse JSON response: %w", err)
	}
	return strings.TrimSpace(result.Text), nil
}
