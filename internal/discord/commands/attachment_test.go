package commands_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bwmarrin/discordgo"

	"github.com/MrWong99/pictalk/internal/discord/commands"
	"github.com/MrWong99/pictalk/pkg/provider/stt"
)

func TestFirstAttachment(t *testing.T) {
	t.Parallel()

	none := &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		Type: discordgo.InteractionApplicationCommand,
		Data: discordgo.ApplicationCommandInteractionData{Name: "hablar"},
	}}
	if a := commands.FirstAttachment(none); a != nil {
		t.Errorf("expected nil attachment, got %+v", a)
	}

	with := attachmentInteraction(&discordgo.MessageAttachment{ID: "a1", Filename: "clip.wav"})
	a := commands.FirstAttachment(with)
	if a == nil || a.Filename != "clip.wav" {
		t.Errorf("FirstAttachment = %+v", a)
	}
}

func TestDownloadAudio(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.wav" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("audio-bytes"))
	}))
	t.Cleanup(srv.Close)
	ctx := context.Background()

	t.Run("wav", func(t *testing.T) {
		audio, err := commands.DownloadAudio(ctx, srv.Client(), &discordgo.MessageAttachment{
			Filename: "clip.wav", URL: srv.URL + "/clip.wav", Size: 11,
		})
		if err != nil {
			t.Fatalf("DownloadAudio: %v", err)
		}
		if string(audio.Data) != "audio-bytes" || audio.Format != stt.FormatWAV {
			t.Errorf("audio = %+v", audio)
		}
		if audio.SampleRate != 0 {
			t.Errorf("wav sample rate = %d, want header-defined 0", audio.SampleRate)
		}
	})

	t.Run("raw pcm assumes 16 kHz mono", func(t *testing.T) {
		audio, err := commands.DownloadAudio(ctx, srv.Client(), &discordgo.MessageAttachment{
			Filename: "clip.pcm", URL: srv.URL + "/clip.pcm",
		})
		if err != nil {
			t.Fatalf("DownloadAudio: %v", err)
		}
		if audio.SampleRate != 16000 || audio.Channels != 1 {
			t.Errorf("pcm params = %d Hz, %d ch", audio.SampleRate, audio.Channels)
		}
	})

	t.Run("unsupported", func(t *testing.T) {
		_, err := commands.DownloadAudio(ctx, srv.Client(), &discordgo.MessageAttachment{
			Filename: "clip.mp3", URL: srv.URL + "/clip.mp3",
		})
		if !errors.Is(err, commands.ErrUnsupportedAudio) {
			t.Errorf("err = %v, want ErrUnsupportedAudio", err)
		}
	})

	t.Run("declared too large", func(t *testing.T) {
		_, err := commands.DownloadAudio(ctx, srv.Client(), &discordgo.MessageAttachment{
			Filename: "clip.wav", URL: srv.URL + "/clip.wav", Size: 64 << 20,
		})
		if err == nil {
			t.Error("expected size error")
		}
	})

	t.Run("http error", func(t *testing.T) {
		_, err := commands.DownloadAudio(ctx, srv.Client(), &discordgo.MessageAttachment{
			Filename: "missing.wav", URL: srv.URL + "/missing.wav",
		})
		if err == nil {
			t.Error("expected status error")
		}
	})

	t.Run("nil attachment", func(t *testing.T) {
		if _, err := commands.DownloadAudio(ctx, srv.Client(), nil); err == nil {
			t.Error("expected error")
		}
	})
}

func attachmentInteraction(a *discordgo.MessageAttachment) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		Type:   discordgo.InteractionApplicationCommand,
		Member: &discordgo.Member{User: &discordgo.User{Username: "ana"}},
		Data: discordgo.ApplicationCommandInteractionData{
			Name: "hablar",
			Options: []*discordgo.ApplicationCommandInteractionDataOption{{
				Name:  "audio",
				Type:  discordgo.ApplicationCommandOptionAttachment,
				Value: a.ID,
			}},
			Resolved: &discordgo.ApplicationCommandInteractionDataResolved{
				Attachments: map[string]*discordgo.MessageAttachment{a.ID: a},
			},
		},
	}}
}
