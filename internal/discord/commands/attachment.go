package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/bwmarrin/discordgo"

	"github.com/MrWong99/pictalk/pkg/provider/stt"
)

// maxAudioSize caps a downloaded voice clip.
const maxAudioSize = 10 << 20

// ErrUnsupportedAudio is returned for attachments that are not WAV or raw
// 16-bit PCM.
var ErrUnsupportedAudio = errors.New("unsupported audio attachment")

// FirstAttachment returns the first resolved attachment of an application
// command, or nil.
func FirstAttachment(i *discordgo.InteractionCreate) *discordgo.MessageAttachment {
	if i.Type != discordgo.InteractionApplicationCommand {
		return nil
	}
	data := i.ApplicationCommandData()
	if data.Resolved == nil {
		return nil
	}
	for _, a := range data.Resolved.Attachments {
		return a
	}
	return nil
}

// DownloadAudio fetches attachment with client and wraps it as [stt.Audio].
func DownloadAudio(ctx context.Context, client *http.Client, attachment *discordgo.MessageAttachment) (stt.Audio, error) {
	if attachment == nil {
		return stt.Audio{}, errors.New("attachment is nil")
	}
	format := stt.FormatForFile(attachment.Filename)
	if format == "" {
		return stt.Audio{}, fmt.Errorf("%w: %q", ErrUnsupportedAudio, attachment.Filename)
	}
	if attachment.Size > maxAudioSize {
		return stt.Audio{}, fmt.Errorf("attachment %q is %d bytes, limit is %d", attachment.Filename, attachment.Size, maxAudioSize)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, attachment.URL, nil)
	if err != nil {
		return stt.Audio{}, fmt.Errorf("create download request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return stt.Audio{}, fmt.Errorf("download attachment: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return stt.Audio{}, fmt.Errorf("download attachment: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAudioSize+1))
	if err != nil {
		return stt.Audio{}, fmt.Errorf("read attachment: %w", err)
	}
	if len(data) > maxAudioSize {
		return stt.Audio{}, fmt.Errorf("attachment %q exceeds %d bytes", attachment.Filename, maxAudioSize)
	}

	audio := stt.Audio{Data: data, Format: format}
	if format == stt.FormatPCM16 {
		audio.SampleRate = stt.DefaultSampleRate
		audio.Channels = stt.DefaultChannels
	}
	return audio, nil
}
