package commands

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/MrWong99/pictalk/internal/app"
	"github.com/MrWong99/pictalk/internal/dialogue"
	"github.com/MrWong99/pictalk/internal/discord"
	"github.com/MrWong99/pictalk/pkg/provider/stt"
)

// skipButtonID is the custom_id of the "Saltar" button under exercise
// replies.
const skipButtonID = "pictalk:skip"

// skipText is the utterance a skip button press is turned into.
const skipText = "saltar"

// maxEmbedSymbols caps the pictogram lines listed in a reply embed.
const maxEmbedSymbols = 10

// Embed colours.
const (
	colourReply    = 0x4F9DDE
	colourExercise = 0xF2A93B
)

func (c *Commands) handleSay(s discord.Responder, i *discordgo.InteractionCreate) {
	text := strings.TrimSpace(stringOption(options(i), "texto"))
	if text == "" {
		discord.RespondEphemeral(s, i, "Escribe algo para decir.")
		return
	}
	discord.DeferReply(s, i)

	ctx, cancel := handlerContext()
	defer cancel()
	resp := c.svc.Turn(ctx, c.request(i, text))
	discord.FollowUpMessage(s, i, replyMessage(resp))
}

func (c *Commands) handleAudio(s discord.Responder, i *discordgo.InteractionCreate) {
	attachment := FirstAttachment(i)
	if attachment == nil {
		discord.RespondEphemeral(s, i, "Adjunta un archivo de audio.")
		return
	}
	if stt.FormatForFile(attachment.Filename) == "" {
		discord.RespondEphemeral(s, i, "Formato de audio no soportado. Usa WAV.")
		return
	}
	discord.DeferReply(s, i)

	ctx, cancel := handlerContext()
	defer cancel()
	audio, err := DownloadAudio(ctx, c.client, attachment)
	if err != nil {
		slog.Warn("discord: audio download failed", "file", attachment.Filename, "err", err)
		discord.FollowUp(s, i, "No pude descargar el audio.")
		return
	}
	resp, err := c.svc.TurnAudio(ctx, c.request(i, ""), audio)
	switch {
	case errors.Is(err, app.ErrNoTranscriber):
		discord.FollowUp(s, i, "La transcripción de voz no está disponible.")
		return
	case err != nil:
		slog.Warn("discord: transcription failed", "err", err)
		discord.FollowUp(s, i, "No pude entender el audio.")
		return
	}
	discord.FollowUpMessage(s, i, replyMessage(resp))
}

// handleSkip answers the skip button as if the user had typed "saltar".
func (c *Commands) handleSkip(s discord.Responder, i *discordgo.InteractionCreate) {
	discord.DeferReply(s, i)

	ctx, cancel := handlerContext()
	defer cancel()
	resp := c.svc.Turn(ctx, c.request(i, skipText))
	discord.FollowUpMessage(s, i, replyMessage(resp))
}

func (c *Commands) request(i *discordgo.InteractionCreate, text string) dialogue.Request {
	role := dialogue.RoleStudent
	if c.perms != nil && c.perms.IsTherapist(i) {
		role = dialogue.RoleTherapist
	}
	return dialogue.Request{User: discord.UserName(i), Role: role, Text: text}
}

// ── Formatting ──────────────────────────────────────────────────────────────

// exercise reports whether strategy belongs to a running exercise.
func exercise(strategy string) bool {
	switch strategy {
	case dialogue.StrategyGame, dialogue.StrategyGameStart,
		dialogue.StrategyDrill, dialogue.StrategyDrillStart,
		dialogue.StrategyGuided:
		return true
	}
	return false
}

// replyEmbed renders a dialogue response: the reply as title, one line per
// pictogram and the classification in the footer.
func replyEmbed(resp dialogue.Response) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title: truncate(resp.Reply, 256),
		Color: colourReply,
	}
	if exercise(resp.Strategy) {
		embed.Color = colourExercise
	}

	var b strings.Builder
	n := 0
	for _, w := range resp.Words {
		if w.Path == "" {
			continue
		}
		if n == maxEmbedSymbols {
			b.WriteString("…\n")
			break
		}
		fmt.Fprintf(&b, "**%s** → `%s`\n", w.Word, w.Path)
		n++
	}
	embed.Description = b.String()

	footer := resp.Strategy
	if resp.Intent != "" {
		footer = fmt.Sprintf("%s · %s · %s", resp.Intent, resp.Emotion, resp.Strategy)
	}
	if footer != "" {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: footer}
	}
	return embed
}

// replyMessage wraps replyEmbed in follow-up params and adds the skip button
// while an exercise runs.
func replyMessage(resp dialogue.Response) *discordgo.WebhookParams {
	params := &discordgo.WebhookParams{
		Embeds: []*discordgo.MessageEmbed{replyEmbed(resp)},
	}
	if exercise(resp.Strategy) {
		params.Components = []discordgo.MessageComponent{
			discordgo.ActionsRow{Components: []discordgo.MessageComponent{
				discordgo.Button{
					Label:    "Saltar",
					Style:    discordgo.SecondaryButton,
					CustomID: skipButtonID,
				},
			}},
		}
	}
	return params
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
