package discord

import (
	"log/slog"

	"github.com/bwmarrin/discordgo"
)

// Responder is the part of [discordgo.Session] handlers answer through.
type Responder interface {
	InteractionRespond(i *discordgo.Interaction, resp *discordgo.InteractionResponse, opts ...discordgo.RequestOption) error
	FollowupMessageCreate(i *discordgo.Interaction, wait bool, params *discordgo.WebhookParams, opts ...discordgo.RequestOption) (*discordgo.Message, error)
}

var _ Responder = (*discordgo.Session)(nil)

// respond sends every answer other than autocomplete choices as ephemeral.
func respond(s Responder, i *discordgo.InteractionCreate, typ discordgo.InteractionResponseType, data *discordgo.InteractionResponseData) {
	if typ != discordgo.InteractionApplicationCommandAutocompleteResult {
		data.Flags |= discordgo.MessageFlagsEphemeral
	}
	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{Type: typ, Data: data}); err != nil {
		slog.Warn("discord: respond failed", "user", UserName(i), "type", typ, "err", err)
	}
}

// RespondEphemeral answers with plain text.
func RespondEphemeral(s Responder, i *discordgo.InteractionCreate, content string) {
	respond(s, i, discordgo.InteractionResponseChannelMessageWithSource, &discordgo.InteractionResponseData{Content: content})
}

// RespondEmbed answers with a single embed.
func RespondEmbed(s Responder, i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed) {
	respond(s, i, discordgo.InteractionResponseChannelMessageWithSource, &discordgo.InteractionResponseData{
		Embeds: []*discordgo.MessageEmbed{embed},
	})
}

// RespondError shows err to the user.
func RespondError(s Responder, i *discordgo.InteractionCreate, err error) {
	RespondEphemeral(s, i, "Error: "+err.Error())
}

// RespondChoices answers an autocomplete request. An empty list is valid.
func RespondChoices(s Responder, i *discordgo.InteractionCreate, choices []*discordgo.ApplicationCommandOptionChoice) {
	respond(s, i, discordgo.InteractionApplicationCommandAutocompleteResult, &discordgo.InteractionResponseData{Choices: choices})
}

// DeferReply shows the "thinking" state for answers that need a model or a
// download. The answer follows with [FollowUp] or [FollowUpMessage].
func DeferReply(s Responder, i *discordgo.InteractionCreate) {
	respond(s, i, discordgo.InteractionResponseDeferredChannelMessageWithSource, &discordgo.InteractionResponseData{})
}

// FollowUp completes a deferred reply with text.
func FollowUp(s Responder, i *discordgo.InteractionCreate, content string) {
	FollowUpMessage(s, i, &discordgo.WebhookParams{Content: content})
}

// FollowUpMessage completes a deferred reply with params.
func FollowUpMessage(s Responder, i *discordgo.InteractionCreate, params *discordgo.WebhookParams) {
	params.Flags |= discordgo.MessageFlagsEphemeral
	if _, err := s.FollowupMessageCreate(i.Interaction, true, params); err != nil {
		slog.Warn("discord: follow-up failed", "user", UserName(i), "err", err)
	}
}
