package commands

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/MrWong99/pictalk/internal/discord"
)

// maxChoices is the Discord limit on autocomplete choices.
const maxChoices = 25

func (c *Commands) handleGame(s discord.Responder, i *discordgo.InteractionCreate) {
	ctx, cancel := handlerContext()
	defer cancel()
	resp := c.svc.StartGame(ctx, discord.UserName(i), stringOption(options(i), "categoria"))
	discord.RespondEmbed(s, i, replyEmbed(resp))
}

func (c *Commands) handleDrill(s discord.Responder, i *discordgo.InteractionCreate) {
	ctx, cancel := handlerContext()
	defer cancel()
	resp := c.svc.StartDrill(ctx, discord.UserName(i), stringOption(options(i), "categoria"))
	discord.RespondEmbed(s, i, replyEmbed(resp))
}

func (c *Commands) handleLogout(s discord.Responder, i *discordgo.InteractionCreate) {
	c.svc.Logout(discord.UserName(i))
	discord.RespondEphemeral(s, i, "Ejercicio terminado. ¡Hasta pronto!")
}

func (c *Commands) handleSymbol(s discord.Responder, i *discordgo.InteractionCreate) {
	word := strings.TrimSpace(stringOption(options(i), "palabra"))
	if word == "" {
		discord.RespondEphemeral(s, i, "Indica una palabra.")
		return
	}
	res, ok := c.svc.Resolve(word)
	if !ok {
		discord.RespondEphemeral(s, i, fmt.Sprintf("No hay pictograma para %q.", word))
		return
	}
	discord.RespondEmbed(s, i, &discordgo.MessageEmbed{
		Title:       res.Keyword,
		Description: fmt.Sprintf("`%s`", res.Path),
		Color:       colourReply,
		Footer:      &discordgo.MessageEmbedFooter{Text: res.Stage},
	})
}

// completeCategory offers the catalogue categories that start with the
// typed prefix.
func (c *Commands) completeCategory(s discord.Responder, i *discordgo.InteractionCreate) {
	var typed string
	for _, o := range i.ApplicationCommandData().Options {
		if o.Focused {
			typed = strings.ToLower(o.StringValue())
		}
	}

	var choices []*discordgo.ApplicationCommandOptionChoice
	for _, cat := range c.svc.Categories() {
		if !strings.HasPrefix(strings.ToLower(cat), typed) {
			continue
		}
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{Name: cat, Value: cat})
		if len(choices) == maxChoices {
			break
		}
	}
	discord.RespondChoices(s, i, choices)
}
