package commands

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/MrWong99/pictalk/internal/app"
	"github.com/MrWong99/pictalk/internal/discord"
	"github.com/MrWong99/pictalk/pkg/memory"
)

// progressDays caps the per-day lines in a progress embed.
const progressDays = 7

// handleProgress shows the caller's analytics, or another user's when a
// therapist asks.
func (c *Commands) handleProgress(s discord.Responder, i *discordgo.InteractionCreate) {
	user := discord.UserName(i)
	if other := userOption(i, options(i), "usuario"); other != "" && other != user {
		if !c.perms.IsTherapist(i) {
			discord.RespondEphemeral(s, i, "Solo un terapeuta puede ver el progreso de otra persona.")
			return
		}
		user = other
	}

	ctx, cancel := handlerContext()
	defer cancel()
	stats, err := c.svc.Progress(ctx, user)
	if err != nil {
		slog.Warn("discord: progress lookup failed", "user", user, "err", err)
		discord.RespondEphemeral(s, i, "El historial no está disponible ahora mismo.")
		return
	}
	discord.RespondEmbed(s, i, progressEmbed(user, stats))
}

func progressEmbed(user string, stats memory.Analytics) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title: "Progreso de " + user,
		Color: colourReply,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Interacciones", Value: fmt.Sprint(stats.Interactions), Inline: true},
			{Name: "Palabras distintas", Value: fmt.Sprint(stats.UniqueWords), Inline: true},
			{Name: "Palabras por frase", Value: fmt.Sprintf("%.1f", stats.AvgWords), Inline: true},
		},
	}

	if len(stats.CommonCategories) > 0 {
		var b strings.Builder
		for _, wc := range stats.CommonCategories {
			fmt.Fprintf(&b, "%s (%d)\n", wc.Word, wc.Count)
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "Categorías", Value: b.String()})
	}

	if len(stats.InteractionsPerDay) > 0 {
		days := make([]string, 0, len(stats.InteractionsPerDay))
		for d := range stats.InteractionsPerDay {
			days = append(days, d)
		}
		slices.Sort(days)
		if len(days) > progressDays {
			days = days[len(days)-progressDays:]
		}
		var b strings.Builder
		for _, d := range days {
			fmt.Fprintf(&b, "%s: %d\n", d, stats.InteractionsPerDay[d])
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "Últimos días", Value: b.String()})
	}
	return embed
}

// handleAssign stores an assignment for another user. Target words make it
// a guided session that starts right away; otherwise it is a task.
func (c *Commands) handleAssign(s discord.Responder, i *discordgo.InteractionCreate) {
	if !c.perms.IsTherapist(i) {
		discord.RespondEphemeral(s, i, "Solo un terapeuta puede asignar ejercicios.")
		return
	}
	opts := options(i)
	asg := memory.Assignment{
		Username:    userOption(i, opts, "usuario"),
		Title:       strings.TrimSpace(stringOption(opts, "titulo")),
		Task:        strings.TrimSpace(stringOption(opts, "tarea")),
		TargetWords: splitWords(stringOption(opts, "palabras")),
	}
	if len(asg.TargetWords) == 0 && asg.Task == "" {
		discord.RespondEphemeral(s, i, "Indica palabras o una tarea.")
		return
	}

	ctx, cancel := handlerContext()
	defer cancel()
	resp, err := c.svc.Assign(ctx, asg)
	switch {
	case errors.Is(err, app.ErrInvalidAssignment):
		discord.RespondError(s, i, err)
		return
	case err != nil:
		slog.Warn("discord: assignment failed", "user", asg.Username, "err", err)
		discord.RespondEphemeral(s, i, "No pude guardar la asignación.")
		return
	}

	msg := fmt.Sprintf("Tarea asignada a %s.", asg.Username)
	if len(asg.TargetWords) > 0 {
		msg = fmt.Sprintf("Sesión guiada asignada a %s: %s", asg.Username, strings.Join(asg.TargetWords, ", "))
		if resp.Reply != "" {
			msg += "\n> " + resp.Reply
		}
	}
	discord.RespondEphemeral(s, i, msg)
}

// splitWords splits a comma separated list, dropping blanks.
func splitWords(s string) []string {
	var out []string
	for _, w := range strings.Split(s, ",") {
		if w = strings.TrimSpace(w); w != "" {
			out = append(out, w)
		}
	}
	return out
}
