// Package discord is the Discord transport of pictalk: a bot that answers
// slash commands and button presses through a [Router] and tells therapists
// apart from the children they work with.
//
// The command handlers live in the commands subpackage.
package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"
)

// Config holds Discord bot configuration.
type Config struct {
	// Token is the bot token without the "Bot " prefix.
	Token string

	// GuildID registers commands in one guild. Empty registers them
	// globally.
	GuildID string

	// TherapistRoleID identifies members allowed to assign work and read
	// other users' progress.
	TherapistRoleID string
}

// Bot is an app.Runner. The gateway connection lives for the duration of
// [Bot.Run].
type Bot struct {
	session *discordgo.Session
	router  *Router
	perms   *PermissionChecker
	guildID string
}

// New prepares a Bot. Nothing is sent to Discord until [Bot.Run].
func New(cfg Config) (*Bot, error) {
	if cfg.Token == "" {
		return nil, errors.New("discord: token is required")
	}
	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("discord: create session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds

	b := &Bot{
		session: session,
		router:  NewRouter(),
		perms:   NewPermissionChecker(cfg.TherapistRoleID),
		guildID: cfg.GuildID,
	}
	session.AddHandler(func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		b.router.Handle(s, i)
	})
	return b, nil
}

// Router returns the router handlers are registered on. Registrations must
// happen before [Bot.Run].
func (b *Bot) Router() *Router { return b.router }

// Permissions returns the therapist role check.
func (b *Bot) Permissions() *PermissionChecker { return b.perms }

// Run connects, publishes the router's command definitions and serves
// interactions until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("discord: connect: %w", err)
	}
	defer func() {
		if err := b.session.Close(); err != nil {
			slog.Warn("discord: disconnect failed", "err", err)
		}
	}()

	appID := b.session.State.User.ID
	registered, err := b.session.ApplicationCommandBulkOverwrite(appID, b.guildID, b.router.Definitions())
	if err != nil {
		return fmt.Errorf("discord: publish commands: %w", err)
	}
	slog.Info("discord: connected",
		"bot", b.session.State.User.Username,
		"commands", len(registered),
		"guild_id", b.guildID,
	)

	<-ctx.Done()

	// Guild commands go away with the bot; global ones stay published.
	if b.guildID != "" {
		if _, err := b.session.ApplicationCommandBulkOverwrite(appID, b.guildID, []*discordgo.ApplicationCommand{}); err != nil {
			slog.Warn("discord: withdraw guild commands failed", "err", err)
		}
	}
	return ctx.Err()
}
