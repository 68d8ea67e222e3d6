package discord

import (
	"cmp"
	"fmt"
	"log/slog"
	"runtime/debug"
	"slices"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"
)

// HandlerFunc answers one interaction.
type HandlerFunc func(s Responder, i *discordgo.InteractionCreate)

// command is a registered slash command. complete is nil when the command
// has no autocompleted options.
type command struct {
	def      *discordgo.ApplicationCommand
	run      HandlerFunc
	complete HandlerFunc
}

type button struct {
	prefix string
	run    HandlerFunc
}

// Router dispatches slash commands by name and buttons by custom_id prefix.
// pictalk commands are flat, so subcommands are not routed separately.
type Router struct {
	mu       sync.RWMutex
	commands map[string]*command
	buttons  []button // longest prefix first
}

// NewRouter returns an empty Router.
func NewRouter() *Router {
	return &Router{commands: make(map[string]*command)}
}

// Command registers def and the handler that answers it. Registering a name
// twice replaces the earlier definition.
func (r *Router) Command(def *discordgo.ApplicationCommand, run HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := r.entry(def.Name)
	c.def, c.run = def, run
}

// Autocomplete registers the handler suggesting option values for the named
// command.
func (r *Router) Autocomplete(name string, complete HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entry(name).complete = complete
}

func (r *Router) entry(name string) *command {
	c, ok := r.commands[name]
	if !ok {
		c = &command{}
		r.commands[name] = c
	}
	return c
}

// Button registers run for every component whose custom_id starts with
// prefix. The longest matching prefix wins, so "pictalk:drill:" can take
// precedence over "pictalk:".
func (r *Router) Button(prefix string, run HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buttons = slices.DeleteFunc(r.buttons, func(b button) bool { return b.prefix == prefix })
	r.buttons = append(r.buttons, button{prefix: prefix, run: run})
	slices.SortFunc(r.buttons, func(a, b button) int { return cmp.Compare(len(b.prefix), len(a.prefix)) })
}

// Definitions returns the registered command definitions sorted by name.
func (r *Router) Definitions() []*discordgo.ApplicationCommand {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]*discordgo.ApplicationCommand, 0, len(r.commands))
	for _, c := range r.commands {
		if c.def != nil {
			defs = append(defs, c.def)
		}
	}
	slices.SortFunc(defs, func(a, b *discordgo.ApplicationCommand) int { return cmp.Compare(a.Name, b.Name) })
	return defs
}

// Handle answers i with the matching handler. Unknown commands and buttons
// get an ephemeral notice; a panicking handler is logged and the user told
// that something went wrong.
func (r *Router) Handle(s Responder, i *discordgo.InteractionCreate) {
	run, what := r.lookup(i)
	if run == nil {
		r.unknown(s, i, what)
		return
	}
	defer func() {
		if p := recover(); p != nil {
			slog.Error("discord: handler panicked", "interaction", what, "user", UserName(i), "panic", p, "stack", string(debug.Stack()))
			RespondEphemeral(s, i, "Algo salió mal. Inténtalo de nuevo.")
		}
	}()
	run(s, i)
}

func (r *Router) lookup(i *discordgo.InteractionCreate) (HandlerFunc, string) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		name := i.ApplicationCommandData().Name
		if c, ok := r.commands[name]; ok && c.run != nil {
			return c.run, name
		}
		return nil, name
	case discordgo.InteractionApplicationCommandAutocomplete:
		name := i.ApplicationCommandData().Name
		if c, ok := r.commands[name]; ok && c.complete != nil {
			return c.complete, name
		}
		return nil, name
	case discordgo.InteractionMessageComponent:
		id := i.MessageComponentData().CustomID
		for _, b := range r.buttons {
			if strings.HasPrefix(id, b.prefix) {
				return b.run, id
			}
		}
		return nil, id
	}
	return nil, fmt.Sprint(i.Type)
}

func (r *Router) unknown(s Responder, i *discordgo.InteractionCreate, what string) {
	switch i.Type {
	case discordgo.InteractionApplicationCommandAutocomplete:
		// Discord expects a choice list even when there is nothing to suggest.
		RespondChoices(s, i, nil)
	case discordgo.InteractionMessageComponent:
		slog.Warn("discord: unknown button", "custom_id", what)
		RespondEphemeral(s, i, "Botón desconocido.")
	default:
		slog.Warn("discord: unknown interaction", "name", what, "type", i.Type)
		RespondEphemeral(s, i, "Comando desconocido.")
	}
}
