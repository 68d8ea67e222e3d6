// Package commands implements the pictalk Discord slash commands.
//
//	/decir texto        answer an utterance
//	/hablar audio       transcribe a voice clip and answer it
//	/jugar [categoria]  start a guessing game
//	/practicar [cat.]   start a drill
//	/simbolo palabra    show the pictogram for a word
//	/progreso [usuario] show progress analytics
//	/asignar ...        assign a guided session or task (therapists)
//	/salir              end the current exercise
package commands

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/MrWong99/pictalk/internal/app"
	"github.com/MrWong99/pictalk/internal/dialogue"
	"github.com/MrWong99/pictalk/internal/discord"
	"github.com/MrWong99/pictalk/pkg/memory"
	"github.com/MrWong99/pictalk/pkg/provider/stt"
)

// Service is the application facade the commands call into. [app.App]
// implements it.
type Service interface {
	Turn(ctx context.Context, req dialogue.Request) dialogue.Response
	TurnAudio(ctx context.Context, req dialogue.Request, audio stt.Audio) (dialogue.Response, error)
	StartGame(ctx context.Context, user, category string) dialogue.Response
	StartDrill(ctx context.Context, user, category string) dialogue.Response
	Assign(ctx context.Context, asg memory.Assignment) (dialogue.Response, error)
	Progress(ctx context.Context, user string) (memory.Analytics, error)
	Logout(user string)
	Resolve(word string) (app.Resolution, bool)
	Categories() []string
}

var _ Service = (*app.App)(nil)

// handlerTimeout bounds the work behind one interaction.
const handlerTimeout = 30 * time.Second

// Commands holds the dependencies of the slash command handlers.
type Commands struct {
	svc    Service
	perms  *discord.PermissionChecker
	client *http.Client
}

// New creates the command set. client downloads voice clips; nil uses a
// client with a 30s timeout.
func New(svc Service, perms *discord.PermissionChecker, client *http.Client) *Commands {
	if client == nil {
		client = &http.Client{Timeout: handlerTimeout}
	}
	return &Commands{svc: svc, perms: perms, client: client}
}

// Register installs every command, autocomplete and button handler.
func (c *Commands) Register(router *discord.Router) {
	for _, def := range c.Definitions() {
		router.Command(def, c.handler(def.Name))
	}
	router.Autocomplete(cmdGame, c.completeCategory)
	router.Autocomplete(cmdDrill, c.completeCategory)
	router.Button(skipButtonID, c.handleSkip)
}

func (c *Commands) handler(name string) discord.HandlerFunc {
	switch name {
	case cmdSay:
		return c.handleSay
	case cmdAudio:
		return c.handleAudio
	case cmdGame:
		return c.handleGame
	case cmdDrill:
		return c.handleDrill
	case cmdSymbol:
		return c.handleSymbol
	case cmdProgress:
		return c.handleProgress
	case cmdAssign:
		return c.handleAssign
	case cmdLogout:
		return c.handleLogout
	}
	return func(s discord.Responder, i *discordgo.InteractionCreate) {
		discord.RespondEphemeral(s, i, "Comando desconocido.")
	}
}

// Command names.
const (
	cmdSay      = "decir"
	cmdAudio    = "hablar"
	cmdGame     = "jugar"
	cmdDrill    = "practicar"
	cmdSymbol   = "simbolo"
	cmdProgress = "progreso"
	cmdAssign   = "asignar"
	cmdLogout   = "salir"
)

// Definitions returns the slash command definitions sent to Discord.
func (c *Commands) Definitions() []*discordgo.ApplicationCommand {
	category := &discordgo.ApplicationCommandOption{
		Type:         discordgo.ApplicationCommandOptionString,
		Name:         "categoria",
		Description:  "Categoría de pictogramas",
		Autocomplete: true,
	}
	return []*discordgo.ApplicationCommand{
		{
			Name:        cmdSay,
			Description: "Habla con pictalk",
			Options: []*discordgo.ApplicationCommandOption{{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "texto",
				Description: "Lo que quieres decir",
				Required:    true,
			}},
		},
		{
			Name:        cmdAudio,
			Description: "Envía una grabación de voz (WAV)",
			Options: []*discordgo.ApplicationCommandOption{{
				Type:        discordgo.ApplicationCommandOptionAttachment,
				Name:        "audio",
				Description: "Archivo WAV",
				Required:    true,
			}},
		},
		{Name: cmdGame, Description: "Juega a adivinar pictogramas", Options: []*discordgo.ApplicationCommandOption{category}},
		{Name: cmdDrill, Description: "Practica palabras eligiendo el pictograma", Options: []*discordgo.ApplicationCommandOption{category}},
		{
			Name:        cmdSymbol,
			Description: "Muestra el pictograma de una palabra",
			Options: []*discordgo.ApplicationCommandOption{{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "palabra",
				Description: "Palabra a buscar",
				Required:    true,
			}},
		},
		{
			Name:        cmdProgress,
			Description: "Muestra el progreso",
			Options: []*discordgo.ApplicationCommandOption{{
				Type:        discordgo.ApplicationCommandOptionUser,
				Name:        "usuario",
				Description: "Otro usuario (solo terapeutas)",
			}},
		},
		{
			Name:        cmdAssign,
			Description: "Asigna una sesión guiada o una tarea",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "usuario",
					Description: "Usuario que recibe la asignación",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "palabras",
					Description: "Palabras separadas por comas (sesión guiada)",
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "tarea",
					Description: "Descripción de la tarea",
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "titulo",
					Description: "Título",
				},
			},
		},
		{Name: cmdLogout, Description: "Termina el ejercicio actual"},
	}
}

// options indexes the top-level options of a command by name.
func options(i *discordgo.InteractionCreate) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	out := make(map[string]*discordgo.ApplicationCommandInteractionDataOption)
	for _, o := range i.ApplicationCommandData().Options {
		out[o.Name] = o
	}
	return out
}

func stringOption(opts map[string]*discordgo.ApplicationCommandInteractionDataOption, name string) string {
	if o, ok := opts[name]; ok && o.Type == discordgo.ApplicationCommandOptionString {
		return o.StringValue()
	}
	return ""
}

// userOption returns the username of a user option from the resolved data.
func userOption(i *discordgo.InteractionCreate, opts map[string]*discordgo.ApplicationCommandInteractionDataOption, name string) string {
	o, ok := opts[name]
	if !ok || o.Type != discordgo.ApplicationCommandOptionUser {
		return ""
	}
	id, _ := o.Value.(string)
	data := i.ApplicationCommandData()
	if data.Resolved != nil {
		if u, ok := data.Resolved.Users[id]; ok && u != nil {
			return u.Username
		}
	}
	return ""
}

func handlerContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), handlerTimeout)
}
