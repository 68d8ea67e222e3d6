package commands_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/google/go-cmp/cmp"

	"github.com/MrWong99/pictalk/internal/app"
	"github.com/MrWong99/pictalk/internal/dialogue"
	"github.com/MrWong99/pictalk/internal/discord"
	"github.com/MrWong99/pictalk/internal/discord/commands"
	"github.com/MrWong99/pictalk/internal/discord/mock"
	"github.com/MrWong99/pictalk/pkg/memory"
	"github.com/MrWong99/pictalk/pkg/provider/stt"
	"github.com/MrWong99/pictalk/pkg/symbol"
)

// ── Fake service ────────────────────────────────────────────────────────────

type fakeService struct {
	mu          sync.Mutex
	requests    []dialogue.Request
	audio       []stt.Audio
	assignments []memory.Assignment
	games       []string
	drills      []string
	progressFor []string
	logouts     []string

	response    dialogue.Response
	audioErr    error
	assignErr   error
	progressErr error
}

func (f *fakeService) Turn(_ context.Context, req dialogue.Request) dialogue.Response {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	return f.response
}

func (f *fakeService) TurnAudio(_ context.Context, req dialogue.Request, audio stt.Audio) (dialogue.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	f.audio = append(f.audio, audio)
	return f.response, f.audioErr
}

func (f *fakeService) StartGame(_ context.Context, user, category string) dialogue.Response {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.games = append(f.games, user+"/"+category)
	return dialogue.Response{Reply: "¿Qué es esto?", Strategy: dialogue.StrategyGameStart}
}

func (f *fakeService) StartDrill(_ context.Context, user, category string) dialogue.Response {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.drills = append(f.drills, user+"/"+category)
	return dialogue.Response{Reply: "Elige el pictograma.", Strategy: dialogue.StrategyDrillStart}
}

func (f *fakeService) Assign(_ context.Context, asg memory.Assignment) (dialogue.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.assignments = append(f.assignments, asg)
	if f.assignErr != nil {
		return dialogue.Response{}, f.assignErr
	}
	if len(asg.TargetWords) > 0 {
		return dialogue.Response{Reply: "Di: " + asg.TargetWords[0], Strategy: dialogue.StrategyGuided}, nil
	}
	return dialogue.Response{}, nil
}

func (f *fakeService) Progress(_ context.Context, user string) (memory.Analytics, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.progressFor = append(f.progressFor, user)
	if f.progressErr != nil {
		return memory.Analytics{}, f.progressErr
	}
	return memory.Analytics{
		Interactions:       3,
		UniqueWords:        5,
		AvgWords:           2.5,
		InteractionsPerDay: map[string]int{"2026-10-17": 1, "2026-10-18": 2},
		CommonCategories:   []memory.WordCount{{Word: "animales", Count: 2}},
	}, nil
}

func (f *fakeService) Logout(user string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logouts = append(f.logouts, user)
}

func (f *fakeService) Resolve(word string) (app.Resolution, bool) {
	if word == "gatos" {
		return app.Resolution{Word: word, Keyword: "gato", Path: "G/gato.png", Stage: "stem"}, true
	}
	return app.Resolution{}, false
}

func (f *fakeService) Categories() []string {
	return []string{"acciones", "animales", "lugares"}
}

// ── Helpers ─────────────────────────────────────────────────────────────────

const therapistRole = "role-therapist"

type fixture struct {
	svc    *fakeService
	router *discord.Router
	s      *mock.Responder
}

func newFixture(t *testing.T, client *http.Client) *fixture {
	t.Helper()
	f := &fixture{
		svc:    &fakeService{},
		router: discord.NewRouter(),
		s:      &mock.Responder{},
	}
	commands.New(f.svc, discord.NewPermissionChecker(therapistRole), client).Register(f.router)
	return f
}

func str(name, value string) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{
		Name: name, Type: discordgo.ApplicationCommandOptionString, Value: value,
	}
}

func userOpt(name, id string) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{
		Name: name, Type: discordgo.ApplicationCommandOptionUser, Value: id,
	}
}

// slash builds a guild command interaction from ana. Users referenced by
// user options resolve to "user-<id>".
func slash(name string, roles []string, opts ...*discordgo.ApplicationCommandInteractionDataOption) *discordgo.InteractionCreate {
	resolved := &discordgo.ApplicationCommandInteractionDataResolved{Users: map[string]*discordgo.User{}}
	for _, o := range opts {
		if o.Type == discordgo.ApplicationCommandOptionUser {
			id := o.Value.(string)
			resolved.Users[id] = &discordgo.User{ID: id, Username: "user-" + id}
		}
	}
	return &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		Type: discordgo.InteractionApplicationCommand,
		Member: &discordgo.Member{
			User:  &discordgo.User{Username: "ana"},
			Roles: roles,
		},
		Data: discordgo.ApplicationCommandInteractionData{Name: name, Options: opts, Resolved: resolved},
	}}
}

func ephemeralText(t *testing.T, s *mock.Responder) string {
	t.Helper()
	resp := s.LastResponse()
	if resp == nil || resp.Data == nil {
		t.Fatal("no response recorded")
	}
	if resp.Data.Flags&discordgo.MessageFlagsEphemeral == 0 {
		t.Error("response is not ephemeral")
	}
	return resp.Data.Content
}

// ── Tests ───────────────────────────────────────────────────────────────────

func TestDefinitions(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	var names []string
	for _, cmd := range commands.New(f.svc, nil, nil).Definitions() {
		names = append(names, cmd.Name)
	}
	want := []string{"decir", "hablar", "jugar", "practicar", "simbolo", "progreso", "asignar", "salir"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("definitions mismatch (-want +got):\n%s", diff)
	}
	if got := len(f.router.Definitions()); got != len(want) {
		t.Errorf("router has %d commands, want %d", got, len(want))
	}
}

func TestSay(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	f.svc.response = dialogue.Response{
		Reply: "¡Qué bonito gato!",
		Words: []symbol.WordSymbol{
			{Word: "¡Qué bonito gato!"},
			{Word: "gato", Path: "G/gato.png"},
		},
		Intent:   "other",
		Emotion:  "joy",
		Strategy: dialogue.StrategyDescriptive,
	}
	f.router.Handle(f.s, slash("decir", nil, str("texto", "  el gato  ")))

	want := []dialogue.Request{{User: "ana", Role: dialogue.RoleStudent, Text: "el gato"}}
	if diff := cmp.Diff(want, f.svc.requests); diff != "" {
		t.Errorf("requests mismatch (-want +got):\n%s", diff)
	}
	if resp := f.s.Responses[0]; resp.Type != discordgo.InteractionResponseDeferredChannelMessageWithSource {
		t.Errorf("first response type = %v, want deferred", resp.Type)
	}

	fu := f.s.LastFollowUp()
	if fu == nil || len(fu.Embeds) != 1 {
		t.Fatalf("follow-up = %+v", fu)
	}
	embed := fu.Embeds[0]
	if embed.Title != "¡Qué bonito gato!" {
		t.Errorf("title = %q", embed.Title)
	}
	if !strings.Contains(embed.Description, "`G/gato.png`") {
		t.Errorf("description %q lacks the pictogram path", embed.Description)
	}
	if strings.Contains(embed.Description, "¡Qué bonito") {
		t.Errorf("description lists words without symbols: %q", embed.Description)
	}
	if embed.Footer == nil || embed.Footer.Text != "other · joy · descriptive" {
		t.Errorf("footer = %+v", embed.Footer)
	}
	if len(fu.Components) != 0 {
		t.Error("conversation reply carries a skip button")
	}
}

func TestSay_TherapistRoleAndBlankText(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	f.router.Handle(f.s, slash("decir", []string{therapistRole}, str("texto", "hola")))
	if got := f.svc.requests[0].Role; got != dialogue.RoleTherapist {
		t.Errorf("role = %q, want therapist", got)
	}

	f.router.Handle(f.s, slash("decir", nil, str("texto", "   ")))
	if got := ephemeralText(t, f.s); got != "Escribe algo para decir." {
		t.Errorf("blank text answer = %q", got)
	}
	if len(f.svc.requests) != 1 {
		t.Errorf("blank text reached the service")
	}
}

func TestExerciseReplyHasSkipButton(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	f.svc.response = dialogue.Response{Reply: "¡Correcto!", Strategy: dialogue.StrategyGame}
	f.router.Handle(f.s, slash("decir", nil, str("texto", "gato")))

	fu := f.s.LastFollowUp()
	if len(fu.Components) != 1 {
		t.Fatalf("components = %d, want 1 action row", len(fu.Components))
	}
	row := fu.Components[0].(discordgo.ActionsRow)
	button := row.Components[0].(discordgo.Button)
	if button.CustomID != "pictalk:skip" || button.Label != "Saltar" {
		t.Errorf("button = %+v", button)
	}

	// Pressing it turns "saltar" for the presser.
	press := &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		Type:   discordgo.InteractionMessageComponent,
		Member: &discordgo.Member{User: &discordgo.User{Username: "ana"}},
		Data:   discordgo.MessageComponentInteractionData{CustomID: button.CustomID},
	}}
	f.router.Handle(f.s, press)
	if got := f.svc.requests[len(f.svc.requests)-1]; got.Text != "saltar" || got.User != "ana" {
		t.Errorf("skip request = %+v", got)
	}
}

func TestAudio(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("RIFF"))
	}))
	t.Cleanup(srv.Close)

	clip := &discordgo.MessageAttachment{ID: "a1", Filename: "clip.wav", URL: srv.URL + "/clip.wav", Size: 4}

	t.Run("transcribed", func(t *testing.T) {
		f := newFixture(t, srv.Client())
		f.svc.response = dialogue.Response{Reply: "Hola", Strategy: dialogue.StrategyScripted}
		f.router.Handle(f.s, attachmentInteraction(clip))

		if len(f.svc.audio) != 1 || string(f.svc.audio[0].Data) != "RIFF" {
			t.Fatalf("audio = %+v", f.svc.audio)
		}
		if fu := f.s.LastFollowUp(); fu == nil || fu.Embeds[0].Title != "Hola" {
			t.Errorf("follow-up = %+v", fu)
		}
	})

	t.Run("no transcriber", func(t *testing.T) {
		f := newFixture(t, srv.Client())
		f.svc.audioErr = app.ErrNoTranscriber
		f.router.Handle(f.s, attachmentInteraction(clip))
		if fu := f.s.LastFollowUp(); fu.Content != "La transcripción de voz no está disponible." {
			t.Errorf("follow-up = %q", fu.Content)
		}
	})

	t.Run("transcription error", func(t *testing.T) {
		f := newFixture(t, srv.Client())
		f.svc.audioErr = errors.New("boom")
		f.router.Handle(f.s, attachmentInteraction(clip))
		if fu := f.s.LastFollowUp(); fu.Content != "No pude entender el audio." {
			t.Errorf("follow-up = %q", fu.Content)
		}
	})

	t.Run("unsupported format", func(t *testing.T) {
		f := newFixture(t, srv.Client())
		f.router.Handle(f.s, attachmentInteraction(&discordgo.MessageAttachment{ID: "a2", Filename: "clip.ogg"}))
		if got := ephemeralText(t, f.s); !strings.Contains(got, "no soportado") {
			t.Errorf("answer = %q", got)
		}
		if len(f.svc.audio) != 0 {
			t.Error("unsupported clip reached the service")
		}
	})
}

func TestGameAndDrill(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	f.router.Handle(f.s, slash("jugar", nil, str("categoria", "animales")))
	f.router.Handle(f.s, slash("practicar", nil))

	if diff := cmp.Diff([]string{"ana/animales"}, f.svc.games); diff != "" {
		t.Errorf("games mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"ana/"}, f.svc.drills); diff != "" {
		t.Errorf("drills mismatch (-want +got):\n%s", diff)
	}
	resp := f.s.LastResponse()
	if len(resp.Data.Embeds) != 1 || resp.Data.Embeds[0].Title != "Elige el pictograma." {
		t.Errorf("drill response = %+v", resp.Data)
	}
}

func TestCategoryAutocomplete(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	i := slash("jugar", nil, &discordgo.ApplicationCommandInteractionDataOption{
		Name: "categoria", Type: discordgo.ApplicationCommandOptionString, Value: "A", Focused: true,
	})
	i.Type = discordgo.InteractionApplicationCommandAutocomplete
	f.router.Handle(f.s, i)

	resp := f.s.LastResponse()
	if resp.Type != discordgo.InteractionApplicationCommandAutocompleteResult {
		t.Fatalf("type = %v", resp.Type)
	}
	var got []string
	for _, c := range resp.Data.Choices {
		got = append(got, c.Name)
	}
	if diff := cmp.Diff([]string{"acciones", "animales"}, got); diff != "" {
		t.Errorf("choices mismatch (-want +got):\n%s", diff)
	}
}

func TestSymbol(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	f.router.Handle(f.s, slash("simbolo", nil, str("palabra", "gatos")))
	embed := f.s.LastResponse().Data.Embeds[0]
	if embed.Title != "gato" || embed.Description != "`G/gato.png`" || embed.Footer.Text != "stem" {
		t.Errorf("embed = %+v", embed)
	}

	f.router.Handle(f.s, slash("simbolo", nil, str("palabra", "xyz")))
	if got := ephemeralText(t, f.s); got != `No hay pictograma para "xyz".` {
		t.Errorf("answer = %q", got)
	}
}

func TestProgress(t *testing.T) {
	t.Parallel()

	t.Run("own progress", func(t *testing.T) {
		f := newFixture(t, nil)
		f.router.Handle(f.s, slash("progreso", nil))
		if diff := cmp.Diff([]string{"ana"}, f.svc.progressFor); diff != "" {
			t.Errorf("progress users mismatch (-want +got):\n%s", diff)
		}
		embed := f.s.LastResponse().Data.Embeds[0]
		if embed.Title != "Progreso de ana" {
			t.Errorf("title = %q", embed.Title)
		}
		fields := make(map[string]string)
		for _, fl := range embed.Fields {
			fields[fl.Name] = fl.Value
		}
		if fields["Interacciones"] != "3" || fields["Palabras por frase"] != "2.5" {
			t.Errorf("fields = %v", fields)
		}
		if fields["Últimos días"] != "2026-10-17: 1\n2026-10-18: 2\n" {
			t.Errorf("days = %q", fields["Últimos días"])
		}
	})

	t.Run("other user needs therapist", func(t *testing.T) {
		f := newFixture(t, nil)
		f.router.Handle(f.s, slash("progreso", nil, userOpt("usuario", "42")))
		if got := ephemeralText(t, f.s); !strings.Contains(got, "terapeuta") {
			t.Errorf("answer = %q", got)
		}
		if len(f.svc.progressFor) != 0 {
			t.Error("service was called")
		}
	})

	t.Run("therapist sees other user", func(t *testing.T) {
		f := newFixture(t, nil)
		f.router.Handle(f.s, slash("progreso", []string{therapistRole}, userOpt("usuario", "42")))
		if diff := cmp.Diff([]string{"user-42"}, f.svc.progressFor); diff != "" {
			t.Errorf("progress users mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("history unavailable", func(t *testing.T) {
		f := newFixture(t, nil)
		f.svc.progressErr = errors.New("db down")
		f.router.Handle(f.s, slash("progreso", nil))
		if got := ephemeralText(t, f.s); got != "El historial no está disponible ahora mismo." {
			t.Errorf("answer = %q", got)
		}
	})
}

func TestAssign(t *testing.T) {
	t.Parallel()

	t.Run("guided", func(t *testing.T) {
		f := newFixture(t, nil)
		f.router.Handle(f.s, slash("asignar", []string{therapistRole},
			userOpt("usuario", "7"),
			str("palabras", "gato, , perro ,casa"),
			str("titulo", " Animales "),
		))
		want := []memory.Assignment{{
			Username:    "user-7",
			Title:       "Animales",
			TargetWords: []string{"gato", "perro", "casa"},
		}}
		if diff := cmp.Diff(want, f.svc.assignments); diff != "" {
			t.Errorf("assignments mismatch (-want +got):\n%s", diff)
		}
		got := ephemeralText(t, f.s)
		if !strings.HasPrefix(got, "Sesión guiada asignada a user-7: gato, perro, casa") || !strings.Contains(got, "Di: gato") {
			t.Errorf("answer = %q", got)
		}
	})

	t.Run("task", func(t *testing.T) {
		f := newFixture(t, nil)
		f.router.Handle(f.s, slash("asignar", []string{therapistRole},
			userOpt("usuario", "7"),
			str("tarea", "Describe tu desayuno"),
		))
		if got := ephemeralText(t, f.s); got != "Tarea asignada a user-7." {
			t.Errorf("answer = %q", got)
		}
	})

	t.Run("students cannot assign", func(t *testing.T) {
		f := newFixture(t, nil)
		f.router.Handle(f.s, slash("asignar", []string{"other"}, userOpt("usuario", "7"), str("tarea", "x")))
		if got := ephemeralText(t, f.s); !strings.Contains(got, "terapeuta") {
			t.Errorf("answer = %q", got)
		}
		if len(f.svc.assignments) != 0 {
			t.Error("service was called")
		}
	})

	t.Run("nothing to assign", func(t *testing.T) {
		f := newFixture(t, nil)
		f.router.Handle(f.s, slash("asignar", []string{therapistRole}, userOpt("usuario", "7")))
		if got := ephemeralText(t, f.s); got != "Indica palabras o una tarea." {
			t.Errorf("answer = %q", got)
		}
	})

	t.Run("service errors", func(t *testing.T) {
		f := newFixture(t, nil)
		f.svc.assignErr = fmt.Errorf("%w: username is required", app.ErrInvalidAssignment)
		f.router.Handle(f.s, slash("asignar", []string{therapistRole}, userOpt("usuario", "7"), str("tarea", "x")))
		if got := ephemeralText(t, f.s); !strings.HasPrefix(got, "Error: ") {
			t.Errorf("invalid answer = %q", got)
		}

		f.svc.assignErr = errors.New("db down")
		f.router.Handle(f.s, slash("asignar", []string{therapistRole}, userOpt("usuario", "7"), str("tarea", "x")))
		if got := ephemeralText(t, f.s); got != "No pude guardar la asignación." {
			t.Errorf("storage answer = %q", got)
		}
	})
}

func TestLogout(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	f.router.Handle(f.s, slash("salir", nil))
	if diff := cmp.Diff([]string{"ana"}, f.svc.logouts); diff != "" {
		t.Errorf("logouts mismatch (-want +got):\n%s", diff)
	}
	if got := ephemeralText(t, f.s); !strings.HasPrefix(got, "Ejercicio terminado") {
		t.Errorf("answer = %q", got)
	}
}
