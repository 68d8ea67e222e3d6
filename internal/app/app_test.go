package app_test

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/MrWong99/pictalk/internal/app"
	"github.com/MrWong99/pictalk/internal/classify"
	classifymock "github.com/MrWong99/pictalk/internal/classify/mock"
	"github.com/MrWong99/pictalk/internal/config"
	"github.com/MrWong99/pictalk/internal/dialogue"
	"github.com/MrWong99/pictalk/internal/health"
	"github.com/MrWong99/pictalk/internal/session"
	"github.com/MrWong99/pictalk/pkg/memory"
	memorymock "github.com/MrWong99/pictalk/pkg/memory/mock"
	"github.com/MrWong99/pictalk/pkg/provider/llm"
	llmmock "github.com/MrWong99/pictalk/pkg/provider/llm/mock"
	"github.com/MrWong99/pictalk/pkg/provider/stt"
	sttmock "github.com/MrWong99/pictalk/pkg/provider/stt/mock"
	"github.com/MrWong99/pictalk/pkg/symbol"
)

func testLibrary() *symbol.Library {
	return symbol.NewLibrary([]symbol.Entry{
		{ID: "1", Keywords: []string{"gato"}, Tags: []string{"animales"}, AssetPath: "G/gato.png"},
		{ID: "2", Keywords: []string{"perro"}, Tags: []string{"animales"}, AssetPath: "P/perro.png"},
		{ID: "3", Keywords: []string{"vaca"}, Tags: []string{"animales", "granja"}, AssetPath: "V/vaca.png"},
		{ID: "4", Keywords: []string{"casa"}, Tags: []string{"lugares"}, AssetPath: "C/casa.png"},
		{ID: "5", Keywords: []string{"comer"}, Tags: []string{"acciones"}, AssetPath: "C/comer.png"},
	}, nil)
}

func testConfig() *config.Config {
	return &config.Config{
		Server:   config.ServerConfig{ListenAddr: "127.0.0.1:0", LogLevel: config.LogInfo},
		Dialogue: config.DialogueConfig{Seed: 7},
	}
}

type fixture struct {
	app         *app.App
	log         *memorymock.InteractionLog
	assignments *memorymock.AssignmentStore
}

func newApp(t *testing.T, providers *app.Providers, opts ...app.Option) fixture {
	t.Helper()
	f := fixture{
		log:         &memorymock.InteractionLog{},
		assignments: &memorymock.AssignmentStore{},
	}
	intents := &classifymock.Classifier{
		Intent:  classify.NewIntentResult(classify.IntentOther, 0.9),
		Emotion: classify.NewEmotionResult(classify.EmotionNeutral, 0.9),
	}
	opts = append([]app.Option{
		app.WithLibrary(testLibrary()),
		app.WithHistory(f.log, f.assignments),
		app.WithClassifiers(intents, intents),
	}, opts...)
	a, err := app.New(context.Background(), testConfig(), providers, opts...)
	if err != nil {
		t.Fatalf("New() returned error: %v", err)
	}
	t.Cleanup(func() { _ = a.Shutdown(context.Background()) })
	f.app = a
	return f
}

func TestNew_Defaults(t *testing.T) {
	t.Parallel()

	a, err := app.New(context.Background(), testConfig(), nil)
	if err != nil {
		t.Fatalf("New() returned error: %v", err)
	}
	if a.Router() == nil {
		t.Fatal("Router() = nil")
	}
	if got := a.Categories(); len(got) != 0 {
		t.Errorf("Categories() = %v, want none without a catalog", got)
	}
	res := a.Health().Run(context.Background())
	if res.Status != health.StatusFail {
		t.Errorf("readiness = %q, want %q with an empty catalog", res.Status, health.StatusFail)
	}
}

func TestNew_MissingCatalog(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Catalog.Path = t.TempDir() + "/missing.csv"
	if _, err := app.New(context.Background(), cfg, nil); err == nil {
		t.Fatal("New() with a missing catalog returned nil error")
	}
}

func TestApp_TurnRecordsInteraction(t *testing.T) {
	t.Parallel()
	f := newApp(t, nil)

	resp := f.app.Turn(context.Background(), dialogue.Request{User: " ana ", Text: "el gato come en casa"})
	if resp.Reply == "" {
		t.Fatal("Turn() returned an empty reply")
	}
	calls := f.log.Calls()
	idx := slices.IndexFunc(calls, func(c memorymock.Call) bool { return c.Method == "Append" })
	if idx < 0 {
		t.Fatal("interaction was not appended")
	}
	in := calls[idx].Args[0].(memory.Interaction)
	if in.Username != "ana" {
		t.Errorf("Username = %q, want %q", in.Username, "ana")
	}
	if in.Sentence != "el gato come en casa" || in.Reply != resp.Reply {
		t.Errorf("interaction = %+v, want sentence and reply of the turn", in)
	}
	for _, cat := range []string{"animales", "lugares"} {
		if !slices.Contains(in.Categories, cat) {
			t.Errorf("Categories = %v, missing %q", in.Categories, cat)
		}
	}
	if in.Timestamp.IsZero() {
		t.Error("Timestamp is zero")
	}
}

func TestApp_BlankTurnNotRecorded(t *testing.T) {
	t.Parallel()
	f := newApp(t, nil)

	resp := f.app.Turn(context.Background(), dialogue.Request{User: "ana", Text: "   "})
	if resp.Strategy != dialogue.StrategyEmpty {
		t.Errorf("strategy = %q, want %q", resp.Strategy, dialogue.StrategyEmpty)
	}
	if got := f.log.CallCount("Append"); got != 0 {
		t.Errorf("Append calls = %d, want 0", got)
	}
}

func TestApp_TurnAudio(t *testing.T) {
	t.Parallel()

	t.Run("not configured", func(t *testing.T) {
		t.Parallel()
		f := newApp(t, nil)
		_, err := f.app.TurnAudio(context.Background(), dialogue.Request{User: "ana"}, stt.Audio{Data: []byte{1}})
		if !errors.Is(err, app.ErrNoTranscriber) {
			t.Errorf("err = %v, want ErrNoTranscriber", err)
		}
	})

	t.Run("transcribed", func(t *testing.T) {
		t.Parallel()
		tr := &sttmock.Transcriber{Text: "el perro"}
		f := newApp(t, &app.Providers{Transcriber: tr})
		audio := stt.Audio{Data: []byte{1, 2}, Format: stt.FormatWAV}
		resp, err := f.app.TurnAudio(context.Background(), dialogue.Request{User: "ana"}, audio)
		if err != nil {
			t.Fatalf("TurnAudio() error: %v", err)
		}
		if len(tr.Calls) != 1 {
			t.Fatalf("transcriber calls = %d, want 1", len(tr.Calls))
		}
		if !slices.ContainsFunc(resp.Input, func(w symbol.WordSymbol) bool { return w.Path == "P/perro.png" }) {
			t.Errorf("Input = %v, want the transcript mapped to symbols", resp.Input)
		}
	})

	t.Run("misheard keyword corrected", func(t *testing.T) {
		t.Parallel()
		f := newApp(t, &app.Providers{Transcriber: &sttmock.Transcriber{Text: "el perrro"}})
		if _, err := f.app.TurnAudio(context.Background(), dialogue.Request{User: "ana"}, stt.Audio{Data: []byte{1}}); err != nil {
			t.Fatalf("TurnAudio() error: %v", err)
		}
		calls := f.log.Calls()
		idx := slices.IndexFunc(calls, func(c memorymock.Call) bool { return c.Method == "Append" })
		if idx < 0 {
			t.Fatal("Append not called")
		}
		if got := calls[idx].Args[0].(memory.Interaction).Sentence; got != "el perro" {
			t.Errorf("recorded sentence = %q, want %q", got, "el perro")
		}
	})

	t.Run("transcriber error", func(t *testing.T) {
		t.Parallel()
		errDown := errors.New("down")
		f := newApp(t, &app.Providers{Transcriber: &sttmock.Transcriber{Err: errDown}})
		_, err := f.app.TurnAudio(context.Background(), dialogue.Request{User: "ana"}, stt.Audio{})
		if !errors.Is(err, errDown) {
			t.Errorf("err = %v, want wrapped transcriber error", err)
		}
		if got := f.log.CallCount("Append"); got != 0 {
			t.Errorf("Append calls = %d, want 0", got)
		}
	})
}

func TestApp_AssignGuided(t *testing.T) {
	t.Parallel()
	f := newApp(t, nil)

	resp, err := f.app.Assign(context.Background(), memory.Assignment{
		Username:    "ana",
		Title:       "Animales",
		TargetWords: []string{"gato", "perro"},
	})
	if err != nil {
		t.Fatalf("Assign() error: %v", err)
	}
	if resp.Strategy != dialogue.StrategyGuided {
		t.Errorf("strategy = %q, want %q", resp.Strategy, dialogue.StrategyGuided)
	}
	if got := f.assignments.CallCount("SaveAssignment"); got != 1 {
		t.Fatalf("SaveAssignment calls = %d, want 1", got)
	}
	saved := f.assignments.Calls()[0].Args[0].(memory.Assignment)
	if saved.Type != memory.AssignmentGuided || saved.ID == "" || saved.CreatedAt.IsZero() {
		t.Errorf("saved = %+v, want guided assignment with ID and timestamp", saved)
	}
	st, ok := f.app.Router().State("ana")
	if !ok || st.Mode != session.ModeGuided || st.CorrectAnswer != "gato" {
		t.Fatalf("state = %+v, want guided session on %q", st, "gato")
	}
	if st.Assignment == nil || st.Assignment.ID != saved.ID {
		t.Errorf("state assignment = %+v, want ID %q", st.Assignment, saved.ID)
	}
}

func TestApp_GuidedSessionCompletesAssignment(t *testing.T) {
	t.Parallel()
	f := newApp(t, nil)
	ctx := context.Background()

	if _, err := f.app.Assign(ctx, memory.Assignment{Username: "ana", TargetWords: []string{"gato", "perro"}}); err != nil {
		t.Fatalf("Assign() error: %v", err)
	}
	id := f.assignments.Calls()[0].Args[0].(memory.Assignment).ID

	f.app.Turn(ctx, dialogue.Request{User: "ana", Text: "gato"})
	f.app.Turn(ctx, dialogue.Request{User: "ana", Text: "zq"})
	if got := f.assignments.CallCount("CompleteAssignment"); got != 0 {
		t.Fatalf("CompleteAssignment calls mid-session = %d, want 0", got)
	}

	f.app.Turn(ctx, dialogue.Request{User: "ana", Text: "perro"})
	if got := f.assignments.CallCount("CompleteAssignment"); got != 1 {
		t.Fatalf("CompleteAssignment calls = %d, want 1", got)
	}
	var completed string
	for _, c := range f.assignments.Calls() {
		if c.Method == "CompleteAssignment" {
			completed = c.Args[0].(string)
		}
	}
	if completed != id {
		t.Errorf("completed %q, want %q", completed, id)
	}
}

func TestApp_SkippedGuidedSessionStaysAssigned(t *testing.T) {
	t.Parallel()
	f := newApp(t, nil)
	ctx := context.Background()

	if _, err := f.app.Assign(ctx, memory.Assignment{Username: "ana", TargetWords: []string{"gato"}}); err != nil {
		t.Fatalf("Assign() error: %v", err)
	}
	resp := f.app.Turn(ctx, dialogue.Request{User: "ana", Text: "saltar"})
	if resp.Strategy != dialogue.StrategySkip {
		t.Fatalf("strategy = %q, want %q", resp.Strategy, dialogue.StrategySkip)
	}
	if got := f.assignments.CallCount("CompleteAssignment"); got != 0 {
		t.Errorf("CompleteAssignment calls = %d, want 0", got)
	}
}

func TestApp_AssignTask(t *testing.T) {
	t.Parallel()
	f := newApp(t, nil)

	resp, err := f.app.Assign(context.Background(), memory.Assignment{Username: "ana", Task: "Cuenta tu día"})
	if err != nil {
		t.Fatalf("Assign() error: %v", err)
	}
	if resp.Reply != "" {
		t.Errorf("reply = %q, want none for a task assignment", resp.Reply)
	}
	if st, ok := f.app.Router().State("ana"); ok && st.InProgress {
		t.Error("task assignment started an exercise")
	}
}

func TestApp_AssignInvalid(t *testing.T) {
	t.Parallel()
	f := newApp(t, nil)

	tests := []struct {
		name string
		asg  memory.Assignment
	}{
		{name: "no user", asg: memory.Assignment{TargetWords: []string{"gato"}}},
		{name: "guided without words", asg: memory.Assignment{Username: "ana", Type: memory.AssignmentGuided}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.app.Assign(context.Background(), tt.asg)
			if !errors.Is(err, app.ErrInvalidAssignment) {
				t.Errorf("err = %v, want ErrInvalidAssignment", err)
			}
		})
	}
	if got := f.assignments.CallCount("SaveAssignment"); got != 0 {
		t.Errorf("SaveAssignment calls = %d, want 0", got)
	}
}

func TestApp_ResolveAndSuggest(t *testing.T) {
	t.Parallel()
	f := newApp(t, nil)

	res, ok := f.app.Resolve("gatos")
	if !ok || res.Path != "G/gato.png" || res.Keyword != "gato" {
		t.Errorf("Resolve(gatos) = %+v, %v", res, ok)
	}
	if _, ok := f.app.Resolve("zzz"); ok {
		t.Error("Resolve(zzz) reported a match")
	}
	got := f.app.Suggest(context.Background(), "mi perro come", 2)
	if len(got) == 0 || len(got) > 2 {
		t.Errorf("Suggest() returned %d results, want 1..2", len(got))
	}
	if cats := f.app.Categories(); !slices.Contains(cats, "granja") {
		t.Errorf("Categories() = %v, missing granja", cats)
	}
}

func TestApp_ProgressAndLogout(t *testing.T) {
	t.Parallel()
	f := newApp(t, nil)
	f.log.AnalyticsResult = memory.Analytics{Interactions: 4, UniqueWords: 3}

	got, err := f.app.Progress(context.Background(), "ana")
	if err != nil {
		t.Fatalf("Progress() error: %v", err)
	}
	if got.Interactions != 4 {
		t.Errorf("Interactions = %d, want 4", got.Interactions)
	}

	f.app.StartGame(context.Background(), "ana", "animales")
	if st, ok := f.app.Router().State("ana"); !ok || !st.InProgress {
		t.Fatal("game did not start")
	}
	f.app.Logout("ana")
	if st, ok := f.app.Router().State("ana"); ok && st.InProgress {
		t.Error("Logout() kept the game running")
	}
}

func TestApp_GeneratorWired(t *testing.T) {
	t.Parallel()
	gen := &llmmock.Provider{CompleteResponse: &llm.CompletionResponse{Content: "Los gatos duermen mucho durante el día."}}
	f := newApp(t, &app.Providers{LLM: gen})

	f.app.Turn(context.Background(), dialogue.Request{User: "ana", Text: "cuéntame algo bonito sobre mi gato"})
	if len(gen.Calls()) == 0 {
		t.Error("generator was never called")
	}
}

func TestApp_ApplyDialogue(t *testing.T) {
	t.Parallel()
	f := newApp(t, nil)

	before := f.app.Router().Settings()
	f.app.ApplyDialogue(config.DialogueConfig{DrillSize: 4})
	after := f.app.Router().Settings()
	if after.DrillSize != 4 {
		t.Errorf("DrillSize = %d, want 4", after.DrillSize)
	}
	if after.DrillRounds != before.DrillRounds {
		t.Errorf("DrillRounds = %d, want unchanged %d", after.DrillRounds, before.DrillRounds)
	}
}

func TestApp_Readiness(t *testing.T) {
	t.Parallel()
	f := newApp(t, nil)

	res := f.app.Health().Run(context.Background())
	if res.Status != health.StatusOK {
		t.Errorf("readiness = %+v, want ok", res)
	}
}

// ── Run / Shutdown ──────────────────────────────────────────────────────────

type runnerFunc func(ctx context.Context) error

func (f runnerFunc) Run(ctx context.Context) error { return f(ctx) }

func TestApp_Shutdown(t *testing.T) {
	t.Parallel()
	f := newApp(t, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := f.app.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error: %v", err)
	}
	if err := f.app.Shutdown(ctx); err != nil {
		t.Fatalf("second Shutdown() error: %v", err)
	}
}

func TestApp_RunAndShutdown(t *testing.T) {
	t.Parallel()
	f := newApp(t, nil)

	started := make(chan struct{})
	f.app.AddRunner(runnerFunc(func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- f.app.Run(ctx) }()

	<-started
	cancel()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			t.Fatalf("Run() returned unexpected error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return within 5s after context cancellation")
	}
}

func TestApp_RunStopsOnRunnerError(t *testing.T) {
	t.Parallel()
	f := newApp(t, nil)

	errListen := errors.New("listen failed")
	stopped := make(chan struct{})
	f.app.AddRunner(runnerFunc(func(context.Context) error { return errListen }))
	f.app.AddRunner(runnerFunc(func(ctx context.Context) error {
		<-ctx.Done()
		close(stopped)
		return nil
	}))

	if err := f.app.Run(context.Background()); !errors.Is(err, errListen) {
		t.Fatalf("Run() = %v, want %v", err, errListen)
	}
	select {
	case <-stopped:
	default:
		t.Error("remaining runner was not stopped")
	}
}
