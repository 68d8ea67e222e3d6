// Package app wires the pictalk subsystems into a running service.
//
// [New] loads the symbol catalog and the support-content pack, connects the
// interaction history, builds the resolution index and the classifiers and
// assembles the dialogue router. The resulting [App] is the single service
// facade used by every transport: the HTTP/WebSocket API, the Discord bot,
// the MCP tool server and the interactive CLI. [App.Run] serves the network
// transports until the context is cancelled; [App.Shutdown] releases
// everything in order.
//
// Tests inject doubles through the With* options. When an option is not
// given, New builds the real implementation from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MrWong99/pictalk/internal/classify"
	"github.com/MrWong99/pictalk/internal/config"
	"github.com/MrWong99/pictalk/internal/content"
	"github.com/MrWong99/pictalk/internal/dialogue"
	"github.com/MrWong99/pictalk/internal/health"
	"github.com/MrWong99/pictalk/internal/observe"
	"github.com/MrWong99/pictalk/internal/promptctx"
	"github.com/MrWong99/pictalk/internal/session"
	"github.com/MrWong99/pictalk/internal/symbolindex"
	"github.com/MrWong99/pictalk/internal/transcript"
	"github.com/MrWong99/pictalk/pkg/memory"
	"github.com/MrWong99/pictalk/pkg/memory/memstore"
	"github.com/MrWong99/pictalk/pkg/memory/postgres"
	"github.com/MrWong99/pictalk/pkg/provider/stt"
	"github.com/MrWong99/pictalk/pkg/symbol"
)

// ErrNoTranscriber is returned by [App.TurnAudio] when no transcription
// provider is configured.
var ErrNoTranscriber = errors.New("app: transcription is not configured")

// ErrInvalidAssignment is returned by [App.Assign] for assignments without a
// user or without content.
var ErrInvalidAssignment = errors.New("app: invalid assignment")

// App owns all subsystem lifetimes.
type App struct {
	cfg       *config.Config
	providers *Providers

	lib         *symbol.Library
	content     *content.Store
	history     memory.InteractionLog
	assignments memory.AssignmentStore
	cache       memory.EmbeddingCache
	pinger      health.Pinger
	guard       *promptctx.Guard
	index       *symbolindex.Index
	corrector   *transcript.Corrector
	intents     classify.IntentClassifier
	emotions    classify.EmotionClassifier
	router      *dialogue.Router
	metrics     *observe.Metrics
	health      *health.Handler

	// runners are the network transports started by Run.
	runners []Runner

	// closers are called in order during Shutdown.
	closers  []func() error
	stopOnce sync.Once
}

// Runner is a transport started by [App.Run]. Run blocks until ctx is done.
type Runner interface {
	Run(ctx context.Context) error
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithLibrary uses lib instead of loading the configured catalog.
func WithLibrary(lib *symbol.Library) Option {
	return func(a *App) { a.lib = lib }
}

// WithContent uses s instead of opening the configured content pack.
func WithContent(s *content.Store) Option {
	return func(a *App) { a.content = s }
}

// WithHistory injects the interaction log and assignment store instead of
// connecting to the configured backend.
func WithHistory(log memory.InteractionLog, assignments memory.AssignmentStore) Option {
	return func(a *App) {
		a.history = log
		a.assignments = assignments
	}
}

// WithEmbeddingCache injects the keyword embedding cache.
func WithEmbeddingCache(c memory.EmbeddingCache) Option {
	return func(a *App) { a.cache = c }
}

// WithClassifiers injects the intent and emotion classifiers.
func WithClassifiers(intents classify.IntentClassifier, emotions classify.EmotionClassifier) Option {
	return func(a *App) {
		a.intents = intents
		a.emotions = emotions
	}
}

// WithMetrics records telemetry into m. Default: [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// ─── New ─────────────────────────────────────────────────────────────────────

// New creates an App. providers comes from [BuildProviders] and may be nil
// when no external backend is configured.
func New(ctx context.Context, cfg *config.Config, providers *Providers, opts ...Option) (*App, error) {
	if providers == nil {
		providers = &Providers{}
	}
	a := &App{cfg: cfg, providers: providers}
	for _, o := range opts {
		o(a)
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}

	// ── 1. Symbol library ────────────────────────────────────────────────
	if err := a.initLibrary(); err != nil {
		return nil, fmt.Errorf("app: init library: %w", err)
	}

	a.corrector = transcript.New(a.keywords())

	// ── 2. Support content ───────────────────────────────────────────────
	if err := a.initContent(); err != nil {
		return nil, fmt.Errorf("app: init content: %w", err)
	}

	// ── 3. History ───────────────────────────────────────────────────────
	if err := a.initHistory(ctx); err != nil {
		return nil, fmt.Errorf("app: init history: %w", err)
	}
	a.guard = promptctx.NewGuard(a.history)

	// ── 4. Resolution index ──────────────────────────────────────────────
	a.initIndex(ctx)

	// ── 5. Classifiers ───────────────────────────────────────────────────
	if err := a.initClassifiers(ctx); err != nil {
		return nil, fmt.Errorf("app: init classifiers: %w", err)
	}

	// ── 6. Router ────────────────────────────────────────────────────────
	a.initRouter()

	// ── 7. Readiness ─────────────────────────────────────────────────────
	a.initHealth()

	slog.Info("app initialised",
		"symbols", a.lib.Len(),
		"categories", len(a.lib.Categories()),
		"dense_index", a.index.Dense(),
		"generator", a.providers.LLM != nil,
		"transcriber", a.providers.Transcriber != nil,
	)
	return a, nil
}

// ─── Init helpers ────────────────────────────────────────────────────────────

func (a *App) initLibrary() error {
	if a.lib != nil {
		return nil
	}
	if a.cfg.Catalog.Path == "" {
		a.lib = symbol.NewLibrary(nil, nil)
		return nil
	}
	lib, err := symbol.LoadCatalog(a.cfg.Catalog.Path, a.cfg.Catalog.AssetsDir)
	if err != nil {
		return err
	}
	a.lib = lib
	slog.Info("symbol catalog loaded", "path", a.cfg.Catalog.Path, "entries", lib.Len())
	return nil
}

func (a *App) initContent() error {
	if a.content != nil {
		return nil
	}
	if a.cfg.Content.Path == "" {
		a.content = content.NewStore(nil)
		return nil
	}
	s, err := content.Open(a.cfg.Content.Path, a.cfg.Content.Watch, a.cfg.Content.PollInterval)
	if err != nil {
		return err
	}
	a.content = s
	a.closers = append(a.closers, func() error {
		s.Close()
		return nil
	})
	return nil
}

// initHistory connects PostgreSQL when a DSN is configured and falls back to
// the in-memory store otherwise.
func (a *App) initHistory(ctx context.Context) error {
	if a.history != nil && a.assignments != nil {
		return nil
	}
	if dsn := a.cfg.History.PostgresDSN; dsn != "" {
		store, err := postgres.NewStore(ctx, dsn)
		if err != nil {
			return err
		}
		a.setHistory(store)
		if a.cache == nil {
			a.cache = store
		}
		a.pinger = store
		a.closers = append(a.closers, func() error {
			store.Close()
			return nil
		})
		return nil
	}
	store := memstore.New()
	a.setHistory(store)
	if a.cache == nil {
		a.cache = store
	}
	return nil
}

func (a *App) setHistory(s interface {
	memory.InteractionLog
	memory.AssignmentStore
}) {
	if a.history == nil {
		a.history = s
	}
	if a.assignments == nil {
		a.assignments = s
	}
}

func (a *App) initIndex(ctx context.Context) {
	opts := []symbolindex.Option{symbolindex.WithMetrics(a.metrics)}
	if a.providers.Embeddings != nil {
		opts = append(opts, symbolindex.WithEmbeddings(a.providers.Embeddings))
		if a.cache != nil {
			opts = append(opts, symbolindex.WithEmbeddingCache(a.cache))
		}
	}
	a.index = symbolindex.New(a.lib, opts...)
	if err := a.index.Build(ctx); err != nil {
		slog.Warn("app: dense symbol index unavailable, suggestions use token overlap", "err", err)
	}
}

func (a *App) initRouter() {
	d := a.cfg.Dialogue
	s := settingsFrom(d, dialogue.DefaultSettings())

	aopts := []promptctx.Option{promptctx.WithAssignments(a.assignments)}
	if d.HistoryLimit > 0 {
		aopts = append(aopts, promptctx.WithMaxEntries(d.HistoryLimit))
	}

	ropts := []dialogue.Option{
		dialogue.WithClassifiers(a.intents, a.emotions),
		dialogue.WithContent(a.content),
		dialogue.WithHistory(promptctx.NewAssembler(a.guard, aopts...)),
		dialogue.WithAssignments(a.assignments),
		dialogue.WithSettings(s),
		dialogue.WithMetrics(a.metrics),
	}
	if a.providers.LLM != nil {
		ropts = append(ropts, dialogue.WithGenerator(a.providers.LLM))
	}
	if d.Seed != 0 {
		ropts = append(ropts, dialogue.WithSeed(d.Seed))
	}
	a.router = dialogue.New(a.index, session.NewRegistry(session.WithMetrics(a.metrics)), ropts...)
}

func (a *App) initHealth() {
	checks := []health.Checker{
		health.Catalog(a.lib),
		health.Content(a.content),
		health.Degraded("history", a.guard),
	}
	if a.pinger != nil {
		checks = append(checks, health.Ping("postgres", a.pinger))
	}
	for _, kind := range []string{"llm", "embeddings", "transcription"} {
		if bs := a.providers.Breakers[kind]; len(bs) > 0 {
			checks = append(checks, health.Breakers(kind, bs...))
		}
	}
	a.health = health.New(checks...)
}

// ─── Service ─────────────────────────────────────────────────────────────────

// Turn answers one utterance and records it in the user's history.
func (a *App) Turn(ctx context.Context, req dialogue.Request) dialogue.Response {
	req.User = strings.TrimSpace(req.User)
	ctx, span := observe.StartSpan(observe.WithUser(ctx, req.User), "app.turn")
	defer span.End()

	before, _ := a.router.State(req.User)
	resp := a.router.Process(ctx, req)
	if !classify.Blank(req.Text) {
		a.record(ctx, req, resp)
	}
	a.completeAssignment(ctx, req.User, before, resp)
	return resp
}

// completeAssignment marks the assignment behind a guided session done once
// the turn finished its last word. A skipped session stays active.
func (a *App) completeAssignment(ctx context.Context, user string, before session.State, resp dialogue.Response) {
	if before.Mode != session.ModeGuided || before.Assignment == nil || before.Assignment.ID == "" {
		return
	}
	if resp.Strategy != dialogue.StrategyGuided {
		return
	}
	if after, _ := a.router.State(user); after.InProgress {
		return
	}
	id := before.Assignment.ID
	if err := a.assignments.CompleteAssignment(ctx, id); err != nil {
		slog.Warn("app: complete assignment", "user", user, "assignment", id, "err", err)
		return
	}
	slog.Info("assignment completed", "user", user, "id", id)
}

// TurnAudio transcribes audio and answers the transcript as req.Text.
// Misheard catalog keywords are corrected before the turn is routed.
func (a *App) TurnAudio(ctx context.Context, req dialogue.Request, audio stt.Audio) (dialogue.Response, error) {
	if a.providers.Transcriber == nil {
		return dialogue.Response{}, ErrNoTranscriber
	}
	start := time.Now()
	text, err := a.providers.Transcriber.Transcribe(ctx, audio)
	a.metrics.RecordProviderDuration(ctx, "transcription", "transcribe", time.Since(start))
	if err != nil {
		a.metrics.RecordProviderError(ctx, "transcription", "transcribe")
		return dialogue.Response{}, fmt.Errorf("app: transcribe: %w", err)
	}
	res := a.corrector.Correct(text)
	a.metrics.RecordTranscript(ctx, len(res.Corrections) > 0)
	if len(res.Corrections) > 0 {
		slog.Debug("app: transcript corrected",
			"user", req.User,
			"heard", res.Original,
			"corrected", res.Corrected,
			"corrections", len(res.Corrections),
		)
	}
	req.Text = res.Corrected
	return a.Turn(ctx, req), nil
}

// keywords lists every catalog keyword.
func (a *App) keywords() []string {
	var out []string
	for _, e := range a.lib.Entries() {
		out = append(out, e.Keywords...)
	}
	return out
}

// record appends the turn to the interaction log. Failures are absorbed by
// the history guard.
func (a *App) record(ctx context.Context, req dialogue.Request, resp dialogue.Response) {
	var cats []string
	for _, w := range resp.Input {
		e, ok := a.lib.ByPath(w.Path)
		if !ok {
			continue
		}
		for _, t := range e.Tags {
			if !slices.Contains(cats, t) {
				cats = append(cats, t)
			}
		}
	}
	_ = a.guard.Append(ctx, memory.Interaction{
		ID:         uuid.New(),
		Username:   req.User,
		Sentence:   req.Text,
		Words:      resp.Input,
		Categories: cats,
		Intent:     string(resp.Intent),
		Emotion:    string(resp.Emotion),
		Reply:      resp.Reply,
		Timestamp:  time.Now().UTC(),
	})
}

// StartGame starts a guessing game in category.
func (a *App) StartGame(ctx context.Context, user, category string) dialogue.Response {
	return a.router.StartGame(ctx, user, category)
}

// StartDrill starts a drill in category with the configured size.
func (a *App) StartDrill(ctx context.Context, user, category string) dialogue.Response {
	return a.router.StartDrill(ctx, user, 0, category)
}

// Assign stores asg as the user's active assignment. A guided assignment
// also starts the guided session right away; the returned response is its
// first prompt. Task assignments return a zero response.
func (a *App) Assign(ctx context.Context, asg memory.Assignment) (dialogue.Response, error) {
	asg.Username = strings.TrimSpace(asg.Username)
	if asg.Username == "" {
		return dialogue.Response{}, fmt.Errorf("%w: username is required", ErrInvalidAssignment)
	}
	if asg.Type == "" {
		asg.Type = memory.AssignmentTask
		if len(asg.TargetWords) > 0 {
			asg.Type = memory.AssignmentGuided
		}
	}
	if asg.Type == memory.AssignmentGuided && len(asg.TargetWords) == 0 {
		return dialogue.Response{}, fmt.Errorf("%w: guided assignment without target words", ErrInvalidAssignment)
	}
	if asg.ID == "" {
		asg.ID = uuid.NewString()
	}
	if asg.CreatedAt.IsZero() {
		asg.CreatedAt = time.Now().UTC()
	}
	if err := a.assignments.SaveAssignment(ctx, asg); err != nil {
		return dialogue.Response{}, fmt.Errorf("app: save assignment: %w", err)
	}
	slog.Info("assignment saved", "user", asg.Username, "id", asg.ID, "type", asg.Type)

	if asg.Type != memory.AssignmentGuided {
		return dialogue.Response{}, nil
	}
	meta := &session.Assignment{
		ID:          asg.ID,
		Type:        string(asg.Type),
		Task:        asg.Task,
		Title:       asg.Title,
		TargetWords: asg.TargetWords,
	}
	return a.router.StartGuidedSession(ctx, asg.Username, asg.TargetWords, meta), nil
}

// Progress returns the user's aggregate progress statistics.
func (a *App) Progress(ctx context.Context, user string) (memory.Analytics, error) {
	return a.guard.Analytics(ctx, user)
}

// Logout drops the user's session state.
func (a *App) Logout(user string) { a.router.Clear(user) }

// Resolution is the outcome of resolving one word.
type Resolution struct {
	Word    string `json:"word"`
	Keyword string `json:"keyword"`
	Path    string `json:"path"`
	Stage   string `json:"stage"`
}

// Resolve maps word to its pictogram.
func (a *App) Resolve(word string) (Resolution, bool) {
	e, stage, ok := a.index.Resolve(word)
	if !ok {
		return Resolution{Word: word}, false
	}
	return Resolution{Word: word, Keyword: e.Keyword(), Path: e.AssetPath, Stage: stage.String()}, true
}

// Suggest ranks pictograms for free text.
func (a *App) Suggest(ctx context.Context, text string, k int) []symbolindex.Suggestion {
	return a.index.Suggest(ctx, text, k)
}

// Categories lists the symbol categories.
func (a *App) Categories() []string { return a.lib.Categories() }

// ─── Accessors ───────────────────────────────────────────────────────────────

// Router returns the dialogue router.
func (a *App) Router() *dialogue.Router { return a.router }

// Health returns the readiness handler.
func (a *App) Health() *health.Handler { return a.health }

// Metrics returns the metric instruments.
func (a *App) Metrics() *observe.Metrics { return a.metrics }

// ApplyDialogue updates router tuning from a reloaded config. Zero fields
// keep their current value.
func (a *App) ApplyDialogue(d config.DialogueConfig) {
	s := settingsFrom(d, a.router.Settings())
	a.router.SetSettings(s)
	slog.Info("dialogue settings applied",
		"drill_size", s.DrillSize,
		"drill_rounds", s.DrillRounds,
		"confidence_threshold", s.ConfidenceThreshold,
		"parrot_overlap", s.ParrotOverlap,
	)
}

func settingsFrom(d config.DialogueConfig, s dialogue.Settings) dialogue.Settings {
	if d.DrillSize > 0 {
		s.DrillSize = d.DrillSize
	}
	if d.DrillRounds > 0 {
		s.DrillRounds = d.DrillRounds
	}
	if d.MaxTokens > 0 {
		s.MaxTokens = d.MaxTokens
	}
	if d.MinReplyTokens > 0 {
		s.MinReplyTokens = d.MinReplyTokens
	}
	if d.ConfidenceThreshold > 0 {
		s.ConfidenceThreshold = d.ConfidenceThreshold
	}
	if d.ParrotOverlap > 0 {
		s.ParrotOverlap = d.ParrotOverlap
	}
	return s
}

// ─── Run ─────────────────────────────────────────────────────────────────────

// AddRunner registers a transport for [App.Run].
func (a *App) AddRunner(r Runner) { a.runners = append(a.runners, r) }

// Run starts every registered transport and blocks until ctx is cancelled or
// one of them fails.
func (a *App) Run(ctx context.Context) error {
	if len(a.runners) == 0 {
		slog.Info("app running without network transports")
		<-ctx.Done()
		return ctx.Err()
	}
	errCh := make(chan error, len(a.runners))
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	var wg sync.WaitGroup
	for _, r := range a.runners {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errCh <- r.Run(ctx)
		}()
	}
	slog.Info("app running", "transports", len(a.runners))

	var first error
	select {
	case <-ctx.Done():
		first = ctx.Err()
	case err := <-errCh:
		first = err
		if first == nil {
			first = context.Canceled
		}
	}
	cancel()
	wg.Wait()
	return first
}

// ─── Shutdown ────────────────────────────────────────────────────────────────

// Shutdown releases all subsystems in init order. Remaining closers are
// skipped once ctx is done.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down", "closers", len(a.closers))
		for i, closer := range a.closers {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", len(a.closers)-i)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := closer(); err != nil {
				slog.Warn("closer error", "index", i, "err", err)
			}
		}
		slog.Info("shutdown complete")
	})
	return shutdownErr
}
