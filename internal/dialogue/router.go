package dialogue

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/pictalk/internal/classify"
	"github.com/MrWong99/pictalk/internal/content"
	"github.com/MrWong99/pictalk/internal/lang"
	"github.com/MrWong99/pictalk/internal/lang/phonetic"
	"github.com/MrWong99/pictalk/internal/observe"
	"github.com/MrWong99/pictalk/internal/promptctx"
	"github.com/MrWong99/pictalk/internal/session"
	"github.com/MrWong99/pictalk/internal/symbolindex"
	"github.com/MrWong99/pictalk/pkg/memory"
	"github.com/MrWong99/pictalk/pkg/provider/llm"
	"github.com/MrWong99/pictalk/pkg/symbol"
)

// Settings are the tunable thresholds of the router. They can be replaced at
// runtime with [Router.SetSettings].
type Settings struct {
	// DrillSize is the number of options shown per drill round.
	DrillSize int
	// DrillRounds is the number of rounds a drill lasts.
	DrillRounds int
	// MaxTokens caps generated replies.
	MaxTokens int
	// MinReplyTokens is the shortest generated reply accepted as is.
	MinReplyTokens int
	// ConfidenceThreshold is the classifier confidence below which a label
	// is treated as unclassified.
	ConfidenceThreshold float64
	// ParrotOverlap is the share of a generated reply's tokens found in the
	// question at which the reply counts as an echo.
	ParrotOverlap float64
	// SuggestK is the number of suggested symbols per response.
	SuggestK int
}

// DefaultSettings returns the settings used when none are given.
func DefaultSettings() Settings {
	return Settings{
		DrillSize:           3,
		DrillRounds:         3,
		MaxTokens:           150,
		MinReplyTokens:      4,
		ConfidenceThreshold: classify.Threshold,
		ParrotOverlap:       0.7,
		SuggestK:            5,
	}
}

// Turn is the working state of one routed utterance. Strategies read it and
// may adjust the classification (the emotion override does).
type Turn struct {
	Request Request

	// Tokens are the normalized tokens of the utterance.
	Tokens []string

	// Analysis is the tagged utterance.
	Analysis []lang.Token

	Intent      classify.IntentResult
	Emotion     classify.EmotionResult
	Suggestions []symbolindex.Suggestion

	// State is the user's session, owned by the router for the turn.
	State *session.State
}

// Strategy is one step of the routing chain. Respond returns false to let
// the next strategy try.
type Strategy struct {
	Name    string
	Respond func(ctx context.Context, t *Turn) (Reply, bool)
}

// Option configures a [Router].
type Option func(*Router)

// WithClassifiers sets the intent and emotion classifiers. Without them every
// utterance is unclassified.
func WithClassifiers(intents classify.IntentClassifier, emotions classify.EmotionClassifier) Option {
	return func(r *Router) {
		r.intents = intents
		r.emotions = emotions
	}
}

// WithGenerator sets the text generator used by the generative fallback.
func WithGenerator(p llm.Provider) Option {
	return func(r *Router) { r.llm = p }
}

// WithContent sets the content pack store. The built-in pack is used
// otherwise.
func WithContent(s *content.Store) Option {
	return func(r *Router) { r.content = s }
}

// WithHistory sets the assembler that builds the generation prompt context.
func WithHistory(a *promptctx.Assembler) Option {
	return func(r *Router) { r.assembler = a }
}

// WithAssignments sets the store of therapist assignments.
func WithAssignments(s memory.AssignmentStore) Option {
	return func(r *Router) { r.assignments = s }
}

// WithSettings replaces the default settings.
func WithSettings(s Settings) Option {
	return func(r *Router) { r.settings.Store(&s) }
}

// WithSeed makes symbol sampling deterministic. Zero picks a random seed.
func WithSeed(seed uint64) Option {
	return func(r *Router) { r.seed = seed }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(r *Router) { r.log = l }
}

// WithMetrics enables turn, strategy and outcome metrics.
func WithMetrics(m *observe.Metrics) Option {
	return func(r *Router) { r.metrics = m }
}

// WithMatcher replaces the phonetic matcher used to accept near-miss guesses.
func WithMatcher(m *phonetic.Matcher) Option {
	return func(r *Router) { r.matcher = m }
}

// Router routes utterances to exercises and response strategies. It is safe
// for concurrent use; turns of the same user are serialized.
type Router struct {
	index    *symbolindex.Index
	lib      *symbol.Library
	sessions *session.Registry

	intents     classify.IntentClassifier
	emotions    classify.EmotionClassifier
	llm         llm.Provider
	content     *content.Store
	assembler   *promptctx.Assembler
	assignments memory.AssignmentStore
	matcher     *phonetic.Matcher

	settings atomic.Pointer[Settings]

	seed  uint64
	rngMu sync.Mutex
	rng   *rand.Rand

	metrics *observe.Metrics
	log     *slog.Logger
	chain   []Strategy
}

// New creates a Router over index. sessions holds the per-user state; a nil
// registry gets a private one.
func New(index *symbolindex.Index, sessions *session.Registry, opts ...Option) *Router {
	if sessions == nil {
		sessions = session.NewRegistry()
	}
	r := &Router{
		index:    index,
		lib:      index.Library(),
		sessions: sessions,
	}
	def := DefaultSettings()
	r.settings.Store(&def)
	for _, o := range opts {
		o(r)
	}
	if r.log == nil {
		r.log = slog.Default()
	}
	if r.matcher == nil {
		r.matcher = phonetic.New()
	}
	seed := r.seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	r.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	r.chain = DefaultChain(r)
	return r
}

// Settings returns the active settings.
func (r *Router) Settings() Settings { return *r.settings.Load() }

// SetSettings replaces the active settings for subsequent turns.
func (r *Router) SetSettings(s Settings) { r.settings.Store(&s) }

// Sessions returns the session registry.
func (r *Router) Sessions() *session.Registry { return r.sessions }

// State returns a copy of user's session state.
func (r *Router) State(user string) (session.State, bool) { return r.sessions.Get(user) }

// Clear drops user's session state.
func (r *Router) Clear(user string) { r.sessions.Clear(user) }

// Process answers one utterance. It never fails: collaborator errors and
// unusable input degrade to default texts.
func (r *Router) Process(ctx context.Context, req Request) Response {
	start := time.Now()
	var resp Response
	r.sessions.Do(req.User, func(st *session.State) {
		resp = r.turn(ctx, req, st)
	})
	if r.metrics != nil {
		r.metrics.TurnDuration.Record(ctx, time.Since(start).Seconds())
		r.metrics.RecordStrategy(ctx, resp.Strategy)
	}
	observe.Logger(ctx).Debug("dialogue: turn routed",
		"user", req.User,
		"strategy", resp.Strategy,
		"intent", resp.Intent,
		"emotion", resp.Emotion,
		"duration", time.Since(start),
	)
	return resp
}

// StartGame starts a guessing game for user. An empty category draws from
// the whole library.
func (r *Router) StartGame(ctx context.Context, user, category string) Response {
	return r.start(ctx, user, StrategyGameStart, func(st *session.State) Reply {
		rep, _ := r.startGame(ctx, st, category)
		return rep
	})
}

// StartGuidedSession starts a guided session over words. Blank words are
// dropped; with none left the state is unchanged. meta records the
// assignment the session was started from and may be nil.
func (r *Router) StartGuidedSession(ctx context.Context, user string, words []string, meta *session.Assignment) Response {
	return r.start(ctx, user, StrategyGuided, func(st *session.State) Reply {
		rep, _ := r.startGuided(st, words, meta)
		return rep
	})
}

// StartDrill starts a drill of k options per round. k <= 0 uses the
// configured drill size.
func (r *Router) StartDrill(ctx context.Context, user string, k int, category string) Response {
	return r.start(ctx, user, StrategyDrillStart, func(st *session.State) Reply {
		rep, _ := r.startDrill(ctx, st, k, category)
		return rep
	})
}

func (r *Router) start(ctx context.Context, user, name string, fn func(*session.State) Reply) Response {
	var resp Response
	r.sessions.Do(user, func(st *session.State) {
		t := r.newTurn(Request{User: user}, st)
		resp = r.respond(ctx, t, fn(st), name)
	})
	if r.metrics != nil {
		r.metrics.RecordStrategy(ctx, resp.Strategy)
	}
	return resp
}

func (r *Router) newTurn(req Request, st *session.State) *Turn {
	return &Turn{
		Request:  req,
		Tokens:   words(req.Text),
		Analysis: r.index.Analyzer().Analyze(req.Text),
		Intent:   classify.UnknownIntent,
		Emotion:  classify.UnknownEmotion,
		State:    st,
	}
}

func (r *Router) turn(ctx context.Context, req Request, st *session.State) Response {
	t := r.newTurn(req, st)
	if classify.Blank(req.Text) {
		return r.respond(ctx, t, Reply{Text: r.pack().Text(content.SectionGeneral, content.KeyEmpty)}, StrategyEmpty)
	}

	if st.InProgress {
		t.Suggestions = r.suggest(ctx, req.Text)
		if rep, name, ok := r.exercise(ctx, t); ok {
			return r.respond(ctx, t, rep, name)
		}
	}

	r.annotate(ctx, t)
	for _, s := range r.chain {
		if rep, ok := s.Respond(ctx, t); ok {
			return r.respond(ctx, t, rep, s.Name)
		}
	}
	return r.respond(ctx, t, Reply{}, StrategyFallback)
}

// annotate classifies the utterance and ranks suggestions concurrently.
// Failures are logged and leave the unknown defaults in place.
func (r *Router) annotate(ctx context.Context, t *Turn) {
	threshold := r.Settings().ConfidenceThreshold
	text := t.Request.Text

	var g errgroup.Group
	if r.intents != nil {
		g.Go(func() error {
			res, err := r.intents.ClassifyIntent(ctx, text)
			if err != nil {
				r.log.Warn("dialogue: intent classification failed", "user", t.Request.User, "err", err)
				return nil
			}
			if res.Confidence < threshold {
				res.Label = classify.IntentOther
			}
			t.Intent = res
			return nil
		})
	}
	if r.emotions != nil {
		g.Go(func() error {
			res, err := r.emotions.ClassifyEmotion(ctx, text)
			if err != nil {
				r.log.Warn("dialogue: emotion classification failed", "user", t.Request.User, "err", err)
				return nil
			}
			if res.Confidence < threshold {
				res.Label = classify.EmotionNeutral
			}
			t.Emotion = res
			return nil
		})
	}
	g.Go(func() error {
		t.Suggestions = r.suggest(ctx, text)
		return nil
	})
	_ = g.Wait()
}

func (r *Router) suggest(ctx context.Context, text string) []symbolindex.Suggestion {
	return r.index.Suggest(ctx, text, r.Settings().SuggestK)
}

// respond attaches symbols and metadata to rep.
func (r *Router) respond(_ context.Context, t *Turn, rep Reply, name string) Response {
	if strings.TrimSpace(rep.Text) == "" {
		rep.Text = r.pack().Text(content.SectionGeneral, content.KeyFallback)
		if len(rep.Items) == 0 && rep.Hint == "" {
			name = StrategyFallback
		}
	}
	if rep.Source != "" {
		name = rep.Source
	}

	ws := make([]symbol.WordSymbol, 0, len(rep.Items)+8)
	ws = append(ws, rep.Items...)
	ws = append(ws, symbol.WordSymbol{Word: rep.Text, Path: rep.Hint})
	for _, tok := range r.index.Analyzer().Analyze(rep.Text) {
		if !tok.POS.Content() {
			continue
		}
		if p := r.index.ResolvePath(tok.Text); p != "" {
			ws = append(ws, symbol.WordSymbol{Word: tok.Text, Path: p})
		}
	}

	return Response{
		Reply:             rep.Text,
		Words:             dedupe(ws),
		Input:             r.mapInput(t.Analysis),
		Intent:            t.Intent.Label,
		IntentConfidence:  t.Intent.Confidence,
		Emotion:           t.Emotion.Label,
		EmotionConfidence: t.Emotion.Confidence,
		Suggestions:       t.Suggestions,
		Entities:          r.index.Analyzer().Entities(t.Analysis),
		Strategy:          name,
	}
}

// mapInput maps the user's own tokens to symbols. A conjugated verb with a
// known person is preceded by its subject pronoun unless the user already
// said one.
func (r *Router) mapInput(toks []lang.Token) []symbol.WordSymbol {
	var out []symbol.WordSymbol
	for i, tok := range toks {
		if tok.POS == lang.POSVerb && tok.Person > 0 && (i == 0 || toks[i-1].POS != lang.POSPron) {
			if p := tok.Pronoun(); p != "" {
				out = append(out, symbol.WordSymbol{Word: p, Path: r.index.ResolvePath(p)})
			}
		}
		word := tok.Text
		if tok.POS == lang.POSVerb && tok.Lemma != "" {
			word = tok.Lemma
		}
		out = append(out, symbol.WordSymbol{Word: word, Path: r.index.ResolvePath(word)})
	}
	return out
}

// dedupe drops repeated word and path pairs, keeping the first.
func dedupe(in []symbol.WordSymbol) []symbol.WordSymbol {
	seen := make(map[symbol.WordSymbol]struct{}, len(in))
	out := in[:0]
	for _, ws := range in {
		if _, dup := seen[ws]; dup {
			continue
		}
		seen[ws] = struct{}{}
		out = append(out, ws)
	}
	return out
}

func (r *Router) pack() *content.Pack {
	if r.content == nil {
		return content.Default()
	}
	return r.content.Current()
}

func (r *Router) intN(n int) int {
	r.rngMu.Lock()
	defer r.rngMu.Unlock()
	return r.rng.IntN(n)
}

func (r *Router) sample(pool []symbol.Entry, k int, shown, last []string) []symbol.Entry {
	r.rngMu.Lock()
	defer r.rngMu.Unlock()
	return SampleDrill(r.rng, pool, k, shown, last)
}

func (r *Router) recordOutcome(ctx context.Context, mode session.Mode, outcome string) {
	if r.metrics != nil {
		r.metrics.RecordGameOutcome(ctx, mode.String(), outcome)
	}
}

// symbols maps words to symbols, keeping only words that resolve.
func (r *Router) symbols(words []string) []symbol.WordSymbol {
	var out []symbol.WordSymbol
	for _, w := range words {
		if p := r.index.ResolvePath(w); p != "" {
			out = append(out, symbol.WordSymbol{Word: w, Path: p})
		}
	}
	return out
}
