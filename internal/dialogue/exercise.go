package dialogue

import (
	"context"
	"slices"
	"strings"

	"github.com/MrWong99/pictalk/internal/content"
	"github.com/MrWong99/pictalk/internal/lang"
	"github.com/MrWong99/pictalk/internal/session"
	"github.com/MrWong99/pictalk/pkg/symbol"
)

// Exercise outcomes reported to metrics.
const (
	outcomeStarted     = "started"
	outcomeUnavailable = "unavailable"
	outcomeCorrect     = "correct"
	outcomeRetry       = "retry"
	outcomeCompleted   = "completed"
	outcomeSkipped     = "skipped"
)

// exercise resolves a turn against the exercise in progress. It returns
// false when the state names no known mode; the state is then reset and the
// turn is routed like any other.
func (r *Router) exercise(ctx context.Context, t *Turn) (Reply, string, bool) {
	st := t.State
	if isSkip(t.Tokens) {
		return r.skip(ctx, st), StrategySkip, true
	}
	switch st.Mode {
	case session.ModeGame:
		return r.playGame(ctx, t), StrategyGame, true
	case session.ModeDrill:
		return r.playDrill(ctx, t), StrategyDrill, true
	case session.ModeGuided:
		return r.playGuided(ctx, t), StrategyGuided, true
	case session.ModeNone:
	}
	r.log.Warn("dialogue: in-progress session without mode, resetting", "user", t.Request.User, "mode", st.Mode)
	st.Reset()
	return Reply{}, "", false
}

// skip ends the running exercise. A skipped game restarts in the same
// category.
func (r *Router) skip(ctx context.Context, st *session.State) Reply {
	mode, category := st.Mode, st.Category
	st.Reset()
	r.recordOutcome(ctx, mode, outcomeSkipped)

	text := r.pack().Text(sectionOf(mode), content.KeySkip)
	if mode != session.ModeGame {
		return Reply{Text: text}
	}
	rep, ok := r.startGame(ctx, st, category)
	if ok {
		rep.Text = strings.TrimSpace(text + " " + rep.Text)
		return rep
	}
	return Reply{Text: text}
}

func sectionOf(m session.Mode) content.Section {
	switch m {
	case session.ModeDrill:
		return content.SectionDrill
	case session.ModeGuided:
		return content.SectionGuided
	default:
		return content.SectionGame
	}
}

// ── Game ────────────────────────────────────────────────────────────────────

// startGame draws a random entry of category and makes its keyword the
// answer. It reports false and leaves st untouched when nothing qualifies.
func (r *Router) startGame(ctx context.Context, st *session.State, category string) (Reply, bool) {
	pack := r.pack()
	unavailable := func() (Reply, bool) {
		r.recordOutcome(ctx, session.ModeGame, outcomeUnavailable)
		return Reply{Text: content.Render(pack.Text(content.SectionGame, content.KeyUnavailable), map[string]string{
			"category": strings.TrimSpace(category),
		})}, false
	}

	tag := ""
	if strings.TrimSpace(category) != "" {
		var ok bool
		if tag, ok = r.category(category); !ok {
			return unavailable()
		}
	}
	pool := r.lib.Filter(func(e symbol.Entry) bool {
		return e.Keyword() != "" && (tag == "" || e.HasTag(tag))
	})
	if len(pool) == 0 {
		return unavailable()
	}

	e := pool[r.intN(len(pool))]
	st.Reset()
	st.InProgress = true
	st.Mode = session.ModeGame
	st.CorrectAnswer = e.Keyword()
	st.SymbolHint = e.AssetPath
	st.Category = tag
	r.recordOutcome(ctx, session.ModeGame, outcomeStarted)

	shown := tag
	if shown == "" {
		shown = "todas"
	}
	return Reply{
		Text: content.Render(pack.Text(content.SectionGame, content.KeyStart), map[string]string{"category": shown}),
		Hint: e.AssetPath,
	}, true
}

func (r *Router) playGame(ctx context.Context, t *Turn) Reply {
	st := t.State
	pack := r.pack()
	answer := st.CorrectAnswer

	if r.guessed(t, answer) {
		hint := st.SymbolHint
		st.Reset()
		r.recordOutcome(ctx, session.ModeGame, outcomeCorrect)
		return Reply{
			Text: content.Render(pack.Text(content.SectionGame, content.KeyCorrect), map[string]string{"word": answer}),
			Hint: hint,
		}
	}

	st.Failures++
	r.recordOutcome(ctx, session.ModeGame, outcomeRetry)
	return Reply{
		Text: content.Render(pack.Text(content.SectionGame, content.KeyRetry), map[string]string{"clue": clue(answer, st.Failures)}),
		Hint: st.SymbolHint,
	}
}

// guessed reports whether the utterance names answer, either as a whole or
// through its best-guess token. The phonetic matcher only picks the token;
// a near miss such as "pero" for "perro" is still wrong.
func (r *Router) guessed(t *Turn, answer string) bool {
	if sameWords(t.Tokens, answer) {
		return true
	}
	tok, _, ok := r.matcher.BestGuess(t.Request.Text, answer)
	return ok && lang.Normalize(tok) == lang.Normalize(answer)
}

func sameWords(toks []string, answer string) bool {
	want := words(answer)
	return len(want) > 0 && slices.Equal(toks, want)
}

// ── Drill ───────────────────────────────────────────────────────────────────

// startDrill samples the first round. An unknown category drills over the
// whole library.
func (r *Router) startDrill(ctx context.Context, st *session.State, k int, category string) (Reply, bool) {
	pack := r.pack()
	if k <= 0 {
		k = r.Settings().DrillSize
	}
	tag := ""
	if strings.TrimSpace(category) != "" {
		tag, _ = r.category(category)
	}

	pool := drillPool(r.lib, tag)
	if pool == nil {
		r.recordOutcome(ctx, session.ModeDrill, outcomeUnavailable)
		return Reply{Text: pack.Text(content.SectionDrill, content.KeyUnavailable)}, false
	}
	items := r.sample(pool, k, nil, nil)
	target := items[r.intN(len(items))]

	st.Reset()
	st.InProgress = true
	st.Mode = session.ModeDrill
	st.DrillItems = items
	st.DrillRound = 0
	st.DrillTarget = target.Keyword()
	st.DrillShown = assetPaths(items)
	st.Category = tag
	r.recordOutcome(ctx, session.ModeDrill, outcomeStarted)
	return r.drillPrompt(content.KeyStart, st), true
}

func (r *Router) playDrill(ctx context.Context, t *Turn) Reply {
	st := t.State
	target := lang.Normalize(st.DrillTarget)
	said := strings.Join(t.Tokens, " ")
	if target == "" || !strings.Contains(said, target) {
		r.recordOutcome(ctx, session.ModeDrill, outcomeRetry)
		return r.drillPrompt(content.KeyRepeat, st)
	}

	s := r.Settings()
	if st.DrillRound >= s.DrillRounds-1 {
		st.Reset()
		r.recordOutcome(ctx, session.ModeDrill, outcomeCompleted)
		return Reply{Text: r.pack().Text(content.SectionDrill, content.KeyComplete)}
	}

	r.recordOutcome(ctx, session.ModeDrill, outcomeCorrect)
	last := assetPaths(st.DrillItems)
	items := r.sample(drillPool(r.lib, st.Category), max(len(st.DrillItems), 1), st.DrillShown, last)
	if len(items) == 0 {
		st.Reset()
		return Reply{Text: r.pack().Text(content.SectionDrill, content.KeyComplete)}
	}

	// The new target avoids last round's target when possible.
	candidates := slices.DeleteFunc(slices.Clone(items), func(e symbol.Entry) bool {
		return lang.Normalize(e.Keyword()) == target
	})
	if len(candidates) == 0 {
		candidates = items
	}
	next := candidates[r.intN(len(candidates))]

	st.DrillRound++
	st.DrillItems = items
	st.DrillTarget = next.Keyword()
	for _, p := range assetPaths(items) {
		if !slices.Contains(st.DrillShown, p) {
			st.DrillShown = append(st.DrillShown, p)
		}
	}
	return r.drillPrompt(content.KeyNext, st)
}

// drillPrompt renders the drill text under key with the current options.
func (r *Router) drillPrompt(key string, st *session.State) Reply {
	items := make([]symbol.WordSymbol, len(st.DrillItems))
	names := make([]string, len(st.DrillItems))
	for i, e := range st.DrillItems {
		items[i] = symbol.WordSymbol{Word: e.Keyword(), Path: e.AssetPath}
		names[i] = e.Keyword()
	}
	text := content.Render(r.pack().Text(content.SectionDrill, key), map[string]string{
		"word":  st.DrillTarget,
		"words": strings.Join(names, ", "),
	})
	return Reply{Text: text, Items: items}
}

// ── Guided session ──────────────────────────────────────────────────────────

func (r *Router) startGuided(st *session.State, wordList []string, meta *session.Assignment) (Reply, bool) {
	pack := r.pack()
	var clean []string
	for _, w := range wordList {
		if w = strings.TrimSpace(w); w != "" {
			clean = append(clean, w)
		}
	}
	if len(clean) == 0 {
		return Reply{Text: pack.Text(content.SectionGuided, content.KeyNone)}, false
	}

	st.Reset()
	st.InProgress = true
	st.Mode = session.ModeGuided
	st.GuidedWords = clean
	st.GuidedStep = 0
	st.CorrectAnswer = clean[0]
	st.SymbolHint = r.index.ResolvePath(clean[0])
	if meta != nil {
		a := *meta
		a.TargetWords = slices.Clone(meta.TargetWords)
		st.Assignment = &a
	}
	return Reply{
		Text: content.Render(pack.Text(content.SectionGuided, content.KeyStart), map[string]string{"word": clean[0]}),
		Hint: st.SymbolHint,
	}, true
}

func (r *Router) playGuided(ctx context.Context, t *Turn) Reply {
	st := t.State
	pack := r.pack()

	if !sameWords(t.Tokens, st.CorrectAnswer) {
		st.Failures++
		r.recordOutcome(ctx, session.ModeGuided, outcomeRetry)
		return Reply{
			Text: content.Render(pack.Text(content.SectionGuided, content.KeyRetry), map[string]string{"clue": clue(st.CorrectAnswer, st.Failures)}),
			Hint: st.SymbolHint,
		}
	}

	st.GuidedStep++
	st.Failures = 0
	if st.GuidedStep < len(st.GuidedWords) {
		w := st.GuidedWords[st.GuidedStep]
		st.CorrectAnswer = w
		st.SymbolHint = r.index.ResolvePath(w)
		r.recordOutcome(ctx, session.ModeGuided, outcomeCorrect)
		return Reply{
			Text: content.Render(pack.Text(content.SectionGuided, content.KeyNext), map[string]string{"word": w}),
			Hint: st.SymbolHint,
		}
	}

	st.Reset()
	r.recordOutcome(ctx, session.ModeGuided, outcomeCompleted)
	return Reply{Text: pack.Text(content.SectionGuided, content.KeyComplete)}
}

// ── Categories ──────────────────────────────────────────────────────────────

// category resolves a requested category to a library tag. Exact and plural
// variants are tried first, then the closest phonetic match.
func (r *Router) category(requested string) (string, bool) {
	cats := r.lib.Categories()
	if tag, ok := matchCategory(cats, requested); ok {
		return tag, true
	}
	req := strings.Join(trimFillers(words(requested)), " ")
	if req == "" {
		return "", false
	}
	if tag, _, ok := r.matcher.Match(req, cats); ok {
		return tag, true
	}
	return "", false
}

// findCategory returns the first token sequence of toks naming a category.
func (r *Router) findCategory(toks []string) string {
	cats := r.lib.Categories()
	for _, tok := range toks {
		if tag, ok := matchCategory(cats, tok); ok {
			return tag
		}
	}
	return ""
}
