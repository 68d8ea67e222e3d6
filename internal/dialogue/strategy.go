package dialogue

import (
	"context"
	"strings"
	"time"

	"github.com/MrWong99/pictalk/internal/classify"
	"github.com/MrWong99/pictalk/internal/content"
	"github.com/MrWong99/pictalk/internal/lang"
	"github.com/MrWong99/pictalk/internal/promptctx"
	"github.com/MrWong99/pictalk/pkg/memory"
	"github.com/MrWong99/pictalk/pkg/provider/llm"
	"github.com/MrWong99/pictalk/pkg/symbol"
)

// DefaultChain returns the routing chain in priority order:
//
//  1. game start ("jugar a animales", "juego")
//  2. drill start ("practicar animales")
//  3. scripted answers: scenarios, greetings, assignment intro
//  4. numeric clarification
//  5. emotion override (adjusts the classification, never answers)
//  6. health and pain
//  7. confident specialised intents
//  8. short descriptive questions
//  9. generative fallback, which always answers
func DefaultChain(r *Router) []Strategy {
	return []Strategy{
		{Name: StrategyGameStart, Respond: r.gameStart},
		{Name: StrategyDrillStart, Respond: r.drillStart},
		{Name: StrategyScripted, Respond: r.scripted},
		{Name: StrategyNumeric, Respond: r.numeric},
		{Name: StrategyEmotion, Respond: r.emotionOverride},
		{Name: StrategyHealth, Respond: r.health},
		{Name: StrategyIntent, Respond: r.intent},
		{Name: StrategyDescriptive, Respond: r.descriptive},
		{Name: StrategyGenerative, Respond: r.generative},
	}
}

func (r *Router) gameStart(ctx context.Context, t *Turn) (Reply, bool) {
	if m := gamePattern.FindStringSubmatch(strings.Join(t.Tokens, " ")); m != nil {
		rep, _ := r.startGame(ctx, t.State, m[1])
		return rep, true
	}
	if _, ok := anyIn(t.Tokens, gameKeywords); ok {
		rep, _ := r.startGame(ctx, t.State, r.findCategory(t.Tokens))
		return rep, true
	}
	return Reply{}, false
}

func (r *Router) drillStart(ctx context.Context, t *Turn) (Reply, bool) {
	if _, ok := anyIn(t.Tokens, drillKeywords); !ok {
		return Reply{}, false
	}
	rep, _ := r.startDrill(ctx, t.State, 0, r.findCategory(t.Tokens))
	return rep, true
}

func (r *Router) scripted(ctx context.Context, t *Turn) (Reply, bool) {
	pack := r.pack()
	if answer, ok := pack.Scenario(t.Request.Text); ok {
		return Reply{Text: answer}, true
	}

	if isGreeting(t.Tokens) {
		rep := Reply{Text: pack.Text(content.SectionGeneral, content.KeyGreeting)}
		if t.Request.Role.Student() {
			if a := r.activeAssignment(ctx, t.Request.User); a != nil {
				intro := r.assignmentIntro(a)
				rep.Text += " " + intro.Text
				rep.Items = intro.Items
			}
		}
		return rep, true
	}

	if _, ok := anyIn(t.Tokens, taskWords); ok && t.Request.Role.Student() {
		if a := r.activeAssignment(ctx, t.Request.User); a != nil {
			return r.assignmentIntro(a), true
		}
	}
	return Reply{}, false
}

func (r *Router) assignmentIntro(a *memory.Assignment) Reply {
	return Reply{
		Text:  content.Render(r.pack().Text(content.SectionAssignment, content.KeyIntro), promptctx.AssignmentVars(a)),
		Items: r.symbols(a.TargetWords),
	}
}

func (r *Router) activeAssignment(ctx context.Context, user string) *memory.Assignment {
	if r.assignments == nil {
		return nil
	}
	a, ok, err := r.assignments.ActiveAssignment(ctx, user)
	if err != nil {
		r.log.Warn("dialogue: active assignment lookup failed", "user", user, "err", err)
		return nil
	}
	if !ok {
		return nil
	}
	return &a
}

func (r *Router) numeric(_ context.Context, t *Turn) (Reply, bool) {
	if !lang.HasDigit(t.Request.Text) || t.Intent.Label != classify.IntentOther {
		return Reply{}, false
	}
	return Reply{Text: r.pack().Text(content.SectionGeneral, content.KeyNumeric)}, true
}

// emotionOverride lets an emotion word win over the classifiers. It never
// answers by itself.
func (r *Router) emotionOverride(_ context.Context, t *Turn) (Reply, bool) {
	if e, ok := lexicalEmotion(t.Tokens); ok {
		t.Intent = classify.NewIntentResult(classify.IntentEmotional, 1)
		t.Emotion = classify.NewEmotionResult(e, 1)
	}
	return Reply{}, false
}

func (r *Router) health(_ context.Context, t *Turn) (Reply, bool) {
	w, ok := anyIn(t.Tokens, healthWords)
	if !ok {
		return Reply{}, false
	}
	hint := r.index.ResolvePath(w)
	if hint == "" {
		hint = r.index.ResolvePath("médico")
	}
	return Reply{Text: r.pack().Text(content.SectionGeneral, content.KeyHealth), Hint: hint}, true
}

func (r *Router) intent(_ context.Context, t *Turn) (Reply, bool) {
	if t.Intent.Confidence < r.Settings().ConfidenceThreshold {
		return Reply{}, false
	}
	pack := r.pack()
	switch t.Intent.Label {
	case classify.IntentConsent:
		return Reply{Text: pack.Text(content.SectionGeneral, content.KeyConsent), Source: StrategyConsent}, true
	case classify.IntentEmotional:
		return r.emotional(t), true
	case classify.IntentFactual:
		rep := r.factual(t)
		rep.Source = StrategyFactual
		return rep, true
	case classify.IntentHint:
		return r.hint(t)
	case classify.IntentRelated:
		return r.related(t), true
	}
	return Reply{}, false
}

func (r *Router) emotional(t *Turn) Reply {
	label := t.Emotion.Label
	if label == "" {
		label = classify.EmotionNeutral
	}
	pack := r.pack()
	text := pack.Text(content.SectionEmotions, string(label))
	if text == "" {
		text = pack.Text(content.SectionEmotions, string(classify.EmotionNeutral))
	}
	return Reply{Text: text, Hint: r.index.ResolvePath(string(label)), Source: StrategyEmotional}
}

// subject returns the entry the utterance is about: the first noun with a
// symbol, else the first noun or verb with one, else any token with one.
func (r *Router) subject(t *Turn) (symbol.Entry, bool) {
	pass := []func(lang.Token) bool{
		func(tok lang.Token) bool { return tok.POS == lang.POSNoun },
		func(tok lang.Token) bool { return tok.POS.Content() },
		func(tok lang.Token) bool { return tok.POS != lang.POSPron && tok.POS != lang.POSDet && tok.POS != lang.POSAdp },
	}
	for _, keep := range pass {
		for _, tok := range t.Analysis {
			if !keep(tok) {
				continue
			}
			if e, _, ok := r.index.Resolve(tok.Text); ok {
				return e, true
			}
		}
	}
	return symbol.Entry{}, false
}

// factual answers with the symbol of the utterance's subject.
func (r *Router) factual(t *Turn) Reply {
	pack := r.pack()
	e, ok := r.subject(t)
	if !ok {
		return Reply{Text: pack.Text(content.SectionGeneral, content.KeyFactualNone)}
	}
	return Reply{
		Text: content.Render(pack.Text(content.SectionGeneral, content.KeyFactual), map[string]string{"word": e.Keyword()}),
		Hint: e.AssetPath,
	}
}

// hint gives the first letter of the best suggestion.
func (r *Router) hint(t *Turn) (Reply, bool) {
	if len(t.Suggestions) == 0 {
		return Reply{}, false
	}
	text := content.Render(r.pack().Text(content.SectionGeneral, content.KeyHint), map[string]string{
		"clue": clue(t.Suggestions[0].Keyword, 0),
	})
	return Reply{Text: text, Source: StrategyHint}, true
}

func (r *Router) related(t *Turn) Reply {
	pack := r.pack()
	word, hint := "", ""
	if e, ok := r.subject(t); ok {
		word, hint = e.Keyword(), e.AssetPath
	} else if len(t.Tokens) > 0 {
		word = t.Tokens[len(t.Tokens)-1]
	}
	assoc := pack.Related(word)
	if len(assoc) == 0 {
		return Reply{
			Text:   content.Render(pack.Text(content.SectionGeneral, content.KeyRelatedNone), map[string]string{"word": word}),
			Hint:   hint,
			Source: StrategyRelated,
		}
	}
	return Reply{
		Text: content.Render(pack.Text(content.SectionGeneral, content.KeyRelated), map[string]string{
			"word":         word,
			"associations": strings.Join(assoc, ", "),
		}),
		Hint:   hint,
		Items:  r.symbols(assoc),
		Source: StrategyRelated,
	}
}

// descriptive answers "qué es X" style questions and one or two word
// utterances with the symbol they name. It declines when nothing resolves.
func (r *Router) descriptive(_ context.Context, t *Turn) (Reply, bool) {
	var target []string
	if m := questionHead.FindStringSubmatch(strings.Join(t.Tokens, " ")); m != nil {
		target = trimFillers(strings.Fields(m[1]))
	} else if len(t.Tokens) <= 2 {
		target = trimFillers(t.Tokens)
	}
	for _, w := range target {
		e, _, ok := r.index.Resolve(w)
		if !ok {
			continue
		}
		pack := r.pack()
		text := content.Render(pack.Text(content.SectionGeneral, content.KeyFactual), map[string]string{"word": e.Keyword()})
		rep := Reply{Text: text, Hint: e.AssetPath}
		if assoc := pack.Related(e.Keyword()); len(assoc) > 0 {
			rep.Text += " " + content.Render(pack.Text(content.SectionGeneral, content.KeyRelated), map[string]string{
				"word":         e.Keyword(),
				"associations": strings.Join(assoc, ", "),
			})
		}
		return rep, true
	}
	return Reply{}, false
}

// generative asks the generator for a reply grounded in the user's progress
// and active assignment. Echoing or very short replies are replaced.
func (r *Router) generative(ctx context.Context, t *Turn) (Reply, bool) {
	pack := r.pack()
	fallback := Reply{Text: pack.Text(content.SectionGeneral, content.KeyFallback), Source: StrategyFallback}
	if r.llm == nil {
		return fallback, true
	}
	s := r.Settings()

	var pc *promptctx.Context
	if r.assembler != nil {
		c, err := r.assembler.Assemble(ctx, t.Request.User)
		if err != nil {
			r.log.Warn("dialogue: prompt context unavailable", "user", t.Request.User, "err", err)
		} else {
			pc = c
		}
	}

	req := llm.CompletionRequest{
		SystemPrompt: promptctx.FormatSystemPrompt(pc, pack),
		Messages:     []llm.Message{{Role: llm.RoleUser, Content: t.Request.Text}},
		MaxTokens:    s.MaxTokens,
	}
	start := time.Now()
	resp, err := r.llm.Complete(ctx, req)
	if r.metrics != nil {
		r.metrics.RecordProviderDuration(ctx, r.llm.ModelID(), "llm", time.Since(start))
	}
	if err != nil {
		if r.metrics != nil {
			r.metrics.RecordProviderError(ctx, r.llm.ModelID(), "llm")
		}
		r.log.Warn("dialogue: generation failed", "user", t.Request.User, "model", r.llm.ModelID(), "err", err)
		return fallback, true
	}

	text := strings.TrimSpace(resp.Content)
	if text == "" {
		return fallback, true
	}
	if overlapRatio(text, t.Request.Text) >= s.ParrotOverlap || len(lang.Tokenize(text)) < s.MinReplyTokens {
		r.log.Debug("dialogue: degenerate generation replaced", "user", t.Request.User, "reply", text)
		return r.replaceDegenerate(t, fallback), true
	}
	return Reply{Text: text}, true
}

// replaceDegenerate answers with the subject's symbol, else offers a choice
// between suggested symbols, else falls back.
func (r *Router) replaceDegenerate(t *Turn, fallback Reply) Reply {
	if _, ok := r.subject(t); ok {
		rep := r.factual(t)
		rep.Source = StrategyFactual
		return rep
	}
	if len(t.Suggestions) == 0 {
		return fallback
	}
	n := min(len(t.Suggestions), 3)
	names := make([]string, n)
	items := make([]symbol.WordSymbol, n)
	for i, sg := range t.Suggestions[:n] {
		names[i] = sg.Keyword
		items[i] = symbol.WordSymbol{Word: sg.Keyword, Path: sg.Path}
	}
	text := content.Render(r.pack().Text(content.SectionGeneral, content.KeyChoice), map[string]string{
		"words": joinChoice(names),
	})
	return Reply{Text: text, Items: items, Source: StrategyChoice}
}

// joinChoice joins words as "a, b o c".
func joinChoice(ws []string) string {
	switch len(ws) {
	case 0:
		return ""
	case 1:
		return ws[0]
	}
	return strings.Join(ws[:len(ws)-1], ", ") + " o " + ws[len(ws)-1]
}
