package memory

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MrWong99/pictalk/pkg/symbol"
)

// TopWords is the number of entries reported in [ProgressSummary.MostCommonWords].
const TopWords = 5

// Interaction is one answered user turn.
type Interaction struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`

	// Sentence is the user's utterance as received.
	Sentence string `json:"sentence"`

	// Words is the utterance mapped to symbols.
	Words []symbol.WordSymbol `json:"words"`

	// Categories holds the tags of the symbols in Words.
	Categories []string `json:"categories,omitempty"`

	Intent    string    `json:"intent,omitempty"`
	Emotion   string    `json:"emotion,omitempty"`
	Reply     string    `json:"reply,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// WordCount is a word with its number of occurrences.
type WordCount struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

// ProgressSummary is the short progress view used for prompt context.
type ProgressSummary struct {
	TotalInteractions int         `json:"total_interactions"`
	MostCommonWords   []WordCount `json:"most_common_words"`
	LastInteraction   time.Time   `json:"last_interaction"`
}

// Analytics are aggregate statistics over a user's whole history.
type Analytics struct {
	Interactions       int            `json:"num_interactions"`
	UniqueWords        int            `json:"num_unique_words"`
	AvgWords           float64        `json:"avg_words_per_interaction"`
	InteractionsPerDay map[string]int `json:"interactions_per_day"`
	CommonCategories   []WordCount    `json:"most_common_categories"`
}

// AssignmentType distinguishes the kinds of therapist assignment.
type AssignmentType string

const (
	// AssignmentGuided asks the user to reproduce TargetWords in order.
	AssignmentGuided AssignmentType = "guided"

	// AssignmentTask is a free-form task described by Task.
	AssignmentTask AssignmentType = "task"
)

// Assignment is a task assigned to a user.
type Assignment struct {
	ID          string         `json:"id"`
	Username    string         `json:"username"`
	Type        AssignmentType `json:"type"`
	Title       string         `json:"title"`
	Task        string         `json:"task"`
	TargetWords []string       `json:"target_words"`
	CreatedAt   time.Time      `json:"created_at"`
	Completed   bool           `json:"completed"`
}

// Summarize computes a [ProgressSummary] from interactions in any order.
// Words are counted case-insensitively; ties are broken alphabetically.
func Summarize(interactions []Interaction) ProgressSummary {
	var s ProgressSummary
	counts := make(map[string]int)
	for _, in := range interactions {
		s.TotalInteractions++
		if in.Timestamp.After(s.LastInteraction) {
			s.LastInteraction = in.Timestamp
		}
		for _, w := range in.Words {
			word := strings.ToLower(strings.TrimSpace(w.Word))
			if word != "" {
				counts[word]++
			}
		}
	}
	s.MostCommonWords = topCounts(counts, TopWords)
	return s
}

// Analyze computes [Analytics] from interactions in any order. Days are keyed
// as YYYY-MM-DD in UTC.
func Analyze(interactions []Interaction) Analytics {
	a := Analytics{InteractionsPerDay: make(map[string]int)}
	unique := make(map[string]struct{})
	categories := make(map[string]int)
	total := 0
	for _, in := range interactions {
		a.Interactions++
		a.InteractionsPerDay[in.Timestamp.UTC().Format(time.DateOnly)]++
		for _, w := range in.Words {
			word := strings.ToLower(strings.TrimSpace(w.Word))
			if word == "" {
				continue
			}
			unique[word] = struct{}{}
			total++
		}
		for _, c := range in.Categories {
			categories[c]++
		}
	}
	a.UniqueWords = len(unique)
	if a.Interactions > 0 {
		a.AvgWords = float64(total) / float64(a.Interactions)
	}
	a.CommonCategories = topCounts(categories, TopWords)
	return a
}

func topCounts(counts map[string]int, n int) []WordCount {
	out := make([]WordCount, 0, len(counts))
	for w, c := range counts {
		out = append(out, WordCount{Word: w, Count: c})
	}
	slices.SortFunc(out, func(a, b WordCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return strings.Compare(a.Word, b.Word)
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
