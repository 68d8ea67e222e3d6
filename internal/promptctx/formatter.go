package promptctx

import (
	"fmt"
	"strings"
	"time"

	"github.com/MrWong99/pictalk/internal/content"
	"github.com/MrWong99/pictalk/pkg/memory"
)

// FormatSystemPrompt converts c into a system prompt. The opening text is the
// pack's prompt prefix. If c is nil only the prefix is returned.
//
// Empty sections are omitted rather than rendered as empty headers.
func FormatSystemPrompt(c *Context, pack *content.Pack) string {
	prefix := strings.TrimSpace(pack.Text(content.SectionGeneral, content.KeyPromptPrefix))
	if c == nil {
		return prefix
	}

	var sb strings.Builder
	sb.WriteString(prefix)

	if c.Assignment != nil {
		sb.WriteString("\n\n## Tarea activa\n")
		sb.WriteString(content.Render(pack.Text(content.SectionAssignment, content.KeyContext), AssignmentVars(c.Assignment)))
	}

	if s := formatSummary(c.Summary); s != "" {
		sb.WriteString("\n\n## Progreso\n")
		sb.WriteString(s)
	}

	if len(c.Recent) > 0 {
		sb.WriteString("\n\n## Conversación reciente\n")
		sb.WriteString(formatRecent(c.Recent))
	}

	return sb.String()
}

// AssignmentVars returns the placeholder values of an assignment.
func AssignmentVars(a *memory.Assignment) map[string]string {
	return map[string]string{
		"title": a.Title,
		"task":  a.Task,
		"words": strings.Join(a.TargetWords, ", "),
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Internal helpers
// ─────────────────────────────────────────────────────────────────────────────

func formatSummary(s memory.ProgressSummary) string {
	if s.TotalInteractions == 0 {
		return ""
	}
	lines := []string{fmt.Sprintf("Interacciones: %d", s.TotalInteractions)}
	if len(s.MostCommonWords) > 0 {
		words := make([]string, len(s.MostCommonWords))
		for i, w := range s.MostCommonWords {
			words[i] = fmt.Sprintf("%s (%d)", w.Word, w.Count)
		}
		lines = append(lines, "Palabras frecuentes: "+strings.Join(words, ", "))
	}
	if !s.LastInteraction.IsZero() {
		lines = append(lines, "Última interacción: "+s.LastInteraction.UTC().Format(time.DateOnly))
	}
	return strings.Join(lines, "\n")
}

func formatRecent(recent []memory.Interaction) string {
	var sb strings.Builder
	for i, in := range recent {
		if i > 0 {
			sb.WriteByte('\n')
		}
		fmt.Fprintf(&sb, "- Usuario: %s", in.Sentence)
		if in.Reply != "" {
			fmt.Fprintf(&sb, "\n  Respuesta: %s", in.Reply)
		}
	}
	return sb.String()
}
