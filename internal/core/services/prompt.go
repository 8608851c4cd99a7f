package services

import (
	"fmt"
	"strings"

	"github.com/custodia-labs/groundwork/internal/core/domain"
)

// maxPackedContexts is the number of passages placed in a prompt.
const maxPackedContexts = 5

// PackContexts drops passages that repeat an earlier (source, section)
// pair and keeps at most maxItems, preserving order.
func PackContexts(results []domain.Result, maxItems int) []domain.Result {
	type key struct{ source, section string }

	seen := make(map[key]struct{}, len(results))
	packed := make([]domain.Result, 0, min(maxItems, len(results)))
	for _, r := range results {
		if len(packed) >= maxItems {
			break
		}
		k := key{r.Source, r.Section}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		packed = append(packed, r)
	}
	return packed
}

// BuildPrompt lays out the system prompt, numbered context passages and
// the question.
func BuildPrompt(system, query string, contexts []domain.Result) string {
	var lines []string
	for _, r := range contexts {
		if r.Text == "" {
			lines = append(lines, strings.TrimSpace(fmt.Sprintf("[%d] %s %s", r.Rank, r.Title, r.URL)))
			continue
		}
		lines = append(lines, fmt.Sprintf("[%d] Source: %s (%s)", r.Rank, r.Title, r.Source))
		if r.URL != "" {
			lines = append(lines, "URL: "+r.URL)
		}
		lines = append(lines, "Content: "+r.Text, "")
	}

	var b strings.Builder
	b.WriteString("System:\n")
	b.WriteString(system)
	b.WriteString("\n\nContext from knowledge base:\n")
	b.WriteString(strings.TrimSpace(strings.Join(lines, "\n")))
	b.WriteString("\n\nUser question: ")
	b.WriteString(query)
	b.WriteString("\n\nAnswer based on the context above, using citations like [1], [2] when referencing sources:")
	return b.String()
}

// citationsFor lists the passages as rendered citations.
func citationsFor(contexts []domain.Result) []domain.AnswerCitation {
	out := make([]domain.AnswerCitation, len(contexts))
	for i, r := range contexts {
		out[i] = domain.AnswerCitation{Rank: r.Rank, Title: r.Title, URL: r.URL}
	}
	return out
}

// extractiveAnswer quotes the leading sentence of each passage with its
// citation marker. Used when no generator is configured.
func extractiveAnswer(contexts []domain.Result) string {
	var b strings.Builder
	b.WriteString("Based on the knowledge base:\n")
	for _, r := range contexts {
		fmt.Fprintf(&b, "\n- %s [%d]", leadSentence(r.Text), r.Rank)
	}
	return b.String()
}

// leadSentence returns text up to its first sentence end, capped at
// 300 characters.
func leadSentence(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	if i := strings.IndexAny(text, ".!?"); i >= 0 {
		text = text[:i+1]
	}
	runes := []rune(text)
	if len(runes) > 300 {
		return string(runes[:300]) + "…"
	}
	return text
}
