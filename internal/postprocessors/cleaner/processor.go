// Package cleaner provides a text normalisation processor that runs
// ahead of chunking.
package cleaner

import (
	"context"
	"regexp"
	"strings"

	"github.com/custodia-labs/groundwork/internal/core/domain"
)

// horizontalSpace matches runs of non-newline whitespace.
var horizontalSpace = regexp.MustCompile(`[ \t\v\f\r]+`)

// Processor normalises whitespace while keeping line structure, so
// headings and code blocks survive for the chunker.
// It implements the PostProcessor interface.
type Processor struct{}

// New creates a new cleaner processor.
func New() *Processor {
	return &Processor{}
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "cleaner"
}

// Process cleans doc.Content in place when no drafts exist yet, otherwise
// it cleans the text of every draft.
func (p *Processor) Process(
	_ context.Context, doc *domain.LoadedDocument, drafts []domain.ChunkDraft,
) ([]domain.ChunkDraft, error) {
	if drafts == nil {
		doc.Content = Normalise(doc.Content)
		return nil, nil
	}

	out := make([]domain.ChunkDraft, len(drafts))
	for i, d := range drafts {
		d.Text = Normalise(d.Text)
		out[i] = d
	}
	return out, nil
}

// Normalise replaces non-breaking spaces, unifies line endings, collapses
// horizontal whitespace, trims every line and drops repeated blank lines.
func Normalise(text string) string {
	text = strings.ReplaceAll(text, " ", " ")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = horizontalSpace.ReplaceAllString(text, " ")

	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	lastEmpty := false
	for _, ln := range lines {
		ln = strings.TrimSpace(ln)
		empty := ln == ""
		if empty && lastEmpty {
			continue
		}
		out = append(out, ln)
		lastEmpty = empty
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
