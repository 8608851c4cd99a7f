// Package chunker provides a section-aware sliding-window chunking processor.
//
// Tokens are approximated by whitespace-delimited words. Sections are
// delimited by level-one markdown headings ("\n# ").
package chunker

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/groundwork/internal/core/domain"
)

// DefaultMaxTokens is the default window size in words.
const DefaultMaxTokens = domain.DefaultMaxTokens

// DefaultOverlap is the default number of words shared by consecutive windows.
const DefaultOverlap = domain.DefaultOverlap

// maxSectionTitle is the longest section title kept, in characters.
const maxSectionTitle = 120

const sectionDelimiter = "\n# "

// Processor splits document content into section-tagged word windows.
// It implements the PostProcessor interface.
type Processor struct {
	maxTokens int
	overlap   int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithMaxTokens sets the window size in words. Zero or less keeps each
// section whole.
func WithMaxTokens(n int) Option {
	return func(p *Processor) {
		p.maxTokens = n
	}
}

// WithOverlap sets the number of words shared by consecutive windows.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		maxTokens: DefaultMaxTokens,
		overlap:   DefaultOverlap,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// Process splits the document content into drafts.
// Input drafts are ignored; this processor creates new drafts from document content.
func (p *Processor) Process(
	_ context.Context, doc *domain.LoadedDocument, _ []domain.ChunkDraft,
) ([]domain.ChunkDraft, error) {
	if strings.TrimSpace(doc.Content) == "" {
		return nil, nil
	}

	var drafts []domain.ChunkDraft
	position := 0

	for _, sec := range splitSections(doc.Content) {
		for _, text := range Split(sec.body, p.maxTokens, p.overlap) {
			drafts = append(drafts, domain.ChunkDraft{
				Text:       text,
				TokenCount: CountTokens(text),
				Section:    sec.title,
				Position:   position,
				Metadata: domain.ChunkMetadata{
					Source:   doc.Source,
					Title:    doc.Title,
					URL:      doc.URL,
					Section:  sec.title,
					Position: position,
				},
			})
			position++
		}
	}

	return drafts, nil
}

// Split windows text into overlapping word sequences. Each window holds
// at most maxTokens words and starts step = max(1, maxTokens-overlap)
// words after the previous one. Windows are emitted while the start is
// inside the text, so the tail may be short. maxTokens <= 0 returns the
// text unchanged as a single chunk. Empty text yields nothing.
func Split(text string, maxTokens, overlap int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	if maxTokens <= 0 {
		return []string{text}
	}

	step := maxTokens - overlap
	if step < 1 {
		step = 1
	}

	chunks := make([]string, 0, len(words)/step+1)
	for i := 0; i < len(words); i += step {
		end := i + maxTokens
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[i:end], " "))
	}
	return chunks
}

// CountTokens returns the whitespace-delimited word count.
func CountTokens(text string) int {
	return len(strings.Fields(text))
}

type section struct {
	title string
	body  string
}

// splitSections cuts text on level-one headings. The text before the
// first heading is a section with an empty title. For later sections the
// heading line is the title and the rest is the body.
func splitSections(text string) []section {
	parts := strings.Split(text, sectionDelimiter)
	sections := make([]section, 0, len(parts))

	for i, part := range parts {
		if i == 0 {
			sections = append(sections, section{body: part})
			continue
		}
		title, body, _ := strings.Cut(part, "\n")
		sections = append(sections, section{
			title: truncate(strings.TrimSpace(title), maxSectionTitle),
			body:  body,
		})
	}
	return sections
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
