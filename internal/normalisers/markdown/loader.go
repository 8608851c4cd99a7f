// Package markdown loads Markdown files as plain text.
package markdown

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/custodia-labs/groundwork/internal/core/domain"
	"github.com/custodia-labs/groundwork/internal/core/ports/driven"
)

// Ensure Loader implements the interface.
var _ driven.DocumentLoader = (*Loader)(nil)

// Loader handles Markdown documents.
type Loader struct{}

// New creates a new Markdown loader.
func New() *Loader {
	return &Loader{}
}

// Extensions returns the extensions this loader handles.
func (l *Loader) Extensions() []string {
	return []string{".md", ".markdown"}
}

// Load reads a markdown file. Formatting noise is simplified but headings
// stay in place because they delimit sections.
func (l *Loader) Load(ctx context.Context, path string) (*domain.LoadedDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read markdown: %w", err)
	}

	return &domain.LoadedDocument{
		Path:    path,
		Source:  path,
		Title:   domain.TitleFromPath(path),
		Content: Simplify(strings.ToValidUTF8(string(data), "")),
	}, nil
}

// Pre-compiled regular expressions for markdown simplification.
var (
	images       = regexp.MustCompile(`!\[[^\]]*\]\([^)]+\)`)
	links        = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	subHeadings  = regexp.MustCompile(`(?m)^#{2,6}\s+`)
	blockquote   = regexp.MustCompile(`(?m)^>\s?`)
	hr           = regexp.MustCompile(`(?m)^[-*_]{3,}\s*$`)
	htmlComments = regexp.MustCompile(`(?s)<!--.*?-->`)
	emphasis     = regexp.MustCompile(`(\*\*|__)(\S[^*_]*?\S|\S)(\*\*|__)`)
)

// Simplify removes images, comments and rules, flattens links to their
// text and drops emphasis markers. Level-one headings are kept verbatim;
// deeper headings lose their markers.
func Simplify(content string) string {
	content = htmlComments.ReplaceAllString(content, "")
	content = images.ReplaceAllString(content, "")
	content = links.ReplaceAllString(content, "$1")
	content = subHeadings.ReplaceAllString(content, "")
	content = blockquote.ReplaceAllString(content, "")
	content = hr.ReplaceAllString(content, "")
	content = emphasis.ReplaceAllString(content, "$2")
	return strings.TrimSpace(content)
}
