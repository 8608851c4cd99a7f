// Package html loads HTML files as plain text using goquery.
package html

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	xhtml "golang.org/x/net/html"

	"github.com/custodia-labs/groundwork/internal/core/domain"
	"github.com/custodia-labs/groundwork/internal/core/ports/driven"
)

// Ensure Loader implements the interface.
var _ driven.DocumentLoader = (*Loader)(nil)

// Loader handles HTML documents.
type Loader struct{}

// New creates a new HTML loader.
func New() *Loader {
	return &Loader{}
}

// Extensions returns the extensions this loader handles.
func (l *Loader) Extensions() []string {
	return []string{".html", ".htm"}
}

// noise is removed before text extraction.
const noise = "script, style, noscript, svg, iframe, template, nav, header, footer, aside, form"

// contentSelectors are tried in order to find the main content.
var contentSelectors = []string{"article", "main", "[role=main]", "body"}

// spaces matches whitespace runs inside text nodes, newlines included.
var spaces = regexp.MustCompile(`\s+`)

// blockTags end a line of text.
var blockTags = map[string]bool{
	"p": true, "div": true, "br": true, "hr": true, "li": true, "tr": true,
	"blockquote": true, "pre": true, "table": true, "section": true, "article": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"ul": true, "ol": true, "dl": true, "dt": true, "dd": true, "figcaption": true,
}

// Load reads an HTML file and extracts the readable text of its main
// content. <h1> elements become level-one markdown headings.
func (l *Loader) Load(ctx context.Context, path string) (*domain.LoadedDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open html: %w", err)
	}
	defer f.Close()

	doc, err := goquery.NewDocumentFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	return &domain.LoadedDocument{
		Path:    path,
		Source:  path,
		Title:   domain.TitleFromPath(path),
		Content: ExtractText(doc),
	}, nil
}

// ExtractText returns the text of the main content of doc.
func ExtractText(doc *goquery.Document) string {
	doc.Find(noise).Remove()

	var main *goquery.Selection
	for _, sel := range contentSelectors {
		if s := doc.Find(sel).First(); s.Length() > 0 && strings.TrimSpace(s.Text()) != "" {
			main = s
			break
		}
	}
	if main == nil {
		main = doc.Selection
	}

	var b strings.Builder
	for _, n := range main.Nodes {
		writeNode(&b, n)
	}
	return tidy(b.String())
}

func writeNode(b *strings.Builder, n *xhtml.Node) {
	switch n.Type {
	case xhtml.TextNode:
		b.WriteString(spaces.ReplaceAllString(n.Data, " "))
		return
	case xhtml.ElementNode:
		if n.Data == "h1" {
			b.WriteString("\n# ")
		} else if blockTags[n.Data] {
			b.WriteString("\n")
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeNode(b, c)
	}

	if n.Type == xhtml.ElementNode && blockTags[n.Data] {
		b.WriteString("\n")
	}
}

// tidy collapses the whitespace runs left by markup while keeping one
// line per block.
func tidy(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, ln := range lines {
		ln = strings.Join(strings.Fields(ln), " ")
		if ln == "" || ln == "#" {
			continue
		}
		out = append(out, ln)
	}
	return strings.Join(out, "\n")
}
