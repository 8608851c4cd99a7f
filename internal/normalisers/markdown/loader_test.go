package markdown

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/groundwork/internal/core/ports/driven"
)

func TestLoader_ImplementsInterface(t *testing.T) {
	var _ driven.DocumentLoader = New()
}

func TestExtensions(t *testing.T) {
	assert.ElementsMatch(t, []string{".md", ".markdown"}, New().Extensions())
}

func TestLoad_Success(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "getting-started.md")
	content := "Intro with [a link](https://example.com) and ![img](x.png).\n" +
		"# Install\n## Requirements\nUse **bold** text.\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	doc, err := New().Load(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, "getting-started", doc.Title)
	assert.Equal(t, path, doc.Source)
	assert.Equal(t, path, doc.Path)
	assert.Contains(t, doc.Content, "Intro with a link and .")
	assert.Contains(t, doc.Content, "\n# Install\n")
	assert.Contains(t, doc.Content, "\nRequirements\n")
	assert.Contains(t, doc.Content, "Use bold text.")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := New().Load(context.Background(), filepath.Join(t.TempDir(), "nope.md"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New().Load(ctx, "whatever.md")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSimplify(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"keeps h1", "a\n# Title\nb", "a\n# Title\nb"},
		{"strips h3 marker", "a\n### Sub\nb", "a\nSub\nb"},
		{"flattens link", "see [docs](http://x)", "see docs"},
		{"removes image", "x ![alt](p.png) y", "x  y"},
		{"removes comment", "a<!-- hidden -->b", "ab"},
		{"strips blockquote", "> quoted", "quoted"},
		{"removes rule", "a\n---\nb", "a\n\nb"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Simplify(tt.in))
		})
	}
}
