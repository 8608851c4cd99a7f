package normalisers

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/custodia-labs/groundwork/internal/core/domain"
	"github.com/custodia-labs/groundwork/internal/core/ports/driven"
	"github.com/custodia-labs/groundwork/internal/normalisers/html"
	"github.com/custodia-labs/groundwork/internal/normalisers/markdown"
	"github.com/custodia-labs/groundwork/internal/normalisers/pdf"
)

// Ensure Registry implements the interface.
var _ driven.LoaderRegistry = (*Registry)(nil)

// Registry maps file extensions to loaders.
type Registry struct {
	mu      sync.RWMutex
	loaders map[string]driven.DocumentLoader
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		loaders: make(map[string]driven.DocumentLoader),
	}
}

// NewDefaultRegistry creates a registry with the markdown, HTML and PDF loaders.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(markdown.New())
	r.Register(html.New())
	r.Register(pdf.New())
	return r
}

// Register adds a loader for each of its extensions. Later registrations
// replace earlier ones for the same extension.
func (r *Registry) Register(loader driven.DocumentLoader) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ext := range loader.Extensions() {
		r.loaders[strings.ToLower(ext)] = loader
	}
}

// Get returns the loader for the path's extension.
func (r *Registry) Get(path string) (driven.DocumentLoader, error) {
	ext := strings.ToLower(filepath.Ext(path))
	r.mu.RLock()
	defer r.mu.RUnlock()
	loader, ok := r.loaders[ext]
	if !ok {
		return nil, fmt.Errorf("no loader for %q: %w", ext, domain.ErrUnsupportedType)
	}
	return loader, nil
}

// Supports reports whether a loader exists for the path.
func (r *Registry) Supports(path string) bool {
	_, err := r.Get(path)
	return err == nil
}
