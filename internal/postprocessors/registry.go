package postprocessors

import (
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/groundwork/internal/core/domain"
	"github.com/custodia-labs/groundwork/internal/core/ports/driven"
)

// StageConfig holds the per-run parameters handed to every stage builder.
type StageConfig struct {
	// MaxTokens is the chunk window in words. Zero or less keeps sections whole.
	MaxTokens int

	// Overlap is the number of words repeated between consecutive windows.
	Overlap int
}

// BuilderFunc creates a stage for one ingestion run.
type BuilderFunc func(cfg StageConfig) (driven.PostProcessor, error)

// Registry maps stage names to builders. Safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	builders map[string]BuilderFunc
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{builders: make(map[string]BuilderFunc)}
}

// Register adds a builder under name. It panics if name is taken.
func (r *Registry) Register(name string, builder BuilderFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.builders[name]; dup {
		panic("postprocessors: stage registered twice: " + name)
	}
	r.builders[name] = builder
}

// Build creates the named stage.
func (r *Registry) Build(name string, cfg StageConfig) (driven.PostProcessor, error) {
	r.mu.RLock()
	builder, ok := r.builders[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("build stage %q: %w", name, domain.ErrInvalidInput)
	}
	stage, err := builder(cfg)
	if err != nil {
		return nil, fmt.Errorf("build stage %q: %w", name, err)
	}
	return stage, nil
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.builders[name]
	return ok
}

// Names returns the registered stage names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.builders))
	for name := range r.builders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
