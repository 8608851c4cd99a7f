package postprocessors

import (
	"github.com/custodia-labs/groundwork/internal/core/ports/driven"
	"github.com/custodia-labs/groundwork/internal/postprocessors/chunker"
	"github.com/custodia-labs/groundwork/internal/postprocessors/cleaner"
)

// Built-in stage names.
const (
	StageCleaner = "cleaner"
	StageChunker = "chunker"
)

// DefaultStages is the stage order used for ingestion.
var DefaultStages = []string{StageCleaner, StageChunker}

// RegisterDefaults registers the built-in stages.
func RegisterDefaults(r *Registry) {
	r.Register(StageCleaner, func(StageConfig) (driven.PostProcessor, error) {
		return cleaner.New(), nil
	})
	r.Register(StageChunker, func(cfg StageConfig) (driven.PostProcessor, error) {
		return chunker.New(chunker.WithMaxTokens(cfg.MaxTokens), chunker.WithOverlap(cfg.Overlap)), nil
	})
}

// BuildPipeline assembles the default stages for one chunking configuration.
func BuildPipeline(r *Registry, maxTokens, overlap int) (*Pipeline, error) {
	cfg := StageConfig{MaxTokens: maxTokens, Overlap: overlap}
	stages := make([]driven.PostProcessor, 0, len(DefaultStages))
	for _, name := range DefaultStages {
		stage, err := r.Build(name, cfg)
		if err != nil {
			return nil, err
		}
		stages = append(stages, stage)
	}
	return NewPipeline(stages...), nil
}
