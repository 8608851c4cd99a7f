// Package postprocessors turns loaded documents into chunk drafts through
// an ordered list of stages.
package postprocessors

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/groundwork/internal/core/domain"
	"github.com/custodia-labs/groundwork/internal/core/ports/driven"
)

// Ensure Pipeline implements the interface.
var _ driven.PostProcessorPipeline = (*Pipeline)(nil)

// Pipeline runs stages in order. Stages before the first draft-producing
// one see nil drafts and may rewrite the document content.
type Pipeline struct {
	stages []driven.PostProcessor
}

// NewPipeline creates a pipeline over stages. The slice is copied.
func NewPipeline(stages ...driven.PostProcessor) *Pipeline {
	return &Pipeline{stages: append([]driven.PostProcessor(nil), stages...)}
}

// Process runs doc through every stage. The document is not modified; each
// run works on a copy so one pipeline can serve concurrent callers.
func (p *Pipeline) Process(ctx context.Context, doc *domain.LoadedDocument) ([]domain.ChunkDraft, error) {
	if doc == nil {
		return nil, errors.New("process document: nil document")
	}
	work := *doc

	var drafts []domain.ChunkDraft
	for _, stage := range p.stages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var err error
		drafts, err = stage.Process(ctx, &work, drafts)
		if err != nil {
			return nil, fmt.Errorf("stage %s: %w", stage.Name(), err)
		}
	}
	return drafts, nil
}

// Stages returns the stage names in run order.
func (p *Pipeline) Stages() []string {
	names := make([]string, len(p.stages))
	for i, stage := range p.stages {
		names[i] = stage.Name()
	}
	return names
}
