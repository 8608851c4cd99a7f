package driven

import (
	"context"

	"github.com/custodia-labs/groundwork/internal/core/domain"
)

// PostProcessor is one named stage of the ingest pipeline. Stages that run
// before chunking get nil drafts and may rewrite doc.Content; the chunker
// turns content into drafts; later stages filter or annotate drafts.
type PostProcessor interface {
	Name() string
	Process(ctx context.Context, doc *domain.LoadedDocument, drafts []domain.ChunkDraft) ([]domain.ChunkDraft, error)
}

// PostProcessorPipeline runs stages in order and returns the final drafts.
type PostProcessorPipeline interface {
	Process(ctx context.Context, doc *domain.LoadedDocument) ([]domain.ChunkDraft, error)
}
