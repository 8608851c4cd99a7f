package driving

import (
	"context"

	"github.com/custodia-labs/groundwork/internal/core/domain"
)

// IndexService maintains the vector index artifacts.
type IndexService interface {
	// RebuildFull re-embeds every stored chunk and replaces the artifacts.
	RebuildFull(ctx context.Context) (*domain.IndexReport, error)

	// AppendIncremental embeds the given chunks and appends them.
	AppendIncremental(ctx context.Context, chunkIDs []int64) (*domain.IndexReport, error)

	// UpdateIndex appends the chunks, or rebuilds when the index is absent
	// or the append fails.
	UpdateIndex(ctx context.Context, chunkIDs []int64) (*domain.IndexReport, error)
}
