package driving

import (
	"context"

	"github.com/custodia-labs/groundwork/internal/core/domain"
)

// IngestService turns source files into stored chunks and keeps the
// vector index in step with the chunk store.
type IngestService interface {
	// Build loads, chunks and stores every supported file under paths.
	// Unless opts.SkipIndex is set, the index is rebuilt from the store.
	// Per-file failures are reported, not returned.
	Build(ctx context.Context, paths []string, opts domain.BuildOptions) (*domain.BuildReport, error)

	// RebuildFromDatabase regenerates the index from every stored chunk.
	RebuildFromDatabase(ctx context.Context) (*domain.IndexReport, error)

	// AddChunksToIndex appends the given chunks, falling back to a full
	// rebuild when the append fails.
	AddChunksToIndex(ctx context.Context, chunkIDs []int64) (*domain.IndexReport, error)

	// IngestUploads stages uploaded files, ingests them and updates the index.
	IngestUploads(ctx context.Context, uploads []domain.Upload, opts domain.BuildOptions) (*domain.UploadReport, error)

	// Status describes the corpus and index.
	Status(ctx context.Context) (*domain.IngestStatus, error)

	// Watch ingests supported files under dirs as they change until ctx ends.
	Watch(ctx context.Context, dirs []string, opts domain.BuildOptions) error
}
