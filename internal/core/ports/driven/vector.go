package driven

import (
	"context"

	"github.com/custodia-labs/groundwork/internal/core/domain"
)

// VectorIndex is an exact inner-product index over unit vectors with a
// metadata sidecar. Slot i of the vectors is described by metadata record i.
type VectorIndex interface {
	// Exists reports whether both artifacts are present.
	Exists() bool

	// Search returns up to k hits by descending inner product. Each hit
	// carries its metadata record, read from the same loaded version of
	// the index as its score, so a concurrent rebuild cannot pair a slot
	// with another version's record.
	// Returns domain.ErrIndexNotFound when the artifacts are missing and
	// domain.ErrIndexCorrupt when they are misaligned.
	Search(ctx context.Context, query []float32, k int) ([]domain.IndexHit, error)

	// MetadataAt returns the record at slot in the current version of the
	// index. Slots from an earlier Search may describe a different version.
	MetadataAt(ctx context.Context, slot int) (domain.MetadataRecord, error)

	// Len returns the number of aligned entries, or 0 when absent.
	Len(ctx context.Context) (int, error)

	// Replace writes both artifacts from scratch.
	Replace(ctx context.Context, vectors [][]float32, records []domain.MetadataRecord) error

	// Append extends both artifacts. When either artifact is missing, the
	// entries become the whole index.
	Append(ctx context.Context, vectors [][]float32, records []domain.MetadataRecord) error

	// Close releases resources.
	Close() error
}
