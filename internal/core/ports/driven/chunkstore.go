package driven

import (
	"context"

	"github.com/custodia-labs/groundwork/internal/core/domain"
)

// ChunkStore is the durable record of documents and chunks.
// Backed by SQLite. Chunk ids are assigned by the store and never reused.
type ChunkStore interface {
	// GetOrCreateDocument returns the document identified by (source, title),
	// inserting it when absent. URL and revision date are refreshed.
	GetOrCreateDocument(ctx context.Context, doc domain.Document) (*domain.Document, error)

	// ReplaceDocument deletes every chunk of the document and inserts the
	// drafts, in one transaction. Returns the new chunks in position order.
	ReplaceDocument(ctx context.Context, documentID int64, drafts []domain.ChunkDraft) ([]domain.Chunk, error)

	// ChunksByIDs returns the chunks with the given ids joined with their
	// documents, in ascending id order. Unknown ids are skipped.
	ChunksByIDs(ctx context.Context, ids []int64) ([]domain.IndexedChunk, error)

	// ChunkTextsByIDs returns the full text of each known chunk id.
	ChunkTextsByIDs(ctx context.Context, ids []int64) (map[int64]string, error)

	// AllChunks returns every chunk joined with its document, ordered by
	// document id then chunk id. This order defines index slots on rebuild.
	AllChunks(ctx context.Context) ([]domain.IndexedChunk, error)

	// CountDocuments returns the number of stored documents.
	CountDocuments(ctx context.Context) (int, error)

	// CountChunks returns the number of stored chunks.
	CountChunks(ctx context.Context) (int, error)

	// RecentDocuments returns the newest documents with their chunk counts.
	RecentDocuments(ctx context.Context, limit int) ([]domain.DocumentSummary, error)
}

// AuditStore records answered queries. Records are append-only.
type AuditStore interface {
	// CreateInteraction stores the interaction and its citations together
	// and returns the interaction id.
	CreateInteraction(ctx context.Context, in domain.Interaction, citations []domain.Citation) (int64, error)

	// CreateFeedback stores a rating for an interaction.
	CreateFeedback(ctx context.Context, fb domain.Feedback) (int64, error)
}
