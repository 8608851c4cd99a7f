package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/groundwork/internal/core/domain"
	"github.com/custodia-labs/groundwork/internal/core/ports/driven"
)

// Ensure ChunkStore implements the interface.
var _ driven.ChunkStore = (*ChunkStore)(nil)

// ChunkStore is an in-memory implementation of driven.ChunkStore.
// Ids are assigned from monotonically increasing counters and never reused.
type ChunkStore struct {
	mu        sync.RWMutex
	documents map[int64]domain.Document
	chunks    map[int64]domain.Chunk
	byDoc     map[int64][]int64
	nextDoc   int64
	nextChunk int64

	// FailReplace makes ReplaceDocument return this error when set.
	FailReplace error
}

// NewChunkStore creates a new in-memory chunk store.
func NewChunkStore() *ChunkStore {
	return &ChunkStore{
		documents: make(map[int64]domain.Document),
		chunks:    make(map[int64]domain.Chunk),
		byDoc:     make(map[int64][]int64),
	}
}

// GetOrCreateDocument returns the document for (source, title), creating it if needed.
func (s *ChunkStore) GetOrCreateDocument(_ context.Context, doc domain.Document) (*domain.Document, error) {
	if doc.Source == "" || doc.Title == "" {
		return nil, fmt.Errorf("document source and title required: %w", domain.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for id, existing := range s.documents {
		if existing.Source == doc.Source && existing.Title == doc.Title {
			existing.URL = doc.URL
			existing.RevisionDate = doc.RevisionDate
			s.documents[id] = existing
			return &existing, nil
		}
	}

	s.nextDoc++
	doc.ID = s.nextDoc
	doc.CreatedAt = time.Now().UTC()
	s.documents[doc.ID] = doc
	return &doc, nil
}

// ReplaceDocument swaps a document's chunks for the given drafts.
func (s *ChunkStore) ReplaceDocument(
	_ context.Context, documentID int64, drafts []domain.ChunkDraft,
) ([]domain.Chunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailReplace != nil {
		return nil, s.FailReplace
	}
	if _, ok := s.documents[documentID]; !ok {
		return nil, fmt.Errorf("document %d: %w", documentID, domain.ErrNotFound)
	}

	for _, id := range s.byDoc[documentID] {
		delete(s.chunks, id)
	}

	out := make([]domain.Chunk, 0, len(drafts))
	ids := make([]int64, 0, len(drafts))
	for _, d := range drafts {
		s.nextChunk++
		c := domain.Chunk{
			ID:         s.nextChunk,
			DocumentID: documentID,
			Text:       d.Text,
			TokenCount: d.TokenCount,
			Section:    d.Section,
			Position:   d.Position,
			Metadata:   d.Metadata,
		}
		s.chunks[c.ID] = c
		ids = append(ids, c.ID)
		out = append(out, c)
	}
	s.byDoc[documentID] = ids

	return out, nil
}

// ChunksByIDs returns the known chunks among ids in ascending id order.
func (s *ChunkStore) ChunksByIDs(_ context.Context, ids []int64) ([]domain.IndexedChunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[int64]bool, len(ids))
	var out []domain.IndexedChunk
	for _, id := range ids {
		c, ok := s.chunks[id]
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, domain.IndexedChunk{Chunk: c, Document: s.documents[c.DocumentID]})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Chunk.ID < out[j].Chunk.ID })
	return out, nil
}

// ChunkTextsByIDs returns the text of each known chunk id.
func (s *ChunkStore) ChunkTextsByIDs(_ context.Context, ids []int64) (map[int64]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	texts := make(map[int64]string, len(ids))
	for _, id := range ids {
		if c, ok := s.chunks[id]; ok {
			texts[id] = c.Text
		}
	}
	return texts, nil
}

// AllChunks returns every chunk ordered by document id then chunk id.
func (s *ChunkStore) AllChunks(_ context.Context) ([]domain.IndexedChunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.IndexedChunk, 0, len(s.chunks))
	for _, c := range s.chunks {
		out = append(out, domain.IndexedChunk{Chunk: c, Document: s.documents[c.DocumentID]})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Document.ID != out[j].Document.ID {
			return out[i].Document.ID < out[j].Document.ID
		}
		return out[i].Chunk.ID < out[j].Chunk.ID
	})
	return out, nil
}

// CountDocuments returns the number of documents.
func (s *ChunkStore) CountDocuments(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.documents), nil
}

// CountChunks returns the number of chunks.
func (s *ChunkStore) CountChunks(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks), nil
}

// RecentDocuments returns the newest documents first.
func (s *ChunkStore) RecentDocuments(_ context.Context, limit int) ([]domain.DocumentSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.DocumentSummary, 0, len(s.documents))
	for id, doc := range s.documents {
		out = append(out, domain.DocumentSummary{Document: doc, ChunkCount: len(s.byDoc[id])})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Document.ID > out[j].Document.ID })

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Ensure AuditStore implements the interface.
var _ driven.AuditStore = (*AuditStore)(nil)

// AuditStore is an in-memory implementation of driven.AuditStore.
type AuditStore struct {
	mu           sync.Mutex
	Interactions []domain.Interaction
	Citations    []domain.Citation
	Feedback     []domain.Feedback
}

// NewAuditStore creates a new in-memory audit store.
func NewAuditStore() *AuditStore {
	return &AuditStore{}
}

// CreateInteraction records an interaction and its citations.
func (s *AuditStore) CreateInteraction(
	_ context.Context, in domain.Interaction, citations []domain.Citation,
) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	in.ID = int64(len(s.Interactions) + 1)
	s.Interactions = append(s.Interactions, in)
	for _, c := range citations {
		c.InteractionID = in.ID
		c.ID = int64(len(s.Citations) + 1)
		s.Citations = append(s.Citations, c)
	}
	return in.ID, nil
}

// CreateFeedback records feedback for a known interaction.
func (s *AuditStore) CreateFeedback(_ context.Context, fb domain.Feedback) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if fb.InteractionID <= 0 || fb.InteractionID > int64(len(s.Interactions)) {
		return 0, fmt.Errorf("interaction %d: %w", fb.InteractionID, domain.ErrNotFound)
	}
	fb.ID = int64(len(s.Feedback) + 1)
	s.Feedback = append(s.Feedback, fb)
	return fb.ID, nil
}
