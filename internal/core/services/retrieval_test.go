package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/groundwork/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/groundwork/internal/core/domain"
)

func mockHits(n int) ([]domain.IndexHit, map[int]domain.MetadataRecord) {
	hits := make([]domain.IndexHit, n)
	records := make(map[int]domain.MetadataRecord, n)
	for i := 0; i < n; i++ {
		hits[i] = domain.IndexHit{Slot: i, Score: 0.9 - float64(i)*0.05}
		records[i] = domain.MetadataRecord{
			Title:   string(rune('A' + i)),
			Source:  "docs.md",
			Section: "section",
			ChunkID: int64(i + 1),
			Text:    "preview",
		}
	}
	return hits, records
}

func newMockRetrieval(index *mockVectorIndex, config RetrievalConfig) (*RetrievalService, *mockEmbeddingService) {
	provider := &mockEmbeddingService{}
	return NewRetrievalService(NewEmbeddingGateway(provider, 8), index, memory.NewChunkStore(), nil, nil, config), provider
}

func TestRetrievalService_SelfMatch(t *testing.T) {
	s := newTestStack(t)
	texts := distinctTexts("handbook", 8)
	s.seed(t, "handbook", texts...)
	ctx := context.Background()
	_, err := s.service.RebuildFull(ctx)
	require.NoError(t, err)
	retrieval := NewRetrievalService(s.gateway, s.index, s.store, nil, s.service, RetrievalConfig{})

	results, err := retrieval.Retrieve(ctx, texts[3], domain.RetrieveOptions{TopK: 8, KFinal: 3})

	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.GreaterOrEqual(t, results[0].Score, 0.95)
	assert.Equal(t, texts[3], results[0].Text)
	assert.Equal(t, "handbook", results[0].Title)
}

func TestRetrievalService_RanksAndLimits(t *testing.T) {
	s := newTestStack(t)
	s.seed(t, "one", distinctTexts("one", 15)...)
	s.seed(t, "two", distinctTexts("two", 15)...)
	ctx := context.Background()
	_, err := s.service.RebuildFull(ctx)
	require.NoError(t, err)
	retrieval := NewRetrievalService(s.gateway, s.index, s.store, nil, nil, RetrievalConfig{})

	results, err := retrieval.Retrieve(ctx, "one alpha delta", domain.RetrieveOptions{TopK: 20, KFinal: 5})

	require.NoError(t, err)
	require.Len(t, results, 5)
	seen := make(map[int64]bool)
	for i, r := range results {
		assert.Equal(t, i+1, r.Rank)
		assert.False(t, seen[r.ChunkID], "duplicate chunk %d", r.ChunkID)
		seen[r.ChunkID] = true
		assert.NotEmpty(t, r.Text)
		if i > 0 {
			assert.LessOrEqual(t, r.Score, results[i-1].Score)
		}
	}
}

func TestRetrievalService_IndexMissing(t *testing.T) {
	s := newTestStack(t)
	retrieval := NewRetrievalService(s.gateway, s.index, s.store, nil, s.service, RetrievalConfig{})

	_, err := retrieval.Retrieve(context.Background(), "anything", domain.RetrieveOptions{})

	assert.ErrorIs(t, err, domain.ErrIndexNotFound)
}

func TestRetrievalService_NoHits(t *testing.T) {
	retrieval, _ := newMockRetrieval(&mockVectorIndex{exists: true}, RetrievalConfig{})

	results, err := retrieval.Retrieve(context.Background(), "query", domain.RetrieveOptions{})

	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestRetrievalService_DefaultOptions(t *testing.T) {
	hits, records := mockHits(25)
	index := &mockVectorIndex{exists: true, hits: hits, records: records}
	retrieval, _ := newMockRetrieval(index, RetrievalConfig{})

	results, err := retrieval.Retrieve(context.Background(), "query", domain.RetrieveOptions{})

	require.NoError(t, err)
	assert.Len(t, results, domain.DefaultKFinal)
}

func TestRetrievalService_DedupesChunkIDs(t *testing.T) {
	hits, records := mockHits(4)
	records[1] = records[0]
	index := &mockVectorIndex{exists: true, hits: hits, records: records}
	retrieval, _ := newMockRetrieval(index, RetrievalConfig{})

	results, err := retrieval.Retrieve(context.Background(), "query", domain.RetrieveOptions{TopK: 4, KFinal: 4})

	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, []int64{1, 3, 4}, []int64{results[0].ChunkID, results[1].ChunkID, results[2].ChunkID})
}

func TestRetrievalService_UsesRecordsFromSearch(t *testing.T) {
	hits, records := mockHits(2)
	for i := range hits {
		hits[i].Record = records[i]
	}
	// No slot lookups: MetadataAt would report every slot as corrupt.
	index := &mockVectorIndex{exists: true, hits: hits}
	retrieval, _ := newMockRetrieval(index, RetrievalConfig{})

	results, err := retrieval.Retrieve(context.Background(), "query", domain.RetrieveOptions{TopK: 2, KFinal: 2})

	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "A", results[0].Title)
	assert.Equal(t, int64(2), results[1].ChunkID)
}

func TestRetrievalService_PreviewFallback(t *testing.T) {
	hits, records := mockHits(2)
	index := &mockVectorIndex{exists: true, hits: hits, records: records}
	retrieval, _ := newMockRetrieval(index, RetrievalConfig{})

	results, err := retrieval.Retrieve(context.Background(), "query", domain.RetrieveOptions{TopK: 2, KFinal: 2})

	require.NoError(t, err)
	for _, r := range results {
		assert.Equal(t, "preview", r.Text)
	}
}

func TestRetrievalService_RecoversCorruptIndexOnce(t *testing.T) {
	hits, records := mockHits(3)
	index := &mockVectorIndex{
		exists:     true,
		hits:       hits,
		records:    records,
		searchErrs: []error{domain.ErrIndexCorrupt, nil},
	}
	recoverer := &mockRecoverer{}
	provider := &mockEmbeddingService{}
	retrieval := NewRetrievalService(NewEmbeddingGateway(provider, 8), index, memory.NewChunkStore(), nil, recoverer, RetrievalConfig{})

	results, err := retrieval.Retrieve(context.Background(), "query", domain.RetrieveOptions{TopK: 3, KFinal: 3})

	require.NoError(t, err)
	assert.Len(t, results, 3)
	assert.Equal(t, 1, recoverer.calls)
	assert.Equal(t, 2, index.searches)
}

func TestRetrievalService_CorruptAfterRecoveryFails(t *testing.T) {
	index := &mockVectorIndex{
		exists:     true,
		searchErrs: []error{domain.ErrIndexCorrupt, domain.ErrIndexCorrupt},
	}
	recoverer := &mockRecoverer{}
	provider := &mockEmbeddingService{}
	retrieval := NewRetrievalService(NewEmbeddingGateway(provider, 8), index, memory.NewChunkStore(), nil, recoverer, RetrievalConfig{})

	_, err := retrieval.Retrieve(context.Background(), "query", domain.RetrieveOptions{})

	assert.ErrorIs(t, err, domain.ErrIndexCorrupt)
	assert.Equal(t, 1, recoverer.calls)
}

func TestRetrievalService_RecoveryFailure(t *testing.T) {
	index := &mockVectorIndex{exists: true, searchErrs: []error{domain.ErrIndexCorrupt}}
	recoverer := &mockRecoverer{err: domain.ErrNoChunks}
	provider := &mockEmbeddingService{}
	retrieval := NewRetrievalService(NewEmbeddingGateway(provider, 8), index, memory.NewChunkStore(), nil, recoverer, RetrievalConfig{})

	_, err := retrieval.Retrieve(context.Background(), "query", domain.RetrieveOptions{})

	assert.ErrorIs(t, err, domain.ErrIndexCorrupt)
	assert.ErrorIs(t, err, domain.ErrNoChunks)
}

func TestRetrievalService_EmbeddingFailure(t *testing.T) {
	provider := &mockEmbeddingService{embedFn: func(_ []string) ([][]float32, error) {
		return nil, errors.New("offline")
	}}
	retrieval := NewRetrievalService(NewEmbeddingGateway(provider, 8), &mockVectorIndex{exists: true},
		memory.NewChunkStore(), nil, nil, RetrievalConfig{})

	_, err := retrieval.Retrieve(context.Background(), "query", domain.RetrieveOptions{})

	assert.ErrorIs(t, err, domain.ErrEmbedding)
}

func TestRetrievalService_Rerank(t *testing.T) {
	hits, records := mockHits(4)
	index := &mockVectorIndex{exists: true, hits: hits, records: records}
	reranker := &mockReranker{scores: []float64{0.1, 0.8, 0.8, 0.5}}
	provider := &mockEmbeddingService{}
	retrieval := NewRetrievalService(NewEmbeddingGateway(provider, 8), index, memory.NewChunkStore(), reranker, nil,
		RetrievalConfig{Rerank: true})

	results, err := retrieval.Retrieve(context.Background(), "query", domain.RetrieveOptions{TopK: 4, KFinal: 3})

	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, []string{"A section", "B section", "C section", "D section"}, reranker.passages)
	// Ties keep their retrieval order.
	assert.Equal(t, "B", results[0].Title)
	assert.Equal(t, "C", results[1].Title)
	assert.Equal(t, "D", results[2].Title)
	assert.Equal(t, 0.8, results[0].Score)
	assert.Equal(t, 3, results[2].Rank)
}

func TestRetrievalService_RerankScoreMismatch(t *testing.T) {
	hits, records := mockHits(3)
	index := &mockVectorIndex{exists: true, hits: hits, records: records}
	reranker := &mockReranker{scores: []float64{0.1}}
	provider := &mockEmbeddingService{}
	retrieval := NewRetrievalService(NewEmbeddingGateway(provider, 8), index, memory.NewChunkStore(), reranker, nil,
		RetrievalConfig{Rerank: true})

	_, err := retrieval.Retrieve(context.Background(), "query", domain.RetrieveOptions{TopK: 3, KFinal: 3})

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestRetrievalService_RerankUnavailable(t *testing.T) {
	retrieval, provider := newMockRetrieval(&mockVectorIndex{exists: true}, RetrievalConfig{Rerank: true})

	_, err := retrieval.Retrieve(context.Background(), "query", domain.RetrieveOptions{})

	assert.ErrorIs(t, err, domain.ErrRerankUnavailable)
	assert.Zero(t, provider.calls)
}

func TestRetrievalService_QueryExpansion(t *testing.T) {
	hits, records := mockHits(5)
	index := &mockVectorIndex{exists: true, hits: hits, records: records}
	retrieval, provider := newMockRetrieval(index, RetrievalConfig{QueryExpansion: true})

	results, err := retrieval.Retrieve(context.Background(), "query", domain.RetrieveOptions{TopK: 5, KFinal: 2})

	require.NoError(t, err)
	assert.Len(t, results, 2)
	assert.Equal(t, 2, index.searches)
	require.Len(t, provider.batches, 2)
	assert.Equal(t, []string{"query A B C"}, provider.batches[1])
}

func TestSeedTitles(t *testing.T) {
	hits := []candidate{
		{meta: domain.MetadataRecord{Title: "Guide"}},
		{meta: domain.MetadataRecord{Title: ""}},
		{meta: domain.MetadataRecord{Title: "Guide"}},
		{meta: domain.MetadataRecord{Title: "FAQ"}},
	}

	assert.Equal(t, []string{"Guide"}, seedTitles(hits))
	assert.Equal(t, []string{"Guide", "FAQ"}, seedTitles(hits[2:]))
	assert.Nil(t, seedTitles(hits[1:2]))
}
