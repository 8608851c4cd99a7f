package services

import (
	"context"
	"sync"

	"github.com/custodia-labs/groundwork/internal/core/domain"
)

// --- Mock implementations ---

// mockEmbeddingService implements driven.EmbeddingService for testing.
// By default every text maps to a fixed non-zero vector.
type mockEmbeddingService struct {
	mu       sync.Mutex
	embedFn  func(texts []string) ([][]float32, error)
	calls    int
	batches  [][]string
	model    string
	pingErr  error
	closeErr error
}

func (m *mockEmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := m.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (m *mockEmbeddingService) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	m.calls++
	m.batches = append(m.batches, append([]string(nil), texts...))
	m.mu.Unlock()

	if m.embedFn != nil {
		return m.embedFn(texts)
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{3, 4}
	}
	return out, nil
}

func (m *mockEmbeddingService) Dimensions() int { return 2 }

func (m *mockEmbeddingService) ModelName() string {
	if m.model == "" {
		return "mock-embed"
	}
	return m.model
}

func (m *mockEmbeddingService) Ping(_ context.Context) error { return m.pingErr }

func (m *mockEmbeddingService) Close() error { return m.closeErr }

// mockVectorIndex implements driven.VectorIndex for testing. Errors are
// consumed in order, one per call, so tests can script recoveries.
type mockVectorIndex struct {
	mu         sync.Mutex
	exists     bool
	hits       []domain.IndexHit
	records    map[int]domain.MetadataRecord
	searchErrs []error
	appendErr  error
	replaceErr error
	searches   int
	appended   int
	replaced   int
	size       int
}

func (m *mockVectorIndex) Exists() bool { return m.exists }

func (m *mockVectorIndex) Search(_ context.Context, _ []float32, k int) ([]domain.IndexHit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.searches++
	if len(m.searchErrs) > 0 {
		err := m.searchErrs[0]
		m.searchErrs = m.searchErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	hits := make([]domain.IndexHit, max(0, min(k, len(m.hits))))
	for i := range hits {
		hits[i] = m.hits[i]
		if rec, ok := m.records[hits[i].Slot]; ok {
			hits[i].Record = rec
		}
	}
	return hits, nil
}

func (m *mockVectorIndex) MetadataAt(_ context.Context, slot int) (domain.MetadataRecord, error) {
	rec, ok := m.records[slot]
	if !ok {
		return domain.MetadataRecord{}, domain.ErrIndexCorrupt
	}
	return rec, nil
}

func (m *mockVectorIndex) Len(_ context.Context) (int, error) {
	return m.size, nil
}

func (m *mockVectorIndex) Replace(_ context.Context, vectors [][]float32, _ []domain.MetadataRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.replaced++
	if m.replaceErr != nil {
		return m.replaceErr
	}
	m.exists = true
	m.size = len(vectors)
	return nil
}

func (m *mockVectorIndex) Append(_ context.Context, vectors [][]float32, _ []domain.MetadataRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.appended++
	if m.appendErr != nil {
		return m.appendErr
	}
	m.size += len(vectors)
	return nil
}

func (m *mockVectorIndex) Close() error { return nil }

// mockReranker implements driven.Reranker for testing.
type mockReranker struct {
	scores   []float64
	err      error
	passages []string
}

func (m *mockReranker) Score(_ context.Context, _ string, candidates []string) ([]float64, error) {
	m.passages = candidates
	if m.err != nil {
		return nil, m.err
	}
	return m.scores, nil
}

func (m *mockReranker) ModelName() string { return "mock-rerank" }

func (m *mockReranker) Close() error { return nil }

// mockGenerator implements driven.Generator for testing.
type mockGenerator struct {
	gen    *domain.Generation
	err    error
	prompt string
}

func (m *mockGenerator) Generate(_ context.Context, prompt string) (*domain.Generation, error) {
	m.prompt = prompt
	if m.err != nil {
		return nil, m.err
	}
	return m.gen, nil
}

func (m *mockGenerator) ModelName() string { return "mock-llm" }

func (m *mockGenerator) Ping(_ context.Context) error { return nil }

func (m *mockGenerator) Close() error { return nil }

// mockRecoverer implements IndexRecoverer for testing.
type mockRecoverer struct {
	calls int
	err   error
}

func (m *mockRecoverer) RebuildFull(_ context.Context) (*domain.IndexReport, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return &domain.IndexReport{Action: domain.IndexActionRebuild}, nil
}

// mockRetriever implements driving.RetrievalService for testing.
type mockRetriever struct {
	results []domain.Result
	err     error
	opts    domain.RetrieveOptions
}

func (m *mockRetriever) Retrieve(_ context.Context, _ string, opts domain.RetrieveOptions) ([]domain.Result, error) {
	m.opts = opts
	if m.err != nil {
		return nil, m.err
	}
	return m.results, nil
}

// mockPromptStore implements driven.PromptStore for testing.
type mockPromptStore struct {
	prompt string
	err    error
}

func (m *mockPromptStore) Load(_ string) (string, error) { return m.prompt, m.err }

// mockIndexService implements driving.IndexService for testing.
type mockIndexService struct {
	rebuilds   int
	updates    [][]int64
	rebuildErr error
}

func (m *mockIndexService) RebuildFull(_ context.Context) (*domain.IndexReport, error) {
	m.rebuilds++
	if m.rebuildErr != nil {
		return nil, m.rebuildErr
	}
	return &domain.IndexReport{Action: domain.IndexActionRebuild}, nil
}

func (m *mockIndexService) AppendIncremental(_ context.Context, ids []int64) (*domain.IndexReport, error) {
	return &domain.IndexReport{Action: domain.IndexActionAppend, Added: len(ids)}, nil
}

func (m *mockIndexService) UpdateIndex(_ context.Context, ids []int64) (*domain.IndexReport, error) {
	m.updates = append(m.updates, ids)
	return &domain.IndexReport{Action: domain.IndexActionAppend, Added: len(ids)}, nil
}
