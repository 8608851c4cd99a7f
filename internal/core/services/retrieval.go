package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/custodia-labs/groundwork/internal/core/domain"
	"github.com/custodia-labs/groundwork/internal/core/ports/driven"
	"github.com/custodia-labs/groundwork/internal/core/ports/driving"
	"github.com/custodia-labs/groundwork/internal/logger"
)

// Ensure RetrievalService implements the interface.
var _ driving.RetrievalService = (*RetrievalService)(nil)

// expansionSeeds is the number of leading hits whose titles seed
// title expansion.
const expansionSeeds = 3

// IndexRecoverer rebuilds a corrupt index.
type IndexRecoverer interface {
	RebuildFull(ctx context.Context) (*domain.IndexReport, error)
}

// RetrievalConfig toggles the optional retrieval stages.
type RetrievalConfig struct {
	// QueryExpansion re-searches once with the leading hits' titles
	// appended to the query.
	QueryExpansion bool

	// Rerank orders candidates with the cross-encoder.
	Rerank bool
}

// RetrievalService embeds a query, searches the vector index and returns
// hydrated passages.
type RetrievalService struct {
	gateway   *EmbeddingGateway
	index     driven.VectorIndex
	store     driven.ChunkStore
	reranker  driven.Reranker
	recoverer IndexRecoverer
	config    RetrievalConfig
}

// NewRetrievalService creates a retrieval service. reranker and recoverer
// are optional (can be nil).
func NewRetrievalService(
	gateway *EmbeddingGateway,
	index driven.VectorIndex,
	store driven.ChunkStore,
	reranker driven.Reranker,
	recoverer IndexRecoverer,
	config RetrievalConfig,
) *RetrievalService {
	return &RetrievalService{
		gateway:   gateway,
		index:     index,
		store:     store,
		reranker:  reranker,
		recoverer: recoverer,
		config:    config,
	}
}

// candidate is a search hit with its metadata, before hydration.
type candidate struct {
	hit  domain.IndexHit
	meta domain.MetadataRecord
}

// Retrieve returns at most opts.KFinal passages ranked 1..n. A corrupt
// index is rebuilt once through the recoverer before giving up.
func (s *RetrievalService) Retrieve(
	ctx context.Context, query string, opts domain.RetrieveOptions,
) ([]domain.Result, error) {
	logger.Section("Retrieval")
	opts = opts.WithDefaults()
	logger.Debug("Query: %q, top_k=%d, k_final=%d", query, opts.TopK, opts.KFinal)

	if s.config.Rerank && s.reranker == nil {
		return nil, fmt.Errorf("retrieve: %w", domain.ErrRerankUnavailable)
	}

	recovered := false
	hits, err := s.searchWithRecovery(ctx, query, opts.TopK, &recovered)
	if err != nil {
		return nil, err
	}

	if s.config.QueryExpansion && len(hits) > 0 {
		if titles := seedTitles(hits); len(titles) > 0 {
			expanded := query + " " + strings.Join(titles, " ")
			logger.Debug("Expanded query: %q", expanded)
			hits, err = s.searchWithRecovery(ctx, expanded, opts.TopK, &recovered)
			if err != nil {
				return nil, err
			}
		}
	}

	limit := opts.KFinal
	if s.config.Rerank {
		limit = opts.TopK
	}
	candidates := dedupe(hits, limit)
	if len(candidates) == 0 {
		return []domain.Result{}, nil
	}

	results, err := s.hydrate(ctx, candidates)
	if err != nil {
		return nil, err
	}

	if s.config.Rerank {
		if err := s.rerank(ctx, query, results); err != nil {
			return nil, err
		}
	}

	if len(results) > opts.KFinal {
		results = results[:opts.KFinal]
	}
	for i := range results {
		results[i].Rank = i + 1
	}

	logger.Debug("Returning %d results", len(results))
	return results, nil
}

// searchWithRecovery embeds text and searches the index. A corrupt index
// is rebuilt through the recoverer and the search retried, at most once
// per retrieval.
func (s *RetrievalService) searchWithRecovery(
	ctx context.Context, text string, topK int, recovered *bool,
) ([]candidate, error) {
	vec, err := s.gateway.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	hits, err := s.search(ctx, vec, topK)
	if errors.Is(err, domain.ErrIndexCorrupt) && s.recoverer != nil && !*recovered {
		*recovered = true
		logger.Warn("Index corrupt, rebuilding: %v", err)
		if _, rebuildErr := s.recoverer.RebuildFull(ctx); rebuildErr != nil {
			return nil, fmt.Errorf("recover index: %w", errors.Join(err, rebuildErr))
		}
		hits, err = s.search(ctx, vec, topK)
	}
	return hits, err
}

// search runs the nearest-neighbour query. Metadata travels with each hit
// so scores and records always come from the same index version.
func (s *RetrievalService) search(ctx context.Context, vec []float32, topK int) ([]candidate, error) {
	hits, err := s.index.Search(ctx, vec, topK)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}

	out := make([]candidate, len(hits))
	for i, h := range hits {
		out[i] = candidate{hit: h, meta: h.Record}
	}
	return out, nil
}

// seedTitles returns the distinct non-empty titles of the leading hits in
// first-seen order.
func seedTitles(hits []candidate) []string {
	var titles []string
	seen := make(map[string]struct{})
	for _, c := range hits[:min(expansionSeeds, len(hits))] {
		if c.meta.Title == "" {
			continue
		}
		if _, ok := seen[c.meta.Title]; ok {
			continue
		}
		seen[c.meta.Title] = struct{}{}
		titles = append(titles, c.meta.Title)
	}
	return titles
}

// dedupe keeps the first hit per chunk id, up to limit.
func dedupe(hits []candidate, limit int) []candidate {
	out := make([]candidate, 0, min(limit, len(hits)))
	seen := make(map[int64]struct{}, len(hits))
	for _, c := range hits {
		if len(out) == limit {
			break
		}
		if _, dup := seen[c.meta.ChunkID]; dup {
			continue
		}
		seen[c.meta.ChunkID] = struct{}{}
		out = append(out, c)
	}
	return out
}

// hydrate fetches full chunk texts in one batch. Chunks missing from the
// store keep the metadata preview.
func (s *RetrievalService) hydrate(ctx context.Context, candidates []candidate) ([]domain.Result, error) {
	ids := make([]int64, len(candidates))
	for i, c := range candidates {
		ids[i] = c.meta.ChunkID
	}

	texts, err := s.store.ChunkTextsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("hydrate chunks: %w", err)
	}

	results := make([]domain.Result, len(candidates))
	for i, c := range candidates {
		text := texts[c.meta.ChunkID]
		if text == "" {
			logger.Debug("Chunk %d not in store, using preview", c.meta.ChunkID)
			text = c.meta.Text
		}
		results[i] = domain.Result{
			Score:    c.hit.Score,
			Title:    c.meta.Title,
			URL:      c.meta.URL,
			Source:   c.meta.Source,
			Section:  c.meta.Section,
			Position: c.meta.Position,
			ChunkID:  c.meta.ChunkID,
			Slot:     c.hit.Slot,
			Text:     text,
		}
	}
	return results, nil
}

// rerank replaces scores with cross-encoder scores over title and
// section and stably sorts descending.
func (s *RetrievalService) rerank(ctx context.Context, query string, results []domain.Result) error {
	passages := make([]string, len(results))
	for i, r := range results {
		passages[i] = strings.TrimSpace(r.Title + " " + r.Section)
	}

	scores, err := s.reranker.Score(ctx, query, passages)
	if err != nil {
		return fmt.Errorf("rerank: %w", err)
	}
	if len(scores) != len(results) {
		return fmt.Errorf("rerank: %d scores for %d passages: %w", len(scores), len(results), domain.ErrInvalidInput)
	}

	for i := range results {
		results[i].Score = scores[i]
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return nil
}
