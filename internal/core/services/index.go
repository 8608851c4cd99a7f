package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/custodia-labs/groundwork/internal/core/domain"
	"github.com/custodia-labs/groundwork/internal/core/ports/driven"
	"github.com/custodia-labs/groundwork/internal/core/ports/driving"
	"github.com/custodia-labs/groundwork/internal/logger"
)

// Ensure IndexService implements the interface.
var _ driving.IndexService = (*IndexService)(nil)

// IndexService keeps the vector index consistent with the chunk store.
// Mutations are serialised; readers go straight to the index.
type IndexService struct {
	mu      sync.Mutex
	store   driven.ChunkStore
	index   driven.VectorIndex
	gateway *EmbeddingGateway
}

// NewIndexService creates an index service.
func NewIndexService(store driven.ChunkStore, index driven.VectorIndex, gateway *EmbeddingGateway) *IndexService {
	return &IndexService{
		store:   store,
		index:   index,
		gateway: gateway,
	}
}

// RebuildFull re-embeds every stored chunk and replaces both artifacts.
// Nothing is written unless every chunk embeds.
func (s *IndexService) RebuildFull(ctx context.Context) (*domain.IndexReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.rebuild(ctx)
}

// AppendIncremental embeds the given chunks and appends them to the index.
func (s *IndexService) AppendIncremental(ctx context.Context, chunkIDs []int64) (*domain.IndexReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.append(ctx, chunkIDs)
}

// UpdateIndex brings the index up to date after new chunks were stored.
// It appends when it can and rebuilds otherwise.
func (s *IndexService) UpdateIndex(ctx context.Context, chunkIDs []int64) (*domain.IndexReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	action := planUpdate(s.index.Exists(), chunkIDs)
	logger.Debug("Index update: %d chunks, plan %s", len(chunkIDs), action)

	fellBack := false
	for {
		var report *domain.IndexReport
		var err error

		switch action {
		case domain.IndexActionNoop:
			n, lenErr := s.index.Len(ctx)
			if lenErr != nil && !errors.Is(lenErr, domain.ErrIndexNotFound) {
				return nil, fmt.Errorf("read index size: %w", lenErr)
			}
			return &domain.IndexReport{Action: domain.IndexActionNoop, Vectors: n}, nil
		case domain.IndexActionAppend:
			report, err = s.append(ctx, chunkIDs)
		default:
			report, err = s.rebuild(ctx)
		}

		if err == nil {
			report.FellBack = fellBack
			return report, nil
		}

		next, retry := nextAction(action, err)
		if !retry {
			return nil, err
		}
		logger.Warn("Index %s failed, falling back to %s: %v", action, next, err)
		action = next
		fellBack = true
	}
}

// planUpdate chooses the first step of an index update. Missing artifacts
// force a rebuild so chunks stored while no index existed are included.
func planUpdate(exists bool, chunkIDs []int64) domain.IndexAction {
	switch {
	case !exists:
		return domain.IndexActionRebuild
	case len(chunkIDs) == 0:
		return domain.IndexActionNoop
	default:
		return domain.IndexActionAppend
	}
}

// nextAction decides what follows a failed step. Any append failure
// falls back to a rebuild; a failed rebuild is final.
func nextAction(failed domain.IndexAction, err error) (domain.IndexAction, bool) {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return failed, false
	}
	if failed == domain.IndexActionAppend {
		return domain.IndexActionRebuild, true
	}
	return failed, false
}

func (s *IndexService) rebuild(ctx context.Context) (*domain.IndexReport, error) {
	done := logger.Timed("Rebuild index")
	defer done()

	chunks, err := s.store.AllChunks(ctx)
	if err != nil {
		return nil, fmt.Errorf("load chunks: %w", err)
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("rebuild index: %w", domain.ErrNoChunks)
	}

	vectors, records, err := s.embedChunks(ctx, chunks)
	if err != nil {
		return nil, fmt.Errorf("rebuild index: %w", err)
	}

	if err := s.index.Replace(ctx, vectors, records); err != nil {
		return nil, fmt.Errorf("replace index: %w", err)
	}

	logger.Info("Rebuilt index with %d vectors", len(vectors))
	return &domain.IndexReport{
		Action:  domain.IndexActionRebuild,
		Added:   len(vectors),
		Vectors: len(vectors),
	}, nil
}

func (s *IndexService) append(ctx context.Context, chunkIDs []int64) (*domain.IndexReport, error) {
	chunks, err := s.store.ChunksByIDs(ctx, chunkIDs)
	if err != nil {
		return nil, fmt.Errorf("load chunks: %w", err)
	}
	if len(chunks) != len(uniqueIDs(chunkIDs)) {
		logger.Warn("Append requested %d chunks, %d found", len(chunkIDs), len(chunks))
	}

	if len(chunks) > 0 {
		vectors, records, err := s.embedChunks(ctx, chunks)
		if err != nil {
			return nil, fmt.Errorf("append index: %w", err)
		}
		if err := s.index.Append(ctx, vectors, records); err != nil {
			return nil, fmt.Errorf("append index: %w", err)
		}
	}

	n, err := s.index.Len(ctx)
	if err != nil {
		return nil, fmt.Errorf("read index size: %w", err)
	}

	logger.Info("Appended %d vectors, index now %d", len(chunks), n)
	return &domain.IndexReport{
		Action:  domain.IndexActionAppend,
		Added:   len(chunks),
		Vectors: n,
	}, nil
}

func (s *IndexService) embedChunks(
	ctx context.Context, chunks []domain.IndexedChunk,
) ([][]float32, []domain.MetadataRecord, error) {
	texts := make([]string, len(chunks))
	records := make([]domain.MetadataRecord, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Chunk.Text
		records[i] = domain.NewMetadataRecord(c)
	}

	vectors, err := s.gateway.Embed(ctx, texts)
	if err != nil {
		return nil, nil, err
	}
	return vectors, records, nil
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
