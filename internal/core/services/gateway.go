package services

import (
	"context"
	"fmt"
	"math"

	"github.com/custodia-labs/groundwork/internal/core/domain"
	"github.com/custodia-labs/groundwork/internal/core/ports/driven"
	"github.com/custodia-labs/groundwork/internal/logger"
)

// DefaultEmbeddingBatchSize is the number of texts sent per provider call.
const DefaultEmbeddingBatchSize = 32

// EmbeddingGateway batches texts through an embedding provider and
// returns unit-length vectors in input order.
type EmbeddingGateway struct {
	provider  driven.EmbeddingService
	batchSize int
}

// NewEmbeddingGateway wraps provider. A batchSize of zero or less uses
// DefaultEmbeddingBatchSize.
func NewEmbeddingGateway(provider driven.EmbeddingService, batchSize int) *EmbeddingGateway {
	if batchSize <= 0 {
		batchSize = DefaultEmbeddingBatchSize
	}
	return &EmbeddingGateway{
		provider:  provider,
		batchSize: batchSize,
	}
}

// ModelName returns the underlying provider's model.
func (g *EmbeddingGateway) ModelName() string {
	return g.provider.ModelName()
}

// Embed returns one normalised vector per text. Any provider failure or
// malformed output is reported as domain.ErrEmbedding and no partial
// result is returned.
func (g *EmbeddingGateway) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	out := make([][]float32, 0, len(texts))
	dim := 0

	for start := 0; start < len(texts); start += g.batchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		end := min(start+g.batchSize, len(texts))
		batch := texts[start:end]

		vectors, err := g.provider.EmbedBatch(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("embed batch %d-%d: %w: %w", start, end, domain.ErrEmbedding, err)
		}
		if len(vectors) != len(batch) {
			return nil, fmt.Errorf("embed batch %d-%d: provider returned %d vectors for %d texts: %w",
				start, end, len(vectors), len(batch), domain.ErrEmbedding)
		}

		for i, vec := range vectors {
			if len(vec) == 0 {
				return nil, fmt.Errorf("embed text %d: empty vector: %w", start+i, domain.ErrEmbedding)
			}
			if dim == 0 {
				dim = len(vec)
			} else if len(vec) != dim {
				return nil, fmt.Errorf("embed text %d: dimension %d, want %d: %w",
					start+i, len(vec), dim, domain.ErrEmbedding)
			}

			unit, ok := normalise(vec)
			if !ok {
				return nil, fmt.Errorf("embed text %d: zero-norm vector: %w", start+i, domain.ErrEmbedding)
			}
			out = append(out, unit)
		}

		logger.Debug("Embedded %d/%d texts", end, len(texts))
	}

	return out, nil
}

// EmbedQuery embeds a single text.
func (g *EmbeddingGateway) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := g.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// normalise returns a unit-length copy of vec. It reports false for
// vectors with zero or non-finite norm.
func normalise(vec []float32) ([]float32, bool) {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	norm := math.Sqrt(sum)
	if norm == 0 || math.IsNaN(norm) || math.IsInf(norm, 0) {
		return nil, false
	}

	out := make([]float32, len(vec))
	for i, v := range vec {
		out[i] = float32(float64(v) / norm)
	}
	return out, true
}
