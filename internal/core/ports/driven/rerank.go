package driven

import "context"

// Reranker scores (query, candidate) pairs with a cross-encoder.
// Optional: when nil, results keep index order.
type Reranker interface {
	// Score returns one relevance score per candidate, in candidate order.
	// Higher is more relevant.
	Score(ctx context.Context, query string, candidates []string) ([]float64, error)

	// ModelName returns the rerank model name.
	ModelName() string

	// Close releases resources.
	Close() error
}
