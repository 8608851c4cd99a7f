// Package cohere provides a cross-encoder reranker backed by the Cohere
// rerank API.
package cohere

import (
	"context"
	"fmt"
	"math"

	coheregov2 "github.com/cohere-ai/cohere-go/v2"
	cohereclient "github.com/cohere-ai/cohere-go/v2/client"

	"github.com/custodia-labs/groundwork/internal/core/ports/driven"
)

// Ensure Reranker implements the interface.
var _ driven.Reranker = (*Reranker)(nil)

// DefaultModel is the rerank model used when none is configured.
const DefaultModel = "rerank-english-v3.0"

// maxDocuments is the API limit on documents per request.
const maxDocuments = 1000

type rerankFunc func(ctx context.Context, req *coheregov2.RerankRequest) (*coheregov2.RerankResponse, error)

// Reranker scores candidates against a query with a Cohere rerank model.
type Reranker struct {
	model  string
	rerank rerankFunc
}

// NewReranker creates a Cohere reranker.
func NewReranker(apiKey, model string) (*Reranker, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("cohere: API key is required")
	}
	if model == "" {
		model = DefaultModel
	}

	client := cohereclient.NewClient(cohereclient.WithToken(apiKey))
	return &Reranker{
		model: model,
		rerank: func(ctx context.Context, req *coheregov2.RerankRequest) (*coheregov2.RerankResponse, error) {
			return client.Rerank(ctx, req)
		},
	}, nil
}

// Score returns one relevance score per candidate in candidate order.
// Candidates beyond the API limit, or omitted from the response, score -Inf.
func (r *Reranker) Score(ctx context.Context, query string, candidates []string) ([]float64, error) {
	scores := make([]float64, len(candidates))
	for i := range scores {
		scores[i] = math.Inf(-1)
	}
	if len(candidates) == 0 {
		return scores, nil
	}

	docs := candidates
	if len(docs) > maxDocuments {
		docs = docs[:maxDocuments]
	}

	items := make([]*coheregov2.RerankRequestDocumentsItem, len(docs))
	for i, doc := range docs {
		items[i] = &coheregov2.RerankRequestDocumentsItem{String: doc}
	}

	topN := len(docs)
	model := r.model
	resp, err := r.rerank(ctx, &coheregov2.RerankRequest{
		Query:     query,
		Documents: items,
		Model:     &model,
		TopN:      &topN,
	})
	if err != nil {
		return nil, fmt.Errorf("cohere: rerank: %w", err)
	}
	if resp == nil {
		return scores, nil
	}

	for _, result := range resp.Results {
		if result == nil || result.Index < 0 || result.Index >= len(docs) {
			continue
		}
		scores[result.Index] = result.RelevanceScore
	}

	return scores, nil
}

// ModelName returns the rerank model name.
func (r *Reranker) ModelName() string {
	return r.model
}

// Close releases resources.
func (r *Reranker) Close() error {
	return nil
}
