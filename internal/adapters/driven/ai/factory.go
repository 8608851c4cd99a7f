// Package ai provides factory functions for creating AI service adapters.
package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/groundwork/internal/adapters/driven/embedding/hashing"
	ollamaembed "github.com/custodia-labs/groundwork/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/groundwork/internal/adapters/driven/embedding/openai"
	openaillm "github.com/custodia-labs/groundwork/internal/adapters/driven/llm/openai"
	coherererank "github.com/custodia-labs/groundwork/internal/adapters/driven/rerank/cohere"
	"github.com/custodia-labs/groundwork/internal/core/domain"
	"github.com/custodia-labs/groundwork/internal/core/ports/driven"
	"github.com/custodia-labs/groundwork/internal/logger"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// InitResult contains the result of AI service initialisation.
type InitResult struct {
	EmbeddingService driven.EmbeddingService
	Generator        driven.Generator // Nil when generation is disabled.
	Reranker         driven.Reranker  // Nil when reranking is disabled.
	Warnings         []string         // Non-fatal issues that caused fallback.
	FellBack         bool             // True if the embedder fell back to hashing.
}

// Close releases all resources held by InitResult.
func (r *InitResult) Close() {
	if r.EmbeddingService != nil {
		r.EmbeddingService.Close()
	}
	if r.Generator != nil {
		r.Generator.Close()
	}
	if r.Reranker != nil {
		r.Reranker.Close()
	}
}

// Init creates every AI service the settings ask for. Optional services that
// fail are left nil with a warning. An unusable embedder falls back to the
// offline hashing embedder.
func Init(settings *domain.AppSettings) *InitResult {
	result := &InitResult{}

	embedder, err := CreateAndValidateEmbeddingService(&settings.Embedding)
	if err != nil {
		result.Warnings = append(result.Warnings, err.Error())
	}
	if embedder == nil {
		if settings.Embedding.Provider != domain.AIProviderHashing {
			result.FellBack = true
		}
		embedder = hashing.NewEmbeddingService(settings.Embedding.Dimensions)
	}
	result.EmbeddingService = embedder

	if settings.LLM.IsConfigured() {
		gen, err := CreateGenerator(&settings.LLM)
		if err != nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("generator disabled: %v", err))
		} else {
			result.Generator = gen
		}
	}

	if settings.Rerank.IsConfigured() {
		rr, err := CreateReranker(&settings.Rerank)
		if err != nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("reranker disabled: %v", err))
		} else {
			result.Reranker = rr
		}
	}

	for _, w := range result.Warnings {
		logger.Warn("%s", w)
	}
	return result
}

// CreateAndValidateEmbeddingService creates an embedding service and validates connectivity.
// Returns the service if successful, or an error with guidance.
func CreateAndValidateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. Run 'groundwork settings set embedding.provider hashing' to use the offline embedder",
			domain.ErrEmbedding, err)
	}

	if svc == nil || settings.Provider.IsLocal() {
		return svc, nil
	}

	// Validate connectivity.
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w)", domain.ErrEmbedding, err)
	}

	return svc, nil
}

// ValidateEmbeddingConfig validates an embedding configuration by creating a service and pinging it.
func ValidateEmbeddingConfig(settings *domain.EmbeddingSettings) error {
	if settings == nil || !settings.IsConfigured() {
		return nil
	}

	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		return err
	}
	if svc == nil {
		return nil
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	return svc.Ping(ctx)
}

// ValidateLLMConfig validates a generator configuration by creating it and pinging it.
func ValidateLLMConfig(settings *domain.LLMSettings) error {
	if settings == nil || !settings.IsConfigured() {
		return nil
	}

	gen, err := CreateGenerator(settings)
	if err != nil {
		return err
	}
	defer gen.Close()

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	return gen.Ping(ctx)
}

// CreateEmbeddingService creates the appropriate embedding service based on settings.
// Returns nil if the provider is not configured.
func CreateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderHashing:
		return hashing.NewEmbeddingService(settings.Dimensions), nil

	case domain.AIProviderOllama:
		return createOllamaEmbedding(settings), nil

	case domain.AIProviderOpenAI:
		return createOpenAIEmbedding(settings)

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", settings.Provider)
	}
}

// CreateGenerator creates the answer generator for the settings.
func CreateGenerator(settings *domain.LLMSettings) (driven.Generator, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, fmt.Errorf("generator not configured")
	}

	switch settings.Provider {
	case domain.AIProviderOpenAI:
		gen, err := openaillm.NewGenerator(openaillm.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})
		if err != nil {
			return nil, err
		}
		return gen, nil

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", settings.Provider)
	}
}

// CreateReranker creates the cross-encoder for the settings.
func CreateReranker(settings *domain.RerankSettings) (driven.Reranker, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, fmt.Errorf("reranker not configured")
	}

	switch settings.Provider {
	case domain.AIProviderCohere:
		rr, err := coherererank.NewReranker(settings.APIKey, settings.Model)
		if err != nil {
			return nil, err
		}
		return rr, nil

	default:
		return nil, fmt.Errorf("unsupported rerank provider: %s", settings.Provider)
	}
}

// createOllamaEmbedding creates an Ollama embedding service. Models with no
// configured or known size report theirs after the first request.
func createOllamaEmbedding(settings *domain.EmbeddingSettings) driven.EmbeddingService {
	dimensions := settings.Dimensions
	if dimensions == 0 {
		dimensions = domain.EmbeddingDimensions()[settings.Model]
	}

	return ollamaembed.NewEmbeddingService(ollamaembed.Config{
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		Dimensions: dimensions,
	})
}

// createOpenAIEmbedding creates an OpenAI embedding service.
func createOpenAIEmbedding(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	svc, err := openaiembed.NewEmbeddingService(openaiembed.Config{
		APIKey:     settings.APIKey,
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		Dimensions: settings.Dimensions,
	})
	if err != nil {
		return nil, err
	}
	return svc, nil
}
