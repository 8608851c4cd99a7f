package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/groundwork/internal/core/domain"
	"github.com/custodia-labs/groundwork/internal/core/ports/driven"
)

// Ensure ConfigValidator implements the interface.
var _ driven.AIConfigValidator = (*ConfigValidator)(nil)

// rerankProbe is scored against itself to prove the rerank endpoint answers.
const rerankProbe = "groundwork connectivity check"

// ConfigValidator validates provider settings by building the adapter and
// making one cheap call against it.
type ConfigValidator struct {
	timeout time.Duration
}

// NewConfigValidator creates a validator that gives each probe pingTimeout.
func NewConfigValidator() *ConfigValidator {
	return &ConfigValidator{timeout: pingTimeout}
}

// ValidateEmbedding pings the embedding provider.
func (v *ConfigValidator) ValidateEmbedding(config *domain.EmbeddingSettings) error {
	return ValidateEmbeddingConfig(config)
}

// ValidateLLM pings the generator.
func (v *ConfigValidator) ValidateLLM(config *domain.LLMSettings) error {
	return ValidateLLMConfig(config)
}

// ValidateRerank scores a single probe candidate. A reply with the wrong
// number of scores counts as a failure.
func (v *ConfigValidator) ValidateRerank(config *domain.RerankSettings) error {
	if config == nil || !config.IsConfigured() {
		return nil
	}
	reranker, err := CreateReranker(config)
	if err != nil {
		return err
	}
	defer reranker.Close()

	ctx, cancel := context.WithTimeout(context.Background(), v.timeout)
	defer cancel()
	scores, err := reranker.Score(ctx, rerankProbe, []string{rerankProbe})
	if err != nil {
		return fmt.Errorf("probe %s: %w", reranker.ModelName(), err)
	}
	if len(scores) != 1 {
		return fmt.Errorf("probe %s: got %d scores for 1 candidate", reranker.ModelName(), len(scores))
	}
	return nil
}
