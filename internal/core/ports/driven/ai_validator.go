package driven

import "github.com/custodia-labs/groundwork/internal/core/domain"

// AIConfigValidator checks provider settings against the live service
// before they are relied on. Unconfigured settings validate as nil.
type AIConfigValidator interface {
	ValidateEmbedding(config *domain.EmbeddingSettings) error
	ValidateLLM(config *domain.LLMSettings) error
	ValidateRerank(config *domain.RerankSettings) error
}
