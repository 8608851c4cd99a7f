package driving

import "github.com/custodia-labs/groundwork/internal/core/domain"

// SettingsService reads and writes AppSettings. Keys supplied through the
// environment are applied on Get and never written back.
type SettingsService interface {
	Get() (*domain.AppSettings, error)
	Save(settings *domain.AppSettings) error
	GetDefaults() domain.AppSettings

	// Validate checks ranges and cross-field rules without network access.
	Validate() error

	// The provider setters pick a default model when model is empty.
	// AIProviderNone disables generation or reranking.
	SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error
	SetLLMProvider(provider domain.AIProvider, model, apiKey string) error
	SetRerankProvider(provider domain.AIProvider, model, apiKey string) error

	// Live probes against the configured providers.
	ValidateEmbeddingConfig() error
	ValidateLLMConfig() error
	ValidateRerankConfig() error
}
