package services

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/custodia-labs/groundwork/internal/core/domain"
	"github.com/custodia-labs/groundwork/internal/core/ports/driven"
	"github.com/custodia-labs/groundwork/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyChunkMaxTokens     = "chunking.max_tokens"
	keyChunkOverlap       = "chunking.overlap"
	keyRetrievalTopK      = "retrieval.top_k"
	keyRetrievalKFinal    = "retrieval.k_final"
	keyRetrievalExpansion = "retrieval.query_expansion"
	keyRetrievalReranker  = "retrieval.reranker"
	keyRetrievalThreshold = "retrieval.similarity_threshold"
	keyEmbedProvider      = "embedding.provider"
	keyEmbedModel         = "embedding.model"
	keyEmbedBaseURL       = "embedding.base_url"
	keyEmbedAPIKey        = "embedding.api_key"
	keyEmbedDimensions    = "embedding.dimensions"
	keyEmbedBatchSize     = "embedding.batch_size"
	keyLLMProvider        = "llm.provider"
	keyLLMModel           = "llm.model"
	keyLLMBaseURL         = "llm.base_url"
	keyLLMAPIKey          = "llm.api_key"
	keyRerankProvider     = "rerank.provider"
	keyRerankModel        = "rerank.model"
	keyRerankAPIKey       = "rerank.api_key"
	keyIndexVectorPath    = "index.vector_path"
	keyIndexMetadataPath  = "index.metadata_path"
	keyServerAddr         = "server.addr"
	keyServerRateLimit    = "server.rate_limit_per_minute"
	envOpenAIKey          = "OPENAI_API_KEY"
	envCohereKey          = "COHERE_API_KEY"
	defaultOllamaBaseURL  = "http://localhost:11434"
	defaultIndexDir       = "indices"
	defaultVectorFile     = "index.vec"
	defaultMetadataFile   = "meta.jsonl"
)

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
	dataDir     string
}

// NewSettingsService creates a new settings service. Index artifact paths
// default to files under dataDir.
func NewSettingsService(
	configStore driven.ConfigStore, aiValidator driven.AIConfigValidator, dataDir string,
) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
		dataDir:     dataDir,
	}
}

// Get retrieves current application settings. API keys left empty in the
// config file are taken from the environment.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := s.GetDefaults()

	settings := &domain.AppSettings{
		Chunking: domain.ChunkingSettings{
			MaxTokens: s.getInt(keyChunkMaxTokens, defaults.Chunking.MaxTokens),
			Overlap:   s.getInt(keyChunkOverlap, defaults.Chunking.Overlap),
		},
		Retrieval: domain.RetrievalSettings{
			TopK:                s.getInt(keyRetrievalTopK, defaults.Retrieval.TopK),
			KFinal:              s.getInt(keyRetrievalKFinal, defaults.Retrieval.KFinal),
			QueryExpansion:      s.getBool(keyRetrievalExpansion, defaults.Retrieval.QueryExpansion),
			Reranker:            s.getBool(keyRetrievalReranker, defaults.Retrieval.Reranker),
			SimilarityThreshold: s.getFloat(keyRetrievalThreshold, defaults.Retrieval.SimilarityThreshold),
		},
		Embedding: domain.EmbeddingSettings{
			Provider:   s.getProvider(keyEmbedProvider, defaults.Embedding.Provider),
			Model:      s.getString(keyEmbedModel, defaults.Embedding.Model),
			BaseURL:    s.configStore.GetString(keyEmbedBaseURL), // No default - empty is valid for cloud providers
			APIKey:     s.configStore.GetString(keyEmbedAPIKey),
			Dimensions: s.getInt(keyEmbedDimensions, defaults.Embedding.Dimensions),
			BatchSize:  s.getInt(keyEmbedBatchSize, defaults.Embedding.BatchSize),
		},
		LLM: domain.LLMSettings{
			Provider: s.getProvider(keyLLMProvider, defaults.LLM.Provider),
			Model:    s.getString(keyLLMModel, defaults.LLM.Model),
			BaseURL:  s.configStore.GetString(keyLLMBaseURL),
			APIKey:   s.configStore.GetString(keyLLMAPIKey),
		},
		Rerank: domain.RerankSettings{
			Provider: s.getProvider(keyRerankProvider, defaults.Rerank.Provider),
			Model:    s.getString(keyRerankModel, defaults.Rerank.Model),
			APIKey:   s.configStore.GetString(keyRerankAPIKey),
		},
		Index: domain.IndexSettings{
			VectorPath:   s.getString(keyIndexVectorPath, defaults.Index.VectorPath),
			MetadataPath: s.getString(keyIndexMetadataPath, defaults.Index.MetadataPath),
		},
		Server: domain.ServerSettings{
			Addr:               s.getString(keyServerAddr, defaults.Server.Addr),
			RateLimitPerMinute: s.getInt(keyServerRateLimit, defaults.Server.RateLimitPerMinute),
		},
	}

	if settings.Embedding.Provider == domain.AIProviderOpenAI && settings.Embedding.APIKey == "" {
		settings.Embedding.APIKey = os.Getenv(envOpenAIKey)
	}
	if settings.LLM.Provider == domain.AIProviderOpenAI && settings.LLM.APIKey == "" {
		settings.LLM.APIKey = os.Getenv(envOpenAIKey)
	}
	if settings.Rerank.Provider == domain.AIProviderCohere && settings.Rerank.APIKey == "" {
		settings.Rerank.APIKey = os.Getenv(envCohereKey)
	}

	return settings, nil
}

// Save persists application settings. Empty API keys are not written so
// environment keys are never copied into the config file.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	values := []struct {
		key   string
		value any
		skip  bool
	}{
		{keyChunkMaxTokens, settings.Chunking.MaxTokens, false},
		{keyChunkOverlap, settings.Chunking.Overlap, false},
		{keyRetrievalTopK, settings.Retrieval.TopK, false},
		{keyRetrievalKFinal, settings.Retrieval.KFinal, false},
		{keyRetrievalExpansion, settings.Retrieval.QueryExpansion, false},
		{keyRetrievalReranker, settings.Retrieval.Reranker, false},
		{keyRetrievalThreshold, settings.Retrieval.SimilarityThreshold, false},
		{keyEmbedProvider, settings.Embedding.Provider.String(), false},
		{keyEmbedModel, settings.Embedding.Model, false},
		{keyEmbedBaseURL, settings.Embedding.BaseURL, false},
		{keyEmbedAPIKey, settings.Embedding.APIKey, s.envOnly(keyEmbedAPIKey, settings.Embedding.APIKey, envOpenAIKey)},
		{keyEmbedDimensions, settings.Embedding.Dimensions, false},
		{keyEmbedBatchSize, settings.Embedding.BatchSize, false},
		{keyLLMProvider, settings.LLM.Provider.String(), false},
		{keyLLMModel, settings.LLM.Model, false},
		{keyLLMBaseURL, settings.LLM.BaseURL, false},
		{keyLLMAPIKey, settings.LLM.APIKey, s.envOnly(keyLLMAPIKey, settings.LLM.APIKey, envOpenAIKey)},
		{keyRerankProvider, settings.Rerank.Provider.String(), false},
		{keyRerankModel, settings.Rerank.Model, false},
		{keyRerankAPIKey, settings.Rerank.APIKey, s.envOnly(keyRerankAPIKey, settings.Rerank.APIKey, envCohereKey)},
		{keyIndexVectorPath, settings.Index.VectorPath, settings.Index.VectorPath == ""},
		{keyIndexMetadataPath, settings.Index.MetadataPath, settings.Index.MetadataPath == ""},
		{keyServerAddr, settings.Server.Addr, false},
		{keyServerRateLimit, settings.Server.RateLimitPerMinute, false},
	}

	for _, v := range values {
		if v.skip {
			continue
		}
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}
	return nil
}

// envOnly reports whether an API key should stay out of the config file:
// it is empty, or it is the environment value and the file has no key.
func (s *SettingsService) envOnly(key, value, env string) bool {
	if value == "" {
		return true
	}
	return s.configStore.GetString(key) == "" && value == os.Getenv(env)
}

// SetEmbeddingProvider configures the embedding provider.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid embedding provider: %s", provider)
	}

	valid := false
	for _, p := range domain.AllEmbeddingProviders() {
		if p == provider {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("provider %s does not support embeddings", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	if provider.RequiresAPIKey() && apiKey == "" && os.Getenv(envOpenAIKey) == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	settings.Embedding.Provider = provider

	// Set model - use provided or default
	if model != "" {
		settings.Embedding.Model = model
	} else if defaultModel, ok := domain.DefaultEmbeddingModels()[provider]; ok {
		settings.Embedding.Model = defaultModel
	}

	if provider == domain.AIProviderOllama {
		if settings.Embedding.BaseURL == "" {
			settings.Embedding.BaseURL = defaultOllamaBaseURL
		}
	} else {
		settings.Embedding.BaseURL = ""
	}

	settings.Embedding.APIKey = apiKey

	// Unknown models report their own size.
	settings.Embedding.Dimensions = domain.EmbeddingDimensions()[settings.Embedding.Model]

	return s.Save(settings)
}

// SetLLMProvider configures the answer generator. AIProviderNone
// disables generation.
func (s *SettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	if provider != domain.AIProviderNone && provider != domain.AIProviderOpenAI {
		return fmt.Errorf("invalid LLM provider: %s", provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" && os.Getenv(envOpenAIKey) == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.LLM.Provider = provider
	settings.LLM.Model = model
	if model == "" {
		settings.LLM.Model = domain.DefaultLLMModels()[provider]
	}
	settings.LLM.APIKey = apiKey

	return s.Save(settings)
}

// SetRerankProvider configures the cross-encoder. AIProviderNone disables
// reranking.
func (s *SettingsService) SetRerankProvider(provider domain.AIProvider, model, apiKey string) error {
	if provider != domain.AIProviderNone && provider != domain.AIProviderCohere {
		return fmt.Errorf("invalid rerank provider: %s", provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" && os.Getenv(envCohereKey) == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.Rerank.Provider = provider
	settings.Rerank.Model = model
	if model == "" && provider == domain.AIProviderCohere {
		settings.Rerank.Model = domain.DefaultRerankModel
	}
	settings.Rerank.APIKey = apiKey
	settings.Retrieval.Reranker = provider == domain.AIProviderCohere

	return s.Save(settings)
}

// Validate checks the current settings are consistent.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	var errs []error
	c := settings.Chunking
	if c.Overlap < 0 {
		errs = append(errs, fmt.Errorf("chunking overlap %d is negative", c.Overlap))
	}
	if c.MaxTokens > 0 && c.Overlap >= c.MaxTokens {
		errs = append(errs, fmt.Errorf("chunking overlap %d must be below max_tokens %d", c.Overlap, c.MaxTokens))
	}

	r := settings.Retrieval
	if r.KFinal <= 0 || r.TopK < r.KFinal {
		errs = append(errs, fmt.Errorf("retrieval needs 0 < k_final (%d) <= top_k (%d)", r.KFinal, r.TopK))
	}
	if r.SimilarityThreshold < 0 || r.SimilarityThreshold > 1 {
		errs = append(errs, fmt.Errorf("similarity threshold %.2f outside [0, 1]", r.SimilarityThreshold))
	}
	if r.Reranker && !settings.Rerank.IsConfigured() {
		errs = append(errs, errors.New("reranking enabled but no rerank provider is configured"))
	}

	if !settings.Embedding.IsConfigured() {
		errs = append(errs, fmt.Errorf("embedding provider %q is not configured", settings.Embedding.Provider))
	}
	if settings.LLM.Provider != domain.AIProviderNone && !settings.LLM.IsConfigured() {
		errs = append(errs, fmt.Errorf("LLM provider %q is not configured", settings.LLM.Provider))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid settings: %w", errors.Join(errs...))
	}
	return nil
}

// GetDefaults returns default settings with index paths under the data
// directory.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	defaults := domain.DefaultAppSettings()
	if s.dataDir != "" {
		defaults.Index = domain.IndexSettings{
			VectorPath:   filepath.Join(s.dataDir, defaultIndexDir, defaultVectorFile),
			MetadataPath: filepath.Join(s.dataDir, defaultIndexDir, defaultMetadataFile),
		}
	}
	return defaults
}

// ValidateEmbeddingConfig pings the configured embedding provider.
func (s *SettingsService) ValidateEmbeddingConfig() error {
	return s.probe(func(v driven.AIConfigValidator, settings *domain.AppSettings) error {
		return v.ValidateEmbedding(&settings.Embedding)
	})
}

// ValidateLLMConfig pings the configured generator.
func (s *SettingsService) ValidateLLMConfig() error {
	return s.probe(func(v driven.AIConfigValidator, settings *domain.AppSettings) error {
		return v.ValidateLLM(&settings.LLM)
	})
}

// ValidateRerankConfig scores a probe with the configured reranker.
func (s *SettingsService) ValidateRerankConfig() error {
	return s.probe(func(v driven.AIConfigValidator, settings *domain.AppSettings) error {
		return v.ValidateRerank(&settings.Rerank)
	})
}

// probe runs check against the effective settings. Without a validator
// there is nothing to check.
func (s *SettingsService) probe(check func(driven.AIConfigValidator, *domain.AppSettings) error) error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return check(s.aiValidator, settings)
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetInt(key)
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetFloat(key)
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	provider := domain.AIProvider(val)
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}
