package services

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/groundwork/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/groundwork/internal/core/domain"
)

func newTestSettingsService(t *testing.T) (*SettingsService, *memory.ConfigStore) {
	t.Helper()
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("COHERE_API_KEY", "")
	store := memory.NewConfigStore()
	return NewSettingsService(store, nil, "/data"), store
}

func TestSettingsService_Get_ReturnsDefaults(t *testing.T) {
	service, _ := newTestSettingsService(t)

	settings, err := service.Get()

	require.NoError(t, err)
	defaults := domain.DefaultAppSettings()
	assert.Equal(t, defaults.Chunking, settings.Chunking)
	assert.Equal(t, defaults.Retrieval, settings.Retrieval)
	assert.Equal(t, domain.AIProviderHashing, settings.Embedding.Provider)
	assert.Equal(t, 384, settings.Embedding.Dimensions)
	assert.Equal(t, domain.AIProviderNone, settings.LLM.Provider)
	assert.Equal(t, domain.AIProviderNone, settings.Rerank.Provider)
	assert.Equal(t, ":8000", settings.Server.Addr)
	assert.Equal(t, 60, settings.Server.RateLimitPerMinute)
}

func TestSettingsService_Get_IndexPathsUnderDataDir(t *testing.T) {
	service, _ := newTestSettingsService(t)

	settings, err := service.Get()

	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/data", "indices", "index.vec"), settings.Index.VectorPath)
	assert.Equal(t, filepath.Join("/data", "indices", "meta.jsonl"), settings.Index.MetadataPath)
}

func TestSettingsService_Get_ReturnsStoredValues(t *testing.T) {
	service, store := newTestSettingsService(t)
	_ = store.Set("chunking.max_tokens", 256)
	_ = store.Set("chunking.overlap", 0)
	_ = store.Set("retrieval.top_k", 40)
	_ = store.Set("retrieval.query_expansion", true)
	_ = store.Set("retrieval.similarity_threshold", 0.5)
	_ = store.Set("embedding.provider", "openai")
	_ = store.Set("embedding.model", "text-embedding-3-large")
	_ = store.Set("index.vector_path", "/elsewhere/v.vec")

	settings, err := service.Get()

	require.NoError(t, err)
	assert.Equal(t, 256, settings.Chunking.MaxTokens)
	assert.Equal(t, 0, settings.Chunking.Overlap, "explicit zero overrides default")
	assert.Equal(t, 40, settings.Retrieval.TopK)
	assert.True(t, settings.Retrieval.QueryExpansion)
	assert.InDelta(t, 0.5, settings.Retrieval.SimilarityThreshold, 1e-9)
	assert.Equal(t, domain.AIProviderOpenAI, settings.Embedding.Provider)
	assert.Equal(t, "text-embedding-3-large", settings.Embedding.Model)
	assert.Equal(t, "/elsewhere/v.vec", settings.Index.VectorPath)
}

func TestSettingsService_Get_InvalidProviderReturnsDefault(t *testing.T) {
	service, store := newTestSettingsService(t)
	_ = store.Set("embedding.provider", "invalid_provider")

	settings, err := service.Get()

	require.NoError(t, err)
	assert.Equal(t, domain.AIProviderHashing, settings.Embedding.Provider)
}

func TestSettingsService_Get_EnvironmentKeys(t *testing.T) {
	service, store := newTestSettingsService(t)
	t.Setenv("OPENAI_API_KEY", "sk-env")
	t.Setenv("COHERE_API_KEY", "co-env")
	_ = store.Set("embedding.provider", "openai")
	_ = store.Set("llm.provider", "openai")
	_ = store.Set("llm.api_key", "sk-file")
	_ = store.Set("rerank.provider", "cohere")

	settings, err := service.Get()

	require.NoError(t, err)
	assert.Equal(t, "sk-env", settings.Embedding.APIKey)
	assert.Equal(t, "sk-file", settings.LLM.APIKey, "file key wins over environment")
	assert.Equal(t, "co-env", settings.Rerank.APIKey)
}

func TestSettingsService_Save_RoundTrip(t *testing.T) {
	service, store := newTestSettingsService(t)

	settings := service.GetDefaults()
	settings.Chunking.MaxTokens = 128
	settings.Retrieval.Reranker = true
	settings.Retrieval.SimilarityThreshold = 0.4
	settings.Rerank = domain.RerankSettings{Provider: domain.AIProviderCohere, Model: "rerank-v3.5", APIKey: "co-key"}
	settings.Server.Addr = ":9000"

	require.NoError(t, service.Save(&settings))

	retrieved, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, 128, retrieved.Chunking.MaxTokens)
	assert.True(t, retrieved.Retrieval.Reranker)
	assert.InDelta(t, 0.4, retrieved.Retrieval.SimilarityThreshold, 1e-9)
	assert.Equal(t, settings.Rerank, retrieved.Rerank)
	assert.Equal(t, ":9000", retrieved.Server.Addr)

	_, hasLLMKey := store.Get("llm.api_key")
	assert.False(t, hasLLMKey, "empty keys are not written")
}

func TestSettingsService_Save_KeepsEnvironmentKeysOutOfFile(t *testing.T) {
	service, store := newTestSettingsService(t)
	t.Setenv("OPENAI_API_KEY", "sk-env")
	_ = store.Set("embedding.provider", "openai")

	settings, err := service.Get()
	require.NoError(t, err)
	require.Equal(t, "sk-env", settings.Embedding.APIKey)
	settings.Retrieval.KFinal = 8

	require.NoError(t, service.Save(settings))

	_, hasKey := store.Get("embedding.api_key")
	assert.False(t, hasKey, "environment key must not be copied into the config file")
	assert.Equal(t, 8, store.GetInt("retrieval.k_final"))
}

func TestSettingsService_Save_Error(t *testing.T) {
	store := &failingConfigStore{ConfigStore: memory.NewConfigStore(), failOn: "retrieval.top_k"}
	service := NewSettingsService(store, nil, "")
	settings := domain.DefaultAppSettings()

	err := service.Save(&settings)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "retrieval.top_k")
}

func TestSettingsService_SetEmbeddingProvider(t *testing.T) {
	tests := []struct {
		name      string
		provider  domain.AIProvider
		model     string
		apiKey    string
		wantModel string
		wantDims  int
		wantURL   string
	}{
		{"ollama default model", domain.AIProviderOllama, "", "", "nomic-embed-text", 768, "http://localhost:11434"},
		{"openai explicit model", domain.AIProviderOpenAI, "text-embedding-3-large", "sk-test", "text-embedding-3-large", 3072, ""},
		{"hashing", domain.AIProviderHashing, "", "", "hashing-v1", 384, ""},
		{"ollama unknown model", domain.AIProviderOllama, "bge-m3", "", "bge-m3", 0, "http://localhost:11434"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, _ := newTestSettingsService(t)

			require.NoError(t, service.SetEmbeddingProvider(tt.provider, tt.model, tt.apiKey))

			settings, err := service.Get()
			require.NoError(t, err)
			assert.Equal(t, tt.provider, settings.Embedding.Provider)
			assert.Equal(t, tt.wantModel, settings.Embedding.Model)
			assert.Equal(t, tt.wantURL, settings.Embedding.BaseURL)
			assert.Equal(t, tt.wantDims, settings.Embedding.Dimensions)
		})
	}
}

func TestSettingsService_SetEmbeddingProvider_Errors(t *testing.T) {
	service, _ := newTestSettingsService(t)

	assert.Error(t, service.SetEmbeddingProvider("bogus", "", ""))
	assert.Error(t, service.SetEmbeddingProvider(domain.AIProviderCohere, "", "key"))
	assert.Error(t, service.SetEmbeddingProvider(domain.AIProviderOpenAI, "", ""))
}

func TestSettingsService_SetEmbeddingProvider_KeyFromEnvironment(t *testing.T) {
	service, _ := newTestSettingsService(t)
	t.Setenv("OPENAI_API_KEY", "sk-env")

	require.NoError(t, service.SetEmbeddingProvider(domain.AIProviderOpenAI, "", ""))

	settings, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, "sk-env", settings.Embedding.APIKey)
}

func TestSettingsService_SetLLMProvider(t *testing.T) {
	service, _ := newTestSettingsService(t)

	require.NoError(t, service.SetLLMProvider(domain.AIProviderOpenAI, "", "sk-test"))
	settings, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", settings.LLM.Model)
	assert.True(t, settings.LLM.IsConfigured())

	require.NoError(t, service.SetLLMProvider(domain.AIProviderNone, "", ""))
	settings, err = service.Get()
	require.NoError(t, err)
	assert.Equal(t, domain.AIProviderNone, settings.LLM.Provider)

	assert.Error(t, service.SetLLMProvider(domain.AIProviderOllama, "llama3.2", ""))
	assert.Error(t, service.SetLLMProvider(domain.AIProviderOpenAI, "", ""))
}

func TestSettingsService_SetRerankProvider(t *testing.T) {
	service, _ := newTestSettingsService(t)

	require.NoError(t, service.SetRerankProvider(domain.AIProviderCohere, "", "co-key"))
	settings, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultRerankModel, settings.Rerank.Model)
	assert.True(t, settings.Retrieval.Reranker)

	require.NoError(t, service.SetRerankProvider(domain.AIProviderNone, "", ""))
	settings, err = service.Get()
	require.NoError(t, err)
	assert.False(t, settings.Retrieval.Reranker)

	assert.Error(t, service.SetRerankProvider(domain.AIProviderOpenAI, "", "key"))
	assert.Error(t, service.SetRerankProvider(domain.AIProviderCohere, "", ""))
}

func TestSettingsService_Validate(t *testing.T) {
	tests := []struct {
		name    string
		values  map[string]any
		wantErr string
	}{
		{"defaults", nil, ""},
		{"overlap not below window", map[string]any{"chunking.max_tokens": 64, "chunking.overlap": 64}, "overlap"},
		{"whole sections with overlap", map[string]any{"chunking.max_tokens": 0, "chunking.overlap": 64}, ""},
		{"k_final above top_k", map[string]any{"retrieval.top_k": 3, "retrieval.k_final": 5}, "k_final"},
		{"threshold out of range", map[string]any{"retrieval.similarity_threshold": 1.5}, "threshold"},
		{"reranker without provider", map[string]any{"retrieval.reranker": true}, "rerank"},
		{"openai embedding without key", map[string]any{"embedding.provider": "openai"}, "embedding"},
		{"llm without key", map[string]any{"llm.provider": "openai"}, "LLM"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, store := newTestSettingsService(t)
			for k, v := range tt.values {
				require.NoError(t, store.Set(k, v))
			}

			err := service.Validate()

			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSettingsService_GetDefaults_NoDataDir(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore(), nil, "")

	defaults := service.GetDefaults()

	assert.Empty(t, defaults.Index.VectorPath)
}

// failingConfigStore fails Set for one key.
type failingConfigStore struct {
	*memory.ConfigStore
	failOn string
}

func (f *failingConfigStore) Set(key string, value any) error {
	if f.failOn == "" || key == f.failOn {
		return assert.AnError
	}
	return f.ConfigStore.Set(key, value)
}

// mockAIConfigValidator returns fixed errors.
type mockAIConfigValidator struct {
	embedErr  error
	llmErr    error
	rerankErr error
}

func (m *mockAIConfigValidator) ValidateEmbedding(_ *domain.EmbeddingSettings) error {
	return m.embedErr
}

func (m *mockAIConfigValidator) ValidateLLM(_ *domain.LLMSettings) error {
	return m.llmErr
}

func (m *mockAIConfigValidator) ValidateRerank(_ *domain.RerankSettings) error {
	return m.rerankErr
}

func TestSettingsService_ValidateEmbeddingConfig(t *testing.T) {
	store := memory.NewConfigStore()

	assert.NoError(t, NewSettingsService(store, nil, "").ValidateEmbeddingConfig())
	assert.NoError(t, NewSettingsService(store, &mockAIConfigValidator{}, "").ValidateEmbeddingConfig())
	assert.ErrorIs(t,
		NewSettingsService(store, &mockAIConfigValidator{embedErr: assert.AnError}, "").ValidateEmbeddingConfig(),
		assert.AnError)
}

func TestSettingsService_ValidateLLMConfig(t *testing.T) {
	store := memory.NewConfigStore()

	assert.NoError(t, NewSettingsService(store, nil, "").ValidateLLMConfig())
	assert.ErrorIs(t,
		NewSettingsService(store, &mockAIConfigValidator{llmErr: assert.AnError}, "").ValidateLLMConfig(),
		assert.AnError)
}

func TestSettingsService_ValidateRerankConfig(t *testing.T) {
	store := memory.NewConfigStore()

	assert.NoError(t, NewSettingsService(store, nil, "").ValidateRerankConfig())
	assert.NoError(t, NewSettingsService(store, &mockAIConfigValidator{}, "").ValidateRerankConfig())
	assert.ErrorIs(t,
		NewSettingsService(store, &mockAIConfigValidator{rerankErr: assert.AnError}, "").ValidateRerankConfig(),
		assert.AnError)
}
