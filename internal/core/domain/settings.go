package domain

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings, generation
// or reranking.
type AIProvider string

// Available AI providers.
const (
	// AIProviderNone disables the optional service.
	AIProviderNone AIProvider = "none"

	// AIProviderHashing is the offline feature-hashing embedder.
	AIProviderHashing AIProvider = "hashing"

	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderCohere is the Cohere rerank API.
	AIProviderCohere AIProvider = "cohere"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderNone, AIProviderHashing, AIProviderOllama, AIProviderOpenAI, AIProviderCohere:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderCohere
}

// IsLocal returns true if this provider runs without a network service.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderHashing
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderNone:
		return "Disabled"
	case AIProviderHashing:
		return "Feature hashing (offline)"
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderCohere:
		return "Cohere (cloud)"
	default:
		return unknownDescription
	}
}

// ChunkingSettings holds chunker configuration.
type ChunkingSettings struct {
	// MaxTokens is the window size in words.
	MaxTokens int

	// Overlap is the number of words shared by consecutive windows.
	Overlap int
}

// RetrievalSettings holds retrieval behaviour configuration.
type RetrievalSettings struct {
	// TopK is the number of raw hits considered.
	TopK int

	// KFinal is the number of results returned.
	KFinal int

	// QueryExpansion enables title expansion of the candidate set.
	QueryExpansion bool

	// Reranker enables cross-encoder reranking.
	Reranker bool

	// SimilarityThreshold is the gate applied to the normalised top score.
	SimilarityThreshold float64
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint (for Ollama).
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string

	// Dimensions is the vector size for providers that take it as input.
	Dimensions int

	// BatchSize is the number of texts sent per provider call.
	BatchSize int
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() || e.Provider == AIProviderNone || e.Provider == AIProviderCohere {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings holds answer generator configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the LLM model name.
	Model string

	// BaseURL is an optional API endpoint override.
	BaseURL string

	// APIKey is the API key.
	APIKey string
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if l.Provider != AIProviderOpenAI {
		return false
	}
	return l.APIKey != ""
}

// RerankSettings holds cross-encoder configuration.
type RerankSettings struct {
	// Provider is the rerank service provider.
	Provider AIProvider

	// Model is the rerank model name.
	Model string

	// APIKey is the API key.
	APIKey string
}

// IsConfigured returns true if the reranker is set up.
func (r RerankSettings) IsConfigured() bool {
	return r.Provider == AIProviderCohere && r.APIKey != ""
}

// IndexSettings holds artifact locations.
type IndexSettings struct {
	// VectorPath is the vector blob file.
	VectorPath string

	// MetadataPath is the metadata JSONL file.
	MetadataPath string
}

// ServerSettings holds HTTP server configuration.
type ServerSettings struct {
	// Addr is the listen address.
	Addr string

	// RateLimitPerMinute is the per-client request budget.
	RateLimitPerMinute int
}

// AppSettings holds all application settings.
type AppSettings struct {
	Chunking  ChunkingSettings
	Retrieval RetrievalSettings
	Embedding EmbeddingSettings
	LLM       LLMSettings
	Rerank    RerankSettings
	Index     IndexSettings
	Server    ServerSettings
}

// DefaultAppSettings returns settings with sensible defaults.
// The offline hashing embedder is used so the tool works without keys;
// generation and reranking stay disabled until configured.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Chunking: ChunkingSettings{
			MaxTokens: DefaultMaxTokens,
			Overlap:   DefaultOverlap,
		},
		Retrieval: RetrievalSettings{
			TopK:                DefaultTopK,
			KFinal:              DefaultKFinal,
			SimilarityThreshold: DefaultSimilarityThreshold,
		},
		Embedding: EmbeddingSettings{
			Provider:   AIProviderHashing,
			Model:      DefaultEmbeddingModels()[AIProviderHashing],
			Dimensions: 384,
			BatchSize:  32,
		},
		LLM: LLMSettings{
			Provider: AIProviderNone,
		},
		Rerank: RerankSettings{
			Provider: AIProviderNone,
		},
		Server: ServerSettings{
			Addr:               ":8000",
			RateLimitPerMinute: 60,
		},
	}
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderHashing,
		AIProviderOllama,
		AIProviderOpenAI,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderHashing: "hashing-v1",
		AIProviderOllama:  "nomic-embed-text",
		AIProviderOpenAI:  "text-embedding-3-small",
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOpenAI: "gpt-4o-mini",
	}
}

// DefaultRerankModel is the default Cohere rerank model.
const DefaultRerankModel = "rerank-english-v3.0"

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		"hashing-v1": 384,
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}
