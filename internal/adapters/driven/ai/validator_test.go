package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/groundwork/internal/core/domain"
)

func TestNewConfigValidator(t *testing.T) {
	validator := NewConfigValidator()

	require.NotNil(t, validator)
	assert.Equal(t, pingTimeout, validator.timeout)
}

func TestConfigValidator_UnconfiguredIsValid(t *testing.T) {
	validator := NewConfigValidator()

	assert.NoError(t, validator.ValidateEmbedding(nil))
	assert.NoError(t, validator.ValidateEmbedding(&domain.EmbeddingSettings{Model: "m"}))
	assert.NoError(t, validator.ValidateLLM(nil))
	assert.NoError(t, validator.ValidateLLM(&domain.LLMSettings{Provider: domain.AIProviderNone}))
	assert.NoError(t, validator.ValidateRerank(nil))
	assert.NoError(t, validator.ValidateRerank(&domain.RerankSettings{Provider: domain.AIProviderNone}))
}

func TestConfigValidator_ValidateEmbedding_Hashing(t *testing.T) {
	validator := NewConfigValidator()
	config := &domain.EmbeddingSettings{Provider: domain.AIProviderHashing, Dimensions: 64}

	assert.NoError(t, validator.ValidateEmbedding(config))
}

func TestConfigValidator_ValidateRerank_MissingKeyIsUnconfigured(t *testing.T) {
	validator := NewConfigValidator()
	config := &domain.RerankSettings{Provider: domain.AIProviderCohere, Model: domain.DefaultRerankModel}

	assert.NoError(t, validator.ValidateRerank(config))
}
