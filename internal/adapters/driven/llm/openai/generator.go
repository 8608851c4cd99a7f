// Package openai provides an answer generator using the OpenAI chat API.
package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/custodia-labs/groundwork/internal/core/domain"
	"github.com/custodia-labs/groundwork/internal/core/ports/driven"
)

// Ensure Generator implements the interface.
var _ driven.Generator = (*Generator)(nil)

// Default configuration values.
const (
	DefaultModel   = "gpt-4o-mini"
	DefaultTimeout = 120 * time.Second

	temperature = 0.2

	// Per-1K-token prices used for the cost estimate.
	promptPricePer1K     = 0.0005
	completionPricePer1K = 0.0015
)

// responseInstruction asks the model for a JSON envelope the generator parses.
const responseInstruction = `Always respond with valid JSON only, no markdown formatting.
Your response must be a JSON object with this exact structure:
{"answer": "string", "confidence": 0.0-1.0}`

// Config holds configuration for the OpenAI generator.
type Config struct {
	// APIKey is the OpenAI API key (required).
	APIKey string

	// BaseURL is the API base URL (default: https://api.openai.com/v1).
	BaseURL string

	// Model is the chat model to use (default: gpt-4o-mini).
	Model string

	// Timeout is the request timeout (default: 120s).
	Timeout time.Duration
}

// Generator produces grounded answers with an OpenAI chat model.
type Generator struct {
	client  *goopenai.Client
	model   string
	timeout time.Duration
}

// envelope is the JSON shape requested from the model.
type envelope struct {
	Answer     string   `json:"answer"`
	Confidence *float64 `json:"confidence"`
}

// NewGenerator creates a new OpenAI generator.
func NewGenerator(cfg Config) (*Generator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	clientCfg := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &Generator{
		client:  goopenai.NewClientWithConfig(clientCfg),
		model:   cfg.Model,
		timeout: cfg.Timeout,
	}, nil
}

// Generate answers the prompt. A model-reported confidence is passed through
// when present; a non-JSON reply is used verbatim as the answer.
func (g *Generator) Generate(ctx context.Context, prompt string) (*domain.Generation, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model:       g.model,
		Temperature: temperature,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleSystem, Content: responseInstruction},
			{Role: goopenai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &goopenai.ChatCompletionResponseFormat{
			Type: goopenai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("openai: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai: no choices returned")
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	gen := &domain.Generation{
		Text:             content,
		TokensPrompt:     resp.Usage.PromptTokens,
		TokensCompletion: resp.Usage.CompletionTokens,
		CostUSD: float64(resp.Usage.PromptTokens)*promptPricePer1K/1000 +
			float64(resp.Usage.CompletionTokens)*completionPricePer1K/1000,
	}

	var env envelope
	if err := json.Unmarshal([]byte(stripCodeFence(content)), &env); err == nil && env.Answer != "" {
		gen.Text = env.Answer
		if env.Confidence != nil && *env.Confidence >= 0 && *env.Confidence <= 1 {
			gen.Confidence = env.Confidence
		}
	}

	return gen, nil
}

// stripCodeFence removes a surrounding ``` or ```json fence.
func stripCodeFence(s string) string {
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// ModelName returns the name of the model being used.
func (g *Generator) ModelName() string {
	return g.model
}

// Ping validates the API key by listing models.
func (g *Generator) Ping(ctx context.Context) error {
	if _, err := g.client.ListModels(ctx); err != nil {
		return fmt.Errorf("openai: ping failed: %w", err)
	}
	return nil
}

// Close releases resources.
func (g *Generator) Close() error {
	return nil
}
