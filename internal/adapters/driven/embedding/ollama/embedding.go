// Package ollama embeds text through a local Ollama server's /api/embed.
package ollama

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/custodia-labs/groundwork/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// Default configuration values.
const (
	DefaultBaseURL    = "http://localhost:11434"
	DefaultModel      = "nomic-embed-text"
	DefaultTimeout    = 30 * time.Second
	DefaultDimensions = 768
	DefaultRetries    = 2
	DefaultRetryWait  = 500 * time.Millisecond
)

// Config holds configuration for the Ollama embedding service.
type Config struct {
	BaseURL string
	Model   string
	Timeout time.Duration

	// Dimensions is the expected vector size. Zero means DefaultDimensions
	// until the first response reveals the real size.
	Dimensions int

	// Retries is how many times a request is repeated after a transport
	// error, 429 or 5xx. Negative disables retries.
	Retries   int
	RetryWait time.Duration
}

// EmbeddingService generates embeddings with Ollama.
type EmbeddingService struct {
	client     *resty.Client
	model      string
	dimensions atomic.Int64
	learnDims  bool
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// NewEmbeddingService creates an Ollama embedding service.
func NewEmbeddingService(cfg Config) *EmbeddingService {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Retries == 0 {
		cfg.Retries = DefaultRetries
	}
	if cfg.RetryWait == 0 {
		cfg.RetryWait = DefaultRetryWait
	}

	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json").
		SetRetryCount(max(cfg.Retries, 0)).
		SetRetryWaitTime(cfg.RetryWait).
		SetRetryMaxWaitTime(4 * cfg.RetryWait).
		AddRetryCondition(func(resp *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			code := resp.StatusCode()
			return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
		})

	s := &EmbeddingService{client: client, model: cfg.Model, learnDims: cfg.Dimensions == 0}
	if cfg.Dimensions == 0 {
		cfg.Dimensions = DefaultDimensions
	}
	s.dimensions.Store(int64(cfg.Dimensions))
	return s
}

// Embed generates a vector embedding for the given text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

// EmbedBatch embeds texts in one request. The reply must hold exactly one
// vector per input.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	var out embedResponse
	var failure errorResponse
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(embedRequest{Model: s.model, Input: texts}).
		SetResult(&out).
		SetError(&failure).
		Post("/api/embed")
	if err != nil {
		return nil, fmt.Errorf("ollama embed: %w", err)
	}
	if resp.IsError() {
		msg := failure.Error
		if msg == "" {
			msg = resp.String()
		}
		return nil, fmt.Errorf("ollama embed: status %d: %s", resp.StatusCode(), msg)
	}
	if len(out.Embeddings) != len(texts) {
		return nil, fmt.Errorf("ollama embed: got %d embeddings for %d inputs", len(out.Embeddings), len(texts))
	}

	if s.learnDims && len(out.Embeddings[0]) > 0 {
		s.dimensions.Store(int64(len(out.Embeddings[0])))
	}
	return out.Embeddings, nil
}

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int {
	return int(s.dimensions.Load())
}

// ModelName returns the embedding model.
func (s *EmbeddingService) ModelName() string {
	return s.model
}

// Ping checks the server answers /api/tags without running the model.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	resp, err := s.client.R().SetContext(ctx).Get("/api/tags")
	if err != nil {
		return fmt.Errorf("ollama ping: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("ollama ping: status %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}

// Close releases resources.
func (s *EmbeddingService) Close() error {
	return nil
}
