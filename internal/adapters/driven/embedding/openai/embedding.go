// Package openai embeds text through the OpenAI embeddings endpoint or any
// API that speaks the same protocol.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	goopenai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/groundwork/internal/core/ports/driven"
	"github.com/custodia-labs/groundwork/internal/logger"
)

var _ driven.EmbeddingService = (*EmbeddingService)(nil)

const (
	DefaultModel             = "text-embedding-3-small"
	DefaultTimeout           = 60 * time.Second
	DefaultRequestsPerMinute = 500
	DefaultMaxInputs         = 256
	DefaultRetries           = 2
	DefaultRetryWait         = time.Second

	fallbackDimensions = 1536
)

var modelDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// shortenable models accept a dimensions parameter.
var shortenable = map[string]bool{
	"text-embedding-3-small": true,
	"text-embedding-3-large": true,
}

// Config holds configuration for the OpenAI embedding service.
type Config struct {
	APIKey  string // required
	BaseURL string // empty selects api.openai.com
	Model   string

	// Dimensions shortens text-embedding-3-* vectors. For other models it
	// only overrides the reported size.
	Dimensions int

	Timeout           time.Duration // per request
	RequestsPerMinute int
	MaxInputs         int // inputs per request; larger batches are split
	Retries           int // extra attempts on 429 and 5xx
	RetryWait         time.Duration
}

// EmbeddingService generates embeddings using the OpenAI API.
type EmbeddingService struct {
	client     *goopenai.Client
	limiter    *rate.Limiter
	model      string
	dimensions int
	sendDims   bool
	timeout    time.Duration
	maxInputs  int
	retries    int
	retryWait  time.Duration
}

// NewEmbeddingService creates a new OpenAI embedding service.
func NewEmbeddingService(cfg Config) (*EmbeddingService, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai embedding: API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = DefaultRequestsPerMinute
	}
	if cfg.MaxInputs <= 0 {
		cfg.MaxInputs = DefaultMaxInputs
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	if cfg.RetryWait <= 0 {
		cfg.RetryWait = DefaultRetryWait
	}

	clientCfg := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	dimensions := cfg.Dimensions
	sendDims := dimensions > 0 && shortenable[cfg.Model]
	if dimensions <= 0 {
		dimensions = modelDimensions[cfg.Model]
	}
	if dimensions <= 0 {
		dimensions = fallbackDimensions
	}

	return &EmbeddingService{
		client:     goopenai.NewClientWithConfig(clientCfg),
		limiter:    rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/60), 1),
		model:      cfg.Model,
		dimensions: dimensions,
		sendDims:   sendDims,
		timeout:    cfg.Timeout,
		maxInputs:  cfg.MaxInputs,
		retries:    cfg.Retries,
		retryWait:  cfg.RetryWait,
	}, nil
}

// Embed generates a vector embedding for the given text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch returns one vector per text, in input order. Batches larger
// than MaxInputs go out as several requests.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += s.maxInputs {
		end := min(start+s.maxInputs, len(texts))
		vecs, err := s.embedWithRetry(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}
	return out, nil
}

func (s *EmbeddingService) embedWithRetry(ctx context.Context, texts []string) ([][]float32, error) {
	wait := s.retryWait
	for attempt := 0; ; attempt++ {
		vecs, err := s.embed(ctx, texts)
		if err == nil || attempt >= s.retries || !retryable(err) {
			return vecs, err
		}
		logger.Debug("OpenAI embedding attempt %d failed, retrying in %s: %v", attempt+1, wait, err)
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("create embeddings: %w", ctx.Err())
		case <-time.After(wait):
		}
		wait *= 2
	}
}

func (s *EmbeddingService) embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("wait for rate limiter: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req := goopenai.EmbeddingRequest{
		Input: texts,
		Model: goopenai.EmbeddingModel(s.model),
	}
	if s.sendDims {
		req.Dimensions = s.dimensions
	}

	resp, err := s.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("create embeddings: %w", err)
	}

	// Responses are keyed by index and may arrive in any order.
	vecs := make([][]float32, len(texts))
	for _, data := range resp.Data {
		if data.Index < 0 || data.Index >= len(texts) {
			return nil, fmt.Errorf("create embeddings: index %d out of range", data.Index)
		}
		if len(data.Embedding) != s.dimensions {
			return nil, fmt.Errorf("create embeddings: got %d dimensions, want %d", len(data.Embedding), s.dimensions)
		}
		vecs[data.Index] = data.Embedding
	}
	for i, v := range vecs {
		if v == nil {
			return nil, fmt.Errorf("create embeddings: no vector for input %d", i)
		}
	}
	return vecs, nil
}

// retryable reports whether err is a rate limit or server error.
func retryable(err error) bool {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.HTTPStatusCode >= 500
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests || reqErr.HTTPStatusCode >= 500
	}
	return false
}

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}

// ModelName returns the name of the embedding model being used.
func (s *EmbeddingService) ModelName() string {
	return s.model
}

// Ping checks the key by listing models.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	if _, err := s.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// Close releases resources.
func (s *EmbeddingService) Close() error {
	return nil
}
