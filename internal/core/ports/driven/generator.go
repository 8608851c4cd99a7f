package driven

import (
	"context"

	"github.com/custodia-labs/groundwork/internal/core/domain"
)

// Generator produces an answer from a grounded prompt.
// Optional: when nil, answers are extractive.
//
// Implementations may include:
//   - OpenAI chat completions
type Generator interface {
	// Generate produces a completion for the prompt.
	Generate(ctx context.Context, prompt string) (*domain.Generation, error)

	// ModelName returns the name of the model being used.
	ModelName() string

	// Ping validates the service is reachable.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
