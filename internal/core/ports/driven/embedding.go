package driven

import "context"

// EmbeddingService turns text into vectors. Implementations return raw
// model output; the embedding gateway normalises vectors and checks their
// dimension before anything reaches the index.
type EmbeddingService interface {
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch returns exactly one vector per input, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions is the vector size the service produces.
	Dimensions() int

	// ModelName is recorded with each indexed vector and audited answer.
	ModelName() string

	// Ping makes the cheapest request that proves credentials and reachability.
	Ping(ctx context.Context) error

	Close() error
}
