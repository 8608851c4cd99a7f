package driving

import (
	"context"

	"github.com/custodia-labs/groundwork/internal/core/domain"
)

// QueryService answers questions from retrieved context.
type QueryService interface {
	// Answer retrieves context, applies the guardrails and produces an answer.
	// Refusals are answers with low confidence, not errors.
	Answer(ctx context.Context, req domain.QueryRequest) (*domain.Answer, error)

	// RecordFeedback stores a rating for an earlier answer.
	RecordFeedback(ctx context.Context, fb domain.Feedback) (int64, error)
}
