package driving

import (
	"context"

	"github.com/custodia-labs/groundwork/internal/core/domain"
)

// RetrievalService returns ranked, hydrated passages for a query.
type RetrievalService interface {
	// Retrieve returns at most opts.KFinal results ranked 1..n.
	// Returns domain.ErrIndexNotFound when no index has been built.
	Retrieve(ctx context.Context, query string, opts domain.RetrieveOptions) ([]domain.Result, error)
}
