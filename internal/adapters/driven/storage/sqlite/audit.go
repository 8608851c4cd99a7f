package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/custodia-labs/groundwork/internal/core/domain"
	"github.com/custodia-labs/groundwork/internal/core/ports/driven"
)

// ==================== Audit Store ====================

// auditStore implements driven.AuditStore.
type auditStore struct {
	store *Store
}

var _ driven.AuditStore = (*auditStore)(nil)

// CreateInteraction stores the interaction and its citations in one transaction.
func (s *auditStore) CreateInteraction(
	ctx context.Context, in domain.Interaction, citations []domain.Citation,
) (int64, error) {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if in.CreatedAt.IsZero() {
		in.CreatedAt = time.Now().UTC()
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO interactions (query, llm_model, embed_model, latency_ms, tokens_prompt,
			tokens_completion, cost_usd, confidence, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, in.Query, in.LLMModel, in.EmbedModel, in.LatencyMS, in.TokensPrompt,
		in.TokensCompletion, in.CostUSD, in.Confidence, in.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("saving interaction: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading interaction id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO citations (interaction_id, chunk_id, rank, score)
		VALUES (?, (SELECT id FROM chunks WHERE id = ?), ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, c := range citations {
		if _, err := stmt.ExecContext(ctx, id, c.ChunkID, c.Rank, c.Score); err != nil {
			return 0, fmt.Errorf("saving citation: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing transaction: %w", err)
	}
	return id, nil
}

// CreateFeedback stores a rating for an interaction.
func (s *auditStore) CreateFeedback(ctx context.Context, fb domain.Feedback) (int64, error) {
	var exists int
	err := s.store.db.QueryRowContext(ctx, "SELECT 1 FROM interactions WHERE id = ?", fb.InteractionID).Scan(&exists)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("interaction %d: %w", fb.InteractionID, domain.ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("checking interaction: %w", err)
	}

	res, err := s.store.db.ExecContext(ctx, `
		INSERT INTO feedback (interaction_id, rating, comment) VALUES (?, ?, ?)
	`, fb.InteractionID, fb.Rating, fb.Comment)
	if err != nil {
		return 0, fmt.Errorf("saving feedback: %w", err)
	}
	return res.LastInsertId()
}
