package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/custodia-labs/groundwork/internal/core/domain"
	"github.com/custodia-labs/groundwork/internal/core/ports/driven"
	"github.com/custodia-labs/groundwork/internal/core/ports/driving"
	"github.com/custodia-labs/groundwork/internal/logger"
)

// Ensure QueryService implements the interface.
var _ driving.QueryService = (*QueryService)(nil)

// Refusal answers.
const (
	answerUnsafe      = "I'm not sure I can help with that."
	answerNoIndex     = "I'm not sure. The search index is not available. Please ingest some documents first."
	answerNoContext   = "I'm not sure. I could not find enough relevant context."
	answerBelowGate   = "I'm not sure. The retrieved context did not meet the similarity threshold."
	answerGenFailedFm = "I'm not sure. Generation failed: %v"
)

// extractiveModel is recorded as the LLM model when no generator is configured.
const extractiveModel = "extractive"

// QueryConfig holds the answer policy.
type QueryConfig struct {
	// SimilarityThreshold gates generation on the normalised top score.
	// It is used as given, so 0 lets any retrieved context through.
	SimilarityThreshold float64

	// EmbedModel is recorded with each interaction.
	EmbedModel string
}

// DefaultQueryConfig returns the policy used when no settings are loaded.
func DefaultQueryConfig() QueryConfig {
	return QueryConfig{SimilarityThreshold: domain.DefaultSimilarityThreshold}
}

// QueryService answers questions from retrieved context.
type QueryService struct {
	retriever driving.RetrievalService
	generator driven.Generator
	prompts   driven.PromptStore
	audit     driven.AuditStore
	config    QueryConfig
}

// NewQueryService creates a query service. generator, prompts and audit
// are optional (can be nil). Without a generator answers are extractive.
func NewQueryService(
	retriever driving.RetrievalService,
	generator driven.Generator,
	prompts driven.PromptStore,
	audit driven.AuditStore,
	config QueryConfig,
) *QueryService {
	return &QueryService{
		retriever: retriever,
		generator: generator,
		prompts:   prompts,
		audit:     audit,
		config:    config,
	}
}

// Answer retrieves context for the question and answers from it.
func (s *QueryService) Answer(ctx context.Context, req domain.QueryRequest) (*domain.Answer, error) {
	query := strings.TrimSpace(req.Query)
	if n := utf8.RuneCountInString(query); n < domain.MinQueryLength || n > domain.MaxQueryLength {
		return nil, fmt.Errorf("query length %d outside %d-%d: %w",
			n, domain.MinQueryLength, domain.MaxQueryLength, domain.ErrInvalidInput)
	}

	if ClassifyQuery(query) == domain.SafetyUnsafe {
		logger.Info("Refusing unsafe query")
		return refusal(answerUnsafe, domain.ConfidenceUnavailable, nil), nil
	}

	results, err := s.retriever.Retrieve(ctx, query, domain.RetrieveOptions{TopK: req.TopK, KFinal: req.KFinal})
	switch {
	case errors.Is(err, domain.ErrIndexNotFound):
		return refusal(answerNoIndex, domain.ConfidenceUnavailable, nil), nil
	case err != nil:
		return nil, fmt.Errorf("retrieve context: %w", err)
	case len(results) == 0:
		return refusal(answerNoContext, domain.ConfidenceNotSure, nil), nil
	case !PassesSimilarityGate(results, s.config.SimilarityThreshold):
		logger.Debug("Top score %.3f below threshold %.2f", NormaliseScore(results[0].Score), s.config.SimilarityThreshold)
		return refusal(answerBelowGate, domain.ConfidenceNotSure, results), nil
	}

	contexts := PackContexts(results, maxPackedContexts)
	answer := &domain.Answer{
		Citations: citationsFor(contexts),
		Snippets:  results,
	}

	model := extractiveModel
	if s.generator == nil {
		answer.Answer = extractiveAnswer(contexts)
		answer.Confidence = EstimateConfidence(results)
	} else {
		model = s.generator.ModelName()
		s.generate(ctx, query, contexts, results, answer)
	}

	answer.InteractionID = s.record(ctx, query, model, answer)
	return answer, nil
}

// generate fills answer from the generator. A generation failure becomes
// a low-confidence answer rather than an error.
func (s *QueryService) generate(
	ctx context.Context, query string, contexts, results []domain.Result, answer *domain.Answer,
) {
	prompt := BuildPrompt(s.systemPrompt(), query, contexts)

	start := time.Now()
	gen, err := s.generator.Generate(ctx, prompt)
	answer.Telemetry.LatencyMS = int(time.Since(start).Milliseconds())
	if err != nil {
		logger.Warn("Generation failed: %v", err)
		answer.Answer = fmt.Sprintf(answerGenFailedFm, err)
		answer.Confidence = domain.ConfidenceNotSure
		return
	}

	answer.Answer = gen.Text
	answer.Telemetry.TokensPrompt = gen.TokensPrompt
	answer.Telemetry.TokensCompletion = gen.TokensCompletion
	answer.Telemetry.CostUSD = gen.CostUSD
	if gen.Confidence != nil {
		answer.Confidence = *gen.Confidence
	} else {
		answer.Confidence = EstimateConfidence(results)
	}
}

func (s *QueryService) systemPrompt() string {
	if s.prompts == nil {
		return domain.DefaultAnswerSystemPrompt
	}
	prompt, err := s.prompts.Load(driven.PromptAnswerSystem)
	if err != nil {
		logger.Warn("Load system prompt: %v", err)
		return domain.DefaultAnswerSystemPrompt
	}
	return prompt
}

// record stores the interaction and its citations. Audit failures are
// logged and do not fail the answer.
func (s *QueryService) record(ctx context.Context, query, model string, answer *domain.Answer) int64 {
	if s.audit == nil {
		return 0
	}

	citations := make([]domain.Citation, 0, len(answer.Snippets))
	for _, r := range answer.Snippets {
		if r.ChunkID <= 0 {
			continue
		}
		citations = append(citations, domain.Citation{ChunkID: r.ChunkID, Rank: r.Rank, Score: r.Score})
	}

	id, err := s.audit.CreateInteraction(ctx, domain.Interaction{
		Query:            query,
		LLMModel:         model,
		EmbedModel:       s.config.EmbedModel,
		LatencyMS:        answer.Telemetry.LatencyMS,
		TokensPrompt:     answer.Telemetry.TokensPrompt,
		TokensCompletion: answer.Telemetry.TokensCompletion,
		CostUSD:          answer.Telemetry.CostUSD,
		Confidence:       answer.Confidence,
	}, citations)
	if err != nil {
		logger.Warn("Record interaction: %v", err)
		return 0
	}
	return id
}

// RecordFeedback stores a rating for an earlier answer.
func (s *QueryService) RecordFeedback(ctx context.Context, fb domain.Feedback) (int64, error) {
	if s.audit == nil {
		return 0, fmt.Errorf("record feedback: audit store not configured: %w", domain.ErrInvalidInput)
	}
	if fb.InteractionID <= 0 {
		return 0, fmt.Errorf("record feedback: interaction id %d: %w", fb.InteractionID, domain.ErrInvalidInput)
	}

	id, err := s.audit.CreateFeedback(ctx, fb)
	if err != nil {
		return 0, fmt.Errorf("record feedback: %w", err)
	}
	return id, nil
}

func refusal(text string, confidence float64, snippets []domain.Result) *domain.Answer {
	if snippets == nil {
		snippets = []domain.Result{}
	}
	return &domain.Answer{
		Answer:     text,
		Citations:  []domain.AnswerCitation{},
		Confidence: confidence,
		Snippets:   snippets,
	}
}
