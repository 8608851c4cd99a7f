package domain

// Query length bounds in characters.
const (
	MinQueryLength = 3
	MaxQueryLength = 2000
)

// DefaultSimilarityThreshold is the minimum normalised top score that
// lets retrieved context through to generation.
const DefaultSimilarityThreshold = 0.30

// Confidence values used when the answer is a refusal.
const (
	ConfidenceUnavailable = 0.0
	ConfidenceNotSure     = 0.2
	ConfidenceNoScores    = 0.3
)

// QueryRequest is a question to answer from the corpus.
type QueryRequest struct {
	Query  string `json:"query"`
	TopK   int    `json:"top_k"`
	KFinal int    `json:"k_final"`
}

// Telemetry captures generation cost and latency.
type Telemetry struct {
	LatencyMS        int     `json:"latency_ms"`
	TokensPrompt     int     `json:"tokens_prompt"`
	TokensCompletion int     `json:"tokens_completion"`
	CostUSD          float64 `json:"cost_usd"`
}

// AnswerCitation is a reference rendered alongside an answer.
type AnswerCitation struct {
	Rank  int    `json:"rank"`
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Answer is the response to a QueryRequest.
type Answer struct {
	Answer        string           `json:"answer"`
	Citations     []AnswerCitation `json:"citations"`
	Confidence    float64          `json:"confidence"`
	Telemetry     Telemetry        `json:"telemetry"`
	Snippets      []Result         `json:"snippets"`
	InteractionID int64            `json:"interaction_id,omitempty"`
}

// Generation is the raw output of a generator.
type Generation struct {
	Text             string
	Confidence       *float64
	TokensPrompt     int
	TokensCompletion int
	CostUSD          float64
}

// SafetyLabel is the outcome of the query safety screen.
type SafetyLabel string

// Safety labels.
const (
	SafetySafe     SafetyLabel = "safe"
	SafetyUnsafe   SafetyLabel = "unsafe"
	SafetyOffTopic SafetyLabel = "off_topic"
)

// DefaultAnswerSystemPrompt is the built-in system prompt for answer
// generation.
//
//nolint:lll // Prompt content is intentionally long and should not be wrapped.
const DefaultAnswerSystemPrompt = `You are a domain-scoped Knowledge Assistant. Answer concisely and precisely, include citations like [1], [2] (title + URL). If context is insufficient, say "I’m not sure" and suggest where to look. Avoid speculation.`
