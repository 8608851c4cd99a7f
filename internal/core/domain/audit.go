package domain

import "time"

// Interaction records one answered query.
type Interaction struct {
	ID               int64
	Query            string
	LLMModel         string
	EmbedModel       string
	LatencyMS        int
	TokensPrompt     int
	TokensCompletion int
	CostUSD          float64
	Confidence       float64
	CreatedAt        time.Time
}

// Citation links an interaction to a chunk it cited.
type Citation struct {
	ID            int64
	InteractionID int64
	ChunkID       int64
	Rank          int
	Score         float64
}

// Feedback is a user rating of an interaction.
type Feedback struct {
	ID            int64
	InteractionID int64
	Rating        int
	Comment       string
}
