package domain

// Default retrieval parameters.
const (
	DefaultTopK   = 20
	DefaultKFinal = 5
)

// RetrieveOptions configures a retrieval call.
type RetrieveOptions struct {
	// TopK is the number of raw index hits to consider.
	TopK int

	// KFinal is the number of results returned.
	KFinal int
}

// WithDefaults fills zero values with the default limits.
func (o RetrieveOptions) WithDefaults() RetrieveOptions {
	if o.TopK <= 0 {
		o.TopK = DefaultTopK
	}
	if o.KFinal <= 0 {
		o.KFinal = DefaultKFinal
	}
	return o
}

// Result is a hydrated retrieval hit. Score is the raw inner product in
// [-1, 1] unless a reranker replaced it.
type Result struct {
	Rank     int     `json:"rank"`
	Score    float64 `json:"score"`
	Title    string  `json:"title"`
	URL      string  `json:"url"`
	Source   string  `json:"source"`
	Section  string  `json:"section"`
	Position int     `json:"position"`
	ChunkID  int64   `json:"chunk_id"`
	Slot     int     `json:"slot"`
	Text     string  `json:"text"`
}
