package domain

import (
	"fmt"
	"unicode/utf8"
)

// PreviewLength is the number of characters of chunk text kept in a
// metadata record.
const PreviewLength = 700

// MetadataRecord describes the vector stored at the same slot of the index.
// The shape is fixed; optional strings default to "".
type MetadataRecord struct {
	Title    string `json:"title"`
	Source   string `json:"source"`
	URL      string `json:"url"`
	Section  string `json:"section"`
	Position int    `json:"position"`
	ChunkID  int64  `json:"chunk_id"`
	Text     string `json:"text"`
}

// Validate checks the record carries a usable chunk id and position.
func (m MetadataRecord) Validate() error {
	if m.ChunkID <= 0 {
		return fmt.Errorf("metadata record: chunk_id %d: %w", m.ChunkID, ErrInvalidInput)
	}
	if m.Position < 0 {
		return fmt.Errorf("metadata record: position %d: %w", m.Position, ErrInvalidInput)
	}
	return nil
}

// NewMetadataRecord builds the index record for a stored chunk.
func NewMetadataRecord(c IndexedChunk) MetadataRecord {
	return MetadataRecord{
		Title:    c.Document.Title,
		Source:   c.Document.Source,
		URL:      c.Document.URL,
		Section:  c.Chunk.Section,
		Position: c.Chunk.Position,
		ChunkID:  c.Chunk.ID,
		Text:     Preview(c.Chunk.Text),
	}
}

// Preview returns the first PreviewLength characters of text.
func Preview(text string) string {
	if utf8.RuneCountInString(text) <= PreviewLength {
		return text
	}
	runes := []rune(text)
	return string(runes[:PreviewLength])
}

// IndexHit is a vector search hit: a slot, its inner-product score and the
// metadata record stored at that slot when the search ran.
type IndexHit struct {
	Slot   int
	Score  float64
	Record MetadataRecord
}

// IndexAction is the step chosen by the index update protocol.
type IndexAction string

// Index update actions.
const (
	// IndexActionNoop means there was nothing to index.
	IndexActionNoop IndexAction = "noop"

	// IndexActionAppend extends the existing artifacts.
	IndexActionAppend IndexAction = "append"

	// IndexActionRebuild rewrites the artifacts from the chunk store.
	IndexActionRebuild IndexAction = "rebuild"
)

// String returns the string representation.
func (a IndexAction) String() string {
	return string(a)
}

// IndexReport summarises an index maintenance run.
type IndexReport struct {
	// Action is the step that completed.
	Action IndexAction `json:"action"`

	// FellBack is true when an append failed and a rebuild took over.
	FellBack bool `json:"fell_back"`

	// Added is the number of vectors written by this run.
	Added int `json:"added"`

	// Vectors is the index size after the run.
	Vectors int `json:"vectors"`
}
