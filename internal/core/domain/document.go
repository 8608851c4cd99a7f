package domain

import (
	"path/filepath"
	"strings"
	"time"
)

// Document is a source document. Identity is the (Source, Title) pair:
// re-ingesting the same pair reuses the row and replaces its chunks.
type Document struct {
	// ID is the store-assigned identifier.
	ID int64

	// Source is where the document came from (file path or "uploaded:<name>").
	Source string

	// Title is the human-readable title, usually the file stem.
	Title string

	// URL is an optional canonical link.
	URL string

	// RevisionDate is an optional free-form revision marker.
	RevisionDate string

	// CreatedAt is when the document was first stored.
	CreatedAt time.Time
}

// LoadedDocument is the output of a DocumentLoader: plain text plus the
// identifying metadata that will be stamped on every chunk.
type LoadedDocument struct {
	// Path is the file the text was read from.
	Path string

	// Source is the document source recorded in the store.
	Source string

	// Title is the document title.
	Title string

	// URL is an optional canonical link.
	URL string

	// RevisionDate is an optional revision marker.
	RevisionDate string

	// Content is the extracted plain text.
	Content string
}

// ChunkMetadata is the denormalised metadata blob persisted with a chunk.
type ChunkMetadata struct {
	Source   string `json:"source"`
	Title    string `json:"title"`
	URL      string `json:"url"`
	Section  string `json:"section"`
	Position int    `json:"position"`
}

// ChunkDraft is a chunk that has not been persisted yet.
type ChunkDraft struct {
	// Text is the chunk body.
	Text string

	// TokenCount is the whitespace-delimited word count of Text.
	TokenCount int

	// Section is the title of the heading section the chunk came from.
	Section string

	// Position is the 0-based ordinal within the document, contiguous
	// across sections.
	Position int

	// Metadata is the denormalised metadata blob.
	Metadata ChunkMetadata
}

// Chunk is a persisted chunk. ID is monotonically assigned by the store
// and stable for the life of the row.
type Chunk struct {
	ID         int64
	DocumentID int64
	Text       string
	TokenCount int
	Section    string
	Position   int
	Metadata   ChunkMetadata
}

// IndexedChunk joins a chunk with the document fields needed to build
// its index metadata record.
type IndexedChunk struct {
	Chunk    Chunk
	Document Document
}

// DocumentSummary is a document with its chunk count, used for status views.
type DocumentSummary struct {
	Document   Document
	ChunkCount int
}

// TitleFromPath returns the file name without its extension.
func TitleFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
