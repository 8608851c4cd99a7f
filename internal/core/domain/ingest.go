package domain

import (
	"io"
	"path/filepath"
	"strings"
)

// Default chunking parameters.
const (
	DefaultMaxTokens = 512
	DefaultOverlap   = 64
)

// MaxUploadSize is the largest accepted upload in bytes.
const MaxUploadSize = 50 << 20

// SupportedExtensions lists the file extensions that can be ingested.
func SupportedExtensions() []string {
	return []string{".md", ".markdown", ".pdf", ".html", ".htm"}
}

// IsSupportedFile reports whether the file extension can be ingested.
func IsSupportedFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range SupportedExtensions() {
		if e == ext {
			return true
		}
	}
	return false
}

// BuildOptions configures a build over a set of paths.
type BuildOptions struct {
	// MaxTokens is the chunk window size in words. Zero or less keeps
	// each section whole. Nil uses the configured window.
	MaxTokens *int

	// Overlap is the number of words shared by consecutive windows.
	// Nil uses the configured overlap.
	Overlap *int

	// SkipIndex leaves the vector index untouched.
	SkipIndex bool

	// SourceOverride replaces the file path as the document source.
	// Keyed by absolute file path.
	SourceOverride map[string]string
}

// IntOption returns a pointer to v for optional settings such as
// BuildOptions.MaxTokens.
func IntOption(v int) *int {
	return &v
}

// Chunking resolves the window for this build against defaults.
func (o BuildOptions) Chunking(defaults ChunkingSettings) ChunkingSettings {
	if o.MaxTokens != nil {
		defaults.MaxTokens = *o.MaxTokens
	}
	if o.Overlap != nil {
		defaults.Overlap = *o.Overlap
	}
	return defaults
}

// FileResult is the outcome for one input file.
type FileResult struct {
	// Path is the file that was processed.
	Path string `json:"path"`

	// Title is the document title, when loading succeeded.
	Title string `json:"title,omitempty"`

	// Chunks is the number of chunks stored.
	Chunks int `json:"chunks"`

	// Skipped is true when the file type is not supported.
	Skipped bool `json:"skipped,omitempty"`

	// Err is set when loading or storing failed.
	Err error `json:"-"`

	// Error is the rendered Err for serialisation.
	Error string `json:"error,omitempty"`
}

// BuildReport is the result of a build run.
type BuildReport struct {
	// ChunkIDs are the ids of every chunk created by the run, in order.
	ChunkIDs []int64 `json:"chunk_ids"`

	// Documents is the number of documents stored.
	Documents int `json:"documents"`

	// Files holds per-file outcomes.
	Files []FileResult `json:"files"`

	// Index is set when the run updated the vector index.
	Index *IndexReport `json:"index,omitempty"`
}

// Failed returns the file results that carry an error.
func (r *BuildReport) Failed() []FileResult {
	var out []FileResult
	for _, f := range r.Files {
		if f.Err != nil {
			out = append(out, f)
		}
	}
	return out
}

// Upload is one file received for ingestion.
type Upload struct {
	// Name is the client-supplied file name.
	Name string

	// Size is the declared size in bytes.
	Size int64

	// Open returns the file body.
	Open func() (io.ReadCloser, error)
}

// UploadResult is the outcome for one uploaded file.
type UploadResult struct {
	Name    string `json:"name"`
	SavedAs string `json:"saved_as,omitempty"`
	Status  string `json:"status"`
	Error   string `json:"error,omitempty"`
}

// Upload result statuses.
const (
	UploadStatusSaved  = "saved"
	UploadStatusFailed = "failed"
)

// UploadReport is the result of an upload batch.
type UploadReport struct {
	BatchID        string         `json:"batch_id"`
	Files          []UploadResult `json:"files"`
	Saved          int            `json:"saved"`
	Failed         int            `json:"failed"`
	DocumentsAdded int            `json:"documents_added"`
	ChunksAdded    int            `json:"chunks_added"`
	TotalDocuments int            `json:"total_documents"`
	TotalChunks    int            `json:"total_chunks"`
	Index          *IndexReport   `json:"index,omitempty"`
}

// IngestStatus describes the current corpus and index.
type IngestStatus struct {
	TotalDocuments  int               `json:"total_documents"`
	TotalChunks     int               `json:"total_chunks"`
	IndexExists     bool              `json:"index_exists"`
	IndexVectors    int               `json:"index_vectors"`
	RecentDocuments []DocumentSummary `json:"recent_documents"`
}
