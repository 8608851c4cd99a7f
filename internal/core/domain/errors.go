package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates a file type no loader handles.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrFileTooLarge indicates an upload above MaxUploadSize.
	ErrFileTooLarge = errors.New("file too large")

	// Ingestion Errors.

	// ErrLoad indicates a document could not be read or parsed.
	ErrLoad = errors.New("load failed")

	// ErrNoChunks indicates the chunk store is empty, so there is
	// nothing to build an index from.
	ErrNoChunks = errors.New("no chunks to index")

	// ErrEmbedding indicates the embedding provider failed or returned
	// malformed vectors. Nothing is written when this occurs.
	ErrEmbedding = errors.New("embedding failed")

	// Index Errors.

	// ErrIndexNotFound indicates the index artifacts are missing.
	ErrIndexNotFound = errors.New("index not found")

	// ErrIndexCorrupt indicates the index artifacts are misaligned or
	// unreadable. A full rebuild repairs it.
	ErrIndexCorrupt = errors.New("index corrupt")

	// ErrRerankUnavailable indicates reranking was requested without a reranker.
	ErrRerankUnavailable = errors.New("reranker unavailable")
)

// LoadError wraps a per-file ingestion failure.
type LoadError struct {
	Path string
	Err  error
}

// Error implements error.
func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Path, e.Err)
}

// Unwrap lets errors.Is match both ErrLoad and the cause.
func (e *LoadError) Unwrap() []error {
	return []error{ErrLoad, e.Err}
}
