package driven

import (
	"context"

	"github.com/custodia-labs/groundwork/internal/core/domain"
)

// DocumentLoader extracts plain text from a source file.
// Each loader handles a fixed set of file extensions.
type DocumentLoader interface {
	// Extensions returns the lowercase extensions this loader handles,
	// including the leading dot.
	Extensions() []string

	// Load reads the file and returns its text and metadata.
	// Title defaults to the file stem when the document has none.
	Load(ctx context.Context, path string) (*domain.LoadedDocument, error)
}

// LoaderRegistry selects the loader for a path.
type LoaderRegistry interface {
	// Register adds a loader for its extensions.
	Register(loader DocumentLoader)

	// Get returns the loader for the path's extension.
	// Returns domain.ErrUnsupportedType when none is registered.
	Get(path string) (DocumentLoader, error)

	// Supports reports whether a loader exists for the path.
	Supports(path string) bool
}
