package port

import (
	"context"

	"opsqa/internal/domain"
)

// Extractor converts a raw document into ordered text spans with
// provenance. Extraction is finite and not restartable: calling Extract
// again re-extracts from scratch.
type Extractor interface {
	// Extract returns the spans it could read plus per-page failures
	// for the pages it could not. A non-nil error means the document
	// as a whole was unreadable.
	Extract(ctx context.Context, path string, content []byte) ([]domain.Span, []domain.PageFailure, error)

	// Formats returns the format classes this extractor handles.
	Formats() []domain.Format
}
