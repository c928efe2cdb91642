package port

import "opsqa/internal/domain"

// Chunker splits the extracted spans of one document into bounded,
// overlap-aware chunks with stable identifiers.
type Chunker interface {
	Chunk(doc domain.Document, spans []domain.Span) ([]domain.Chunk, error)
}
