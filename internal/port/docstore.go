package port

import "opsqa/internal/domain"

// DocStore persists documents, chunks and ingestion reports. It also
// tracks the active document version per source path so supersession
// retires old versions instead of overwriting them.
type DocStore interface {
	PutDoc(doc domain.Document) error

	GetDoc(id string) (domain.Document, error)

	ListDocs() ([]domain.Document, error)

	// ActiveDoc returns the live document version for a source path.
	ActiveDoc(sourcePath string) (domain.Document, error)

	// SetActiveDoc flips the live pointer for a source path.
	SetActiveDoc(sourcePath, docID string) error

	// RetireDoc marks a document retired and deletes its chunks.
	RetireDoc(id string) error

	PutChunks(chunks []domain.Chunk) error

	GetChunk(id string) (domain.Chunk, error)

	GetChunksByDoc(docID string) ([]domain.Chunk, error)

	PutReport(report domain.IngestReport) error

	GetReport(docID string) (domain.IngestReport, error)

	Close() error
}
