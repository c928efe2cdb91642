package port

import "context"

// MetaKeyModel is the metadata key under which every stored vector
// records the embedding model that produced it.
const MetaKeyModel = "embedding_model"

// VectorItem represents a vector to be stored.
type VectorItem struct {
	ID       string            // Chunk ID
	Vector   []float32         // Embedding vector
	Metadata map[string]string // Classification metadata plus model id
}

// VectorResult represents a search result.
type VectorResult struct {
	ID       string            // Chunk ID
	Score    float64           // Cosine similarity (higher is better)
	Metadata map[string]string // Stored metadata
}

// VectorStore stores and searches embedding vectors. Implementations
// must make the upsert of a single id atomic: a concurrent reader never
// observes a half-written vector/metadata pair. No cross-id transaction
// guarantee is required.
type VectorStore interface {
	// Upsert adds or updates vectors, keyed by id. Re-indexing the
	// same id overwrites, never duplicates.
	Upsert(ctx context.Context, items []VectorItem) error

	// Search finds the k nearest vectors to the query, restricted to
	// vectors whose metadata matches every entry of filter. A nil or
	// empty filter matches everything.
	Search(ctx context.Context, query []float32, k int, filter map[string]string) ([]VectorResult, error)

	// Delete removes vectors by their IDs.
	Delete(ctx context.Context, ids []string) error

	// ModelName returns the embedding model id recorded for the stored
	// vectors, or "" when the store is empty.
	ModelName(ctx context.Context) (string, error)

	// Count returns the number of vectors in the store.
	Count(ctx context.Context) (int, error)
}
