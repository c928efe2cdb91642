package port

import (
	"context"

	"opsqa/internal/domain"
)

// Retriever searches indexed chunks for a free-text query and returns
// at most k re-ranked results.
type Retriever interface {
	Search(ctx context.Context, query string, k int, filter domain.QueryFilter) ([]domain.RetrievalResult, error)
}
