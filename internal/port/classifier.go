package port

import (
	"context"

	"opsqa/internal/domain"
)

// Classifier assigns a content category and structured metadata to a
// chunk's text. Implementations must never block indefinitely on a
// misbehaving model: after a bounded retry budget they fall back to a
// deterministic default.
type Classifier interface {
	Classify(ctx context.Context, text string) (domain.Classification, error)
}
