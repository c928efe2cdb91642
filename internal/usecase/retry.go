package usecase

import (
	"context"
	"log/slog"
	"math/rand"
	"time"
)

// withRetry runs fn with exponential backoff and jitter between
// attempts. attempts is the retry budget on top of the first try.
func withRetry(ctx context.Context, attempts int, logger *slog.Logger, op string, fn func() error) error {
	var lastErr error

	for attempt := 0; attempt <= attempts; attempt++ {
		if attempt > 0 {
			// Jitter prevents retry bursts when several workers fail at once.
			base := time.Duration(attempt*attempt) * time.Second
			jitter := time.Duration(rand.Int63n(int64(base/2 + 1)))
			backoff := base + jitter
			logger.Warn("retrying", "op", op, "attempt", attempt+1, "backoff", backoff)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}

		if err := fn(); err != nil {
			lastErr = err
			continue
		}
		return nil
	}

	return lastErr
}
