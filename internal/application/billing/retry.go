package billing

import (
	"context"
	"errors"
	"time"

	"github.com/meterbill/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// retryBackoff is the base pause between optimistic lock retries
const retryBackoff = 5 * time.Millisecond

// withRetry runs fn again when it fails with a version conflict, up to
// maxRetries extra attempts. The last conflict is returned as
// CONCURRENT_MODIFICATION.
func withRetry(ctx context.Context, logger *zap.Logger, operation string, maxRetries int, fn func(attempt int) error) error {
	var err error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			logger.Debug("retrying after concurrent modification",
				zap.String("operation", operation),
				zap.Int("attempt", attempt))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * retryBackoff):
			}
		}

		err = fn(attempt)
		if err == nil || !errors.Is(err, shared.ErrConcurrencyConflict) {
			return err
		}
	}

	logger.Warn("giving up after concurrent modifications",
		zap.String("operation", operation),
		zap.Int("max_retries", maxRetries))
	return shared.NewDomainError(shared.ErrConcurrencyConflict.Code,
		"Resource was modified concurrently, please retry")
}
