package datastore

import (
	"log/slog"
	"time"

	"github.com/gcombe/batnet-go/internal/errors"
)

// Contention retry policy. The store is single-writer-at-a-time; lock
// conflicts are expected and transient, so whole units of work are retried
// with a fixed delay up to a bound. The bound matters: retrying forever turns
// a stuck store into a hung run.
const (
	contentionRetryAttempts = 5
	contentionRetryDelay    = 100 * time.Millisecond
)

// retryOnContention executes op, retrying the entire unit of work on
// transient lock conflicts. Non-contention errors return immediately.
// Exhausting the attempt budget surfaces ErrStoreUnavailable.
func retryOnContention(logger *slog.Logger, operation string, attempts int, delay time.Duration, op func() error) error {
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isLockContention(lastErr) {
			return lastErr
		}
		if attempt < attempts {
			if logger != nil {
				logger.Warn("store contention, retrying",
					"operation", operation,
					"attempt", attempt,
					"max_attempts", attempts,
					"delay", delay,
					"error", lastErr)
			}
			time.Sleep(delay)
		}
	}

	return dbError(errors.Join(ErrStoreUnavailable, lastErr),
		operation, errors.PriorityCritical,
		"attempts", attempts)
}

// withContentionRetry applies the default retry policy to a unit of work.
func (ds *DataStore) withContentionRetry(operation string, op func() error) error {
	return retryOnContention(ds.logger, operation, contentionRetryAttempts, contentionRetryDelay, op)
}
