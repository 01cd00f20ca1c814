// Package retry provides the capped-exponential-backoff policy applied to
// the embedding and generation calls.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/kailas-cloud/searchproxy/internal/domain"
)

// Policy retries throttled operations with exponential backoff: a bounded
// attempt count, delays doubling from a base. Any other error class fails on
// the first attempt. The delay budget is deducted from the caller's deadline
// because the context propagates into the waits.
type Policy struct {
	maxAttempts uint64
	baseDelay   time.Duration
	logger      *zap.Logger
}

// New creates a Policy. maxAttempts counts the initial attempt.
func New(maxAttempts int, baseDelay time.Duration, logger *zap.Logger) *Policy {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Policy{
		maxAttempts: uint64(maxAttempts),
		baseDelay:   baseDelay,
		logger:      logger,
	}
}

// Do runs op, retrying only errors matching domain.ErrThrottled.
func (p *Policy) Do(ctx context.Context, op func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.baseDelay
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0

	attempt := 0
	wrapped := func() error {
		attempt++
		err := op()
		if err == nil {
			return nil
		}
		if errors.Is(err, domain.ErrThrottled) {
			p.logger.Warn("throttled, will retry",
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			return err
		}
		return backoff.Permanent(err)
	}

	return backoff.Retry(wrapped,
		backoff.WithContext(backoff.WithMaxRetries(b, p.maxAttempts-1), ctx))
}
