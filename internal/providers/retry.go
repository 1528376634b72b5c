package providers

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/corvid-labs/corpusmind/internal/apperrors"
)

// WithRetry retries op on rate-limit errors using exponential backoff
// (2s, 4s, 8s; up to maxAttempts). Any other error propagates immediately.
func WithRetry(ctx context.Context, maxAttempts int, op func() error) error {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 2 * time.Second
	b.Multiplier = 2
	b.MaxInterval = 8 * time.Second
	b.RandomizationFactor = 0
	bounded := backoff.WithMaxRetries(b, uint64(maxAttempts-1))

	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		err := op()
		if err == nil {
			return nil
		}
		if apperrors.Classify(err) != apperrors.KindRateLimited {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(bounded, ctx))
}
