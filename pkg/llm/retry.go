package llm

import (
	"context"
	"time"

	pkgLogger "github.com/fpt/parley-cli/pkg/logger"
)

var logger = pkgLogger.NewComponentLogger("llm")

const (
	maxAttempts    = 3
	initialBackoff = 2 * time.Second
	maxBackoff     = 10 * time.Second
)

// backoffDelay doubles the initial delay per completed attempt, capped at
// maxBackoff.
func backoffDelay(attempt int) time.Duration {
	delay := initialBackoff << uint(attempt)
	if delay > maxBackoff {
		return maxBackoff
	}
	return delay
}

// Retryable reports whether a failed request may be attempted again.
// Network failures, rate limiting and server-side errors retry; cancelled
// requests and client-side errors never do.
func Retryable(err error) bool {
	code := Classify(err)
	switch {
	case code == CodeNetwork:
		return true
	case code == 429:
		return true
	case code >= 500:
		return true
	default:
		return false
	}
}

// Retry runs fn up to maxAttempts times, sleeping with exponential backoff
// between attempts. Only errors Retryable considers transient are retried;
// a cancelled context ends the loop immediately.
func Retry(ctx context.Context, op string, fn func() error) error {
	var lastErr error

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			delay := backoffDelay(attempt - 1)
			logger.Debug("Retrying request", "op", op, "attempt", attempt+1, "delay", delay.String())
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !Retryable(lastErr) {
			return lastErr
		}
	}

	return lastErr
}

// RetryStream is Retry for streaming requests. A stream that has already
// delivered fragments is never reconnected, otherwise the consumer would
// see the response restart mid-way.
func RetryStream(ctx context.Context, op string, delivered func() bool, fn func() error) error {
	var lastErr error

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			delay := backoffDelay(attempt - 1)
			logger.Debug("Retrying stream", "op", op, "attempt", attempt+1, "delay", delay.String())
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if delivered() || !Retryable(lastErr) {
			return lastErr
		}
	}

	return lastErr
}
