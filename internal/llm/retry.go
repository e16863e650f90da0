package llm

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"net/http"
	"time"
)

// RetryConfig defines retry behavior for generation calls.
type RetryConfig struct {
	// MaxRetries is the number of retry attempts after the first call.
	MaxRetries int
	// InitialDelay is the delay before the first retry.
	InitialDelay time.Duration
	// MaxDelay caps the delay between retries.
	MaxDelay time.Duration
	// Multiplier grows the delay after each retry.
	Multiplier float64
	// JitterFactor randomizes delays (0.0-1.0).
	JitterFactor float64
}

// DefaultRetryConfig returns the standard retry budget.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:   3,
		InitialDelay: time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.1,
	}
}

// IsRetryableStatusCode reports whether an HTTP status warrants a retry.
func IsRetryableStatusCode(statusCode int) bool {
	switch statusCode {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// IsRetryableError reports whether an error warrants a retry. Cancellation
// and deadline expiry are never retried.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return true
}

// Backoff returns the delay before the given retry attempt (1-based),
// exponential with jitter.
func (c RetryConfig) Backoff(attempt int) time.Duration {
	if attempt <= 1 {
		return addJitter(c.InitialDelay, c.JitterFactor)
	}

	delay := float64(c.InitialDelay) * math.Pow(c.Multiplier, float64(attempt-1))
	if delay > float64(c.MaxDelay) {
		delay = float64(c.MaxDelay)
	}
	return addJitter(time.Duration(delay), c.JitterFactor)
}

// addJitter randomizes a duration by up to factor in either direction.
// Jitter does not require cryptographic randomness.
func addJitter(d time.Duration, factor float64) time.Duration {
	if factor <= 0 {
		return d
	}

	jitter := (rand.Float64() - 0.5) * 2 * float64(d) * factor // #nosec G404
	out := time.Duration(float64(d) + jitter)
	if out < 0 {
		out = 0
	}
	return out
}

// retry runs fn up to 1+MaxRetries times, sleeping the backoff schedule
// between attempts. fn reports via retryable whether a failure is worth
// another attempt.
func retry(ctx context.Context, cfg RetryConfig, fn func() (retryable bool, err error)) error {
	var lastErr error

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return fmt.Errorf("%w (after: %v)", err, lastErr)
			}
			return err
		}

		retryable, err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !retryable || attempt == cfg.MaxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("%w (after: %v)", ctx.Err(), lastErr)
		case <-time.After(cfg.Backoff(attempt + 1)):
		}
	}

	return fmt.Errorf("all %d attempts failed: %w", cfg.MaxRetries+1, lastErr)
}
