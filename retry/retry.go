// Package retry provides bounded retries with exponential backoff for the
// transient failures seen when submitting transactions to public RPC nodes.
package retry

import (
	"context"
	"fmt"
	"time"
)

// Policy bounds a retried operation.
type Policy struct {
	// Attempts is the total number of tries, including the first.
	Attempts int

	// InitialDelay is the wait before the second attempt.
	InitialDelay time.Duration

	// MaxDelay caps the backoff.
	MaxDelay time.Duration

	// Multiplier grows the delay between attempts.
	Multiplier float64
}

// DefaultPolicy suits RPC submission: a few quick tries, capped backoff.
var DefaultPolicy = Policy{
	Attempts:     3,
	InitialDelay: 200 * time.Millisecond,
	MaxDelay:     2 * time.Second,
	Multiplier:   2.0,
}

// Retryable reports whether an error is worth another attempt.
type Retryable func(error) bool

// Do runs fn until it succeeds, the policy is exhausted, the error is not
// retryable, or the context ends.
func Do[T any](ctx context.Context, p Policy, retryable Retryable, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error
	delay := p.InitialDelay

	for attempt := 0; attempt < p.Attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !retryable(err) {
			return zero, err
		}
		if attempt == p.Attempts-1 {
			break
		}

		select {
		case <-time.After(delay):
			delay = time.Duration(float64(delay) * p.Multiplier)
			if delay > p.MaxDelay {
				delay = p.MaxDelay
			}
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}

	return zero, fmt.Errorf("retries exhausted: %w", lastErr)
}
