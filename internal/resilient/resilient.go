// Package resilient runs storage operations with bounded retries.
package resilient

import (
	"context"
	"math"
	"time"
)

const (
	// DefaultAttempts is number of attempts for ordinary operations
	DefaultAttempts = 3
	// ProbeAttempts is number of attempts for health probes
	ProbeAttempts = 2
)

// Policy describes how an operation is retried
type Policy struct {
	// Attempts is maximum number of tries, values below 1 mean one try
	Attempts int
	// Backoff returns delay before next try after failed attempt (1-based)
	Backoff func(attempt int) time.Duration
	// Retryable reports whether err is worth another try. Nil retries everything.
	Retryable func(err error) bool
	// Disconnected reports whether err means server dropped the connection
	Disconnected func(err error) bool
	// Reconnect is called before next try when Disconnected(err) is true
	Reconnect func(ctx context.Context) error
}

// ExponentialBackoff waits 2^attempt seconds
func ExponentialBackoff(attempt int) time.Duration {
	return time.Duration(math.Pow(2, float64(attempt))) * time.Second
}

// Do runs op until it succeeds or policy attempts are exhausted. The last
// error is returned. Waiting between attempts is aborted by ctx.
func Do[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, error) {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var (
		res T
		err error
	)
	for attempt := 1; attempt <= attempts; attempt++ {
		res, err = op(ctx)
		if err == nil {
			return res, nil
		}
		if attempt == attempts || (p.Retryable != nil && !p.Retryable(err)) {
			break
		}

		if p.Disconnected != nil && p.Reconnect != nil && p.Disconnected(err) {
			// a failed reconnect is retried by next attempt anyway
			_ = p.Reconnect(ctx)
		}

		if p.Backoff != nil {
			if werr := wait(ctx, p.Backoff(attempt)); werr != nil {
				return res, err
			}
		}
	}

	return res, err
}

// Run is Do for operations without result
func Run(ctx context.Context, p Policy, op func(ctx context.Context) error) error {
	_, err := Do(ctx, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
