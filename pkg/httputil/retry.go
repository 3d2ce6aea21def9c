package httputil

import (
	"context"
	"errors"
	"time"
)

// MaxRetryAfter caps a server-requested delay between attempts. Longer
// waits are the caller's business (see the crawl scheduler).
const MaxRetryAfter = time.Minute

// RetryableError marks a transient failure for [Retry]. After, when set,
// is the delay the server asked for and replaces the backoff for the next
// attempt.
type RetryableError struct {
	Err   error
	After time.Duration
}

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// Retryable wraps err as a RetryableError. A nil err stays nil.
func Retryable(err error) error {
	return RetryableAfter(err, 0)
}

// RetryableAfter is Retryable with a server-requested delay.
func RetryableAfter(err error, after time.Duration) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err, After: min(max(after, 0), MaxRetryAfter)}
}

// IsRetryable reports whether err is wrapped with RetryableError.
func IsRetryable(err error) bool {
	return errors.As(err, new(*RetryableError))
}

// Retry calls fn up to attempts times. Only [RetryableError] failures are
// retried; anything else is returned at once. The delay doubles after each
// failure unless the error carries its own After. It returns the last
// error when attempts run out, or ctx.Err() if ctx ends while waiting.
func Retry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	attempts = max(attempts, 1)
	var lastErr error

	for i := range attempts {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		var re *RetryableError
		if !errors.As(err, &re) {
			return err
		}
		if i == attempts-1 {
			break
		}

		wait := delay
		if re.After > 0 {
			wait = re.After
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay *= 2
	}
	return lastErr
}
