package integrations

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/oauth2"
)

// DefaultTimeout bounds a single request when the caller configures none.
const DefaultTimeout = 30 * time.Second

var (
	// ErrNotFound is returned when a resource doesn't exist or is not visible
	// to the configured credentials.
	ErrNotFound = errors.New("resource not found")

	// ErrRateLimited is returned when the host signals quota exhaustion.
	// Use errors.As with *RateLimitError for the reset time.
	ErrRateLimited = errors.New("rate limited")

	// ErrNetwork is returned for HTTP failures (timeouts, connection errors, 5xx responses).
	ErrNetwork = errors.New("network error")

	// ErrMalformedResponse is returned when a response body does not have the expected shape.
	ErrMalformedResponse = errors.New("malformed response")

	// ErrUnauthorized is returned when the host rejects the credentials.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden is returned for 403 responses that are not rate limits.
	ErrForbidden = errors.New("forbidden")
)

// RateLimitError describes a rate-limit response. It matches ErrRateLimited
// under errors.Is.
type RateLimitError struct {
	Status     int           // 403 or 429
	ResetAt    time.Time     // From X-RateLimit-Reset, zero if absent
	RetryAfter time.Duration // From Retry-After, zero if absent
}

func (e *RateLimitError) Error() string {
	switch {
	case e.RetryAfter > 0:
		return fmt.Sprintf("rate limited (status %d): retry after %s", e.Status, e.RetryAfter)
	case !e.ResetAt.IsZero():
		return fmt.Sprintf("rate limited (status %d): resets at %s", e.Status, e.ResetAt.UTC().Format(time.RFC3339))
	default:
		return fmt.Sprintf("rate limited (status %d)", e.Status)
	}
}

// Is reports whether target is ErrRateLimited.
func (e *RateLimitError) Is(target error) bool { return target == ErrRateLimited }

// Wait returns how long to wait before the quota is available again,
// measured from now. Zero means unknown.
func (e *RateLimitError) Wait(now time.Time) time.Duration {
	if e.RetryAfter > 0 {
		return e.RetryAfter
	}
	if !e.ResetAt.IsZero() && e.ResetAt.After(now) {
		return e.ResetAt.Sub(now)
	}
	return 0
}

// retryAfter parses a Retry-After header given in seconds.
func retryAfter(h http.Header) time.Duration {
	if s, err := strconv.Atoi(h.Get("Retry-After")); err == nil && s > 0 {
		return time.Duration(s) * time.Second
	}
	return 0
}

// rateLimitFrom inspects a 403/429 response for rate-limit signals.
// It returns nil when the response is a plain permission error.
func rateLimitFrom(resp *http.Response) *RateLimitError {
	h := resp.Header
	e := &RateLimitError{Status: resp.StatusCode, RetryAfter: retryAfter(h)}
	if s, err := strconv.ParseInt(h.Get("X-RateLimit-Reset"), 10, 64); err == nil && s > 0 {
		e.ResetAt = time.Unix(s, 0)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return e
	case h.Get("X-RateLimit-Remaining") == "0":
		return e
	case e.RetryAfter > 0:
		return e
	default:
		return nil
	}
}

// NewHTTPClient creates an HTTP client for a code-host API.
// A non-empty token is attached to every request as a bearer token through
// an oauth2 static token source; the token is never mutated afterwards.
// A zero timeout selects DefaultTimeout.
func NewHTTPClient(token string, timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if token == "" {
		return &http.Client{Timeout: timeout}
	}
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	client := oauth2.NewClient(context.Background(), src)
	client.Timeout = timeout
	return client
}

// URLEncode percent-encodes a string for use in URLs.
// This is a convenience wrapper around [url.QueryEscape].
func URLEncode(s string) string { return url.QueryEscape(s) }
