package integrations

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/matzehuels/pkgindex/pkg/httputil"
	"github.com/matzehuels/pkgindex/pkg/observability"
)

// Client provides shared HTTP functionality for the code-host API clients.
// It handles caching, retry logic, status classification and common headers.
type Client struct {
	http     *http.Client
	cache    *httputil.Cache
	headers  map[string]string
	hooks    observability.HTTPHooks
	attempts int
	backoff  time.Duration
}

// NewClient creates a Client over httpClient with the given cache and default
// headers. Headers are applied to all requests made through this client.
// Pass nil for cache to disable caching and nil for headers if no default
// headers are needed. A nil httpClient selects NewHTTPClient("", 0).
func NewClient(httpClient *http.Client, cache *httputil.Cache, headers map[string]string) *Client {
	if httpClient == nil {
		httpClient = NewHTTPClient("", 0)
	}
	return &Client{
		http:     httpClient,
		cache:    cache,
		headers:  headers,
		hooks:    observability.HTTP(),
		attempts: 3,
		backoff:  time.Second,
	}
}

// SetRetry configures how transient failures are retried. attempts < 1 is
// treated as a single attempt.
func (c *Client) SetRetry(attempts int, backoff time.Duration) {
	c.attempts = max(attempts, 1)
	c.backoff = backoff
}

// SetHooks replaces the HTTP hooks. nil is ignored.
func (c *Client) SetHooks(h observability.HTTPHooks) {
	if h != nil {
		c.hooks = h
	}
}

// Cached retrieves a value from cache or executes fetch and caches the result.
// If refresh is true, the cache is bypassed and fetch is always called.
// The fetch function should populate v; on success, v is stored in the cache.
func (c *Client) Cached(ctx context.Context, key string, refresh bool, v any, fetch func() error) error {
	if c.cache != nil && !refresh {
		if ok, _ := c.cache.Get(key, v); ok {
			return nil
		}
	}
	if err := fetch(); err != nil {
		return err
	}
	if c.cache != nil {
		_ = c.cache.Set(key, v)
	}
	return nil
}

// Get performs an HTTP GET request and JSON-decodes the response into v.
// It uses the client's default headers and handles retries automatically.
func (c *Client) Get(ctx context.Context, url string, v any) error {
	_, err := c.GetWithHeaders(ctx, url, nil, v)
	return err
}

// GetPage is Get that also returns the response headers, for endpoints whose
// pagination metadata lives in the Link header.
func (c *Client) GetPage(ctx context.Context, url string, v any) (http.Header, error) {
	return c.GetWithHeaders(ctx, url, nil, v)
}

// GetWithHeaders performs an HTTP GET with additional headers merged with defaults.
// Request-specific headers override client defaults for the same key.
// A body that cannot be decoded into v yields ErrMalformedResponse.
func (c *Client) GetWithHeaders(ctx context.Context, url string, headers map[string]string, v any) (http.Header, error) {
	var respHeader http.Header
	err := httputil.Retry(ctx, c.attempts, c.backoff, func() error {
		body, h, err := c.doRequest(ctx, url, headers)
		if err != nil {
			return err
		}
		defer body.Close()
		if err := json.NewDecoder(body).Decode(v); err != nil {
			return fmt.Errorf("%w: decode %s: %v", ErrMalformedResponse, url, err)
		}
		respHeader = h
		return nil
	})
	if err != nil {
		return nil, err
	}
	return respHeader, nil
}

func (c *Client) doRequest(ctx context.Context, url string, headers map[string]string) (io.ReadCloser, http.Header, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, nil, err
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	host, path := req.URL.Host, req.URL.Path
	c.hooks.OnRequest(ctx, req.Method, host, path)
	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		c.hooks.OnError(ctx, req.Method, host, path, err)
		if ctx.Err() != nil {
			return nil, nil, ctx.Err()
		}
		return nil, nil, httputil.Retryable(fmt.Errorf("%w: %v", ErrNetwork, err))
	}
	c.hooks.OnResponse(ctx, req.Method, host, path, resp.StatusCode, time.Since(start))

	if err := checkStatus(resp); err != nil {
		resp.Body.Close()
		return nil, nil, err
	}
	return resp.Body, resp.Header, nil
}

func checkStatus(resp *http.Response) error {
	code := resp.StatusCode
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusNotFound:
		return ErrNotFound
	case code == http.StatusUnauthorized:
		return ErrUnauthorized
	case code == http.StatusForbidden || code == http.StatusTooManyRequests:
		if rl := rateLimitFrom(resp); rl != nil {
			return rl
		}
		return ErrForbidden
	case code >= 500:
		return httputil.RetryableAfter(fmt.Errorf("%w: status %d", ErrNetwork, code), retryAfter(resp.Header))
	default:
		return fmt.Errorf("%w: status %d", ErrNetwork, code)
	}
}
