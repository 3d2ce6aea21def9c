// Package httputil provides HTTP utilities for the code-host API clients.
//
// # Overview
//
// This package provides infrastructure used by the integration clients:
//
//   - [Cache]: File-based response caching
//   - [Retry]: Automatic retry with exponential backoff
//   - [HasNextPage]: RFC 8288 Link header pagination
//
// # Caching
//
// [Cache] stores decoded responses in the filesystem ($XDG_CACHE_HOME/pkgindex or ~/.cache/pkgindex)
// with configurable TTL. Repository lookups repeat across crawl runs, so
// caching them saves rate-limit quota on the code host.
//
// Usage:
//
//	cache, err := httputil.NewCache("", 24*time.Hour)
//	ok, err := cache.Get("github:repo:acme/widget", &repo)  // Check cache
//	if !ok {
//	    repo = fetchFromAPI()
//	    cache.Set("github:repo:acme/widget", repo)          // Store for later
//	}
//
// # Retry
//
// [Retry] re-runs an operation for transient failures. Only errors wrapped
// in [RetryableError] are retried; rate limits and client errors are
// returned immediately so the caller decides the backoff policy. A 503
// with Retry-After is wrapped by [RetryableAfter] and waits that long
// (capped at [MaxRetryAfter]) instead of the doubling delay.
//
//	err := httputil.Retry(ctx, 3, time.Second, func() error {
//	    return client.Get(ctx, url, &v)
//	})
//
// # Pagination
//
// Code-host search endpoints signal continuation with a Link header:
//
//	Link: <https://api.github.com/search/code?q=x&page=2>; rel="next", <...>; rel="last"
//
// [HasNextPage] reports whether such a relation is present; [ParseLinks]
// returns every relation with its target URL.
package httputil
