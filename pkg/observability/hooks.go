// Package observability provides hooks for tracing, metrics and logging.
//
// This package enables optional instrumentation without adding hard
// dependencies on specific observability backends. Components accept hooks
// at construction; when none are given they fall back to the globally
// registered hooks, which default to no-ops.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Provide log-backed implementations for the CLI
//   - Allow registration of custom implementations at startup
//
// Fetch traces are a side channel: the fetch loop calls the hook before
// every network request, and tests assert on a recording implementation
// instead of parsing log output.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetFetchHooks(observability.NewLogFetchHooks(logger))
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	hooks.OnSearchPage(ctx, query, page)
//	// ... issue the request ...
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Fetch Hooks
// =============================================================================

// FetchHooks receives a trace event before every code-host request made by
// a fetcher.
type FetchHooks interface {
	// OnRepositoryFetch fires before a single repository is requested.
	OnRepositoryFetch(ctx context.Context, owner, repo string)

	// OnSearchPage fires before a search result page is requested.
	OnSearchPage(ctx context.Context, query string, page int)
}

// =============================================================================
// Crawl Hooks
// =============================================================================

// CrawlHooks receives events from the crawl scheduler.
type CrawlHooks interface {
	// OnCrawlStart records the start of one fetcher run.
	OnCrawlStart(ctx context.Context, runID, fetcher string)

	// OnPackageStored records a successful upsert.
	OnPackageStored(ctx context.Context, runID, key string)

	// OnCrawlComplete records the end of one fetcher run.
	OnCrawlComplete(ctx context.Context, runID, fetcher string, stored int, duration time.Duration, err error)
}

// =============================================================================
// HTTP Hooks
// =============================================================================

// HTTPHooks receives events from HTTP client operations.
type HTTPHooks interface {
	// OnRequest records an outgoing HTTP request.
	OnRequest(ctx context.Context, method, host, path string)

	// OnResponse records an HTTP response.
	OnResponse(ctx context.Context, method, host, path string, statusCode int, duration time.Duration)

	// OnError records an HTTP error (network failure, timeout).
	OnError(ctx context.Context, method, host, path string, err error)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopFetchHooks is a no-op implementation of FetchHooks.
type NoopFetchHooks struct{}

func (NoopFetchHooks) OnRepositoryFetch(context.Context, string, string) {}
func (NoopFetchHooks) OnSearchPage(context.Context, string, int)         {}

// NoopCrawlHooks is a no-op implementation of CrawlHooks.
type NoopCrawlHooks struct{}

func (NoopCrawlHooks) OnCrawlStart(context.Context, string, string)    {}
func (NoopCrawlHooks) OnPackageStored(context.Context, string, string) {}
func (NoopCrawlHooks) OnCrawlComplete(context.Context, string, string, int, time.Duration, error) {
}

// NoopHTTPHooks is a no-op implementation of HTTPHooks.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string, string)                      {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, string, int, time.Duration) {}
func (NoopHTTPHooks) OnError(context.Context, string, string, string, error)                 {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	fetchHooks FetchHooks = NoopFetchHooks{}
	crawlHooks CrawlHooks = NoopCrawlHooks{}
	httpHooks  HTTPHooks  = NoopHTTPHooks{}
	hooksMu    sync.RWMutex
)

// SetFetchHooks registers custom fetch hooks.
// This should be called once at application startup before any fetch runs.
func SetFetchHooks(h FetchHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		fetchHooks = h
	}
}

// SetCrawlHooks registers custom crawl hooks.
func SetCrawlHooks(h CrawlHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		crawlHooks = h
	}
}

// SetHTTPHooks registers custom HTTP hooks.
// This should be called once at application startup before any HTTP operations.
func SetHTTPHooks(h HTTPHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		httpHooks = h
	}
}

// Fetch returns the registered fetch hooks.
func Fetch() FetchHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return fetchHooks
}

// Crawl returns the registered crawl hooks.
func Crawl() CrawlHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return crawlHooks
}

// HTTP returns the registered HTTP hooks.
func HTTP() HTTPHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return httpHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	fetchHooks = NoopFetchHooks{}
	crawlHooks = NoopCrawlHooks{}
	httpHooks = NoopHTTPHooks{}
}
