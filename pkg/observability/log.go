package observability

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
)

// LogFetchHooks writes fetch traces to a logger at debug level.
type LogFetchHooks struct {
	Logger *log.Logger
}

// NewLogFetchHooks returns fetch hooks backed by l (log.Default() if nil).
func NewLogFetchHooks(l *log.Logger) *LogFetchHooks {
	if l == nil {
		l = log.Default()
	}
	return &LogFetchHooks{Logger: l}
}

func (h *LogFetchHooks) OnRepositoryFetch(_ context.Context, owner, repo string) {
	h.Logger.Debugf("fetching repository github.com/%s/%s", owner, repo)
}

func (h *LogFetchHooks) OnSearchPage(_ context.Context, query string, page int) {
	h.Logger.Debug("searching for repositories", "query", query, "page", page)
}

// LogCrawlHooks writes crawl events to a logger.
type LogCrawlHooks struct {
	Logger *log.Logger
}

// NewLogCrawlHooks returns crawl hooks backed by l (log.Default() if nil).
func NewLogCrawlHooks(l *log.Logger) *LogCrawlHooks {
	if l == nil {
		l = log.Default()
	}
	return &LogCrawlHooks{Logger: l}
}

func (h *LogCrawlHooks) OnCrawlStart(_ context.Context, runID, fetcher string) {
	h.Logger.Info("crawl started", "run", runID, "fetcher", fetcher)
}

func (h *LogCrawlHooks) OnPackageStored(_ context.Context, runID, key string) {
	h.Logger.Debug("stored package", "run", runID, "key", key)
}

func (h *LogCrawlHooks) OnCrawlComplete(_ context.Context, runID, fetcher string, stored int, d time.Duration, err error) {
	if err != nil {
		h.Logger.Error("crawl failed", "run", runID, "fetcher", fetcher, "stored", stored, "duration", d.Round(time.Millisecond), "err", err)
		return
	}
	h.Logger.Info("crawl finished", "run", runID, "fetcher", fetcher, "stored", stored, "duration", d.Round(time.Millisecond))
}

// LogHTTPHooks writes outgoing HTTP traffic to a logger at debug level.
type LogHTTPHooks struct {
	Logger *log.Logger
}

// NewLogHTTPHooks returns HTTP hooks backed by l (log.Default() if nil).
func NewLogHTTPHooks(l *log.Logger) *LogHTTPHooks {
	if l == nil {
		l = log.Default()
	}
	return &LogHTTPHooks{Logger: l}
}

func (h *LogHTTPHooks) OnRequest(context.Context, string, string, string) {}

func (h *LogHTTPHooks) OnResponse(_ context.Context, method, host, path string, status int, d time.Duration) {
	h.Logger.Debug("http response", "method", method, "host", host, "path", path, "status", status, "duration", d.Round(time.Millisecond))
}

func (h *LogHTTPHooks) OnError(_ context.Context, method, host, path string, err error) {
	h.Logger.Debug("http error", "method", method, "host", host, "path", path, "err", err)
}

var (
	_ FetchHooks = (*LogFetchHooks)(nil)
	_ CrawlHooks = (*LogCrawlHooks)(nil)
	_ HTTPHooks  = (*LogHTTPHooks)(nil)
)
