// Package crawl drives fetchers and writes what they produce to a store.
//
// A run pulls every configured fetcher in order, one package at a time,
// stamps each package with the run time and upserts it under its package
// key. Fetchers never overlap: the next one starts only after the previous
// sequence ended.
//
// A failing fetcher is recorded and the run moves on to the next one. A
// rate limit is different: the quota is shared by every GitHub fetcher, so
// the rest of the run is skipped and [Runner.Run] waits for the reset time
// before scheduling the next run.
//
// Transient network failures (5xx, connection errors) are retried here and
// nowhere else: the fetcher is run again from its first page after a
// doubling backoff, up to Attempts times. Upserts are idempotent, so
// packages written by a failed attempt are simply written again.
package crawl

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/pkgindex/pkg/fetch"
	"github.com/matzehuels/pkgindex/pkg/httputil"
	"github.com/matzehuels/pkgindex/pkg/integrations"
	"github.com/matzehuels/pkgindex/pkg/observability"
	"github.com/matzehuels/pkgindex/pkg/store"
)

// DefaultInterval separates the start of consecutive runs.
const DefaultInterval = time.Hour

// Retry defaults for transient fetcher failures.
const (
	DefaultAttempts = 3
	DefaultBackoff  = 5 * time.Second
)

// Runner executes crawl runs against a store.
//
// The Runner holds no per-run state; RunOnce may be called repeatedly.
// It is not meant for concurrent runs over the same fetchers.
type Runner struct {
	Store    store.Store
	Fetchers []fetch.Fetcher
	Logger   *log.Logger
	Hooks    observability.CrawlHooks

	// Attempts bounds how often a fetcher is run when it fails with a
	// retryable error. Zero selects DefaultAttempts.
	Attempts int

	// Backoff is the delay before the first retry. It doubles per retry.
	// Zero selects DefaultBackoff.
	Backoff time.Duration

	// Now stamps UpdatedAt. Defaults to time.Now.
	Now func() time.Time
}

// NewRunner creates a runner writing to s.
// If logger is nil, log.Default() is used; crawl hooks default to the
// globally registered observability.Crawl().
func NewRunner(s store.Store, fetchers []fetch.Fetcher, logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Store:    s,
		Fetchers: fetchers,
		Logger:   logger,
		Hooks:    observability.Crawl(),
		Now:      time.Now,
	}
}

// Result is the outcome of one fetcher within a run.
type Result struct {
	Fetcher  string
	Stored   int
	Duration time.Duration
	Err      error
}

// Report summarizes one run.
type Report struct {
	RunID   string
	Started time.Time
	Results []Result

	// Skipped lists fetchers not started because of a rate limit.
	Skipped []string

	// RateLimit is set when a fetcher hit the host quota.
	RateLimit *integrations.RateLimitError
}

// Stored returns the number of packages written by the run.
func (r Report) Stored() int {
	n := 0
	for _, res := range r.Results {
		n += res.Stored
	}
	return n
}

// Failed returns the results that ended with an error.
func (r Report) Failed() []Result {
	var out []Result
	for _, res := range r.Results {
		if res.Err != nil {
			out = append(out, res)
		}
	}
	return out
}

// RunOnce pulls every fetcher once. It only returns early when ctx is done.
func (r *Runner) RunOnce(ctx context.Context) Report {
	start := time.Now()
	report := Report{RunID: uuid.NewString(), Started: r.now()}
	logger := r.logger().With("run", report.RunID)

	for i, f := range r.Fetchers {
		if ctx.Err() != nil {
			break
		}

		res := r.runWithRetry(ctx, logger, report.RunID, f)
		report.Results = append(report.Results, res)

		var rl *integrations.RateLimitError
		switch {
		case errors.As(res.Err, &rl):
			report.RateLimit = rl
		case errors.Is(res.Err, integrations.ErrRateLimited):
			report.RateLimit = &integrations.RateLimitError{}
		}
		if report.RateLimit != nil {
			for _, rest := range r.Fetchers[i+1:] {
				report.Skipped = append(report.Skipped, rest.Name())
			}
			logger.Warn("rate limited, skipping remaining fetchers", "skipped", len(report.Skipped))
			break
		}
	}

	logger.Info("run finished",
		"stored", report.Stored(),
		"failed", len(report.Failed()),
		"duration", time.Since(start).Round(time.Millisecond))
	return report
}

// runWithRetry runs f until it succeeds, fails permanently or runs out of
// attempts. The result of the last attempt is returned.
func (r *Runner) runWithRetry(ctx context.Context, logger *log.Logger, runID string, f fetch.Fetcher) Result {
	var res Result
	attempt := 0
	err := httputil.Retry(ctx, r.attempts(), r.backoff(), func() error {
		attempt++
		if attempt > 1 {
			logger.Warn("retrying fetcher", "fetcher", f.Name(), "attempt", attempt, "err", res.Err)
		}
		res = r.runFetcher(ctx, runID, f)
		return res.Err
	})
	if res.Err == nil && err != nil {
		res.Err = err
	}
	return res
}

func (r *Runner) runFetcher(ctx context.Context, runID string, f fetch.Fetcher) Result {
	res := Result{Fetcher: f.Name()}
	start := time.Now()
	hooks := r.hooks()
	hooks.OnCrawlStart(ctx, runID, f.Name())

	for pkg, err := range f.Fetch(ctx) {
		if err != nil {
			res.Err = err
			break
		}
		pkg.UpdatedAt = r.now().UTC()
		if err := r.Store.Upsert(ctx, pkg); err != nil {
			res.Err = fmt.Errorf("store %s: %w", pkg.Key(), err)
			break
		}
		res.Stored++
		hooks.OnPackageStored(ctx, runID, pkg.Key())
	}

	res.Duration = time.Since(start)
	hooks.OnCrawlComplete(ctx, runID, f.Name(), res.Stored, res.Duration, res.Err)
	return res
}

func (r *Runner) attempts() int {
	if r.Attempts <= 0 {
		return DefaultAttempts
	}
	return r.Attempts
}

func (r *Runner) backoff() time.Duration {
	if r.Backoff <= 0 {
		return DefaultBackoff
	}
	return r.Backoff
}

func (r *Runner) hooks() observability.CrawlHooks {
	if r.Hooks == nil {
		return observability.NoopCrawlHooks{}
	}
	return r.Hooks
}

func (r *Runner) logger() *log.Logger {
	if r.Logger == nil {
		return log.Default()
	}
	return r.Logger
}

func (r *Runner) now() time.Time {
	if r.Now == nil {
		return time.Now()
	}
	return r.Now()
}

// Run executes runs every interval until ctx is done, and returns ctx.Err().
// After a rate-limited run the next one starts no earlier than the quota
// reset. A zero interval selects DefaultInterval.
func (r *Runner) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultInterval
	}
	for {
		start := time.Now()
		report := r.RunOnce(ctx)

		wait := interval - time.Since(start)
		if report.RateLimit != nil {
			wait = max(wait, report.RateLimit.Wait(time.Now()))
		}
		wait = max(wait, 0)
		r.logger().Debug("next crawl scheduled", "in", wait.Round(time.Second))

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
