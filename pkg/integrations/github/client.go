package github

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/matzehuels/pkgindex/pkg/httputil"
	"github.com/matzehuels/pkgindex/pkg/integrations"
	"github.com/matzehuels/pkgindex/pkg/observability"
)

// DefaultBaseURL is the public GitHub REST endpoint.
const DefaultBaseURL = "https://api.github.com"

// Options configures a Client.
type Options struct {
	// Token authenticates every request. Empty means unauthenticated
	// (60 requests/hour, and code search is unavailable).
	Token string

	// BaseURL overrides DefaultBaseURL, e.g. for GitHub Enterprise.
	BaseURL string

	// Timeout bounds each request. Zero selects integrations.DefaultTimeout.
	Timeout time.Duration

	// CacheTTL enables caching of repository lookups when positive.
	// CacheDir is the cache directory ("" for the default).
	CacheTTL time.Duration
	CacheDir string

	// Hooks receives a trace before every request. Nil selects the
	// globally registered observability.Fetch() hooks.
	Hooks observability.FetchHooks

	// HTTPClient replaces the client built from Token and Timeout.
	HTTPClient *http.Client
}

// Client provides access to the GitHub API for repository discovery and
// enrichment. The credentials are fixed at construction.
type Client struct {
	*integrations.Client
	baseURL string
	hooks   observability.FetchHooks
}

// NewClient creates a GitHub API client.
func NewClient(opts Options) (*Client, error) {
	var cache *httputil.Cache
	if opts.CacheTTL > 0 {
		c, err := httputil.NewCache(opts.CacheDir, opts.CacheTTL)
		if err != nil {
			return nil, fmt.Errorf("github cache: %w", err)
		}
		cache = c.Namespace("github:")
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = integrations.NewHTTPClient(opts.Token, opts.Timeout)
	}

	headers := map[string]string{
		"Accept":               "application/vnd.github+json",
		"X-GitHub-Api-Version": "2022-11-28",
	}

	baseURL := strings.TrimSuffix(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	hooks := opts.Hooks
	if hooks == nil {
		hooks = observability.Fetch()
	}

	// One request per call: search pages and lookups are never retried
	// here, so every request matches one trace event. Callers retry.
	base := integrations.NewClient(httpClient, cache, headers)
	base.SetRetry(1, 0)

	return &Client{
		Client:  base,
		baseURL: baseURL,
		hooks:   hooks,
	}, nil
}

// FetchRepository retrieves one repository by owner and name.
//
// It fails with integrations.ErrNotFound when the repository does not exist
// or is not visible to the configured credentials, with
// integrations.ErrRateLimited when the quota is exhausted and with
// integrations.ErrMalformedResponse when the record lacks its identifying
// fields. A partially populated record is never returned.
func (c *Client) FetchRepository(ctx context.Context, d RepositoryDescriptor) (*Repository, error) {
	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("github repo %s: %w (%v)", d, integrations.ErrNotFound, err)
	}

	var repo Repository
	err := c.Cached(ctx, "repo:"+d.String(), false, &repo, func() error {
		c.hooks.OnRepositoryFetch(ctx, d.Owner, d.Repo)

		repo = Repository{}
		u := fmt.Sprintf("%s/repos/%s/%s", c.baseURL, url.PathEscape(d.Owner), url.PathEscape(d.Repo))
		if err := c.Get(ctx, u, &repo); err != nil {
			return err
		}
		if err := repo.check(); err != nil {
			return fmt.Errorf("%w: %v", integrations.ErrMalformedResponse, err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("github repo %s: %w", d, err)
	}
	return &repo, nil
}

// SearchRepositories starts a paginated code search for query.
// No request is made until the first call to Next.
func (c *Client) SearchRepositories(query string) *SearchIterator {
	return c.Search(SearchCode, query)
}

// Search starts a paginated search of the given kind.
func (c *Client) Search(kind SearchKind, query string) *SearchIterator {
	if kind == "" {
		kind = SearchCode
	}
	return &SearchIterator{
		client: c,
		kind:   kind,
		query:  query,
		page:   1,
	}
}

func (c *Client) searchURL(kind SearchKind, query string, page int) string {
	return fmt.Sprintf("%s/search/%s?q=%s&per_page=%d&page=%d",
		c.baseURL, kind, integrations.URLEncode(query), PageSize, page)
}
