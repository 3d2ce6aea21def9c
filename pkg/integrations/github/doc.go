// Package github provides an HTTP client for the GitHub REST API.
//
// # Overview
//
// This package discovers and describes repositories on GitHub
// (https://api.github.com). It offers two operations:
//
//   - [Client.FetchRepository] retrieves one repository record.
//   - [Client.SearchRepositories] runs a paginated code search and yields
//     [RepositoryDescriptor] values one at a time.
//
// # Usage
//
//	client, err := github.NewClient(github.Options{Token: token})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	it := client.SearchRepositories("filename:package.json")
//	for it.Next(ctx) {
//	    repo, err := client.FetchRepository(ctx, it.Descriptor())
//	    ...
//	}
//	if err := it.Err(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Pagination
//
// Search pages hold up to [PageSize] results. The page counter starts at 1.
// A page is requested only when the consumer has pulled every descriptor of
// the previous one, and only if that page carried a Link header with
// rel="next". Result counts are never used to decide continuation.
//
// # Authentication
//
// A GitHub personal access token is optional for repository lookups but
// required for code search. Without a token, the client is limited to
// 60 requests/hour. The token is attached as a bearer credential and is
// fixed for the lifetime of the client.
//
// # Errors
//
// Failures are reported with the sentinels of package integrations:
// ErrNotFound, ErrRateLimited (as *integrations.RateLimitError carrying the
// reset time), ErrMalformedResponse and ErrNetwork. Transient network
// errors and 5xx responses are retried with backoff; rate limits are not.
//
// # Caching
//
// When [Options.CacheTTL] is positive, repository records are cached on
// disk. Search pages are never cached.
package github
