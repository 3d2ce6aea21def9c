// Package pkg provides the libraries behind pkgindex, a discovery bot and
// HTTP API for open-source package metadata.
//
// # Overview
//
// A crawl pulls packages from one or more fetchers and upserts each one into
// a store under its "source:identifier" key. The API serves the store.
//
//	GitHub search API
//	         ↓
//	    [integrations/github] (paged search, repository lookups)
//	         ↓
//	    [fetch/github] (lazy package sequence)
//	         ↓
//	    [crawl] (runs fetchers, upserts)
//	         ↓
//	    [store] (Redis, MongoDB, files, memory)
//	         ↓
//	    [api] (GET /packages, GET /packages/{source}/{identifier})
//
// # Quick Start
//
// Print the first ten packages a code search yields:
//
//	client, _ := github.NewClient(github.Options{Token: os.Getenv("GITHUB_TOKEN")})
//	f, _ := fetchgithub.NewCodeSearchFetcher(fetchgithub.NewBase(client, nil), fetchgithub.Config{
//	    Query: "filename:package.json path:/",
//	})
//	for p, err := range fetch.Take(f.Fetch(ctx), 10) {
//	    if err != nil {
//	        return err
//	    }
//	    fmt.Println(p.Key(), p.Popularity)
//	}
//
// Only the search pages needed for those ten packages are requested.
//
// # Main Packages
//
// [packages] - The Package record, sources and key helpers.
//
// [fetch] - The Fetcher interface and helpers over iter.Seq2 sequences.
//
// [integrations] - Shared HTTP client with retries, caching and typed
// errors. [integrations/github] implements repository lookups and the
// paginated search iterator.
//
// [store] - Keyed package storage with Redis, MongoDB, file and memory
// backends selected by URL scheme.
//
// [crawl] - Runs fetchers into a store once or on an interval.
//
// [api] - chi router serving the store as JSON.
//
// [config] - TOML file plus environment configuration.
//
// [observability] - Hook interfaces for fetch, crawl and HTTP tracing.
package pkg
