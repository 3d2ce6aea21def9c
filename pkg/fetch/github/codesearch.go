package github

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"

	"github.com/matzehuels/pkgindex/pkg/fetch"
	"github.com/matzehuels/pkgindex/pkg/integrations"
	"github.com/matzehuels/pkgindex/pkg/integrations/github"
	"github.com/matzehuels/pkgindex/pkg/packages"
)

var _ fetch.Fetcher = (*CodeSearchFetcher)(nil)

// Config describes one code search strategy.
type Config struct {
	// Name identifies the fetcher in logs. Defaults to "github:" + Query.
	Name string

	// Query is the GitHub search query, e.g. "filename:package.json".
	Query string

	// Kind selects the search endpoint. Defaults to github.SearchCode.
	Kind github.SearchKind

	// Enrich fetches the full repository record for every result.
	Enrich bool

	// Tags are appended to every emitted package after the host topics.
	Tags []string
}

// CodeSearchFetcher drives one search and emits a package per distinct
// repository found.
//
// During enrichment a repository that no longer exists is skipped. Rate
// limits, malformed responses and network failures end the sequence with
// the error as the final element.
type CodeSearchFetcher struct {
	Base
	cfg Config
}

// NewCodeSearchFetcher returns a fetcher for cfg.
func NewCodeSearchFetcher(base Base, cfg Config) (*CodeSearchFetcher, error) {
	if strings.TrimSpace(cfg.Query) == "" {
		return nil, errors.New("code search fetcher: query is required")
	}
	if cfg.Name == "" {
		cfg.Name = "github:" + cfg.Query
	}
	if cfg.Kind == "" {
		cfg.Kind = github.SearchCode
	}
	return &CodeSearchFetcher{Base: base, cfg: cfg}, nil
}

// Name implements fetch.Fetcher.
func (f *CodeSearchFetcher) Name() string { return f.cfg.Name }

// Query returns the configured search query.
func (f *CodeSearchFetcher) Query() string { return f.cfg.Query }

// Fetch implements fetch.Fetcher. Every range over the returned sequence
// starts a fresh search at page 1.
func (f *CodeSearchFetcher) Fetch(ctx context.Context) iter.Seq2[packages.Package, error] {
	return func(yield func(packages.Package, error) bool) {
		it := f.Search(f.cfg.Kind, f.cfg.Query)
		seen := make(map[string]struct{})

		for it.Next(ctx) {
			d := it.Descriptor()
			key := strings.ToLower(d.String())
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}

			if !f.cfg.Enrich {
				if !yield(FromDescriptor(d, f.cfg.Tags), nil) {
					return
				}
				continue
			}

			repo, err := f.FetchRepository(ctx, d)
			switch {
			case errors.Is(err, integrations.ErrNotFound):
				f.logger.Debug("skipping vanished repository", "repo", d.String())
				continue
			case err != nil:
				yield(packages.Package{}, fmt.Errorf("%s: %w", f.cfg.Name, err))
				return
			}
			if !yield(FromRepository(repo, f.cfg.Tags), nil) {
				return
			}
		}

		if err := it.Err(); err != nil {
			yield(packages.Package{}, fmt.Errorf("%s: %w", f.cfg.Name, err))
		}
	}
}
