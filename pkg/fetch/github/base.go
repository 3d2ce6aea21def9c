// Package github implements package fetchers backed by the GitHub API.
//
// [Base] carries the shared helpers every GitHub strategy needs
// (repository lookup and paginated search). [CodeSearchFetcher] is the
// concrete strategy: it runs one code search and turns every matching
// repository into a [packages.Package], optionally enriching it with the
// full repository record.
package github

import (
	"context"
	"slices"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/pkgindex/pkg/integrations/github"
	"github.com/matzehuels/pkgindex/pkg/packages"
)

// Base exposes the GitHub helpers to fetch strategies. The zero value is
// not usable; construct with NewBase.
type Base struct {
	client *github.Client
	logger *log.Logger
}

// NewBase wraps an authenticated client. A nil logger selects log.Default().
func NewBase(client *github.Client, logger *log.Logger) Base {
	if logger == nil {
		logger = log.Default()
	}
	return Base{client: client, logger: logger}
}

// FetchRepository retrieves the full record for d.
func (b Base) FetchRepository(ctx context.Context, d github.RepositoryDescriptor) (*github.Repository, error) {
	return b.client.FetchRepository(ctx, d)
}

// SearchRepositories starts a paginated code search. No request is made
// until the iterator is advanced.
func (b Base) SearchRepositories(query string) *github.SearchIterator {
	return b.client.SearchRepositories(query)
}

// Search starts a paginated search of the given kind.
func (b Base) Search(kind github.SearchKind, query string) *github.SearchIterator {
	return b.client.Search(kind, query)
}

// Logger returns the strategy logger.
func (b Base) Logger() *log.Logger { return b.logger }

// FromDescriptor builds the package for a repository that was not enriched.
func FromDescriptor(d github.RepositoryDescriptor, extraTags []string) packages.Package {
	return packages.Package{
		Source:     packages.SourceGitHub,
		Identifier: packages.JoinIdentifier(d.Owner, d.Repo),
		Name:       d.Repo,
		Popularity: 0,
		Tags:       appendTags(nil, extraTags),
	}
}

// FromRepository builds the package for an enriched repository record.
func FromRepository(r *github.Repository, extraTags []string) packages.Package {
	return packages.Package{
		Source:      packages.SourceGitHub,
		Identifier:  r.FullName,
		Name:        r.Name,
		Description: r.Description,
		Popularity:  r.StargazersCount,
		Tags:        appendTags(r.Topics, extraTags),
	}
}

// appendTags returns topics followed by every extra tag not already present.
// The result is never nil.
func appendTags(topics, extra []string) []string {
	out := make([]string, 0, len(topics)+len(extra))
	out = append(out, topics...)
	for _, t := range extra {
		if t != "" && !slices.Contains(out, t) {
			out = append(out, t)
		}
	}
	return out
}
