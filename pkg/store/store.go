// Package store persists package records under their "source:identifier" key.
//
// # Backends
//
// [Open] selects a backend from the database URL scheme:
//
//   - redis://, rediss://: Redis, one JSON document per key ([Redis])
//   - mongodb://, mongodb+srv://: MongoDB, one document per key ([Mongo])
//   - file://: JSON files in a directory ([File])
//   - memory://: process-local map, for tests and one-off runs ([Memory])
//
// Every backend upserts: writing a package replaces any prior record with
// the same key. Keys are always built with [packages.Key], the same function
// the API uses for lookups.
package store

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/matzehuels/pkgindex/pkg/packages"
)

// ErrNotFound is returned by Get when no package is stored under the key.
var ErrNotFound = errors.New("not found")

// ErrUnsupportedScheme is returned by Open for unknown URL schemes.
var ErrUnsupportedScheme = errors.New("unsupported database url scheme")

// List limits.
const (
	DefaultLimit = 50
	MaxLimit     = 500
)

// Store reads and writes package records.
type Store interface {
	// Upsert stores p under p.Key(), replacing any prior record.
	Upsert(ctx context.Context, p packages.Package) error

	// Get returns the package stored for source and identifier, or ErrNotFound.
	Get(ctx context.Context, source packages.Source, identifier string) (packages.Package, error)

	// List returns the packages matching opts, most popular first.
	List(ctx context.Context, opts ListOptions) (ListResult, error)

	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases the backend connection.
	Close() error
}

// ListOptions filters a List call. The zero value lists every source.
type ListOptions struct {
	Source packages.Source // empty means all sources
	Query  string          // substring over identifier, name, description and tags
	Limit  int             // 0 selects DefaultLimit; capped at MaxLimit
}

// ListResult is one page of a List call.
type ListResult struct {
	Items []packages.Package `json:"items"`
	Total int                `json:"totalItems"`
}

func (o ListOptions) limit() int {
	switch {
	case o.Limit <= 0:
		return DefaultLimit
	case o.Limit > MaxLimit:
		return MaxLimit
	default:
		return o.Limit
	}
}

// matches reports whether p passes the source and query filters.
func (o ListOptions) matches(p packages.Package) bool {
	if o.Source != "" && p.Source != o.Source {
		return false
	}
	return p.Matches(o.Query)
}

// selectPackages applies opts to a full scan of a backend.
func selectPackages(all []packages.Package, opts ListOptions) ListResult {
	items := make([]packages.Package, 0, len(all))
	for _, p := range all {
		if opts.matches(p) {
			items = append(items, p)
		}
	}
	packages.SortByPopularity(items)
	total := len(items)
	if n := opts.limit(); len(items) > n {
		items = items[:n]
	}
	return ListResult{Items: items, Total: total}
}

func validate(p packages.Package) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("upsert: %w", err)
	}
	return nil
}

// Open connects to the backend named by rawURL.
func Open(ctx context.Context, rawURL string) (Store, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	switch strings.ToLower(u.Scheme) {
	case "redis", "rediss", "unix":
		return OpenRedis(ctx, rawURL)
	case "mongodb", "mongodb+srv":
		return OpenMongo(ctx, rawURL)
	case "file":
		dir := u.Path
		if u.Host != "" && u.Host != "localhost" {
			dir = u.Host + u.Path
		}
		return NewFile(dir)
	case "memory", "mem":
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}
}
