// Package fetch defines the capability every package producer implements.
//
// A [Fetcher] produces [packages.Package] records as a pull-driven
// sequence: nothing is computed and no network call is made until the
// consumer pulls, and breaking out of the range loop stops the producer.
//
//	for pkg, err := range f.Fetch(ctx) {
//	    if err != nil {
//	        return err // always the final element
//	    }
//	    store.Upsert(ctx, pkg)
//	}
//
// Concrete producers live in subpackages, e.g. [github].
//
// [github]: github.com/matzehuels/pkgindex/pkg/fetch/github
package fetch

import (
	"context"
	"iter"

	"github.com/matzehuels/pkgindex/pkg/packages"
)

// Fetcher produces packages from one upstream source.
//
// Fetch returns a lazy sequence. An error is yielded at most once, as the
// final element; after it the sequence ends. Implementations never
// materialize the sequence eagerly and issue no further work once the
// consumer stops pulling.
type Fetcher interface {
	// Name identifies the fetcher in logs and crawl results.
	Name() string

	// Fetch starts a new run. Each call starts from scratch.
	Fetch(ctx context.Context) iter.Seq2[packages.Package, error]
}

// Take limits seq to its first n packages. A trailing error is passed
// through only if it arrives before the limit is reached. n <= 0 yields
// nothing and pulls nothing.
func Take(seq iter.Seq2[packages.Package, error], n int) iter.Seq2[packages.Package, error] {
	return func(yield func(packages.Package, error) bool) {
		if n <= 0 {
			return
		}
		count := 0
		for pkg, err := range seq {
			if !yield(pkg, err) || err != nil {
				return
			}
			if count++; count >= n {
				return
			}
		}
	}
}

// Collect drains seq into a slice. It returns the packages pulled before
// the first error together with that error.
func Collect(seq iter.Seq2[packages.Package, error]) ([]packages.Package, error) {
	var out []packages.Package
	for pkg, err := range seq {
		if err != nil {
			return out, err
		}
		out = append(out, pkg)
	}
	return out, nil
}

// Func adapts a name and a sequence constructor into a Fetcher.
type Func struct {
	FetcherName string
	Run         func(ctx context.Context) iter.Seq2[packages.Package, error]
}

// Name implements Fetcher.
func (f Func) Name() string { return f.FetcherName }

// Fetch implements Fetcher.
func (f Func) Fetch(ctx context.Context) iter.Seq2[packages.Package, error] { return f.Run(ctx) }

// Slice returns a sequence over a fixed set of packages.
func Slice(pkgs ...packages.Package) iter.Seq2[packages.Package, error] {
	return func(yield func(packages.Package, error) bool) {
		for _, p := range pkgs {
			if !yield(p, nil) {
				return
			}
		}
	}
}
