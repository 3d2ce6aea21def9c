package github

import (
	"context"
	"fmt"
	"iter"

	"github.com/matzehuels/pkgindex/pkg/httputil"
	"github.com/matzehuels/pkgindex/pkg/integrations"
)

// SearchState is the position of a SearchIterator in its page cycle.
type SearchState int

const (
	// StateIdle: created, nothing requested yet.
	StateIdle SearchState = iota
	// StatePageRequested: a page request is in flight.
	StatePageRequested
	// StatePageYielding: descriptors of the current page are being handed out.
	StatePageYielding
	// StateExhausted: the last page carried no next relation. Terminal.
	StateExhausted
	// StateFailed: a page request failed; Err holds the cause. Terminal.
	StateFailed
)

func (s SearchState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePageRequested:
		return "page-requested"
	case StatePageYielding:
		return "page-yielding"
	case StateExhausted:
		return "exhausted"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("SearchState(%d)", int(s))
	}
}

// SearchIterator pulls search results one descriptor at a time.
//
// Exactly one request is issued per page, and the request for page N+1 is
// only issued once every descriptor of page N has been pulled and page N
// declared a rel="next" Link. Continuation is decided by that relation
// alone: a full page without it ends the search, a short page with it does
// not. The iterator is not restartable and not safe for concurrent use.
//
//	it := client.SearchRepositories("filename:package.json")
//	for it.Next(ctx) {
//	    d := it.Descriptor()
//	}
//	if err := it.Err(); err != nil {
//	    return err
//	}
type SearchIterator struct {
	client *Client
	kind   SearchKind
	query  string

	state SearchState
	page  int // next page to request
	items []RepositoryDescriptor
	pos   int
	more  bool
	cur   RepositoryDescriptor
	err   error
}

// Next advances to the next descriptor, requesting a new page when the
// current one is used up. It returns false when the search is exhausted or
// failed; check Err to tell the two apart.
func (it *SearchIterator) Next(ctx context.Context) bool {
	for {
		switch it.state {
		case StateExhausted, StateFailed:
			return false
		case StateIdle, StatePageRequested:
			if !it.fetchPage(ctx) {
				return false
			}
		case StatePageYielding:
			if it.pos < len(it.items) {
				it.cur = it.items[it.pos]
				it.pos++
				return true
			}
			it.items, it.pos = nil, 0
			if !it.more {
				it.state = StateExhausted
				return false
			}
			it.state = StatePageRequested
		}
	}
}

// Descriptor returns the descriptor Next advanced to.
func (it *SearchIterator) Descriptor() RepositoryDescriptor { return it.cur }

// Err returns the error that stopped the iterator, if any.
func (it *SearchIterator) Err() error { return it.err }

// State returns the iterator's current state.
func (it *SearchIterator) State() SearchState { return it.state }

// Pages returns the number of page requests issued so far.
func (it *SearchIterator) Pages() int { return it.page - 1 }

// Query returns the search query.
func (it *SearchIterator) Query() string { return it.query }

// All adapts the iterator to a range-over-func sequence. A failure is
// yielded once as the final element. Breaking out of the loop stops the
// search without further requests.
func (it *SearchIterator) All(ctx context.Context) iter.Seq2[RepositoryDescriptor, error] {
	return func(yield func(RepositoryDescriptor, error) bool) {
		for it.Next(ctx) {
			if !yield(it.cur, nil) {
				return
			}
		}
		if it.err != nil {
			yield(RepositoryDescriptor{}, it.err)
		}
	}
}

func (it *SearchIterator) fetchPage(ctx context.Context) bool {
	it.state = StatePageRequested
	page := it.page
	it.client.hooks.OnSearchPage(ctx, it.query, page)

	items, more, err := it.client.searchPage(ctx, it.kind, it.query, page)
	it.page++
	if err != nil {
		it.state = StateFailed
		it.err = fmt.Errorf("github search %q page %d: %w", it.query, page, err)
		return false
	}

	it.items, it.pos, it.more = items, 0, more
	it.state = StatePageYielding
	return true
}

// searchPage requests one page and extracts its descriptors in host order.
func (c *Client) searchPage(ctx context.Context, kind SearchKind, query string, page int) ([]RepositoryDescriptor, bool, error) {
	u := c.searchURL(kind, query, page)

	switch kind {
	case SearchRepositories:
		var data repoSearchResponse
		h, err := c.GetPage(ctx, u, &data)
		if err != nil {
			return nil, false, err
		}
		if data.Items == nil {
			return nil, false, fmt.Errorf("%w: missing items", integrations.ErrMalformedResponse)
		}
		out := make([]RepositoryDescriptor, 0, len(*data.Items))
		for i, item := range *data.Items {
			if item.Owner.Login == "" || item.Name == "" {
				return nil, false, fmt.Errorf("%w: item %d without owner or name", integrations.ErrMalformedResponse, i)
			}
			out = append(out, RepositoryDescriptor{Owner: item.Owner.Login, Repo: item.Name})
		}
		return out, httputil.HasNextPage(h), nil

	default:
		var data codeSearchResponse
		h, err := c.GetPage(ctx, u, &data)
		if err != nil {
			return nil, false, err
		}
		if data.Items == nil {
			return nil, false, fmt.Errorf("%w: missing items", integrations.ErrMalformedResponse)
		}
		out := make([]RepositoryDescriptor, 0, len(*data.Items))
		for i, item := range *data.Items {
			r := item.Repository
			if r == nil || r.Owner.Login == "" || r.Name == "" {
				return nil, false, fmt.Errorf("%w: item %d without repository owner or name", integrations.ErrMalformedResponse, i)
			}
			out = append(out, RepositoryDescriptor{Owner: r.Owner.Login, Repo: r.Name})
		}
		return out, httputil.HasNextPage(h), nil
	}
}
