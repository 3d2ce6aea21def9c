package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/matzehuels/pkgindex/pkg/integrations"
)

// recordingHooks captures fetch traces in call order.
type recordingHooks struct {
	mu     sync.Mutex
	events []string
}

func (h *recordingHooks) OnRepositoryFetch(_ context.Context, owner, repo string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, "repo "+owner+"/"+repo)
}

func (h *recordingHooks) OnSearchPage(_ context.Context, query string, page int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, fmt.Sprintf("search %s %d", query, page))
}

func testClient(t *testing.T, server *httptest.Server, hooks *recordingHooks) *Client {
	t.Helper()
	opts := Options{BaseURL: server.URL, HTTPClient: server.Client()}
	if hooks != nil {
		opts.Hooks = hooks
	}
	c, err := NewClient(opts)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestClient_FetchRepository(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if r.URL.Path != "/repos/acme/widget" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"name": "widget",
			"full_name": "acme/widget",
			"owner": {"login": "acme"},
			"description": "A widget",
			"stargazers_count": 42,
			"topics": ["json", "cli"]
		}`))
	}))
	defer server.Close()

	hooks := &recordingHooks{}
	c := testClient(t, server, hooks)

	repo, err := c.FetchRepository(context.Background(), RepositoryDescriptor{Owner: "acme", Repo: "widget"})
	if err != nil {
		t.Fatalf("FetchRepository() error: %v", err)
	}

	if repo.FullName != "acme/widget" || repo.Name != "widget" || repo.Owner.Login != "acme" {
		t.Errorf("unexpected identity: %+v", repo)
	}
	if repo.Description == nil || *repo.Description != "A widget" {
		t.Errorf("Description = %v, want %q", repo.Description, "A widget")
	}
	if repo.StargazersCount != 42 {
		t.Errorf("StargazersCount = %d, want 42", repo.StargazersCount)
	}
	if len(repo.Topics) != 2 || repo.Topics[0] != "json" {
		t.Errorf("Topics = %v", repo.Topics)
	}
	if requests != 1 {
		t.Errorf("requests = %d, want 1", requests)
	}
	if len(hooks.events) != 1 || hooks.events[0] != "repo acme/widget" {
		t.Errorf("trace = %v, want [repo acme/widget]", hooks.events)
	}
}

func TestClient_FetchRepositoryNullDescription(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"name":"widget","full_name":"acme/widget","owner":{"login":"acme"},"description":null}`))
	}))
	defer server.Close()

	repo, err := testClient(t, server, nil).FetchRepository(context.Background(), RepositoryDescriptor{Owner: "acme", Repo: "widget"})
	if err != nil {
		t.Fatalf("FetchRepository() error: %v", err)
	}
	if repo.Description != nil {
		t.Errorf("Description = %q, want nil", *repo.Description)
	}
}

func TestClient_FetchRepositoryErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		wantErr error
	}{
		{
			name:    "not found",
			handler: func(w http.ResponseWriter, r *http.Request) { http.NotFound(w, r) },
			wantErr: integrations.ErrNotFound,
		},
		{
			name: "rate limited",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("X-RateLimit-Remaining", "0")
				w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(time.Hour).Unix(), 10))
				w.WriteHeader(http.StatusForbidden)
			},
			wantErr: integrations.ErrRateLimited,
		},
		{
			name: "partial record",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"name": "widget", "stargazers_count": 3}`))
			},
			wantErr: integrations.ErrMalformedResponse,
		},
		{
			name: "not json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`<html>oops</html>`))
			},
			wantErr: integrations.ErrMalformedResponse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			repo, err := testClient(t, server, nil).FetchRepository(context.Background(), RepositoryDescriptor{Owner: "acme", Repo: "widget"})
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("FetchRepository() error = %v, want %v", err, tt.wantErr)
			}
			if repo != nil {
				t.Errorf("FetchRepository() returned a record on error: %+v", repo)
			}
		})
	}
}

func TestClient_FetchRepositoryInvalidDescriptor(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
	}))
	defer server.Close()

	_, err := testClient(t, server, nil).FetchRepository(context.Background(), RepositoryDescriptor{Owner: "-bad", Repo: "widget"})
	if !errors.Is(err, integrations.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
	if requests != 0 {
		t.Errorf("requests = %d, want 0", requests)
	}
}

func TestClient_FetchRepositoryCached(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.Write([]byte(`{"name":"widget","full_name":"acme/widget","owner":{"login":"acme"}}`))
	}))
	defer server.Close()

	c, err := NewClient(Options{
		BaseURL:    server.URL,
		HTTPClient: server.Client(),
		CacheTTL:   time.Hour,
		CacheDir:   t.TempDir(),
	})
	if err != nil {
		t.Fatal(err)
	}

	d := RepositoryDescriptor{Owner: "acme", Repo: "widget"}
	for range 2 {
		if _, err := c.FetchRepository(context.Background(), d); err != nil {
			t.Fatalf("FetchRepository() error: %v", err)
		}
	}
	if requests != 1 {
		t.Errorf("requests = %d, want 1 with caching", requests)
	}
}

// searchPage describes one canned search response.
type searchPage struct {
	items  int
	next   bool
	status int
}

// searchServer serves pages in order and records every requested page number.
type searchServer struct {
	*httptest.Server
	t     *testing.T
	pages []searchPage
	mu    sync.Mutex
	seen  []int
	query []string
}

func newSearchServer(t *testing.T, pages ...searchPage) *searchServer {
	s := &searchServer{t: t, pages: pages}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Close)
	return s
}

func (s *searchServer) handle(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := strconv.Atoi(q.Get("page"))
	if err != nil {
		s.t.Errorf("bad page param %q", q.Get("page"))
		return
	}
	if got := q.Get("per_page"); got != "100" {
		s.t.Errorf("per_page = %q, want 100", got)
	}

	s.mu.Lock()
	s.seen = append(s.seen, page)
	s.query = append(s.query, q.Get("q"))
	s.mu.Unlock()

	if page < 1 || page > len(s.pages) {
		s.t.Errorf("unexpected request for page %d", page)
		w.Write([]byte(`{"items": []}`))
		return
	}
	p := s.pages[page-1]
	if p.status != 0 {
		w.WriteHeader(p.status)
		return
	}
	if p.next {
		w.Header().Set("Link", fmt.Sprintf(`<%s%s?page=%d>; rel="next"`, "http://"+r.Host, r.URL.Path, page+1))
	}

	type item struct {
		Repository struct {
			Name  string `json:"name"`
			Owner struct {
				Login string `json:"login"`
			} `json:"owner"`
		} `json:"repository"`
	}
	items := make([]item, p.items)
	for i := range items {
		items[i].Repository.Name = fmt.Sprintf("repo-%d-%d", page, i)
		items[i].Repository.Owner.Login = "owner"
	}
	json.NewEncoder(w).Encode(map[string]any{"total_count": 0, "items": items})
}

func (s *searchServer) requests() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.seen...)
}

func TestSearch_TwoPages(t *testing.T) {
	s := newSearchServer(t, searchPage{items: 100, next: true}, searchPage{items: 37})
	hooks := &recordingHooks{}
	c := testClient(t, s.Server, hooks)

	it := c.SearchRepositories("filename:package.json")
	var got []RepositoryDescriptor
	for it.Next(context.Background()) {
		got = append(got, it.Descriptor())
	}
	if err := it.Err(); err != nil {
		t.Fatalf("Err() = %v", err)
	}

	if len(got) != 137 {
		t.Fatalf("got %d descriptors, want 137", len(got))
	}
	if got[0].Repo != "repo-1-0" || got[99].Repo != "repo-1-99" || got[100].Repo != "repo-2-0" || got[136].Repo != "repo-2-36" {
		t.Errorf("descriptors out of order: %v ... %v", got[0], got[136])
	}
	if reqs := s.requests(); len(reqs) != 2 || reqs[0] != 1 || reqs[1] != 2 {
		t.Errorf("page requests = %v, want [1 2]", reqs)
	}
	if s.query[0] != "filename:package.json" {
		t.Errorf("q = %q", s.query[0])
	}
	if it.State() != StateExhausted {
		t.Errorf("State() = %v, want exhausted", it.State())
	}
	if it.Pages() != 2 {
		t.Errorf("Pages() = %d, want 2", it.Pages())
	}

	wantTrace := []string{"search filename:package.json 1", "search filename:package.json 2"}
	if len(hooks.events) != len(wantTrace) || hooks.events[0] != wantTrace[0] || hooks.events[1] != wantTrace[1] {
		t.Errorf("trace = %v, want %v", hooks.events, wantTrace)
	}
}

func TestSearch_StopEarlyIssuesOneRequest(t *testing.T) {
	s := newSearchServer(t, searchPage{items: 100, next: true}, searchPage{items: 100})
	c := testClient(t, s.Server, nil)

	it := c.SearchRepositories("q")
	pulled := 0
	for it.Next(context.Background()) {
		pulled++
		if pulled == 5 {
			break
		}
	}

	if reqs := s.requests(); len(reqs) != 1 {
		t.Errorf("page requests = %v, want exactly one", reqs)
	}
	if it.State() != StatePageYielding {
		t.Errorf("State() = %v, want page-yielding", it.State())
	}
}

func TestSearch_NoPrefetchAtPageBoundary(t *testing.T) {
	s := newSearchServer(t, searchPage{items: 100, next: true}, searchPage{items: 1})
	c := testClient(t, s.Server, nil)

	it := c.SearchRepositories("q")
	for range 100 {
		if !it.Next(context.Background()) {
			t.Fatalf("Next() = false early: %v", it.Err())
		}
	}
	if reqs := s.requests(); len(reqs) != 1 {
		t.Errorf("page 2 requested before the consumer pulled past page 1: %v", reqs)
	}

	if !it.Next(context.Background()) {
		t.Fatalf("Next() = false, want page 2 item: %v", it.Err())
	}
	if reqs := s.requests(); len(reqs) != 2 {
		t.Errorf("page requests = %v, want [1 2]", reqs)
	}
}

func TestSearch_ContinuationFromLinkOnly(t *testing.T) {
	tests := []struct {
		name      string
		pages     []searchPage
		wantItems int
		wantReqs  int
	}{
		{"full page without next stops", []searchPage{{items: 100}}, 100, 1},
		{"short page with next continues", []searchPage{{items: 3, next: true}, {items: 2}}, 5, 2},
		{"empty page with next continues", []searchPage{{items: 0, next: true}, {items: 4}}, 4, 2},
		{"empty first page", []searchPage{{items: 0}}, 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSearchServer(t, tt.pages...)
			c := testClient(t, s.Server, nil)

			it := c.SearchRepositories("q")
			n := 0
			for it.Next(context.Background()) {
				n++
			}
			if it.Err() != nil {
				t.Fatalf("Err() = %v", it.Err())
			}
			if n != tt.wantItems {
				t.Errorf("items = %d, want %d", n, tt.wantItems)
			}
			if got := len(s.requests()); got != tt.wantReqs {
				t.Errorf("requests = %d, want %d", got, tt.wantReqs)
			}
		})
	}
}

func TestSearch_NotRestartable(t *testing.T) {
	s := newSearchServer(t, searchPage{items: 2})
	c := testClient(t, s.Server, nil)

	if it := c.SearchRepositories("q"); it.State() != StateIdle {
		t.Errorf("fresh iterator State() = %v, want idle", it.State())
	}
	if len(s.requests()) != 0 {
		t.Error("creating an iterator must not issue requests")
	}

	it := c.SearchRepositories("q")
	for it.Next(context.Background()) {
	}
	if it.Next(context.Background()) {
		t.Error("Next() after exhaustion should stay false")
	}
	if got := len(s.requests()); got != 1 {
		t.Errorf("requests = %d, want 1", got)
	}

	fresh := c.SearchRepositories("q")
	if !fresh.Next(context.Background()) {
		t.Fatalf("fresh iterator Next() = false: %v", fresh.Err())
	}
	if reqs := s.requests(); len(reqs) != 2 || reqs[1] != 1 {
		t.Errorf("fresh iterator should restart at page 1, requests = %v", reqs)
	}
}

func TestSearch_FailureMidway(t *testing.T) {
	s := newSearchServer(t, searchPage{items: 3, next: true}, searchPage{status: http.StatusTooManyRequests})
	c := testClient(t, s.Server, nil)

	it := c.SearchRepositories("q")
	n := 0
	for it.Next(context.Background()) {
		n++
	}
	if n != 3 {
		t.Errorf("items before failure = %d, want 3", n)
	}
	if !errors.Is(it.Err(), integrations.ErrRateLimited) {
		t.Errorf("Err() = %v, want ErrRateLimited", it.Err())
	}
	if it.State() != StateFailed {
		t.Errorf("State() = %v, want failed", it.State())
	}
	if it.Next(context.Background()) {
		t.Error("Next() after failure should stay false")
	}
	if got := len(s.requests()); got != 2 {
		t.Errorf("requests = %d, want 2", got)
	}
}

func TestSearch_ServerErrorCostsOneRequest(t *testing.T) {
	s := newSearchServer(t, searchPage{status: http.StatusBadGateway})
	hooks := &recordingHooks{}
	c := testClient(t, s.Server, hooks)

	it := c.SearchRepositories("q")
	if it.Next(context.Background()) {
		t.Fatal("Next() = true on a failing page")
	}
	if !errors.Is(it.Err(), integrations.ErrNetwork) {
		t.Errorf("Err() = %v, want ErrNetwork", it.Err())
	}
	if it.State() != StateFailed || it.Pages() != 1 {
		t.Errorf("State() = %v, Pages() = %d; want failed, 1", it.State(), it.Pages())
	}
	if got := len(s.requests()); got != 1 {
		t.Errorf("requests = %d, want 1", got)
	}
	if len(hooks.events) != 1 || hooks.events[0] != "search q 1" {
		t.Errorf("traces = %v, want one per request", hooks.events)
	}
}

func TestClient_FetchRepositoryServerErrorNotRetried(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := testClient(t, server, nil).FetchRepository(context.Background(), RepositoryDescriptor{Owner: "acme", Repo: "widget"})
	if !errors.Is(err, integrations.ErrNetwork) {
		t.Errorf("err = %v, want ErrNetwork", err)
	}
	if calls != 1 {
		t.Errorf("requests = %d, want 1", calls)
	}
}

func TestSearch_MalformedPage(t *testing.T) {
	bodies := []string{
		`{"total_count": 1}`,
		`{"items": [{"path": "package.json"}]}`,
		`{"items": [{"repository": {"name": "widget", "owner": {}}}]}`,
		`not json`,
	}

	for _, body := range bodies {
		t.Run(body, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Link", `<http://x/search/code?page=2>; rel="next"`)
				w.Write([]byte(body))
			}))
			defer server.Close()

			it := testClient(t, server, nil).SearchRepositories("q")
			if it.Next(context.Background()) {
				t.Fatal("Next() = true for malformed page")
			}
			if !errors.Is(it.Err(), integrations.ErrMalformedResponse) {
				t.Errorf("Err() = %v, want ErrMalformedResponse", it.Err())
			}
		})
	}
}

func TestSearch_All(t *testing.T) {
	s := newSearchServer(t, searchPage{items: 2, next: true}, searchPage{status: http.StatusNotFound})
	c := testClient(t, s.Server, nil)

	var got []string
	var gotErr error
	for d, err := range c.SearchRepositories("q").All(context.Background()) {
		if err != nil {
			gotErr = err
			continue
		}
		got = append(got, d.String())
	}
	if len(got) != 2 || got[0] != "owner/repo-1-0" {
		t.Errorf("descriptors = %v", got)
	}
	if !errors.Is(gotErr, integrations.ErrNotFound) {
		t.Errorf("final error = %v, want ErrNotFound", gotErr)
	}
}

func TestSearch_AllBreak(t *testing.T) {
	s := newSearchServer(t, searchPage{items: 2, next: true}, searchPage{items: 2})
	c := testClient(t, s.Server, nil)

	for d, err := range c.SearchRepositories("q").All(context.Background()) {
		if err != nil {
			t.Fatal(err)
		}
		_ = d
		break
	}
	if got := len(s.requests()); got != 1 {
		t.Errorf("requests = %d, want 1", got)
	}
}

func TestSearch_RepositoriesKind(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search/repositories" {
			t.Errorf("path = %s, want /search/repositories", r.URL.Path)
		}
		w.Write([]byte(`{"items": [{"name": "widget", "owner": {"login": "acme"}}]}`))
	}))
	defer server.Close()

	it := testClient(t, server, nil).Search(SearchRepositories, "topic:cli")
	if !it.Next(context.Background()) {
		t.Fatalf("Next() = false: %v", it.Err())
	}
	if got := it.Descriptor().String(); got != "acme/widget" {
		t.Errorf("Descriptor() = %s, want acme/widget", got)
	}
	if it.Next(context.Background()) {
		t.Error("expected exhaustion after one item without next relation")
	}
}

func TestSearchStateString(t *testing.T) {
	if StateExhausted.String() != "exhausted" {
		t.Errorf("String() = %q", StateExhausted.String())
	}
	if SearchState(99).String() != "SearchState(99)" {
		t.Errorf("String() = %q", SearchState(99).String())
	}
}

func TestNewClientDefaults(t *testing.T) {
	c, err := NewClient(Options{Token: "test-token"})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	if c.Client == nil {
		t.Error("expected client to be initialized")
	}
	if c.baseURL != DefaultBaseURL {
		t.Errorf("baseURL = %q, want %q", c.baseURL, DefaultBaseURL)
	}
}
