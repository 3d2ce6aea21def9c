package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/pkgindex/pkg/packages"
	"github.com/matzehuels/pkgindex/pkg/store"
)

func quietLogger() *log.Logger { return log.New(io.Discard) }

func seeded(t *testing.T) *store.Memory {
	t.Helper()
	s := store.NewMemory()
	for i, id := range []string{"acme/widget", "acme/gizmo", "other/tool"} {
		_, repo, _ := packages.SplitIdentifier(id)
		p := packages.Package{
			Source:      packages.SourceGitHub,
			Identifier:  id,
			Name:        repo,
			Description: packages.StringPtr(repo + " for everyone"),
			Popularity:  (i + 1) * 10,
			Tags:        []string{"go"},
		}
		if err := s.Upsert(context.Background(), p); err != nil {
			t.Fatal(err)
		}
	}
	return s
}

func do(t *testing.T, h http.Handler, method, target string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var body map[string]any
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("%s %s: invalid JSON body %q: %v", method, target, rec.Body.String(), err)
		}
	}
	return rec, body
}

func errorOf(t *testing.T, body map[string]any) (int, string) {
	t.Helper()
	if body["apiVersion"] != APIVersion {
		t.Errorf("apiVersion = %v, want %s", body["apiVersion"], APIVersion)
	}
	e, ok := body["error"].(map[string]any)
	if !ok {
		t.Fatalf("body has no error object: %v", body)
	}
	return int(e["code"].(float64)), e["message"].(string)
}

func TestGetPackage(t *testing.T) {
	srv := New(seeded(t), quietLogger())

	tests := []struct {
		name   string
		target string
		want   string
	}{
		{"owner and repo", "/packages/github/acme/widget", "acme/widget"},
		{"encoded identifier", "/packages/github/acme%2Fgizmo", "acme/gizmo"},
		{"lowercase escape", "/packages/github/other%2ftool", "other/tool"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := do(t, srv, http.MethodGet, tt.target)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
			}
			if body["apiVersion"] != APIVersion {
				t.Errorf("apiVersion = %v", body["apiVersion"])
			}
			data := body["data"].(map[string]any)
			if data["identifier"] != tt.want || data["source"] != "github" {
				t.Errorf("data = %v, want identifier %s", data, tt.want)
			}
			if _, ok := data["tags"].([]any); !ok {
				t.Errorf("tags should be an array: %v", data["tags"])
			}
		})
	}
}

func TestGetPackageNullDescription(t *testing.T) {
	s := store.NewMemory()
	s.Upsert(context.Background(), packages.Package{Source: packages.SourceGitHub, Identifier: "a/b", Name: "b", Tags: []string{}})

	rec, _ := do(t, New(s, quietLogger()), http.MethodGet, "/packages/github/a/b")
	if !strings.Contains(rec.Body.String(), `"description":null`) {
		t.Errorf("absent description should serialize as null: %s", rec.Body)
	}
}

func TestGetPackageDottedName(t *testing.T) {
	s := store.NewMemory()
	p := packages.Package{Source: packages.SourceGitHub, Identifier: "acme/my..lib", Name: "my..lib", Tags: []string{}}
	if err := s.Upsert(context.Background(), p); err != nil {
		t.Fatal(err)
	}
	srv := New(s, quietLogger())

	for _, target := range []string{"/packages/github/acme/my..lib", "/packages/github/acme%2Fmy..lib"} {
		rec, body := do(t, srv, http.MethodGet, target)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: status = %d, body %s", target, rec.Code, rec.Body)
		}
		if data := body["data"].(map[string]any); data["identifier"] != "acme/my..lib" {
			t.Errorf("%s: identifier = %v", target, data["identifier"])
		}
	}
}

func TestGetPackageErrors(t *testing.T) {
	srv := New(seeded(t), quietLogger())

	tests := []struct {
		name       string
		target     string
		wantStatus int
		wantMsg    string
	}{
		{"missing", "/packages/github/acme/nothing", http.StatusNotFound, "not found"},
		{"unknown source", "/packages/gitlab/acme/widget", http.StatusNotFound, "not found"},
		{"single segment", "/packages/github/widget", http.StatusNotFound, "not found"},
		{"traversal", "/packages/github/acme%2F..%2Fx", http.StatusBadRequest, `identifier contains invalid path segment: ".."`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := do(t, srv, http.MethodGet, tt.target)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.wantStatus, rec.Body)
			}
			code, msg := errorOf(t, body)
			if code != tt.wantStatus || msg != tt.wantMsg {
				t.Errorf("error = %d %q, want %d %q", code, msg, tt.wantStatus, tt.wantMsg)
			}
		})
	}
}

func TestUnmatchedRoutesForbidden(t *testing.T) {
	srv := New(seeded(t), quietLogger())

	for _, tc := range []struct{ method, target string }{
		{http.MethodGet, "/"},
		{http.MethodGet, "/nope"},
		{http.MethodGet, "/packages/github/a/b/c"},
		{http.MethodPost, "/packages"},
		{http.MethodDelete, "/packages/github/acme/widget"},
	} {
		t.Run(tc.method+" "+tc.target, func(t *testing.T) {
			rec, body := do(t, srv, tc.method, tc.target)
			if rec.Code != http.StatusForbidden {
				t.Fatalf("status = %d, want 403", rec.Code)
			}
			if len(body) != 2 || body["code"] != float64(403) || body["message"] != "forbidden" {
				t.Errorf("body = %v, want {code:403,message:forbidden}", body)
			}
		})
	}
}

func TestListPackages(t *testing.T) {
	srv := New(seeded(t), quietLogger())

	tests := []struct {
		target    string
		wantIDs   []string
		wantTotal int
	}{
		{"/packages", []string{"other/tool", "acme/gizmo", "acme/widget"}, 3},
		{"/packages?limit=1", []string{"other/tool"}, 3},
		{"/packages?q=GIZ", []string{"acme/gizmo"}, 1},
		{"/packages?source=github&q=everyone&limit=2", []string{"other/tool", "acme/gizmo"}, 3},
		{"/packages?limit=100000", []string{"other/tool", "acme/gizmo", "acme/widget"}, 3},
		{"/packages?q=zzz", []string{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			rec, body := do(t, srv, http.MethodGet, tt.target)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d (%s)", rec.Code, rec.Body)
			}
			data := body["data"].(map[string]any)
			items := data["items"].([]any)
			if int(data["totalItems"].(float64)) != tt.wantTotal {
				t.Errorf("totalItems = %v, want %d", data["totalItems"], tt.wantTotal)
			}
			if len(items) != len(tt.wantIDs) {
				t.Fatalf("items = %d, want %d", len(items), len(tt.wantIDs))
			}
			for i, want := range tt.wantIDs {
				if got := items[i].(map[string]any)["identifier"]; got != want {
					t.Errorf("items[%d] = %v, want %s", i, got, want)
				}
			}
		})
	}
}

func TestListPackagesBadInput(t *testing.T) {
	srv := New(seeded(t), quietLogger())

	for _, target := range []string{
		"/packages?limit=abc",
		"/packages?limit=0",
		"/packages?source=sourceforge",
		"/packages?q=" + strings.Repeat("x", 300),
	} {
		rec, body := do(t, srv, http.MethodGet, target)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", target, rec.Code)
			continue
		}
		if code, _ := errorOf(t, body); code != http.StatusBadRequest {
			t.Errorf("%s: envelope code = %d", target, code)
		}
	}
}

// failingStore fails every read with a plain error.
type failingStore struct{ *store.Memory }

func newFailingStore() *failingStore { return &failingStore{Memory: store.NewMemory()} }

func (*failingStore) Get(context.Context, packages.Source, string) (packages.Package, error) {
	return packages.Package{}, errors.New("connection reset by peer: secret detail")
}

func (*failingStore) List(context.Context, store.ListOptions) (store.ListResult, error) {
	panic("boom")
}

func (*failingStore) Ping(context.Context) error { return errors.New("down") }

func TestInternalErrorsHideDetail(t *testing.T) {
	srv := New(newFailingStore(), quietLogger())

	for _, target := range []string{"/packages/github/acme/widget", "/packages"} {
		rec, body := do(t, srv, http.MethodGet, target)
		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("%s: status = %d, want 500", target, rec.Code)
		}
		if code, msg := errorOf(t, body); code != 500 || msg != "internal server error" {
			t.Errorf("%s: error = %d %q", target, code, msg)
		}
		if strings.Contains(rec.Body.String(), "secret") {
			t.Errorf("%s: internal detail leaked: %s", target, rec.Body)
		}
	}
}

func TestHealth(t *testing.T) {
	rec, body := do(t, New(seeded(t), quietLogger()), http.MethodGet, "/healthz")
	if rec.Code != http.StatusOK || body["status"] != "ok" {
		t.Errorf("healthz = %d %v", rec.Code, body)
	}

	rec, body = do(t, New(newFailingStore(), quietLogger()), http.MethodGet, "/healthz")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("healthz on failing store = %d, want 503", rec.Code)
	}
	if _, msg := errorOf(t, body); msg != "store unavailable" {
		t.Errorf("message = %q", msg)
	}
}

func TestRequestIDAndCORS(t *testing.T) {
	srv := New(seeded(t), quietLogger())

	req := httptest.NewRequest(http.MethodGet, "/packages", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if got := rec.Header().Get(RequestIDHeader); got != "abc-123" {
		t.Errorf("%s = %q, want abc-123", RequestIDHeader, got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}

	rec, _ = do(t, srv, http.MethodGet, "/packages")
	if len(rec.Header().Get(RequestIDHeader)) != 36 {
		t.Errorf("generated request ID %q is not a UUID", rec.Header().Get(RequestIDHeader))
	}

	pre := httptest.NewRequest(http.MethodOptions, "/packages", nil)
	pre.Header.Set("Origin", "https://example.com")
	pre.Header.Set("Access-Control-Request-Method", "GET")
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, pre)
	if rec.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want 204", rec.Code)
	}
}

func TestServeShutsDownOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	srv := New(seeded(t), quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	url := fmt.Sprintf("http://%s/packages/github/acme/widget", ln.Addr())
	var resp *http.Response
	for i := 0; i < 50; i++ {
		if resp, err = http.Get(url); err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve() = %v, want nil after shutdown", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
