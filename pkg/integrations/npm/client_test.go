package npm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/matzehuels/activitygraph/pkg/activity"
	"github.com/matzehuels/activitygraph/pkg/cache"
	agerrors "github.com/matzehuels/activitygraph/pkg/errors"
)

type fakeRegistry struct {
	mu        sync.Mutex
	searches  int
	downloads map[string]int
	query     string
	packages  []searchPackage
	failing   map[string]int // package → status code for the downloads API
}

func (f *fakeRegistry) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case r.URL.Path == "/-/v1/search":
		f.searches++
		f.query = r.URL.Query().Get("text") + "|" + r.URL.Query().Get("size")
		var resp searchResponse
		for _, p := range f.packages {
			resp.Objects = append(resp.Objects, struct {
				Package searchPackage `json:"package"`
			}{p})
		}
		json.NewEncoder(w).Encode(resp)

	case strings.HasPrefix(r.URL.Path, "/downloads/point/last-week/"):
		name := strings.TrimPrefix(r.URL.Path, "/downloads/point/last-week/")
		f.downloads[name]++
		if code, ok := f.failing[name]; ok {
			w.WriteHeader(code)
			return
		}
		json.NewEncoder(w).Encode(downloadsResponse{Package: name, Downloads: int64(len(name) * 100)})

	default:
		http.NotFound(w, r)
	}
}

func newFake(n int) *fakeRegistry {
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	f := &fakeRegistry{downloads: map[string]int{}, failing: map[string]int{}}
	for i := range n {
		p := searchPackage{Name: fmt.Sprintf("pkg-%02d", i), Version: "1.0.0"}
		// oldest first so the client has to sort
		p.Date = base.Add(time.Duration(i) * time.Hour).Format(time.RFC3339)
		f.packages = append(f.packages, p)
	}
	return f
}

func testClient(t *testing.T, f *fakeRegistry) *Client {
	t.Helper()
	server := httptest.NewServer(f)
	t.Cleanup(server.Close)

	c := NewClient(cache.NewMemoryCache(), time.Hour).WithBaseURLs(server.URL, server.URL)
	c.WithHTTPClient(server.Client())
	c.WithBackoff(cache.Backoff{Attempts: 1})
	return c
}

func TestSearchMaintainer(t *testing.T) {
	f := newFake(12)
	f.failing["pkg-10"] = http.StatusInternalServerError
	f.failing["pkg-09"] = http.StatusNotFound
	c := testClient(t, f)

	pkgs, err := c.SearchMaintainer(context.Background(), "sindre", 12, false)
	if err != nil {
		t.Fatalf("SearchMaintainer() error: %v", err)
	}

	if f.query != "maintainer:sindre|12" {
		t.Errorf("search query = %q", f.query)
	}
	if len(pkgs) != 12 {
		t.Fatalf("got %d packages, want 12", len(pkgs))
	}
	if pkgs[0].Name != "pkg-11" || pkgs[11].Name != "pkg-00" {
		t.Errorf("not newest first: first=%s last=%s", pkgs[0].Name, pkgs[11].Name)
	}

	if got := len(f.downloads); got != EnrichLimit {
		t.Errorf("downloads requests for %d packages, want %d", got, EnrichLimit)
	}
	for i, p := range pkgs {
		switch {
		case i >= EnrichLimit:
			if p.WeeklyDownloads != nil {
				t.Errorf("%s beyond the enrichment cap has downloads", p.Name)
			}
		case p.Name == "pkg-10" || p.Name == "pkg-09":
			if p.WeeklyDownloads != nil {
				t.Errorf("%s failed enrichment but has downloads %d", p.Name, *p.WeeklyDownloads)
			}
		default:
			if p.WeeklyDownloads == nil || *p.WeeklyDownloads != 600 {
				t.Errorf("%s downloads = %v, want 600", p.Name, p.WeeklyDownloads)
			}
		}
	}
}

func TestSearchMaintainerCached(t *testing.T) {
	f := newFake(3)
	c := testClient(t, f)
	ctx := context.Background()

	for range 2 {
		if _, err := c.SearchMaintainer(ctx, "sindre", 3, false); err != nil {
			t.Fatal(err)
		}
	}
	if f.searches != 1 || f.downloads["pkg-00"] != 1 {
		t.Errorf("searches=%d downloads=%d, want both cached after first call", f.searches, f.downloads["pkg-00"])
	}

	if _, err := c.SearchMaintainer(ctx, "sindre", 3, true); err != nil {
		t.Fatal(err)
	}
	if f.searches != 2 || f.downloads["pkg-00"] != 2 {
		t.Errorf("refresh should bypass the cache: searches=%d downloads=%d", f.searches, f.downloads["pkg-00"])
	}
}

func TestSearchMaintainerEmpty(t *testing.T) {
	c := testClient(t, newFake(0))

	pkgs, err := c.SearchMaintainer(context.Background(), "nobody", 20, false)
	if err != nil {
		t.Fatalf("SearchMaintainer() error: %v", err)
	}
	if len(pkgs) != 0 {
		t.Errorf("got %d packages, want 0", len(pkgs))
	}
}

func TestSearchMaintainerPrimaryFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	c := NewClient(cache.NewMemoryCache(), time.Hour).WithBaseURLs(server.URL, server.URL)
	c.WithHTTPClient(server.Client())
	c.WithBackoff(cache.Backoff{Attempts: 1})

	_, err := c.SearchMaintainer(context.Background(), "sindre", 10, false)
	if !agerrors.Is(err, agerrors.ErrCodeNetwork) {
		t.Errorf("error = %v, want NETWORK_ERROR", err)
	}
}

func TestSearchMaintainerInvalid(t *testing.T) {
	c := testClient(t, newFake(0))
	for _, m := range []string{"", "two words", "a/b"} {
		_, err := c.SearchMaintainer(context.Background(), m, 10, false)
		if !agerrors.Is(err, agerrors.ErrCodeInvalidIdentity) {
			t.Errorf("SearchMaintainer(%q) error = %v, want INVALID_IDENTITY", m, err)
		}
	}
}

func TestToPackage(t *testing.T) {
	p := searchPackage{Name: "left-pad", Version: "1.3.0", Date: "2018-04-09T02:11:44.000Z"}
	p.Links.NPM = "https://www.npmjs.com/package/left-pad"

	got := p.toPackage()
	if got.PublishedAt.Year() != 2018 || got.URL != p.Links.NPM {
		t.Errorf("toPackage() = %+v", got)
	}

	p.Date = "garbage"
	if !p.toPackage().PublishedAt.IsZero() {
		t.Error("unparseable date should leave PublishedAt zero")
	}
}

func TestSortNewestFirst(t *testing.T) {
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	pkgs := []activity.Package{
		{Name: "undated"},
		{Name: "b", PublishedAt: at},
		{Name: "a", PublishedAt: at},
		{Name: "newest", PublishedAt: at.Add(time.Hour)},
	}

	sortNewestFirst(pkgs)

	var names []string
	for _, p := range pkgs {
		names = append(names, p.Name)
	}
	if got := strings.Join(names, ","); got != "newest,a,b,undated" {
		t.Errorf("order = %s", got)
	}
}

func TestEscapePackage(t *testing.T) {
	tests := map[string]string{
		"express":        "express",
		"@types/node":    "@types/node",
		"weird name":     "weird%20name",
		"@scope/a b":     "@scope/a%20b",
		"not@scope/path": "not@scope%2Fpath",
	}
	for in, want := range tests {
		if got := escapePackage(in); got != want {
			t.Errorf("escapePackage(%q) = %q, want %q", in, got, want)
		}
	}
}
