package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matzehuels/activitygraph/pkg/activity"
	"github.com/matzehuels/activitygraph/pkg/cache"
	"github.com/matzehuels/activitygraph/pkg/errors"
	"github.com/matzehuels/activitygraph/pkg/feed"
	"github.com/matzehuels/activitygraph/pkg/observability/prom"
	"github.com/matzehuels/activitygraph/pkg/pipeline"
)

var at = time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

type fakeEvents struct {
	calls atomic.Int32
	err   error
}

func (*fakeEvents) Name() string { return "github" }

func (f *fakeEvents) Fetch(context.Context, feed.Query) ([]activity.Event, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return []activity.Event{
		{ID: "1", CreatedAt: at, Kind: activity.KindPush, Repo: "octo/api", Message: "Pushed 2 commits"},
		{ID: "2", CreatedAt: at.Add(-26 * time.Hour), Kind: activity.KindStarGiven, Repo: "octo/web", Message: "Starred octo/web"},
	}, nil
}

type fakePackages struct {
	calls atomic.Int32
}

func (*fakePackages) Name() string { return "npm" }

func (f *fakePackages) Fetch(context.Context, feed.Query) ([]activity.Package, error) {
	f.calls.Add(1)
	return []activity.Package{{Name: "octo-kit", Version: "2.1.0", PublishedAt: at.Add(-time.Hour)}}, nil
}

type testEnv struct {
	server *httptest.Server
	gh     *fakeEvents
	npm    *fakePackages
	dash   *feed.Dashboard
}

func newTestEnv(t *testing.T, ghErr error, metrics http.Handler) *testEnv {
	t.Helper()
	env := &testEnv{gh: &fakeEvents{err: ghErr}, npm: &fakePackages{}}
	logger := log.New(io.Discard)
	c := cache.NewMemoryCache()
	env.dash = &feed.Dashboard{
		GitHub: feed.New[activity.Event](env.gh, feed.Options[activity.Event]{Identity: "octocat", Limit: 30, Cache: c, Logger: logger}),
		Npm:    feed.New[activity.Package](env.npm, feed.Options[activity.Package]{Identity: "octocat", Limit: 30, Cache: c, Logger: logger}),
	}
	env.dash.Start(context.Background())
	t.Cleanup(func() {
		env.dash.Close()
		env.dash.Wait()
	})

	s := New(Config{
		Dashboard: env.dash,
		Runner:    pipeline.NewRunner(c, nil, logger, nil),
		Logger:    logger,
		Metrics:   metrics,
		Now:       func() time.Time { return at.Add(time.Hour) },
	})
	env.server = httptest.NewServer(s.Handler())
	t.Cleanup(env.server.Close)
	return env
}

func (e *testEnv) get(t *testing.T, path string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(e.server.URL + path)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp, body
}

func decode[T any](t *testing.T, body []byte) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(body, &v); err != nil {
		t.Fatalf("decode %s: %v", body, err)
	}
	return v
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	resp, body := env.get(t, "/healthz")
	if resp.StatusCode != http.StatusOK || string(body) != "ok\n" {
		t.Errorf("healthz = %d %q", resp.StatusCode, body)
	}
	if _, err := uuid.Parse(resp.Header.Get(RequestIDHeader)); err != nil {
		t.Errorf("request id = %q", resp.Header.Get(RequestIDHeader))
	}
}

func TestRequestIDPassthrough(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	id := uuid.NewString()
	req, _ := http.NewRequest(http.MethodGet, env.server.URL+"/healthz", nil)
	req.Header.Set(RequestIDHeader, id)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if got := resp.Header.Get(RequestIDHeader); got != id {
		t.Errorf("request id = %q, want %q", got, id)
	}
}

func TestEvents(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	resp, body := env.get(t, "/api/events")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.StatusCode, body)
	}
	got := decode[eventsResponse](t, body)
	if len(got.Events) != 3 {
		t.Fatalf("got %d events", len(got.Events))
	}
	if got.Events[0].ID != "github:1" || got.Events[0].When != "1h ago" {
		t.Errorf("first event = %+v", got.Events[0])
	}
	if got.Events[1].Lane != activity.RegistryLane || got.Events[1].When != "2h ago" {
		t.Errorf("second event = %+v", got.Events[1])
	}
	if got.Status.Loading || got.Status.GitHub == nil || got.Status.GitHub.Count != 2 {
		t.Errorf("status = %+v", got.Status)
	}

	_, body = env.get(t, "/api/events?limit=1")
	if got := decode[eventsResponse](t, body); len(got.Events) != 1 {
		t.Errorf("limit=1 returned %d events", len(got.Events))
	}
	_, body = env.get(t, "/api/events?kinds=star-given")
	if got := decode[eventsResponse](t, body); len(got.Events) != 1 || got.Events[0].Kind != activity.KindStarGiven {
		t.Errorf("kinds filter returned %+v", got.Events)
	}
}

func TestBadRequests(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	tests := []struct {
		path string
		code errors.Code
	}{
		{"/api/events?limit=abc", errors.ErrCodeInvalidInput},
		{"/api/events?limit=0", errors.ErrCodeInvalidInput},
		{"/api/graph?order=sideways", errors.ErrCodeInvalidOrientation},
		{"/api/graph?max_lanes=-2", errors.ErrCodeInvalidInput},
		{"/api/graph?dates=maybe", errors.ErrCodeInvalidInput},
		{"/api/graph?kinds=dance", errors.ErrCodeInvalidKind},
		{"/api/events?kinds=dance", errors.ErrCodeInvalidKind},
		{"/api/graph.svg?theme=neon", errors.ErrCodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, body := env.get(t, tt.path)
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d", resp.StatusCode)
			}
			got := decode[errorBody](t, body)
			if got.Code != tt.code || got.RequestID == "" {
				t.Errorf("body = %+v, want code %s", got, tt.code)
			}
		})
	}
}

func TestGraph(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	resp, body := env.get(t, "/api/graph?max_lanes=2&dates=false")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.StatusCode, body)
	}
	var got struct {
		Graph struct {
			Lanes []struct{ Label string } `json:"lanes"`
			Rows  []struct{ Kind string }  `json:"rows"`
		} `json:"graph"`
	}
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatal(err)
	}
	if len(got.Graph.Lanes) != 2 || got.Graph.Lanes[0].Label != activity.TrunkLane {
		t.Errorf("lanes = %+v", got.Graph.Lanes)
	}
	if len(got.Graph.Rows) != 3 {
		t.Errorf("rows = %+v", got.Graph.Rows)
	}
}

func TestArtifacts(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	tests := []struct {
		path, contentType, prefix string
	}{
		{"/api/graph.svg", "image/svg+xml", "<svg"},
		{"/api/graph.dot", "text/vnd.graphviz; charset=utf-8", "digraph activity"},
		{"/api/graph.txt", "text/plain; charset=utf-8", "2024-05-10T12:00:00Z – octo/api"},
	}
	for _, tt := range tests {
		resp, body := env.get(t, tt.path)
		if resp.StatusCode != http.StatusOK {
			t.Errorf("%s: status %d: %s", tt.path, resp.StatusCode, body)
			continue
		}
		if got := resp.Header.Get("Content-Type"); got != tt.contentType {
			t.Errorf("%s: Content-Type = %q", tt.path, got)
		}
		if !strings.HasPrefix(string(body), tt.prefix) {
			t.Errorf("%s: body = %.80s", tt.path, body)
		}
	}
}

func TestStatusAndRefresh(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	_, body := env.get(t, "/api/status")
	st := decode[statusResponse](t, body)
	if st.GitHub == nil || st.Npm == nil || st.GitHub.FetchedAt == nil || st.Npm.Count != 1 {
		t.Errorf("status = %+v", st)
	}

	resp, err := http.Post(env.server.URL+"/api/refresh", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("refresh status = %d", resp.StatusCode)
	}
	if env.gh.calls.Load() != 2 || env.npm.calls.Load() != 2 {
		t.Errorf("fetches: github=%d npm=%d, want 2 each", env.gh.calls.Load(), env.npm.calls.Load())
	}

	resp, _ = env.get(t, "/api/refresh")
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("GET /api/refresh = %d", resp.StatusCode)
	}
}

func TestFailedFeedKeepsServing(t *testing.T) {
	env := newTestEnv(t, stderrors.New("rate limited"), nil)
	_, body := env.get(t, "/api/events")
	got := decode[eventsResponse](t, body)
	if got.Status.GitHub.Error != "rate limited" {
		t.Errorf("github status = %+v", got.Status.GitHub)
	}
	if len(got.Events) != 1 || got.Events[0].Source != activity.SourceNpm {
		t.Errorf("events = %+v", got.Events)
	}
}

func TestMetrics(t *testing.T) {
	if resp, _ := newTestEnv(t, nil, nil).get(t, "/metrics"); resp.StatusCode != http.StatusNotFound {
		t.Errorf("/metrics without handler = %d", resp.StatusCode)
	}

	reg := prometheus.NewRegistry()
	prom.New(reg)
	env := newTestEnv(t, nil, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	resp, _ := env.get(t, "/metrics")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("/metrics = %d", resp.StatusCode)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		code errors.Code
		want int
	}{
		{errors.ErrCodeInvalidFormat, http.StatusBadRequest},
		{errors.ErrCodeInvalidIdentity, http.StatusBadRequest},
		{errors.ErrCodeNotFound, http.StatusNotFound},
		{errors.ErrCodeUserNotFound, http.StatusNotFound},
		{errors.ErrCodeRateLimited, http.StatusTooManyRequests},
		{errors.ErrCodeTimeout, http.StatusGatewayTimeout},
		{errors.ErrCodeNetwork, http.StatusBadGateway},
		{errors.ErrCodeUnsupported, http.StatusNotImplemented},
		{errors.ErrCodeInternal, http.StatusInternalServerError},
		{"", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.code); got != tt.want {
			t.Errorf("statusFor(%q) = %d, want %d", tt.code, got, tt.want)
		}
	}
}

func TestWriteErrorRateLimited(t *testing.T) {
	s := New(Config{Logger: log.New(io.Discard)})
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	s.writeError(w, r, &errors.RateLimitedError{RetryAfter: 30})

	if w.Code != http.StatusTooManyRequests || w.Header().Get("Retry-After") != "30" {
		t.Errorf("code = %d, Retry-After = %q", w.Code, w.Header().Get("Retry-After"))
	}
	if got := decode[errorBody](t, w.Body.Bytes()); got.RetryAfter != 30 || got.Code != errors.ErrCodeRateLimited {
		t.Errorf("body = %+v", got)
	}
}
