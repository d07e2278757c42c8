package prom

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsRecordHooks(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	h := m.Hooks()
	ctx := context.Background()

	h.Feed.OnFetchComplete(ctx, "github", "octocat", 30, time.Second, nil)
	h.Feed.OnFetchComplete(ctx, "npm", "sindre", 0, time.Second, errors.New("boom"))
	h.Feed.OnCacheServe(ctx, "github", "octocat", true)
	h.Cache.OnCacheHit(ctx, "feed")
	h.Cache.OnCacheSet(ctx, "layout", 512)
	h.HTTP.OnResponse(ctx, "GET", "api.github.com", "/x", 503, time.Millisecond)
	h.Pipeline.OnLayoutComplete(ctx, 5, 20, time.Millisecond, nil)

	if got := testutil.ToFloat64(m.feedFetches.WithLabelValues("github", "ok")); got != 1 {
		t.Errorf("github ok fetches = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.feedFetches.WithLabelValues("npm", "error")); got != 1 {
		t.Errorf("npm error fetches = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.feedEvents.WithLabelValues("github")); got != 30 {
		t.Errorf("github items = %v, want 30", got)
	}
	if got := testutil.ToFloat64(m.feedServed.WithLabelValues("github", "stale")); got != 1 {
		t.Errorf("stale serves = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.cacheBytes.WithLabelValues("layout")); got != 512 {
		t.Errorf("layout bytes = %v, want 512", got)
	}
	if got := testutil.ToFloat64(m.httpRequests.WithLabelValues("api.github.com", "5xx")); got != 1 {
		t.Errorf("5xx requests = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.graphLanes); got != 5 {
		t.Errorf("graph lanes = %v, want 5", got)
	}
}

func TestMetricsExposition(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.OnCacheMiss(context.Background(), "feed")

	expected := `
# HELP activitygraph_cache_operations_total Cache lookups and writes by key type
# TYPE activitygraph_cache_operations_total counter
activitygraph_cache_operations_total{key_type="feed",op="miss"} 1
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "activitygraph_cache_operations_total"); err != nil {
		t.Error(err)
	}
}

func TestStatusClass(t *testing.T) {
	tests := map[int]string{200: "2xx", 304: "3xx", 404: "4xx", 429: "4xx", 502: "5xx"}
	for code, want := range tests {
		if got := statusClass(code); got != want {
			t.Errorf("statusClass(%d) = %s, want %s", code, got, want)
		}
	}
}
