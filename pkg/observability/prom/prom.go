// Package prom implements observability hooks with Prometheus collectors.
package prom

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/matzehuels/activitygraph/pkg/observability"
)

const namespace = "activitygraph"

// Metrics holds the collectors. It implements every hook interface of
// package observability.
type Metrics struct {
	feedFetches   *prometheus.CounterVec
	feedDuration  *prometheus.HistogramVec
	feedEvents    *prometheus.GaugeVec
	feedServed    *prometheus.CounterVec
	lastSuccessTS *prometheus.GaugeVec
	stageDuration *prometheus.HistogramVec
	graphLanes    prometheus.Gauge
	cacheOps      *prometheus.CounterVec
	cacheBytes    *prometheus.CounterVec
	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		feedFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_fetches_total",
			Help:      "Feed network cycles by provider and result",
		}, []string{"provider", "result"}),
		feedDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "feed_fetch_duration_seconds",
			Help:      "Duration of feed network cycles",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider"}),
		feedEvents: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "feed_items",
			Help:      "Items returned by the last successful fetch",
		}, []string{"provider"}),
		feedServed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_cache_served_total",
			Help:      "Persisted payloads surfaced on start, by freshness",
		}, []string{"provider", "freshness"}),
		lastSuccessTS: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "feed_last_success_timestamp_seconds",
			Help:      "Unix timestamp of the last successful fetch",
		}, []string{"provider"}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_stage_duration_seconds",
			Help:      "Duration of layout and render stages",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
		}, []string{"stage", "result"}),
		graphLanes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "graph_lanes",
			Help:      "Lanes in the last computed graph",
		}),
		cacheOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_operations_total",
			Help:      "Cache lookups and writes by key type",
		}, []string{"key_type", "op"}),
		cacheBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_written_bytes_total",
			Help:      "Bytes written to the cache by key type",
		}, []string{"key_type"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "Upstream HTTP requests by host and status",
		}, []string{"host", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_request_duration_seconds",
			Help:      "Upstream HTTP latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"host"}),
	}
	reg.MustRegister(
		m.feedFetches, m.feedDuration, m.feedEvents, m.feedServed, m.lastSuccessTS,
		m.stageDuration, m.graphLanes,
		m.cacheOps, m.cacheBytes,
		m.httpRequests, m.httpDuration,
	)
	return m
}

// Hooks returns hooks backed by m.
func (m *Metrics) Hooks() *observability.Hooks {
	return &observability.Hooks{Feed: m, Pipeline: m, Cache: m, HTTP: m}
}

func (m *Metrics) OnCacheServe(_ context.Context, provider, _ string, stale bool) {
	freshness := "fresh"
	if stale {
		freshness = "stale"
	}
	m.feedServed.WithLabelValues(provider, freshness).Inc()
}

func (m *Metrics) OnFetchStart(context.Context, string, string, bool) {}

func (m *Metrics) OnFetchComplete(_ context.Context, provider, _ string, count int, d time.Duration, err error) {
	m.feedDuration.WithLabelValues(provider).Observe(d.Seconds())
	if err != nil {
		m.feedFetches.WithLabelValues(provider, "error").Inc()
		return
	}
	m.feedFetches.WithLabelValues(provider, "ok").Inc()
	m.feedEvents.WithLabelValues(provider).Set(float64(count))
	m.lastSuccessTS.WithLabelValues(provider).SetToCurrentTime()
}

func (m *Metrics) OnLayoutStart(context.Context, int) {}

func (m *Metrics) OnLayoutComplete(_ context.Context, lanes, _ int, d time.Duration, err error) {
	m.stageDuration.WithLabelValues("layout", result(err)).Observe(d.Seconds())
	if err == nil {
		m.graphLanes.Set(float64(lanes))
	}
}

func (m *Metrics) OnRenderStart(context.Context, []string) {}

func (m *Metrics) OnRenderComplete(_ context.Context, _ []string, d time.Duration, err error) {
	m.stageDuration.WithLabelValues("render", result(err)).Observe(d.Seconds())
}

func (m *Metrics) OnCacheHit(_ context.Context, keyType string) {
	m.cacheOps.WithLabelValues(keyType, "hit").Inc()
}

func (m *Metrics) OnCacheMiss(_ context.Context, keyType string) {
	m.cacheOps.WithLabelValues(keyType, "miss").Inc()
}

func (m *Metrics) OnCacheSet(_ context.Context, keyType string, size int) {
	m.cacheOps.WithLabelValues(keyType, "set").Inc()
	m.cacheBytes.WithLabelValues(keyType).Add(float64(size))
}

func (m *Metrics) OnRequest(context.Context, string, string, string) {}

func (m *Metrics) OnResponse(_ context.Context, _, host, _ string, status int, d time.Duration) {
	m.httpRequests.WithLabelValues(host, statusClass(status)).Inc()
	m.httpDuration.WithLabelValues(host).Observe(d.Seconds())
}

func (m *Metrics) OnError(_ context.Context, _, host, _ string, err error) {
	label := "error"
	if errors.Is(err, context.DeadlineExceeded) {
		label = "timeout"
	}
	m.httpRequests.WithLabelValues(host, label).Inc()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func statusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}

var (
	_ observability.FeedHooks     = (*Metrics)(nil)
	_ observability.PipelineHooks = (*Metrics)(nil)
	_ observability.CacheHooks    = (*Metrics)(nil)
	_ observability.HTTPHooks     = (*Metrics)(nil)
)
