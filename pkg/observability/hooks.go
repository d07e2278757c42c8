// Package observability provides hooks for metrics and tracing.
//
// Instrumentation is optional and carries no dependency on a backend.
// Components receive a [*Hooks] at construction and call it at well-defined
// points; a nil *Hooks or a nil field means no-op. There is no global
// registry: main (or a test) builds one Hooks value and hands it down.
//
// # Usage
//
//	metrics := prom.New(prometheus.DefaultRegisterer)
//	hooks := metrics.Hooks()
//	gh := github.NewClient(c, token, ttl)
//	gh.WithHooks(hooks)
//	f := feed.New(src, feed.Options[activity.Event]{Hooks: hooks})
//
// Components emit events through [Resolve] so nil checks stay in one place:
//
//	h := observability.Resolve(hooks)
//	h.Feed.OnFetchStart(ctx, "github", "octocat", false)
package observability

import (
	"context"
	"time"
)

// FeedHooks receives events from stale-while-revalidate feeds.
type FeedHooks interface {
	// OnCacheServe records that a persisted payload was surfaced. Stale is
	// true when its age exceeded the feed TTL.
	OnCacheServe(ctx context.Context, provider, identity string, stale bool)

	OnFetchStart(ctx context.Context, provider, identity string, forced bool)
	OnFetchComplete(ctx context.Context, provider, identity string, count int, duration time.Duration, err error)
}

// PipelineHooks receives events from the layout and render stages.
type PipelineHooks interface {
	OnLayoutStart(ctx context.Context, eventCount int)
	OnLayoutComplete(ctx context.Context, laneCount, rowCount int, duration time.Duration, err error)

	OnRenderStart(ctx context.Context, formats []string)
	OnRenderComplete(ctx context.Context, formats []string, duration time.Duration, err error)
}

// CacheHooks receives events from cache lookups. keyType is the leading
// segment of the key, e.g. "feed", "layout" or "http".
type CacheHooks interface {
	OnCacheHit(ctx context.Context, keyType string)
	OnCacheMiss(ctx context.Context, keyType string)
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// HTTPHooks receives events from outgoing upstream requests.
type HTTPHooks interface {
	OnRequest(ctx context.Context, method, host, path string)
	OnResponse(ctx context.Context, method, host, path string, statusCode int, duration time.Duration)
	// OnError records a transport failure (no response received).
	OnError(ctx context.Context, method, host, path string, err error)
}

// Hooks bundles the hook sets. Any field may be nil.
type Hooks struct {
	Feed     FeedHooks
	Pipeline PipelineHooks
	Cache    CacheHooks
	HTTP     HTTPHooks
}

// Noop returns hooks that do nothing.
func Noop() *Hooks {
	return &Hooks{
		Feed:     NoopFeedHooks{},
		Pipeline: NoopPipelineHooks{},
		Cache:    NoopCacheHooks{},
		HTTP:     NoopHTTPHooks{},
	}
}

// Resolve returns a copy of h with every nil field replaced by its no-op
// implementation. Resolve(nil) equals [Noop].
func Resolve(h *Hooks) *Hooks {
	out := Noop()
	if h == nil {
		return out
	}
	if h.Feed != nil {
		out.Feed = h.Feed
	}
	if h.Pipeline != nil {
		out.Pipeline = h.Pipeline
	}
	if h.Cache != nil {
		out.Cache = h.Cache
	}
	if h.HTTP != nil {
		out.HTTP = h.HTTP
	}
	return out
}

// NoopFeedHooks is a no-op implementation of FeedHooks.
type NoopFeedHooks struct{}

func (NoopFeedHooks) OnCacheServe(context.Context, string, string, bool)                         {}
func (NoopFeedHooks) OnFetchStart(context.Context, string, string, bool)                         {}
func (NoopFeedHooks) OnFetchComplete(context.Context, string, string, int, time.Duration, error) {}

// NoopPipelineHooks is a no-op implementation of PipelineHooks.
type NoopPipelineHooks struct{}

func (NoopPipelineHooks) OnLayoutStart(context.Context, int)                               {}
func (NoopPipelineHooks) OnLayoutComplete(context.Context, int, int, time.Duration, error) {}
func (NoopPipelineHooks) OnRenderStart(context.Context, []string)                          {}
func (NoopPipelineHooks) OnRenderComplete(context.Context, []string, time.Duration, error) {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopHTTPHooks is a no-op implementation of HTTPHooks.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string, string)                      {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, string, int, time.Duration) {}
func (NoopHTTPHooks) OnError(context.Context, string, string, string, error)                 {}

// KeyType returns the leading segment of a cache key ("feed:github:x" → "feed").
func KeyType(key string) string {
	for i := 0; i < len(key); i++ {
		if key[i] == ':' {
			return key[:i]
		}
	}
	return key
}
