package feed

import (
	"context"
	"encoding/json"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"

	"github.com/matzehuels/activitygraph/pkg/cache"
	"github.com/matzehuels/activitygraph/pkg/observability"
)

// DefaultTTL is the freshness window used when Options.TTL is not positive.
const DefaultTTL = 5 * time.Minute

// Query is what a Fetcher is asked for on each network cycle.
type Query struct {
	Identity string
	Limit    int
	Force    bool // set for Refresh: upstream caches must be bypassed
}

// Fetcher performs one network round trip for a provider.
type Fetcher[T any] interface {
	// Name is the provider name used in cache keys, logs and metrics.
	Name() string
	Fetch(ctx context.Context, q Query) ([]T, error)
}

// Options configures a Feed.
type Options[T any] struct {
	Identity string
	Limit    int
	TTL      time.Duration

	// Filter, if set, hides items from State. The persisted payload is
	// always unfiltered.
	Filter func(T) bool

	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
	Hooks  *observability.Hooks
	Now    func() time.Time

	// OnChange is called after every state transition, outside any lock.
	OnChange func(State[T])
}

// State is the observable result of a feed.
type State[T any] struct {
	Items     []T       `json:"items"`
	Loading   bool      `json:"loading"`
	Err       string    `json:"error,omitempty"`
	FetchedAt time.Time `json:"fetched_at,omitzero"`
	FromCache bool      `json:"from_cache"`
}

// envelope is the persisted payload.
type envelope[T any] struct {
	Items     []T       `json:"items"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Feed is a stale-while-revalidate view of one provider for one identity.
// At most one network cycle runs at a time; concurrent requests for a
// cycle share its result. Feed is safe for concurrent use.
type Feed[T any] struct {
	src   Fetcher[T]
	opts  Options[T]
	key   string
	hooks *observability.Hooks

	mu     sync.Mutex
	state  State[T]
	closed bool

	group  singleflight.Group
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a feed. Nothing is read or fetched until [Feed.Start].
func New[T any](src Fetcher[T], opts Options[T]) *Feed[T] {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.Cache == nil {
		opts.Cache = cache.NewNullCache()
	}
	if opts.Keyer == nil {
		opts.Keyer = cache.NewDefaultKeyer()
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Feed[T]{
		src:    src,
		opts:   opts,
		key:    opts.Keyer.FeedKey(src.Name(), opts.Identity, opts.Limit),
		hooks:  observability.Resolve(opts.Hooks),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Name returns the provider name.
func (f *Feed[T]) Name() string { return f.src.Name() }

// Key returns the cache key of the persisted payload.
func (f *Feed[T]) Key() string { return f.key }

// Start surfaces the persisted payload if there is one:
//
//   - fresh (age <= TTL): returned as is, no request is made
//   - stale: returned with Loading set while one background fetch runs
//   - absent or unreadable: a fetch runs before Start returns
//
// A failed fetch is reported in State.Err; Start never returns an error.
func (f *Feed[T]) Start(ctx context.Context) State[T] {
	env, ok := f.load(ctx)
	if !ok {
		return f.cycle(ctx, false)
	}

	stale := f.opts.Now().Sub(env.FetchedAt) > f.opts.TTL
	f.hooks.Feed.OnCacheServe(ctx, f.src.Name(), f.opts.Identity, stale)
	f.opts.Logger.Debug("serving cached feed", "provider", f.src.Name(), "identity", f.opts.Identity,
		"age", f.opts.Now().Sub(env.FetchedAt).Round(time.Second), "stale", stale)

	st := f.update(func(s *State[T]) {
		s.Items = f.filter(env.Items)
		s.FetchedAt = env.FetchedAt
		s.FromCache = true
		s.Err = ""
		s.Loading = stale
	})
	if stale {
		f.background()
	}
	return st
}

// Refresh forces a network round trip, bypassing every freshness check.
// If a cycle is already running, Refresh waits for it and returns its
// result instead of starting another. A feed that was never started is
// first seeded from the persisted payload, so a failed round trip still
// reports the last good items.
func (f *Feed[T]) Refresh(ctx context.Context) State[T] {
	f.mu.Lock()
	empty := f.state.FetchedAt.IsZero()
	f.mu.Unlock()
	if empty {
		if env, ok := f.load(ctx); ok {
			f.update(func(s *State[T]) {
				if !s.FetchedAt.IsZero() {
					return
				}
				s.Items = f.filter(env.Items)
				s.FetchedAt = env.FetchedAt
				s.FromCache = true
			})
		}
	}
	return f.cycle(ctx, true)
}

// Revalidate starts a background fetch if the current data is older than
// the TTL (or there is none) and no fetch is running. It reports whether
// a fetch was started.
func (f *Feed[T]) Revalidate() bool {
	f.mu.Lock()
	fresh := !f.state.FetchedAt.IsZero() && f.opts.Now().Sub(f.state.FetchedAt) <= f.opts.TTL
	busy := f.state.Loading
	f.mu.Unlock()
	if fresh || busy {
		return false
	}
	f.update(func(s *State[T]) { s.Loading = true })
	return f.background()
}

// Poll calls [Feed.Revalidate] every interval until ctx is done or the
// feed is closed.
func (f *Feed[T]) Poll(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-f.ctx.Done():
			return
		case <-t.C:
			f.Revalidate()
		}
	}
}

// State returns a snapshot of the current state.
func (f *Feed[T]) State() State[T] {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshot()
}

// Close cancels background work. Results that arrive afterwards are
// discarded. Close is idempotent.
func (f *Feed[T]) Close() {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	f.cancel()
}

// Wait blocks until background fetches have finished.
func (f *Feed[T]) Wait() { f.wg.Wait() }

func (f *Feed[T]) background() bool {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return false
	}
	f.wg.Add(1)
	f.mu.Unlock()

	go func() {
		defer f.wg.Done()
		f.cycle(f.ctx, false)
	}()
	return true
}

// cycle runs a network round trip, sharing it with any concurrent caller.
func (f *Feed[T]) cycle(ctx context.Context, force bool) State[T] {
	ch := f.group.DoChan("fetch", func() (any, error) {
		return f.fetch(ctx, force), nil
	})
	select {
	case res := <-ch:
		return res.Val.(State[T])
	case <-ctx.Done():
		return f.State()
	}
}

func (f *Feed[T]) fetch(ctx context.Context, force bool) State[T] {
	provider, identity := f.src.Name(), f.opts.Identity
	f.update(func(s *State[T]) { s.Loading = true })
	f.hooks.Feed.OnFetchStart(ctx, provider, identity, force)

	start := time.Now()
	items, err := f.src.Fetch(ctx, Query{Identity: identity, Limit: f.opts.Limit, Force: force})
	f.hooks.Feed.OnFetchComplete(ctx, provider, identity, len(items), time.Since(start), err)

	if f.isClosed() {
		return f.State()
	}

	if err != nil {
		f.opts.Logger.Warn("feed fetch failed", "provider", provider, "identity", identity, "error", err)
		return f.update(func(s *State[T]) {
			s.Loading = false
			s.Err = err.Error()
		})
	}

	now := f.opts.Now()
	f.store(ctx, envelope[T]{Items: items, FetchedAt: now})
	f.opts.Logger.Debug("feed fetched", "provider", provider, "identity", identity,
		"items", len(items), "duration", time.Since(start).Round(time.Millisecond))

	return f.update(func(s *State[T]) {
		s.Items = f.filter(items)
		s.FetchedAt = now
		s.FromCache = false
		s.Loading = false
		s.Err = ""
	})
}

// load reads the persisted payload. Unreadable payloads are deleted and
// reported as absent.
func (f *Feed[T]) load(ctx context.Context) (envelope[T], bool) {
	var env envelope[T]
	data, hit, err := f.opts.Cache.Get(ctx, f.key)
	if err != nil || !hit {
		f.hooks.Cache.OnCacheMiss(ctx, "feed")
		if err != nil {
			f.opts.Logger.Warn("feed cache read failed", "key", f.key, "error", err)
		}
		return env, false
	}
	if err := json.Unmarshal(data, &env); err != nil || env.FetchedAt.IsZero() {
		f.opts.Logger.Warn("discarding unreadable feed cache entry", "key", f.key)
		_ = f.opts.Cache.Delete(ctx, f.key)
		f.hooks.Cache.OnCacheMiss(ctx, "feed")
		return envelope[T]{}, false
	}
	f.hooks.Cache.OnCacheHit(ctx, "feed")
	return env, true
}

func (f *Feed[T]) store(ctx context.Context, env envelope[T]) {
	data, err := json.Marshal(env)
	if err != nil {
		f.opts.Logger.Warn("feed payload not serializable", "key", f.key, "error", err)
		return
	}
	if err := f.opts.Cache.Set(ctx, f.key, data, cache.TTLFeedRetention); err != nil {
		f.opts.Logger.Warn("feed cache write failed", "key", f.key, "error", err)
		return
	}
	f.hooks.Cache.OnCacheSet(ctx, "feed", len(data))
}

// update applies fn under the lock and notifies OnChange. Updates after
// Close are dropped.
func (f *Feed[T]) update(fn func(*State[T])) State[T] {
	f.mu.Lock()
	if f.closed {
		st := f.snapshot()
		f.mu.Unlock()
		return st
	}
	fn(&f.state)
	st := f.snapshot()
	f.mu.Unlock()

	if f.opts.OnChange != nil {
		f.opts.OnChange(st)
	}
	return st
}

func (f *Feed[T]) snapshot() State[T] {
	st := f.state
	st.Items = slices.Clone(f.state.Items)
	return st
}

func (f *Feed[T]) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *Feed[T]) filter(items []T) []T {
	if f.opts.Filter == nil {
		return slices.Clone(items)
	}
	out := make([]T, 0, len(items))
	for _, it := range items {
		if f.opts.Filter(it) {
			out = append(out, it)
		}
	}
	return out
}
