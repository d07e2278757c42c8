package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/activitygraph/pkg/activity"
	"github.com/matzehuels/activitygraph/pkg/cache"
	"github.com/matzehuels/activitygraph/pkg/errors"
	"github.com/matzehuels/activitygraph/pkg/lanegraph"
	"github.com/matzehuels/activitygraph/pkg/observability"
	"github.com/matzehuels/activitygraph/pkg/render/sink"
)

// Runner encapsulates pipeline execution with caching.
//
// The Runner is stateless except for the cache, logger and hooks. Multiple
// goroutines can safely use the same Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
	Hooks  *observability.Hooks
}

// NewRunner creates a runner. A nil keyer uses [cache.DefaultKeyer], a nil
// cache disables caching and nil hooks are no-ops.
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger, hooks *observability.Hooks) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
		Hooks:  observability.Resolve(hooks),
	}
}

// Execute runs the complete aggregate → layout → render pipeline.
func (r *Runner) Execute(ctx context.Context, snap Snapshot, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	r.applyLogger(&opts)

	result := &Result{Artifacts: make(map[string][]byte)}

	// Stage 1: Aggregate
	events, err := r.Aggregate(snap, opts)
	if err != nil {
		return nil, fmt.Errorf("aggregate: %w", err)
	}
	result.Events = events
	result.Stats.EventCount = len(result.Events)

	// Stage 2: Layout
	layoutStart := time.Now()
	g, layoutHit, err := r.LayoutWithCacheInfo(ctx, result.Events, opts)
	if err != nil {
		return nil, fmt.Errorf("layout: %w", err)
	}
	result.Graph = g
	result.Stats.LayoutTime = time.Since(layoutStart)
	result.Stats.LaneCount = len(g.Lanes)
	result.Stats.RowCount = len(g.Rows)
	result.CacheInfo.LayoutHit = layoutHit
	result.EventsHash, _ = cache.HashJSON(result.Events)

	opts.Logger.Debug("computed layout",
		"events", result.Stats.EventCount,
		"lanes", result.Stats.LaneCount,
		"cached", layoutHit,
		"duration", result.Stats.LayoutTime)

	// Stage 3: Render
	renderStart := time.Now()
	artifacts, renderHit, err := r.RenderWithCacheInfo(ctx, g, snap.Now, opts)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	result.Artifacts = artifacts
	result.Stats.RenderTime = time.Since(renderStart)
	result.CacheInfo.RenderHit = renderHit

	opts.Logger.Debug("rendered outputs",
		"formats", opts.Formats,
		"cached", renderHit,
		"duration", result.Stats.RenderTime)

	return result, nil
}

// Aggregate merges the snapshot into one newest-first event list and keeps
// only the requested kinds. Invalid options are reported as coded errors.
func (r *Runner) Aggregate(snap Snapshot, opts Options) ([]activity.Event, error) {
	if err := opts.ValidateForLayout(); err != nil {
		return nil, err
	}
	events := activity.Aggregate(snap.Events, snap.Packages, snap.Now)
	return activity.FilterKinds(events, opts.kinds), nil
}

// LayoutWithCacheInfo builds the lane graph of events with caching and
// returns cache hit info.
func (r *Runner) LayoutWithCacheInfo(ctx context.Context, events []activity.Event, opts Options) (*lanegraph.Graph, bool, error) {
	if err := opts.ValidateForLayout(); err != nil {
		return nil, false, err
	}
	r.applyLogger(&opts)

	start := time.Now()
	r.Hooks.Pipeline.OnLayoutStart(ctx, len(events))

	eventsHash, err := cache.HashJSON(events)
	if err != nil {
		err = errors.Wrap(errors.ErrCodeInternal, err, "hash events")
		r.Hooks.Pipeline.OnLayoutComplete(ctx, 0, 0, time.Since(start), err)
		return nil, false, err
	}
	cacheKey := r.Keyer.LayoutKey(eventsHash, opts.LayoutKeyOpts())

	// Try cache first
	if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
		if g, err := lanegraph.UnmarshalGraph(data); err == nil {
			r.Hooks.Cache.OnCacheHit(ctx, "layout")
			r.Hooks.Pipeline.OnLayoutComplete(ctx, len(g.Lanes), len(g.Rows), time.Since(start), nil)
			return g, true, nil
		}
		// unreadable entries are recomputed and overwritten
	}
	r.Hooks.Cache.OnCacheMiss(ctx, "layout")

	g := lanegraph.Build(events, opts.LayoutOptions())

	if data, err := lanegraph.MarshalGraph(g); err == nil {
		if err := r.Cache.Set(ctx, cacheKey, data, cache.TTLLayout); err != nil {
			opts.Logger.Warn("layout cache write failed", "error", err)
		} else {
			r.Hooks.Cache.OnCacheSet(ctx, "layout", len(data))
		}
	}

	r.Hooks.Pipeline.OnLayoutComplete(ctx, len(g.Lanes), len(g.Rows), time.Since(start), nil)
	return g, false, nil
}

// Layout is a convenience wrapper that calls LayoutWithCacheInfo and
// discards the cache hit info.
func (r *Runner) Layout(ctx context.Context, events []activity.Event, opts Options) (*lanegraph.Graph, error) {
	g, _, err := r.LayoutWithCacheInfo(ctx, events, opts)
	return g, err
}

// RenderWithCacheInfo generates artifacts with caching and returns cache
// hit info. now is the reference time for relative captions.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, g *lanegraph.Graph, now time.Time, opts Options) (map[string][]byte, bool, error) {
	if err := opts.ValidateForRender(); err != nil {
		return nil, false, err
	}
	r.applyLogger(&opts)

	start := time.Now()
	r.Hooks.Pipeline.OnRenderStart(ctx, opts.Formats)

	layoutData, err := lanegraph.MarshalGraph(g)
	if err != nil {
		err = errors.Wrap(errors.ErrCodeInternal, err, "serialize layout for cache key")
		r.Hooks.Pipeline.OnRenderComplete(ctx, opts.Formats, time.Since(start), err)
		return nil, false, err
	}
	layoutHash := cache.Hash(layoutData)

	// Try to get all formats from cache
	artifacts := make(map[string][]byte, len(opts.Formats))
	allCached := true
	for _, format := range opts.Formats {
		key := r.Keyer.ArtifactKey(layoutHash, opts.ArtifactKeyOpts(format, now))
		if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
			artifacts[format] = data
			continue
		}
		allCached = false
		break
	}
	if allCached {
		r.Hooks.Cache.OnCacheHit(ctx, "artifact")
		r.Hooks.Pipeline.OnRenderComplete(ctx, opts.Formats, time.Since(start), nil)
		return artifacts, true, nil
	}
	r.Hooks.Cache.OnCacheMiss(ctx, "artifact")

	rendered, err := Render(ctx, g, now, opts)
	if err != nil {
		r.Hooks.Pipeline.OnRenderComplete(ctx, opts.Formats, time.Since(start), err)
		return nil, false, err
	}

	// Cache each format
	for format, data := range rendered {
		key := r.Keyer.ArtifactKey(layoutHash, opts.ArtifactKeyOpts(format, now))
		if err := r.Cache.Set(ctx, key, data, cache.TTLArtifact); err == nil {
			r.Hooks.Cache.OnCacheSet(ctx, "artifact", len(data))
		}
	}

	r.Hooks.Pipeline.OnRenderComplete(ctx, opts.Formats, time.Since(start), nil)
	return rendered, false, nil
}

// Render is a convenience wrapper that calls RenderWithCacheInfo and
// discards the cache hit info.
func (r *Runner) Render(ctx context.Context, g *lanegraph.Graph, now time.Time, opts Options) (map[string][]byte, error) {
	artifacts, _, err := r.RenderWithCacheInfo(ctx, g, now, opts)
	return artifacts, err
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}

// Render generates artifacts in the requested formats without caching.
func Render(ctx context.Context, g *lanegraph.Graph, now time.Time, opts Options) (map[string][]byte, error) {
	if err := opts.ValidateForRender(); err != nil {
		return nil, err
	}
	artifacts := make(map[string][]byte, len(opts.Formats))

	for _, format := range opts.Formats {
		var data []byte
		var err error

		switch format {
		case FormatSVG:
			data = sink.RenderSVG(g,
				sink.WithTheme(opts.theme),
				sink.WithNow(now),
				sink.WithTextWidth(float64(opts.TextWidth)),
				sink.WithTitle(opts.title()))
		case FormatDOT:
			data = []byte(sink.ToDOT(g))
		case FormatGraphviz:
			data, err = sink.RenderGraphviz(ctx, sink.ToDOT(g))
		case FormatJSON:
			data, err = sink.RenderJSON(g)
		case FormatText:
			data = sink.RenderTranscript(g)
		case FormatTerminal:
			var buf bytes.Buffer
			err = sink.RenderText(&buf, g, sink.TextOptions{Now: now, ForceColor: true})
			data = buf.Bytes()
		default:
			return nil, errors.New(errors.ErrCodeInvalidFormat, "unsupported format: %s", format)
		}

		if err != nil {
			return nil, fmt.Errorf("render %s: %w", format, err)
		}
		artifacts[format] = data
	}

	return artifacts, nil
}

func (o *Options) title() string {
	if o.Title != "" {
		return o.Title
	}
	return "Activity"
}
