// Package pipeline runs the aggregate → layout → render pipeline shared by
// the CLI and the HTTP API.
//
// # Architecture
//
// The pipeline consists of three stages:
//
//  1. Aggregate: merge feed snapshots into one newest-first event list
//  2. Layout: build a [lanegraph.Graph] from the events
//  3. Render: produce artifacts (SVG, DOT, Graphviz SVG, JSON, text)
//
// Layouts and artifacts are memoized in a [cache.Cache] keyed by content
// hash, so repeated requests for unchanged activity cost nothing.
//
// # Usage
//
//	runner := pipeline.NewRunner(c, nil, logger, nil)
//	result, err := runner.Execute(ctx, pipeline.Snapshot{Events: events, Packages: pkgs, Now: now},
//		pipeline.Options{Formats: []string{"svg"}})
//	svg := result.Artifacts["svg"]
package pipeline

import (
	"io"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/activitygraph/pkg/activity"
	"github.com/matzehuels/activitygraph/pkg/cache"
	"github.com/matzehuels/activitygraph/pkg/errors"
	"github.com/matzehuels/activitygraph/pkg/feed"
	"github.com/matzehuels/activitygraph/pkg/lanegraph"
	"github.com/matzehuels/activitygraph/pkg/render/sink"
)

// Format constants for output formats.
const (
	FormatSVG      = "svg"
	FormatDOT      = "dot"
	FormatGraphviz = "graphviz"
	FormatJSON     = "json"
	FormatText     = "txt"
	FormatTerminal = "term"
)

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatSVG:      true,
	FormatDOT:      true,
	FormatGraphviz: true,
	FormatJSON:     true,
	FormatText:     true,
	FormatTerminal: true,
}

// Snapshot is the input of a pipeline run.
type Snapshot struct {
	Events   []activity.Event
	Packages []activity.Package
	Now      time.Time
}

// SnapshotFromStatus captures the current items of both feeds.
func SnapshotFromStatus(s feed.Status, now time.Time) Snapshot {
	return Snapshot{Events: s.GitHub.Items, Packages: s.Npm.Items, Now: now}
}

// Options contains all configuration for the pipeline.
// This struct supports JSON serialization for API requests.
type Options struct {
	// Aggregate options
	Kinds []string `json:"kinds,omitempty"`

	// Layout options
	MaxLanes    int    `json:"max_lanes,omitempty"`
	Orientation string `json:"orientation,omitempty"`
	NoDates     bool   `json:"no_dates,omitempty"`

	// Render options
	Formats   []string `json:"formats,omitempty"`
	Theme     string   `json:"theme,omitempty"`
	TextWidth int      `json:"text_width,omitempty"`
	Title     string   `json:"title,omitempty"`

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`

	kinds       []activity.Kind
	orientation lanegraph.Orientation
	theme       sink.Theme
	validated   bool
}

// Result contains the outputs of a pipeline run.
type Result struct {
	Events     []activity.Event
	EventsHash string
	Graph      *lanegraph.Graph
	Artifacts  map[string][]byte
	Stats      Stats
	CacheInfo  CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	EventCount int
	LaneCount  int
	RowCount   int
	LayoutTime time.Duration
	RenderTime time.Duration
}

// CacheInfo tracks cache hits for each pipeline stage.
type CacheInfo struct {
	LayoutHit bool // Whether the layout came from cache
	RenderHit bool // Whether all artifacts came from cache
}

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return errors.New(errors.ErrCodeInvalidFormat,
			"invalid format: %q (must be one of: %s)", format, strings.Join(formatNames(), ", "))
	}
	return nil
}

// ValidateFormats checks that all formats are valid.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

func formatNames() []string {
	names := make([]string, 0, len(ValidFormats))
	for f := range ValidFormats {
		names = append(names, f)
	}
	slices.Sort(names)
	return names
}

// ValidateAndSetDefaults checks every field and applies defaults. It is
// idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if err := o.ValidateForLayout(); err != nil {
		return err
	}
	if err := o.ValidateForRender(); err != nil {
		return err
	}
	o.validated = true
	return nil
}

// ValidateForLayout validates the aggregate and layout fields.
func (o *Options) ValidateForLayout() error {
	kinds, err := activity.ParseKinds(o.Kinds)
	if err != nil {
		return err
	}
	o.kinds = kinds

	orientation, err := lanegraph.ParseOrientation(o.Orientation)
	if err != nil {
		return err
	}
	o.orientation = orientation
	o.Orientation = string(orientation)

	if o.MaxLanes <= 0 {
		o.MaxLanes = lanegraph.DefaultMaxLanes
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return nil
}

// ValidateForRender validates the render fields and applies defaults.
func (o *Options) ValidateForRender() error {
	if len(o.Formats) == 0 {
		o.Formats = []string{FormatSVG}
	}
	if err := ValidateFormats(o.Formats); err != nil {
		return err
	}
	theme, err := sink.ParseTheme(o.Theme)
	if err != nil {
		return err
	}
	o.theme = theme
	o.Theme = theme.Name
	if o.TextWidth < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "text_width must not be negative")
	}
	if o.TextWidth == 0 {
		o.TextWidth = sink.DefaultTextWidth
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return nil
}

// LayoutOptions returns the lanegraph options for the layout stage.
func (o *Options) LayoutOptions() lanegraph.Options {
	opts := lanegraph.DefaultOptions()
	opts.MaxLanes = o.MaxLanes
	opts.Orientation = o.orientation
	opts.DateHeaders = !o.NoDates
	return opts
}

// LayoutKeyOpts returns cache key options for layout computation.
func (o *Options) LayoutKeyOpts() cache.LayoutKeyOpts {
	return cache.LayoutKeyOpts{
		MaxLanes:    o.MaxLanes,
		Orientation: string(o.orientation),
		DateHeaders: !o.NoDates,
	}
}

// ArtifactKeyOpts returns cache key options for artifact rendering.
// Formats with relative captions are keyed by the minute of now.
func (o *Options) ArtifactKeyOpts(format string, now time.Time) cache.ArtifactKeyOpts {
	k := cache.ArtifactKeyOpts{Format: format, Theme: o.Theme, Width: o.TextWidth}
	if hasCaptions(format) && !now.IsZero() {
		k.Clock = now.UTC().Truncate(time.Minute).Format(time.RFC3339)
	}
	if format == FormatSVG {
		k.Theme += "|" + o.Title
	}
	return k
}

func hasCaptions(format string) bool {
	return format == FormatSVG || format == FormatTerminal
}
