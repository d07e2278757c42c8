package cache

import (
	"strconv"
	"strings"
)

// Keyer builds cache keys for every cached concern.
type Keyer interface {
	// HTTPKey names a raw upstream response.
	HTTPKey(namespace, key string) string

	// FeedKey names the persisted payload of a feed, keyed by provider,
	// identity and page size.
	FeedKey(provider, identity string, limit int) string

	// LayoutKey names a lane graph computed from an event list.
	LayoutKey(eventsHash string, opts LayoutKeyOpts) string

	// ArtifactKey names a rendered output of a lane graph.
	ArtifactKey(layoutHash string, opts ArtifactKeyOpts) string
}

// LayoutKeyOpts are the layout parameters that change a lane graph.
type LayoutKeyOpts struct {
	MaxLanes    int    `json:"max_lanes"`
	Orientation string `json:"orientation"`
	DateHeaders bool   `json:"date_headers"`
}

// ArtifactKeyOpts are the render parameters that change an artifact.
type ArtifactKeyOpts struct {
	Format string `json:"format"`
	Theme  string `json:"theme,omitempty"`
	Width  int    `json:"width,omitempty"`
	// Clock is the caption reference time at minute precision; artifacts
	// with relative captions go stale as it advances.
	Clock string `json:"clock,omitempty"`
}

// DefaultKeyer produces unscoped keys.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the standard keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// HTTPKey returns "http:<namespace>:<key>".
func (DefaultKeyer) HTTPKey(namespace, key string) string {
	return "http:" + namespace + ":" + key
}

// FeedKey returns "feed:<provider>:<identity>:<limit>". The identity is
// lower-cased since both providers treat names case-insensitively.
func (DefaultKeyer) FeedKey(provider, identity string, limit int) string {
	return "feed:" + provider + ":" + strings.ToLower(identity) + ":" + strconv.Itoa(limit)
}

// LayoutKey hashes the events hash together with opts.
func (DefaultKeyer) LayoutKey(eventsHash string, opts LayoutKeyOpts) string {
	return hashKey("layout", eventsHash, opts)
}

// ArtifactKey hashes the layout hash together with opts.
func (DefaultKeyer) ArtifactKey(layoutHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", layoutHash, opts)
}

var _ Keyer = DefaultKeyer{}
