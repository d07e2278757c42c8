// Package cache provides the key-value persistence used by activitygraph.
//
// Feeds persist their last good payload here so a restart can show stale
// data immediately, and the pipeline memoizes layouts and rendered
// artifacts. All backends implement [Cache]:
//
//   - [FileCache]: JSON envelopes under the user cache directory (CLI default)
//   - [MemoryCache]: process-local map (tests, one-shot commands)
//   - [RedisCache]: shared cache for several server replicas
//   - [MongoCache]: document store with a TTL index
//   - [NullCache]: caching disabled
//
// Writes are last-writer-wins. A corrupt entry is reported as a miss and
// never surfaces as an error.
//
// Keys are built by a [Keyer] so every component agrees on naming:
//
//	keyer := cache.NewDefaultKeyer()
//	key := keyer.FeedKey("github", "octocat", 30) // feed:github:octocat:30
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key-value store with per-entry expiry.
type Cache interface {
	// Get returns the stored value and true, or false on a miss.
	// Expired and unreadable entries are misses.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl <= 0 keeps the entry until deleted.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Clearer is implemented by backends that can drop every entry they own.
type Clearer interface {
	Clear(ctx context.Context) error
}

// Retention periods for cached entries.
const (
	// TTLFeedRetention bounds how long a feed payload is kept as stale
	// fallback. Freshness is decided by the feed's own TTL, not by expiry.
	TTLFeedRetention = 30 * 24 * time.Hour

	// TTLHTTP applies to raw upstream responses cached by integrations.
	TTLHTTP = 10 * time.Minute

	// TTLLayout applies to memoized lane graphs.
	TTLLayout = 24 * time.Hour

	// TTLArtifact applies to rendered outputs.
	TTLArtifact = 24 * time.Hour
)

// Clear drops every entry of c if the backend supports it.
func Clear(ctx context.Context, c Cache) error {
	if cl, ok := c.(Clearer); ok {
		return cl.Clear(ctx)
	}
	return nil
}
