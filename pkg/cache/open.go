package cache

import (
	"context"
	"fmt"

	"github.com/matzehuels/activitygraph/pkg/errors"
)

// Backend names accepted by [Open].
const (
	BackendFile   = "file"
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendMongo  = "mongo"
	BackendNone   = "none"
)

// Config selects and configures a backend.
type Config struct {
	Backend    string `toml:"backend"`
	Dir        string `toml:"dir"`        // file
	URL        string `toml:"url"`        // redis, mongo
	Prefix     string `toml:"prefix"`     // redis
	Database   string `toml:"database"`   // mongo
	Collection string `toml:"collection"` // mongo
}

// Open builds the configured backend. An empty Backend selects the file
// cache in [DefaultDir] unless Dir is set.
func Open(ctx context.Context, cfg Config) (Cache, error) {
	switch cfg.Backend {
	case "", BackendFile:
		dir := cfg.Dir
		if dir == "" {
			d, err := DefaultDir()
			if err != nil {
				return nil, fmt.Errorf("resolve cache dir: %w", err)
			}
			dir = d
		}
		return NewFileCache(dir)
	case BackendMemory:
		return NewMemoryCache(), nil
	case BackendRedis:
		prefix := cfg.Prefix
		if prefix == "" {
			prefix = "activitygraph:"
		}
		return NewRedisCache(ctx, cfg.URL, prefix)
	case BackendMongo:
		db, coll := cfg.Database, cfg.Collection
		if db == "" {
			db = "activitygraph"
		}
		if coll == "" {
			coll = "cache"
		}
		return NewMongoCache(ctx, cfg.URL, db, coll)
	case BackendNone:
		return NewNullCache(), nil
	default:
		return nil, errors.New(errors.ErrCodeInvalidConfig, "unknown cache backend %q (must be file, memory, redis, mongo or none)", cfg.Backend)
	}
}
