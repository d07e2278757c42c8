// Package config loads activitygraph settings from a TOML file and the
// environment.
//
// Precedence, lowest first: [Default], the config file, environment
// variables, command-line flags (applied by the caller).
//
//	[github]
//	user  = "octocat"
//	limit = 30
//
//	[npm]
//	maintainer = "octocat"
//
//	[feed]
//	ttl  = "5m"
//	poll = "1m"
//
//	[layout]
//	max_lanes   = 8
//	orientation = "desc"
//	kinds       = ["push", "release-published"]
//
//	[cache]
//	backend = "redis"
//	url     = "redis://localhost:6379/0"
//
//	[server]
//	addr = ":8080"
package config

import (
	stderrors "errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/activitygraph/pkg/activity"
	"github.com/matzehuels/activitygraph/pkg/cache"
	"github.com/matzehuels/activitygraph/pkg/errors"
	"github.com/matzehuels/activitygraph/pkg/integrations/github"
	"github.com/matzehuels/activitygraph/pkg/integrations/npm"
	"github.com/matzehuels/activitygraph/pkg/lanegraph"
	"github.com/matzehuels/activitygraph/pkg/pipeline"
	"github.com/matzehuels/activitygraph/pkg/render/sink"
)

const appName = "activitygraph"

// Environment variables read by [Config.ApplyEnv].
const (
	EnvGitHubToken   = "GITHUB_TOKEN"
	EnvGitHubUser    = "ACTIVITYGRAPH_GITHUB_USER"
	EnvNpmMaintainer = "ACTIVITYGRAPH_NPM_MAINTAINER"
	EnvCacheBackend  = "ACTIVITYGRAPH_CACHE_BACKEND"
	EnvRedisAddr     = "ACTIVITYGRAPH_REDIS_ADDR"
	EnvMongoURI      = "ACTIVITYGRAPH_MONGO_URI"
	EnvServerAddr    = "ACTIVITYGRAPH_ADDR"
)

type Config struct {
	GitHub GitHub       `toml:"github"`
	Npm    Npm          `toml:"npm"`
	Feed   Feed         `toml:"feed"`
	Layout Layout       `toml:"layout"`
	Cache  cache.Config `toml:"cache"`
	Server Server       `toml:"server"`
}

type GitHub struct {
	User    string `toml:"user"`
	Token   string `toml:"token"`
	Limit   int    `toml:"limit"`
	BaseURL string `toml:"base_url"`
}

type Npm struct {
	Maintainer   string `toml:"maintainer"`
	Limit        int    `toml:"limit"`
	RegistryURL  string `toml:"registry_url"`
	DownloadsURL string `toml:"downloads_url"`
}

// Feed controls freshness. TTL is how long fetched data counts as fresh;
// Poll is how often long-running commands check for staleness.
type Feed struct {
	TTL  time.Duration `toml:"ttl"`
	Poll time.Duration `toml:"poll"`
}

type Layout struct {
	MaxLanes    int      `toml:"max_lanes"`
	Orientation string   `toml:"orientation"`
	NoDates     bool     `toml:"no_dates"`
	Kinds       []string `toml:"kinds"`
	Theme       string   `toml:"theme"`
}

type Server struct {
	Addr           string        `toml:"addr"`
	RequestTimeout time.Duration `toml:"request_timeout"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		GitHub: GitHub{Limit: 30},
		Npm:    Npm{Limit: 20},
		Feed:   Feed{TTL: 5 * time.Minute, Poll: time.Minute},
		Layout: Layout{MaxLanes: lanegraph.DefaultMaxLanes, Orientation: string(lanegraph.Desc), Theme: sink.DarkTheme.Name},
		Cache:  cache.Config{Backend: cache.BackendFile},
		Server: Server{Addr: ":8080", RequestTimeout: 30 * time.Second},
	}
}

// DefaultPath returns $XDG_CONFIG_HOME/activitygraph/config.toml, falling
// back to the platform config directory.
func DefaultPath() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, appName, "config.toml"), nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, appName, "config.toml"), nil
}

// Load reads path over [Default]. An empty path reads [DefaultPath] and
// tolerates its absence; an explicit path must exist. Unknown keys are
// rejected. The environment is not applied.
func Load(path string) (Config, error) {
	cfg := Default()
	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return cfg, nil
		}
		path = p
	}

	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		if !explicit && stderrors.Is(err, fs.ErrNotExist) {
			return Default(), nil
		}
		return Config{}, errors.Wrap(errors.ErrCodeInvalidConfig, err, "read config %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, errors.New(errors.ErrCodeInvalidConfig, "unknown keys in %s: %s", path, strings.Join(keys, ", "))
	}
	return cfg, nil
}

// Parse decodes TOML text over [Default].
func Parse(data string) (Config, error) {
	cfg := Default()
	md, err := toml.Decode(data, &cfg)
	if err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse config")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Config{}, errors.New(errors.ErrCodeInvalidConfig, "unknown key %s", undecoded[0].String())
	}
	return cfg, nil
}

// ApplyEnv overlays the environment variables listed above. getenv is
// usually os.Getenv.
func (c *Config) ApplyEnv(getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	set(&c.GitHub.Token, EnvGitHubToken)
	set(&c.GitHub.User, EnvGitHubUser)
	set(&c.Npm.Maintainer, EnvNpmMaintainer)
	set(&c.Cache.Backend, EnvCacheBackend)
	set(&c.Server.Addr, EnvServerAddr)

	if v := strings.TrimSpace(getenv(EnvRedisAddr)); v != "" {
		c.Cache.Backend = cache.BackendRedis
		c.Cache.URL = v
		if !strings.Contains(v, "://") {
			c.Cache.URL = "redis://" + v
		}
	}
	if v := strings.TrimSpace(getenv(EnvMongoURI)); v != "" {
		c.Cache.Backend = cache.BackendMongo
		c.Cache.URL = v
	}
}

// Validate reports the first invalid setting as an INVALID_CONFIG error.
// Empty identities are allowed; the corresponding feed is disabled.
func (c Config) Validate() error {
	if c.GitHub.User != "" {
		if err := github.ValidateUser(c.GitHub.User); err != nil {
			return invalid(err, "github.user")
		}
	}
	if c.Npm.Maintainer != "" {
		if err := npm.ValidateMaintainer(c.Npm.Maintainer); err != nil {
			return invalid(err, "npm.maintainer")
		}
	}
	if err := errors.ValidateLimit(c.GitHub.Limit, github.MaxPageSize); err != nil {
		return invalid(err, "github.limit")
	}
	if err := errors.ValidateLimit(c.Npm.Limit, npm.MaxPageSize); err != nil {
		return invalid(err, "npm.limit")
	}
	if c.Feed.TTL <= 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "feed.ttl must be positive")
	}
	if c.Feed.Poll < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "feed.poll must not be negative")
	}
	if _, err := activity.ParseKinds(c.Layout.Kinds); err != nil {
		return invalid(err, "layout.kinds")
	}
	if _, err := lanegraph.ParseOrientation(c.Layout.Orientation); err != nil {
		return invalid(err, "layout.orientation")
	}
	if _, err := sink.ParseTheme(c.Layout.Theme); err != nil {
		return invalid(err, "layout.theme")
	}
	backends := []string{"", cache.BackendFile, cache.BackendMemory, cache.BackendRedis, cache.BackendMongo, cache.BackendNone}
	if !slices.Contains(backends, c.Cache.Backend) {
		return errors.New(errors.ErrCodeInvalidConfig, "cache.backend %q is not one of file, memory, redis, mongo, none", c.Cache.Backend)
	}
	if (c.Cache.Backend == cache.BackendRedis || c.Cache.Backend == cache.BackendMongo) && c.Cache.URL == "" {
		return errors.New(errors.ErrCodeInvalidConfig, "cache.url is required for the %s backend", c.Cache.Backend)
	}
	return nil
}

func invalid(err error, field string) error {
	return errors.Wrap(errors.ErrCodeInvalidConfig, err, "%s", field)
}

// PipelineOptions returns the layout and render settings as pipeline options.
func (c Config) PipelineOptions() pipeline.Options {
	return pipeline.Options{
		Kinds:       slices.Clone(c.Layout.Kinds),
		MaxLanes:    c.Layout.MaxLanes,
		Orientation: c.Layout.Orientation,
		NoDates:     c.Layout.NoDates,
		Theme:       c.Layout.Theme,
	}
}
