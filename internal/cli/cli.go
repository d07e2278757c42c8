// Package cli implements the activitygraph command-line interface.
//
// # Commands
//
//   - show: print the lane graph to the terminal
//   - render: write SVG, DOT, Graphviz, JSON or text files
//   - status: per-feed freshness table
//   - watch: live full-screen view
//   - serve: HTTP API with Prometheus metrics
//   - cache: clear or locate the cache
//
// # Logging
//
// All commands log through charmbracelet/log to stderr; --verbose (-v)
// enables debug output. The logger travels in the command context so
// helpers can reach it without a CLI receiver.
package cli

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/activitygraph/pkg/activity"
	"github.com/matzehuels/activitygraph/pkg/buildinfo"
	"github.com/matzehuels/activitygraph/pkg/cache"
	"github.com/matzehuels/activitygraph/pkg/config"
	"github.com/matzehuels/activitygraph/pkg/errors"
	"github.com/matzehuels/activitygraph/pkg/feed"
	"github.com/matzehuels/activitygraph/pkg/integrations/github"
	"github.com/matzehuels/activitygraph/pkg/integrations/npm"
	"github.com/matzehuels/activitygraph/pkg/observability"
	"github.com/matzehuels/activitygraph/pkg/pipeline"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = "activitygraph"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// Stdout receives command output. Status lines and logs go to stderr.
	Stdout io.Writer
	Stderr io.Writer

	// Getenv reads the environment overlay of the config.
	Getenv func(string) string
	Now    func() time.Time

	configPath string
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		Stdout: os.Stdout,
		Stderr: w,
		Getenv: os.Getenv,
		Now:    time.Now,
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Activitygraph draws your GitHub and npm activity as a lane graph",
		Long:         `Activitygraph merges a GitHub user's public events and an npm maintainer's package releases into one timeline and lays it out as a commit-graph style lane diagram.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.SetOut(c.Stdout)
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/activitygraph/config.toml)")

	root.AddCommand(c.showCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.statusCommand())
	root.AddCommand(c.watchCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Source Flags
// =============================================================================

// sourceFlags are the identity and layout flags shared by every command
// that fetches activity. Only flags set on the command line override the
// config file.
type sourceFlags struct {
	githubUser    string
	npmMaintainer string
	limit         int
	maxLanes      int
	asc           bool
	noDates       bool
	kinds         []string
	refresh       bool
	noCache       bool
}

func (f *sourceFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.githubUser, "github-user", "", "GitHub user whose public events to show")
	cmd.Flags().StringVar(&f.npmMaintainer, "npm-maintainer", "", "npm maintainer whose packages to show")
	cmd.Flags().IntVar(&f.limit, "limit", 0, "items to fetch per provider")
	cmd.Flags().IntVar(&f.maxLanes, "max-lanes", 0, "maximum number of lanes including the trunk")
	cmd.Flags().BoolVar(&f.asc, "asc", false, "oldest event first")
	cmd.Flags().BoolVar(&f.noDates, "no-dates", false, "omit date header rows")
	cmd.Flags().StringSliceVar(&f.kinds, "kind", nil, "only show these event kinds (repeatable or comma-separated)")
	cmd.Flags().BoolVar(&f.refresh, "refresh", false, "bypass cached data and fetch now")
	cmd.Flags().BoolVar(&f.noCache, "no-cache", false, "disable the persistent cache")
}

// loadBaseConfig reads the config file and overlays the environment.
func (c *CLI) loadBaseConfig() (config.Config, error) {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return cfg, err
	}
	cfg.ApplyEnv(c.Getenv)
	return cfg, cfg.Validate()
}

// loadConfig is [CLI.loadBaseConfig] plus the flags that were set
// explicitly. At least one identity must be configured.
func (c *CLI) loadConfig(cmd *cobra.Command, f *sourceFlags) (config.Config, error) {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return cfg, err
	}
	cfg.ApplyEnv(c.Getenv)

	if f != nil {
		changed := cmd.Flags().Changed
		if changed("github-user") {
			cfg.GitHub.User = f.githubUser
		}
		if changed("npm-maintainer") {
			cfg.Npm.Maintainer = f.npmMaintainer
		}
		if changed("limit") {
			cfg.GitHub.Limit = f.limit
			cfg.Npm.Limit = f.limit
		}
		if changed("max-lanes") {
			cfg.Layout.MaxLanes = f.maxLanes
		}
		if changed("asc") && f.asc {
			cfg.Layout.Orientation = "asc"
		}
		if changed("no-dates") {
			cfg.Layout.NoDates = f.noDates
		}
		if changed("kind") {
			cfg.Layout.Kinds = f.kinds
		}
		if f.noCache {
			cfg.Cache.Backend = cache.BackendNone
		}
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	if cfg.GitHub.User == "" && cfg.Npm.Maintainer == "" {
		return cfg, errors.New(errors.ErrCodeInvalidConfig,
			"no identity configured: pass --github-user or --npm-maintainer, or set them in the config file")
	}
	return cfg, nil
}

// =============================================================================
// App Factory
// =============================================================================

// app bundles what a command needs to fetch and draw activity.
type app struct {
	cfg    config.Config
	cache  cache.Cache
	dash   *feed.Dashboard
	runner *pipeline.Runner
	opts   pipeline.Options
}

// openApp opens the configured cache and builds the feeds and the pipeline
// runner on top of it. onChange, if set, is called after every feed state
// transition.
func (c *CLI) openApp(ctx context.Context, cfg config.Config, hooks *observability.Hooks, onChange func()) (*app, error) {
	store, err := cache.Open(ctx, cfg.Cache)
	if err != nil {
		return nil, err
	}
	kinds, err := activity.ParseKinds(cfg.Layout.Kinds)
	if err != nil {
		store.Close()
		return nil, err
	}

	dash := &feed.Dashboard{}
	if cfg.GitHub.User != "" {
		gh := github.NewClient(store, cfg.GitHub.Token, cfg.Feed.TTL)
		if cfg.GitHub.BaseURL != "" {
			gh.WithBaseURL(cfg.GitHub.BaseURL)
		}
		gh.WithHooks(hooks)
		dash.GitHub = feed.New[activity.Event](feed.GitHubSource{Client: gh}, feed.Options[activity.Event]{
			Identity: cfg.GitHub.User,
			Limit:    cfg.GitHub.Limit,
			TTL:      cfg.Feed.TTL,
			Filter:   feed.KindFilter(kinds),
			Cache:    store,
			Logger:   c.Logger,
			Hooks:    hooks,
			Now:      c.Now,
			OnChange: notify[activity.Event](onChange),
		})
	}
	if cfg.Npm.Maintainer != "" {
		np := npm.NewClient(store, cfg.Feed.TTL).WithBaseURLs(cfg.Npm.RegistryURL, cfg.Npm.DownloadsURL)
		np.WithHooks(hooks)
		dash.Npm = feed.New[activity.Package](feed.NpmSource{Client: np}, feed.Options[activity.Package]{
			Identity: cfg.Npm.Maintainer,
			Limit:    cfg.Npm.Limit,
			TTL:      cfg.Feed.TTL,
			Cache:    store,
			Logger:   c.Logger,
			Hooks:    hooks,
			Now:      c.Now,
			OnChange: notify[activity.Package](onChange),
		})
	}

	opts := cfg.PipelineOptions()
	opts.Logger = c.Logger
	return &app{
		cfg:    cfg,
		cache:  store,
		dash:   dash,
		runner: pipeline.NewRunner(store, nil, c.Logger, hooks),
		opts:   opts,
	}, nil
}

func notify[T any](fn func()) func(feed.State[T]) {
	if fn == nil {
		return nil
	}
	return func(feed.State[T]) { fn() }
}

// start loads the feeds, or forces a network fetch when refresh is set.
func (a *app) start(ctx context.Context, refresh bool) feed.Status {
	if refresh {
		return a.dash.Refresh(ctx)
	}
	return a.dash.Start(ctx)
}

// Close cancels in-flight fetches, waits for them and closes the cache.
func (a *app) Close() error {
	a.dash.Close()
	a.dash.Wait()
	return a.cache.Close()
}

// warnFeedErrors logs the error of every failed feed.
func warnFeedErrors(logger *log.Logger, st feed.Status) {
	for provider, msg := range st.Errors() {
		logger.Warn("feed unavailable", "provider", provider, "error", msg)
	}
}
