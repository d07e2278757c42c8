package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/activitygraph/pkg/cache"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the feed, HTTP and render cache",
	}

	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cachePathCommand())

	return cmd
}

// cacheClearCommand creates the "cache clear" subcommand.
func (c *CLI) cacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Drop every cached entry of the configured backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadBaseConfig()
			if err != nil {
				return err
			}
			if cfg.Cache.Backend == cache.BackendNone {
				printInfo(c.Stderr, "Caching is disabled")
				return nil
			}

			store, err := cache.Open(cmd.Context(), cfg.Cache)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := cache.Clear(cmd.Context(), store); err != nil {
				return fmt.Errorf("clear cache: %w", err)
			}
			printSuccess(c.Stderr, "Cleared cache")
			printDetail(c.Stderr, "Backend: %s", backendName(cfg.Cache))
			return nil
		},
	}
}

// cachePathCommand creates the "cache path" subcommand.
func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the cache directory path",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadBaseConfig()
			if err != nil {
				return err
			}
			if b := cfg.Cache.Backend; b != "" && b != cache.BackendFile {
				printWarning(c.Stderr, "The %s backend has no local directory", b)
				return nil
			}
			dir, err := cacheDir(cfg.Cache)
			if err != nil {
				return fmt.Errorf("get cache dir: %w", err)
			}
			fmt.Fprintln(c.Stdout, dir)
			return nil
		},
	}
}

// cacheDir returns the directory of the file backend.
func cacheDir(cfg cache.Config) (string, error) {
	if cfg.Dir != "" {
		return cfg.Dir, nil
	}
	return cache.DefaultDir()
}

func backendName(cfg cache.Config) string {
	if cfg.Backend == "" {
		return cache.BackendFile
	}
	return cfg.Backend
}
