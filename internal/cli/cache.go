package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/iterenrich/pkg/cache"
	"github.com/matzehuels/iterenrich/pkg/config"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the result cache",
		Long: `Manage the result cache.

Enrichment and iterative results are cached per gene set, library and
parameters. By default they live in ~/.cache/iterenrich; --cache selects a
directory, a Redis server or a MongoDB collection instead. Only directory
caches can be pruned or cleared from here; Redis and MongoDB entries expire
on their own.`,
	}

	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cachePruneCommand())
	cmd.AddCommand(c.cachePathCommand())

	return cmd
}

// cacheClearCommand creates the "cache clear" subcommand.
func (c *CLI) cacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove all cached results",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withFileCache(cmd, func(ctx context.Context, fc *cache.FileCache) error {
				n, err := fc.Clear(ctx)
				if err != nil {
					return err
				}
				printSuccess("Cleared %d cached entries", n)
				printDetail("Directory: %s", fc.Dir())
				return nil
			})
		},
	}
}

// cachePruneCommand creates the "cache prune" subcommand.
func (c *CLI) cachePruneCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Remove expired cached results",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withFileCache(cmd, func(ctx context.Context, fc *cache.FileCache) error {
				n, err := fc.Prune(ctx)
				if err != nil {
					return err
				}
				printSuccess("Pruned %d expired entries", n)
				printDetail("Directory: %s", fc.Dir())
				return nil
			})
		},
	}
}

// cachePathCommand creates the "cache path" subcommand.
func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the cache location",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig(cmd)
			if err != nil {
				return err
			}
			loc, err := cacheLocation(cfg)
			if err != nil {
				return fmt.Errorf("get cache dir: %w", err)
			}
			fmt.Println(loc)
			return nil
		},
	}
}

// withFileCache opens the configured cache and calls fn if it is a
// directory cache.
func (c *CLI) withFileCache(cmd *cobra.Command, fn func(context.Context, *cache.FileCache) error) error {
	cfg, err := c.loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Cache.Disabled {
		printInfo("Cache is disabled")
		return nil
	}
	ctx := cmd.Context()
	cc, err := newCache(ctx, cfg)
	if err != nil {
		return err
	}
	defer cc.Close()

	fc, ok := cc.(*cache.FileCache)
	if !ok {
		loc, _ := cacheLocation(cfg)
		printError("%s is not a directory cache; its entries expire after their TTL", loc)
		return fmt.Errorf("%w: %s", cache.ErrUnsupportedBackend, loc)
	}
	return fn(ctx, fc)
}

// cacheLocation describes where cached results are stored.
func cacheLocation(cfg *config.Config) (string, error) {
	if cfg.Cache.URL != "" {
		return cfg.Cache.URL, nil
	}
	return cacheDir()
}
