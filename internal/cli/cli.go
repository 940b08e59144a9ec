// Package cli implements the iterenrich command-line interface.
//
// # Commands
//
// The main commands are:
//   - enrich: single-pass enrichment of gene sets against libraries
//   - iterate: iterative enrichment that peels off significant terms
//   - serve: the HTTP API
//   - catalog: manage named libraries and backgrounds
//   - cache: manage the result cache
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging; otherwise
// the configured log level applies. Loggers are passed through
// context.Context so every command logs the same way.
package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/iterenrich/pkg/buildinfo"
	"github.com/matzehuels/iterenrich/pkg/cache"
	"github.com/matzehuels/iterenrich/pkg/catalog"
	"github.com/matzehuels/iterenrich/pkg/config"
	"github.com/matzehuels/iterenrich/pkg/pipeline"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "iterenrich"

	// catalogFile is the catalog file name inside the config directory.
	catalogFile = "catalog.toml"
)

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

	configPath string
	verbose    bool
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "iterenrich runs regular and iterative gene set enrichment",
		Long: `iterenrich tests a gene set against libraries of annotated terms.

Regular enrichment ranks every term by its p-value. Iterative enrichment
repeatedly removes the genes of the most significant term and re-tests the
rest, exposing signals that the strongest term would otherwise mask.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if c.verbose {
				c.SetLogLevel(LogDebug)
			}
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
		},
	}

	root.SetVersionTemplate(buildinfo.Template())

	pf := root.PersistentFlags()
	pf.StringVar(&c.configPath, "config", "", "config file (toml, yaml or json)")
	pf.BoolVarP(&c.verbose, "verbose", "v", false, "enable verbose logging")
	pf.String("log-level", config.DefaultLogLevel, "log level: debug, info, warn, error")
	pf.String("catalog", "", "library catalog file (default "+defaultCatalogPath()+")")
	pf.String("cache", "", "result cache: directory, file://, redis:// or mongodb:// URL")
	pf.Duration("cache-ttl", config.DefaultCacheTTL, "lifetime of cached results")
	pf.Bool("no-cache", false, "disable the result cache")

	// Register all subcommands
	root.AddCommand(c.enrichCommand())
	root.AddCommand(c.iterateCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.catalogCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Configuration
// =============================================================================

// loadConfig resolves the configuration for cmd and applies its log level.
// --verbose wins over the configured level.
func (c *CLI) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(c.configPath, cmd.Flags())
	if err != nil {
		return nil, err
	}
	if !c.verbose {
		level, err := log.ParseLevel(cfg.Log.Level)
		if err == nil {
			c.SetLogLevel(level)
		}
	}
	return cfg, nil
}

// openCatalog loads the configured catalog, or the default one.
func openCatalog(cfg *config.Config) (*catalog.Catalog, string, error) {
	path := cfg.Catalog
	if path == "" {
		path = defaultCatalogPath()
	}
	cat, err := catalog.Load(path)
	return cat, path, err
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner on the configured cache. A nil keyer
// uses the default key layout.
func (c *CLI) newRunner(ctx context.Context, cfg *config.Config, keyer cache.Keyer) (*pipeline.Runner, error) {
	cc, err := newCache(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return pipeline.NewRunner(cc, keyer, c.Logger), nil
}

// newCache opens the configured cache. Without a URL results go to the
// user cache directory; if that cannot be determined caching is off.
func newCache(ctx context.Context, cfg *config.Config) (cache.Cache, error) {
	if cfg.Cache.Disabled {
		return cache.NewNullCache(), nil
	}
	if cfg.Cache.URL != "" {
		return cache.Open(ctx, cfg.Cache.URL)
	}
	dir, err := cacheDir()
	if err != nil {
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(dir)
}

// pipelineOptions builds analysis options for mode from cfg.
func pipelineOptions(cfg *config.Config, mode string, refresh bool) pipeline.Options {
	return pipeline.Options{
		Mode:     mode,
		Options:  cfg.IterativeOptions(),
		Refresh:  refresh,
		CacheTTL: cfg.Cache.TTL,
	}
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/iterenrich/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// configDir returns the config directory using XDG standard (~/.config/iterenrich/).
func configDir() (string, error) {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName), nil
}

// defaultCatalogPath returns the catalog location inside configDir, or a
// file in the working directory when no home directory is known.
func defaultCatalogPath() string {
	dir, err := configDir()
	if err != nil {
		return catalogFile
	}
	return filepath.Join(dir, catalogFile)
}
