// Package config loads iterenrich settings.
//
// Values are resolved in increasing precedence: built-in defaults, an
// optional config file (TOML, YAML or JSON), ITERENRICH_* environment
// variables and finally command-line flags. Nested keys map to environment
// variables by upper-casing and replacing dots, so engine.method is read
// from ITERENRICH_ENGINE_METHOD.
package config

import (
	"time"

	"github.com/matzehuels/iterenrich/pkg/enrichment"
	"github.com/matzehuels/iterenrich/pkg/iterative"
	"github.com/matzehuels/iterenrich/pkg/stats"
)

// Config holds all application configuration.
type Config struct {
	Engine    EngineConfig    `mapstructure:"engine"`
	Iterative IterativeConfig `mapstructure:"iterative"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`

	// Catalog is the path of the library catalog file; empty selects the
	// default location in the user config directory.
	Catalog string `mapstructure:"catalog"`
	// OutputDir is where the CLI writes result files.
	OutputDir string `mapstructure:"output_dir" validate:"required"`
}

// EngineConfig configures single-pass enrichment.
type EngineConfig struct {
	Method      string `mapstructure:"method" validate:"required"`
	MinTermSize int    `mapstructure:"min_term_size" validate:"gte=0"`
	MaxTermSize int    `mapstructure:"max_term_size" validate:"gtefield=MinTermSize"`
	// Workers bounds parallel term tests; zero picks a default from the CPU count.
	Workers int `mapstructure:"workers" validate:"gte=0"`
}

// IterativeConfig configures the peeling loop.
type IterativeConfig struct {
	PThreshold    float64 `mapstructure:"p_threshold" validate:"gt=0,lte=1"`
	MaxIterations int     `mapstructure:"max_iterations" validate:"gte=0"`
	MinOverlap    int     `mapstructure:"min_overlap" validate:"gte=1"`
}

// CacheConfig selects the result cache.
type CacheConfig struct {
	// URL is passed to cache.Open: a directory, file://, redis:// or mongodb://.
	URL      string        `mapstructure:"url"`
	TTL      time.Duration `mapstructure:"ttl" validate:"gte=0"`
	Disabled bool          `mapstructure:"disabled"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr         string        `mapstructure:"addr" validate:"required,hostname_port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout" validate:"gte=0"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" validate:"gte=0"`
	// MaxBodyBytes limits request bodies.
	MaxBodyBytes int64 `mapstructure:"max_body_bytes" validate:"gt=0"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
}

// Default values. Iterative CLI defaults are stricter than the engine's.
const (
	DefaultMaxTermSize      = 600
	DefaultMinOverlap       = 3
	DefaultOutputDir        = "results"
	DefaultServerAddr       = "127.0.0.1:8080"
	DefaultServerTimeout    = 2 * time.Minute
	DefaultMaxBodyBytes     = 32 << 20
	DefaultCacheTTL         = 7 * 24 * time.Hour
	DefaultLogLevel         = "info"
	DefaultIterativeMaxIter = 0
)

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Engine: EngineConfig{
			Method:      stats.DefaultMethod.Short(),
			MinTermSize: enrichment.DefaultMinTermSize,
			MaxTermSize: DefaultMaxTermSize,
		},
		Iterative: IterativeConfig{
			PThreshold:    iterative.DefaultPThreshold,
			MaxIterations: DefaultIterativeMaxIter,
			MinOverlap:    DefaultMinOverlap,
		},
		Cache: CacheConfig{TTL: DefaultCacheTTL},
		Server: ServerConfig{
			Addr:         DefaultServerAddr,
			ReadTimeout:  DefaultServerTimeout,
			WriteTimeout: DefaultServerTimeout,
			MaxBodyBytes: DefaultMaxBodyBytes,
		},
		Log:       LogConfig{Level: DefaultLogLevel},
		OutputDir: DefaultOutputDir,
	}
}

// Method returns the parsed p-value method.
func (c *Config) Method() (stats.Method, error) {
	return stats.ParseMethod(c.Engine.Method)
}

// EnrichmentOptions converts the engine settings. Call Validate first; an
// unparseable method is passed through and rejected by the engine.
func (c *Config) EnrichmentOptions() enrichment.Options {
	method, err := c.Method()
	if err != nil {
		method = stats.Method(c.Engine.Method)
	}
	return enrichment.Options{
		MinTermSize: c.Engine.MinTermSize,
		MaxTermSize: c.Engine.MaxTermSize,
		Method:      method,
		Workers:     c.Engine.Workers,
	}
}

// IterativeOptions converts the engine and iterative settings.
func (c *Config) IterativeOptions() iterative.Options {
	return iterative.Options{
		Options:       c.EnrichmentOptions(),
		PThreshold:    c.Iterative.PThreshold,
		MaxIterations: c.Iterative.MaxIterations,
		MinOverlap:    c.Iterative.MinOverlap,
	}
}
