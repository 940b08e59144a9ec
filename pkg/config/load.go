package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/matzehuels/iterenrich/pkg/errors"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "ITERENRICH"

// FlagKeys maps command-line flag names to configuration keys. Load binds
// each listed flag that exists in the given flag set.
var FlagKeys = map[string]string{
	"method":         "engine.method",
	"min-term-size":  "engine.min_term_size",
	"max-term-size":  "engine.max_term_size",
	"workers":        "engine.workers",
	"p-threshold":    "iterative.p_threshold",
	"max-iterations": "iterative.max_iterations",
	"min-overlap":    "iterative.min_overlap",
	"cache":          "cache.url",
	"cache-ttl":      "cache.ttl",
	"no-cache":       "cache.disabled",
	"addr":           "server.addr",
	"log-level":      "log.level",
	"catalog":        "catalog",
	"output-dir":     "output_dir",
}

var validate = validator.New()

// Load resolves the configuration. path names an optional config file; an
// empty path skips it. flags may be nil.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "read config %s", path)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range FlagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "decode config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints and that the method is known.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "invalid configuration")
	}
	if _, err := c.Method(); err != nil {
		return err
	}
	return nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("engine.method", d.Engine.Method)
	v.SetDefault("engine.min_term_size", d.Engine.MinTermSize)
	v.SetDefault("engine.max_term_size", d.Engine.MaxTermSize)
	v.SetDefault("engine.workers", d.Engine.Workers)
	v.SetDefault("iterative.p_threshold", d.Iterative.PThreshold)
	v.SetDefault("iterative.max_iterations", d.Iterative.MaxIterations)
	v.SetDefault("iterative.min_overlap", d.Iterative.MinOverlap)
	v.SetDefault("cache.url", d.Cache.URL)
	v.SetDefault("cache.ttl", d.Cache.TTL)
	v.SetDefault("cache.disabled", d.Cache.Disabled)
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	v.SetDefault("server.max_body_bytes", d.Server.MaxBodyBytes)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("catalog", d.Catalog)
	v.SetDefault("output_dir", d.OutputDir)
}
