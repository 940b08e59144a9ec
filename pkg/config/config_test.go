package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"

	"github.com/matzehuels/iterenrich/pkg/errors"
	"github.com/matzehuels/iterenrich/pkg/stats"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Engine.Method != "fisher" || cfg.Engine.MinTermSize != 10 || cfg.Engine.MaxTermSize != DefaultMaxTermSize {
		t.Errorf("Engine = %+v", cfg.Engine)
	}
	if cfg.Iterative.PThreshold != 0.01 || cfg.Iterative.MinOverlap != DefaultMinOverlap {
		t.Errorf("Iterative = %+v", cfg.Iterative)
	}
	if cfg.Cache.TTL != DefaultCacheTTL || cfg.Server.Addr != DefaultServerAddr {
		t.Errorf("Cache = %+v, Server = %+v", cfg.Cache, cfg.Server)
	}
}

func TestLoadFile(t *testing.T) {
	path := writeFile(t, "iterenrich.toml", `
output_dir = "out"

[engine]
method = "chi2"
max_term_size = 300

[iterative]
p_threshold = 0.05
max_iterations = 5

[cache]
ttl = "1h"
`)
	cfg, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Engine.Method != "chi2" || cfg.Engine.MaxTermSize != 300 {
		t.Errorf("Engine = %+v", cfg.Engine)
	}
	if cfg.Iterative.PThreshold != 0.05 || cfg.Iterative.MaxIterations != 5 {
		t.Errorf("Iterative = %+v", cfg.Iterative)
	}
	if cfg.Cache.TTL != time.Hour {
		t.Errorf("Cache.TTL = %v, want 1h", cfg.Cache.TTL)
	}
	if cfg.OutputDir != "out" {
		t.Errorf("OutputDir = %q", cfg.OutputDir)
	}
	if cfg.Engine.MinTermSize != 10 {
		t.Errorf("unset key lost its default: MinTermSize = %d", cfg.Engine.MinTermSize)
	}
}

func TestLoadPrecedence(t *testing.T) {
	path := writeFile(t, "iterenrich.yaml", "engine:\n  method: hypergeom\n  min_term_size: 5\n")
	t.Setenv("ITERENRICH_ENGINE_MIN_TERM_SIZE", "7")
	t.Setenv("ITERENRICH_ITERATIVE_MIN_OVERLAP", "2")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("min-overlap", DefaultMinOverlap, "")
	flags.Float64("p-threshold", 0.01, "")
	if err := flags.Parse([]string{"--min-overlap=4"}); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path, flags)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Engine.Method != "hypergeom" {
		t.Errorf("file value lost: method = %q", cfg.Engine.Method)
	}
	if cfg.Engine.MinTermSize != 7 {
		t.Errorf("env should override file: MinTermSize = %d", cfg.Engine.MinTermSize)
	}
	if cfg.Iterative.MinOverlap != 4 {
		t.Errorf("flag should override env: MinOverlap = %d", cfg.Iterative.MinOverlap)
	}
	if cfg.Iterative.PThreshold != 0.01 {
		t.Errorf("unchanged flag should not override: PThreshold = %v", cfg.Iterative.PThreshold)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		code    errors.Code
	}{
		{"bad method", "[engine]\nmethod = \"anova\"\n", errors.ErrCodeInvalidMethod},
		{"threshold above one", "[iterative]\np_threshold = 2.0\n", errors.ErrCodeInvalidConfig},
		{"inverted term sizes", "[engine]\nmin_term_size = 50\nmax_term_size = 20\n", errors.ErrCodeInvalidConfig},
		{"zero overlap", "[iterative]\nmin_overlap = 0\n", errors.ErrCodeInvalidConfig},
		{"bad log level", "[log]\nlevel = \"loud\"\n", errors.ErrCodeInvalidConfig},
		{"bad address", "[server]\naddr = \"nowhere\"\n", errors.ErrCodeInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, "c.toml", tt.content)
			_, err := Load(path, nil)
			if !errors.Is(err, tt.code) {
				t.Errorf("Load() error = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"), nil)
	if !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("Load() error = %v, want INVALID_CONFIG", err)
	}
}

func TestOptionsConversion(t *testing.T) {
	cfg := Default()
	cfg.Engine.Method = "chi2"
	cfg.Engine.Workers = 3
	cfg.Iterative.MaxIterations = 4

	it := cfg.IterativeOptions()
	if it.Method != stats.MethodChiSquared || it.Workers != 3 || it.MaxTermSize != DefaultMaxTermSize {
		t.Errorf("engine options = %+v", it.Options)
	}
	if it.MaxIterations != 4 || it.MinOverlap != DefaultMinOverlap || it.PThreshold != 0.01 {
		t.Errorf("iterative options = %+v", it)
	}
	if err := it.Validate(); err != nil {
		t.Errorf("converted options invalid: %v", err)
	}
}
