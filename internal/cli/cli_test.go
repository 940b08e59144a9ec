package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/matzehuels/iterenrich/pkg/cache"
	"github.com/matzehuels/iterenrich/pkg/catalog"
	"github.com/matzehuels/iterenrich/pkg/config"
	"github.com/matzehuels/iterenrich/pkg/geneset"
	"github.com/matzehuels/iterenrich/pkg/pipeline"
)

// testEnv isolates config and cache directories and writes the input
// files used by the command tests.
type testEnv struct {
	dir        string
	catalog    string
	geneSet    string
	background string
	library    string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_CACHE_HOME", filepath.Join(dir, "cache"))

	genes := func(from, to int) []string {
		ids := make([]string, 0, to-from+1)
		for i := from; i <= to; i++ {
			ids = append(ids, fmt.Sprintf("G%d", i))
		}
		return ids
	}

	env := &testEnv{dir: dir, catalog: filepath.Join(dir, "catalog.toml")}
	env.geneSet = writeJSON(t, dir, "input.json", geneset.GeneSetDocument{Name: "input", Genes: genes(1, 4)})
	env.background = writeJSON(t, dir, "bg.json", geneset.GeneSetDocument{Name: "bg", Genes: genes(1, 20)})
	env.library = writeJSON(t, dir, "good.json", geneset.LibraryDocument{
		Name: "good",
		Terms: []geneset.TermDocument{
			{Name: "T1", Genes: genes(1, 3)},
			{Name: "T2", Genes: genes(5, 8)},
			{Name: "T3", Genes: genes(9, 20)},
		},
	})
	return env
}

func writeJSON(t *testing.T, dir, name string, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

// run executes the root command with args and returns what the command
// wrote to its own output.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := New(io.Discard, LogInfo).RootCommand()
	root.SetArgs(args)
	root.SetOut(&out)
	root.SetErr(io.Discard)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	root := New(io.Discard, LogInfo).RootCommand()
	for _, name := range []string{"enrich", "iterate", "serve", "catalog", "cache", "completion"} {
		if cmd, _, err := root.Find([]string{name}); err != nil || cmd.Name() != name {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}

func TestPipelineOptions(t *testing.T) {
	cfg := config.Default()
	cfg.Iterative.MinOverlap = 5
	cfg.Cache.TTL = time.Hour

	opts := pipelineOptions(cfg, pipeline.ModeIterative, true)
	if opts.Mode != pipeline.ModeIterative || !opts.Refresh || opts.CacheTTL != time.Hour {
		t.Errorf("pipelineOptions() = %+v", opts)
	}
	if opts.MinOverlap != 5 || opts.MaxTermSize != config.DefaultMaxTermSize {
		t.Errorf("engine options not carried over: %+v", opts.Options)
	}
}

func TestNewCache(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	ctx := context.Background()

	cfg := config.Default()
	cfg.Cache.Disabled = true
	c, err := newCache(ctx, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := c.(*cache.NullCache); !ok {
		t.Errorf("disabled cache = %T, want *cache.NullCache", c)
	}

	cfg.Cache.Disabled = false
	c, err = newCache(ctx, cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	fc, ok := c.(*cache.FileCache)
	if !ok {
		t.Fatalf("default cache = %T, want *cache.FileCache", c)
	}
	if dir, _ := cacheDir(); fc.Dir() != dir {
		t.Errorf("FileCache.Dir() = %q, want %q", fc.Dir(), dir)
	}
}

func TestCatalogCommands(t *testing.T) {
	env := newTestEnv(t)

	if _, err := run(t, "catalog", "add", env.library, "--catalog", env.catalog, "--description", "test terms"); err != nil {
		t.Fatalf("catalog add: %v", err)
	}
	if _, err := run(t, "catalog", "add", env.background, "--background", "--default", "--catalog", env.catalog); err != nil {
		t.Fatalf("catalog add --background: %v", err)
	}

	cat, err := catalog.Load(env.catalog)
	if err != nil {
		t.Fatal(err)
	}
	lib, err := cat.Library("good")
	if err != nil {
		t.Fatal(err)
	}
	if !lib.Active || lib.Description != "test terms" {
		t.Errorf("library entry = %+v", lib)
	}
	if bg, err := cat.Background(""); err != nil || bg.Name != "bg" {
		t.Errorf("default background = %+v, %v", bg, err)
	}

	if _, err := run(t, "catalog", "deactivate", "good", "--catalog", env.catalog); err != nil {
		t.Fatalf("catalog deactivate: %v", err)
	}
	cat, _ = catalog.Load(env.catalog)
	if len(cat.Active()) != 0 {
		t.Errorf("Active() = %v after deactivate", cat.Active())
	}

	if _, err := run(t, "catalog", "activate", "missing", "--catalog", env.catalog); err == nil {
		t.Error("activating an unknown library should fail")
	}
	if _, err := run(t, "catalog", "list", "--catalog", env.catalog); err != nil {
		t.Errorf("catalog list: %v", err)
	}
}

func TestEnrichCommand(t *testing.T) {
	env := newTestEnv(t)
	out := filepath.Join(env.dir, "results")

	_, err := run(t, "enrich",
		"-g", env.geneSet, "-b", env.background, "-l", env.library,
		"--min-term-size", "1", "--no-cache", "-o", out, "--catalog", env.catalog)
	if err != nil {
		t.Fatalf("enrich: %v", err)
	}

	for _, name := range []string{"combined_regular_results.tsv", "regular_enrichment_snapshot.json"} {
		if _, err := os.Stat(filepath.Join(out, "input", name)); err != nil {
			t.Errorf("missing artifact %s: %v", name, err)
		}
	}
	data, err := os.ReadFile(filepath.Join(out, "input", "combined_regular_results.tsv"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "T1") {
		t.Errorf("results do not mention T1:\n%s", data)
	}
}

func TestEnrichNoWrite(t *testing.T) {
	env := newTestEnv(t)
	out := filepath.Join(env.dir, "results")

	_, err := run(t, "enrich", "-g", env.geneSet, "-b", env.background, "-l", env.library,
		"--min-term-size", "1", "--no-cache", "--no-write", "-o", out, "--catalog", env.catalog)
	if err != nil {
		t.Fatalf("enrich: %v", err)
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Errorf("--no-write created %s", out)
	}
}

func TestIterateCommandUsesCatalog(t *testing.T) {
	env := newTestEnv(t)
	out := filepath.Join(env.dir, "results")

	if _, err := run(t, "catalog", "add", env.library, "--catalog", env.catalog); err != nil {
		t.Fatal(err)
	}
	if _, err := run(t, "catalog", "add", env.background, "--background", "--default", "--catalog", env.catalog); err != nil {
		t.Fatal(err)
	}

	_, err := run(t, "iterate", "-g", env.geneSet, "--min-term-size", "1", "-o", out, "--catalog", env.catalog)
	if err != nil {
		t.Fatalf("iterate: %v", err)
	}

	for _, name := range []string{
		"combined_iterative_results.tsv",
		"iterative_enrichment_snapshot.json",
		"good_iterative_network.dot",
	} {
		if _, err := os.Stat(filepath.Join(out, "input", name)); err != nil {
			t.Errorf("missing artifact %s: %v", name, err)
		}
	}

	// The run above used the default directory cache.
	dir, _ := cacheDir()
	fc, err := cache.NewFileCache(dir)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := run(t, "cache", "clear", "--catalog", env.catalog); err != nil {
		t.Fatalf("cache clear: %v", err)
	}
	if n, err := fc.Clear(context.Background()); err != nil || n != 0 {
		t.Errorf("Clear() after cache clear = %d, %v; want 0", n, err)
	}
}

func TestAnalyzeErrors(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no gene set", []string{"enrich", "-b", env.background, "-l", env.library}, "--gene-set"},
		{"no libraries", []string{"enrich", "-g", env.geneSet, "-b", env.background, "--no-cache"}, "no libraries"},
		{"no background", []string{"enrich", "-g", env.geneSet, "-l", env.library, "--no-cache"}, "default background"},
		{"bad method", []string{"enrich", "-g", env.geneSet, "-b", env.background, "-l", env.library, "--method", "anova"}, "anova"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append(tt.args, "--catalog", env.catalog, "-o", filepath.Join(env.dir, "results"))
			_, err := run(t, args...)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestCompletionCommand(t *testing.T) {
	out, err := run(t, "completion", "bash")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "iterenrich") {
		t.Error("bash completion does not mention iterenrich")
	}
}
