package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/iterenrich/pkg/cache"
	"github.com/matzehuels/iterenrich/pkg/enrichment"
	"github.com/matzehuels/iterenrich/pkg/errors"
	"github.com/matzehuels/iterenrich/pkg/geneset"
	"github.com/matzehuels/iterenrich/pkg/iterative"
	"github.com/matzehuels/iterenrich/pkg/observability"
	"github.com/matzehuels/iterenrich/pkg/report"
)

// Runner executes analyses with caching.
// Both CLI and API use it so caching and serialization behave the same.
//
// The Runner keeps no per-analysis state. Multiple goroutines can safely use
// the same Runner with different options.
type Runner struct {
	Cache      cache.Cache
	Keyer      cache.Keyer
	Logger     *log.Logger
	Engine     *enrichment.Engine
	Controller *iterative.Controller
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	engine := enrichment.New()
	return &Runner{
		Cache:      c,
		Keyer:      keyer,
		Logger:     logger,
		Engine:     engine,
		Controller: iterative.NewController(engine),
	}
}

// Execute analyzes one gene set against every library in input.
//
// The error is non-nil only for invalid options or inputs, or when the
// outputs cannot be serialized. Per-library failures are reported in
// Result.Failures.
func (r *Runner) Execute(ctx context.Context, input Input, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	if err := input.Validate(); err != nil {
		return nil, err
	}
	logger := r.Logger.With("gene_set", input.GeneSet.Name(), "mode", opts.Mode)

	snapshot := report.NewSnapshot(opts.Mode, input.GeneSet, input.Background, opts.Parameters())
	result := &Result{
		RunID:     snapshot.RunID,
		GeneSet:   input.GeneSet.Name(),
		Mode:      opts.Mode,
		Snapshot:  snapshot,
		Artifacts: make(map[string][]byte),
	}
	result.Stats.Libraries = len(input.Libraries)

	computeStart := time.Now()
	for _, lib := range input.Libraries {
		if opts.IsIterative() {
			run, hit, err := r.IterateWithCacheInfo(ctx, input.GeneSet, lib, input.Background, opts)
			r.countCache(result, hit)
			if err != nil {
				result.Failures = append(result.Failures, newFailure(lib.Name(), err))
				snapshot.AddFailure(lib.Name(), err)
				logger.Error("library failed", "library", lib.Name(), "err", err)
				continue
			}
			if !run.StopReason.Clean() {
				result.Failures = append(result.Failures, newFailure(lib.Name(), run.Err))
			}
			result.Iterative = append(result.Iterative, run)
			result.Stats.Records += len(run.Records)
			snapshot.AddIterative(lib, input.Background, run)
			continue
		}

		res, hit, err := r.EnrichWithCacheInfo(ctx, input.GeneSet, lib, input.Background, opts)
		r.countCache(result, hit)
		if err != nil {
			result.Failures = append(result.Failures, newFailure(lib.Name(), err))
			snapshot.AddFailure(lib.Name(), err)
			logger.Error("library failed", "library", lib.Name(), "err", err)
			continue
		}
		if res.Failed() {
			result.Failures = append(result.Failures, newFailure(lib.Name(), res.Err))
		}
		result.Enrichment = append(result.Enrichment, res)
		result.Stats.Records += len(res.Records)
		snapshot.AddEnrichment(lib, res)
	}
	result.Stats.ComputeTime = time.Since(computeStart)

	logger.Info("analyzed libraries",
		"libraries", result.Stats.Libraries,
		"records", result.Stats.Records,
		"failed", len(result.Failures),
		"cache_hits", result.CacheInfo.Hits,
		"duration", result.Stats.ComputeTime)

	writeStart := time.Now()
	if err := r.serialize(result, opts); err != nil {
		return nil, fmt.Errorf("serialize: %w", err)
	}
	result.Stats.WriteTime = time.Since(writeStart)
	return result, nil
}

// ExecuteAll analyzes several gene sets against the same libraries, one
// after another. It stops at the first invalid input; library failures do
// not stop it.
func (r *Runner) ExecuteAll(ctx context.Context, sets []*geneset.GeneSet, bg *geneset.Background, libs []*geneset.Library, opts Options) ([]*Result, error) {
	results := make([]*Result, 0, len(sets))
	for _, gs := range sets {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res, err := r.Execute(ctx, Input{GeneSet: gs, Background: bg, Libraries: libs}, opts)
		if err != nil {
			return results, fmt.Errorf("gene set %s: %w", gs.Name(), err)
		}
		results = append(results, res)
	}
	return results, nil
}

// EnrichWithCacheInfo runs single-pass enrichment with caching and reports
// whether the result came from the cache. Failed results are never cached.
func (r *Runner) EnrichWithCacheInfo(ctx context.Context, gs *geneset.GeneSet, lib *geneset.Library, bg *geneset.Background, opts Options) (*enrichment.Result, bool, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, false, err
	}

	key := r.Keyer.EnrichmentKey(r.inputs(gs, lib, bg), opts.EnrichmentKeyOpts())
	var cached enrichment.Result
	if !opts.Refresh && r.load(ctx, key, &cached) {
		// Keys cover gene content only; names belong to this caller.
		cached.GeneSet, cached.Background = gs.Name(), bg.Name()
		return &cached, true, nil
	}

	res, err := r.Engine.Compute(ctx, gs, lib, bg, opts.Options.Options)
	if err != nil {
		return nil, false, err
	}
	if !res.Failed() {
		r.store(ctx, key, res, opts.ttl())
	}
	return res, false, nil
}

// IterateWithCacheInfo runs an iterative analysis with caching and reports
// whether the run came from the cache. Failed or canceled runs are never
// cached.
func (r *Runner) IterateWithCacheInfo(ctx context.Context, gs *geneset.GeneSet, lib *geneset.Library, bg *geneset.Background, opts Options) (*iterative.Run, bool, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, false, err
	}

	key := r.Keyer.IterativeKey(r.inputs(gs, lib, bg), opts.IterativeKeyOpts())
	var cached iterative.Run
	if !opts.Refresh && r.load(ctx, key, &cached) {
		cached.GeneSet, cached.Background = gs.Name(), bg.Name()
		return &cached, true, nil
	}

	run, err := r.Controller.Run(ctx, gs, lib, bg, opts.Options)
	if err != nil {
		return nil, false, err
	}
	if run.StopReason.Clean() {
		r.store(ctx, key, run, opts.ttl())
	}
	return run, false, nil
}

func (r *Runner) load(ctx context.Context, key string, v any) bool {
	hooks := observability.Cache()
	data, hit, err := r.Cache.Get(ctx, key)
	if err != nil {
		r.Logger.Warn("cache read failed", "err", err)
		return false
	}
	if !hit {
		hooks.OnCacheMiss(ctx, key)
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		r.Logger.Debug("discarding unreadable cache entry", "err", err)
		hooks.OnCacheMiss(ctx, key)
		return false
	}
	hooks.OnCacheHit(ctx, key)
	return true
}

func (r *Runner) store(ctx context.Context, key string, v any, ttl time.Duration) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := r.Cache.Set(ctx, key, data, ttl); err != nil {
		r.Logger.Warn("cache write failed", "err", err)
		return
	}
	observability.Cache().OnCacheSet(ctx, key, len(data))
}

func (r *Runner) inputs(gs *geneset.GeneSet, lib *geneset.Library, bg *geneset.Background) cache.Inputs {
	return cache.Inputs{
		GeneSet:        gs.IDs(),
		Library:        lib.Name(),
		LibraryHash:    cache.HashJSON(geneset.LibraryToDocument(lib)),
		BackgroundHash: cache.HashJSON(bg.Genes().IDs()),
	}
}

func (r *Runner) countCache(result *Result, hit bool) {
	if hit {
		result.CacheInfo.Hits++
	} else {
		result.CacheInfo.Misses++
	}
}

// serialize fills result.Artifacts.
func (r *Runner) serialize(result *Result, opts Options) error {
	var buf bytes.Buffer
	put := func(name string) {
		result.Artifacts[name] = bytes.Clone(buf.Bytes())
		buf.Reset()
	}

	if !opts.IsIterative() {
		if err := report.WriteCombinedEnrichmentTSV(&buf, result.Enrichment); err != nil {
			return err
		}
		put(ArtifactCombinedRegular)
		if err := report.WriteSnapshot(&buf, result.Snapshot); err != nil {
			return err
		}
		put(ArtifactRegularSnapshot)
		return nil
	}

	if err := report.WriteCombinedIterationTSV(&buf, result.Iterative); err != nil {
		return err
	}
	put(ArtifactCombinedIterative)
	if err := report.WriteSnapshot(&buf, result.Snapshot); err != nil {
		return err
	}
	put(ArtifactIterativeSnapshot)

	for _, run := range result.Iterative {
		if len(run.Records) == 0 {
			continue
		}
		if err := report.BuildNetwork(run.Records).WriteDOT(&buf); err != nil {
			return err
		}
		put(LibraryNetworkArtifact(run.Library))
	}

	result.Network = report.MergeNetworks(result.Iterative)
	if result.Network.EdgeCount() > 0 {
		if err := result.Network.WriteDOT(&buf); err != nil {
			return err
		}
		put(ArtifactMergedNetwork)
		result.Artifacts[ArtifactAnalysisPrompt] = []byte(report.AnalysisPrompt(result.Network))
	}
	return nil
}

// WriteArtifacts writes every artifact to dir/<gene set>/ and returns the
// written paths in sorted order.
func (r *Result) WriteArtifacts(dir string) ([]string, error) {
	if err := errors.ValidateName(r.GeneSet); err != nil {
		return nil, err
	}
	target := filepath.Join(dir, r.GeneSet)
	if err := os.MkdirAll(target, 0755); err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(r.Artifacts))
	for _, name := range r.ArtifactNames() {
		path := filepath.Join(target, name)
		if err := os.WriteFile(path, r.Artifacts[name], 0644); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
