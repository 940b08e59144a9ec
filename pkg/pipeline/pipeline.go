// Package pipeline runs complete analyses for the CLI and the HTTP API.
//
// One analysis takes a gene set, a background and any number of libraries,
// runs either single-pass enrichment or iterative peeling against every
// library, and serializes the outcome into named artifacts (combined TSV,
// snapshot JSON and, for iterative runs, DOT networks). Results are cached per
// library, so repeating an analysis with one new library only computes that
// library.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	opts := pipeline.DefaultOptions()
//	opts.Mode = pipeline.ModeIterative
//	result, err := runner.Execute(ctx, pipeline.Input{
//	    GeneSet:    gs,
//	    Background: bg,
//	    Libraries:  libs,
//	}, opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	tsv := result.Artifacts[pipeline.ArtifactCombinedIterative]
//
// A library that fails is recorded in Result.Failures; the remaining
// libraries are still analyzed.
package pipeline

import (
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/matzehuels/iterenrich/pkg/cache"
	"github.com/matzehuels/iterenrich/pkg/enrichment"
	"github.com/matzehuels/iterenrich/pkg/errors"
	"github.com/matzehuels/iterenrich/pkg/geneset"
	"github.com/matzehuels/iterenrich/pkg/iterative"
	"github.com/matzehuels/iterenrich/pkg/report"
)

// Analysis modes.
const (
	ModeRegular   = "regular"
	ModeIterative = "iterative"
)

// ValidModes is the set of supported modes.
var ValidModes = map[string]bool{
	ModeRegular:   true,
	ModeIterative: true,
}

// Artifact names. Per-library network files are named
// "<library>_iterative_network.dot".
const (
	ArtifactCombinedRegular   = "combined_regular_results.tsv"
	ArtifactCombinedIterative = "combined_iterative_results.tsv"
	ArtifactRegularSnapshot   = "regular_enrichment_snapshot.json"
	ArtifactIterativeSnapshot = "iterative_enrichment_snapshot.json"
	ArtifactMergedNetwork     = "iterative_network.dot"
	ArtifactAnalysisPrompt    = "iterative_network_prompt.txt"
)

// LibraryNetworkArtifact names the network file of one library.
func LibraryNetworkArtifact(library string) string {
	return report.Sanitize(library) + "_iterative_network.dot"
}

// ValidateMode checks that a mode is valid.
func ValidateMode(mode string) error {
	if !ValidModes[mode] {
		return errors.New(errors.ErrCodeInvalidInput, "invalid mode: %q (must be one of: regular, iterative)", mode)
	}
	return nil
}

// =============================================================================
// Options
// =============================================================================

// Options configures an analysis. The embedded iterative options carry the
// engine options too; in regular mode only those are used.
type Options struct {
	Mode string `json:"mode"`
	iterative.Options

	// Refresh recomputes every library and overwrites cached entries.
	Refresh bool `json:"refresh,omitempty"`

	// CacheTTL overrides the default entry lifetime. Zero uses the default.
	CacheTTL time.Duration `json:"-"`

	validated bool
}

// DefaultOptions returns regular-mode options with the default parameters.
func DefaultOptions() Options {
	return Options{
		Mode:    ModeRegular,
		Options: iterative.DefaultOptions(),
	}
}

// ValidateAndSetDefaults checks the options and fills defaults. It is
// idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if o.Mode == "" {
		o.Mode = ModeRegular
	}
	if err := ValidateMode(o.Mode); err != nil {
		return err
	}
	o.Options.SetDefaults()
	if err := o.Options.Validate(); err != nil {
		return err
	}
	o.validated = true
	return nil
}

// IsIterative reports whether the options select iterative mode.
func (o *Options) IsIterative() bool {
	return o.Mode == ModeIterative
}

// Parameters returns the analysis parameters recorded in snapshots.
func (o *Options) Parameters() map[string]any {
	params := map[string]any{
		"method":        string(o.Method),
		"min_term_size": o.MinTermSize,
		"max_term_size": o.MaxTermSize,
	}
	if o.IsIterative() {
		params["p_threshold"] = o.PThreshold
		params["max_iterations"] = o.MaxIterations
		params["min_overlap"] = o.MinOverlap
	}
	return params
}

// EnrichmentKeyOpts returns cache key options for single-pass results.
func (o *Options) EnrichmentKeyOpts() cache.EnrichmentKeyOpts {
	return cache.EnrichmentKeyOpts{
		Method:      o.Method.Short(),
		MinTermSize: o.MinTermSize,
		MaxTermSize: o.MaxTermSize,
	}
}

// IterativeKeyOpts returns cache key options for iterative runs.
func (o *Options) IterativeKeyOpts() cache.IterativeKeyOpts {
	return cache.IterativeKeyOpts{
		EnrichmentKeyOpts: o.EnrichmentKeyOpts(),
		PThreshold:        o.PThreshold,
		MaxIterations:     o.MaxIterations,
		MinOverlap:        o.MinOverlap,
	}
}

func (o *Options) ttl() time.Duration {
	switch {
	case o.CacheTTL > 0:
		return o.CacheTTL
	case o.IsIterative():
		return cache.TTLIterative
	default:
		return cache.TTLEnrichment
	}
}

// =============================================================================
// Input and Result
// =============================================================================

// Input holds the data of one analysis.
type Input struct {
	GeneSet    *geneset.GeneSet
	Background *geneset.Background
	Libraries  []*geneset.Library
}

// Validate checks that all inputs are present.
func (in Input) Validate() error {
	switch {
	case in.GeneSet == nil:
		return errors.New(errors.ErrCodeInvalidGeneSet, "gene set is required")
	case in.Background == nil:
		return errors.New(errors.ErrCodeInvalidInput, "background is required")
	case len(in.Libraries) == 0:
		return errors.New(errors.ErrCodeInvalidLibrary, "at least one library is required")
	}
	for i, lib := range in.Libraries {
		if lib == nil {
			return errors.New(errors.ErrCodeInvalidLibrary, "library %d is nil", i)
		}
	}
	return nil
}

// Result contains the outputs of one analysis.
type Result struct {
	RunID   string `json:"run_id"`
	GeneSet string `json:"gene_set"`
	Mode    string `json:"mode"`

	// Enrichment holds one result per library in regular mode.
	Enrichment []*enrichment.Result `json:"enrichment,omitempty"`
	// Iterative holds one run per library in iterative mode.
	Iterative []*iterative.Run `json:"iterative,omitempty"`

	// Failures lists libraries that failed, in library order.
	Failures []Failure `json:"failures,omitempty"`

	Snapshot *report.Snapshot `json:"-"`
	// Network merges the per-library networks in iterative mode.
	Network *report.Network `json:"-"`

	// Artifacts contains serialized outputs keyed by file name.
	Artifacts map[string][]byte `json:"-"`

	Stats     Stats     `json:"stats"`
	CacheInfo CacheInfo `json:"cache"`
}

// Failure describes a library whose analysis failed.
type Failure struct {
	Library string `json:"library"`
	Err     error  `json:"-"`
	Message string `json:"message"`
}

func newFailure(library string, err error) Failure {
	f := Failure{Library: library, Err: err}
	if err != nil {
		f.Message = errors.UserMessage(err)
	}
	return f
}

// Stats contains execution statistics.
type Stats struct {
	Libraries   int           `json:"libraries"`
	Records     int           `json:"records"`
	ComputeTime time.Duration `json:"compute_time"`
	WriteTime   time.Duration `json:"write_time"`
}

// CacheInfo counts per-library cache hits and misses.
type CacheInfo struct {
	Hits   int `json:"hits"`
	Misses int `json:"misses"`
}

// Failed reports whether every library failed.
func (r *Result) Failed() bool {
	return r.Stats.Libraries > 0 && len(r.Failures) == r.Stats.Libraries
}

// ArtifactNames returns the artifact names in sorted order.
func (r *Result) ArtifactNames() []string {
	return slices.Sorted(maps.Keys(r.Artifacts))
}

// Summary returns a one-line description for logs.
func (r *Result) Summary() string {
	return fmt.Sprintf("%s: %d libraries, %d records, %d failed",
		r.GeneSet, r.Stats.Libraries, r.Stats.Records, len(r.Failures))
}
