// Package enrichment ranks the terms of a gene set library by how strongly
// they are over-represented in a gene set.
//
// For each term within the configured size bounds, [Engine.Compute] builds
// the 2×2 table [[k, n-k], [N-k, M-n-N+k]] where k is the overlap, n the term
// size, N the gene set size and M the library-specific background size
// (background genes that appear in at least one library term). The chosen
// test yields a p-value, Benjamini–Hochberg correction yields the FDR, and
// records are ranked by ascending p-value with library order breaking ties.
//
// Term tests run on a bounded worker pool that lives for one Compute call.
//
// # Usage
//
//	res, err := enrichment.Compute(ctx, geneSet, library, background, enrichment.DefaultOptions())
//	if err != nil {
//	    return err // configuration error
//	}
//	if res.Failed() {
//	    log.Error("enrichment failed", "library", res.Library, "err", res.Err)
//	}
//	for _, rec := range res.Records {
//	    fmt.Println(rec.Rank, rec.Term, rec.PValue)
//	}
package enrichment

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/iterenrich/pkg/errors"
	"github.com/matzehuels/iterenrich/pkg/geneset"
	"github.com/matzehuels/iterenrich/pkg/observability"
	"github.com/matzehuels/iterenrich/pkg/stats"
)

// TestFunc computes a p-value for a contingency table.
type TestFunc func(stats.Method, stats.Table) (float64, error)

// Engine runs enrichment analyses. The zero value is not usable; call New.
// An Engine holds no per-run state and may be shared between goroutines.
type Engine struct {
	test TestFunc
}

// New returns an engine backed by the tests in package stats.
func New() *Engine {
	return &Engine{test: stats.PValue}
}

// NewWithTest returns an engine that computes p-values with test instead of
// stats.PValue.
func NewWithTest(test TestFunc) *Engine {
	if test == nil {
		test = stats.PValue
	}
	return &Engine{test: test}
}

// Compute runs an analysis with a default engine.
func Compute(ctx context.Context, gs *geneset.GeneSet, lib *geneset.Library, bg *geneset.Background, opts Options) (*Result, error) {
	return New().Compute(ctx, gs, lib, bg, opts)
}

// outcome is what one term task produces.
type outcome struct {
	pValue  float64
	overlap []string
}

// Compute ranks the terms of lib against gs.
//
// A non-nil error means the options are invalid or an input is missing; no
// result is returned. A failing term test does not produce an error: the
// result comes back empty with StatusFailed and the cause in Result.Err, so
// callers analysing many libraries can continue with the next one.
//
// Compute blocks until every term test has finished. Cancelling ctx does
// not interrupt a batch that has started.
func (e *Engine) Compute(ctx context.Context, gs *geneset.GeneSet, lib *geneset.Library, bg *geneset.Background, opts Options) (*Result, error) {
	opts.SetDefaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if gs == nil || lib == nil || bg == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "gene set, library and background are required")
	}
	logger := opts.Logger.With("library", lib.Name())

	start := time.Now()
	res := &Result{
		GeneSet:               gs.Name(),
		Library:               lib.Name(),
		Background:            bg.Name(),
		Method:                opts.Method,
		Records:               []Record{},
		Status:                StatusOK,
		LibraryBackgroundSize: lib.BackgroundSize(bg),
	}

	terms := make([]*geneset.Term, 0, lib.NumTerms())
	for _, t := range lib.Terms() {
		if t.Size() >= opts.MinTermSize && t.Size() <= opts.MaxTermSize {
			terms = append(terms, t)
		}
	}
	res.TermsTested = len(terms)

	hooks := observability.Enrichment()
	hooks.OnComputeStart(ctx, lib.Name(), len(terms))
	defer func() {
		res.Duration = time.Since(start)
		hooks.OnComputeComplete(ctx, lib.Name(), string(res.Status), res.Duration, res.Err)
	}()

	logger.Debug("library background",
		"size", res.LibraryBackgroundSize,
		"background", bg.Size(),
		"library_genes", lib.Size())

	switch {
	case gs.Size() == 0:
		res.Status = StatusEmptyGeneSet
		logger.Info("gene set is empty, nothing to test", "gene_set", gs.Name())
		return res, nil
	case len(terms) == 0:
		res.Status = StatusNoTerms
		logger.Info("no terms within size range",
			"min", opts.MinTermSize,
			"max", opts.MaxTermSize,
			"terms", lib.NumTerms())
		return res, nil
	}

	outcomes, err := e.run(ctx, gs, terms, res.LibraryBackgroundSize, opts)
	if err != nil {
		res.Status = StatusFailed
		res.Err = errors.Wrap(errors.ErrCodeComputation, err, "compute p-values for %s", lib.Name())
		logger.Error("enrichment failed", "gene_set", gs.Name(), "err", err)
		return res, nil
	}

	res.Records = rank(terms, outcomes)
	logger.Debug("computed enrichment",
		"gene_set", gs.Name(),
		"terms", len(terms),
		"method", opts.Method.Short(),
		"duration", time.Since(start))
	return res, nil
}

// run evaluates every term on a pool bounded by opts.Workers. Each task writes
// only its own slot, so outcomes are in submission order whatever order the
// workers finish in. The first failure cancels tasks that have not started.
func (e *Engine) run(ctx context.Context, gs *geneset.GeneSet, terms []*geneset.Term, m int, opts Options) ([]outcome, error) {
	outcomes := make([]outcome, len(terms))
	bigN := gs.Size()

	g, gctx := errgroup.WithContext(context.WithoutCancel(ctx))
	g.SetLimit(opts.Workers)
	for i, t := range terms {
		g.Go(func() (err error) {
			if gctx.Err() != nil {
				return nil
			}
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("term %q: panic: %v", t.Name(), r)
				}
			}()
			overlap := t.Overlap(gs.Genes())
			table := stats.NewTable(len(overlap), t.Size(), bigN, m)
			p, err := e.test(opts.Method, table)
			if err != nil {
				return fmt.Errorf("term %q: %w", t.Name(), err)
			}
			outcomes[i] = outcome{pValue: p, overlap: overlap}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

// rank applies FDR correction and orders records by ascending p-value.
// The correction covers only the terms that passed the size filter. The
// sort is stable, so equal p-values keep library order.
func rank(terms []*geneset.Term, outcomes []outcome) []Record {
	pvals := make([]float64, len(outcomes))
	for i, o := range outcomes {
		pvals[i] = o.pValue
	}
	fdr := stats.BenjaminiHochberg(pvals)

	order := make([]int, len(terms))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return cmp.Compare(pvals[a], pvals[b])
	})

	records := make([]Record, len(order))
	for pos, i := range order {
		t := terms[i]
		records[pos] = Record{
			Term:        t.Name(),
			OverlapSize: formatOverlap(len(outcomes[i].overlap), t.Size()),
			Description: t.Description(),
			Overlap:     outcomes[i].overlap,
			PValue:      pvals[i],
			FDR:         fdr[i],
			Rank:        pos + 1,
		}
	}
	return records
}
