// Package iterative implements iterative peeling on top of the enrichment
// engine: find the most significant term, remove its genes from the working
// set, and test again until a stop condition fires.
//
// Each iteration depends on the genes the previous one removed, so the loop
// is strictly sequential; only the engine call inside an iteration runs in
// parallel. The working set is owned by a single [Controller.Run] call and
// the caller's gene set is never modified.
//
// # Stop conditions
//
// Checked in order at the top of every iteration, first match wins:
//
//  1. no genes remain ([StopExhausted])
//  2. the iteration cap is reached ([StopIterationCap])
//  3. no term overlaps the remaining genes by MinOverlap ([StopNoQualifyingTerm])
//  4. the best term's p-value is not below PThreshold ([StopBelowSignificance])
//
// A failed engine run stops the loop with [StopFailed] and a cancelled
// context with [StopCanceled]; in both cases the iterations already
// committed are kept.
package iterative

import (
	"context"
	"time"

	"github.com/matzehuels/iterenrich/pkg/enrichment"
	"github.com/matzehuels/iterenrich/pkg/errors"
	"github.com/matzehuels/iterenrich/pkg/geneset"
	"github.com/matzehuels/iterenrich/pkg/observability"
)

// StopReason tells why the loop ended.
type StopReason string

const (
	StopExhausted         StopReason = "exhausted"
	StopIterationCap      StopReason = "iteration cap"
	StopNoQualifyingTerm  StopReason = "no qualifying term"
	StopBelowSignificance StopReason = "below significance"
	StopFailed            StopReason = "failed"
	StopCanceled          StopReason = "canceled"
)

// Clean reports whether the loop ended on one of its regular conditions
// rather than a failure or cancellation.
func (r StopReason) Clean() bool {
	return r != StopFailed && r != StopCanceled
}

// Record describes one committed iteration.
type Record struct {
	Iteration   int      `json:"iteration"`
	Term        string   `json:"term"`
	Library     string   `json:"library"`
	PValue      float64  `json:"p_value"`
	OverlapSize string   `json:"overlap_size"`
	Genes       []string `json:"genes"`
}

// Run is the outcome of one iterative analysis.
type Run struct {
	GeneSet    string `json:"gene_set"`
	Library    string `json:"library"`
	Background string `json:"background"`

	// Records are ordered by iteration, starting at 1.
	Records []Record `json:"records"`

	StopReason StopReason `json:"stop_reason"`
	// Err is the cause when StopReason is StopFailed or StopCanceled.
	Err error `json:"-"`

	// Remaining lists the genes never removed, sorted.
	Remaining []string      `json:"remaining"`
	Duration  time.Duration `json:"duration"`
}

// Controller runs iterative analyses with an enrichment engine.
// It holds no per-run state and may be shared between goroutines.
type Controller struct {
	engine *enrichment.Engine
}

// NewController returns a controller using engine, or a default engine if
// engine is nil.
func NewController(engine *enrichment.Engine) *Controller {
	if engine == nil {
		engine = enrichment.New()
	}
	return &Controller{engine: engine}
}

// Execute runs an iterative analysis with a default controller.
func Execute(ctx context.Context, gs *geneset.GeneSet, lib *geneset.Library, bg *geneset.Background, opts Options) (*Run, error) {
	return NewController(nil).Run(ctx, gs, lib, bg, opts)
}

// Run peels terms off gs until a stop condition fires.
//
// The error is non-nil only for invalid options or missing inputs. Failures
// during the loop are reported through Run.StopReason and Run.Err, with the
// records committed so far.
func (c *Controller) Run(ctx context.Context, gs *geneset.GeneSet, lib *geneset.Library, bg *geneset.Background, opts Options) (*Run, error) {
	opts.SetDefaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if gs == nil || lib == nil || bg == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "gene set, library and background are required")
	}
	logger := opts.Logger.With("library", lib.Name())
	hooks := observability.Iterative()

	start := time.Now()
	run := &Run{
		GeneSet:    gs.Name(),
		Library:    lib.Name(),
		Background: bg.Name(),
		Records:    []Record{},
	}

	remaining := gs.Genes()
	stop := func(reason StopReason, err error) (*Run, error) {
		run.StopReason = reason
		run.Err = err
		run.Remaining = remaining.IDs()
		run.Duration = time.Since(start)
		hooks.OnStop(ctx, lib.Name(), string(reason), len(run.Records))
		return run, nil
	}

	for iteration := 1; ; iteration++ {
		if remaining.Len() == 0 {
			logger.Info("no genes left, stopping", "iterations", len(run.Records))
			return stop(StopExhausted, nil)
		}
		if opts.MaxIterations > 0 && iteration > opts.MaxIterations {
			logger.Warn("reached max iterations, stopping", "max", opts.MaxIterations)
			return stop(StopIterationCap, nil)
		}
		if err := ctx.Err(); err != nil {
			logger.Warn("canceled", "iteration", iteration, "err", err)
			return stop(StopCanceled, err)
		}

		current := geneset.FromSet(gs.Name(), remaining)
		res, err := c.engine.Compute(ctx, current, lib, bg, opts.Options)
		if err == nil && res.Failed() {
			err = res.Err
		}
		if err != nil {
			logger.Error("enrichment failed", "iteration", iteration, "err", err)
			return stop(StopFailed, err)
		}

		top, ok := res.Top(opts.MinOverlap)
		if !ok {
			logger.Info("no term meets minimum overlap, stopping",
				"iteration", iteration,
				"min_overlap", opts.MinOverlap)
			return stop(StopNoQualifyingTerm, nil)
		}
		if top.PValue >= opts.PThreshold {
			logger.Info("top term above p-value threshold, stopping",
				"iteration", iteration,
				"term", top.Term,
				"p_value", top.PValue,
				"threshold", opts.PThreshold)
			return stop(StopBelowSignificance, nil)
		}

		run.Records = append(run.Records, Record{
			Iteration:   iteration,
			Term:        top.Term,
			Library:     lib.Name(),
			PValue:      top.PValue,
			OverlapSize: top.OverlapSize,
			Genes:       top.Overlap,
		})
		remaining = remaining.Without(top.Overlap...)
		hooks.OnIteration(ctx, lib.Name(), iteration, top.Term, len(top.Overlap))
		logger.Info("peeled term",
			"iteration", iteration,
			"term", top.Term,
			"p_value", top.PValue,
			"removed", len(top.Overlap),
			"remaining", remaining.Len())
	}
}
