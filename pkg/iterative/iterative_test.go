package iterative

import (
	"context"
	"fmt"
	"slices"
	"testing"

	"github.com/matzehuels/iterenrich/pkg/enrichment"
	"github.com/matzehuels/iterenrich/pkg/errors"
	"github.com/matzehuels/iterenrich/pkg/geneset"
	"github.com/matzehuels/iterenrich/pkg/stats"
)

func genes(prefix string, from, to int) []string {
	out := make([]string, 0, to-from+1)
	for i := from; i <= to; i++ {
		out = append(out, fmt.Sprintf("%s%d", prefix, i))
	}
	return out
}

type fixture struct {
	gs  *geneset.GeneSet
	lib *geneset.Library
	bg  *geneset.Background
}

// pairs builds a library of disjoint two-gene terms T1={G1,G2}, T2={G3,G4}, ...
func pairs(t *testing.T, numTerms int) fixture {
	t.Helper()
	terms := make([]*geneset.Term, 0, numTerms)
	for i := range numTerms {
		term, err := geneset.NewTerm(fmt.Sprintf("T%d", i+1), "", genes("G", 2*i+1, 2*i+2))
		if err != nil {
			t.Fatal(err)
		}
		terms = append(terms, term)
	}
	lib, err := geneset.NewLibrary("pairs", terms)
	if err != nil {
		t.Fatal(err)
	}
	bg, _, err := geneset.NewBackground("bg", genes("G", 1, 100))
	if err != nil {
		t.Fatal(err)
	}
	return fixture{
		gs:  geneset.FromValidated("input", genes("G", 1, 2*numTerms)),
		lib: lib,
		bg:  bg,
	}
}

// sliding builds twelve overlapping ten-gene terms over G1..G43 and a gene
// set of G1..G20. Later terms share genes with earlier ones, so peeling must
// shrink their overlaps.
func sliding(t *testing.T) fixture {
	t.Helper()
	var list []*geneset.Term
	for i := range 12 {
		term, err := geneset.NewTerm(fmt.Sprintf("T%02d", i), "", genes("G", 1+3*i, 10+3*i))
		if err != nil {
			t.Fatal(err)
		}
		list = append(list, term)
	}
	lib, err := geneset.NewLibrary("sliding", list)
	if err != nil {
		t.Fatal(err)
	}
	bg, _, err := geneset.NewBackground("bg", genes("G", 1, 500))
	if err != nil {
		t.Fatal(err)
	}
	return fixture{gs: geneset.FromValidated("input", genes("G", 1, 20)), lib: lib, bg: bg}
}

func constant(p float64) enrichment.TestFunc {
	return func(stats.Method, stats.Table) (float64, error) { return p, nil }
}

func options() Options {
	opts := DefaultOptions()
	opts.MinTermSize = 1
	return opts
}

func terms(run *Run) []string {
	out := make([]string, len(run.Records))
	for i, r := range run.Records {
		out[i] = r.Term
	}
	return out
}

func TestRunBelowSignificance(t *testing.T) {
	f := pairs(t, 3)
	c := NewController(enrichment.NewWithTest(constant(0.5)))

	opts := options()
	opts.PThreshold = 0.01
	run, err := c.Run(context.Background(), f.gs, f.lib, f.bg, opts)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(run.Records) != 0 {
		t.Errorf("len(Records) = %d, want 0", len(run.Records))
	}
	if run.StopReason != StopBelowSignificance {
		t.Errorf("StopReason = %q, want %q", run.StopReason, StopBelowSignificance)
	}
}

func TestRunThresholdIsExclusive(t *testing.T) {
	f := pairs(t, 2)
	c := NewController(enrichment.NewWithTest(constant(0.01)))

	opts := options()
	opts.PThreshold = 0.01
	run, err := c.Run(context.Background(), f.gs, f.lib, f.bg, opts)
	if err != nil {
		t.Fatal(err)
	}
	if len(run.Records) != 0 || run.StopReason != StopBelowSignificance {
		t.Errorf("p == threshold: %d records, reason %q", len(run.Records), run.StopReason)
	}
}

func TestRunIterationCap(t *testing.T) {
	f := pairs(t, 3)
	c := NewController(enrichment.NewWithTest(constant(0.001)))

	opts := options()
	opts.MaxIterations = 2
	run, err := c.Run(context.Background(), f.gs, f.lib, f.bg, opts)
	if err != nil {
		t.Fatal(err)
	}
	if run.StopReason != StopIterationCap {
		t.Errorf("StopReason = %q, want %q", run.StopReason, StopIterationCap)
	}
	if got := terms(run); !slices.Equal(got, []string{"T1", "T2"}) {
		t.Errorf("terms = %v, want [T1 T2]", got)
	}
	if !slices.Equal(run.Remaining, []string{"G5", "G6"}) {
		t.Errorf("Remaining = %v, want [G5 G6]", run.Remaining)
	}
}

func TestRunExhaustion(t *testing.T) {
	f := pairs(t, 4)
	c := NewController(enrichment.NewWithTest(constant(0.001)))

	run, err := c.Run(context.Background(), f.gs, f.lib, f.bg, options())
	if err != nil {
		t.Fatal(err)
	}
	if run.StopReason != StopExhausted {
		t.Errorf("StopReason = %q, want %q", run.StopReason, StopExhausted)
	}
	if len(run.Records) != 4 {
		t.Fatalf("len(Records) = %d, want 4", len(run.Records))
	}
	for i, r := range run.Records {
		if r.Iteration != i+1 {
			t.Errorf("Records[%d].Iteration = %d", i, r.Iteration)
		}
		if r.Library != "pairs" || r.OverlapSize != "2/2" {
			t.Errorf("Records[%d] = %+v", i, r)
		}
	}
	if len(run.Remaining) != 0 {
		t.Errorf("Remaining = %v, want empty", run.Remaining)
	}
}

func TestRunNoQualifyingTerm(t *testing.T) {
	f := pairs(t, 3)
	c := NewController(enrichment.NewWithTest(constant(0.001)))

	opts := options()
	opts.MinOverlap = 3
	run, err := c.Run(context.Background(), f.gs, f.lib, f.bg, opts)
	if err != nil {
		t.Fatal(err)
	}
	if run.StopReason != StopNoQualifyingTerm || len(run.Records) != 0 {
		t.Errorf("StopReason = %q, records = %d", run.StopReason, len(run.Records))
	}
}

func TestRunFailureKeepsCommittedRecords(t *testing.T) {
	f := pairs(t, 3)
	// Succeeds while all six genes remain, fails once some were removed.
	failing := func(_ stats.Method, table stats.Table) (float64, error) {
		if table.A+table.C < 6 {
			return 0, fmt.Errorf("numeric failure")
		}
		return 0.001, nil
	}
	c := NewController(enrichment.NewWithTest(failing))

	run, err := c.Run(context.Background(), f.gs, f.lib, f.bg, options())
	if err != nil {
		t.Fatalf("Run() error = %v, want nil", err)
	}
	if run.StopReason != StopFailed {
		t.Errorf("StopReason = %q, want %q", run.StopReason, StopFailed)
	}
	if !errors.Is(run.Err, errors.ErrCodeComputation) {
		t.Errorf("Err = %v, want COMPUTATION_FAILED", run.Err)
	}
	if got := terms(run); !slices.Equal(got, []string{"T1"}) {
		t.Errorf("terms = %v, want the committed [T1]", got)
	}
	if run.StopReason.Clean() {
		t.Error("failed run reported as clean")
	}
}

func TestRunCanceled(t *testing.T) {
	f := pairs(t, 3)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	run, err := Execute(ctx, f.gs, f.lib, f.bg, options())
	if err != nil {
		t.Fatal(err)
	}
	if run.StopReason != StopCanceled || len(run.Records) != 0 {
		t.Errorf("StopReason = %q, records = %d", run.StopReason, len(run.Records))
	}
}

func TestRunGenesNeverReappear(t *testing.T) {
	f := sliding(t)
	gs, lib, bg := f.gs, f.lib, f.bg

	opts := options()
	opts.PThreshold = 0.5
	run, err := Execute(context.Background(), gs, lib, bg, opts)
	if err != nil {
		t.Fatal(err)
	}
	if !run.StopReason.Clean() {
		t.Fatalf("StopReason = %q, Err = %v", run.StopReason, run.Err)
	}
	if len(run.Records) == 0 {
		t.Fatal("expected at least one iteration")
	}

	seen := map[string]bool{}
	left := gs.Size()
	for _, r := range run.Records {
		if len(r.Genes) == 0 {
			t.Errorf("iteration %d removed no genes", r.Iteration)
		}
		for _, g := range r.Genes {
			if seen[g] {
				t.Errorf("gene %s reappeared in iteration %d", g, r.Iteration)
			}
			seen[g] = true
		}
		left -= len(r.Genes)
	}
	if len(seen) > gs.Size() {
		t.Errorf("removed %d genes from a set of %d", len(seen), gs.Size())
	}
	if left != len(run.Remaining) {
		t.Errorf("remaining = %d, want %d", len(run.Remaining), left)
	}
	if gs.Size() != 20 {
		t.Errorf("input gene set was modified: size %d", gs.Size())
	}
}

func TestRunDeterministic(t *testing.T) {
	f := sliding(t)
	opts := options()
	opts.PThreshold = 0.5

	first, err := Execute(context.Background(), f.gs, f.lib, f.bg, opts)
	if err != nil {
		t.Fatal(err)
	}
	for range 3 {
		again, err := Execute(context.Background(), f.gs, f.lib, f.bg, opts)
		if err != nil {
			t.Fatal(err)
		}
		if len(first.Records) == 0 || !slices.Equal(terms(again), terms(first)) {
			t.Errorf("terms = %v, want %v", terms(again), terms(first))
		}
	}
}

func TestRunInvalidOptions(t *testing.T) {
	f := pairs(t, 2)
	tests := []struct {
		name   string
		mutate func(*Options)
		code   errors.Code
	}{
		{"threshold above one", func(o *Options) { o.PThreshold = 1.5 }, errors.ErrCodeInvalidThreshold},
		{"negative threshold", func(o *Options) { o.PThreshold = -0.1 }, errors.ErrCodeInvalidThreshold},
		{"negative overlap", func(o *Options) { o.MinOverlap = -1 }, errors.ErrCodeInvalidInput},
		{"negative iterations", func(o *Options) { o.MaxIterations = -1 }, errors.ErrCodeInvalidInput},
		{"bad method", func(o *Options) { o.Method = "anova" }, errors.ErrCodeInvalidMethod},
		{"bad sizes", func(o *Options) { o.MinTermSize, o.MaxTermSize = 5, 2 }, errors.ErrCodeInvalidTermSize},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := options()
			tt.mutate(&opts)
			run, err := Execute(context.Background(), f.gs, f.lib, f.bg, opts)
			if !errors.Is(err, tt.code) {
				t.Errorf("error = %v, want %s", err, tt.code)
			}
			if run != nil {
				t.Error("expected no run for invalid options")
			}
		})
	}
}

func TestRunEmptyGeneSet(t *testing.T) {
	f := pairs(t, 2)
	run, err := Execute(context.Background(), geneset.FromValidated("empty", nil), f.lib, f.bg, options())
	if err != nil {
		t.Fatal(err)
	}
	if run.StopReason != StopExhausted || len(run.Records) != 0 {
		t.Errorf("StopReason = %q, records = %d", run.StopReason, len(run.Records))
	}
}
