package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/iterenrich/pkg/cache"
	"github.com/matzehuels/iterenrich/pkg/enrichment"
	"github.com/matzehuels/iterenrich/pkg/errors"
	"github.com/matzehuels/iterenrich/pkg/geneset"
	"github.com/matzehuels/iterenrich/pkg/report"
	"github.com/matzehuels/iterenrich/pkg/stats"
)

func ids(prefix string, from, to int) []string {
	var out []string
	for i := from; i <= to; i++ {
		out = append(out, fmt.Sprintf("%s%d", prefix, i))
	}
	return out
}

func library(t *testing.T, name string, terms map[string][]string, order ...string) *geneset.Library {
	t.Helper()
	var list []*geneset.Term
	for _, n := range order {
		term, err := geneset.NewTerm(n, "", terms[n])
		require.NoError(t, err)
		list = append(list, term)
	}
	lib, err := geneset.NewLibrary(name, list)
	require.NoError(t, err)
	return lib
}

type fixture struct {
	gs     *geneset.GeneSet
	bg     *geneset.Background
	good   *geneset.Library
	broken *geneset.Library
}

// newFixture builds a gene set G1..G4 over a background G1..G20. The broken
// library annotates mostly genes outside the background, which gives Fisher's
// test a negative cell.
func newFixture(t *testing.T) fixture {
	t.Helper()
	bg, _, err := geneset.NewBackground("bg", ids("G", 1, 20))
	require.NoError(t, err)
	return fixture{
		gs: geneset.FromValidated("input", ids("G", 1, 4)),
		bg: bg,
		good: library(t, "good", map[string][]string{
			"T1": {"G1", "G2", "G3"},
			"T2": ids("G", 5, 8),
			"T3": ids("G", 9, 20),
		}, "T1", "T2", "T3"),
		broken: library(t, "broken", map[string][]string{
			"X": {"G1", "G2", "X1", "X2", "X3"},
		}, "X"),
	}
}

func testOptions(mode string) Options {
	opts := DefaultOptions()
	opts.Mode = mode
	opts.MinTermSize = 1
	return opts
}

func TestValidateMode(t *testing.T) {
	tests := []struct {
		mode    string
		wantErr bool
	}{
		{"regular", false},
		{"iterative", false},
		{"Regular", true},
		{"", true},
	}
	for _, tt := range tests {
		err := ValidateMode(tt.mode)
		assert.Equal(t, tt.wantErr, err != nil, "ValidateMode(%q) error = %v", tt.mode, err)
	}
}

func TestOptionsValidateAndSetDefaults(t *testing.T) {
	var opts Options
	require.NoError(t, opts.ValidateAndSetDefaults())
	assert.Equal(t, ModeRegular, opts.Mode)
	assert.Equal(t, stats.MethodFisher, opts.Method)
	assert.Equal(t, enrichment.DefaultMaxTermSize, opts.MaxTermSize)
	assert.NotNil(t, opts.Logger)

	bad := testOptions(ModeIterative)
	bad.PThreshold = 2
	assert.True(t, errors.Is(bad.ValidateAndSetDefaults(), errors.ErrCodeInvalidThreshold))

	bad = testOptions("batch")
	assert.True(t, errors.Is(bad.ValidateAndSetDefaults(), errors.ErrCodeInvalidInput))
}

func TestOptionsParameters(t *testing.T) {
	opts := testOptions(ModeRegular)
	require.NoError(t, opts.ValidateAndSetDefaults())
	assert.NotContains(t, opts.Parameters(), "p_threshold")

	opts = testOptions(ModeIterative)
	require.NoError(t, opts.ValidateAndSetDefaults())
	params := opts.Parameters()
	assert.Equal(t, 0.01, params["p_threshold"])
	assert.Equal(t, string(stats.MethodFisher), params["method"])
}

func TestExecuteRegular(t *testing.T) {
	f := newFixture(t)
	r := NewRunner(nil, nil, nil)

	res, err := r.Execute(context.Background(), Input{
		GeneSet:    f.gs,
		Background: f.bg,
		Libraries:  []*geneset.Library{f.good},
	}, testOptions(ModeRegular))
	require.NoError(t, err)

	require.Len(t, res.Enrichment, 1)
	assert.Empty(t, res.Failures)
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, 3, res.Stats.Records)
	assert.Equal(t, "T1", res.Enrichment[0].Records[0].Term)
	assert.Equal(t, []string{ArtifactCombinedRegular, ArtifactRegularSnapshot}, res.ArtifactNames())

	snap, err := report.ReadSnapshot(bytes.NewReader(res.Artifacts[ArtifactRegularSnapshot]))
	require.NoError(t, err)
	assert.Equal(t, res.RunID, snap.RunID)
	assert.Equal(t, 20, snap.BackgroundSize)
	ls, ok := snap.Library("good")
	require.True(t, ok)
	assert.Equal(t, 19, ls.LibraryBackgroundSize)
	assert.Equal(t, 19, ls.LibrarySize)
}

func TestExecuteIterative(t *testing.T) {
	f := newFixture(t)
	r := NewRunner(nil, nil, nil)

	res, err := r.Execute(context.Background(), Input{
		GeneSet:    f.gs,
		Background: f.bg,
		Libraries:  []*geneset.Library{f.good},
	}, testOptions(ModeIterative))
	require.NoError(t, err)

	require.Len(t, res.Iterative, 1)
	run := res.Iterative[0]
	require.Len(t, run.Records, 1)
	assert.Equal(t, "T1", run.Records[0].Term)
	assert.Equal(t, []string{"G4"}, run.Remaining)

	for _, name := range []string{
		ArtifactCombinedIterative,
		ArtifactIterativeSnapshot,
		ArtifactMergedNetwork,
		ArtifactAnalysisPrompt,
		LibraryNetworkArtifact("good"),
	} {
		assert.Contains(t, res.Artifacts, name)
	}

	net, err := report.ParseDOT(bytes.NewReader(res.Artifacts[LibraryNetworkArtifact("good")]))
	require.NoError(t, err)
	assert.Equal(t, 4, net.NodeCount())
	assert.Equal(t, 3, net.EdgeCount())
}

func TestExecuteIsolatesLibraryFailures(t *testing.T) {
	f := newFixture(t)
	r := NewRunner(nil, nil, nil)

	res, err := r.Execute(context.Background(), Input{
		GeneSet:    f.gs,
		Background: f.bg,
		Libraries:  []*geneset.Library{f.broken, f.good},
	}, testOptions(ModeRegular))
	require.NoError(t, err)

	require.Len(t, res.Failures, 1)
	assert.Equal(t, "broken", res.Failures[0].Library)
	assert.True(t, errors.Is(res.Failures[0].Err, errors.ErrCodeComputation))
	assert.False(t, res.Failed())

	require.Len(t, res.Enrichment, 2)
	assert.Equal(t, enrichment.StatusFailed, res.Enrichment[0].Status)
	assert.Equal(t, enrichment.StatusOK, res.Enrichment[1].Status)
	assert.Equal(t, 3, res.Stats.Records)
}

func TestExecuteInvalidInput(t *testing.T) {
	f := newFixture(t)
	r := NewRunner(nil, nil, nil)

	_, err := r.Execute(context.Background(), Input{GeneSet: f.gs, Background: f.bg}, testOptions(ModeRegular))
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidLibrary))

	_, err = r.Execute(context.Background(), Input{Background: f.bg, Libraries: []*geneset.Library{f.good}}, testOptions(ModeRegular))
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidGeneSet))
}

func TestExecuteUsesCache(t *testing.T) {
	f := newFixture(t)
	c, err := cache.NewFileCache(t.TempDir())
	require.NoError(t, err)
	r := NewRunner(c, nil, nil)
	input := Input{GeneSet: f.gs, Background: f.bg, Libraries: []*geneset.Library{f.good, f.broken}}

	for _, mode := range []string{ModeRegular, ModeIterative} {
		t.Run(mode, func(t *testing.T) {
			first, err := r.Execute(context.Background(), input, testOptions(mode))
			require.NoError(t, err)
			assert.Equal(t, CacheInfo{Hits: 0, Misses: 2}, first.CacheInfo)

			second, err := r.Execute(context.Background(), input, testOptions(mode))
			require.NoError(t, err)
			// The failed library is never cached.
			assert.Equal(t, CacheInfo{Hits: 1, Misses: 1}, second.CacheInfo)
			assert.Equal(t, first.Stats.Records, second.Stats.Records)

			opts := testOptions(mode)
			opts.Refresh = true
			third, err := r.Execute(context.Background(), input, opts)
			require.NoError(t, err)
			assert.Equal(t, 0, third.CacheInfo.Hits)
		})
	}
}

func TestCacheHitKeepsCallerNames(t *testing.T) {
	f := newFixture(t)
	c, err := cache.NewFileCache(t.TempDir())
	require.NoError(t, err)
	r := NewRunner(c, nil, nil)
	renamedBg, _, err := geneset.NewBackground("universe", ids("G", 1, 20))
	require.NoError(t, err)

	for _, mode := range []string{ModeRegular, ModeIterative} {
		t.Run(mode, func(t *testing.T) {
			alpha := Input{GeneSet: geneset.FromValidated("alpha", ids("G", 1, 4)), Background: f.bg, Libraries: []*geneset.Library{f.good}}
			_, err := r.Execute(context.Background(), alpha, testOptions(mode))
			require.NoError(t, err)

			beta := Input{GeneSet: geneset.FromValidated("beta", ids("G", 1, 4)), Background: renamedBg, Libraries: []*geneset.Library{f.good}}
			res, err := r.Execute(context.Background(), beta, testOptions(mode))
			require.NoError(t, err)
			require.Equal(t, 1, res.CacheInfo.Hits)

			if mode == ModeIterative {
				require.Len(t, res.Iterative, 1)
				assert.Equal(t, "beta", res.Iterative[0].GeneSet)
				assert.Equal(t, "universe", res.Iterative[0].Background)
			} else {
				require.Len(t, res.Enrichment, 1)
				assert.Equal(t, "beta", res.Enrichment[0].GeneSet)
				assert.Equal(t, "universe", res.Enrichment[0].Background)
			}
		})
	}
}

func TestCacheKeyTracksOptions(t *testing.T) {
	f := newFixture(t)
	c, err := cache.NewFileCache(t.TempDir())
	require.NoError(t, err)
	r := NewRunner(c, nil, nil)
	input := Input{GeneSet: f.gs, Background: f.bg, Libraries: []*geneset.Library{f.good}}

	_, err = r.Execute(context.Background(), input, testOptions(ModeRegular))
	require.NoError(t, err)

	opts := testOptions(ModeRegular)
	opts.Method = stats.MethodHypergeometric
	res, err := r.Execute(context.Background(), input, opts)
	require.NoError(t, err)
	assert.Equal(t, 0, res.CacheInfo.Hits)
	assert.Equal(t, stats.MethodHypergeometric, res.Enrichment[0].Method)
}

func TestExecuteAll(t *testing.T) {
	f := newFixture(t)
	r := NewRunner(nil, nil, nil)
	sets := []*geneset.GeneSet{f.gs, geneset.FromValidated("second", ids("G", 5, 8))}

	results, err := r.ExecuteAll(context.Background(), sets, f.bg, []*geneset.Library{f.good}, testOptions(ModeRegular))
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "second", results[1].GeneSet)
	assert.Equal(t, "T2", results[1].Enrichment[0].Records[0].Term)
	assert.NotEqual(t, results[0].RunID, results[1].RunID)
}

func TestWriteArtifacts(t *testing.T) {
	f := newFixture(t)
	r := NewRunner(nil, nil, nil)
	res, err := r.Execute(context.Background(), Input{
		GeneSet:    f.gs,
		Background: f.bg,
		Libraries:  []*geneset.Library{f.good},
	}, testOptions(ModeIterative))
	require.NoError(t, err)

	dir := t.TempDir()
	paths, err := res.WriteArtifacts(dir)
	require.NoError(t, err)
	assert.Len(t, paths, len(res.Artifacts))

	data, err := os.ReadFile(filepath.Join(dir, "input", ArtifactCombinedIterative))
	require.NoError(t, err)
	assert.Equal(t, res.Artifacts[ArtifactCombinedIterative], data)

	res.GeneSet = "../escape"
	_, err = res.WriteArtifacts(dir)
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidName))
}
