package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/matzehuels/iterenrich/pkg/config"
	"github.com/matzehuels/iterenrich/pkg/pipeline"
)

// analyzeOpts holds the command-line flags shared by enrich and iterate.
type analyzeOpts struct {
	geneSets       []string // gene set JSON files
	libraries      []string // library JSON files
	libraryNames   []string // catalog library names
	background     string   // background JSON file
	backgroundName string   // catalog background name
	refresh        bool     // recompute and overwrite cached results
	noWrite        bool     // print the summary only
}

// enrichCommand creates the single-pass enrichment command.
func (c *CLI) enrichCommand() *cobra.Command {
	return c.analyzeCommand(pipeline.ModeRegular, &cobra.Command{
		Use:   "enrich",
		Short: "Rank the terms of each library by enrichment p-value",
		Example: `  iterenrich enrich -g genes.json -b background.json -l kegg.json
  iterenrich enrich -g a.json,b.json --library-name KEGG_2021_Human --method hypergeom`,
	})
}

// iterateCommand creates the iterative enrichment command.
func (c *CLI) iterateCommand() *cobra.Command {
	cmd := c.analyzeCommand(pipeline.ModeIterative, &cobra.Command{
		Use:   "iterate",
		Short: "Peel significant terms off a gene set one at a time",
		Long: `Iterative enrichment repeatedly tests the remaining genes, records the most
significant term with enough overlapping genes, and removes those genes before
the next round. It stops when no genes remain, no term qualifies, the best
p-value reaches --p-threshold, or --max-iterations rounds have run.

Besides the combined results and snapshot, each library with at least one
removed term gets a DOT network, and all libraries together a merged network
and an analysis prompt.`,
		Example: `  iterenrich iterate -g genes.json -b background.json -l kegg.json -l reactome.json
  iterenrich iterate -g genes.json --p-threshold 0.001 --min-overlap 5`,
	})

	d := config.Default()
	cmd.Flags().Float64("p-threshold", d.Iterative.PThreshold, "stop once the best p-value reaches this value")
	cmd.Flags().Int("max-iterations", d.Iterative.MaxIterations, "maximum number of rounds (0 = unlimited)")
	cmd.Flags().Int("min-overlap", d.Iterative.MinOverlap, "minimum overlapping genes for a term to be removed")
	return cmd
}

// analyzeCommand adds the shared flags and run function to cmd.
func (c *CLI) analyzeCommand(mode string, cmd *cobra.Command) *cobra.Command {
	var opts analyzeOpts

	cmd.Args = cobra.NoArgs
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		if len(opts.geneSets) == 0 {
			return fmt.Errorf("at least one --gene-set is required")
		}
		cfg, err := c.loadConfig(cmd)
		if err != nil {
			return err
		}
		return c.runAnalysis(cmd.Context(), cfg, mode, &opts)
	}

	f := cmd.Flags()
	f.StringSliceVarP(&opts.geneSets, "gene-set", "g", nil, "gene set JSON file(s)")
	f.StringSliceVarP(&opts.libraries, "library", "l", nil, "library JSON file(s)")
	f.StringSliceVar(&opts.libraryNames, "library-name", nil, "catalog library name(s) (default: active catalog libraries)")
	f.StringVarP(&opts.background, "background", "b", "", "background JSON file")
	f.StringVar(&opts.backgroundName, "background-name", "", "catalog background name (default: the catalog default)")
	f.BoolVar(&opts.refresh, "refresh", false, "recompute results even if cached")
	f.BoolVar(&opts.noWrite, "no-write", false, "print the summary without writing result files")
	f.StringP("output-dir", "o", config.DefaultOutputDir, "directory for result files")
	addEngineFlags(f)

	return cmd
}

// addEngineFlags registers the enrichment engine flags.
func addEngineFlags(f *pflag.FlagSet) {
	d := config.Default()
	f.String("method", d.Engine.Method, "p-value method: fisher, hypergeom, chi2")
	f.Int("min-term-size", d.Engine.MinTermSize, "skip terms with fewer genes")
	f.Int("max-term-size", d.Engine.MaxTermSize, "skip terms with more genes")
	f.Int("workers", d.Engine.Workers, "parallel term tests (0 = number of CPUs)")
}

// runAnalysis loads the inputs, analyzes every gene set and writes results.
// Results finished before a cancellation are still written.
func (c *CLI) runAnalysis(ctx context.Context, cfg *config.Config, mode string, opts *analyzeOpts) error {
	logger := loggerFromContext(ctx)
	prog := newProgress(logger)

	in, err := loadInputs(logger, cfg, opts)
	if err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Loaded %d gene set(s), %d librar%s", len(in.geneSets), len(in.libraries), plural(len(in.libraries), "y", "ies")))

	runner, err := c.newRunner(ctx, cfg, nil)
	if err != nil {
		return err
	}
	defer runner.Close()

	spinner := newSpinner(ctx, os.Stderr, fmt.Sprintf("Running %s enrichment...", mode))
	spinner.Start()
	results, runErr := runner.ExecuteAll(ctx, in.geneSets, in.background, in.libraries, pipelineOptions(cfg, mode, opts.refresh))
	spinner.Stop()
	if spinner.Cancelled() {
		printWarning("Interrupted; keeping %d finished result(s)", len(results))
	}

	failed := 0
	for _, res := range results {
		printResult(res, mode)
		if res.Failed() {
			failed++
		}
		if opts.noWrite {
			continue
		}
		paths, err := res.WriteArtifacts(cfg.OutputDir)
		if err != nil {
			return fmt.Errorf("write results for %s: %w", res.GeneSet, err)
		}
		for _, p := range paths {
			printFile(p)
		}
	}

	if runErr == nil {
		runErr = ctx.Err()
	}
	if runErr != nil {
		return runErr
	}
	if failed > 0 {
		return fmt.Errorf("%d gene set(s) failed against every library", failed)
	}
	return nil
}

// printResult prints the per-library table of one analysis.
func printResult(res *pipeline.Result, mode string) {
	printNewline()
	printSuccess("%s %s", StyleTitle.Render(res.GeneSet), StyleDim.Render("("+mode+")"))

	if mode == pipeline.ModeIterative {
		fmt.Println(iterationTable(res.Iterative))
	} else {
		fmt.Println(enrichmentTable(res.Enrichment))
	}

	for _, f := range res.Failures {
		printWarning("%s: %s", f.Library, f.Message)
	}
	printStats(res.Stats.Libraries, res.Stats.Records, res.CacheInfo.Hits, res.Stats.ComputeTime)
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
