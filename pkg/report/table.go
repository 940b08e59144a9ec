package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/matzehuels/iterenrich/pkg/enrichment"
	"github.com/matzehuels/iterenrich/pkg/iterative"
)

// Column headers of the tabular outputs.
var (
	EnrichmentColumns         = []string{"rank", "term", "description", "overlap_size", "overlap", "p_value", "fdr"}
	IterationColumns          = []string{"iteration", "library", "term", "p_value", "overlap_size", "genes"}
	CombinedEnrichmentColumns = append([]string{"library"}, EnrichmentColumns...)
	CombinedIterationColumns  = []string{"library", "iteration", "term", "p_value", "-log10_p", "genes"}
)

// WriteEnrichmentTSV writes ranked records as tab-separated values with a
// header row. Rows keep rank order; gene lists are comma-joined.
func WriteEnrichmentTSV(w io.Writer, records []enrichment.Record) error {
	tw := newTSV(w)
	rows := [][]string{EnrichmentColumns}
	for _, r := range records {
		rows = append(rows, enrichmentRow(r))
	}
	return flush(tw, rows)
}

// WriteIterationTSV writes iteration records, in iteration order.
func WriteIterationTSV(w io.Writer, records []iterative.Record) error {
	tw := newTSV(w)
	rows := [][]string{IterationColumns}
	for _, r := range records {
		rows = append(rows, []string{
			strconv.Itoa(r.Iteration),
			r.Library,
			r.Term,
			formatFloat(r.PValue),
			r.OverlapSize,
			strings.Join(r.Genes, ","),
		})
	}
	return flush(tw, rows)
}

// WriteCombinedEnrichmentTSV writes the results of several libraries into one
// table, prefixed by a library column. Results are written in the given order.
func WriteCombinedEnrichmentTSV(w io.Writer, results []*enrichment.Result) error {
	tw := newTSV(w)
	rows := [][]string{CombinedEnrichmentColumns}
	for _, res := range results {
		for _, r := range res.Records {
			rows = append(rows, append([]string{res.Library}, enrichmentRow(r)...))
		}
	}
	return flush(tw, rows)
}

// WriteCombinedIterationTSV writes the iterations of several runs into one
// table with an extra -log10(p) column. The column is empty when p is 0.
func WriteCombinedIterationTSV(w io.Writer, runs []*iterative.Run) error {
	tw := newTSV(w)
	rows := [][]string{CombinedIterationColumns}
	for _, run := range runs {
		for _, r := range run.Records {
			rows = append(rows, []string{
				run.Library,
				strconv.Itoa(r.Iteration),
				r.Term,
				formatFloat(r.PValue),
				negLog10(r.PValue),
				strings.Join(r.Genes, ","),
			})
		}
	}
	return flush(tw, rows)
}

func enrichmentRow(r enrichment.Record) []string {
	return []string{
		strconv.Itoa(r.Rank),
		r.Term,
		r.Description,
		r.OverlapSize,
		strings.Join(r.Overlap, ","),
		formatFloat(r.PValue),
		formatFloat(r.FDR),
	}
}

func newTSV(w io.Writer) *csv.Writer {
	tw := csv.NewWriter(w)
	tw.Comma = '\t'
	return tw
}

func flush(tw *csv.Writer, rows [][]string) error {
	if err := tw.WriteAll(rows); err != nil {
		return fmt.Errorf("write tsv: %w", err)
	}
	return nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func negLog10(p float64) string {
	if p <= 0 {
		return ""
	}
	return formatFloat(-math.Log10(p))
}
