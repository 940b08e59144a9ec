package enrichment

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/matzehuels/iterenrich/pkg/stats"
)

// Record is the result for one term, in ranked order.
type Record struct {
	Term        string   `json:"term"`
	OverlapSize string   `json:"overlap_size"`
	Description string   `json:"description"`
	Overlap     []string `json:"overlap_genes"`
	PValue      float64  `json:"p_value"`
	FDR         float64  `json:"fdr"`
	Rank        int      `json:"rank"`
}

// OverlapCount returns k, the number of genes shared with the term.
func (r Record) OverlapCount() int { return len(r.Overlap) }

// TermSize parses n back out of OverlapSize.
func (r Record) TermSize() int {
	_, n, ok := strings.Cut(r.OverlapSize, "/")
	if !ok {
		return 0
	}
	size, _ := strconv.Atoi(n)
	return size
}

func formatOverlap(k, n int) string {
	return fmt.Sprintf("%d/%d", k, n)
}

// Status describes how a run ended. Only StatusFailed is a failure; the
// other non-OK statuses are valid, empty outcomes.
type Status string

const (
	StatusOK           Status = "ok"
	StatusNoTerms      Status = "no_terms"
	StatusEmptyGeneSet Status = "empty_gene_set"
	StatusFailed       Status = "failed"
)

// Result holds the ranked records of one run together with its diagnostics.
type Result struct {
	GeneSet    string       `json:"gene_set"`
	Library    string       `json:"library"`
	Background string       `json:"background"`
	Method     stats.Method `json:"method"`

	// Records are sorted by ascending p-value; Records[i].Rank == i+1.
	Records []Record `json:"records"`

	Status Status `json:"status"`
	// Err is the cause when Status is StatusFailed.
	Err error `json:"-"`

	// LibraryBackgroundSize is M, the background genes annotated in the library.
	LibraryBackgroundSize int           `json:"library_background_size"`
	TermsTested           int           `json:"terms_tested"`
	Duration              time.Duration `json:"duration"`
}

// Failed reports whether the run failed.
func (r *Result) Failed() bool { return r.Status == StatusFailed }

// Filter returns the records with at least minOverlap overlapping genes.
// Ranks are left as computed.
func (r *Result) Filter(minOverlap int) []Record {
	out := make([]Record, 0, len(r.Records))
	for _, rec := range r.Records {
		if rec.OverlapCount() >= minOverlap {
			out = append(out, rec)
		}
	}
	return out
}

// Top returns the best-ranked record with at least minOverlap overlapping
// genes, or false if there is none.
func (r *Result) Top(minOverlap int) (Record, bool) {
	for _, rec := range r.Records {
		if rec.OverlapCount() >= minOverlap {
			return rec, true
		}
	}
	return Record{}, false
}
