package report

import (
	"io"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/iterenrich/pkg/enrichment"
	"github.com/matzehuels/iterenrich/pkg/geneset"
	"github.com/matzehuels/iterenrich/pkg/iterative"
)

// SnapshotVersion is bumped whenever the snapshot layout changes.
const SnapshotVersion = 1

// Snapshot captures everything needed to reproduce or audit one analysis of
// a gene set: its inputs, the parameters and the per-library results.
type Snapshot struct {
	Version        int               `json:"version"`
	RunID          string            `json:"run_id"`
	CreatedAt      time.Time         `json:"created_at"`
	Mode           string            `json:"mode"`
	Parameters     map[string]any    `json:"parameters,omitempty"`
	InputGeneSet   []string          `json:"input_gene_set"`
	Background     string            `json:"background"`
	BackgroundSize int               `json:"background_size"`
	Libraries      []LibrarySnapshot `json:"libraries"`
}

// LibrarySnapshot holds one library's outcome. Exactly one of Enrichment and
// Iterative is set, depending on the mode.
type LibrarySnapshot struct {
	Library               string              `json:"library"`
	LibrarySize           int                 `json:"library_size"`
	LibraryBackgroundSize int                 `json:"library_background_size"`
	Status                string              `json:"status"`
	Error                 string              `json:"error,omitempty"`
	Enrichment            []enrichment.Record `json:"enrichment,omitempty"`
	Iterative             []iterative.Record  `json:"iterative,omitempty"`
}

// NewSnapshot starts a snapshot for gs against bg with a fresh run ID.
func NewSnapshot(mode string, gs *geneset.GeneSet, bg *geneset.Background, params map[string]any) *Snapshot {
	return &Snapshot{
		Version:        SnapshotVersion,
		RunID:          uuid.NewString(),
		CreatedAt:      time.Now().UTC(),
		Mode:           mode,
		Parameters:     params,
		InputGeneSet:   gs.IDs(),
		Background:     bg.Name(),
		BackgroundSize: bg.Size(),
		Libraries:      []LibrarySnapshot{},
	}
}

// AddEnrichment appends the result of a regular run against lib.
func (s *Snapshot) AddEnrichment(lib *geneset.Library, res *enrichment.Result) {
	ls := LibrarySnapshot{
		Library:               res.Library,
		LibrarySize:           lib.Size(),
		LibraryBackgroundSize: res.LibraryBackgroundSize,
		Status:                string(res.Status),
		Enrichment:            res.Records,
	}
	if res.Err != nil {
		ls.Error = res.Err.Error()
	}
	s.add(ls)
}

// AddIterative appends the outcome of an iterative run against lib.
func (s *Snapshot) AddIterative(lib *geneset.Library, bg *geneset.Background, run *iterative.Run) {
	ls := LibrarySnapshot{
		Library:               run.Library,
		LibrarySize:           lib.Size(),
		LibraryBackgroundSize: lib.BackgroundSize(bg),
		Status:                string(run.StopReason),
		Iterative:             run.Records,
	}
	if run.Err != nil {
		ls.Error = run.Err.Error()
	}
	s.add(ls)
}

// AddFailure records a library that could not be analyzed at all.
func (s *Snapshot) AddFailure(library string, err error) {
	s.add(LibrarySnapshot{Library: library, Status: "failed", Error: err.Error()})
}

func (s *Snapshot) add(ls LibrarySnapshot) {
	s.Libraries = append(s.Libraries, ls)
}

// Library returns the entry for name, if present.
func (s *Snapshot) Library(name string) (LibrarySnapshot, bool) {
	i := slices.IndexFunc(s.Libraries, func(ls LibrarySnapshot) bool { return ls.Library == name })
	if i < 0 {
		return LibrarySnapshot{}, false
	}
	return s.Libraries[i], true
}

// WriteSnapshot writes s as indented JSON.
func WriteSnapshot(w io.Writer, s *Snapshot) error {
	return writeJSON(w, s)
}

// ReadSnapshot decodes a snapshot written by WriteSnapshot.
func ReadSnapshot(r io.Reader) (*Snapshot, error) {
	var s Snapshot
	if err := readJSON(r, &s); err != nil {
		return nil, err
	}
	return &s, nil
}
