package cache

// Keyer generates cache keys. Implementations must be deterministic and
// include every input that changes a result.
type Keyer interface {
	// EnrichmentKey identifies a single-pass enrichment result.
	EnrichmentKey(in Inputs, opts EnrichmentKeyOpts) string

	// IterativeKey identifies an iterative run.
	IterativeKey(in Inputs, opts IterativeKeyOpts) string
}

// Inputs identifies the data an analysis ran on. Library and background are
// given by content hash so renaming a file does not invalidate entries, and
// editing it does.
type Inputs struct {
	GeneSet        []string `json:"gene_set"`
	Library        string   `json:"library"`
	LibraryHash    string   `json:"library_hash"`
	BackgroundHash string   `json:"background_hash"`
}

// EnrichmentKeyOpts holds the engine options that affect a result.
type EnrichmentKeyOpts struct {
	Method      string `json:"method"`
	MinTermSize int    `json:"min_term_size"`
	MaxTermSize int    `json:"max_term_size"`
}

// IterativeKeyOpts adds the controller options on top of the engine's.
type IterativeKeyOpts struct {
	EnrichmentKeyOpts
	PThreshold    float64 `json:"p_threshold"`
	MaxIterations int     `json:"max_iterations"`
	MinOverlap    int     `json:"min_overlap"`
}

// DefaultKeyer hashes inputs and options into prefixed keys.
type DefaultKeyer struct{}

// NewDefaultKeyer returns a DefaultKeyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

func (DefaultKeyer) EnrichmentKey(in Inputs, opts EnrichmentKeyOpts) string {
	return hashKey("enrichment", in, opts)
}

func (DefaultKeyer) IterativeKey(in Inputs, opts IterativeKeyOpts) string {
	return hashKey("iterative", in, opts)
}

var _ Keyer = DefaultKeyer{}
