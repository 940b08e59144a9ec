package enrichment

import (
	"io"
	"runtime"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/iterenrich/pkg/errors"
	"github.com/matzehuels/iterenrich/pkg/stats"
)

const (
	// DefaultMinTermSize is the smallest term tested by default.
	DefaultMinTermSize = 10

	// DefaultMaxTermSize is the largest term tested by default.
	DefaultMaxTermSize = 1000
)

// Options configures a single enrichment run.
type Options struct {
	MinTermSize int          `json:"min_term_size"`
	MaxTermSize int          `json:"max_term_size"`
	Method      stats.Method `json:"method"`

	// Workers bounds the number of concurrent term tests.
	// Zero uses DefaultWorkers.
	Workers int `json:"-"`

	Logger *log.Logger `json:"-"`
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		MinTermSize: DefaultMinTermSize,
		MaxTermSize: DefaultMaxTermSize,
		Method:      stats.DefaultMethod,
	}
}

// DefaultWorkers leaves two CPUs to the rest of the process, but never
// returns less than one.
func DefaultWorkers() int {
	return max(runtime.NumCPU()-2, 1)
}

// SetDefaults fills zero-valued fields. A zero MinTermSize is a valid bound
// and is left alone.
func (o *Options) SetDefaults() {
	if o.MaxTermSize == 0 {
		o.MaxTermSize = DefaultMaxTermSize
	}
	if o.Method == "" {
		o.Method = stats.DefaultMethod
	}
	if o.Workers <= 0 {
		o.Workers = DefaultWorkers()
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// Validate checks the configuration. Errors are configuration errors and are
// never retried.
func (o *Options) Validate() error {
	if !o.Method.Valid() {
		return errors.New(errors.ErrCodeInvalidMethod,
			"unsupported p-value method: %q (must be one of: fisher, hypergeometric, chi2)", string(o.Method))
	}
	if o.MinTermSize < 0 {
		return errors.New(errors.ErrCodeInvalidTermSize, "min_term_size must be >= 0, got %d", o.MinTermSize)
	}
	if o.MaxTermSize < o.MinTermSize {
		return errors.New(errors.ErrCodeInvalidTermSize,
			"min_term_size (%d) must not exceed max_term_size (%d)", o.MinTermSize, o.MaxTermSize)
	}
	return nil
}
