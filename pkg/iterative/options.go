package iterative

import (
	"github.com/matzehuels/iterenrich/pkg/enrichment"
	"github.com/matzehuels/iterenrich/pkg/errors"
)

const (
	// DefaultPThreshold is the p-value a term must stay below to be peeled.
	DefaultPThreshold = 0.01

	// DefaultMinOverlap is the smallest overlap a peeled term may have.
	DefaultMinOverlap = 1
)

// Options configures an iterative run. The embedded enrichment options are
// passed to every engine call.
type Options struct {
	enrichment.Options

	PThreshold float64 `json:"p_threshold"`
	// MaxIterations caps the number of iterations. Zero means unbounded.
	MaxIterations int `json:"max_iterations,omitempty"`
	MinOverlap    int `json:"min_overlap"`
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		Options:    enrichment.DefaultOptions(),
		PThreshold: DefaultPThreshold,
		MinOverlap: DefaultMinOverlap,
	}
}

// SetDefaults fills zero-valued fields.
func (o *Options) SetDefaults() {
	o.Options.SetDefaults()
	if o.PThreshold == 0 {
		o.PThreshold = DefaultPThreshold
	}
	if o.MinOverlap == 0 {
		o.MinOverlap = DefaultMinOverlap
	}
}

// Validate checks the configuration, including the embedded engine options.
func (o *Options) Validate() error {
	if err := o.Options.Validate(); err != nil {
		return err
	}
	if o.PThreshold <= 0 || o.PThreshold > 1 {
		return errors.New(errors.ErrCodeInvalidThreshold, "p_threshold must be in (0, 1], got %g", o.PThreshold)
	}
	if o.MaxIterations < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "max_iterations must be >= 0, got %d", o.MaxIterations)
	}
	if o.MinOverlap < 1 {
		return errors.New(errors.ErrCodeInvalidInput, "min_overlap must be >= 1, got %d", o.MinOverlap)
	}
	return nil
}
