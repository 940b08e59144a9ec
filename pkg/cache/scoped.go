package cache

// ScopedKeyer wraps a Keyer with a prefix so several tenants or schema
// versions can share one backend without seeing each other's entries.
//
// Example usage:
//
//	// Separate the API's entries from the CLI's in a shared Redis
//	apiKeyer := NewScopedKeyer(NewDefaultKeyer(), "api:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// EnrichmentKey generates a prefixed enrichment key.
func (k *ScopedKeyer) EnrichmentKey(in Inputs, opts EnrichmentKeyOpts) string {
	return k.prefix + k.inner.EnrichmentKey(in, opts)
}

// IterativeKey generates a prefixed iterative key.
func (k *ScopedKeyer) IterativeKey(in Inputs, opts IterativeKeyOpts) string {
	return k.prefix + k.inner.IterativeKey(in, opts)
}

