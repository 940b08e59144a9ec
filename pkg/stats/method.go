// Package stats implements the statistical tests used for enrichment:
// Fisher's exact test, the hypergeometric survival function and Pearson's
// chi-squared test on 2×2 contingency tables, plus Benjamini–Hochberg
// false discovery rate correction.
//
// All functions are pure and safe for concurrent use.
package stats

import (
	"strings"

	"github.com/matzehuels/iterenrich/pkg/errors"
)

// Method names a p-value test.
type Method string

// Supported methods. The string values double as display names.
const (
	MethodFisher         Method = "Fisher's Exact Test"
	MethodHypergeometric Method = "Hypergeometric Test"
	MethodChiSquared     Method = "Chi-squared Test"
)

// DefaultMethod is used when no method is configured.
const DefaultMethod = MethodFisher

// Methods lists the supported methods in display order.
var Methods = []Method{MethodFisher, MethodHypergeometric, MethodChiSquared}

var methodAliases = map[string]Method{
	"fisher":              MethodFisher,
	"fishers":             MethodFisher,
	"fisher's exact test": MethodFisher,
	"fisher-exact":        MethodFisher,
	"hypergeometric":      MethodHypergeometric,
	"hypergeom":           MethodHypergeometric,
	"hypergeometric test": MethodHypergeometric,
	"chi2":                MethodChiSquared,
	"chi-squared":         MethodChiSquared,
	"chisquared":          MethodChiSquared,
	"chi-squared test":    MethodChiSquared,
}

// ParseMethod resolves a method from its display name or a short alias
// (fisher, hypergeom, chi2, ...). Matching is case-insensitive. Unknown names
// return an ErrCodeInvalidMethod error; there is no fallback.
func ParseMethod(name string) (Method, error) {
	if m, ok := methodAliases[strings.ToLower(strings.TrimSpace(name))]; ok {
		return m, nil
	}
	return "", errors.New(errors.ErrCodeInvalidMethod,
		"unsupported p-value method: %q (must be one of: fisher, hypergeometric, chi2)", name)
}

// Valid reports whether m is a supported method.
func (m Method) Valid() bool {
	switch m {
	case MethodFisher, MethodHypergeometric, MethodChiSquared:
		return true
	}
	return false
}

// Short returns a compact alias suitable for flags and cache keys.
func (m Method) Short() string {
	switch m {
	case MethodFisher:
		return "fisher"
	case MethodHypergeometric:
		return "hypergeom"
	case MethodChiSquared:
		return "chi2"
	}
	return string(m)
}

// Alternative selects the tail of Fisher's exact test.
type Alternative string

const (
	// Greater tests for over-representation. This is the default.
	Greater Alternative = "greater"
	// TwoSided tests for any association.
	TwoSided Alternative = "two-sided"
	// Less tests for under-representation.
	Less Alternative = "less"
)

// PValue evaluates method on table. Fisher's exact test is one-sided
// (over-representation); use FisherExact for other alternatives.
//
// The hypergeometric test only needs the margins, so it accepts a negative D
// cell as long as M, n and N form a valid distribution. The other tests
// reject any negative cell.
func PValue(method Method, table Table) (float64, error) {
	switch method {
	case MethodFisher:
		return FisherExact(table, Greater)
	case MethodHypergeometric:
		return HypergeomSF(table.A-1, table.Total(), table.A+table.B, table.A+table.C)
	case MethodChiSquared:
		return ChiSquared(table)
	}
	return 0, errors.New(errors.ErrCodeInvalidMethod, "unsupported p-value method: %q", string(method))
}
