package stats

import (
	"math"

	"gonum.org/v1/gonum/stat/combin"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/matzehuels/iterenrich/pkg/errors"
)

// Table is a 2×2 contingency table
//
//	| A  B |
//	| C  D |
//
// For enrichment, A is the overlap k, B = n-k, C = N-k and D = M-n-N+k.
type Table struct {
	A, B, C, D int
}

// NewTable builds the enrichment table for overlap k, term size n, gene set
// size bigN and population size m.
func NewTable(k, n, bigN, m int) Table {
	return Table{A: k, B: n - k, C: bigN - k, D: m - n - bigN + k}
}

// Total returns A+B+C+D.
func (t Table) Total() int { return t.A + t.B + t.C + t.D }

// Validate rejects tables with negative cells.
func (t Table) Validate() error {
	if t.A < 0 || t.B < 0 || t.C < 0 || t.D < 0 {
		return errors.New(errors.ErrCodeInvalidTable,
			"contingency table has negative entries: [[%d %d] [%d %d]]", t.A, t.B, t.C, t.D)
	}
	return nil
}

// FisherExact returns the p-value of Fisher's exact test on t.
//
// The test conditions on the margins, so A follows a hypergeometric
// distribution with population A+B+C+D, A+B successes and A+C draws.
// Tables with an empty row or column have p = 1.
func FisherExact(t Table, alt Alternative) (float64, error) {
	if err := t.Validate(); err != nil {
		return 0, err
	}
	row1, row2 := t.A+t.B, t.C+t.D
	col1, col2 := t.A+t.C, t.B+t.D
	if row1 == 0 || row2 == 0 || col1 == 0 || col2 == 0 {
		return 1, nil
	}
	m := t.Total()

	switch alt {
	case Greater, "":
		return HypergeomSF(t.A-1, m, row1, col1)
	case Less:
		return hypergeomCDF(t.A, m, row1, col1), nil
	case TwoSided:
		return fisherTwoSided(t.A, m, row1, col1), nil
	}
	return 0, errors.New(errors.ErrCodeInvalidInput, "unknown alternative: %q", string(alt))
}

// fisherTwoSided sums the probabilities of all tables at most as likely as
// the observed one, with a small relative tolerance for rounding.
func fisherTwoSided(a, m, n, bigN int) float64 {
	const relTol = 1 + 1e-7
	lo, hi := support(m, n, bigN)
	observed := hypergeomPMF(a, m, n, bigN)
	p := 0.0
	for x := lo; x <= hi; x++ {
		if px := hypergeomPMF(x, m, n, bigN); px <= observed*relTol {
			p += px
		}
	}
	return clamp01(p)
}

// ChiSquared returns the p-value of Pearson's chi-squared test of
// independence on t, with Yates' continuity correction (one degree of
// freedom). A table with an empty row or column has p = 1.
func ChiSquared(t Table) (float64, error) {
	if err := t.Validate(); err != nil {
		return 0, err
	}
	total := float64(t.Total())
	rows := [2]float64{float64(t.A + t.B), float64(t.C + t.D)}
	cols := [2]float64{float64(t.A + t.C), float64(t.B + t.D)}
	if rows[0] == 0 || rows[1] == 0 || cols[0] == 0 || cols[1] == 0 {
		return 1, nil
	}

	observed := [2][2]float64{
		{float64(t.A), float64(t.B)},
		{float64(t.C), float64(t.D)},
	}
	stat := 0.0
	for i := range 2 {
		for j := range 2 {
			expected := rows[i] * cols[j] / total
			diff := math.Abs(observed[i][j] - expected)
			diff -= math.Min(0.5, diff)
			stat += diff * diff / expected
		}
	}
	return clamp01(distuv.ChiSquared{K: 1}.Survival(stat)), nil
}

// HypergeomSF returns P(X > x) for X ~ Hypergeometric(m, n, bigN): a
// population of m items with n successes, of which bigN are drawn.
//
// The enrichment p-value P(X >= k) is HypergeomSF(k-1, m, n, bigN).
func HypergeomSF(x, m, n, bigN int) (float64, error) {
	if m < 0 || n < 0 || bigN < 0 || n > m || bigN > m {
		return 0, errors.New(errors.ErrCodeInvalidTable,
			"invalid hypergeometric parameters: M=%d n=%d N=%d", m, n, bigN)
	}
	lo, hi := support(m, n, bigN)
	if x < lo {
		return 1, nil
	}
	if x >= hi {
		return 0, nil
	}
	p := 0.0
	for i := x + 1; i <= hi; i++ {
		p += hypergeomPMF(i, m, n, bigN)
	}
	return clamp01(p), nil
}

func hypergeomCDF(x, m, n, bigN int) float64 {
	lo, hi := support(m, n, bigN)
	if x < lo {
		return 0
	}
	if x >= hi {
		return 1
	}
	p := 0.0
	for i := lo; i <= x; i++ {
		p += hypergeomPMF(i, m, n, bigN)
	}
	return clamp01(p)
}

func hypergeomPMF(x, m, n, bigN int) float64 {
	lo, hi := support(m, n, bigN)
	if x < lo || x > hi {
		return 0
	}
	return math.Exp(logBinomial(n, x) + logBinomial(m-n, bigN-x) - logBinomial(m, bigN))
}

// support returns the smallest and largest values X can take.
func support(m, n, bigN int) (lo, hi int) {
	return max(0, bigN-(m-n)), min(n, bigN)
}

func logBinomial(n, k int) float64 {
	return combin.LogGeneralizedBinomial(float64(n), float64(k))
}

func clamp01(p float64) float64 {
	return math.Max(0, math.Min(1, p))
}
