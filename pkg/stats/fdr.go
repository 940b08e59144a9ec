package stats

import (
	"cmp"
	"slices"
)

// BenjaminiHochberg returns FDR-adjusted values for p, in input order.
//
// Values are ranked ascending (stable), scaled by m/rank, made monotone by a
// running minimum from the largest rank down, and capped at 1. Every adjusted
// value is at least its raw p-value.
func BenjaminiHochberg(p []float64) []float64 {
	m := len(p)
	if m == 0 {
		return []float64{}
	}

	order := make([]int, m)
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return cmp.Compare(p[a], p[b])
	})

	adjusted := make([]float64, m)
	running := 1.0
	for pos := m - 1; pos >= 0; pos-- {
		i := order[pos]
		q := p[i] * float64(m) / float64(pos+1)
		running = min(running, q)
		adjusted[i] = running
	}
	return adjusted
}
