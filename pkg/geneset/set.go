package geneset

import (
	"slices"
	"strings"

	"github.com/matzehuels/iterenrich/pkg/errors"
)

// Normalize converts a raw token into a gene identifier: surrounding
// whitespace is removed and letters are uppercased.
func Normalize(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// Set is an immutable set of gene identifiers. The zero value is an empty set.
//
// Members are kept sorted, so iteration order is deterministic.
type Set struct {
	ids   []string
	index map[string]struct{}
}

// NewSet builds a set from already-normalized identifiers. Duplicates
// collapse and empty strings are ignored.
func NewSet(ids ...string) Set {
	index := make(map[string]struct{}, len(ids))
	sorted := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := index[id]; ok {
			continue
		}
		index[id] = struct{}{}
		sorted = append(sorted, id)
	}
	slices.Sort(sorted)
	return Set{ids: sorted, index: index}
}

// Len returns the number of genes in the set.
func (s Set) Len() int { return len(s.ids) }

// Has reports whether id is a member.
func (s Set) Has(id string) bool {
	_, ok := s.index[id]
	return ok
}

// IDs returns the members in lexicographic order. The slice is a copy.
func (s Set) IDs() []string { return slices.Clone(s.ids) }

// Intersect returns the members shared with other, sorted.
func (s Set) Intersect(other Set) []string {
	small, large := s, other
	if large.Len() < small.Len() {
		small, large = large, small
	}
	out := make([]string, 0, small.Len())
	for _, id := range small.ids {
		if large.Has(id) {
			out = append(out, id)
		}
	}
	return out
}

// IntersectCount returns |s ∩ other| without allocating the intersection.
func (s Set) IntersectCount(other Set) int {
	small, large := s, other
	if large.Len() < small.Len() {
		small, large = large, small
	}
	n := 0
	for _, id := range small.ids {
		if large.Has(id) {
			n++
		}
	}
	return n
}

// Without returns a new set holding the members of s that are not in ids.
func (s Set) Without(ids ...string) Set {
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	keep := make([]string, 0, len(s.ids))
	for _, id := range s.ids {
		if _, ok := drop[id]; !ok {
			keep = append(keep, id)
		}
	}
	return NewSet(keep...)
}

// Union returns a new set holding the members of every given set.
func Union(sets ...Set) Set {
	var all []string
	for _, s := range sets {
		all = append(all, s.ids...)
	}
	return NewSet(all...)
}

// Validation reports what a constructor dropped while normalizing input.
type Validation struct {
	// Duplicates lists identifiers that appeared more than once.
	Duplicates []string `json:"duplicates,omitempty"`
	// Invalid lists tokens that are not valid gene identifiers.
	Invalid []string `json:"invalid,omitempty"`
	// NotInBackground lists valid identifiers missing from the background.
	NotInBackground []string `json:"not_in_background,omitempty"`
}

// Dropped returns the number of input tokens that did not make it into the set.
func (v Validation) Dropped() int {
	return len(v.Duplicates) + len(v.Invalid) + len(v.NotInBackground)
}

// normalizeAll normalizes raw tokens, keeping first occurrences in order.
// Blank tokens are skipped silently.
func normalizeAll(raw []string) ([]string, Validation) {
	var v Validation
	seen := make(map[string]bool, len(raw))
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		id := Normalize(r)
		if id == "" {
			continue
		}
		if err := errors.ValidateGeneID(id); err != nil {
			v.Invalid = append(v.Invalid, r)
			continue
		}
		if seen[id] {
			v.Duplicates = append(v.Duplicates, id)
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out, v
}
