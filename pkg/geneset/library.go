package geneset

import (
	"github.com/matzehuels/iterenrich/pkg/errors"
)

// Term is a named, annotated set of genes.
type Term struct {
	name        string
	description string
	genes       Set
}

// NewTerm builds a term from raw identifiers. Invalid tokens are dropped.
func NewTerm(name, description string, raw []string) (*Term, error) {
	if name == "" {
		return nil, errors.New(errors.ErrCodeInvalidLibrary, "term name cannot be empty")
	}
	ids, _ := normalizeAll(raw)
	return &Term{name: name, description: description, genes: NewSet(ids...)}, nil
}

// Name returns the term name.
func (t *Term) Name() string { return t.name }

// Description returns the free-text term description.
func (t *Term) Description() string { return t.description }

// Size returns the number of genes annotated to the term.
func (t *Term) Size() int { return t.genes.Len() }

// Genes returns the term's gene set.
func (t *Term) Genes() Set { return t.genes }

// Overlap returns the genes of s that are annotated to the term, sorted.
func (t *Term) Overlap(s Set) []string { return t.genes.Intersect(s) }

// Library is an ordered collection of terms.
//
// The union of all term genes is computed once at construction; narrowing a
// library with FilterTerms recomputes it for the new value.
type Library struct {
	name   string
	terms  []*Term
	unique Set
}

// NewLibrary builds a library from terms, keeping their order.
// Duplicate term names are rejected.
func NewLibrary(name string, terms []*Term) (*Library, error) {
	if err := errors.ValidateName(name); err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(terms))
	for _, t := range terms {
		if t == nil {
			return nil, errors.New(errors.ErrCodeInvalidLibrary, "library %s: nil term", name)
		}
		if seen[t.name] {
			return nil, errors.New(errors.ErrCodeInvalidLibrary, "library %s: duplicate term %q", name, t.name)
		}
		seen[t.name] = true
	}
	return newLibrary(name, terms), nil
}

func newLibrary(name string, terms []*Term) *Library {
	sets := make([]Set, len(terms))
	for i, t := range terms {
		sets[i] = t.genes
	}
	return &Library{
		name:   name,
		terms:  append([]*Term(nil), terms...),
		unique: Union(sets...),
	}
}

// Name returns the library name.
func (l *Library) Name() string { return l.name }

// Terms returns the terms in library order. The slice is a copy; the terms
// themselves are shared and immutable.
func (l *Library) Terms() []*Term { return append([]*Term(nil), l.terms...) }

// NumTerms returns the number of terms.
func (l *Library) NumTerms() int { return len(l.terms) }

// Term returns the i-th term in library order.
func (l *Library) Term(i int) *Term { return l.terms[i] }

// UniqueGenes returns the union of all term genes.
func (l *Library) UniqueGenes() Set { return l.unique }

// Size returns the number of unique genes in the library.
func (l *Library) Size() int { return l.unique.Len() }

// FilterTerms returns a new library keeping only terms whose size lies in
// [minSize, maxSize]. Unique genes are recomputed from the surviving terms.
func (l *Library) FilterTerms(minSize, maxSize int) *Library {
	kept := make([]*Term, 0, len(l.terms))
	for _, t := range l.terms {
		if t.Size() >= minSize && t.Size() <= maxSize {
			kept = append(kept, t)
		}
	}
	return newLibrary(l.name, kept)
}

// BackgroundSize returns |bg ∩ unique genes|, the population size used by the
// enrichment tests for this library.
func (l *Library) BackgroundSize(bg *Background) int {
	if bg == nil {
		return 0
	}
	return l.unique.IntersectCount(bg.genes)
}
