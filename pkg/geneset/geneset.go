package geneset

import (
	"github.com/matzehuels/iterenrich/pkg/errors"
)

// GeneSet is a named collection of genes of interest.
type GeneSet struct {
	name  string
	genes Set
}

// NewGeneSet normalizes raw identifiers into a gene set.
//
// If bg is non-nil, identifiers missing from the background are dropped and
// reported in the returned Validation. An invalid name is the only error.
func NewGeneSet(name string, raw []string, bg *Background) (*GeneSet, Validation, error) {
	if err := errors.ValidateName(name); err != nil {
		return nil, Validation{}, err
	}
	ids, v := normalizeAll(raw)
	if bg != nil {
		kept := ids[:0]
		for _, id := range ids {
			if bg.Has(id) {
				kept = append(kept, id)
			} else {
				v.NotInBackground = append(v.NotInBackground, id)
			}
		}
		ids = kept
	}
	return &GeneSet{name: name, genes: NewSet(ids...)}, v, nil
}

// FromValidated builds a gene set from identifiers that were already
// normalized and validated, without consulting a background.
func FromValidated(name string, ids []string) *GeneSet {
	return &GeneSet{name: name, genes: NewSet(ids...)}
}

// FromSet wraps an existing Set.
func FromSet(name string, s Set) *GeneSet {
	return &GeneSet{name: name, genes: s}
}

// Name returns the gene set name.
func (g *GeneSet) Name() string { return g.name }

// Size returns the number of genes.
func (g *GeneSet) Size() int { return g.genes.Len() }

// Genes returns the underlying set.
func (g *GeneSet) Genes() Set { return g.genes }

// IDs returns the genes in lexicographic order.
func (g *GeneSet) IDs() []string { return g.genes.IDs() }

// Has reports whether the gene set contains id.
func (g *GeneSet) Has(id string) bool { return g.genes.Has(id) }

// Without returns a new gene set with the given genes removed.
func (g *GeneSet) Without(ids ...string) *GeneSet {
	return &GeneSet{name: g.name, genes: g.genes.Without(ids...)}
}

// Background is the reference universe of genes an analysis is judged against.
type Background struct {
	name  string
	genes Set
}

// NewBackground normalizes raw identifiers into a background. Malformed and
// duplicate tokens are reported, not fatal.
func NewBackground(name string, raw []string) (*Background, Validation, error) {
	if err := errors.ValidateName(name); err != nil {
		return nil, Validation{}, err
	}
	ids, v := normalizeAll(raw)
	return &Background{name: name, genes: NewSet(ids...)}, v, nil
}

// Name returns the background name.
func (b *Background) Name() string { return b.name }

// Size returns the number of genes in the background.
func (b *Background) Size() int { return b.genes.Len() }

// Genes returns the underlying set.
func (b *Background) Genes() Set { return b.genes }

// Has reports whether the background contains id.
func (b *Background) Has(id string) bool { return b.genes.Has(id) }
