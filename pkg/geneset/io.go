package geneset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/matzehuels/iterenrich/pkg/errors"
)

// =============================================================================
// Wire Types
// =============================================================================

// GeneSetDocument is the JSON form of a gene set or background.
type GeneSetDocument struct {
	Name  string   `json:"name"`
	Genes []string `json:"genes"`
}

// TermDocument is the JSON form of a term.
type TermDocument struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Genes       []string `json:"genes"`
}

// LibraryDocument is the JSON form of a library.
type LibraryDocument struct {
	Name  string         `json:"name"`
	Terms []TermDocument `json:"terms"`
}

// ToGeneSet converts the document into a gene set validated against bg (optional).
func (d GeneSetDocument) ToGeneSet(bg *Background) (*GeneSet, Validation, error) {
	return NewGeneSet(d.Name, d.Genes, bg)
}

// ToBackground converts the document into a background.
func (d GeneSetDocument) ToBackground() (*Background, Validation, error) {
	return NewBackground(d.Name, d.Genes)
}

// ToLibrary converts the document into a library.
func (d LibraryDocument) ToLibrary() (*Library, error) {
	terms := make([]*Term, 0, len(d.Terms))
	for _, td := range d.Terms {
		t, err := NewTerm(td.Name, td.Description, td.Genes)
		if err != nil {
			return nil, fmt.Errorf("library %s: %w", d.Name, err)
		}
		terms = append(terms, t)
	}
	return NewLibrary(d.Name, terms)
}

// GeneSetToDocument converts a gene set to its wire form.
func GeneSetToDocument(g *GeneSet) GeneSetDocument {
	return GeneSetDocument{Name: g.Name(), Genes: g.IDs()}
}

// BackgroundToDocument converts a background to its wire form.
func BackgroundToDocument(b *Background) GeneSetDocument {
	return GeneSetDocument{Name: b.Name(), Genes: b.Genes().IDs()}
}

// LibraryToDocument converts a library to its wire form, keeping term order.
func LibraryToDocument(l *Library) LibraryDocument {
	doc := LibraryDocument{Name: l.Name(), Terms: make([]TermDocument, 0, l.NumTerms())}
	for _, t := range l.terms {
		doc.Terms = append(doc.Terms, TermDocument{
			Name:        t.Name(),
			Description: t.Description(),
			Genes:       t.Genes().IDs(),
		})
	}
	return doc
}

// =============================================================================
// Reading
// =============================================================================

// ReadGeneSet decodes a gene set document and validates it against bg (optional).
func ReadGeneSet(r io.Reader, bg *Background) (*GeneSet, Validation, error) {
	var doc GeneSetDocument
	if err := decode(r, &doc); err != nil {
		return nil, Validation{}, err
	}
	return doc.ToGeneSet(bg)
}

// ReadGeneSetFile reads a gene set document from path.
func ReadGeneSetFile(path string, bg *Background) (*GeneSet, Validation, error) {
	f, err := open(path)
	if err != nil {
		return nil, Validation{}, err
	}
	defer f.Close()
	return ReadGeneSet(f, bg)
}

// ReadBackground decodes a background document.
func ReadBackground(r io.Reader) (*Background, Validation, error) {
	var doc GeneSetDocument
	if err := decode(r, &doc); err != nil {
		return nil, Validation{}, err
	}
	return doc.ToBackground()
}

// ReadBackgroundFile reads a background document from path.
func ReadBackgroundFile(path string) (*Background, Validation, error) {
	f, err := open(path)
	if err != nil {
		return nil, Validation{}, err
	}
	defer f.Close()
	return ReadBackground(f)
}

// ReadLibrary decodes a library document.
func ReadLibrary(r io.Reader) (*Library, error) {
	var doc LibraryDocument
	if err := decode(r, &doc); err != nil {
		return nil, err
	}
	return doc.ToLibrary()
}

// ReadLibraryFile reads a library document from path.
func ReadLibraryFile(path string) (*Library, error) {
	f, err := open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadLibrary(f)
}

// =============================================================================
// Writing
// =============================================================================

// MarshalLibrary converts a library to indented JSON bytes.
func MarshalLibrary(l *Library) ([]byte, error) {
	var buf bytes.Buffer
	if err := encode(&buf, LibraryToDocument(l)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteGeneSet writes a gene set document to w.
func WriteGeneSet(g *GeneSet, w io.Writer) error {
	return encode(w, GeneSetToDocument(g))
}

// WriteLibrary writes a library document to w.
func WriteLibrary(l *Library, w io.Writer) error {
	return encode(w, LibraryToDocument(l))
}

// =============================================================================
// Internal Implementation
// =============================================================================

func open(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "open %s", path)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return f, nil
}

func decode(r io.Reader, v any) error {
	if err := json.NewDecoder(r).Decode(v); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode")
	}
	return nil
}

func encode(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}
