// Package geneset provides the immutable inputs of an enrichment analysis.
//
// # Core Types
//
//   - [GeneSet]: the genes of interest being tested
//   - [Background]: the reference universe of possible genes
//   - [Term]: a named, annotated set of genes (a pathway, process or signature)
//   - [Library]: an ordered collection of terms plus the union of their genes
//
// All types are read-only once constructed and are safe to share between
// goroutines. Operations that narrow a value, such as [Library.FilterTerms]
// or [GeneSet.Without], return a new value and leave the receiver untouched.
//
// # Identifiers
//
// Gene identifiers are normalized with [Normalize] (trimmed, uppercased).
// Constructors report duplicates and malformed identifiers in a [Validation]
// instead of failing, so callers can surface them to users.
//
// # Serialization
//
// Inputs are exchanged as small JSON documents:
//
//	{"name": "hypoxia_up", "genes": ["VEGFA", "SLC2A1", "PGK1"]}
//
//	{"name": "hallmark", "terms": [
//	  {"name": "HYPOXIA", "description": "Hypoxia response", "genes": ["VEGFA", "PGK1"]}
//	]}
//
// Use [ReadGeneSetFile], [ReadBackgroundFile] and [ReadLibraryFile] to load
// them, and the matching Write functions to produce them.
package geneset
